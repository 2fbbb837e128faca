package grant

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebase/carebase/internal/platform/apperr"
	"github.com/carebase/carebase/internal/platform/auth"
	"github.com/carebase/carebase/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/grants", h.Request, auth.RequirePermission(auth.PermRequestSupportAccess))
	api.GET("/grants", h.List)
	api.GET("/grants/:id", h.Get)

	manage := api.Group("", auth.RequirePermission(auth.PermManageGrants))
	manage.POST("/grants/:id/approve", h.Approve)
	manage.POST("/grants/:id/deny", h.Deny)
	manage.POST("/grants/:id/revoke", h.Revoke)
}

func (h *Handler) Request(c echo.Context) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	if identity == nil {
		return apperr.New(apperr.KindUnauthorized, "authentication required")
	}

	var input RequestInput
	if err := c.Bind(&input); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}

	g, err := h.svc.Request(c.Request().Context(), identity, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *Handler) Get(c echo.Context) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	if identity == nil {
		return apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid grant id")
	}

	g, err := h.svc.Get(c.Request().Context(), identity, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) List(c echo.Context) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	if identity == nil {
		return apperr.New(apperr.KindUnauthorized, "authentication required")
	}

	pg := pagination.FromContext(c)
	filter := ListFilter{
		TenantID: c.QueryParam("tenant_id"),
		Status:   Status(c.QueryParam("status")),
		Limit:    pg.Limit,
		Offset:   pg.Offset,
	}

	items, total, err := h.svc.List(c.Request().Context(), identity, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type approveRequest struct {
	DurationHours int `json:"duration_hours"`
}

// Approve accepts an optional body overriding the requested duration.
func (h *Handler) Approve(c echo.Context) error {
	var req approveRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
		}
	}
	return h.decide(c, func(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*Grant, error) {
		return h.svc.Approve(ctx, actor, id, req.DurationHours)
	})
}

func (h *Handler) Deny(c echo.Context) error {
	return h.decide(c, h.svc.Deny)
}

func (h *Handler) Revoke(c echo.Context) error {
	return h.decide(c, h.svc.Revoke)
}

type decisionFunc func(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*Grant, error)

func (h *Handler) decide(c echo.Context, op decisionFunc) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	if identity == nil {
		return apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid grant id")
	}

	g, err := op(c.Request().Context(), identity, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}
