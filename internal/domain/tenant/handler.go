package tenant

import (
	"net/http"

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
	manage := api.Group("", auth.RequirePermission(auth.PermManageTenant))
	manage.POST("/tenants", h.Create)
	manage.GET("/tenants", h.List)
	manage.GET("/tenants/:id", h.Get)
	manage.PUT("/tenants/:id", h.Update)
	manage.POST("/tenants/:id/suspend", h.Suspend)
	manage.POST("/tenants/:id/restore", h.Restore)
}

func (h *Handler) Create(c echo.Context) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	var input CreateInput
	if err := c.Bind(&input); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}

	t, err := h.svc.Create(c.Request().Context(), identity, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) Get(c echo.Context) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	t, err := h.svc.Get(c.Request().Context(), identity, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) List(c echo.Context) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	pg := pagination.FromContext(c)

	items, total, err := h.svc.List(c.Request().Context(), identity, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	var input UpdateInput
	if err := c.Bind(&input); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}

	t, err := h.svc.Update(c.Request().Context(), identity, c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) Suspend(c echo.Context) error {
	return h.setActive(c, false)
}

func (h *Handler) Restore(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *Handler) setActive(c echo.Context, active bool) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	t, err := h.svc.SetActive(c.Request().Context(), identity, c.Param("id"), active)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}
