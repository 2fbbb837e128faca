package user

import (
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

// RegisterAuthRoutes mounts the unauthenticated credential endpoints.
func (h *Handler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/auth/login", h.Login)
	g.POST("/auth/refresh", h.Refresh)
}

// RegisterRoutes mounts the authenticated account endpoints.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/auth/me", h.Me)
	api.POST("/auth/password", h.ChangePassword)

	manage := api.Group("", auth.RequirePermission(auth.PermManageUsers))
	manage.POST("/users", h.Create)
	manage.GET("/users", h.List)
	manage.PUT("/users/:id", h.Update)
	manage.POST("/users/:id/activate", h.Activate)
	manage.POST("/users/:id/deactivate", h.Deactivate)

	// Get allows self-lookup, so it sits outside the manage group.
	api.GET("/users/:id", h.Get)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	*TokenPair
	User *User `json:"user"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	if req.Email == "" || req.Password == "" {
		return apperr.New(apperr.KindValidation, "email and password are required")
	}

	pair, u, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{TokenPair: pair, User: u})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	if req.RefreshToken == "" {
		return apperr.New(apperr.KindValidation, "refresh_token is required")
	}

	pair, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

type meResponse struct {
	*auth.Identity
	Permissions []auth.Permission `json:"permissions"`
}

// Me returns the caller's identity and effective permission set.
func (h *Handler) Me(c echo.Context) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	if identity == nil {
		return apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	return c.JSON(http.StatusOK, meResponse{
		Identity:    identity,
		Permissions: auth.PermissionsFor(identity.Role),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) ChangePassword(c echo.Context) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	if identity == nil {
		return apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	if err := h.svc.ChangePassword(c.Request().Context(), identity, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Create(c echo.Context) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	var input CreateInput
	if err := c.Bind(&input); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}

	u, err := h.svc.Create(c.Request().Context(), identity, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) Get(c echo.Context) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	if identity == nil {
		return apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid user id")
	}

	u, err := h.svc.Get(c.Request().Context(), identity, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) List(c echo.Context) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	filter := ListFilter{
		TenantID: c.QueryParam("tenant_id"),
		Role:     auth.Role(c.QueryParam("role")),
		Limit:    pg.Limit,
		Offset:   pg.Offset,
	}

	items, total, err := h.svc.List(c.Request().Context(), identity, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid user id")
	}
	var input UpdateInput
	if err := c.Bind(&input); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}

	u, err := h.svc.Update(c.Request().Context(), identity, id, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Activate(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *Handler) Deactivate(c echo.Context) error {
	return h.setActive(c, false)
}

func (h *Handler) setActive(c echo.Context, active bool) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid user id")
	}

	u, err := h.svc.SetActive(c.Request().Context(), identity, id, active)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}
