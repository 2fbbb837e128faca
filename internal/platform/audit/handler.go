package audit

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carebase/carebase/internal/platform/apperr"
	"github.com/carebase/carebase/internal/platform/auth"
)

// Handler serves the audit log read API.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts the audit endpoints under the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/audit-log", h.Search, auth.RequirePermission(auth.PermViewAuditLog))
}

type searchResponse struct {
	Entries []*Entry `json:"entries"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Search lists audit entries matching the query filters, newest first.
// Non-superadmin callers are pinned to their own tenant.
func (h *Handler) Search(c echo.Context) error {
	params := SearchParams{}
	if err := c.Bind(&params); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid search parameters", err)
	}

	identity := auth.IdentityFromContext(c.Request().Context())
	if identity != nil && identity.Role != auth.RoleSuperAdmin {
		params.TenantID = identity.TenantID
	}

	params.applyDefaults()
	entries, total, err := h.store.Search(c.Request().Context(), params)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "audit search failed", err)
	}

	return c.JSON(http.StatusOK, searchResponse{
		Entries: entries,
		Total:   total,
		Limit:   params.Limit,
		Offset:  params.Offset,
	})
}
