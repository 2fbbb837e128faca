package document

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequirePermission(auth.PermViewDocuments))
	read.GET("/documents", h.List)
	read.GET("/documents/:id", h.Get)

	manage := api.Group("", auth.RequirePermission(auth.PermManageDocuments))
	manage.POST("/documents", h.Create)
	manage.PUT("/documents/:id", h.Update)
	manage.POST("/documents/:id/finalize", h.Finalize)
	manage.POST("/documents/:id/amend", h.Amend)
	manage.DELETE("/documents/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var d Document
	if err := c.Bind(&d); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	actor := auth.IdentityFromContext(c.Request().Context())
	if err := h.svc.CreateDraft(c.Request().Context(), actor, &d); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var d Document
	if err := c.Bind(&d); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	d.ID = id

	updated, err := h.svc.Update(c.Request().Context(), &d)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Finalize(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Finalize(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

type amendRequest struct {
	StorageURI string `json:"storage_uri"`
}

func (h *Handler) Amend(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req amendRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	d, err := h.svc.Amend(c.Request().Context(), id, req.StorageURI)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{
		Type:   c.QueryParam("type"),
		Status: Status(c.QueryParam("status")),
		Limit:  pg.Limit,
		Offset: pg.Offset,
	}
	for param, dst := range map[string]*uuid.UUID{
		"patient_id": &f.PatientID,
		"visit_id":   &f.VisitID,
		"author_id":  &f.AuthorID,
	} {
		if v := c.QueryParam(param); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return apperr.New(apperr.KindValidation, "invalid "+param)
			}
			*dst = id
		}
	}

	items, total, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.KindValidation, "invalid document id")
	}
	return id, nil
}
