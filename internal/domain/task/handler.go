package task

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
	read := api.Group("", auth.RequirePermission(auth.PermViewTasks))
	read.GET("/tasks", h.List)
	read.GET("/tasks/overdue", h.ListOverdue)
	read.GET("/tasks/:id", h.Get)

	manage := api.Group("", auth.RequirePermission(auth.PermManageTasks))
	manage.POST("/tasks", h.Create)
	manage.PUT("/tasks/:id", h.Update)
	manage.POST("/tasks/:id/start", h.transition(StatusInProgress))
	manage.POST("/tasks/:id/complete", h.transition(StatusCompleted))
	manage.POST("/tasks/:id/cancel", h.transition(StatusCancelled))
}

func (h *Handler) Create(c echo.Context) error {
	var t Task
	if err := c.Bind(&t); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	actor := auth.IdentityFromContext(c.Request().Context())
	if err := h.svc.Create(c.Request().Context(), actor, &t); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var t Task
	if err := c.Bind(&t); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	t.ID = id

	updated, err := h.svc.Update(c.Request().Context(), &t)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) transition(to Status) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		t, err := h.svc.Transition(c.Request().Context(), id, to)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, t)
	}
}

func (h *Handler) List(c echo.Context) error {
	f, pg, err := h.filterFromQuery(c)
	if err != nil {
		return err
	}
	items, total, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListOverdue(c echo.Context) error {
	f, pg, err := h.filterFromQuery(c)
	if err != nil {
		return err
	}
	items, total, err := h.svc.ListOverdue(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) filterFromQuery(c echo.Context) (ListFilter, pagination.Params, error) {
	pg := pagination.FromContext(c)
	f := ListFilter{
		Status:   Status(c.QueryParam("status")),
		Priority: Priority(c.QueryParam("priority")),
		Limit:    pg.Limit,
		Offset:   pg.Offset,
	}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, pg, apperr.New(apperr.KindValidation, "invalid patient_id")
		}
		f.PatientID = id
	}
	if v := c.QueryParam("assignee_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, pg, apperr.New(apperr.KindValidation, "invalid assignee_id")
		}
		f.AssigneeID = id
	}
	return f, pg, nil
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.KindValidation, "invalid task id")
	}
	return id, nil
}
