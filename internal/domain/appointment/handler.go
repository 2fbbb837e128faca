package appointment

import (
	"net/http"
	"time"

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
	read := api.Group("", auth.RequirePermission(auth.PermViewAppointments))
	read.GET("/appointments", h.List)
	read.GET("/appointments/:id", h.Get)

	manage := api.Group("", auth.RequirePermission(auth.PermManageAppointments))
	manage.POST("/appointments", h.Schedule)
	manage.PUT("/appointments/:id", h.Reschedule)
	manage.POST("/appointments/:id/check-in", h.transition(StatusCheckedIn))
	manage.POST("/appointments/:id/complete", h.transition(StatusCompleted))
	manage.POST("/appointments/:id/cancel", h.transition(StatusCancelled))
	manage.POST("/appointments/:id/no-show", h.transition(StatusNoShow))
}

func (h *Handler) Schedule(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	if err := h.svc.Schedule(c.Request().Context(), &a); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid appointment id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid appointment id")
	}
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	a.ID = id

	updated, err := h.svc.Reschedule(c.Request().Context(), &a)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) transition(to Status) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			return apperr.New(apperr.KindValidation, "invalid appointment id")
		}
		a, err := h.svc.Transition(c.Request().Context(), id, to)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, a)
	}
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{
		Status: Status(c.QueryParam("status")),
		Limit:  pg.Limit,
		Offset: pg.Offset,
	}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.New(apperr.KindValidation, "invalid patient_id")
		}
		f.PatientID = id
	}
	if v := c.QueryParam("provider_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.New(apperr.KindValidation, "invalid provider_id")
		}
		f.ProviderID = id
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperr.New(apperr.KindValidation, "from must be RFC 3339")
		}
		f.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperr.New(apperr.KindValidation, "to must be RFC 3339")
		}
		f.To = t
	}

	items, total, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
