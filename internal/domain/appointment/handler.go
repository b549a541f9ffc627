package appointment

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebridge/carebridge/internal/domain/identity"
	"github.com/carebridge/carebridge/internal/platform/auth"
	"github.com/carebridge/carebridge/internal/platform/metrics"
	"github.com/carebridge/carebridge/pkg/pagination"
)

type Handler struct {
	svc      *Service
	profiles ProfileDirectory
	metrics  *metrics.Metrics
}

func NewHandler(svc *Service, profiles ProfileDirectory, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, profiles: profiles, metrics: m}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Book)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/status", h.UpdateStatus)
}

func actingID(c echo.Context) (uuid.UUID, error) {
	raw := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid subject")
	}
	return id, nil
}

type bookRequest struct {
	DoctorID    string  `json:"doctor_id"`
	ScheduledAt string  `json:"scheduled_at"`
	Reason      *string `json:"reason"`
}

// Book handles POST /appointments. The patient id is always the caller;
// patients cannot book on behalf of others.
func (h *Handler) Book(c echo.Context) error {
	patientID, err := actingID(c)
	if err != nil {
		return err
	}

	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "scheduled_at must be RFC3339")
	}

	a := &Appointment{
		PatientID:   patientID,
		DoctorID:    doctorID,
		ScheduledAt: scheduledAt,
		Reason:      req.Reason,
	}
	if err := h.svc.Book(c.Request().Context(), a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if h.metrics != nil {
		h.metrics.AppointmentsBooked.Inc()
	}
	return c.JSON(http.StatusCreated, a)
}

// List handles GET /appointments, returning the caller's own appointments.
// Doctors see their schedule, patients their bookings.
func (h *Handler) List(c echo.Context) error {
	callerID, err := actingID(c)
	if err != nil {
		return err
	}

	caller, err := h.profiles.GetProfile(c.Request().Context(), callerID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return echo.NewHTTPError(http.StatusForbidden, "no profile for caller")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	pg := pagination.FromContext(c)

	var appts []*Appointment
	var total int
	if caller.Role == identity.RoleDoctor {
		appts, total, err = h.svc.ListByDoctor(c.Request().Context(), callerID, pg.Limit, pg.Offset)
	} else {
		appts, total, err = h.svc.ListByPatient(c.Request().Context(), callerID, pg.Limit, pg.Offset)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if appts == nil {
		appts = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	callerID, err := actingID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if callerID != a.DoctorID && callerID != a.PatientID {
		return echo.NewHTTPError(http.StatusForbidden, "not a participant of this appointment")
	}
	return c.JSON(http.StatusOK, a)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	callerID, err := actingID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	a, err := h.svc.UpdateStatus(c.Request().Context(), id, callerID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		case errors.Is(err, ErrNotParticipant):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusOK, a)
}
