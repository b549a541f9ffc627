package prescription

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebridge/carebridge/internal/domain/identity"
	"github.com/carebridge/carebridge/internal/platform/auth"
	"github.com/carebridge/carebridge/internal/platform/metrics"
	"github.com/carebridge/carebridge/internal/platform/render"
	"github.com/carebridge/carebridge/pkg/pagination"
)

type Handler struct {
	svc      *Service
	profiles ProfileDirectory
	renderer *render.Client
	metrics  *metrics.Metrics
}

func NewHandler(svc *Service, profiles ProfileDirectory, renderer *render.Client, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, profiles: profiles, renderer: renderer, metrics: m}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Issue)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/document", h.Document)
}

func actingID(c echo.Context) (uuid.UUID, error) {
	raw := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid subject")
	}
	return id, nil
}

type issueRequest struct {
	PatientID string     `json:"patient_id"`
	Diagnosis string     `json:"diagnosis"`
	Medicines []Medicine `json:"medicines"`
	Advice    string     `json:"advice"`
}

func (h *Handler) Issue(c echo.Context) error {
	doctorID, err := actingID(c)
	if err != nil {
		return err
	}

	var req issueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}

	p, err := h.svc.Issue(c.Request().Context(), doctorID, IssueRequest{
		PatientID: patientID,
		Diagnosis: req.Diagnosis,
		Medicines: req.Medicines,
		Advice:    req.Advice,
	})
	if err != nil {
		h.countRejection(err)
		var fieldErr *FieldError
		switch {
		case errors.Is(err, ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, "only doctors can issue prescriptions")
		case errors.Is(err, ErrPatientNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		case errors.Is(err, ErrNoCareRelationship):
			return echo.NewHTTPError(http.StatusConflict, "no appointment on record with this patient")
		case errors.As(err, &fieldErr):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]string{
				"field": fieldErr.Field,
				"error": fieldErr.Reason,
			})
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	if h.metrics != nil {
		h.metrics.PrescriptionsIssued.Inc()
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) countRejection(err error) {
	if h.metrics == nil {
		return
	}
	var fieldErr *FieldError
	reason := "internal"
	switch {
	case errors.Is(err, ErrForbidden):
		reason = "forbidden"
	case errors.Is(err, ErrPatientNotFound):
		reason = "patient_not_found"
	case errors.Is(err, ErrNoCareRelationship):
		reason = "no_care_relationship"
	case errors.As(err, &fieldErr):
		reason = "validation"
	}
	h.metrics.IssuanceRejectedTotal.WithLabelValues(reason).Inc()
}

func (h *Handler) Get(c echo.Context) error {
	callerID, err := actingID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid prescription id")
	}

	p, err := h.svc.GetOwned(c.Request().Context(), callerID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrPrescriptionNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
		case errors.Is(err, ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, "not your prescription")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, p)
}

// List returns the caller's own prescriptions: issued ones for doctors,
// received ones for patients.
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

	var out []*Prescription
	var total int
	if caller.Role == identity.RoleDoctor {
		out, total, err = h.svc.ListForDoctor(c.Request().Context(), callerID, pg.Limit, pg.Offset)
	} else {
		out, total, err = h.svc.ListForPatient(c.Request().Context(), callerID, pg.Limit, pg.Offset)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if out == nil {
		out = []*Prescription{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, pg.Limit, pg.Offset))
}

// Document relays the printable document from the renderer service. Owner
// access only, same rule as Get.
func (h *Handler) Document(c echo.Context) error {
	callerID, err := actingID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid prescription id")
	}

	p, err := h.svc.GetOwned(c.Request().Context(), callerID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrPrescriptionNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
		case errors.Is(err, ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, "not your prescription")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	doc, err := h.renderer.Render(c.Request().Context(), "prescription", p)
	if err != nil {
		if errors.Is(err, render.ErrUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "document renderer unavailable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, doc.ContentType, doc.Body)
}
