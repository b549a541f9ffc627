package verification

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carebridge/carebridge/internal/platform/metrics"
)

type Handler struct {
	svc     *Service
	metrics *metrics.Metrics
}

func NewHandler(svc *Service, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, metrics: m}
}

// Verify handles GET /verify?id=. The endpoint is anonymous: no auth
// middleware sits in front of it, only rate limiting.
func (h *Handler) Verify(c echo.Context) error {
	view, err := h.svc.Verify(c.Request().Context(), c.QueryParam("id"))
	if err != nil {
		if errors.Is(err, ErrNotVerifiable) {
			h.count("not_found")
			return c.JSON(http.StatusNotFound, map[string]string{"status": "not_found"})
		}
		h.count("error")
		return echo.NewHTTPError(http.StatusInternalServerError, "verification unavailable")
	}

	h.count("found")
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) count(outcome string) {
	if h.metrics != nil {
		h.metrics.VerificationsTotal.WithLabelValues(outcome).Inc()
	}
}
