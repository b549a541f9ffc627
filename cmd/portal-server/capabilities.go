package main

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebridge/carebridge/internal/platform/auth"
)

// capabilityHandler exposes grant administration over HTTP. Every call
// re-verifies the caller's admin capability against the store, so a token
// minted before a revocation does not keep working.
type capabilityHandler struct {
	store auth.CapabilityStore
}

type capabilityRequest struct {
	IdentityID string `json:"identity_id"`
	Capability string `json:"capability"`
}

func (h *capabilityHandler) authorize(c echo.Context) error {
	actorID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid subject")
	}
	ok, err := h.store.HasCapability(c.Request().Context(), actorID, auth.CapabilityAdmin)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "admin capability required")
	}
	return nil
}

func (h *capabilityHandler) parse(c echo.Context) (uuid.UUID, string, error) {
	var req capabilityRequest
	if err := c.Bind(&req); err != nil {
		return uuid.Nil, "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id, err := uuid.Parse(req.IdentityID)
	if err != nil {
		return uuid.Nil, "", echo.NewHTTPError(http.StatusBadRequest, "invalid identity_id")
	}
	if req.Capability != auth.CapabilityDoctor && req.Capability != auth.CapabilityAdmin {
		return uuid.Nil, "", echo.NewHTTPError(http.StatusBadRequest, "unknown capability")
	}
	return id, req.Capability, nil
}

func (h *capabilityHandler) Grant(c echo.Context) error {
	if err := h.authorize(c); err != nil {
		return err
	}
	id, capability, err := h.parse(c)
	if err != nil {
		return err
	}
	if err := h.store.Grant(c.Request().Context(), id, capability); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":      "granted",
		"identity_id": id.String(),
		"capability":  capability,
	})
}

func (h *capabilityHandler) Revoke(c echo.Context) error {
	if err := h.authorize(c); err != nil {
		return err
	}
	id, capability, err := h.parse(c)
	if err != nil {
		return err
	}
	if err := h.store.Revoke(c.Request().Context(), id, capability); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":      "revoked",
		"identity_id": id.String(),
		"capability":  capability,
	})
}

func (h *capabilityHandler) List(c echo.Context) error {
	if err := h.authorize(c); err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid identity id")
	}
	caps, err := h.store.ListCapabilities(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if caps == nil {
		caps = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"identity_id":  id.String(),
		"capabilities": caps,
	})
}
