package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bbellwfu/moip-manager/internal/moip/rest"
	"github.com/bbellwfu/moip-manager/internal/settings"
)

// healthCheckTimeout bounds the per-component probes in the health handler.
const healthCheckTimeout = 5 * time.Second

// handleHealth returns manager liveness plus per-component health. The
// controller itself is deliberately not probed here: health must stay cheap
// and must not depend on external hardware.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	components := map[string]string{}

	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			components["database"] = "unhealthy"
		} else {
			components["database"] = "ok"
		}
	}

	if s.mqtt != nil {
		if err := s.mqtt.HealthCheck(ctx); err != nil {
			components["mqtt"] = "unhealthy"
		} else {
			components["mqtt"] = "ok"
		}
	}

	if s.influx != nil {
		if err := s.influx.HealthCheck(ctx); err != nil {
			components["influxdb"] = "unhealthy"
		} else {
			components["influxdb"] = "ok"
		}
	}

	status := "ok"
	for _, state := range components {
		if state != "ok" {
			status = "degraded"
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"components":     components,
	})
}

// controllerInfo is the response body for GET /system/controller.
type controllerInfo struct {
	Address  string          `json:"address"`
	Info     json.RawMessage `json:"info,omitempty"`
	Status   json.RawMessage `json:"status,omitempty"`
	Firmware json.RawMessage `json:"firmware,omitempty"`
}

// handleControllerInfo returns the controller's base info, system status,
// and firmware details from its structured API.
func (s *Server) handleControllerInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl := s.controller()

	info, err := ctrl.API.BaseInfo(ctx)
	if err != nil {
		writeUnreachable(w, "controller query failed: "+err.Error())
		return
	}

	resp := controllerInfo{Address: ctrl.Line.Addr(), Info: info}

	// Secondary reads are best-effort; base info alone is a useful answer.
	if status, err := ctrl.API.SystemStatus(ctx); err == nil {
		resp.Status = status
	}
	if firmware, err := ctrl.API.FirmwareInfo(ctx); err == nil {
		resp.Firmware = firmware
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleGetSettings returns the effective controller connection settings.
// The password is never echoed; password_set reports whether one exists.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	resolved, err := s.settings.Resolve(r.Context())
	if err != nil {
		writeInternalError(w, "failed to resolve settings")
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// handleUpdateSettings persists controller settings changes and rebuilds the
// protocol clients against the new values. Empty fields keep their current
// values; an empty password in particular preserves the stored one.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update settings.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()
	if err := s.settings.Apply(ctx, update); err != nil {
		writeInternalError(w, "failed to persist settings")
		return
	}

	resolved, err := s.settings.Resolve(ctx)
	if err != nil {
		writeInternalError(w, "failed to resolve settings")
		return
	}

	if s.build != nil {
		s.setController(s.build(resolved))
		s.logger.Info("controller clients rebuilt",
			"host", resolved.Host,
			"telnet_port", resolved.TelnetPort,
			"api_port", resolved.APIPort,
		)
	}

	writeJSON(w, http.StatusOK, resolved)
}

// surfaceResult reports the outcome of testing one protocol surface.
type surfaceResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// testSettingsResponse is the response body for POST /system/settings/test.
type testSettingsResponse struct {
	Telnet surfaceResult `json:"telnet"`
	API    surfaceResult `json:"api"`
}

// handleTestSettings probes both controller protocol surfaces with candidate
// settings without persisting anything. Empty fields in the body fall back
// to the currently effective values, so an empty body tests the live config.
func (s *Server) handleTestSettings(w http.ResponseWriter, r *http.Request) {
	var update settings.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()
	resolved, err := s.settings.Resolve(ctx)
	if err != nil {
		writeInternalError(w, "failed to resolve settings")
		return
	}
	candidate := mergeSettings(resolved, update)

	ctrl := s.controller()
	if s.build != nil {
		ctrl = s.build(candidate)
	}

	var resp testSettingsResponse

	if err := ctrl.Line.Ping(ctx); err != nil {
		resp.Telnet.Error = "controller unreachable on the line protocol"
	} else {
		resp.Telnet.OK = true
	}

	switch err := ctrl.API.Ping(ctx); {
	case err == nil:
		resp.API.OK = true
	case errors.Is(err, rest.ErrUnauthorized):
		resp.API.Error = "controller rejected the API credentials"
	default:
		resp.API.Error = "controller unreachable on the structured API"
	}

	writeJSON(w, http.StatusOK, resp)
}

// mergeSettings overlays the non-empty fields of an update onto resolved
// settings, mirroring the persistence-side no-change semantics.
func mergeSettings(base settings.ControllerSettings, update settings.Update) settings.ControllerSettings {
	if update.Host != "" {
		base.Host = update.Host
	}
	if update.TelnetPort != 0 {
		base.TelnetPort = update.TelnetPort
	}
	if update.APIPort != 0 {
		base.APIPort = update.APIPort
	}
	if update.Username != "" {
		base.Username = update.Username
	}
	if update.Password != "" {
		base.Password = update.Password
		base.PasswordSet = true
	}
	if update.VerifySSL != nil {
		base.VerifySSL = *update.VerifySSL
	}
	return base
}
