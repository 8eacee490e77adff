package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleGetRouting returns the live routing table: every receiver and the
// transmitter it is consuming, tx 0 meaning unassigned.
func (s *Server) handleGetRouting(w http.ResponseWriter, r *http.Request) {
	routing, err := s.controller().Line.Routing(r.Context())
	if err != nil {
		writeUnreachable(w, "controller did not answer the routing query")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"routing": routing,
		"count":   len(routing),
	})
}

// switchRequest is the request body for POST /routing/switch.
type switchRequest struct {
	Tx int `json:"tx"`
	Rx int `json:"rx"`
}

// handleSwitch routes a transmitter to a receiver. Tx 0 unassigns the
// receiver, matching the line protocol's convention.
func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Rx < 1 {
		writeBadRequest(w, "rx must be a positive integer")
		return
	}
	if req.Tx < 0 {
		writeBadRequest(w, "tx must be zero or a positive integer")
		return
	}

	s.performSwitch(w, r, req.Tx, req.Rx)
}

// handleUnassign clears a receiver's source assignment.
func (s *Server) handleUnassign(w http.ResponseWriter, r *http.Request) {
	rx, err := strconv.Atoi(chi.URLParam(r, "rx"))
	if err != nil || rx < 1 {
		writeBadRequest(w, "rx must be a positive integer")
		return
	}

	s.performSwitch(w, r, 0, rx)
}

// performSwitch issues the switch command and, on success, publishes the
// routing event and records the change for history queries.
func (s *Server) performSwitch(w http.ResponseWriter, r *http.Request, tx, rx int) {
	ok, err := s.controller().Line.Switch(r.Context(), tx, rx)
	if err != nil {
		writeUnreachable(w, "controller did not answer the switch command")
		return
	}
	if !ok {
		writeError(w, http.StatusBadGateway, ErrCodeRejected, "controller rejected the switch command")
		return
	}

	if s.events != nil {
		s.events.RoutingChanged(tx, rx, "api")
	}
	if s.influx != nil {
		s.influx.WriteRoutingEvent(tx, rx, "api")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tx":      tx,
		"rx":      rx,
		"success": true,
	})
}
