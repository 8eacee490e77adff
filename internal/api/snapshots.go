package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bbellwfu/moip-manager/internal/snapshot"
)

// handleListSnapshots returns snapshot metadata, newest first.
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.snapshotRepo.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list snapshots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// createSnapshotRequest is the request body for POST /snapshots.
type createSnapshotRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// handleCreateSnapshot reconciles the inventory against the controller and
// captures the resulting state. Reconciling first means the snapshot's
// device payload reflects the hardware as it is right now, not as of the
// last manual sync.
func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req createSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeBadRequest(w, "name must not be empty")
		return
	}

	ctx := r.Context()
	ctrl := s.controller()

	if _, err := ctrl.Reconciler.Run(ctx); err != nil {
		writeUnreachable(w, "pre-capture reconciliation failed: "+err.Error())
		return
	}

	snap, err := ctrl.Snapshots.Capture(ctx, req.Name, req.Description)
	if err != nil {
		writeUnreachable(w, "snapshot capture failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, snap)
}

// handleGetSnapshot returns one snapshot's metadata and captured payload.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, data, err := s.snapshotRepo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeNotFound(w, "no such snapshot")
			return
		}
		writeInternalError(w, "failed to load snapshot")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot": snap,
		"data":     data,
	})
}

// handleDeleteSnapshot removes a snapshot.
func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.snapshotRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeNotFound(w, "no such snapshot")
			return
		}
		writeInternalError(w, "failed to delete snapshot")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// restoreRequest is the request body for POST /snapshots/{id}/restore.
// Omitted fields default to true: a bare restore puts everything back.
type restoreRequest struct {
	Routing *bool `json:"routing"`
	Names   *bool `json:"names"`
}

// handleRestoreSnapshot replays a snapshot onto the controller. Restore is
// best-effort: per-entry failures are collected in the result, and the
// response is 200 even when some entries failed.
func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	restoreRouting := req.Routing == nil || *req.Routing
	restoreNames := req.Names == nil || *req.Names
	if !restoreRouting && !restoreNames {
		writeBadRequest(w, "nothing to restore: routing and names both disabled")
		return
	}

	result, err := s.controller().Snapshots.Restore(r.Context(), id, restoreRouting, restoreNames)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeNotFound(w, "no such snapshot")
			return
		}
		writeInternalError(w, "snapshot restore failed")
		return
	}

	if s.events != nil {
		s.events.SnapshotRestored(id, &result)
	}

	writeJSON(w, http.StatusOK, result)
}
