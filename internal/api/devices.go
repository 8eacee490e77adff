package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bbellwfu/moip-manager/internal/inventory"
	"github.com/bbellwfu/moip-manager/internal/moip"
)

// deviceView is one slot in the combined live view: what the controller
// reports right now merged with the stored inventory record, when one
// exists for the slot.
type deviceView struct {
	Index  int    `json:"index"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Online bool   `json:"online"`

	// Inventory enrichment, present once the slot has been synced.
	GroupID  *int    `json:"group_id,omitempty"`
	Subtype  string  `json:"subtype,omitempty"`
	IconType *string `json:"icon_type,omitempty"`
	MAC      *string `json:"mac_address,omitempty"`
	IP       *string `json:"ip_address,omitempty"`
	Model    *string `json:"model,omitempty"`
	Firmware *string `json:"firmware,omitempty"`
}

// handleListDevices returns the combined live view of both matrix sides:
// counts and names from the line protocol, enriched per slot from the
// inventory.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl := s.controller()

	counts, err := ctrl.Line.DeviceCounts(ctx)
	if err != nil {
		writeUnreachable(w, "controller did not answer the device count query")
		return
	}

	transmitters, err := s.liveView(r, moip.KindTransmitter, counts.Transmitters)
	if err != nil {
		writeInternalError(w, "failed to build device view")
		return
	}
	receivers, err := s.liveView(r, moip.KindReceiver, counts.Receivers)
	if err != nil {
		writeInternalError(w, "failed to build device view")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"counts":       counts,
		"transmitters": transmitters,
		"receivers":    receivers,
	})
}

// handleListTransmitters returns the live transmitter view.
func (s *Server) handleListTransmitters(w http.ResponseWriter, r *http.Request) {
	s.handleListSide(w, r, moip.KindTransmitter)
}

// handleListReceivers returns the live receiver view.
func (s *Server) handleListReceivers(w http.ResponseWriter, r *http.Request) {
	s.handleListSide(w, r, moip.KindReceiver)
}

func (s *Server) handleListSide(w http.ResponseWriter, r *http.Request, kind moip.Kind) {
	ctx := r.Context()
	ctrl := s.controller()

	counts, err := ctrl.Line.DeviceCounts(ctx)
	if err != nil {
		writeUnreachable(w, "controller did not answer the device count query")
		return
	}

	count := counts.Transmitters
	if kind == moip.KindReceiver {
		count = counts.Receivers
	}

	devices, err := s.liveView(r, kind, count)
	if err != nil {
		writeInternalError(w, "failed to build device view")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   count,
	})
}

// liveView builds per-slot entries for one side of the matrix. Telnet name
// listings are partial by design (silence-terminated); a slot missing from
// the listing still appears, backed by the inventory name if one is stored.
func (s *Server) liveView(r *http.Request, kind moip.Kind, count int) ([]deviceView, error) {
	ctx := r.Context()

	// Best-effort: a name query timeout yields what arrived before it.
	names, err := s.controller().Line.Names(ctx, kind)
	if err != nil {
		s.logger.Warn("device name query failed", "kind", kind, "error", err)
		names = map[int]string{}
	}

	stored, err := s.inv.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	bySlot := make(map[int]*inventory.Device, len(stored))
	for i := range stored {
		if stored[i].DeviceType == kind {
			bySlot[stored[i].DeviceIndex] = &stored[i]
		}
	}

	views := make([]deviceView, 0, count)
	for index := 1; index <= count; index++ {
		view := deviceView{
			Index: index,
			Type:  string(kind),
		}

		if name, ok := names[index]; ok {
			view.Name = name
			view.Online = true
		}

		if record, ok := bySlot[index]; ok {
			groupID := record.GroupID
			view.GroupID = &groupID
			view.Subtype = string(record.Subtype)
			view.IconType = record.IconType
			view.MAC = record.MAC
			view.IP = record.IP
			view.Model = record.Model
			view.Firmware = record.Firmware
			if view.Name == "" {
				view.Name = record.DisplayName()
			}
		}

		views = append(views, view)
	}

	return views, nil
}

// slotParams extracts and validates the {type}/{index} route parameters.
func slotParams(r *http.Request) (moip.Kind, int, error) {
	kind, err := moip.ParseKind(chi.URLParam(r, "type"))
	if err != nil {
		return "", 0, err
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 1 {
		return "", 0, fmt.Errorf("device index must be a positive integer")
	}
	return kind, index, nil
}

// setNameRequest is the request body for PUT /devices/{type}/{index}/name.
type setNameRequest struct {
	Name string `json:"name"`
}

// handleSetDeviceName renames the device currently occupying a slot. The
// slot is resolved to its stable group identity through the inventory, the
// name is written to the controller, and the local record follows.
func (s *Server) handleSetDeviceName(w http.ResponseWriter, r *http.Request) {
	kind, index, err := slotParams(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req setNameRequest
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
	record, err := s.inv.GetBySlot(ctx, kind, index)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			writeNotFound(w, "device not in inventory; run a sync first")
			return
		}
		writeInternalError(w, "inventory lookup failed")
		return
	}

	if err := s.controller().API.SetGroupName(ctx, kind, record.GroupID, req.Name); err != nil {
		writeUnreachable(w, "controller rejected the name update: "+err.Error())
		return
	}

	if err := s.inv.SetDisplayName(ctx, record.GroupID, req.Name); err != nil {
		s.logger.Warn("inventory name update failed after controller write",
			"group_id", record.GroupID, "error", err)
	}

	if s.events != nil {
		s.events.DeviceNameChanged(string(kind), index, req.Name)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"type":  string(kind),
		"index": index,
		"name":  req.Name,
	})
}

// setIconRequest is the request body for PUT /devices/{type}/{index}/icon.
type setIconRequest struct {
	Icon string `json:"icon"`
}

// handleSetDeviceIcon stores an icon assignment for a synced device. Icons
// are manager-side metadata only; nothing is written to the controller.
func (s *Server) handleSetDeviceIcon(w http.ResponseWriter, r *http.Request) {
	kind, index, err := slotParams(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req setIconRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Icon) == "" {
		writeBadRequest(w, "icon must not be empty")
		return
	}

	ctx := r.Context()
	record, err := s.inv.GetBySlot(ctx, kind, index)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			writeNotFound(w, "device not in inventory; run a sync first")
			return
		}
		writeInternalError(w, "inventory lookup failed")
		return
	}

	if err := s.inv.SetIcon(ctx, record.GroupID, req.Icon); err != nil {
		writeInternalError(w, "failed to store icon")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"type":  string(kind),
		"index": index,
		"icon":  req.Icon,
	})
}

// handleListIcons returns the icon assignment map, keyed by the slot the
// device currently occupies ("tx_3": "apple").
func (s *Server) handleListIcons(w http.ResponseWriter, r *http.Request) {
	devices, err := s.inv.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list inventory")
		return
	}

	icons := make(map[string]string)
	for _, d := range devices {
		if d.IconType != nil {
			key := fmt.Sprintf("%s_%d", d.DeviceType, d.DeviceIndex)
			icons[key] = *d.IconType
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"icons": icons})
}

// handleGetInventory returns the stored device records.
func (s *Server) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	devices, err := s.inv.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list inventory")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleSync runs one reconciliation pass against the controller and
// returns its result.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.controller().Reconciler.Run(r.Context())
	if err != nil {
		writeUnreachable(w, "reconciliation failed: "+err.Error())
		return
	}

	if s.events != nil {
		s.events.SyncCompleted(result)
	}

	writeJSON(w, http.StatusOK, result)
}
