package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/bbellwfu/moip-manager/internal/inventory"
	"github.com/bbellwfu/moip-manager/internal/moip"
	"github.com/bbellwfu/moip-manager/internal/moip/rest"
)

// bulkVideoWorkers bounds the per-device queries a bulk video read issues
// concurrently. The controller serialises poorly beyond this.
const bulkVideoWorkers = 10

// indexParam extracts and validates the {index} route parameter.
func indexParam(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 1 {
		return 0, fmt.Errorf("device index must be a positive integer")
	}
	return index, nil
}

// writeVideoError maps a controller video query failure to a response.
func (s *Server) writeVideoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rest.ErrResourceNotFound):
		writeNotFound(w, "no such device on the controller")
	case errors.Is(err, rest.ErrUnauthorized):
		writeUnreachable(w, "controller rejected the API credentials")
	default:
		writeUnreachable(w, "controller video query failed")
	}
}

// handleTransmitterVideo returns the live input signal stats for one
// transmitter, resolved by its protocol-visible index.
func (s *Server) handleTransmitterVideo(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	video, err := s.controller().API.TransmitterVideo(r.Context(), index)
	if err != nil {
		s.writeVideoError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"index": index, "video": video})
}

// handleReceiverVideo returns one receiver's output configuration and live
// state. A successful read refreshes the inventory's video-settings cache
// so offline views stay close to reality.
func (s *Server) handleReceiverVideo(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	ctx := r.Context()
	video, err := s.controller().API.ReceiverVideo(ctx, index)
	if err != nil {
		s.writeVideoError(w, err)
		return
	}

	s.cacheReceiverSettings(r, index, video)

	writeJSON(w, http.StatusOK, map[string]any{"index": index, "video": video})
}

// cacheReceiverSettings writes a receiver's reported output settings back
// to the inventory. Best-effort: the device may not be synced yet.
func (s *Server) cacheReceiverSettings(r *http.Request, index int, video *rest.VideoRx) {
	ctx := r.Context()
	record, err := s.inv.GetBySlot(ctx, moip.KindReceiver, index)
	if err != nil {
		return
	}
	if err := s.inv.SetVideoSettings(ctx, record.GroupID, video.Settings.Resolution, video.Settings.HDCP); err != nil {
		s.logger.Debug("receiver video cache update failed", "rx", index, "error", err)
	}
}

// bulkEntry is one device's outcome in a bulk video response. Failed
// fetches carry an error string instead of stats so one unreachable
// device cannot sink the whole read.
type bulkEntry struct {
	Index int    `json:"index"`
	Video any    `json:"video,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleBulkTransmitterVideo fans transmitter video queries out across the
// bounded worker pool and returns per-device outcomes.
func (s *Server) handleBulkTransmitterVideo(w http.ResponseWriter, r *http.Request) {
	s.handleBulkVideo(w, r, moip.KindTransmitter)
}

// handleBulkReceiverVideo does the same for receivers, refreshing the
// inventory cache for every successful read.
func (s *Server) handleBulkReceiverVideo(w http.ResponseWriter, r *http.Request) {
	s.handleBulkVideo(w, r, moip.KindReceiver)
}

func (s *Server) handleBulkVideo(w http.ResponseWriter, r *http.Request, kind moip.Kind) {
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

	entries := make([]bulkEntry, 0, count)
	var mu sync.Mutex

	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := bulkVideoWorkers
	if count < workers {
		workers = count
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				entry := bulkEntry{Index: index}
				if kind == moip.KindTransmitter {
					video, err := ctrl.API.TransmitterVideo(ctx, index)
					if err != nil {
						entry.Error = err.Error()
					} else {
						entry.Video = video
					}
				} else {
					video, err := ctrl.API.ReceiverVideo(ctx, index)
					if err != nil {
						entry.Error = err.Error()
					} else {
						entry.Video = video
						s.cacheReceiverSettings(r, index, video)
					}
				}
				mu.Lock()
				entries = append(entries, entry)
				mu.Unlock()
			}
		}()
	}

	for index := 1; index <= count; index++ {
		jobs <- index
	}
	close(jobs)
	wg.Wait()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": entries,
		"count":   count,
	})
}

// handleTransmitterPreview streams the JPEG preview thumbnail of a
// transmitter's current input.
func (s *Server) handleTransmitterPreview(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	image, err := s.controller().API.PreviewImage(r.Context(), index)
	if err != nil {
		s.writeVideoError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(image)))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(image)
}

// videoSettingRequest is the request body for the receiver video setting
// endpoints.
type videoSettingRequest struct {
	Value string `json:"value"`
}

// handleSetReceiverResolution sets a receiver's output resolution.
func (s *Server) handleSetReceiverResolution(w http.ResponseWriter, r *http.Request) {
	s.handleSetReceiverVideoSetting(w, r, "resolution")
}

// handleSetReceiverHDCP sets a receiver's HDCP mode.
func (s *Server) handleSetReceiverHDCP(w http.ResponseWriter, r *http.Request) {
	s.handleSetReceiverVideoSetting(w, r, "hdcp")
}

func (s *Server) handleSetReceiverVideoSetting(w http.ResponseWriter, r *http.Request, field string) {
	index, err := indexParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req videoSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	req.Value = strings.TrimSpace(req.Value)
	if req.Value == "" {
		writeBadRequest(w, field+" value must not be empty")
		return
	}

	ctx := r.Context()
	ctrl := s.controller()
	if field == "resolution" {
		err = ctrl.API.SetReceiverResolution(ctx, index, req.Value)
	} else {
		err = ctrl.API.SetReceiverHDCP(ctx, index, req.Value)
	}
	if err != nil {
		s.writeVideoError(w, err)
		return
	}

	// Mirror the accepted value into the inventory cache.
	if record, err := s.inv.GetBySlot(ctx, moip.KindReceiver, index); err == nil {
		resolution, hdcp := "", ""
		if field == "resolution" {
			resolution = req.Value
		} else {
			hdcp = req.Value
		}
		if err := s.inv.SetVideoSettings(ctx, record.GroupID, resolution, hdcp); err != nil {
			s.logger.Debug("receiver video cache update failed", "rx", index, "error", err)
		}
	} else if !errors.Is(err, inventory.ErrNotFound) {
		s.logger.Debug("inventory lookup failed for video cache", "rx", index, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"index": index,
		field:   req.Value,
	})
}

// handleSendCEC sends a named CEC remote-control command to the display
// attached to a receiver.
func (s *Server) handleSendCEC(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	command := chi.URLParam(r, "command")
	if _, err := moip.CECCodes(command); err != nil {
		writeBadRequest(w, fmt.Sprintf("unknown CEC command %q; supported: %s",
			command, strings.Join(moip.CECCommandNames(), ", ")))
		return
	}

	ok, err := s.controller().Line.SendCECCommand(r.Context(), index, command)
	if err != nil {
		writeUnreachable(w, "controller did not answer the CEC command")
		return
	}
	if !ok {
		writeError(w, http.StatusBadGateway, ErrCodeRejected, "controller rejected the CEC command")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rx":      index,
		"command": command,
		"success": true,
	})
}
