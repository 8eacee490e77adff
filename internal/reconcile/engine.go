package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/bbellwfu/moip-manager/internal/inventory"
	"github.com/bbellwfu/moip-manager/internal/moip"
	"github.com/bbellwfu/moip-manager/internal/moip/rest"
)

// LineClient is the slice of the line protocol client reconciliation uses.
type LineClient interface {
	DeviceCounts(ctx context.Context) (moip.DeviceCounts, error)
}

// APIClient is the slice of the structured API client reconciliation uses.
type APIClient interface {
	AllUnitsDetailed(ctx context.Context) ([]rest.Unit, int, error)
	AllGroupsDetailed(ctx context.Context, kind moip.Kind) ([]rest.Group, int, error)
}

// Logger is the logging interface the engine needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Result summarises one reconciliation pass. Skip counts make the
// best-effort parts of the pass observable rather than silent.
type Result struct {
	TxSynced int `json:"tx_synced"`
	RxSynced int `json:"rx_synced"`

	// SkippedGroups counts group records that could not be reconciled
	// because they carried no index or no ID.
	SkippedGroups int `json:"skipped_groups"`

	// GroupsSkippedByFetch counts groups whose individual detail fetch
	// failed during the list-then-fetch sweep.
	GroupsSkippedByFetch int `json:"groups_skipped_by_fetch"`

	// UnitsFetched and UnitsSkippedByFetch describe the unit sweep.
	UnitsFetched        int `json:"units_fetched"`
	UnitsSkippedByFetch int `json:"units_skipped_by_fetch"`

	// Live counts from the line protocol, informational only.
	TxCount int `json:"tx_count"`
	RxCount int `json:"rx_count"`
}

// Engine runs reconciliation passes.
type Engine struct {
	line   LineClient
	api    APIClient
	repo   inventory.Repository
	logger Logger
}

// New creates a reconciliation engine.
func New(line LineClient, api APIClient, repo inventory.Repository, logger Logger) *Engine {
	return &Engine{line: line, api: api, repo: repo, logger: logger}
}

// Run executes one full reconciliation pass over both device kinds.
//
// A list or store failure aborts the pass and surfaces as an error;
// records upserted before the failure stay in place. An unreachable line
// protocol only costs the informational counts.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	var result Result

	counts, err := e.line.DeviceCounts(ctx)
	if err != nil {
		e.logger.Warn("device counts unavailable", "error", err)
	} else {
		result.TxCount = counts.Transmitters
		result.RxCount = counts.Receivers
	}

	units, unitsSkipped, err := e.api.AllUnitsDetailed(ctx)
	if err != nil {
		return result, fmt.Errorf("fetching units: %w", err)
	}
	result.UnitsFetched = len(units)
	result.UnitsSkippedByFetch = unitsSkipped

	unitsByID := make(map[int]rest.Unit, len(units))
	for _, unit := range units {
		unitsByID[unit.ID] = unit
	}

	txSynced, err := e.syncKind(ctx, moip.KindTransmitter, unitsByID, &result)
	if err != nil {
		return result, err
	}
	result.TxSynced = txSynced

	rxSynced, err := e.syncKind(ctx, moip.KindReceiver, unitsByID, &result)
	if err != nil {
		return result, err
	}
	result.RxSynced = rxSynced

	e.logger.Info("reconciliation complete",
		"tx_synced", result.TxSynced,
		"rx_synced", result.RxSynced,
		"skipped_groups", result.SkippedGroups,
		"units", result.UnitsFetched)

	return result, nil
}

// syncKind reconciles one side of the matrix, returning the number of
// records upserted.
func (e *Engine) syncKind(ctx context.Context, kind moip.Kind, unitsByID map[int]rest.Unit, result *Result) (int, error) {
	groups, skipped, err := e.api.AllGroupsDetailed(ctx, kind)
	if err != nil {
		return 0, fmt.Errorf("fetching %s groups: %w", kind, err)
	}
	result.GroupsSkippedByFetch += skipped

	synced := 0
	for _, group := range groups {
		// A group without an index or ID cannot be tied to a slot
		if group.ID == nil || group.Settings.Index == nil {
			result.SkippedGroups++
			e.logger.Debug("skipping unreconcilable group",
				"kind", string(kind),
				"has_id", group.ID != nil,
				"has_index", group.Settings.Index != nil)
			continue
		}

		device := deviceFromGroup(kind, group, unitsByID)
		if err := e.repo.Upsert(ctx, device); err != nil {
			return synced, fmt.Errorf("upserting %s group %d: %w", kind, *group.ID, err)
		}
		synced++
	}
	return synced, nil
}

// deviceFromGroup builds the inventory record for one group, enriched
// with hardware identity from its associated unit when that unit was
// fetched this pass.
func deviceFromGroup(kind moip.Kind, group rest.Group, unitsByID map[int]rest.Unit) *inventory.Device {
	device := &inventory.Device{
		GroupID:     *group.ID,
		DeviceType:  kind,
		DeviceIndex: *group.Settings.Index,
		Name:        inventory.StringPtr(group.Settings.Name),
		UnitID:      group.Associations.Unit,
	}

	model := ""
	if group.Associations.Unit != nil {
		if unit, ok := unitsByID[*group.Associations.Unit]; ok {
			device.MAC = inventory.StringPtr(unit.Status.MAC)
			device.IP = inventory.StringPtr(unit.Status.IP)
			device.Model = inventory.StringPtr(unit.Status.Model)
			device.Firmware = inventory.StringPtr(unit.Status.Firmware)
			model = unit.Status.Model
		}
	}

	device.Subtype = ClassifySubtype(group.Settings.Type, model)
	return device
}

// ClassifySubtype derives an endpoint's subtype from the explicit type
// field the structured API sometimes reports, falling back to model-number
// markers. First match wins:
//
//  1. type contains both "video" and "wall" → videowall
//  2. type is exactly "audio"               → audio
//  3. type is exactly "av"                  → av
//  4. model contains "-a-rx" or "-a-tx"     → audio (audio-only hardware)
//  5. model contains "wall"                 → videowall
//  6. default                               → av
func ClassifySubtype(groupType, model string) moip.Subtype {
	t := strings.ToLower(strings.TrimSpace(groupType))
	switch {
	case strings.Contains(t, "video") && strings.Contains(t, "wall"):
		return moip.SubtypeVideoWall
	case t == "audio":
		return moip.SubtypeAudio
	case t == "av":
		return moip.SubtypeAV
	}

	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "-a-rx"), strings.Contains(m, "-a-tx"):
		return moip.SubtypeAudio
	case strings.Contains(m, "wall"):
		return moip.SubtypeVideoWall
	}
	return moip.SubtypeAV
}
