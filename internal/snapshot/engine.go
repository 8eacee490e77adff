package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/bbellwfu/moip-manager/internal/inventory"
	"github.com/bbellwfu/moip-manager/internal/moip"
)

// LineClient is the slice of the line protocol client the engine uses.
type LineClient interface {
	Routing(ctx context.Context) ([]moip.RoutingAssignment, error)
	Switch(ctx context.Context, tx, rx int) (bool, error)
	Addr() string
}

// APIClient is the slice of the structured API client the engine uses.
type APIClient interface {
	SetGroupName(ctx context.Context, kind moip.Kind, id int, name string) error
}

// Logger is the logging interface the engine needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Engine captures and restores configuration snapshots.
type Engine struct {
	line   LineClient
	api    APIClient
	repo   Repository
	store  inventory.Repository
	logger Logger
}

// New creates a snapshot engine.
func New(line LineClient, api APIClient, repo Repository, store inventory.Repository, logger Logger) *Engine {
	return &Engine{line: line, api: api, repo: repo, store: store, logger: logger}
}

// Capture freezes the live routing table and the current inventory into a
// new immutable snapshot. The inventory is only as fresh as the last
// reconciliation pass; callers wanting an exact capture reconcile first.
func (e *Engine) Capture(ctx context.Context, name, description string) (*Snapshot, error) {
	routing, err := e.line.Routing(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading routing table: %w", err)
	}

	devices, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}

	data := Data{
		Timestamp:         time.Now().UTC(),
		ControllerAddress: e.line.Addr(),
		Routing:           routing,
		Devices:           devices,
	}

	snap, err := e.repo.Create(ctx, name, description, data)
	if err != nil {
		return nil, err
	}

	e.logger.Info("snapshot captured",
		"id", snap.ID,
		"routes", len(routing),
		"devices", len(devices))
	return snap, nil
}

// Restore replays a snapshot's routing and/or names against the
// controller. Individual failures are recorded and the loops run to
// completion; only a missing snapshot is an error. Both switch and
// name-set are absolute writes, so restoring twice is idempotent.
func (e *Engine) Restore(ctx context.Context, id string, restoreRouting, restoreNames bool) (RestoreResult, error) {
	_, data, err := e.repo.Get(ctx, id)
	if err != nil {
		return RestoreResult{}, err
	}

	var result RestoreResult

	if restoreRouting {
		for _, route := range data.Routing {
			ok, err := e.line.Switch(ctx, route.Tx, route.Rx)
			switch {
			case err != nil:
				result.Errors = append(result.Errors,
					fmt.Sprintf("Failed to restore route Tx%d->Rx%d: %v", route.Tx, route.Rx, err))
			case !ok:
				result.Errors = append(result.Errors,
					fmt.Sprintf("Failed to restore route Tx%d->Rx%d: controller did not acknowledge", route.Tx, route.Rx))
			default:
				result.RoutingRestored++
			}
		}
	}

	if restoreNames {
		for _, device := range data.Devices {
			// Only devices captured with both a name and an identity
			// can have their name replayed
			if device.Name == nil || *device.Name == "" || device.GroupID == 0 {
				continue
			}

			if err := e.api.SetGroupName(ctx, device.DeviceType, device.GroupID, *device.Name); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to restore name for %s%d: %v",
					sideLabel(device.DeviceType), device.DeviceIndex, err))
				continue
			}
			result.NamesRestored++
		}
	}

	e.logger.Info("snapshot restored",
		"id", id,
		"routing_restored", result.RoutingRestored,
		"names_restored", result.NamesRestored,
		"errors", len(result.Errors))
	return result, nil
}

// sideLabel renders a device kind for restore error messages.
func sideLabel(kind moip.Kind) string {
	if kind == moip.KindTransmitter {
		return "TX"
	}
	return "RX"
}
