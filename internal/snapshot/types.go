package snapshot

import (
	"errors"
	"time"

	"github.com/bbellwfu/moip-manager/internal/inventory"
	"github.com/bbellwfu/moip-manager/internal/moip"
)

// ErrNotFound is returned when no snapshot matches the given ID.
var ErrNotFound = errors.New("snapshot: not found")

// Snapshot is the metadata row for one captured configuration. The
// captured payload itself lives in Data and is immutable once written.
type Snapshot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Data is the captured configuration payload, serialized as an opaque
// JSON blob alongside the metadata.
type Data struct {
	Timestamp         time.Time                `json:"timestamp"`
	ControllerAddress string                   `json:"controller_address"`
	Routing           []moip.RoutingAssignment `json:"routing"`
	Devices           []inventory.Device       `json:"devices"`
}

// RestoreResult reports the outcome of a best-effort restore. Errors
// holds one message per failed entry; a non-empty list does not make the
// restore itself a failure.
type RestoreResult struct {
	RoutingRestored int      `json:"routing_restored"`
	NamesRestored   int      `json:"names_restored"`
	Errors          []string `json:"errors"`
}
