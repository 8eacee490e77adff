package inventory

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bbellwfu/moip-manager/internal/moip"
)

// setupTestDB creates an in-memory SQLite database with the devices table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Matches the embedded migrations, video cache columns included
	schema := `
		CREATE TABLE devices (
			group_id INTEGER PRIMARY KEY,
			device_type TEXT NOT NULL,
			device_index INTEGER NOT NULL,
			subtype TEXT NOT NULL DEFAULT 'av',
			name TEXT,
			icon_type TEXT,
			mac_address TEXT,
			ip_address TEXT,
			model TEXT,
			firmware TEXT,
			unit_id INTEGER,
			resolution TEXT,
			hdcp TEXT,
			last_seen TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX idx_devices_slot ON devices(device_type, device_index);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// testDevice creates a transmitter record for testing.
func testDevice(groupID, index int) *Device {
	return &Device{
		GroupID:     groupID,
		DeviceType:  moip.KindTransmitter,
		DeviceIndex: index,
		Subtype:     moip.SubtypeAV,
	}
}

func TestUpsertInsertAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	dev := testDevice(5, 3)
	dev.Name = StringPtr("Living Room")
	dev.MAC = StringPtr("aa:bb:cc:dd:ee:ff")
	dev.UnitID = IntPtr(12)

	if err := repo.Upsert(ctx, dev); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.GetByGroupID(ctx, 5)
	if err != nil {
		t.Fatalf("GetByGroupID() error = %v", err)
	}
	if got.DisplayName() != "Living Room" {
		t.Errorf("name = %q, want %q", got.DisplayName(), "Living Room")
	}
	if got.MAC == nil || *got.MAC != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("mac = %v, want aa:bb:cc:dd:ee:ff", got.MAC)
	}
	if got.UnitID == nil || *got.UnitID != 12 {
		t.Errorf("unit_id = %v, want 12", got.UnitID)
	}
	if got.LastSeen.IsZero() || got.CreatedAt.IsZero() {
		t.Error("timestamps not set on insert")
	}
}

func TestUpsertPreservesOnNull(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	first := testDevice(5, 3)
	first.Name = StringPtr("Living Room")
	first.Model = StringPtr("B-900-MOIP-4K-TX")
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}

	// Second pass reports no name or model — stored values must survive
	second := testDevice(5, 3)
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	got, err := repo.GetByGroupID(ctx, 5)
	if err != nil {
		t.Fatalf("GetByGroupID() error = %v", err)
	}
	if got.DisplayName() != "Living Room" {
		t.Errorf("name = %q after null upsert, want %q", got.DisplayName(), "Living Room")
	}
	if got.Model == nil || *got.Model != "B-900-MOIP-4K-TX" {
		t.Errorf("model = %v after null upsert, want B-900-MOIP-4K-TX", got.Model)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestUpsertOverwritesSlotAttributes(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	first := testDevice(5, 3)
	first.Subtype = moip.SubtypeAV
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}

	// Hardware reassigned: same group, new slot and subtype
	second := testDevice(5, 7)
	second.Subtype = moip.SubtypeAudio
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	got, err := repo.GetByGroupID(ctx, 5)
	if err != nil {
		t.Fatalf("GetByGroupID() error = %v", err)
	}
	if got.DeviceIndex != 7 {
		t.Errorf("device_index = %d, want 7", got.DeviceIndex)
	}
	if got.Subtype != moip.SubtypeAudio {
		t.Errorf("subtype = %q, want audio", got.Subtype)
	}
}

func TestGetBySlot(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	dev := testDevice(5, 3)
	dev.Name = StringPtr("Apple TV")
	if err := repo.Upsert(ctx, dev); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.GetBySlot(ctx, moip.KindTransmitter, 3)
	if err != nil {
		t.Fatalf("GetBySlot() error = %v", err)
	}
	if got.GroupID != 5 {
		t.Errorf("group_id = %d, want 5", got.GroupID)
	}

	// Same index on the other side is a different slot
	if _, err := repo.GetBySlot(ctx, moip.KindReceiver, 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBySlot(rx, 3) error = %v, want ErrNotFound", err)
	}
}

func TestSlotReassignment(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	// Group 5 occupies tx slot 3, then hardware is swapped and group 9
	// takes the slot while group 5 moves to slot 8.
	if err := repo.Upsert(ctx, testDevice(5, 3)); err != nil {
		t.Fatalf("Upsert(5) error = %v", err)
	}
	if err := repo.Upsert(ctx, testDevice(5, 8)); err != nil {
		t.Fatalf("Upsert(5 moved) error = %v", err)
	}
	if err := repo.Upsert(ctx, testDevice(9, 3)); err != nil {
		t.Fatalf("Upsert(9) error = %v", err)
	}

	got, err := repo.GetBySlot(ctx, moip.KindTransmitter, 3)
	if err != nil {
		t.Fatalf("GetBySlot() error = %v", err)
	}
	if got.GroupID != 9 {
		t.Errorf("slot 3 holds group %d, want 9", got.GroupID)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2 (identity is group, not slot)", count)
	}
}

func TestListOrder(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	rx := testDevice(20, 1)
	rx.DeviceType = moip.KindReceiver
	for _, dev := range []*Device{testDevice(11, 2), rx, testDevice(10, 1)} {
		if err := repo.Upsert(ctx, dev); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	devices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("List() returned %d devices, want 3", len(devices))
	}

	// rx sorts before tx, then by index
	wantOrder := []int{20, 10, 11}
	for i, want := range wantOrder {
		if devices[i].GroupID != want {
			t.Errorf("devices[%d].GroupID = %d, want %d", i, devices[i].GroupID, want)
		}
	}
}

func TestSetDisplayNameAndIcon(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, testDevice(5, 3)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := repo.SetDisplayName(ctx, 5, "Sky Box"); err != nil {
		t.Fatalf("SetDisplayName() error = %v", err)
	}
	if err := repo.SetIcon(ctx, 5, "satellite"); err != nil {
		t.Fatalf("SetIcon() error = %v", err)
	}

	got, err := repo.GetByGroupID(ctx, 5)
	if err != nil {
		t.Fatalf("GetByGroupID() error = %v", err)
	}
	if got.DisplayName() != "Sky Box" {
		t.Errorf("name = %q, want Sky Box", got.DisplayName())
	}
	if got.IconType == nil || *got.IconType != "satellite" {
		t.Errorf("icon = %v, want satellite", got.IconType)
	}

	if err := repo.SetDisplayName(ctx, 99, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetDisplayName(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestSetVideoSettings(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	dev := testDevice(5, 3)
	dev.DeviceType = moip.KindReceiver
	if err := repo.Upsert(ctx, dev); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := repo.SetVideoSettings(ctx, 5, "3840x2160", "hdcp22"); err != nil {
		t.Fatalf("SetVideoSettings() error = %v", err)
	}

	// Empty resolution keeps the cached one
	if err := repo.SetVideoSettings(ctx, 5, "", "hdcp14"); err != nil {
		t.Fatalf("SetVideoSettings() partial error = %v", err)
	}

	got, err := repo.GetByGroupID(ctx, 5)
	if err != nil {
		t.Fatalf("GetByGroupID() error = %v", err)
	}
	if got.Resolution == nil || *got.Resolution != "3840x2160" {
		t.Errorf("resolution = %v, want 3840x2160", got.Resolution)
	}
	if got.HDCP == nil || *got.HDCP != "hdcp14" {
		t.Errorf("hdcp = %v, want hdcp14", got.HDCP)
	}
}

func TestDelete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, testDevice(5, 3)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := repo.Delete(ctx, 5); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByGroupID(ctx, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByGroupID() after delete error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrNotFound", err)
	}
}
