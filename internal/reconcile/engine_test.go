package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bbellwfu/moip-manager/internal/inventory"
	"github.com/bbellwfu/moip-manager/internal/moip"
	"github.com/bbellwfu/moip-manager/internal/moip/rest"
)

// nopLogger discards all log output.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}

// fakeLine serves canned device counts.
type fakeLine struct {
	counts moip.DeviceCounts
	err    error
}

func (f *fakeLine) DeviceCounts(context.Context) (moip.DeviceCounts, error) {
	return f.counts, f.err
}

// fakeAPI serves canned unit and group records.
type fakeAPI struct {
	units        []rest.Unit
	unitsSkipped int
	groups       map[moip.Kind][]rest.Group
	skipped      map[moip.Kind]int
	groupsErr    map[moip.Kind]error
}

func (f *fakeAPI) AllUnitsDetailed(context.Context) ([]rest.Unit, int, error) {
	return f.units, f.unitsSkipped, nil
}

func (f *fakeAPI) AllGroupsDetailed(_ context.Context, kind moip.Kind) ([]rest.Group, int, error) {
	if err := f.groupsErr[kind]; err != nil {
		return nil, 0, err
	}
	return f.groups[kind], f.skipped[kind], nil
}

// setupRepo creates an inventory repository over an in-memory database.
func setupRepo(t *testing.T) inventory.Repository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

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
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	return inventory.NewSQLiteRepository(db)
}

func group(id, index int, name, groupType string, unitID *int) rest.Group {
	return rest.Group{
		ID: &id,
		Settings: rest.GroupSettings{
			Index: &index,
			Name:  name,
			Type:  groupType,
		},
		Associations: rest.GroupAssociations{Unit: unitID},
	}
}

func unit(id int, mac, model, firmware string) rest.Unit {
	return rest.Unit{
		ID: id,
		Status: rest.UnitStatus{
			MAC:      mac,
			IP:       "192.168.1.50",
			Model:    model,
			Firmware: firmware,
		},
	}
}

func TestClassifySubtype(t *testing.T) {
	tests := []struct {
		name      string
		groupType string
		model     string
		want      moip.Subtype
	}{
		{"explicit video wall", "Video Wall", "", moip.SubtypeVideoWall},
		{"explicit audio", "audio", "", moip.SubtypeAudio},
		{"explicit av", "av", "", moip.SubtypeAV},
		{"audio model marker rx", "", "B-900-MOIP-A-RX", moip.SubtypeAudio},
		{"audio model marker tx", "", "B-900-MOIP-A-TX", moip.SubtypeAudio},
		{"wall model marker", "", "B-900-MOIP-WALL-RX", moip.SubtypeVideoWall},
		{"default av", "", "B-900-MOIP-4K-RX", moip.SubtypeAV},
		{"empty everything", "", "", moip.SubtypeAV},
		{"explicit type beats model", "audio", "B-900-MOIP-WALL-RX", moip.SubtypeAudio},
		{"case insensitive type", "VIDEO WALL", "", moip.SubtypeVideoWall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifySubtype(tt.groupType, tt.model); got != tt.want {
				t.Errorf("ClassifySubtype(%q, %q) = %q, want %q", tt.groupType, tt.model, got, tt.want)
			}
		})
	}
}

func TestRunSyncsBothKinds(t *testing.T) {
	repo := setupRepo(t)
	unitID1, unitID2 := 101, 102
	api := &fakeAPI{
		units: []rest.Unit{
			unit(101, "aa:bb:cc:00:00:01", "B-900-MOIP-4K-TX", "1.2.3"),
			unit(102, "aa:bb:cc:00:00:02", "B-900-MOIP-A-RX", "1.2.3"),
		},
		groups: map[moip.Kind][]rest.Group{
			moip.KindTransmitter: {
				group(1, 1, "Apple TV", "", &unitID1),
				group(2, 2, "Sky Box", "", nil),
			},
			moip.KindReceiver: {
				group(10, 1, "Kitchen Speakers", "", &unitID2),
			},
		},
	}

	engine := New(&fakeLine{counts: moip.DeviceCounts{Transmitters: 2, Receivers: 1}}, api, repo, nopLogger{})

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.TxSynced != 2 || result.RxSynced != 1 {
		t.Errorf("synced tx=%d rx=%d, want 2/1", result.TxSynced, result.RxSynced)
	}
	if result.TxCount != 2 || result.RxCount != 1 {
		t.Errorf("counts tx=%d rx=%d, want 2/1", result.TxCount, result.RxCount)
	}
	if result.UnitsFetched != 2 {
		t.Errorf("units fetched = %d, want 2", result.UnitsFetched)
	}

	ctx := context.Background()

	// Transmitter 1 is enriched from its unit
	tx1, err := repo.GetByGroupID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByGroupID(1) error = %v", err)
	}
	if tx1.MAC == nil || *tx1.MAC != "aa:bb:cc:00:00:01" {
		t.Errorf("tx1 mac = %v, want aa:bb:cc:00:00:01", tx1.MAC)
	}
	if tx1.Subtype != moip.SubtypeAV {
		t.Errorf("tx1 subtype = %q, want av", tx1.Subtype)
	}

	// Transmitter 2 has no unit: identity fields stay nil
	tx2, err := repo.GetByGroupID(ctx, 2)
	if err != nil {
		t.Fatalf("GetByGroupID(2) error = %v", err)
	}
	if tx2.MAC != nil {
		t.Errorf("tx2 mac = %v, want nil (no unit)", tx2.MAC)
	}

	// Receiver subtype classified from its unit's audio-only model
	rx, err := repo.GetByGroupID(ctx, 10)
	if err != nil {
		t.Fatalf("GetByGroupID(10) error = %v", err)
	}
	if rx.Subtype != moip.SubtypeAudio {
		t.Errorf("rx subtype = %q, want audio", rx.Subtype)
	}
	if rx.DeviceType != moip.KindReceiver {
		t.Errorf("rx device type = %q, want rx", rx.DeviceType)
	}
}

func TestRunSkipsUnreconcilableGroups(t *testing.T) {
	repo := setupRepo(t)
	id, index := 1, 1
	api := &fakeAPI{
		groups: map[moip.Kind][]rest.Group{
			moip.KindTransmitter: {
				{ID: nil, Settings: rest.GroupSettings{Index: &index}}, // no id
				{ID: &id, Settings: rest.GroupSettings{Index: nil}},    // no index
				group(2, 2, "Valid", "", nil),
			},
		},
		skipped: map[moip.Kind]int{moip.KindTransmitter: 1},
	}

	engine := New(&fakeLine{}, api, repo, nopLogger{})

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.TxSynced != 1 {
		t.Errorf("tx synced = %d, want 1", result.TxSynced)
	}
	if result.SkippedGroups != 2 {
		t.Errorf("skipped groups = %d, want 2", result.SkippedGroups)
	}
	if result.GroupsSkippedByFetch != 1 {
		t.Errorf("groups skipped by fetch = %d, want 1", result.GroupsSkippedByFetch)
	}
}

func TestRunAbortsOnListFailure(t *testing.T) {
	repo := setupRepo(t)
	api := &fakeAPI{
		groups: map[moip.Kind][]rest.Group{
			moip.KindTransmitter: {group(1, 1, "Apple TV", "", nil)},
		},
		groupsErr: map[moip.Kind]error{
			moip.KindReceiver: errors.New("boom"),
		},
	}

	engine := New(&fakeLine{}, api, repo, nopLogger{})

	result, err := engine.Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want receiver list failure")
	}

	// The transmitter upserts before the failure stay in place
	if result.TxSynced != 1 {
		t.Errorf("tx synced = %d, want 1 (partial state kept)", result.TxSynced)
	}
	if _, err := repo.GetByGroupID(context.Background(), 1); err != nil {
		t.Errorf("GetByGroupID(1) after failed pass error = %v, want record kept", err)
	}
}

func TestRunTelnetFailureNotFatal(t *testing.T) {
	repo := setupRepo(t)
	api := &fakeAPI{
		groups: map[moip.Kind][]rest.Group{
			moip.KindTransmitter: {group(1, 1, "Apple TV", "", nil)},
		},
	}

	engine := New(&fakeLine{err: errors.New("unreachable")}, api, repo, nopLogger{})

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want telnet failure ignored", err)
	}
	if result.TxCount != 0 || result.RxCount != 0 {
		t.Errorf("counts = %d/%d, want 0/0 when telnet is down", result.TxCount, result.RxCount)
	}
	if result.TxSynced != 1 {
		t.Errorf("tx synced = %d, want 1", result.TxSynced)
	}
}
