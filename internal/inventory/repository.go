package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bbellwfu/moip-manager/internal/moip"
)

// Repository defines the interface for device inventory persistence.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Upsert inserts or merge-updates a device record keyed by group ID.
	// Nil incoming fields never overwrite stored values; device type,
	// index, and subtype always reflect the incoming record; last_seen
	// and updated_at are bumped on every call.
	Upsert(ctx context.Context, device *Device) error

	// GetByGroupID retrieves a device by its stable identity.
	// Returns ErrNotFound if no record exists.
	GetByGroupID(ctx context.Context, groupID int) (*Device, error)

	// GetBySlot retrieves the device currently occupying a slot.
	// The slot is a transient attribute; this is a current-state lookup,
	// never an identity. Returns ErrNotFound if the slot is empty.
	GetBySlot(ctx context.Context, deviceType moip.Kind, index int) (*Device, error)

	// List retrieves all devices ordered by type then index.
	List(ctx context.Context) ([]Device, error)

	// Delete removes a device by group ID.
	// Returns ErrNotFound if the device does not exist.
	Delete(ctx context.Context, groupID int) error

	// Count returns the number of stored devices.
	Count(ctx context.Context) (int, error)

	// SetDisplayName updates only the display name of a device.
	SetDisplayName(ctx context.Context, groupID int, name string) error

	// SetIcon updates only the icon assignment of a device.
	SetIcon(ctx context.Context, groupID int, icon string) error

	// SetVideoSettings updates the cached receiver output settings.
	// Empty values leave the corresponding column untouched.
	SetVideoSettings(ctx context.Context, groupID int, resolution, hdcp string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// deviceColumns is the column list shared by every device SELECT.
const deviceColumns = `group_id, device_type, device_index, subtype, name, icon_type,
	mac_address, ip_address, model, firmware, unit_id, resolution, hdcp,
	last_seen, created_at, updated_at`

// Upsert inserts or merge-updates a device record.
//
// The merge policy is enforced in a single statement: COALESCE(excluded.col,
// devices.col) keeps the stored value whenever the incoming field is null,
// so a partial protocol view never erases known metadata. Slot attributes
// (type, index, subtype) are unconditional — they are current protocol
// truth, not identity.
func (r *SQLiteRepository) Upsert(ctx context.Context, device *Device) error {
	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.LastSeen = now
	device.UpdatedAt = now

	query := `
		INSERT INTO devices (
			group_id, device_type, device_index, subtype, name, icon_type,
			mac_address, ip_address, model, firmware, unit_id, resolution, hdcp,
			last_seen, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_id) DO UPDATE SET
			device_type = excluded.device_type,
			device_index = excluded.device_index,
			subtype = excluded.subtype,
			name = COALESCE(excluded.name, devices.name),
			icon_type = COALESCE(excluded.icon_type, devices.icon_type),
			mac_address = COALESCE(excluded.mac_address, devices.mac_address),
			ip_address = COALESCE(excluded.ip_address, devices.ip_address),
			model = COALESCE(excluded.model, devices.model),
			firmware = COALESCE(excluded.firmware, devices.firmware),
			unit_id = COALESCE(excluded.unit_id, devices.unit_id),
			resolution = COALESCE(excluded.resolution, devices.resolution),
			hdcp = COALESCE(excluded.hdcp, devices.hdcp),
			last_seen = excluded.last_seen,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		device.GroupID,
		string(device.DeviceType),
		device.DeviceIndex,
		string(device.Subtype),
		device.Name,
		device.IconType,
		device.MAC,
		device.IP,
		device.Model,
		device.Firmware,
		device.UnitID,
		device.Resolution,
		device.HDCP,
		device.LastSeen.Format(time.RFC3339),
		device.CreatedAt.Format(time.RFC3339),
		device.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting device %d: %w", device.GroupID, err)
	}
	return nil
}

// GetByGroupID retrieves a device by its stable identity.
func (r *SQLiteRepository) GetByGroupID(ctx context.Context, groupID int) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE group_id = ?`

	device, err := scanDevice(r.db.QueryRowContext(ctx, query, groupID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying device by group id: %w", err)
	}
	return device, nil
}

// GetBySlot retrieves the device currently occupying a slot.
func (r *SQLiteRepository) GetBySlot(ctx context.Context, deviceType moip.Kind, index int) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices
		WHERE device_type = ? AND device_index = ?`

	device, err := scanDevice(r.db.QueryRowContext(ctx, query, string(deviceType), index))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying device by slot: %w", err)
	}
	return device, nil
}

// List retrieves all devices ordered by type then index.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices
		ORDER BY device_type, device_index`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	return devices, nil
}

// Delete removes a device by group ID.
func (r *SQLiteRepository) Delete(ctx context.Context, groupID int) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE group_id = ?", groupID)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored devices.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM devices").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting devices: %w", err)
	}
	return count, nil
}

// SetDisplayName updates only the display name of a device.
func (r *SQLiteRepository) SetDisplayName(ctx context.Context, groupID int, name string) error {
	return r.setColumn(ctx, groupID, "name", name)
}

// SetIcon updates only the icon assignment of a device.
func (r *SQLiteRepository) SetIcon(ctx context.Context, groupID int, icon string) error {
	return r.setColumn(ctx, groupID, "icon_type", icon)
}

// SetVideoSettings updates the cached receiver output settings. Empty
// values leave the corresponding column untouched.
func (r *SQLiteRepository) SetVideoSettings(ctx context.Context, groupID int, resolution, hdcp string) error {
	query := `
		UPDATE devices SET
			resolution = COALESCE(?, resolution),
			hdcp = COALESCE(?, hdcp),
			updated_at = ?
		WHERE group_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		StringPtr(resolution),
		StringPtr(hdcp),
		time.Now().UTC().Format(time.RFC3339),
		groupID,
	)
	if err != nil {
		return fmt.Errorf("updating video settings: %w", err)
	}
	return requireRow(result)
}

// setColumn updates a single text column on an existing device.
func (r *SQLiteRepository) setColumn(ctx context.Context, groupID int, column, value string) error {
	// column comes from a fixed call site, never user input
	query := fmt.Sprintf("UPDATE devices SET %s = ?, updated_at = ? WHERE group_id = ?", column)

	result, err := r.db.ExecContext(ctx, query,
		value,
		time.Now().UTC().Format(time.RFC3339),
		groupID,
	)
	if err != nil {
		return fmt.Errorf("updating device %s: %w", column, err)
	}
	return requireRow(result)
}

// requireRow converts a zero-row update into ErrNotFound.
func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanDevice.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a device row in deviceColumns order.
func scanDevice(row rowScanner) (*Device, error) {
	var (
		device                       Device
		deviceType, subtype          string
		name, icon, mac, ip          sql.NullString
		model, firmware              sql.NullString
		resolution, hdcp             sql.NullString
		unitID                       sql.NullInt64
		lastSeen, createdAt, updated string
	)

	err := row.Scan(
		&device.GroupID,
		&deviceType,
		&device.DeviceIndex,
		&subtype,
		&name,
		&icon,
		&mac,
		&ip,
		&model,
		&firmware,
		&unitID,
		&resolution,
		&hdcp,
		&lastSeen,
		&createdAt,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	device.DeviceType = moip.Kind(deviceType)
	device.Subtype = moip.Subtype(subtype)
	device.Name = nullableToPtr(name)
	device.IconType = nullableToPtr(icon)
	device.MAC = nullableToPtr(mac)
	device.IP = nullableToPtr(ip)
	device.Model = nullableToPtr(model)
	device.Firmware = nullableToPtr(firmware)
	device.Resolution = nullableToPtr(resolution)
	device.HDCP = nullableToPtr(hdcp)
	if unitID.Valid {
		id := int(unitID.Int64)
		device.UnitID = &id
	}

	if device.LastSeen, err = parseTime(lastSeen); err != nil {
		return nil, fmt.Errorf("parsing last_seen: %w", err)
	}
	if device.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if device.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &device, nil
}

// nullableToPtr converts a NullString to a *string.
func nullableToPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// parseTime parses an RFC 3339 timestamp column.
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
