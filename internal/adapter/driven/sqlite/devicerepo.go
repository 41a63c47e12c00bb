package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ericfisherdev/keypass/internal/domain/model"
	"github.com/ericfisherdev/keypass/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DeviceStore = (*DeviceRepo)(nil)

// DeviceRepo is the SQLite implementation of the DeviceStore port interface.
type DeviceRepo struct {
	db *DB
}

// NewDeviceRepo creates a new DeviceRepo backed by the given DB.
func NewDeviceRepo(db *DB) *DeviceRepo {
	return &DeviceRepo{db: db}
}

// ParseID accepts positive decimal row ids.
func (r *DeviceRepo) ParseID(raw string) (string, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return "", fmt.Errorf("%w: %q", driven.ErrInvalidID, raw)
	}
	return strconv.FormatInt(id, 10), nil
}

// Insert adds a device row and returns its id. Duplicate MACs are allowed.
func (r *DeviceRepo) Insert(ctx context.Context, device model.Device) (string, error) {
	const query = `INSERT INTO devices (mac, ip, hostname, registered_at) VALUES (?, ?, ?, ?)`

	result, err := r.db.Writer.ExecContext(ctx, query,
		device.MAC, device.IP, device.Hostname, formatTime(device.RegisteredAt),
	)
	if err != nil {
		return "", fmt.Errorf("insert device %q: %w", device.MAC, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// FindOne returns the device with the given id, or (nil, nil) if absent.
func (r *DeviceRepo) FindOne(ctx context.Context, id string) (*model.Device, error) {
	const query = `SELECT id, mac, ip, hostname, registered_at FROM devices WHERE id = ?`

	device, err := scanDevice(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find device %s: %w", id, err)
	}
	return &device, nil
}

// Find returns all devices ordered by registered_at DESC, newest id first on ties.
func (r *DeviceRepo) Find(ctx context.Context) ([]model.Device, error) {
	const query = `SELECT id, mac, ip, hostname, registered_at FROM devices ORDER BY registered_at DESC, id DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	devices := []model.Device{}
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}

	return devices, nil
}

// DeleteOne removes the device with the given id and returns the number removed.
func (r *DeviceRepo) DeleteOne(ctx context.Context, id string) (int64, error) {
	const query = `DELETE FROM devices WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete device %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return rows, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (model.Device, error) {
	var (
		device       model.Device
		id           int64
		registeredAt string
	)
	if err := row.Scan(&id, &device.MAC, &device.IP, &device.Hostname, &registeredAt); err != nil {
		return model.Device{}, err
	}

	device.ID = strconv.FormatInt(id, 10)
	t, err := parseTime(registeredAt)
	if err != nil {
		return model.Device{}, fmt.Errorf("parse registered_at for device %d: %w", id, err)
	}
	device.RegisteredAt = t
	return device, nil
}
