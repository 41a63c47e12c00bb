package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/keypass/internal/domain/model"
	"github.com/ericfisherdev/keypass/internal/domain/port/driven"
)

// DeviceService registers, lists and removes device records. Devices carry
// no secrets, so nothing here touches the master key.
type DeviceService struct {
	store   driven.DeviceStore
	confirm driven.Confirmer
	log     *slog.Logger
	now     func() time.Time
}

// NewDeviceService creates a DeviceService with the required dependencies.
func NewDeviceService(store driven.DeviceStore, confirm driven.Confirmer, log *slog.Logger) *DeviceService {
	return &DeviceService{
		store:   store,
		confirm: confirm,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register stores a device with a lowercase MAC, timestamped now. No dedup:
// registering the same MAC twice creates two records.
func (s *DeviceService) Register(ctx context.Context, mac, ip, hostname string) (string, error) {
	device := model.Device{
		MAC:          strings.ToLower(strings.TrimSpace(mac)),
		IP:           ip,
		Hostname:     hostname,
		RegisteredAt: s.now(),
	}

	id, err := s.store.Insert(ctx, device)
	if err != nil {
		return "", err
	}

	s.log.Info("device registered", "id", id, "mac", device.MAC, "ip", device.IP)
	return id, nil
}

// List returns every device, newest registration first.
func (s *DeviceService) List(ctx context.Context) ([]model.Device, error) {
	devices, err := s.store.Find(ctx)
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []model.Device{}
	}
	return devices, nil
}

// Remove deletes the device identified by rawID. Malformed ids fail with
// ErrInvalidID before any store call. Unless force is set the operator must
// confirm; declining returns ErrCancelled.
func (s *DeviceService) Remove(ctx context.Context, rawID string, force bool) error {
	id, err := s.store.ParseID(rawID)
	if err != nil {
		return err
	}

	device, err := s.store.FindOne(ctx, id)
	if err != nil {
		return err
	}
	if device == nil {
		return fmt.Errorf("device %s: %w", id, ErrNotFound)
	}

	if !force {
		ok, err := s.confirm.Confirm(ctx, removePrompt(device))
		if err != nil {
			return fmt.Errorf("confirm remove: %w", err)
		}
		if !ok {
			return ErrCancelled
		}
	}

	removed, err := s.store.DeleteOne(ctx, id)
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("device %s: %w", id, ErrDeleteFailed)
	}

	s.log.Info("device removed", "id", id, "mac", device.MAC)
	return nil
}

func removePrompt(d *model.Device) string {
	hostname := d.Hostname
	if hostname == "" {
		hostname = "no hostname"
	}
	return fmt.Sprintf("Are you sure you want to remove device %s (%s) - %s?", d.MAC, d.IP, hostname)
}
