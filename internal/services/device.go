package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jj-link/Pulsr/internal/cache"
	"github.com/jj-link/Pulsr/internal/metrics"
	"github.com/jj-link/Pulsr/internal/models"
	"github.com/jj-link/Pulsr/internal/store"
)

var (
	ErrDeviceNotFound     = errors.New("device not found")
	ErrDeviceNameRequired = errors.New("device name is required")
)

// DeviceService manages provisioned devices. Online state comes from the
// presence cache, written on heartbeat, not from the persisted lastSeenAt
// (which survives restarts but goes stale).
type DeviceService struct {
	store       *store.Store
	presence    cache.Cache[int64]
	presenceTTL time.Duration
	audit       *AuditService
	metrics     metrics.Recorder
}

func NewDeviceService(
	s *store.Store,
	presence cache.Cache[int64],
	presenceTTL time.Duration,
	audit *AuditService,
	rec metrics.Recorder,
) *DeviceService {
	return &DeviceService{
		store:       s,
		presence:    presence,
		presenceTTL: presenceTTL,
		audit:       audit,
		metrics:     rec,
	}
}

// DeviceView is a device plus its cached presence state
type DeviceView struct {
	models.Device
	Online bool `json:"online"`
}

// ListForOwner returns the owner's devices with presence resolved in one MGet
func (s *DeviceService) ListForOwner(ctx context.Context, ownerID string) ([]DeviceView, error) {
	devices, err := s.store.ListDevicesByOwner(ownerID)
	if err != nil {
		s.metrics.RecordDatabaseQueryError("list_devices")
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	keys := make([]string, len(devices))
	for i, d := range devices {
		keys[i] = d.ID
	}
	seen, err := s.presence.MGet(ctx, keys)
	if err != nil {
		// Presence is best-effort; a cache outage must not hide the devices
		seen = map[string]int64{}
	}

	views := make([]DeviceView, len(devices))
	for i, d := range devices {
		_, online := seen[d.ID]
		views[i] = DeviceView{Device: d, Online: online}
	}
	return views, nil
}

// GetForOwner fetches one device, enforcing ownership
func (s *DeviceService) GetForOwner(ctx context.Context, ownerID, deviceID string) (*DeviceView, error) {
	device, err := s.getOwned(ownerID, deviceID)
	if err != nil {
		return nil, err
	}

	online := false
	if _, err := s.presence.Get(ctx, device.ID); err == nil {
		online = true
	}
	return &DeviceView{Device: *device, Online: online}, nil
}

// Rename changes a device's display name
func (s *DeviceService) Rename(ctx context.Context, ownerID, deviceID, name string) (*models.Device, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrDeviceNameRequired
	}

	device, err := s.getOwned(ownerID, deviceID)
	if err != nil {
		return nil, err
	}

	oldName := device.Name
	device.Name = name
	if err := s.store.UpdateDevice(device); err != nil {
		s.metrics.RecordDatabaseQueryError("update_device")
		return nil, fmt.Errorf("failed to update device: %w", err)
	}

	if s.audit != nil {
		s.audit.Log(AuditLogEntry{
			EventType:    models.EventDeviceRenamed,
			Severity:     models.SeverityInfo,
			ActorOwnerID: ownerID,
			ResourceType: models.ResourceDevice,
			ResourceID:   device.ID,
			ResourceName: device.Name,
			Action:       "Device renamed",
			Details:      models.AuditDetails{"old_name": oldName, "new_name": name},
			Success:      true,
		})
	}
	return device, nil
}

// Delete removes a device and its commands, layout and queue
func (s *DeviceService) Delete(ctx context.Context, ownerID, deviceID string) error {
	device, err := s.getOwned(ownerID, deviceID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteDevice(device.ID); err != nil {
		s.metrics.RecordDatabaseQueryError("delete_device")
		return fmt.Errorf("failed to delete device: %w", err)
	}
	_ = s.presence.Delete(ctx, device.ID)

	if s.audit != nil {
		s.audit.Log(AuditLogEntry{
			EventType:    models.EventDeviceDeleted,
			Severity:     models.SeverityInfo,
			ActorOwnerID: ownerID,
			ResourceType: models.ResourceDevice,
			ResourceID:   device.ID,
			ResourceName: device.Name,
			Action:       "Device deleted",
			Success:      true,
		})
	}
	return nil
}

// SetLearningMode toggles the flag the hardware polls to enter IR capture
func (s *DeviceService) SetLearningMode(ctx context.Context, ownerID, deviceID string, enabled bool) error {
	device, err := s.getOwned(ownerID, deviceID)
	if err != nil {
		return err
	}

	if err := s.store.SetDeviceLearning(device.ID, enabled); err != nil {
		s.metrics.RecordDatabaseQueryError("set_device_learning")
		return fmt.Errorf("failed to set learning mode: %w", err)
	}

	if s.audit != nil {
		s.audit.Log(AuditLogEntry{
			EventType:    models.EventDeviceLearningMode,
			Severity:     models.SeverityInfo,
			ActorOwnerID: ownerID,
			ResourceType: models.ResourceDevice,
			ResourceID:   device.ID,
			ResourceName: device.Name,
			Action:       "Learning mode changed",
			Details:      models.AuditDetails{"enabled": enabled},
			Success:      true,
		})
	}
	return nil
}

// Heartbeat records a hardware check-in. Called by the device itself,
// so there is no owner to enforce.
func (s *DeviceService) Heartbeat(ctx context.Context, deviceID string) (*models.Device, error) {
	device, err := s.store.GetDevice(deviceID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		s.metrics.RecordDatabaseQueryError("get_device")
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	now := time.Now()
	if err := s.store.TouchDeviceLastSeen(device.ID, now); err != nil {
		s.metrics.RecordDatabaseQueryError("touch_device")
		return nil, fmt.Errorf("failed to record heartbeat: %w", err)
	}
	_ = s.presence.Set(ctx, device.ID, now.Unix(), s.presenceTTL)

	s.metrics.RecordDeviceHeartbeat()
	device.LastSeenAt = now
	return device, nil
}

// getOwned loads a device and checks it belongs to ownerID.
// Not-found and not-owned both come back as ErrDeviceNotFound so the API
// does not leak which device ids exist.
func (s *DeviceService) getOwned(ownerID, deviceID string) (*models.Device, error) {
	device, err := s.store.GetDevice(deviceID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		s.metrics.RecordDatabaseQueryError("get_device")
		return nil, fmt.Errorf("failed to load device: %w", err)
	}
	if device.OwnerID != ownerID {
		return nil, ErrDeviceNotFound
	}
	return device, nil
}
