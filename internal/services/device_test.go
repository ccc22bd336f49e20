package services

import (
	"context"
	"testing"
	"time"

	"github.com/jj-link/Pulsr/internal/cache"
	"github.com/jj-link/Pulsr/internal/metrics"
	"github.com/jj-link/Pulsr/internal/models"
	"github.com/jj-link/Pulsr/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeviceService(t *testing.T, s *store.Store) *DeviceService {
	t.Helper()
	presence := cache.NewMemoryCache[int64]()
	t.Cleanup(func() { _ = presence.Close() })
	return NewDeviceService(s, presence, 90*time.Second, nil, metrics.NewNoopMetrics())
}

func createTestDevice(t *testing.T, s *store.Store, ownerID string) *models.Device {
	t.Helper()
	device := &models.Device{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		Name:       "Test Device",
		HardwareID: "hw-" + uuid.New().String()[:8],
		LastSeenAt: time.Now(),
		CreatedAt:  time.Now(),
	}
	require.NoError(t, s.CreateDevice(device))
	return device
}

func TestListDevicesForOwner(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestDeviceService(t, s)
	ctx := context.Background()

	createTestDevice(t, s, "owner-1")
	createTestDevice(t, s, "owner-1")
	createTestDevice(t, s, "owner-2")

	views, err := svc.ListForOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, views, 2)
	for _, v := range views {
		assert.False(t, v.Online)
	}
}

func TestGetDeviceForOwner_EnforcesOwnership(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestDeviceService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")

	view, err := svc.GetForOwner(ctx, "owner-1", device.ID)
	require.NoError(t, err)
	assert.Equal(t, device.ID, view.ID)

	// Wrong owner reads the same as a missing device
	_, err = svc.GetForOwner(ctx, "owner-2", device.ID)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	_, err = svc.GetForOwner(ctx, "owner-1", "no-such-id")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestRenameDevice(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestDeviceService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")

	renamed, err := svc.Rename(ctx, "owner-1", device.ID, "Bedroom TV")
	require.NoError(t, err)
	assert.Equal(t, "Bedroom TV", renamed.Name)

	stored, err := s.GetDevice(device.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bedroom TV", stored.Name)

	_, err = svc.Rename(ctx, "owner-1", device.ID, "   ")
	assert.ErrorIs(t, err, ErrDeviceNameRequired)

	_, err = svc.Rename(ctx, "owner-2", device.ID, "Hijacked")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestDeleteDevice_Cascades(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestDeviceService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")
	cmd := &models.IRCommand{
		ID:       uuid.New().String(),
		DeviceID: device.ID,
		Name:     "Power",
		Protocol: "NEC",
	}
	require.NoError(t, s.CreateCommand(cmd))

	require.NoError(t, svc.Delete(ctx, "owner-1", device.ID))

	_, err := s.GetDevice(device.ID)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
	_, err = s.GetCommand(cmd.ID)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestDeleteDevice_WrongOwner(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestDeviceService(t, s)

	device := createTestDevice(t, s, "owner-1")

	err := svc.Delete(context.Background(), "owner-2", device.ID)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	_, err = s.GetDevice(device.ID)
	assert.NoError(t, err)
}

func TestSetLearningMode(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestDeviceService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")

	require.NoError(t, svc.SetLearningMode(ctx, "owner-1", device.ID, true))
	stored, err := s.GetDevice(device.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsLearning)

	require.NoError(t, svc.SetLearningMode(ctx, "owner-1", device.ID, false))
	stored, err = s.GetDevice(device.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsLearning)

	err = svc.SetLearningMode(ctx, "owner-2", device.ID, true)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestHeartbeat_MarksOnline(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestDeviceService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")

	before := time.Now()
	updated, err := svc.Heartbeat(ctx, device.ID)
	require.NoError(t, err)
	assert.False(t, updated.LastSeenAt.Before(before))

	view, err := svc.GetForOwner(ctx, "owner-1", device.ID)
	require.NoError(t, err)
	assert.True(t, view.Online)

	views, err := svc.ListForOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Online)
}

func TestHeartbeat_UnknownDevice(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestDeviceService(t, s)

	_, err := svc.Heartbeat(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}
