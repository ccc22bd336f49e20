package services

import (
	"context"
	"testing"
	"time"

	"github.com/jj-link/Pulsr/internal/metrics"
	"github.com/jj-link/Pulsr/internal/models"
	"github.com/jj-link/Pulsr/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueueService(t *testing.T, s *store.Store) (*QueueService, *CommandService) {
	t.Helper()
	devices := newTestDeviceService(t, s)
	commands := NewCommandService(s, devices, nil, metrics.NewNoopMetrics())
	queue := NewQueueService(s, devices, nil, metrics.NewNoopMetrics())
	return queue, commands
}

func TestEnqueueTransmit(t *testing.T) {
	s := setupTestStore(t)
	queue, commands := newTestQueueService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")
	cmd, err := commands.Capture(ctx, "owner-1", device.ID, CaptureInput{Name: "Power", Protocol: "NEC"})
	require.NoError(t, err)

	item, err := queue.Enqueue(ctx, "owner-1", device.ID, cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusPending, item.Status)
	assert.Equal(t, cmd.ID, item.CommandID)
	assert.Nil(t, item.ProcessedAt)
}

func TestEnqueueTransmit_CommandFromAnotherDevice(t *testing.T) {
	s := setupTestStore(t)
	queue, commands := newTestQueueService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")
	other := createTestDevice(t, s, "owner-1")
	cmd, err := commands.Capture(ctx, "owner-1", other.ID, CaptureInput{Name: "Power", Protocol: "NEC"})
	require.NoError(t, err)

	_, err = queue.Enqueue(ctx, "owner-1", device.ID, cmd.ID)
	assert.ErrorIs(t, err, ErrCommandNotFound)
}

func TestPull_OldestFirst(t *testing.T) {
	s := setupTestStore(t)
	queue, commands := newTestQueueService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")
	cmd, err := commands.Capture(ctx, "owner-1", device.ID, CaptureInput{Name: "Power", Protocol: "NEC"})
	require.NoError(t, err)

	first, err := queue.Enqueue(ctx, "owner-1", device.ID, cmd.ID)
	require.NoError(t, err)
	// Distinct created_at so ordering is deterministic
	require.NoError(t, s.DB().Model(&models.QueueItem{}).
		Where("id = ?", first.ID).
		Update("created_at", time.Now().Add(-time.Minute)).Error)
	_, err = queue.Enqueue(ctx, "owner-1", device.ID, cmd.ID)
	require.NoError(t, err)

	item, pulled, err := queue.Pull(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, item.ID)
	assert.Equal(t, models.QueueStatusProcessing, item.Status)
	assert.Equal(t, cmd.ID, pulled.ID)

	// The taken item is no longer pending
	stored, err := s.GetQueueItem(first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusProcessing, stored.Status)
}

func TestPull_EmptyQueue(t *testing.T) {
	s := setupTestStore(t)
	queue, _ := newTestQueueService(t, s)

	device := createTestDevice(t, s, "owner-1")

	_, _, err := queue.Pull(context.Background(), device.ID)
	assert.ErrorIs(t, err, ErrQueueEmpty)

	_, _, err = queue.Pull(context.Background(), "no-such-device")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestPull_ExactlyOnce(t *testing.T) {
	s := setupTestStore(t)
	queue, commands := newTestQueueService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")
	cmd, err := commands.Capture(ctx, "owner-1", device.ID, CaptureInput{Name: "Power", Protocol: "NEC"})
	require.NoError(t, err)
	_, err = queue.Enqueue(ctx, "owner-1", device.ID, cmd.ID)
	require.NoError(t, err)

	_, _, err = queue.Pull(ctx, device.ID)
	require.NoError(t, err)

	// The item is processing now, so a second poll finds nothing
	_, _, err = queue.Pull(ctx, device.ID)
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestPull_SkipsItemsForDeletedCommands(t *testing.T) {
	s := setupTestStore(t)
	queue, commands := newTestQueueService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")
	cmd, err := commands.Capture(ctx, "owner-1", device.ID, CaptureInput{Name: "Power", Protocol: "NEC"})
	require.NoError(t, err)
	item, err := queue.Enqueue(ctx, "owner-1", device.ID, cmd.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteCommand(cmd.ID))

	_, _, err = queue.Pull(ctx, device.ID)
	assert.ErrorIs(t, err, ErrQueueEmpty)

	stored, err := s.GetQueueItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.Error)
}

func TestReportOutcome(t *testing.T) {
	s := setupTestStore(t)
	queue, commands := newTestQueueService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")
	cmd, err := commands.Capture(ctx, "owner-1", device.ID, CaptureInput{Name: "Power", Protocol: "NEC"})
	require.NoError(t, err)
	_, err = queue.Enqueue(ctx, "owner-1", device.ID, cmd.ID)
	require.NoError(t, err)

	item, _, err := queue.Pull(ctx, device.ID)
	require.NoError(t, err)

	require.NoError(t, queue.Report(ctx, item.ID, models.QueueStatusCompleted, ""))

	stored, err := s.GetQueueItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusCompleted, stored.Status)
	require.NotNil(t, stored.ProcessedAt)

	// Terminal states cannot be reported twice
	err = queue.Report(ctx, item.ID, models.QueueStatusFailed, "late report")
	assert.ErrorIs(t, err, ErrQueueItemNotFound)
}

func TestReportOutcome_Failed(t *testing.T) {
	s := setupTestStore(t)
	queue, commands := newTestQueueService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")
	cmd, err := commands.Capture(ctx, "owner-1", device.ID, CaptureInput{Name: "Power", Protocol: "NEC"})
	require.NoError(t, err)
	_, err = queue.Enqueue(ctx, "owner-1", device.ID, cmd.ID)
	require.NoError(t, err)

	item, _, err := queue.Pull(ctx, device.ID)
	require.NoError(t, err)

	require.NoError(t, queue.Report(ctx, item.ID, models.QueueStatusFailed, "no IR ack"))

	stored, err := s.GetQueueItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusFailed, stored.Status)
	assert.Equal(t, "no IR ack", stored.Error)
}

func TestReportOutcome_Validation(t *testing.T) {
	s := setupTestStore(t)
	queue, _ := newTestQueueService(t, s)
	ctx := context.Background()

	err := queue.Report(ctx, "any", models.QueueStatusPending, "")
	assert.ErrorIs(t, err, ErrInvalidQueueOutcome)

	err = queue.Report(ctx, "no-such-item", models.QueueStatusCompleted, "")
	assert.ErrorIs(t, err, ErrQueueItemNotFound)
}
