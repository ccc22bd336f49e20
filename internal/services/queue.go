package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jj-link/Pulsr/internal/metrics"
	"github.com/jj-link/Pulsr/internal/models"
	"github.com/jj-link/Pulsr/internal/store"

	"github.com/google/uuid"
)

var (
	ErrQueueEmpty          = errors.New("no pending queue items")
	ErrQueueItemNotFound   = errors.New("queue item not found")
	ErrInvalidQueueOutcome = errors.New("outcome must be completed or failed")
)

// QueueService is the bridge between the remote page and the hardware: the
// app enqueues transmissions, the device polls for the next pending item and
// reports the outcome.
type QueueService struct {
	store   *store.Store
	devices *DeviceService
	audit   *AuditService
	metrics metrics.Recorder
}

func NewQueueService(
	s *store.Store,
	devices *DeviceService,
	audit *AuditService,
	rec metrics.Recorder,
) *QueueService {
	return &QueueService{store: s, devices: devices, audit: audit, metrics: rec}
}

// Enqueue adds a transmit request for one of the device's commands
func (s *QueueService) Enqueue(ctx context.Context, ownerID, deviceID, commandID string) (*models.QueueItem, error) {
	device, err := s.devices.getOwned(ownerID, deviceID)
	if err != nil {
		return nil, err
	}

	cmd, err := s.store.GetCommand(commandID)
	if err != nil || cmd.DeviceID != device.ID {
		return nil, ErrCommandNotFound
	}

	item := &models.QueueItem{
		ID:        uuid.New().String(),
		DeviceID:  device.ID,
		CommandID: cmd.ID,
		Status:    models.QueueStatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.store.EnqueueItem(item); err != nil {
		s.metrics.RecordDatabaseQueryError("enqueue_item")
		return nil, fmt.Errorf("failed to enqueue: %w", err)
	}

	s.metrics.RecordTransmitEnqueued()
	s.updateQueueDepth()
	if s.audit != nil {
		s.audit.Log(AuditLogEntry{
			EventType:    models.EventTransmitEnqueued,
			Severity:     models.SeverityInfo,
			ActorOwnerID: ownerID,
			ResourceType: models.ResourceQueue,
			ResourceID:   item.ID,
			Action:       "Transmit enqueued",
			Details: models.AuditDetails{
				"device_id":  device.ID,
				"command_id": cmd.ID,
			},
			Success: true,
		})
	}
	return item, nil
}

// ListForDevice returns the device's queue, newest first
func (s *QueueService) ListForDevice(ctx context.Context, ownerID, deviceID string) ([]models.QueueItem, error) {
	if _, err := s.devices.getOwned(ownerID, deviceID); err != nil {
		return nil, err
	}
	items, err := s.store.ListQueueByDevice(deviceID)
	if err != nil {
		s.metrics.RecordDatabaseQueryError("list_queue")
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	return items, nil
}

// Pull hands the oldest pending item to the polling hardware, moving it to
// processing. The take is a conditional write, so concurrent polls for the
// same device cannot both get the same item; the loser just retries the
// lookup until the queue reads empty.
func (s *QueueService) Pull(ctx context.Context, deviceID string) (*models.QueueItem, *models.IRCommand, error) {
	if _, err := s.store.GetDevice(deviceID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil, ErrDeviceNotFound
		}
		s.metrics.RecordDatabaseQueryError("get_device")
		return nil, nil, fmt.Errorf("failed to load device: %w", err)
	}

	for {
		item, err := s.store.OldestPendingQueueItem(deviceID)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return nil, nil, ErrQueueEmpty
			}
			s.metrics.RecordDatabaseQueryError("next_queue_item")
			return nil, nil, fmt.Errorf("failed to read queue: %w", err)
		}

		if err := s.store.TakeQueueItem(item.ID); err != nil {
			if errors.Is(err, store.ErrQueueItemTaken) {
				continue // lost the race, try the next item
			}
			s.metrics.RecordDatabaseQueryError("take_queue_item")
			return nil, nil, fmt.Errorf("failed to take queue item: %w", err)
		}
		item.Status = models.QueueStatusProcessing

		cmd, err := s.store.GetCommand(item.CommandID)
		if err != nil {
			// Command was deleted while queued; fail the item and move on
			_ = s.store.FinishQueueItem(item.ID, models.QueueStatusFailed, "command no longer exists", time.Now())
			continue
		}

		s.updateQueueDepth()
		return item, cmd, nil
	}
}

// Report records the transmit outcome the hardware observed
func (s *QueueService) Report(ctx context.Context, itemID string, status models.QueueStatus, errMsg string) error {
	if status != models.QueueStatusCompleted && status != models.QueueStatusFailed {
		return ErrInvalidQueueOutcome
	}

	if _, err := s.store.GetQueueItem(itemID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return ErrQueueItemNotFound
		}
		s.metrics.RecordDatabaseQueryError("get_queue_item")
		return fmt.Errorf("failed to load queue item: %w", err)
	}

	if err := s.store.FinishQueueItem(itemID, status, errMsg, time.Now()); err != nil {
		if errors.Is(err, store.ErrQueueItemTaken) {
			// Item is not in processing state; outcome already recorded
			return ErrQueueItemNotFound
		}
		s.metrics.RecordDatabaseQueryError("finish_queue_item")
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	s.metrics.RecordTransmitResult(string(status))
	return nil
}

func (s *QueueService) updateQueueDepth() {
	if count, err := s.store.CountPendingQueueItems(); err == nil {
		s.metrics.SetPendingQueueDepth(int(count))
	}
}
