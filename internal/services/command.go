package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jj-link/Pulsr/internal/metrics"
	"github.com/jj-link/Pulsr/internal/models"
	"github.com/jj-link/Pulsr/internal/store"

	"github.com/google/uuid"
)

var (
	ErrCommandNotFound    = errors.New("command not found")
	ErrCommandNameMissing = errors.New("command name is required")
	ErrProtocolMissing    = errors.New("command protocol is required")
)

// CaptureInput is a decoded IR signal reported by the hardware during learning
type CaptureInput struct {
	Name     string
	Protocol string
	Address  string
	Command  string
}

// CommandService manages captured IR commands, always scoped through the
// owning device.
type CommandService struct {
	store   *store.Store
	devices *DeviceService
	audit   *AuditService
	metrics metrics.Recorder
}

func NewCommandService(
	s *store.Store,
	devices *DeviceService,
	audit *AuditService,
	rec metrics.Recorder,
) *CommandService {
	return &CommandService{store: s, devices: devices, audit: audit, metrics: rec}
}

// ListForDevice returns a device's commands in capture order
func (s *CommandService) ListForDevice(ctx context.Context, ownerID, deviceID string) ([]models.IRCommand, error) {
	if _, err := s.devices.getOwned(ownerID, deviceID); err != nil {
		return nil, err
	}
	cmds, err := s.store.ListCommandsByDevice(deviceID)
	if err != nil {
		s.metrics.RecordDatabaseQueryError("list_commands")
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}
	return cmds, nil
}

// Capture stores a newly learned IR signal against a device
func (s *CommandService) Capture(ctx context.Context, ownerID, deviceID string, in CaptureInput) (*models.IRCommand, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrCommandNameMissing
	}
	if strings.TrimSpace(in.Protocol) == "" {
		return nil, ErrProtocolMissing
	}

	device, err := s.devices.getOwned(ownerID, deviceID)
	if err != nil {
		return nil, err
	}

	cmd := &models.IRCommand{
		ID:         uuid.New().String(),
		DeviceID:   device.ID,
		Name:       strings.TrimSpace(in.Name),
		Protocol:   in.Protocol,
		Address:    in.Address,
		Command:    in.Command,
		CapturedAt: time.Now(),
	}
	if err := s.store.CreateCommand(cmd); err != nil {
		s.metrics.RecordDatabaseQueryError("create_command")
		return nil, fmt.Errorf("failed to store command: %w", err)
	}

	if s.audit != nil {
		s.audit.Log(AuditLogEntry{
			EventType:    models.EventCommandCaptured,
			Severity:     models.SeverityInfo,
			ActorOwnerID: ownerID,
			ResourceType: models.ResourceCommand,
			ResourceID:   cmd.ID,
			ResourceName: cmd.Name,
			Action:       "IR command captured",
			Details: models.AuditDetails{
				"device_id": device.ID,
				"protocol":  cmd.Protocol,
			},
			Success: true,
		})
	}
	return cmd, nil
}

// Rename changes a command's display name
func (s *CommandService) Rename(ctx context.Context, ownerID, commandID, name string) (*models.IRCommand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrCommandNameMissing
	}

	cmd, err := s.getOwned(ownerID, commandID)
	if err != nil {
		return nil, err
	}

	cmd.Name = name
	if err := s.store.UpdateCommand(cmd); err != nil {
		s.metrics.RecordDatabaseQueryError("update_command")
		return nil, fmt.Errorf("failed to update command: %w", err)
	}
	return cmd, nil
}

// Delete removes a captured command
func (s *CommandService) Delete(ctx context.Context, ownerID, commandID string) error {
	cmd, err := s.getOwned(ownerID, commandID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteCommand(cmd.ID); err != nil {
		s.metrics.RecordDatabaseQueryError("delete_command")
		return fmt.Errorf("failed to delete command: %w", err)
	}

	if s.audit != nil {
		s.audit.Log(AuditLogEntry{
			EventType:    models.EventCommandDeleted,
			Severity:     models.SeverityInfo,
			ActorOwnerID: ownerID,
			ResourceType: models.ResourceCommand,
			ResourceID:   cmd.ID,
			ResourceName: cmd.Name,
			Action:       "IR command deleted",
			Success:      true,
		})
	}
	return nil
}

// getOwned loads a command and checks the chain command -> device -> owner
func (s *CommandService) getOwned(ownerID, commandID string) (*models.IRCommand, error) {
	cmd, err := s.store.GetCommand(commandID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrCommandNotFound
		}
		s.metrics.RecordDatabaseQueryError("get_command")
		return nil, fmt.Errorf("failed to load command: %w", err)
	}
	if _, err := s.devices.getOwned(ownerID, cmd.DeviceID); err != nil {
		return nil, ErrCommandNotFound
	}
	return cmd, nil
}
