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
	ErrButtonOverlap     = errors.New("two buttons cannot occupy the same cell")
	ErrButtonOutOfBounds = errors.New("button outside grid bounds")
	ErrGridTooSmall      = errors.New("grid must be at least 1x1")
)

// LayoutService stores and validates per-device button grids
type LayoutService struct {
	store   *store.Store
	devices *DeviceService
	audit   *AuditService
	metrics metrics.Recorder
}

func NewLayoutService(
	s *store.Store,
	devices *DeviceService,
	audit *AuditService,
	rec metrics.Recorder,
) *LayoutService {
	return &LayoutService{store: s, devices: devices, audit: audit, metrics: rec}
}

// GetForDevice returns the device's layout, or the default empty grid if
// none was ever saved
func (s *LayoutService) GetForDevice(ctx context.Context, ownerID, deviceID string) (*models.LayoutGrid, error) {
	if _, err := s.devices.getOwned(ownerID, deviceID); err != nil {
		return nil, err
	}

	layout, err := s.store.GetLayoutByDevice(deviceID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			grid := models.DefaultLayoutGrid()
			return &grid, nil
		}
		s.metrics.RecordDatabaseQueryError("get_layout")
		return nil, fmt.Errorf("failed to load layout: %w", err)
	}
	return &layout.Grid, nil
}

// Save validates and upserts the device's layout
func (s *LayoutService) Save(ctx context.Context, ownerID, deviceID string, grid models.LayoutGrid) error {
	device, err := s.devices.getOwned(ownerID, deviceID)
	if err != nil {
		return err
	}

	if err := ValidateLayout(grid); err != nil {
		return err
	}

	now := time.Now()
	layout := &models.DeviceLayout{
		ID:        uuid.New().String(),
		DeviceID:  device.ID,
		Grid:      grid,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveLayout(layout); err != nil {
		s.metrics.RecordDatabaseQueryError("save_layout")
		return fmt.Errorf("failed to save layout: %w", err)
	}

	if s.audit != nil {
		s.audit.Log(AuditLogEntry{
			EventType:    models.EventLayoutSaved,
			Severity:     models.SeverityInfo,
			ActorOwnerID: ownerID,
			ResourceType: models.ResourceLayout,
			ResourceID:   device.ID,
			Action:       "Layout saved",
			Details: models.AuditDetails{
				"rows":    grid.GridSize.Rows,
				"cols":    grid.GridSize.Cols,
				"buttons": len(grid.Buttons),
			},
			Success: true,
		})
	}
	return nil
}

// ValidateLayout rejects grids with overlapping or out-of-bounds buttons
func ValidateLayout(grid models.LayoutGrid) error {
	if grid.GridSize.Rows < 1 || grid.GridSize.Cols < 1 {
		return ErrGridTooSmall
	}

	for i := 0; i < len(grid.Buttons); i++ {
		for j := i + 1; j < len(grid.Buttons); j++ {
			if grid.Buttons[i].Position.Row == grid.Buttons[j].Position.Row &&
				grid.Buttons[i].Position.Col == grid.Buttons[j].Position.Col {
				return ErrButtonOverlap
			}
		}
	}

	for _, button := range grid.Buttons {
		if !isWithinBounds(button, grid.GridSize) {
			return ErrButtonOutOfBounds
		}
	}
	return nil
}

// ResizeGrid changes the grid dimensions, dropping buttons that no longer fit
func ResizeGrid(grid models.LayoutGrid, rows, cols int) models.LayoutGrid {
	kept := make([]models.LayoutButton, 0, len(grid.Buttons))
	for _, btn := range grid.Buttons {
		if btn.Position.Row < rows && btn.Position.Col < cols {
			kept = append(kept, btn)
		}
	}
	return models.LayoutGrid{
		GridSize: models.GridSize{Rows: rows, Cols: cols},
		Buttons:  kept,
	}
}

func isWithinBounds(button models.LayoutButton, size models.GridSize) bool {
	return button.Position.Row >= 0 &&
		button.Position.Row < size.Rows &&
		button.Position.Col >= 0 &&
		button.Position.Col < size.Cols
}
