package services

import (
	"context"
	"testing"

	"github.com/jj-link/Pulsr/internal/metrics"
	"github.com/jj-link/Pulsr/internal/models"
	"github.com/jj-link/Pulsr/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLayoutService(t *testing.T, s *store.Store) *LayoutService {
	t.Helper()
	return NewLayoutService(s, newTestDeviceService(t, s), nil, metrics.NewNoopMetrics())
}

func gridButton(id string, row, col int) models.LayoutButton {
	return models.LayoutButton{
		ID:        id,
		CommandID: "cmd-" + id,
		Label:     id,
		Position:  models.ButtonPosition{Row: row, Col: col},
		Size:      models.ButtonSize{Width: 1, Height: 1},
	}
}

func TestValidateLayout(t *testing.T) {
	tests := []struct {
		name    string
		grid    models.LayoutGrid
		wantErr error
	}{
		{
			name: "empty grid is valid",
			grid: models.DefaultLayoutGrid(),
		},
		{
			name: "buttons in distinct cells",
			grid: models.LayoutGrid{
				GridSize: models.GridSize{Rows: 4, Cols: 3},
				Buttons: []models.LayoutButton{
					gridButton("a", 0, 0),
					gridButton("b", 0, 1),
					gridButton("c", 3, 2),
				},
			},
		},
		{
			name: "two buttons in the same cell",
			grid: models.LayoutGrid{
				GridSize: models.GridSize{Rows: 4, Cols: 3},
				Buttons: []models.LayoutButton{
					gridButton("a", 1, 1),
					gridButton("b", 1, 1),
				},
			},
			wantErr: ErrButtonOverlap,
		},
		{
			name: "row out of bounds",
			grid: models.LayoutGrid{
				GridSize: models.GridSize{Rows: 4, Cols: 3},
				Buttons:  []models.LayoutButton{gridButton("a", 4, 0)},
			},
			wantErr: ErrButtonOutOfBounds,
		},
		{
			name: "negative column",
			grid: models.LayoutGrid{
				GridSize: models.GridSize{Rows: 4, Cols: 3},
				Buttons:  []models.LayoutButton{gridButton("a", 0, -1)},
			},
			wantErr: ErrButtonOutOfBounds,
		},
		{
			name: "zero-size grid",
			grid: models.LayoutGrid{
				GridSize: models.GridSize{Rows: 0, Cols: 3},
			},
			wantErr: ErrGridTooSmall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLayout(tt.grid)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResizeGrid_DropsOutOfBoundsButtons(t *testing.T) {
	grid := models.LayoutGrid{
		GridSize: models.GridSize{Rows: 4, Cols: 3},
		Buttons: []models.LayoutButton{
			gridButton("keep", 0, 0),
			gridButton("edge", 1, 1),
			gridButton("drop-row", 3, 0),
			gridButton("drop-col", 0, 2),
		},
	}

	resized := ResizeGrid(grid, 2, 2)
	assert.Equal(t, models.GridSize{Rows: 2, Cols: 2}, resized.GridSize)
	require.Len(t, resized.Buttons, 2)
	assert.Equal(t, "keep", resized.Buttons[0].ID)
	assert.Equal(t, "edge", resized.Buttons[1].ID)
}

func TestGetLayout_DefaultWhenUnsaved(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestLayoutService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")

	grid, err := svc.GetForDevice(ctx, "owner-1", device.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GridSize{Rows: 4, Cols: 3}, grid.GridSize)
	assert.Empty(t, grid.Buttons)
}

func TestSaveLayout_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestLayoutService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")

	grid := models.LayoutGrid{
		GridSize: models.GridSize{Rows: 5, Cols: 4},
		Buttons: []models.LayoutButton{
			gridButton("power", 0, 0),
			gridButton("mute", 0, 3),
		},
	}
	require.NoError(t, svc.Save(ctx, "owner-1", device.ID, grid))

	loaded, err := svc.GetForDevice(ctx, "owner-1", device.ID)
	require.NoError(t, err)
	assert.Equal(t, grid.GridSize, loaded.GridSize)
	require.Len(t, loaded.Buttons, 2)
	assert.Equal(t, "power", loaded.Buttons[0].ID)
	assert.Equal(t, "cmd-power", loaded.Buttons[0].CommandID)
}

func TestSaveLayout_UpsertsSingleRow(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestLayoutService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")

	first := models.LayoutGrid{GridSize: models.GridSize{Rows: 4, Cols: 3}}
	require.NoError(t, svc.Save(ctx, "owner-1", device.ID, first))

	second := models.LayoutGrid{
		GridSize: models.GridSize{Rows: 6, Cols: 2},
		Buttons:  []models.LayoutButton{gridButton("a", 5, 1)},
	}
	require.NoError(t, svc.Save(ctx, "owner-1", device.ID, second))

	var count int64
	require.NoError(t, s.DB().Model(&models.DeviceLayout{}).
		Where("device_id = ?", device.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	loaded, err := svc.GetForDevice(ctx, "owner-1", device.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GridSize{Rows: 6, Cols: 2}, loaded.GridSize)
}

func TestSaveLayout_RejectsInvalid(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestLayoutService(t, s)
	ctx := context.Background()

	device := createTestDevice(t, s, "owner-1")

	bad := models.LayoutGrid{
		GridSize: models.GridSize{Rows: 2, Cols: 2},
		Buttons: []models.LayoutButton{
			gridButton("a", 0, 0),
			gridButton("b", 0, 0),
		},
	}
	assert.ErrorIs(t, svc.Save(ctx, "owner-1", device.ID, bad), ErrButtonOverlap)

	// Nothing was persisted
	_, err := s.GetLayoutByDevice(device.ID)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestSaveLayout_WrongOwner(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestLayoutService(t, s)

	device := createTestDevice(t, s, "owner-1")
	err := svc.Save(context.Background(), "owner-2", device.ID, models.DefaultLayoutGrid())
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}
