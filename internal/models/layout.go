package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// GridSize is the button grid dimensions of a layout.
type GridSize struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// ButtonPosition is a zero-based grid cell.
type ButtonPosition struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// ButtonSize is the footprint of a button in grid cells.
type ButtonSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// LayoutButton maps a grid cell to a captured IR command.
type LayoutButton struct {
	ID        string         `json:"id"`
	CommandID string         `json:"command_id"`
	Label     string         `json:"label"`
	Position  ButtonPosition `json:"position"`
	Size      ButtonSize     `json:"size"`
}

// LayoutGrid is the button arrangement stored as a JSON column.
type LayoutGrid struct {
	GridSize GridSize       `json:"grid_size"`
	Buttons  []LayoutButton `json:"buttons"`
}

// Value implements the driver.Valuer interface for database storage
func (g LayoutGrid) Value() (driver.Value, error) {
	return json.Marshal(g)
}

// Scan implements the sql.Scanner interface for database retrieval
func (g *LayoutGrid) Scan(value any) error {
	if value == nil {
		*g = LayoutGrid{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal LayoutGrid value: %v", value)
	}

	return json.Unmarshal(bytes, g)
}

// DeviceLayout is the per-device remote layout. One row per device.
type DeviceLayout struct {
	ID        string     `gorm:"primaryKey" json:"id"`
	DeviceID  string     `gorm:"uniqueIndex;not null" json:"device_id"`
	Grid      LayoutGrid `gorm:"type:json" json:"grid"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// DefaultGridRows/Cols match the designer's initial grid.
const (
	DefaultGridRows = 4
	DefaultGridCols = 3
)

// DefaultLayoutGrid returns an empty grid with the default dimensions.
func DefaultLayoutGrid() LayoutGrid {
	return LayoutGrid{
		GridSize: GridSize{Rows: DefaultGridRows, Cols: DefaultGridCols},
		Buttons:  []LayoutButton{},
	}
}
