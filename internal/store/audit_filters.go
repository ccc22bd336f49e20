package store

import (
	"time"

	"github.com/jj-link/Pulsr/internal/models"
)

// AuditLogFilters narrows an audit log query. Zero values mean "any".
type AuditLogFilters struct {
	EventType    models.EventType
	ActorOwnerID string
	ResourceType models.ResourceType
	ResourceID   string
	Severity     models.EventSeverity
	Success      *bool
	StartTime    time.Time
	EndTime      time.Time
}
