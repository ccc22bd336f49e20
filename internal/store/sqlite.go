package store

import (
	"errors"
	"time"

	"github.com/jj-link/Pulsr/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.Claim{},
		&models.Device{},
		&models.IRCommand{},
		&models.DeviceLayout{},
		&models.QueueItem{},
		&models.AuditLog{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Claim operations

// CreateClaim persists a new pending claim
func (s *Store) CreateClaim(claim *models.Claim) error {
	return s.db.Create(claim).Error
}

// GetClaimByID retrieves a claim by primary key
func (s *Store) GetClaimByID(id string) (*models.Claim, error) {
	var claim models.Claim
	if err := s.db.Where("id = ?", id).First(&claim).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &claim, nil
}

// GetPendingClaimByCode retrieves the single pending claim matching the code.
// Consumed and expired claims never match, which is what makes a spent code
// unredeemable.
func (s *Store) GetPendingClaimByCode(code string) (*models.Claim, error) {
	var claim models.Claim
	err := s.db.
		Where("code = ? AND status = ?", code, models.ClaimStatusPending).
		Limit(1).
		First(&claim).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &claim, nil
}

// ListClaimsByOwner retrieves all claims issued by an owner, newest first
func (s *Store) ListClaimsByOwner(ownerID string) ([]models.Claim, error) {
	var claims []models.Claim
	if err := s.db.Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

// MarkClaimExpired transitions a claim from pending to expired. The WHERE
// status = 'pending' guard makes the transition race-safe; 0 rows updated
// means a concurrent request already moved the claim out of pending, and
// ErrClaimNotPending is returned.
func (s *Store) MarkClaimExpired(claimID string) error {
	res := s.db.Model(&models.Claim{}).
		Where("id = ? AND status = ?", claimID, models.ClaimStatusPending).
		Update("status", models.ClaimStatusExpired)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrClaimNotPending
	}
	return nil
}

// RedeemClaim consumes a pending claim and creates the device it provisioned,
// atomically. The claim update is conditional on status still being pending;
// only the request that wins that write creates a device. Everything runs in
// one transaction so a failed device insert rolls the consume back.
func (s *Store) RedeemClaim(claimID string, device *models.Device, consumedAt time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Claim{}).
			Where("id = ? AND status = ?", claimID, models.ClaimStatusPending).
			Updates(map[string]any{
				"status":      models.ClaimStatusConsumed,
				"consumed_at": consumedAt,
				"hardware_id": device.HardwareID,
				"device_id":   device.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrClaimNotPending
		}

		return tx.Create(device).Error
	})
}

// Device operations

func (s *Store) CreateDevice(device *models.Device) error {
	return s.db.Create(device).Error
}

func (s *Store) GetDevice(id string) (*models.Device, error) {
	var device models.Device
	if err := s.db.Where("id = ?", id).First(&device).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &device, nil
}

func (s *Store) ListDevicesByOwner(ownerID string) ([]models.Device, error) {
	var devices []models.Device
	if err := s.db.Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

func (s *Store) UpdateDevice(device *models.Device) error {
	return s.db.Save(device).Error
}

// DeleteDevice removes a device and everything hanging off it
func (s *Store) DeleteDevice(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", id).Delete(&models.IRCommand{}).Error; err != nil {
			return err
		}
		if err := tx.Where("device_id = ?", id).Delete(&models.DeviceLayout{}).Error; err != nil {
			return err
		}
		if err := tx.Where("device_id = ?", id).Delete(&models.QueueItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Device{}, "id = ?", id).Error
	})
}

// SetDeviceLearning flips the learning-mode flag
func (s *Store) SetDeviceLearning(id string, learning bool) error {
	return s.db.Model(&models.Device{}).
		Where("id = ?", id).
		Update("is_learning", learning).Error
}

// TouchDeviceLastSeen records a hardware heartbeat
func (s *Store) TouchDeviceLastSeen(id string, seenAt time.Time) error {
	return s.db.Model(&models.Device{}).
		Where("id = ?", id).
		Update("last_seen_at", seenAt).Error
}

// IR command operations

func (s *Store) CreateCommand(cmd *models.IRCommand) error {
	return s.db.Create(cmd).Error
}

func (s *Store) GetCommand(id string) (*models.IRCommand, error) {
	var cmd models.IRCommand
	if err := s.db.Where("id = ?", id).First(&cmd).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &cmd, nil
}

func (s *Store) ListCommandsByDevice(deviceID string) ([]models.IRCommand, error) {
	var cmds []models.IRCommand
	if err := s.db.Where("device_id = ?", deviceID).
		Order("captured_at ASC").
		Find(&cmds).Error; err != nil {
		return nil, err
	}
	return cmds, nil
}

func (s *Store) UpdateCommand(cmd *models.IRCommand) error {
	return s.db.Save(cmd).Error
}

func (s *Store) DeleteCommand(id string) error {
	return s.db.Delete(&models.IRCommand{}, "id = ?", id).Error
}

// Layout operations

func (s *Store) GetLayoutByDevice(deviceID string) (*models.DeviceLayout, error) {
	var layout models.DeviceLayout
	if err := s.db.Where("device_id = ?", deviceID).First(&layout).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &layout, nil
}

// SaveLayout upserts the single layout row of a device
func (s *Store) SaveLayout(layout *models.DeviceLayout) error {
	var existing models.DeviceLayout
	err := s.db.Where("device_id = ?", layout.DeviceID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(layout).Error
	}
	if err != nil {
		return err
	}
	layout.ID = existing.ID
	layout.CreatedAt = existing.CreatedAt
	return s.db.Save(layout).Error
}

// Queue operations

func (s *Store) EnqueueItem(item *models.QueueItem) error {
	return s.db.Create(item).Error
}

func (s *Store) GetQueueItem(id string) (*models.QueueItem, error) {
	var item models.QueueItem
	if err := s.db.Where("id = ?", id).First(&item).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &item, nil
}

func (s *Store) ListQueueByDevice(deviceID string) ([]models.QueueItem, error) {
	var items []models.QueueItem
	if err := s.db.Where("device_id = ?", deviceID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// OldestPendingQueueItem returns the next item the hardware should transmit
func (s *Store) OldestPendingQueueItem(deviceID string) (*models.QueueItem, error) {
	var item models.QueueItem
	err := s.db.
		Where("device_id = ? AND status = ?", deviceID, models.QueueStatusPending).
		Order("created_at ASC").
		Limit(1).
		First(&item).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &item, nil
}

// TakeQueueItem moves an item from pending to processing. Conditional on the
// item still being pending, so two pollers cannot take the same item.
func (s *Store) TakeQueueItem(id string) error {
	res := s.db.Model(&models.QueueItem{}).
		Where("id = ? AND status = ?", id, models.QueueStatusPending).
		Update("status", models.QueueStatusProcessing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrQueueItemTaken
	}
	return nil
}

// FinishQueueItem records the transmit outcome reported by the hardware
func (s *Store) FinishQueueItem(id string, status models.QueueStatus, errMsg string, processedAt time.Time) error {
	res := s.db.Model(&models.QueueItem{}).
		Where("id = ? AND status = ?", id, models.QueueStatusProcessing).
		Updates(map[string]any{
			"status":       status,
			"error":        errMsg,
			"processed_at": processedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrQueueItemTaken
	}
	return nil
}

// CountPendingQueueItems reports queue depth across all devices (for metrics)
func (s *Store) CountPendingQueueItems() (int64, error) {
	var count int64
	err := s.db.Model(&models.QueueItem{}).
		Where("status = ?", models.QueueStatusPending).
		Count(&count).Error
	return count, err
}

// Audit log operations

// CreateAuditLogBatch persists a flushed batch of audit entries
func (s *Store) CreateAuditLogBatch(logs []*models.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	return s.db.Create(logs).Error
}

// ListAuditLogsByResource retrieves audit entries for one resource, newest first
func (s *Store) ListAuditLogsByResource(resourceType models.ResourceType, resourceID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := s.db.
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("event_time DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// ListAuditLogs retrieves a filtered page of audit entries, newest first
func (s *Store) ListAuditLogs(filters AuditLogFilters, p PaginationParams) ([]models.AuditLog, PaginationResult, error) {
	query := s.db.Model(&models.AuditLog{})

	if filters.EventType != "" {
		query = query.Where("event_type = ?", filters.EventType)
	}
	if filters.ActorOwnerID != "" {
		query = query.Where("actor_owner_id = ?", filters.ActorOwnerID)
	}
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.ResourceID != "" {
		query = query.Where("resource_id = ?", filters.ResourceID)
	}
	if filters.Severity != "" {
		query = query.Where("severity = ?", filters.Severity)
	}
	if filters.Success != nil {
		query = query.Where("success = ?", *filters.Success)
	}
	if !filters.StartTime.IsZero() {
		query = query.Where("event_time >= ?", filters.StartTime)
	}
	if !filters.EndTime.IsZero() {
		query = query.Where("event_time <= ?", filters.EndTime)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	var logs []models.AuditLog
	if err := query.
		Order("event_time DESC").
		Offset(p.offset()).
		Limit(p.PageSize).
		Find(&logs).Error; err != nil {
		return nil, PaginationResult{}, err
	}
	return logs, calculatePagination(total, p), nil
}

// Health checks the database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DB returns the underlying GORM database connection (for transactions)
func (s *Store) DB() *gorm.DB {
	return s.db
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}
