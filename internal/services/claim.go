package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jj-link/Pulsr/internal/config"
	"github.com/jj-link/Pulsr/internal/metrics"
	"github.com/jj-link/Pulsr/internal/models"
	"github.com/jj-link/Pulsr/internal/store"

	"github.com/google/uuid"
)

var (
	ErrOwnerRequired      = errors.New("owner id is required")
	ErrClaimCodeRequired  = errors.New("claim code is required")
	ErrHardwareIDRequired = errors.New("hardware id is required")
	ErrClaimNotFound      = errors.New("invalid or already-used claim code")
	ErrClaimExpired       = errors.New("claim code has expired")
)

const (
	// ClaimCodePrefix is prepended to every generated claim code.
	ClaimCodePrefix = "PULSR-"

	// claimCodeAlphabet avoids visually ambiguous characters: 0, O, 1, I
	claimCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	claimCodeLength   = 4

	// DeviceNamePrefix is used when the redeeming caller supplies no name.
	DeviceNamePrefix = "Pulsr-"
)

// ClaimService mints device claim codes and redeems them into devices
type ClaimService struct {
	store   *store.Store
	config  *config.Config
	audit   *AuditService
	metrics metrics.Recorder
}

func NewClaimService(
	s *store.Store,
	cfg *config.Config,
	audit *AuditService,
	rec metrics.Recorder,
) *ClaimService {
	return &ClaimService{store: s, config: cfg, audit: audit, metrics: rec}
}

// RedeemResult is what a successful redemption reports back to the hardware
type RedeemResult struct {
	DeviceID string
	OwnerID  string
	Status   models.ClaimStatus
}

// Create mints a new pending claim for the given owner.
// The code is NOT checked for uniqueness against existing pending claims:
// the 32^4 space makes a live collision unlikely, and the short TTL bounds
// how long two identical pending codes could coexist.
func (s *ClaimService) Create(ownerID string) (*models.Claim, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	now := time.Now()
	claim := &models.Claim{
		ID:        uuid.New().String(),
		Code:      generateClaimCode(),
		OwnerID:   ownerID,
		Status:    models.ClaimStatusPending,
		ExpiresAt: now.Add(s.config.ClaimTTL),
		CreatedAt: now,
	}

	if err := s.store.CreateClaim(claim); err != nil {
		s.metrics.RecordClaimIssued(false)
		s.metrics.RecordDatabaseQueryError("create_claim")
		return nil, fmt.Errorf("failed to create claim: %w", err)
	}

	s.metrics.RecordClaimIssued(true)
	if s.audit != nil {
		s.audit.Log(AuditLogEntry{
			EventType:    models.EventClaimIssued,
			Severity:     models.SeverityInfo,
			ActorOwnerID: ownerID,
			ResourceType: models.ResourceClaim,
			ResourceID:   claim.ID,
			Action:       "Claim code issued",
			Details: models.AuditDetails{
				"expires_at": claim.ExpiresAt.Format(time.RFC3339),
			},
			Success: true,
		})
	}

	return claim, nil
}

// GetByOwner lists the claims an owner has issued, newest first
func (s *ClaimService) GetByOwner(ownerID string) ([]models.Claim, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	return s.store.ListClaimsByOwner(ownerID)
}

// Redeem consumes a pending claim and provisions the device it was issued
// for. The claim is consumed with a status-guarded conditional write BEFORE
// the device row exists; a lost race reads exactly like an unknown code, and
// the device insert shares the transaction so no orphan is left behind.
func (s *ClaimService) Redeem(claimCode, hardwareID, deviceName string) (*RedeemResult, error) {
	if strings.TrimSpace(claimCode) == "" {
		return nil, ErrClaimCodeRequired
	}
	if strings.TrimSpace(hardwareID) == "" {
		return nil, ErrHardwareIDRequired
	}

	// Codes are typed by humans; match case-insensitively
	code := strings.ToUpper(strings.TrimSpace(claimCode))

	claim, err := s.store.GetPendingClaimByCode(code)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			s.metrics.RecordClaimRedemption(metrics.RedemptionNotFound)
			s.logRedeemFailure(code, hardwareID, ErrClaimNotFound)
			return nil, ErrClaimNotFound
		}
		s.metrics.RecordClaimRedemption(metrics.RedemptionError)
		s.metrics.RecordDatabaseQueryError("get_pending_claim")
		return nil, fmt.Errorf("failed to look up claim: %w", err)
	}

	// Lazy expiry: the expired transition is persisted here, at redemption
	// time. A later retry with the same code then reports not-found.
	if claim.IsExpired() {
		if err := s.store.MarkClaimExpired(claim.ID); err != nil &&
			!errors.Is(err, store.ErrClaimNotPending) {
			s.metrics.RecordClaimRedemption(metrics.RedemptionError)
			s.metrics.RecordDatabaseQueryError("mark_claim_expired")
			return nil, fmt.Errorf("failed to expire claim: %w", err)
		}
		s.metrics.RecordClaimRedemption(metrics.RedemptionExpired)
		if s.audit != nil {
			s.audit.Log(AuditLogEntry{
				EventType:    models.EventClaimExpired,
				Severity:     models.SeverityWarning,
				ActorOwnerID: claim.OwnerID,
				ResourceType: models.ResourceClaim,
				ResourceID:   claim.ID,
				Action:       "Claim code expired at redemption",
				Details:      models.AuditDetails{"hardware_id": hardwareID},
				Success:      false,
				ErrorMessage: ErrClaimExpired.Error(),
			})
		}
		return nil, ErrClaimExpired
	}

	name := strings.TrimSpace(deviceName)
	if name == "" {
		name = DeviceNamePrefix + hardwareID
	}

	now := time.Now()
	device := &models.Device{
		ID:         uuid.New().String(),
		OwnerID:    claim.OwnerID,
		Name:       name,
		HardwareID: hardwareID,
		IsLearning: false,
		LastSeenAt: now,
		CreatedAt:  now,
	}

	if err := s.store.RedeemClaim(claim.ID, device, now); err != nil {
		if errors.Is(err, store.ErrClaimNotPending) {
			// A concurrent redemption won the conditional write. Indistinguishable
			// from a code that was never valid, and reported the same way.
			s.metrics.RecordClaimRedemption(metrics.RedemptionNotFound)
			s.logRedeemFailure(code, hardwareID, ErrClaimNotFound)
			return nil, ErrClaimNotFound
		}
		s.metrics.RecordClaimRedemption(metrics.RedemptionError)
		s.metrics.RecordDatabaseQueryError("redeem_claim")
		return nil, fmt.Errorf("failed to redeem claim: %w", err)
	}

	s.metrics.RecordClaimRedemption(metrics.RedemptionConsumed)
	s.metrics.RecordDeviceProvisioned()
	if s.audit != nil {
		s.audit.Log(AuditLogEntry{
			EventType:    models.EventClaimRedeemed,
			Severity:     models.SeverityInfo,
			ActorOwnerID: claim.OwnerID,
			ResourceType: models.ResourceClaim,
			ResourceID:   claim.ID,
			Action:       "Claim code redeemed",
			Details: models.AuditDetails{
				"hardware_id": hardwareID,
				"device_id":   device.ID,
			},
			Success: true,
		})
		s.audit.Log(AuditLogEntry{
			EventType:    models.EventDeviceProvisioned,
			Severity:     models.SeverityInfo,
			ActorOwnerID: claim.OwnerID,
			ResourceType: models.ResourceDevice,
			ResourceID:   device.ID,
			ResourceName: device.Name,
			Action:       "Device provisioned",
			Details:      models.AuditDetails{"hardware_id": hardwareID},
			Success:      true,
		})
	}

	return &RedeemResult{
		DeviceID: device.ID,
		OwnerID:  claim.OwnerID,
		Status:   models.ClaimStatusConsumed,
	}, nil
}

func (s *ClaimService) logRedeemFailure(code, hardwareID string, cause error) {
	if s.audit == nil {
		return
	}
	s.audit.Log(AuditLogEntry{
		EventType:    models.EventClaimRejected,
		Severity:     models.SeverityWarning,
		ResourceType: models.ResourceClaim,
		ResourceName: code,
		Action:       "Claim redemption rejected",
		Details:      models.AuditDetails{"hardware_id": hardwareID},
		Success:      false,
		ErrorMessage: cause.Error(),
	})
}

// generateClaimCode creates a human-typeable code like "PULSR-9QXK"
func generateClaimCode() string {
	code := make([]byte, claimCodeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(claimCodeAlphabet))))
		code[i] = claimCodeAlphabet[n.Int64()]
	}
	return ClaimCodePrefix + string(code)
}
