package services

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jj-link/Pulsr/internal/config"
	"github.com/jj-link/Pulsr/internal/metrics"
	"github.com/jj-link/Pulsr/internal/models"
	"github.com/jj-link/Pulsr/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *store.Store {
	// Use in-memory SQLite database for testing
	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)
	return s
}

func newTestClaimService(t *testing.T, s *store.Store) *ClaimService {
	t.Helper()
	cfg := &config.Config{ClaimTTL: 24 * time.Hour}
	return NewClaimService(s, cfg, nil, metrics.NewNoopMetrics())
}

func TestCreateClaim_CodeFormat(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestClaimService(t, s)

	codeFormat := regexp.MustCompile(`^PULSR-[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{4}$`)
	for range 20 {
		claim, err := svc.Create("owner-1")
		require.NoError(t, err)
		assert.Regexp(t, codeFormat, claim.Code)
	}
}

func TestCreateClaim_Fields(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestClaimService(t, s)

	claim, err := svc.Create("owner-1")
	require.NoError(t, err)

	assert.NotEmpty(t, claim.ID)
	assert.Equal(t, "owner-1", claim.OwnerID)
	assert.Equal(t, models.ClaimStatusPending, claim.Status)
	assert.Nil(t, claim.ConsumedAt)
	assert.Nil(t, claim.HardwareID)
	assert.Nil(t, claim.DeviceID)
	assert.WithinDuration(t, claim.CreatedAt.Add(24*time.Hour), claim.ExpiresAt, time.Second)

	stored, err := s.GetClaimByID(claim.ID)
	require.NoError(t, err)
	assert.Equal(t, claim.Code, stored.Code)
}

func TestCreateClaim_MissingOwner(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestClaimService(t, s)

	_, err := svc.Create("")
	assert.ErrorIs(t, err, ErrOwnerRequired)
}

func TestRedeemClaim_Success(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestClaimService(t, s)

	claim, err := svc.Create("owner-1")
	require.NoError(t, err)

	result, err := svc.Redeem(claim.Code, "esp32-001", "")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", result.OwnerID)
	assert.Equal(t, models.ClaimStatusConsumed, result.Status)
	assert.NotEmpty(t, result.DeviceID)

	// Consumed claim carries the back-references to its redemption
	stored, err := s.GetClaimByID(claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusConsumed, stored.Status)
	require.NotNil(t, stored.ConsumedAt)
	require.NotNil(t, stored.HardwareID)
	require.NotNil(t, stored.DeviceID)
	assert.Equal(t, "esp32-001", *stored.HardwareID)
	assert.Equal(t, result.DeviceID, *stored.DeviceID)

	device, err := s.GetDevice(result.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", device.OwnerID)
	assert.Equal(t, "esp32-001", device.HardwareID)
	assert.Equal(t, "Pulsr-esp32-001", device.Name)
	assert.False(t, device.IsLearning)
}

func TestRedeemClaim_CustomDeviceName(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestClaimService(t, s)

	claim, err := svc.Create("owner-1")
	require.NoError(t, err)

	result, err := svc.Redeem(claim.Code, "esp32-002", "Living Room")
	require.NoError(t, err)

	device, err := s.GetDevice(result.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, "Living Room", device.Name)
}

func TestRedeemClaim_CaseInsensitive(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestClaimService(t, s)

	claim, err := svc.Create("owner-1")
	require.NoError(t, err)

	_, err = svc.Redeem("  "+strings.ToLower(claim.Code)+"  ", "esp32-003", "")
	require.NoError(t, err)
}

func TestRedeemClaim_UnknownCode(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestClaimService(t, s)

	_, err := svc.Redeem("PULSR-ZZZZ", "esp32-001", "")
	assert.ErrorIs(t, err, ErrClaimNotFound)
}

func TestRedeemClaim_ExactlyOnce(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestClaimService(t, s)

	claim, err := svc.Create("owner-1")
	require.NoError(t, err)

	_, err = svc.Redeem(claim.Code, "esp32-001", "")
	require.NoError(t, err)

	// Second attempt is indistinguishable from an unknown code
	_, err = svc.Redeem(claim.Code, "esp32-002", "")
	assert.ErrorIs(t, err, ErrClaimNotFound)

	devices, err := s.ListDevicesByOwner("owner-1")
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestRedeemClaim_Expired(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestClaimService(t, s)

	claim, err := svc.Create("owner-1")
	require.NoError(t, err)

	// Push the deadline into the past
	err = s.DB().Model(&models.Claim{}).
		Where("id = ?", claim.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error
	require.NoError(t, err)

	_, err = svc.Redeem(claim.Code, "esp32-001", "")
	assert.ErrorIs(t, err, ErrClaimExpired)

	// The expired transition is persisted, so a retry reports not-found
	stored, err := s.GetClaimByID(claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusExpired, stored.Status)

	_, err = svc.Redeem(claim.Code, "esp32-001", "")
	assert.ErrorIs(t, err, ErrClaimNotFound)
}

func TestRedeemClaim_MissingArguments(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestClaimService(t, s)

	_, err := svc.Redeem("", "esp32-001", "")
	assert.ErrorIs(t, err, ErrClaimCodeRequired)

	_, err = svc.Redeem("PULSR-ABCD", "", "")
	assert.ErrorIs(t, err, ErrHardwareIDRequired)
}

func TestGetClaimsByOwner(t *testing.T) {
	s := setupTestStore(t)
	svc := newTestClaimService(t, s)

	_, err := svc.Create("owner-1")
	require.NoError(t, err)
	_, err = svc.Create("owner-1")
	require.NoError(t, err)
	_, err = svc.Create("owner-2")
	require.NoError(t, err)

	claims, err := svc.GetByOwner("owner-1")
	require.NoError(t, err)
	assert.Len(t, claims, 2)

	_, err = svc.GetByOwner("")
	assert.ErrorIs(t, err, ErrOwnerRequired)
}
