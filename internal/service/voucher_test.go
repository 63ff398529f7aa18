package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/models"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

func TestGenerateCodeFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateCode()
		assert.Regexp(t, `^RM-[0-9A-F]{8}-[0-9A-F]{8}$`, code)
		assert.False(t, seen[code], "codes must not repeat")
		seen[code] = true
	}
}

// confirmWithVoucher seeds a confirmed reservation with an issued voucher.
func confirmWithVoucher(t *testing.T, store *fakeStore, svc *VoucherService, date, horario string) (*models.Reservation, *models.Voucher) {
	t.Helper()
	r := seedReservation(store, models.ReservationStatusPending, date, horario, 4, 5)
	voucher := svc.NewVoucherFor(r)
	ok, err := store.ConfirmReservationTx(context.Background(), r.ID, voucher)
	require.NoError(t, err)
	require.True(t, ok)
	return r, voucher
}

func TestRedeemVoucher(t *testing.T) {
	store := newFakeStore()
	svc := NewVoucherService(store, testBusinessConfig())

	date := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	_, voucher := confirmWithVoucher(t, store, svc, date, "19:00")

	details, err := svc.Redeem(context.Background(), voucher.Codigo)
	require.NoError(t, err)
	assert.True(t, details.Voucher.Utilizado)
	require.NotNil(t, details.Voucher.DataUtilizacao)
	require.NotNil(t, details.Reservation)

	// Second redemption of the same code fails.
	_, err = svc.Redeem(context.Background(), voucher.Codigo)
	assert.ErrorIs(t, err, util.ErrVoucherUsed)
}

func TestRedeemConcurrentSingleWinner(t *testing.T) {
	store := newFakeStore()
	svc := NewVoucherService(store, testBusinessConfig())

	date := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	_, voucher := confirmWithVoucher(t, store, svc, date, "19:00")

	const attempts = 20
	var wg sync.WaitGroup
	var wins, losses int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(context.Background(), voucher.Codigo)
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, util.ErrVoucherUsed):
				atomic.AddInt32(&losses, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins, "exactly one redemption succeeds")
	assert.EqualValues(t, attempts-1, losses)

	stored, err := store.GetVoucherByCodigo(context.Background(), voucher.Codigo)
	require.NoError(t, err)
	assert.True(t, stored.Utilizado)
}

func TestRedeemNormalizesCode(t *testing.T) {
	store := newFakeStore()
	svc := NewVoucherService(store, testBusinessConfig())

	date := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	_, voucher := confirmWithVoucher(t, store, svc, date, "19:00")

	details, err := svc.Redeem(context.Background(), "  "+strings.ToLower(voucher.Codigo)+" ")
	require.NoError(t, err)
	assert.Equal(t, voucher.Codigo, details.Voucher.Codigo)
}

func TestRedeemUnknownCode(t *testing.T) {
	store := newFakeStore()
	svc := NewVoucherService(store, testBusinessConfig())

	_, err := svc.Redeem(context.Background(), "RM-DEADBEEF-DEADBEEF")
	assert.ErrorIs(t, err, util.ErrVoucherNotFound)
}

func TestRedeemWithinGraceAfterSlot(t *testing.T) {
	store := newFakeStore()
	svc := NewVoucherService(store, testBusinessConfig())

	slot := time.Date(2026, 9, 15, 19, 0, 0, 0, time.Local)
	_, voucher := confirmWithVoucher(t, store, svc, "2026-09-15", "19:00")

	// Two hours after the reserved slot: still inside the grace window.
	svc.now = func() time.Time { return slot.Add(2 * time.Hour) }
	_, err := svc.Redeem(context.Background(), voucher.Codigo)
	assert.NoError(t, err)
}

func TestRedeemExpiredAfterGrace(t *testing.T) {
	store := newFakeStore()
	svc := NewVoucherService(store, testBusinessConfig())

	slot := time.Date(2026, 9, 15, 19, 0, 0, 0, time.Local)
	_, voucher := confirmWithVoucher(t, store, svc, "2026-09-15", "19:00")

	svc.now = func() time.Time { return slot.Add(4 * time.Hour) }
	_, err := svc.Redeem(context.Background(), voucher.Codigo)
	assert.ErrorIs(t, err, util.ErrVoucherExpired)

	// Expired vouchers stay unredeemed.
	stored, err := store.GetVoucherByCodigo(context.Background(), voucher.Codigo)
	require.NoError(t, err)
	assert.False(t, stored.Utilizado)
}

func TestVoucherStats(t *testing.T) {
	store := newFakeStore()
	svc := NewVoucherService(store, testBusinessConfig())

	_, first := confirmWithVoucher(t, store, svc, time.Now().AddDate(0, 0, 7).Format("2006-01-02"), "19:00")
	confirmWithVoucher(t, store, svc, time.Now().AddDate(0, 0, 8).Format("2006-01-02"), "19:00")

	_, err := svc.Redeem(context.Background(), first.Codigo)
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.Redeemed)
}

func TestGetVoucherDetails(t *testing.T) {
	store := newFakeStore()
	svc := NewVoucherService(store, testBusinessConfig())

	_, voucher := confirmWithVoucher(t, store, svc, "2026-09-15", "19:00")

	details, err := svc.Get(context.Background(), voucher.Codigo)
	require.NoError(t, err)
	require.NotNil(t, details.Reservation)

	slot := time.Date(2026, 9, 15, 19, 0, 0, 0, time.Local)
	assert.Equal(t, slot.Add(3*time.Hour), details.ExpiresAt)

	_, err = svc.Get(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, util.KindValidation, util.AsAppError(err).Kind)
}
