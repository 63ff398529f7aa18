package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferramentastecnologia/rosamexicano-reservas/config"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/models"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/tables"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

func testBusinessConfig() config.BusinessConfig {
	return config.BusinessConfig{
		DepositAmount:           50,
		TimeSlots:               []string{"18:00", "18:30", "19:00", "19:30"},
		PendingTTL:              10 * time.Minute,
		SweepInterval:           time.Minute,
		VoucherGrace:            3 * time.Hour,
		VoucherFallbackValidity: 30 * 24 * time.Hour,
		Occupancy:               config.OccupancyPendingConfirmed,
	}
}

func seedReservation(store *fakeStore, status, date, horario string, people int, tableNums ...int) *models.Reservation {
	paymentID := "pay_" + uuid.New().String()[:8]
	r := &models.Reservation{
		ID:                uuid.New().String(),
		PaymentID:         &paymentID,
		ExternalRef:       "RES-" + uuid.New().String()[:10],
		Nome:              "Cliente Teste",
		Email:             "cliente@example.com",
		Telefone:          "85988887777",
		Data:              date,
		Horario:           horario,
		NumeroPessoas:     people,
		Valor:             50,
		Status:            status,
		MesasSelecionadas: models.TableSet(tableNums),
	}
	_ = store.CreateReservation(context.Background(), r)
	return r
}

func TestAvailableTablesBlocksPendingAndConfirmed(t *testing.T) {
	store := newFakeStore()
	svc := NewAvailabilityService(store, tables.Default(), testBusinessConfig())

	seedReservation(store, models.ReservationStatusPending, "2026-09-15", "19:00", 4, 5)
	seedReservation(store, models.ReservationStatusConfirmed, "2026-09-15", "18:00", 2, 26)
	seedReservation(store, models.ReservationStatusCancelled, "2026-09-15", "19:00", 4, 40)

	view, err := svc.AvailableTables(context.Background(), "2026-09-15", "", "")
	require.NoError(t, err)

	assert.Equal(t, 49, view.Summary.TotalTables)
	assert.Equal(t, 2, view.Summary.OccupiedTables)
	assert.Equal(t, 47, view.Summary.AvailableTables)
	assert.Equal(t, 6, view.Summary.TotalPeople)

	byNumber := make(map[int]TableStatus)
	for _, ts := range view.Tables {
		byNumber[ts.Number] = ts
	}
	assert.True(t, byNumber[5].Occupied)
	require.NotNil(t, byNumber[5].Reservation)
	assert.Equal(t, 4, byNumber[5].Reservation.People)
	assert.True(t, byNumber[26].Occupied)
	assert.False(t, byNumber[40].Occupied, "cancelled reservations release their tables")
}

func TestAvailableTablesConfirmedOnlyPolicy(t *testing.T) {
	store := newFakeStore()
	cfg := testBusinessConfig()
	cfg.Occupancy = config.OccupancyConfirmedOnly
	svc := NewAvailabilityService(store, tables.Default(), cfg)

	seedReservation(store, models.ReservationStatusPending, "2026-09-15", "19:00", 4, 5)
	seedReservation(store, models.ReservationStatusConfirmed, "2026-09-15", "19:00", 2, 26)

	view, err := svc.AvailableTables(context.Background(), "2026-09-15", "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, view.Summary.OccupiedTables)
	assert.Equal(t, 2, view.Summary.TotalPeople)
}

func TestAvailableTablesByArea(t *testing.T) {
	store := newFakeStore()
	svc := NewAvailabilityService(store, tables.Default(), testBusinessConfig())

	view, err := svc.AvailableTables(context.Background(), "2026-09-15", "", tables.AreaExterna)
	require.NoError(t, err)
	assert.Equal(t, 15, view.Summary.TotalTables)
	for _, ts := range view.Tables {
		assert.Equal(t, tables.AreaExterna, ts.Area)
	}

	_, err = svc.AvailableTables(context.Background(), "2026-09-15", "", "rooftop")
	require.Error(t, err)
	assert.Equal(t, util.KindValidation, util.AsAppError(err).Kind)
}

func TestAvailableTablesFailOpen(t *testing.T) {
	store := newFakeStore()
	store.failReads = errStoreDown

	cfg := testBusinessConfig()
	cfg.AvailabilityFailOpen = true
	svc := NewAvailabilityService(store, tables.Default(), cfg)

	view, err := svc.AvailableTables(context.Background(), "2026-09-15", "", "")
	require.NoError(t, err)
	assert.True(t, view.Summary.Degraded)
	assert.Equal(t, 49, view.Summary.AvailableTables)
	assert.Zero(t, view.Summary.OccupiedTables)
}

func TestAvailableTablesFailClosed(t *testing.T) {
	store := newFakeStore()
	store.failReads = errStoreDown

	svc := NewAvailabilityService(store, tables.Default(), testBusinessConfig())

	_, err := svc.AvailableTables(context.Background(), "2026-09-15", "", "")
	require.Error(t, err)
	assert.Equal(t, util.KindInternal, util.AsAppError(err).Kind)
}

func TestCheckAvailability(t *testing.T) {
	store := newFakeStore()
	svc := NewAvailabilityService(store, tables.Default(), testBusinessConfig())

	seedReservation(store, models.ReservationStatusConfirmed, "2026-09-15", "19:00", 200, 16)

	check, err := svc.CheckAvailability(context.Background(), "2026-09-15", "19:00", 10)
	require.NoError(t, err)
	assert.False(t, check.Available)
	assert.Equal(t, 208, check.Capacity.MaxCapacity)
	assert.Equal(t, 200, check.Capacity.Reserved)
	assert.Equal(t, 8, check.Capacity.Available)

	check, err = svc.CheckAvailability(context.Background(), "2026-09-15", "19:00", 5)
	require.NoError(t, err)
	assert.True(t, check.Available)
	assert.Equal(t, 2, check.Tables.Needed)
}

func TestCheckAvailabilityValidation(t *testing.T) {
	store := newFakeStore()
	svc := NewAvailabilityService(store, tables.Default(), testBusinessConfig())

	_, err := svc.CheckAvailability(context.Background(), "2026-09-15", "20:00", 4)
	require.Error(t, err)
	assert.Equal(t, util.KindValidation, util.AsAppError(err).Kind)

	_, err = svc.CheckAvailability(context.Background(), "15/09/2026", "19:00", 4)
	require.Error(t, err)

	_, err = svc.CheckAvailability(context.Background(), "2026-09-15", "19:00", 0)
	require.Error(t, err)
}
