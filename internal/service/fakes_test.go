package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/gateway"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/models"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

// fakeStore is an in-memory stand-in for the postgres store with the same
// transition semantics: conditional updates, claim uniqueness per
// (data, table), one voucher per reservation.
type fakeStore struct {
	mu           sync.Mutex
	reservations map[string]*models.Reservation
	vouchers     map[string]*models.Voucher // by codigo
	claims       map[string]string          // "data/table" -> reservation id
	admins       map[string]*models.Admin   // by id
	failReads    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reservations: make(map[string]*models.Reservation),
		vouchers:     make(map[string]*models.Voucher),
		claims:       make(map[string]string),
		admins:       make(map[string]*models.Admin),
	}
}

func claimKey(data string, table int) string {
	return fmt.Sprintf("%s/%d", data, table)
}

func (f *fakeStore) CreateReservation(ctx context.Context, r *models.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.PaymentID != nil {
		for _, existing := range f.reservations {
			if existing.PaymentID != nil && *existing.PaymentID == *r.PaymentID {
				return util.Conflict("a reservation already exists for this charge")
			}
		}
	}
	cp := *r
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.reservations[r.ID] = &cp
	r.CreatedAt = cp.CreatedAt
	r.UpdatedAt = cp.UpdatedAt
	return nil
}

func (f *fakeStore) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return nil, util.ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) GetReservationByPaymentID(ctx context.Context, paymentID string) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reservations {
		if r.PaymentID != nil && *r.PaymentID == paymentID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListReservations(ctx context.Context, status string, limit, offset int) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reservation
	for _, r := range f.reservations {
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListReservationsForDate(ctx context.Context, date string, statuses []string) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads != nil {
		return nil, f.failReads
	}
	var out []models.Reservation
	for _, r := range f.reservations {
		if r.Data == date && containsStatus(statuses, r.Status) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) CountPeopleForSlot(ctx context.Context, date, horario string, statuses []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads != nil {
		return 0, f.failReads
	}
	total := 0
	for _, r := range f.reservations {
		if r.Data == date && r.Horario == horario && containsStatus(statuses, r.Status) {
			total += r.NumeroPessoas
		}
	}
	return total, nil
}

func (f *fakeStore) ListStalePending(ctx context.Context, cutoff time.Time) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reservation
	for _, r := range f.reservations {
		if r.Status == models.ReservationStatusPending && r.CreatedAt.Before(cutoff) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) CancelPendingReservation(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok || r.Status != models.ReservationStatusPending {
		return false, nil
	}
	r.Status = models.ReservationStatusCancelled
	return true, nil
}

func (f *fakeStore) ConfirmReservationTx(ctx context.Context, reservationID string, voucher *models.Voucher) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[reservationID]
	if !ok {
		return false, util.ErrReservationNotFound
	}
	if r.Status != models.ReservationStatusPending {
		return false, nil
	}
	for _, table := range r.MesasSelecionadas {
		if _, taken := f.claims[claimKey(r.Data, table)]; taken {
			return false, util.ErrTableTaken
		}
	}
	if _, dup := f.vouchers[voucher.Codigo]; dup {
		return false, util.Conflict("voucher already issued for reservation")
	}
	for _, table := range r.MesasSelecionadas {
		f.claims[claimKey(r.Data, table)] = reservationID
	}
	r.Status = models.ReservationStatusConfirmed
	cp := *voucher
	cp.ReservationID = reservationID
	f.vouchers[voucher.Codigo] = &cp
	return true, nil
}

func (f *fakeStore) RefundReservationTx(ctx context.Context, reservationID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[reservationID]
	if !ok {
		return false, nil
	}
	if r.Status != models.ReservationStatusConfirmed && r.Status != models.ReservationStatusApproved {
		return false, nil
	}
	r.Status = models.ReservationStatusRefunded
	for key, owner := range f.claims {
		if owner == reservationID {
			delete(f.claims, key)
		}
	}
	return true, nil
}

func (f *fakeStore) TransitionReservation(ctx context.Context, id, fromStatus, toStatus string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok || r.Status != fromStatus {
		return false, nil
	}
	r.Status = toStatus
	return true, nil
}

func (f *fakeStore) GetReservationStats(ctx context.Context) (*models.ReservationStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &models.ReservationStats{}
	for _, r := range f.reservations {
		stats.Total++
		switch r.Status {
		case models.ReservationStatusPending:
			stats.Pending++
		case models.ReservationStatusConfirmed:
			stats.Confirmed++
		case models.ReservationStatusApproved:
			stats.Approved++
		case models.ReservationStatusCancelled:
			stats.Cancelled++
		case models.ReservationStatusRefunded:
			stats.Refunded++
		case models.ReservationStatusRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}

func (f *fakeStore) GetVoucherByCodigo(ctx context.Context, codigo string) (*models.Voucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vouchers[codigo]
	if !ok {
		return nil, util.ErrVoucherNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStore) GetVoucherByReservationID(ctx context.Context, reservationID string) (*models.Voucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vouchers {
		if v.ReservationID == reservationID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) RedeemVoucher(ctx context.Context, codigo string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vouchers[codigo]
	if !ok || v.Utilizado {
		return false, nil
	}
	v.Utilizado = true
	v.DataUtilizacao = &at
	return true, nil
}

func (f *fakeStore) CountVouchers(ctx context.Context) (total, redeemed int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vouchers {
		total++
		if v.Utilizado {
			redeemed++
		}
	}
	return total, redeemed, nil
}

func (f *fakeStore) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.admins {
		if a.Email == strings.ToLower(admin.Email) {
			return util.Conflict("email already registered")
		}
	}
	cp := *admin
	cp.Email = strings.ToLower(admin.Email)
	f.admins[admin.ID] = &cp
	return nil
}

func (f *fakeStore) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.admins {
		if a.Email == strings.ToLower(email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, util.NotFound("admin not found")
}

func (f *fakeStore) GetAdminByID(ctx context.Context, id string) (*models.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.admins[id]
	if !ok {
		return nil, util.NotFound("admin not found")
	}
	cp := *a
	return &cp, nil
}

func containsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// fakeGateway records calls and answers from canned data.
type fakeGateway struct {
	mu             sync.Mutex
	chargeCounter  int
	chargeStatuses map[string]gateway.ChargeStatus
	statusErrs     map[string]error
	failCharge     error
	failCustomer   error
	failPix        error
	cancelled      []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{chargeStatuses: make(map[string]gateway.ChargeStatus), statusErrs: make(map[string]error)}
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, name, email, phone string) (*gateway.Customer, error) {
	if g.failCustomer != nil {
		return nil, g.failCustomer
	}
	return &gateway.Customer{ID: "cus_test", Name: name, Email: email}, nil
}

func (g *fakeGateway) CreateCharge(ctx context.Context, customerID string, value float64, description, externalRef string) (*gateway.Charge, error) {
	if g.failCharge != nil {
		return nil, g.failCharge
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chargeCounter++
	invoice := "https://sandbox.asaas.com/i/test"
	return &gateway.Charge{
		ID:                fmt.Sprintf("pay_%06d", g.chargeCounter),
		Customer:          customerID,
		Value:             value,
		ExternalReference: externalRef,
		Status:            "PENDING",
		InvoiceURL:        &invoice,
	}, nil
}

func (g *fakeGateway) GetPixQRCode(ctx context.Context, chargeID string) (*gateway.PixData, error) {
	if g.failPix != nil {
		return nil, g.failPix
	}
	return &gateway.PixData{Payload: "pix-copy-paste", EncodedImage: "base64-image"}, nil
}

func (g *fakeGateway) GetChargeStatus(ctx context.Context, chargeID string) (gateway.ChargeStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.statusErrs[chargeID]; ok {
		return gateway.StatusUnknown, err
	}
	if status, ok := g.chargeStatuses[chargeID]; ok {
		return status, nil
	}
	return gateway.StatusUnknown, nil
}

func (g *fakeGateway) CancelCharge(ctx context.Context, chargeID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, chargeID)
	return nil
}

// fakeEvents collects published events.
type fakeEvents struct {
	mu        sync.Mutex
	created   []*models.ReservationCreatedEvent
	confirmed []*models.ReservationConfirmedEvent
	cancelled []*models.ReservationCancelledEvent
	refunded  []*models.ReservationRefundedEvent
}

func (e *fakeEvents) PublishReservationCreated(ctx context.Context, event *models.ReservationCreatedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created = append(e.created, event)
	return nil
}

func (e *fakeEvents) PublishReservationConfirmed(ctx context.Context, event *models.ReservationConfirmedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.confirmed = append(e.confirmed, event)
	return nil
}

func (e *fakeEvents) PublishReservationCancelled(ctx context.Context, event *models.ReservationCancelledEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelled = append(e.cancelled, event)
	return nil
}

func (e *fakeEvents) PublishReservationRefunded(ctx context.Context, event *models.ReservationRefundedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refunded = append(e.refunded, event)
	return nil
}

// fakeLocker grants or denies the sweep lock.
type fakeLocker struct {
	denied bool
}

func (l *fakeLocker) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return !l.denied, nil
}

func (l *fakeLocker) ReleaseLock(ctx context.Context, lockKey string) error {
	return nil
}

var errStoreDown = errors.New("connection refused")
