package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ferramentastecnologia/rosamexicano-reservas/config"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/gateway"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/models"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/tables"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

// ReservationStore is the slice of the store the lifecycle manager needs.
type ReservationStore interface {
	ReservationReader
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservationByID(ctx context.Context, id string) (*models.Reservation, error)
	GetReservationByPaymentID(ctx context.Context, paymentID string) (*models.Reservation, error)
	ListReservations(ctx context.Context, status string, limit, offset int) ([]models.Reservation, error)
	ListStalePending(ctx context.Context, cutoff time.Time) ([]models.Reservation, error)
	CancelPendingReservation(ctx context.Context, id string) (bool, error)
	ConfirmReservationTx(ctx context.Context, reservationID string, voucher *models.Voucher) (bool, error)
	RefundReservationTx(ctx context.Context, reservationID string) (bool, error)
	TransitionReservation(ctx context.Context, id, fromStatus, toStatus string) (bool, error)
	GetReservationStats(ctx context.Context) (*models.ReservationStats, error)
}

// PaymentGateway is what the lifecycle manager needs from the PIX gateway.
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, name, email, phone string) (*gateway.Customer, error)
	CreateCharge(ctx context.Context, customerID string, value float64, description, externalRef string) (*gateway.Charge, error)
	GetPixQRCode(ctx context.Context, chargeID string) (*gateway.PixData, error)
	GetChargeStatus(ctx context.Context, chargeID string) (gateway.ChargeStatus, error)
	CancelCharge(ctx context.Context, chargeID string) error
}

// EventSink publishes reservation lifecycle events. Publishing is always
// best-effort: a broker outage never blocks a state transition.
type EventSink interface {
	PublishReservationCreated(ctx context.Context, event *models.ReservationCreatedEvent) error
	PublishReservationConfirmed(ctx context.Context, event *models.ReservationConfirmedEvent) error
	PublishReservationCancelled(ctx context.Context, event *models.ReservationCancelledEvent) error
	PublishReservationRefunded(ctx context.Context, event *models.ReservationRefundedEvent) error
}

// Locker serializes the sweep across instances.
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// CreateReservationRequest is the booking request from the public API.
type CreateReservationRequest struct {
	Nome              string  `json:"nome" binding:"required"`
	Email             string  `json:"email" binding:"required,email"`
	Telefone          string  `json:"telefone" binding:"required"`
	Data              string  `json:"data" binding:"required"`
	Horario           string  `json:"horario" binding:"required"`
	NumeroPessoas     int     `json:"numero_pessoas" binding:"required,min=1"`
	MesasSelecionadas []int   `json:"mesas_selecionadas"`
	Observacoes       *string `json:"observacoes"`
}

// CreateReservationResponse carries everything the customer needs to pay.
type CreateReservationResponse struct {
	ReservationID string  `json:"reservation_id"`
	ExternalRef   string  `json:"external_ref"`
	PaymentID     string  `json:"payment_id"`
	Status        string  `json:"status"`
	Valor         float64 `json:"valor"`
	PixPayload    string  `json:"pix_payload,omitempty"`
	PixQRCode     string  `json:"pix_qr_code,omitempty"`
	InvoiceURL    string  `json:"invoice_url,omitempty"`
}

// PaymentStatusResponse is the polling answer for a charge.
type PaymentStatusResponse struct {
	PaymentID     string `json:"payment_id"`
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
	Confirmed     bool   `json:"confirmed"`
	VoucherCodigo string `json:"voucher_codigo,omitempty"`
}

// WebhookResult reports what a webhook delivery did.
type WebhookResult struct {
	Received  bool   `json:"received"`
	Action    string `json:"action,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// SweepResult summarizes one reconciliation pass over stale pending
// reservations.
type SweepResult struct {
	Skipped   bool `json:"skipped,omitempty"`
	Scanned   int  `json:"scanned"`
	Confirmed int  `json:"confirmed"`
	Cancelled int  `json:"cancelled"`
}

const sweepLockKey = "reservation-sweep"

// ReservationService drives the reservation lifecycle: booking with a PIX
// deposit, webhook-driven confirmation, cancellation, refunds and the
// stale-pending sweep.
type ReservationService struct {
	store        ReservationStore
	gw           PaymentGateway
	events       EventSink
	locker       Locker
	availability *AvailabilityService
	vouchers     *VoucherService
	catalog      *tables.Catalog
	cfg          config.BusinessConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewReservationService creates the lifecycle manager. events and locker
// may be nil; the service then skips publishing and sweep locking.
func NewReservationService(
	store ReservationStore,
	gw PaymentGateway,
	events EventSink,
	locker Locker,
	availability *AvailabilityService,
	vouchers *VoucherService,
	catalog *tables.Catalog,
	cfg config.BusinessConfig,
) *ReservationService {
	return &ReservationService{
		store:        store,
		gw:           gw,
		events:       events,
		locker:       locker,
		availability: availability,
		vouchers:     vouchers,
		catalog:      catalog,
		cfg:          cfg,
		logger:       util.GetLogger(),
		now:          time.Now,
	}
}

// Create books a pending reservation. The gateway charge is created first:
// if the gateway refuses, no reservation row is written and the customer
// sees the failure immediately. If the local insert fails after the charge
// exists, the charge is cancelled best-effort.
func (s *ReservationService) Create(ctx context.Context, req *CreateReservationRequest) (*CreateReservationResponse, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.Create")
	defer span.End()

	if err := s.validateCreate(ctx, req); err != nil {
		util.ReservationsFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	check, err := s.availability.CheckAvailability(ctx, req.Data, req.Horario, req.NumeroPessoas)
	if err != nil {
		return nil, err
	}
	if !check.Available {
		util.ReservationsFailedTotal.WithLabelValues("no_capacity").Inc()
		return nil, util.ErrNoCapacity
	}

	reservationID := uuid.New().String()
	externalRef := "RES-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])

	customer, err := s.gw.CreateCustomer(ctx, req.Nome, req.Email, req.Telefone)
	if err != nil {
		util.ReservationsFailedTotal.WithLabelValues("gateway").Inc()
		return nil, util.Internal("payment gateway rejected the customer", err)
	}

	description := fmt.Sprintf("Reserva Rosa Mexicano - %s %s - %d pessoas",
		req.Data, req.Horario, req.NumeroPessoas)
	charge, err := s.gw.CreateCharge(ctx, customer.ID, s.cfg.DepositAmount, description, externalRef)
	if err != nil {
		util.ReservationsFailedTotal.WithLabelValues("gateway").Inc()
		return nil, util.Internal("payment gateway rejected the charge", err)
	}

	reservation := &models.Reservation{
		ID:                reservationID,
		PaymentID:         &charge.ID,
		ExternalRef:       externalRef,
		Nome:              req.Nome,
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		Telefone:          req.Telefone,
		Data:              req.Data,
		Horario:           req.Horario,
		NumeroPessoas:     req.NumeroPessoas,
		Valor:             s.cfg.DepositAmount,
		Status:            models.ReservationStatusPending,
		MesasSelecionadas: models.TableSet(req.MesasSelecionadas),
		Observacoes:       req.Observacoes,
	}

	if err := s.store.CreateReservation(ctx, reservation); err != nil {
		util.ReservationsFailedTotal.WithLabelValues("store").Inc()
		s.cancelChargeBestEffort(charge.ID, "reservation insert failed")
		return nil, err
	}

	util.ReservationsCreatedTotal.Inc()
	s.logger.Info("Reservation created",
		zap.String("reservation_id", reservationID),
		zap.String("payment_id", charge.ID),
		zap.String("data", req.Data), zap.String("horario", req.Horario),
		zap.Int("pessoas", req.NumeroPessoas))

	s.publishCreated(reservation)

	resp := &CreateReservationResponse{
		ReservationID: reservationID,
		ExternalRef:   externalRef,
		PaymentID:     charge.ID,
		Status:        reservation.Status,
		Valor:         reservation.Valor,
	}
	if charge.InvoiceURL != nil {
		resp.InvoiceURL = *charge.InvoiceURL
	}

	// The PIX payload is display-only; the customer can still pay through
	// the invoice URL if the QR fetch fails.
	if pix, err := s.gw.GetPixQRCode(ctx, charge.ID); err != nil {
		s.logger.Warn("Failed to fetch PIX QR code",
			zap.String("payment_id", charge.ID), zap.Error(err))
	} else {
		resp.PixPayload = pix.Payload
		resp.PixQRCode = pix.EncodedImage
	}

	return resp, nil
}

func (s *ReservationService) validateCreate(ctx context.Context, req *CreateReservationRequest) error {
	if strings.TrimSpace(req.Nome) == "" {
		return util.Validation("nome is required")
	}
	if strings.TrimSpace(req.Email) == "" || !strings.Contains(req.Email, "@") {
		return util.Validation("a valid email is required")
	}
	if strings.TrimSpace(req.Telefone) == "" {
		return util.Validation("telefone is required")
	}
	if err := validateDate(req.Data); err != nil {
		return err
	}
	if err := s.availability.validateSlot(req.Horario); err != nil {
		return err
	}
	if req.NumeroPessoas < 1 {
		return util.Validation("numero_pessoas must be at least 1")
	}

	if len(req.MesasSelecionadas) == 0 {
		return nil
	}

	seen := make(map[int]bool, len(req.MesasSelecionadas))
	capacity := 0
	for _, num := range req.MesasSelecionadas {
		if seen[num] {
			return util.Validation(fmt.Sprintf("table %d selected twice", num))
		}
		seen[num] = true
		if _, ok := s.catalog.Lookup(num); !ok {
			return util.Validation(fmt.Sprintf("table %d does not exist", num))
		}
		capacity += s.catalog.Capacity(num)
	}
	if capacity < req.NumeroPessoas {
		return util.Validation(fmt.Sprintf("selected tables seat %d, party is %d", capacity, req.NumeroPessoas))
	}

	occupied, err := s.availability.OccupiedTableNumbers(ctx, req.Data)
	if err != nil {
		return util.Internal("failed to check table occupancy", err)
	}
	for _, num := range req.MesasSelecionadas {
		if occupied[num] {
			return util.ErrTableTaken
		}
	}
	return nil
}

// ProcessPaymentEvent applies one gateway webhook event. Unknown charges
// and unrecognized events are acknowledged without action so the gateway
// stops retrying them. Every transition is idempotent: replays find the
// reservation out of the expected state and do nothing.
func (s *ReservationService) ProcessPaymentEvent(ctx context.Context, event, paymentID string) (*WebhookResult, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.ProcessPaymentEvent")
	defer span.End()

	util.WebhookEventsTotal.WithLabelValues(event).Inc()

	if paymentID == "" {
		return nil, util.Validation("payment id is required")
	}

	reservation, err := s.store.GetReservationByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, util.Internal("failed to look up reservation", err)
	}
	if reservation == nil {
		s.logger.Warn("Webhook for unknown charge",
			zap.String("event", event), zap.String("payment_id", paymentID))
		return &WebhookResult{Received: true, Ignored: true}, nil
	}

	switch event {
	case models.WebhookPaymentReceived, models.WebhookPaymentConfirmed, models.WebhookPaymentReceivedInCash:
		confirmed, err := s.confirmPayment(ctx, reservation)
		if err != nil {
			return nil, err
		}
		if !confirmed {
			return &WebhookResult{Received: true, Duplicate: true}, nil
		}
		return &WebhookResult{Received: true, Action: "confirmed"}, nil

	case models.WebhookPaymentRefunded:
		refunded, err := s.store.RefundReservationTx(ctx, reservation.ID)
		if err != nil {
			return nil, util.Internal("failed to refund reservation", err)
		}
		if !refunded {
			return &WebhookResult{Received: true, Duplicate: true}, nil
		}
		util.ReservationsRefundedTotal.Inc()
		s.logger.Info("Reservation refunded", zap.String("reservation_id", reservation.ID))
		s.publishRefunded(reservation)
		return &WebhookResult{Received: true, Action: "refunded"}, nil

	case models.WebhookPaymentOverdue, models.WebhookPaymentDeleted:
		cancelled, err := s.store.CancelPendingReservation(ctx, reservation.ID)
		if err != nil {
			return nil, util.Internal("failed to cancel reservation", err)
		}
		if !cancelled {
			return &WebhookResult{Received: true, Duplicate: true}, nil
		}
		util.ReservationsCancelledTotal.WithLabelValues("payment_" + strings.ToLower(strings.TrimPrefix(event, "PAYMENT_"))).Inc()
		s.logger.Info("Reservation cancelled by gateway event",
			zap.String("reservation_id", reservation.ID), zap.String("event", event))
		s.publishCancelled(reservation, event)
		return &WebhookResult{Received: true, Action: "cancelled"}, nil

	default:
		s.logger.Info("Ignoring webhook event",
			zap.String("event", event), zap.String("payment_id", paymentID))
		return &WebhookResult{Received: true, Ignored: true}, nil
	}
}

// confirmPayment flips a pending reservation to confirmed and issues its
// voucher in one transaction. Returns false when the reservation was no
// longer pending. A table-claim collision cancels the reservation and
// voids the charge: the money arrived, but the table is gone.
func (s *ReservationService) confirmPayment(ctx context.Context, reservation *models.Reservation) (bool, error) {
	if reservation.Status != models.ReservationStatusPending {
		return false, nil
	}

	var confirmed bool
	var voucher *models.Voucher
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		voucher = s.vouchers.NewVoucherFor(reservation)
		confirmed, err = s.store.ConfirmReservationTx(ctx, reservation.ID, voucher)
		if err != nil && !errors.Is(err, util.ErrTableTaken) && util.AsAppError(err).Kind == util.KindConflict {
			// Voucher code collision; retry with a fresh code.
			continue
		}
		break
	}
	if errors.Is(err, util.ErrTableTaken) {
		s.logger.Error("Paid reservation lost its tables to a concurrent confirmation",
			zap.String("reservation_id", reservation.ID))
		if _, cerr := s.store.CancelPendingReservation(ctx, reservation.ID); cerr != nil {
			return false, util.Internal("failed to cancel conflicted reservation", cerr)
		}
		util.ReservationsCancelledTotal.WithLabelValues("table_conflict").Inc()
		if reservation.PaymentID != nil {
			s.cancelChargeBestEffort(*reservation.PaymentID, "table conflict")
		}
		s.publishCancelled(reservation, "table_conflict")
		return false, util.ErrTableTaken
	}
	if err != nil {
		return false, util.Internal("failed to confirm reservation", err)
	}
	if !confirmed {
		return false, nil
	}

	util.ReservationsConfirmedTotal.Inc()
	util.VouchersIssuedTotal.Inc()
	s.logger.Info("Reservation confirmed",
		zap.String("reservation_id", reservation.ID),
		zap.String("voucher_codigo", voucher.Codigo))

	s.publishConfirmed(reservation, voucher)
	return true, nil
}

// CancelByPaymentID cancels a still-pending reservation at the customer's
// request and voids its gateway charge. The local cancel happens even when
// the gateway call fails; the sweep or an overdue webhook settles the
// charge later.
func (s *ReservationService) CancelByPaymentID(ctx context.Context, paymentID string) error {
	ctx, span := util.StartSpan(ctx, "ReservationService.CancelByPaymentID")
	defer span.End()

	if paymentID == "" {
		return util.Validation("payment id is required")
	}

	reservation, err := s.store.GetReservationByPaymentID(ctx, paymentID)
	if err != nil {
		return util.Internal("failed to look up reservation", err)
	}
	if reservation == nil || reservation.Status != models.ReservationStatusPending {
		return util.NotFound("reservation not found or already processed")
	}

	cancelled, err := s.store.CancelPendingReservation(ctx, reservation.ID)
	if err != nil {
		return util.Internal("failed to cancel reservation", err)
	}
	if !cancelled {
		return util.NotFound("reservation not found or already processed")
	}

	s.cancelChargeBestEffort(paymentID, "customer cancel")
	util.ReservationsCancelledTotal.WithLabelValues("customer").Inc()
	s.logger.Info("Reservation cancelled by customer",
		zap.String("reservation_id", reservation.ID), zap.String("payment_id", paymentID))
	s.publishCancelled(reservation, "customer")
	return nil
}

// CheckPaymentStatus reports the local lifecycle state for a charge,
// including the voucher code once confirmed.
func (s *ReservationService) CheckPaymentStatus(ctx context.Context, paymentID string) (*PaymentStatusResponse, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.CheckPaymentStatus")
	defer span.End()

	if paymentID == "" {
		return nil, util.Validation("payment id is required")
	}

	reservation, err := s.store.GetReservationByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, util.Internal("failed to look up reservation", err)
	}
	if reservation == nil {
		return nil, util.ErrReservationNotFound
	}

	resp := &PaymentStatusResponse{
		PaymentID:     paymentID,
		ReservationID: reservation.ID,
		Status:        reservation.Status,
		Confirmed: reservation.Status == models.ReservationStatusConfirmed ||
			reservation.Status == models.ReservationStatusApproved,
	}

	if resp.Confirmed {
		if voucher, err := s.vouchers.store.GetVoucherByReservationID(ctx, reservation.ID); err == nil && voucher != nil {
			resp.VoucherCodigo = voucher.Codigo
		}
	}
	return resp, nil
}

// CancelExpired reconciles pending reservations older than the payment
// window against the gateway. Paid charges confirm (the webhook was lost),
// unpaid and dead charges cancel, and only charges the gateway cannot
// answer for stay pending for the next pass. A redis lock keeps concurrent
// instances from double-sweeping.
func (s *ReservationService) CancelExpired(ctx context.Context) (*SweepResult, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.CancelExpired")
	defer span.End()

	if s.locker != nil {
		acquired, err := s.locker.AcquireLock(ctx, sweepLockKey, s.cfg.SweepInterval)
		if err != nil {
			return nil, util.Internal("failed to acquire sweep lock", err)
		}
		if !acquired {
			return &SweepResult{Skipped: true}, nil
		}
		defer func() {
			if err := s.locker.ReleaseLock(ctx, sweepLockKey); err != nil {
				s.logger.Warn("Failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	util.SweepRunsTotal.Inc()

	cutoff := s.now().Add(-s.cfg.PendingTTL)
	stale, err := s.store.ListStalePending(ctx, cutoff)
	if err != nil {
		return nil, util.Internal("failed to list stale reservations", err)
	}

	result := &SweepResult{Scanned: len(stale)}
	for i := range stale {
		reservation := &stale[i]

		if reservation.PaymentID == nil {
			if cancelled, err := s.store.CancelPendingReservation(ctx, reservation.ID); err == nil && cancelled {
				result.Cancelled++
				util.SweepResolvedTotal.WithLabelValues("cancelled").Inc()
				s.publishCancelled(reservation, "expired")
			}
			continue
		}

		status, err := s.gw.GetChargeStatus(ctx, *reservation.PaymentID)
		if err != nil {
			s.logger.Warn("Sweep could not query charge, leaving pending",
				zap.String("reservation_id", reservation.ID),
				zap.String("payment_id", *reservation.PaymentID), zap.Error(err))
			util.SweepResolvedTotal.WithLabelValues("deferred").Inc()
			continue
		}

		switch {
		case status.IsPaid():
			// The confirmation webhook never arrived.
			confirmed, err := s.confirmPayment(ctx, reservation)
			if err != nil {
				s.logger.Error("Sweep failed to confirm paid reservation",
					zap.String("reservation_id", reservation.ID), zap.Error(err))
				continue
			}
			if confirmed {
				result.Confirmed++
				util.SweepResolvedTotal.WithLabelValues("confirmed").Inc()
			}

		case status.IsDead():
			cancelled, err := s.store.CancelPendingReservation(ctx, reservation.ID)
			if err != nil {
				s.logger.Error("Sweep failed to cancel reservation",
					zap.String("reservation_id", reservation.ID), zap.Error(err))
				continue
			}
			if cancelled {
				result.Cancelled++
				util.SweepResolvedTotal.WithLabelValues("cancelled").Inc()
				util.ReservationsCancelledTotal.WithLabelValues("expired").Inc()
				s.cancelChargeBestEffort(*reservation.PaymentID, "sweep")
				s.publishCancelled(reservation, "expired")
			}

		case status.IsAwaiting():
			// Open charge, nobody paid inside the window. Void the charge
			// before releasing the tables so a late payment cannot land on
			// a cancelled reservation.
			s.cancelChargeBestEffort(*reservation.PaymentID, "sweep")
			cancelled, err := s.store.CancelPendingReservation(ctx, reservation.ID)
			if err != nil {
				s.logger.Error("Sweep failed to cancel unpaid reservation",
					zap.String("reservation_id", reservation.ID), zap.Error(err))
				continue
			}
			if cancelled {
				result.Cancelled++
				util.SweepResolvedTotal.WithLabelValues("cancelled").Inc()
				util.ReservationsCancelledTotal.WithLabelValues("expired").Inc()
				s.publishCancelled(reservation, "expired")
			}

		default:
			// The gateway answered with a status this service does not
			// recognize. Transitioning on a guess is worse than waiting a
			// pass.
			util.SweepResolvedTotal.WithLabelValues("deferred").Inc()
		}
	}

	if result.Confirmed > 0 || result.Cancelled > 0 {
		s.logger.Info("Sweep pass finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("confirmed", result.Confirmed),
			zap.Int("cancelled", result.Cancelled))
	}
	return result, nil
}

// Approve moves a confirmed reservation to approved.
func (s *ReservationService) Approve(ctx context.Context, reservationID string) error {
	return s.adminTransition(ctx, reservationID, models.ReservationStatusApproved)
}

// Reject moves a confirmed reservation to rejected.
func (s *ReservationService) Reject(ctx context.Context, reservationID string) error {
	return s.adminTransition(ctx, reservationID, models.ReservationStatusRejected)
}

func (s *ReservationService) adminTransition(ctx context.Context, reservationID, toStatus string) error {
	r, err := s.store.GetReservationByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if models.IsTerminalStatus(r.Status) {
		return util.Conflict("reservation is closed")
	}
	ok, err := s.store.TransitionReservation(ctx, reservationID, models.ReservationStatusConfirmed, toStatus)
	if err != nil {
		return util.Internal("failed to update reservation", err)
	}
	if !ok {
		return util.Conflict("reservation is not awaiting approval")
	}
	s.logger.Info("Reservation reviewed",
		zap.String("reservation_id", reservationID), zap.String("status", toStatus))
	return nil
}

// List retrieves reservations for the admin panel.
func (s *ReservationService) List(ctx context.Context, status string, limit, offset int) ([]models.Reservation, error) {
	if status != "" && !models.IsValidReservationStatus(status) {
		return nil, util.Validation("unknown status filter")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListReservations(ctx, status, limit, offset)
}

// Get retrieves one reservation.
func (s *ReservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	return s.store.GetReservationByID(ctx, id)
}

// Stats aggregates reservation counts by status.
func (s *ReservationService) Stats(ctx context.Context) (*models.ReservationStats, error) {
	return s.store.GetReservationStats(ctx)
}

// cancelChargeBestEffort voids a gateway charge on a background context.
// Failure is logged and swallowed: local state is authoritative and the
// sweep reconciles stragglers.
func (s *ReservationService) cancelChargeBestEffort(paymentID, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.gw.CancelCharge(ctx, paymentID); err != nil {
		s.logger.Warn("Failed to cancel gateway charge",
			zap.String("payment_id", paymentID),
			zap.String("reason", reason), zap.Error(err))
	}
}

func (s *ReservationService) publishCreated(r *models.Reservation) {
	if s.events == nil {
		return
	}
	event := &models.ReservationCreatedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeReservationCreated),
		ReservationID: r.ID,
		PaymentID:     paymentID(r),
		Data:          r.Data,
		Horario:       r.Horario,
		NumeroPessoas: r.NumeroPessoas,
		Valor:         r.Valor,
	}
	if err := s.events.PublishReservationCreated(context.Background(), event); err != nil {
		s.logger.Warn("Failed to publish ReservationCreated", zap.Error(err))
	}
}

func (s *ReservationService) publishConfirmed(r *models.Reservation, voucher *models.Voucher) {
	if s.events == nil {
		return
	}
	event := &models.ReservationConfirmedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeReservationConfirmed),
		ReservationID: r.ID,
		PaymentID:     paymentID(r),
		Nome:          r.Nome,
		Email:         r.Email,
		Data:          r.Data,
		Horario:       r.Horario,
		NumeroPessoas: r.NumeroPessoas,
		VoucherCodigo: voucher.Codigo,
	}
	if err := s.events.PublishReservationConfirmed(context.Background(), event); err != nil {
		s.logger.Warn("Failed to publish ReservationConfirmed", zap.Error(err))
	}
}

func (s *ReservationService) publishCancelled(r *models.Reservation, reason string) {
	if s.events == nil {
		return
	}
	event := &models.ReservationCancelledEvent{
		BaseEvent:     newBaseEvent(models.EventTypeReservationCancelled),
		ReservationID: r.ID,
		PaymentID:     paymentID(r),
		Reason:        reason,
	}
	if err := s.events.PublishReservationCancelled(context.Background(), event); err != nil {
		s.logger.Warn("Failed to publish ReservationCancelled", zap.Error(err))
	}
}

func (s *ReservationService) publishRefunded(r *models.Reservation) {
	if s.events == nil {
		return
	}
	event := &models.ReservationRefundedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeReservationRefunded),
		ReservationID: r.ID,
		PaymentID:     paymentID(r),
	}
	if err := s.events.PublishReservationRefunded(context.Background(), event); err != nil {
		s.logger.Warn("Failed to publish ReservationRefunded", zap.Error(err))
	}
}

func paymentID(r *models.Reservation) string {
	if r.PaymentID == nil {
		return ""
	}
	return *r.PaymentID
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
