package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ferramentastecnologia/rosamexicano-reservas/config"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/models"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

// VoucherStore is the slice of the store the voucher service needs.
type VoucherStore interface {
	GetVoucherByCodigo(ctx context.Context, codigo string) (*models.Voucher, error)
	GetVoucherByReservationID(ctx context.Context, reservationID string) (*models.Voucher, error)
	RedeemVoucher(ctx context.Context, codigo string, at time.Time) (bool, error)
	CountVouchers(ctx context.Context) (total, redeemed int64, err error)
	GetReservationByID(ctx context.Context, id string) (*models.Reservation, error)
}

// VoucherStats aggregates voucher issuance and redemption counts.
type VoucherStats struct {
	Total    int64 `json:"total"`
	Redeemed int64 `json:"redeemed"`
}

// VoucherDetails is a voucher joined with its reservation context.
type VoucherDetails struct {
	Voucher     *models.Voucher     `json:"voucher"`
	Reservation *models.Reservation `json:"reservation,omitempty"`
	ExpiresAt   time.Time           `json:"expires_at"`
}

// VoucherService issues and redeems dinner vouchers.
type VoucherService struct {
	store  VoucherStore
	cfg    config.BusinessConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewVoucherService creates a new voucher service.
func NewVoucherService(store VoucherStore, cfg config.BusinessConfig) *VoucherService {
	return &VoucherService{
		store:  store,
		cfg:    cfg,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// GenerateCode produces a voucher code in the RM-XXXXXXXX-XXXXXXXX format.
// Each half comes from an independent UUID, so a collision requires two
// simultaneous 8-hex-char clashes; the unique index on codigo catches the
// rest.
func GenerateCode() string {
	a := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	b := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return "RM-" + a + "-" + b
}

// NewVoucherFor builds the voucher record for a reservation about to be
// confirmed. The caller persists it inside the confirmation transaction.
func (s *VoucherService) NewVoucherFor(r *models.Reservation) *models.Voucher {
	code := GenerateCode()
	return &models.Voucher{
		ID:            uuid.New().String(),
		ReservationID: r.ID,
		Codigo:        code,
		Valor:         r.Valor,
		QrCodeData:    code,
		DataValidade:  s.now().Add(s.cfg.VoucherFallbackValidity),
	}
}

// Get retrieves a voucher with its reservation and effective expiry.
func (s *VoucherService) Get(ctx context.Context, codigo string) (*VoucherDetails, error) {
	ctx, span := util.StartSpan(ctx, "VoucherService.Get")
	defer span.End()

	codigo = normalizeCode(codigo)
	if codigo == "" {
		return nil, util.Validation("codigo is required")
	}

	voucher, err := s.store.GetVoucherByCodigo(ctx, codigo)
	if err != nil {
		return nil, err
	}

	details := &VoucherDetails{Voucher: voucher, ExpiresAt: voucher.DataValidade}
	reservation, err := s.store.GetReservationByID(ctx, voucher.ReservationID)
	if err == nil && reservation != nil {
		details.Reservation = reservation
		if expiry, ok := s.slotExpiry(reservation); ok {
			details.ExpiresAt = expiry
		}
	}
	return details, nil
}

// Redeem marks a voucher as used. Redemption is exactly-once: the store
// update is conditional on utilizado being false, so of any number of
// concurrent attempts on the same code exactly one succeeds and the rest
// see ErrVoucherUsed.
func (s *VoucherService) Redeem(ctx context.Context, codigo string) (*VoucherDetails, error) {
	ctx, span := util.StartSpan(ctx, "VoucherService.Redeem")
	defer span.End()

	details, err := s.Get(ctx, codigo)
	if err != nil {
		util.VoucherRedemptionsTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}

	if details.Voucher.Utilizado {
		util.VoucherRedemptionsTotal.WithLabelValues("already_used").Inc()
		return nil, util.ErrVoucherUsed
	}

	now := s.now()
	if now.After(details.ExpiresAt) {
		util.VoucherRedemptionsTotal.WithLabelValues("expired").Inc()
		return nil, util.ErrVoucherExpired
	}

	ok, err := s.store.RedeemVoucher(ctx, details.Voucher.Codigo, now)
	if err != nil {
		util.VoucherRedemptionsTotal.WithLabelValues("error").Inc()
		return nil, util.Internal("failed to redeem voucher", err)
	}
	if !ok {
		// Lost the race to a concurrent redemption.
		util.VoucherRedemptionsTotal.WithLabelValues("already_used").Inc()
		return nil, util.ErrVoucherUsed
	}

	details.Voucher.Utilizado = true
	details.Voucher.DataUtilizacao = &now

	util.VoucherRedemptionsTotal.WithLabelValues("success").Inc()
	s.logger.Info("Voucher redeemed",
		zap.String("codigo", details.Voucher.Codigo),
		zap.String("reservation_id", details.Voucher.ReservationID))

	return details, nil
}

// Stats counts issued and redeemed vouchers.
func (s *VoucherService) Stats(ctx context.Context) (*VoucherStats, error) {
	total, redeemed, err := s.store.CountVouchers(ctx)
	if err != nil {
		return nil, util.Internal("failed to count vouchers", err)
	}
	return &VoucherStats{Total: total, Redeemed: redeemed}, nil
}

// slotExpiry computes the voucher expiry from the reserved slot plus the
// grace window. Falls back to (zero, false) when the slot cannot be parsed.
func (s *VoucherService) slotExpiry(r *models.Reservation) (time.Time, bool) {
	slot, err := r.SlotTime(time.Local)
	if err != nil {
		s.logger.Warn("Unparseable reservation slot, using fallback validity",
			zap.String("reservation_id", r.ID),
			zap.String("data", r.Data), zap.String("horario", r.Horario))
		return time.Time{}, false
	}
	return slot.Add(s.cfg.VoucherGrace), true
}

func normalizeCode(codigo string) string {
	return strings.ToUpper(strings.TrimSpace(codigo))
}
