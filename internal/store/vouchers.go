package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/models"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

// GetVoucherByCodigo retrieves a voucher by its code.
func (s *Store) GetVoucherByCodigo(ctx context.Context, codigo string) (*models.Voucher, error) {
	var v models.Voucher
	err := s.db.GetContext(ctx, &v, "SELECT * FROM vouchers WHERE codigo = $1", codigo)
	if err == sql.ErrNoRows {
		return nil, util.ErrVoucherNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVoucherByReservationID retrieves the voucher issued for a reservation.
// Returns (nil, nil) when none exists.
func (s *Store) GetVoucherByReservationID(ctx context.Context, reservationID string) (*models.Voucher, error) {
	var v models.Voucher
	err := s.db.GetContext(ctx, &v, "SELECT * FROM vouchers WHERE reservation_id = $1", reservationID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// RedeemVoucher flips utilizado to true if and only if it is still false.
// The conditional update makes redemption exactly-once: of N concurrent
// attempts on the same code, one sees rowsAffected=1 and wins.
func (s *Store) RedeemVoucher(ctx context.Context, codigo string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE vouchers SET utilizado = TRUE, data_utilizacao = $1, updated_at = NOW() WHERE codigo = $2 AND utilizado = FALSE",
		at, codigo)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountVouchers returns total and redeemed voucher counts.
func (s *Store) CountVouchers(ctx context.Context) (total, redeemed int64, err error) {
	err = s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM vouchers")
	if err != nil {
		return 0, 0, err
	}
	err = s.db.GetContext(ctx, &redeemed, "SELECT COUNT(*) FROM vouchers WHERE utilizado = TRUE")
	return total, redeemed, err
}
