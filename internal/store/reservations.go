package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/models"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

// CreateReservation inserts a new pending reservation. The payment_id
// unique constraint rejects a second reservation for the same charge.
func (s *Store) CreateReservation(ctx context.Context, r *models.Reservation) error {
	query := `
		INSERT INTO reservations (id, payment_id, external_ref, nome, email, telefone,
			data, horario, numero_pessoas, valor, status, mesas_selecionadas, observacoes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		r.ID, r.PaymentID, r.ExternalRef, r.Nome, r.Email, r.Telefone,
		r.Data, r.Horario, r.NumeroPessoas, r.Valor, r.Status, r.MesasSelecionadas, r.Observacoes).
		Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return util.Conflict("a reservation already exists for this charge")
		}
		return err
	}
	return nil
}

// GetReservationByID retrieves a reservation by ID.
func (s *Store) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.GetContext(ctx, &r, "SELECT * FROM reservations WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, util.ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetReservationByPaymentID retrieves a reservation by its gateway charge
// id. Returns (nil, nil) when no reservation references the charge.
func (s *Store) GetReservationByPaymentID(ctx context.Context, paymentID string) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.GetContext(ctx, &r, "SELECT * FROM reservations WHERE payment_id = $1", paymentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReservations retrieves reservations, newest first, optionally
// filtered by status.
func (s *Store) ListReservations(ctx context.Context, status string, limit, offset int) ([]models.Reservation, error) {
	var reservations []models.Reservation
	if status != "" {
		err := s.db.SelectContext(ctx, &reservations,
			"SELECT * FROM reservations WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
			status, limit, offset)
		return reservations, err
	}
	err := s.db.SelectContext(ctx, &reservations,
		"SELECT * FROM reservations ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	return reservations, err
}

// ListReservationsForDate retrieves reservations on a calendar date whose
// status is in the given set.
func (s *Store) ListReservationsForDate(ctx context.Context, date string, statuses []string) ([]models.Reservation, error) {
	if len(statuses) == 0 {
		return []models.Reservation{}, nil
	}

	query, args, err := sqlx.In(
		"SELECT * FROM reservations WHERE data = ? AND status IN (?) ORDER BY created_at", date, statuses)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var reservations []models.Reservation
	err = s.db.SelectContext(ctx, &reservations, query, args...)
	return reservations, err
}

// CountPeopleForSlot sums party sizes for a date and time slot over the
// given statuses.
func (s *Store) CountPeopleForSlot(ctx context.Context, date, horario string, statuses []string) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(
		"SELECT COALESCE(SUM(numero_pessoas), 0) FROM reservations WHERE data = ? AND horario = ? AND status IN (?)",
		date, horario, statuses)
	if err != nil {
		return 0, err
	}
	query = s.db.Rebind(query)

	var total int
	err = s.db.GetContext(ctx, &total, query, args...)
	return total, err
}

// ListStalePending retrieves pending reservations created before the cutoff.
func (s *Store) ListStalePending(ctx context.Context, cutoff time.Time) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := s.db.SelectContext(ctx, &reservations,
		"SELECT * FROM reservations WHERE status = $1 AND created_at < $2 ORDER BY created_at",
		models.ReservationStatusPending, cutoff)
	return reservations, err
}

// CancelPendingReservation moves a pending reservation to cancelled.
// Returns false without error when the reservation was not pending, which
// makes repeated cancellations (webhook + sweep racing) no-ops.
func (s *Store) CancelPendingReservation(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE reservations SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		models.ReservationStatusCancelled, id, models.ReservationStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ConfirmReservationTx atomically confirms a pending reservation: flips
// its status, claims its tables for the date, and inserts the voucher.
// Returns (false, nil) when the reservation was no longer pending — the
// caller treats that as an idempotent replay, not an error. A claim
// collision with another confirmed reservation surfaces as ErrTableTaken
// and rolls the whole transition back.
func (s *Store) ConfirmReservationTx(ctx context.Context, reservationID string, voucher *models.Voucher) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var r models.Reservation
	err = tx.GetContext(ctx, &r, "SELECT * FROM reservations WHERE id = $1 FOR UPDATE", reservationID)
	if err == sql.ErrNoRows {
		return false, util.ErrReservationNotFound
	}
	if err != nil {
		return false, err
	}

	if r.Status != models.ReservationStatusPending {
		return false, nil
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE reservations SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		models.ReservationStatusConfirmed, reservationID, models.ReservationStatusPending)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	for _, tableNum := range r.MesasSelecionadas {
		claim := models.TableClaim{ReservationID: reservationID, Data: r.Data, TableNumber: tableNum}
		_, err = tx.NamedExecContext(ctx,
			"INSERT INTO table_claims (reservation_id, data, table_number) VALUES (:reservation_id, :data, :table_number)",
			claim)
		if err != nil {
			if isUniqueViolation(err) {
				return false, util.ErrTableTaken
			}
			return false, fmt.Errorf("failed to claim table %d: %w", claim.TableNumber, err)
		}
	}

	voucher.ReservationID = reservationID
	_, err = tx.ExecContext(ctx,
		`INSERT INTO vouchers (id, reservation_id, codigo, valor, qr_code_data, utilizado, data_validade)
		 VALUES ($1, $2, $3, $4, $5, FALSE, $6)`,
		voucher.ID, voucher.ReservationID, voucher.Codigo, voucher.Valor, voucher.QrCodeData, voucher.DataValidade)
	if err != nil {
		if isUniqueViolation(err) {
			return false, util.Conflict("voucher already issued for reservation")
		}
		return false, fmt.Errorf("failed to insert voucher: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// RefundReservationTx moves a confirmed or approved reservation to
// refunded and releases its table claims. Returns (false, nil) when the
// reservation was not in a refundable state.
func (s *Store) RefundReservationTx(ctx context.Context, reservationID string) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE reservations SET status = $1, updated_at = NOW() WHERE id = $2 AND status IN ($3, $4)",
		models.ReservationStatusRefunded, reservationID,
		models.ReservationStatusConfirmed, models.ReservationStatusApproved)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM table_claims WHERE reservation_id = $1", reservationID)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// TransitionReservation applies an admin transition (approve/reject) with
// a required current status.
func (s *Store) TransitionReservation(ctx context.Context, id, fromStatus, toStatus string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE reservations SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		toStatus, id, fromStatus)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetReservationStats aggregates reservation counts by status.
func (s *Store) GetReservationStats(ctx context.Context) (*models.ReservationStats, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT status, COUNT(*) AS count FROM reservations GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &models.ReservationStats{}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		switch status {
		case models.ReservationStatusPending:
			stats.Pending = count
		case models.ReservationStatusConfirmed:
			stats.Confirmed = count
		case models.ReservationStatusApproved:
			stats.Approved = count
		case models.ReservationStatusCancelled:
			stats.Cancelled = count
		case models.ReservationStatusRefunded:
			stats.Refunded = count
		case models.ReservationStatusRejected:
			stats.Rejected = count
		}
	}
	return stats, rows.Err()
}
