package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Reservation statuses
const (
	ReservationStatusPending   = "pending"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusApproved  = "approved"
	ReservationStatusCancelled = "cancelled"
	ReservationStatusRefunded  = "refunded"
	ReservationStatusRejected  = "rejected"
)

// IsValidReservationStatus reports whether status is a known lifecycle state.
func IsValidReservationStatus(status string) bool {
	switch status {
	case ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusApproved,
		ReservationStatusCancelled, ReservationStatusRefunded, ReservationStatusRejected:
		return true
	}
	return false
}

// IsTerminalStatus reports whether no further transitions leave status.
func IsTerminalStatus(status string) bool {
	switch status {
	case ReservationStatusCancelled, ReservationStatusRefunded, ReservationStatusRejected:
		return true
	}
	return false
}

// TableSet is an ordered set of table numbers, stored as a JSON array string
// (the column predates this service and is shared with the booking frontend).
type TableSet []int

// Value implements driver.Valuer.
func (t TableSet) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	data, err := json.Marshal([]int(t))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (t *TableSet) Scan(src interface{}) error {
	if src == nil {
		*t = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into TableSet", src)
	}
	if len(data) == 0 {
		*t = nil
		return nil
	}
	return json.Unmarshal(data, (*[]int)(t))
}

// Reservation is a customer's claim on restaurant capacity for a date and
// time slot, backed by a PIX deposit charge.
type Reservation struct {
	ID                string     `db:"id" json:"id"`
	PaymentID         *string    `db:"payment_id" json:"payment_id,omitempty"`
	ExternalRef       string     `db:"external_ref" json:"external_ref"`
	Nome              string     `db:"nome" json:"nome"`
	Email             string     `db:"email" json:"email"`
	Telefone          string     `db:"telefone" json:"telefone"`
	Data              string     `db:"data" json:"data"`       // YYYY-MM-DD
	Horario           string     `db:"horario" json:"horario"` // HH:MM
	NumeroPessoas     int        `db:"numero_pessoas" json:"numero_pessoas"`
	Valor             float64    `db:"valor" json:"valor"`
	Status            string     `db:"status" json:"status"`
	MesasSelecionadas TableSet   `db:"mesas_selecionadas" json:"mesas_selecionadas"`
	Observacoes       *string    `db:"observacoes" json:"observacoes,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// SlotTime resolves the reservation's calendar date and time slot into an
// instant in the given location.
func (r *Reservation) SlotTime(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation("2006-01-02 15:04", r.Data+" "+r.Horario, loc)
}

// Voucher is redeemable proof of a confirmed, paid reservation. Exactly one
// voucher exists per confirmed reservation.
type Voucher struct {
	ID             string     `db:"id" json:"id"`
	ReservationID  string     `db:"reservation_id" json:"reservation_id"`
	Codigo         string     `db:"codigo" json:"codigo"`
	Valor          float64    `db:"valor" json:"valor"`
	QrCodeData     string     `db:"qr_code_data" json:"qr_code_data"`
	Utilizado      bool       `db:"utilizado" json:"utilizado"`
	DataUtilizacao *time.Time `db:"data_utilizacao" json:"data_utilizacao,omitempty"`
	DataValidade   time.Time  `db:"data_validade" json:"data_validade"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// TableClaim pins a table to a confirmed reservation for a whole date.
// The unique (data, table_number) constraint is what keeps concurrently
// confirmed reservations from overlapping.
type TableClaim struct {
	ReservationID string    `db:"reservation_id" json:"reservation_id"`
	Data          string    `db:"data" json:"data"`
	TableNumber   int       `db:"table_number" json:"table_number"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Permissions is the capability list carried by admin accounts and tokens.
type Permissions []string

// Value implements driver.Valuer.
func (p Permissions) Value() (driver.Value, error) {
	data, err := json.Marshal([]string(p))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (p *Permissions) Scan(src interface{}) error {
	if src == nil {
		*p = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Permissions", src)
	}
	return json.Unmarshal(data, (*[]string)(p))
}

// Has reports whether the permission list contains perm.
func (p Permissions) Has(perm string) bool {
	for _, v := range p {
		if v == perm {
			return true
		}
	}
	return false
}

// Admin roles and permissions
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"

	PermReservationsRead  = "reservations:read"
	PermReservationsWrite = "reservations:write"
	PermVouchersValidate  = "vouchers:validate"
	PermStatsRead         = "stats:read"
	PermSweepRun          = "sweep:run"
)

// DefaultPermissions maps a role to its capability set.
func DefaultPermissions(role string) Permissions {
	switch role {
	case RoleAdmin:
		return Permissions{PermReservationsRead, PermReservationsWrite, PermVouchersValidate, PermStatsRead, PermSweepRun}
	case RoleManager:
		return Permissions{PermReservationsRead, PermReservationsWrite, PermVouchersValidate, PermStatsRead}
	default:
		return Permissions{PermReservationsRead, PermVouchersValidate}
	}
}

// Admin is a staff account for the back-office API.
type Admin struct {
	ID          string      `db:"id" json:"id"`
	Email       string      `db:"email" json:"email"`
	Password    string      `db:"password" json:"-"`
	Name        string      `db:"name" json:"name"`
	Role        string      `db:"role" json:"role"`
	Permissions Permissions `db:"permissions" json:"permissions"`
	Active      bool        `db:"active" json:"active"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the account may log in.
func (a *Admin) IsActive() bool {
	return a.Active
}

// ReservationStats aggregates reservation counts by status.
type ReservationStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Approved  int64 `json:"approved"`
	Cancelled int64 `json:"cancelled"`
	Refunded  int64 `json:"refunded"`
	Rejected  int64 `json:"rejected"`
}
