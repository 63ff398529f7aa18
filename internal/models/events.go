package models

import "time"

// Domain event types published to the reservation topic.
const (
	EventTypeReservationCreated   = "RESERVATION_CREATED"
	EventTypeReservationConfirmed = "RESERVATION_CONFIRMED"
	EventTypeReservationCancelled = "RESERVATION_CANCELLED"
	EventTypeReservationRefunded  = "RESERVATION_REFUNDED"
)

// Gateway webhook event names (Asaas).
const (
	WebhookPaymentReceived       = "PAYMENT_RECEIVED"
	WebhookPaymentConfirmed      = "PAYMENT_CONFIRMED"
	WebhookPaymentReceivedInCash = "PAYMENT_RECEIVED_IN_CASH"
	WebhookPaymentRefunded       = "PAYMENT_REFUNDED"
	WebhookPaymentOverdue        = "PAYMENT_OVERDUE"
	WebhookPaymentDeleted        = "PAYMENT_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ReservationCreatedEvent published when a pending reservation and its
// charge are opened.
type ReservationCreatedEvent struct {
	BaseEvent
	ReservationID string  `json:"reservation_id"`
	PaymentID     string  `json:"payment_id"`
	Data          string  `json:"data"`
	Horario       string  `json:"horario"`
	NumeroPessoas int     `json:"numero_pessoas"`
	Valor         float64 `json:"valor"`
}

// ReservationConfirmedEvent published when payment lands and a voucher is
// issued.
type ReservationConfirmedEvent struct {
	BaseEvent
	ReservationID string `json:"reservation_id"`
	PaymentID     string `json:"payment_id"`
	VoucherCodigo string `json:"voucher_codigo"`
	Nome          string `json:"nome"`
	Email         string `json:"email"`
	Data          string `json:"data"`
	Horario       string `json:"horario"`
	NumeroPessoas int    `json:"numero_pessoas"`
}

// ReservationCancelledEvent published when a reservation is cancelled.
type ReservationCancelledEvent struct {
	BaseEvent
	ReservationID string `json:"reservation_id"`
	PaymentID     string `json:"payment_id,omitempty"`
	Reason        string `json:"reason"`
}

// ReservationRefundedEvent published on a gateway refund.
type ReservationRefundedEvent struct {
	BaseEvent
	ReservationID string `json:"reservation_id"`
	PaymentID     string `json:"payment_id"`
}
