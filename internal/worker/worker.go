package worker

import (
	"context"
	"log"
	"time"

	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/broker"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/service"
)

// SweepWorker runs the pending-reservation reconciliation on a fixed
// interval. Instances race on a redis lock inside the service, so running
// the worker on every replica is safe.
type SweepWorker struct {
	reservations *service.ReservationService
	interval     time.Duration
}

// NewSweepWorker creates a new sweep worker.
func NewSweepWorker(reservations *service.ReservationService, interval time.Duration) *SweepWorker {
	return &SweepWorker{reservations: reservations, interval: interval}
}

// Start runs the sweep loop until the context is cancelled.
func (w *SweepWorker) Start(ctx context.Context) error {
	log.Printf("Starting sweep worker, interval: %s", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Sweep worker context cancelled, stopping...")
			return ctx.Err()
		case <-ticker.C:
			result, err := w.reservations.CancelExpired(ctx)
			if err != nil {
				log.Printf("Sweep pass failed: %v", err)
				continue
			}
			if result.Skipped {
				continue
			}
			if result.Confirmed > 0 || result.Cancelled > 0 {
				log.Printf("Sweep pass: scanned=%d confirmed=%d cancelled=%d",
					result.Scanned, result.Confirmed, result.Cancelled)
			}
		}
	}
}

// NotificationWorker consumes reservation events and sends customer
// notifications.
type NotificationWorker struct {
	consumer      *broker.Consumer
	eventHandler  *broker.EventHandler
	notifications *service.NotificationService
}

// NewNotificationWorker creates a new notification worker.
func NewNotificationWorker(
	consumer *broker.Consumer,
	notifications *service.NotificationService,
) *NotificationWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnReservationConfirmed(notifications.SendConfirmation)
	eventHandler.OnReservationCancelled(notifications.SendCancellation)

	return &NotificationWorker{
		consumer:      consumer,
		eventHandler:  eventHandler,
		notifications: notifications,
	}
}

// Start starts the notification worker.
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the notification worker.
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}
