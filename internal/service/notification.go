package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/models"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

// NotificationService renders and delivers customer messages off the
// reservation event stream. Delivery is a structured log line; the mail
// provider hangs off the same call sites when one is wired in.
type NotificationService struct {
	logger *zap.Logger
}

// NewNotificationService creates a new notification service.
func NewNotificationService() *NotificationService {
	return &NotificationService{logger: util.GetLogger()}
}

// SendConfirmation delivers the voucher message for a confirmed
// reservation.
func (s *NotificationService) SendConfirmation(ctx context.Context, event *models.ReservationConfirmedEvent) error {
	message := fmt.Sprintf(
		"Olá %s! Sua reserva para %s às %s (%d pessoas) está confirmada. "+
			"Apresente o voucher %s na chegada. O valor do sinal será abatido da conta.",
		event.Nome, event.Data, event.Horario, event.NumeroPessoas, event.VoucherCodigo)

	s.logger.Info("Confirmation notification sent",
		zap.String("reservation_id", event.ReservationID),
		zap.String("email", event.Email),
		zap.String("message", message))

	util.NotificationsSentTotal.Inc()
	return nil
}

// SendCancellation notifies about a cancelled reservation.
func (s *NotificationService) SendCancellation(ctx context.Context, event *models.ReservationCancelledEvent) error {
	s.logger.Info("Cancellation notification sent",
		zap.String("reservation_id", event.ReservationID),
		zap.String("reason", event.Reason))

	util.NotificationsSentTotal.Inc()
	return nil
}
