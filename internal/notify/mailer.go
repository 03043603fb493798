package notify

import (
	"context"
	"fmt"

	"stayloft/pkg/kafka"
	"stayloft/pkg/logger"
	"stayloft/pkg/model"
)

// Mailer dispatches guest and admin emails. Implementations are
// fire-and-forget from the caller's perspective: a dispatch failure is
// logged by the caller and never rolls back reservation state.
type Mailer interface {
	SendBookingConfirmation(ctx context.Context, res *model.Reservation, guest *model.Guest, room *model.Room) error
	SendAdminPaymentApproved(ctx context.Context, res *model.Reservation, guest *model.Guest, room *model.Room) error
	SendStatusChange(ctx context.Context, res *model.Reservation, guest *model.Guest, room *model.Room, status string) error
}

// Publisher is the subset of the Kafka producer the mailer needs.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaMailer publishes email events to the notifications topic, keyed
// by reservation id so retries for one reservation stay ordered.
type KafkaMailer struct {
	producer   Publisher
	adminEmail string
	log        *logger.Logger
}

func NewKafkaMailer(producer Publisher, adminEmail string, log *logger.Logger) *KafkaMailer {
	return &KafkaMailer{
		producer:   producer,
		adminEmail: adminEmail,
		log:        log,
	}
}

func (m *KafkaMailer) SendBookingConfirmation(ctx context.Context, res *model.Reservation, guest *model.Guest, room *model.Room) error {
	return m.publish(ctx, EmailEvent{
		Type:          TypeBookingConfirmation,
		To:            guest.Email,
		ReservationID: res.ID,
		GuestName:     guest.FullName,
		RoomName:      roomName(room),
		CheckIn:       res.CheckIn,
		CheckOut:      res.CheckOut,
		TotalAmount:   res.TotalAmount,
		Currency:      res.Currency,
		PaymentMethod: res.PaymentMethod,
	})
}

func (m *KafkaMailer) SendAdminPaymentApproved(ctx context.Context, res *model.Reservation, guest *model.Guest, room *model.Room) error {
	if m.adminEmail == "" {
		m.log.Debug("No admin notification address configured, skipping", "reservation_id", res.ID)
		return nil
	}

	return m.publish(ctx, EmailEvent{
		Type:          TypeAdminPaymentApproved,
		To:            m.adminEmail,
		ReservationID: res.ID,
		GuestName:     guest.FullName,
		RoomName:      roomName(room),
		CheckIn:       res.CheckIn,
		CheckOut:      res.CheckOut,
		TotalAmount:   res.TotalAmount,
		Currency:      res.Currency,
		PaymentMethod: res.PaymentMethod,
	})
}

func (m *KafkaMailer) SendStatusChange(ctx context.Context, res *model.Reservation, guest *model.Guest, room *model.Room, status string) error {
	return m.publish(ctx, EmailEvent{
		Type:          TypeStatusChange,
		To:            guest.Email,
		ReservationID: res.ID,
		GuestName:     guest.FullName,
		RoomName:      roomName(room),
		CheckIn:       res.CheckIn,
		CheckOut:      res.CheckOut,
		TotalAmount:   res.TotalAmount,
		Currency:      res.Currency,
		Status:        status,
	})
}

func (m *KafkaMailer) publish(ctx context.Context, event EmailEvent) error {
	msg := kafka.NewMessage().
		WithKey(event.ReservationID).
		WithValue(event).
		WithEventType(event.Type).
		WithSource("reservations").
		Build()

	if err := m.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	m.log.Debug("Email event published",
		"type", event.Type,
		"reservation_id", event.ReservationID,
	)
	return nil
}

func roomName(room *model.Room) string {
	if room == nil {
		return ""
	}
	return room.Name
}
