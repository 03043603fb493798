package notify

import (
	"context"
	"io"
	"testing"
	"time"

	"stayloft/pkg/kafka"
	"stayloft/pkg/logger"
	"stayloft/pkg/model"
)

type mockPublisher struct {
	publishFunc func(ctx context.Context, msg kafka.Message) error
	published   []kafka.Message
}

func (m *mockPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	m.published = append(m.published, msg)
	if m.publishFunc != nil {
		return m.publishFunc(ctx, msg)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Output: io.Discard})
}

func fixtureReservation() *model.Reservation {
	return &model.Reservation{
		ID:            "665f1b2c3d4e5f6a7b8c9d0e",
		RoomID:        "665f1b2c3d4e5f6a7b8c9d0f",
		CheckIn:       time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:      time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC),
		TotalAmount:   42000,
		Currency:      "usd",
		PaymentMethod: "card",
	}
}

func fixtureGuest() *model.Guest {
	return &model.Guest{Email: "guest@example.com", FullName: "Dana Guest"}
}

func fixtureRoom() *model.Room {
	return &model.Room{Name: "Garden Room"}
}

func TestKafkaMailerSendBookingConfirmation(t *testing.T) {
	pub := &mockPublisher{}
	m := NewKafkaMailer(pub, "admin@example.com", testLogger())

	res := fixtureReservation()
	if err := m.SendBookingConfirmation(context.Background(), res, fixtureGuest(), fixtureRoom()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(pub.published))
	}
	msg := pub.published[0]
	if msg.Key != res.ID {
		t.Errorf("expected message key %s, got %s", res.ID, msg.Key)
	}
	if got := msg.GetEventType(); got != TypeBookingConfirmation {
		t.Errorf("expected event type %s, got %s", TypeBookingConfirmation, got)
	}

	var event EmailEvent
	if err := msg.DecodeValue(&event); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if event.To != "guest@example.com" {
		t.Errorf("expected recipient guest@example.com, got %s", event.To)
	}
	if event.RoomName != "Garden Room" {
		t.Errorf("expected room name Garden Room, got %s", event.RoomName)
	}
	if event.TotalAmount != 42000 {
		t.Errorf("expected amount 42000, got %d", event.TotalAmount)
	}
}

func TestKafkaMailerSendAdminPaymentApproved(t *testing.T) {
	t.Run("publishes to admin address", func(t *testing.T) {
		pub := &mockPublisher{}
		m := NewKafkaMailer(pub, "admin@example.com", testLogger())

		if err := m.SendAdminPaymentApproved(context.Background(), fixtureReservation(), fixtureGuest(), fixtureRoom()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(pub.published) != 1 {
			t.Fatalf("expected 1 published message, got %d", len(pub.published))
		}
		var event EmailEvent
		if err := pub.published[0].DecodeValue(&event); err != nil {
			t.Fatalf("failed to decode event: %v", err)
		}
		if event.To != "admin@example.com" {
			t.Errorf("expected admin recipient, got %s", event.To)
		}
	})

	t.Run("skips when no admin address configured", func(t *testing.T) {
		pub := &mockPublisher{}
		m := NewKafkaMailer(pub, "", testLogger())

		if err := m.SendAdminPaymentApproved(context.Background(), fixtureReservation(), fixtureGuest(), fixtureRoom()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pub.published) != 0 {
			t.Errorf("expected no published messages, got %d", len(pub.published))
		}
	})
}

func TestKafkaMailerSendStatusChange(t *testing.T) {
	pub := &mockPublisher{}
	m := NewKafkaMailer(pub, "admin@example.com", testLogger())

	if err := m.SendStatusChange(context.Background(), fixtureReservation(), fixtureGuest(), fixtureRoom(), model.StatusCancelled); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var event EmailEvent
	if err := pub.published[0].DecodeValue(&event); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if event.Status != model.StatusCancelled {
		t.Errorf("expected status %s, got %s", model.StatusCancelled, event.Status)
	}
	if event.Type != TypeStatusChange {
		t.Errorf("expected type %s, got %s", TypeStatusChange, event.Type)
	}
}

func TestKafkaMailerPublishFailure(t *testing.T) {
	pub := &mockPublisher{
		publishFunc: func(ctx context.Context, msg kafka.Message) error {
			return context.DeadlineExceeded
		},
	}
	m := NewKafkaMailer(pub, "admin@example.com", testLogger())

	err := m.SendBookingConfirmation(context.Background(), fixtureReservation(), fixtureGuest(), fixtureRoom())
	if err == nil {
		t.Fatal("expected publish failure to surface")
	}
}
