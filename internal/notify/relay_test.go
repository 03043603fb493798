package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stayloft/pkg/client"
	"stayloft/pkg/kafka"
)

func eventMessage(t *testing.T, event EmailEvent) kafka.Message {
	t.Helper()
	return kafka.NewMessage().
		WithKey(event.ReservationID).
		WithValue(event).
		WithEventType(event.Type).
		Build()
}

func TestRelayForwarderHandle(t *testing.T) {
	var got relayRequest
	requests := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != relaySendPath {
			t.Errorf("expected path %s, got %s", relaySendPath, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode relay request: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	f := NewRelayForwarder(client.NewHttpClient(server.URL), testLogger())

	event := EmailEvent{
		Type:          TypeBookingConfirmation,
		To:            "guest@example.com",
		ReservationID: "res_1",
		GuestName:     "Dana Guest",
		RoomName:      "Garden Room",
		CheckIn:       time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:      time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC),
		TotalAmount:   42000,
		Currency:      "usd",
	}

	if err := f.Handle(context.Background(), eventMessage(t, event)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if requests != 1 {
		t.Fatalf("expected 1 relay request, got %d", requests)
	}
	if got.To != "guest@example.com" {
		t.Errorf("expected recipient guest@example.com, got %s", got.To)
	}
	if !strings.Contains(got.Subject, "Garden Room") {
		t.Errorf("expected subject to mention the room, got %q", got.Subject)
	}
	if !strings.Contains(got.Body, "420.00 usd") {
		t.Errorf("expected body to carry the formatted amount, got %q", got.Body)
	}
}

func TestRelayForwarderDropsUnknownType(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	f := NewRelayForwarder(client.NewHttpClient(server.URL), testLogger())

	event := EmailEvent{Type: "room_service_upsell", ReservationID: "res_1"}
	if err := f.Handle(context.Background(), eventMessage(t, event)); err != nil {
		t.Fatalf("expected unknown type to be dropped without error, got: %v", err)
	}
	if requests != 0 {
		t.Errorf("expected no relay requests, got %d", requests)
	}
}

func TestRelayForwarderDropsUndecodablePayload(t *testing.T) {
	f := NewRelayForwarder(client.NewHttpClient("http://relay.invalid"), testLogger())

	msg := kafka.NewMessage().WithKey("res_1").WithRawValue([]byte("not json")).Build()
	if err := f.Handle(context.Background(), msg); err != nil {
		t.Fatalf("expected undecodable payload to be dropped without error, got: %v", err)
	}
}

func TestRelayForwarderReturnsErrorOnRelayFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"relay overloaded"}`))
	}))
	defer server.Close()

	f := NewRelayForwarder(client.NewHttpClient(server.URL), testLogger())

	event := EmailEvent{
		Type:          TypeStatusChange,
		To:            "guest@example.com",
		ReservationID: "res_1",
		Status:        "cancelled",
	}
	if err := f.Handle(context.Background(), eventMessage(t, event)); err == nil {
		t.Fatal("expected relay failure to surface so the consumer retries")
	}
}
