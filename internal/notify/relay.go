package notify

import (
	"context"
	"fmt"
	"net/http"

	"stayloft/pkg/client"
	"stayloft/pkg/kafka"
	"stayloft/pkg/logger"
)

const relaySendPath = "/api/v1/send"

// relayRequest is the wire shape the mail relay accepts.
type relayRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// RelayForwarder consumes email events and forwards them to the mail
// relay over HTTP. Actual SMTP delivery stays behind the relay.
type RelayForwarder struct {
	http *client.HttpClient
	log  *logger.Logger
}

func NewRelayForwarder(httpClient *client.HttpClient, log *logger.Logger) *RelayForwarder {
	return &RelayForwarder{
		http: httpClient,
		log:  log,
	}
}

// Handle implements kafka.MessageHandler. Unknown event types are
// dropped with a warning rather than retried; the payload will never
// become renderable.
func (f *RelayForwarder) Handle(ctx context.Context, msg kafka.Message) error {
	var event EmailEvent
	if err := msg.DecodeValue(&event); err != nil {
		f.log.Warn("Dropping undecodable email event",
			"event_id", msg.GetEventID(),
			"error", err,
		)
		return nil
	}

	req, ok := render(event)
	if !ok {
		f.log.Warn("Dropping email event of unknown type",
			"type", event.Type,
			"reservation_id", event.ReservationID,
		)
		return nil
	}

	resp, err := f.http.POST(ctx, relaySendPath, req)
	if err != nil {
		return fmt.Errorf("mail relay unreachable: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("mail relay rejected %s event: %s", event.Type, client.GetErrorMessage(resp))
	}

	f.log.Info("Email forwarded to relay",
		"type", event.Type,
		"reservation_id", event.ReservationID,
		"to", event.To,
	)
	return nil
}

func render(event EmailEvent) (relayRequest, bool) {
	stay := fmt.Sprintf("%s to %s",
		event.CheckIn.Format("Mon, 2 Jan 2006"),
		event.CheckOut.Format("Mon, 2 Jan 2006"),
	)
	amount := formatAmount(event.TotalAmount, event.Currency)

	switch event.Type {
	case TypeBookingConfirmation:
		return relayRequest{
			To:      event.To,
			Subject: fmt.Sprintf("Your booking is confirmed — %s", event.RoomName),
			Body: fmt.Sprintf(
				"Hi %s,\n\nYour payment was received and your stay in %s is confirmed.\n\nDates: %s\nTotal: %s\n\nWe look forward to welcoming you.\n",
				event.GuestName, event.RoomName, stay, amount,
			),
		}, true

	case TypeAdminPaymentApproved:
		return relayRequest{
			To:      event.To,
			Subject: fmt.Sprintf("Payment received for reservation %s", event.ReservationID),
			Body: fmt.Sprintf(
				"Payment approved.\n\nReservation: %s\nGuest: %s\nRoom: %s\nDates: %s\nTotal: %s\nMethod: %s\n",
				event.ReservationID, event.GuestName, event.RoomName, stay, amount, event.PaymentMethod,
			),
		}, true

	case TypeStatusChange:
		return relayRequest{
			To:      event.To,
			Subject: fmt.Sprintf("Your booking is now %s — %s", event.Status, event.RoomName),
			Body: fmt.Sprintf(
				"Hi %s,\n\nThe status of your stay in %s (%s) changed to: %s.\n\nIf you have questions, just reply to this email.\n",
				event.GuestName, event.RoomName, stay, event.Status,
			),
		}, true
	}

	return relayRequest{}, false
}

func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(minor)/100, currency)
}
