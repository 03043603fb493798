package payments

import "encoding/json"

// Event types delivered by the payment gateway. Delivery is
// at-least-once and unordered; consumers must be idempotent.
const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	EventCheckoutExpired       = "checkout.session.expired"
)

// Checkout session payment states reported by the gateway.
const (
	SessionPaid   = "paid"
	SessionUnpaid = "unpaid"
)

// Event is an authenticated inbound notification. Data.Object carries
// the gateway object the event describes; for all event types handled
// here that object is a checkout session.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession mirrors the slice of the gateway's session object the
// reconciliation flow needs.
type CheckoutSession struct {
	ID                 string            `json:"id"`
	URL                string            `json:"url,omitempty"`
	PaymentStatus      string            `json:"payment_status"`
	PaymentIntent      string            `json:"payment_intent,omitempty"`
	ClientReferenceID  string            `json:"client_reference_id,omitempty"`
	CustomerEmail      string            `json:"customer_email,omitempty"`
	AmountTotal        int64             `json:"amount_total,omitempty"`
	Currency           string            `json:"currency,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	PaymentMethodTypes []string          `json:"payment_method_types,omitempty"`
}

// MetadataReservationKey is the metadata field carrying the reservation
// id. The same id also goes into client_reference_id so the session can
// be traced back even if metadata is stripped.
const MetadataReservationKey = "reservation_id"

// ReservationID resolves the reservation this session belongs to,
// preferring structured metadata over the reference field.
func (s *CheckoutSession) ReservationID() string {
	if id, ok := s.Metadata[MetadataReservationKey]; ok && id != "" {
		return id
	}
	return s.ClientReferenceID
}

// UnmarshalSession decodes the session object out of an event.
func UnmarshalSession(e *Event) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &session); err != nil {
		return nil, err
	}
	return &session, nil
}
