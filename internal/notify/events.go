package notify

import "time"

// Email event types carried on the notifications topic.
const (
	TypeBookingConfirmation  = "booking_confirmation"
	TypeAdminPaymentApproved = "admin_payment_approved"
	TypeStatusChange         = "status_change"
)

// EmailEvent is the payload published for every outbound email. The
// notifier worker renders it into a mail-relay request; this service
// never talks SMTP itself.
type EmailEvent struct {
	Type          string    `json:"type"`
	To            string    `json:"to"`
	ReservationID string    `json:"reservation_id"`
	GuestName     string    `json:"guest_name"`
	RoomName      string    `json:"room_name"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	TotalAmount   int64     `json:"total_amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Status        string    `json:"status,omitempty"`
}
