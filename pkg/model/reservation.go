package model

import (
	"time"
)

// Lifecycle statuses of a reservation. Pending and confirmed are the
// blocking statuses: they count toward overlap conflicts. Cancelled and
// completed never block new bookings over the same window.
const (
	StatusPending         = "pending"
	StatusAwaitingPayment = "awaiting_payment"
	StatusConfirmed       = "confirmed"
	StatusCancelled       = "cancelled"
	StatusCompleted       = "completed"
)

// Payment statuses track the gateway's view of the reservation,
// independent of the lifecycle status. Paid is terminal with respect to
// the lesser statuses: once reached it is never overwritten by pending,
// failed, cancelled or expired.
const (
	PaymentNotStarted = "not_started"
	PaymentPending    = "pending"
	PaymentPaid       = "paid"
	PaymentFailed     = "failed"
	PaymentCancelled  = "cancelled"
	PaymentExpired    = "expired"
)

// BlockingStatuses is the set of lifecycle statuses considered by the
// overlap query when a new booking is created.
var BlockingStatuses = []string{StatusPending, StatusConfirmed}

type Reservation struct {
	ID      string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	RoomID  string `json:"room_id" bson:"room_id" validate:"required,mongodb"`
	GuestID string `json:"guest_id" bson:"guest_id" validate:"required,mongodb"`

	// Stay window is half-open: check-in inclusive, check-out exclusive.
	CheckIn  time.Time `json:"check_in" bson:"check_in" validate:"required"`
	CheckOut time.Time `json:"check_out" bson:"check_out" validate:"required,gtfield=CheckIn"`

	Occupancy int `json:"occupancy" bson:"occupancy" validate:"required,min=1,max=20"`

	// TotalAmount is fixed at creation, in minor currency units.
	TotalAmount int64  `json:"total_amount" bson:"total_amount" validate:"required,min=1"`
	Currency    string `json:"currency" bson:"currency" validate:"required,len=3"`

	Status        string `json:"status" bson:"status" validate:"required,oneof=pending awaiting_payment confirmed cancelled completed"`
	PaymentStatus string `json:"payment_status" bson:"payment_status" validate:"required,oneof=not_started pending paid failed cancelled expired"`

	CheckoutSessionID string     `json:"checkout_session_id,omitempty" bson:"checkout_session_id,omitempty"`
	PaymentIntentID   string     `json:"payment_intent_id,omitempty" bson:"payment_intent_id,omitempty"`
	PaymentMethod     string     `json:"payment_method,omitempty" bson:"payment_method,omitempty"`
	PaymentApprovedAt *time.Time `json:"payment_approved_at,omitempty" bson:"payment_approved_at,omitempty"`

	Notes string `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=2000"`

	// Version is bumped on every update and checked by the repository,
	// so that a manual transition and a webhook racing on the same row
	// cannot silently overwrite each other.
	Version   int64     `json:"version" bson:"version"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// ReservationUpdate carries the partial fields an update may touch.
// Nil pointers leave the stored value untouched; ClearApprovedAt
// removes payment_approved_at, which a nil PaymentApprovedAt alone
// cannot express.
type ReservationUpdate struct {
	Status            *string    `json:"status,omitempty" validate:"omitempty,oneof=pending awaiting_payment confirmed cancelled completed"`
	PaymentStatus     *string    `json:"payment_status,omitempty" validate:"omitempty,oneof=not_started pending paid failed cancelled expired"`
	CheckoutSessionID *string    `json:"checkout_session_id,omitempty"`
	PaymentIntentID   *string    `json:"payment_intent_id,omitempty"`
	PaymentMethod     *string    `json:"payment_method,omitempty"`
	PaymentApprovedAt *time.Time `json:"payment_approved_at,omitempty"`
	ClearApprovedAt   bool       `json:"-"`
	Notes             *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}
