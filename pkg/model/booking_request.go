package model

import "time"

// BookingRequest is the public booking-creation payload: who is
// staying, where, and for which window. The amount arrives in minor
// currency units and is fixed at creation, never recomputed.
type BookingRequest struct {
	RoomID      string    `json:"room_id" validate:"required,mongodb"`
	GuestEmail  string    `json:"guest_email" validate:"required,email"`
	GuestName   string    `json:"guest_name" validate:"required,min=2,max=120"`
	GuestPhone  string    `json:"guest_phone,omitempty" validate:"omitempty,e164"`
	CheckIn     time.Time `json:"check_in" validate:"required"`
	CheckOut    time.Time `json:"check_out" validate:"required,gtfield=CheckIn"`
	Occupancy   int       `json:"occupancy" validate:"required,min=1,max=20"`
	TotalAmount int64     `json:"total_amount" validate:"required,min=1"`
	Notes       string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// BookingResult is what a successful guest booking returns: the stored
// reservation plus the gateway's hosted payment page.
type BookingResult struct {
	Reservation *Reservation `json:"reservation"`
	CheckoutURL string       `json:"checkout_url,omitempty"`
}
