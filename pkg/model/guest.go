package model

import "time"

// Guest is keyed by email: repeat bookings from the same address upsert
// the same document instead of creating a duplicate.
type Guest struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Email     string    `json:"email" bson:"email" validate:"required,email"`
	FullName  string    `json:"full_name" bson:"full_name" validate:"required,min=2,max=120"`
	Phone     string    `json:"phone,omitempty" bson:"phone,omitempty" validate:"omitempty,e164"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}
