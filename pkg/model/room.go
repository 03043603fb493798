package model

import "time"

// Room is read-only to the booking core: it is created and managed
// elsewhere and only consulted here for availability.
type Room struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name         string    `json:"name" bson:"name" validate:"required,min=2,max=120"`
	Active       bool      `json:"active" bson:"active"`
	DisplayOrder int       `json:"display_order" bson:"display_order"`
	MaxOccupancy int       `json:"max_occupancy" bson:"max_occupancy" validate:"omitempty,min=1,max=20"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
