package model

import "time"

// SlotLock is an advisory lock taken for the duration of a booking's
// overlap-check-and-insert. The unique _id makes concurrent attempts on
// the same room collide with a duplicate key error instead of racing
// past each other's availability check.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
