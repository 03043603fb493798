package testutil

import (
	"time"

	"stayloft/pkg/model"
)

type RoomBuilder struct {
	room model.Room
}

func NewRoomBuilder() *RoomBuilder {
	return &RoomBuilder{
		room: model.Room{
			Name:         "Garden Loft",
			Active:       true,
			DisplayOrder: 1,
			MaxOccupancy: 4,
			CreatedAt:    time.Now(),
		},
	}
}

func (b *RoomBuilder) WithName(name string) *RoomBuilder {
	b.room.Name = name
	return b
}

func (b *RoomBuilder) Inactive() *RoomBuilder {
	b.room.Active = false
	return b
}

func (b *RoomBuilder) WithMaxOccupancy(n int) *RoomBuilder {
	b.room.MaxOccupancy = n
	return b
}

func (b *RoomBuilder) Build() model.Room {
	return b.room
}

type BookingRequestBuilder struct {
	req model.BookingRequest
}

func NewBookingRequestBuilder(roomID string) *BookingRequestBuilder {
	checkIn := time.Now().AddDate(0, 1, 0).Truncate(24 * time.Hour)
	return &BookingRequestBuilder{
		req: model.BookingRequest{
			RoomID:      roomID,
			GuestEmail:  "guest@example.com",
			GuestName:   "Dana Vale",
			CheckIn:     checkIn,
			CheckOut:    checkIn.AddDate(0, 0, 3),
			Occupancy:   2,
			TotalAmount: 42000,
		},
	}
}

func (b *BookingRequestBuilder) WithGuest(email, name string) *BookingRequestBuilder {
	b.req.GuestEmail = email
	b.req.GuestName = name
	return b
}

func (b *BookingRequestBuilder) WithWindow(checkIn, checkOut time.Time) *BookingRequestBuilder {
	b.req.CheckIn = checkIn
	b.req.CheckOut = checkOut
	return b
}

func (b *BookingRequestBuilder) WithOccupancy(n int) *BookingRequestBuilder {
	b.req.Occupancy = n
	return b
}

func (b *BookingRequestBuilder) Build() model.BookingRequest {
	return b.req
}
