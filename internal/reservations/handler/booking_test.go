package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "stayloft/pkg/errors"
	"stayloft/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockBookingService struct {
	createBookingFunc func(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error)
	createManualFunc  func(ctx context.Context, req *model.BookingRequest) (*model.Reservation, error)
	getByIDFunc       func(ctx context.Context, id string) (*model.Reservation, error)
	listFunc          func(ctx context.Context, status string, limit int, offset int64) ([]*model.Reservation, int64, error)
	listRoomsFunc     func(ctx context.Context) ([]*model.Room, error)
	setStatusFunc     func(ctx context.Context, id string, status string) (*model.Reservation, error)
	deleteFunc        func(ctx context.Context, id string) error
}

func (m *mockBookingService) CreateBooking(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error) {
	if m.createBookingFunc != nil {
		return m.createBookingFunc(ctx, req)
	}
	return nil, nil
}

func (m *mockBookingService) CreateManualBooking(ctx context.Context, req *model.BookingRequest) (*model.Reservation, error) {
	if m.createManualFunc != nil {
		return m.createManualFunc(ctx, req)
	}
	return nil, nil
}

func (m *mockBookingService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockBookingService) List(ctx context.Context, status string, limit int, offset int64) ([]*model.Reservation, int64, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, status, limit, offset)
	}
	return []*model.Reservation{}, 0, nil
}

func (m *mockBookingService) ListRooms(ctx context.Context) ([]*model.Room, error) {
	if m.listRoomsFunc != nil {
		return m.listRoomsFunc(ctx)
	}
	return []*model.Room{}, nil
}

func (m *mockBookingService) SetStatus(ctx context.Context, id string, status string) (*model.Reservation, error) {
	if m.setStatusFunc != nil {
		return m.setStatusFunc(ctx, id, status)
	}
	return nil, nil
}

func (m *mockBookingService) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func bookingRequestBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(model.BookingRequest{
		RoomID:      "507f1f77bcf86cd799439011",
		GuestEmail:  "guest@example.com",
		GuestName:   "Dana Vale",
		CheckIn:     time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:    time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC),
		Occupancy:   2,
		TotalAmount: 42000,
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return body
}

func TestBookingCreateSuccess(t *testing.T) {
	var received *model.BookingRequest
	service := &mockBookingService{
		createBookingFunc: func(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error) {
			received = req
			return &model.BookingResult{
				Reservation: &model.Reservation{ID: "res_1", Status: model.StatusPending},
				CheckoutURL: "https://pay.example.com/cs_1",
			}, nil
		},
	}
	handler := NewBookingHandler(service, testLog())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(bookingRequestBody(t)))
	w := httptest.NewRecorder()

	handler.Create(w, req, httprouter.Params{})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if received == nil || received.GuestEmail != "guest@example.com" {
		t.Errorf("service did not receive the decoded request: %+v", received)
	}
	if !strings.Contains(w.Body.String(), "https://pay.example.com/cs_1") {
		t.Errorf("response should carry the checkout URL: %s", w.Body.String())
	}
}

func TestBookingCreateInvalidBody(t *testing.T) {
	called := false
	service := &mockBookingService{
		createBookingFunc: func(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error) {
			called = true
			return nil, nil
		},
	}
	handler := NewBookingHandler(service, testLog())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	handler.Create(w, req, httprouter.Params{})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if called {
		t.Errorf("service must not be called for an undecodable body")
	}
}

func TestBookingCreateServiceErrorMapped(t *testing.T) {
	service := &mockBookingService{
		createBookingFunc: func(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error) {
			return nil, apperrors.DatesUnavailable("Requested dates are no longer available")
		},
	}
	handler := NewBookingHandler(service, testLog())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(bookingRequestBody(t)))
	w := httptest.NewRecorder()

	handler.Create(w, req, httprouter.Params{})

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestBookingRooms(t *testing.T) {
	service := &mockBookingService{
		listRoomsFunc: func(ctx context.Context) ([]*model.Room, error) {
			return []*model.Room{
				{ID: "room_1", Name: "Garden Loft"},
				{ID: "room_2", Name: "Skyline Suite"},
			}, nil
		},
	}
	handler := NewBookingHandler(service, testLog())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	w := httptest.NewRecorder()

	handler.Rooms(w, req, httprouter.Params{})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Garden Loft") {
		t.Errorf("expected rooms in response: %s", w.Body.String())
	}
}
