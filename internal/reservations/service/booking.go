package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stayloft/internal/notify"
	"stayloft/internal/payments"
	reserrors "stayloft/internal/reservations/errors"
	"stayloft/internal/reservations/repository"
	"stayloft/internal/reservations/validator"
	"stayloft/pkg/config"
	apperrors "stayloft/pkg/errors"
	"stayloft/pkg/model"
	"stayloft/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// CheckoutGateway is the slice of the payment gateway client the
// orchestrator needs; tests substitute an in-memory fake.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, params payments.CheckoutParams) (*payments.CheckoutSession, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error)
	CreateManualBooking(ctx context.Context, req *model.BookingRequest) (*model.Reservation, error)
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	List(ctx context.Context, status string, limit int, offset int64) ([]*model.Reservation, int64, error)
	ListRooms(ctx context.Context) ([]*model.Room, error)
	SetStatus(ctx context.Context, id string, status string) (*model.Reservation, error)
	Delete(ctx context.Context, id string) error
}

type bookingService struct {
	repo      repository.ReservationRepository
	guestRepo repository.GuestRepository
	roomRepo  repository.RoomRepository
	lockRepo  repository.SlotLockRepository
	gateway   CheckoutGateway
	mailer    notify.Mailer
	validator *validator.BookingValidator
	cfg       *config.Config
}

func NewBookingService(
	repo repository.ReservationRepository,
	guestRepo repository.GuestRepository,
	roomRepo repository.RoomRepository,
	lockRepo repository.SlotLockRepository,
	gateway CheckoutGateway,
	mailer notify.Mailer,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		guestRepo: guestRepo,
		roomRepo:  roomRepo,
		lockRepo:  lockRepo,
		gateway:   gateway,
		mailer:    mailer,
		validator: validator,
		cfg:       cfg,
	}
}

// CreateBooking runs the full guest booking flow: validate, upsert the
// guest, insert a pending reservation behind the room lock, create the
// checkout session and link its identifiers back. A gateway or linking
// failure after the insert triggers the compensating cancel.
func (s *bookingService) CreateBooking(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error) {
	s.sanitizeRequest(req)
	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	room, err := s.requireBookableRoom(ctx, req)
	if err != nil {
		return nil, err
	}

	guest, err := s.guestRepo.UpsertByEmail(ctx, &model.Guest{
		Email:    req.GuestEmail,
		FullName: req.GuestName,
		Phone:    req.GuestPhone,
	})
	if err != nil {
		s.cfg.Log.Error("Failed to upsert guest", "email", req.GuestEmail, "error", err)
		return nil, apperrors.Internal("Failed to store guest details", err)
	}

	res, err := s.insertPending(ctx, req, guest.ID, model.PaymentPending)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payments.CheckoutParams{
		ReservationID: res.ID,
		Amount:        res.TotalAmount,
		ProductName: fmt.Sprintf("%s, %s to %s",
			room.Name,
			res.CheckIn.Format("2 Jan 2006"),
			res.CheckOut.Format("2 Jan 2006"),
		),
		CustomerEmail: guest.Email,
	})
	if err != nil {
		s.compensate(ctx, res)
		return nil, err
	}

	linked, err := s.linkSession(ctx, res, session)
	if err != nil {
		s.compensate(ctx, res)
		return nil, err
	}

	s.cfg.Log.Info("Booking created",
		"id", linked.ID,
		"room_id", linked.RoomID,
		"check_in", linked.CheckIn,
		"check_out", linked.CheckOut,
		"checkout_session_id", linked.CheckoutSessionID,
	)
	return &model.BookingResult{
		Reservation: linked,
		CheckoutURL: session.URL,
	}, nil
}

// CreateManualBooking is the admin path: same availability rules, no
// gateway involvement, payment tracked as not started.
func (s *bookingService) CreateManualBooking(ctx context.Context, req *model.BookingRequest) (*model.Reservation, error) {
	s.sanitizeRequest(req)
	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Manual booking validation failed", "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	if _, err := s.requireBookableRoom(ctx, req); err != nil {
		return nil, err
	}

	guest, err := s.guestRepo.UpsertByEmail(ctx, &model.Guest{
		Email:    req.GuestEmail,
		FullName: req.GuestName,
		Phone:    req.GuestPhone,
	})
	if err != nil {
		s.cfg.Log.Error("Failed to upsert guest", "email", req.GuestEmail, "error", err)
		return nil, apperrors.Internal("Failed to store guest details", err)
	}

	res, err := s.insertPending(ctx, req, guest.ID, model.PaymentNotStarted)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Manual booking created", "id", res.ID, "room_id", res.RoomID)
	return res, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}

	return res, nil
}

func (s *bookingService) List(ctx context.Context, status string, limit int, offset int64) ([]*model.Reservation, int64, error) {
	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, status)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count reservations", "status", status, "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.FindAll(ctx, status, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list reservations", "status", status, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return reservations, count, nil
}

func (s *bookingService) ListRooms(ctx context.Context) ([]*model.Room, error) {
	rooms, err := s.roomRepo.FindActive(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list rooms", "error", err)
		return nil, apperrors.Internal("Failed to retrieve rooms", err)
	}
	return rooms, nil
}

// --- Helpers ---

func (s *bookingService) sanitizeRequest(req *model.BookingRequest) {
	req.GuestEmail = sanitizer.NormalizeEmail(req.GuestEmail)
	req.GuestName = sanitizer.NormalizeName(req.GuestName)
	req.GuestPhone = sanitizer.NormalizePhone(req.GuestPhone)
	req.Notes = sanitizer.NormalizeNotes(req.Notes)
}

func (s *bookingService) requireBookableRoom(ctx context.Context, req *model.BookingRequest) (*model.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, reserrors.ErrRoomNotFound) {
			return nil, apperrors.NotFoundWithID("Room", req.RoomID)
		}
		return nil, apperrors.Internal("Failed to check room", err)
	}
	if !room.Active {
		return nil, apperrors.InvalidInput("Room is not open for booking")
	}
	if room.MaxOccupancy > 0 && req.Occupancy > room.MaxOccupancy {
		return nil, apperrors.Validation("Occupancy exceeds room capacity", map[string]any{
			"occupancy":     req.Occupancy,
			"max_occupancy": room.MaxOccupancy,
		})
	}
	return room, nil
}

// insertPending performs the overlap check and insert inside one store
// transaction, serialized per room by the advisory lock. The lock plus
// the transaction close the window where two concurrent requests both
// pass the check before either inserts; the lock's TTL keeps a crashed
// request from wedging the room.
func (s *bookingService) insertPending(ctx context.Context, req *model.BookingRequest, guestID, paymentStatus string) (*model.Reservation, error) {
	lockID, err := s.acquireRoomLock(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.releaseRoomLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release room lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	res := &model.Reservation{
		RoomID:        req.RoomID,
		GuestID:       guestID,
		CheckIn:       req.CheckIn,
		CheckOut:      req.CheckOut,
		Occupancy:     req.Occupancy,
		TotalAmount:   req.TotalAmount,
		Currency:      s.cfg.GatewayCurrency,
		Status:        model.StatusPending,
		PaymentStatus: paymentStatus,
		Notes:         req.Notes,
	}

	// The request was validated already; this checks the assembled
	// document, which also carries server-side fields such as the
	// configured currency.
	if err := s.validator.Validate(res); err != nil {
		s.cfg.Log.Error("Assembled reservation failed validation", "room_id", req.RoomID, "error", err)
		return nil, apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		overlapping, err := s.repo.FindOverlapping(sessCtx, req.RoomID, req.CheckIn, req.CheckOut, model.BlockingStatuses)
		if err != nil {
			return apperrors.Internal("Failed to check availability", err)
		}
		if len(overlapping) > 0 {
			return apperrors.DatesUnavailable("The selected dates are no longer available for this room")
		}

		if err := s.repo.Create(sessCtx, res); err != nil {
			return apperrors.Internal("Failed to create reservation", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create reservation", "room_id", req.RoomID, "error", err)
		return nil, err
	}

	return res, nil
}

// linkSession writes the gateway identifiers back onto the fresh
// reservation; immediate synchronous success also marks it paid.
func (s *bookingService) linkSession(ctx context.Context, res *model.Reservation, session *payments.CheckoutSession) (*model.Reservation, error) {
	update := &model.ReservationUpdate{
		CheckoutSessionID: &session.ID,
	}
	if session.PaymentIntent != "" {
		update.PaymentIntentID = &session.PaymentIntent
	}
	if len(session.PaymentMethodTypes) > 0 {
		update.PaymentMethod = &session.PaymentMethodTypes[0]
	}
	if session.PaymentStatus == payments.SessionPaid {
		// This is the transition into paid, so the approval timestamp
		// is recorded here; the later webhook replay must find it set.
		paid := model.PaymentPaid
		update.PaymentStatus = &paid
		approvedAt := timeNow().UTC().Truncate(time.Millisecond)
		update.PaymentApprovedAt = &approvedAt
	}

	linked, err := s.repo.Update(ctx, res.ID, res.Version, update)
	if err != nil {
		s.cfg.Log.Error("Failed to link checkout session",
			"id", res.ID,
			"checkout_session_id", session.ID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to link checkout session", err)
	}

	return linked, nil
}

// compensate cancels the just-created reservation after a downstream
// failure, but only while it is still pending: a fast webhook may have
// moved it forward already, and that state wins.
func (s *bookingService) compensate(ctx context.Context, res *model.Reservation) {
	current, err := s.repo.FindByID(ctx, res.ID)
	if err != nil {
		s.cfg.Log.Error("Compensating cancel could not load reservation", "id", res.ID, "error", err)
		return
	}
	if current.Status != model.StatusPending {
		s.cfg.Log.Warn("Skipping compensating cancel, reservation moved on",
			"id", res.ID,
			"status", current.Status,
		)
		return
	}

	cancelled := model.StatusCancelled
	failed := model.PaymentFailed
	_, err = s.repo.Update(ctx, res.ID, current.Version, &model.ReservationUpdate{
		Status:        &cancelled,
		PaymentStatus: &failed,
	})
	if err != nil {
		s.cfg.Log.Error("Compensating cancel failed", "id", res.ID, "error", err)
		return
	}

	s.cfg.Log.Info("Reservation cancelled after checkout failure", "id", res.ID)
}

func (s *bookingService) acquireRoomLock(ctx context.Context, roomID string) (string, error) {
	lockID := fmt.Sprintf("room_lock_%s", roomID)

	lock := &model.SlotLock{
		ID:        lockID,
		ExpiresAt: timeNow().Add(s.cfg.SlotLockTTL),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("Another booking for this room is in progress. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire room lock", err)
	}

	return lockID, nil
}

func (s *bookingService) releaseRoomLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}

func mapLookupError(err error, id string) error {
	if errors.Is(err, reserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Reservation", id)
	}
	if errors.Is(err, reserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid reservation ID format")
	}
	return apperrors.Internal("Failed to retrieve reservation", err)
}
