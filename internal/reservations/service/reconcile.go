package service

import (
	"context"
	"errors"
	"time"

	"stayloft/internal/notify"
	"stayloft/internal/payments"
	reserrors "stayloft/internal/reservations/errors"
	"stayloft/internal/reservations/repository"
	"stayloft/pkg/config"
	apperrors "stayloft/pkg/errors"
	"stayloft/pkg/model"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// maxGuardRetries bounds how often a guarded update is re-applied when
// it loses a version race against a concurrent transition.
const maxGuardRetries = 3

// ReconciliationService applies verified gateway notifications to
// reservation state. Every transition is idempotent and guarded, since
// the gateway delivers at-least-once and in no particular order.
type ReconciliationService interface {
	HandleEvent(ctx context.Context, event *payments.Event) error
}

type reconciliationService struct {
	repo      repository.ReservationRepository
	guestRepo repository.GuestRepository
	roomRepo  repository.RoomRepository
	mailer    notify.Mailer
	cfg       *config.Config
}

func NewReconciliationService(
	repo repository.ReservationRepository,
	guestRepo repository.GuestRepository,
	roomRepo repository.RoomRepository,
	mailer notify.Mailer,
	cfg *config.Config,
) ReconciliationService {
	return &reconciliationService{
		repo:      repo,
		guestRepo: guestRepo,
		roomRepo:  roomRepo,
		mailer:    mailer,
		cfg:       cfg,
	}
}

// operation is one idempotent state transition.
type operation func(ctx context.Context, res *model.Reservation, session *payments.CheckoutSession) error

// transitionFor is the explicit event table: event type to operation.
// A nil return means the event carries nothing for this system.
func (s *reconciliationService) transitionFor(eventType string, session *payments.CheckoutSession) operation {
	switch eventType {
	case payments.EventCheckoutCompleted:
		if session.PaymentStatus == payments.SessionPaid {
			return s.approvePayment
		}
		return s.markPending

	case payments.EventAsyncPaymentSucceeded:
		return s.approvePayment

	case payments.EventAsyncPaymentFailed:
		return func(ctx context.Context, res *model.Reservation, session *payments.CheckoutSession) error {
			return s.markFailed(ctx, res, model.PaymentFailed)
		}

	case payments.EventCheckoutExpired:
		return func(ctx context.Context, res *model.Reservation, session *payments.CheckoutSession) error {
			return s.markFailed(ctx, res, model.PaymentExpired)
		}
	}

	return nil
}

func (s *reconciliationService) HandleEvent(ctx context.Context, event *payments.Event) error {
	session, err := payments.UnmarshalSession(event)
	if err != nil {
		s.cfg.Log.Warn("Discarding event with undecodable session object",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		return nil
	}

	op := s.transitionFor(event.Type, session)
	if op == nil {
		s.cfg.Log.Debug("Ignoring event type", "event_id", event.ID, "event_type", event.Type)
		return nil
	}

	res, err := s.resolveReservation(ctx, session)
	if err != nil {
		return err
	}
	if res == nil {
		// Foreign or test traffic; acknowledge so it is not redelivered.
		s.cfg.Log.Debug("No reservation for event, skipping",
			"event_id", event.ID,
			"checkout_session_id", session.ID,
		)
		return nil
	}

	if err := op(ctx, res, session); err != nil {
		s.cfg.Log.Error("Failed to apply payment event",
			"event_id", event.ID,
			"event_type", event.Type,
			"reservation_id", res.ID,
			"error", err,
		)
		return err
	}

	return nil
}

// resolveReservation prefers the reservation id the checkout was tagged
// with and falls back to the session id; both were written at creation.
func (s *reconciliationService) resolveReservation(ctx context.Context, session *payments.CheckoutSession) (*model.Reservation, error) {
	if id := session.ReservationID(); id != "" {
		res, err := s.repo.FindByID(ctx, id)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, reserrors.ErrNotFound) && !errors.Is(err, reserrors.ErrInvalidID) {
			return nil, apperrors.Internal("Failed to resolve reservation", err)
		}
	}

	if session.ID != "" {
		res, err := s.repo.FindByCheckoutSessionID(ctx, session.ID)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, reserrors.ErrNotFound) {
			return nil, apperrors.Internal("Failed to resolve reservation by session", err)
		}
	}

	return nil, nil
}

// approvePayment confirms the reservation and records the payment.
// Guard: a reservation that is already paid, confirmed and stamped is
// left untouched, which both makes replays no-ops and keeps
// payment_approved_at at its first value. A paid reservation missing
// the stamp gets it backfilled. Emails go out only on the actual
// transition into paid.
func (s *reconciliationService) approvePayment(ctx context.Context, res *model.Reservation, session *payments.CheckoutSession) error {
	var wasPaid bool
	updated, applied, err := applyGuarded(ctx, s.repo, res, func(current *model.Reservation) (*model.ReservationUpdate, bool) {
		wasPaid = current.PaymentStatus == model.PaymentPaid
		if wasPaid && current.Status == model.StatusConfirmed && current.PaymentApprovedAt != nil {
			return nil, false
		}

		confirmed := model.StatusConfirmed
		paid := model.PaymentPaid
		update := &model.ReservationUpdate{
			Status:        &confirmed,
			PaymentStatus: &paid,
		}
		if current.PaymentApprovedAt == nil {
			approvedAt := timeNow().UTC().Truncate(time.Millisecond)
			update.PaymentApprovedAt = &approvedAt
		}
		applyLinkage(update, current, session)
		return update, true
	})
	if err != nil {
		return err
	}
	if !applied {
		s.cfg.Log.Debug("Payment already approved, replay ignored", "reservation_id", res.ID)
		return nil
	}

	s.cfg.Log.Info("Payment approved",
		"reservation_id", updated.ID,
		"checkout_session_id", updated.CheckoutSessionID,
		"payment_method", updated.PaymentMethod,
	)

	if !wasPaid {
		s.sendApprovalEmails(ctx, updated)
	}
	return nil
}

// markPending records that the gateway considers payment in progress.
// Guard: never steps on a paid or already confirmed reservation.
func (s *reconciliationService) markPending(ctx context.Context, res *model.Reservation, session *payments.CheckoutSession) error {
	_, applied, err := applyGuarded(ctx, s.repo, res, func(current *model.Reservation) (*model.ReservationUpdate, bool) {
		if current.PaymentStatus == model.PaymentPaid || current.Status == model.StatusConfirmed {
			return nil, false
		}

		pending := model.PaymentPending
		update := &model.ReservationUpdate{
			PaymentStatus: &pending,
		}
		applyLinkage(update, current, session)
		return update, true
	})
	if err != nil {
		return err
	}
	if !applied {
		s.cfg.Log.Debug("Skipping pending mark on settled reservation", "reservation_id", res.ID)
		return nil
	}

	s.cfg.Log.Info("Payment pending", "reservation_id", res.ID)
	return nil
}

// markFailed cancels the reservation over a failed or expired checkout.
// Guard: paid is terminal, a late failure event never reverts it.
func (s *reconciliationService) markFailed(ctx context.Context, res *model.Reservation, paymentStatus string) error {
	_, applied, err := applyGuarded(ctx, s.repo, res, func(current *model.Reservation) (*model.ReservationUpdate, bool) {
		if current.PaymentStatus == model.PaymentPaid {
			return nil, false
		}

		cancelled := model.StatusCancelled
		update := &model.ReservationUpdate{
			Status:          &cancelled,
			PaymentStatus:   &paymentStatus,
			ClearApprovedAt: true,
		}
		return update, true
	})
	if err != nil {
		return err
	}
	if !applied {
		s.cfg.Log.Debug("Ignoring failure event for paid reservation",
			"reservation_id", res.ID,
			"payment_status", paymentStatus,
		)
		return nil
	}

	s.cfg.Log.Info("Reservation cancelled by gateway event",
		"reservation_id", res.ID,
		"payment_status", paymentStatus,
	)
	return nil
}

func (s *reconciliationService) sendApprovalEmails(ctx context.Context, res *model.Reservation) {
	guest, err := s.guestRepo.FindByID(ctx, res.GuestID)
	if err != nil {
		s.cfg.Log.Error("Cannot send approval emails without guest",
			"reservation_id", res.ID,
			"guest_id", res.GuestID,
			"error", err,
		)
		return
	}

	room, err := s.roomRepo.FindByID(ctx, res.RoomID)
	if err != nil {
		s.cfg.Log.Warn("Sending approval emails without room details",
			"reservation_id", res.ID,
			"room_id", res.RoomID,
			"error", err,
		)
		room = nil
	}

	if err := s.mailer.SendBookingConfirmation(ctx, res, guest, room); err != nil {
		s.cfg.Log.Error("Failed to dispatch booking confirmation", "reservation_id", res.ID, "error", err)
	}
	if err := s.mailer.SendAdminPaymentApproved(ctx, res, guest, room); err != nil {
		s.cfg.Log.Error("Failed to dispatch admin payment notice", "reservation_id", res.ID, "error", err)
	}
}

// applyLinkage copies gateway identifiers onto the update when the
// event carries fresher values than the stored reservation.
func applyLinkage(update *model.ReservationUpdate, current *model.Reservation, session *payments.CheckoutSession) {
	if session.ID != "" && session.ID != current.CheckoutSessionID {
		update.CheckoutSessionID = &session.ID
	}
	if session.PaymentIntent != "" && session.PaymentIntent != current.PaymentIntentID {
		update.PaymentIntentID = &session.PaymentIntent
	}
	if len(session.PaymentMethodTypes) > 0 && session.PaymentMethodTypes[0] != current.PaymentMethod {
		update.PaymentMethod = &session.PaymentMethodTypes[0]
	}
}

// applyGuarded evaluates the guard against the freshest copy of the
// reservation and writes the update under its version. When the write
// loses a version race it reloads and re-evaluates, so a guard that
// passed against stale state cannot overwrite a concurrent transition.
func applyGuarded(
	ctx context.Context,
	repo repository.ReservationRepository,
	res *model.Reservation,
	build func(current *model.Reservation) (*model.ReservationUpdate, bool),
) (*model.Reservation, bool, error) {
	current := res

	for attempt := 0; attempt <= maxGuardRetries; attempt++ {
		update, ok := build(current)
		if !ok {
			return current, false, nil
		}

		updated, err := repo.Update(ctx, current.ID, current.Version, update)
		if err == nil {
			return updated, true, nil
		}
		if !errors.Is(err, reserrors.ErrVersionConflict) {
			return nil, false, apperrors.Internal("Failed to update reservation", err)
		}

		current, err = repo.FindByID(ctx, current.ID)
		if err != nil {
			return nil, false, apperrors.Internal("Failed to reload reservation after conflict", err)
		}
	}

	return nil, false, apperrors.Conflict("Reservation is being updated concurrently, giving up")
}
