package service

import (
	"context"
	"errors"
	"fmt"

	reserrors "stayloft/internal/reservations/errors"
	apperrors "stayloft/pkg/errors"
	"stayloft/pkg/model"
)

// manualTargets are the statuses an administrator may set directly.
var manualTargets = map[string]bool{
	model.StatusConfirmed: true,
	model.StatusCancelled: true,
	model.StatusCompleted: true,
}

// SetStatus is the human counterpart of the reconciliation handler: it
// shares the same reservation state machine and the same version-based
// write guard, so a manual transition racing a webhook cannot silently
// lose either update. Cancelling also voids the payment and clears the
// approval timestamp.
func (s *bookingService) SetStatus(ctx context.Context, id string, status string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	if !manualTargets[status] {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Status must be one of: confirmed, cancelled, completed; got %q", status))
	}

	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}

	target := status
	update := &model.ReservationUpdate{Status: &target}
	if status == model.StatusCancelled {
		voided := model.PaymentCancelled
		update.PaymentStatus = &voided
		update.ClearApprovedAt = true
	}
	if err := s.validator.ValidateUpdate(update); err != nil {
		return nil, apperrors.Validation("Status update validation failed", map[string]any{"error": err.Error()})
	}

	updated, applied, err := applyGuarded(ctx, s.repo, res, func(current *model.Reservation) (*model.ReservationUpdate, bool) {
		if current.Status == status && status != model.StatusCancelled {
			return nil, false
		}
		return update, true
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		s.cfg.Log.Debug("Reservation already in requested status", "id", id, "status", status)
		return res, nil
	}

	s.cfg.Log.Info("Reservation status set manually", "id", id, "status", status)

	if status == model.StatusConfirmed || status == model.StatusCancelled {
		s.sendStatusEmail(ctx, updated, status)
	}
	return updated, nil
}

// Delete hard-removes a reservation. The handler layer enforces the
// secondary credential on top of the admin session before this runs.
func (s *bookingService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, reserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Reservation", id)
		}
		if errors.Is(err, reserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid reservation ID format")
		}
		return apperrors.Internal("Failed to delete reservation", err)
	}

	s.cfg.Log.Info("Reservation deleted", "id", id)
	return nil
}

func (s *bookingService) sendStatusEmail(ctx context.Context, res *model.Reservation, status string) {
	guest, err := s.guestRepo.FindByID(ctx, res.GuestID)
	if err != nil {
		s.cfg.Log.Error("Cannot send status email without guest",
			"reservation_id", res.ID,
			"guest_id", res.GuestID,
			"error", err,
		)
		return
	}

	room, err := s.roomRepo.FindByID(ctx, res.RoomID)
	if err != nil {
		s.cfg.Log.Warn("Sending status email without room details",
			"reservation_id", res.ID,
			"room_id", res.RoomID,
			"error", err,
		)
		room = nil
	}

	if err := s.mailer.SendStatusChange(ctx, res, guest, room, status); err != nil {
		s.cfg.Log.Error("Failed to dispatch status email", "reservation_id", res.ID, "error", err)
	}
}
