package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"stayloft/internal/payments"
	reserrors "stayloft/internal/reservations/errors"
	"stayloft/internal/reservations/validator"
	mongotx "stayloft/pkg/db/mongo"
	"stayloft/pkg/config"
	apperrors "stayloft/pkg/errors"
	"stayloft/pkg/logger"
	"stayloft/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// --- In-memory fakes shared by the service tests ---

type fakeReservationRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Reservation

	createErr error
	updateErr error
	txErr     error

	// conflictNextUpdate makes the next Update call lose its version
	// check, simulating a concurrent writer.
	conflictNextUpdate bool

	updateCalls int
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{byID: map[string]*model.Reservation{}}
}

func (f *fakeReservationRepo) put(res *model.Reservation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *res
	f.byID[res.ID] = &clone
}

func (f *fakeReservationRepo) get(id string) *model.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	if res, ok := f.byID[id]; ok {
		clone := *res
		return &clone
	}
	return nil
}

func (f *fakeReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	if f.createErr != nil {
		return f.createErr
	}
	res.ID = primitive.NewObjectID().Hex()
	res.CreatedAt = time.Now().UTC()
	f.put(res)
	return nil
}

func (f *fakeReservationRepo) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if res := f.get(id); res != nil {
		return res, nil
	}
	return nil, reserrors.ErrNotFound
}

func (f *fakeReservationRepo) FindByCheckoutSessionID(ctx context.Context, sessionID string) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, res := range f.byID {
		if res.CheckoutSessionID == sessionID {
			clone := *res
			return &clone, nil
		}
	}
	return nil, reserrors.ErrNotFound
}

func (f *fakeReservationRepo) FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Reservation
	for _, res := range f.byID {
		if status == "" || res.Status == status {
			clone := *res
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) Count(ctx context.Context, status string) (int64, error) {
	all, _ := f.FindAll(ctx, status, 0, 0)
	return int64(len(all)), nil
}

func (f *fakeReservationRepo) FindOverlapping(ctx context.Context, roomID string, checkIn, checkOut time.Time, statuses []string) ([]*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	allowed := map[string]bool{}
	for _, s := range statuses {
		allowed[s] = true
	}
	var out []*model.Reservation
	for _, res := range f.byID {
		if res.RoomID != roomID || !allowed[res.Status] {
			continue
		}
		if res.CheckIn.Before(checkOut) && res.CheckOut.After(checkIn) {
			clone := *res
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) Update(ctx context.Context, id string, version int64, updates *model.ReservationUpdate) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.conflictNextUpdate {
		f.conflictNextUpdate = false
		return nil, reserrors.ErrVersionConflict
	}

	res, ok := f.byID[id]
	if !ok {
		return nil, reserrors.ErrNotFound
	}
	if res.Version != version {
		return nil, reserrors.ErrVersionConflict
	}

	if updates.Status != nil {
		res.Status = *updates.Status
	}
	if updates.PaymentStatus != nil {
		res.PaymentStatus = *updates.PaymentStatus
	}
	if updates.CheckoutSessionID != nil {
		res.CheckoutSessionID = *updates.CheckoutSessionID
	}
	if updates.PaymentIntentID != nil {
		res.PaymentIntentID = *updates.PaymentIntentID
	}
	if updates.PaymentMethod != nil {
		res.PaymentMethod = *updates.PaymentMethod
	}
	if updates.PaymentApprovedAt != nil {
		res.PaymentApprovedAt = updates.PaymentApprovedAt
	}
	if updates.ClearApprovedAt {
		res.PaymentApprovedAt = nil
	}
	if updates.Notes != nil {
		res.Notes = *updates.Notes
	}
	res.Version++

	clone := *res
	return &clone, nil
}

func (f *fakeReservationRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return reserrors.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeReservationRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if f.txErr != nil {
		return f.txErr
	}
	return fn(nil)
}

type fakeGuestRepo struct {
	mu      sync.Mutex
	byID    map[string]*model.Guest
	byEmail map[string]string
	err     error
}

func newFakeGuestRepo() *fakeGuestRepo {
	return &fakeGuestRepo{byID: map[string]*model.Guest{}, byEmail: map[string]string{}}
}

func (f *fakeGuestRepo) UpsertByEmail(ctx context.Context, guest *model.Guest) (*model.Guest, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.byEmail[guest.Email]
	if !ok {
		id = primitive.NewObjectID().Hex()
		f.byEmail[guest.Email] = id
	}
	stored := *guest
	stored.ID = id
	f.byID[id] = &stored
	clone := stored
	return &clone, nil
}

func (f *fakeGuestRepo) FindByID(ctx context.Context, id string) (*model.Guest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if guest, ok := f.byID[id]; ok {
		clone := *guest
		return &clone, nil
	}
	return nil, reserrors.ErrGuestNotFound
}

type fakeRoomRepo struct {
	rooms map[string]*model.Room
}

func newFakeRoomRepo(rooms ...*model.Room) *fakeRoomRepo {
	f := &fakeRoomRepo{rooms: map[string]*model.Room{}}
	for _, room := range rooms {
		f.rooms[room.ID] = room
	}
	return f
}

func (f *fakeRoomRepo) FindByID(ctx context.Context, id string) (*model.Room, error) {
	if room, ok := f.rooms[id]; ok {
		clone := *room
		return &clone, nil
	}
	return nil, reserrors.ErrRoomNotFound
}

func (f *fakeRoomRepo) FindActive(ctx context.Context) ([]*model.Room, error) {
	var out []*model.Room
	for _, room := range f.rooms {
		if room.Active {
			clone := *room
			out = append(out, &clone)
		}
	}
	return out, nil
}

type fakeLockRepo struct {
	mu    sync.Mutex
	locks map[string]bool
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{locks: map[string]bool{}}
}

func duplicateKeyError() error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
}

func (f *fakeLockRepo) Create(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[lock.ID] {
		return nil, duplicateKeyError()
	}
	f.locks[lock.ID] = true
	return lock, nil
}

func (f *fakeLockRepo) Delete(ctx context.Context, lockID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locks, lockID)
	return nil
}

type fakeGateway struct {
	createFunc func(ctx context.Context, params payments.CheckoutParams) (*payments.CheckoutSession, error)
	calls      int
	lastParams payments.CheckoutParams
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, params payments.CheckoutParams) (*payments.CheckoutSession, error) {
	f.calls++
	f.lastParams = params
	if f.createFunc != nil {
		return f.createFunc(ctx, params)
	}
	return &payments.CheckoutSession{
		ID:                 "cs_test",
		URL:                "https://pay.example/cs_test",
		PaymentStatus:      payments.SessionUnpaid,
		PaymentMethodTypes: []string{"card"},
	}, nil
}

type fakeMailer struct {
	confirmations int
	adminNotices  int
	statusChanges []string
}

func (f *fakeMailer) SendBookingConfirmation(ctx context.Context, res *model.Reservation, guest *model.Guest, room *model.Room) error {
	f.confirmations++
	return nil
}

func (f *fakeMailer) SendAdminPaymentApproved(ctx context.Context, res *model.Reservation, guest *model.Guest, room *model.Room) error {
	f.adminNotices++
	return nil
}

func (f *fakeMailer) SendStatusChange(ctx context.Context, res *model.Reservation, guest *model.Guest, room *model.Room, status string) error {
	f.statusChanges = append(f.statusChanges, status)
	return nil
}

// --- Fixture wiring ---

type serviceFixture struct {
	repo      *fakeReservationRepo
	guestRepo *fakeGuestRepo
	roomRepo  *fakeRoomRepo
	lockRepo  *fakeLockRepo
	gateway   *fakeGateway
	mailer    *fakeMailer
	service   BookingService
	cfg       *config.Config
	roomID    string
}

func testConfig() *config.Config {
	return &config.Config{
		Log:             logger.New(logger.Config{Output: io.Discard}),
		GatewayCurrency: "usd",
		SlotLockTTL:     10 * time.Second,
	}
}

func newServiceFixture() *serviceFixture {
	roomID := primitive.NewObjectID().Hex()
	f := &serviceFixture{
		repo:      newFakeReservationRepo(),
		guestRepo: newFakeGuestRepo(),
		roomRepo:  newFakeRoomRepo(&model.Room{ID: roomID, Name: "Garden Room", Active: true, MaxOccupancy: 4}),
		lockRepo:  newFakeLockRepo(),
		gateway:   &fakeGateway{},
		mailer:    &fakeMailer{},
		roomID:    roomID,
	}
	cfg := testConfig()
	f.cfg = cfg
	f.service = NewBookingService(
		f.repo, f.guestRepo, f.roomRepo, f.lockRepo,
		f.gateway, f.mailer,
		validator.NewBookingValidator(cfg.Log),
		cfg,
	)
	return f
}

func (f *serviceFixture) request() *model.BookingRequest {
	checkIn := time.Now().UTC().AddDate(0, 1, 0).Truncate(24 * time.Hour)
	return &model.BookingRequest{
		RoomID:      f.roomID,
		GuestEmail:  "guest@example.com",
		GuestName:   "Dana Guest",
		CheckIn:     checkIn,
		CheckOut:    checkIn.AddDate(0, 0, 2),
		Occupancy:   2,
		TotalAmount: 42000,
	}
}

func appErrCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	return appErr.Code
}

// --- Orchestrator tests ---

func TestCreateBookingSuccess(t *testing.T) {
	f := newServiceFixture()

	result, err := f.service.CreateBooking(context.Background(), f.request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CheckoutURL != "https://pay.example/cs_test" {
		t.Errorf("expected checkout URL, got %s", result.CheckoutURL)
	}

	res := result.Reservation
	if res.Status != model.StatusPending {
		t.Errorf("expected status pending, got %s", res.Status)
	}
	if res.PaymentStatus != model.PaymentPending {
		t.Errorf("expected payment pending, got %s", res.PaymentStatus)
	}
	if res.CheckoutSessionID != "cs_test" {
		t.Errorf("expected linked session id, got %q", res.CheckoutSessionID)
	}
	if res.PaymentMethod != "card" {
		t.Errorf("expected payment method card, got %q", res.PaymentMethod)
	}
	if res.Currency != "usd" {
		t.Errorf("expected configured currency, got %q", res.Currency)
	}

	if f.gateway.calls != 1 {
		t.Errorf("expected one gateway call, got %d", f.gateway.calls)
	}
	if f.gateway.lastParams.ReservationID != res.ID {
		t.Errorf("expected reservation id tagged on checkout, got %q", f.gateway.lastParams.ReservationID)
	}
	if f.gateway.lastParams.Amount != 42000 {
		t.Errorf("expected amount forwarded in minor units, got %d", f.gateway.lastParams.Amount)
	}

	if len(f.lockRepo.locks) != 0 {
		t.Errorf("expected room lock released, %d still held", len(f.lockRepo.locks))
	}
}

func TestCreateBookingOverlapRejected(t *testing.T) {
	f := newServiceFixture()
	req := f.request()

	if _, err := f.service.CreateBooking(context.Background(), req); err != nil {
		t.Fatalf("first booking should succeed: %v", err)
	}

	// Shift by one day; windows still intersect.
	second := f.request()
	second.CheckIn = req.CheckIn.AddDate(0, 0, 1)
	second.CheckOut = req.CheckOut.AddDate(0, 0, 1)
	second.GuestEmail = "other@example.com"

	_, err := f.service.CreateBooking(context.Background(), second)
	if code := appErrCode(t, err); code != apperrors.CodeDatesUnavailable {
		t.Errorf("expected %s, got %s", apperrors.CodeDatesUnavailable, code)
	}

	if count, _ := f.repo.Count(context.Background(), ""); count != 1 {
		t.Errorf("expected second reservation not to be created, count=%d", count)
	}
	if f.gateway.calls != 1 {
		t.Errorf("expected no gateway call for the rejected booking, got %d total", f.gateway.calls)
	}
}

func TestCreateBookingBackToBackWindowsAllowed(t *testing.T) {
	f := newServiceFixture()
	first := f.request()

	if _, err := f.service.CreateBooking(context.Background(), first); err != nil {
		t.Fatalf("first booking should succeed: %v", err)
	}

	// Half-open windows: the next stay may start the day the first ends.
	second := f.request()
	second.CheckIn = first.CheckOut
	second.CheckOut = first.CheckOut.AddDate(0, 0, 2)
	second.GuestEmail = "other@example.com"

	if _, err := f.service.CreateBooking(context.Background(), second); err != nil {
		t.Errorf("back-to-back booking should succeed: %v", err)
	}
}

func TestCreateBookingCancelledDoesNotBlock(t *testing.T) {
	f := newServiceFixture()
	req := f.request()

	f.repo.put(&model.Reservation{
		ID:            primitive.NewObjectID().Hex(),
		RoomID:        f.roomID,
		CheckIn:       req.CheckIn,
		CheckOut:      req.CheckOut,
		Status:        model.StatusCancelled,
		PaymentStatus: model.PaymentFailed,
	})

	if _, err := f.service.CreateBooking(context.Background(), req); err != nil {
		t.Errorf("cancelled reservation should not block, got: %v", err)
	}
}

func TestCreateBookingGatewayFailureRollsBack(t *testing.T) {
	f := newServiceFixture()
	f.gateway.createFunc = func(ctx context.Context, params payments.CheckoutParams) (*payments.CheckoutSession, error) {
		return nil, apperrors.Gateway("gateway down", errors.New("connection refused"))
	}

	_, err := f.service.CreateBooking(context.Background(), f.request())
	if code := appErrCode(t, err); code != apperrors.CodeGateway {
		t.Errorf("expected gateway error to propagate, got %s", code)
	}

	all, _ := f.repo.FindAll(context.Background(), "", 0, 0)
	if len(all) != 1 {
		t.Fatalf("expected the inserted reservation to remain, got %d", len(all))
	}
	res := all[0]
	if res.Status != model.StatusCancelled {
		t.Errorf("expected compensating cancel, status=%s", res.Status)
	}
	if res.PaymentStatus != model.PaymentFailed {
		t.Errorf("expected payment failed after rollback, got %s", res.PaymentStatus)
	}
}

func TestCreateBookingCompensationNeverClobbersProgress(t *testing.T) {
	f := newServiceFixture()

	// Simulate a webhook landing between the gateway failure and the
	// compensating cancel: the reservation is already confirmed/paid.
	f.gateway.createFunc = func(ctx context.Context, params payments.CheckoutParams) (*payments.CheckoutSession, error) {
		stored := f.repo.get(params.ReservationID)
		confirmed := model.StatusConfirmed
		paid := model.PaymentPaid
		if _, err := f.repo.Update(ctx, stored.ID, stored.Version, &model.ReservationUpdate{
			Status:        &confirmed,
			PaymentStatus: &paid,
		}); err != nil {
			t.Fatalf("failed to simulate webhook: %v", err)
		}
		return nil, apperrors.Gateway("late failure", nil)
	}

	_, err := f.service.CreateBooking(context.Background(), f.request())
	if err == nil {
		t.Fatal("expected the gateway error to propagate")
	}

	all, _ := f.repo.FindAll(context.Background(), "", 0, 0)
	if len(all) != 1 {
		t.Fatalf("expected one reservation, got %d", len(all))
	}
	if all[0].Status != model.StatusConfirmed || all[0].PaymentStatus != model.PaymentPaid {
		t.Errorf("compensation clobbered a settled reservation: %s/%s", all[0].Status, all[0].PaymentStatus)
	}
}

func TestCreateBookingImmediateSuccessMarksPaid(t *testing.T) {
	f := newServiceFixture()
	f.gateway.createFunc = func(ctx context.Context, params payments.CheckoutParams) (*payments.CheckoutSession, error) {
		return &payments.CheckoutSession{
			ID:                 "cs_instant",
			URL:                "https://pay.example/cs_instant",
			PaymentStatus:      payments.SessionPaid,
			PaymentIntent:      "pi_9",
			PaymentMethodTypes: []string{"card"},
		}, nil
	}

	result, err := f.service.CreateBooking(context.Background(), f.request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Reservation.PaymentStatus != model.PaymentPaid {
		t.Errorf("expected immediate paid, got %s", result.Reservation.PaymentStatus)
	}
	if result.Reservation.PaymentIntentID != "pi_9" {
		t.Errorf("expected payment intent linked, got %q", result.Reservation.PaymentIntentID)
	}
	// The synchronous success is the transition into paid, so the
	// approval timestamp must be recorded here and not wait for the
	// webhook.
	if result.Reservation.PaymentApprovedAt == nil {
		t.Fatalf("expected payment_approved_at set on immediate success")
	}

	stored, err := f.repo.FindByID(context.Background(), result.Reservation.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.PaymentApprovedAt == nil {
		t.Errorf("expected payment_approved_at persisted, got nil")
	}
}

func TestCreateBookingRoomLockConflict(t *testing.T) {
	f := newServiceFixture()
	f.lockRepo.locks["room_lock_"+f.roomID] = true

	_, err := f.service.CreateBooking(context.Background(), f.request())
	if code := appErrCode(t, err); code != apperrors.CodeConflict {
		t.Errorf("expected conflict while lock held, got %s", code)
	}
	if f.gateway.calls != 0 {
		t.Errorf("expected no gateway call, got %d", f.gateway.calls)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	f := newServiceFixture()

	tests := []struct {
		name   string
		mutate func(req *model.BookingRequest)
	}{
		{"inverted dates", func(req *model.BookingRequest) { req.CheckIn, req.CheckOut = req.CheckOut, req.CheckIn }},
		{"zero amount", func(req *model.BookingRequest) { req.TotalAmount = 0 }},
		{"missing email", func(req *model.BookingRequest) { req.GuestEmail = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request()
			tt.mutate(req)

			_, err := f.service.CreateBooking(context.Background(), req)
			if code := appErrCode(t, err); code != apperrors.CodeValidation {
				t.Errorf("expected validation error, got %s", code)
			}
		})
	}

	if count, _ := f.repo.Count(context.Background(), ""); count != 0 {
		t.Errorf("expected nothing persisted for invalid requests, count=%d", count)
	}
}

func TestCreateBookingOccupancyAboveRoomCap(t *testing.T) {
	f := newServiceFixture()
	req := f.request()
	req.Occupancy = 5 // room max is 4

	_, err := f.service.CreateBooking(context.Background(), req)
	if code := appErrCode(t, err); code != apperrors.CodeValidation {
		t.Errorf("expected validation error, got %s", code)
	}
}

func TestCreateManualBooking(t *testing.T) {
	f := newServiceFixture()

	res, err := f.service.CreateManualBooking(context.Background(), f.request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Status != model.StatusPending {
		t.Errorf("expected status pending, got %s", res.Status)
	}
	if res.PaymentStatus != model.PaymentNotStarted {
		t.Errorf("expected payment not_started, got %s", res.PaymentStatus)
	}
	if f.gateway.calls != 0 {
		t.Errorf("manual booking must not touch the gateway, got %d calls", f.gateway.calls)
	}
}

func TestCreateBookingRejectsBadDocumentBeforeWrite(t *testing.T) {
	f := newServiceFixture()
	// A valid request can still assemble an invalid document when
	// server-side config is broken; the write must not happen.
	f.cfg.GatewayCurrency = "dollars"

	_, err := f.service.CreateManualBooking(context.Background(), f.request())
	if code := appErrCode(t, err); code != apperrors.CodeValidation {
		t.Fatalf("expected %s, got %s", apperrors.CodeValidation, code)
	}
	if len(f.repo.byID) != 0 {
		t.Errorf("expected no reservation persisted, got %d", len(f.repo.byID))
	}
}

func TestGuestUpsertedNotDuplicated(t *testing.T) {
	f := newServiceFixture()
	first := f.request()

	if _, err := f.service.CreateBooking(context.Background(), first); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	second := f.request()
	second.CheckIn = first.CheckOut.AddDate(0, 0, 7)
	second.CheckOut = second.CheckIn.AddDate(0, 0, 2)
	second.GuestName = "Dana G. Guest"

	if _, err := f.service.CreateBooking(context.Background(), second); err != nil {
		t.Fatalf("second booking failed: %v", err)
	}

	if len(f.guestRepo.byID) != 1 {
		t.Errorf("expected one guest for repeat bookings, got %d", len(f.guestRepo.byID))
	}
}
