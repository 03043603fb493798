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

	"stayloft/pkg/config"
	apperrors "stayloft/pkg/errors"
	"stayloft/pkg/model"
	"stayloft/pkg/sealer"

	"github.com/julienschmidt/httprouter"
)

func adminTestConfig() *config.Config {
	return &config.Config{
		Log:               testLog(),
		AdminEmail:        "admin@example.com",
		AdminPassword:     "correct horse battery staple",
		AdminSessionKey:   "0123456789abcdef0123456789abcdef",
		AdminSessionTTL:   30 * time.Minute,
		AdminDeleteSecret: "purge-me",
	}
}

func loginBody(t *testing.T, email, password string) []byte {
	t.Helper()
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		t.Fatalf("marshal login request: %v", err)
	}
	return body
}

func TestAdminLoginSuccess(t *testing.T) {
	cfg := adminTestConfig()
	handler := NewAdminHandler(&mockBookingService{}, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login",
		bytes.NewReader(loginBody(t, cfg.AdminEmail, cfg.AdminPassword)))
	w := httptest.NewRecorder()

	handler.Login(w, req, httprouter.Params{})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var envelope struct {
		Data loginResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}
	resp := envelope.Data
	subject, err := sealer.ParseSessionToken(cfg.AdminSessionKey, resp.Token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if subject != cfg.AdminEmail {
		t.Errorf("expected subject %q, got %q", cfg.AdminEmail, subject)
	}
	if !resp.ExpiresAt.After(time.Now()) {
		t.Errorf("token should expire in the future, got %s", resp.ExpiresAt)
	}
}

func TestAdminLoginRejected(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(cfg *config.Config)
		email    string
		password string
	}{
		{
			name:     "wrong password",
			email:    "admin@example.com",
			password: "nope",
		},
		{
			name:     "wrong email",
			email:    "intruder@example.com",
			password: "correct horse battery staple",
		},
		{
			name:     "credentials not configured",
			mutate:   func(cfg *config.Config) { cfg.AdminEmail = ""; cfg.AdminPassword = "" },
			email:    "",
			password: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := adminTestConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			handler := NewAdminHandler(&mockBookingService{}, cfg)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login",
				bytes.NewReader(loginBody(t, tt.email, tt.password)))
			w := httptest.NewRecorder()

			handler.Login(w, req, httprouter.Params{})

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
			if strings.Contains(w.Body.String(), "token") {
				t.Errorf("rejection must not leak a token: %s", w.Body.String())
			}
		})
	}
}

func TestAdminSetStatus(t *testing.T) {
	var gotID, gotStatus string
	service := &mockBookingService{
		setStatusFunc: func(ctx context.Context, id string, status string) (*model.Reservation, error) {
			gotID, gotStatus = id, status
			return &model.Reservation{ID: id, Status: status}, nil
		},
	}
	handler := NewAdminHandler(service, adminTestConfig())

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/reservations/res_1/status",
		strings.NewReader(`{"status":"confirmed"}`))
	w := httptest.NewRecorder()

	handler.SetStatus(w, req, httprouter.Params{{Key: "id", Value: "res_1"}})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotID != "res_1" || gotStatus != model.StatusConfirmed {
		t.Errorf("expected SetStatus(res_1, confirmed), got (%s, %s)", gotID, gotStatus)
	}
}

func TestAdminListPassesFilters(t *testing.T) {
	var gotStatus string
	var gotLimit int
	var gotOffset int64
	service := &mockBookingService{
		listFunc: func(ctx context.Context, status string, limit int, offset int64) ([]*model.Reservation, int64, error) {
			gotStatus, gotLimit, gotOffset = status, limit, offset
			return []*model.Reservation{{ID: "res_1"}}, 7, nil
		},
	}
	handler := NewAdminHandler(service, adminTestConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/reservations?status=confirmed&limit=5&offset=10", nil)
	w := httptest.NewRecorder()

	handler.List(w, req, httprouter.Params{})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotStatus != "confirmed" || gotLimit != 5 || gotOffset != 10 {
		t.Errorf("filters not forwarded: status=%s limit=%d offset=%d", gotStatus, gotLimit, gotOffset)
	}
	if !strings.Contains(w.Body.String(), `"total_count":7`) {
		t.Errorf("expected paginated envelope with total_count: %s", w.Body.String())
	}
}

func TestAdminDeleteRequiresSecondaryCredential(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		configured string
		wantCode   int
		wantCalled bool
	}{
		{
			name:       "valid secret",
			secret:     "purge-me",
			configured: "purge-me",
			wantCode:   http.StatusNoContent,
			wantCalled: true,
		},
		{
			name:       "missing secret",
			secret:     "",
			configured: "purge-me",
			wantCode:   http.StatusForbidden,
		},
		{
			name:       "wrong secret",
			secret:     "guess",
			configured: "purge-me",
			wantCode:   http.StatusForbidden,
		},
		{
			name:       "delete disabled when unconfigured",
			secret:     "",
			configured: "",
			wantCode:   http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			service := &mockBookingService{
				deleteFunc: func(ctx context.Context, id string) error {
					called = true
					return nil
				},
			}
			cfg := adminTestConfig()
			cfg.AdminDeleteSecret = tt.configured
			handler := NewAdminHandler(service, cfg)

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/reservations/res_1", nil)
			if tt.secret != "" {
				req.Header.Set(DeleteSecretHeader, tt.secret)
			}
			w := httptest.NewRecorder()

			handler.Delete(w, req, httprouter.Params{{Key: "id", Value: "res_1"}})

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if called != tt.wantCalled {
				t.Errorf("service delete called=%v, want %v", called, tt.wantCalled)
			}
		})
	}
}

func TestAdminCreateReservation(t *testing.T) {
	service := &mockBookingService{
		createManualFunc: func(ctx context.Context, req *model.BookingRequest) (*model.Reservation, error) {
			return &model.Reservation{
				ID:            "res_manual",
				Status:        model.StatusPending,
				PaymentStatus: model.PaymentNotStarted,
			}, nil
		},
	}
	handler := NewAdminHandler(service, adminTestConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reservations", bytes.NewReader(bookingRequestBody(t)))
	w := httptest.NewRecorder()

	handler.CreateReservation(w, req, httprouter.Params{})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "res_manual") {
		t.Errorf("expected created reservation in body: %s", w.Body.String())
	}
}

func TestAdminGetByIDNotFound(t *testing.T) {
	service := &mockBookingService{
		getByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return nil, apperrors.NotFound("Reservation not found")
		},
	}
	handler := NewAdminHandler(service, adminTestConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/reservations/missing", nil)
	w := httptest.NewRecorder()

	handler.GetByID(w, req, httprouter.Params{{Key: "id", Value: "missing"}})

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
