package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"stayloft/internal/reservations/service"
	"stayloft/pkg/config"
	apperrors "stayloft/pkg/errors"
	httputil "stayloft/pkg/http"
	"stayloft/pkg/middleware"
	"stayloft/pkg/model"
	"stayloft/pkg/sealer"

	"github.com/julienschmidt/httprouter"
)

// DeleteSecretHeader carries the secondary credential the delete path
// requires on top of a valid admin session.
const DeleteSecretHeader = "X-Admin-Delete-Secret"

// AdminHandler serves the session-guarded admin surface: manual
// bookings, listing, status transitions and the delete path.
type AdminHandler struct {
	service service.BookingService
	cfg     *config.Config
}

func NewAdminHandler(service service.BookingService, cfg *config.Config) *AdminHandler {
	return &AdminHandler{
		service: service,
		cfg:     cfg,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login exchanges the configured admin credentials for a sealed
// session token. Both comparisons run in constant time and failures
// share one message.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Login", apperrors.InvalidInput("Invalid request body"))
		return
	}

	emailOK := subtle.ConstantTimeCompare([]byte(req.Email), []byte(h.cfg.AdminEmail)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.AdminPassword)) == 1
	if h.cfg.AdminEmail == "" || h.cfg.AdminPassword == "" || !emailOK || !passwordOK {
		h.cfg.Log.Warn("Admin login rejected", "remote_addr", r.RemoteAddr)
		h.writeError(w, "Login", apperrors.Unauthorized("Invalid credentials"))
		return
	}

	expiresAt := time.Now().Add(h.cfg.AdminSessionTTL)
	token, err := sealer.CreateSessionToken(h.cfg.AdminSessionKey, req.Email, expiresAt)
	if err != nil {
		h.cfg.Log.Error("Failed to issue admin session token", "error", err)
		h.writeError(w, "Login", apperrors.Internal("Failed to issue session", err))
		return
	}

	h.cfg.Log.Info("Admin session issued", "expires_at", expiresAt)
	if err := httputil.WriteSuccess(w, loginResponse{Token: token, ExpiresAt: expiresAt}); err != nil {
		h.cfg.Log.Error("failed to write login response", "handler", "Login", "error", err)
	}
}

func (h *AdminHandler) CreateReservation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "CreateReservation", apperrors.InvalidInput("Invalid request body"))
		return
	}

	res, err := h.service.CreateManualBooking(r.Context(), &req)
	if err != nil {
		h.writeError(w, "CreateReservation", err)
		return
	}

	if err := httputil.WriteCreated(w, res); err != nil {
		h.cfg.Log.Error("failed to write created response", "handler", "CreateReservation", "error", err)
	}
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}
	status := r.URL.Query().Get("status")

	reservations, total, err := h.service.List(r.Context(), status, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, reservations, total, limit, offset); err != nil {
		h.cfg.Log.Error("failed to write paginated response", "handler", "List", "error", err)
	}
}

func (h *AdminHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, res); err != nil {
		h.cfg.Log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "SetStatus", apperrors.InvalidInput("Invalid request body"))
		return
	}

	res, err := h.service.SetStatus(r.Context(), ps.ByName("id"), req.Status)
	if err != nil {
		h.writeError(w, "SetStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, res); err != nil {
		h.cfg.Log.Error("failed to write success response", "handler", "SetStatus", "error", err)
	}
}

func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	secret := r.Header.Get(DeleteSecretHeader)
	if h.cfg.AdminDeleteSecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(h.cfg.AdminDeleteSecret)) != 1 {
		h.cfg.Log.Warn("Reservation delete rejected by secondary credential",
			"id", ps.ByName("id"),
			"remote_addr", r.RemoteAddr,
		)
		h.writeError(w, "Delete", apperrors.Forbidden("Delete requires the secondary credential"))
		return
	}

	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AdminHandler) writeError(w http.ResponseWriter, op string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.cfg.Log.Error("failed to write error response", "handler", op, "error", writeErr)
	}
}

// guard wraps a route in the admin-session middleware.
func (h *AdminHandler) guard(next httprouter.Handle) httprouter.Handle {
	session := middleware.AdminSession(h.cfg.AdminSessionKey, h.cfg.Log)
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next(w, r, ps)
		})).ServeHTTP(w, r)
	}
}

func (h *AdminHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/admin/login", h.Login)
	router.POST("/api/v1/admin/reservations", h.guard(h.CreateReservation))
	router.GET("/api/v1/admin/reservations", h.guard(h.List))
	router.GET("/api/v1/admin/reservations/:id", h.guard(h.GetByID))
	router.PATCH("/api/v1/admin/reservations/:id/status", h.guard(h.SetStatus))
	router.DELETE("/api/v1/admin/reservations/:id", h.guard(h.Delete))
}
