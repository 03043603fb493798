package handler

import (
	"io"
	"net/http"

	"stayloft/internal/payments"
	"stayloft/internal/reservations/service"
	apperrors "stayloft/pkg/errors"
	httputil "stayloft/pkg/http"
	"stayloft/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// SignatureHeader is the gateway's signature header on inbound
// notifications.
const SignatureHeader = "Stripe-Signature"

// maxWebhookBody caps how much of a notification body is read. Gateway
// events are small; anything larger is hostile.
const maxWebhookBody = 1 << 20

// WebhookHandler terminates the gateway's asynchronous notifications:
// verify the signature over the raw body, then hand the event to the
// reconciliation service. All verification failures collapse into one
// opaque 400 so a probing caller learns nothing about which check
// tripped; the real cause is logged.
type WebhookHandler struct {
	verifier *payments.Verifier
	recon    service.ReconciliationService
	log      *logger.Logger
}

func NewWebhookHandler(verifier *payments.Verifier, recon service.ReconciliationService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		recon:    recon,
		log:      log,
	}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.log.Warn("Failed to read webhook body", "error", err)
		h.reject(w, err)
		return
	}

	event, err := h.verifier.VerifyNotification(body, r.Header.Get(SignatureHeader))
	if err != nil {
		h.log.Warn("Webhook verification failed",
			"remote_addr", r.RemoteAddr,
			"error", err,
		)
		h.reject(w, err)
		return
	}

	if err := h.recon.HandleEvent(r.Context(), event); err != nil {
		// Non-2xx makes the gateway redeliver the event later.
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Receive", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true}); err != nil {
		h.log.Error("failed to write webhook ack", "handler", "Receive", "error", err)
	}
}

func (h *WebhookHandler) reject(w http.ResponseWriter, cause error) {
	if writeErr := httputil.WriteError(w, apperrors.InvalidSignature(cause)); writeErr != nil {
		h.log.Error("failed to write webhook rejection", "handler", "Receive", "error", writeErr)
	}
}

func (h *WebhookHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/payments/webhook", h.Receive)
}
