package payments

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stayloft/pkg/client"
	"stayloft/pkg/config"
	apperrors "stayloft/pkg/errors"
	"stayloft/pkg/logger"
)

const checkoutSessionsPath = "/v1/checkout/sessions"

// fallbackPaymentMethods is the minimal set every gateway account
// accepts. Some configured payment method types need account-level
// enablement that cannot be detected up front, so a rejection on that
// ground is retried once with this set.
var fallbackPaymentMethods = []string{"card"}

// Client creates hosted checkout sessions on the payment gateway.
type Client struct {
	http           *client.HttpClient
	secretKey      string
	currency       string
	paymentMethods []string
	successURL     string
	cancelURL      string
	sessionExpiry  time.Duration
	log            *logger.Logger
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		http:           client.NewHttpClient(cfg.GatewayBaseURL),
		secretKey:      cfg.GatewaySecretKey,
		currency:       cfg.GatewayCurrency,
		paymentMethods: cfg.GatewayPaymentMethods,
		successURL:     cfg.CheckoutSuccessURL,
		cancelURL:      cfg.CheckoutCancelURL,
		sessionExpiry:  cfg.CheckoutSessionExpiry,
		log:            cfg.Log,
	}
}

// CheckoutParams describes one reservation payment.
type CheckoutParams struct {
	ReservationID string
	// Amount in minor currency units; must be positive.
	Amount        int64
	ProductName   string
	CustomerEmail string
}

// CreateCheckoutSession creates a checkout session for the reservation.
// The reservation id is attached both as structured metadata and as the
// client reference id so the webhook flow can resolve it either way.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	if params.Amount <= 0 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("checkout amount must be positive, got %d", params.Amount))
	}
	if params.ReservationID == "" {
		return nil, apperrors.InvalidInput("checkout requires a reservation id")
	}

	session, err := c.createSession(ctx, params, c.paymentMethods)
	if err != nil && isPaymentMethodError(err) && !isCardOnly(c.paymentMethods) {
		c.log.Warn("Gateway rejected configured payment methods, retrying card-only",
			"reservation_id", params.ReservationID,
			"payment_methods", strings.Join(c.paymentMethods, ","),
			"error", err,
		)
		session, err = c.createSession(ctx, params, fallbackPaymentMethods)
	}
	if err != nil {
		return nil, err
	}

	c.log.Info("Checkout session created",
		"reservation_id", params.ReservationID,
		"checkout_session_id", session.ID,
		"payment_status", session.PaymentStatus,
	)
	return session, nil
}

func (c *Client) createSession(ctx context.Context, params CheckoutParams, methods []string) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", params.ReservationID)
	form.Set("metadata["+MetadataReservationKey+"]", params.ReservationID)
	form.Set("success_url", c.successURL)
	form.Set("cancel_url", c.cancelURL)
	form.Set("expires_at", strconv.FormatInt(time.Now().Add(c.sessionExpiry).Unix(), 10))
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}

	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", c.currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.Amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", params.ProductName)

	for i, method := range methods {
		form.Set(fmt.Sprintf("payment_method_types[%d]", i), method)
	}

	resp, err := c.http.POSTForm(ctx, checkoutSessionsPath, form, map[string]string{
		"Authorization": "Bearer " + c.secretKey,
	})
	if err != nil {
		return nil, apperrors.Gateway("payment gateway unreachable", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, parseGatewayError(resp)
	}

	var session CheckoutSession
	if err := resp.DecodeJSON(&session); err != nil {
		return nil, apperrors.Gateway("invalid checkout session response", err)
	}
	if session.ID == "" || session.URL == "" {
		return nil, apperrors.Gateway("checkout session response missing id or url", nil)
	}

	return &session, nil
}

type gatewayError struct {
	Err struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
		Param   string `json:"param"`
	} `json:"error"`
}

func parseGatewayError(resp *client.Response) *apperrors.AppError {
	var ge gatewayError
	if err := resp.DecodeJSON(&ge); err != nil || ge.Err.Message == "" {
		return apperrors.Gateway(fmt.Sprintf("gateway returned status %d", resp.StatusCode), nil)
	}

	return apperrors.Gateway(ge.Err.Message, nil).WithDetails(map[string]any{
		"type":  ge.Err.Type,
		"code":  ge.Err.Code,
		"param": ge.Err.Param,
	})
}

// isPaymentMethodError reports whether the gateway rejected the request
// specifically because of the payment method type combination.
func isPaymentMethodError(err error) bool {
	appErr, ok := err.(*apperrors.AppError)
	if !ok || appErr.Code != apperrors.CodeGateway {
		return false
	}

	if param, ok := appErr.Details["param"].(string); ok && strings.HasPrefix(param, "payment_method_types") {
		return true
	}
	return strings.Contains(strings.ToLower(appErr.Message), "payment method")
}

func isCardOnly(methods []string) bool {
	return len(methods) == 1 && methods[0] == "card"
}
