package payments

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"stayloft/pkg/client"
	apperrors "stayloft/pkg/errors"
	"stayloft/pkg/logger"
)

func newTestGatewayClient(baseURL string, methods []string) *Client {
	return &Client{
		http:           client.NewHttpClient(baseURL),
		secretKey:      "sk_test_key",
		currency:       "usd",
		paymentMethods: methods,
		successURL:     "https://stayloft.example/booking/success",
		cancelURL:      "https://stayloft.example/booking/cancel",
		sessionExpiry:  time.Hour,
		log:            logger.New(logger.Config{Output: io.Discard}),
	}
}

func recordForm(t *testing.T, r *http.Request) url.Values {
	t.Helper()
	if err := r.ParseForm(); err != nil {
		t.Fatalf("failed to parse form: %v", err)
	}
	return r.PostForm
}

func TestCreateCheckoutSession_Success(t *testing.T) {
	var gotForm url.Values
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != checkoutSessionsPath {
			t.Errorf("expected path %s, got %s", checkoutSessionsPath, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("expected form content type, got %s", ct)
		}
		gotAuth = r.Header.Get("Authorization")
		gotForm = recordForm(t, r)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_123","url":"https://pay.example/cs_123","payment_status":"unpaid","payment_method_types":["card","link"]}`))
	}))
	defer server.Close()

	c := newTestGatewayClient(server.URL, []string{"card", "link"})
	session, err := c.CreateCheckoutSession(context.Background(), CheckoutParams{
		ReservationID: "res_55",
		Amount:        42000,
		ProductName:   "Garden Room, 2 nights",
		CustomerEmail: "guest@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.ID != "cs_123" {
		t.Errorf("expected session id cs_123, got %s", session.ID)
	}
	if session.URL != "https://pay.example/cs_123" {
		t.Errorf("unexpected session url: %s", session.URL)
	}
	if gotAuth != "Bearer sk_test_key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}

	expectations := map[string]string{
		"mode":                                        "payment",
		"client_reference_id":                         "res_55",
		"metadata[reservation_id]":                    "res_55",
		"customer_email":                              "guest@example.com",
		"success_url":                                 "https://stayloft.example/booking/success",
		"cancel_url":                                  "https://stayloft.example/booking/cancel",
		"line_items[0][quantity]":                     "1",
		"line_items[0][price_data][currency]":         "usd",
		"line_items[0][price_data][unit_amount]":      "42000",
		"line_items[0][price_data][product_data][name]": "Garden Room, 2 nights",
		"payment_method_types[0]":                     "card",
		"payment_method_types[1]":                     "link",
	}
	for key, want := range expectations {
		if got := gotForm.Get(key); got != want {
			t.Errorf("form field %s: expected %q, got %q", key, want, got)
		}
	}
	if gotForm.Get("expires_at") == "" {
		t.Error("expected expires_at to be set")
	}
}

func TestCreateCheckoutSession_RejectsNonPositiveAmount(t *testing.T) {
	requested := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = true
	}))
	defer server.Close()

	c := newTestGatewayClient(server.URL, []string{"card"})

	for _, amount := range []int64{0, -1, -42000} {
		_, err := c.CreateCheckoutSession(context.Background(), CheckoutParams{
			ReservationID: "res_1",
			Amount:        amount,
			ProductName:   "Garden Room",
		})
		appErr := apperrors.AsAppError(err)
		if appErr.Code != apperrors.CodeInvalidInput {
			t.Errorf("amount %d: expected %s, got %s", amount, apperrors.CodeInvalidInput, appErr.Code)
		}
	}
	if requested {
		t.Error("expected no gateway call for non-positive amounts")
	}
}

func TestCreateCheckoutSession_CardOnlyFallback(t *testing.T) {
	var attempts []url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		form := recordForm(t, r)
		attempts = append(attempts, form)

		if form.Get("payment_method_types[1]") != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"payment_method_unactivated","message":"The payment method type is not activated","param":"payment_method_types[1]"}}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_retry","url":"https://pay.example/cs_retry","payment_status":"unpaid","payment_method_types":["card"]}`))
	}))
	defer server.Close()

	c := newTestGatewayClient(server.URL, []string{"card", "link"})
	session, err := c.CreateCheckoutSession(context.Background(), CheckoutParams{
		ReservationID: "res_77",
		Amount:        18000,
		ProductName:   "Attic Suite, 3 nights",
	})
	if err != nil {
		t.Fatalf("expected card-only retry to succeed, got: %v", err)
	}
	if session.ID != "cs_retry" {
		t.Errorf("expected session from retry, got %s", session.ID)
	}

	if len(attempts) != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", len(attempts))
	}
	retry := attempts[1]
	if retry.Get("payment_method_types[0]") != "card" {
		t.Errorf("expected retry with card, got %q", retry.Get("payment_method_types[0]"))
	}
	if retry.Get("payment_method_types[1]") != "" {
		t.Errorf("expected retry to drop extra methods, got %q", retry.Get("payment_method_types[1]"))
	}
}

func TestCreateCheckoutSession_NoFallbackWhenAlreadyCardOnly(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"The payment method type is not activated","param":"payment_method_types[0]"}}`))
	}))
	defer server.Close()

	c := newTestGatewayClient(server.URL, []string{"card"})
	_, err := c.CreateCheckoutSession(context.Background(), CheckoutParams{
		ReservationID: "res_1",
		Amount:        100,
		ProductName:   "Garden Room",
	})
	if err == nil {
		t.Fatal("expected gateway error")
	}
	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
}

func TestCreateCheckoutSession_NoFallbackOnUnrelatedError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"api_key_invalid","message":"Invalid API key provided"}}`))
	}))
	defer server.Close()

	c := newTestGatewayClient(server.URL, []string{"card", "link"})
	_, err := c.CreateCheckoutSession(context.Background(), CheckoutParams{
		ReservationID: "res_1",
		Amount:        100,
		ProductName:   "Garden Room",
	})

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeGateway {
		t.Fatalf("expected %s, got %s", apperrors.CodeGateway, appErr.Code)
	}
	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
}

func TestCreateCheckoutSession_GatewayUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c := newTestGatewayClient(server.URL, []string{"card"})
	_, err := c.CreateCheckoutSession(context.Background(), CheckoutParams{
		ReservationID: "res_1",
		Amount:        100,
		ProductName:   "Garden Room",
	})

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeGateway {
		t.Errorf("expected %s, got %s", apperrors.CodeGateway, appErr.Code)
	}
}

func TestCreateCheckoutSession_MissingSessionFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"payment_status":"unpaid"}`))
	}))
	defer server.Close()

	c := newTestGatewayClient(server.URL, []string{"card"})
	_, err := c.CreateCheckoutSession(context.Background(), CheckoutParams{
		ReservationID: "res_1",
		Amount:        100,
		ProductName:   "Garden Room",
	})

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeGateway {
		t.Errorf("expected %s, got %s", apperrors.CodeGateway, appErr.Code)
	}
}
