package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature header format: comma-separated key=value pairs with one
// timestamp entry and one or more candidate signatures, e.g.
//
//	t=1712345678,v1=5257a8...,v1=9fb2c1...
//
// Multiple v1 entries appear during signing-secret rotation: the event
// is accepted if any candidate matches.
const (
	sigTimestampKey = "t"
	sigSchemeKey    = "v1"
)

var (
	ErrInvalidSignatureHeader = errors.New("invalid signature header")
	ErrStaleTimestamp         = errors.New("signature timestamp outside tolerance")
	ErrSignatureMismatch      = errors.New("no matching signature")
	ErrMalformedPayload       = errors.New("malformed event payload")
)

// Verifier authenticates inbound gateway notifications.
type Verifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{
		secret:    secret,
		tolerance: tolerance,
		now:       time.Now,
	}
}

// VerifyNotification checks the signature header against the raw body
// and, only if authentic, parses the body into an Event. The caller
// must surface every failure as the same opaque 400 so a caller cannot
// tell which check rejected it.
func (v *Verifier) VerifyNotification(body []byte, sigHeader string) (*Event, error) {
	timestamp, candidates, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, err
	}

	age := v.now().Sub(time.Unix(timestamp, 0))
	if age > v.tolerance || age < -v.tolerance {
		return nil, ErrStaleTimestamp
	}

	expected := ComputeSignature(timestamp, body, v.secret)
	matched := false
	for _, candidate := range candidates {
		// Constant-time comparison for every candidate; the loop does
		// not exit early on a match so verification cost does not
		// depend on which candidate was correct.
		if hmac.Equal([]byte(candidate), []byte(expected)) {
			matched = true
		}
	}
	if !matched {
		return nil, ErrSignatureMismatch
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if event.ID == "" || event.Type == "" {
		return nil, ErrMalformedPayload
	}

	return &event, nil
}

// ComputeSignature returns the hex HMAC-SHA256 of "{timestamp}.{body}".
// Exported for tests and for signing outbound test fixtures.
func ComputeSignature(timestamp int64, body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, ErrInvalidSignatureHeader
	}

	var timestamp int64 = -1
	var candidates []string

	for _, pair := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			return 0, nil, ErrInvalidSignatureHeader
		}

		switch key {
		case sigTimestampKey:
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, ErrInvalidSignatureHeader
			}
			timestamp = ts
		case sigSchemeKey:
			if value != "" {
				candidates = append(candidates, value)
			}
		default:
			// Unknown keys are ignored so new scheme versions can be
			// introduced without breaking older verifiers.
		}
	}

	if timestamp < 0 || len(candidates) == 0 {
		return 0, nil, ErrInvalidSignatureHeader
	}

	return timestamp, candidates, nil
}
