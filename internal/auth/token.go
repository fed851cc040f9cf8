package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// RejectReason classifies why a token failed to decode. Reasons are for
// server-side logging only; clients always receive an opaque 401.
type RejectReason string

const (
	RejectMalformed      RejectReason = "MALFORMED"
	RejectUnsupportedAlg RejectReason = "UNSUPPORTED_ALG"
	RejectBadSignature   RejectReason = "BAD_SIGNATURE"
	RejectExpired        RejectReason = "EXPIRED"
)

// RejectionError carries the classified decode failure.
type RejectionError struct {
	Reason RejectReason
	Err    error
}

func (e *RejectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token rejected (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("token rejected (%s)", e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the rejection reason from a decode error, or MALFORMED
// when the error is not a RejectionError.
func ReasonOf(err error) RejectReason {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return RejectMalformed
}

// Codec encodes and decodes HS256-signed session tokens. Pure over
// (token, secret, current time); safe for concurrent use.
type Codec struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
}

// NewCodec builds a codec with the given signing secret, token lifetime, and
// clock-skew leeway applied to expiry checks. Leeway zero means strict expiry.
func NewCodec(secret string, ttl, leeway time.Duration) *Codec {
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	if leeway < 0 {
		leeway = 0
	}
	return &Codec{secret: []byte(secret), ttl: ttl, leeway: leeway}
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Encode signs the claims into a compact header.payload.signature token.
// iat and exp are injected unless the caller provided them.
func (c *Codec) Encode(claims map[string]any) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(c.ttl)

	payload := jwt.MapClaims{}
	for k, v := range claims {
		payload[k] = v
	}
	if _, ok := payload["iat"]; !ok {
		payload["iat"] = now.Unix()
	}
	if _, ok := payload["exp"]; !ok {
		payload["exp"] = expiresAt.Unix()
	} else if exp, err := payload.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Decode verifies the token signature and expiry and returns the payload
// unchanged. Callers must not trust payload fields beyond username/role
// presence without their own validation.
func (c *Codec) Decode(token string) (jwt.MapClaims, error) {
	token = strings.TrimSpace(token)

	// Header pre-check so an unsupported algorithm is reported as such
	// rather than as a signature failure.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, &RejectionError{Reason: RejectMalformed, Err: errors.New("token must have three segments")}
	}
	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, &RejectionError{Reason: RejectMalformed, Err: err}
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, &RejectionError{Reason: RejectMalformed, Err: err}
	}
	if header.Alg != jwt.SigningMethodHS256.Alg() {
		return nil, &RejectionError{Reason: RejectUnsupportedAlg, Err: fmt.Errorf("alg %q not supported", header.Alg)}
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(c.leeway),
	)
	if err != nil {
		return nil, &RejectionError{Reason: classifyParseError(err), Err: err}
	}
	return claims, nil
}

func classifyParseError(err error) RejectReason {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return RejectExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return RejectBadSignature
	default:
		return RejectMalformed
	}
}
