// Package retell authenticates webhook calls from the Retell voice platform.
package retell

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries "v=<unix-ms>,d=<hex digest>".
const SignatureHeader = "X-Retell-Signature"

// DefaultTolerance is how far the signed timestamp may drift from our clock.
const DefaultTolerance = 5 * time.Minute

var (
	ErrMissingSignature    = errors.New("retell: missing signature")
	ErrInvalidSignature    = errors.New("retell: invalid signature")
	ErrServerMisconfigured = errors.New("retell: signing secret not configured")
)

// Sign produces the header value the platform would send for body at the given time.
func Sign(secret string, body []byte, at time.Time) string {
	ts := at.UnixMilli()
	return fmt.Sprintf("v=%d,d=%s", ts, digest(secret, body, ts))
}

// Verifier checks signatures over the exact bytes received on the wire.
type Verifier struct {
	Now       func() time.Time
	Tolerance time.Duration
}

// Verify reports whether signature is a fresh HMAC-SHA256 of body+timestamp under secret.
func (v Verifier) Verify(body []byte, secret, signature string) bool {
	if secret == "" {
		return false
	}
	ts, got, ok := parseSignature(signature)
	if !ok {
		return false
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	tolerance := v.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	drift := now().Sub(time.UnixMilli(ts))
	if drift < 0 {
		drift = -drift
	}
	if drift > tolerance {
		return false
	}

	want := digest(secret, body, ts)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(got)))
}

func digest(secret string, body []byte, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignature(s string) (int64, string, bool) {
	var ts int64
	var d string
	for _, part := range strings.Split(strings.TrimSpace(s), ",") {
		k, val, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "v":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return 0, "", false
			}
			ts = n
		case "d":
			d = val
		}
	}
	if ts <= 0 || d == "" {
		return 0, "", false
	}
	return ts, d, true
}
