package retell

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"retell-pos-bridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	rawBodyKey = "retell.raw_body"

	// DefaultMaxBodyBytes matches the 1mb JSON limit the platform is configured against.
	DefaultMaxBodyBytes int64 = 1 << 20
)

var ErrBodyTooLarge = errors.New("retell: request body too large")

// Guard captures the raw webhook body and, when Enforce is set, rejects
// unauthenticated calls before anything parses the payload.
//
// Enforce is false outside production so the endpoint can be exercised
// locally without a signing secret.
type Guard struct {
	Enforce      bool
	Secret       string
	Verifier     Verifier
	MaxBodyBytes int64
}

// Precheck runs the checks that need only headers. It is a no-op when not enforcing.
func (g Guard) Precheck(signature string) error {
	if !g.Enforce {
		return nil
	}
	if g.Secret == "" {
		return ErrServerMisconfigured
	}
	if signature == "" {
		return ErrMissingSignature
	}
	return nil
}

// Authenticate verifies signature against the raw body when enforcing.
func (g Guard) Authenticate(raw []byte, signature string) error {
	if err := g.Precheck(signature); err != nil {
		return err
	}
	if g.Enforce && !g.Verifier.Verify(raw, g.Secret, signature) {
		return ErrInvalidSignature
	}
	return nil
}

// Middleware returns the gin middleware for the webhook route.
func (g Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromGin(c)
		signature := c.GetHeader(SignatureHeader)

		if err := g.Precheck(signature); err != nil {
			if errors.Is(err, ErrServerMisconfigured) {
				log.Error("webhook secret missing in production")
			}
			rejectAuth(c, err)
			return
		}

		raw, err := readBody(c.Request, g.maxBytes())
		if err != nil {
			if errors.Is(err, ErrBodyTooLarge) {
				abort(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
				return
			}
			log.Warn("webhook body read failed", "err", err)
			abort(c, http.StatusBadRequest, "BAD_PAYLOAD", "Unreadable request body")
			return
		}

		if err := g.Authenticate(raw, signature); err != nil {
			log.Warn("webhook signature rejected", "client_ip", c.ClientIP())
			rejectAuth(c, err)
			return
		}

		c.Set(rawBodyKey, raw)
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		c.Next()
	}
}

func rejectAuth(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrServerMisconfigured):
		abort(c, http.StatusInternalServerError, "SERVER_MISCONFIGURED", "Server misconfigured: missing RETELL_API_KEY")
	case errors.Is(err, ErrMissingSignature):
		abort(c, http.StatusUnauthorized, "MISSING_SIGNATURE", "Missing Retell signature")
	default:
		abort(c, http.StatusUnauthorized, "INVALID_SIGNATURE", "Invalid Retell signature")
	}
}

// RawBody returns the bytes captured by the middleware, reading the request
// body directly when the middleware was not installed.
func RawBody(c *gin.Context) ([]byte, error) {
	if v, ok := c.Get(rawBodyKey); ok {
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	}
	raw, err := readBody(c.Request, DefaultMaxBodyBytes)
	if err != nil {
		return nil, err
	}
	c.Set(rawBodyKey, raw)
	return raw, nil
}

func (g Guard) maxBytes() int64 {
	if g.MaxBodyBytes > 0 {
		return g.MaxBodyBytes
	}
	return DefaultMaxBodyBytes
}

func readBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > limit {
		return nil, ErrBodyTooLarge
	}
	return raw, nil
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"ok":      false,
		"message": message,
		"error":   gin.H{"code": code},
	})
}
