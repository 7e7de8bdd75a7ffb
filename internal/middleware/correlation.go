package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderCorrelationID carries the request id in both directions.
const HeaderCorrelationID = "X-Correlation-ID"

const (
	headerRequestID        = "X-Request-ID"
	localCorrelationID     = "dw_correlation_id"
	maxCorrelationIDLength = 128
)

type correlationKey struct{}

// CorrelationID tags each request with the first usable id found in
// X-Correlation-ID or X-Request-ID, falling back to a fresh UUID. The id is
// echoed on the response and stored on the request's user context.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := firstUsableID(c.Get(HeaderCorrelationID), c.Get(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(localCorrelationID, id)
		c.Set(HeaderCorrelationID, id)
		c.SetUserContext(WithCorrelationID(c.UserContext(), id))
		return c.Next()
	}
}

// firstUsableID skips blank, oversized and non-printable candidates so client
// supplied ids can be logged verbatim.
func firstUsableID(candidates ...string) string {
	for _, raw := range candidates {
		id := strings.TrimSpace(raw)
		if id == "" || len(id) > maxCorrelationIDLength {
			continue
		}
		if strings.IndexFunc(id, func(r rune) bool { return r < '!' || r > '~' }) >= 0 {
			continue
		}
		return id
	}
	return ""
}

// RequestCorrelationID returns the id assigned to the current request.
func RequestCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(localCorrelationID).(string); ok {
		return id
	}
	return CorrelationIDFrom(c.UserContext())
}

// CorrelationIDFrom reads the id stored by WithCorrelationID.
func CorrelationIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// WithCorrelationID stores id on ctx. Blank ids leave ctx untouched.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}
