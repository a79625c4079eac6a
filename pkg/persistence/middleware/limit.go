package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/lemon/pkg/ports"
)

// ErrValueTooLarge is returned when a value exceeds the configured quota.
var ErrValueTooLarge = errors.New("value exceeds storage quota")

type limitMiddleware struct {
	ports.Storage
	max int
}

// NewLimitMiddleware rejects writes whose value is longer than max bytes,
// mirroring the per-origin quota of browser session storage.
func NewLimitMiddleware(max int) Middleware {
	return func(next ports.Storage) ports.Storage {
		return &limitMiddleware{Storage: next, max: max}
	}
}

func (m *limitMiddleware) SetItem(ctx context.Context, sessionID, key, value string) error {
	if m.max > 0 && len(value) > m.max {
		return fmt.Errorf("%w: %q is %d bytes (max %d)", ErrValueTooLarge, key, len(value), m.max)
	}
	return m.Storage.SetItem(ctx, sessionID, key, value)
}
