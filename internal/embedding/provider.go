package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Provider maps canonical record text to a fixed-length vector. The engine
// treats it as an external capability: fallible, rate-limited, and slow.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Sentinel classification of provider failures. Rate limits, timeouts and
// upstream 5xx wrap ErrTransient and are retried with backoff; everything
// else wraps ErrPermanent and the record is skipped for this run.
var (
	ErrTransient = errors.New("embedding provider transient error")
	ErrPermanent = errors.New("embedding provider permanent error")
)

func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
func IsPermanent(err error) bool { return errors.Is(err, ErrPermanent) }

func transientf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrTransient, fmt.Sprintf(format, args...))
}

func permanentf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPermanent, fmt.Sprintf(format, args...))
}
