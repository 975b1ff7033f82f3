package dispatch

import (
	"context"
	"errors"
	"math"
	"net"
	"strings"
	"time"
)

// RetryPolicy bounds how often a failed send is repeated and how long the
// worker waits between attempts.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultRetryPolicy is three attempts, doubling from 1s, capped at 30s.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2,
		MaxDelay:     30 * time.Second,
	}
}

// Telegram and HTTP error text that marks a failure as transient or final.
var (
	transientMarkers = []string{"connection refused", "connection reset", "timeout", "too many requests", "temporary failure"}
	permanentMarkers = []string{"invalid", "unauthorized", "forbidden", "chat not found", "bad request"}
)

// ShouldRetry reports whether attempt (1-based) may be followed by another.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	return attempt <= p.MaxAttempts && transient(err)
}

// transient classifies err. Unrecognised errors are treated as transient;
// a cancelled context never is.
func transient(err error) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if containsAny(msg, transientMarkers) {
		return true
	}
	return !containsAny(msg, permanentMarkers)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// NextDelay is InitialDelay * Multiplier^(attempt-1), capped at MaxDelay.
func (p *RetryPolicy) NextDelay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Execute calls fn until it succeeds, fails permanently, or runs out of
// attempts, and returns the last error. Waiting between attempts stops early
// with ctx's error.
func (p *RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == p.MaxAttempts || !p.ShouldRetry(err, attempt) {
			return err
		}

		timer := time.NewTimer(p.NextDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
