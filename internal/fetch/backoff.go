package fetch

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// LinearBackOff waits delay*n before retry n (n starting at 1).
// It never stops on its own; bound it with backoff.WithMaxRetries.
type LinearBackOff struct {
	delay   time.Duration
	attempt int
}

var _ backoff.BackOff = (*LinearBackOff)(nil)

// NewLinearBackOff creates a LinearBackOff with the given base delay.
func NewLinearBackOff(delay time.Duration) *LinearBackOff {
	return &LinearBackOff{delay: delay}
}

// NextBackOff returns the wait before the next attempt.
func (b *LinearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.delay * time.Duration(b.attempt)
}

// Reset restarts the sequence at delay*1.
func (b *LinearBackOff) Reset() {
	b.attempt = 0
}
