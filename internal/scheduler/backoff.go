package scheduler

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// LinearBackOff waits Base, 2*Base, 3*Base, ... between attempts, capped at Max.
type LinearBackOff struct {
	Base time.Duration
	Max  time.Duration

	attempt int
}

var _ backoff.BackOff = (*LinearBackOff)(nil)

// NextBackOff implements backoff.BackOff.
func (b *LinearBackOff) NextBackOff() time.Duration {
	b.attempt++
	d := b.Base * time.Duration(b.attempt)
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// Reset implements backoff.BackOff.
func (b *LinearBackOff) Reset() {
	b.attempt = 0
}
