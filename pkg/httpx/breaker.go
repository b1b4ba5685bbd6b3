package httpx

import (
	"errors"
	"net/http"
	"sync"
	"time"
)

// ErrBreakerOpen is returned while the breaker is refusing calls.
var ErrBreakerOpen = errors.New("httpx: circuit breaker open")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// Breaker is a circuit breaker over an unreliable dependency. After Threshold
// consecutive failures it opens and fails fast; after Recovery it allows a
// single probe, closing again on success.
type Breaker struct {
	mu        sync.Mutex
	state     breakerState
	failures  int
	openedAt  time.Time
	threshold int
	recovery  time.Duration
}

// NewBreaker returns a closed breaker. A threshold <= 0 defaults to 5
// failures; a recovery <= 0 defaults to 30 seconds.
func NewBreaker(threshold int, recovery time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if recovery <= 0 {
		recovery = 30 * time.Second
	}
	return &Breaker{threshold: threshold, recovery: recovery}
}

// Do runs op unless the breaker is open. Only op's own errors count toward
// the failure threshold.
func (b *Breaker) Do(op func() error) error {
	if err := b.before(); err != nil {
		return err
	}

	err := op()
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerOpen:
		if time.Since(b.openedAt) < b.recovery {
			return ErrBreakerOpen
		}
		b.state = breakerHalfOpen
	case breakerHalfOpen, breakerClosed:
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.state = breakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == breakerHalfOpen || b.failures >= b.threshold {
		b.state = breakerOpen
		b.openedAt = time.Now()
	}
}

// BreakerTransport fails fast on a route that keeps failing at the transport
// level. HTTP responses of any status count as success; only connection-level
// errors trip the breaker.
type BreakerTransport struct {
	Base    http.RoundTripper
	Breaker *Breaker
}

func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Breaker == nil {
		return base.RoundTrip(req)
	}

	var resp *http.Response
	err := t.Breaker.Do(func() error {
		var err error
		resp, err = base.RoundTrip(req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
