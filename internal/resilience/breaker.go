package resilience

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrBreakerOpen is returned once a breaker has tripped.
var ErrBreakerOpen = eris.New("resilience: breaker open")

// Breaker stops calling an optional collaborator after a run of consecutive
// failures. It never re-closes; once tripped the collaborator is skipped for
// the rest of the run.
type Breaker struct {
	name      string
	threshold int

	mu       sync.Mutex
	failures int
	open     bool
}

// NewBreaker trips after threshold consecutive failures (default 3).
func NewBreaker(name string, threshold int) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	return &Breaker{name: name, threshold: threshold}
}

// Open reports whether the breaker has tripped.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Execute runs fn unless the breaker is open.
func Execute[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if b.Open() {
		return zero, ErrBreakerOpen
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
	if !b.open && b.failures >= b.threshold {
		b.open = true
		zap.L().Warn("breaker tripped",
			zap.String("collaborator", b.name),
			zap.Int("consecutive_failures", b.failures),
		)
	}
}
