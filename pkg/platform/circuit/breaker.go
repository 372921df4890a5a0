// Package circuit provides a consecutive-failure circuit breaker for
// fail-safe side channels such as audit delivery.
package circuit

import "sync"

// State is the breaker position. Closed lets operations through; Open
// short-circuits them until enough successes are observed.
type State int

const (
	StateClosed State = iota
	StateOpen
)

// Breaker counts consecutive outcomes. FailureThreshold consecutive
// failures open it; SuccessThreshold consecutive successes while open
// close it again.
type Breaker struct {
	mu        sync.Mutex
	state     State
	name      string
	failures  int
	successes int

	failureThreshold int
	successThreshold int
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the
// circuit. Default 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successes close an
// open circuit. Default 3.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// New creates a closed breaker named for logging.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		successThreshold: 3,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the breaker's name.
func (b *Breaker) Name() string { return b.name }

// IsOpen reports whether the circuit is currently tripped.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateOpen
}

// RecordFailure notes a failed operation and reports whether this
// failure just opened the circuit.
func (b *Breaker) RecordFailure() (opened bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.successes = 0

	if b.state == StateClosed && b.failures >= b.failureThreshold {
		b.state = StateOpen
		return true
	}
	return false
}

// RecordSuccess notes a successful operation and reports whether this
// success just closed the circuit.
func (b *Breaker) RecordSuccess() (closed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		b.successes++
		if b.successes >= b.successThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
			return true
		}
		return false
	}

	b.failures = 0
	return false
}
