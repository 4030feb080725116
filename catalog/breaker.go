package catalog

import (
	"errors"
	"sync"
	"time"
)

// Circuit breaker defaults.
const (
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 30 * time.Second
)

// ErrCircuitOpen indicates requests are refused after repeated transport
// failures. It is returned inside a TransportError.
var ErrCircuitOpen = errors.New("catalog: circuit open")

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

func (s circuitState) String() string {
	switch s {
	case circuitClosed:
		return "closed"
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker fails catalog calls fast once the API keeps failing. After the
// cooldown one probe request is let through; its outcome closes or reopens
// the circuit.
type breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	state     circuitState
	failures  int
	changed   time.Time
	probing   bool
	now       func() time.Time
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}
	return &breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// allow reports whether a request may be sent.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case circuitOpen:
		if b.now().Sub(b.changed) < b.cooldown {
			return ErrCircuitOpen
		}
		b.setState(circuitHalfOpen)
		b.probing = true
		return nil
	case circuitHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	}
	return nil
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
	if b.state != circuitClosed {
		b.setState(circuitClosed)
	}
}

// failure counts a transient failure. Final errors such as 4xx responses
// say nothing about API health and must not be passed here.
func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.probing = false
	if b.state == circuitHalfOpen || b.failures >= b.threshold {
		b.setState(circuitOpen)
	}
}

// abandon releases a probe whose request never produced an answer.
func (b *breaker) abandon() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

func (b *breaker) current() circuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *breaker) setState(s circuitState) {
	b.state = s
	b.changed = b.now()
}
