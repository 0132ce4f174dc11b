package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const maxDelay = 10 * time.Second

var ErrCircuitOpen = errors.New("circuit breaker is open")

// IsRetriable reports whether err is a transient transport failure.
// Context cancellation is never retriable.
func IsRetriable(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrCircuitOpen):
		return false
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		return true
	}

	if s, ok := status.FromError(err); ok && s.Code() == codes.Unavailable {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var temporary interface{ Temporary() bool }
	return errors.As(err, &temporary) && temporary.Temporary()
}

// backoff is base*2^attempt plus up to one base of jitter, capped at maxDelay.
func backoff(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	d := maxDelay
	if attempt < 30 {
		d = base << attempt
	}
	if d <= 0 || d > maxDelay {
		d = maxDelay
	}
	return d + time.Duration(rand.Int63n(int64(base))) //nolint:gosec // jitter
}

// WithBackoff calls fn up to attempts times, sleeping between retriable
// failures. The last error is wrapped with the attempt count.
func WithBackoff[T any](ctx context.Context, attempts int, base time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	if attempts <= 0 {
		return zero, fmt.Errorf("attempts must be > 0, got %d", attempts)
	}

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		var result T
		if result, err = fn(); err == nil {
			return result, nil
		}
		if !IsRetriable(err) {
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}

		timer.Reset(backoff(attempt, base))
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, err)
}

type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("CircuitState(%d)", int(s))
	}
}

// CircuitBreaker opens after threshold consecutive retriable failures and
// admits a single trial call once cooldown has elapsed.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        CircuitState
	failures     int
	threshold    int
	cooldown     time.Duration
	openedAt     time.Time
	trialRunning bool
	now          func() time.Time
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:     StateClosed,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Execute(fn func() error) error {
	allowed, trial := cb.allow()
	if !allowed {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err, trial)
	return err
}

// allow reports whether a call may run and whether it is the half-open trial.
func (cb *CircuitBreaker) allow() (allowed, trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true, false
	case StateOpen:
		if cb.now().Sub(cb.openedAt) <= cb.cooldown {
			return false, false
		}
		cb.state = StateHalfOpen
	}
	if cb.trialRunning {
		return false, false
	}
	cb.trialRunning = true
	return true, true
}

// record only counts retriable failures; a caller error says nothing about
// the health of the remote side.
func (cb *CircuitBreaker) record(err error, trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.trialRunning = false
	}
	switch {
	case err == nil:
		cb.failures = 0
		cb.state = StateClosed
	case IsRetriable(err):
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.threshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
	}
}

// WithCircuitBreaker retries fn with backoff while cb stays closed.
func WithCircuitBreaker[T any](
	ctx context.Context,
	cb *CircuitBreaker,
	attempts int,
	base time.Duration,
	fn func() (T, error),
) (T, error) {
	return WithBackoff(ctx, attempts, base, func() (T, error) {
		var result T
		err := cb.Execute(func() error {
			var fnErr error
			result, fnErr = fn()
			return fnErr
		})
		return result, err
	})
}
