// Package resilience wraps outbound calls in per-operation circuit breakers.
// Calls are never retried: a tripped breaker only fails fast.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Config tunes the breakers. A zero value disables them.
type Config struct {
	Enabled          bool
	MinRequests      uint32
	FailureRatio     float64
	OpenTimeout      time.Duration
	HalfOpenMaxCalls uint32
}

// DefaultConfig is used by the long-running API server.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		MinRequests:      5,
		FailureRatio:     0.6,
		OpenTimeout:      30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()
	if out.MinRequests == 0 {
		out.MinRequests = def.MinRequests
	}
	if out.FailureRatio <= 0 || out.FailureRatio > 1 {
		out.FailureRatio = def.FailureRatio
	}
	if out.OpenTimeout <= 0 {
		out.OpenTimeout = def.OpenTimeout
	}
	if out.HalfOpenMaxCalls == 0 {
		out.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return out
}

// Countable reports whether err should count against the breaker. Caller
// mistakes such as a 4xx should not trip it.
type Countable func(err error) bool

// StateListener observes breaker transitions.
type StateListener func(operation string, open bool)

// Guard holds one breaker per operation name. A nil *Guard runs calls directly.
type Guard struct {
	cfg      Config
	log      *slog.Logger
	onChange StateListener

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

// NewGuard builds a guard. log may be nil.
func NewGuard(cfg Config, log *slog.Logger, onChange StateListener) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{
		cfg:      cfg.normalize(),
		log:      log,
		onChange: onChange,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// Do runs fn once under the operation's breaker.
func (g *Guard) Do(ctx context.Context, operation string, fn func(context.Context) error, countable Countable) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	if g == nil || !g.cfg.Enabled {
		return fn(ctx)
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if countable == nil {
		countable = func(error) bool { return true }
	}

	_, err := g.breaker(op, countable).Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	return err
}

func (g *Guard) breaker(op string, countable Countable) *gobreaker.CircuitBreaker[any] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if b, ok := g.breakers[op]; ok {
		return b
	}
	settings := gobreaker.Settings{
		Name:        op,
		MaxRequests: g.cfg.HalfOpenMaxCalls,
		Timeout:     g.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < g.cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= g.cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// caller cancellation says nothing about the dependency
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return !countable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.log.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
			if g.onChange != nil {
				g.onChange(name, to == gobreaker.StateOpen)
			}
		},
	}
	b := gobreaker.NewCircuitBreaker[any](settings)
	g.breakers[op] = b
	return b
}

// IsOpen reports whether err came from a breaker refusing the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
