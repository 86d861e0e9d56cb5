package core

import (
	"time"

	"tracecore/pkg/domain"
)

// Defaults applied by New.
const (
	DefaultCacheCapacity = 500
	DefaultFlushDelay    = 300 * time.Millisecond
	DefaultKeyPrefix     = "REQ"
)

// Option configures an Engine.
type Option func(*Engine)

// WithPersistence sets the snapshot driver. Without it the engine runs
// detached and nothing is saved.
func WithPersistence(p domain.Persistence) Option {
	return func(e *Engine) {
		if p != nil {
			e.persistence = p
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithCacheCapacity bounds the record cache.
func WithCacheCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cacheCapacity = n
		}
	}
}

// WithFlushDelay sets the debounce window between a mutation and the save
// it schedules.
func WithFlushDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.flushDelay = d
		}
	}
}

// WithKeyPrefix sets the prefix used when minting human-readable keys.
func WithKeyPrefix(prefix string) Option {
	return func(e *Engine) {
		if prefix != "" {
			e.keyPrefix = prefix
		}
	}
}

// WithIDGenerator overrides how record, link and ledger ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithTransitionRules replaces the readiness checks run by
// ValidateTransition.
func WithTransitionRules(rules ...TransitionRule) Option {
	return func(e *Engine) {
		e.rules = append([]TransitionRule(nil), rules...)
	}
}
