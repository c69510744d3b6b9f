// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package rate

import (
	"context"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/go-core-stack/throttle/errors"
)

// interval between two rejection notices logged for the same limiter
const noticeInterval = 10 * time.Second

// LimitManager owns the rate windows of a process, keyed by name, and
// hands them out to the components that need rate limiting.
type LimitManager struct {
	mu       sync.Mutex          // protects concurrent access to the limiter state
	limiters map[string]*Limiter // registry of all configured limiters
	inUse    map[string]*Limiter // subset of limiters currently marked as active
	metrics  *Metrics            // optional, nil disables metrics
}

// ManagerOption customizes a LimitManager
type ManagerOption func(*LimitManager)

// WithMetrics reports admissions of every limiter to m
func WithMetrics(m *Metrics) ManagerOption {
	return func(mgr *LimitManager) {
		mgr.metrics = m
	}
}

// updateInUse marks a limiter as being actively used or idle
func (m *LimitManager) updateInUse(l *Limiter, use bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if use {
		m.inUse[l.key] = l
	} else {
		delete(m.inUse, l.key)
	}
	m.metrics.UpdateInUse(l.key, use)
}

// NewLimiter registers a limiter with the manager and returns it for use.
// The limiter admits at most capacity events per window.
func (m *LimitManager) NewLimiter(key string, capacity int, window time.Duration) (*Limiter, error) {
	return m.newLimiter(LimiterConfig{
		Key:      key,
		Capacity: capacity,
		Window:   window,
	})
}

func (m *LimitManager) newLimiter(cfg LimiterConfig) (*Limiter, error) {
	lim, err := m.buildLimiter(cfg)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.limiters[lim.key]
	if ok {
		return nil, errors.Wrapf(errors.AlreadyExists, "limiter %q, already exists", lim.key)
	}
	m.limiters[lim.key] = lim
	return lim, nil
}

// buildLimiter creates the limiter and its window without registering it
func (m *LimitManager) buildLimiter(cfg LimiterConfig) (*Limiter, error) {
	cfg.applyDefaults()
	if cfg.Key == "" {
		return nil, errors.Wrapf(errors.InvalidArgument, "limiter key must not be empty")
	}
	if cfg.Chunk < 1 {
		return nil, errors.Wrapf(errors.InvalidConfiguration, "limiter %q: chunk must be >= 1", cfg.Key)
	}
	win, err := NewRateWindow(cfg.Capacity, WithWindow(cfg.Window))
	if err != nil {
		return nil, errors.Wrapf(errors.InvalidConfiguration, "limiter %q: %s", cfg.Key, err)
	}
	return &Limiter{
		mgr:    m,
		key:    cfg.Key,
		chunk:  cfg.Chunk,
		window: win,
		notice: rate.Sometimes{Interval: noticeInterval},
	}, nil
}

// Apply registers a limiter for every entry of the configuration. Either
// all entries are registered or, on any failure, none of them are.
func (m *LimitManager) Apply(cfg *Config) error {
	if cfg == nil {
		return errors.Wrapf(errors.InvalidArgument, "limiter config must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	limiters := make([]*Limiter, 0, len(cfg.Limiters))
	for _, lc := range cfg.Limiters {
		lim, err := m.buildLimiter(lc)
		if err != nil {
			return err
		}
		limiters = append(limiters, lim)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, lim := range limiters {
		if _, ok := m.limiters[lim.key]; ok {
			return errors.Wrapf(errors.AlreadyExists, "limiter %q, already exists", lim.key)
		}
	}
	for _, lim := range limiters {
		m.limiters[lim.key] = lim
	}
	return nil
}

// GetLimiter returns the limiter registered under key
func (m *LimitManager) GetLimiter(key string) (*Limiter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lim, ok := m.limiters[key]
	if !ok {
		return nil, errors.Wrapf(errors.NotFound, "limiter %q not found", key)
	}
	return lim, nil
}

// ActiveLimiters returns the sorted keys of limiters currently wrapped
// around a reader or writer
func (m *LimitManager) ActiveLimiters() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.inUse))
	for k := range m.inUse {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *LimitManager) WrapReader(ctx context.Context, key string, rc io.ReadCloser) (RateLimitedReader, error) {
	lim, err := m.GetLimiter(key)
	if err != nil {
		return nil, err
	}
	lim.SetInUse(true)
	return &rlReader{
		ctx: ctx,
		rc:  rc,
		lim: lim,
	}, nil
}

func (m *LimitManager) WrapHTTPResponseWriter(ctx context.Context, key string, w http.ResponseWriter) (RateLimitedHTTPResponseWriter, error) {
	lim, err := m.GetLimiter(key)
	if err != nil {
		return nil, err
	}
	lim.SetInUse(true)
	return &rlWriter{
		ctx: ctx,
		w:   w,
		lim: lim,
	}, nil
}

// NewLimitManager constructs an empty LimitManager.
func NewLimitManager(opts ...ManagerOption) *LimitManager {
	m := &LimitManager{
		limiters: make(map[string]*Limiter),
		inUse:    make(map[string]*Limiter),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
