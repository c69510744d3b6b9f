// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package rate

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultChunk is the number of bytes moved per admission by the
// rate limited reader and writer
const DefaultChunk = 32 * 1024

// Limiter wraps a RateWindow registered under a key with the
// LimitManager, reporting admissions and usage to the manager.
type Limiter struct {
	mgr    *LimitManager
	key    string
	chunk  int
	window *RateWindow
	usage  int // number of concurrent users that have marked the limiter as in-use
	mu     sync.Mutex

	// rejection notices are logged at most once per interval
	notice rate.Sometimes
}

// Key returns the key the limiter is registered with
func (l *Limiter) Key() string {
	return l.key
}

// Window returns the underlying rate window
func (l *Limiter) Window() *RateWindow {
	return l.window
}

// Reserve attempts one admission, returning zero when admitted or the
// wait estimate when rejected.
func (l *Limiter) Reserve() time.Duration {
	if l.mgr == nil {
		panic("limiter not initialized with manager")
	}
	wait := l.window.TryAdmit()
	l.mgr.metrics.RecordAdmission(l.key, wait)
	if wait > 0 {
		l.notice.Do(func() {
			log.Printf("limiter %q: capacity %d per %s exhausted, retry in %s",
				l.key, l.window.Capacity(), l.window.Window(), wait)
		})
	}
	return wait
}

// Allow reports whether one admission succeeded
func (l *Limiter) Allow() bool {
	return l.Reserve() == 0
}

// Wait blocks until admitted or until ctx is done.
//
// Metrics see one outcome per call: an admission, or a rejection with
// the last wait estimate when ctx ends while waiting. Retries in between
// are not counted.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.mgr == nil {
		panic("limiter not initialized with manager")
	}
	wait, err := waitAdmission(ctx, l.window.TryAdmit)
	if err != nil {
		if wait > 0 {
			l.mgr.metrics.RecordAdmission(l.key, wait)
		}
		return err
	}
	l.mgr.metrics.RecordAdmission(l.key, 0)
	return nil
}

// SetInUse increments or decrements the active usage counter and notifies the
// LimitManager when the limiter transitions between idle and active states.
func (l *Limiter) SetInUse(use bool) {
	if l.mgr == nil {
		panic("limiter not initialized with manager")
	}
	l.mu.Lock()
	notify, activate := false, false
	if use {
		if l.usage == 0 {
			l.usage = 1
			notify, activate = true, true
		} else {
			l.usage++
		}
	} else {
		if l.usage == 1 {
			l.usage = 0
			notify = true
		} else if l.usage > 1 {
			l.usage--
		}
	}
	l.mu.Unlock()
	if notify {
		l.mgr.updateInUse(l, activate)
	}
}
