// Package lock provides an advisory mutual exclusion with TTL, shared by processes.
//
// Holding a lock does not protect data. It only narrows the window where two callers
// do the same thing at once; unique constraints of the database are the backstop.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
)

// Release gives a lock back. Releasing an expired or stolen lock is not an error.
type Release func(context.Context) error

type Locker interface {
	// TryAcquire takes the lock name for ttl without waiting.
	//
	// # Returns
	//
	// - Release: gives back the lock. nil unless ok.
	//
	// - bool: false when another holder has an unexpired lock.
	//
	// - error
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (Release, bool, error)
}

// Do runs fn while holding the lock name.
//
// When the lock is held by someone else, fn is not run and Do returns (false, nil).
// The lock is released after fn, whether it has failed or not.
func Do(ctx context.Context, l Locker, name string, ttl time.Duration, fn func(context.Context) error) (ran bool, err error) {
	release, ok, err := l.TryAcquire(ctx, name, ttl)
	if err != nil {
		return false, xe.Wrap(err)
	}
	if !ok {
		return false, nil
	}
	defer func() {
		// release even if ctx is done
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil && err == nil {
			err = xe.Wrap(rerr)
		}
	}()
	return true, fn(ctx)
}

type entry struct {
	holder  string
	expires time.Time
}

// Memory is a Locker in a process.
type Memory struct {
	mu    sync.Mutex
	now   func() time.Time
	locks map[string]entry
}

// NewMemory returns a Locker in memory. When now is nil, time.Now is used.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{now: now, locks: map[string]entry{}}
}

func (m *Memory) TryAcquire(_ context.Context, name string, ttl time.Duration) (Release, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.locks[name]; ok && now.Before(e.expires) {
		return nil, false, nil
	}
	holder := uuid.NewString()
	m.locks[name] = entry{holder: holder, expires: now.Add(ttl)}

	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if e, ok := m.locks[name]; ok && e.holder == holder {
			delete(m.locks, name)
		}
		return nil
	}, true, nil
}
