// Package lock provides keyed locks serialising read-modify-write cycles
// on a single wager or wallet record.
package lock

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// entry is a one-slot semaphore with a count of holders and waiters.
// It is removed from the map once nobody references it.
type entry struct {
	sem  chan struct{}
	refs int
}

// KeyLock hands out one mutex per string key. Entries are created on demand
// and evicted when the last holder or waiter leaves, so the map only grows
// with the number of keys in use at the same time.
type KeyLock struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{entries: make(map[string]*entry)}
}

func (kl *KeyLock) acquire(key string) *entry {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	e, ok := kl.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		kl.entries[key] = e
	}
	e.refs++
	return e
}

func (kl *KeyLock) release(key string, e *entry) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(kl.entries, key)
	}
}

// Lock blocks until the key is held or ctx is done.
// On cancellation it returns ErrLockTimeout wrapping the context error.
func (kl *KeyLock) Lock(ctx context.Context, key string) error {
	e := kl.acquire(key)

	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		kl.release(key, e)
		return errors.Join(ErrLockTimeout, ctx.Err())
	}
}

// TryLock acquires the key without blocking.
// Returns true if the lock was acquired, false otherwise.
func (kl *KeyLock) TryLock(key string) bool {
	e := kl.acquire(key)

	select {
	case e.sem <- struct{}{}:
		return true
	default:
		kl.release(key, e)
		return false
	}
}

// Unlock releases the key.
func (kl *KeyLock) Unlock(key string) error {
	kl.mu.Lock()
	e, ok := kl.entries[key]
	kl.mu.Unlock()
	if !ok {
		return ErrNotLocked
	}

	select {
	case <-e.sem:
	default:
		return ErrNotLocked
	}
	kl.release(key, e)
	return nil
}

// WithLock executes fn while holding the key.
func (kl *KeyLock) WithLock(ctx context.Context, key string, fn func() error) error {
	if err := kl.Lock(ctx, key); err != nil {
		return err
	}
	defer kl.Unlock(key) //nolint:errcheck

	return fn()
}

// WithLocks executes fn while holding every key. Keys are taken in sorted
// order so two callers locking the same pair can never deadlock.
func (kl *KeyLock) WithLocks(ctx context.Context, keys []string, fn func() error) error {
	ordered := uniqueSorted(keys)

	held := make([]string, 0, len(ordered))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			_ = kl.Unlock(held[i])
		}
	}()

	for _, k := range ordered {
		if err := kl.Lock(ctx, k); err != nil {
			return err
		}
		held = append(held, k)
	}
	return fn()
}

// IsLocked reports whether the key is currently held.
// This is a point-in-time check and may change immediately after.
func (kl *KeyLock) IsLocked(key string) bool {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	e, ok := kl.entries[key]
	return ok && len(e.sem) == 1
}

// Len returns the number of keys with a holder or waiter.
func (kl *KeyLock) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.entries)
}

func uniqueSorted(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
