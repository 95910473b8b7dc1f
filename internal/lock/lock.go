// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package lock guards pipelines against concurrent runs.
package lock

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrLocked is returned when the key is already held.
	ErrLocked = errors.New("lock already held")
	// ErrNotHeld is returned when releasing a lock that is no longer owned.
	ErrNotHeld = errors.New("lock not held")
)

// Locker acquires exclusive locks on keys. Acquire never waits: it fails with ErrLocked
// when the key is held.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lock, error)
}

// Lock is an acquired lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Local is a Locker valid inside a single process.
type Local struct {
	lock sync.Mutex
	held map[string]struct{}
}

func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

func (l *Local) Acquire(_ context.Context, key string) (Lock, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, ErrLocked
	}
	l.held[key] = struct{}{}
	return &localLock{owner: l, key: key}, nil
}

type localLock struct {
	owner *Local
	key   string
	once  sync.Once
}

func (l *localLock) Release(context.Context) error {
	err := ErrNotHeld
	l.once.Do(func() {
		l.owner.lock.Lock()
		defer l.owner.lock.Unlock()
		delete(l.owner.held, l.key)
		err = nil
	})
	return err
}
