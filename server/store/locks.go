package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLockTimeout is returned when an entry stays locked longer than the
// configured timeout.
var ErrLockTimeout = errors.New("timed out waiting for entry lock")

const (
	lockPollInterval   = 5 * time.Millisecond
	lockNotifyInterval = 2 * time.Second
)

// Locks hands out reader/writer locks keyed by entry name. Keys are reference
// counted and dropped once no lease holds or waits on them.
type Locks struct {
	mu      sync.Mutex
	entries map[string]*entryLock
	timeout time.Duration
}

type entryLock struct {
	rw   sync.RWMutex
	refs int
}

// Lease is a held entry lock.
type Lease struct {
	locks     *Locks
	name      string
	entry     *entryLock
	exclusive bool
	WaitTime  time.Duration // time spent before the lock was granted
	once      sync.Once
}

// NewLocks creates a lock table. A zero timeout waits until ctx is done.
func NewLocks(timeout time.Duration) *Locks {
	return &Locks{
		entries: make(map[string]*entryLock),
		timeout: timeout,
	}
}

func (ls *Locks) ref(name string) *entryLock {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	e, ok := ls.entries[name]
	if !ok {
		e = &entryLock{}
		ls.entries[name] = e
	}
	e.refs++
	return e
}

func (ls *Locks) unref(name string, e *entryLock) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(ls.entries, name)
	}
}

// Acquire locks name for reading, or for writing when exclusive is set. If the
// lock is not free right away, notify is called once immediately and then
// every couple of seconds with the time waited so far.
func (ls *Locks) Acquire(ctx context.Context, name string, exclusive bool, notify func(time.Duration)) (*Lease, error) {
	start := time.Now()
	e := ls.ref(name)

	try := e.rw.TryRLock
	if exclusive {
		try = e.rw.TryLock
	}

	if !try() {
		if notify != nil {
			notify(0)
		}
		if err := ls.wait(ctx, start, try, notify); err != nil {
			ls.unref(name, e)
			return nil, fmt.Errorf("lock %q: %w", name, err)
		}
	}

	return &Lease{
		locks:     ls,
		name:      name,
		entry:     e,
		exclusive: exclusive,
		WaitTime:  time.Since(start),
	}, nil
}

func (ls *Locks) wait(ctx context.Context, start time.Time, try func() bool, notify func(time.Duration)) error {
	poll := time.NewTicker(lockPollInterval)
	defer poll.Stop()
	lastNotify := start

	var deadline <-chan time.Time
	if ls.timeout > 0 {
		timer := time.NewTimer(ls.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return ErrLockTimeout
		case now := <-poll.C:
			if try() {
				return nil
			}
			if notify != nil && now.Sub(lastNotify) >= lockNotifyInterval {
				lastNotify = now
				notify(now.Sub(start))
			}
		}
	}
}

// Release unlocks the entry. Calling it more than once is a no-op.
func (l *Lease) Release() {
	l.once.Do(func() {
		if l.exclusive {
			l.entry.rw.Unlock()
		} else {
			l.entry.rw.RUnlock()
		}
		l.locks.unref(l.name, l.entry)
	})
}

// held reports how many keys are currently tracked.
func (ls *Locks) held() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return len(ls.entries)
}
