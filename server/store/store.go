// Package store keeps the server's files in a single flat directory.
//
// Every name is validated and confined to the root before it touches the
// filesystem. Readers and writers of the same name are serialized through a
// per-name lock, and the open file additionally carries an OS advisory lock
// so that other processes sharing the directory see a consistent entry.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/natelandrum/file-transfer-project/wire"
)

// ErrNotFound is returned for names with no entry in the store.
var ErrNotFound = errors.New("entry not found")

// Store is a flat directory of named entries.
type Store struct {
	root  string
	locks *Locks

	// OnLockWait, when set, is told when an operation has to wait for
	// another connection holding the same entry.
	OnLockWait func(name string, exclusive bool, waited time.Duration)
}

// New opens the store rooted at root, creating the directory if needed.
func New(root string, lockTimeout time.Duration) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve store root %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create store root %s: %w", abs, err)
	}
	return &Store{root: abs, locks: NewLocks(lockTimeout)}, nil
}

// Root returns the absolute store directory.
func (s *Store) Root() string {
	return s.root
}

// path maps an entry name to its file, refusing anything that would land
// outside the root.
func (s *Store) path(name string) (string, error) {
	if err := wire.ValidateName(name); err != nil {
		return "", err
	}
	full := filepath.Join(s.root, name)
	if filepath.Dir(full) != s.root {
		return "", wire.ErrInvalidName
	}
	return full, nil
}

// Exists reports whether name is a regular file in the store.
func (s *Store) Exists(name string) (bool, error) {
	full, err := s.path(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// List returns the names of all entries in directory order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read store root: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if wire.ValidateName(entry.Name()) != nil {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (s *Store) acquire(ctx context.Context, name string, exclusive bool) (*Lease, error) {
	var notify func(time.Duration)
	if s.OnLockWait != nil {
		notify = func(waited time.Duration) { s.OnLockWait(name, exclusive, waited) }
	}
	return s.locks.Acquire(ctx, name, exclusive, notify)
}

// lockFile takes the OS advisory lock on f, polling until ctx is done.
func lockFile(ctx context.Context, f *os.File, exclusive bool) error {
	if tryLockFile(f, exclusive) {
		return nil
	}
	poll := time.NewTicker(lockPollInterval)
	defer poll.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("lock %s: %w", f.Name(), ctx.Err())
		case <-poll.C:
			if tryLockFile(f, exclusive) {
				return nil
			}
		}
	}
}

// Reader streams one entry under a shared lock.
type Reader struct {
	*os.File
	Size  int64
	lease *Lease
}

// Close releases the file and both locks.
func (r *Reader) Close() error {
	unlockFile(r.File)
	err := r.File.Close()
	r.lease.Release()
	return err
}

// LockWait is how long opening waited for another connection's lock.
func (r *Reader) LockWait() time.Duration {
	return r.lease.WaitTime
}

// OpenReader opens name for download. It returns ErrNotFound when the entry
// does not exist.
func (s *Store) OpenReader(ctx context.Context, name string) (*Reader, error) {
	full, err := s.path(name)
	if err != nil {
		return nil, err
	}
	lease, err := s.acquire(ctx, name, false)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if errors.Is(err, os.ErrNotExist) {
		lease.Release()
		return nil, ErrNotFound
	}
	if err != nil {
		lease.Release()
		return nil, err
	}
	if err := lockFile(ctx, f, false); err != nil {
		f.Close()
		lease.Release()
		return nil, err
	}

	info, err := f.Stat()
	if err == nil && !info.Mode().IsRegular() {
		err = ErrNotFound
	}
	if err != nil {
		unlockFile(f)
		f.Close()
		lease.Release()
		return nil, err
	}
	return &Reader{File: f, Size: info.Size(), lease: lease}, nil
}

// Writer fills one entry under an exclusive lock.
type Writer struct {
	*os.File
	lease   *Lease
	written int64
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.File.Write(p)
	w.written += int64(n)
	return n, err
}

// ReadFrom keeps io.Copy on the counting Write path.
func (w *Writer) ReadFrom(r io.Reader) (int64, error) {
	return io.Copy(struct{ io.Writer }{w}, r)
}

// Written returns the number of bytes stored so far.
func (w *Writer) Written() int64 {
	return w.written
}

// Close syncs the entry to disk and releases the file and both locks.
func (w *Writer) Close() error {
	var result *multierror.Error
	if err := w.File.Sync(); err != nil {
		result = multierror.Append(result, fmt.Errorf("sync %s: %w", w.File.Name(), err))
	}
	unlockFile(w.File)
	if err := w.File.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	w.lease.Release()
	return result.ErrorOrNil()
}

// LockWait is how long opening waited for another connection's lock.
func (w *Writer) LockWait() time.Duration {
	return w.lease.WaitTime
}

// OpenWriter creates name, or replaces its content from offset zero.
func (s *Store) OpenWriter(ctx context.Context, name string) (*Writer, error) {
	full, err := s.path(name)
	if err != nil {
		return nil, err
	}
	lease, err := s.acquire(ctx, name, true)
	if err != nil {
		return nil, err
	}

	// Truncate only once the OS lock is held so that another process
	// reading the entry never sees it emptied underneath it.
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		lease.Release()
		return nil, err
	}
	if err := lockFile(ctx, f, true); err != nil {
		f.Close()
		lease.Release()
		return nil, err
	}
	if err := f.Truncate(0); err != nil {
		unlockFile(f)
		f.Close()
		lease.Release()
		return nil, fmt.Errorf("truncate %s: %w", name, err)
	}
	return &Writer{File: f, lease: lease}, nil
}

// Remove deletes name. It returns ErrNotFound when the entry does not exist.
func (s *Store) Remove(ctx context.Context, name string) error {
	full, err := s.path(name)
	if err != nil {
		return err
	}
	lease, err := s.acquire(ctx, name, true)
	if err != nil {
		return err
	}
	defer lease.Release()

	info, err := os.Stat(full)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return os.Remove(full)
}
