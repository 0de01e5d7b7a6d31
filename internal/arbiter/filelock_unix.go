//go:build unix

package arbiter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"controlling_irrigation/internal/models"

	"golang.org/x/sys/unix"
)

const defaultLockPoll = 50 * time.Millisecond

// FileLock extends Slot across processes with an advisory flock on a shared
// file, so the API server and out-of-process workers contend for one lease.
type FileLock struct {
	inner *Slot
	path  string
	poll  time.Duration
}

var _ Arbiter = (*FileLock)(nil)

// NewFileLock returns an arbiter locking path. The parent directory is created.
func NewFileLock(path string) (*FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	return &FileLock{inner: NewSlot(), path: path, poll: defaultLockPoll}, nil
}

func (f *FileLock) Acquire(ctx context.Context, timeout time.Duration) (*Lease, error) {
	deadline := time.Now().Add(timeout)

	inner, err := f.inner.Acquire(ctx, timeout)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		inner.Release()
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	for {
		err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) {
			_ = file.Close()
			inner.Release()
			return nil, fmt.Errorf("flock %s: %w", f.path, err)
		}
		if timeout <= 0 || !time.Now().Before(deadline) {
			_ = file.Close()
			inner.Release()
			if timeout <= 0 {
				return nil, models.ErrBusy
			}
			return nil, ErrAcquireTimeout
		}
		select {
		case <-ctx.Done():
			_ = file.Close()
			inner.Release()
			return nil, ctx.Err()
		case <-time.After(f.poll):
		}
	}

	return &Lease{
		ID:         inner.ID,
		AcquiredAt: inner.AcquiredAt,
		release: func() {
			_ = unix.Flock(int(file.Fd()), unix.LOCK_UN)
			_ = file.Close()
			inner.Release()
		},
	}, nil
}

func (f *FileLock) Release(l *Lease) { l.Release() }

// Held reports whether this process holds the lease.
func (f *FileLock) Held() bool { return f.inner.Held() }
