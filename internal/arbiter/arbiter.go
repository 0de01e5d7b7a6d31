// Package arbiter hands out the single lease on the shared pump line.
package arbiter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"controlling_irrigation/internal/models"
)

// ErrAcquireTimeout is returned when a bounded wait expires. It matches models.ErrBusy.
var ErrAcquireTimeout = fmt.Errorf("%w: acquire timed out", models.ErrBusy)

// Arbiter guarantees that at most one Lease exists at any instant.
type Arbiter interface {
	// Acquire waits up to timeout for the lease. A zero timeout does not wait.
	Acquire(ctx context.Context, timeout time.Duration) (*Lease, error)
	Release(l *Lease)
	Held() bool
}

// Lease is exclusive ownership of the pump line.
type Lease struct {
	ID         uint64
	AcquiredAt time.Time

	once    sync.Once
	release func()
}

// Release gives the lease back. Safe to call more than once and on nil.
func (l *Lease) Release() {
	if l == nil {
		return
	}
	l.once.Do(l.release)
}

// Slot is an in-process arbiter built on a single-slot channel.
type Slot struct {
	slot chan struct{}
	seq  atomic.Uint64
}

var _ Arbiter = (*Slot)(nil)

func NewSlot() *Slot {
	return &Slot{slot: make(chan struct{}, 1)}
}

func (s *Slot) Acquire(ctx context.Context, timeout time.Duration) (*Lease, error) {
	if timeout <= 0 {
		select {
		case s.slot <- struct{}{}:
			return s.newLease(), nil
		default:
			return nil, models.ErrBusy
		}
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case s.slot <- struct{}{}:
		return s.newLease(), nil
	case <-t.C:
		return nil, ErrAcquireTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Slot) newLease() *Lease {
	return &Lease{
		ID:         s.seq.Add(1),
		AcquiredAt: time.Now().UTC(),
		release:    func() { <-s.slot },
	}
}

func (s *Slot) Release(l *Lease) { l.Release() }

func (s *Slot) Held() bool { return len(s.slot) == 1 }
