//go:build unix

package arbiter

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"controlling_irrigation/internal/models"
)

func TestFileLock_ExcludesOtherHolders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "pump.lock")
	a, err := NewFileLock(path)
	if err != nil {
		t.Fatalf("NewFileLock: %v", err)
	}
	b, err := NewFileLock(path)
	if err != nil {
		t.Fatalf("NewFileLock: %v", err)
	}
	ctx := context.Background()

	la, err := a.Acquire(ctx, 0)
	if err != nil {
		t.Fatalf("a.Acquire: %v", err)
	}
	if _, err := b.Acquire(ctx, 0); !errors.Is(err, models.ErrBusy) {
		t.Fatalf("b.Acquire err = %v; want ErrBusy", err)
	}
	if b.Held() {
		t.Fatalf("b must not report a held lease after failing")
	}
	if _, err := b.Acquire(ctx, 80*time.Millisecond); !errors.Is(err, ErrAcquireTimeout) {
		t.Fatalf("b.Acquire with timeout err = %v; want ErrAcquireTimeout", err)
	}

	a.Release(la)
	lb, err := b.Acquire(ctx, 0)
	if err != nil {
		t.Fatalf("b.Acquire after release: %v", err)
	}
	lb.Release()
}
