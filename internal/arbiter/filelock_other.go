//go:build !unix

package arbiter

import (
	"errors"
)

// FileLock is unavailable on this platform.
type FileLock struct{ *Slot }

func NewFileLock(string) (*FileLock, error) {
	return nil, errors.New("file lock arbiter requires a unix platform")
}
