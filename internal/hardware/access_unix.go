//go:build unix

package hardware

import "golang.org/x/sys/unix"

// writable reports whether the process may open path for writing.
func writable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}
