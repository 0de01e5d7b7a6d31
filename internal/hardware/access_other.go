//go:build !unix

package hardware

import "os"

func writable(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
