//go:build linux

package alarm

import "golang.org/x/sys/unix"

func currentOSThread() int {
	return unix.Gettid()
}
