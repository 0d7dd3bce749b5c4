//go:build !linux

package alarm

func currentOSThread() int {
	return 0
}
