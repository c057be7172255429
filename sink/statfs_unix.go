//go:build linux || darwin || freebsd

package sink

import "golang.org/x/sys/unix"

// availableBytes reports the bytes available to unprivileged users on the
// file system holding path.
func availableBytes(path string) (uint64, bool, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, false, err
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), true, nil
}
