//go:build !windows

package walk

import (
	"os"
	"syscall"
)

// deviceOf returns the device id backing path, used to detect
// filesystem boundary crossings when Options.SameFilesystem is set.
func deviceOf(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, nil
	}
	return uint64(stat.Dev), nil
}
