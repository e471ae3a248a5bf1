//go:build linux

package jni

import "golang.org/x/sys/unix"

// currentThreadID identifies the calling OS thread.
func currentThreadID() int64 {
	return int64(unix.Gettid())
}
