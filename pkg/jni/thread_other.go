//go:build !linux

package jni

import "github.com/petermattis/goid"

// currentThreadID identifies the calling goroutine. Without a portable
// thread id, a goroutine stands in for the OS thread it is locked to.
func currentThreadID() int64 {
	return goid.Get()
}
