package jni

import (
	"runtime"
	"sync"
	"testing"
)

func TestCurrentThreadIDDistinct(t *testing.T) {
	const n = 4
	ids := make([]int64, n)
	var locked, done sync.WaitGroup
	locked.Add(n)
	done.Add(n)
	release := make(chan struct{})
	for i := range ids {
		go func() {
			defer done.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			ids[i] = currentThreadID()
			locked.Done()
			// Hold the thread until every goroutine has read its id.
			<-release
			if again := currentThreadID(); again != ids[i] {
				t.Errorf("goroutine %d: id changed from %d to %d", i, ids[i], again)
			}
		}()
	}
	locked.Wait()
	close(release)
	done.Wait()

	seen := make(map[int64]int)
	for i, id := range ids {
		if j, dup := seen[id]; dup {
			t.Errorf("goroutines %d and %d share thread id %d", j, i, id)
		}
		seen[id] = i
	}
}
