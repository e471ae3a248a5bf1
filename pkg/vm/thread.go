package vm

import (
	"sync"
)

// Thread is an interpreter thread. Each attached OS thread owns exactly one.
type Thread struct {
	ID     int64
	Name   string
	Daemon bool

	// Attachment carries the native interface environment bound to this
	// thread, if any.
	Attachment interface{}

	vm    *VM
	depth int

	mu   sync.Mutex
	held map[*Monitor]struct{}
}

// NewThread creates an interpreter thread.
func (vm *VM) NewThread(name string, daemon bool) *Thread {
	vm.mu.Lock()
	vm.nextThreadID++
	id := vm.nextThreadID
	vm.mu.Unlock()
	return &Thread{ID: id, Name: name, Daemon: daemon, vm: vm, held: make(map[*Monitor]struct{})}
}

// VM returns the virtual machine the thread belongs to.
func (t *Thread) VM() *VM { return t.vm }

// Depth returns the number of active method frames on the thread.
func (t *Thread) Depth() int { return t.depth }

// ReleaseMonitors forcibly exits every monitor the thread still owns.
func (t *Thread) ReleaseMonitors() {
	t.mu.Lock()
	held := t.held
	t.held = make(map[*Monitor]struct{})
	t.mu.Unlock()
	for m := range held {
		m.release(t)
	}
}

// HeldMonitors returns the number of monitors the thread owns.
func (t *Thread) HeldMonitors() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.held)
}

func (t *Thread) track(m *Monitor, owned bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if owned {
		t.held[m] = struct{}{}
	} else {
		delete(t.held, m)
	}
}

// Monitor is a reentrant lock associated with an object.
type Monitor struct {
	mu    sync.Mutex
	cond  *sync.Cond
	owner *Thread
	count int
}

func newMonitor() *Monitor {
	m := &Monitor{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Enter acquires the monitor for t, blocking while another thread owns it.
func (m *Monitor) Enter(t *Thread) {
	m.mu.Lock()
	for m.owner != nil && m.owner != t {
		m.cond.Wait()
	}
	m.owner = t
	m.count++
	first := m.count == 1
	m.mu.Unlock()
	if first {
		t.track(m, true)
	}
}

// Exit releases one level of ownership. Exiting a monitor the thread does
// not own raises IllegalMonitorStateException.
func (m *Monitor) Exit(t *Thread) error {
	m.mu.Lock()
	if m.owner != t {
		m.mu.Unlock()
		return NewJavaExceptionf("java/lang/IllegalMonitorStateException", "current thread is not owner")
	}
	m.count--
	last := m.count == 0
	if last {
		m.owner = nil
		m.cond.Broadcast()
	}
	m.mu.Unlock()
	if last {
		t.track(m, false)
	}
	return nil
}

// Owner returns the owning thread and its entry count.
func (m *Monitor) Owner() (*Thread, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner, m.count
}

func (m *Monitor) release(t *Thread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner == t {
		m.owner = nil
		m.count = 0
		m.cond.Broadcast()
	}
}

// MonitorOf returns the monitor associated with a reference.
func (vm *VM) MonitorOf(ref interface{}) *Monitor {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	m, ok := vm.monitors[ref]
	if !ok {
		m = newMonitor()
		vm.monitors[ref] = m
	}
	return m
}
