package jni

import (
	"weak"

	"github.com/daimatz/gojni/pkg/vm"
)

// Handle layout. The low two bits hold the reference kind.
//
//	local:  | gen:22 | env:16 | index:24 | kind:2 |
//	global: | gen:30 |     index:32      | kind:2 |
//
// A slot's generation changes every time it is freed, so a handle that
// outlives its referent is recognised even after the slot is reused.
const (
	kindLocal  = 1
	kindGlobal = 2
	kindWeak   = 3
	kindMask   = 3

	localIndexBits = 24
	localEnvBits   = 16
	localGenBits   = 22
	globalIdxBits  = 32
	globalGenBits  = 30

	// MaxLocalRefs bounds the local references a thread may hold at once.
	MaxLocalRefs = 1<<localIndexBits - 1

	// DefaultLocalCapacity is the number of local references every native
	// call may create without calling EnsureLocalCapacity.
	DefaultLocalCapacity = 16
)

type refSlot struct {
	ref  interface{}
	gen  uint32
	used bool
}

// slotTable stores referents by index with free-slot reuse.
type slotTable struct {
	slots []refSlot
	free  []uint32
	live  int
}

func (t *slotTable) put(ref interface{}) (index, gen uint32) {
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		index = uint32(len(t.slots))
		t.slots = append(t.slots, refSlot{})
	}
	s := &t.slots[index]
	s.ref = ref
	s.used = true
	t.live++
	return index, s.gen
}

func (t *slotTable) get(index, gen, genMask uint32) (interface{}, bool) {
	if int(index) >= len(t.slots) {
		return nil, false
	}
	s := &t.slots[index]
	if !s.used || s.gen&genMask != gen {
		return nil, false
	}
	return s.ref, true
}

func (t *slotTable) remove(index, gen, genMask uint32) bool {
	if _, ok := t.get(index, gen, genMask); !ok {
		return false
	}
	s := &t.slots[index]
	s.ref = nil
	s.used = false
	s.gen++
	t.free = append(t.free, index)
	t.live--
	return true
}

func (t *slotTable) reset() {
	t.slots = nil
	t.free = nil
	t.live = 0
}

func localHandle(env, index, gen uint32) Object {
	const genMask = 1<<localGenBits - 1
	h := uint64(gen&genMask)<<(localIndexBits+localEnvBits) |
		uint64(env&(1<<localEnvBits-1))<<localIndexBits |
		uint64(index)
	return Object(h<<2 | kindLocal)
}

func splitLocal(h Object) (env, index, gen uint32) {
	v := uint64(h) >> 2
	index = uint32(v & (1<<localIndexBits - 1))
	env = uint32(v >> localIndexBits & (1<<localEnvBits - 1))
	gen = uint32(v >> (localIndexBits + localEnvBits))
	return
}

func globalHandle(kind uint64, index, gen uint32) Object {
	const genMask = 1<<globalGenBits - 1
	h := uint64(gen&genMask)<<globalIdxBits | uint64(index)
	return Object(h<<2 | kind)
}

func splitGlobal(h Object) (index, gen uint32) {
	v := uint64(h) >> 2
	return uint32(v), uint32(v >> globalIdxBits)
}

type localFrame struct {
	slots    []uint32
	capacity int
	explicit bool
	warned   bool
}

// newLocal creates a local reference in the current frame. A nil referent
// yields the null handle.
func (e *Env) newLocal(ref interface{}) Object {
	if ref == nil {
		return 0
	}
	if e.locals.live >= MaxLocalRefs {
		e.jvm.fatal(e, "local reference table overflow")
		return 0
	}
	if len(e.frames) == 0 {
		e.frames = append(e.frames, localFrame{capacity: DefaultLocalCapacity})
	}
	idx, gen := e.locals.put(ref)
	f := &e.frames[len(e.frames)-1]
	f.slots = append(f.slots, idx)
	if e.jvm.checked && !f.warned && len(f.slots) > f.capacity {
		f.warned = true
		e.jvm.logger.Warn("JNI local refs exceed capacity", "refs", len(f.slots), "capacity", f.capacity, "thread", e.thread.Name)
	}
	return localHandle(e.serial, idx, gen)
}

// lookup resolves a handle without reporting problems.
func (e *Env) lookup(h Object) (interface{}, ObjectRefType) {
	switch h & kindMask {
	case kindLocal:
		env, idx, gen := splitLocal(h)
		if env != e.serial&(1<<localEnvBits-1) {
			return nil, InvalidRefType
		}
		if ref, ok := e.locals.get(idx, gen, 1<<localGenBits-1); ok {
			return ref, LocalRefType
		}
	case kindGlobal, kindWeak:
		return e.jvm.lookupGlobal(h)
	}
	return nil, InvalidRefType
}

// decode resolves a handle to its referent. Null decodes to nil. An invalid
// handle is a contract violation; ok is false when the caller must bail out.
func (e *Env) decode(h Object, fn string) (ref interface{}, ok bool) {
	if h == 0 {
		return nil, true
	}
	ref, typ := e.lookup(h)
	if typ == InvalidRefType {
		e.violation(fn, "invalid %s reference %#x", describeHandle(e, h), uintptr(h))
		return nil, false
	}
	return ref, true
}

func describeHandle(e *Env, h Object) string {
	switch h & kindMask {
	case kindLocal:
		if env, _, _ := splitLocal(h); env != e.serial&(1<<localEnvBits-1) {
			return "foreign local"
		}
		return "stale local"
	case kindGlobal:
		return "stale global"
	case kindWeak:
		return "stale weak global"
	}
	return "malformed"
}

func (e *Env) deleteLocal(h Object) bool {
	env, idx, gen := splitLocal(h)
	if env != e.serial&(1<<localEnvBits-1) {
		return false
	}
	return e.locals.remove(idx, gen, 1<<localGenBits-1)
}

// pushFrame opens a local frame that holds at least capacity references.
func (e *Env) pushFrame(capacity int, explicit bool) {
	if capacity < DefaultLocalCapacity {
		capacity = DefaultLocalCapacity
	}
	e.frames = append(e.frames, localFrame{capacity: capacity, explicit: explicit})
}

// popFrame frees every reference created in the top frame.
func (e *Env) popFrame() {
	n := len(e.frames)
	if n == 0 {
		return
	}
	for _, idx := range e.frames[n-1].slots {
		if int(idx) < len(e.locals.slots) && e.locals.slots[idx].used {
			s := &e.locals.slots[idx]
			e.locals.remove(idx, s.gen, ^uint32(0))
		}
	}
	e.frames = e.frames[:n-1]
}

// popFramesTo pops frames until depth frames remain.
func (e *Env) popFramesTo(depth int) {
	for len(e.frames) > depth {
		e.popFrame()
	}
}

// lookupGlobal resolves a global or weak global handle.
func (jvm *JavaVM) lookupGlobal(h Object) (interface{}, ObjectRefType) {
	idx, gen := splitGlobal(h)
	jvm.refMu.Lock()
	defer jvm.refMu.Unlock()
	if h&kindMask == kindWeak {
		if ref, ok := jvm.weaks.get(idx, gen, 1<<globalGenBits-1); ok {
			return ref.(weakRef).get(), WeakGlobalRefType
		}
		return nil, InvalidRefType
	}
	if ref, ok := jvm.globals.get(idx, gen, 1<<globalGenBits-1); ok {
		return ref, GlobalRefType
	}
	return nil, InvalidRefType
}

// weakRef is the referent of a weak global. Heap objects, arrays and
// strings are held through weak pointers and read as nil once collected.
// Other referents stay strongly reachable.
type weakRef struct {
	get func() interface{}
}

func makeWeak(ref interface{}) weakRef {
	switch r := ref.(type) {
	case *vm.JObject:
		return weakRef{weakOf(r)}
	case *vm.JArray:
		return weakRef{weakOf(r)}
	case *vm.JString:
		return weakRef{weakOf(r)}
	}
	return weakRef{func() interface{} { return ref }}
}

func weakOf[T any](p *T) func() interface{} {
	w := weak.Make(p)
	return func() interface{} {
		if v := w.Value(); v != nil {
			return v
		}
		return nil
	}
}

func (jvm *JavaVM) newGlobal(ref interface{}, weak bool) Object {
	if ref == nil {
		return 0
	}
	jvm.refMu.Lock()
	defer jvm.refMu.Unlock()
	if weak {
		idx, gen := jvm.weaks.put(makeWeak(ref))
		return globalHandle(kindWeak, idx, gen)
	}
	idx, gen := jvm.globals.put(ref)
	return globalHandle(kindGlobal, idx, gen)
}

func (jvm *JavaVM) deleteGlobal(h Object) bool {
	idx, gen := splitGlobal(h)
	jvm.refMu.Lock()
	defer jvm.refMu.Unlock()
	if h&kindMask == kindWeak {
		return jvm.weaks.remove(idx, gen, 1<<globalGenBits-1)
	}
	return jvm.globals.remove(idx, gen, 1<<globalGenBits-1)
}

// GlobalRefs returns the number of live global and weak global references.
func (jvm *JavaVM) GlobalRefs() (globals, weaks int) {
	jvm.refMu.Lock()
	defer jvm.refMu.Unlock()
	return jvm.globals.live, jvm.weaks.live
}

// LocalRefs returns the number of live local references of the thread.
func (e *Env) LocalRefs() int {
	return e.locals.live
}
