package jni

import (
	"errors"
	"fmt"
	"strings"

	"github.com/daimatz/gojni/pkg/vm"
)

// Env is the per-thread interface pointer. It is valid only on the OS
// thread that attached it, until that thread detaches. Every entry of
// Functions takes the Env it was reached through as its first argument.
type Env struct {
	Functions *NativeInterface

	jvm     *JavaVM
	thread  *vm.Thread
	tid     int64
	serial  uint32
	version Int

	pending  *vm.JObject
	detached bool

	locals   slotTable
	frames   []localFrame
	acquired map[uintptr]*acquisition
	critical int

	cell uintptr // C JNIEnv, allocated on first use
}

func newEnv(jvm *JavaVM, t *vm.Thread, tid int64, serial uint32, version Int) *Env {
	e := &Env{
		jvm:      jvm,
		thread:   t,
		tid:      tid,
		serial:   serial,
		acquired: make(map[uintptr]*acquisition),
	}
	e.negotiate(version)
	e.pushFrame(DefaultLocalCapacity, false)
	return e
}

func (e *Env) negotiate(version Int) {
	e.version = version
	e.Functions = tableFor(version)
}

// JavaVM returns the VM the environment belongs to.
func (e *Env) JavaVM() *JavaVM { return e.jvm }

// Thread returns the interpreter thread bound to the environment.
func (e *Env) Thread() *vm.Thread { return e.thread }

// Entries that may be called while an exception is pending.
var exceptionSafe = map[string]bool{
	"ExceptionOccurred":             true,
	"ExceptionDescribe":             true,
	"ExceptionClear":                true,
	"ExceptionCheck":                true,
	"FatalError":                    true,
	"ReleaseStringChars":            true,
	"ReleaseStringUTFChars":         true,
	"ReleaseStringCritical":         true,
	"ReleasePrimitiveArrayCritical": true,
	"DeleteLocalRef":                true,
	"DeleteGlobalRef":               true,
	"DeleteWeakGlobalRef":           true,
	"MonitorExit":                   true,
	"PushLocalFrame":                true,
	"PopLocalFrame":                 true,
}

// Entries that may be called inside a critical region.
var criticalSafe = map[string]bool{
	"GetPrimitiveArrayCritical":     true,
	"ReleasePrimitiveArrayCritical": true,
	"GetStringCritical":             true,
	"ReleaseStringCritical":         true,
	"ExceptionCheck":                true,
	"FatalError":                    true,
}

func isExceptionSafe(fn string) bool {
	if exceptionSafe[fn] {
		return true
	}
	// Release<Type>ArrayElements
	return strings.HasPrefix(fn, "Release") && strings.HasSuffix(fn, "ArrayElements")
}

// enter validates a table call made through e. It returns false when the
// call must not proceed.
func (e *Env) enter(fn string) bool {
	if e == nil {
		panic("jni: " + fn + " called with a nil JNIEnv")
	}
	if e.detached {
		e.violation(fn, "JNIEnv used after its thread detached")
		return false
	}
	if tid := e.jvm.threadID(); tid != e.tid {
		e.violation(fn, "JNIEnv of thread %d used by thread %d", e.tid, tid)
		return false
	}
	if e.pending != nil && !isExceptionSafe(fn) {
		e.violation(fn, "called with pending exception %s", vm.DescribeThrowable(e.pending))
	}
	if e.critical > 0 && !criticalSafe[fn] {
		e.jvm.logger.Warn("JNI call inside a critical region", "call", fn, "thread", e.thread.Name)
	}
	return true
}

// violation reports a breach of the native interface contract. In checked
// mode it is fatal; otherwise it is logged and the caller degrades to a
// null or no-op result.
func (e *Env) violation(fn, format string, args ...interface{}) {
	msg := fn + ": " + fmt.Sprintf(format, args...)
	e.jvm.violations.Add(1)
	if e.jvm.checked {
		e.jvm.fatal(e, msg)
		return
	}
	e.jvm.logger.Warn("JNI contract violation", "call", fn, "detail", fmt.Sprintf(format, args...))
}

// throw makes err the pending exception. Errors that are not Java
// exceptions become java.lang.InternalError.
func (e *Env) throw(err error) {
	var exc *vm.JavaException
	if !errors.As(err, &exc) {
		exc = vm.NewJavaExceptionf("java/lang/InternalError", "%v", err)
	}
	if merr := e.jvm.rt.Materialize(e.thread, exc); merr != nil {
		e.jvm.fatal(e, fmt.Sprintf("cannot create %s: %v", exc.ClassName, merr))
		return
	}
	e.pending = exc.Object
}

func (e *Env) throwNew(className, format string, args ...interface{}) {
	e.throw(vm.NewJavaExceptionf(className, format, args...))
}

// decodeClass resolves a handle that must denote a class.
func (e *Env) decodeClass(h Class, fn string) (*vm.Class, bool) {
	ref, ok := e.decode(h, fn)
	if !ok {
		return nil, false
	}
	c, isClass := ref.(*vm.Class)
	if !isClass {
		if ref == nil {
			e.violation(fn, "null class reference")
		} else {
			e.violation(fn, "%#x is not a class reference", uintptr(h))
		}
		return nil, false
	}
	return c, true
}

// decodeNonNull resolves a handle that must not be null.
func (e *Env) decodeNonNull(h Object, fn, what string) (interface{}, bool) {
	ref, ok := e.decode(h, fn)
	if !ok {
		return nil, false
	}
	if ref == nil {
		e.violation(fn, "null %s", what)
		return nil, false
	}
	return ref, true
}

// toVM converts a Value of descriptor desc for the interpreter.
func (e *Env) toVM(fn, desc string, v Value) (vm.Value, bool) {
	if kindOf(desc) != KindObject {
		return primitiveToVM(v), true
	}
	ref, ok := e.decode(v.Object(), fn)
	if !ok {
		return vm.NullValue(), false
	}
	return vm.RefValue(ref), true
}

// fromVM converts an interpreter value of kind k, creating a local
// reference for objects.
func (e *Env) fromVM(k Kind, v vm.Value) Value {
	switch k {
	case KindVoid:
		return Value{}
	case KindObject:
		if v.IsNull() {
			return ObjectValue(0)
		}
		return ObjectValue(e.newLocal(v.Ref))
	}
	return primitiveFromVM(k, v)
}

// methodArgs checks args against m's descriptor and converts them,
// prepending receiver when it is not nil. A mismatch raises
// IllegalArgumentException.
func (e *Env) methodArgs(fn string, m *vm.Method, receiver interface{}, args []Value) ([]vm.Value, bool) {
	params := m.Type.Params
	if len(args) != len(params) {
		e.throwNew("java/lang/IllegalArgumentException", "%s: %s takes %d arguments, got %d", fn, m, len(params), len(args))
		return nil, false
	}
	out := make([]vm.Value, 0, len(args)+1)
	if receiver != nil {
		out = append(out, vm.RefValue(receiver))
	}
	for i, p := range params {
		if want := kindOf(p); args[i].kind != want {
			e.throwNew("java/lang/IllegalArgumentException", "%s: argument %d of %s must be %s, got %s", fn, i+1, m, want, args[i].kind)
			return nil, false
		}
		v, ok := e.toVM(fn, p, args[i])
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// acquisition records a buffer handed out by a Get entry until the matching
// Release entry returns it.
type acquisition struct {
	release string
	ref     interface{}
	buf     interface{}
	commit  func()
	free    func()
}

func (e *Env) acquire(key uintptr, a *acquisition) {
	e.acquired[key] = a
}

// acquisitionFor looks up a buffer being released.
func (e *Env) acquisitionFor(fn string, key uintptr, ref interface{}) (*acquisition, bool) {
	a, ok := e.acquired[key]
	if !ok {
		e.violation(fn, "buffer %#x was not acquired or was already released", key)
		return nil, false
	}
	if a.release != fn {
		e.violation(fn, "buffer %#x must be released with %s", key, a.release)
		return nil, false
	}
	if a.ref != ref {
		e.violation(fn, "buffer %#x was acquired from a different object", key)
		return nil, false
	}
	return a, true
}

func (e *Env) dropAcquisition(key uintptr) {
	if a, ok := e.acquired[key]; ok {
		if a.free != nil {
			a.free()
		}
		delete(e.acquired, key)
	}
}

// releaseAll frees every resource the thread still holds. It runs when the
// thread detaches.
func (e *Env) releaseAll() {
	for key := range e.acquired {
		e.dropAcquisition(key)
	}
	e.frames = nil
	e.locals.reset()
	e.pending = nil
	e.critical = 0
	e.thread.ReleaseMonitors()
	e.detached = true
}

// The methods below call through the function table, mirroring the C++
// member functions of JNIEnv.

// GetVersion returns the JNI version negotiated for the thread.
func (e *Env) GetVersion() Int { return e.Functions.GetVersion(e) }

// FindClass loads a class by internal name, e.g. "java/lang/String".
func (e *Env) FindClass(name string) Class { return e.Functions.FindClass(e, name) }

// GetSuperclass returns the superclass of clazz, or null for Object and
// interfaces.
func (e *Env) GetSuperclass(clazz Class) Class { return e.Functions.GetSuperclass(e, clazz) }

// Throw makes obj the pending exception.
func (e *Env) Throw(obj Throwable) Int { return e.Functions.Throw(e, obj) }

// ThrowNew constructs an instance of clazz with msg and makes it pending.
func (e *Env) ThrowNew(clazz Class, msg string) Int { return e.Functions.ThrowNew(e, clazz, msg) }

// ExceptionOccurred returns a local reference to the pending exception, or null.
func (e *Env) ExceptionOccurred() Throwable { return e.Functions.ExceptionOccurred(e) }

// ExceptionDescribe prints the pending exception and its trace, then clears it.
func (e *Env) ExceptionDescribe() { e.Functions.ExceptionDescribe(e) }

// ExceptionClear discards the pending exception.
func (e *Env) ExceptionClear() { e.Functions.ExceptionClear(e) }

// ExceptionCheck reports whether an exception is pending.
func (e *Env) ExceptionCheck() Boolean { return e.Functions.ExceptionCheck(e) }

// FatalError reports msg and terminates the VM.
func (e *Env) FatalError(msg string) { e.Functions.FatalError(e, msg) }

// PushLocalFrame opens a local frame with room for capacity references.
func (e *Env) PushLocalFrame(capacity Int) Int { return e.Functions.PushLocalFrame(e, capacity) }

// PopLocalFrame frees the top local frame, keeping result alive in the
// frame below.
func (e *Env) PopLocalFrame(result Object) Object { return e.Functions.PopLocalFrame(e, result) }

// NewGlobalRef creates a global reference to obj.
func (e *Env) NewGlobalRef(obj Object) Object { return e.Functions.NewGlobalRef(e, obj) }

// DeleteGlobalRef frees a global reference.
func (e *Env) DeleteGlobalRef(ref Object) { e.Functions.DeleteGlobalRef(e, ref) }

// DeleteLocalRef frees a local reference before its frame is popped.
func (e *Env) DeleteLocalRef(ref Object) { e.Functions.DeleteLocalRef(e, ref) }

// IsSameObject reports whether both references denote the same object.
func (e *Env) IsSameObject(ref1, ref2 Object) Boolean { return e.Functions.IsSameObject(e, ref1, ref2) }

// AllocObject creates an instance of clazz without running a constructor.
func (e *Env) AllocObject(clazz Class) Object { return e.Functions.AllocObject(e, clazz) }

// NewObject creates an instance of clazz and runs the constructor id.
func (e *Env) NewObject(clazz Class, id MethodID, args ...Value) Object {
	return e.Functions.NewObjectA(e, clazz, id, args)
}

// GetObjectClass returns the class of obj.
func (e *Env) GetObjectClass(obj Object) Class { return e.Functions.GetObjectClass(e, obj) }

// IsInstanceOf reports whether obj can be cast to clazz. Null is an
// instance of every class.
func (e *Env) IsInstanceOf(obj Object, clazz Class) Boolean {
	return e.Functions.IsInstanceOf(e, obj, clazz)
}

// GetMethodID resolves an instance method of clazz or its supertypes.
func (e *Env) GetMethodID(clazz Class, name, sig string) MethodID {
	return e.Functions.GetMethodID(e, clazz, name, sig)
}

// GetStaticMethodID resolves a static method of clazz.
func (e *Env) GetStaticMethodID(clazz Class, name, sig string) MethodID {
	return e.Functions.GetStaticMethodID(e, clazz, name, sig)
}

// GetFieldID resolves an instance field of clazz or its supertypes.
func (e *Env) GetFieldID(clazz Class, name, sig string) FieldID {
	return e.Functions.GetFieldID(e, clazz, name, sig)
}

// GetStaticFieldID resolves a static field of clazz.
func (e *Env) GetStaticFieldID(clazz Class, name, sig string) FieldID {
	return e.Functions.GetStaticFieldID(e, clazz, name, sig)
}

// CallVoidMethod calls a void instance method with virtual dispatch.
func (e *Env) CallVoidMethod(obj Object, id MethodID, args ...Value) {
	e.Functions.CallVoidMethodA(e, obj, id, args)
}

// CallObjectMethod calls an instance method returning a reference.
func (e *Env) CallObjectMethod(obj Object, id MethodID, args ...Value) Object {
	return e.Functions.CallObjectMethodA(e, obj, id, args)
}

// CallIntMethod calls an instance method returning int.
func (e *Env) CallIntMethod(obj Object, id MethodID, args ...Value) Int {
	return e.Functions.CallIntMethodA(e, obj, id, args)
}

// CallStaticVoidMethod calls a static void method.
func (e *Env) CallStaticVoidMethod(clazz Class, id MethodID, args ...Value) {
	e.Functions.CallStaticVoidMethodA(e, clazz, id, args)
}

// CallStaticIntMethod calls a static method returning int.
func (e *Env) CallStaticIntMethod(clazz Class, id MethodID, args ...Value) Int {
	return e.Functions.CallStaticIntMethodA(e, clazz, id, args)
}

// CallStaticObjectMethod calls a static method returning a reference.
func (e *Env) CallStaticObjectMethod(clazz Class, id MethodID, args ...Value) Object {
	return e.Functions.CallStaticObjectMethodA(e, clazz, id, args)
}

// GetIntField reads an int instance field.
func (e *Env) GetIntField(obj Object, id FieldID) Int { return e.Functions.GetIntField(e, obj, id) }

// SetIntField writes an int instance field.
func (e *Env) SetIntField(obj Object, id FieldID, v Int) { e.Functions.SetIntField(e, obj, id, v) }

// GetObjectField reads a reference instance field.
func (e *Env) GetObjectField(obj Object, id FieldID) Object {
	return e.Functions.GetObjectField(e, obj, id)
}

// NewStringUTF creates a string from modified UTF-8 text.
func (e *Env) NewStringUTF(s string) String { return e.Functions.NewStringUTF(e, s) }

// GetStringUTFChars returns a NUL-terminated modified UTF-8 copy of s.
// Release it with ReleaseStringUTFChars.
func (e *Env) GetStringUTFChars(s String, isCopy *Boolean) []byte {
	return e.Functions.GetStringUTFChars(e, s, isCopy)
}

// ReleaseStringUTFChars releases a buffer returned by GetStringUTFChars.
func (e *Env) ReleaseStringUTFChars(s String, utf []byte) {
	e.Functions.ReleaseStringUTFChars(e, s, utf)
}

// GetArrayLength returns the number of elements of array.
func (e *Env) GetArrayLength(array Array) Size { return e.Functions.GetArrayLength(e, array) }

// RegisterNatives binds native methods of clazz to Go functions ahead of
// symbol lookup.
func (e *Env) RegisterNatives(clazz Class, methods []NativeMethod) Int {
	return e.Functions.RegisterNatives(e, clazz, methods)
}

// UnregisterNatives drops the bindings made by RegisterNatives for clazz.
func (e *Env) UnregisterNatives(clazz Class) Int { return e.Functions.UnregisterNatives(e, clazz) }

// MonitorEnter acquires the monitor of obj for the current thread.
func (e *Env) MonitorEnter(obj Object) Int { return e.Functions.MonitorEnter(e, obj) }

// MonitorExit releases the monitor of obj.
func (e *Env) MonitorExit(obj Object) Int { return e.Functions.MonitorExit(e, obj) }

// GetJavaVM stores the VM the environment belongs to in *vm.
func (e *Env) GetJavaVM(vm **JavaVM) Int { return e.Functions.GetJavaVM(e, vm) }

// NewWeakGlobalRef creates a weak global reference to obj.
func (e *Env) NewWeakGlobalRef(obj Object) Weak { return e.Functions.NewWeakGlobalRef(e, obj) }

// GetObjectRefType reports the kind of reference obj is.
func (e *Env) GetObjectRefType(obj Object) ObjectRefType {
	return e.Functions.GetObjectRefType(e, obj)
}
