package jni

import (
	"errors"
	"fmt"
	"strings"

	"github.com/daimatz/gojni/pkg/classfile"
	"github.com/daimatz/gojni/pkg/vm"
)

func getVersion(env *Env) Int {
	if !env.enter("GetVersion") {
		return 0
	}
	return env.version
}

// defineClass defines a class from its binary form. The loader argument is
// accepted for compatibility; every class is defined by the VM's own loader.
func defineClass(env *Env, name string, loader Object, buf []byte) Class {
	const fn = "DefineClass"
	if !env.enter(fn) {
		return 0
	}
	if _, ok := env.decode(loader, fn); !ok {
		return 0
	}
	if name != "" {
		cf, err := classfile.ParseBytes(buf)
		if err != nil {
			env.throwNew("java/lang/ClassFormatError", "%v", err)
			return 0
		}
		if got, err := cf.ClassName(); err != nil || got != name {
			env.throwNew("java/lang/NoClassDefFoundError", "%s (wrong name: %s)", name, got)
			return 0
		}
	}
	c, err := env.jvm.rt.DefineClass(buf)
	if err != nil {
		env.throw(err)
		return 0
	}
	return env.newLocal(c)
}

// findClass loads and initializes a class by its internal name, such as
// "java/lang/String" or "[I".
func findClass(env *Env, name string) Class {
	if !env.enter("FindClass") {
		return 0
	}
	if name == "" || strings.ContainsRune(name, '.') {
		env.throwNew("java/lang/NoClassDefFoundError", "%s", name)
		return 0
	}
	c, err := env.jvm.rt.LoadClass(name)
	if err != nil {
		if errors.Is(err, vm.ErrClassNotFound) {
			env.throwNew("java/lang/NoClassDefFoundError", "%s", name)
		} else {
			env.throw(err)
		}
		return 0
	}
	if err := c.Initialize(env.thread); err != nil {
		env.throw(err)
		return 0
	}
	return env.newLocal(c)
}

func getSuperclass(env *Env, clazz Class) Class {
	const fn = "GetSuperclass"
	if !env.enter(fn) {
		return 0
	}
	c, ok := env.decodeClass(clazz, fn)
	if !ok || c.IsInterface() || c.Super == nil {
		return 0
	}
	return env.newLocal(c.Super)
}

func isAssignableFrom(env *Env, clazz1, clazz2 Class) Boolean {
	const fn = "IsAssignableFrom"
	if !env.enter(fn) {
		return False
	}
	c1, ok := env.decodeClass(clazz1, fn)
	if !ok {
		return False
	}
	c2, ok := env.decodeClass(clazz2, fn)
	if !ok {
		return False
	}
	return boolean(c1.IsSubclassOf(c2))
}

func boolean(b bool) Boolean {
	if b {
		return True
	}
	return False
}

func (e *Env) isThrowableClass(c *vm.Class) bool {
	t, err := e.jvm.rt.LoadClass("java/lang/Throwable")
	return err == nil && c.IsSubclassOf(t)
}

func throw(env *Env, obj Throwable) Int {
	const fn = "Throw"
	if !env.enter(fn) {
		return Err
	}
	ref, ok := env.decodeNonNull(obj, fn, "throwable")
	if !ok {
		return Err
	}
	exc, isObj := ref.(*vm.JObject)
	if !isObj || !env.isThrowableClass(exc.Class) {
		env.violation(fn, "%s is not a java.lang.Throwable", env.jvm.rt.ClassOf(ref).JavaName())
		return Err
	}
	env.pending = exc
	return OK
}

func throwNew(env *Env, clazz Class, msg string) Int {
	const fn = "ThrowNew"
	if !env.enter(fn) {
		return Err
	}
	c, ok := env.decodeClass(clazz, fn)
	if !ok {
		return Err
	}
	return env.throwNewObject(fn, c, vm.RefValue(vm.NewJString(msg)))
}

// throwNewObject constructs an instance of c with the message constructor
// and makes it the pending exception.
func (e *Env) throwNewObject(fn string, c *vm.Class, msg vm.Value) Int {
	if !e.isThrowableClass(c) {
		e.violation(fn, "%s is not a subclass of java.lang.Throwable", c.JavaName())
		return Err
	}
	ctor := c.DeclaredMethod("<init>", "(Ljava/lang/String;)V")
	if ctor == nil {
		e.throwNew("java/lang/NoSuchMethodError", "%s.<init>(Ljava/lang/String;)V", c.JavaName())
		return Err
	}
	obj, err := e.jvm.rt.NewInstance(e.thread, c)
	if err != nil {
		e.throw(err)
		return Err
	}
	if _, err := e.jvm.rt.Invoke(e.thread, ctor, []vm.Value{vm.RefValue(obj), msg}); err != nil {
		e.throw(err)
		return Err
	}
	e.pending = obj.(*vm.JObject)
	return OK
}

func exceptionOccurred(env *Env) Throwable {
	if !env.enter("ExceptionOccurred") || env.pending == nil {
		return 0
	}
	return env.newLocal(env.pending)
}

// exceptionDescribe prints the pending exception and its causes to the
// VM's standard error, then clears it.
func exceptionDescribe(env *Env) {
	if !env.enter("ExceptionDescribe") || env.pending == nil {
		return
	}
	exc := env.pending
	env.pending = nil
	fmt.Fprintf(env.jvm.rt.Stderr, "Exception in thread %q ", env.thread.Name)
	env.jvm.rt.PrintThrowable(exc)
}

func exceptionClear(env *Env) {
	if !env.enter("ExceptionClear") {
		return
	}
	env.pending = nil
}

func exceptionCheck(env *Env) Boolean {
	if !env.enter("ExceptionCheck") {
		return False
	}
	return boolean(env.pending != nil)
}

func fatalError(env *Env, msg string) {
	if env == nil {
		panic("jni: FatalError called with a nil JNIEnv: " + msg)
	}
	env.jvm.fatal(env, msg)
}

func pushLocalFrame(env *Env, capacity Int) Int {
	const fn = "PushLocalFrame"
	if !env.enter(fn) {
		return Err
	}
	if capacity < 0 {
		env.violation(fn, "negative capacity %d", capacity)
		return Err
	}
	if env.locals.live+int(capacity) > MaxLocalRefs {
		env.throwNew("java/lang/OutOfMemoryError", "could not reserve %d local references", capacity)
		return Err
	}
	env.pushFrame(int(capacity), true)
	return OK
}

// popLocalFrame frees the current frame and returns result as a reference
// in the enclosing one.
func popLocalFrame(env *Env, result Object) Object {
	const fn = "PopLocalFrame"
	if !env.enter(fn) {
		return 0
	}
	ref, ok := env.decode(result, fn)
	if !ok {
		ref = nil
	}
	if n := len(env.frames); n == 0 || !env.frames[n-1].explicit {
		env.violation(fn, "no frame pushed by PushLocalFrame")
		return 0
	}
	env.popFrame()
	return env.newLocal(ref)
}

func ensureLocalCapacity(env *Env, capacity Int) Int {
	const fn = "EnsureLocalCapacity"
	if !env.enter(fn) {
		return Err
	}
	if capacity < 0 {
		env.violation(fn, "negative capacity %d", capacity)
		return Err
	}
	if env.locals.live+int(capacity) > MaxLocalRefs {
		env.throwNew("java/lang/OutOfMemoryError", "could not reserve %d local references", capacity)
		return Err
	}
	if n := len(env.frames); n > 0 {
		f := &env.frames[n-1]
		if want := len(f.slots) + int(capacity); want > f.capacity {
			f.capacity = want
		}
	}
	return OK
}

func newGlobalRef(env *Env, obj Object) Object {
	const fn = "NewGlobalRef"
	if !env.enter(fn) {
		return 0
	}
	ref, ok := env.decode(obj, fn)
	if !ok {
		return 0
	}
	return env.jvm.newGlobal(ref, false)
}

func deleteGlobalRef(env *Env, globalRef Object) {
	const fn = "DeleteGlobalRef"
	if !env.enter(fn) || globalRef == 0 {
		return
	}
	if globalRef&kindMask != kindGlobal || !env.jvm.deleteGlobal(globalRef) {
		env.violation(fn, "invalid global reference %#x", uintptr(globalRef))
	}
}

func deleteLocalRef(env *Env, localRef Object) {
	const fn = "DeleteLocalRef"
	if !env.enter(fn) || localRef == 0 {
		return
	}
	if localRef&kindMask != kindLocal || !env.deleteLocal(localRef) {
		env.violation(fn, "invalid local reference %#x", uintptr(localRef))
	}
}

func isSameObject(env *Env, ref1, ref2 Object) Boolean {
	const fn = "IsSameObject"
	if !env.enter(fn) {
		return False
	}
	a, ok := env.decode(ref1, fn)
	if !ok {
		return False
	}
	b, ok := env.decode(ref2, fn)
	if !ok {
		return False
	}
	return boolean(a == b)
}

func newLocalRef(env *Env, ref Object) Object {
	const fn = "NewLocalRef"
	if !env.enter(fn) {
		return 0
	}
	r, ok := env.decode(ref, fn)
	if !ok {
		return 0
	}
	return env.newLocal(r)
}

func newWeakGlobalRef(env *Env, obj Object) Weak {
	const fn = "NewWeakGlobalRef"
	if !env.enter(fn) {
		return 0
	}
	ref, ok := env.decode(obj, fn)
	if !ok {
		return 0
	}
	return env.jvm.newGlobal(ref, true)
}

func deleteWeakGlobalRef(env *Env, ref Weak) {
	const fn = "DeleteWeakGlobalRef"
	if !env.enter(fn) || ref == 0 {
		return
	}
	if ref&kindMask != kindWeak || !env.jvm.deleteGlobal(ref) {
		env.violation(fn, "invalid weak global reference %#x", uintptr(ref))
	}
}

func getObjectRefType(env *Env, obj Object) ObjectRefType {
	if !env.enter("GetObjectRefType") || obj == 0 {
		return InvalidRefType
	}
	_, typ := env.lookup(obj)
	return typ
}

func allocObject(env *Env, clazz Class) Object {
	const fn = "AllocObject"
	if !env.enter(fn) {
		return 0
	}
	c, ok := env.decodeClass(clazz, fn)
	if !ok {
		return 0
	}
	obj, err := env.jvm.rt.NewInstance(env.thread, c)
	if err != nil {
		env.throw(err)
		return 0
	}
	return env.newLocal(obj)
}

func newObject(env *Env, clazz Class, methodID MethodID, args ...Value) Object {
	return env.construct("NewObject", clazz, methodID, args)
}

func newObjectA(env *Env, clazz Class, methodID MethodID, args []Value) Object {
	return env.construct("NewObjectA", clazz, methodID, args)
}

// construct allocates an instance of clazz and runs the constructor
// methodID on it.
func (e *Env) construct(fn string, clazz Class, methodID MethodID, args []Value) Object {
	if !e.enter(fn) {
		return 0
	}
	c, ok := e.decodeClass(clazz, fn)
	if !ok {
		return 0
	}
	m := e.jvm.method(methodID)
	if m == nil {
		e.violation(fn, "invalid method ID %#x", uintptr(methodID))
		return 0
	}
	if !m.IsConstructor() || m.Class != c {
		e.violation(fn, "%s is not a constructor of %s", m, c.JavaName())
		return 0
	}
	obj, err := e.jvm.rt.NewInstance(e.thread, c)
	if err != nil {
		e.throw(err)
		return 0
	}
	vargs, ok := e.methodArgs(fn, m, obj, args)
	if !ok {
		return 0
	}
	if _, err := e.jvm.rt.Invoke(e.thread, m, vargs); err != nil {
		e.throw(err)
		return 0
	}
	return e.newLocal(obj)
}

func getObjectClass(env *Env, obj Object) Class {
	const fn = "GetObjectClass"
	if !env.enter(fn) {
		return 0
	}
	ref, ok := env.decodeNonNull(obj, fn, "object")
	if !ok {
		return 0
	}
	return env.newLocal(env.jvm.rt.ClassOf(ref))
}

// isInstanceOf reports whether obj can be cast to clazz. Null can be cast
// to every class.
func isInstanceOf(env *Env, obj Object, clazz Class) Boolean {
	const fn = "IsInstanceOf"
	if !env.enter(fn) {
		return False
	}
	c, ok := env.decodeClass(clazz, fn)
	if !ok {
		return False
	}
	ref, ok := env.decode(obj, fn)
	if !ok {
		return False
	}
	if ref == nil {
		return True
	}
	return boolean(env.jvm.rt.IsInstanceOf(ref, c))
}
