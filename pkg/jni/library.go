package jni

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/daimatz/gojni/pkg/vm"
)

// Invoker runs a bound native method. this is the receiver, or the class
// for static methods; args follow the method descriptor. The result must
// have the kind of the descriptor's return type.
type Invoker func(env *Env, this Object, args []Value) Value

// Symbol is a native function exported by a library.
type Symbol interface {
	// Bind checks that the symbol can implement m and returns the function
	// that calls it.
	Bind(m *vm.Method) (Invoker, error)
}

// Library is a set of native symbols, like a shared object opened by
// System.loadLibrary.
type Library interface {
	Name() string
	Lookup(symbol string) (Symbol, bool)
}

// loadHook and unloadHook are implemented by symbols that can run as
// JNI_OnLoad and JNI_OnUnload.
type loadHook interface {
	callOnLoad(jvm *JavaVM) (Int, error)
}

type unloadHook interface {
	callOnUnload(jvm *JavaVM) error
}

// LoadLibrary makes lib's symbols available to native method resolution
// and runs its JNI_OnLoad. Loading a library with the name of one already
// loaded does nothing.
func (jvm *JavaVM) LoadLibrary(lib Library) error {
	jvm.mu.Lock()
	down := jvm.shuttingDown
	jvm.mu.Unlock()
	if down {
		return fmt.Errorf("loading %s: %w", lib.Name(), ErrShutdown)
	}

	jvm.libMu.Lock()
	for _, l := range jvm.libraries {
		if l.Name() == lib.Name() {
			jvm.libMu.Unlock()
			return nil
		}
	}
	jvm.libMu.Unlock()

	version := Version1_1
	if sym, ok := lib.Lookup("JNI_OnLoad"); ok {
		hook, ok := sym.(loadHook)
		if !ok {
			return fmt.Errorf("loading %s: JNI_OnLoad has an unusable signature", lib.Name())
		}
		v, err := hook.callOnLoad(jvm)
		if err != nil {
			return fmt.Errorf("loading %s: JNI_OnLoad: %w", lib.Name(), err)
		}
		if !SupportedVersion(v) {
			return fmt.Errorf("loading %s: JNI_OnLoad returned %#x: %w", lib.Name(), v, ErrUnsupportedVersion)
		}
		version = v
	}

	jvm.libMu.Lock()
	jvm.libraries = append(jvm.libraries, lib)
	jvm.libMu.Unlock()
	jvm.trace("loaded native library", "name", lib.Name(), "version", VersionString(version))
	return nil
}

// Libraries returns the loaded libraries in load order.
func (jvm *JavaVM) Libraries() []Library {
	jvm.libMu.Lock()
	defer jvm.libMu.Unlock()
	out := make([]Library, len(jvm.libraries))
	copy(out, jvm.libraries)
	return out
}

// unloadLibraries runs JNI_OnUnload of every library, newest first.
func (jvm *JavaVM) unloadLibraries() {
	jvm.libMu.Lock()
	libs := jvm.libraries
	jvm.libraries = nil
	jvm.libMu.Unlock()
	for i := len(libs) - 1; i >= 0; i-- {
		lib := libs[i]
		if sym, ok := lib.Lookup("JNI_OnUnload"); ok {
			if hook, ok := sym.(unloadHook); ok {
				if err := hook.callOnUnload(jvm); err != nil {
					jvm.logger.Warn("JNI_OnUnload failed", "library", lib.Name(), "err", err)
				}
			}
		}
		if c, ok := lib.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				jvm.logger.Warn("closing native library", "library", lib.Name(), "err", err)
			}
		}
		jvm.trace("unloaded native library", "name", lib.Name())
	}
}

// ResolveNative links an interpreted native method to a library symbol,
// trying the short name before the long name.
func (jvm *JavaVM) ResolveNative(t *vm.Thread, m *vm.Method) (vm.NativeMethod, error) {
	libs := jvm.Libraries()
	jvm.trace(fmt.Sprintf("[Dynamic-linking native method %s.%s ... JNI]", m.Class.JavaName(), m.Name))
	for _, sym := range []string{ShortName(m.Class.Name, m.Name), LongName(m.Class.Name, m.Name, m.Descriptor)} {
		for _, lib := range libs {
			s, ok := lib.Lookup(sym)
			if !ok {
				continue
			}
			inv, err := s.Bind(m)
			if err != nil {
				return nil, vm.NewJavaExceptionf("java/lang/UnsatisfiedLinkError", "%s in %s: %v", sym, lib.Name(), err)
			}
			return jvm.wrap(inv), nil
		}
	}
	return nil, vm.NewJavaExceptionf("java/lang/UnsatisfiedLinkError", "'%s'", javaSignature(m))
}

// wrap adapts an Invoker to the interpreter. Each call runs in its own
// local frame; an exception left pending by the native code is thrown in
// the calling Java frame.
func (jvm *JavaVM) wrap(inv Invoker) vm.NativeMethod {
	return func(t *vm.Thread, m *vm.Method, args []vm.Value) (vm.Value, error) {
		e, ok := t.Attachment.(*Env)
		if !ok || e.detached {
			return vm.Value{}, vm.NewJavaExceptionf("java/lang/InternalError", "native method %s called on a thread without a JNIEnv", m)
		}
		depth := len(e.frames)
		e.pushFrame(DefaultLocalCapacity, false)
		defer e.popFramesTo(depth)

		var this Object
		params := args
		if m.IsStatic() {
			this = e.newLocal(m.Class)
		} else {
			this = e.newLocal(args[0].Ref)
			params = args[1:]
		}
		in := make([]Value, len(m.Type.Params))
		for i, p := range m.Type.Params {
			in[i] = e.fromVM(kindOf(p), params[i])
		}

		out := inv(e, this, in)

		if exc := e.pending; exc != nil {
			e.pending = nil
			return vm.Value{}, vm.Throwable(exc)
		}
		switch ret := kindOf(m.Type.Return); ret {
		case KindVoid:
			return vm.Value{}, nil
		case KindObject:
			ref, ok := e.decode(out.Object(), m.String())
			if !ok {
				ref = nil
			}
			return vm.RefValue(ref), nil
		default:
			return primitiveToVM(wordValue(ret, out.bits)), nil
		}
	}
}

// bindFunction binds the Fn of a RegisterNatives entry to m.
func (jvm *JavaVM) bindFunction(m *vm.Method, fn interface{}) (Invoker, error) {
	switch f := fn.(type) {
	case nil:
		return nil, errors.New("nil function")
	case Symbol:
		return f.Bind(m)
	case uintptr:
		return bindCFunction(f, m)
	case Invoker:
		return f, nil
	}
	return goSymbol{name: m.Name, fn: reflect.ValueOf(fn)}.Bind(m)
}

// GoLibrary is a native library implemented in Go. An exported function
// takes *Env, the receiver (Object) or class (Class), and one parameter
// per method argument, and returns the method's result:
//
//	func(env *jni.Env, clazz jni.Class, a, b jni.Int) jni.Int
//
// JNI_OnLoad is a func(*JavaVM) Int and JNI_OnUnload a func(*JavaVM).
type GoLibrary struct {
	name string
	mu   sync.RWMutex
	syms map[string]reflect.Value
}

// NewGoLibrary creates a library exporting the given functions by symbol.
func NewGoLibrary(name string, exports map[string]interface{}) *GoLibrary {
	l := &GoLibrary{name: name, syms: make(map[string]reflect.Value)}
	for sym, fn := range exports {
		l.Export(sym, fn)
	}
	return l
}

// Export adds or replaces a symbol.
func (l *GoLibrary) Export(symbol string, fn interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.syms[symbol] = reflect.ValueOf(fn)
}

func (l *GoLibrary) Name() string { return l.name }

func (l *GoLibrary) Lookup(symbol string) (Symbol, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn, ok := l.syms[symbol]
	if !ok {
		return nil, false
	}
	return goSymbol{name: symbol, fn: fn}, true
}

// Symbols returns the exported symbol names in sorted order.
func (l *GoLibrary) Symbols() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.syms))
	for s := range l.syms {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

type goSymbol struct {
	name string
	fn   reflect.Value
}

var (
	envType    = reflect.TypeOf((*Env)(nil))
	objectType = reflect.TypeOf(Object(0))
	goTypes    = map[Kind]reflect.Type{
		KindBoolean: reflect.TypeOf(Boolean(0)),
		KindByte:    reflect.TypeOf(Byte(0)),
		KindChar:    reflect.TypeOf(Char(0)),
		KindShort:   reflect.TypeOf(Short(0)),
		KindInt:     reflect.TypeOf(Int(0)),
		KindLong:    reflect.TypeOf(Long(0)),
		KindFloat:   reflect.TypeOf(Float(0)),
		KindDouble:  reflect.TypeOf(Double(0)),
		KindObject:  objectType,
	}
)

// Bind checks the function's signature against m's descriptor.
func (s goSymbol) Bind(m *vm.Method) (Invoker, error) {
	if s.fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is a %s, not a function", s.name, s.fn.Type())
	}
	typ := s.fn.Type()
	if typ.IsVariadic() || typ.NumIn() != 2+len(m.Type.Params) {
		return nil, fmt.Errorf("%s: %s takes %d arguments, %s needs %d", s.name, typ, typ.NumIn(), m, 2+len(m.Type.Params))
	}
	if typ.In(0) != envType || typ.In(1) != objectType {
		return nil, fmt.Errorf("%s: %s must start with (*jni.Env, jni.Object)", s.name, typ)
	}
	for i, p := range m.Type.Params {
		if want := goTypes[kindOf(p)]; typ.In(2+i) != want {
			return nil, fmt.Errorf("%s: argument %d is %s, %s needs %s", s.name, i+1, typ.In(2+i), m, want)
		}
	}
	ret := kindOf(m.Type.Return)
	switch {
	case ret == KindVoid && typ.NumOut() != 0:
		return nil, fmt.Errorf("%s: %s returns a value, %s is void", s.name, typ, m)
	case ret != KindVoid && (typ.NumOut() != 1 || typ.Out(0) != goTypes[ret]):
		return nil, fmt.Errorf("%s: %s must return %s for %s", s.name, typ, goTypes[ret], m)
	}

	fn := s.fn
	return func(env *Env, this Object, args []Value) Value {
		in := make([]reflect.Value, 0, 2+len(args))
		in = append(in, reflect.ValueOf(env), reflect.ValueOf(this))
		for _, a := range args {
			in = append(in, a.goValue())
		}
		out := fn.Call(in)
		if len(out) == 0 {
			return Value{}
		}
		return reflectValue(ret, out[0])
	}, nil
}

func (s goSymbol) callOnLoad(jvm *JavaVM) (Int, error) {
	fn, ok := s.fn.Interface().(func(*JavaVM) Int)
	if !ok {
		return 0, fmt.Errorf("%s is a %s, not a func(*jni.JavaVM) jni.Int", s.name, s.fn.Type())
	}
	return fn(jvm), nil
}

func (s goSymbol) callOnUnload(jvm *JavaVM) error {
	fn, ok := s.fn.Interface().(func(*JavaVM))
	if !ok {
		return fmt.Errorf("%s is a %s, not a func(*jni.JavaVM)", s.name, s.fn.Type())
	}
	fn(jvm)
	return nil
}

// goValue returns v as its Go type.
func (v Value) goValue() reflect.Value {
	switch v.kind {
	case KindBoolean:
		return reflect.ValueOf(v.Boolean())
	case KindByte:
		return reflect.ValueOf(v.Byte())
	case KindChar:
		return reflect.ValueOf(v.Char())
	case KindShort:
		return reflect.ValueOf(v.Short())
	case KindLong:
		return reflect.ValueOf(v.Long())
	case KindFloat:
		return reflect.ValueOf(v.Float())
	case KindDouble:
		return reflect.ValueOf(v.Double())
	case KindObject:
		return reflect.ValueOf(v.Object())
	}
	return reflect.ValueOf(v.Int())
}

func reflectValue(k Kind, rv reflect.Value) Value {
	switch x := rv.Interface().(type) {
	case Boolean:
		return BooleanValue(x)
	case Byte:
		return ByteValue(x)
	case Char:
		return CharValue(x)
	case Short:
		return ShortValue(x)
	case Int:
		return IntValue(x)
	case Long:
		return LongValue(x)
	case Float:
		return FloatValue(x)
	case Double:
		return DoubleValue(x)
	case Object:
		return ObjectValue(x)
	}
	return Value{kind: k}
}
