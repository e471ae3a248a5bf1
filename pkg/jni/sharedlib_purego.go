//go:build (darwin || linux) && (amd64 || arm64)

package jni

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/ebitengine/purego"

	"github.com/daimatz/gojni/pkg/vm"
)

// SharedLibrary is a native library in a C shared object, opened with
// dlopen. Its Java_ symbols are called with a C JNIEnv whose function
// table calls back into the VM.
type SharedLibrary struct {
	path string

	mu     sync.Mutex
	handle uintptr
}

// OpenSharedLibrary opens the shared object at path.
func OpenSharedLibrary(path string) (*SharedLibrary, error) {
	if err := ensureCTables(); err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &SharedLibrary{path: path, handle: h}, nil
}

func (l *SharedLibrary) Name() string { return l.path }

func (l *SharedLibrary) Lookup(symbol string) (Symbol, bool) {
	l.mu.Lock()
	h := l.handle
	l.mu.Unlock()
	if h == 0 {
		return nil, false
	}
	addr, err := purego.Dlsym(h, symbol)
	if err != nil || addr == 0 {
		return nil, false
	}
	return cSymbol{name: symbol, addr: addr}, true
}

// Close unloads the shared object. Symbols bound earlier must not be
// called afterwards.
func (l *SharedLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == 0 {
		return nil
	}
	err := purego.Dlclose(l.handle)
	l.handle = 0
	return err
}

type cSymbol struct {
	name string
	addr uintptr
}

func (s cSymbol) Bind(m *vm.Method) (Invoker, error) {
	inv, err := bindCFunction(s.addr, m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	return inv, nil
}

func (s cSymbol) callOnLoad(jvm *JavaVM) (Int, error) {
	var onLoad func(vm, reserved uintptr) Int
	if err := registerFunc(&onLoad, s.addr); err != nil {
		return 0, err
	}
	return onLoad(jvm.cPointer(), 0), nil
}

func (s cSymbol) callOnUnload(jvm *JavaVM) error {
	var onUnload func(vm, reserved uintptr)
	if err := registerFunc(&onUnload, s.addr); err != nil {
		return err
	}
	onUnload(jvm.cPointer(), 0)
	return nil
}

// registerFunc is purego.RegisterFunc with its panics turned into errors.
func registerFunc(fptr interface{}, addr uintptr) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	purego.RegisterFunc(fptr, addr)
	return nil
}

var uintptrType = reflect.TypeOf(uintptr(0))

// bindCFunction binds the C function at addr to m. The function is called
// with the C JNIEnv, the receiver or class, and the arguments as their jni.h
// types.
func bindCFunction(addr uintptr, m *vm.Method) (Invoker, error) {
	if addr == 0 {
		return nil, fmt.Errorf("null function pointer for %s", m)
	}
	if err := ensureCTables(); err != nil {
		return nil, err
	}
	in := []reflect.Type{uintptrType, objectType}
	for _, p := range m.Type.Params {
		in = append(in, goTypes[kindOf(p)])
	}
	ret := kindOf(m.Type.Return)
	var out []reflect.Type
	if ret != KindVoid {
		out = append(out, goTypes[ret])
	}
	fptr := reflect.New(reflect.FuncOf(in, out, false))
	if err := registerFunc(fptr.Interface(), addr); err != nil {
		return nil, fmt.Errorf("binding %s: %w", m, err)
	}
	fn := fptr.Elem()
	return func(env *Env, this Object, args []Value) Value {
		cin := make([]reflect.Value, 0, 2+len(args))
		cin = append(cin, reflect.ValueOf(env.cPointer()), reflect.ValueOf(this))
		for _, a := range args {
			cin = append(cin, a.goValue())
		}
		res := fn.Call(cin)
		if len(res) == 0 {
			return Value{}
		}
		return reflectValue(ret, res[0])
	}, nil
}
