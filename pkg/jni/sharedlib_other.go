//go:build !((darwin || linux) && (amd64 || arm64))

package jni

import (
	"fmt"

	"github.com/daimatz/gojni/pkg/vm"
)

// SharedLibrary is a native library in a C shared object. This platform
// cannot load one.
type SharedLibrary struct {
	path string
}

func OpenSharedLibrary(path string) (*SharedLibrary, error) {
	return nil, fmt.Errorf("opening %s: %w", path, ErrNoCInterface)
}

func (l *SharedLibrary) Name() string { return l.path }

func (l *SharedLibrary) Lookup(string) (Symbol, bool) { return nil, false }

func (l *SharedLibrary) Close() error { return nil }

func bindCFunction(addr uintptr, m *vm.Method) (Invoker, error) {
	return nil, fmt.Errorf("binding %s: %w", m, ErrNoCInterface)
}

func (e *Env) freeCell() {}

func (jvm *JavaVM) freeCell() {}
