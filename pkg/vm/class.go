package vm

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/daimatz/gojni/pkg/classfile"
)

// IntrinsicFunc implements a method in Go. args include the receiver for
// instance methods.
type IntrinsicFunc func(t *Thread, args []Value) (Value, error)

// NativeMethod is a bound implementation of an ACC_NATIVE method.
type NativeMethod func(t *Thread, m *Method, args []Value) (Value, error)

// NativeResolver locates implementations for native methods that were not
// bound explicitly.
type NativeResolver interface {
	ResolveNative(t *Thread, m *Method) (NativeMethod, error)
}

type initState int

const (
	classLinked initState = iota
	classInitializing
	classInitialized
	classErroneous
)

// Class is a linked runtime class.
type Class struct {
	Name       string
	File       *classfile.ClassFile // nil for intrinsic and array classes
	Super      *Class
	Interfaces []*Class
	Flags      uint16
	Methods    []*Method
	Fields     []*Field

	vm     *VM
	alloc  func(c *Class) interface{}
	clinit func(t *Thread, c *Class) error

	mu         sync.Mutex
	cond       *sync.Cond
	state      initState
	initThread *Thread
	statics    map[string]Value
}

// Method is a method of a runtime class.
type Method struct {
	Class      *Class
	Name       string
	Descriptor string
	Flags      uint16
	Code       *classfile.CodeAttribute
	Type       MethodType
	Intrinsic  IntrinsicFunc

	native atomic.Pointer[NativeMethod]
}

// Field is a field of a runtime class.
type Field struct {
	Class      *Class
	Name       string
	Descriptor string
	Flags      uint16
}

func newClass(vm *VM, name string, flags uint16) *Class {
	c := &Class{Name: name, Flags: flags, vm: vm, statics: make(map[string]Value)}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// IsInterface reports whether c is an interface.
func (c *Class) IsInterface() bool { return c.Flags&classfile.AccInterface != 0 }

// IsAbstract reports whether c cannot be instantiated.
func (c *Class) IsAbstract() bool { return c.Flags&(classfile.AccAbstract|classfile.AccInterface) != 0 }

// IsArray reports whether c is an array class.
func (c *Class) IsArray() bool { return strings.HasPrefix(c.Name, "[") }

// JavaName returns the dotted binary name, e.g. "java.lang.String".
func (c *Class) JavaName() string {
	return strings.ReplaceAll(c.Name, "/", ".")
}

func (c *Class) String() string { return c.Name }

// VM returns the virtual machine that defined c.
func (c *Class) VM() *VM { return c.vm }

// DeclaredMethod finds a method declared directly by c.
func (c *Class) DeclaredMethod(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == desc {
			return m
		}
	}
	return nil
}

// FindMethod resolves a method by searching c, its superclasses and then its
// superinterfaces.
func (c *Class) FindMethod(name, desc string) *Method {
	for k := c; k != nil; k = k.Super {
		if m := k.DeclaredMethod(name, desc); m != nil {
			return m
		}
	}
	seen := make(map[*Class]bool)
	for k := c; k != nil; k = k.Super {
		if m := findInterfaceMethod(k.Interfaces, name, desc, seen); m != nil {
			return m
		}
	}
	return nil
}

func findInterfaceMethod(ifaces []*Class, name, desc string, seen map[*Class]bool) *Method {
	for _, i := range ifaces {
		if seen[i] {
			continue
		}
		seen[i] = true
		if m := i.DeclaredMethod(name, desc); m != nil {
			return m
		}
		if m := findInterfaceMethod(i.Interfaces, name, desc, seen); m != nil {
			return m
		}
	}
	return nil
}

// DeclaredField finds a field declared directly by c.
func (c *Class) DeclaredField(name, desc string) *Field {
	for _, f := range c.Fields {
		if f.Name == name && f.Descriptor == desc {
			return f
		}
	}
	return nil
}

// FindField resolves a field by searching c, its superinterfaces and then
// its superclasses.
func (c *Class) FindField(name, desc string) *Field {
	if f := c.DeclaredField(name, desc); f != nil {
		return f
	}
	for _, i := range c.Interfaces {
		if f := i.FindField(name, desc); f != nil {
			return f
		}
	}
	if c.Super != nil {
		return c.Super.FindField(name, desc)
	}
	return nil
}

// IsSubclassOf reports whether c is other or extends/implements it.
func (c *Class) IsSubclassOf(other *Class) bool {
	if c == other {
		return true
	}
	if other.Name == "java/lang/Object" {
		return true
	}
	if c.IsArray() && other.IsArray() {
		return c.arrayAssignable(other)
	}
	for k := c; k != nil; k = k.Super {
		if k == other {
			return true
		}
		if other.IsInterface() && implements(k.Interfaces, other) {
			return true
		}
	}
	return false
}

func implements(ifaces []*Class, target *Class) bool {
	for _, i := range ifaces {
		if i == target || implements(i.Interfaces, target) {
			return true
		}
	}
	return false
}

func (c *Class) arrayAssignable(other *Class) bool {
	ce, oe := c.Name[1:], other.Name[1:]
	if ce == oe {
		return true
	}
	if !IsReferenceDescriptor(ce) || !IsReferenceDescriptor(oe) {
		return false
	}
	cc, err := c.vm.LoadClass(ClassNameOf(ce))
	if err != nil {
		return false
	}
	oc, err := c.vm.LoadClass(ClassNameOf(oe))
	if err != nil {
		return false
	}
	return cc.IsSubclassOf(oc)
}

// GetStatic returns the value of a static field declared by c.
func (c *Class) GetStatic(name string) Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statics[name]
}

// SetStatic stores a static field declared by c.
func (c *Class) SetStatic(name string, v Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statics[name] = v
}

// Initialize runs static initialization once: superclass first, then the
// class's own initializer. Recursive requests from the initializing thread
// return immediately; other threads wait for completion.
func (c *Class) Initialize(t *Thread) error {
	run, err := c.beginInit(t)
	if !run {
		return err
	}

	if c.Super != nil {
		err = c.Super.Initialize(t)
	}
	if err == nil && c.clinit != nil {
		err = c.clinit(t, c)
	}
	if err == nil {
		if m := c.DeclaredMethod("<clinit>", "()V"); m != nil {
			_, err = c.vm.Invoke(t, m, nil)
		}
	}

	c.mu.Lock()
	if err != nil {
		c.state = classErroneous
	} else {
		c.state = classInitialized
	}
	c.initThread = nil
	c.cond.Broadcast()
	c.mu.Unlock()
	return err
}

func (c *Class) beginInit(t *Thread) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		switch c.state {
		case classInitialized:
			return false, nil
		case classErroneous:
			return false, NewJavaExceptionf("java/lang/NoClassDefFoundError", "Could not initialize class %s", c.JavaName())
		case classInitializing:
			if c.initThread == t {
				return false, nil
			}
			c.cond.Wait()
		default:
			c.state = classInitializing
			c.initThread = t
			return true, nil
		}
	}
}

// Initialized reports whether static initialization has completed.
func (c *Class) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == classInitialized
}

// IsStatic reports whether the method is static.
func (m *Method) IsStatic() bool { return m.Flags&classfile.AccStatic != 0 }

// IsNative reports whether the method is implemented in native code.
func (m *Method) IsNative() bool { return m.Flags&classfile.AccNative != 0 }

// IsAbstract reports whether the method has no implementation.
func (m *Method) IsAbstract() bool { return m.Flags&classfile.AccAbstract != 0 }

// IsSynchronized reports whether invocation locks the receiver or class.
func (m *Method) IsSynchronized() bool { return m.Flags&classfile.AccSynchronized != 0 }

// IsConstructor reports whether m is an instance initializer.
func (m *Method) IsConstructor() bool { return m.Name == "<init>" }

// Bind installs a native implementation, replacing any previous binding.
func (m *Method) Bind(fn NativeMethod) {
	if fn == nil {
		m.native.Store(nil)
		return
	}
	m.native.Store(&fn)
}

// Unbind removes the native implementation so it is resolved again on the
// next call.
func (m *Method) Unbind() {
	m.native.Store(nil)
}

// Bound returns the bound native implementation, if any.
func (m *Method) Bound() NativeMethod {
	if p := m.native.Load(); p != nil {
		return *p
	}
	return nil
}

// ArgSlots returns the number of argument values, including the receiver.
func (m *Method) ArgSlots() int {
	n := len(m.Type.Params)
	if !m.IsStatic() {
		n++
	}
	return n
}

func (m *Method) String() string {
	return m.Class.JavaName() + "." + m.Name + m.Descriptor
}

// IsStatic reports whether the field is static.
func (f *Field) IsStatic() bool { return f.Flags&classfile.AccStatic != 0 }

// link builds a runtime class from a parsed class file.
func (vm *VM) link(cf *classfile.ClassFile) (*Class, error) {
	name, err := cf.ClassName()
	if err != nil {
		return nil, fmt.Errorf("linking: %w", err)
	}
	c := newClass(vm, name, cf.AccessFlags)
	c.File = cf

	if sn := cf.SuperClassName(); sn != "" {
		super, err := vm.LoadClass(sn)
		if err != nil {
			return nil, fmt.Errorf("linking %s: superclass: %w", name, err)
		}
		if super.IsInterface() {
			return nil, NewJavaExceptionf("java/lang/IncompatibleClassChangeError", "class %s has interface %s as super class", name, sn)
		}
		c.Super = super
	}
	for _, in := range cf.InterfaceNames() {
		iface, err := vm.LoadClass(in)
		if err != nil {
			return nil, fmt.Errorf("linking %s: interface: %w", name, err)
		}
		c.Interfaces = append(c.Interfaces, iface)
	}

	for i := range cf.Methods {
		mi := &cf.Methods[i]
		mt, err := ParseMethodDescriptor(mi.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("linking %s.%s: %w", name, mi.Name, err)
		}
		c.Methods = append(c.Methods, &Method{
			Class:      c,
			Name:       mi.Name,
			Descriptor: mi.Descriptor,
			Flags:      mi.AccessFlags,
			Code:       mi.Code,
			Type:       mt,
		})
	}

	for i := range cf.Fields {
		fi := &cf.Fields[i]
		if !ValidFieldDescriptor(fi.Descriptor) {
			return nil, fmt.Errorf("linking %s.%s: invalid field descriptor %q", name, fi.Name, fi.Descriptor)
		}
		c.Fields = append(c.Fields, &Field{Class: c, Name: fi.Name, Descriptor: fi.Descriptor, Flags: fi.AccessFlags})
		if fi.IsStatic() {
			c.statics[fi.Name] = vm.constantValue(cf, fi)
		}
	}
	return c, nil
}

// constantValue returns the initial value of a static field, honoring its
// ConstantValue attribute.
func (vm *VM) constantValue(cf *classfile.ClassFile, fi *classfile.FieldInfo) Value {
	for _, a := range fi.Attributes {
		if a.Name != "ConstantValue" || len(a.Data) < 2 {
			continue
		}
		idx := binary.BigEndian.Uint16(a.Data)
		if int(idx) >= len(cf.ConstantPool) {
			break
		}
		switch e := cf.ConstantPool[idx].(type) {
		case *classfile.ConstantInteger:
			return IntValue(e.Value)
		case *classfile.ConstantLong:
			return LongValue(e.Value)
		case *classfile.ConstantFloat:
			return FloatValue(e.Value)
		case *classfile.ConstantDouble:
			return DoubleValue(e.Value)
		case *classfile.ConstantString:
			if s, err := classfile.GetUtf8(cf.ConstantPool, e.StringIndex); err == nil {
				return RefValue(vm.Intern(s))
			}
		}
	}
	return ZeroValue(fi.Descriptor)
}

// instanceFields lists the instance fields of c and its superclasses.
func (c *Class) instanceFields() []*Field {
	var out []*Field
	for k := c; k != nil; k = k.Super {
		for _, f := range k.Fields {
			if !f.IsStatic() {
				out = append(out, f)
			}
		}
	}
	return out
}
