package jni

import (
	"sync"

	"github.com/daimatz/gojni/pkg/vm"
)

// memberTable hands out stable IDs for resolved methods and fields. An ID
// is the member's index plus one, so zero never names a member.
type memberTable[T any] struct {
	mu    sync.Mutex
	items []*T
	ids   map[*T]uintptr
}

func (t *memberTable[T]) id(x *T) uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[x]; ok {
		return id
	}
	if t.ids == nil {
		t.ids = make(map[*T]uintptr)
	}
	t.items = append(t.items, x)
	id := uintptr(len(t.items))
	t.ids[x] = id
	return id
}

func (t *memberTable[T]) get(id uintptr) *T {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id == 0 || id > uintptr(len(t.items)) {
		return nil
	}
	return t.items[id-1]
}

func (jvm *JavaVM) method(id MethodID) *vm.Method { return jvm.methods.get(uintptr(id)) }

func (jvm *JavaVM) field(id FieldID) *vm.Field { return jvm.fields.get(uintptr(id)) }

// resolveClass decodes clazz and runs its static initializer, which member
// lookups require.
func (e *Env) resolveClass(clazz Class, fn string) (*vm.Class, bool) {
	c, ok := e.decodeClass(clazz, fn)
	if !ok {
		return nil, false
	}
	if err := c.Initialize(e.thread); err != nil {
		e.throw(err)
		return nil, false
	}
	return c, true
}

func getMethodID(env *Env, clazz Class, name, sig string) MethodID {
	return env.methodID("GetMethodID", clazz, name, sig, false)
}

func getStaticMethodID(env *Env, clazz Class, name, sig string) MethodID {
	return env.methodID("GetStaticMethodID", clazz, name, sig, true)
}

// methodID resolves a method of clazz or its supertypes. Constructors and
// initializers are only looked up in clazz itself.
func (e *Env) methodID(fn string, clazz Class, name, sig string, static bool) MethodID {
	if !e.enter(fn) {
		return 0
	}
	c, ok := e.resolveClass(clazz, fn)
	if !ok {
		return 0
	}
	var m *vm.Method
	if name == "<init>" || name == "<clinit>" {
		m = c.DeclaredMethod(name, sig)
	} else {
		m = c.FindMethod(name, sig)
	}
	if m == nil || m.IsStatic() != static {
		e.throwNew("java/lang/NoSuchMethodError", "%s.%s%s", c.JavaName(), name, sig)
		return 0
	}
	return MethodID(e.jvm.methods.id(m))
}

func getFieldID(env *Env, clazz Class, name, sig string) FieldID {
	return env.fieldID("GetFieldID", clazz, name, sig, false)
}

func getStaticFieldID(env *Env, clazz Class, name, sig string) FieldID {
	return env.fieldID("GetStaticFieldID", clazz, name, sig, true)
}

func (e *Env) fieldID(fn string, clazz Class, name, sig string, static bool) FieldID {
	if !e.enter(fn) {
		return 0
	}
	c, ok := e.resolveClass(clazz, fn)
	if !ok {
		return 0
	}
	f := c.FindField(name, sig)
	if f == nil || f.IsStatic() != static {
		e.throwNew("java/lang/NoSuchFieldError", "%s", name)
		return 0
	}
	return FieldID(e.jvm.fields.id(f))
}

type callMode int

const (
	virtualCall callMode = iota
	nonvirtualCall
	staticCall
)

// call invokes methodID and converts its result to kind ret. Static calls
// pass the class in clazz; instance calls pass the receiver in obj, and
// nonvirtual calls both.
func (e *Env) call(fn string, mode callMode, obj Object, clazz Class, methodID MethodID, ret Kind, args []Value) Value {
	if !e.enter(fn) {
		return Value{}
	}
	m := e.jvm.method(methodID)
	if m == nil {
		e.violation(fn, "invalid method ID %#x", uintptr(methodID))
		return Value{}
	}
	if got := kindOf(m.Type.Return); got != ret {
		e.violation(fn, "%s returns %s, not %s", m, got, ret)
		return Value{}
	}
	if m.IsStatic() != (mode == staticCall) {
		e.violation(fn, "static mismatch calling %s", m)
		return Value{}
	}
	if mode != virtualCall {
		c, ok := e.decodeClass(clazz, fn)
		if !ok {
			return Value{}
		}
		if !c.IsSubclassOf(m.Class) {
			e.violation(fn, "%s is not a method of %s", m, c.JavaName())
			return Value{}
		}
	}
	var receiver interface{}
	if mode != staticCall {
		ref, ok := e.decodeNonNull(obj, fn, "receiver")
		if !ok {
			return Value{}
		}
		if !e.jvm.rt.IsInstanceOf(ref, m.Class) {
			e.violation(fn, "receiver of class %s has no method %s", e.jvm.rt.ClassOf(ref).JavaName(), m)
			return Value{}
		}
		receiver = ref
	}
	vargs, ok := e.methodArgs(fn, m, receiver, args)
	if !ok {
		return Value{}
	}
	var (
		v   vm.Value
		err error
	)
	if mode == virtualCall {
		v, err = e.jvm.rt.InvokeVirtual(e.thread, m, vargs)
	} else {
		v, err = e.jvm.rt.Invoke(e.thread, m, vargs)
	}
	if err != nil {
		e.throw(err)
		return Value{}
	}
	return e.fromVM(ret, v)
}

func callMethod[T javaType](fn string) func(*Env, Object, MethodID, ...Value) T {
	return func(env *Env, obj Object, methodID MethodID, args ...Value) T {
		return valueAs[T](env.call(fn, virtualCall, obj, 0, methodID, kindFor[T](), args))
	}
}

func callMethodA[T javaType](fn string) func(*Env, Object, MethodID, []Value) T {
	return func(env *Env, obj Object, methodID MethodID, args []Value) T {
		return valueAs[T](env.call(fn, virtualCall, obj, 0, methodID, kindFor[T](), args))
	}
}

func callVoidMethod(fn string) func(*Env, Object, MethodID, ...Value) {
	return func(env *Env, obj Object, methodID MethodID, args ...Value) {
		env.call(fn, virtualCall, obj, 0, methodID, KindVoid, args)
	}
}

func callVoidMethodA(fn string) func(*Env, Object, MethodID, []Value) {
	return func(env *Env, obj Object, methodID MethodID, args []Value) {
		env.call(fn, virtualCall, obj, 0, methodID, KindVoid, args)
	}
}

func callNonvirtualMethod[T javaType](fn string) func(*Env, Object, Class, MethodID, ...Value) T {
	return func(env *Env, obj Object, clazz Class, methodID MethodID, args ...Value) T {
		return valueAs[T](env.call(fn, nonvirtualCall, obj, clazz, methodID, kindFor[T](), args))
	}
}

func callNonvirtualMethodA[T javaType](fn string) func(*Env, Object, Class, MethodID, []Value) T {
	return func(env *Env, obj Object, clazz Class, methodID MethodID, args []Value) T {
		return valueAs[T](env.call(fn, nonvirtualCall, obj, clazz, methodID, kindFor[T](), args))
	}
}

func callNonvirtualVoidMethod(fn string) func(*Env, Object, Class, MethodID, ...Value) {
	return func(env *Env, obj Object, clazz Class, methodID MethodID, args ...Value) {
		env.call(fn, nonvirtualCall, obj, clazz, methodID, KindVoid, args)
	}
}

func callNonvirtualVoidMethodA(fn string) func(*Env, Object, Class, MethodID, []Value) {
	return func(env *Env, obj Object, clazz Class, methodID MethodID, args []Value) {
		env.call(fn, nonvirtualCall, obj, clazz, methodID, KindVoid, args)
	}
}

func callStaticMethod[T javaType](fn string) func(*Env, Class, MethodID, ...Value) T {
	return func(env *Env, clazz Class, methodID MethodID, args ...Value) T {
		return valueAs[T](env.call(fn, staticCall, 0, clazz, methodID, kindFor[T](), args))
	}
}

func callStaticMethodA[T javaType](fn string) func(*Env, Class, MethodID, []Value) T {
	return func(env *Env, clazz Class, methodID MethodID, args []Value) T {
		return valueAs[T](env.call(fn, staticCall, 0, clazz, methodID, kindFor[T](), args))
	}
}

func callStaticVoidMethod(fn string) func(*Env, Class, MethodID, ...Value) {
	return func(env *Env, clazz Class, methodID MethodID, args ...Value) {
		env.call(fn, staticCall, 0, clazz, methodID, KindVoid, args)
	}
}

func callStaticVoidMethodA(fn string) func(*Env, Class, MethodID, []Value) {
	return func(env *Env, clazz Class, methodID MethodID, args []Value) {
		env.call(fn, staticCall, 0, clazz, methodID, KindVoid, args)
	}
}

// fieldFor resolves fieldID and checks it against the accessor used.
func (e *Env) fieldFor(fn string, fieldID FieldID, k Kind, static bool) (*vm.Field, bool) {
	f := e.jvm.field(fieldID)
	if f == nil {
		e.violation(fn, "invalid field ID %#x", uintptr(fieldID))
		return nil, false
	}
	if f.IsStatic() != static {
		e.violation(fn, "static mismatch accessing %s.%s", f.Class.JavaName(), f.Name)
		return nil, false
	}
	if got := kindOf(f.Descriptor); got != k {
		e.violation(fn, "field %s.%s has type %s, not %s", f.Class.JavaName(), f.Name, got, k)
		return nil, false
	}
	return f, true
}

// instance decodes the object whose field f is accessed.
func (e *Env) instance(fn string, obj Object, f *vm.Field) (*vm.JObject, bool) {
	ref, ok := e.decodeNonNull(obj, fn, "object")
	if !ok {
		return nil, false
	}
	o, isObj := ref.(*vm.JObject)
	if !isObj || !e.jvm.rt.IsInstanceOf(ref, f.Class) {
		e.violation(fn, "object of class %s has no field %s.%s", e.jvm.rt.ClassOf(ref).JavaName(), f.Class.JavaName(), f.Name)
		return nil, false
	}
	return o, true
}

// storable converts value for a store into f, checking that a reference
// is assignable to the field's type.
func (e *Env) storable(fn string, f *vm.Field, value Value) (vm.Value, bool) {
	v, ok := e.toVM(fn, f.Descriptor, value)
	if !ok {
		return vm.Value{}, false
	}
	if v.IsNull() || !vm.IsReferenceDescriptor(f.Descriptor) {
		return v, true
	}
	c, err := e.jvm.rt.LoadClass(vm.ClassNameOf(f.Descriptor))
	if err == nil && !e.jvm.rt.IsInstanceOf(v.Ref, c) {
		e.violation(fn, "%s is not assignable to field %s.%s of type %s",
			e.jvm.rt.ClassOf(v.Ref).JavaName(), f.Class.JavaName(), f.Name, c.JavaName())
		return vm.Value{}, false
	}
	return v, true
}

func getField[T javaType](fn string) func(*Env, Object, FieldID) T {
	return func(env *Env, obj Object, fieldID FieldID) T {
		var zero T
		if !env.enter(fn) {
			return zero
		}
		k := kindFor[T]()
		f, ok := env.fieldFor(fn, fieldID, k, false)
		if !ok {
			return zero
		}
		o, ok := env.instance(fn, obj, f)
		if !ok {
			return zero
		}
		return valueAs[T](env.fromVM(k, o.GetField(f.Name, f.Descriptor)))
	}
}

func setField[T javaType](fn string) func(*Env, Object, FieldID, T) {
	return func(env *Env, obj Object, fieldID FieldID, value T) {
		if !env.enter(fn) {
			return
		}
		f, ok := env.fieldFor(fn, fieldID, kindFor[T](), false)
		if !ok {
			return
		}
		o, ok := env.instance(fn, obj, f)
		if !ok {
			return
		}
		v, ok := env.storable(fn, f, valueOf(value))
		if !ok {
			return
		}
		o.SetField(f.Name, v)
	}
}

func getStaticField[T javaType](fn string) func(*Env, Class, FieldID) T {
	return func(env *Env, clazz Class, fieldID FieldID) T {
		var zero T
		if !env.enter(fn) {
			return zero
		}
		if _, ok := env.decodeClass(clazz, fn); !ok {
			return zero
		}
		k := kindFor[T]()
		f, ok := env.fieldFor(fn, fieldID, k, true)
		if !ok {
			return zero
		}
		return valueAs[T](env.fromVM(k, f.Class.GetStatic(f.Name)))
	}
}

func setStaticField[T javaType](fn string) func(*Env, Class, FieldID, T) {
	return func(env *Env, clazz Class, fieldID FieldID, value T) {
		if !env.enter(fn) {
			return
		}
		if _, ok := env.decodeClass(clazz, fn); !ok {
			return
		}
		f, ok := env.fieldFor(fn, fieldID, kindFor[T](), true)
		if !ok {
			return
		}
		v, ok := env.storable(fn, f, valueOf(value))
		if !ok {
			return
		}
		f.Class.SetStatic(f.Name, v)
	}
}
