package jni

import "fmt"

// registerNatives binds native methods of clazz directly, bypassing
// symbol lookup. Registered bindings take precedence over library symbols.
func registerNatives(env *Env, clazz Class, methods []NativeMethod) Int {
	const fn = "RegisterNatives"
	if !env.enter(fn) {
		return Err
	}
	c, ok := env.decodeClass(clazz, fn)
	if !ok {
		return Err
	}
	for _, nm := range methods {
		m := c.DeclaredMethod(nm.Name, nm.Signature)
		if m == nil || !m.IsNative() {
			env.throwNew("java/lang/NoSuchMethodError", "Method '%s.%s%s' name or signature does not match", c.JavaName(), nm.Name, nm.Signature)
			return Err
		}
		inv, err := env.jvm.bindFunction(m, nm.Fn)
		if err != nil {
			env.throwNew("java/lang/NoSuchMethodError", "%s: %v", m, err)
			return Err
		}
		m.Bind(env.jvm.wrap(inv))
		env.jvm.trace(fmt.Sprintf("[Registering JNI native method %s.%s]", c.JavaName(), nm.Name))
	}
	return OK
}

// unregisterNatives drops every binding of clazz's native methods. They
// are linked again from libraries on their next call.
func unregisterNatives(env *Env, clazz Class) Int {
	const fn = "UnregisterNatives"
	if !env.enter(fn) {
		return Err
	}
	c, ok := env.decodeClass(clazz, fn)
	if !ok {
		return Err
	}
	for _, m := range c.Methods {
		if m.IsNative() {
			m.Unbind()
		}
	}
	return OK
}

func monitorEnter(env *Env, obj Object) Int {
	const fn = "MonitorEnter"
	if !env.enter(fn) {
		return Err
	}
	ref, ok := env.decodeNonNull(obj, fn, "object")
	if !ok {
		return Err
	}
	env.jvm.rt.MonitorOf(ref).Enter(env.thread)
	return OK
}

func monitorExit(env *Env, obj Object) Int {
	const fn = "MonitorExit"
	if !env.enter(fn) {
		return Err
	}
	ref, ok := env.decodeNonNull(obj, fn, "object")
	if !ok {
		return Err
	}
	if err := env.jvm.rt.MonitorOf(ref).Exit(env.thread); err != nil {
		env.throw(err)
		return Err
	}
	return OK
}

func getJavaVM(env *Env, vm **JavaVM) Int {
	const fn = "GetJavaVM"
	if !env.enter(fn) {
		return Err
	}
	if vm == nil {
		env.violation(fn, "nil result pointer")
		return Err
	}
	*vm = env.jvm
	return OK
}
