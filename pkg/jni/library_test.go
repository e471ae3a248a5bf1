package jni

import (
	"errors"
	"strings"
	"testing"

	"github.com/daimatz/gojni/pkg/classfile"
	"github.com/daimatz/gojni/pkg/vm"
)

// nativeClass builds demo/Native, whose methods are implemented by
// nativeLibrary.
func nativeClass() *classfile.ClassFile {
	const static = classfile.AccPublic | classfile.AccStatic
	b := classfile.NewBuilder("demo/Native", "java/lang/Object")
	b.NativeMethod(static, "add", "(II)I")
	b.NativeMethod(static, "over", "(I)I")
	b.NativeMethod(static, "over", "(J)I")
	b.NativeMethod(static, "boom", "()V")
	b.NativeMethod(static, "greet", "()Ljava/lang/String;")
	b.NativeMethod(static, "missing", "(I)I")
	b.NativeMethod(static, "bad", "(I)I")
	b.NativeMethod(static, "detach", "()I")
	b.NativeMethod(static, "locals", "()I")
	b.NativeMethod(classfile.AccPublic, "scale", "(I)I")
	add := b.MethodRef("demo/Native", "add", "(II)I")
	b.Method(static, "callAdd", "(II)I", 2, 2, asm(vm.OpIload0, vm.OpIload1, vm.OpInvokestatic, add, vm.OpIreturn))
	super := b.MethodRef("java/lang/Object", "<init>", "()V")
	b.Method(classfile.AccPublic, "<init>", "()V", 1, 1, asm(vm.OpAload0, vm.OpInvokespecial, super, vm.OpReturn))
	return b.Build()
}

func nativeLibrary() *GoLibrary {
	return NewGoLibrary("demo", map[string]interface{}{
		"Java_demo_Native_add":     func(env *Env, clazz Class, a, b Int) Int { return a + b },
		"Java_demo_Native_over__I": func(env *Env, clazz Class, x Int) Int { return 1 },
		"Java_demo_Native_over__J": func(env *Env, clazz Class, x Long) Int { return 2 },
		"Java_demo_Native_boom": func(env *Env, clazz Class) {
			env.ThrowNew(env.FindClass("java/lang/RuntimeException"), "native boom")
		},
		"Java_demo_Native_greet": func(env *Env, clazz Class) String { return env.NewStringUTF("hi") },
		"Java_demo_Native_bad":   func(env *Env, clazz Class, x Long) Int { return 0 },
		"Java_demo_Native_detach": func(env *Env, clazz Class) Int {
			return env.JavaVM().DetachCurrentThread()
		},
		"Java_demo_Native_locals": func(env *Env, clazz Class) Int {
			for i := 0; i < 5; i++ {
				env.NewStringUTF("tmp")
			}
			return Int(env.LocalRefs())
		},
		"Java_demo_Native_scale": func(env *Env, this Object, x Int) Int { return x * 3 },
	})
}

// nativeVM creates a VM with demo/Native defined and nativeLibrary loaded.
func nativeVM(t *testing.T, opts ...Option) (*testVM, Class) {
	t.Helper()
	tv := newTestVM(t, append([]Option{WithLibrary(nativeLibrary())}, opts...)...)
	return tv, define(t, tv.env, nativeClass())
}

func TestNativeResolution(t *testing.T) {
	tv, c := nativeVM(t)
	env := tv.env

	tests := []struct {
		name, method, sig string
		args              []Value
		want              Int
	}{
		{"short name", "add", "(II)I", []Value{IntValue(3), IntValue(4)}, 7},
		{"long name int", "over", "(I)I", []Value{IntValue(0)}, 1},
		{"long name long", "over", "(J)I", []Value{LongValue(0)}, 2},
		{"called from bytecode", "callAdd", "(II)I", []Value{IntValue(40), IntValue(2)}, 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := env.GetStaticMethodID(c, tt.method, tt.sig)
			if id == 0 {
				t.Fatalf("GetStaticMethodID failed: %s", pendingMessage(env))
			}
			got := env.CallStaticIntMethod(c, id, tt.args...)
			if msg := pendingMessage(env); msg != "" {
				t.Fatalf("call raised %s", msg)
			}
			if got != tt.want {
				t.Errorf("%s%s = %d, want %d", tt.method, tt.sig, got, tt.want)
			}
		})
	}

	obj := env.NewObject(c, env.GetMethodID(c, "<init>", "()V"))
	if got := env.CallIntMethod(obj, env.GetMethodID(c, "scale", "(I)I"), IntValue(5)); got != 15 {
		t.Errorf("scale(5) = %d, want 15", got)
	}
	if tv.jvm.Violations() != 0 {
		t.Errorf("Violations = %d", tv.jvm.Violations())
	}
}

func TestNativeLinkErrors(t *testing.T) {
	tv, c := nativeVM(t)
	env := tv.env

	tests := []struct {
		method string
		want   string
	}{
		{"missing", "java.lang.UnsatisfiedLinkError: 'int demo.Native.missing(int)'"},
		{"bad", "java.lang.UnsatisfiedLinkError: Java_demo_Native_bad in demo:"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			env.CallStaticIntMethod(c, env.GetStaticMethodID(c, tt.method, "(I)I"), IntValue(1))
			if got := pendingMessage(env); !strings.HasPrefix(got, tt.want) {
				t.Errorf("pending = %q, want prefix %q", got, tt.want)
			}
			env.ExceptionClear()
		})
	}
}

func TestNativeException(t *testing.T) {
	tv, c := nativeVM(t)
	env := tv.env

	env.CallStaticVoidMethod(c, env.GetStaticMethodID(c, "boom", "()V"))
	if got := pendingMessage(env); got != "java.lang.RuntimeException: native boom" {
		t.Errorf("pending = %q", got)
	}
	env.ExceptionClear()
	if tv.jvm.Violations() != 0 {
		t.Errorf("Violations = %d", tv.jvm.Violations())
	}
}

func TestNativeLocalFrame(t *testing.T) {
	tv, c := nativeVM(t)
	env := tv.env

	before := env.LocalRefs()
	inside := env.CallStaticIntMethod(c, env.GetStaticMethodID(c, "locals", "()I"))
	if int(inside) < before+5 {
		t.Errorf("LocalRefs inside native = %d, want at least %d", inside, before+5)
	}
	if got := env.LocalRefs(); got != before {
		t.Errorf("LocalRefs after native = %d, want %d", got, before)
	}

	s := env.CallStaticObjectMethod(c, env.GetStaticMethodID(c, "greet", "()Ljava/lang/String;"))
	if got := string(env.GetStringUTFChars(s, nil)); got != "hi" {
		t.Errorf("greet() = %q", got)
	}
}

func TestDetachInsideNative(t *testing.T) {
	tv, c := nativeVM(t)
	env := tv.env
	if rc := env.CallStaticIntMethod(c, env.GetStaticMethodID(c, "detach", "()I")); rc != Err {
		t.Errorf("DetachCurrentThread with Java frames = %d, want Err", rc)
	}
	var e *Env
	if rc := tv.jvm.GetEnv(&e, Version1_6); rc != OK {
		t.Errorf("thread detached: GetEnv = %d", rc)
	}
}

func TestRegisterNatives(t *testing.T) {
	tv, c := nativeVM(t)
	env := tv.env
	add := env.GetStaticMethodID(c, "add", "(II)I")

	if got := env.CallStaticIntMethod(c, add, IntValue(3), IntValue(4)); got != 7 {
		t.Fatalf("library add = %d", got)
	}
	rc := env.RegisterNatives(c, []NativeMethod{{
		Name:      "add",
		Signature: "(II)I",
		Fn:        func(env *Env, clazz Class, a, b Int) Int { return a * b },
	}})
	if rc != OK {
		t.Fatalf("RegisterNatives = %d: %s", rc, pendingMessage(env))
	}
	if got := env.CallStaticIntMethod(c, add, IntValue(3), IntValue(4)); got != 12 {
		t.Errorf("registered add = %d, want 12", got)
	}

	rc = env.RegisterNatives(c, []NativeMethod{{
		Name:      "over",
		Signature: "(I)I",
		Fn: Invoker(func(env *Env, this Object, args []Value) Value {
			return IntValue(args[0].Int() + 100)
		}),
	}})
	if rc != OK {
		t.Fatalf("RegisterNatives(Invoker) = %d", rc)
	}
	if got := env.CallStaticIntMethod(c, env.GetStaticMethodID(c, "over", "(I)I"), IntValue(1)); got != 101 {
		t.Errorf("registered over = %d, want 101", got)
	}

	if rc := env.UnregisterNatives(c); rc != OK {
		t.Fatalf("UnregisterNatives = %d", rc)
	}
	if got := env.CallStaticIntMethod(c, add, IntValue(3), IntValue(4)); got != 7 {
		t.Errorf("add after UnregisterNatives = %d, want the library's 7", got)
	}
}

func TestRegisterNativesErrors(t *testing.T) {
	tv, c := nativeVM(t)
	env := tv.env

	tests := []struct {
		name string
		nm   NativeMethod
		want string
	}{
		{
			name: "unknown method",
			nm:   NativeMethod{Name: "nope", Signature: "(I)I", Fn: func(*Env, Class, Int) Int { return 0 }},
			want: "java.lang.NoSuchMethodError: Method 'demo.Native.nope(I)I' name or signature does not match",
		},
		{
			name: "not native",
			nm:   NativeMethod{Name: "callAdd", Signature: "(II)I", Fn: func(*Env, Class, Int, Int) Int { return 0 }},
			want: "java.lang.NoSuchMethodError: Method 'demo.Native.callAdd(II)I'",
		},
		{
			name: "wrong Go signature",
			nm:   NativeMethod{Name: "add", Signature: "(II)I", Fn: func(*Env, Class, Int) Int { return 0 }},
			want: "java.lang.NoSuchMethodError",
		},
		{
			name: "nil function",
			nm:   NativeMethod{Name: "add", Signature: "(II)I"},
			want: "java.lang.NoSuchMethodError",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rc := env.RegisterNatives(c, []NativeMethod{tt.nm}); rc != Err {
				t.Errorf("RegisterNatives = %d, want Err", rc)
			}
			if got := pendingMessage(env); !strings.HasPrefix(got, tt.want) {
				t.Errorf("pending = %q, want %q", got, tt.want)
			}
			env.ExceptionClear()
		})
	}
}

func TestLibraryHooks(t *testing.T) {
	var loaded, unloaded int
	lib := NewGoLibrary("hooks", map[string]interface{}{
		"JNI_OnLoad":   func(*JavaVM) Int { loaded++; return Version1_6 },
		"JNI_OnUnload": func(*JavaVM) { unloaded++ },
	})
	tv := newTestVM(t, WithLibrary(lib), WithVerbose(true))

	if loaded != 1 {
		t.Errorf("JNI_OnLoad ran %d times", loaded)
	}
	if err := tv.jvm.LoadLibrary(lib); err != nil || loaded != 1 {
		t.Errorf("reloading: err %v, JNI_OnLoad ran %d times", err, loaded)
	}
	if libs := tv.jvm.Libraries(); len(libs) != 1 || libs[0].Name() != "hooks" {
		t.Errorf("Libraries = %v", libs)
	}
	if !strings.Contains(tv.log.String(), "loaded native library") {
		t.Errorf("library load not traced:\n%s", tv.log.String())
	}

	tv.jvm.DestroyJavaVM()
	if unloaded != 1 {
		t.Errorf("JNI_OnUnload ran %d times", unloaded)
	}
}

func TestLibraryOnLoadErrors(t *testing.T) {
	tv := newTestVM(t)
	tests := []struct {
		name   string
		onLoad interface{}
		is     error
	}{
		{"unsupported version", func(*JavaVM) Int { return 0x00010003 }, ErrUnsupportedVersion},
		{"wrong signature", func() {}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := NewGoLibrary(tt.name, map[string]interface{}{"JNI_OnLoad": tt.onLoad})
			err := tv.jvm.LoadLibrary(lib)
			if err == nil {
				t.Fatal("LoadLibrary succeeded")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("err = %v, want %v", err, tt.is)
			}
			if len(tv.jvm.Libraries()) != 0 {
				t.Error("failed library was kept")
			}
		})
	}
}

func TestVerboseLinking(t *testing.T) {
	tv, c := nativeVM(t, WithVerbose(true))
	env := tv.env
	env.CallStaticIntMethod(c, env.GetStaticMethodID(c, "add", "(II)I"), IntValue(1), IntValue(1))
	if !strings.Contains(tv.log.String(), "[Dynamic-linking native method demo.Native.add ... JNI]") {
		t.Errorf("linking not traced:\n%s", tv.log.String())
	}
}

func TestVerboseLinkingUnresolved(t *testing.T) {
	tv, c := nativeVM(t, WithVerbose(true))
	env := tv.env
	env.CallStaticIntMethod(c, env.GetStaticMethodID(c, "missing", "(I)I"), IntValue(1))
	if got := pendingMessage(env); !strings.HasPrefix(got, "java.lang.UnsatisfiedLinkError") {
		t.Errorf("pending = %q, want UnsatisfiedLinkError", got)
	}
	env.ExceptionClear()
	if !strings.Contains(tv.log.String(), "[Dynamic-linking native method demo.Native.missing ... JNI]") {
		t.Errorf("failed lookup not traced:\n%s", tv.log.String())
	}
}

func TestGoLibrarySymbols(t *testing.T) {
	lib := nativeLibrary()
	syms := lib.Symbols()
	if len(syms) != 9 || syms[0] != "Java_demo_Native_add" {
		t.Errorf("Symbols = %v", syms)
	}
	if _, ok := lib.Lookup("Java_demo_Native_nothing"); ok {
		t.Error("Lookup found an unexported symbol")
	}
	lib.Export("Java_demo_Native_nothing", func(*Env, Class) {})
	if _, ok := lib.Lookup("Java_demo_Native_nothing"); !ok {
		t.Error("Export did not add the symbol")
	}
}
