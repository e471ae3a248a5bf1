package jni

import (
	"bytes"
	"io"
	"runtime"
	"strings"
	"testing"
	"unsafe"

	"github.com/charmbracelet/log"

	"github.com/daimatz/gojni/pkg/classfile"
	"github.com/daimatz/gojni/pkg/vm"
)

// asm assembles bytecode. Integer operands become one byte and uint16
// operands (constant pool indices, branch offsets) become two.
func asm(parts ...interface{}) []byte {
	var out []byte
	for _, p := range parts {
		switch v := p.(type) {
		case int:
			out = append(out, byte(v))
		case byte:
			out = append(out, v)
		case uint16:
			out = append(out, byte(v>>8), byte(v))
		default:
			panic("asm: unsupported operand")
		}
	}
	return out
}

// testVM is a VM created for one test together with the output it wrote.
type testVM struct {
	jvm    *JavaVM
	env    *Env
	stderr *bytes.Buffer
	log    *bytes.Buffer
}

// fatalPanic is raised by the fatal handler tests install.
type fatalPanic string

// testThread is the identity newTestVM reports for every goroutine, so
// t.Run subtests may use the main Env from their own goroutines.
func testThread() int64 { return 1 }

// newTestVM creates a VM whose threads all share one identity. Tests that
// need real thread identities pass WithThreadIdentity(currentThreadID).
// The goroutine stays locked to its OS thread until the test ends.
func newTestVM(t *testing.T, opts ...Option) *testVM {
	t.Helper()
	runtime.LockOSThread()
	t.Cleanup(runtime.UnlockOSThread)

	tv := &testVM{stderr: new(bytes.Buffer), log: new(bytes.Buffer)}
	logger := log.NewWithOptions(tv.log, log.Options{Prefix: "jni", Level: log.DebugLevel})
	base := []Option{
		WithThreadIdentity(testThread),
		WithStdout(io.Discard),
		WithStderr(tv.stderr),
		WithLogger(logger),
		WithFatalHandler(func(msg string) { panic(fatalPanic(msg)) }),
	}
	jvm, env, err := CreateJavaVM(append(base, opts...)...)
	if err != nil {
		t.Fatalf("CreateJavaVM: %v", err)
	}
	t.Cleanup(func() { jvm.DestroyJavaVM() })
	tv.jvm, tv.env = jvm, env
	return tv
}

// expectFatal runs f and returns the message of the fatal error it raises.
func expectFatal(t *testing.T, f func()) (msg string) {
	t.Helper()
	defer func() {
		r := recover()
		fp, ok := r.(fatalPanic)
		if !ok {
			if r != nil {
				panic(r)
			}
			t.Fatal("expected a fatal error")
		}
		msg = string(fp)
	}()
	f()
	return ""
}

// define loads cf into the VM through DefineClass.
func define(t *testing.T, env *Env, cf *classfile.ClassFile) Class {
	t.Helper()
	data, err := cf.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	name, _ := cf.ClassName()
	c := env.Functions.DefineClass(env, name, 0, data)
	if c == 0 {
		t.Fatalf("DefineClass(%s) failed: %s", name, pendingMessage(env))
	}
	return c
}

// pendingMessage describes the pending exception, or returns "".
func pendingMessage(env *Env) string {
	if env.pending == nil {
		return ""
	}
	return vm.DescribeThrowable(env.pending)
}

// counterClass builds demo/Counter: an int field, a long static, two
// constructors, an accessor and a static helper.
func counterClass() *classfile.ClassFile {
	b := classfile.NewBuilder("demo/Counter", "java/lang/Object")
	b.Field(classfile.AccPrivate, "count", "I")
	b.Field(classfile.AccPrivate, "label", "Ljava/lang/String;")
	b.Field(classfile.AccPublic|classfile.AccStatic, "total", "J")
	super := b.MethodRef("java/lang/Object", "<init>", "()V")
	count := b.FieldRef("demo/Counter", "count", "I")
	b.Method(classfile.AccPublic, "<init>", "()V", 1, 1, asm(vm.OpAload0, vm.OpInvokespecial, super, vm.OpReturn))
	b.Method(classfile.AccPublic, "<init>", "(I)V", 2, 2, asm(
		vm.OpAload0, vm.OpInvokespecial, super,
		vm.OpAload0, vm.OpIload1, vm.OpPutfield, count,
		vm.OpReturn,
	))
	b.Method(classfile.AccPublic, "get", "()I", 1, 1, asm(vm.OpAload0, vm.OpGetfield, count, vm.OpIreturn))
	b.Method(classfile.AccPublic|classfile.AccStatic, "twice", "(I)I", 2, 1, asm(vm.OpIload0, vm.OpIconst2, vm.OpImul, vm.OpIreturn))
	return b.Build()
}

func TestPrimitiveSizes(t *testing.T) {
	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"Boolean", unsafe.Sizeof(Boolean(0)), 1},
		{"Byte", unsafe.Sizeof(Byte(0)), 1},
		{"Char", unsafe.Sizeof(Char(0)), 2},
		{"Short", unsafe.Sizeof(Short(0)), 2},
		{"Int", unsafe.Sizeof(Int(0)), 4},
		{"Long", unsafe.Sizeof(Long(0)), 8},
		{"Float", unsafe.Sizeof(Float(0)), 4},
		{"Double", unsafe.Sizeof(Double(0)), 8},
		{"Object", unsafe.Sizeof(Object(0)), unsafe.Sizeof(uintptr(0))},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("sizeof(%s) = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestVersionString(t *testing.T) {
	tests := []struct {
		v    Int
		want string
	}{
		{Version1_1, "1.1"},
		{Version1_2, "1.2"},
		{Version1_6, "1.6"},
		{Version1_8, "1.8"},
		{Version9, "9"},
		{Version17, "17"},
	}
	for _, tt := range tests {
		if got := VersionString(tt.v); got != tt.want {
			t.Errorf("VersionString(%#x) = %q, want %q", tt.v, got, tt.want)
		}
		if v, ok := ParseVersion(tt.want); !ok || v != tt.v {
			t.Errorf("ParseVersion(%q) = %#x, %v", tt.want, v, ok)
		}
	}
	if SupportedVersion(0x00010003) {
		t.Error("1.3 must not be supported")
	}
	if _, ok := ParseVersion("1.3"); ok {
		t.Error("ParseVersion(1.3) succeeded")
	}
}

func TestValueWordRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		bits uint64
	}{
		{"boolean", BooleanValue(True), 0xffffffffffffff01},
		{"byte", ByteValue(-2), 0x00000000000000fe},
		{"char", CharValue(0xffff), 0x12345678ffff},
		{"short", ShortValue(-1), 0xffff},
		{"int", IntValue(-5), 0xaaaaaaaafffffffb},
		{"float", FloatValue(1.5), 0xdeadbeef3fc00000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wordValue(tt.v.Kind(), tt.bits); got != tt.v {
				t.Errorf("wordValue(%s, %#x) = %v, want %v", tt.v.Kind(), tt.bits, got, tt.v)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	for _, tt := range []struct {
		v    Value
		want string
	}{
		{IntValue(7), "int(7)"},
		{LongValue(-1), "long(-1)"},
		{DoubleValue(2.5), "double(2.5)"},
		{ObjectValue(0x10), "object(0x10)"},
		{Value{}, "void"},
	} {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestObjectRefTypeString(t *testing.T) {
	got := []string{InvalidRefType.String(), LocalRefType.String(), GlobalRefType.String(), WeakGlobalRefType.String()}
	if want := "invalid,local,global,weak global"; strings.Join(got, ",") != want {
		t.Errorf("got %q, want %q", strings.Join(got, ","), want)
	}
}
