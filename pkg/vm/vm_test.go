package vm

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/daimatz/gojni/pkg/classfile"
	"github.com/daimatz/gojni/pkg/native"
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
		case int16:
			out = append(out, byte(uint16(v)>>8), byte(v))
		default:
			panic("asm: unsupported operand")
		}
	}
	return out
}

func mustMarshal(t *testing.T, cf *classfile.ClassFile) []byte {
	t.Helper()
	data, err := cf.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func pointClass() *classfile.ClassFile {
	b := classfile.NewBuilder("geom/Point", "java/lang/Object")
	b.Field(classfile.AccPrivate, "x", "I")
	b.Field(classfile.AccPrivate, "label", "Ljava/lang/String;")
	return b.Build()
}

// objectInit returns the body of a constructor that only calls super().
func objectInit(b *classfile.Builder, super string) []byte {
	return asm(OpAload0, OpInvokespecial, b.MethodRef(super, "<init>", "()V"), OpReturn)
}

// mainClass builds a class whose main method runs body.
func mainClass(name string, body func(b *classfile.Builder) []byte) *classfile.ClassFile {
	b := classfile.NewBuilder(name, "java/lang/Object")
	b.Method(classfile.AccPublic|classfile.AccStatic, "main", "([Ljava/lang/String;)V", 8, 4, body(b))
	return b.Build()
}

// printInt emits System.out.println(int) around the code that pushes the int.
func printInt(b *classfile.Builder, push ...interface{}) []interface{} {
	parts := []interface{}{OpGetstatic, b.FieldRef("java/lang/System", "out", "Ljava/io/PrintStream;")}
	parts = append(parts, push...)
	return append(parts, OpInvokevirtual, b.MethodRef("java/io/PrintStream", "println", "(I)V"))
}

// runProgram defines classes in order and executes the main method of the
// last one, returning captured stdout.
func runProgram(t *testing.T, classes ...*classfile.ClassFile) (string, error) {
	t.Helper()
	v, _ := newTestVM()
	var buf bytes.Buffer
	v.Stdout = &buf
	for _, cf := range classes {
		if _, err := v.DefineClass(mustMarshal(t, cf)); err != nil {
			t.Fatalf("DefineClass: %v", err)
		}
	}
	name, _ := classes[len(classes)-1].ClassName()
	err := v.Execute(name)
	return buf.String(), err
}

func TestHello(t *testing.T) {
	hello := mainClass("Hello", func(b *classfile.Builder) []byte {
		parts := printInt(b, OpBipush, 42)
		return asm(append(parts, OpReturn)...)
	})
	got, err := runProgram(t, hello)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != "42\n" {
		t.Errorf("Hello output:\ngot  %q\nwant %q", got, "42\n")
	}
}

func TestPrintString(t *testing.T) {
	prog := mainClass("PrintString", func(b *classfile.Builder) []byte {
		sb := "java/lang/StringBuilder"
		appendStr := b.MethodRef(sb, "append", "(Ljava/lang/String;)Ljava/lang/StringBuilder;")
		return asm(
			OpGetstatic, b.FieldRef("java/lang/System", "out", "Ljava/io/PrintStream;"),
			OpNew, b.Class(sb), OpDup, OpInvokespecial, b.MethodRef(sb, "<init>", "()V"),
			OpLdc, byte(b.String("Hello, ")), OpInvokevirtual, appendStr,
			OpLdc, byte(b.String("World!")), OpInvokevirtual, appendStr,
			OpInvokevirtual, b.MethodRef(sb, "toString", "()Ljava/lang/String;"),
			OpInvokevirtual, b.MethodRef("java/io/PrintStream", "println", "(Ljava/lang/String;)V"),
			OpReturn,
		)
	})
	got, err := runProgram(t, prog)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != "Hello, World!\n" {
		t.Errorf("PrintString output:\ngot  %q\nwant %q", got, "Hello, World!\n")
	}
}

func TestFib(t *testing.T) {
	b := classfile.NewBuilder("Fib", "java/lang/Object")
	fib := b.MethodRef("Fib", "fib", "(I)I")
	b.Method(classfile.AccStatic, "fib", "(I)I", 3, 1, asm(
		OpIload0, OpIconst2, OpIfIcmpge, uint16(5), // 0
		OpIload0, OpIreturn, // 5
		OpIload0, OpIconst1, OpIsub, OpInvokestatic, fib, // 7
		OpIload0, OpIconst2, OpIsub, OpInvokestatic, fib, // 13
		OpIadd, OpIreturn, // 19
	))
	b.Method(classfile.AccPublic|classfile.AccStatic, "main", "([Ljava/lang/String;)V", 3, 1,
		asm(append(printInt(b, OpBipush, 11, OpInvokestatic, fib), OpReturn)...))

	got, err := runProgram(t, b.Build())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != "89\n" {
		t.Errorf("Fib output:\ngot  %q\nwant %q", got, "89\n")
	}
}

func TestTryCatch(t *testing.T) {
	tests := []struct {
		name      string
		catchType string
		want      string
		wantErr   string
	}{
		{"exact class", "java/lang/ArithmeticException", "5\n-1\n", ""},
		{"superclass", "java/lang/RuntimeException", "5\n-1\n", ""},
		{"catch all", "", "5\n-1\n", ""},
		{"unrelated class", "java/lang/NullPointerException", "5\n", "java/lang/ArithmeticException: / by zero"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := classfile.NewBuilder("TryCatch", "java/lang/Object")
			var catchIdx uint16
			if tt.catchType != "" {
				catchIdx = b.Class(tt.catchType)
			}
			b.Method(classfile.AccStatic, "div", "(II)I", 2, 3, asm(
				OpIload0, OpIload1, OpIdiv, OpIreturn, // 0..3
				OpAstore2, OpIconstM1, OpIreturn, // handler at 4
			), classfile.ExceptionHandler{StartPC: 0, EndPC: 4, HandlerPC: 4, CatchType: catchIdx})
			div := b.MethodRef("TryCatch", "div", "(II)I")
			main := printInt(b, OpBipush, 10, OpIconst2, OpInvokestatic, div)
			main = append(main, printInt(b, OpIconst1, OpIconst0, OpInvokestatic, div)...)
			b.Method(classfile.AccPublic|classfile.AccStatic, "main", "([Ljava/lang/String;)V", 4, 1, asm(append(main, OpReturn)...))

			got, err := runProgram(t, b.Build())
			if got != tt.want {
				t.Errorf("output:\ngot  %q\nwant %q", got, tt.want)
			}
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Execute failed: %v", err)
				}
				return
			}
			var exc *JavaException
			if !errors.As(err, &exc) {
				t.Fatalf("got %v, want JavaException", err)
			}
			if exc.Object == nil {
				t.Error("uncaught exception was not materialized")
			}
			if !strings.Contains(exc.Error(), tt.wantErr) {
				t.Errorf("error: got %q, want substring %q", exc.Error(), tt.wantErr)
			}
		})
	}
}

func TestInheritance(t *testing.T) {
	animal := classfile.NewBuilder("Animal", "java/lang/Object")
	animal.Method(classfile.AccPublic, "<init>", "()V", 1, 1, objectInit(animal, "java/lang/Object"))
	animal.Method(classfile.AccPublic, "sound", "()I", 1, 1, asm(OpIconst1, OpIreturn))

	dog := classfile.NewBuilder("Dog", "Animal")
	dog.Method(classfile.AccPublic, "<init>", "()V", 1, 1, objectInit(dog, "Animal"))
	dog.Method(classfile.AccPublic, "sound", "()I", 1, 1, asm(OpIconst2, OpIreturn))

	prog := mainClass("Inheritance", func(b *classfile.Builder) []byte {
		sound := b.MethodRef("Animal", "sound", "()I")
		newObj := func(name string) []interface{} {
			return []interface{}{OpNew, b.Class(name), OpDup, OpInvokespecial, b.MethodRef(name, "<init>", "()V"), OpInvokevirtual, sound}
		}
		parts := printInt(b, newObj("Animal")...)
		parts = append(parts, printInt(b, newObj("Dog")...)...)
		return asm(append(parts, OpReturn)...)
	})

	got, err := runProgram(t, animal.Build(), dog.Build(), prog)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != "1\n2\n" {
		t.Errorf("Inheritance output:\ngot  %q\nwant %q", got, "1\n2\n")
	}
}

func TestInterface(t *testing.T) {
	shape := classfile.NewBuilder("Shape", "java/lang/Object").
		Flags(classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract)
	shape.AbstractMethod(classfile.AccPublic, "area", "()I")

	square := classfile.NewBuilder("Square", "java/lang/Object").Implements("Shape")
	square.Field(classfile.AccPrivate, "side", "I")
	side := square.FieldRef("Square", "side", "I")
	square.Method(classfile.AccPublic, "<init>", "(I)V", 2, 2, asm(
		OpAload0, OpInvokespecial, square.MethodRef("java/lang/Object", "<init>", "()V"),
		OpAload0, OpIload1, OpPutfield, side,
		OpReturn,
	))
	square.Method(classfile.AccPublic, "area", "()I", 2, 1, asm(OpAload0, OpGetfield, side, OpDup, OpImul, OpIreturn))

	prog := mainClass("Interface", func(b *classfile.Builder) []byte {
		parts := printInt(b,
			OpNew, b.Class("Square"), OpDup, OpIconst3, OpInvokespecial, b.MethodRef("Square", "<init>", "(I)V"),
			OpInvokeinterface, b.InterfaceMethodRef("Shape", "area", "()I"), 1, 0,
		)
		return asm(append(parts, OpReturn)...)
	})

	got, err := runProgram(t, shape.Build(), square.Build(), prog)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != "9\n" {
		t.Errorf("Interface output:\ngot  %q\nwant %q", got, "9\n")
	}
}

func TestStaticInitializer(t *testing.T) {
	counter := classfile.NewBuilder("Counter", "java/lang/Object")
	counter.Field(classfile.AccStatic, "value", "I")
	counter.Method(classfile.AccStatic, "<clinit>", "()V", 1, 0, asm(
		OpBipush, 7, OpPutstatic, counter.FieldRef("Counter", "value", "I"), OpReturn,
	))
	prog := mainClass("Static", func(b *classfile.Builder) []byte {
		parts := printInt(b, OpGetstatic, b.FieldRef("Counter", "value", "I"))
		return asm(append(parts, OpReturn)...)
	})

	got, err := runProgram(t, counter.Build(), prog)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != "7\n" {
		t.Errorf("output: got %q, want %q", got, "7\n")
	}
}

func TestFailedInitializer(t *testing.T) {
	v, th := newTestVM()
	b := classfile.NewBuilder("Broken", "java/lang/Object")
	b.Method(classfile.AccStatic, "<clinit>", "()V", 2, 0, asm(OpIconst1, OpIconst0, OpIdiv, OpPop, OpReturn))
	c, err := v.DefineClass(mustMarshal(t, b.Build()))
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Initialize(th); err == nil {
		t.Fatal("first Initialize: expected error")
	}
	err = c.Initialize(th)
	var exc *JavaException
	if !errors.As(err, &exc) || exc.ClassName != "java/lang/NoClassDefFoundError" {
		t.Fatalf("second Initialize: got %v, want NoClassDefFoundError", err)
	}
	if exc.Message != "Could not initialize class Broken" {
		t.Errorf("message: got %q", exc.Message)
	}
}

func TestConcurrentInitialization(t *testing.T) {
	v, _ := newTestVM()
	var runs atomic.Int32
	v.Natives = resolverFunc(func(t *Thread, m *Method) (NativeMethod, error) {
		return func(*Thread, *Method, []Value) (Value, error) {
			runs.Add(1)
			return Value{}, nil
		}, nil
	})

	b := classfile.NewBuilder("Once", "java/lang/Object")
	b.NativeMethod(classfile.AccStatic, "tick", "()V")
	b.Method(classfile.AccStatic, "<clinit>", "()V", 0, 0, asm(OpInvokestatic, b.MethodRef("Once", "tick", "()V"), OpReturn))
	c, err := v.DefineClass(mustMarshal(t, b.Build()))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Initialize(v.NewThread("worker", false)); err != nil {
				t.Errorf("Initialize: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := runs.Load(); got != 1 {
		t.Errorf("initializer ran %d times, want 1", got)
	}
	if !c.Initialized() {
		t.Error("class not marked initialized")
	}
}

type resolverFunc func(t *Thread, m *Method) (NativeMethod, error)

func (f resolverFunc) ResolveNative(t *Thread, m *Method) (NativeMethod, error) { return f(t, m) }

func nativeClass(t *testing.T, v *VM) *Class {
	t.Helper()
	b := classfile.NewBuilder("Natives", "java/lang/Object")
	b.NativeMethod(classfile.AccStatic, "sum", "(II)I")
	b.NativeMethod(classfile.AccStatic|classfile.AccSynchronized, "locked", "()I")
	c, err := v.DefineClass(mustMarshal(t, b.Build()))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNativeMethods(t *testing.T) {
	sum := func(_ *Thread, _ *Method, a []Value) (Value, error) { return IntValue(a[0].Int + a[1].Int), nil }
	args := []Value{IntValue(2), IntValue(3)}

	t.Run("unresolved native", func(t *testing.T) {
		v, th := newTestVM()
		m := nativeClass(t, v).DeclaredMethod("sum", "(II)I")
		_, err := v.Invoke(th, m, args)
		var exc *JavaException
		if !errors.As(err, &exc) || exc.ClassName != "java/lang/UnsatisfiedLinkError" {
			t.Fatalf("got %v, want UnsatisfiedLinkError", err)
		}
	})

	t.Run("resolved once and cached", func(t *testing.T) {
		v, th := newTestVM()
		var lookups int
		v.Natives = resolverFunc(func(*Thread, *Method) (NativeMethod, error) {
			lookups++
			return sum, nil
		})
		m := nativeClass(t, v).DeclaredMethod("sum", "(II)I")
		for i := 0; i < 3; i++ {
			got, err := v.Invoke(th, m, args)
			if err != nil || got.Int != 5 {
				t.Fatalf("got %d, %v; want 5", got.Int, err)
			}
		}
		if lookups != 1 {
			t.Errorf("resolver called %d times, want 1", lookups)
		}
	})

	t.Run("explicit binding wins", func(t *testing.T) {
		v, th := newTestVM()
		v.Natives = resolverFunc(func(*Thread, *Method) (NativeMethod, error) { return sum, nil })
		m := nativeClass(t, v).DeclaredMethod("sum", "(II)I")
		m.Bind(func(*Thread, *Method, []Value) (Value, error) { return IntValue(100), nil })
		if got, _ := v.Invoke(th, m, args); got.Int != 100 {
			t.Errorf("bound: got %d, want 100", got.Int)
		}
		m.Unbind()
		if got, _ := v.Invoke(th, m, args); got.Int != 5 {
			t.Errorf("after Unbind: got %d, want 5", got.Int)
		}
	})

	t.Run("synchronized native holds class monitor", func(t *testing.T) {
		v, th := newTestVM()
		c := nativeClass(t, v)
		m := c.DeclaredMethod("locked", "()I")
		m.Bind(func(t *Thread, m *Method, _ []Value) (Value, error) {
			owner, _ := v.MonitorOf(m.Class).Owner()
			return boolValue(owner == t && t.HeldMonitors() == 1), nil
		})
		got, err := v.Invoke(th, m, nil)
		if err != nil || got.Int != 1 {
			t.Errorf("got %d, %v; want monitor held during call", got.Int, err)
		}
		if th.HeldMonitors() != 0 {
			t.Errorf("monitors still held after return: %d", th.HeldMonitors())
		}
	})
}

func TestWideArguments(t *testing.T) {
	v, th := newTestVM()
	b := classfile.NewBuilder("Wide", "java/lang/Object")
	b.Method(classfile.AccStatic, "add", "(JIJ)J", 4, 5, asm(OpLload0, OpIload2, OpI2l, OpLadd, OpLload3, OpLadd, OpLreturn))
	c, err := v.DefineClass(mustMarshal(t, b.Build()))
	if err != nil {
		t.Fatal(err)
	}
	got, err := v.Invoke(th, c.DeclaredMethod("add", "(JIJ)J"), []Value{LongValue(1 << 40), IntValue(2), LongValue(3)})
	if err != nil {
		t.Fatal(err)
	}
	if got.Long != 1<<40+5 {
		t.Errorf("got %d, want %d", got.Long, int64(1<<40+5))
	}
}

func TestStackOverflow(t *testing.T) {
	v, th := newTestVM()
	v.MaxFrameDepth = 64
	b := classfile.NewBuilder("Deep", "java/lang/Object")
	b.Method(classfile.AccStatic, "loop", "()V", 0, 0, asm(OpInvokestatic, b.MethodRef("Deep", "loop", "()V"), OpReturn))
	c, err := v.DefineClass(mustMarshal(t, b.Build()))
	if err != nil {
		t.Fatal(err)
	}
	_, err = v.Invoke(th, c.DeclaredMethod("loop", "()V"), nil)
	var exc *JavaException
	if !errors.As(err, &exc) || exc.ClassName != "java/lang/StackOverflowError" {
		t.Fatalf("got %v, want StackOverflowError", err)
	}
	if th.Depth() != 0 {
		t.Errorf("depth after unwind: got %d, want 0", th.Depth())
	}
}

func TestThrowConstructedException(t *testing.T) {
	prog := mainClass("Thrower", func(b *classfile.Builder) []byte {
		ise := "java/lang/IllegalStateException"
		return asm(
			OpNew, b.Class(ise), OpDup,
			OpLdc, byte(b.String("boom")),
			OpInvokespecial, b.MethodRef(ise, "<init>", "(Ljava/lang/String;)V"),
			OpAthrow,
		)
	})
	_, err := runProgram(t, prog)
	var exc *JavaException
	if !errors.As(err, &exc) || exc.Object == nil {
		t.Fatalf("got %v, want thrown object", err)
	}
	if got := DescribeThrowable(exc.Object); got != "java.lang.IllegalStateException: boom" {
		t.Errorf("describe: got %q", got)
	}

	v, _ := newTestVM()
	var stderr bytes.Buffer
	v.Stderr = &stderr
	v.PrintThrowable(exc.Object)
	if stderr.String() != "java.lang.IllegalStateException: boom\n" {
		t.Errorf("printed: got %q", stderr.String())
	}
}

func TestDefineClass(t *testing.T) {
	v, _ := newTestVM()
	data := mustMarshal(t, pointClass())

	c, err := v.DefineClass(data)
	if err != nil {
		t.Fatalf("DefineClass: %v", err)
	}
	if c.Name != "geom/Point" || c.Super.Name != "java/lang/Object" {
		t.Errorf("got %s extends %s", c.Name, c.Super.Name)
	}
	again, err := v.LoadClass("geom/Point")
	if err != nil || again != c {
		t.Errorf("LoadClass after define: got %v, %v", again, err)
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"duplicate", data, "java/lang/LinkageError"},
		{"bootstrap name", mustMarshal(t, classfile.NewBuilder("java/lang/Object", "").Build()), "java/lang/LinkageError"},
		{"malformed", []byte{0xCA, 0xFE}, "java/lang/ClassFormatError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.DefineClass(tt.data)
			var exc *JavaException
			if !errors.As(err, &exc) || exc.ClassName != tt.want {
				t.Errorf("got %v, want %s", err, tt.want)
			}
		})
	}
}

func TestLoadClassNotFound(t *testing.T) {
	v, _ := newTestVM()
	if _, err := v.LoadClass("does/not/Exist"); !errors.Is(err, ErrClassNotFound) {
		t.Errorf("got %v, want ErrClassNotFound", err)
	}
}

func TestIsSubclassOf(t *testing.T) {
	v, _ := newTestVM()
	load := func(name string) *Class {
		c, err := v.LoadClass(name)
		if err != nil {
			t.Fatalf("LoadClass(%s): %v", name, err)
		}
		return c
	}
	tests := []struct {
		sub, super string
		want       bool
	}{
		{"java/lang/ArithmeticException", "java/lang/Throwable", true},
		{"java/lang/String", "java/lang/Object", true},
		{"java/util/HashMap", "java/util/Map", true},
		{"java/lang/Integer", "java/lang/Number", true},
		{"java/lang/Exception", "java/lang/RuntimeException", false},
		{"[Ljava/lang/String;", "[Ljava/lang/Object;", true},
		{"[I", "[J", false},
		{"[I", "java/lang/Cloneable", true},
	}
	for _, tt := range tests {
		t.Run(tt.sub+" < "+tt.super, func(t *testing.T) {
			if got := load(tt.sub).IsSubclassOf(load(tt.super)); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStringify(t *testing.T) {
	v, th := newTestVM()
	tests := []struct {
		desc string
		val  Value
		want string
	}{
		{"I", IntValue(-3), "-3"},
		{"J", LongValue(1 << 40), "1099511627776"},
		{"D", DoubleValue(1.0), "1.0"},
		{"Z", IntValue(1), "true"},
		{"C", IntValue('x'), "x"},
		{"Ljava/lang/Object;", NullValue(), "null"},
		{"Ljava/lang/Object;", RefValue(NewJString("s")), "s"},
		{"Ljava/lang/Integer;", RefValue(native.IntegerValueOf(42)), "42"},
		{"Ljava/lang/Object;", RefValue(new(native.StringBuilder).Append("ab")), "ab"},
	}
	for _, tt := range tests {
		got, err := v.Stringify(th, tt.desc, tt.val)
		if err != nil || got != tt.want {
			t.Errorf("Stringify(%s, %+v): got %q, %v; want %q", tt.desc, tt.val, got, err, tt.want)
		}
	}
}

func TestIdentityHashStable(t *testing.T) {
	v, _ := newTestVM()
	a, b := NewJString("a"), NewJString("a")
	if v.IdentityHash(a) != v.IdentityHash(a) {
		t.Error("identity hash changed between calls")
	}
	if v.IdentityHash(a) == v.IdentityHash(b) {
		t.Error("distinct objects share an identity hash")
	}
	if v.IdentityHash(a) < 0 {
		t.Error("identity hash is negative")
	}
}
