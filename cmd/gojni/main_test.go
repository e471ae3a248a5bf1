package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/daimatz/gojni/pkg/classfile"
	"github.com/daimatz/gojni/pkg/vm"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"gojni": func() { os.Exit(execute(context.Background(), os.Args[1:])) },
	})
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			// No JDK is needed: the scripts only use built-in classes.
			env.Setenv("JAVA_HOME", "")
			env.Setenv("JAVA_BASE_JMOD", "")
			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"mkclass": mkclass,
		},
	})
}

// mkclass writes the named test classes into a class path directory:
//
//	mkclass dir Hello|Args|Native|Calc...
func mkclass(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("unsupported: ! mkclass")
	}
	if len(args) < 2 {
		ts.Fatalf("usage: mkclass dir class...")
	}
	dir := ts.MkAbs(args[0])
	for _, name := range args[1:] {
		build, ok := testClasses[name]
		if !ok {
			ts.Fatalf("unknown test class %s", name)
		}
		cf := build()
		internal, err := cf.ClassName()
		ts.Check(err)
		data, err := cf.Marshal()
		ts.Check(err)
		path := filepath.Join(dir, filepath.FromSlash(internal)+".class")
		ts.Check(os.MkdirAll(filepath.Dir(path), 0o755))
		ts.Check(os.WriteFile(path, data, 0o644))
	}
}

const publicStatic = classfile.AccPublic | classfile.AccStatic

func u16(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }

func code(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var testClasses = map[string]func() *classfile.ClassFile{
	// Hello prints a greeting.
	"Hello": func() *classfile.ClassFile {
		b := classfile.NewBuilder("Hello", "java/lang/Object")
		out := b.FieldRef("java/lang/System", "out", "Ljava/io/PrintStream;")
		printlnRef := b.MethodRef("java/io/PrintStream", "println", "(Ljava/lang/String;)V")
		msg := b.String("hello from gojni")
		b.Method(publicStatic, "main", "([Ljava/lang/String;)V", 2, 1, code(
			[]byte{vm.OpGetstatic}, u16(out),
			[]byte{vm.OpLdc, byte(msg)},
			[]byte{vm.OpInvokevirtual}, u16(printlnRef),
			[]byte{vm.OpReturn},
		))
		return b.Build()
	},
	// demo/Native calls an unbound native method.
	"Native": func() *classfile.ClassFile {
		b := classfile.NewBuilder("demo/Native", "java/lang/Object")
		b.NativeMethod(publicStatic, "add", "(II)I")
		out := b.FieldRef("java/lang/System", "out", "Ljava/io/PrintStream;")
		printlnRef := b.MethodRef("java/io/PrintStream", "println", "(I)V")
		add := b.MethodRef("demo/Native", "add", "(II)I")
		b.Method(publicStatic, "main", "([Ljava/lang/String;)V", 3, 1, code(
			[]byte{vm.OpGetstatic}, u16(out),
			[]byte{vm.OpIconst2, vm.OpIconst3},
			[]byte{vm.OpInvokestatic}, u16(add),
			[]byte{vm.OpInvokevirtual}, u16(printlnRef),
			[]byte{vm.OpReturn},
		))
		return b.Build()
	},
	// demo/Calc declares overloaded natives for header generation.
	"Calc": func() *classfile.ClassFile {
		b := classfile.NewBuilder("demo/Calc", "java/lang/Object")
		b.NativeMethod(publicStatic, "add", "(II)I")
		b.NativeMethod(publicStatic, "sum", "([I)J")
		b.NativeMethod(publicStatic, "sum", "([J)J")
		b.NativeMethod(classfile.AccPublic, "label", "(Ljava/lang/String;)Ljava/lang/String;")
		return b.Build()
	},
}
