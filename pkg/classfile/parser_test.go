package classfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// buildGreeter は native メソッドを含むテスト用クラスを組み立てる
func buildGreeter() *ClassFile {
	b := NewBuilder("pkg/Greeter", "java/lang/Object")
	b.Field(AccPrivate, "count", "I")
	b.Field(AccStatic, "name", "Ljava/lang/String;")
	b.Method(AccPublic|AccStatic, "add", "(II)I", 2, 2, []byte{
		0x1a, // iload_0
		0x1b, // iload_1
		0x60, // iadd
		0xac, // ireturn
	})
	b.NativeMethod(AccPublic|AccStatic, "hello", "(Ljava/lang/String;)Ljava/lang/String;")
	b.NativeMethod(AccPublic, "sum", "([I)J")
	b.String("héllo\u0000wörld")
	b.Long(1 << 40)
	b.Double(2.5)
	b.Integer(-7)
	return b.Build()
}

func TestParseClassFile(t *testing.T) {
	data, err := buildGreeter().Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	cf, err := Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to parse Greeter: %v", err)
	}

	if cf.MajorVersion != 61 {
		t.Errorf("major version: got %d, want 61", cf.MajorVersion)
	}

	// this_class が "pkg/Greeter" を指すこと
	className, err := cf.ClassName()
	if err != nil {
		t.Fatalf("resolving this_class: %v", err)
	}
	if className != "pkg/Greeter" {
		t.Errorf("this_class: got %q, want %q", className, "pkg/Greeter")
	}
	if got := cf.SuperClassName(); got != "java/lang/Object" {
		t.Errorf("super_class: got %q, want %q", got, "java/lang/Object")
	}

	// add メソッドの Code 属性が復元されること
	add := cf.FindMethod("add", "(II)I")
	if add == nil {
		t.Fatal("add(II)I method not found")
	}
	if add.Code == nil {
		t.Fatal("add method has no Code attribute")
	}
	if add.Code.MaxStack != 2 || add.Code.MaxLocals != 2 {
		t.Errorf("max stack/locals: got %d/%d, want 2/2", add.Code.MaxStack, add.Code.MaxLocals)
	}
	if !bytes.Equal(add.Code.Code, []byte{0x1a, 0x1b, 0x60, 0xac}) {
		t.Errorf("bytecode: got % x", add.Code.Code)
	}

	natives := cf.NativeMethods()
	if len(natives) != 2 {
		t.Fatalf("native methods: got %d, want 2", len(natives))
	}
	if natives[0].Name != "hello" || natives[1].Name != "sum" {
		t.Errorf("native order: got %s, %s", natives[0].Name, natives[1].Name)
	}
	if natives[0].Code != nil {
		t.Error("native method should have no Code attribute")
	}

	if f := cf.FindField("name", "Ljava/lang/String;"); f == nil || !f.IsStatic() {
		t.Errorf("static field name: got %+v", f)
	}
	if f := cf.FindField("count", "I"); f == nil || f.IsStatic() {
		t.Errorf("instance field count: got %+v", f)
	}
}

func TestParseConstantPoolRoundTrip(t *testing.T) {
	orig := buildGreeter()
	data, err := orig.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	cf, err := Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cf.ConstantPool) != len(orig.ConstantPool) {
		t.Fatalf("pool size: got %d, want %d", len(cf.ConstantPool), len(orig.ConstantPool))
	}

	var foundNUL, foundLong bool
	for _, e := range cf.ConstantPool {
		switch c := e.(type) {
		case *ConstantUtf8:
			// NUL を含む文字列は modified UTF-8 経由で復元されること
			if c.Value == "héllo\u0000wörld" {
				foundNUL = true
			}
		case *ConstantLong:
			if c.Value == 1<<40 {
				foundLong = true
			}
		}
	}
	if !foundNUL {
		t.Error("string with embedded NUL did not survive the round trip")
	}
	if !foundLong {
		t.Error("long constant did not survive the round trip")
	}
}

func TestParseFile(t *testing.T) {
	b := NewBuilder("Add", "java/lang/Object")
	b.Method(AccPublic|AccStatic, "add", "(II)I", 2, 2, []byte{0x1a, 0x1b, 0x60, 0xac})
	data, err := b.Build().Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "Add.class")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cf, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if cf.FindMethod("add", "(II)I") == nil {
		t.Error("add(II)I method not found")
	}
}

func TestParseInvalidMagic(t *testing.T) {
	// 不正なマジックナンバーを Parse に渡してエラーになることを確認
	_, err := Parse(bytes.NewReader([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
	if err == nil {
		t.Error("expected error for invalid magic number, got nil")
	}
}

func TestParseTruncated(t *testing.T) {
	data, err := buildGreeter().Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, n := range []int{3, 8, 20, len(data) / 2, len(data) - 1} {
		if _, err := Parse(bytes.NewReader(data[:n])); !errors.Is(err, ErrTruncated) {
			t.Errorf("truncated at %d: got %v, want ErrTruncated", n, err)
		}
	}
}

func TestBuilderDeduplicatesConstants(t *testing.T) {
	b := NewBuilder("A", "java/lang/Object")
	first := b.MethodRef("B", "f", "()V")
	second := b.MethodRef("B", "f", "()V")
	if first != second {
		t.Errorf("MethodRef: got %d and %d, want identical indices", first, second)
	}
	if b.Class("A") != b.Build().ThisClass {
		t.Error("Class(A) should reuse this_class")
	}
	l := b.Long(5)
	if next := b.Integer(1); next != l+2 {
		t.Errorf("long should occupy two slots: got next index %d, want %d", next, l+2)
	}
}

func TestParseKeepsUnresolvedConstants(t *testing.T) {
	cf := buildGreeter()
	// MethodType の本体はそのまま往復すること
	cf.ConstantPool = append(cf.ConstantPool, &constantOpaque{tag: TagMethodType, body: []byte{0x00, 0x01}})
	data, err := cf.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := ParseBytes(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	last := back.ConstantPool[len(back.ConstantPool)-1]
	if last == nil || last.Tag() != TagMethodType {
		t.Fatalf("last constant: got %#v", last)
	}
	if _, err := GetUtf8(back.ConstantPool, uint16(len(back.ConstantPool)-1)); err == nil {
		t.Error("GetUtf8 on a MethodType entry should fail")
	}
}

func TestParseTrailingBytes(t *testing.T) {
	data, err := buildGreeter().Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := ParseBytes(append(data, 0)); err == nil {
		t.Error("expected error for trailing bytes, got nil")
	}
}
