package jni

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/daimatz/gojni/pkg/classfile"
	"github.com/daimatz/gojni/pkg/vm"
)

// cTypes maps descriptor characters to the C types of jni.h.
var cTypes = map[byte]string{
	'Z': "jboolean",
	'B': "jbyte",
	'C': "jchar",
	'S': "jshort",
	'I': "jint",
	'J': "jlong",
	'F': "jfloat",
	'D': "jdouble",
	'V': "void",
}

// cType returns the C type of a field descriptor as javac -h writes it.
func cType(desc string) string {
	if t, ok := cTypes[desc[0]]; ok && len(desc) == 1 {
		return t
	}
	if desc[0] == '[' {
		if len(desc) == 2 && desc[1] != 'V' {
			if t, ok := cTypes[desc[1]]; ok {
				return t + "Array"
			}
		}
		return "jobjectArray"
	}
	switch desc {
	case "Ljava/lang/String;":
		return "jstring"
	case "Ljava/lang/Class;":
		return "jclass"
	case "Ljava/lang/Throwable;":
		return "jthrowable"
	}
	return "jobject"
}

// javaTypeName renders a field descriptor as Java source, e.g. "int[]".
func javaTypeName(desc string) string {
	switch desc[0] {
	case '[':
		return javaTypeName(desc[1:]) + "[]"
	case 'L':
		return strings.ReplaceAll(vm.ClassNameOf(desc), "/", ".")
	}
	if t, ok := cTypes[desc[0]]; ok {
		return strings.TrimPrefix(t, "j")
	}
	return desc
}

// javaSignature renders m like "void Foo.bar(int, java.lang.String)".
func javaSignature(m *vm.Method) string {
	params := make([]string, len(m.Type.Params))
	for i, p := range m.Type.Params {
		params[i] = javaTypeName(p)
	}
	return fmt.Sprintf("%s %s.%s(%s)", javaTypeName(m.Type.Return), m.Class.JavaName(), m.Name, strings.Join(params, ", "))
}

// GenerateHeader writes the C header javac -h would produce for the
// native methods and compile-time constants of cf. Overloaded native
// methods are declared under their long names.
func GenerateHeader(cf *classfile.ClassFile) ([]byte, error) {
	name, err := cf.ClassName()
	if err != nil {
		return nil, fmt.Errorf("generating header: %w", err)
	}
	if escapeLike(name) {
		return nil, fmt.Errorf("generating header: class %s has a name component starting with a digit", name)
	}
	var mangled strings.Builder
	mangle(&mangled, name)
	guard := "_Included_" + mangled.String()

	var buf bytes.Buffer
	buf.WriteString("/* DO NOT EDIT THIS FILE - it is machine generated */\n")
	buf.WriteString("#include <jni.h>\n")
	fmt.Fprintf(&buf, "/* Header for class %s */\n\n", mangled.String())
	fmt.Fprintf(&buf, "#ifndef %s\n#define %s\n", guard, guard)
	buf.WriteString("#ifdef __cplusplus\nextern \"C\" {\n#endif\n")

	for i := range cf.Fields {
		f := &cf.Fields[i]
		v, ok := constantLiteral(cf, f)
		if !ok {
			continue
		}
		var field strings.Builder
		mangle(&field, f.Name)
		macro := mangled.String() + "_" + field.String()
		fmt.Fprintf(&buf, "#undef %s\n#define %s %s\n", macro, macro, v)
	}

	natives := cf.NativeMethods()
	overloads := make(map[string]int)
	for _, m := range natives {
		overloads[m.Name]++
	}
	for _, m := range natives {
		if escapeLike(m.Name) {
			return nil, fmt.Errorf("generating header for %s: method %s starts with a digit", name, m.Name)
		}
		mt, err := vm.ParseMethodDescriptor(m.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("generating header for %s.%s: %w", name, m.Name, err)
		}
		sym := ShortName(name, m.Name)
		if overloads[m.Name] > 1 {
			sym = LongName(name, m.Name, m.Descriptor)
		}
		params := []string{"JNIEnv *", "jobject"}
		if m.IsStatic() {
			params[1] = "jclass"
		}
		for _, p := range mt.Params {
			params = append(params, cType(p))
		}
		buf.WriteString("/*\n")
		fmt.Fprintf(&buf, " * Class:     %s\n", mangled.String())
		fmt.Fprintf(&buf, " * Method:    %s\n", m.Name)
		fmt.Fprintf(&buf, " * Signature: %s\n", m.Descriptor)
		buf.WriteString(" */\n")
		fmt.Fprintf(&buf, "JNIEXPORT %s JNICALL %s\n  (%s);\n\n", cType(mt.Return), sym, strings.Join(params, ", "))
	}

	buf.WriteString("#ifdef __cplusplus\n}\n#endif\n#endif\n")
	return buf.Bytes(), nil
}

// constantLiteral renders the ConstantValue of a static final primitive
// field as a C literal.
func constantLiteral(cf *classfile.ClassFile, f *classfile.FieldInfo) (string, bool) {
	if !f.IsStatic() || f.AccessFlags&classfile.AccFinal == 0 {
		return "", false
	}
	for _, a := range f.Attributes {
		if a.Name != "ConstantValue" || len(a.Data) < 2 {
			continue
		}
		idx := binary.BigEndian.Uint16(a.Data)
		if int(idx) >= len(cf.ConstantPool) {
			return "", false
		}
		switch c := cf.ConstantPool[idx].(type) {
		case *classfile.ConstantInteger:
			return strconv.FormatInt(int64(c.Value), 10) + "L", true
		case *classfile.ConstantLong:
			return strconv.FormatInt(c.Value, 10) + "LL", true
		case *classfile.ConstantFloat:
			return floatLiteral(float64(c.Value), 32) + "f", true
		case *classfile.ConstantDouble:
			return floatLiteral(c.Value, 64), true
		}
	}
	return "", false
}

func floatLiteral(v float64, bits int) string {
	switch {
	case math.IsInf(v, 1):
		return "InfinityD"
	case math.IsInf(v, -1):
		return "-InfinityD"
	case math.IsNaN(v):
		return "NaND"
	}
	s := strconv.FormatFloat(v, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
