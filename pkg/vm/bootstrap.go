package vm

import (
	"fmt"
	"math"
	"time"

	"github.com/daimatz/gojni/pkg/classfile"
	"github.com/daimatz/gojni/pkg/native"
)

// intrinsic describes a bootstrap class implemented in Go.
type intrinsic struct {
	super      string
	interfaces []string
	flags      uint16
	fields     []intrinsicField
	methods    []intrinsicMethod
	alloc      func(c *Class) interface{}
	clinit     func(t *Thread, c *Class) error
}

type intrinsicField struct {
	flags      uint16
	name, desc string
}

type intrinsicMethod struct {
	flags      uint16
	name, desc string
	fn         IntrinsicFunc
}

const (
	pub       = classfile.AccPublic
	pubStatic = classfile.AccPublic | classfile.AccStatic
	pubAbs    = classfile.AccPublic | classfile.AccAbstract
)

func ret(v Value) (Value, error) { return v, nil }

func void() (Value, error) { return Value{}, nil }

func boolValue(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}

// bootstrapClasses returns the classes every VM provides without a class loader.
func (vm *VM) bootstrapClasses() map[string]*intrinsic {
	m := map[string]*intrinsic{
		"java/lang/Object": {
			methods: []intrinsicMethod{
				{pub, "<init>", "()V", func(*Thread, []Value) (Value, error) { return void() }},
				{pub, "hashCode", "()I", func(t *Thread, a []Value) (Value, error) {
					return ret(IntValue(vm.IdentityHash(a[0].Ref)))
				}},
				{pub, "equals", "(Ljava/lang/Object;)Z", func(t *Thread, a []Value) (Value, error) {
					return ret(boolValue(a[0].Ref == a[1].Ref))
				}},
				{pub, "toString", "()Ljava/lang/String;", func(t *Thread, a []Value) (Value, error) {
					s := fmt.Sprintf("%s@%x", vm.ClassOf(a[0].Ref).JavaName(), vm.IdentityHash(a[0].Ref))
					return ret(RefValue(NewJString(s)))
				}},
				{pub, "getClass", "()Ljava/lang/Class;", func(t *Thread, a []Value) (Value, error) {
					return ret(RefValue(vm.ClassOf(a[0].Ref)))
				}},
			},
		},
		"java/lang/Class": {
			super: "java/lang/Object",
			flags: classfile.AccPublic | classfile.AccFinal,
			methods: []intrinsicMethod{
				{pub, "getName", "()Ljava/lang/String;", func(t *Thread, a []Value) (Value, error) {
					return ret(RefValue(NewJString(a[0].Ref.(*Class).JavaName())))
				}},
			},
		},
		"java/lang/String": {
			super: "java/lang/Object",
			flags: classfile.AccPublic | classfile.AccFinal,
			alloc: func(*Class) interface{} { return &JString{} },
			methods: []intrinsicMethod{
				{pub, "<init>", "()V", func(*Thread, []Value) (Value, error) { return void() }},
				{pub, "<init>", "(Ljava/lang/String;)V", func(t *Thread, a []Value) (Value, error) {
					src, ok := a[1].Ref.(*JString)
					if !ok {
						return Value{}, NewJavaException("java/lang/NullPointerException")
					}
					a[0].Ref.(*JString).chars = append([]uint16(nil), src.chars...)
					return void()
				}},
				{pub, "length", "()I", func(t *Thread, a []Value) (Value, error) {
					return ret(IntValue(int32(a[0].Ref.(*JString).Len())))
				}},
				{pub, "isEmpty", "()Z", func(t *Thread, a []Value) (Value, error) {
					return ret(boolValue(a[0].Ref.(*JString).Len() == 0))
				}},
				{pub, "charAt", "(I)C", func(t *Thread, a []Value) (Value, error) {
					s := a[0].Ref.(*JString)
					if a[1].Int < 0 || int(a[1].Int) >= s.Len() {
						return Value{}, NewJavaExceptionf("java/lang/StringIndexOutOfBoundsException", "index %d, length %d", a[1].Int, s.Len())
					}
					return ret(IntValue(int32(s.chars[a[1].Int])))
				}},
				{pub, "equals", "(Ljava/lang/Object;)Z", func(t *Thread, a []Value) (Value, error) {
					o, ok := a[1].Ref.(*JString)
					return ret(boolValue(ok && a[0].Ref.(*JString).Equal(o)))
				}},
				{pub, "hashCode", "()I", func(t *Thread, a []Value) (Value, error) {
					return ret(IntValue(a[0].Ref.(*JString).HashCode()))
				}},
				{pub, "toString", "()Ljava/lang/String;", func(t *Thread, a []Value) (Value, error) {
					return ret(a[0])
				}},
				{pub, "concat", "(Ljava/lang/String;)Ljava/lang/String;", func(t *Thread, a []Value) (Value, error) {
					o, ok := a[1].Ref.(*JString)
					if !ok {
						return Value{}, NewJavaException("java/lang/NullPointerException")
					}
					s := a[0].Ref.(*JString)
					return ret(RefValue(NewJStringUTF16(append(append([]uint16(nil), s.chars...), o.chars...))))
				}},
				{pubStatic, "valueOf", "(I)Ljava/lang/String;", func(t *Thread, a []Value) (Value, error) {
					return ret(RefValue(NewJString(fmt.Sprint(a[0].Int))))
				}},
			},
		},
		"java/lang/System": {
			super: "java/lang/Object",
			flags: classfile.AccPublic | classfile.AccFinal,
			fields: []intrinsicField{
				{pubStatic | classfile.AccFinal, "out", "Ljava/io/PrintStream;"},
				{pubStatic | classfile.AccFinal, "err", "Ljava/io/PrintStream;"},
			},
			clinit: func(t *Thread, c *Class) error {
				c.SetStatic("out", RefValue(native.NewPrintStream(vm.Stdout)))
				c.SetStatic("err", RefValue(native.NewPrintStream(vm.Stderr)))
				return nil
			},
			methods: []intrinsicMethod{
				{pubStatic, "currentTimeMillis", "()J", func(*Thread, []Value) (Value, error) {
					return ret(LongValue(time.Now().UnixMilli()))
				}},
				{pubStatic, "nanoTime", "()J", func(*Thread, []Value) (Value, error) {
					return ret(LongValue(time.Now().UnixNano()))
				}},
				{pubStatic, "identityHashCode", "(Ljava/lang/Object;)I", func(t *Thread, a []Value) (Value, error) {
					if a[0].IsNull() {
						return ret(IntValue(0))
					}
					return ret(IntValue(vm.IdentityHash(a[0].Ref)))
				}},
				{pubStatic, "arraycopy", "(Ljava/lang/Object;ILjava/lang/Object;II)V", func(t *Thread, a []Value) (Value, error) {
					return Value{}, arraycopy(a)
				}},
			},
		},
		"java/io/PrintStream": {
			super:   "java/lang/Object",
			methods: vm.printStreamMethods(),
		},
		"java/lang/Integer": {
			super: "java/lang/Number",
			flags: classfile.AccPublic | classfile.AccFinal,
			methods: []intrinsicMethod{
				{pubStatic, "valueOf", "(I)Ljava/lang/Integer;", func(t *Thread, a []Value) (Value, error) {
					return ret(RefValue(native.IntegerValueOf(a[0].Int)))
				}},
				{pubStatic, "parseInt", "(Ljava/lang/String;)I", func(t *Thread, a []Value) (Value, error) {
					s, ok := a[0].Ref.(*JString)
					if !ok {
						return Value{}, NewJavaExceptionf("java/lang/NumberFormatException", "Cannot parse null string")
					}
					v, err := native.ParseInt(s.String())
					if err != nil {
						return Value{}, NewJavaExceptionf("java/lang/NumberFormatException", "For input string: %q", s.String())
					}
					return ret(IntValue(v))
				}},
				{pub, "intValue", "()I", func(t *Thread, a []Value) (Value, error) {
					return ret(IntValue(a[0].Ref.(*native.NativeInteger).Value))
				}},
				{pub, "hashCode", "()I", func(t *Thread, a []Value) (Value, error) {
					return ret(IntValue(a[0].Ref.(*native.NativeInteger).Value))
				}},
				{pub, "equals", "(Ljava/lang/Object;)Z", func(t *Thread, a []Value) (Value, error) {
					o, ok := a[1].Ref.(*native.NativeInteger)
					return ret(boolValue(ok && o.Value == a[0].Ref.(*native.NativeInteger).Value))
				}},
				{pub, "toString", "()Ljava/lang/String;", func(t *Thread, a []Value) (Value, error) {
					return ret(RefValue(NewJString(a[0].Ref.(*native.NativeInteger).String())))
				}},
			},
		},
		"java/lang/Number": {
			super: "java/lang/Object",
			flags: classfile.AccPublic | classfile.AccAbstract,
			methods: []intrinsicMethod{
				{pubAbs, "intValue", "()I", nil},
			},
		},
		"java/lang/Math": {
			super: "java/lang/Object",
			flags: classfile.AccPublic | classfile.AccFinal,
			methods: []intrinsicMethod{
				{pubStatic, "abs", "(I)I", func(t *Thread, a []Value) (Value, error) {
					if a[0].Int < 0 {
						return ret(IntValue(-a[0].Int))
					}
					return ret(a[0])
				}},
				{pubStatic, "max", "(II)I", func(t *Thread, a []Value) (Value, error) {
					return ret(IntValue(max(a[0].Int, a[1].Int)))
				}},
				{pubStatic, "min", "(II)I", func(t *Thread, a []Value) (Value, error) {
					return ret(IntValue(min(a[0].Int, a[1].Int)))
				}},
				{pubStatic, "sqrt", "(D)D", func(t *Thread, a []Value) (Value, error) {
					return ret(DoubleValue(math.Sqrt(a[0].Double)))
				}},
				{pubStatic, "pow", "(DD)D", func(t *Thread, a []Value) (Value, error) {
					return ret(DoubleValue(math.Pow(a[0].Double, a[1].Double)))
				}},
			},
		},
		"java/lang/StringBuilder": {
			super:   "java/lang/Object",
			flags:   classfile.AccPublic | classfile.AccFinal,
			alloc:   func(*Class) interface{} { return &native.StringBuilder{} },
			methods: vm.stringBuilderMethods(),
		},
		"java/util/Map": {
			super: "java/lang/Object",
			flags: classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract,
			methods: []intrinsicMethod{
				{pubAbs, "get", "(Ljava/lang/Object;)Ljava/lang/Object;", nil},
				{pubAbs, "put", "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;", nil},
				{pubAbs, "containsKey", "(Ljava/lang/Object;)Z", nil},
				{pubAbs, "remove", "(Ljava/lang/Object;)Ljava/lang/Object;", nil},
				{pubAbs, "size", "()I", nil},
			},
		},
		"java/util/HashMap": {
			super:      "java/lang/Object",
			interfaces: []string{"java/util/Map"},
			alloc:      func(*Class) interface{} { return native.NewNativeHashMap() },
			methods: []intrinsicMethod{
				{pub, "<init>", "()V", func(*Thread, []Value) (Value, error) { return void() }},
				{pub, "get", "(Ljava/lang/Object;)Ljava/lang/Object;", func(t *Thread, a []Value) (Value, error) {
					return ret(RefValue(a[0].Ref.(*native.NativeHashMap).Get(a[1].Ref)))
				}},
				{pub, "put", "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;", func(t *Thread, a []Value) (Value, error) {
					return ret(RefValue(a[0].Ref.(*native.NativeHashMap).Put(a[1].Ref, a[2].Ref)))
				}},
				{pub, "containsKey", "(Ljava/lang/Object;)Z", func(t *Thread, a []Value) (Value, error) {
					return ret(boolValue(a[0].Ref.(*native.NativeHashMap).ContainsKey(a[1].Ref)))
				}},
				{pub, "remove", "(Ljava/lang/Object;)Ljava/lang/Object;", func(t *Thread, a []Value) (Value, error) {
					return ret(RefValue(a[0].Ref.(*native.NativeHashMap).Remove(a[1].Ref)))
				}},
				{pub, "size", "()I", func(t *Thread, a []Value) (Value, error) {
					return ret(IntValue(int32(a[0].Ref.(*native.NativeHashMap).Size())))
				}},
			},
		},
		"java/lang/Runnable": {
			super:   "java/lang/Object",
			flags:   classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract,
			methods: []intrinsicMethod{{pubAbs, "run", "()V", nil}},
		},
		"java/lang/Cloneable": {
			super: "java/lang/Object",
			flags: classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract,
		},
		"java/io/Serializable": {
			super: "java/lang/Object",
			flags: classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract,
		},
		"java/lang/Throwable": {
			super: "java/lang/Object",
			fields: []intrinsicField{
				{classfile.AccPrivate, "detailMessage", "Ljava/lang/String;"},
				{classfile.AccPrivate, "cause", "Ljava/lang/Throwable;"},
			},
			methods: append(throwableConstructors(),
				intrinsicMethod{pub, "getMessage", "()Ljava/lang/String;", func(t *Thread, a []Value) (Value, error) {
					return ret(a[0].Ref.(*JObject).GetField("detailMessage", "Ljava/lang/String;"))
				}},
				intrinsicMethod{pub, "getCause", "()Ljava/lang/Throwable;", func(t *Thread, a []Value) (Value, error) {
					return ret(a[0].Ref.(*JObject).GetField("cause", "Ljava/lang/Throwable;"))
				}},
				intrinsicMethod{pub, "toString", "()Ljava/lang/String;", func(t *Thread, a []Value) (Value, error) {
					return ret(RefValue(NewJString(DescribeThrowable(a[0].Ref.(*JObject)))))
				}},
				intrinsicMethod{pub, "printStackTrace", "()V", func(t *Thread, a []Value) (Value, error) {
					vm.PrintThrowable(a[0].Ref.(*JObject))
					return void()
				}},
			),
		},
	}

	for name, super := range throwableHierarchy {
		m[name] = &intrinsic{super: super, methods: throwableConstructors()}
	}
	return m
}

// throwableHierarchy maps each built-in exception class to its superclass.
var throwableHierarchy = map[string]string{
	"java/lang/Exception":                       "java/lang/Throwable",
	"java/lang/Error":                           "java/lang/Throwable",
	"java/lang/RuntimeException":                "java/lang/Exception",
	"java/lang/ReflectiveOperationException":    "java/lang/Exception",
	"java/lang/ClassNotFoundException":          "java/lang/ReflectiveOperationException",
	"java/lang/InstantiationException":          "java/lang/ReflectiveOperationException",
	"java/lang/IllegalArgumentException":        "java/lang/RuntimeException",
	"java/lang/NumberFormatException":           "java/lang/IllegalArgumentException",
	"java/lang/IllegalStateException":           "java/lang/RuntimeException",
	"java/lang/NullPointerException":            "java/lang/RuntimeException",
	"java/lang/ArithmeticException":             "java/lang/RuntimeException",
	"java/lang/ClassCastException":              "java/lang/RuntimeException",
	"java/lang/ArrayStoreException":             "java/lang/RuntimeException",
	"java/lang/NegativeArraySizeException":      "java/lang/RuntimeException",
	"java/lang/IllegalMonitorStateException":    "java/lang/RuntimeException",
	"java/lang/UnsupportedOperationException":   "java/lang/RuntimeException",
	"java/lang/IndexOutOfBoundsException":       "java/lang/RuntimeException",
	"java/lang/ArrayIndexOutOfBoundsException":  "java/lang/IndexOutOfBoundsException",
	"java/lang/StringIndexOutOfBoundsException": "java/lang/IndexOutOfBoundsException",
	"java/lang/LinkageError":                    "java/lang/Error",
	"java/lang/NoClassDefFoundError":            "java/lang/LinkageError",
	"java/lang/ClassFormatError":                "java/lang/LinkageError",
	"java/lang/UnsatisfiedLinkError":            "java/lang/LinkageError",
	"java/lang/ExceptionInInitializerError":     "java/lang/LinkageError",
	"java/lang/IncompatibleClassChangeError":    "java/lang/LinkageError",
	"java/lang/NoSuchMethodError":               "java/lang/IncompatibleClassChangeError",
	"java/lang/NoSuchFieldError":                "java/lang/IncompatibleClassChangeError",
	"java/lang/AbstractMethodError":             "java/lang/IncompatibleClassChangeError",
	"java/lang/InstantiationError":              "java/lang/IncompatibleClassChangeError",
	"java/lang/VirtualMachineError":             "java/lang/Error",
	"java/lang/OutOfMemoryError":                "java/lang/VirtualMachineError",
	"java/lang/StackOverflowError":              "java/lang/VirtualMachineError",
	"java/lang/InternalError":                   "java/lang/VirtualMachineError",
}

func throwableConstructors() []intrinsicMethod {
	setMessage := func(a []Value) {
		a[0].Ref.(*JObject).SetField("detailMessage", a[1])
	}
	return []intrinsicMethod{
		{pub, "<init>", "()V", func(*Thread, []Value) (Value, error) { return void() }},
		{pub, "<init>", "(Ljava/lang/String;)V", func(t *Thread, a []Value) (Value, error) {
			setMessage(a)
			return void()
		}},
		{pub, "<init>", "(Ljava/lang/String;Ljava/lang/Throwable;)V", func(t *Thread, a []Value) (Value, error) {
			setMessage(a)
			a[0].Ref.(*JObject).SetField("cause", a[2])
			return void()
		}},
	}
}

func (vm *VM) printStreamMethods() []intrinsicMethod {
	ps := func(v Value) *native.PrintStream { return v.Ref.(*native.PrintStream) }
	var out []intrinsicMethod
	for _, desc := range []string{"I", "J", "F", "D", "Z", "C", "Ljava/lang/String;", "Ljava/lang/Object;"} {
		desc := desc
		out = append(out,
			intrinsicMethod{pub, "println", "(" + desc + ")V", func(t *Thread, a []Value) (Value, error) {
				s, err := vm.Stringify(t, desc, a[1])
				if err != nil {
					return Value{}, err
				}
				ps(a[0]).Println(s)
				return void()
			}},
			intrinsicMethod{pub, "print", "(" + desc + ")V", func(t *Thread, a []Value) (Value, error) {
				s, err := vm.Stringify(t, desc, a[1])
				if err != nil {
					return Value{}, err
				}
				ps(a[0]).Print(s)
				return void()
			}},
		)
	}
	return append(out, intrinsicMethod{pub, "println", "()V", func(t *Thread, a []Value) (Value, error) {
		ps(a[0]).Println()
		return void()
	}})
}

func (vm *VM) stringBuilderMethods() []intrinsicMethod {
	sb := func(v Value) *native.StringBuilder { return v.Ref.(*native.StringBuilder) }
	out := []intrinsicMethod{
		{pub, "<init>", "()V", func(*Thread, []Value) (Value, error) { return void() }},
		{pub, "<init>", "(Ljava/lang/String;)V", func(t *Thread, a []Value) (Value, error) {
			s, err := vm.Stringify(t, "Ljava/lang/String;", a[1])
			if err != nil {
				return Value{}, err
			}
			sb(a[0]).Append(s)
			return void()
		}},
		{pub, "toString", "()Ljava/lang/String;", func(t *Thread, a []Value) (Value, error) {
			return ret(RefValue(NewJString(sb(a[0]).String())))
		}},
		{pub, "length", "()I", func(t *Thread, a []Value) (Value, error) {
			return ret(IntValue(int32(NewJString(sb(a[0]).String()).Len())))
		}},
	}
	for _, desc := range []string{"I", "J", "F", "D", "Z", "C", "Ljava/lang/String;", "Ljava/lang/Object;"} {
		desc := desc
		out = append(out, intrinsicMethod{pub, "append", "(" + desc + ")Ljava/lang/StringBuilder;", func(t *Thread, a []Value) (Value, error) {
			s, err := vm.Stringify(t, desc, a[1])
			if err != nil {
				return Value{}, err
			}
			sb(a[0]).Append(s)
			return ret(a[0])
		}})
	}
	return out
}

func arraycopy(a []Value) error {
	if a[0].IsNull() || a[2].IsNull() {
		return NewJavaException("java/lang/NullPointerException")
	}
	src, ok1 := a[0].Ref.(*JArray)
	dst, ok2 := a[2].Ref.(*JArray)
	if !ok1 || !ok2 {
		return NewJavaExceptionf("java/lang/ArrayStoreException", "arraycopy: argument type mismatch")
	}
	sp, dp, n := int(a[1].Int), int(a[3].Int), int(a[4].Int)
	if sp < 0 || dp < 0 || n < 0 || sp+n > len(src.Elements) || dp+n > len(dst.Elements) {
		return NewJavaExceptionf("java/lang/ArrayIndexOutOfBoundsException", "arraycopy: last source index %d out of bounds for length %d", sp+n, len(src.Elements))
	}
	copy(dst.Elements[dp:dp+n], src.Elements[sp:sp+n])
	return nil
}

// defineIntrinsic builds the runtime class for a bootstrap class.
func (vm *VM) defineIntrinsic(name string, spec *intrinsic) (*Class, error) {
	flags := spec.flags
	if flags == 0 {
		flags = classfile.AccPublic
	}
	c := newClass(vm, name, flags)
	c.alloc = spec.alloc
	c.clinit = spec.clinit
	if spec.super != "" {
		super, err := vm.LoadClass(spec.super)
		if err != nil {
			return nil, err
		}
		c.Super = super
	}
	for _, in := range spec.interfaces {
		iface, err := vm.LoadClass(in)
		if err != nil {
			return nil, err
		}
		c.Interfaces = append(c.Interfaces, iface)
	}
	for _, f := range spec.fields {
		c.Fields = append(c.Fields, &Field{Class: c, Name: f.name, Descriptor: f.desc, Flags: f.flags})
		if f.flags&classfile.AccStatic != 0 {
			c.statics[f.name] = ZeroValue(f.desc)
		}
	}
	for _, im := range spec.methods {
		mt, err := ParseMethodDescriptor(im.desc)
		if err != nil {
			return nil, fmt.Errorf("bootstrap %s.%s: %w", name, im.name, err)
		}
		c.Methods = append(c.Methods, &Method{
			Class:      c,
			Name:       im.name,
			Descriptor: im.desc,
			Flags:      im.flags,
			Type:       mt,
			Intrinsic:  im.fn,
		})
	}
	return c, nil
}
