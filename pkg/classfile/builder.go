package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Builder assembles a ClassFile in memory. Constant pool entries are
// deduplicated; every Add/Ref method returns the pool index to embed in
// bytecode operands.
type Builder struct {
	cf    *ClassFile
	index map[string]uint16
}

// NewBuilder starts a class named name (internal form, e.g. "pkg/Foo") with
// the given superclass. An empty super produces a root class.
func NewBuilder(name, super string) *Builder {
	b := &Builder{
		cf: &ClassFile{
			MinorVersion: 0,
			MajorVersion: 61,
			ConstantPool: []ConstantPoolEntry{nil},
			AccessFlags:  AccPublic | AccSuper,
		},
		index: make(map[string]uint16),
	}
	b.cf.ThisClass = b.Class(name)
	if super != "" {
		b.cf.SuperClass = b.Class(super)
	}
	return b
}

// Flags sets the class access flags.
func (b *Builder) Flags(flags uint16) *Builder {
	b.cf.AccessFlags = flags
	return b
}

// Implements adds directly implemented interfaces.
func (b *Builder) Implements(names ...string) *Builder {
	for _, n := range names {
		b.cf.Interfaces = append(b.cf.Interfaces, b.Class(n))
	}
	return b
}

func (b *Builder) add(key string, e ConstantPoolEntry, wide bool) uint16 {
	if idx, ok := b.index[key]; ok {
		return idx
	}
	idx := uint16(len(b.cf.ConstantPool))
	b.cf.ConstantPool = append(b.cf.ConstantPool, e)
	if wide {
		b.cf.ConstantPool = append(b.cf.ConstantPool, nil)
	}
	b.index[key] = idx
	return idx
}

// Utf8 adds a CONSTANT_Utf8.
func (b *Builder) Utf8(s string) uint16 {
	return b.add("u:"+s, &ConstantUtf8{Value: s}, false)
}

// Class adds a CONSTANT_Class.
func (b *Builder) Class(name string) uint16 {
	n := b.Utf8(name)
	return b.add("c:"+name, &ConstantClass{NameIndex: n}, false)
}

// String adds a CONSTANT_String.
func (b *Builder) String(s string) uint16 {
	n := b.Utf8(s)
	return b.add("s:"+s, &ConstantString{StringIndex: n}, false)
}

// Integer adds a CONSTANT_Integer.
func (b *Builder) Integer(v int32) uint16 {
	return b.add(fmt.Sprintf("i:%d", v), &ConstantInteger{Value: v}, false)
}

// Float adds a CONSTANT_Float.
func (b *Builder) Float(v float32) uint16 {
	return b.add(fmt.Sprintf("f:%x", math.Float32bits(v)), &ConstantFloat{Value: v}, false)
}

// Long adds a CONSTANT_Long (occupying two slots).
func (b *Builder) Long(v int64) uint16 {
	return b.add(fmt.Sprintf("j:%d", v), &ConstantLong{Value: v}, true)
}

// Double adds a CONSTANT_Double (occupying two slots).
func (b *Builder) Double(v float64) uint16 {
	return b.add(fmt.Sprintf("d:%x", math.Float64bits(v)), &ConstantDouble{Value: v}, true)
}

func (b *Builder) nameAndType(name, desc string) uint16 {
	n := b.Utf8(name)
	d := b.Utf8(desc)
	return b.add("nt:"+name+":"+desc, &ConstantNameAndType{NameIndex: n, DescriptorIndex: d}, false)
}

// MethodRef adds a CONSTANT_Methodref.
func (b *Builder) MethodRef(class, name, desc string) uint16 {
	c := b.Class(class)
	nt := b.nameAndType(name, desc)
	return b.add("m:"+class+"."+name+desc, &ConstantMethodref{ClassIndex: c, NameAndTypeIndex: nt}, false)
}

// InterfaceMethodRef adds a CONSTANT_InterfaceMethodref.
func (b *Builder) InterfaceMethodRef(class, name, desc string) uint16 {
	c := b.Class(class)
	nt := b.nameAndType(name, desc)
	return b.add("im:"+class+"."+name+desc, &ConstantInterfaceMethodref{ClassIndex: c, NameAndTypeIndex: nt}, false)
}

// FieldRef adds a CONSTANT_Fieldref.
func (b *Builder) FieldRef(class, name, desc string) uint16 {
	c := b.Class(class)
	nt := b.nameAndType(name, desc)
	return b.add("fr:"+class+"."+name+":"+desc, &ConstantFieldref{ClassIndex: c, NameAndTypeIndex: nt}, false)
}

// Field declares a field.
func (b *Builder) Field(flags uint16, name, desc string) *Builder {
	b.Utf8(name)
	b.Utf8(desc)
	b.cf.Fields = append(b.cf.Fields, FieldInfo{AccessFlags: flags, Name: name, Descriptor: desc})
	return b
}

// Method declares a method with a body.
func (b *Builder) Method(flags uint16, name, desc string, maxStack, maxLocals uint16, code []byte, handlers ...ExceptionHandler) *Builder {
	b.Utf8(name)
	b.Utf8(desc)
	attr := &CodeAttribute{
		MaxStack:          maxStack,
		MaxLocals:         maxLocals,
		Code:              code,
		ExceptionHandlers: handlers,
	}
	b.Utf8("Code")
	b.cf.Methods = append(b.cf.Methods, MethodInfo{
		AccessFlags: flags,
		Name:        name,
		Descriptor:  desc,
		Attributes:  []AttributeInfo{{Name: "Code", Data: encodeCodeAttribute(attr)}},
		Code:        attr,
	})
	return b
}

// NativeMethod declares a method without a body, marked ACC_NATIVE.
func (b *Builder) NativeMethod(flags uint16, name, desc string) *Builder {
	b.Utf8(name)
	b.Utf8(desc)
	b.cf.Methods = append(b.cf.Methods, MethodInfo{
		AccessFlags: flags | AccNative,
		Name:        name,
		Descriptor:  desc,
	})
	return b
}

// AbstractMethod declares a method without a body, marked ACC_ABSTRACT.
func (b *Builder) AbstractMethod(flags uint16, name, desc string) *Builder {
	b.Utf8(name)
	b.Utf8(desc)
	b.cf.Methods = append(b.cf.Methods, MethodInfo{
		AccessFlags: flags | AccAbstract,
		Name:        name,
		Descriptor:  desc,
	})
	return b
}

// Build returns the assembled class file.
func (b *Builder) Build() *ClassFile {
	return b.cf
}

func encodeCodeAttribute(c *CodeAttribute) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, c.MaxStack)
	binary.Write(&buf, binary.BigEndian, c.MaxLocals)
	binary.Write(&buf, binary.BigEndian, uint32(len(c.Code)))
	buf.Write(c.Code)
	binary.Write(&buf, binary.BigEndian, uint16(len(c.ExceptionHandlers)))
	for _, h := range c.ExceptionHandlers {
		binary.Write(&buf, binary.BigEndian, h)
	}
	binary.Write(&buf, binary.BigEndian, uint16(0)) // attributes_count
	return buf.Bytes()
}

// Marshal serializes the class file into the .class binary format. Every
// name, descriptor and attribute name must already be present in the pool.
func (cf *ClassFile) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	w := func(v any) { binary.Write(&buf, binary.BigEndian, v) }

	w(uint32(classMagic))
	w(cf.MinorVersion)
	w(cf.MajorVersion)
	w(uint16(len(cf.ConstantPool)))
	for i := 1; i < len(cf.ConstantPool); i++ {
		e := cf.ConstantPool[i]
		if e == nil {
			continue // second slot of a long/double
		}
		w(e.Tag())
		switch c := e.(type) {
		case *ConstantUtf8:
			enc := EncodeModifiedUTF8(c.Value)
			w(uint16(len(enc)))
			buf.Write(enc)
		case *ConstantInteger:
			w(c.Value)
		case *ConstantFloat:
			w(math.Float32bits(c.Value))
		case *ConstantLong:
			w(c.Value)
		case *ConstantDouble:
			w(math.Float64bits(c.Value))
		case *ConstantClass:
			w(c.NameIndex)
		case *ConstantString:
			w(c.StringIndex)
		case *ConstantFieldref:
			w(c.ClassIndex)
			w(c.NameAndTypeIndex)
		case *ConstantMethodref:
			w(c.ClassIndex)
			w(c.NameAndTypeIndex)
		case *ConstantInterfaceMethodref:
			w(c.ClassIndex)
			w(c.NameAndTypeIndex)
		case *ConstantNameAndType:
			w(c.NameIndex)
			w(c.DescriptorIndex)
		case *constantOpaque:
			buf.Write(c.body)
		default:
			return nil, fmt.Errorf("marshal: unsupported constant pool tag %d at index %d", e.Tag(), i)
		}
	}

	w(cf.AccessFlags)
	w(cf.ThisClass)
	w(cf.SuperClass)
	w(uint16(len(cf.Interfaces)))
	for _, idx := range cf.Interfaces {
		w(idx)
	}

	utf8Index := func(s string) (uint16, error) {
		for i, e := range cf.ConstantPool {
			if u, ok := e.(*ConstantUtf8); ok && u.Value == s {
				return uint16(i), nil
			}
		}
		return 0, fmt.Errorf("marshal: %q missing from constant pool", s)
	}
	member := func(flags uint16, name, desc string, attrs []AttributeInfo) error {
		n, err := utf8Index(name)
		if err != nil {
			return err
		}
		d, err := utf8Index(desc)
		if err != nil {
			return err
		}
		w(flags)
		w(n)
		w(d)
		w(uint16(len(attrs)))
		for _, a := range attrs {
			ai, err := utf8Index(a.Name)
			if err != nil {
				return err
			}
			w(ai)
			w(uint32(len(a.Data)))
			buf.Write(a.Data)
		}
		return nil
	}

	w(uint16(len(cf.Fields)))
	for _, f := range cf.Fields {
		if err := member(f.AccessFlags, f.Name, f.Descriptor, f.Attributes); err != nil {
			return nil, err
		}
	}
	w(uint16(len(cf.Methods)))
	for _, m := range cf.Methods {
		if err := member(m.AccessFlags, m.Name, m.Descriptor, m.Attributes); err != nil {
			return nil, err
		}
	}
	w(uint16(len(cf.Attributes)))
	for _, a := range cf.Attributes {
		ai, err := utf8Index(a.Name)
		if err != nil {
			return nil, err
		}
		w(ai)
		w(uint32(len(a.Data)))
		buf.Write(a.Data)
	}
	return buf.Bytes(), nil
}
