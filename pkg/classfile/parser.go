package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const classMagic = 0xCAFEBABE

// ErrTruncated is wrapped by errors for class files that end early.
var ErrTruncated = errors.New("class file truncated")

// decoder reads big-endian items from an in-memory class file. The first
// failure sticks: later reads return zero values and err keeps the
// position and item that failed.
type decoder struct {
	data []byte
	off  int
	err  error
}

func (d *decoder) take(n int, what string) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.data)-d.off < n {
		d.err = fmt.Errorf("reading %s at offset %d: %w", what, d.off, ErrTruncated)
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u1(what string) uint8 {
	if b := d.take(1, what); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u2(what string) uint16 {
	if b := d.take(2, what); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u4(what string) uint32 {
	if b := d.take(4, what); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) u8(what string) uint64 {
	if b := d.take(8, what); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

// fail records err unless an earlier error is already recorded.
func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// ParseFile opens and parses a .class file from the given path.
func ParseFile(path string) (*ClassFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cf, err := ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cf, nil
}

// Parse reads a .class file from r.
func Parse(r io.Reader) (*ClassFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading class file: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes decodes a class file held in memory.
func ParseBytes(data []byte) (*ClassFile, error) {
	d := &decoder{data: data}
	if magic := d.u4("magic number"); d.err == nil && magic != classMagic {
		return nil, fmt.Errorf("invalid magic number 0x%X", magic)
	}

	cf := &ClassFile{}
	cf.MinorVersion = d.u2("minor version")
	cf.MajorVersion = d.u2("major version")
	cf.ConstantPool = d.constantPool()
	cf.AccessFlags = d.u2("access flags")
	cf.ThisClass = d.u2("this_class")
	cf.SuperClass = d.u2("super_class")

	cf.Interfaces = make([]uint16, d.u2("interfaces count"))
	for i := range cf.Interfaces {
		cf.Interfaces[i] = d.u2("interface index")
	}

	cf.Fields = make([]FieldInfo, d.u2("fields count"))
	for i := range cf.Fields {
		f := &cf.Fields[i]
		f.AccessFlags, f.Name, f.Descriptor, f.Attributes = d.member("field", cf.ConstantPool)
	}

	cf.Methods = make([]MethodInfo, d.u2("methods count"))
	for i := range cf.Methods {
		m := &cf.Methods[i]
		m.AccessFlags, m.Name, m.Descriptor, m.Attributes = d.member("method", cf.ConstantPool)
		if d.err != nil {
			break
		}
		if attr := findAttribute(m.Attributes, "Code"); attr != nil {
			code, err := parseCodeAttribute(attr.Data)
			if err != nil {
				d.fail(fmt.Errorf("method %s%s: %w", m.Name, m.Descriptor, err))
				break
			}
			m.Code = code
		}
	}

	cf.Attributes = d.attributes(cf.ConstantPool)
	if d.err != nil {
		return nil, d.err
	}
	if d.off != len(data) {
		return nil, fmt.Errorf("%d bytes after the class attributes", len(data)-d.off)
	}
	return cf, nil
}

// member decodes the common layout of field_info and method_info.
func (d *decoder) member(kind string, pool []ConstantPoolEntry) (flags uint16, name, desc string, attrs []AttributeInfo) {
	flags = d.u2(kind + " access flags")
	nameIndex := d.u2(kind + " name index")
	descIndex := d.u2(kind + " descriptor index")
	if d.err != nil {
		return
	}
	var err error
	if name, err = GetUtf8(pool, nameIndex); err != nil {
		d.fail(fmt.Errorf("%s name: %w", kind, err))
		return
	}
	if desc, err = GetUtf8(pool, descIndex); err != nil {
		d.fail(fmt.Errorf("%s %s descriptor: %w", kind, name, err))
		return
	}
	attrs = d.attributes(pool)
	return
}

// attributes decodes an attributes table, keeping each body raw.
func (d *decoder) attributes(pool []ConstantPoolEntry) []AttributeInfo {
	n := d.u2("attributes count")
	if d.err != nil {
		return nil
	}
	attrs := make([]AttributeInfo, 0, n)
	for i := uint16(0); i < n; i++ {
		nameIndex := d.u2("attribute name index")
		data := d.take(int(d.u4("attribute length")), "attribute body")
		if d.err != nil {
			return nil
		}
		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			d.fail(fmt.Errorf("attribute name: %w", err))
			return nil
		}
		attrs = append(attrs, AttributeInfo{Name: name, Data: append([]byte(nil), data...)})
	}
	return attrs
}

func findAttribute(attrs []AttributeInfo, name string) *AttributeInfo {
	for i := range attrs {
		if attrs[i].Name == name {
			return &attrs[i]
		}
	}
	return nil
}

func parseCodeAttribute(data []byte) (*CodeAttribute, error) {
	d := &decoder{data: data}
	c := &CodeAttribute{
		MaxStack:  d.u2("max_stack"),
		MaxLocals: d.u2("max_locals"),
	}
	c.Code = append([]byte(nil), d.take(int(d.u4("code length")), "bytecode")...)
	if n := d.u2("exception table length"); n > 0 && d.err == nil {
		c.ExceptionHandlers = make([]ExceptionHandler, n)
		for i := range c.ExceptionHandlers {
			c.ExceptionHandlers[i] = ExceptionHandler{
				StartPC:   d.u2("start_pc"),
				EndPC:     d.u2("end_pc"),
				HandlerPC: d.u2("handler_pc"),
				CatchType: d.u2("catch_type"),
			}
		}
	}
	if d.err != nil {
		return nil, fmt.Errorf("Code attribute: %w", d.err)
	}
	return c, nil
}

// ClassName returns the fully qualified name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return GetClassName(cf.ConstantPool, cf.ThisClass)
}

// FindMethod finds a method by name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindField finds a field by name and descriptor.
func (cf *ClassFile) FindField(name, descriptor string) *FieldInfo {
	for i := range cf.Fields {
		if cf.Fields[i].Name == name && cf.Fields[i].Descriptor == descriptor {
			return &cf.Fields[i]
		}
	}
	return nil
}

// NativeMethods returns the methods declared with ACC_NATIVE, in declaration order.
func (cf *ClassFile) NativeMethods() []*MethodInfo {
	var out []*MethodInfo
	for i := range cf.Methods {
		if cf.Methods[i].IsNative() {
			out = append(out, &cf.Methods[i])
		}
	}
	return out
}
