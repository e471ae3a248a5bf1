package classfile

import (
	"fmt"
	"math"
)

// Constant pool tags
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
)

// opaqueSizes are the body sizes of the entries kept undecoded.
var opaqueSizes = map[uint8]int{
	TagMethodHandle:  3,
	TagMethodType:    2,
	TagDynamic:       4,
	TagInvokeDynamic: 4,
}

// constantPool decodes constant_pool_count and the entries after it. The
// result is indexed like the class file: slot 0 and the slot after each
// long or double are nil.
func (d *decoder) constantPool() []ConstantPoolEntry {
	count := d.u2("constant pool count")
	if d.err != nil {
		return nil
	}
	pool := make([]ConstantPoolEntry, count)
	for i := 1; i < int(count) && d.err == nil; i++ {
		tag := d.u1("constant tag")
		what := fmt.Sprintf("constant %d", i)
		switch tag {
		case TagUtf8:
			raw := d.take(int(d.u2(what)), what)
			if d.err != nil {
				break
			}
			s, err := DecodeModifiedUTF8(raw)
			if err != nil {
				d.fail(fmt.Errorf("%s: %w", what, err))
				break
			}
			pool[i] = &ConstantUtf8{Value: s}
		case TagInteger:
			pool[i] = &ConstantInteger{Value: int32(d.u4(what))}
		case TagFloat:
			pool[i] = &ConstantFloat{Value: math.Float32frombits(d.u4(what))}
		case TagLong:
			pool[i] = &ConstantLong{Value: int64(d.u8(what))}
			i++
		case TagDouble:
			pool[i] = &ConstantDouble{Value: math.Float64frombits(d.u8(what))}
			i++
		case TagClass:
			pool[i] = &ConstantClass{NameIndex: d.u2(what)}
		case TagString:
			pool[i] = &ConstantString{StringIndex: d.u2(what)}
		case TagFieldref:
			pool[i] = &ConstantFieldref{ClassIndex: d.u2(what), NameAndTypeIndex: d.u2(what)}
		case TagMethodref:
			pool[i] = &ConstantMethodref{ClassIndex: d.u2(what), NameAndTypeIndex: d.u2(what)}
		case TagInterfaceMethodref:
			pool[i] = &ConstantInterfaceMethodref{ClassIndex: d.u2(what), NameAndTypeIndex: d.u2(what)}
		case TagNameAndType:
			pool[i] = &ConstantNameAndType{NameIndex: d.u2(what), DescriptorIndex: d.u2(what)}
		default:
			n, ok := opaqueSizes[tag]
			if !ok {
				d.fail(fmt.Errorf("unknown constant pool tag %d at index %d", tag, i))
				break
			}
			pool[i] = &constantOpaque{tag: tag, body: append([]byte(nil), d.take(n, what)...)}
		}
	}
	return pool
}

// constantOpaque is an entry the interpreter never resolves, kept only so
// the pool indexes stay aligned.
type constantOpaque struct {
	tag  uint8
	body []byte
}

func (c *constantOpaque) Tag() uint8 { return c.tag }

// entryAt returns the entry at index as a T.
func entryAt[T ConstantPoolEntry](pool []ConstantPoolEntry, index uint16, kind string) (T, error) {
	var zero T
	if int(index) >= len(pool) || pool[index] == nil {
		return zero, fmt.Errorf("invalid constant pool index %d", index)
	}
	e, ok := pool[index].(T)
	if !ok {
		return zero, fmt.Errorf("constant pool index %d is not %s (tag=%d)", index, kind, pool[index].Tag())
	}
	return e, nil
}

// GetUtf8 returns the Utf8 string at the given constant pool index.
func GetUtf8(pool []ConstantPoolEntry, index uint16) (string, error) {
	u, err := entryAt[*ConstantUtf8](pool, index, "Utf8")
	if err != nil {
		return "", err
	}
	return u.Value, nil
}

// GetClassName returns the class name referenced by a CONSTANT_Class entry.
func GetClassName(pool []ConstantPoolEntry, classIndex uint16) (string, error) {
	c, err := entryAt[*ConstantClass](pool, classIndex, "Class")
	if err != nil {
		return "", err
	}
	return GetUtf8(pool, c.NameIndex)
}

// MethodRefInfo holds resolved method reference info.
type MethodRefInfo struct {
	ClassName  string
	MethodName string
	Descriptor string
}

// FieldRefInfo holds resolved field reference info.
type FieldRefInfo struct {
	ClassName  string
	FieldName  string
	Descriptor string
}

// memberRef resolves the class and name-and-type halves shared by the
// three member reference kinds.
func memberRef(pool []ConstantPoolEntry, kind string, classIndex, natIndex uint16) (class, name, desc string, err error) {
	if class, err = GetClassName(pool, classIndex); err != nil {
		return "", "", "", fmt.Errorf("resolving %s class: %w", kind, err)
	}
	nat, err := entryAt[*ConstantNameAndType](pool, natIndex, "NameAndType")
	if err != nil {
		return "", "", "", fmt.Errorf("resolving %s: %w", kind, err)
	}
	if name, err = GetUtf8(pool, nat.NameIndex); err != nil {
		return "", "", "", fmt.Errorf("resolving %s name: %w", kind, err)
	}
	if desc, err = GetUtf8(pool, nat.DescriptorIndex); err != nil {
		return "", "", "", fmt.Errorf("resolving %s descriptor: %w", kind, err)
	}
	return class, name, desc, nil
}

// ResolveMethodref resolves a CONSTANT_Methodref entry.
func ResolveMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	ref, err := entryAt[*ConstantMethodref](pool, index, "Methodref")
	if err != nil {
		return nil, err
	}
	class, name, desc, err := memberRef(pool, "Methodref", ref.ClassIndex, ref.NameAndTypeIndex)
	if err != nil {
		return nil, err
	}
	return &MethodRefInfo{ClassName: class, MethodName: name, Descriptor: desc}, nil
}

// ResolveInterfaceMethodref resolves a CONSTANT_InterfaceMethodref entry.
func ResolveInterfaceMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	ref, err := entryAt[*ConstantInterfaceMethodref](pool, index, "InterfaceMethodref")
	if err != nil {
		return nil, err
	}
	class, name, desc, err := memberRef(pool, "InterfaceMethodref", ref.ClassIndex, ref.NameAndTypeIndex)
	if err != nil {
		return nil, err
	}
	return &MethodRefInfo{ClassName: class, MethodName: name, Descriptor: desc}, nil
}

// ResolveFieldref resolves a CONSTANT_Fieldref entry.
func ResolveFieldref(pool []ConstantPoolEntry, index uint16) (*FieldRefInfo, error) {
	ref, err := entryAt[*ConstantFieldref](pool, index, "Fieldref")
	if err != nil {
		return nil, err
	}
	class, name, desc, err := memberRef(pool, "Fieldref", ref.ClassIndex, ref.NameAndTypeIndex)
	if err != nil {
		return nil, err
	}
	return &FieldRefInfo{ClassName: class, FieldName: name, Descriptor: desc}, nil
}
