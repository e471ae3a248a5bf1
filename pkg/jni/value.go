package jni

import (
	"fmt"
	"math"

	"github.com/daimatz/gojni/pkg/vm"
)

// Kind identifies the type held by a Value. It is the descriptor character
// of the type; arrays and objects share KindObject.
type Kind byte

const (
	KindBoolean Kind = 'Z'
	KindByte    Kind = 'B'
	KindChar    Kind = 'C'
	KindShort   Kind = 'S'
	KindInt     Kind = 'I'
	KindLong    Kind = 'J'
	KindFloat   Kind = 'F'
	KindDouble  Kind = 'D'
	KindObject  Kind = 'L'
	KindVoid    Kind = 'V'
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindByte:
		return "byte"
	case KindChar:
		return "char"
	case KindShort:
		return "short"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindObject:
		return "object"
	case KindVoid:
		return "void"
	}
	return fmt.Sprintf("Kind(%q)", byte(k))
}

// kindOf returns the kind of a field descriptor or "V".
func kindOf(desc string) Kind {
	if desc == "" {
		return 0
	}
	if desc[0] == '[' {
		return KindObject
	}
	return Kind(desc[0])
}

// Value is one argument of the A and variadic call forms, the Go
// counterpart of the C jvalue union. Unlike jvalue it remembers its kind so
// calls can be checked against the method descriptor.
type Value struct {
	kind Kind
	bits uint64
}

func BooleanValue(v Boolean) Value { return Value{KindBoolean, uint64(v)} }
func ByteValue(v Byte) Value       { return Value{KindByte, uint64(v)} }
func CharValue(v Char) Value       { return Value{KindChar, uint64(v)} }
func ShortValue(v Short) Value     { return Value{KindShort, uint64(v)} }
func IntValue(v Int) Value         { return Value{KindInt, uint64(v)} }
func LongValue(v Long) Value       { return Value{KindLong, uint64(v)} }
func FloatValue(v Float) Value     { return Value{KindFloat, uint64(math.Float32bits(float32(v)))} }
func DoubleValue(v Double) Value   { return Value{KindDouble, math.Float64bits(float64(v))} }
func ObjectValue(v Object) Value   { return Value{KindObject, uint64(v)} }

// Kind returns the kind of the value. The zero Value has kind 0.
func (v Value) Kind() Kind { return v.kind }

func (v Value) Boolean() Boolean { return Boolean(v.bits) }
func (v Value) Byte() Byte       { return Byte(v.bits) }
func (v Value) Char() Char       { return Char(v.bits) }
func (v Value) Short() Short     { return Short(v.bits) }
func (v Value) Int() Int         { return Int(v.bits) }
func (v Value) Long() Long       { return Long(v.bits) }
func (v Value) Float() Float     { return Float(math.Float32frombits(uint32(v.bits))) }
func (v Value) Double() Double   { return Double(math.Float64frombits(v.bits)) }
func (v Value) Object() Object   { return Object(v.bits) }

func (v Value) String() string {
	switch v.kind {
	case KindBoolean:
		return fmt.Sprintf("boolean(%d)", v.Boolean())
	case KindFloat:
		return fmt.Sprintf("float(%v)", v.Float())
	case KindDouble:
		return fmt.Sprintf("double(%v)", v.Double())
	case KindObject:
		return fmt.Sprintf("object(%#x)", v.bits)
	case KindLong:
		return fmt.Sprintf("long(%d)", v.Long())
	case 0:
		return "void"
	}
	return fmt.Sprintf("%s(%d)", v.kind, int64(v.Int()))
}

// wordValue builds a Value from the raw 64-bit jvalue representation.
func wordValue(k Kind, bits uint64) Value {
	switch k {
	case KindBoolean:
		bits = uint64(uint8(bits))
	case KindByte:
		bits = uint64(int8(bits))
	case KindChar:
		bits = uint64(uint16(bits))
	case KindShort:
		bits = uint64(int16(bits))
	case KindInt:
		bits = uint64(int32(bits))
	case KindFloat:
		bits = uint64(uint32(bits))
	}
	return Value{k, bits}
}

type primitive interface {
	Boolean | Byte | Char | Short | Int | Long | Float | Double
}

// javaType is any type a table entry can transfer by value.
type javaType interface {
	primitive | Object
}

func kindFor[T javaType]() Kind {
	var zero T
	switch any(zero).(type) {
	case Boolean:
		return KindBoolean
	case Byte:
		return KindByte
	case Char:
		return KindChar
	case Short:
		return KindShort
	case Int:
		return KindInt
	case Long:
		return KindLong
	case Float:
		return KindFloat
	case Double:
		return KindDouble
	}
	return KindObject
}

func valueOf[T javaType](x T) Value {
	switch v := any(x).(type) {
	case Boolean:
		return BooleanValue(v)
	case Byte:
		return ByteValue(v)
	case Char:
		return CharValue(v)
	case Short:
		return ShortValue(v)
	case Int:
		return IntValue(v)
	case Long:
		return LongValue(v)
	case Float:
		return FloatValue(v)
	case Double:
		return DoubleValue(v)
	case Object:
		return ObjectValue(v)
	}
	panic("unreachable")
}

func valueAs[T javaType](v Value) T {
	var out T
	switch p := any(&out).(type) {
	case *Boolean:
		*p = v.Boolean()
	case *Byte:
		*p = v.Byte()
	case *Char:
		*p = v.Char()
	case *Short:
		*p = v.Short()
	case *Int:
		*p = v.Int()
	case *Long:
		*p = v.Long()
	case *Float:
		*p = v.Float()
	case *Double:
		*p = v.Double()
	case *Object:
		*p = v.Object()
	}
	return out
}

// primitiveToVM converts a primitive Value to the interpreter's
// representation. boolean, byte, char and short widen to int.
func primitiveToVM(v Value) vm.Value {
	switch v.kind {
	case KindBoolean:
		return vm.IntValue(int32(v.Boolean()))
	case KindByte:
		return vm.IntValue(int32(v.Byte()))
	case KindChar:
		return vm.IntValue(int32(v.Char()))
	case KindShort:
		return vm.IntValue(int32(v.Short()))
	case KindLong:
		return vm.LongValue(int64(v.Long()))
	case KindFloat:
		return vm.FloatValue(float32(v.Float()))
	case KindDouble:
		return vm.DoubleValue(float64(v.Double()))
	default:
		return vm.IntValue(int32(v.Int()))
	}
}

// primitiveFromVM narrows an interpreter value to kind k.
func primitiveFromVM(k Kind, v vm.Value) Value {
	switch k {
	case KindBoolean:
		if v.Int != 0 {
			return BooleanValue(True)
		}
		return BooleanValue(False)
	case KindByte:
		return ByteValue(Byte(v.Int))
	case KindChar:
		return CharValue(Char(v.Int))
	case KindShort:
		return ShortValue(Short(v.Int))
	case KindLong:
		return LongValue(Long(v.Long))
	case KindFloat:
		return FloatValue(Float(v.Float))
	case KindDouble:
		return DoubleValue(Double(v.Double))
	default:
		return IntValue(Int(v.Int))
	}
}
