package vm

import (
	"fmt"
	"strings"
)

// MethodType is a parsed method descriptor.
type MethodType struct {
	Params []string // field descriptors, e.g. "I", "Ljava/lang/String;", "[J"
	Return string   // field descriptor or "V"
}

// ParseMethodDescriptor splits a descriptor such as "(I[JLjava/lang/String;)V".
func ParseMethodDescriptor(descriptor string) (MethodType, error) {
	if !strings.HasPrefix(descriptor, "(") {
		return MethodType{}, fmt.Errorf("invalid method descriptor: %s", descriptor)
	}
	end := strings.IndexByte(descriptor, ')')
	if end == -1 {
		return MethodType{}, fmt.Errorf("invalid method descriptor: %s", descriptor)
	}

	var mt MethodType
	params := descriptor[1:end]
	for i := 0; i < len(params); {
		n, err := fieldDescriptorLen(params[i:])
		if err != nil {
			return MethodType{}, fmt.Errorf("%w in %s", err, descriptor)
		}
		mt.Params = append(mt.Params, params[i:i+n])
		i += n
	}

	ret := descriptor[end+1:]
	if ret != "V" {
		n, err := fieldDescriptorLen(ret)
		if err != nil || n != len(ret) {
			return MethodType{}, fmt.Errorf("invalid return type in %s", descriptor)
		}
	}
	mt.Return = ret
	return mt, nil
}

// fieldDescriptorLen returns the length of the field descriptor at the start of s.
func fieldDescriptorLen(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0, fmt.Errorf("truncated type descriptor")
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1, nil
	case 'L':
		semi := strings.IndexByte(s[i:], ';')
		if semi <= 1 {
			return 0, fmt.Errorf("unterminated class type descriptor")
		}
		return i + semi + 1, nil
	default:
		return 0, fmt.Errorf("invalid type descriptor char '%c'", s[i])
	}
}

// ValidFieldDescriptor reports whether s is exactly one field descriptor.
func ValidFieldDescriptor(s string) bool {
	n, err := fieldDescriptorLen(s)
	return err == nil && n == len(s)
}

// IsReferenceDescriptor reports whether a field descriptor denotes a reference type.
func IsReferenceDescriptor(desc string) bool {
	return desc != "" && (desc[0] == 'L' || desc[0] == '[')
}

// ClassNameOf returns the class name a reference descriptor denotes:
// "Ljava/lang/String;" gives "java/lang/String", array descriptors are returned unchanged.
func ClassNameOf(desc string) string {
	if strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";") {
		return desc[1 : len(desc)-1]
	}
	return desc
}

// Descriptor returns the field descriptor of a class name. Array class
// names are already descriptors.
func Descriptor(className string) string {
	if strings.HasPrefix(className, "[") {
		return className
	}
	return "L" + className + ";"
}

// ZeroValue returns the default value of a field with the given descriptor.
func ZeroValue(desc string) Value {
	if desc == "" {
		return NullValue()
	}
	switch desc[0] {
	case 'J':
		return LongValue(0)
	case 'F':
		return FloatValue(0)
	case 'D':
		return DoubleValue(0)
	case 'L', '[':
		return NullValue()
	default:
		return IntValue(0)
	}
}

// isVoidReturn checks if a method descriptor has void return type.
func isVoidReturn(descriptor string) bool {
	return strings.HasSuffix(descriptor, ")V")
}
