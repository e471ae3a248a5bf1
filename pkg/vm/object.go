package vm

import (
	"sync"
	"unicode/utf16"
)

// JObject represents a JVM object instance.
type JObject struct {
	Class  *Class
	Fields map[string]Value
	mu     sync.RWMutex
}

// ClassName returns the internal name of the object's class.
func (o *JObject) ClassName() string {
	if o.Class == nil {
		return ""
	}
	return o.Class.Name
}

// GetField returns the named field, or the zero value for desc if unset.
func (o *JObject) GetField(name, desc string) Value {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if v, ok := o.Fields[name]; ok {
		return v
	}
	return ZeroValue(desc)
}

// SetField stores a field value.
func (o *JObject) SetField(name string, v Value) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Fields == nil {
		o.Fields = make(map[string]Value)
	}
	o.Fields[name] = v
}

// JArray represents a JVM array. Type is the array descriptor, e.g. "[I".
type JArray struct {
	Type     string
	Elements []Value
}

// ElementType returns the component descriptor.
func (a *JArray) ElementType() string {
	if len(a.Type) < 2 {
		return ""
	}
	return a.Type[1:]
}

// NewArray allocates an array of the given descriptor filled with zero values.
func NewArray(desc string, length int) *JArray {
	elems := make([]Value, length)
	zero := ZeroValue(desc[1:])
	for i := range elems {
		elems[i] = zero
	}
	return &JArray{Type: desc, Elements: elems}
}

// JString represents a java.lang.String. Its content is kept as UTF-16 code
// units so strings that are not valid Unicode survive unchanged.
type JString struct {
	chars []uint16
}

// NewJString creates a string from Go text.
func NewJString(s string) *JString {
	return &JString{chars: utf16.Encode([]rune(s))}
}

// NewJStringUTF16 creates a string from UTF-16 code units. The slice is copied.
func NewJStringUTF16(units []uint16) *JString {
	c := make([]uint16, len(units))
	copy(c, units)
	return &JString{chars: c}
}

// UTF16 returns the string's code units. Callers must not modify the result.
func (s *JString) UTF16() []uint16 {
	return s.chars
}

// Len returns the length in UTF-16 code units.
func (s *JString) Len() int {
	return len(s.chars)
}

func (s *JString) String() string {
	return string(utf16.Decode(s.chars))
}

// HashKey makes equal strings collide as java.util.HashMap keys.
func (s *JString) HashKey() interface{} {
	return s.String()
}

// Equal reports whether two strings have the same content.
func (s *JString) Equal(o *JString) bool {
	if len(s.chars) != len(o.chars) {
		return false
	}
	for i := range s.chars {
		if s.chars[i] != o.chars[i] {
			return false
		}
	}
	return true
}

// HashCode computes java.lang.String.hashCode.
func (s *JString) HashCode() int32 {
	var h int32
	for _, c := range s.chars {
		h = 31*h + int32(c)
	}
	return h
}
