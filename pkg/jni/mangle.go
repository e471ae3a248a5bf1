package jni

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

// mangle escapes one component of a native symbol name. ASCII letters and
// digits are kept, '/' becomes '_' and everything else is escaped.
func mangle(sb *strings.Builder, s string) {
	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u < 0x80 && (u >= 'a' && u <= 'z' || u >= 'A' && u <= 'Z' || u >= '0' && u <= '9'):
			sb.WriteByte(byte(u))
		case u == '/':
			sb.WriteByte('_')
		case u == '_':
			sb.WriteString("_1")
		case u == ';':
			sb.WriteString("_2")
		case u == '[':
			sb.WriteString("_3")
		default:
			fmt.Fprintf(sb, "_0%04x", u)
		}
	}
}

// ShortName returns the symbol a native method is looked up by first:
// "Java_", the mangled internal class name, '_' and the mangled method name.
//
// The mapping is injective only for Java identifiers. A name component that
// starts with a digit 0 to 3 reads like an escape once the preceding '/'
// becomes '_': ShortName("a/1b", "m") and ShortName("a_b", "m") are both
// "Java_a_1b_m". GenerateHeader rejects such names.
func ShortName(class, method string) string {
	var sb strings.Builder
	sb.WriteString("Java_")
	mangle(&sb, class)
	sb.WriteByte('_')
	mangle(&sb, method)
	return sb.String()
}

// escapeLike reports whether a component of name starts with a digit that
// would make its mangled form look like an escape sequence.
func escapeLike(name string) bool {
	for _, part := range strings.Split(name, "/") {
		if part != "" && part[0] >= '0' && part[0] <= '3' {
			return true
		}
	}
	return false
}

// LongName returns the symbol used for overloaded native methods: the short
// name, "__" and the mangled argument types of descriptor.
func LongName(class, method, descriptor string) string {
	args := descriptor
	if i := strings.IndexByte(descriptor, ')'); strings.HasPrefix(descriptor, "(") && i > 0 {
		args = descriptor[1:i]
	}
	var sb strings.Builder
	sb.WriteString(ShortName(class, method))
	sb.WriteString("__")
	mangle(&sb, args)
	return sb.String()
}

// NativeName is a decoded native symbol.
type NativeName struct {
	Class  string // internal name, e.g. "java/lang/Object"
	Method string
	Args   string // argument descriptors without parentheses
	Long   bool
}

func (n NativeName) String() string {
	if n.Long {
		return LongName(n.Class, n.Method, "("+n.Args+")")
	}
	return ShortName(n.Class, n.Method)
}

// ParseSymbol decodes a short or long native symbol name.
func ParseSymbol(sym string) (NativeName, error) {
	body, ok := strings.CutPrefix(sym, "Java_")
	if !ok {
		return NativeName{}, fmt.Errorf("symbol %q: missing Java_ prefix", sym)
	}
	segs, err := splitMangled(body)
	if err != nil {
		return NativeName{}, fmt.Errorf("symbol %q: %w", sym, err)
	}
	var n NativeName
	for i, s := range segs {
		if s == "" {
			n.Long = true
			n.Args = strings.Join(segs[i+1:], "/")
			segs = segs[:i]
			break
		}
	}
	if len(segs) < 2 {
		return NativeName{}, fmt.Errorf("symbol %q: no method name", sym)
	}
	n.Class = strings.Join(segs[:len(segs)-1], "/")
	n.Method = segs[len(segs)-1]
	return n, nil
}

// splitMangled undoes mangle, splitting at every unescaped '_'. An empty
// segment marks the "__" before the argument types.
func splitMangled(s string) ([]string, error) {
	var (
		segs  []string
		units []uint16
	)
	flush := func() {
		segs = append(segs, string(utf16.Decode(units)))
		units = units[:0]
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' {
			if c >= 0x80 {
				return nil, fmt.Errorf("non-ASCII byte at offset %d", i)
			}
			units = append(units, uint16(c))
			continue
		}
		if i+1 == len(s) {
			flush()
			continue
		}
		switch s[i+1] {
		case '0':
			if i+6 > len(s) {
				return nil, fmt.Errorf("truncated escape at offset %d", i)
			}
			u, err := strconv.ParseUint(s[i+2:i+6], 16, 16)
			if err != nil {
				return nil, fmt.Errorf("bad escape at offset %d: %w", i, err)
			}
			units = append(units, uint16(u))
			i += 5
		case '1':
			units = append(units, '_')
			i++
		case '2':
			units = append(units, ';')
			i++
		case '3':
			units = append(units, '[')
			i++
		default:
			flush()
		}
	}
	flush()
	return segs, nil
}
