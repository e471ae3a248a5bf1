package classfile

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// EncodeModifiedUTF8 encodes s in the JVM's modified UTF-8: NUL is written as
// the two-byte sequence C0 80 and supplementary characters are written as a
// surrogate pair, each half encoded in three bytes.
func EncodeModifiedUTF8(s string) []byte {
	return EncodeModifiedUTF8Units(utf16.Encode([]rune(s)))
}

// EncodeModifiedUTF8Units encodes a sequence of UTF-16 code units.
func EncodeModifiedUTF8Units(units []uint16) []byte {
	out := make([]byte, 0, ModifiedUTF8Length(units))
	for _, u := range units {
		switch {
		case u != 0 && u < 0x80:
			out = append(out, byte(u))
		case u < 0x800:
			out = append(out, 0xC0|byte(u>>6), 0x80|byte(u&0x3F))
		default:
			out = append(out, 0xE0|byte(u>>12), 0x80|byte((u>>6)&0x3F), 0x80|byte(u&0x3F))
		}
	}
	return out
}

// ModifiedUTF8Length returns the number of bytes EncodeModifiedUTF8Units
// produces for units, not counting a terminator.
func ModifiedUTF8Length(units []uint16) int {
	n := 0
	for _, u := range units {
		switch {
		case u != 0 && u < 0x80:
			n++
		case u < 0x800:
			n += 2
		default:
			n += 3
		}
	}
	return n
}

// DecodeModifiedUTF8Units decodes modified UTF-8 into UTF-16 code units.
func DecodeModifiedUTF8Units(b []byte) ([]uint16, error) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			if c == 0 {
				return nil, fmt.Errorf("modified UTF-8: raw NUL at offset %d", i)
			}
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return nil, fmt.Errorf("modified UTF-8: truncated 2-byte sequence at offset %d", i)
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return nil, fmt.Errorf("modified UTF-8: truncated 3-byte sequence at offset %d", i)
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return nil, fmt.Errorf("modified UTF-8: invalid lead byte 0x%02X at offset %d", c, i)
		}
	}
	return units, nil
}

// DecodeModifiedUTF8 decodes modified UTF-8 into a Go string. Unpaired
// surrogates become U+FFFD.
func DecodeModifiedUTF8(b []byte) (string, error) {
	// Fast path: plain ASCII without NUL is identical in both encodings.
	ascii := true
	for _, c := range b {
		if c == 0 || c >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b), nil
	}
	units, err := DecodeModifiedUTF8Units(b)
	if err != nil {
		return "", err
	}
	return string(utf16.Decode(units)), nil
}
