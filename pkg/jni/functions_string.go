package jni

import (
	"unicode/utf16"
	"unsafe"

	"github.com/daimatz/gojni/pkg/classfile"
	"github.com/daimatz/gojni/pkg/vm"
)

// decodeString resolves a handle that must denote a java.lang.String.
func (e *Env) decodeString(h String, fn string) (*vm.JString, bool) {
	ref, ok := e.decodeNonNull(h, fn, "string")
	if !ok {
		return nil, false
	}
	s, isString := ref.(*vm.JString)
	if !isString {
		e.violation(fn, "%s is not a java.lang.String", e.jvm.rt.ClassOf(ref).JavaName())
		return nil, false
	}
	return s, true
}

// stringRange checks a substring request. Out-of-range requests raise
// StringIndexOutOfBoundsException.
func (e *Env) stringRange(s *vm.JString, start, length Size) bool {
	if start < 0 || length < 0 || int(start)+int(length) > s.Len() {
		e.throwNew("java/lang/StringIndexOutOfBoundsException",
			"String region %d..%d out of bounds for length %d", start, int(start)+int(length), s.Len())
		return false
	}
	return true
}

func sliceKey[T any](buf []T) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}

func newString(env *Env, unicodeChars []Char) String {
	if !env.enter("NewString") {
		return 0
	}
	units := make([]uint16, len(unicodeChars))
	for i, c := range unicodeChars {
		units[i] = uint16(c)
	}
	return env.newLocal(vm.NewJStringUTF16(units))
}

func getStringLength(env *Env, str String) Size {
	const fn = "GetStringLength"
	if !env.enter(fn) {
		return 0
	}
	s, ok := env.decodeString(str, fn)
	if !ok {
		return 0
	}
	return Size(s.Len())
}

// charsOf copies the code units of s into a buffer with room for a
// terminating zero.
func charsOf(s *vm.JString) []Char {
	units := s.UTF16()
	buf := make([]Char, len(units), len(units)+1)
	for i, u := range units {
		buf[i] = Char(u)
	}
	return buf
}

func getStringChars(env *Env, str String, isCopy *Boolean) []Char {
	const fn = "GetStringChars"
	if !env.enter(fn) {
		return nil
	}
	s, ok := env.decodeString(str, fn)
	if !ok {
		return nil
	}
	buf := charsOf(s)
	env.acquire(sliceKey(buf), &acquisition{release: "ReleaseStringChars", ref: s, buf: buf})
	if isCopy != nil {
		*isCopy = True
	}
	return buf
}

func releaseStringChars(env *Env, str String, chars []Char) {
	const fn = "ReleaseStringChars"
	if !env.enter(fn) {
		return
	}
	env.releaseString(fn, str, sliceKey(chars))
}

// releaseString returns a string buffer acquired by one of the Get entries.
func (e *Env) releaseString(fn string, str String, key uintptr) bool {
	s, ok := e.decodeString(str, fn)
	if !ok {
		return false
	}
	if _, ok := e.acquisitionFor(fn, key, s); !ok {
		return false
	}
	e.dropAcquisition(key)
	return true
}

// decodeUTF converts modified UTF-8 to code units. Input that is not
// modified UTF-8, such as a Go string with a raw NUL or a supplementary
// character in four-byte form, is read as standard UTF-8.
func decodeUTF(b string) []uint16 {
	units, err := classfile.DecodeModifiedUTF8Units([]byte(b))
	if err != nil {
		return utf16.Encode([]rune(b))
	}
	return units
}

func newStringUTF(env *Env, bytes string) String {
	if !env.enter("NewStringUTF") {
		return 0
	}
	return env.newLocal(vm.NewJStringUTF16(decodeUTF(bytes)))
}

func getStringUTFLength(env *Env, str String) Size {
	const fn = "GetStringUTFLength"
	if !env.enter(fn) {
		return 0
	}
	s, ok := env.decodeString(str, fn)
	if !ok {
		return 0
	}
	return Size(classfile.ModifiedUTF8Length(s.UTF16()))
}

// utfOf encodes s in modified UTF-8 followed by a NUL that lies just past
// the returned slice's length.
func utfOf(s *vm.JString) []byte {
	enc := classfile.EncodeModifiedUTF8Units(s.UTF16())
	buf := make([]byte, len(enc)+1)
	copy(buf, enc)
	return buf[:len(enc)]
}

// getStringUTFChars returns a fresh modified UTF-8 copy of the string.
// The byte after the last element is zero.
func getStringUTFChars(env *Env, str String, isCopy *Boolean) []byte {
	const fn = "GetStringUTFChars"
	if !env.enter(fn) {
		return nil
	}
	s, ok := env.decodeString(str, fn)
	if !ok {
		return nil
	}
	buf := utfOf(s)
	env.acquire(sliceKey(buf), &acquisition{release: "ReleaseStringUTFChars", ref: s, buf: buf})
	if isCopy != nil {
		*isCopy = True
	}
	return buf
}

// releaseStringUTFChars returns a buffer obtained from GetStringUTFChars.
// Releasing nil does nothing.
func releaseStringUTFChars(env *Env, str String, utf []byte) {
	const fn = "ReleaseStringUTFChars"
	if !env.enter(fn) || utf == nil {
		return
	}
	env.releaseString(fn, str, sliceKey(utf))
}

func getStringRegion(env *Env, str String, start, length Size, buf []Char) {
	const fn = "GetStringRegion"
	if !env.enter(fn) {
		return
	}
	s, ok := env.decodeString(str, fn)
	if !ok || !env.stringRange(s, start, length) {
		return
	}
	if len(buf) < int(length) {
		env.violation(fn, "buffer of %d chars cannot hold %d", len(buf), length)
		return
	}
	for i, u := range s.UTF16()[start : start+length] {
		buf[i] = Char(u)
	}
}

// getStringUTFRegion encodes a range of UTF-16 units into buf and
// terminates it with a NUL when there is room.
func getStringUTFRegion(env *Env, str String, start, length Size, buf []byte) {
	const fn = "GetStringUTFRegion"
	if !env.enter(fn) {
		return
	}
	s, ok := env.decodeString(str, fn)
	if !ok || !env.stringRange(s, start, length) {
		return
	}
	enc := classfile.EncodeModifiedUTF8Units(s.UTF16()[start : start+length])
	if len(buf) < len(enc) {
		env.violation(fn, "buffer of %d bytes cannot hold %d", len(buf), len(enc))
		return
	}
	n := copy(buf, enc)
	if n < len(buf) {
		buf[n] = 0
	}
}

// getStringCritical is GetStringChars inside a critical region.
func getStringCritical(env *Env, str String, isCopy *Boolean) []Char {
	const fn = "GetStringCritical"
	if !env.enter(fn) {
		return nil
	}
	s, ok := env.decodeString(str, fn)
	if !ok {
		return nil
	}
	buf := charsOf(s)
	env.acquire(sliceKey(buf), &acquisition{release: "ReleaseStringCritical", ref: s, buf: buf})
	env.critical++
	if isCopy != nil {
		*isCopy = True
	}
	return buf
}

func releaseStringCritical(env *Env, str String, carray []Char) {
	const fn = "ReleaseStringCritical"
	if !env.enter(fn) {
		return
	}
	if env.releaseString(fn, str, sliceKey(carray)) {
		env.critical--
	}
}
