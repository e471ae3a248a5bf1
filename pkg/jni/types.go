// Package jni implements the Java Native Interface over the gojni virtual
// machine: the per-thread function table (Env), the invocation interface
// (JavaVM), opaque reference handles, the Java_ symbol convention and the
// loading of native libraries written in Go or C.
package jni

import (
	"errors"
	"strconv"
)

// Primitive types with the sizes fixed by the native interface.
type (
	Boolean uint8
	Byte    int8
	Char    uint16
	Short   int16
	Int     int32
	Long    int64
	Float   float32
	Double  float64
	Size    = Int
)

// Boolean values.
const (
	False Boolean = 0
	True  Boolean = 1
)

// Object is an opaque reference handle. The zero handle is null. Handles
// are indexes into tables held by the VM, never Go pointers.
type Object uintptr

// Reference handle aliases. As in C they are interchangeable with Object.
type (
	Class     = Object
	String    = Object
	Array     = Object
	Throwable = Object
	Weak      = Object
)

// MethodID and FieldID identify resolved members. Zero means failure.
type (
	MethodID uintptr
	FieldID  uintptr
)

// ObjectRefType is the kind of a reference handle.
type ObjectRefType int32

const (
	InvalidRefType ObjectRefType = iota
	LocalRefType
	GlobalRefType
	WeakGlobalRefType
)

func (t ObjectRefType) String() string {
	switch t {
	case LocalRefType:
		return "local"
	case GlobalRefType:
		return "global"
	case WeakGlobalRefType:
		return "weak global"
	default:
		return "invalid"
	}
}

// Status codes returned by the invocation interface and a few table entries.
const (
	OK        Int = 0
	Err       Int = -1
	EDetached Int = -2
	EVersion  Int = -3
	ENoMem    Int = -4
	EExist    Int = -5
	EInval    Int = -6
)

// Interface versions. Each is a superset of the previous one.
const (
	Version1_1 Int = 0x00010001
	Version1_2 Int = 0x00010002
	Version1_4 Int = 0x00010004
	Version1_6 Int = 0x00010006
	Version1_8 Int = 0x00010008
	Version9   Int = 0x00090000
	Version10  Int = 0x000a0000
	Version11  Int = 0x000b0000
	Version17  Int = 0x00110000

	// LatestVersion is the newest version the VM implements.
	LatestVersion = Version17
)

var supportedVersions = []Int{
	Version1_1, Version1_2, Version1_4, Version1_6, Version1_8,
	Version9, Version10, Version11, Version17,
}

// SupportedVersion reports whether v is a version constant the VM implements.
func SupportedVersion(v Int) bool {
	for _, s := range supportedVersions {
		if s == v {
			return true
		}
	}
	return false
}

// VersionString renders a version constant as "1.6" or "17".
func VersionString(v Int) string {
	major, minor := v>>16, v&0xffff
	if major == 1 {
		return "1." + strconv.Itoa(int(minor))
	}
	return strconv.Itoa(int(major))
}

// ParseVersion is the inverse of VersionString.
func ParseVersion(s string) (Int, bool) {
	for _, v := range supportedVersions {
		if VersionString(v) == s {
			return v, true
		}
	}
	return 0, false
}

// Release modes for Release<Type>ArrayElements and
// ReleasePrimitiveArrayCritical.
const (
	Commit Int = 1
	Abort  Int = 2
)

// NativeMethod describes one entry passed to RegisterNatives. Fn is a
// Symbol, a Go function with the signature a GoLibrary export would have,
// or the address of a C function.
type NativeMethod struct {
	Name      string
	Signature string
	Fn        interface{}
}

// AttachArgs are the optional arguments of AttachCurrentThread.
type AttachArgs struct {
	Version Int
	Name    string
	Group   Object
}

// Sentinel errors returned by Go-side constructors.
var (
	ErrUnsupportedVersion = errors.New("unsupported JNI version")
	ErrShutdown           = errors.New("java VM is shutting down")
	ErrNoCInterface       = errors.New("C native interface not available on this platform")
)
