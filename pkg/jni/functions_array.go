package jni

import (
	"unsafe"

	"github.com/daimatz/gojni/pkg/vm"
)

// decodeArray resolves a handle that must denote an array. When elem is
// not zero the array's component type must be that primitive kind.
func (e *Env) decodeArray(h Array, fn string, elem Kind) (*vm.JArray, bool) {
	ref, ok := e.decodeNonNull(h, fn, "array")
	if !ok {
		return nil, false
	}
	a, isArray := ref.(*vm.JArray)
	if !isArray {
		e.violation(fn, "%s is not an array", e.jvm.rt.ClassOf(ref).JavaName())
		return nil, false
	}
	if elem != 0 && kindOf(a.ElementType()) != elem {
		e.violation(fn, "%s is not an array of %s", a.Type, elem)
		return nil, false
	}
	return a, true
}

func (e *Env) arrayIndex(a *vm.JArray, index Size) bool {
	if index < 0 || int(index) >= len(a.Elements) {
		e.throwNew("java/lang/ArrayIndexOutOfBoundsException",
			"Index %d out of bounds for length %d", index, len(a.Elements))
		return false
	}
	return true
}

func (e *Env) arrayRange(a *vm.JArray, start, length Size) bool {
	if start < 0 || length < 0 || int(start)+int(length) > len(a.Elements) {
		e.throwNew("java/lang/ArrayIndexOutOfBoundsException",
			"Array region %d..%d out of bounds for length %d", start, int(start)+int(length), len(a.Elements))
		return false
	}
	return true
}

// storeCheck raises ArrayStoreException when ref cannot be stored in a.
func (e *Env) storeCheck(a *vm.JArray, ref interface{}) bool {
	if ref == nil {
		return true
	}
	c, err := e.jvm.rt.LoadClass(vm.ClassNameOf(a.ElementType()))
	if err != nil {
		e.throw(err)
		return false
	}
	if !e.jvm.rt.IsInstanceOf(ref, c) {
		e.throwNew("java/lang/ArrayStoreException", "%s", e.jvm.rt.ClassOf(ref).JavaName())
		return false
	}
	return true
}

func getArrayLength(env *Env, array Array) Size {
	const fn = "GetArrayLength"
	if !env.enter(fn) {
		return 0
	}
	a, ok := env.decodeArray(array, fn, 0)
	if !ok {
		return 0
	}
	return Size(len(a.Elements))
}

func newObjectArray(env *Env, length Size, elementClass Class, initialElement Object) Array {
	const fn = "NewObjectArray"
	if !env.enter(fn) {
		return 0
	}
	c, ok := env.decodeClass(elementClass, fn)
	if !ok {
		return 0
	}
	init, ok := env.decode(initialElement, fn)
	if !ok {
		return 0
	}
	if length < 0 {
		env.throwNew("java/lang/NegativeArraySizeException", "%d", length)
		return 0
	}
	a := vm.NewArray("["+vm.Descriptor(c.Name), int(length))
	if !env.storeCheck(a, init) {
		return 0
	}
	if init != nil {
		for i := range a.Elements {
			a.Elements[i] = vm.RefValue(init)
		}
	}
	return env.newLocal(a)
}

func getObjectArrayElement(env *Env, array Array, index Size) Object {
	const fn = "GetObjectArrayElement"
	if !env.enter(fn) {
		return 0
	}
	a, ok := env.decodeArray(array, fn, KindObject)
	if !ok || !env.arrayIndex(a, index) {
		return 0
	}
	return env.fromVM(KindObject, a.Elements[index]).Object()
}

func setObjectArrayElement(env *Env, array Array, index Size, value Object) {
	const fn = "SetObjectArrayElement"
	if !env.enter(fn) {
		return
	}
	a, ok := env.decodeArray(array, fn, KindObject)
	if !ok {
		return
	}
	ref, ok := env.decode(value, fn)
	if !ok || !env.arrayIndex(a, index) || !env.storeCheck(a, ref) {
		return
	}
	a.Elements[index] = vm.RefValue(ref)
}

func newArray[T primitive](fn string) func(*Env, Size) Array {
	return func(env *Env, length Size) Array {
		if !env.enter(fn) {
			return 0
		}
		if length < 0 {
			env.throwNew("java/lang/NegativeArraySizeException", "%d", length)
			return 0
		}
		return env.newLocal(vm.NewArray("["+string(rune(kindFor[T]())), int(length)))
	}
}

// elementsOf copies a primitive array into a buffer with one spare
// element, so even an empty copy has a distinct address.
func elementsOf[T primitive](a *vm.JArray) []T {
	k := kindFor[T]()
	buf := make([]T, len(a.Elements), len(a.Elements)+1)
	for i, v := range a.Elements {
		buf[i] = valueAs[T](primitiveFromVM(k, v))
	}
	return buf
}

func storeElements[T primitive](a *vm.JArray, buf []T) {
	for i := range a.Elements {
		if i >= len(buf) {
			return
		}
		a.Elements[i] = primitiveToVM(valueOf(buf[i]))
	}
}

// pinElements hands out a copy of a that release writes back.
func pinElements[T primitive](e *Env, release string, a *vm.JArray) []T {
	buf := elementsOf[T](a)
	e.acquire(sliceKey(buf), &acquisition{
		release: release,
		ref:     a,
		buf:     buf,
		commit:  func() { storeElements(a, buf) },
	})
	return buf
}

// releaseBuffer applies a release mode to an acquired array buffer: 0
// copies back and frees, Commit copies back and keeps the buffer, Abort
// frees without copying.
func (e *Env) releaseBuffer(fn string, key uintptr, ref interface{}, mode Int) bool {
	acq, ok := e.acquisitionFor(fn, key, ref)
	if !ok {
		return false
	}
	switch mode {
	case 0:
		acq.commit()
		e.dropAcquisition(key)
	case Commit:
		acq.commit()
	case Abort:
		e.dropAcquisition(key)
	default:
		e.violation(fn, "unknown release mode %d", mode)
		return false
	}
	return true
}

func getArrayElements[T primitive](fn, release string) func(*Env, Array, *Boolean) []T {
	return func(env *Env, array Array, isCopy *Boolean) []T {
		if !env.enter(fn) {
			return nil
		}
		a, ok := env.decodeArray(array, fn, kindFor[T]())
		if !ok {
			return nil
		}
		if isCopy != nil {
			*isCopy = True
		}
		return pinElements[T](env, release, a)
	}
}

func releaseArrayElements[T primitive](fn string) func(*Env, Array, []T, Int) {
	return func(env *Env, array Array, elems []T, mode Int) {
		if !env.enter(fn) {
			return
		}
		a, ok := env.decodeArray(array, fn, kindFor[T]())
		if !ok {
			return
		}
		env.releaseBuffer(fn, sliceKey(elems), a, mode)
	}
}

func getArrayRegion[T primitive](fn string) func(*Env, Array, Size, Size, []T) {
	return func(env *Env, array Array, start, length Size, buf []T) {
		if !env.enter(fn) {
			return
		}
		k := kindFor[T]()
		a, ok := env.decodeArray(array, fn, k)
		if !ok || !env.arrayRange(a, start, length) {
			return
		}
		if len(buf) < int(length) {
			env.violation(fn, "buffer of %d elements cannot hold %d", len(buf), length)
			return
		}
		for i, v := range a.Elements[start : start+length] {
			buf[i] = valueAs[T](primitiveFromVM(k, v))
		}
	}
}

func setArrayRegion[T primitive](fn string) func(*Env, Array, Size, Size, []T) {
	return func(env *Env, array Array, start, length Size, buf []T) {
		if !env.enter(fn) {
			return
		}
		a, ok := env.decodeArray(array, fn, kindFor[T]())
		if !ok || !env.arrayRange(a, start, length) {
			return
		}
		if len(buf) < int(length) {
			env.violation(fn, "buffer of %d elements is shorter than %d", len(buf), length)
			return
		}
		for i := range a.Elements[start : start+length] {
			a.Elements[int(start)+i] = primitiveToVM(valueOf(buf[i]))
		}
	}
}

// getPrimitiveArrayCritical returns a pointer to a copy of a primitive
// array's elements and opens a critical region.
func getPrimitiveArrayCritical(env *Env, array Array, isCopy *Boolean) unsafe.Pointer {
	const fn = "GetPrimitiveArrayCritical"
	if !env.enter(fn) {
		return nil
	}
	a, ok := env.decodeArray(array, fn, 0)
	if !ok {
		return nil
	}
	const release = "ReleasePrimitiveArrayCritical"
	var p unsafe.Pointer
	switch kindOf(a.ElementType()) {
	case KindBoolean:
		p = unsafe.Pointer(unsafe.SliceData(pinElements[Boolean](env, release, a)))
	case KindByte:
		p = unsafe.Pointer(unsafe.SliceData(pinElements[Byte](env, release, a)))
	case KindChar:
		p = unsafe.Pointer(unsafe.SliceData(pinElements[Char](env, release, a)))
	case KindShort:
		p = unsafe.Pointer(unsafe.SliceData(pinElements[Short](env, release, a)))
	case KindInt:
		p = unsafe.Pointer(unsafe.SliceData(pinElements[Int](env, release, a)))
	case KindLong:
		p = unsafe.Pointer(unsafe.SliceData(pinElements[Long](env, release, a)))
	case KindFloat:
		p = unsafe.Pointer(unsafe.SliceData(pinElements[Float](env, release, a)))
	case KindDouble:
		p = unsafe.Pointer(unsafe.SliceData(pinElements[Double](env, release, a)))
	default:
		env.violation(fn, "%s is not a primitive array", a.Type)
		return nil
	}
	env.critical++
	if isCopy != nil {
		*isCopy = True
	}
	return p
}

func releasePrimitiveArrayCritical(env *Env, array Array, carray unsafe.Pointer, mode Int) {
	const fn = "ReleasePrimitiveArrayCritical"
	if !env.enter(fn) {
		return
	}
	a, ok := env.decodeArray(array, fn, 0)
	if !ok {
		return
	}
	if env.releaseBuffer(fn, uintptr(carray), a, mode) && mode != Commit {
		env.critical--
	}
}
