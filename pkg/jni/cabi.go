//go:build (darwin || linux) && (amd64 || arm64)

package jni

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// The C function tables. JNIEnv and JavaVM cells are allocated with libc
// and hold the address of one of these arrays; Go globals never move.
var (
	cTablesOnce  sync.Once
	cTablesErr   error
	cNativeTable [SlotCount]uintptr
	cInvokeTable [8]uintptr

	cEnvs sync.Map // JNIEnv cell -> *Env
	cVMs  sync.Map // JavaVM cell -> *JavaVM
)

var libc struct {
	calloc func(n, size uintptr) unsafe.Pointer
	free   func(p unsafe.Pointer)
}

func libcPath() string {
	if runtime.GOOS == "darwin" {
		return "/usr/lib/libSystem.B.dylib"
	}
	return "libc.so.6"
}

// ensureCTables builds the C function tables on first use.
func ensureCTables() error {
	cTablesOnce.Do(func() {
		h, err := purego.Dlopen(libcPath(), purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			cTablesErr = fmt.Errorf("opening libc: %w", err)
			return
		}
		purego.RegisterLibFunc(&libc.calloc, h, "calloc")
		purego.RegisterLibFunc(&libc.free, h, "free")
		buildNativeTable()
		buildInvokeTable()
	})
	return cTablesErr
}

func cAlloc(size uintptr) unsafe.Pointer {
	if size == 0 {
		size = 1
	}
	p := libc.calloc(1, size)
	if p == nil {
		panic(fmt.Sprintf("jni: out of C memory allocating %d bytes", size))
	}
	return p
}

const ptrSize = unsafe.Sizeof(uintptr(0))

// cPointer returns the JNIEnv* C code reaches e through.
func (e *Env) cPointer() uintptr {
	if e.cell == 0 {
		if err := ensureCTables(); err != nil {
			panic("jni: " + err.Error())
		}
		cell := cAlloc(ptrSize)
		*(*uintptr)(cell) = uintptr(unsafe.Pointer(&cNativeTable))
		e.cell = uintptr(cell)
		cEnvs.Store(e.cell, e)
	}
	return e.cell
}

func (e *Env) freeCell() {
	if e.cell == 0 {
		return
	}
	cEnvs.Delete(e.cell)
	libc.free(unsafe.Pointer(e.cell))
	e.cell = 0
}

// cPointer returns the JavaVM* C code reaches jvm through.
func (jvm *JavaVM) cPointer() uintptr {
	jvm.mu.Lock()
	defer jvm.mu.Unlock()
	if jvm.cell == 0 {
		if err := ensureCTables(); err != nil {
			panic("jni: " + err.Error())
		}
		cell := cAlloc(ptrSize)
		*(*uintptr)(cell) = uintptr(unsafe.Pointer(&cInvokeTable))
		jvm.cell = uintptr(cell)
		cVMs.Store(jvm.cell, jvm)
	}
	return jvm.cell
}

func (jvm *JavaVM) freeCell() {
	jvm.mu.Lock()
	defer jvm.mu.Unlock()
	if jvm.cell == 0 {
		return
	}
	cVMs.Delete(jvm.cell)
	libc.free(unsafe.Pointer(jvm.cell))
	jvm.cell = 0
}

// cEnter maps a JNIEnv* received from C to its environment.
func cEnter(cenv uintptr, slot int) *Env {
	e, ok := cEnvs.Load(cenv)
	if !ok {
		panic(fmt.Sprintf("jni: %s called through unknown JNIEnv %#x", SlotName(slot), cenv))
	}
	return e.(*Env)
}

func cVM(cvm uintptr, fn string) *JavaVM {
	jvm, ok := cVMs.Load(cvm)
	if !ok {
		panic(fmt.Sprintf("jni: %s called through unknown JavaVM %#x", fn, cvm))
	}
	return jvm.(*JavaVM)
}

// goString copies a NUL-terminated C string.
func goString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}

// cSlice views n elements of C memory at p. It returns nil for a null
// pointer or a negative length.
func cSlice[T any](p unsafe.Pointer, n Size) []T {
	if p == nil || n < 0 {
		return nil
	}
	if n == 0 {
		return unsafe.Slice((*T)(p), 1)[:0]
	}
	return unsafe.Slice((*T)(p), n)
}

// cKey rebuilds the slice handed out for a C buffer so its key matches
// the acquisition exportBuffer registered.
func cKey[T any](p unsafe.Pointer) []T {
	if p == nil {
		return nil
	}
	return unsafe.Slice((*T)(p), 1)
}

// exportBuffer moves an acquired Go buffer to C memory. The C copy is
// written back before each commit and freed with the acquisition.
func (e *Env) exportBuffer(key uintptr) unsafe.Pointer {
	a, ok := e.acquired[key]
	if !ok {
		return nil
	}
	rv := reflect.ValueOf(a.buf)
	elem := rv.Type().Elem().Size()
	size := uintptr(rv.Len()) * elem
	p := cAlloc(size + elem) // zeroed, so the element after the data terminates it
	cbuf := unsafe.Slice((*byte)(p), size)
	gobuf := unsafe.Slice((*byte)(rv.UnsafePointer()), size)
	copy(cbuf, gobuf)

	commit, free := a.commit, a.free
	a.commit = func() {
		copy(gobuf, cbuf)
		if commit != nil {
			commit()
		}
	}
	a.free = func() {
		if free != nil {
			free()
		}
		libc.free(p)
	}
	delete(e.acquired, key)
	e.acquired[uintptr(p)] = a
	return p
}

var (
	stringType      = reflect.TypeOf("")
	valuesType      = reflect.TypeOf([]Value(nil))
	methodIDType    = reflect.TypeOf(MethodID(0))
	unsafePtrType   = reflect.TypeOf(unsafe.Pointer(nil))
	nativeInterface = reflect.TypeOf(NativeInterface{})
)

func buildNativeTable() {
	entries := cEntries()
	for i := 0; i < nativeInterface.NumField(); i++ {
		f := nativeInterface.Field(i)
		slot, _, err := parseSlotTag(f.Tag.Get("jni"))
		if err != nil {
			panic(fmt.Sprintf("jni: field %s: %v", f.Name, err))
		}
		if _, ok := entries[slot]; ok {
			continue
		}
		if fn, ok := cAdapter(slot, i, f.Type); ok {
			entries[slot] = fn
		}
	}
	for slot := range cNativeTable {
		fn, ok := entries[slot]
		if !ok {
			fn = cUnsupported(slot)
		}
		cNativeTable[slot] = purego.NewCallback(fn)
	}
}

// cUnsupported is the C entry for slots the Go table cannot serve: the
// reserved slots, the variadic and va_list call forms, entries returning
// floating point values, reflection and direct buffers.
func cUnsupported(slot int) func(cenv uintptr) uintptr {
	return func(cenv uintptr) uintptr {
		e := cEnter(cenv, slot)
		e.jvm.fatal(e, SlotName(slot)+" is not available through the C interface")
		return 0
	}
}

// cAdapter derives a C entry from the Go table entry in field index when
// every parameter and the result have a direct C representation. Strings
// arrive as C strings and []Value as a jvalue array described by the
// preceding method ID.
func cAdapter(slot, index int, typ reflect.Type) (interface{}, bool) {
	if typ.IsVariadic() || typ.NumOut() > 1 {
		return nil, false
	}
	in := []reflect.Type{uintptrType}
	for i := 1; i < typ.NumIn(); i++ {
		p := typ.In(i)
		switch {
		case p == stringType:
			in = append(in, unsafePtrType)
		case p == valuesType && typ.In(i-1) == methodIDType:
			in = append(in, unsafePtrType)
		case p.Kind() == reflect.Slice, p.Kind() == reflect.Ptr, p.Kind() == reflect.UnsafePointer:
			return nil, false
		default:
			in = append(in, p)
		}
	}
	var out []reflect.Type
	if typ.NumOut() == 1 {
		switch r := typ.Out(0); r.Kind() {
		case reflect.Float32, reflect.Float64, reflect.Slice, reflect.Ptr, reflect.UnsafePointer:
			return nil, false
		default:
			out = append(out, r)
		}
	}
	fn := reflect.MakeFunc(reflect.FuncOf(in, out, false), func(args []reflect.Value) []reflect.Value {
		e := cEnter(uintptr(args[0].Uint()), slot)
		goArgs := make([]reflect.Value, len(args))
		goArgs[0] = reflect.ValueOf(e)
		for i := 1; i < len(args); i++ {
			switch typ.In(i) {
			case stringType:
				goArgs[i] = reflect.ValueOf(goString(args[i].UnsafePointer()))
			case valuesType:
				goArgs[i] = reflect.ValueOf(e.jvalues(MethodID(args[i-1].Uint()), args[i].UnsafePointer()))
			default:
				goArgs[i] = args[i]
			}
		}
		return reflect.ValueOf(e.Functions).Elem().Field(index).Call(goArgs)
	})
	return fn.Interface(), true
}

// jvalues reads the arguments of method id from a C jvalue array.
func (e *Env) jvalues(id MethodID, p unsafe.Pointer) []Value {
	m := e.jvm.method(id)
	if m == nil || p == nil {
		return nil
	}
	out := make([]Value, len(m.Type.Params))
	for i, param := range m.Type.Params {
		bits := *(*uint64)(unsafe.Add(p, i*8))
		out[i] = wordValue(kindOf(param), bits)
	}
	return out
}

type cNativeMethod struct {
	name      unsafe.Pointer
	signature unsafe.Pointer
	fnPtr     uintptr
}

// cEntries are the C entries that move buffers between C and Go memory.
func cEntries() map[int]interface{} {
	return map[int]interface{}{
		SlotDefineClass: func(cenv uintptr, name unsafe.Pointer, loader Object, buf unsafe.Pointer, n Size) Class {
			e := cEnter(cenv, SlotDefineClass)
			return e.Functions.DefineClass(e, goString(name), loader, append([]byte(nil), cSlice[byte](buf, n)...))
		},
		SlotNewString: func(cenv uintptr, chars unsafe.Pointer, n Size) String {
			e := cEnter(cenv, SlotNewString)
			return e.Functions.NewString(e, append([]Char(nil), cSlice[Char](chars, n)...))
		},
		SlotNewStringUTF: func(cenv uintptr, utf unsafe.Pointer) String {
			e := cEnter(cenv, SlotNewStringUTF)
			if utf == nil {
				return 0
			}
			return e.Functions.NewStringUTF(e, goString(utf))
		},
		SlotGetStringChars: func(cenv uintptr, str String, isCopy *Boolean) unsafe.Pointer {
			e := cEnter(cenv, SlotGetStringChars)
			return e.exportBuffer(sliceKey(e.Functions.GetStringChars(e, str, isCopy)))
		},
		SlotReleaseStringChars: func(cenv uintptr, str String, chars unsafe.Pointer) {
			e := cEnter(cenv, SlotReleaseStringChars)
			e.Functions.ReleaseStringChars(e, str, cKey[Char](chars))
		},
		SlotGetStringUTFChars: func(cenv uintptr, str String, isCopy *Boolean) unsafe.Pointer {
			e := cEnter(cenv, SlotGetStringUTFChars)
			return e.exportBuffer(sliceKey(e.Functions.GetStringUTFChars(e, str, isCopy)))
		},
		SlotReleaseStringUTFChars: func(cenv uintptr, str String, utf unsafe.Pointer) {
			e := cEnter(cenv, SlotReleaseStringUTFChars)
			e.Functions.ReleaseStringUTFChars(e, str, cKey[byte](utf))
		},
		SlotGetStringCritical: func(cenv uintptr, str String, isCopy *Boolean) unsafe.Pointer {
			e := cEnter(cenv, SlotGetStringCritical)
			return e.exportBuffer(sliceKey(e.Functions.GetStringCritical(e, str, isCopy)))
		},
		SlotReleaseStringCritical: func(cenv uintptr, str String, chars unsafe.Pointer) {
			e := cEnter(cenv, SlotReleaseStringCritical)
			e.Functions.ReleaseStringCritical(e, str, cKey[Char](chars))
		},
		SlotGetStringRegion: func(cenv uintptr, str String, start, n Size, buf unsafe.Pointer) {
			e := cEnter(cenv, SlotGetStringRegion)
			e.Functions.GetStringRegion(e, str, start, n, cSlice[Char](buf, n))
		},
		SlotGetStringUTFRegion: func(cenv uintptr, str String, start, n Size, buf unsafe.Pointer) {
			e := cEnter(cenv, SlotGetStringUTFRegion)
			// At most three bytes per unit plus the terminator.
			e.Functions.GetStringUTFRegion(e, str, start, n, cSlice[byte](buf, 3*n+1))
		},
		SlotGetPrimitiveArrayCritical: func(cenv uintptr, array Array, isCopy *Boolean) unsafe.Pointer {
			e := cEnter(cenv, SlotGetPrimitiveArrayCritical)
			return e.exportBuffer(uintptr(e.Functions.GetPrimitiveArrayCritical(e, array, isCopy)))
		},
		SlotReleasePrimitiveArrayCritical: func(cenv uintptr, array Array, carray unsafe.Pointer, mode Int) {
			e := cEnter(cenv, SlotReleasePrimitiveArrayCritical)
			e.Functions.ReleasePrimitiveArrayCritical(e, array, carray, mode)
		},
		SlotRegisterNatives: func(cenv uintptr, clazz Class, methods unsafe.Pointer, n Int) Int {
			e := cEnter(cenv, SlotRegisterNatives)
			cms := cSlice[cNativeMethod](methods, n)
			nms := make([]NativeMethod, len(cms))
			for i, cm := range cms {
				nms[i] = NativeMethod{Name: goString(cm.name), Signature: goString(cm.signature), Fn: cm.fnPtr}
			}
			return e.Functions.RegisterNatives(e, clazz, nms)
		},
		SlotGetJavaVM: func(cenv uintptr, out *uintptr) Int {
			e := cEnter(cenv, SlotGetJavaVM)
			var jvm *JavaVM
			if out == nil {
				return e.Functions.GetJavaVM(e, nil)
			}
			rc := e.Functions.GetJavaVM(e, &jvm)
			if rc == OK {
				*out = jvm.cPointer()
			}
			return rc
		},

		SlotGetBooleanArrayElements: cArrayElements(SlotGetBooleanArrayElements, func(t *NativeInterface) func(*Env, Array, *Boolean) []Boolean { return t.GetBooleanArrayElements }),
		SlotGetByteArrayElements:    cArrayElements(SlotGetByteArrayElements, func(t *NativeInterface) func(*Env, Array, *Boolean) []Byte { return t.GetByteArrayElements }),
		SlotGetCharArrayElements:    cArrayElements(SlotGetCharArrayElements, func(t *NativeInterface) func(*Env, Array, *Boolean) []Char { return t.GetCharArrayElements }),
		SlotGetShortArrayElements:   cArrayElements(SlotGetShortArrayElements, func(t *NativeInterface) func(*Env, Array, *Boolean) []Short { return t.GetShortArrayElements }),
		SlotGetIntArrayElements:     cArrayElements(SlotGetIntArrayElements, func(t *NativeInterface) func(*Env, Array, *Boolean) []Int { return t.GetIntArrayElements }),
		SlotGetLongArrayElements:    cArrayElements(SlotGetLongArrayElements, func(t *NativeInterface) func(*Env, Array, *Boolean) []Long { return t.GetLongArrayElements }),
		SlotGetFloatArrayElements:   cArrayElements(SlotGetFloatArrayElements, func(t *NativeInterface) func(*Env, Array, *Boolean) []Float { return t.GetFloatArrayElements }),
		SlotGetDoubleArrayElements:  cArrayElements(SlotGetDoubleArrayElements, func(t *NativeInterface) func(*Env, Array, *Boolean) []Double { return t.GetDoubleArrayElements }),

		SlotReleaseBooleanArrayElements: cReleaseArrayElements(SlotReleaseBooleanArrayElements, func(t *NativeInterface) func(*Env, Array, []Boolean, Int) { return t.ReleaseBooleanArrayElements }),
		SlotReleaseByteArrayElements:    cReleaseArrayElements(SlotReleaseByteArrayElements, func(t *NativeInterface) func(*Env, Array, []Byte, Int) { return t.ReleaseByteArrayElements }),
		SlotReleaseCharArrayElements:    cReleaseArrayElements(SlotReleaseCharArrayElements, func(t *NativeInterface) func(*Env, Array, []Char, Int) { return t.ReleaseCharArrayElements }),
		SlotReleaseShortArrayElements:   cReleaseArrayElements(SlotReleaseShortArrayElements, func(t *NativeInterface) func(*Env, Array, []Short, Int) { return t.ReleaseShortArrayElements }),
		SlotReleaseIntArrayElements:     cReleaseArrayElements(SlotReleaseIntArrayElements, func(t *NativeInterface) func(*Env, Array, []Int, Int) { return t.ReleaseIntArrayElements }),
		SlotReleaseLongArrayElements:    cReleaseArrayElements(SlotReleaseLongArrayElements, func(t *NativeInterface) func(*Env, Array, []Long, Int) { return t.ReleaseLongArrayElements }),
		SlotReleaseFloatArrayElements:   cReleaseArrayElements(SlotReleaseFloatArrayElements, func(t *NativeInterface) func(*Env, Array, []Float, Int) { return t.ReleaseFloatArrayElements }),
		SlotReleaseDoubleArrayElements:  cReleaseArrayElements(SlotReleaseDoubleArrayElements, func(t *NativeInterface) func(*Env, Array, []Double, Int) { return t.ReleaseDoubleArrayElements }),

		SlotGetBooleanArrayRegion: cArrayRegion(SlotGetBooleanArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Boolean) { return t.GetBooleanArrayRegion }),
		SlotGetByteArrayRegion:    cArrayRegion(SlotGetByteArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Byte) { return t.GetByteArrayRegion }),
		SlotGetCharArrayRegion:    cArrayRegion(SlotGetCharArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Char) { return t.GetCharArrayRegion }),
		SlotGetShortArrayRegion:   cArrayRegion(SlotGetShortArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Short) { return t.GetShortArrayRegion }),
		SlotGetIntArrayRegion:     cArrayRegion(SlotGetIntArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Int) { return t.GetIntArrayRegion }),
		SlotGetLongArrayRegion:    cArrayRegion(SlotGetLongArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Long) { return t.GetLongArrayRegion }),
		SlotGetFloatArrayRegion:   cArrayRegion(SlotGetFloatArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Float) { return t.GetFloatArrayRegion }),
		SlotGetDoubleArrayRegion:  cArrayRegion(SlotGetDoubleArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Double) { return t.GetDoubleArrayRegion }),

		SlotSetBooleanArrayRegion: cArrayRegion(SlotSetBooleanArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Boolean) { return t.SetBooleanArrayRegion }),
		SlotSetByteArrayRegion:    cArrayRegion(SlotSetByteArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Byte) { return t.SetByteArrayRegion }),
		SlotSetCharArrayRegion:    cArrayRegion(SlotSetCharArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Char) { return t.SetCharArrayRegion }),
		SlotSetShortArrayRegion:   cArrayRegion(SlotSetShortArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Short) { return t.SetShortArrayRegion }),
		SlotSetIntArrayRegion:     cArrayRegion(SlotSetIntArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Int) { return t.SetIntArrayRegion }),
		SlotSetLongArrayRegion:    cArrayRegion(SlotSetLongArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Long) { return t.SetLongArrayRegion }),
		SlotSetFloatArrayRegion:   cArrayRegion(SlotSetFloatArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Float) { return t.SetFloatArrayRegion }),
		SlotSetDoubleArrayRegion:  cArrayRegion(SlotSetDoubleArrayRegion, func(t *NativeInterface) func(*Env, Array, Size, Size, []Double) { return t.SetDoubleArrayRegion }),
	}
}

func cArrayElements[T primitive](slot int, entry func(*NativeInterface) func(*Env, Array, *Boolean) []T) interface{} {
	return func(cenv uintptr, array Array, isCopy *Boolean) unsafe.Pointer {
		e := cEnter(cenv, slot)
		buf := entry(e.Functions)(e, array, isCopy)
		if buf == nil {
			return nil
		}
		return e.exportBuffer(sliceKey(buf))
	}
}

func cReleaseArrayElements[T primitive](slot int, entry func(*NativeInterface) func(*Env, Array, []T, Int)) interface{} {
	return func(cenv uintptr, array Array, elems unsafe.Pointer, mode Int) {
		e := cEnter(cenv, slot)
		entry(e.Functions)(e, array, cKey[T](elems), mode)
	}
}

func cArrayRegion[T primitive](slot int, entry func(*NativeInterface) func(*Env, Array, Size, Size, []T)) interface{} {
	return func(cenv uintptr, array Array, start, n Size, buf unsafe.Pointer) {
		e := cEnter(cenv, slot)
		entry(e.Functions)(e, array, start, n, cSlice[T](buf, n))
	}
}

// cAttachArgs is JavaVMAttachArgs.
type cAttachArgs struct {
	version Int
	name    unsafe.Pointer
	group   Object
}

func buildInvokeTable() {
	unsupported := func(slot int) interface{} {
		return func(cvm uintptr) Int {
			jvm := cVM(cvm, fmt.Sprintf("reserved%d", slot))
			jvm.fatal(nil, fmt.Sprintf("reserved JavaVM slot %d called", slot))
			return Err
		}
	}
	attach := func(daemon bool) interface{} {
		fn := "AttachCurrentThread"
		if daemon {
			fn = "AttachCurrentThreadAsDaemon"
		}
		return func(cvm uintptr, penv *uintptr, args *cAttachArgs) Int {
			jvm := cVM(cvm, fn)
			if penv == nil {
				return EInval
			}
			var aa *AttachArgs
			if args != nil {
				aa = &AttachArgs{Version: args.version, Name: goString(args.name), Group: args.group}
			}
			var e *Env
			var rc Int
			if daemon {
				rc = jvm.Functions.AttachCurrentThreadAsDaemon(jvm, &e, aa)
			} else {
				rc = jvm.Functions.AttachCurrentThread(jvm, &e, aa)
			}
			if rc == OK {
				*penv = e.cPointer()
			}
			return rc
		}
	}
	entries := [len(cInvokeTable)]interface{}{
		unsupported(0),
		unsupported(1),
		unsupported(2),
		func(cvm uintptr) Int {
			jvm := cVM(cvm, "DestroyJavaVM")
			return jvm.Functions.DestroyJavaVM(jvm)
		},
		attach(false),
		func(cvm uintptr) Int {
			jvm := cVM(cvm, "DetachCurrentThread")
			return jvm.Functions.DetachCurrentThread(jvm)
		},
		func(cvm uintptr, penv *uintptr, version Int) Int {
			jvm := cVM(cvm, "GetEnv")
			if penv == nil {
				return EInval
			}
			var e *Env
			rc := jvm.Functions.GetEnv(jvm, &e, version)
			if rc == OK {
				*penv = e.cPointer()
			} else {
				*penv = 0
			}
			return rc
		},
		attach(true),
	}
	for slot, fn := range entries {
		cInvokeTable[slot] = purego.NewCallback(fn)
	}
}
