package jni

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unsafe"
)

// NativeInterface is the function table every Env points to. Field order
// follows the standard slot numbering recorded in each field's jni tag
// ("slot" or "slot,since"); slots the Go table does not carry (reserved
// entries, the va_list forms, reflection and direct buffers) are skipped but
// keep their numbers. New entries are only ever appended.
type NativeInterface struct {
	// Version information.
	GetVersion func(env *Env) Int `jni:"4"`

	// Class operations.
	DefineClass      func(env *Env, name string, loader Object, buf []byte) Class `jni:"5"`
	FindClass        func(env *Env, name string) Class                            `jni:"6"`
	GetSuperclass    func(env *Env, clazz Class) Class                            `jni:"10"`
	IsAssignableFrom func(env *Env, clazz1, clazz2 Class) Boolean                 `jni:"11"`

	// Exceptions.
	Throw             func(env *Env, obj Throwable) Int           `jni:"13"`
	ThrowNew          func(env *Env, clazz Class, msg string) Int `jni:"14"`
	ExceptionOccurred func(env *Env) Throwable                    `jni:"15"`
	ExceptionDescribe func(env *Env)                              `jni:"16"`
	ExceptionClear    func(env *Env)                              `jni:"17"`
	FatalError        func(env *Env, msg string)                  `jni:"18"`

	// Global and local references.
	PushLocalFrame      func(env *Env, capacity Int) Int          `jni:"19,1.2"`
	PopLocalFrame       func(env *Env, result Object) Object      `jni:"20,1.2"`
	NewGlobalRef        func(env *Env, obj Object) Object         `jni:"21"`
	DeleteGlobalRef     func(env *Env, globalRef Object)          `jni:"22"`
	DeleteLocalRef      func(env *Env, localRef Object)           `jni:"23"`
	IsSameObject        func(env *Env, ref1, ref2 Object) Boolean `jni:"24"`
	NewLocalRef         func(env *Env, ref Object) Object         `jni:"25,1.2"`
	EnsureLocalCapacity func(env *Env, capacity Int) Int          `jni:"26,1.2"`

	// Object operations.
	AllocObject    func(env *Env, clazz Class) Object                                   `jni:"27"`
	NewObject      func(env *Env, clazz Class, methodID MethodID, args ...Value) Object `jni:"28"`
	NewObjectA     func(env *Env, clazz Class, methodID MethodID, args []Value) Object  `jni:"30"`
	GetObjectClass func(env *Env, obj Object) Class                                     `jni:"31"`
	IsInstanceOf   func(env *Env, obj Object, clazz Class) Boolean                      `jni:"32"`

	// Calling instance methods.
	GetMethodID                  func(env *Env, clazz Class, name, sig string) MethodID                            `jni:"33"`
	CallObjectMethod             func(env *Env, obj Object, methodID MethodID, args ...Value) Object               `jni:"34"`
	CallObjectMethodA            func(env *Env, obj Object, methodID MethodID, args []Value) Object                `jni:"36"`
	CallBooleanMethod            func(env *Env, obj Object, methodID MethodID, args ...Value) Boolean              `jni:"37"`
	CallBooleanMethodA           func(env *Env, obj Object, methodID MethodID, args []Value) Boolean               `jni:"39"`
	CallByteMethod               func(env *Env, obj Object, methodID MethodID, args ...Value) Byte                 `jni:"40"`
	CallByteMethodA              func(env *Env, obj Object, methodID MethodID, args []Value) Byte                  `jni:"42"`
	CallCharMethod               func(env *Env, obj Object, methodID MethodID, args ...Value) Char                 `jni:"43"`
	CallCharMethodA              func(env *Env, obj Object, methodID MethodID, args []Value) Char                  `jni:"45"`
	CallShortMethod              func(env *Env, obj Object, methodID MethodID, args ...Value) Short                `jni:"46"`
	CallShortMethodA             func(env *Env, obj Object, methodID MethodID, args []Value) Short                 `jni:"48"`
	CallIntMethod                func(env *Env, obj Object, methodID MethodID, args ...Value) Int                  `jni:"49"`
	CallIntMethodA               func(env *Env, obj Object, methodID MethodID, args []Value) Int                   `jni:"51"`
	CallLongMethod               func(env *Env, obj Object, methodID MethodID, args ...Value) Long                 `jni:"52"`
	CallLongMethodA              func(env *Env, obj Object, methodID MethodID, args []Value) Long                  `jni:"54"`
	CallFloatMethod              func(env *Env, obj Object, methodID MethodID, args ...Value) Float                `jni:"55"`
	CallFloatMethodA             func(env *Env, obj Object, methodID MethodID, args []Value) Float                 `jni:"57"`
	CallDoubleMethod             func(env *Env, obj Object, methodID MethodID, args ...Value) Double               `jni:"58"`
	CallDoubleMethodA            func(env *Env, obj Object, methodID MethodID, args []Value) Double                `jni:"60"`
	CallVoidMethod               func(env *Env, obj Object, methodID MethodID, args ...Value)                      `jni:"61"`
	CallVoidMethodA              func(env *Env, obj Object, methodID MethodID, args []Value)                       `jni:"63"`
	CallNonvirtualObjectMethod   func(env *Env, obj Object, clazz Class, methodID MethodID, args ...Value) Object  `jni:"64"`
	CallNonvirtualObjectMethodA  func(env *Env, obj Object, clazz Class, methodID MethodID, args []Value) Object   `jni:"66"`
	CallNonvirtualBooleanMethod  func(env *Env, obj Object, clazz Class, methodID MethodID, args ...Value) Boolean `jni:"67"`
	CallNonvirtualBooleanMethodA func(env *Env, obj Object, clazz Class, methodID MethodID, args []Value) Boolean  `jni:"69"`
	CallNonvirtualByteMethod     func(env *Env, obj Object, clazz Class, methodID MethodID, args ...Value) Byte    `jni:"70"`
	CallNonvirtualByteMethodA    func(env *Env, obj Object, clazz Class, methodID MethodID, args []Value) Byte     `jni:"72"`
	CallNonvirtualCharMethod     func(env *Env, obj Object, clazz Class, methodID MethodID, args ...Value) Char    `jni:"73"`
	CallNonvirtualCharMethodA    func(env *Env, obj Object, clazz Class, methodID MethodID, args []Value) Char     `jni:"75"`
	CallNonvirtualShortMethod    func(env *Env, obj Object, clazz Class, methodID MethodID, args ...Value) Short   `jni:"76"`
	CallNonvirtualShortMethodA   func(env *Env, obj Object, clazz Class, methodID MethodID, args []Value) Short    `jni:"78"`
	CallNonvirtualIntMethod      func(env *Env, obj Object, clazz Class, methodID MethodID, args ...Value) Int     `jni:"79"`
	CallNonvirtualIntMethodA     func(env *Env, obj Object, clazz Class, methodID MethodID, args []Value) Int      `jni:"81"`
	CallNonvirtualLongMethod     func(env *Env, obj Object, clazz Class, methodID MethodID, args ...Value) Long    `jni:"82"`
	CallNonvirtualLongMethodA    func(env *Env, obj Object, clazz Class, methodID MethodID, args []Value) Long     `jni:"84"`
	CallNonvirtualFloatMethod    func(env *Env, obj Object, clazz Class, methodID MethodID, args ...Value) Float   `jni:"85"`
	CallNonvirtualFloatMethodA   func(env *Env, obj Object, clazz Class, methodID MethodID, args []Value) Float    `jni:"87"`
	CallNonvirtualDoubleMethod   func(env *Env, obj Object, clazz Class, methodID MethodID, args ...Value) Double  `jni:"88"`
	CallNonvirtualDoubleMethodA  func(env *Env, obj Object, clazz Class, methodID MethodID, args []Value) Double   `jni:"90"`
	CallNonvirtualVoidMethod     func(env *Env, obj Object, clazz Class, methodID MethodID, args ...Value)         `jni:"91"`
	CallNonvirtualVoidMethodA    func(env *Env, obj Object, clazz Class, methodID MethodID, args []Value)          `jni:"93"`

	// Accessing fields of objects.
	GetFieldID      func(env *Env, clazz Class, name, sig string) FieldID      `jni:"94"`
	GetObjectField  func(env *Env, obj Object, fieldID FieldID) Object         `jni:"95"`
	GetBooleanField func(env *Env, obj Object, fieldID FieldID) Boolean        `jni:"96"`
	GetByteField    func(env *Env, obj Object, fieldID FieldID) Byte           `jni:"97"`
	GetCharField    func(env *Env, obj Object, fieldID FieldID) Char           `jni:"98"`
	GetShortField   func(env *Env, obj Object, fieldID FieldID) Short          `jni:"99"`
	GetIntField     func(env *Env, obj Object, fieldID FieldID) Int            `jni:"100"`
	GetLongField    func(env *Env, obj Object, fieldID FieldID) Long           `jni:"101"`
	GetFloatField   func(env *Env, obj Object, fieldID FieldID) Float          `jni:"102"`
	GetDoubleField  func(env *Env, obj Object, fieldID FieldID) Double         `jni:"103"`
	SetObjectField  func(env *Env, obj Object, fieldID FieldID, value Object)  `jni:"104"`
	SetBooleanField func(env *Env, obj Object, fieldID FieldID, value Boolean) `jni:"105"`
	SetByteField    func(env *Env, obj Object, fieldID FieldID, value Byte)    `jni:"106"`
	SetCharField    func(env *Env, obj Object, fieldID FieldID, value Char)    `jni:"107"`
	SetShortField   func(env *Env, obj Object, fieldID FieldID, value Short)   `jni:"108"`
	SetIntField     func(env *Env, obj Object, fieldID FieldID, value Int)     `jni:"109"`
	SetLongField    func(env *Env, obj Object, fieldID FieldID, value Long)    `jni:"110"`
	SetFloatField   func(env *Env, obj Object, fieldID FieldID, value Float)   `jni:"111"`
	SetDoubleField  func(env *Env, obj Object, fieldID FieldID, value Double)  `jni:"112"`

	// Calling static methods.
	GetStaticMethodID        func(env *Env, clazz Class, name, sig string) MethodID                `jni:"113"`
	CallStaticObjectMethod   func(env *Env, clazz Class, methodID MethodID, args ...Value) Object  `jni:"114"`
	CallStaticObjectMethodA  func(env *Env, clazz Class, methodID MethodID, args []Value) Object   `jni:"116"`
	CallStaticBooleanMethod  func(env *Env, clazz Class, methodID MethodID, args ...Value) Boolean `jni:"117"`
	CallStaticBooleanMethodA func(env *Env, clazz Class, methodID MethodID, args []Value) Boolean  `jni:"119"`
	CallStaticByteMethod     func(env *Env, clazz Class, methodID MethodID, args ...Value) Byte    `jni:"120"`
	CallStaticByteMethodA    func(env *Env, clazz Class, methodID MethodID, args []Value) Byte     `jni:"122"`
	CallStaticCharMethod     func(env *Env, clazz Class, methodID MethodID, args ...Value) Char    `jni:"123"`
	CallStaticCharMethodA    func(env *Env, clazz Class, methodID MethodID, args []Value) Char     `jni:"125"`
	CallStaticShortMethod    func(env *Env, clazz Class, methodID MethodID, args ...Value) Short   `jni:"126"`
	CallStaticShortMethodA   func(env *Env, clazz Class, methodID MethodID, args []Value) Short    `jni:"128"`
	CallStaticIntMethod      func(env *Env, clazz Class, methodID MethodID, args ...Value) Int     `jni:"129"`
	CallStaticIntMethodA     func(env *Env, clazz Class, methodID MethodID, args []Value) Int      `jni:"131"`
	CallStaticLongMethod     func(env *Env, clazz Class, methodID MethodID, args ...Value) Long    `jni:"132"`
	CallStaticLongMethodA    func(env *Env, clazz Class, methodID MethodID, args []Value) Long     `jni:"134"`
	CallStaticFloatMethod    func(env *Env, clazz Class, methodID MethodID, args ...Value) Float   `jni:"135"`
	CallStaticFloatMethodA   func(env *Env, clazz Class, methodID MethodID, args []Value) Float    `jni:"137"`
	CallStaticDoubleMethod   func(env *Env, clazz Class, methodID MethodID, args ...Value) Double  `jni:"138"`
	CallStaticDoubleMethodA  func(env *Env, clazz Class, methodID MethodID, args []Value) Double   `jni:"140"`
	CallStaticVoidMethod     func(env *Env, clazz Class, methodID MethodID, args ...Value)         `jni:"141"`
	CallStaticVoidMethodA    func(env *Env, clazz Class, methodID MethodID, args []Value)          `jni:"143"`

	// Accessing static fields.
	GetStaticFieldID      func(env *Env, clazz Class, name, sig string) FieldID       `jni:"144"`
	GetStaticObjectField  func(env *Env, clazz Class, fieldID FieldID) Object         `jni:"145"`
	GetStaticBooleanField func(env *Env, clazz Class, fieldID FieldID) Boolean        `jni:"146"`
	GetStaticByteField    func(env *Env, clazz Class, fieldID FieldID) Byte           `jni:"147"`
	GetStaticCharField    func(env *Env, clazz Class, fieldID FieldID) Char           `jni:"148"`
	GetStaticShortField   func(env *Env, clazz Class, fieldID FieldID) Short          `jni:"149"`
	GetStaticIntField     func(env *Env, clazz Class, fieldID FieldID) Int            `jni:"150"`
	GetStaticLongField    func(env *Env, clazz Class, fieldID FieldID) Long           `jni:"151"`
	GetStaticFloatField   func(env *Env, clazz Class, fieldID FieldID) Float          `jni:"152"`
	GetStaticDoubleField  func(env *Env, clazz Class, fieldID FieldID) Double         `jni:"153"`
	SetStaticObjectField  func(env *Env, clazz Class, fieldID FieldID, value Object)  `jni:"154"`
	SetStaticBooleanField func(env *Env, clazz Class, fieldID FieldID, value Boolean) `jni:"155"`
	SetStaticByteField    func(env *Env, clazz Class, fieldID FieldID, value Byte)    `jni:"156"`
	SetStaticCharField    func(env *Env, clazz Class, fieldID FieldID, value Char)    `jni:"157"`
	SetStaticShortField   func(env *Env, clazz Class, fieldID FieldID, value Short)   `jni:"158"`
	SetStaticIntField     func(env *Env, clazz Class, fieldID FieldID, value Int)     `jni:"159"`
	SetStaticLongField    func(env *Env, clazz Class, fieldID FieldID, value Long)    `jni:"160"`
	SetStaticFloatField   func(env *Env, clazz Class, fieldID FieldID, value Float)   `jni:"161"`
	SetStaticDoubleField  func(env *Env, clazz Class, fieldID FieldID, value Double)  `jni:"162"`

	// String operations.
	NewString             func(env *Env, unicodeChars []Char) String         `jni:"163"`
	GetStringLength       func(env *Env, str String) Size                    `jni:"164"`
	GetStringChars        func(env *Env, str String, isCopy *Boolean) []Char `jni:"165"`
	ReleaseStringChars    func(env *Env, str String, chars []Char)           `jni:"166"`
	NewStringUTF          func(env *Env, bytes string) String                `jni:"167"`
	GetStringUTFLength    func(env *Env, str String) Size                    `jni:"168"`
	GetStringUTFChars     func(env *Env, str String, isCopy *Boolean) []byte `jni:"169"`
	ReleaseStringUTFChars func(env *Env, str String, utf []byte)             `jni:"170"`

	// Array operations.
	GetArrayLength              func(env *Env, array Array) Size                                             `jni:"171"`
	NewObjectArray              func(env *Env, length Size, elementClass Class, initialElement Object) Array `jni:"172"`
	GetObjectArrayElement       func(env *Env, array Array, index Size) Object                               `jni:"173"`
	SetObjectArrayElement       func(env *Env, array Array, index Size, value Object)                        `jni:"174"`
	NewBooleanArray             func(env *Env, length Size) Array                                            `jni:"175"`
	NewByteArray                func(env *Env, length Size) Array                                            `jni:"176"`
	NewCharArray                func(env *Env, length Size) Array                                            `jni:"177"`
	NewShortArray               func(env *Env, length Size) Array                                            `jni:"178"`
	NewIntArray                 func(env *Env, length Size) Array                                            `jni:"179"`
	NewLongArray                func(env *Env, length Size) Array                                            `jni:"180"`
	NewFloatArray               func(env *Env, length Size) Array                                            `jni:"181"`
	NewDoubleArray              func(env *Env, length Size) Array                                            `jni:"182"`
	GetBooleanArrayElements     func(env *Env, array Array, isCopy *Boolean) []Boolean                       `jni:"183"`
	GetByteArrayElements        func(env *Env, array Array, isCopy *Boolean) []Byte                          `jni:"184"`
	GetCharArrayElements        func(env *Env, array Array, isCopy *Boolean) []Char                          `jni:"185"`
	GetShortArrayElements       func(env *Env, array Array, isCopy *Boolean) []Short                         `jni:"186"`
	GetIntArrayElements         func(env *Env, array Array, isCopy *Boolean) []Int                           `jni:"187"`
	GetLongArrayElements        func(env *Env, array Array, isCopy *Boolean) []Long                          `jni:"188"`
	GetFloatArrayElements       func(env *Env, array Array, isCopy *Boolean) []Float                         `jni:"189"`
	GetDoubleArrayElements      func(env *Env, array Array, isCopy *Boolean) []Double                        `jni:"190"`
	ReleaseBooleanArrayElements func(env *Env, array Array, elems []Boolean, mode Int)                       `jni:"191"`
	ReleaseByteArrayElements    func(env *Env, array Array, elems []Byte, mode Int)                          `jni:"192"`
	ReleaseCharArrayElements    func(env *Env, array Array, elems []Char, mode Int)                          `jni:"193"`
	ReleaseShortArrayElements   func(env *Env, array Array, elems []Short, mode Int)                         `jni:"194"`
	ReleaseIntArrayElements     func(env *Env, array Array, elems []Int, mode Int)                           `jni:"195"`
	ReleaseLongArrayElements    func(env *Env, array Array, elems []Long, mode Int)                          `jni:"196"`
	ReleaseFloatArrayElements   func(env *Env, array Array, elems []Float, mode Int)                         `jni:"197"`
	ReleaseDoubleArrayElements  func(env *Env, array Array, elems []Double, mode Int)                        `jni:"198"`
	GetBooleanArrayRegion       func(env *Env, array Array, start, length Size, buf []Boolean)               `jni:"199"`
	GetByteArrayRegion          func(env *Env, array Array, start, length Size, buf []Byte)                  `jni:"200"`
	GetCharArrayRegion          func(env *Env, array Array, start, length Size, buf []Char)                  `jni:"201"`
	GetShortArrayRegion         func(env *Env, array Array, start, length Size, buf []Short)                 `jni:"202"`
	GetIntArrayRegion           func(env *Env, array Array, start, length Size, buf []Int)                   `jni:"203"`
	GetLongArrayRegion          func(env *Env, array Array, start, length Size, buf []Long)                  `jni:"204"`
	GetFloatArrayRegion         func(env *Env, array Array, start, length Size, buf []Float)                 `jni:"205"`
	GetDoubleArrayRegion        func(env *Env, array Array, start, length Size, buf []Double)                `jni:"206"`
	SetBooleanArrayRegion       func(env *Env, array Array, start, length Size, buf []Boolean)               `jni:"207"`
	SetByteArrayRegion          func(env *Env, array Array, start, length Size, buf []Byte)                  `jni:"208"`
	SetCharArrayRegion          func(env *Env, array Array, start, length Size, buf []Char)                  `jni:"209"`
	SetShortArrayRegion         func(env *Env, array Array, start, length Size, buf []Short)                 `jni:"210"`
	SetIntArrayRegion           func(env *Env, array Array, start, length Size, buf []Int)                   `jni:"211"`
	SetLongArrayRegion          func(env *Env, array Array, start, length Size, buf []Long)                  `jni:"212"`
	SetFloatArrayRegion         func(env *Env, array Array, start, length Size, buf []Float)                 `jni:"213"`
	SetDoubleArrayRegion        func(env *Env, array Array, start, length Size, buf []Double)                `jni:"214"`

	// Registering native methods.
	RegisterNatives   func(env *Env, clazz Class, methods []NativeMethod) Int `jni:"215"`
	UnregisterNatives func(env *Env, clazz Class) Int                         `jni:"216"`

	// Monitor operations.
	MonitorEnter func(env *Env, obj Object) Int `jni:"217"`
	MonitorExit  func(env *Env, obj Object) Int `jni:"218"`

	// Java VM interface.
	GetJavaVM func(env *Env, vm **JavaVM) Int `jni:"219"`

	// Added in JNI 1.2.
	GetStringRegion               func(env *Env, str String, start, length Size, buf []Char)   `jni:"220,1.2"`
	GetStringUTFRegion            func(env *Env, str String, start, length Size, buf []byte)   `jni:"221,1.2"`
	GetPrimitiveArrayCritical     func(env *Env, array Array, isCopy *Boolean) unsafe.Pointer  `jni:"222,1.2"`
	ReleasePrimitiveArrayCritical func(env *Env, array Array, carray unsafe.Pointer, mode Int) `jni:"223,1.2"`
	GetStringCritical             func(env *Env, str String, isCopy *Boolean) []Char           `jni:"224,1.2"`
	ReleaseStringCritical         func(env *Env, str String, carray []Char)                    `jni:"225,1.2"`
	NewWeakGlobalRef              func(env *Env, obj Object) Weak                              `jni:"226,1.2"`
	DeleteWeakGlobalRef           func(env *Env, ref Weak)                                     `jni:"227,1.2"`
	ExceptionCheck                func(env *Env) Boolean                                       `jni:"228,1.2"`

	// Added in JNI 1.6.
	GetObjectRefType func(env *Env, obj Object) ObjectRefType `jni:"232,1.6"`
}

// Slot numbers of the entries of NativeInterface.
const (
	SlotGetVersion                    = 4
	SlotDefineClass                   = 5
	SlotFindClass                     = 6
	SlotGetSuperclass                 = 10
	SlotIsAssignableFrom              = 11
	SlotThrow                         = 13
	SlotThrowNew                      = 14
	SlotExceptionOccurred             = 15
	SlotExceptionDescribe             = 16
	SlotExceptionClear                = 17
	SlotFatalError                    = 18
	SlotPushLocalFrame                = 19
	SlotPopLocalFrame                 = 20
	SlotNewGlobalRef                  = 21
	SlotDeleteGlobalRef               = 22
	SlotDeleteLocalRef                = 23
	SlotIsSameObject                  = 24
	SlotNewLocalRef                   = 25
	SlotEnsureLocalCapacity           = 26
	SlotAllocObject                   = 27
	SlotNewObject                     = 28
	SlotNewObjectA                    = 30
	SlotGetObjectClass                = 31
	SlotIsInstanceOf                  = 32
	SlotGetMethodID                   = 33
	SlotCallObjectMethod              = 34
	SlotCallObjectMethodA             = 36
	SlotCallBooleanMethod             = 37
	SlotCallBooleanMethodA            = 39
	SlotCallByteMethod                = 40
	SlotCallByteMethodA               = 42
	SlotCallCharMethod                = 43
	SlotCallCharMethodA               = 45
	SlotCallShortMethod               = 46
	SlotCallShortMethodA              = 48
	SlotCallIntMethod                 = 49
	SlotCallIntMethodA                = 51
	SlotCallLongMethod                = 52
	SlotCallLongMethodA               = 54
	SlotCallFloatMethod               = 55
	SlotCallFloatMethodA              = 57
	SlotCallDoubleMethod              = 58
	SlotCallDoubleMethodA             = 60
	SlotCallVoidMethod                = 61
	SlotCallVoidMethodA               = 63
	SlotCallNonvirtualObjectMethod    = 64
	SlotCallNonvirtualObjectMethodA   = 66
	SlotCallNonvirtualBooleanMethod   = 67
	SlotCallNonvirtualBooleanMethodA  = 69
	SlotCallNonvirtualByteMethod      = 70
	SlotCallNonvirtualByteMethodA     = 72
	SlotCallNonvirtualCharMethod      = 73
	SlotCallNonvirtualCharMethodA     = 75
	SlotCallNonvirtualShortMethod     = 76
	SlotCallNonvirtualShortMethodA    = 78
	SlotCallNonvirtualIntMethod       = 79
	SlotCallNonvirtualIntMethodA      = 81
	SlotCallNonvirtualLongMethod      = 82
	SlotCallNonvirtualLongMethodA     = 84
	SlotCallNonvirtualFloatMethod     = 85
	SlotCallNonvirtualFloatMethodA    = 87
	SlotCallNonvirtualDoubleMethod    = 88
	SlotCallNonvirtualDoubleMethodA   = 90
	SlotCallNonvirtualVoidMethod      = 91
	SlotCallNonvirtualVoidMethodA     = 93
	SlotGetFieldID                    = 94
	SlotGetObjectField                = 95
	SlotGetBooleanField               = 96
	SlotGetByteField                  = 97
	SlotGetCharField                  = 98
	SlotGetShortField                 = 99
	SlotGetIntField                   = 100
	SlotGetLongField                  = 101
	SlotGetFloatField                 = 102
	SlotGetDoubleField                = 103
	SlotSetObjectField                = 104
	SlotSetBooleanField               = 105
	SlotSetByteField                  = 106
	SlotSetCharField                  = 107
	SlotSetShortField                 = 108
	SlotSetIntField                   = 109
	SlotSetLongField                  = 110
	SlotSetFloatField                 = 111
	SlotSetDoubleField                = 112
	SlotGetStaticMethodID             = 113
	SlotCallStaticObjectMethod        = 114
	SlotCallStaticObjectMethodA       = 116
	SlotCallStaticBooleanMethod       = 117
	SlotCallStaticBooleanMethodA      = 119
	SlotCallStaticByteMethod          = 120
	SlotCallStaticByteMethodA         = 122
	SlotCallStaticCharMethod          = 123
	SlotCallStaticCharMethodA         = 125
	SlotCallStaticShortMethod         = 126
	SlotCallStaticShortMethodA        = 128
	SlotCallStaticIntMethod           = 129
	SlotCallStaticIntMethodA          = 131
	SlotCallStaticLongMethod          = 132
	SlotCallStaticLongMethodA         = 134
	SlotCallStaticFloatMethod         = 135
	SlotCallStaticFloatMethodA        = 137
	SlotCallStaticDoubleMethod        = 138
	SlotCallStaticDoubleMethodA       = 140
	SlotCallStaticVoidMethod          = 141
	SlotCallStaticVoidMethodA         = 143
	SlotGetStaticFieldID              = 144
	SlotGetStaticObjectField          = 145
	SlotGetStaticBooleanField         = 146
	SlotGetStaticByteField            = 147
	SlotGetStaticCharField            = 148
	SlotGetStaticShortField           = 149
	SlotGetStaticIntField             = 150
	SlotGetStaticLongField            = 151
	SlotGetStaticFloatField           = 152
	SlotGetStaticDoubleField          = 153
	SlotSetStaticObjectField          = 154
	SlotSetStaticBooleanField         = 155
	SlotSetStaticByteField            = 156
	SlotSetStaticCharField            = 157
	SlotSetStaticShortField           = 158
	SlotSetStaticIntField             = 159
	SlotSetStaticLongField            = 160
	SlotSetStaticFloatField           = 161
	SlotSetStaticDoubleField          = 162
	SlotNewString                     = 163
	SlotGetStringLength               = 164
	SlotGetStringChars                = 165
	SlotReleaseStringChars            = 166
	SlotNewStringUTF                  = 167
	SlotGetStringUTFLength            = 168
	SlotGetStringUTFChars             = 169
	SlotReleaseStringUTFChars         = 170
	SlotGetArrayLength                = 171
	SlotNewObjectArray                = 172
	SlotGetObjectArrayElement         = 173
	SlotSetObjectArrayElement         = 174
	SlotNewBooleanArray               = 175
	SlotNewByteArray                  = 176
	SlotNewCharArray                  = 177
	SlotNewShortArray                 = 178
	SlotNewIntArray                   = 179
	SlotNewLongArray                  = 180
	SlotNewFloatArray                 = 181
	SlotNewDoubleArray                = 182
	SlotGetBooleanArrayElements       = 183
	SlotGetByteArrayElements          = 184
	SlotGetCharArrayElements          = 185
	SlotGetShortArrayElements         = 186
	SlotGetIntArrayElements           = 187
	SlotGetLongArrayElements          = 188
	SlotGetFloatArrayElements         = 189
	SlotGetDoubleArrayElements        = 190
	SlotReleaseBooleanArrayElements   = 191
	SlotReleaseByteArrayElements      = 192
	SlotReleaseCharArrayElements      = 193
	SlotReleaseShortArrayElements     = 194
	SlotReleaseIntArrayElements       = 195
	SlotReleaseLongArrayElements      = 196
	SlotReleaseFloatArrayElements     = 197
	SlotReleaseDoubleArrayElements    = 198
	SlotGetBooleanArrayRegion         = 199
	SlotGetByteArrayRegion            = 200
	SlotGetCharArrayRegion            = 201
	SlotGetShortArrayRegion           = 202
	SlotGetIntArrayRegion             = 203
	SlotGetLongArrayRegion            = 204
	SlotGetFloatArrayRegion           = 205
	SlotGetDoubleArrayRegion          = 206
	SlotSetBooleanArrayRegion         = 207
	SlotSetByteArrayRegion            = 208
	SlotSetCharArrayRegion            = 209
	SlotSetShortArrayRegion           = 210
	SlotSetIntArrayRegion             = 211
	SlotSetLongArrayRegion            = 212
	SlotSetFloatArrayRegion           = 213
	SlotSetDoubleArrayRegion          = 214
	SlotRegisterNatives               = 215
	SlotUnregisterNatives             = 216
	SlotMonitorEnter                  = 217
	SlotMonitorExit                   = 218
	SlotGetJavaVM                     = 219
	SlotGetStringRegion               = 220
	SlotGetStringUTFRegion            = 221
	SlotGetPrimitiveArrayCritical     = 222
	SlotReleasePrimitiveArrayCritical = 223
	SlotGetStringCritical             = 224
	SlotReleaseStringCritical         = 225
	SlotNewWeakGlobalRef              = 226
	SlotDeleteWeakGlobalRef           = 227
	SlotExceptionCheck                = 228
	SlotGetObjectRefType              = 232

	// SlotCount is the number of slots in the C function table.
	SlotCount = 234
)

var slotNames = [SlotCount]string{
	"reserved0", "reserved1", "reserved2", "reserved3",
	"GetVersion", "DefineClass", "FindClass", "FromReflectedMethod",
	"FromReflectedField", "ToReflectedMethod", "GetSuperclass", "IsAssignableFrom",
	"ToReflectedField", "Throw", "ThrowNew", "ExceptionOccurred",
	"ExceptionDescribe", "ExceptionClear", "FatalError", "PushLocalFrame",
	"PopLocalFrame", "NewGlobalRef", "DeleteGlobalRef", "DeleteLocalRef",
	"IsSameObject", "NewLocalRef", "EnsureLocalCapacity", "AllocObject",
	"NewObject", "NewObjectV", "NewObjectA", "GetObjectClass",
	"IsInstanceOf", "GetMethodID", "CallObjectMethod", "CallObjectMethodV",
	"CallObjectMethodA", "CallBooleanMethod", "CallBooleanMethodV", "CallBooleanMethodA",
	"CallByteMethod", "CallByteMethodV", "CallByteMethodA", "CallCharMethod",
	"CallCharMethodV", "CallCharMethodA", "CallShortMethod", "CallShortMethodV",
	"CallShortMethodA", "CallIntMethod", "CallIntMethodV", "CallIntMethodA",
	"CallLongMethod", "CallLongMethodV", "CallLongMethodA", "CallFloatMethod",
	"CallFloatMethodV", "CallFloatMethodA", "CallDoubleMethod", "CallDoubleMethodV",
	"CallDoubleMethodA", "CallVoidMethod", "CallVoidMethodV", "CallVoidMethodA",
	"CallNonvirtualObjectMethod", "CallNonvirtualObjectMethodV", "CallNonvirtualObjectMethodA", "CallNonvirtualBooleanMethod",
	"CallNonvirtualBooleanMethodV", "CallNonvirtualBooleanMethodA", "CallNonvirtualByteMethod", "CallNonvirtualByteMethodV",
	"CallNonvirtualByteMethodA", "CallNonvirtualCharMethod", "CallNonvirtualCharMethodV", "CallNonvirtualCharMethodA",
	"CallNonvirtualShortMethod", "CallNonvirtualShortMethodV", "CallNonvirtualShortMethodA", "CallNonvirtualIntMethod",
	"CallNonvirtualIntMethodV", "CallNonvirtualIntMethodA", "CallNonvirtualLongMethod", "CallNonvirtualLongMethodV",
	"CallNonvirtualLongMethodA", "CallNonvirtualFloatMethod", "CallNonvirtualFloatMethodV", "CallNonvirtualFloatMethodA",
	"CallNonvirtualDoubleMethod", "CallNonvirtualDoubleMethodV", "CallNonvirtualDoubleMethodA", "CallNonvirtualVoidMethod",
	"CallNonvirtualVoidMethodV", "CallNonvirtualVoidMethodA", "GetFieldID", "GetObjectField",
	"GetBooleanField", "GetByteField", "GetCharField", "GetShortField",
	"GetIntField", "GetLongField", "GetFloatField", "GetDoubleField",
	"SetObjectField", "SetBooleanField", "SetByteField", "SetCharField",
	"SetShortField", "SetIntField", "SetLongField", "SetFloatField",
	"SetDoubleField", "GetStaticMethodID", "CallStaticObjectMethod", "CallStaticObjectMethodV",
	"CallStaticObjectMethodA", "CallStaticBooleanMethod", "CallStaticBooleanMethodV", "CallStaticBooleanMethodA",
	"CallStaticByteMethod", "CallStaticByteMethodV", "CallStaticByteMethodA", "CallStaticCharMethod",
	"CallStaticCharMethodV", "CallStaticCharMethodA", "CallStaticShortMethod", "CallStaticShortMethodV",
	"CallStaticShortMethodA", "CallStaticIntMethod", "CallStaticIntMethodV", "CallStaticIntMethodA",
	"CallStaticLongMethod", "CallStaticLongMethodV", "CallStaticLongMethodA", "CallStaticFloatMethod",
	"CallStaticFloatMethodV", "CallStaticFloatMethodA", "CallStaticDoubleMethod", "CallStaticDoubleMethodV",
	"CallStaticDoubleMethodA", "CallStaticVoidMethod", "CallStaticVoidMethodV", "CallStaticVoidMethodA",
	"GetStaticFieldID", "GetStaticObjectField", "GetStaticBooleanField", "GetStaticByteField",
	"GetStaticCharField", "GetStaticShortField", "GetStaticIntField", "GetStaticLongField",
	"GetStaticFloatField", "GetStaticDoubleField", "SetStaticObjectField", "SetStaticBooleanField",
	"SetStaticByteField", "SetStaticCharField", "SetStaticShortField", "SetStaticIntField",
	"SetStaticLongField", "SetStaticFloatField", "SetStaticDoubleField", "NewString",
	"GetStringLength", "GetStringChars", "ReleaseStringChars", "NewStringUTF",
	"GetStringUTFLength", "GetStringUTFChars", "ReleaseStringUTFChars", "GetArrayLength",
	"NewObjectArray", "GetObjectArrayElement", "SetObjectArrayElement", "NewBooleanArray",
	"NewByteArray", "NewCharArray", "NewShortArray", "NewIntArray",
	"NewLongArray", "NewFloatArray", "NewDoubleArray", "GetBooleanArrayElements",
	"GetByteArrayElements", "GetCharArrayElements", "GetShortArrayElements", "GetIntArrayElements",
	"GetLongArrayElements", "GetFloatArrayElements", "GetDoubleArrayElements", "ReleaseBooleanArrayElements",
	"ReleaseByteArrayElements", "ReleaseCharArrayElements", "ReleaseShortArrayElements", "ReleaseIntArrayElements",
	"ReleaseLongArrayElements", "ReleaseFloatArrayElements", "ReleaseDoubleArrayElements", "GetBooleanArrayRegion",
	"GetByteArrayRegion", "GetCharArrayRegion", "GetShortArrayRegion", "GetIntArrayRegion",
	"GetLongArrayRegion", "GetFloatArrayRegion", "GetDoubleArrayRegion", "SetBooleanArrayRegion",
	"SetByteArrayRegion", "SetCharArrayRegion", "SetShortArrayRegion", "SetIntArrayRegion",
	"SetLongArrayRegion", "SetFloatArrayRegion", "SetDoubleArrayRegion", "RegisterNatives",
	"UnregisterNatives", "MonitorEnter", "MonitorExit", "GetJavaVM",
	"GetStringRegion", "GetStringUTFRegion", "GetPrimitiveArrayCritical", "ReleasePrimitiveArrayCritical",
	"GetStringCritical", "ReleaseStringCritical", "NewWeakGlobalRef", "DeleteWeakGlobalRef",
	"ExceptionCheck", "NewDirectByteBuffer", "GetDirectBufferAddress", "GetDirectBufferCapacity",
	"GetObjectRefType", "GetModule",
}

// SlotName returns the standard name of a function table slot.
func SlotName(slot int) string {
	if slot < 0 || slot >= SlotCount {
		return "slot" + strconv.Itoa(slot)
	}
	return slotNames[slot]
}

func newNativeInterface() *NativeInterface {
	return &NativeInterface{
		GetVersion:                    getVersion,
		DefineClass:                   defineClass,
		FindClass:                     findClass,
		GetSuperclass:                 getSuperclass,
		IsAssignableFrom:              isAssignableFrom,
		Throw:                         throw,
		ThrowNew:                      throwNew,
		ExceptionOccurred:             exceptionOccurred,
		ExceptionDescribe:             exceptionDescribe,
		ExceptionClear:                exceptionClear,
		FatalError:                    fatalError,
		PushLocalFrame:                pushLocalFrame,
		PopLocalFrame:                 popLocalFrame,
		NewGlobalRef:                  newGlobalRef,
		DeleteGlobalRef:               deleteGlobalRef,
		DeleteLocalRef:                deleteLocalRef,
		IsSameObject:                  isSameObject,
		NewLocalRef:                   newLocalRef,
		EnsureLocalCapacity:           ensureLocalCapacity,
		AllocObject:                   allocObject,
		NewObject:                     newObject,
		NewObjectA:                    newObjectA,
		GetObjectClass:                getObjectClass,
		IsInstanceOf:                  isInstanceOf,
		GetMethodID:                   getMethodID,
		CallObjectMethod:              callMethod[Object]("CallObjectMethod"),
		CallObjectMethodA:             callMethodA[Object]("CallObjectMethodA"),
		CallBooleanMethod:             callMethod[Boolean]("CallBooleanMethod"),
		CallBooleanMethodA:            callMethodA[Boolean]("CallBooleanMethodA"),
		CallByteMethod:                callMethod[Byte]("CallByteMethod"),
		CallByteMethodA:               callMethodA[Byte]("CallByteMethodA"),
		CallCharMethod:                callMethod[Char]("CallCharMethod"),
		CallCharMethodA:               callMethodA[Char]("CallCharMethodA"),
		CallShortMethod:               callMethod[Short]("CallShortMethod"),
		CallShortMethodA:              callMethodA[Short]("CallShortMethodA"),
		CallIntMethod:                 callMethod[Int]("CallIntMethod"),
		CallIntMethodA:                callMethodA[Int]("CallIntMethodA"),
		CallLongMethod:                callMethod[Long]("CallLongMethod"),
		CallLongMethodA:               callMethodA[Long]("CallLongMethodA"),
		CallFloatMethod:               callMethod[Float]("CallFloatMethod"),
		CallFloatMethodA:              callMethodA[Float]("CallFloatMethodA"),
		CallDoubleMethod:              callMethod[Double]("CallDoubleMethod"),
		CallDoubleMethodA:             callMethodA[Double]("CallDoubleMethodA"),
		CallVoidMethod:                callVoidMethod("CallVoidMethod"),
		CallVoidMethodA:               callVoidMethodA("CallVoidMethodA"),
		CallNonvirtualObjectMethod:    callNonvirtualMethod[Object]("CallNonvirtualObjectMethod"),
		CallNonvirtualObjectMethodA:   callNonvirtualMethodA[Object]("CallNonvirtualObjectMethodA"),
		CallNonvirtualBooleanMethod:   callNonvirtualMethod[Boolean]("CallNonvirtualBooleanMethod"),
		CallNonvirtualBooleanMethodA:  callNonvirtualMethodA[Boolean]("CallNonvirtualBooleanMethodA"),
		CallNonvirtualByteMethod:      callNonvirtualMethod[Byte]("CallNonvirtualByteMethod"),
		CallNonvirtualByteMethodA:     callNonvirtualMethodA[Byte]("CallNonvirtualByteMethodA"),
		CallNonvirtualCharMethod:      callNonvirtualMethod[Char]("CallNonvirtualCharMethod"),
		CallNonvirtualCharMethodA:     callNonvirtualMethodA[Char]("CallNonvirtualCharMethodA"),
		CallNonvirtualShortMethod:     callNonvirtualMethod[Short]("CallNonvirtualShortMethod"),
		CallNonvirtualShortMethodA:    callNonvirtualMethodA[Short]("CallNonvirtualShortMethodA"),
		CallNonvirtualIntMethod:       callNonvirtualMethod[Int]("CallNonvirtualIntMethod"),
		CallNonvirtualIntMethodA:      callNonvirtualMethodA[Int]("CallNonvirtualIntMethodA"),
		CallNonvirtualLongMethod:      callNonvirtualMethod[Long]("CallNonvirtualLongMethod"),
		CallNonvirtualLongMethodA:     callNonvirtualMethodA[Long]("CallNonvirtualLongMethodA"),
		CallNonvirtualFloatMethod:     callNonvirtualMethod[Float]("CallNonvirtualFloatMethod"),
		CallNonvirtualFloatMethodA:    callNonvirtualMethodA[Float]("CallNonvirtualFloatMethodA"),
		CallNonvirtualDoubleMethod:    callNonvirtualMethod[Double]("CallNonvirtualDoubleMethod"),
		CallNonvirtualDoubleMethodA:   callNonvirtualMethodA[Double]("CallNonvirtualDoubleMethodA"),
		CallNonvirtualVoidMethod:      callNonvirtualVoidMethod("CallNonvirtualVoidMethod"),
		CallNonvirtualVoidMethodA:     callNonvirtualVoidMethodA("CallNonvirtualVoidMethodA"),
		GetFieldID:                    getFieldID,
		GetObjectField:                getField[Object]("GetObjectField"),
		GetBooleanField:               getField[Boolean]("GetBooleanField"),
		GetByteField:                  getField[Byte]("GetByteField"),
		GetCharField:                  getField[Char]("GetCharField"),
		GetShortField:                 getField[Short]("GetShortField"),
		GetIntField:                   getField[Int]("GetIntField"),
		GetLongField:                  getField[Long]("GetLongField"),
		GetFloatField:                 getField[Float]("GetFloatField"),
		GetDoubleField:                getField[Double]("GetDoubleField"),
		SetObjectField:                setField[Object]("SetObjectField"),
		SetBooleanField:               setField[Boolean]("SetBooleanField"),
		SetByteField:                  setField[Byte]("SetByteField"),
		SetCharField:                  setField[Char]("SetCharField"),
		SetShortField:                 setField[Short]("SetShortField"),
		SetIntField:                   setField[Int]("SetIntField"),
		SetLongField:                  setField[Long]("SetLongField"),
		SetFloatField:                 setField[Float]("SetFloatField"),
		SetDoubleField:                setField[Double]("SetDoubleField"),
		GetStaticMethodID:             getStaticMethodID,
		CallStaticObjectMethod:        callStaticMethod[Object]("CallStaticObjectMethod"),
		CallStaticObjectMethodA:       callStaticMethodA[Object]("CallStaticObjectMethodA"),
		CallStaticBooleanMethod:       callStaticMethod[Boolean]("CallStaticBooleanMethod"),
		CallStaticBooleanMethodA:      callStaticMethodA[Boolean]("CallStaticBooleanMethodA"),
		CallStaticByteMethod:          callStaticMethod[Byte]("CallStaticByteMethod"),
		CallStaticByteMethodA:         callStaticMethodA[Byte]("CallStaticByteMethodA"),
		CallStaticCharMethod:          callStaticMethod[Char]("CallStaticCharMethod"),
		CallStaticCharMethodA:         callStaticMethodA[Char]("CallStaticCharMethodA"),
		CallStaticShortMethod:         callStaticMethod[Short]("CallStaticShortMethod"),
		CallStaticShortMethodA:        callStaticMethodA[Short]("CallStaticShortMethodA"),
		CallStaticIntMethod:           callStaticMethod[Int]("CallStaticIntMethod"),
		CallStaticIntMethodA:          callStaticMethodA[Int]("CallStaticIntMethodA"),
		CallStaticLongMethod:          callStaticMethod[Long]("CallStaticLongMethod"),
		CallStaticLongMethodA:         callStaticMethodA[Long]("CallStaticLongMethodA"),
		CallStaticFloatMethod:         callStaticMethod[Float]("CallStaticFloatMethod"),
		CallStaticFloatMethodA:        callStaticMethodA[Float]("CallStaticFloatMethodA"),
		CallStaticDoubleMethod:        callStaticMethod[Double]("CallStaticDoubleMethod"),
		CallStaticDoubleMethodA:       callStaticMethodA[Double]("CallStaticDoubleMethodA"),
		CallStaticVoidMethod:          callStaticVoidMethod("CallStaticVoidMethod"),
		CallStaticVoidMethodA:         callStaticVoidMethodA("CallStaticVoidMethodA"),
		GetStaticFieldID:              getStaticFieldID,
		GetStaticObjectField:          getStaticField[Object]("GetStaticObjectField"),
		GetStaticBooleanField:         getStaticField[Boolean]("GetStaticBooleanField"),
		GetStaticByteField:            getStaticField[Byte]("GetStaticByteField"),
		GetStaticCharField:            getStaticField[Char]("GetStaticCharField"),
		GetStaticShortField:           getStaticField[Short]("GetStaticShortField"),
		GetStaticIntField:             getStaticField[Int]("GetStaticIntField"),
		GetStaticLongField:            getStaticField[Long]("GetStaticLongField"),
		GetStaticFloatField:           getStaticField[Float]("GetStaticFloatField"),
		GetStaticDoubleField:          getStaticField[Double]("GetStaticDoubleField"),
		SetStaticObjectField:          setStaticField[Object]("SetStaticObjectField"),
		SetStaticBooleanField:         setStaticField[Boolean]("SetStaticBooleanField"),
		SetStaticByteField:            setStaticField[Byte]("SetStaticByteField"),
		SetStaticCharField:            setStaticField[Char]("SetStaticCharField"),
		SetStaticShortField:           setStaticField[Short]("SetStaticShortField"),
		SetStaticIntField:             setStaticField[Int]("SetStaticIntField"),
		SetStaticLongField:            setStaticField[Long]("SetStaticLongField"),
		SetStaticFloatField:           setStaticField[Float]("SetStaticFloatField"),
		SetStaticDoubleField:          setStaticField[Double]("SetStaticDoubleField"),
		NewString:                     newString,
		GetStringLength:               getStringLength,
		GetStringChars:                getStringChars,
		ReleaseStringChars:            releaseStringChars,
		NewStringUTF:                  newStringUTF,
		GetStringUTFLength:            getStringUTFLength,
		GetStringUTFChars:             getStringUTFChars,
		ReleaseStringUTFChars:         releaseStringUTFChars,
		GetArrayLength:                getArrayLength,
		NewObjectArray:                newObjectArray,
		GetObjectArrayElement:         getObjectArrayElement,
		SetObjectArrayElement:         setObjectArrayElement,
		NewBooleanArray:               newArray[Boolean]("NewBooleanArray"),
		NewByteArray:                  newArray[Byte]("NewByteArray"),
		NewCharArray:                  newArray[Char]("NewCharArray"),
		NewShortArray:                 newArray[Short]("NewShortArray"),
		NewIntArray:                   newArray[Int]("NewIntArray"),
		NewLongArray:                  newArray[Long]("NewLongArray"),
		NewFloatArray:                 newArray[Float]("NewFloatArray"),
		NewDoubleArray:                newArray[Double]("NewDoubleArray"),
		GetBooleanArrayElements:       getArrayElements[Boolean]("GetBooleanArrayElements", "ReleaseBooleanArrayElements"),
		GetByteArrayElements:          getArrayElements[Byte]("GetByteArrayElements", "ReleaseByteArrayElements"),
		GetCharArrayElements:          getArrayElements[Char]("GetCharArrayElements", "ReleaseCharArrayElements"),
		GetShortArrayElements:         getArrayElements[Short]("GetShortArrayElements", "ReleaseShortArrayElements"),
		GetIntArrayElements:           getArrayElements[Int]("GetIntArrayElements", "ReleaseIntArrayElements"),
		GetLongArrayElements:          getArrayElements[Long]("GetLongArrayElements", "ReleaseLongArrayElements"),
		GetFloatArrayElements:         getArrayElements[Float]("GetFloatArrayElements", "ReleaseFloatArrayElements"),
		GetDoubleArrayElements:        getArrayElements[Double]("GetDoubleArrayElements", "ReleaseDoubleArrayElements"),
		ReleaseBooleanArrayElements:   releaseArrayElements[Boolean]("ReleaseBooleanArrayElements"),
		ReleaseByteArrayElements:      releaseArrayElements[Byte]("ReleaseByteArrayElements"),
		ReleaseCharArrayElements:      releaseArrayElements[Char]("ReleaseCharArrayElements"),
		ReleaseShortArrayElements:     releaseArrayElements[Short]("ReleaseShortArrayElements"),
		ReleaseIntArrayElements:       releaseArrayElements[Int]("ReleaseIntArrayElements"),
		ReleaseLongArrayElements:      releaseArrayElements[Long]("ReleaseLongArrayElements"),
		ReleaseFloatArrayElements:     releaseArrayElements[Float]("ReleaseFloatArrayElements"),
		ReleaseDoubleArrayElements:    releaseArrayElements[Double]("ReleaseDoubleArrayElements"),
		GetBooleanArrayRegion:         getArrayRegion[Boolean]("GetBooleanArrayRegion"),
		GetByteArrayRegion:            getArrayRegion[Byte]("GetByteArrayRegion"),
		GetCharArrayRegion:            getArrayRegion[Char]("GetCharArrayRegion"),
		GetShortArrayRegion:           getArrayRegion[Short]("GetShortArrayRegion"),
		GetIntArrayRegion:             getArrayRegion[Int]("GetIntArrayRegion"),
		GetLongArrayRegion:            getArrayRegion[Long]("GetLongArrayRegion"),
		GetFloatArrayRegion:           getArrayRegion[Float]("GetFloatArrayRegion"),
		GetDoubleArrayRegion:          getArrayRegion[Double]("GetDoubleArrayRegion"),
		SetBooleanArrayRegion:         setArrayRegion[Boolean]("SetBooleanArrayRegion"),
		SetByteArrayRegion:            setArrayRegion[Byte]("SetByteArrayRegion"),
		SetCharArrayRegion:            setArrayRegion[Char]("SetCharArrayRegion"),
		SetShortArrayRegion:           setArrayRegion[Short]("SetShortArrayRegion"),
		SetIntArrayRegion:             setArrayRegion[Int]("SetIntArrayRegion"),
		SetLongArrayRegion:            setArrayRegion[Long]("SetLongArrayRegion"),
		SetFloatArrayRegion:           setArrayRegion[Float]("SetFloatArrayRegion"),
		SetDoubleArrayRegion:          setArrayRegion[Double]("SetDoubleArrayRegion"),
		RegisterNatives:               registerNatives,
		UnregisterNatives:             unregisterNatives,
		MonitorEnter:                  monitorEnter,
		MonitorExit:                   monitorExit,
		GetJavaVM:                     getJavaVM,
		GetStringRegion:               getStringRegion,
		GetStringUTFRegion:            getStringUTFRegion,
		GetPrimitiveArrayCritical:     getPrimitiveArrayCritical,
		ReleasePrimitiveArrayCritical: releasePrimitiveArrayCritical,
		GetStringCritical:             getStringCritical,
		ReleaseStringCritical:         releaseStringCritical,
		NewWeakGlobalRef:              newWeakGlobalRef,
		DeleteWeakGlobalRef:           deleteWeakGlobalRef,
		ExceptionCheck:                exceptionCheck,
		GetObjectRefType:              getObjectRefType,
	}
}

var tables sync.Map // Int -> *NativeInterface

// tableFor returns the function table for a negotiated version. Entries
// introduced after that version are replaced by stubs that raise a fatal
// error naming the entry.
func tableFor(version Int) *NativeInterface {
	if t, ok := tables.Load(version); ok {
		return t.(*NativeInterface)
	}
	t := newNativeInterface()
	v := reflect.ValueOf(t).Elem()
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		_, since, err := parseSlotTag(f.Tag.Get("jni"))
		if err != nil {
			panic(fmt.Sprintf("jni: field %s: %v", f.Name, err))
		}
		if since > version {
			v.Field(i).Set(unavailableEntry(f.Name, f.Type, since))
		}
	}
	actual, _ := tables.LoadOrStore(version, t)
	return actual.(*NativeInterface)
}

func unavailableEntry(name string, typ reflect.Type, since Int) reflect.Value {
	return reflect.MakeFunc(typ, func(args []reflect.Value) []reflect.Value {
		env := args[0].Interface().(*Env)
		env.jvm.fatal(env, fmt.Sprintf("%s requires JNI %s but the environment negotiated JNI %s",
			name, VersionString(since), VersionString(env.version)))
		out := make([]reflect.Value, typ.NumOut())
		for i := range out {
			out[i] = reflect.Zero(typ.Out(i))
		}
		return out
	})
}

// parseSlotTag parses a jni struct tag of the form "slot" or "slot,since".
func parseSlotTag(tag string) (slot int, since Int, err error) {
	num, ver, hasVer := strings.Cut(tag, ",")
	slot, err = strconv.Atoi(num)
	if err != nil {
		return 0, 0, fmt.Errorf("bad slot in tag %q: %w", tag, err)
	}
	since = Version1_1
	if hasVer {
		v, ok := ParseVersion(ver)
		if !ok {
			return 0, 0, fmt.Errorf("bad version in tag %q", tag)
		}
		since = v
	}
	return slot, since, nil
}
