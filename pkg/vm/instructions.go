package vm

import (
	"fmt"
	"math"

	"github.com/daimatz/gojni/pkg/classfile"
)

// Opcodes
const (
	OpNop             = 0x00
	OpAconstNull      = 0x01
	OpIconstM1        = 0x02
	OpIconst0         = 0x03
	OpIconst1         = 0x04
	OpIconst2         = 0x05
	OpIconst3         = 0x06
	OpIconst4         = 0x07
	OpIconst5         = 0x08
	OpLconst0         = 0x09
	OpLconst1         = 0x0A
	OpFconst0         = 0x0B
	OpFconst1         = 0x0C
	OpFconst2         = 0x0D
	OpDconst0         = 0x0E
	OpDconst1         = 0x0F
	OpBipush          = 0x10
	OpSipush          = 0x11
	OpLdc             = 0x12
	OpLdcW            = 0x13
	OpLdc2W           = 0x14
	OpIload           = 0x15
	OpLload           = 0x16
	OpFload           = 0x17
	OpDload           = 0x18
	OpAload           = 0x19
	OpIload0          = 0x1A
	OpIload1          = 0x1B
	OpIload2          = 0x1C
	OpIload3          = 0x1D
	OpLload0          = 0x1E
	OpLload1          = 0x1F
	OpLload2          = 0x20
	OpLload3          = 0x21
	OpFload0          = 0x22
	OpFload1          = 0x23
	OpFload2          = 0x24
	OpFload3          = 0x25
	OpDload0          = 0x26
	OpDload1          = 0x27
	OpDload2          = 0x28
	OpDload3          = 0x29
	OpAload0          = 0x2A
	OpAload1          = 0x2B
	OpAload2          = 0x2C
	OpAload3          = 0x2D
	OpIaload          = 0x2E
	OpLaload          = 0x2F
	OpFaload          = 0x30
	OpDaload          = 0x31
	OpAaload          = 0x32
	OpBaload          = 0x33
	OpCaload          = 0x34
	OpSaload          = 0x35
	OpIstore          = 0x36
	OpLstore          = 0x37
	OpFstore          = 0x38
	OpDstore          = 0x39
	OpAstore          = 0x3A
	OpIstore0         = 0x3B
	OpIstore1         = 0x3C
	OpIstore2         = 0x3D
	OpIstore3         = 0x3E
	OpLstore0         = 0x3F
	OpLstore1         = 0x40
	OpLstore2         = 0x41
	OpLstore3         = 0x42
	OpFstore0         = 0x43
	OpFstore1         = 0x44
	OpFstore2         = 0x45
	OpFstore3         = 0x46
	OpDstore0         = 0x47
	OpDstore1         = 0x48
	OpDstore2         = 0x49
	OpDstore3         = 0x4A
	OpAstore0         = 0x4B
	OpAstore1         = 0x4C
	OpAstore2         = 0x4D
	OpAstore3         = 0x4E
	OpIastore         = 0x4F
	OpLastore         = 0x50
	OpFastore         = 0x51
	OpDastore         = 0x52
	OpAastore         = 0x53
	OpBastore         = 0x54
	OpCastore         = 0x55
	OpSastore         = 0x56
	OpPop             = 0x57
	OpPop2            = 0x58
	OpDup             = 0x59
	OpDupX1           = 0x5A
	OpDupX2           = 0x5B
	OpDup2            = 0x5C
	OpDup2X1          = 0x5D
	OpDup2X2          = 0x5E
	OpSwap            = 0x5F
	OpIadd            = 0x60
	OpLadd            = 0x61
	OpFadd            = 0x62
	OpDadd            = 0x63
	OpIsub            = 0x64
	OpLsub            = 0x65
	OpFsub            = 0x66
	OpDsub            = 0x67
	OpImul            = 0x68
	OpLmul            = 0x69
	OpFmul            = 0x6A
	OpDmul            = 0x6B
	OpIdiv            = 0x6C
	OpLdiv            = 0x6D
	OpFdiv            = 0x6E
	OpDdiv            = 0x6F
	OpIrem            = 0x70
	OpLrem            = 0x71
	OpFrem            = 0x72
	OpDrem            = 0x73
	OpIneg            = 0x74
	OpLneg            = 0x75
	OpFneg            = 0x76
	OpDneg            = 0x77
	OpIshl            = 0x78
	OpLshl            = 0x79
	OpIshr            = 0x7A
	OpLshr            = 0x7B
	OpIushr           = 0x7C
	OpLushr           = 0x7D
	OpIand            = 0x7E
	OpLand            = 0x7F
	OpIor             = 0x80
	OpLor             = 0x81
	OpIxor            = 0x82
	OpLxor            = 0x83
	OpIinc            = 0x84
	OpI2l             = 0x85
	OpI2f             = 0x86
	OpI2d             = 0x87
	OpL2i             = 0x88
	OpL2f             = 0x89
	OpL2d             = 0x8A
	OpF2i             = 0x8B
	OpF2l             = 0x8C
	OpF2d             = 0x8D
	OpD2i             = 0x8E
	OpD2l             = 0x8F
	OpD2f             = 0x90
	OpI2b             = 0x91
	OpI2c             = 0x92
	OpI2s             = 0x93
	OpLcmp            = 0x94
	OpFcmpl           = 0x95
	OpFcmpg           = 0x96
	OpDcmpl           = 0x97
	OpDcmpg           = 0x98
	OpIfeq            = 0x99
	OpIfne            = 0x9A
	OpIflt            = 0x9B
	OpIfge            = 0x9C
	OpIfgt            = 0x9D
	OpIfle            = 0x9E
	OpIfIcmpeq        = 0x9F
	OpIfIcmpne        = 0xA0
	OpIfIcmplt        = 0xA1
	OpIfIcmpge        = 0xA2
	OpIfIcmpgt        = 0xA3
	OpIfIcmple        = 0xA4
	OpIfAcmpeq        = 0xA5
	OpIfAcmpne        = 0xA6
	OpGoto            = 0xA7
	OpTableswitch     = 0xAA
	OpLookupswitch    = 0xAB
	OpIreturn         = 0xAC
	OpLreturn         = 0xAD
	OpFreturn         = 0xAE
	OpDreturn         = 0xAF
	OpAreturn         = 0xB0
	OpReturn          = 0xB1
	OpGetstatic       = 0xB2
	OpPutstatic       = 0xB3
	OpGetfield        = 0xB4
	OpPutfield        = 0xB5
	OpInvokevirtual   = 0xB6
	OpInvokespecial   = 0xB7
	OpInvokestatic    = 0xB8
	OpInvokeinterface = 0xB9
	OpNew             = 0xBB
	OpNewarray        = 0xBC
	OpAnewarray       = 0xBD
	OpArraylength     = 0xBE
	OpAthrow          = 0xBF
	OpCheckcast       = 0xC0
	OpInstanceof      = 0xC1
	OpMonitorenter    = 0xC2
	OpMonitorexit     = 0xC3
	OpWide            = 0xC4
	OpMultianewarray  = 0xC5
	OpIfnull          = 0xC6
	OpIfnonnull       = 0xC7
	OpGotoW           = 0xC8
)

// newarray atype operand to element descriptor.
var primitiveArrayTypes = map[byte]string{
	4:  "Z",
	5:  "C",
	6:  "F",
	7:  "D",
	8:  "B",
	9:  "S",
	10: "I",
	11: "J",
}

// executeInstruction executes a single bytecode instruction.
// Returns (returnValue, hasReturn, error).
func (vm *VM) executeInstruction(t *Thread, frame *Frame, opcode byte) (Value, bool, error) {
	switch opcode {
	case OpNop:
		// do nothing

	// --- Constant load instructions ---
	case OpAconstNull:
		frame.Push(NullValue())

	case OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5:
		frame.Push(IntValue(int32(opcode) - OpIconst0))

	case OpLconst0, OpLconst1:
		frame.Push(LongValue(int64(opcode - OpLconst0)))

	case OpFconst0, OpFconst1, OpFconst2:
		frame.Push(FloatValue(float32(opcode - OpFconst0)))

	case OpDconst0, OpDconst1:
		frame.Push(DoubleValue(float64(opcode - OpDconst0)))

	case OpBipush:
		val := frame.ReadI8()
		frame.Push(IntValue(int32(val)))

	case OpSipush:
		val := frame.ReadI16()
		frame.Push(IntValue(int32(val)))

	case OpLdc:
		index := frame.ReadU8()
		return vm.executeLdc(frame, uint16(index))

	case OpLdcW:
		index := frame.ReadU16()
		return vm.executeLdc(frame, index)

	case OpLdc2W:
		index := frame.ReadU16()
		pool := frame.Class.ConstantPool
		if int(index) >= len(pool) || pool[index] == nil {
			return Value{}, false, fmt.Errorf("ldc2_w: invalid constant pool index %d", index)
		}
		switch c := pool[index].(type) {
		case *classfile.ConstantLong:
			frame.Push(LongValue(c.Value))
		case *classfile.ConstantDouble:
			frame.Push(DoubleValue(c.Value))
		default:
			return Value{}, false, fmt.Errorf("ldc2_w: unsupported type at index %d", index)
		}

	// --- Local variable load instructions ---
	case OpIload, OpLload, OpFload, OpDload, OpAload:
		index := frame.ReadU8()
		frame.Push(frame.GetLocal(int(index)))
	case OpIload0, OpLload0, OpFload0, OpDload0, OpAload0:
		frame.Push(frame.GetLocal(0))
	case OpIload1, OpLload1, OpFload1, OpDload1, OpAload1:
		frame.Push(frame.GetLocal(1))
	case OpIload2, OpLload2, OpFload2, OpDload2, OpAload2:
		frame.Push(frame.GetLocal(2))
	case OpIload3, OpLload3, OpFload3, OpDload3, OpAload3:
		frame.Push(frame.GetLocal(3))

	// --- Array load ---
	case OpIaload, OpLaload, OpFaload, OpDaload, OpAaload, OpBaload, OpCaload, OpSaload:
		index := frame.Pop().Int
		arr, err := arrayOperand(frame.Pop())
		if err != nil {
			return Value{}, false, err
		}
		if err := checkIndex(arr, index); err != nil {
			return Value{}, false, err
		}
		frame.Push(arr.Elements[index])

	// --- Local variable store instructions ---
	case OpIstore, OpLstore, OpFstore, OpDstore, OpAstore:
		index := frame.ReadU8()
		frame.SetLocal(int(index), frame.Pop())
	case OpIstore0, OpLstore0, OpFstore0, OpDstore0, OpAstore0:
		frame.SetLocal(0, frame.Pop())
	case OpIstore1, OpLstore1, OpFstore1, OpDstore1, OpAstore1:
		frame.SetLocal(1, frame.Pop())
	case OpIstore2, OpLstore2, OpFstore2, OpDstore2, OpAstore2:
		frame.SetLocal(2, frame.Pop())
	case OpIstore3, OpLstore3, OpFstore3, OpDstore3, OpAstore3:
		frame.SetLocal(3, frame.Pop())

	// --- Array store ---
	case OpIastore, OpLastore, OpFastore, OpDastore, OpBastore, OpCastore, OpSastore:
		value := frame.Pop()
		index := frame.Pop().Int
		arr, err := arrayOperand(frame.Pop())
		if err != nil {
			return Value{}, false, err
		}
		if err := checkIndex(arr, index); err != nil {
			return Value{}, false, err
		}
		arr.Elements[index] = NarrowElement(arr.ElementType(), value)

	case OpAastore:
		value := frame.Pop()
		index := frame.Pop().Int
		arr, err := arrayOperand(frame.Pop())
		if err != nil {
			return Value{}, false, err
		}
		if err := checkIndex(arr, index); err != nil {
			return Value{}, false, err
		}
		if !value.IsNull() {
			elem, err := vm.LoadClass(ClassNameOf(arr.ElementType()))
			if err == nil && !vm.IsInstanceOf(value.Ref, elem) {
				return Value{}, false, NewJavaExceptionf("java/lang/ArrayStoreException", "%s", vm.ClassOf(value.Ref).JavaName())
			}
		}
		arr.Elements[index] = value

	// --- Stack manipulation ---
	// Longs and doubles occupy one operand entry, so the category-2
	// forms inspect IsWide to decide how many entries to move.
	case OpPop:
		frame.Pop()

	case OpPop2:
		if v := frame.Pop(); !v.IsWide() {
			frame.Pop()
		}

	case OpDup:
		v := frame.Peek()
		frame.Push(v)

	case OpDupX1:
		v1 := frame.Pop()
		v2 := frame.Pop()
		frame.Push(v1)
		frame.Push(v2)
		frame.Push(v1)

	case OpDupX2:
		v1 := frame.Pop()
		v2 := frame.Pop()
		if v2.IsWide() {
			frame.Push(v1)
			frame.Push(v2)
			frame.Push(v1)
			break
		}
		v3 := frame.Pop()
		frame.Push(v1)
		frame.Push(v3)
		frame.Push(v2)
		frame.Push(v1)

	case OpDup2:
		v1 := frame.Pop()
		if v1.IsWide() {
			frame.Push(v1)
			frame.Push(v1)
			break
		}
		v2 := frame.Pop()
		frame.Push(v2)
		frame.Push(v1)
		frame.Push(v2)
		frame.Push(v1)

	case OpDup2X1:
		v1 := frame.Pop()
		if v1.IsWide() {
			v2 := frame.Pop()
			frame.Push(v1)
			frame.Push(v2)
			frame.Push(v1)
			break
		}
		v2 := frame.Pop()
		v3 := frame.Pop()
		frame.Push(v2)
		frame.Push(v1)
		frame.Push(v3)
		frame.Push(v2)
		frame.Push(v1)

	case OpDup2X2:
		v1 := frame.Pop()
		var top []Value
		if v1.IsWide() {
			top = []Value{v1}
		} else {
			top = []Value{frame.Pop(), v1}
		}
		v := frame.Pop()
		below := []Value{v}
		if !v.IsWide() {
			below = []Value{frame.Pop(), v}
		}
		for _, group := range [][]Value{top, below, top} {
			for _, x := range group {
				frame.Push(x)
			}
		}

	case OpSwap:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(v2)
		frame.Push(v1)

	// --- Arithmetic ---
	case OpIadd:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(IntValue(v1.Int + v2.Int))

	case OpLadd:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(LongValue(v1.Long + v2.Long))

	case OpFadd:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(FloatValue(v1.Float + v2.Float))

	case OpDadd:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(DoubleValue(v1.Double + v2.Double))

	case OpIsub:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(IntValue(v1.Int - v2.Int))

	case OpLsub:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(LongValue(v1.Long - v2.Long))

	case OpFsub:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(FloatValue(v1.Float - v2.Float))

	case OpDsub:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(DoubleValue(v1.Double - v2.Double))

	case OpImul:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(IntValue(v1.Int * v2.Int))

	case OpLmul:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(LongValue(v1.Long * v2.Long))

	case OpFmul:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(FloatValue(v1.Float * v2.Float))

	case OpDmul:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(DoubleValue(v1.Double * v2.Double))

	case OpIdiv:
		v2 := frame.Pop()
		v1 := frame.Pop()
		if v2.Int == 0 {
			return Value{}, false, NewJavaExceptionf("java/lang/ArithmeticException", "/ by zero")
		}
		frame.Push(IntValue(v1.Int / v2.Int))

	case OpLdiv:
		v2 := frame.Pop()
		v1 := frame.Pop()
		if v2.Long == 0 {
			return Value{}, false, NewJavaExceptionf("java/lang/ArithmeticException", "/ by zero")
		}
		frame.Push(LongValue(v1.Long / v2.Long))

	case OpFdiv:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(FloatValue(v1.Float / v2.Float))

	case OpDdiv:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(DoubleValue(v1.Double / v2.Double))

	case OpIrem:
		v2 := frame.Pop()
		v1 := frame.Pop()
		if v2.Int == 0 {
			return Value{}, false, NewJavaExceptionf("java/lang/ArithmeticException", "/ by zero")
		}
		frame.Push(IntValue(v1.Int % v2.Int))

	case OpLrem:
		v2 := frame.Pop()
		v1 := frame.Pop()
		if v2.Long == 0 {
			return Value{}, false, NewJavaExceptionf("java/lang/ArithmeticException", "/ by zero")
		}
		frame.Push(LongValue(v1.Long % v2.Long))

	case OpFrem:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(FloatValue(float32(math.Mod(float64(v1.Float), float64(v2.Float)))))

	case OpDrem:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(DoubleValue(math.Mod(v1.Double, v2.Double)))

	case OpIneg:
		v := frame.Pop()
		frame.Push(IntValue(-v.Int))

	case OpLneg:
		v := frame.Pop()
		frame.Push(LongValue(-v.Long))

	case OpFneg:
		v := frame.Pop()
		frame.Push(FloatValue(-v.Float))

	case OpDneg:
		v := frame.Pop()
		frame.Push(DoubleValue(-v.Double))

	// --- Bit operations ---
	case OpIshl:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(IntValue(v1.Int << (uint(v2.Int) & 0x1f)))

	case OpLshl:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(LongValue(v1.Long << (uint(v2.Int) & 0x3f)))

	case OpIshr:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(IntValue(v1.Int >> (uint(v2.Int) & 0x1f)))

	case OpLshr:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(LongValue(v1.Long >> (uint(v2.Int) & 0x3f)))

	case OpIushr:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(IntValue(int32(uint32(v1.Int) >> (uint(v2.Int) & 0x1f))))

	case OpLushr:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(LongValue(int64(uint64(v1.Long) >> (uint(v2.Int) & 0x3f))))

	case OpIand:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(IntValue(v1.Int & v2.Int))

	case OpLand:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(LongValue(v1.Long & v2.Long))

	case OpIor:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(IntValue(v1.Int | v2.Int))

	case OpLor:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(LongValue(v1.Long | v2.Long))

	case OpIxor:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(IntValue(v1.Int ^ v2.Int))

	case OpLxor:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(LongValue(v1.Long ^ v2.Long))

	case OpIinc:
		index := frame.ReadU8()
		constVal := frame.ReadI8()
		local := frame.GetLocal(int(index))
		frame.SetLocal(int(index), IntValue(local.Int+int32(constVal)))

	// --- Type conversions ---
	case OpI2l:
		v := frame.Pop()
		frame.Push(LongValue(int64(v.Int)))

	case OpI2f:
		v := frame.Pop()
		frame.Push(FloatValue(float32(v.Int)))

	case OpI2d:
		v := frame.Pop()
		frame.Push(DoubleValue(float64(v.Int)))

	case OpL2i:
		v := frame.Pop()
		frame.Push(IntValue(int32(v.Long)))

	case OpL2f:
		v := frame.Pop()
		frame.Push(FloatValue(float32(v.Long)))

	case OpL2d:
		v := frame.Pop()
		frame.Push(DoubleValue(float64(v.Long)))

	case OpF2i:
		v := frame.Pop()
		frame.Push(IntValue(floatToInt(float64(v.Float))))

	case OpF2l:
		v := frame.Pop()
		frame.Push(LongValue(floatToLong(float64(v.Float))))

	case OpF2d:
		v := frame.Pop()
		frame.Push(DoubleValue(float64(v.Float)))

	case OpD2i:
		v := frame.Pop()
		frame.Push(IntValue(floatToInt(v.Double)))

	case OpD2l:
		v := frame.Pop()
		frame.Push(LongValue(floatToLong(v.Double)))

	case OpD2f:
		v := frame.Pop()
		frame.Push(FloatValue(float32(v.Double)))

	case OpI2b:
		v := frame.Pop()
		frame.Push(IntValue(int32(int8(v.Int))))

	case OpI2c:
		v := frame.Pop()
		frame.Push(IntValue(int32(uint16(v.Int))))

	case OpI2s:
		v := frame.Pop()
		frame.Push(IntValue(int32(int16(v.Int))))

	// --- Comparisons ---
	case OpLcmp:
		v2 := frame.Pop()
		v1 := frame.Pop()
		if v1.Long > v2.Long {
			frame.Push(IntValue(1))
		} else if v1.Long < v2.Long {
			frame.Push(IntValue(-1))
		} else {
			frame.Push(IntValue(0))
		}

	case OpFcmpl, OpFcmpg:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(IntValue(compareFloats(float64(v1.Float), float64(v2.Float), opcode == OpFcmpg)))

	case OpDcmpl, OpDcmpg:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(IntValue(compareFloats(v1.Double, v2.Double, opcode == OpDcmpg)))

	// --- Comparison and branch ---
	case OpIfeq:
		return vm.executeBranchUnary(frame, func(v int32) bool { return v == 0 })
	case OpIfne:
		return vm.executeBranchUnary(frame, func(v int32) bool { return v != 0 })
	case OpIflt:
		return vm.executeBranchUnary(frame, func(v int32) bool { return v < 0 })
	case OpIfge:
		return vm.executeBranchUnary(frame, func(v int32) bool { return v >= 0 })
	case OpIfgt:
		return vm.executeBranchUnary(frame, func(v int32) bool { return v > 0 })
	case OpIfle:
		return vm.executeBranchUnary(frame, func(v int32) bool { return v <= 0 })

	case OpIfIcmpeq:
		return vm.executeBranchBinary(frame, func(v1, v2 int32) bool { return v1 == v2 })
	case OpIfIcmpne:
		return vm.executeBranchBinary(frame, func(v1, v2 int32) bool { return v1 != v2 })
	case OpIfIcmplt:
		return vm.executeBranchBinary(frame, func(v1, v2 int32) bool { return v1 < v2 })
	case OpIfIcmpge:
		return vm.executeBranchBinary(frame, func(v1, v2 int32) bool { return v1 >= v2 })
	case OpIfIcmpgt:
		return vm.executeBranchBinary(frame, func(v1, v2 int32) bool { return v1 > v2 })
	case OpIfIcmple:
		return vm.executeBranchBinary(frame, func(v1, v2 int32) bool { return v1 <= v2 })

	case OpIfAcmpeq, OpIfAcmpne:
		branchPC := frame.PC - 1
		offset := frame.ReadI16()
		v2 := frame.Pop()
		v1 := frame.Pop()
		eq := sameReference(v1, v2)
		if eq == (opcode == OpIfAcmpeq) {
			frame.PC = branchPC + int(offset)
		}

	case OpGoto:
		branchPC := frame.PC - 1
		offset := frame.ReadI16()
		frame.PC = branchPC + int(offset)

	case OpGotoW:
		branchPC := frame.PC - 1
		offset := frame.ReadI32()
		frame.PC = branchPC + int(offset)

	case OpTableswitch:
		// PC of the tableswitch opcode
		opcodePC := frame.PC - 1
		// Padding to align to 4-byte boundary
		for frame.PC%4 != 0 {
			frame.PC++
		}
		defaultOffset := frame.ReadI32()
		low := frame.ReadI32()
		high := frame.ReadI32()
		numOffsets := int(high - low + 1)
		offsets := make([]int32, numOffsets)
		for i := 0; i < numOffsets; i++ {
			offsets[i] = frame.ReadI32()
		}
		index := frame.Pop().Int
		if index >= low && index <= high {
			frame.PC = opcodePC + int(offsets[index-low])
		} else {
			frame.PC = opcodePC + int(defaultOffset)
		}

	case OpLookupswitch:
		opcodePC := frame.PC - 1
		for frame.PC%4 != 0 {
			frame.PC++
		}
		defaultOffset := frame.ReadI32()
		npairs := frame.ReadI32()
		key := frame.Pop().Int
		target := opcodePC + int(defaultOffset)
		for i := int32(0); i < npairs; i++ {
			matchVal := frame.ReadI32()
			offset := frame.ReadI32()
			if key == matchVal {
				target = opcodePC + int(offset)
			}
		}
		frame.PC = target

	// --- Return ---
	case OpIreturn, OpLreturn, OpFreturn, OpDreturn, OpAreturn:
		return frame.Pop(), true, nil

	case OpReturn:
		return Value{}, true, nil

	// --- Method invocation and field access ---
	case OpGetstatic:
		return vm.executeGetstatic(t, frame)

	case OpPutstatic:
		return vm.executePutstatic(t, frame)

	case OpGetfield:
		return vm.executeGetfield(frame)

	case OpPutfield:
		return vm.executePutfield(frame)

	case OpInvokevirtual:
		return vm.executeInvokevirtual(t, frame)

	case OpInvokespecial:
		return vm.executeInvokespecial(t, frame)

	case OpInvokestatic:
		return vm.executeInvokestatic(t, frame)

	case OpInvokeinterface:
		return vm.executeInvokeinterface(t, frame)

	case OpNew:
		return vm.executeNew(t, frame)

	case OpNewarray:
		atype := frame.ReadU8()
		elem, ok := primitiveArrayTypes[atype]
		if !ok {
			return Value{}, false, fmt.Errorf("newarray: invalid atype %d", atype)
		}
		count := frame.Pop().Int
		if count < 0 {
			return Value{}, false, NewJavaExceptionf("java/lang/NegativeArraySizeException", "%d", count)
		}
		frame.Push(RefValue(NewArray("["+elem, int(count))))

	case OpAnewarray:
		c, err := vm.resolveClass(frame.Class.ConstantPool, frame.ReadU16())
		if err != nil {
			return Value{}, false, err
		}
		count := frame.Pop().Int
		if count < 0 {
			return Value{}, false, NewJavaExceptionf("java/lang/NegativeArraySizeException", "%d", count)
		}
		frame.Push(RefValue(NewArray("["+Descriptor(c.Name), int(count))))

	case OpMultianewarray:
		c, err := vm.resolveClass(frame.Class.ConstantPool, frame.ReadU16())
		if err != nil {
			return Value{}, false, err
		}
		dims := int(frame.ReadU8())
		counts := frame.PopN(dims)
		for _, n := range counts {
			if n.Int < 0 {
				return Value{}, false, NewJavaExceptionf("java/lang/NegativeArraySizeException", "%d", n.Int)
			}
		}
		frame.Push(RefValue(newMultiArray(c.Name, counts)))

	case OpArraylength:
		arr, err := arrayOperand(frame.Pop())
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(IntValue(int32(len(arr.Elements))))

	case OpAthrow:
		excRef := frame.Pop()
		if excRef.IsNull() {
			return Value{}, false, NewJavaException("java/lang/NullPointerException")
		}
		if obj, ok := excRef.Ref.(*JObject); ok {
			return Value{}, false, Throwable(obj)
		}
		return Value{}, false, fmt.Errorf("athrow: non-object on stack")

	case OpCheckcast:
		c, err := vm.resolveClass(frame.Class.ConstantPool, frame.ReadU16())
		if err != nil {
			return Value{}, false, err
		}
		val := frame.Peek()
		if !val.IsNull() && !vm.IsInstanceOf(val.Ref, c) {
			return Value{}, false, NewJavaExceptionf("java/lang/ClassCastException",
				"class %s cannot be cast to class %s", vm.ClassOf(val.Ref).JavaName(), c.JavaName())
		}

	case OpInstanceof:
		c, err := vm.resolveClass(frame.Class.ConstantPool, frame.ReadU16())
		if err != nil {
			return Value{}, false, err
		}
		ref := frame.Pop()
		if !ref.IsNull() && vm.IsInstanceOf(ref.Ref, c) {
			frame.Push(IntValue(1))
		} else {
			frame.Push(IntValue(0))
		}

	case OpMonitorenter:
		ref := frame.Pop()
		if ref.IsNull() {
			return Value{}, false, NewJavaException("java/lang/NullPointerException")
		}
		vm.MonitorOf(ref.Ref).Enter(t)

	case OpMonitorexit:
		ref := frame.Pop()
		if ref.IsNull() {
			return Value{}, false, NewJavaException("java/lang/NullPointerException")
		}
		if err := vm.MonitorOf(ref.Ref).Exit(t); err != nil {
			return Value{}, false, err
		}

	case OpWide:
		op := frame.ReadU8()
		index := int(frame.ReadU16())
		switch {
		case op == OpIinc:
			delta := frame.ReadI16()
			frame.SetLocal(index, IntValue(frame.GetLocal(index).Int+int32(delta)))
		case op >= OpIload && op <= OpAload:
			frame.Push(frame.GetLocal(index))
		case op >= OpIstore && op <= OpAstore:
			frame.SetLocal(index, frame.Pop())
		default:
			return Value{}, false, fmt.Errorf("wide: unsupported opcode 0x%02X", op)
		}

	case OpIfnull, OpIfnonnull:
		branchPC := frame.PC - 1
		offset := frame.ReadI16()
		val := frame.Pop()
		if val.IsNull() == (opcode == OpIfnull) {
			frame.PC = branchPC + int(offset)
		}

	default:
		return Value{}, false, fmt.Errorf("unknown opcode: 0x%02X at PC=%d", opcode, frame.PC-1)
	}

	return Value{}, false, nil
}

// executeBranchUnary handles unary branch instructions (ifeq, ifne, etc.)
func (vm *VM) executeBranchUnary(frame *Frame, cond func(int32) bool) (Value, bool, error) {
	branchPC := frame.PC - 1 // PC of the branch instruction
	offset := frame.ReadI16()
	val := frame.Pop()
	if cond(val.Int) {
		frame.PC = branchPC + int(offset)
	}
	return Value{}, false, nil
}

// executeBranchBinary handles binary branch instructions (if_icmpeq, etc.)
func (vm *VM) executeBranchBinary(frame *Frame, cond func(int32, int32) bool) (Value, bool, error) {
	branchPC := frame.PC - 1 // PC of the branch instruction
	offset := frame.ReadI16()
	v2 := frame.Pop()
	v1 := frame.Pop()
	if cond(v1.Int, v2.Int) {
		frame.PC = branchPC + int(offset)
	}
	return Value{}, false, nil
}

func sameReference(v1, v2 Value) bool {
	if v1.IsNull() || v2.IsNull() {
		return v1.IsNull() && v2.IsNull()
	}
	return v1.Ref == v2.Ref
}

func arrayOperand(v Value) (*JArray, error) {
	if v.IsNull() {
		return nil, NewJavaException("java/lang/NullPointerException")
	}
	arr, ok := v.Ref.(*JArray)
	if !ok {
		return nil, fmt.Errorf("reference is not an array")
	}
	return arr, nil
}

func checkIndex(arr *JArray, index int32) error {
	if index < 0 || int(index) >= len(arr.Elements) {
		return NewJavaExceptionf("java/lang/ArrayIndexOutOfBoundsException",
			"Index %d out of bounds for length %d", index, len(arr.Elements))
	}
	return nil
}

// NarrowElement truncates an int value to the width of a sub-int array
// element type. Other values are returned unchanged.
func NarrowElement(desc string, v Value) Value {
	switch desc {
	case "Z":
		return IntValue(v.Int & 1)
	case "B":
		return IntValue(int32(int8(v.Int)))
	case "C":
		return IntValue(int32(uint16(v.Int)))
	case "S":
		return IntValue(int32(int16(v.Int)))
	}
	return v
}

// compareFloats implements fcmp/dcmp. NaN compares as 1 for the g forms
// and -1 for the l forms.
func compareFloats(a, b float64, nanGreater bool) int32 {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		if nanGreater {
			return 1
		}
		return -1
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}

func floatToInt(f float64) int32 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

func floatToLong(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

func newMultiArray(desc string, counts []Value) *JArray {
	arr := NewArray(desc, int(counts[0].Int))
	if len(counts) > 1 {
		for i := range arr.Elements {
			arr.Elements[i] = RefValue(newMultiArray(desc[1:], counts[1:]))
		}
	}
	return arr
}
