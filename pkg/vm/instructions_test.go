package vm

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/daimatz/gojni/pkg/classfile"
)

func newTestVM() (*VM, *Thread) {
	v := NewVM(nil)
	v.Stdout = io.Discard
	v.Stderr = io.Discard
	return v, v.NewThread("test", false)
}

// runFrame runs the execution loop over frame until a return instruction.
func runFrame(t *testing.T, v *VM, th *Thread, frame *Frame) (Value, error) {
	t.Helper()
	for frame.PC < len(frame.Code) {
		opcode := frame.Code[frame.PC]
		frame.PC++
		retVal, hasReturn, err := v.executeInstruction(th, frame, opcode)
		if err != nil {
			return Value{}, err
		}
		if hasReturn {
			return retVal, nil
		}
	}
	t.Fatal("bytecode did not return a value")
	return Value{}, nil
}

// executeAndGet runs code with the given locals and returns the value left
// by the final return instruction.
func executeAndGet(t *testing.T, code []byte, locals ...Value) Value {
	t.Helper()
	v, th := newTestVM()
	frame := NewFrame(8, 10, code, nil)
	for i, val := range locals {
		frame.SetLocal(i, val)
	}
	got, err := runFrame(t, v, th, frame)
	if err != nil {
		t.Fatalf("execution error at PC=%d: %v", frame.PC-1, err)
	}
	return got
}

// executeAndGetInt is executeAndGet for int locals and results.
func executeAndGetInt(t *testing.T, code []byte, locals ...int32) int32 {
	t.Helper()
	vals := make([]Value, len(locals))
	for i, l := range locals {
		vals[i] = IntValue(l)
	}
	return executeAndGet(t, code, vals...).Int
}

func TestIconst(t *testing.T) {
	tests := []struct {
		name   string
		opcode byte
		want   int32
	}{
		{"iconst_m1", 0x02, -1},
		{"iconst_0", 0x03, 0},
		{"iconst_1", 0x04, 1},
		{"iconst_2", 0x05, 2},
		{"iconst_3", 0x06, 3},
		{"iconst_4", 0x07, 4},
		{"iconst_5", 0x08, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := []byte{tt.opcode, 0xAC} // iconst_N, ireturn
			got := executeAndGetInt(t, code)
			if got != tt.want {
				t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestBipushSipush(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want int32
	}{
		{"bipush positive", []byte{0x10, 42, 0xAC}, 42},
		{"bipush negative", []byte{0x10, 0xFB, 0xAC}, -5},
		{"bipush min", []byte{0x10, 0x80, 0xAC}, -128},
		{"sipush positive", []byte{0x11, 0x03, 0xE8, 0xAC}, 1000},
		{"sipush negative", []byte{0x11, 0xFC, 0x18, 0xAC}, -1000},
		{"sipush max", []byte{0x11, 0x7F, 0xFF, 0xAC}, 32767},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := executeAndGetInt(t, tt.code); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestArithmeticInstructions(t *testing.T) {
	tests := []struct {
		name   string
		opcode byte
		a, b   int32
		want   int32
	}{
		{"iadd", OpIadd, 3, 4, 7},
		{"isub", OpIsub, 10, 3, 7},
		{"imul", OpImul, 6, 7, 42},
		{"idiv", OpIdiv, 7, 2, 3},
		{"idiv negative", OpIdiv, -7, 2, -3},
		{"irem", OpIrem, 7, 3, 1},
		{"irem negative", OpIrem, -7, 3, -1},
		{"ishl", OpIshl, 1, 33, 2},
		{"ishr", OpIshr, -16, 2, -4},
		{"iushr", OpIushr, -1, 28, 15},
		{"iand", OpIand, 0b1100, 0b1010, 0b1000},
		{"ior", OpIor, 0b1100, 0b1010, 0b1110},
		{"ixor", OpIxor, 0b1100, 0b1010, 0b0110},
		{"idiv overflow", OpIdiv, math.MinInt32, -1, math.MinInt32},
		{"iadd overflow", OpIadd, math.MaxInt32, 1, math.MinInt32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// iload_0, iload_1, op, ireturn
			code := []byte{OpIload0, OpIload1, tt.opcode, OpIreturn}
			got := executeAndGetInt(t, code, tt.a, tt.b)
			if got != tt.want {
				t.Errorf("%s(%d, %d): got %d, want %d", tt.name, tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestLongArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		opcode byte
		a, b   int64
		want   int64
	}{
		{"ladd", OpLadd, 1 << 40, 1 << 40, 1 << 41},
		{"lsub", OpLsub, 5, 7, -2},
		{"lmul", OpLmul, 1 << 31, 4, 1 << 33},
		{"ldiv", OpLdiv, -9, 2, -4},
		{"lrem", OpLrem, -9, 2, -1},
		{"land", OpLand, 0xF0F0, 0xFF00, 0xF000},
		{"lor", OpLor, 0xF0, 0x0F, 0xFF},
		{"lxor", OpLxor, 0xFF, 0x0F, 0xF0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Longs take two local slots: lload_0, lload_2, op, lreturn
			code := []byte{OpLload0, OpLload2, tt.opcode, OpLreturn}
			got := executeAndGet(t, code, LongValue(tt.a), Value{}, LongValue(tt.b))
			if got.Type != TypeLong || got.Long != tt.want {
				t.Errorf("%s(%d, %d): got %+v, want %d", tt.name, tt.a, tt.b, got, tt.want)
			}
		})
	}

	t.Run("lshl uses int shift count", func(t *testing.T) {
		code := []byte{OpLload0, OpIload2, OpLshl, OpLreturn}
		got := executeAndGet(t, code, LongValue(1), Value{}, IntValue(65))
		if got.Long != 2 {
			t.Errorf("got %d, want 2", got.Long)
		}
	})
}

func TestFloatingPoint(t *testing.T) {
	t.Run("dadd", func(t *testing.T) {
		code := []byte{OpDload0, OpDload2, OpDadd, OpDreturn}
		got := executeAndGet(t, code, DoubleValue(1.5), Value{}, DoubleValue(2.25))
		if got.Type != TypeDouble || got.Double != 3.75 {
			t.Errorf("got %+v, want 3.75", got)
		}
	})

	t.Run("fdiv by zero is infinity", func(t *testing.T) {
		code := []byte{OpFload0, OpFconst0, OpFdiv, OpFreturn}
		got := executeAndGet(t, code, FloatValue(1))
		if !math.IsInf(float64(got.Float), 1) {
			t.Errorf("got %v, want +Inf", got.Float)
		}
	})

	t.Run("drem", func(t *testing.T) {
		code := []byte{OpDload0, OpDload2, OpDrem, OpDreturn}
		got := executeAndGet(t, code, DoubleValue(7.5), Value{}, DoubleValue(2))
		if got.Double != 1.5 {
			t.Errorf("got %v, want 1.5", got.Double)
		}
	})

	t.Run("dneg", func(t *testing.T) {
		code := []byte{OpDconst1, OpDneg, OpDreturn}
		if got := executeAndGet(t, code); got.Double != -1 {
			t.Errorf("got %v, want -1", got.Double)
		}
	})
}

func TestConversions(t *testing.T) {
	tests := []struct {
		name  string
		code  []byte
		local Value
		check func(Value) bool
	}{
		{"i2l", []byte{OpIload0, OpI2l, OpLreturn}, IntValue(-3), func(v Value) bool { return v.Long == -3 }},
		{"i2d", []byte{OpIload0, OpI2d, OpDreturn}, IntValue(7), func(v Value) bool { return v.Double == 7 }},
		{"l2i truncates", []byte{OpLload0, OpL2i, OpIreturn}, LongValue(1<<32 + 5), func(v Value) bool { return v.Int == 5 }},
		{"d2i saturates", []byte{OpDload0, OpD2i, OpIreturn}, DoubleValue(1e20), func(v Value) bool { return v.Int == math.MaxInt32 }},
		{"d2i NaN", []byte{OpDload0, OpD2i, OpIreturn}, DoubleValue(math.NaN()), func(v Value) bool { return v.Int == 0 }},
		{"f2l saturates", []byte{OpFload0, OpF2l, OpLreturn}, FloatValue(-1e30), func(v Value) bool { return v.Long == math.MinInt64 }},
		{"d2f", []byte{OpDload0, OpD2f, OpFreturn}, DoubleValue(0.5), func(v Value) bool { return v.Float == 0.5 }},
		{"i2b", []byte{OpIload0, OpI2b, OpIreturn}, IntValue(200), func(v Value) bool { return v.Int == -56 }},
		{"i2c", []byte{OpIload0, OpI2c, OpIreturn}, IntValue(-1), func(v Value) bool { return v.Int == 0xFFFF }},
		{"i2s", []byte{OpIload0, OpI2s, OpIreturn}, IntValue(40000), func(v Value) bool { return v.Int == -25536 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := executeAndGet(t, tt.code, tt.local)
			if !tt.check(got) {
				t.Errorf("unexpected result %+v", got)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		opcode byte
		a, b   float64
		want   int32
	}{
		{"dcmpl less", OpDcmpl, 1, 2, -1},
		{"dcmpl equal", OpDcmpl, 2, 2, 0},
		{"dcmpg greater", OpDcmpg, 3, 2, 1},
		{"dcmpl NaN", OpDcmpl, nan, 2, -1},
		{"dcmpg NaN", OpDcmpg, nan, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := []byte{OpDload0, OpDload2, tt.opcode, OpIreturn}
			got := executeAndGet(t, code, DoubleValue(tt.a), Value{}, DoubleValue(tt.b))
			if got.Int != tt.want {
				t.Errorf("got %d, want %d", got.Int, tt.want)
			}
		})
	}

	t.Run("lcmp", func(t *testing.T) {
		code := []byte{OpLload0, OpLload2, OpLcmp, OpIreturn}
		got := executeAndGet(t, code, LongValue(-1), Value{}, LongValue(1))
		if got.Int != -1 {
			t.Errorf("got %d, want -1", got.Int)
		}
	})
}

func TestBranch(t *testing.T) {
	// iload_0; ifXX +5; iconst_1; ireturn; iconst_0; ireturn
	tests := []struct {
		name   string
		opcode byte
		val    int32
		want   int32
	}{
		{"ifeq taken", OpIfeq, 0, 0},
		{"ifeq not taken", OpIfeq, 5, 1},
		{"ifne taken", OpIfne, 5, 0},
		{"iflt taken", OpIflt, -1, 0},
		{"ifge not taken", OpIfge, -1, 1},
		{"ifgt taken", OpIfgt, 1, 0},
		{"ifle taken", OpIfle, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := []byte{OpIload0, tt.opcode, 0x00, 0x05, OpIconst1, OpIreturn, OpIconst0, OpIreturn}
			if got := executeAndGetInt(t, code, tt.val); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIfIcmp(t *testing.T) {
	tests := []struct {
		name   string
		opcode byte
		a, b   int32
		want   int32
	}{
		{"if_icmpeq taken", OpIfIcmpeq, 3, 3, 0},
		{"if_icmpne taken", OpIfIcmpne, 3, 4, 0},
		{"if_icmplt not taken", OpIfIcmplt, 4, 3, 1},
		{"if_icmpge taken", OpIfIcmpge, 4, 4, 0},
		{"if_icmpgt taken", OpIfIcmpgt, 5, 4, 0},
		{"if_icmple not taken", OpIfIcmple, 5, 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := []byte{OpIload0, OpIload1, tt.opcode, 0x00, 0x05, OpIconst1, OpIreturn, OpIconst0, OpIreturn}
			if got := executeAndGetInt(t, code, tt.a, tt.b); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSwitch(t *testing.T) {
	// tableswitch at PC 1, padded to 4; low=1 high=2
	table := []byte{
		OpIload0,
		OpTableswitch, 0x00, 0x00, // padding to PC 4
		0x00, 0x00, 0x00, 0x1B, // default -> 28
		0x00, 0x00, 0x00, 0x01, // low
		0x00, 0x00, 0x00, 0x02, // high
		0x00, 0x00, 0x00, 0x17, // 1 -> 24
		0x00, 0x00, 0x00, 0x19, // 2 -> 26
		OpIconst1, OpIreturn, // 24
		OpIconst2, OpIreturn, // 26
		OpIconstM1, OpIreturn, // 28
	}
	lookup := []byte{
		OpIload0,
		OpLookupswitch, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x1F, // default -> 32
		0x00, 0x00, 0x00, 0x02, // npairs
		0x00, 0x00, 0x00, 0x0A, 0x00, 0x00, 0x00, 0x1B, // 10 -> 28
		0x00, 0x00, 0x00, 0x64, 0x00, 0x00, 0x00, 0x1D, // 100 -> 30
		OpIconst1, OpIreturn, // 28
		OpIconst2, OpIreturn, // 30
		OpIconstM1, OpIreturn, // 32
	}
	tests := []struct {
		name string
		code []byte
		key  int32
		want int32
	}{
		{"tableswitch 1", table, 1, 1},
		{"tableswitch 2", table, 2, 2},
		{"tableswitch default", table, 9, -1},
		{"lookupswitch 10", lookup, 10, 1},
		{"lookupswitch 100", lookup, 100, 2},
		{"lookupswitch default", lookup, 5, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := executeAndGetInt(t, tt.code, tt.key); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStackOps(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want int32
	}{
		// 3, 5 -> swap -> isub = 5 - 3
		{"swap", []byte{OpIconst3, OpIconst5, OpSwap, OpIsub, OpIreturn}, 2},
		// 2 -> dup -> imul
		{"dup", []byte{OpIconst2, OpDup, OpImul, OpIreturn}, 4},
		// 1, 2 -> dup_x1 -> 2, 1, 2 -> isub, isub = 2 - (1 - 2)
		{"dup_x1", []byte{OpIconst1, OpIconst2, OpDupX1, OpIsub, OpIsub, OpIreturn}, 3},
		// 1, 2 -> dup2 -> 1, 2, 1, 2 -> iadd x3
		{"dup2 category 1", []byte{OpIconst1, OpIconst2, OpDup2, OpIadd, OpIadd, OpIadd, OpIreturn}, 6},
		// 4, 1, 2 -> pop2 -> 4
		{"pop2 category 1", []byte{OpIconst4, OpIconst1, OpIconst2, OpPop2, OpIreturn}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := executeAndGetInt(t, tt.code); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}

	t.Run("dup2 long", func(t *testing.T) {
		code := []byte{OpLconst1, OpDup2, OpLadd, OpLreturn}
		if got := executeAndGet(t, code); got.Long != 2 {
			t.Errorf("got %d, want 2", got.Long)
		}
	})

	t.Run("pop2 long", func(t *testing.T) {
		code := []byte{OpIconst3, OpLconst1, OpPop2, OpIreturn}
		if got := executeAndGet(t, code); got.Int != 3 {
			t.Errorf("got %d, want 3", got.Int)
		}
	})

	t.Run("dup2_x1 long", func(t *testing.T) {
		// 7, 1L -> 1L, 7, 1L; pop2, pop -> 1L
		code := []byte{OpBipush, 7, OpLconst1, OpDup2X1, OpPop2, OpPop, OpLreturn}
		got := executeAndGet(t, code)
		if got.Type != TypeLong || got.Long != 1 {
			t.Errorf("got %+v, want long 1", got)
		}
	})
}

func TestDivisionByZero(t *testing.T) {
	for _, tt := range []struct {
		name string
		code []byte
	}{
		{"idiv", []byte{OpIconst1, OpIconst0, OpIdiv, OpIreturn}},
		{"irem", []byte{OpIconst1, OpIconst0, OpIrem, OpIreturn}},
		{"ldiv", []byte{OpLconst1, OpLconst0, OpLdiv, OpLreturn}},
		{"lrem", []byte{OpLconst1, OpLconst0, OpLrem, OpLreturn}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			v, th := newTestVM()
			_, err := runFrame(t, v, th, NewFrame(2, 4, tt.code, nil))
			var exc *JavaException
			if !errors.As(err, &exc) || exc.ClassName != "java/lang/ArithmeticException" {
				t.Fatalf("got %v, want ArithmeticException", err)
			}
			if exc.Message != "/ by zero" {
				t.Errorf("message: got %q, want %q", exc.Message, "/ by zero")
			}
		})
	}
}

func TestIinc(t *testing.T) {
	code := []byte{OpIinc, 0, 0xFE, OpIload0, OpIreturn} // iinc 0 by -2
	if got := executeAndGetInt(t, code, 10); got != 8 {
		t.Errorf("got %d, want 8", got)
	}

	wide := []byte{OpWide, OpIinc, 0x00, 0x00, 0x01, 0x00, OpIload0, OpIreturn} // wide iinc 0 by 256
	if got := executeAndGetInt(t, wide, 10); got != 266 {
		t.Errorf("wide: got %d, want 266", got)
	}
}

func TestPrimitiveArrays(t *testing.T) {
	t.Run("bastore truncates", func(t *testing.T) {
		// newarray byte[1]; dup; 0; sipush 300; bastore; 0; baload; ireturn
		code := []byte{
			OpIconst1, OpNewarray, 8,
			OpDup, OpIconst0, OpSipush, 0x01, 0x2C, OpBastore,
			OpIconst0, OpBaload, OpIreturn,
		}
		if got := executeAndGetInt(t, code); got != 44 {
			t.Errorf("got %d, want 44", got)
		}
	})

	t.Run("castore zero extends", func(t *testing.T) {
		code := []byte{
			OpIconst1, OpNewarray, 5,
			OpDup, OpIconst0, OpIconstM1, OpCastore,
			OpIconst0, OpCaload, OpIreturn,
		}
		if got := executeAndGetInt(t, code); got != 0xFFFF {
			t.Errorf("got %d, want 65535", got)
		}
	})

	t.Run("long array default", func(t *testing.T) {
		code := []byte{OpIconst2, OpNewarray, 11, OpIconst1, OpLaload, OpLreturn}
		got := executeAndGet(t, code)
		if got.Type != TypeLong || got.Long != 0 {
			t.Errorf("got %+v, want long 0", got)
		}
	})

	t.Run("arraylength", func(t *testing.T) {
		code := []byte{OpIconst5, OpNewarray, 10, OpArraylength, OpIreturn}
		if got := executeAndGetInt(t, code); got != 5 {
			t.Errorf("got %d, want 5", got)
		}
	})

	t.Run("out of bounds", func(t *testing.T) {
		v, th := newTestVM()
		code := []byte{OpIconst1, OpNewarray, 10, OpIconst1, OpIaload, OpIreturn}
		_, err := runFrame(t, v, th, NewFrame(1, 4, code, nil))
		var exc *JavaException
		if !errors.As(err, &exc) || exc.ClassName != "java/lang/ArrayIndexOutOfBoundsException" {
			t.Fatalf("got %v, want ArrayIndexOutOfBoundsException", err)
		}
		if exc.Message != "Index 1 out of bounds for length 1" {
			t.Errorf("message: got %q", exc.Message)
		}
	})

	t.Run("negative size", func(t *testing.T) {
		v, th := newTestVM()
		code := []byte{OpIconstM1, OpNewarray, 10, OpAreturn}
		_, err := runFrame(t, v, th, NewFrame(1, 4, code, nil))
		var exc *JavaException
		if !errors.As(err, &exc) || exc.ClassName != "java/lang/NegativeArraySizeException" {
			t.Fatalf("got %v, want NegativeArraySizeException", err)
		}
	})

	t.Run("null array", func(t *testing.T) {
		v, th := newTestVM()
		code := []byte{OpAconstNull, OpArraylength, OpIreturn}
		_, err := runFrame(t, v, th, NewFrame(1, 4, code, nil))
		var exc *JavaException
		if !errors.As(err, &exc) || exc.ClassName != "java/lang/NullPointerException" {
			t.Fatalf("got %v, want NullPointerException", err)
		}
	})
}

func TestIfnull(t *testing.T) {
	tests := []struct {
		name   string
		opcode byte
		local  Value
		want   int32
	}{
		{"ifnull with null", OpIfnull, NullValue(), 0},
		{"ifnull with object", OpIfnull, RefValue(NewJString("x")), 1},
		{"ifnonnull with object", OpIfnonnull, RefValue(NewJString("x")), 0},
		{"ifnonnull with null", OpIfnonnull, NullValue(), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := []byte{OpAload0, tt.opcode, 0x00, 0x05, OpIconst1, OpIreturn, OpIconst0, OpIreturn}
			if got := executeAndGet(t, code, tt.local); got.Int != tt.want {
				t.Errorf("got %d, want %d", got.Int, tt.want)
			}
		})
	}
}

func TestIfAcmp(t *testing.T) {
	a, b := NewJString("a"), NewJString("a")
	tests := []struct {
		name   string
		opcode byte
		x, y   Value
		want   int32
	}{
		{"acmpeq same", OpIfAcmpeq, RefValue(a), RefValue(a), 0},
		{"acmpeq distinct equal strings", OpIfAcmpeq, RefValue(a), RefValue(b), 1},
		{"acmpeq both null", OpIfAcmpeq, NullValue(), NullValue(), 0},
		{"acmpne null and object", OpIfAcmpne, NullValue(), RefValue(a), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := []byte{OpAload0, OpAload1, tt.opcode, 0x00, 0x05, OpIconst1, OpIreturn, OpIconst0, OpIreturn}
			if got := executeAndGet(t, code, tt.x, tt.y); got.Int != tt.want {
				t.Errorf("got %d, want %d", got.Int, tt.want)
			}
		})
	}
}

// poolFrame builds a frame whose constant pool comes from b.
func poolFrame(b *classfile.Builder, code []byte) *Frame {
	return NewFrame(4, 8, code, b.Build())
}

func TestLdc(t *testing.T) {
	b := classfile.NewBuilder("T", "java/lang/Object")
	s := b.String("hello")
	d := b.Double(2.5)
	l := b.Long(1 << 40)
	v, th := newTestVM()

	t.Run("string constants are interned", func(t *testing.T) {
		frame := poolFrame(b, []byte{OpLdc, byte(s), OpLdc, byte(s), OpIfAcmpeq, 0x00, 0x05, OpIconst0, OpIreturn, OpIconst1, OpIreturn})
		got, err := runFrame(t, v, th, frame)
		if err != nil {
			t.Fatal(err)
		}
		if got.Int != 1 {
			t.Error("expected identical string references")
		}
	})

	t.Run("ldc2_w double", func(t *testing.T) {
		got, err := runFrame(t, v, th, poolFrame(b, []byte{OpLdc2W, 0x00, byte(d), OpDreturn}))
		if err != nil {
			t.Fatal(err)
		}
		if got.Type != TypeDouble || got.Double != 2.5 {
			t.Errorf("got %+v, want double 2.5", got)
		}
	})

	t.Run("ldc2_w long", func(t *testing.T) {
		got, err := runFrame(t, v, th, poolFrame(b, []byte{OpLdc2W, 0x00, byte(l), OpLreturn}))
		if err != nil {
			t.Fatal(err)
		}
		if got.Long != 1<<40 {
			t.Errorf("got %d, want %d", got.Long, int64(1<<40))
		}
	})
}

func TestCheckcastInstanceof(t *testing.T) {
	b := classfile.NewBuilder("T", "java/lang/Object")
	str := b.Class("java/lang/String")
	integer := b.Class("java/lang/Integer")
	v, th := newTestVM()

	t.Run("instanceof match", func(t *testing.T) {
		frame := poolFrame(b, []byte{OpAload0, OpInstanceof, 0x00, byte(str), OpIreturn})
		frame.SetLocal(0, RefValue(NewJString("s")))
		got, err := runFrame(t, v, th, frame)
		if err != nil || got.Int != 1 {
			t.Errorf("got %v, %v; want 1", got.Int, err)
		}
	})

	t.Run("instanceof null", func(t *testing.T) {
		frame := poolFrame(b, []byte{OpAload0, OpInstanceof, 0x00, byte(str), OpIreturn})
		frame.SetLocal(0, NullValue())
		got, err := runFrame(t, v, th, frame)
		if err != nil || got.Int != 0 {
			t.Errorf("got %v, %v; want 0", got.Int, err)
		}
	})

	t.Run("checkcast failure", func(t *testing.T) {
		frame := poolFrame(b, []byte{OpAload0, OpCheckcast, 0x00, byte(integer), OpAreturn})
		frame.SetLocal(0, RefValue(NewJString("s")))
		_, err := runFrame(t, v, th, frame)
		var exc *JavaException
		if !errors.As(err, &exc) || exc.ClassName != "java/lang/ClassCastException" {
			t.Fatalf("got %v, want ClassCastException", err)
		}
		want := "class java.lang.String cannot be cast to class java.lang.Integer"
		if exc.Message != want {
			t.Errorf("message: got %q, want %q", exc.Message, want)
		}
	})

	t.Run("checkcast null passes", func(t *testing.T) {
		frame := poolFrame(b, []byte{OpAload0, OpCheckcast, 0x00, byte(integer), OpAreturn})
		frame.SetLocal(0, NullValue())
		got, err := runFrame(t, v, th, frame)
		if err != nil || !got.IsNull() {
			t.Errorf("got %+v, %v; want null", got, err)
		}
	})
}

func TestMultianewarray(t *testing.T) {
	b := classfile.NewBuilder("T", "java/lang/Object")
	idx := b.Class("[[I")
	v, th := newTestVM()

	frame := poolFrame(b, []byte{OpIconst2, OpIconst3, OpMultianewarray, 0x00, byte(idx), 2, OpAreturn})
	got, err := runFrame(t, v, th, frame)
	if err != nil {
		t.Fatal(err)
	}
	outer := got.Ref.(*JArray)
	if outer.Type != "[[I" || len(outer.Elements) != 2 {
		t.Fatalf("outer: got %s len %d", outer.Type, len(outer.Elements))
	}
	inner := outer.Elements[1].Ref.(*JArray)
	if inner.Type != "[I" || len(inner.Elements) != 3 {
		t.Errorf("inner: got %s len %d", inner.Type, len(inner.Elements))
	}
}

func TestMonitorInstructions(t *testing.T) {
	v, th := newTestVM()
	lock := NewJString("lock")

	frame := NewFrame(1, 4, []byte{OpAload0, OpMonitorenter, OpAload0, OpMonitorenter, OpAload0, OpMonitorexit, OpIconst0, OpIreturn}, nil)
	frame.SetLocal(0, RefValue(lock))
	if _, err := runFrame(t, v, th, frame); err != nil {
		t.Fatal(err)
	}
	owner, count := v.MonitorOf(lock).Owner()
	if owner != th || count != 1 {
		t.Errorf("owner %v count %d, want test thread and 1", owner, count)
	}

	other := v.NewThread("other", false)
	frame = NewFrame(1, 4, []byte{OpAload0, OpMonitorexit, OpReturn}, nil)
	frame.SetLocal(0, RefValue(lock))
	_, err := runFrame(t, v, other, frame)
	var exc *JavaException
	if !errors.As(err, &exc) || exc.ClassName != "java/lang/IllegalMonitorStateException" {
		t.Errorf("got %v, want IllegalMonitorStateException", err)
	}
}
