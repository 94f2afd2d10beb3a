package vm

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestDecodeIsTotal(t *testing.T) {
	for i := 0; i <= 0xFFFF; i++ {
		opcode := uint16(i)
		in := Decode(opcode)

		if in.Op >= opCount {
			t.Fatalf("opcode 0x%04x decoded to invalid op %d", opcode, in.Op)
		}
		if in.Opcode != opcode {
			t.Fatalf("opcode 0x%04x decoded with raw value 0x%04x", opcode, in.Opcode)
		}
		if in.String() == "" {
			t.Fatalf("opcode 0x%04x has no mnemonic", opcode)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		opcode   uint16
		expected Instruction
	}{
		{0x00E0, Instruction{Op: OpCls, Opcode: 0x00E0}},
		{0x00EE, Instruction{Op: OpRet, Opcode: 0x00EE}},
		{0x0123, Instruction{Op: OpSys, Opcode: 0x0123, NNN: 0x123}},
		{0x1ABC, Instruction{Op: OpJp, Opcode: 0x1ABC, NNN: 0xABC}},
		{0x2206, Instruction{Op: OpCall, Opcode: 0x2206, NNN: 0x206}},
		{0x3A3C, Instruction{Op: OpSeByte, Opcode: 0x3A3C, X: 0xA, NN: 0x3C}},
		{0x4B01, Instruction{Op: OpSneByte, Opcode: 0x4B01, X: 0xB, NN: 0x01}},
		{0x5120, Instruction{Op: OpSeReg, Opcode: 0x5120, X: 0x1, Y: 0x2}},
		{0x5121, Instruction{Op: OpUnknown, Opcode: 0x5121}},
		{0x6A3C, Instruction{Op: OpLdByte, Opcode: 0x6A3C, X: 0xA, NN: 0x3C}},
		{0x7FFF, Instruction{Op: OpAddByte, Opcode: 0x7FFF, X: 0xF, NN: 0xFF}},
		{0x8AB0, Instruction{Op: OpLdReg, Opcode: 0x8AB0, X: 0xA, Y: 0xB}},
		{0x8AB1, Instruction{Op: OpOr, Opcode: 0x8AB1, X: 0xA, Y: 0xB}},
		{0x8AB2, Instruction{Op: OpAnd, Opcode: 0x8AB2, X: 0xA, Y: 0xB}},
		{0x8AB3, Instruction{Op: OpXor, Opcode: 0x8AB3, X: 0xA, Y: 0xB}},
		{0x8AB4, Instruction{Op: OpAddReg, Opcode: 0x8AB4, X: 0xA, Y: 0xB}},
		{0x8AB5, Instruction{Op: OpSub, Opcode: 0x8AB5, X: 0xA, Y: 0xB}},
		{0x8AB6, Instruction{Op: OpShr, Opcode: 0x8AB6, X: 0xA, Y: 0xB}},
		{0x8AB7, Instruction{Op: OpSubn, Opcode: 0x8AB7, X: 0xA, Y: 0xB}},
		{0x8ABE, Instruction{Op: OpShl, Opcode: 0x8ABE, X: 0xA, Y: 0xB}},
		{0x8AB8, Instruction{Op: OpUnknown, Opcode: 0x8AB8}},
		{0x9340, Instruction{Op: OpSneReg, Opcode: 0x9340, X: 0x3, Y: 0x4}},
		{0xA200, Instruction{Op: OpLdI, Opcode: 0xA200, NNN: 0x200}},
		{0xB300, Instruction{Op: OpJpV0, Opcode: 0xB300, NNN: 0x300}},
		{0xC20F, Instruction{Op: OpRnd, Opcode: 0xC20F, X: 0x2, NN: 0x0F}},
		{0xD125, Instruction{Op: OpDrw, Opcode: 0xD125, X: 0x1, Y: 0x2, N: 0x5}},
		{0xE59E, Instruction{Op: OpSkp, Opcode: 0xE59E, X: 0x5}},
		{0xE5A1, Instruction{Op: OpSknp, Opcode: 0xE5A1, X: 0x5}},
		{0xE5A2, Instruction{Op: OpUnknown, Opcode: 0xE5A2}},
		{0xF107, Instruction{Op: OpLdVxDT, Opcode: 0xF107, X: 0x1}},
		{0xF10A, Instruction{Op: OpLdVxK, Opcode: 0xF10A, X: 0x1}},
		{0xF115, Instruction{Op: OpLdDTVx, Opcode: 0xF115, X: 0x1}},
		{0xF118, Instruction{Op: OpLdSTVx, Opcode: 0xF118, X: 0x1}},
		{0xF11E, Instruction{Op: OpAddI, Opcode: 0xF11E, X: 0x1}},
		{0xF029, Instruction{Op: OpLdF, Opcode: 0xF029, X: 0x0}},
		{0xF133, Instruction{Op: OpLdB, Opcode: 0xF133, X: 0x1}},
		{0xFE55, Instruction{Op: OpStore, Opcode: 0xFE55, X: 0xE}},
		{0xFE65, Instruction{Op: OpLoad, Opcode: 0xFE65, X: 0xE}},
		{0xFFFF, Instruction{Op: OpUnknown, Opcode: 0xFFFF}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Decode(tt.opcode))
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		opcode   uint16
		expected string
	}{
		{0x00E0, "CLS"},
		{0x00EE, "RET"},
		{0x0123, "SYS 123"},
		{0x1ABC, "JP ABC"},
		{0x6A3C, "LD VA, 3C"},
		{0x8AB4, "ADD VA, VB"},
		{0x8AB7, "SUBN VA, VB"},
		{0xA200, "LD I, 200"},
		{0xB300, "JP V0, 300"},
		{0xD125, "DRW V1, V2, 5"},
		{0xF029, "LD F, V0"},
		{0xFE55, "LD [I], VE"},
		{0xFE65, "LD VE, [I]"},
		{0xFFFF, "??? FFFF"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Decode(tt.opcode).String())
	}
}
