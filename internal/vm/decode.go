package vm

// Op identifies an instruction variant.
type Op uint8

const (
	OpUnknown Op = iota
	OpSys
	OpCls
	OpRet
	OpJp
	OpCall
	OpSeByte
	OpSneByte
	OpSeReg
	OpLdByte
	OpAddByte
	OpLdReg
	OpOr
	OpAnd
	OpXor
	OpAddReg
	OpSub
	OpShr
	OpSubn
	OpShl
	OpSneReg
	OpLdI
	OpJpV0
	OpRnd
	OpDrw
	OpSkp
	OpSknp
	OpLdVxDT
	OpLdVxK
	OpLdDTVx
	OpLdSTVx
	OpAddI
	OpLdF
	OpLdB
	OpStore
	OpLoad

	opCount
)

// Instruction is a decoded opcode. Only the operand fields meaningful
// for Op are set; Opcode always carries the raw value.
type Instruction struct {
	Op     Op
	Opcode uint16

	X   uint8  // register nibble 0x0F00
	Y   uint8  // register nibble 0x00F0
	N   uint8  // low nibble
	NN  uint8  // low byte
	NNN uint16 // 12-bit address
}

func (in Instruction) String() string {
	return lookup(in.Op).Name(in)
}

// Decode maps every 16-bit value to an instruction. Encodings outside the
// instruction set decode to OpUnknown.
func Decode(opcode uint16) Instruction {
	x := uint8(opcode>>8) & nibbleMask
	y := uint8(opcode>>4) & nibbleMask
	n := uint8(opcode) & nibbleMask
	nn := uint8(opcode)
	nnn := opcode & addrMask

	xy := func(op Op) Instruction {
		return Instruction{Op: op, Opcode: opcode, X: x, Y: y}
	}
	xnn := func(op Op) Instruction {
		return Instruction{Op: op, Opcode: opcode, X: x, NN: nn}
	}
	addr := func(op Op) Instruction {
		return Instruction{Op: op, Opcode: opcode, NNN: nnn}
	}
	reg := func(op Op) Instruction {
		return Instruction{Op: op, Opcode: opcode, X: x}
	}

	switch opcode & 0xF000 {
	case 0x0000:
		switch opcode {
		case 0x00E0:
			// 00E0 - Clear screen
			return Instruction{Op: OpCls, Opcode: opcode}
		case 0x00EE:
			// 00EE - Return from subroutine
			return Instruction{Op: OpRet, Opcode: opcode}
		}
		// 0NNN - Machine code routine at NNN
		return addr(OpSys)

	case 0x1000:
		// 1NNN - Jumps to address NNN
		return addr(OpJp)

	case 0x2000:
		// 2NNN - Calls subroutine at NNN
		return addr(OpCall)

	case 0x3000:
		// 3XNN - Skips the next instruction if VX equals NN
		return xnn(OpSeByte)

	case 0x4000:
		// 4XNN - Skips the next instruction if VX does not equal NN
		return xnn(OpSneByte)

	case 0x5000:
		// 5XY0 - Skips the next instruction if VX equals VY
		if n == 0 {
			return xy(OpSeReg)
		}

	case 0x6000:
		// 6XNN - Sets VX to NN
		return xnn(OpLdByte)

	case 0x7000:
		// 7XNN - Adds NN to VX, no carry
		return xnn(OpAddByte)

	case 0x8000:
		switch n {
		case 0x0:
			return xy(OpLdReg)
		case 0x1:
			return xy(OpOr)
		case 0x2:
			return xy(OpAnd)
		case 0x3:
			return xy(OpXor)
		case 0x4:
			return xy(OpAddReg)
		case 0x5:
			return xy(OpSub)
		case 0x6:
			return xy(OpShr)
		case 0x7:
			return xy(OpSubn)
		case 0xE:
			return xy(OpShl)
		}

	case 0x9000:
		// 9XY0 - Skips the next instruction if VX doesn't equal VY
		if n == 0 {
			return xy(OpSneReg)
		}

	case 0xA000:
		// ANNN - Sets I to the address NNN
		return addr(OpLdI)

	case 0xB000:
		// BNNN - Jumps to the address NNN plus V0
		return addr(OpJpV0)

	case 0xC000:
		// CXNN - Sets VX to a random number masked by NN
		return xnn(OpRnd)

	case 0xD000:
		// DXYN - Draws an 8xN sprite from I at (VX, VY)
		return Instruction{Op: OpDrw, Opcode: opcode, X: x, Y: y, N: n}

	case 0xE000:
		switch nn {
		case 0x9E:
			return reg(OpSkp)
		case 0xA1:
			return reg(OpSknp)
		}

	case 0xF000:
		switch nn {
		case 0x07:
			return reg(OpLdVxDT)
		case 0x0A:
			return reg(OpLdVxK)
		case 0x15:
			return reg(OpLdDTVx)
		case 0x18:
			return reg(OpLdSTVx)
		case 0x1E:
			return reg(OpAddI)
		case 0x29:
			return reg(OpLdF)
		case 0x33:
			return reg(OpLdB)
		case 0x55:
			return reg(OpStore)
		case 0x65:
			return reg(OpLoad)
		}
	}

	return Instruction{Op: OpUnknown, Opcode: opcode}
}
