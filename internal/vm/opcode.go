package vm

import (
	"context"
	"fmt"
	"log/slog"
)

// executeOpcode runs one instruction. The program counter already points
// past it; control flow instructions overwrite it, skips add one more step.
func (vm *VM) executeOpcode(opcode uint16) error {
	instr := Decode(opcode)

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", (vm.pc-InstructionSize)&addrMask),
			"opcode", fmt.Sprintf("0x%04x", opcode),
			"instr", instr.String(),
		)
	}

	return vm.execute(instr)
}

// Execute applies a decoded instruction outside the cycle: no fetch, no
// timer decay. The program counter is treated as already advanced past
// the instruction.
func (vm *VM) Execute(instr Instruction) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	return vm.execute(instr)
}

func (vm *VM) execute(instr Instruction) error {
	return lookup(instr.Op).Execute(vm, instr)
}

// lookup treats ops outside the table as OpUnknown.
func lookup(op Op) instruction {
	if op >= opCount {
		return opcodes[OpUnknown]
	}
	return opcodes[op]
}

type instruction struct {
	Name    func(in Instruction) string
	Execute func(vm *VM, in Instruction) error
}

var opcodes = [opCount]instruction{
	OpUnknown: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("??? %04X", in.Opcode)
		},
		Execute: func(vm *VM, in Instruction) error {
			slog.Debug("unknown opcode", "opcode", fmt.Sprintf("0x%04x", in.Opcode))
			return nil
		},
	},

	OpSys: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("SYS %03X", in.NNN)
		},
		Execute: func(vm *VM, in Instruction) error {
			if vm.strict {
				return fmt.Errorf("%w: SYS %03X", ErrUnimplemented, in.NNN)
			}
			slog.Warn("machine code call ignored", "addr", fmt.Sprintf("0x%03x", in.NNN))
			return nil
		},
	},

	OpCls: {
		Name: func(Instruction) string {
			return "CLS"
		},
		Execute: func(vm *VM, _ Instruction) error {
			vm.gfx = Display{}
			vm.drawFlag = true
			return nil
		},
	},

	OpRet: {
		Name: func(Instruction) string {
			return "RET"
		},
		Execute: func(vm *VM, _ Instruction) error {
			if vm.sp == 0 {
				return fmt.Errorf("%w: RET at 0x%03x", ErrStackUnderflow, (vm.pc-InstructionSize)&addrMask)
			}
			vm.sp--
			vm.pc = vm.stack[vm.sp]
			return nil
		},
	},

	OpJp: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("JP %03X", in.NNN)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.pc = in.NNN
			return nil
		},
	},

	OpCall: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("CALL %03X", in.NNN)
		},
		Execute: func(vm *VM, in Instruction) error {
			if int(vm.sp) == StackSize {
				return fmt.Errorf("%w: CALL %03X with %d frames", ErrStackOverflow, in.NNN, StackSize)
			}
			vm.stack[vm.sp] = vm.pc
			vm.sp++
			vm.pc = in.NNN
			return nil
		},
	},

	OpSeByte: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("SE V%X, %02X", in.X, in.NN)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.skipIf(vm.registers[in.X] == in.NN)
			return nil
		},
	},

	OpSneByte: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("SNE V%X, %02X", in.X, in.NN)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.skipIf(vm.registers[in.X] != in.NN)
			return nil
		},
	},

	OpSeReg: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("SE V%X, V%X", in.X, in.Y)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.skipIf(vm.registers[in.X] == vm.registers[in.Y])
			return nil
		},
	},

	OpLdByte: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("LD V%X, %02X", in.X, in.NN)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.registers[in.X] = in.NN
			return nil
		},
	},

	OpAddByte: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("ADD V%X, %02X", in.X, in.NN)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.registers[in.X] += in.NN
			return nil
		},
	},

	OpLdReg: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("LD V%X, V%X", in.X, in.Y)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.registers[in.X] = vm.registers[in.Y]
			return nil
		},
	},

	OpOr: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("OR V%X, V%X", in.X, in.Y)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.registers[in.X] |= vm.registers[in.Y]
			return nil
		},
	},

	OpAnd: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("AND V%X, V%X", in.X, in.Y)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.registers[in.X] &= vm.registers[in.Y]
			return nil
		},
	},

	OpXor: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("XOR V%X, V%X", in.X, in.Y)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.registers[in.X] ^= vm.registers[in.Y]
			return nil
		},
	},

	// VF = 1 on carry out of bit 7
	OpAddReg: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("ADD V%X, V%X", in.X, in.Y)
		},
		Execute: func(vm *VM, in Instruction) error {
			sum := uint16(vm.registers[in.X]) + uint16(vm.registers[in.Y])

			vm.registers[in.X] = uint8(sum)
			vm.registers[flagReg] = flag(sum > 0xFF)
			return nil
		},
	},

	// VF = 1 when VX > VY, i.e. no borrow
	OpSub: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("SUB V%X, V%X", in.X, in.Y)
		},
		Execute: func(vm *VM, in Instruction) error {
			x := vm.registers[in.X]
			y := vm.registers[in.Y]

			vm.registers[in.X] = x - y
			vm.registers[flagReg] = flag(x > y)
			return nil
		},
	},

	// VF = 1 when VY > VX, i.e. no borrow
	OpSubn: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("SUBN V%X, V%X", in.X, in.Y)
		},
		Execute: func(vm *VM, in Instruction) error {
			x := vm.registers[in.X]
			y := vm.registers[in.Y]

			vm.registers[in.X] = y - x
			vm.registers[flagReg] = flag(y > x)
			return nil
		},
	},

	OpShr: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("SHR V%X", in.X)
		},
		Execute: func(vm *VM, in Instruction) error {
			v := vm.shiftSource(in)

			vm.registers[in.X] = v >> 1
			vm.registers[flagReg] = v & 0x01
			return nil
		},
	},

	OpShl: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("SHL V%X", in.X)
		},
		Execute: func(vm *VM, in Instruction) error {
			v := vm.shiftSource(in)

			vm.registers[in.X] = v << 1
			vm.registers[flagReg] = v >> 7
			return nil
		},
	},

	OpSneReg: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("SNE V%X, V%X", in.X, in.Y)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.skipIf(vm.registers[in.X] != vm.registers[in.Y])
			return nil
		},
	},

	OpLdI: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("LD I, %03X", in.NNN)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.index = in.NNN
			return nil
		},
	},

	OpJpV0: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("JP V0, %03X", in.NNN)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.pc = (in.NNN + uint16(vm.registers[0])) & addrMask
			return nil
		},
	},

	OpRnd: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("RND V%X, %02X", in.X, in.NN)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.registers[in.X] = vm.rand.Byte() & in.NN
			return nil
		},
	},

	OpDrw: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("DRW V%X, V%X, %X", in.X, in.Y, in.N)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.drawSprite(in.X, in.Y, in.N)
			return nil
		},
	},

	OpSkp: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("SKP V%X", in.X)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.skipIf(vm.keypad[vm.registers[in.X]&nibbleMask])
			return nil
		},
	},

	OpSknp: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("SKNP V%X", in.X)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.skipIf(!vm.keypad[vm.registers[in.X]&nibbleMask])
			return nil
		},
	},

	OpLdVxDT: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("LD V%X, DT", in.X)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.registers[in.X] = vm.delayTimer
			return nil
		},
	},

	// Completed by SetKeys on the next key press edge
	OpLdVxK: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("LD V%X, K", in.X)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.waiting = true
			vm.waitReg = in.X
			return nil
		},
	},

	OpLdDTVx: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("LD DT, V%X", in.X)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.delayTimer = vm.registers[in.X]
			return nil
		},
	},

	OpLdSTVx: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("LD ST, V%X", in.X)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.soundTimer = vm.registers[in.X]
			return nil
		},
	},

	OpAddI: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("ADD I, V%X", in.X)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.index = (vm.index + uint16(vm.registers[in.X])) & addrMask
			return nil
		},
	},

	OpLdF: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("LD F, V%X", in.X)
		},
		Execute: func(vm *VM, in Instruction) error {
			vm.index = FontStart + uint16(vm.registers[in.X]&nibbleMask)*GlyphSize
			return nil
		},
	},

	OpLdB: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("LD B, V%X", in.X)
		},
		Execute: func(vm *VM, in Instruction) error {
			v := vm.registers[in.X]

			vm.writeMemory(0, v/100)
			vm.writeMemory(1, (v/10)%10)
			vm.writeMemory(2, v%10)
			return nil
		},
	},

	OpStore: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("LD [I], V%X", in.X)
		},
		Execute: func(vm *VM, in Instruction) error {
			for i := uint8(0); i <= in.X; i++ {
				vm.writeMemory(uint16(i), vm.registers[i])
			}
			vm.advanceIndex(in.X)
			return nil
		},
	},

	OpLoad: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("LD V%X, [I]", in.X)
		},
		Execute: func(vm *VM, in Instruction) error {
			for i := uint8(0); i <= in.X; i++ {
				vm.registers[i] = vm.readMemory(uint16(i))
			}
			vm.advanceIndex(in.X)
			return nil
		},
	},
}

func (vm *VM) skipIf(cond bool) {
	if cond {
		vm.pc = (vm.pc + InstructionSize) & addrMask
	}
}

func (vm *VM) shiftSource(in Instruction) uint8 {
	if vm.quirks.ShiftUsesVY {
		return vm.registers[in.Y]
	}
	return vm.registers[in.X]
}

// advanceIndex applies the COSMAC VIP's I = I + X + 1 after
// FX55/FX65 when that quirk is on.
func (vm *VM) advanceIndex(x uint8) {
	if vm.quirks.IndexIncrement {
		vm.index = (vm.index + uint16(x) + 1) & addrMask
	}
}

func (vm *VM) readMemory(offset uint16) uint8 {
	return vm.memory[(vm.index+offset)&addrMask]
}

func (vm *VM) writeMemory(offset uint16, v uint8) {
	vm.memory[(vm.index+offset)&addrMask] = v
}

// drawSprite XORs an 8xN sprite from I onto the display. Pixels past the
// right or bottom edge land on the last column or row. VF is set when any
// toggled pixel ends up on.
func (vm *VM) drawSprite(vX, vY, height uint8) {
	const width = 8

	xLocation := int(vm.registers[vX])
	yLocation := int(vm.registers[vY])

	lit := false
	for row := 0; row < int(height); row++ {
		pixels := vm.readMemory(uint16(row))

		for col := 0; col < width; col++ {
			if pixels&(0x80>>col) == 0 {
				continue
			}

			y := min(yLocation+row, ScreenHeight-1)
			x := min(xLocation+col, ScreenWidth-1)

			vm.gfx[y][x] = !vm.gfx[y][x]
			if vm.gfx[y][x] {
				lit = true
			}
		}
	}

	vm.registers[flagReg] = flag(lit)
	vm.drawFlag = true
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
