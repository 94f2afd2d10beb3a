package vm

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

const (
	MemorySize    = 4096
	StackSize     = 16
	RegisterCount = 16
	ScreenWidth   = 64
	ScreenHeight  = 32
	KeyCount      = 16

	ProgramStart    = uint16(0x200)
	MaxProgramSize  = MemorySize - int(ProgramStart)
	InstructionSize = 2

	FontStart  = uint16(0x000)
	GlyphSize  = 5
	flagReg    = 0xF
	addrMask   = 0x0FFF
	nibbleMask = 0x0F
)

var (
	ErrProgramTooLarge = errors.New("program too large")
	ErrStackUnderflow  = errors.New("stack underflow")
	ErrStackOverflow   = errors.New("stack overflow")
	ErrUnimplemented   = errors.New("unimplemented instruction")
)

// Display is the 64x32 monochrome frame buffer, indexed [y][x].
type Display [ScreenHeight][ScreenWidth]bool

// Keypad holds the held state of the 16 logical keys.
type Keypad [KeyCount]bool

// Quirks select between behaviors that differ across historical interpreters.
type Quirks struct {
	// ShiftUsesVY makes 8XY6/8XYE shift VY into VX instead of shifting VX in place.
	ShiftUsesVY bool

	// IndexIncrement makes FX55/FX65 leave I pointing past the last register copied.
	IndexIncrement bool
}

type Options struct {
	Quirks Quirks

	// Strict turns SYS (0NNN) into an ErrUnimplemented failure instead of a no-op.
	Strict bool

	// Rand overrides the random byte source used by CXNN.
	Rand Rand
}

type VM struct {
	mu sync.Mutex

	memory    [MemorySize]uint8    // Memory (4k)
	registers [RegisterCount]uint8 // V registers (V0-VF)

	stack [StackSize]uint16 // Stack
	sp    uint8             // Stack pointer

	pc    uint16 // Program counter
	index uint16 // Index register

	delayTimer uint8 // Delay timer
	soundTimer uint8 // Sound timer

	gfx      Display // Graphics buffer
	keypad   Keypad  // Keypad
	drawFlag bool    // Indicates a draw has occurred

	paused  bool
	waiting bool  // FX0A is blocking on a key press
	waitReg uint8 // register receiving the key once waiting ends

	cycles uint64

	rand    Rand
	quirks  Quirks
	strict  bool
	program []byte
}

// New creates a machine with the font table and program in memory. The
// program must fit between ProgramStart and the end of memory.
func New(program []byte, opts Options) (*VM, error) {
	if len(program) > MaxProgramSize {
		return nil, fmt.Errorf("%w: %d bytes, limit is %d", ErrProgramTooLarge, len(program), MaxProgramSize)
	}

	vm := &VM{
		rand:    opts.Rand,
		quirks:  opts.Quirks,
		strict:  opts.Strict,
		program: append([]byte(nil), program...),
	}
	if vm.rand == nil {
		vm.rand = defaultRand()
	}

	vm.Reset()
	return vm, nil
}

// Reset returns the machine to its freshly loaded state. The pause flag
// is kept.
func (vm *VM) Reset() {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.initialize()
}

func (vm *VM) initialize() {
	vm.pc = ProgramStart
	vm.index = 0
	vm.sp = 0

	vm.gfx = Display{}
	vm.drawFlag = true

	vm.stack = [StackSize]uint16{}
	vm.keypad = Keypad{}
	vm.registers = [RegisterCount]uint8{}
	vm.memory = [MemorySize]uint8{}

	slog.Debug("load font", "at", fmt.Sprintf("0x%04x", FontStart), "n", len(chip8Font))
	copy(vm.memory[FontStart:], chip8Font[:])

	slog.Debug("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", len(vm.program))
	copy(vm.memory[ProgramStart:], vm.program)

	vm.delayTimer = 0
	vm.soundTimer = 0

	vm.waiting = false
	vm.waitReg = 0
	vm.cycles = 0
}

// Step runs one cycle: fetch, decode, execute, then timer decay. Nothing
// happens while paused. While waiting for a key only the timers advance.
func (vm *VM) Step() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.paused {
		return nil
	}

	if !vm.waiting {
		if err := vm.executeOpcode(vm.fetchOpcode()); err != nil {
			return err
		}
	}

	vm.updateTimers()
	vm.cycles++
	return nil
}

func (vm *VM) fetchOpcode() uint16 {
	hi := vm.memory[vm.pc&addrMask]
	lo := vm.memory[(vm.pc+1)&addrMask]

	vm.pc = (vm.pc + InstructionSize) & addrMask

	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) updateTimers() {
	if vm.delayTimer > 0 {
		vm.delayTimer--
	}

	if vm.soundTimer > 0 {
		vm.soundTimer--
	}
}

// SetKeys replaces the keypad state. A key that was not held on the
// previous write and is held now completes a pending FX0A, unless the
// machine is paused.
func (vm *VM) SetKeys(keys Keypad) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.waiting && !vm.paused {
		for i, held := range keys {
			if held && !vm.keypad[i] {
				vm.registers[vm.waitReg] = uint8(i)
				vm.waiting = false
				slog.Debug("key wait done", "key", Key(i), "reg", vm.waitReg)
				break
			}
		}
	}

	vm.keypad = keys
}

func (vm *VM) SetPaused(paused bool) {
	vm.mu.Lock()
	vm.paused = paused
	vm.mu.Unlock()
}

// TogglePause flips the pause flag and returns the new value.
func (vm *VM) TogglePause() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.paused = !vm.paused
	return vm.paused
}

func (vm *VM) Paused() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.paused
}

// Waiting reports whether FX0A is blocking on a key press.
func (vm *VM) Waiting() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.waiting
}

// SoundActive is true exactly while the sound timer is nonzero.
func (vm *VM) SoundActive() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.soundTimer > 0
}

// Display returns a copy of the frame buffer.
func (vm *VM) Display() Display {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.gfx
}

func (vm *VM) PC() uint16 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.pc
}

func (vm *VM) Cycles() uint64 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.cycles
}

// takeDrawFlag reports whether the display changed since the last call.
func (vm *VM) takeDrawFlag() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	changed := vm.drawFlag
	vm.drawFlag = false
	return changed
}
