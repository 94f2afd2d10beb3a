package vm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/retroenv/retrogolib/assert"
)

type fakeHAL struct {
	inputs []Input
	reads  int
	quitAt int

	draws  []Display
	sounds []bool
}

func (h *fakeHAL) ReadInput() (Input, error) {
	h.reads++
	if h.quitAt > 0 && h.reads >= h.quitAt {
		return Input{}, ErrQuit
	}
	if len(h.inputs) == 0 {
		return Input{}, nil
	}
	input := h.inputs[0]
	h.inputs = h.inputs[1:]
	return input, nil
}

func (h *fakeHAL) Draw(gfx *Display) error {
	h.draws = append(h.draws, *gfx)
	return nil
}

func (h *fakeHAL) Sound(active bool) error {
	h.sounds = append(h.sounds, active)
	return nil
}

func TestRunStopsOnQuit(t *testing.T) {
	vm := newTestVM(t, Options{},
		0x6003, // LD V0, 03
		0xF018, // LD ST, V0
		0x1204, // JP 204
	)
	hal := &fakeHAL{quitAt: 10}

	err := vm.Run(context.Background(), hal, 10000)

	assert.True(t, errors.Is(err, ErrQuit))
	assert.Equal(t, []bool{true, false}, hal.sounds)
	assert.Equal(t, 1, len(hal.draws))
	assert.Equal(t, uint64(9), vm.Cycles())
}

func TestRunStopsOnContext(t *testing.T) {
	vm := newTestVM(t, Options{}, 0x1200)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := vm.Run(ctx, &fakeHAL{}, 1000)

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRunReportsCycleError(t *testing.T) {
	vm := newTestVM(t, Options{}, 0x00EE)

	err := vm.Run(context.Background(), &fakeHAL{}, 1000)

	assert.True(t, errors.Is(err, ErrStackUnderflow))
}

func TestRunStepInputAndPause(t *testing.T) {
	vm := newTestVM(t, Options{}, 0xE09E, 0x0000, 0x6A01, 0x6B01)
	vm.registers[0] = 0x7
	hal := &fakeHAL{
		inputs: []Input{
			{Keys: Keypad{7: true}},
			{TogglePause: true},
			{TogglePause: true},
		},
	}
	r := runner{vm: vm, hal: hal}
	now := time.Now()

	assert.NoError(t, r.runStep(now))
	assert.Equal(t, uint16(0x204), vm.PC())
	assert.Equal(t, 1, len(hal.draws))

	assert.NoError(t, r.runStep(now.Add(time.Millisecond)))
	assert.True(t, vm.Paused())
	assert.Equal(t, uint16(0x204), vm.PC())

	assert.NoError(t, r.runStep(now.Add(2*time.Millisecond)))
	assert.False(t, vm.Paused())
	assert.Equal(t, uint8(1), vm.registers[0xA])
}

func TestRunStepThrottlesFrames(t *testing.T) {
	vm := newTestVM(t, Options{}, 0x00E0, 0x00E0, 0x00E0)
	hal := &fakeHAL{}
	r := runner{vm: vm, hal: hal}
	now := time.Now()

	assert.NoError(t, r.runStep(now))
	assert.NoError(t, r.runStep(now.Add(time.Millisecond)))
	assert.Equal(t, 1, len(hal.draws))

	assert.NoError(t, r.runStep(now.Add(time.Second/FrameRate)))
	assert.Equal(t, 2, len(hal.draws))
}
