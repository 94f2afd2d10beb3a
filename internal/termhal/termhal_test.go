package termhal

import (
	"testing"
	"time"

	"github.com/gdamore/tcell"
	"github.com/kapitanov/chip8vm/internal/audio"
	"github.com/kapitanov/chip8vm/internal/config"
	"github.com/kapitanov/chip8vm/internal/vm"
	"github.com/retroenv/retrogolib/assert"
)

var (
	white = config.Color{R: 0xff, G: 0xff, B: 0xff}
	black = config.Color{}
)

func newTestHAL(t *testing.T, tone *audio.Tone) (*HAL, tcell.SimulationScreen) {
	t.Helper()

	screen := tcell.NewSimulationScreen("UTF-8")
	hal, err := New(screen, white, black, tone, 0)
	assert.NoError(t, err)
	t.Cleanup(hal.Shutdown)

	return hal, screen
}

func TestDrawHalfBlocks(t *testing.T) {
	hal, screen := newTestHAL(t, nil)

	var gfx vm.Display
	gfx[0][0] = true // top half of cell (0, 0)
	gfx[3][5] = true // bottom half of cell (5, 1)
	gfx[30][63] = true
	gfx[31][63] = true

	assert.NoError(t, hal.Draw(&gfx))

	tests := []struct {
		x, y        int
		top, bottom tcell.Color
	}{
		{0, 0, tcellColor(white), tcellColor(black)},
		{5, 1, tcellColor(black), tcellColor(white)},
		{63, 15, tcellColor(white), tcellColor(white)},
		{1, 0, tcellColor(black), tcellColor(black)},
	}

	for _, tt := range tests {
		mainc, _, style, _ := screen.GetContent(tt.x, tt.y)
		fg, bg, _ := style.Decompose()

		assert.Equal(t, halfBlock, mainc)
		assert.Equal(t, tt.top, fg)
		assert.Equal(t, tt.bottom, bg)
	}
}

func TestReadInputHoldsKeys(t *testing.T) {
	hal, _ := newTestHAL(t, nil)
	now := time.Unix(1000, 0)
	hal.now = func() time.Time { return now }

	hal.handleEvent(tcell.NewEventKey(tcell.KeyRune, 'w', tcell.ModNone))
	hal.handleEvent(tcell.NewEventKey(tcell.KeyRune, 'V', tcell.ModNone))
	hal.handleEvent(tcell.NewEventKey(tcell.KeyRune, 'k', tcell.ModNone))

	input, err := hal.ReadInput()
	assert.NoError(t, err)
	assert.Equal(t, vm.Keypad{vm.Key5: true, vm.KeyF: true}, input.Keys)
	assert.False(t, input.TogglePause)

	// still held where a terminal waits before its first auto-repeat
	now = now.Add(400 * time.Millisecond)
	input, err = hal.ReadInput()
	assert.NoError(t, err)
	assert.Equal(t, vm.Keypad{vm.Key5: true, vm.KeyF: true}, input.Keys)

	now = now.Add(config.DefaultKeyHold)
	input, err = hal.ReadInput()
	assert.NoError(t, err)
	assert.Equal(t, vm.Keypad{}, input.Keys)
}

func TestReadInputCustomHold(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	hal, err := New(screen, white, black, nil, 50*time.Millisecond)
	assert.NoError(t, err)
	t.Cleanup(hal.Shutdown)

	now := time.Unix(1000, 0)
	hal.now = func() time.Time { return now }
	hal.handleEvent(tcell.NewEventKey(tcell.KeyRune, '1', tcell.ModNone))

	now = now.Add(49 * time.Millisecond)
	input, err := hal.ReadInput()
	assert.NoError(t, err)
	assert.True(t, input.Keys[vm.Key1])

	now = now.Add(time.Millisecond)
	input, err = hal.ReadInput()
	assert.NoError(t, err)
	assert.False(t, input.Keys[vm.Key1])
}

func TestReadInputCommands(t *testing.T) {
	hal, _ := newTestHAL(t, nil)

	hal.handleEvent(tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone))
	input, err := hal.ReadInput()
	assert.NoError(t, err)
	assert.True(t, input.TogglePause)

	input, err = hal.ReadInput()
	assert.NoError(t, err)
	assert.False(t, input.TogglePause)

	hal.handleEvent(tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone))
	_, err = hal.ReadInput()
	assert.Equal(t, vm.ErrReboot, err)

	_, err = hal.ReadInput()
	assert.NoError(t, err)

	hal.handleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))
	_, err = hal.ReadInput()
	assert.Equal(t, vm.ErrQuit, err)
}

func TestSound(t *testing.T) {
	tone := audio.NewTone(audio.SampleRate)
	hal, _ := newTestHAL(t, tone)

	assert.NoError(t, hal.Sound(true))
	assert.True(t, tone.Active())

	assert.NoError(t, hal.Sound(false))
	assert.False(t, tone.Active())
}

func TestReset(t *testing.T) {
	tone := audio.NewTone(audio.SampleRate)
	hal, _ := newTestHAL(t, tone)

	hal.handleEvent(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone))
	hal.handleEvent(tcell.NewEventKey(tcell.KeyBackspace, 0, tcell.ModNone))
	assert.NoError(t, hal.Sound(true))

	hal.Reset()

	input, err := hal.ReadInput()
	assert.NoError(t, err)
	assert.Equal(t, vm.Keypad{}, input.Keys)
	assert.False(t, tone.Active())
}
