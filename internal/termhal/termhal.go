// Package termhal runs the machine inside a terminal. Two display rows
// share one character cell drawn with an upper half block, so the whole
// 64x32 buffer needs a 64x16 terminal area.
package termhal

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gdamore/tcell"
	"github.com/kapitanov/chip8vm/internal/audio"
	"github.com/kapitanov/chip8vm/internal/config"
	"github.com/kapitanov/chip8vm/internal/vm"
)

const (
	Columns = vm.ScreenWidth
	Rows    = vm.ScreenHeight / 2

	halfBlock = '▀'
)

var _ vm.HAL = (*HAL)(nil)

type HAL struct {
	mu sync.Mutex

	screen tcell.Screen
	fg, bg tcell.Color
	tone   *audio.Tone
	now    func() time.Time

	// Terminals only report presses, so a key counts as held for this
	// long after its last press or auto-repeat.
	hold time.Duration

	pressed     [vm.KeyCount]time.Time
	togglePause bool
	quit        bool
	reboot      bool

	done chan struct{}
}

// New takes ownership of screen, initializes it and starts reading its
// events. tone may be nil to run silently. hold is how long a key stays
// down after a press; zero selects config.DefaultKeyHold.
func New(screen tcell.Screen, fg, bg config.Color, tone *audio.Tone, hold time.Duration) (*HAL, error) {
	if hold <= 0 {
		hold = config.DefaultKeyHold
	}

	tcell.SetEncodingFallback(tcell.EncodingFallbackASCII)

	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to init terminal screen: %w", err)
	}

	screen.HideCursor()
	screen.DisableMouse()
	screen.Clear()

	hal := &HAL{
		screen: screen,
		fg:     tcellColor(fg),
		bg:     tcellColor(bg),
		tone:   tone,
		now:    time.Now,
		hold:   hold,
		done:   make(chan struct{}),
	}

	go hal.pollEvents()
	return hal, nil
}

func tcellColor(c config.Color) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

func (hal *HAL) Shutdown() {
	if hal.tone != nil {
		hal.tone.SetActive(false)
	}

	hal.screen.Fini()
	<-hal.done
}

// Reset drops held keys and pending commands and silences the tone.
func (hal *HAL) Reset() {
	hal.mu.Lock()
	defer hal.mu.Unlock()

	hal.pressed = [vm.KeyCount]time.Time{}
	hal.togglePause = false
	hal.reboot = false

	if hal.tone != nil {
		hal.tone.SetActive(false)
	}
}

func (hal *HAL) pollEvents() {
	defer close(hal.done)

	for {
		ev := hal.screen.PollEvent()
		if ev == nil {
			return
		}
		hal.handleEvent(ev)
	}
}

func (hal *HAL) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		hal.mu.Lock()
		defer hal.mu.Unlock()

		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			slog.Debug("termhal: exit requested")
			hal.quit = true
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			hal.reboot = true
		case tcell.KeyRune:
			if ev.Rune() == 'p' || ev.Rune() == 'P' {
				hal.togglePause = !hal.togglePause
				return
			}
			if key, ok := vm.KeyForRune(ev.Rune()); ok {
				hal.pressed[key] = hal.now()
			}
		}

	case *tcell.EventResize:
		hal.screen.Sync()
	}
}

func (hal *HAL) ReadInput() (vm.Input, error) {
	hal.mu.Lock()
	defer hal.mu.Unlock()

	if hal.quit {
		return vm.Input{}, vm.ErrQuit
	}

	if hal.reboot {
		hal.reboot = false
		return vm.Input{}, vm.ErrReboot
	}

	now := hal.now()
	input := vm.Input{TogglePause: hal.togglePause}
	hal.togglePause = false

	for i, at := range hal.pressed {
		input.Keys[i] = !at.IsZero() && now.Sub(at) < hal.hold
	}

	return input, nil
}

func (hal *HAL) Draw(gfx *vm.Display) error {
	for row := 0; row < Rows; row++ {
		for x := 0; x < Columns; x++ {
			top := hal.color(gfx[2*row][x])
			bottom := hal.color(gfx[2*row+1][x])

			style := tcell.StyleDefault.Foreground(top).Background(bottom)
			hal.screen.SetContent(x, row, halfBlock, nil, style)
		}
	}

	hal.screen.Show()
	return nil
}

func (hal *HAL) color(on bool) tcell.Color {
	if on {
		return hal.fg
	}
	return hal.bg
}

func (hal *HAL) Sound(active bool) error {
	if hal.tone != nil {
		hal.tone.SetActive(active)
	}
	return nil
}
