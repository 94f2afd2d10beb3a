package hal

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/kapitanov/chip8vm/internal/audio"
	"github.com/kapitanov/chip8vm/internal/config"
	"github.com/kapitanov/chip8vm/internal/vm"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	WindowWidth  = 1024
	WindowHeight = 512
)

var _ vm.HAL = (*HAL)(nil)

type HAL struct {
	window          *sdl.Window
	renderer        *sdl.Renderer
	texture         *sdl.Texture
	backBuffer      []uint32
	backBufferPitch int

	fgColor uint32
	bgColor uint32
	tone    *audio.Tone

	keys vm.Keypad

	release teardown
}

// teardown holds destroy calls for SDL resources, run newest first.
type teardown []resource

type resource struct {
	name    string
	destroy func() error
}

func (t *teardown) push(name string, destroy func() error) {
	*t = append(*t, resource{name: name, destroy: destroy})
}

func (t teardown) run() {
	for i := len(t) - 1; i >= 0; i-- {
		if err := t[i].destroy(); err != nil {
			slog.Error("failed to destroy sdl "+t[i].name, "err", err)
		}
	}
}

// New opens the emulator window. tone may be nil to run silently.
func New(fg, bg config.Color, tone *audio.Tone) (*HAL, error) {
	var release teardown

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to init sdl: %w", err)
	}
	release.push("subsystems", func() error {
		sdl.Quit()
		return nil
	})

	window, err := sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, WindowWidth, WindowHeight, sdl.WINDOW_SHOWN|sdl.WINDOW_UTILITY)
	if err != nil {
		release.run()
		return nil, fmt.Errorf("failed to create sdl window: %w", err)
	}
	release.push("window", window.Destroy)
	slog.Debug("hal: create window")
	window.Show()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		release.run()
		return nil, fmt.Errorf("failed to create sdl renderer: %w", err)
	}
	release.push("renderer", renderer.Destroy)

	err = renderer.SetLogicalSize(WindowWidth, WindowHeight)
	if err != nil {
		release.run()
		return nil, fmt.Errorf("failed to resize sdl renderer: %w", err)
	}
	slog.Debug("hal: create renderer")

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, vm.ScreenWidth, vm.ScreenHeight)
	if err != nil {
		release.run()
		return nil, fmt.Errorf("failed to create sdl texture: %w", err)
	}
	release.push("texture", texture.Destroy)
	slog.Debug("hal: create texture")

	return &HAL{
		release:         release,
		window:          window,
		renderer:        renderer,
		texture:         texture,
		backBuffer:      make([]uint32, vm.ScreenWidth*vm.ScreenHeight),
		backBufferPitch: int(vm.ScreenWidth) * int(unsafe.Sizeof(uint32(0))),
		fgColor:         fg.ARGB(),
		bgColor:         bg.ARGB(),
		tone:            tone,
	}, nil
}

func (hal *HAL) Shutdown() {
	if hal.tone != nil {
		hal.tone.SetActive(false)
	}

	hal.release.run()
}

// Reset drops held keys and silences the tone, e.g. after a reboot.
func (hal *HAL) Reset() {
	hal.keys = vm.Keypad{}
	_ = hal.Sound(false)
}

func (hal *HAL) ReadInput() (vm.Input, error) {
	input := vm.Input{}

	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch e.GetType() {
		case sdl.QUIT:
			slog.Debug("hal: exit requested")
			return input, vm.ErrQuit

		case sdl.KEYDOWN:
			ke := e.(*sdl.KeyboardEvent)
			if ke.Repeat != 0 {
				continue
			}

			switch ke.Keysym.Scancode {
			case sdl.SCANCODE_ESCAPE:
				slog.Debug("hal: exit requested")
				return input, vm.ErrQuit
			case sdl.SCANCODE_BACKSPACE:
				return input, vm.ErrReboot
			case sdl.SCANCODE_P:
				input.TogglePause = !input.TogglePause
			}

			if key, ok := keyMap(ke); ok {
				hal.keys[key] = true
			}

		case sdl.KEYUP:
			if key, ok := keyMap(e.(*sdl.KeyboardEvent)); ok {
				hal.keys[key] = false
			}
		}
	}

	input.Keys = hal.keys
	return input, nil
}

// keyMap binds scancodes by position, see vm.KeyLayout.
func keyMap(e *sdl.KeyboardEvent) (vm.Key, bool) {
	switch e.Keysym.Scancode {
	case sdl.SCANCODE_X:
		return vm.Key0, true
	case sdl.SCANCODE_1:
		return vm.Key1, true
	case sdl.SCANCODE_2:
		return vm.Key2, true
	case sdl.SCANCODE_3:
		return vm.Key3, true
	case sdl.SCANCODE_Q:
		return vm.Key4, true
	case sdl.SCANCODE_W:
		return vm.Key5, true
	case sdl.SCANCODE_E:
		return vm.Key6, true
	case sdl.SCANCODE_A:
		return vm.Key7, true
	case sdl.SCANCODE_S:
		return vm.Key8, true
	case sdl.SCANCODE_D:
		return vm.Key9, true
	case sdl.SCANCODE_Z:
		return vm.KeyA, true
	case sdl.SCANCODE_C:
		return vm.KeyB, true
	case sdl.SCANCODE_4:
		return vm.KeyC, true
	case sdl.SCANCODE_R:
		return vm.KeyD, true
	case sdl.SCANCODE_F:
		return vm.KeyE, true
	case sdl.SCANCODE_V:
		return vm.KeyF, true
	default:
		return 0, false
	}
}

func (hal *HAL) Draw(gfx *vm.Display) error {
	for y := 0; y < vm.ScreenHeight; y++ {
		for x := 0; x < vm.ScreenWidth; x++ {
			i := x + y*vm.ScreenWidth

			color := hal.bgColor
			if gfx[y][x] {
				color = hal.fgColor
			}

			hal.backBuffer[i] = color
		}
	}

	backBufferPtr := unsafe.Pointer(&hal.backBuffer[0])
	if err := hal.texture.Update(nil, backBufferPtr, hal.backBufferPitch); err != nil {
		return fmt.Errorf("failed to update sdl texture: %w", err)
	}

	if err := hal.renderer.Clear(); err != nil {
		return fmt.Errorf("failed to clear sdl renderer: %w", err)
	}

	if err := hal.renderer.Copy(hal.texture, nil, nil); err != nil {
		return fmt.Errorf("failed to copy sdl texture to renderer: %w", err)
	}

	hal.renderer.Present()
	return nil
}

func (hal *HAL) Sound(active bool) error {
	if hal.tone != nil {
		hal.tone.SetActive(active)
	}
	return nil
}
