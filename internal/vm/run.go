package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultRate = 600 // cycles per second
	FrameRate   = 60  // display refreshes per second
)

var (
	ErrReboot = errors.New("reboot")
	ErrQuit   = errors.New("quit")
)

// Input is what the host samples once per tick.
type Input struct {
	Keys        Keypad
	TogglePause bool
}

// HAL is the host side of the machine: input devices, a screen and a
// speaker. ReadInput may return ErrQuit or ErrReboot to end Run.
type HAL interface {
	ReadInput() (Input, error)
	Draw(gfx *Display) error
	Sound(active bool) error
}

// Run drives the machine at rate cycles per second until the context is
// done, the host returns an error or a cycle fails.
func (vm *VM) Run(ctx context.Context, hal HAL, rate int) error {
	if rate <= 0 {
		rate = DefaultRate
	}

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	r := runner{
		vm:  vm,
		hal: hal,
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := r.runStep(time.Now()); err != nil {
			return err
		}
	}
}

type runner struct {
	vm  *VM
	hal HAL

	lastFrame time.Time
	sound     bool
}

func (r *runner) runStep(now time.Time) error {
	input, err := r.hal.ReadInput()
	if err != nil {
		return err
	}

	r.vm.SetKeys(input.Keys)
	if input.TogglePause {
		slog.Info("pause", "paused", r.vm.TogglePause())
	}

	if err := r.vm.Step(); err != nil {
		return fmt.Errorf("cycle %d: %w", r.vm.Cycles(), err)
	}

	if now.Sub(r.lastFrame) >= time.Second/FrameRate && r.vm.takeDrawFlag() {
		gfx := r.vm.Display()
		if err := r.hal.Draw(&gfx); err != nil {
			return err
		}
		r.lastFrame = now
	}

	if active := r.vm.SoundActive(); active != r.sound {
		if err := r.hal.Sound(active); err != nil {
			return err
		}
		r.sound = active
	}

	return nil
}
