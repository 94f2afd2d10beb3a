// Package config holds the host options for running a program.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kapitanov/chip8vm/internal/vm"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	DefaultForeground = "#bea700"
	DefaultBackground = "#000000"

	MinSpeed = 1
	MaxSpeed = 100000

	// DefaultKeyHold outlasts the usual 250-600ms terminal auto-repeat
	// delay, so a held key reads as held. Releases show up that much late.
	DefaultKeyHold = 600 * time.Millisecond
)

var ErrInvalidOption = errors.New("invalid option")

// Color is an opaque 24-bit RGB color.
type Color struct {
	R, G, B uint8
}

// ARGB packs the color for 32-bit ARGB8888 surfaces.
func (c Color) ARGB() uint32 {
	return 0xFF000000 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// ParseColor accepts "#rrggbb" or "#rgb", with or without the leading '#'.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("%w: color %q: %v", ErrInvalidOption, s, err)
	}

	r, g, b := c.RGB255()
	return Color{R: r, G: g, B: b}, nil
}

type Options struct {
	Verbose bool
	LogFile string

	// Speed is the number of cycles run per second.
	Speed int

	Terminal bool
	Mute     bool
	Paused   bool

	// KeyHold is how long a terminal key press counts as held.
	KeyHold time.Duration

	Foreground string
	Background string

	Strict bool
	Quirks vm.Quirks
}

func Default() Options {
	return Options{
		Speed:      vm.DefaultRate,
		KeyHold:    DefaultKeyHold,
		Foreground: DefaultForeground,
		Background: DefaultBackground,
	}
}

func (o Options) Validate() error {
	if o.Speed < MinSpeed || o.Speed > MaxSpeed {
		return fmt.Errorf("%w: speed %d outside [%d, %d]", ErrInvalidOption, o.Speed, MinSpeed, MaxSpeed)
	}

	if o.KeyHold <= 0 {
		return fmt.Errorf("%w: key hold %s must be positive", ErrInvalidOption, o.KeyHold)
	}

	if _, _, err := o.Palette(); err != nil {
		return err
	}

	return nil
}

// Palette returns the parsed foreground and background colors.
func (o Options) Palette() (fg, bg Color, err error) {
	if fg, err = ParseColor(o.Foreground); err != nil {
		return Color{}, Color{}, fmt.Errorf("foreground: %w", err)
	}

	if bg, err = ParseColor(o.Background); err != nil {
		return Color{}, Color{}, fmt.Errorf("background: %w", err)
	}

	return fg, bg, nil
}

func (o Options) VM() vm.Options {
	return vm.Options{
		Quirks: o.Quirks,
		Strict: o.Strict,
	}
}
