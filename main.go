package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gdamore/tcell"
	"github.com/kapitanov/chip8vm/internal/audio"
	"github.com/kapitanov/chip8vm/internal/config"
	"github.com/kapitanov/chip8vm/internal/hal"
	"github.com/kapitanov/chip8vm/internal/loader"
	"github.com/kapitanov/chip8vm/internal/termhal"
	"github.com/kapitanov/chip8vm/internal/vm"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/sqweek/dialog"
	"golang.org/x/term"
)

// host is a vm.HAL that owns a real window or terminal.
type host interface {
	vm.HAL
	Reset()
	Shutdown()
}

func main() {
	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s [PATH_TO_ROM_FILE]", filepath.Base(os.Args[0])),
		Short:         "Run emulator",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	opts := config.Default()
	flags := cmd.Flags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&opts.LogFile, "log-file", "", "write logs to this file instead of stderr")
	flags.IntVar(&opts.Speed, "speed", opts.Speed, "cycles per second")
	flags.BoolVar(&opts.Terminal, "terminal", false, "render in the terminal instead of a window")
	flags.DurationVar(&opts.KeyHold, "key-hold", opts.KeyHold, "how long a terminal key press counts as held")
	flags.BoolVar(&opts.Mute, "mute", false, "disable sound")
	flags.BoolVar(&opts.Paused, "paused", false, "start paused")
	flags.StringVar(&opts.Foreground, "fg", opts.Foreground, "foreground color")
	flags.StringVar(&opts.Background, "bg", opts.Background, "background color")
	flags.BoolVar(&opts.Strict, "strict", false, "fail on SYS instructions")
	flags.BoolVar(&opts.Quirks.ShiftUsesVY, "shift-vy", false, "shift VY into VX")
	flags.BoolVar(&opts.Quirks.IndexIncrement, "index-increment", false, "advance I on register store and load")

	cmd.RunE = func(_ *cobra.Command, args []string) error {
		if err := opts.Validate(); err != nil {
			return err
		}

		restoreLog, err := setupLogger(opts, os.Stderr)
		if err != nil {
			return err
		}
		defer restoreLog()

		path, err := romPath(args)
		if err != nil {
			return err
		}
		if path == "" {
			return nil
		}

		return run(opts, path)
	}

	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

// setupLogger installs the default logger. The returned func closes the
// log file and points the logger back at stderr, so a fatal error logged
// after the screen is released is still seen.
func setupLogger(opts config.Options, stderr io.Writer) (func(), error) {
	loggerOpts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if opts.Verbose {
		loggerOpts.Level = slog.LevelDebug
	}

	w := stderr
	closeFn := func() {}

	switch {
	case opts.LogFile != "":
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("unable to open log file %q: %w", opts.LogFile, err)
		}
		w = f
		closeFn = func() { _ = f.Close() }

	case opts.Terminal:
		// stderr would tear the rendered screen
		w = io.Discard
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, loggerOpts)))

	return func() {
		closeFn()
		slog.SetDefault(slog.New(slog.NewTextHandler(stderr, loggerOpts)))
	}, nil
}

// romPath returns the ROM to run, asking for one when none was given.
// An empty path means the user cancelled the picker.
func romPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	path, err := dialog.File().Filter("CHIP-8 ROM", "ch8").Title("Load ROM").Load()
	if errors.Is(err, dialog.ErrCancelled) {
		slog.Info("no rom selected")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("unable to pick rom file: %w", err)
	}

	return path, nil
}

func run(opts config.Options, path string) error {
	program, err := loader.Load(afero.NewOsFs(), path)
	if err != nil {
		return err
	}

	machine, err := vm.New(program, opts.VM())
	if err != nil {
		return err
	}

	var tone *audio.Tone
	if !opts.Mute {
		tone = audio.NewTone(audio.SampleRate)
		player, err := audio.NewPlayer(tone)
		if err != nil {
			slog.Warn("sound disabled", "err", err)
			tone = nil
		} else {
			defer player.Close()
		}
	}

	h, err := newHost(opts, tone)
	if err != nil {
		return fmt.Errorf("unable to initialize hal: %w", err)
	}
	defer h.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	machine.SetPaused(opts.Paused)

	for {
		err = machine.Run(ctx, h, opts.Speed)

		switch {
		case errors.Is(err, vm.ErrReboot):
			slog.Info("reboot")
			machine.Reset()
			machine.SetPaused(opts.Paused)
			h.Reset()
			continue

		case errors.Is(err, vm.ErrQuit), errors.Is(err, context.Canceled):
			return nil

		default:
			return err
		}
	}
}

func newHost(opts config.Options, tone *audio.Tone) (host, error) {
	fg, bg, err := opts.Palette()
	if err != nil {
		return nil, err
	}

	if !opts.Terminal {
		h, err := hal.New(fg, bg, tone)
		if err != nil {
			return nil, err
		}
		return h, nil
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return nil, errors.New("--terminal requires stdout to be a terminal")
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to open terminal screen: %w", err)
	}

	h, err := termhal.New(screen, fg, bg, tone, opts.KeyHold)
	if err != nil {
		return nil, err
	}
	return h, nil
}
