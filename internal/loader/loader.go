// Package loader reads CHIP-8 program images from a filesystem.
package loader

import (
	"fmt"
	"log/slog"

	"github.com/kapitanov/chip8vm/internal/vm"
	"github.com/spf13/afero"
)

// Load reads the program at path. Images that would not fit in memory
// past vm.ProgramStart are rejected before they are read. An empty image
// is valid and runs as zeroed memory.
func Load(fs afero.Fs, path string) ([]byte, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load file %q: %w", path, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("unable to load file %q: is a directory", path)
	}

	if info.Size() > int64(vm.MaxProgramSize) {
		return nil, fmt.Errorf("unable to load file %q: %w: %d bytes, limit is %d",
			path, vm.ErrProgramTooLarge, info.Size(), vm.MaxProgramSize)
	}

	bs, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("unable to load file %q: %w", path, err)
	}

	// the file may have grown since Stat
	if len(bs) > vm.MaxProgramSize {
		return nil, fmt.Errorf("unable to load file %q: %w", path, vm.ErrProgramTooLarge)
	}

	slog.Debug("read program", "path", path, "n", len(bs))
	return bs, nil
}
