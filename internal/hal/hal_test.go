package hal

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestTeardownRunsNewestFirst(t *testing.T) {
	var order []string
	destroy := func(name string, err error) func() error {
		return func() error {
			order = append(order, name)
			return err
		}
	}

	var release teardown
	release.push("subsystems", destroy("subsystems", nil))
	release.push("window", destroy("window", errors.New("window busy")))
	release.push("renderer", destroy("renderer", nil))

	release.run()

	// a failing destroy does not stop the rest
	assert.Equal(t, []string{"renderer", "window", "subsystems"}, order)
}

func TestTeardownEmpty(t *testing.T) {
	var release teardown
	release.run()
	assert.Equal(t, 0, len(release))
}
