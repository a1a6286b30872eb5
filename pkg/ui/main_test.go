package ui

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	// Snapshots are written to the working directory and config is read from
	// XDG_CONFIG_HOME; keep both out of the source tree.
	dir, err := os.MkdirTemp("", "cardtree-ui-*")
	if err != nil {
		panic(err)
	}
	os.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.Chdir(dir); err != nil {
		panic(err)
	}

	code := m.Run()

	os.RemoveAll(dir)
	os.Exit(code)
}
