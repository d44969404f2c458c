package report

import (
	"os/exec"
	"runtime"

	"github.com/rotisserie/eris"
)

// OpenCommand returns the platform command that opens path in the default
// application.
func OpenCommand(goos, path string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", path)
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path)
	default:
		return exec.Command("xdg-open", path)
	}
}

// Open launches the default viewer for path without waiting for it.
func Open(path string) error {
	cmd := OpenCommand(runtime.GOOS, path)
	if err := cmd.Start(); err != nil {
		return eris.Wrapf(err, "report: open %s", path)
	}
	go cmd.Wait() //nolint:errcheck
	return nil
}
