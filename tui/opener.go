package tui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenFiles hands each path to the platform's default application.
func OpenFiles(paths ...string) error {
	for _, p := range paths {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", p)
		case "windows":
			cmd = exec.Command("cmd", "/c", "start", "", p)
		default:
			cmd = exec.Command("xdg-open", p)
		}
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("open %s: %w", p, err)
		}
		go func() { _ = cmd.Wait() }()
	}
	return nil
}
