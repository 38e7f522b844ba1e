package update

import (
	"fmt"
	"os"
	"os/exec"
)

// StartProcess launches path with args as a detached child sharing the
// current standard streams and environment.
func StartProcess(path string, args []string) error {
	cmd := exec.Command(path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", path, err)
	}
	return cmd.Process.Release()
}
