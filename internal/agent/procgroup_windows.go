//go:build windows

package agent

import (
	"os/exec"
	"time"
)

// setProcGroup is a no-op on Windows. exec.CommandContext already sends
// os.Kill on context cancellation, and Windows does not support Unix-style
// process groups. grace gives child processes a period to drain before
// their pipes are forcibly closed.
func setProcGroup(cmd *exec.Cmd, grace time.Duration) {
	cmd.WaitDelay = grace
}
