//go:build !windows

package acquire

import "os/exec"

// hideWindow is a no-op on non-Windows platforms, where subprocesses
// never own a console window to hide.
func hideWindow(cmd *exec.Cmd) {}
