//go:build windows

package acquire

import (
	"os/exec"
	"syscall"
)

// hideWindow prevents yt-dlp/ffmpeg subprocesses from flashing a console
// window on Windows, carried over from the teacher's exec_windows.go.
func hideWindow(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.HideWindow = true
}
