//go:build !windows

package engine

import (
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// StartPTY spawns path with its stdin and stdout on the slave side of a
// pseudo-terminal in raw mode. Engines that only line-buffer their output
// when attached to a terminal need this.
func StartPTY(path string, args ...string) (*Process, error) {
	bin, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEngineLaunch, path, err)
	}

	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: open pty: %v", ErrEngineLaunch, path, err)
	}
	// No echo of our commands and no \r\n rewriting of the engine's output.
	if _, err := term.MakeRaw(int(tty.Fd())); err != nil {
		ptmx.Close()
		tty.Close()
		return nil, fmt.Errorf("%w: %s: raw pty: %v", ErrEngineLaunch, path, err)
	}

	cmd := exec.Command(bin, args...)
	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}
	if err := cmd.Start(); err != nil {
		ptmx.Close()
		tty.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrEngineLaunch, path, err)
	}
	tty.Close()

	return newProcess(cmd, ptmx, ptmx, []io.Closer{ptmx}), nil
}
