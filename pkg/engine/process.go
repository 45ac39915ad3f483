package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// StopTimeout is how long Stop waits for the engine to honour quit before
// killing it.
const StopTimeout = 2 * time.Second

// Channel is a line oriented connection to an engine. One reader and one
// writer may use it at the same time; concurrent readers or concurrent
// writers are not supported.
type Channel interface {
	// WriteLine sends text followed by a newline.
	WriteLine(text string) error
	// ReadLine blocks for the next line without its terminator. It returns
	// io.EOF once the engine closed its output.
	ReadLine() (string, error)
	// Stop shuts the engine down. It never fails and may be called twice.
	Stop()
}

// Process is a Channel over a child process.
type Process struct {
	cmd *exec.Cmd
	w   *bufio.Writer
	out *bufio.Reader
	// closers are released once Stop finishes
	closers []io.Closer

	wmu      sync.Mutex
	exited   chan struct{}
	stopOnce sync.Once
}

// StartProcess spawns path with its stdin and stdout connected to pipes.
func StartProcess(path string, args ...string) (*Process, error) {
	bin, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEngineLaunch, path, err)
	}

	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEngineLaunch, path, err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrEngineLaunch, path, err)
	}

	cmd := exec.Command(bin, args...)
	cmd.Stdin = inR
	cmd.Stdout = outW
	if err := cmd.Start(); err != nil {
		inR.Close()
		inW.Close()
		outR.Close()
		outW.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrEngineLaunch, path, err)
	}
	// The child holds its own copies; dropping ours lets reads see EOF when it exits.
	inR.Close()
	outW.Close()

	return newProcess(cmd, inW, outR, []io.Closer{inW, outR}), nil
}

func newProcess(cmd *exec.Cmd, in io.Writer, out io.Reader, closers []io.Closer) *Process {
	p := &Process{
		cmd:     cmd,
		w:       bufio.NewWriter(in),
		out:     bufio.NewReader(out),
		closers: closers,
		exited:  make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(p.exited)
	}()
	return p
}

func (p *Process) hasExited() bool {
	if p == nil || p.cmd == nil {
		return true
	}
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}

func (p *Process) WriteLine(text string) error {
	if p.hasExited() {
		return ErrChannelClosed
	}
	p.wmu.Lock()
	defer p.wmu.Unlock()
	if _, err := p.w.WriteString(text + "\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}
	if err := p.w.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}
	return nil
}

func (p *Process) ReadLine() (string, error) {
	if p == nil || p.out == nil {
		return "", io.EOF
	}
	line, err := p.out.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil {
		// A pty master reports EIO once the slave side is gone.
		if errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed) {
			err = io.EOF
		}
		if err == io.EOF && line != "" {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

func (p *Process) Stop() {
	if p == nil || p.cmd == nil {
		return
	}
	p.stopOnce.Do(func() {
		defer func() {
			for _, c := range p.closers {
				_ = c.Close()
			}
		}()
		_ = p.WriteLine("quit")
		select {
		case <-p.exited:
			return
		case <-time.After(StopTimeout):
		}
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		select {
		case <-p.exited:
		case <-time.After(StopTimeout):
		}
	})
}

// Pid returns the engine's process id, or 0 when it is not running.
func (p *Process) Pid() int {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}
