//go:build !windows

// Package server hosts boards over SSH: every interactive session gets its
// own uciboard process on a pseudo terminal, with its own engine.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/creack/pty"
	petname "github.com/dustinkirkland/golang-petname"
	"github.com/gliderlabs/ssh"
	"github.com/rs/zerolog"
	gossh "golang.org/x/crypto/ssh"
)

const ServerIdleTimeout = 5 * time.Minute

type contextKey string

const keyFingerprint contextKey = "fingerprint"

type Config struct {
	Addr        string
	BoardBinary string
	// BoardArgs are passed to every board before its -name flag.
	BoardArgs []string
	// HostKey is a private key file; ~/.ssh/id_rsa is tried when empty and
	// a key is generated when neither exists.
	HostKey     string
	IdleTimeout time.Duration
	Logger      zerolog.Logger
}

// Board describes one running board.
type Board struct {
	Name        string
	User        string
	Fingerprint string
	Pid         int
	Started     time.Time
}

type Server struct {
	cfg Config
	log zerolog.Logger
	srv *ssh.Server

	mu     sync.Mutex
	boards map[string]Board
}

func New(cfg Config) (*Server, error) {
	if cfg.BoardBinary == "" {
		return nil, errors.New("server: board binary must be specified")
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = ServerIdleTimeout
	}
	s := &Server{
		cfg:    cfg,
		log:    cfg.Logger,
		boards: make(map[string]Board),
	}
	s.srv = &ssh.Server{
		Addr:        cfg.Addr,
		IdleTimeout: cfg.IdleTimeout,
		Handler:     s.handle,
		PublicKeyHandler: func(ctx ssh.Context, key ssh.PublicKey) bool {
			ctx.SetValue(keyFingerprint, gossh.FingerprintSHA256(key))
			return true
		},
		PasswordHandler: func(ctx ssh.Context, password string) bool {
			return true
		},
		KeyboardInteractiveHandler: func(ctx ssh.Context, challenger gossh.KeyboardInteractiveChallenge) bool {
			return true
		},
	}

	keyFile := cfg.HostKey
	if keyFile == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			if def := path.Join(homeDir, ".ssh", "id_rsa"); fileExists(def) {
				keyFile = def
			}
		}
	}
	if keyFile != "" {
		if err := s.srv.SetOption(ssh.HostKeyFile(keyFile)); err != nil {
			return nil, fmt.Errorf("server: host key %s: %w", keyFile, err)
		}
	}
	return s, nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.cfg.Addr).Msg("ssh server listening")
	return s.srv.ListenAndServe()
}

// Serve accepts connections on l.
func (s *Server) Serve(l net.Listener) error {
	s.log.Info().Str("addr", l.Addr().String()).Msg("ssh server listening")
	return s.srv.Serve(l)
}

// Shutdown stops accepting connections and waits for open sessions until
// ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Boards lists the running boards by start time.
func (s *Server) Boards() []Board {
	s.mu.Lock()
	out := make([]Board, 0, len(s.boards))
	for _, b := range s.boards {
		out = append(out, b)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

// newName picks a petname no running board uses.
func (s *Server) newName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		name := petname.Generate(2, "-")
		if _, ok := s.boards[name]; !ok {
			s.boards[name] = Board{Name: name}
			return name
		}
	}
}

func (s *Server) handle(sess ssh.Session) {
	ptyReq, winCh, isPty := sess.Pty()
	if !isPty {
		io.WriteString(sess, "failed to start uciboard: non-interactive terminals are not supported\n")
		sess.Exit(1)
		return
	}

	name := s.newName()
	defer func() {
		s.mu.Lock()
		delete(s.boards, name)
		s.mu.Unlock()
	}()
	fp, _ := sess.Context().Value(keyFingerprint).(string)
	log := s.log.With().Str("board", name).Str("user", sess.User()).Str("remote", sess.RemoteAddr().String()).Logger()

	cmdCtx, cancelCmd := context.WithCancel(sess.Context())
	defer cancelCmd()

	args := append(append([]string{}, s.cfg.BoardArgs...), "-name", name)
	cmd := exec.CommandContext(cmdCtx, s.cfg.BoardBinary, args...)
	cmd.Env = append(os.Environ(), fmt.Sprintf("TERM=%s", ptyReq.Term))

	f, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(ptyReq.Window.Height), Cols: uint16(ptyReq.Window.Width)})
	if err != nil {
		log.Error().Err(err).Msg("failed to start board")
		io.WriteString(sess, fmt.Sprintf("failed to initialize pseudo-terminal: %s\n", err))
		sess.Exit(1)
		return
	}
	defer f.Close()

	s.mu.Lock()
	s.boards[name] = Board{Name: name, User: sess.User(), Fingerprint: fp, Pid: cmd.Process.Pid, Started: time.Now()}
	s.mu.Unlock()
	log.Info().Str("fingerprint", fp).Int("pid", cmd.Process.Pid).Msg("board started")

	// the resizer must be gone before f is closed
	resizeDone := make(chan struct{})
	var resizer sync.WaitGroup
	resizer.Add(1)
	go func() {
		defer resizer.Done()
		followWindow(f, winCh, resizeDone)
	}()

	go func() {
		io.Copy(f, sess)
	}()
	io.Copy(sess, f)
	close(resizeDone)
	resizer.Wait()

	code := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		log.Debug().Err(err).Msg("board exited")
	}
	log.Info().Int("code", code).Msg("board closed")
	sess.Exit(code)
}

// followWindow applies window changes to f until done is closed or the
// client stops sending them.
func followWindow(f *os.File, winCh <-chan ssh.Window, done <-chan struct{}) {
	for {
		select {
		case win, ok := <-winCh:
			if !ok {
				return
			}
			pty.Setsize(f, &pty.Winsize{Rows: uint16(win.Height), Cols: uint16(win.Width)})
		case <-done:
			return
		}
	}
}
