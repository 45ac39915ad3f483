// Package engine drives an external chess engine over the UCI protocol.
//
// A Channel owns the engine process and moves lines in and out of it; an
// Engine speaks UCI over a Channel and turns info/bestmove output into
// SearchResult and Analysis values. Only one go command is ever outstanding.
package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type State int

const (
	StateIdle State = iota
	StateReady
	StateSearching
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateSearching:
		return "searching"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configure Launch.
type Options struct {
	// PTY runs the engine on a pseudo-terminal instead of pipes.
	PTY    bool
	Args   []string
	Logger zerolog.Logger
}

// Engine is a UCI session over a Channel.
type Engine struct {
	ch  Channel
	log zerolog.Logger

	mu    sync.Mutex
	state State
	name  string
}

// New wraps an already running channel. The session starts idle; call
// Handshake before searching if the engine requires it.
func New(ch Channel, logger zerolog.Logger) *Engine {
	return &Engine{ch: ch, log: logger}
}

// Launch starts the engine at path and completes the UCI handshake.
func Launch(path string, opts Options) (*Engine, error) {
	var (
		p   *Process
		err error
	)
	if opts.PTY {
		p, err = StartPTY(path, opts.Args...)
	} else {
		p, err = StartProcess(path, opts.Args...)
	}
	if err != nil {
		return nil, err
	}
	e := New(p, opts.Logger.With().Str("engine", path).Int("pid", p.Pid()).Logger())
	if err := e.Handshake(); err != nil {
		e.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrEngineLaunch, path, err)
	}
	e.log.Info().Str("name", e.Name()).Msg("engine ready")
	return e, nil
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Name is the engine's "id name", known after Handshake.
func (e *Engine) Name() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.name
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// begin moves the session into want, rejecting closed or busy sessions.
func (e *Engine) begin(want State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateClosed:
		return ErrChannelClosed
	case StateSearching:
		return ErrBusy
	}
	e.state = want
	return nil
}

func (e *Engine) send(cmd string) error {
	e.log.Debug().Str("cmd", cmd).Msg("send")
	if err := e.ch.WriteLine(cmd); err != nil {
		e.setState(StateClosed)
		if errors.Is(err, ErrChannelClosed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}
	return nil
}

func (e *Engine) recv() (string, error) {
	line, err := e.ch.ReadLine()
	if err != nil {
		e.setState(StateClosed)
		if err == io.EOF {
			return "", fmt.Errorf("%w: engine closed its output", ErrEngineProtocol)
		}
		return "", fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}
	e.log.Trace().Str("line", line).Msg("recv")
	return line, nil
}

// waitFor reads until a line equal to token, handing every other line to
// fn when fn is not nil.
func (e *Engine) waitFor(token string, fn func(string)) error {
	for {
		line, err := e.recv()
		if err != nil {
			return fmt.Errorf("waiting for %s: %w", token, err)
		}
		if strings.TrimSpace(line) == token {
			return nil
		}
		if fn != nil {
			fn(line)
		}
	}
}

// Handshake sends uci and isready and waits for uciok and readyok.
func (e *Engine) Handshake() error {
	if err := e.begin(StateIdle); err != nil {
		return err
	}
	if err := e.send("uci"); err != nil {
		return err
	}
	var name string
	err := e.waitFor("uciok", func(line string) {
		if strings.HasPrefix(line, "id name ") {
			name = strings.TrimPrefix(line, "id name ")
		}
	})
	if err != nil {
		return err
	}
	if err := e.ready(); err != nil {
		return err
	}
	e.mu.Lock()
	e.name = name
	e.state = StateReady
	e.mu.Unlock()
	return nil
}

func (e *Engine) ready() error {
	if err := e.send("isready"); err != nil {
		return err
	}
	return e.waitFor("readyok", nil)
}

// NewGame tells the engine the next position belongs to a different game.
func (e *Engine) NewGame() error {
	if err := e.begin(StateReady); err != nil {
		return err
	}
	if err := e.send("ucinewgame"); err != nil {
		return err
	}
	return e.ready()
}

// SetPosition sets the position the next search runs on.
func (e *Engine) SetPosition(pos Position) error {
	e.mu.Lock()
	st := e.state
	e.mu.Unlock()
	switch st {
	case StateClosed:
		return ErrChannelClosed
	case StateSearching:
		return ErrBusy
	}
	return e.send(pos.command())
}

// Search runs go with the given limit and blocks until bestmove. The last
// scored info line seen is returned along with the move.
func (e *Engine) Search(l Limit) (SearchResult, error) {
	if err := l.Validate(); err != nil {
		return SearchResult{}, err
	}
	if err := e.begin(StateSearching); err != nil {
		return SearchResult{}, err
	}
	if err := e.send(l.command()); err != nil {
		return SearchResult{}, err
	}

	var last Analysis
	for {
		line, err := e.recv()
		if err != nil {
			return SearchResult{}, fmt.Errorf("search %s: %w", l, err)
		}
		switch {
		case strings.HasPrefix(line, "info"):
			info, ok := ParseInfo(line)
			if !ok {
				e.log.Debug().Str("line", line).Msg("skipping malformed info")
				continue
			}
			if info.HasScore() {
				last = info.Analysis
			}
		case strings.HasPrefix(line, "bestmove"):
			res, err := ParseBestMove(line)
			if err != nil {
				e.setState(StateClosed)
				return SearchResult{}, err
			}
			res.Analysis = last
			e.setState(StateReady)
			return res, nil
		}
	}
}

// Analyze runs a search for its evaluation only. It still reads through
// bestmove so the next command starts on a clean channel.
func (e *Engine) Analyze(l Limit) (Analysis, error) {
	res, err := e.Search(l)
	if err != nil {
		return Analysis{}, err
	}
	return res.Analysis, nil
}

// Close stops the engine process. It is safe to call more than once.
func (e *Engine) Close() {
	e.setState(StateClosed)
	if e.ch != nil {
		e.ch.Stop()
	}
}
