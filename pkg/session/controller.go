// Package session coordinates a board, its game state and one engine.
//
// A Controller runs two goroutines. The loop goroutine owns the game state
// and every flag, and is the only caller of the Listener. The worker
// goroutine owns the engine and performs all engine I/O, one request at a
// time; its results are handed back to the loop before they touch the
// game.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/google/uuid"
	"github.com/notnil/chess"
	"github.com/qnkhuat/uciboard/pkg/engine"
	"github.com/qnkhuat/uciboard/pkg/game"
	"github.com/rs/zerolog"
)

const (
	// DefaultMoveTime is the engine's thinking time when no limit is set.
	DefaultMoveTime = 200 * time.Millisecond
	inboxSize       = 16
)

// Bounds for limits changed while a session runs. A depth of zero searches
// by time.
const (
	MinMoveTime = 50 * time.Millisecond
	MaxMoveTime = 5 * time.Second
	MaxDepth    = 40
)

var (
	ErrRequestPending = errors.New("an engine request is already pending")
	ErrWrongMode      = errors.New("not available in this mode")
	ErrNotYourTurn    = errors.New("it is the engine's turn")
	ErrGameOver       = errors.New("game is over")
	ErrClosed         = errors.New("session closed")
	ErrQueueFull      = errors.New("engine request queue is full")
)

type Config struct {
	// Name identifies the session in logs; a petname is generated when empty.
	Name       string
	EnginePath string
	EngineArgs []string
	PTY        bool
	// Limit bounds engine moves, AnalysisLimit bounds Analyze. A zero
	// AnalysisLimit falls back to Limit.
	Limit         engine.Limit
	AnalysisLimit engine.Limit
	Mode          Mode
	// HumanColor is the human's side in HumanVsEngine, white by default.
	HumanColor chess.Color
	// StartFEN starts the board from a custom position.
	StartFEN string
	Logger   zerolog.Logger
	// Launch overrides how the engine is started.
	Launch func() (*engine.Engine, error)
}

// Snapshot is a copy of the controller's state.
type Snapshot struct {
	Name            string
	Mode            Mode
	FEN             string
	Turn            chess.Color
	History         []game.Move
	Notation        []string
	Pending         bool
	Running         bool
	EngineAvailable bool
	EngineName      string
	EngineError     error
	Analysis        *engine.Analysis
	Limit           engine.Limit
	AnalysisLimit   engine.Limit
	Outcome         chess.Outcome
	Method          chess.Method
}

type Controller struct {
	cfg      Config
	log      zerolog.Logger
	listener Listener
	w        *worker

	inbox    chan func()
	quit     chan struct{}
	loopDone chan struct{}
	stopOnce sync.Once

	// Owned by the loop goroutine.
	state      *game.State
	mode       Mode
	pending    *job
	running    bool
	generation int
	newGame    bool
	engineErr  error
	engineName string
	analysis   *engine.Analysis
}

// New starts a controller. The engine is not launched until a mode or a
// request needs it.
func New(cfg Config, l Listener) (*Controller, error) {
	if cfg.Name == "" {
		cfg.Name = petname.Generate(2, "-")
	}
	if cfg.Limit.Validate() != nil {
		cfg.Limit = engine.TimeLimit(DefaultMoveTime)
	}
	if cfg.AnalysisLimit.Validate() != nil {
		cfg.AnalysisLimit = cfg.Limit
	}
	if cfg.HumanColor == chess.NoColor {
		cfg.HumanColor = chess.White
	}
	if l == nil {
		l = NopListener{}
	}

	st := game.NewState()
	if cfg.StartFEN != "" {
		var err error
		if st, err = game.NewStateFromFEN(cfg.StartFEN); err != nil {
			return nil, err
		}
	}

	logger := cfg.Logger.With().Str("session", cfg.Name).Logger()
	if cfg.Launch == nil {
		opts := engine.Options{PTY: cfg.PTY, Args: cfg.EngineArgs, Logger: logger}
		path := cfg.EnginePath
		cfg.Launch = func() (*engine.Engine, error) {
			return engine.Launch(path, opts)
		}
	}

	c := &Controller{
		cfg:      cfg,
		log:      logger,
		listener: l,
		w:        newWorker(cfg.Launch, logger),
		inbox:    make(chan func(), inboxSize),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
		state:    st,
		mode:     cfg.Mode,
	}
	go c.loop()
	go c.w.run(func(r result) {
		c.post(func() { c.finish(r) })
	})

	c.post(func() {
		c.notifyBoard(nil)
		c.kick()
	})
	c.log.Info().Stringer("mode", cfg.Mode).Msg("session started")
	return c, nil
}

func (c *Controller) loop() {
	defer close(c.loopDone)
	for {
		select {
		case fn := <-c.inbox:
			fn()
		case <-c.quit:
			return
		}
	}
}

// post queues fn on the loop. It is dropped once the controller shut down.
func (c *Controller) post(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.quit:
	}
}

// call runs fn on the loop and waits for its result.
func (c *Controller) call(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case c.inbox <- func() { reply <- fn() }:
	case <-c.quit:
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-c.loopDone:
		select {
		case err := <-reply:
			return err
		default:
			return ErrClosed
		}
	}
}

// OnHumanMove plays a move for the side to move. In HumanVsEngine the
// engine's reply is requested in the background.
func (c *Controller) OnHumanMove(m game.Move) error {
	return c.call(func() error {
		if c.pending != nil {
			return ErrRequestPending
		}
		if c.mode == EngineVsEngine {
			return ErrWrongMode
		}
		if c.mode == HumanVsEngine && c.state.Turn() != c.cfg.HumanColor {
			return ErrNotYourTurn
		}
		if c.state.IsOver() {
			return ErrGameOver
		}
		m = game.AutoPromote(c.state.Position(), m)
		if err := c.state.Apply(m); err != nil {
			return err
		}
		c.log.Debug().Stringer("move", m).Msg("human move")
		if c.mode == HumanVsEngine {
			// a new move is a new chance for an engine that failed earlier
			c.engineErr = nil
		}
		c.moved()
		return nil
	})
}

// RequestEngineMove asks the engine to play the side to move once, in any
// mode but EngineVsEngine.
func (c *Controller) RequestEngineMove() error {
	return c.call(func() error {
		if c.mode == EngineVsEngine {
			return ErrWrongMode
		}
		if c.state.IsOver() {
			return ErrGameOver
		}
		return c.dispatch(jobSearch)
	})
}

// RunEngineVsEngine lets the engine play both sides until the game ends or
// Cancel is called.
func (c *Controller) RunEngineVsEngine() error {
	return c.call(func() error {
		if c.mode != EngineVsEngine {
			return ErrWrongMode
		}
		if c.state.IsOver() {
			return ErrGameOver
		}
		if err := c.dispatch(jobSearch); err != nil {
			return err
		}
		c.running = true
		c.notifyBoard(nil)
		return nil
	})
}

// Analyze requests an evaluation of the current position. The game is not
// changed; the result reaches the listener through EvaluationUpdated.
func (c *Controller) Analyze() error {
	return c.call(func() error {
		return c.dispatch(jobAnalyze)
	})
}

// Cancel stops an engine-vs-engine run before its next move. A search in
// flight still completes and is applied.
func (c *Controller) Cancel() {
	_ = c.call(func() error {
		if !c.running {
			return nil
		}
		c.log.Info().Msg("engine vs engine cancelled")
		c.running = false
		c.notifyBoard(nil)
		return nil
	})
}

// SetLimits changes the limits of later engine moves and analyses. A search
// in flight keeps the limit it started with. Move times are clamped to
// [MinMoveTime, MaxMoveTime] and depths to MaxDepth. A zero analysis limit
// follows the move limit.
func (c *Controller) SetLimits(move, analysis engine.Limit) error {
	if err := move.Validate(); err != nil {
		return err
	}
	if analysis == (engine.Limit{}) {
		analysis = move
	} else if err := analysis.Validate(); err != nil {
		return err
	}
	move, analysis = ClampLimit(move), ClampLimit(analysis)
	return c.call(func() error {
		c.cfg.Limit = move
		c.cfg.AnalysisLimit = analysis
		c.log.Info().Stringer("limit", move).Stringer("analysis", analysis).Msg("limits changed")
		return nil
	})
}

// ClampLimit bounds l to the range accepted by SetLimits.
func ClampLimit(l engine.Limit) engine.Limit {
	if l.Depth > MaxDepth {
		l.Depth = MaxDepth
	}
	if l.MoveTime != 0 || l.Depth == 0 {
		if l.MoveTime < MinMoveTime {
			l.MoveTime = MinMoveTime
		}
		if l.MoveTime > MaxMoveTime {
			l.MoveTime = MaxMoveTime
		}
	}
	return l
}

// SetMode switches modes. Leaving the engine modes shuts the engine down.
func (c *Controller) SetMode(m Mode) error {
	return c.call(func() error {
		if c.pending != nil {
			return ErrRequestPending
		}
		wasRunning := c.running
		c.running = false
		if wasRunning {
			c.notifyBoard(nil)
		}
		if c.mode.UsesEngine() && !m.UsesEngine() {
			c.w.submit(job{id: uuid.NewString(), kind: jobTeardown})
		}
		if m.UsesEngine() {
			c.engineErr = nil
		}
		c.log.Info().Stringer("from", c.mode).Stringer("to", m).Msg("mode changed")
		c.mode = m
		c.kick()
		return nil
	})
}

// NewGame resets the board to its initial position.
func (c *Controller) NewGame() error {
	return c.call(func() error {
		c.running = false
		c.state.Reset()
		c.generation++
		c.newGame = true
		c.analysis = nil
		c.notifyBoard(nil)
		c.kick()
		return nil
	})
}

// Undo takes back up to ply moves. A pending engine result for the old
// position is discarded when it arrives.
func (c *Controller) Undo(ply int) error {
	return c.call(func() error {
		c.running = false
		if c.state.Undo(ply) == 0 {
			return nil
		}
		c.generation++
		c.analysis = nil
		c.notifyBoard(nil)
		c.kick()
		return nil
	})
}

func (c *Controller) Snapshot() Snapshot {
	var snap Snapshot
	err := c.call(func() error {
		snap = Snapshot{
			Name:            c.cfg.Name,
			Mode:            c.mode,
			FEN:             c.state.FEN(),
			Turn:            c.state.Turn(),
			History:         c.state.History(),
			Notation:        c.state.Notation(),
			Pending:         c.pending != nil,
			Running:         c.running,
			EngineAvailable: c.engineErr == nil,
			EngineName:      c.engineName,
			EngineError:     c.engineErr,
			Limit:           c.cfg.Limit,
			AnalysisLimit:   c.cfg.AnalysisLimit,
			Outcome:         c.state.Outcome(),
			Method:          c.state.Method(),
		}
		if c.analysis != nil {
			a := *c.analysis
			snap.Analysis = &a
		}
		return nil
	})
	if err != nil {
		snap.Name = c.cfg.Name
		snap.EngineError = err
	}
	return snap
}

// Shutdown stops the loop and the engine. It is safe to call more than once
// and never reports teardown failures.
func (c *Controller) Shutdown() {
	c.stopOnce.Do(func() {
		_ = c.call(func() error {
			c.running = false
			return nil
		})
		close(c.quit)
		<-c.loopDone
		c.w.stop()
		c.log.Info().Msg("session closed")
	})
}

// dispatch hands a request for the current position to the worker.
func (c *Controller) dispatch(kind jobKind) error {
	if c.pending != nil {
		return ErrRequestPending
	}
	j := job{
		id:         uuid.NewString(),
		kind:       kind,
		pos:        engine.Position{FEN: c.state.InitialFEN(), Moves: c.state.History()},
		limit:      c.cfg.Limit,
		generation: c.generation,
		newGame:    c.newGame,
	}
	if kind == jobAnalyze {
		j.limit = c.cfg.AnalysisLimit
	}
	if !c.w.submit(j) {
		return ErrQueueFull
	}
	c.newGame = false
	c.pending = &j
	c.log.Debug().Str("request", j.id).Stringer("kind", kind).Stringer("limit", j.limit).Msg("dispatch")
	return nil
}

// kick starts the engine when it is its turn to move.
func (c *Controller) kick() {
	if c.pending != nil || c.engineErr != nil || c.state.IsOver() {
		return
	}
	switch c.mode {
	case HumanVsEngine:
		if c.state.Turn() != c.cfg.HumanColor {
			_ = c.dispatch(jobSearch)
		}
	case EngineVsEngine:
		if c.running {
			_ = c.dispatch(jobSearch)
		}
	}
}

// moved publishes a new position and hands the turn on.
func (c *Controller) moved() {
	c.generation++
	c.notifyBoard(nil)
	if c.state.IsOver() {
		c.running = false
		c.log.Info().Str("outcome", string(c.state.Outcome())).Stringer("method", c.state.Method()).Msg("game over")
		c.listener.GameOver(c.state.Outcome(), c.state.Method())
		return
	}
	c.kick()
}

func (c *Controller) finish(r result) {
	if c.pending == nil || c.pending.id != r.id {
		c.log.Warn().Str("request", r.id).Msg("result for unknown request")
		return
	}
	c.pending = nil
	log := c.log.With().Str("request", r.id).Stringer("kind", r.kind).Logger()

	if r.err != nil {
		c.engineFailed(r.err)
		return
	}
	c.engineErr = nil
	c.engineName = r.engineName

	if r.generation != c.generation {
		log.Info().Msg("discarding result for a position that changed")
		c.kick()
		return
	}

	a := r.res.Analysis
	if a.HasScore() {
		c.analysis = &a
		c.listener.EvaluationUpdated(a)
	}

	if r.kind == jobAnalyze {
		if len(a.PV) > 0 {
			c.notifyBoard(&a.PV[0])
		}
		return
	}

	if r.res.BestMove == nil {
		log.Info().Msg("engine has no move")
		c.running = false
		c.notifyBoard(nil)
		if c.state.IsOver() {
			c.listener.GameOver(c.state.Outcome(), c.state.Method())
		}
		return
	}
	m := *r.res.BestMove
	if err := c.state.Apply(m); err != nil {
		c.w.submit(job{id: uuid.NewString(), kind: jobTeardown})
		c.engineFailed(fmt.Errorf("%w: engine played %v", engine.ErrEngineProtocol, err))
		return
	}
	log.Debug().Stringer("move", m).Msg("engine move")
	c.moved()
}

// engineFailed records an engine error. The worker already dropped the
// engine; the next request launches a new one.
func (c *Controller) engineFailed(err error) {
	if errors.Is(err, ErrClosed) {
		return
	}
	c.log.Error().Err(err).Msg("engine unavailable")
	c.engineErr = err
	c.running = false
	if errors.Is(err, engine.ErrEngineLaunch) && c.mode.UsesEngine() {
		c.log.Warn().Stringer("mode", HumanVsHuman).Msg("falling back")
		c.mode = HumanVsHuman
	}
	c.listener.EngineUnavailable(err)
}

func (c *Controller) notifyBoard(highlight *game.Move) {
	u := BoardUpdate{
		FEN:       c.state.FEN(),
		Position:  c.state.Position(),
		Turn:      c.state.Turn(),
		History:   c.state.History(),
		Notation:  c.state.Notation(),
		Highlight: highlight,
		Running:   c.running,
	}
	if m, ok := c.state.LastMove(); ok {
		u.LastMove = &m
	}
	c.listener.BoardChanged(u)
}
