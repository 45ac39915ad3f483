// Package api serves a session over HTTP. It is a second view on the same
// controller as the terminal board: it posts moves and requests, and keeps
// the listener notifications it receives as a numbered event log.
package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/notnil/chess"
	"github.com/qnkhuat/uciboard/pkg/engine"
	"github.com/qnkhuat/uciboard/pkg/game"
	"github.com/qnkhuat/uciboard/pkg/session"
	"github.com/rs/zerolog"
)

const maxEvents = 256

// Controller is what the HTTP view needs from a session.
type Controller interface {
	OnHumanMove(game.Move) error
	RequestEngineMove() error
	RunEngineVsEngine() error
	Analyze() error
	Cancel()
	SetMode(session.Mode) error
	NewGame() error
	Undo(ply int) error
	SetLimits(move, analysis engine.Limit) error
	Snapshot() session.Snapshot
}

type Server struct {
	log  zerolog.Logger
	ctrl Controller

	mu     sync.Mutex
	seq    int
	events []MessageEvent
}

// NewServer returns a server with no controller; Attach one before
// serving requests. The server is also the session.Listener feeding its
// event log.
func NewServer(logger zerolog.Logger) *Server {
	return &Server{log: logger}
}

func (s *Server) Attach(c Controller) {
	s.ctrl = c
}

// Router builds the gin engine for the view.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/state", s.State)
	router.GET("/engine", s.Engine)
	router.GET("/events", s.Events)
	router.POST("/move", s.Move)
	router.POST("/analyze", s.request(Controller.Analyze))
	router.POST("/engine-move", s.request(Controller.RequestEngineMove))
	router.POST("/eve", s.request(Controller.RunEngineVsEngine))
	router.POST("/new", s.request(Controller.NewGame))
	router.POST("/cancel", func(c *gin.Context) {
		s.ctrl.Cancel()
		s.State(c)
	})
	router.POST("/undo", s.Undo)
	router.POST("/mode", s.Mode)
	router.POST("/limits", s.Limits)
	return router
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http")
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// request wraps a controller call taking no arguments.
func (s *Server) request(fn func(Controller) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := fn(s.ctrl); err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusAccepted, newMessageGame(s.ctrl.Snapshot()))
	}
}

func (s *Server) State(c *gin.Context) {
	c.JSON(http.StatusOK, newMessageGame(s.ctrl.Snapshot()))
}

// Engine reports whether the engine is usable, 503 after a failure.
func (s *Server) Engine(c *gin.Context) {
	snap := s.ctrl.Snapshot()
	if !snap.EngineAvailable {
		msg := "engine unavailable"
		if snap.EngineError != nil {
			msg = snap.EngineError.Error()
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": snap.EngineName, "mode": snap.Mode.String()})
}

func (s *Server) Move(c *gin.Context) {
	var msg MessageMove
	if err := c.ShouldBindJSON(&msg); err != nil {
		s.fail(c, err)
		return
	}
	m, err := game.ParseMove(msg.Move)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.ctrl.OnHumanMove(m); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newMessageGame(s.ctrl.Snapshot()))
}

func (s *Server) Undo(c *gin.Context) {
	msg := MessageUndo{Ply: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&msg); err != nil {
			s.fail(c, err)
			return
		}
	}
	if err := s.ctrl.Undo(msg.Ply); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newMessageGame(s.ctrl.Snapshot()))
}

func (s *Server) Mode(c *gin.Context) {
	var msg MessageMode
	if err := c.ShouldBindJSON(&msg); err != nil {
		s.fail(c, err)
		return
	}
	m, err := session.ParseMode(msg.Mode)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.ctrl.SetMode(m); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newMessageGame(s.ctrl.Snapshot()))
}

// Limits changes the limits of later searches. The response carries the
// limits after clamping.
func (s *Server) Limits(c *gin.Context) {
	var msg MessageLimits
	if err := c.ShouldBindJSON(&msg); err != nil {
		s.fail(c, err)
		return
	}
	moveTime := time.Duration(msg.MoveTimeMs) * time.Millisecond
	analysis := engine.Limit{Depth: msg.Depth, MoveTime: moveTime}
	if err := s.ctrl.SetLimits(engine.TimeLimit(moveTime), analysis); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newMessageGame(s.ctrl.Snapshot()))
}

// Events returns the notifications after ?since=N.
func (s *Server) Events(c *gin.Context) {
	since := 0
	if v := c.Query("since"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.fail(c, err)
			return
		}
		since = n
	}
	s.mu.Lock()
	out := make([]MessageEvent, 0)
	for _, e := range s.events {
		if e.Seq > since {
			out = append(out, e)
		}
	}
	last := s.seq
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"last": last, "events": out})
}

func (s *Server) record(e MessageEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e.Seq = s.seq
	s.events = append(s.events, e)
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
}

func (s *Server) BoardChanged(u session.BoardUpdate) {
	e := MessageEvent{Type: TypeBoard, Fen: u.FEN, Running: u.Running}
	if u.LastMove != nil {
		e.LastMove = u.LastMove.String()
	}
	if u.Highlight != nil {
		e.Hint = u.Highlight.String()
	}
	s.record(e)
}

func (s *Server) EvaluationUpdated(a engine.Analysis) {
	s.record(MessageEvent{Type: TypeEvaluation, Analysis: newMessageAnalysis(a)})
}

func (s *Server) EngineUnavailable(err error) {
	s.record(MessageEvent{Type: TypeEngineDown, Error: err.Error()})
}

func (s *Server) GameOver(o chess.Outcome, m chess.Method) {
	s.record(MessageEvent{Type: TypeGameOver, Outcome: string(o), Method: m.String()})
}
