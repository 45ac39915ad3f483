package api

import (
	"errors"
	"net/http"

	"github.com/notnil/chess"
	"github.com/qnkhuat/uciboard/pkg/engine"
	"github.com/qnkhuat/uciboard/pkg/game"
	"github.com/qnkhuat/uciboard/pkg/session"
)

type MessageType string

const (
	TypeBoard      MessageType = "board"
	TypeEvaluation MessageType = "evaluation"
	TypeEngineDown MessageType = "engine_unavailable"
	TypeGameOver   MessageType = "game_over"
)

type MessageMove struct {
	Move string `json:"move" binding:"required"`
}

type MessageMode struct {
	Mode string `json:"mode" binding:"required"`
}

// MessageLimits sets the search limits: engine moves think for MoveTimeMs,
// analysis searches to Depth or, when it is zero, for MoveTimeMs.
type MessageLimits struct {
	MoveTimeMs int `json:"movetime_ms" binding:"required"`
	Depth      int `json:"depth"`
}

type MessageLimit struct {
	Depth      int   `json:"depth,omitempty"`
	MoveTimeMs int64 `json:"movetime_ms,omitempty"`
}

type MessageUndo struct {
	Ply int `json:"ply"`
}

type MessageAnalysis struct {
	Score string   `json:"score"`
	Kind  string   `json:"kind"`
	Value int      `json:"value"`
	Bound string   `json:"bound,omitempty"`
	Depth int      `json:"depth"`
	Nodes int64    `json:"nodes,omitempty"`
	PV    []string `json:"pv"`
}

type MessageGame struct {
	Name            string           `json:"name"`
	Mode            string           `json:"mode"`
	Fen             string           `json:"fen"`
	Turn            string           `json:"turn"`
	Moves           []string         `json:"moves"`
	Notation        []string         `json:"notation"`
	Pending         bool             `json:"pending"`
	Running         bool             `json:"running"`
	EngineAvailable bool             `json:"engine_available"`
	EngineName      string           `json:"engine_name,omitempty"`
	EngineError     string           `json:"engine_error,omitempty"`
	Analysis        *MessageAnalysis `json:"analysis,omitempty"`
	Limit           MessageLimit     `json:"limit"`
	AnalysisLimit   MessageLimit     `json:"analysis_limit"`
	Outcome         string           `json:"outcome"`
	Method          string           `json:"method,omitempty"`
}

// MessageEvent is one listener notification.
type MessageEvent struct {
	Seq      int              `json:"seq"`
	Type     MessageType      `json:"type"`
	Fen      string           `json:"fen,omitempty"`
	LastMove string           `json:"last_move,omitempty"`
	Hint     string           `json:"hint,omitempty"`
	Running  bool             `json:"running,omitempty"`
	Analysis *MessageAnalysis `json:"analysis,omitempty"`
	Error    string           `json:"error,omitempty"`
	Outcome  string           `json:"outcome,omitempty"`
	Method   string           `json:"method,omitempty"`
}

func moveStrings(ms []game.Move) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.String()
	}
	return out
}

func newMessageAnalysis(a engine.Analysis) *MessageAnalysis {
	msg := &MessageAnalysis{
		Score: a.Score.String(),
		Kind:  a.Score.Kind.String(),
		Value: a.Score.Value,
		Depth: a.Depth,
		Nodes: a.Nodes,
		PV:    moveStrings(a.PV),
	}
	switch a.Score.Bound {
	case engine.BoundLower:
		msg.Bound = "lower"
	case engine.BoundUpper:
		msg.Bound = "upper"
	}
	return msg
}

func newMessageLimit(l engine.Limit) MessageLimit {
	return MessageLimit{Depth: l.Depth, MoveTimeMs: l.MoveTime.Milliseconds()}
}

func newMessageGame(s session.Snapshot) MessageGame {
	msg := MessageGame{
		Name:            s.Name,
		Mode:            s.Mode.String(),
		Fen:             s.FEN,
		Turn:            s.Turn.Name(),
		Moves:           moveStrings(s.History),
		Notation:        s.Notation,
		Pending:         s.Pending,
		Running:         s.Running,
		EngineAvailable: s.EngineAvailable,
		EngineName:      s.EngineName,
		Limit:           newMessageLimit(s.Limit),
		AnalysisLimit:   newMessageLimit(s.AnalysisLimit),
		Outcome:         string(s.Outcome),
	}
	if msg.Notation == nil {
		msg.Notation = []string{}
	}
	if s.EngineError != nil {
		msg.EngineError = s.EngineError.Error()
	}
	if s.Analysis != nil {
		msg.Analysis = newMessageAnalysis(*s.Analysis)
	}
	if s.Method != chess.NoMethod {
		msg.Method = s.Method.String()
	}
	return msg
}

// statusFor maps controller and engine errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrRequestPending):
		return http.StatusConflict
	case errors.Is(err, session.ErrWrongMode),
		errors.Is(err, session.ErrNotYourTurn),
		errors.Is(err, session.ErrGameOver),
		errors.Is(err, game.ErrIllegalMove):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrClosed),
		errors.Is(err, session.ErrQueueFull),
		errors.Is(err, engine.ErrEngineLaunch),
		errors.Is(err, engine.ErrChannelClosed),
		errors.Is(err, engine.ErrEngineProtocol):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}
