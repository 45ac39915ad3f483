package session

import (
	"github.com/notnil/chess"
	"github.com/qnkhuat/uciboard/pkg/engine"
	"github.com/qnkhuat/uciboard/pkg/game"
)

// BoardUpdate is everything a view needs to redraw the board.
type BoardUpdate struct {
	FEN      string
	Position *chess.Position
	Turn     chess.Color
	History  []game.Move
	Notation []string
	// LastMove is nil on an empty history.
	LastMove *game.Move
	// Highlight is the head of the latest analysis line, if any.
	Highlight *game.Move
	// Running is set while an engine-vs-engine run is under way.
	Running bool
}

// Listener is the view side of a Controller. Its methods are called from
// the controller's loop goroutine, one at a time; they must not call back
// into the controller synchronously.
type Listener interface {
	BoardChanged(BoardUpdate)
	EvaluationUpdated(engine.Analysis)
	EngineUnavailable(error)
	GameOver(chess.Outcome, chess.Method)
}

// NopListener ignores every notification.
type NopListener struct{}

func (NopListener) BoardChanged(BoardUpdate)             {}
func (NopListener) EvaluationUpdated(engine.Analysis)    {}
func (NopListener) EngineUnavailable(error)              {}
func (NopListener) GameOver(chess.Outcome, chess.Method) {}

// Multi fans every notification out to ls in order.
func Multi(ls ...Listener) Listener {
	return multi(ls)
}

type multi []Listener

func (m multi) BoardChanged(u BoardUpdate) {
	for _, l := range m {
		l.BoardChanged(u)
	}
}

func (m multi) EvaluationUpdated(a engine.Analysis) {
	for _, l := range m {
		l.EvaluationUpdated(a)
	}
}

func (m multi) EngineUnavailable(err error) {
	for _, l := range m {
		l.EngineUnavailable(err)
	}
}

func (m multi) GameOver(o chess.Outcome, meth chess.Method) {
	for _, l := range m {
		l.GameOver(o, meth)
	}
}
