// Package game holds the authoritative position and move history of a board.
// Legality, terminal status and notation are delegated to notnil/chess.
package game

import (
	"errors"
	"fmt"

	"github.com/notnil/chess"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrIllegalMove is returned by Apply when the move is not in the current
// legal move set.
var ErrIllegalMove = errors.New("illegal move")

// State is an initial position plus the ordered moves applied to it.
// The current position is always derived from the two; it is not safe for
// concurrent use.
type State struct {
	initial string
	game    *chess.Game
	history []Move
}

func newGame(fen string) (*chess.Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return chess.NewGame(opt, chess.UseNotation(chess.UCINotation{})), nil
}

// NewState returns a state at the standard initial position.
func NewState() *State {
	st, err := NewStateFromFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return st
}

// NewStateFromFEN returns a state whose initial position is fen.
func NewStateFromFEN(fen string) (*State, error) {
	g, err := newGame(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	return &State{initial: fen, game: g}, nil
}

// Apply plays m if it is legal in the current position. The state is left
// untouched on error.
func (s *State) Apply(m Move) error {
	for _, vm := range s.game.ValidMoves() {
		if !m.matches(vm) {
			continue
		}
		if err := s.game.Move(vm); err != nil {
			return fmt.Errorf("%w: %s in %s: %v", ErrIllegalMove, m, s.FEN(), err)
		}
		s.history = append(s.history, m)
		return nil
	}
	return fmt.Errorf("%w: %s in %s", ErrIllegalMove, m, s.FEN())
}

// Undo removes the last ply moves, clamped to the available history, and
// returns how many were removed. The position is rebuilt by replaying the
// remaining history from the initial position.
func (s *State) Undo(ply int) int {
	if ply <= 0 || len(s.history) == 0 {
		return 0
	}
	if ply > len(s.history) {
		ply = len(s.history)
	}
	keep := s.history[:len(s.history)-ply]
	s.replay(keep)
	return ply
}

// Reset clears the history and restores the initial position.
func (s *State) Reset() {
	s.replay(nil)
}

func (s *State) replay(moves []Move) {
	g, err := newGame(s.initial)
	if err != nil {
		panic(err)
	}
	history := make([]Move, 0, len(moves))
	for _, m := range moves {
		var played bool
		for _, vm := range g.ValidMoves() {
			if m.matches(vm) {
				if err := g.Move(vm); err != nil {
					panic(fmt.Sprintf("game: replay %s: %v", m, err))
				}
				played = true
				break
			}
		}
		if !played {
			panic(fmt.Sprintf("game: replay %s: not legal in %s", m, g.Position()))
		}
		history = append(history, m)
	}
	s.game = g
	s.history = history
}

// FEN returns the current position in Forsyth-Edwards Notation.
func (s *State) FEN() string {
	return s.game.Position().String()
}

// InitialFEN returns the position the history is replayed from.
func (s *State) InitialFEN() string {
	return s.initial
}

func (s *State) Position() *chess.Position {
	return s.game.Position()
}

func (s *State) Turn() chess.Color {
	return s.game.Position().Turn()
}

// History returns a copy of the applied moves, oldest first.
func (s *State) History() []Move {
	out := make([]Move, len(s.history))
	copy(out, s.history)
	return out
}

func (s *State) Len() int {
	return len(s.history)
}

// LastMove returns the most recent move, or false on an empty history.
func (s *State) LastMove() (Move, bool) {
	if len(s.history) == 0 {
		return Move{}, false
	}
	return s.history[len(s.history)-1], true
}

// ValidMoves returns the legal moves in the current position.
func (s *State) ValidMoves() []Move {
	valid := s.game.ValidMoves()
	out := make([]Move, 0, len(valid))
	for _, vm := range valid {
		out = append(out, fromChess(vm))
	}
	return out
}

// IsLegal reports whether m can be applied to the current position.
func (s *State) IsLegal(m Move) bool {
	for _, vm := range s.game.ValidMoves() {
		if m.matches(vm) {
			return true
		}
	}
	return false
}

func (s *State) Outcome() chess.Outcome {
	return s.game.Outcome()
}

func (s *State) Method() chess.Method {
	return s.game.Method()
}

// IsOver reports whether the game reached a terminal position: checkmate,
// stalemate, an automatic draw, or no legal moves.
func (s *State) IsOver() bool {
	return s.game.Outcome() != chess.NoOutcome || len(s.game.ValidMoves()) == 0
}

// Notation returns the history in standard algebraic notation.
func (s *State) Notation() []string {
	positions := s.game.Positions()
	moves := s.game.Moves()
	out := make([]string, 0, len(moves))
	for i, m := range moves {
		out = append(out, chess.AlgebraicNotation{}.Encode(positions[i], m))
	}
	return out
}
