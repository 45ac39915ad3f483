package game

import (
	"fmt"

	"github.com/notnil/chess"
)

// Move is a move in UCI long algebraic form: origin, destination and an
// optional promotion piece.
type Move struct {
	From      chess.Square
	To        chess.Square
	Promotion chess.PieceType
}

// String returns the UCI encoding of the move, e.g. "e2e4" or "e7e8q".
func (m Move) String() string {
	return m.From.String() + m.To.String() + m.Promotion.String()
}

func getSquare(f chess.File, r chess.Rank) chess.Square {
	return chess.Square((int(r) * 8) + int(f))
}

func parseSquare(s string) (chess.Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return chess.NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return getSquare(chess.File(s[0]-'a'), chess.Rank(s[1]-'1')), nil
}

func parsePromotion(c byte) (chess.PieceType, error) {
	switch c {
	case 'q', 'Q':
		return chess.Queen, nil
	case 'r', 'R':
		return chess.Rook, nil
	case 'b', 'B':
		return chess.Bishop, nil
	case 'n', 'N':
		return chess.Knight, nil
	default:
		return chess.NoPieceType, fmt.Errorf("invalid promotion piece %q", c)
	}
}

// ParseMove decodes a UCI move string. It checks syntax only; legality is
// decided by State.Apply.
func ParseMove(s string) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("invalid uci move %q", s)
	}
	from, err := parseSquare(s[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("invalid uci move %q: %w", s, err)
	}
	to, err := parseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("invalid uci move %q: %w", s, err)
	}
	if from == to {
		return Move{}, fmt.Errorf("invalid uci move %q: null move", s)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		if m.Promotion, err = parsePromotion(s[4]); err != nil {
			return Move{}, fmt.Errorf("invalid uci move %q: %w", s, err)
		}
	}
	return m, nil
}

// MustParseMove is like ParseMove but panics on malformed input.
func MustParseMove(s string) Move {
	m, err := ParseMove(s)
	if err != nil {
		panic(err)
	}
	return m
}

// AutoPromote promotes a pawn reaching the last rank to a queen when no
// promotion piece was given.
func AutoPromote(pos *chess.Position, m Move) Move {
	if m.Promotion != chess.NoPieceType {
		return m
	}
	if pos.Board().Piece(m.From).Type() != chess.Pawn {
		return m
	}
	if r := m.To.Rank(); r == chess.Rank1 || r == chess.Rank8 {
		m.Promotion = chess.Queen
	}
	return m
}

func fromChess(m *chess.Move) Move {
	return Move{From: m.S1(), To: m.S2(), Promotion: m.Promo()}
}

func (m Move) matches(cm *chess.Move) bool {
	return cm.S1() == m.From && cm.S2() == m.To && cm.Promo() == m.Promotion
}
