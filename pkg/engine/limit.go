package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/qnkhuat/uciboard/pkg/game"
)

// Limit bounds a search by depth or by time. Depth wins when both are set.
type Limit struct {
	Depth    int
	MoveTime time.Duration
}

func DepthLimit(depth int) Limit {
	return Limit{Depth: depth}
}

func TimeLimit(d time.Duration) Limit {
	return Limit{MoveTime: d}
}

// Validate reports ErrInvalidRequest unless exactly one usable bound is
// selected.
func (l Limit) Validate() error {
	switch {
	case l.Depth < 0:
		return fmt.Errorf("%w: negative depth %d", ErrInvalidRequest, l.Depth)
	case l.MoveTime < 0:
		return fmt.Errorf("%w: negative movetime %s", ErrInvalidRequest, l.MoveTime)
	case l.Depth == 0 && l.MoveTime < time.Millisecond:
		return fmt.Errorf("%w: neither depth nor movetime set", ErrInvalidRequest)
	}
	return nil
}

func (l Limit) String() string {
	if l.Depth > 0 {
		return fmt.Sprintf("depth %d", l.Depth)
	}
	return fmt.Sprintf("movetime %d", l.MoveTime.Milliseconds())
}

func (l Limit) command() string {
	return "go " + l.String()
}

// Position describes what the engine should search: a starting FEN (empty
// for the standard start) and the moves played from it.
type Position struct {
	FEN   string
	Moves []game.Move
}

func (p Position) command() string {
	var sb strings.Builder
	if p.FEN == "" || p.FEN == game.StartFEN {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position fen ")
		sb.WriteString(p.FEN)
	}
	if len(p.Moves) > 0 {
		sb.WriteString(" moves")
		for _, m := range p.Moves {
			sb.WriteByte(' ')
			sb.WriteString(m.String())
		}
	}
	return sb.String()
}
