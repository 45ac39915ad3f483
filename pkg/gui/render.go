package gui

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/notnil/chess"
	"github.com/qnkhuat/uciboard/pkg/engine"
	"github.com/qnkhuat/uciboard/pkg/game"
)

const (
	numrows      = 8
	numcols      = 8
	movesShown   = 10
	meterHeight  = 8
	mateProbEdge = 1.0
)

// marks are the squares drawn in a highlight color.
type marks struct {
	last      *game.Move
	hint      *game.Move
	selecting bool
	selected  chess.Square
}

// posToSquare maps a table cell to a square. Column 0 holds the ranks.
func posToSquare(row, col int, flip bool) chess.Square {
	if !flip { // decending order if is white
		row = numrows - row - 1
	} else {
		col = numcols - col + 1
	}
	col = col - 1
	return chess.Square(row*8 + col)
}

// squareToPos is the inverse of posToSquare.
func squareToPos(sq chess.Square, flip bool) (row, col int) {
	row, col = int(sq.Rank()), int(sq.File())+1
	if !flip {
		row = numrows - row - 1
	} else {
		col = numcols - col + 1
	}
	return row, col
}

func touches(m *game.Move, sq chess.Square) bool {
	return m != nil && (m.From == sq || m.To == sq)
}

// squareBg picks the background of sq. A selection wins over a hint, which
// wins over the last move.
func squareBg(sq chess.Square, mk marks, t Theme) tcell.Color {
	switch {
	case mk.selecting && mk.selected == sq:
		return t.SquareSel
	case touches(mk.hint, sq):
		return t.SquareHint
	case touches(mk.last, sq):
		return t.SquareHigh
	case (int(sq.File())+int(sq.Rank()))%2 == 0:
		return t.SquareDark
	default:
		return t.SquareLight
	}
}

// moveRow is one numbered pair of moves.
type moveRow struct {
	index string
	white string
	black string
}

// moveRows pairs up the notation, keeping the last max rows.
func moveRows(notation []string, max int) []moveRow {
	rows := make([]moveRow, 0, len(notation)/2+1)
	for i, txt := range notation {
		if i%2 == 0 {
			rows = append(rows, moveRow{index: fmt.Sprintf("%v.", i/2+1), white: txt})
			continue
		}
		rows[len(rows)-1].black = txt
	}
	if len(rows) > max {
		rows = rows[len(rows)-max:]
	}
	return rows
}

// WinProb is the expected score for the side the evaluation is for.
func WinProb(s engine.Score) float64 {
	switch s.Kind {
	case engine.ScoreMate:
		if s.Value > 0 {
			return mateProbEdge
		}
		return 1 - mateProbEdge
	case engine.ScoreCP:
		return 1 / (1 + math.Pow(10, -float64(s.Value)/400))
	}
	return 0.5
}

// whiteScore turns a score given for the side to move into white's view.
func whiteScore(s engine.Score, turn chess.Color) engine.Score {
	if turn == chess.Black {
		s.Value = -s.Value
		switch s.Bound {
		case engine.BoundLower:
			s.Bound = engine.BoundUpper
		case engine.BoundUpper:
			s.Bound = engine.BoundLower
		}
	}
	return s
}

// meter draws the win probability as a bar of meterHeight blocks.
func meter(prob float64, t Theme) string {
	filled := int(math.Round(prob * meterHeight))
	color := t.MeterEven
	switch {
	case prob > 0.55:
		color = t.MeterWin
	case prob < 0.45:
		color = t.MeterLose
	}
	bar := ""
	for i := 0; i < meterHeight; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return fmt.Sprintf("[#%06x]%s[-]", color.Hex(), bar)
}

// evalText renders an analysis for the eval panel, from white's view.
func evalText(a *engine.Analysis, turn chess.Color, t Theme) string {
	if a == nil || !a.HasScore() {
		return "no evaluation"
	}
	s := whiteScore(a.Score, turn)
	prob := WinProb(s)
	txt := fmt.Sprintf("%s  white %.0f%%\n%s\ndepth %d", s, prob*100, meter(prob, t), a.Depth)
	if len(a.PV) > 0 {
		txt += "\npv"
		for i, m := range a.PV {
			if i == 6 {
				txt += " ..."
				break
			}
			txt += " " + m.String()
		}
	}
	return txt
}

func outcomeText(o chess.Outcome, m chess.Method) string {
	switch o {
	case chess.WhiteWon:
		return fmt.Sprintf("White wins (%s)", m)
	case chess.BlackWon:
		return fmt.Sprintf("Black wins (%s)", m)
	case chess.Draw:
		return fmt.Sprintf("Draw (%s)", m)
	}
	return ""
}
