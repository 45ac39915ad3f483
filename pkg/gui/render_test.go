package gui

import (
	"math"
	"strings"
	"testing"

	"github.com/notnil/chess"
	"github.com/qnkhuat/uciboard/pkg/engine"
	"github.com/qnkhuat/uciboard/pkg/game"
)

func TestPosToSquare(t *testing.T) {
	tests := []struct {
		row, col int
		flip     bool
		want     chess.Square
	}{
		{0, 1, false, chess.A8},
		{7, 1, false, chess.A1},
		{7, 8, false, chess.H1},
		{0, 1, true, chess.H1},
		{7, 8, true, chess.A8},
		{3, 5, false, chess.E5},
	}
	for _, tt := range tests {
		if got := posToSquare(tt.row, tt.col, tt.flip); got != tt.want {
			t.Errorf("posToSquare(%d, %d, %v) = %s, want %s", tt.row, tt.col, tt.flip, got, tt.want)
		}
		row, col := squareToPos(tt.want, tt.flip)
		if row != tt.row || col != tt.col {
			t.Errorf("squareToPos(%s, %v) = %d, %d", tt.want, tt.flip, row, col)
		}
	}
}

func TestSquareBg(t *testing.T) {
	last := game.MustParseMove("e2e4")
	hint := game.MustParseMove("e7e5")
	mk := marks{last: &last, hint: &hint, selecting: true, selected: chess.E4}
	th := ThemeBasic

	if got := squareBg(chess.E4, mk, th); got != th.SquareSel {
		t.Errorf("selected square = %v", got)
	}
	if got := squareBg(chess.E2, mk, th); got != th.SquareHigh {
		t.Errorf("last move square = %v", got)
	}
	if got := squareBg(chess.E5, mk, th); got != th.SquareHint {
		t.Errorf("hint square = %v", got)
	}
	if got := squareBg(chess.A1, marks{}, th); got != th.SquareDark {
		t.Errorf("a1 = %v", got)
	}
	if got := squareBg(chess.H1, marks{}, th); got != th.SquareLight {
		t.Errorf("h1 = %v", got)
	}
}

func TestMoveRows(t *testing.T) {
	rows := moveRows([]string{"e4", "e5", "Nf3"}, 5)
	if len(rows) != 2 || rows[0] != (moveRow{"1.", "e4", "e5"}) || rows[1] != (moveRow{"2.", "Nf3", ""}) {
		t.Errorf("rows = %v", rows)
	}

	var long []string
	for i := 0; i < 30; i++ {
		long = append(long, "a")
	}
	rows = moveRows(long, 5)
	if len(rows) != 5 || rows[0].index != "11." {
		t.Errorf("windowed rows = %v", rows)
	}
	if rows := moveRows(nil, 5); len(rows) != 0 {
		t.Errorf("empty rows = %v", rows)
	}
}

func TestWinProb(t *testing.T) {
	if p := WinProb(engine.Score{Kind: engine.ScoreCP}); p != 0.5 {
		t.Errorf("even = %v", p)
	}
	if p := WinProb(engine.Score{Kind: engine.ScoreCP, Value: 400}); math.Abs(p-10.0/11.0) > 1e-9 {
		t.Errorf("+400cp = %v", p)
	}
	if p := WinProb(engine.Score{Kind: engine.ScoreMate, Value: -2}); p != 0 {
		t.Errorf("mated = %v", p)
	}
	if p := WinProb(engine.Score{}); p != 0.5 {
		t.Errorf("no score = %v", p)
	}
}

func TestEvalTextFromWhitesView(t *testing.T) {
	a := &engine.Analysis{
		Score: engine.Score{Kind: engine.ScoreCP, Value: 50, Bound: engine.BoundLower},
		PV:    []game.Move{game.MustParseMove("e7e5")},
		Depth: 12,
	}
	txt := evalText(a, chess.Black, ThemeBasic)
	if !strings.HasPrefix(txt, "-50cp") || !strings.Contains(txt, "depth 12") || !strings.Contains(txt, "pv e7e5") {
		t.Errorf("eval text = %q", txt)
	}
	if s := whiteScore(a.Score, chess.Black); s.Bound != engine.BoundUpper {
		t.Errorf("bound = %v", s.Bound)
	}
	if txt := evalText(nil, chess.White, ThemeBasic); txt != "no evaluation" {
		t.Errorf("empty eval = %q", txt)
	}
}

func TestOutcomeText(t *testing.T) {
	if got := outcomeText(chess.BlackWon, chess.Checkmate); got != "Black wins (Checkmate)" {
		t.Errorf("outcome = %q", got)
	}
	if got := outcomeText(chess.NoOutcome, chess.NoMethod); got != "" {
		t.Errorf("no outcome = %q", got)
	}
}

func TestThemeByName(t *testing.T) {
	if th, err := ThemeByName(""); err != nil || th.Name != "basic" {
		t.Errorf("default theme = %v, %v", th.Name, err)
	}
	for _, n := range ThemeNames() {
		if _, err := ThemeByName(n); err != nil {
			t.Error(err)
		}
	}
	if _, err := ThemeByName("neon"); err == nil {
		t.Error("unknown theme found")
	}
}
