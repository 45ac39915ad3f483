package game

import (
	"errors"
	"testing"

	"github.com/notnil/chess"
)

var italian = []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "g8f6", "e1g1", "f6e4", "d2d3"}

func playAll(t *testing.T, st *State, moves []string) {
	t.Helper()
	for _, s := range moves {
		if err := st.Apply(MustParseMove(s)); err != nil {
			t.Fatalf("apply %s: %v", s, err)
		}
	}
}

func TestUndoReplayRoundTrip(t *testing.T) {
	for n := 0; n <= len(italian); n++ {
		st := NewState()
		playAll(t, st, italian)
		want := st.FEN()

		if got := st.Undo(n); got != n {
			t.Errorf("undo(%d) removed %d moves", n, got)
		}
		if st.Len() != len(italian)-n {
			t.Errorf("undo(%d) left %d moves, want %d", n, st.Len(), len(italian)-n)
		}
		playAll(t, st, italian[len(italian)-n:])
		if st.FEN() != want {
			t.Errorf("undo(%d)+replay gave %s, want %s", n, st.FEN(), want)
		}
	}
}

func TestUndoClampsAndIgnoresNonPositive(t *testing.T) {
	st := NewState()
	playAll(t, st, italian[:3])

	if got := st.Undo(0); got != 0 || st.Len() != 3 {
		t.Errorf("undo(0) removed %d, len %d", got, st.Len())
	}
	if got := st.Undo(-2); got != 0 || st.Len() != 3 {
		t.Errorf("undo(-2) removed %d, len %d", got, st.Len())
	}
	if got := st.Undo(10); got != 3 {
		t.Errorf("undo(10) removed %d, want 3", got)
	}
	if st.FEN() != StartFEN {
		t.Errorf("fully undone position = %s", st.FEN())
	}
}

func TestResetRestoresStart(t *testing.T) {
	st := NewState()
	playAll(t, st, italian)
	st.Reset()
	if st.FEN() != StartFEN || st.Len() != 0 {
		t.Fatalf("reset gave %s with %d moves", st.FEN(), st.Len())
	}
	if st.Turn() != chess.White {
		t.Errorf("turn after reset = %s", st.Turn())
	}

	// reset from a custom start goes back to that start
	fen := "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"
	st, err := NewStateFromFEN(fen)
	if err != nil {
		t.Fatal(err)
	}
	playAll(t, st, []string{"e2e4", "e8d7"})
	st.Reset()
	if st.FEN() != fen {
		t.Errorf("reset gave %s, want %s", st.FEN(), fen)
	}
}

func TestApplyRejectsIllegalWithoutMutation(t *testing.T) {
	st := NewState()
	playAll(t, st, italian[:2])
	before := st.FEN()

	err := st.Apply(MustParseMove("e4e5"))
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	if st.FEN() != before || st.Len() != 2 {
		t.Errorf("illegal move mutated state: %s (%d moves)", st.FEN(), st.Len())
	}
}

func TestApplyTogglesSideToMove(t *testing.T) {
	st := NewState()
	if err := st.Apply(MustParseMove("e2e4")); err != nil {
		t.Fatal(err)
	}
	if st.Turn() != chess.Black {
		t.Errorf("turn = %s, want black", st.Turn())
	}
	if last, ok := st.LastMove(); !ok || last.String() != "e2e4" {
		t.Errorf("last move = %v %v", last, ok)
	}
}

func TestTerminalPositions(t *testing.T) {
	st := NewState()
	playAll(t, st, []string{"f2f3", "e7e5", "g2g4", "d8h4"})
	if !st.IsOver() {
		t.Fatal("fool's mate not detected")
	}
	if st.Outcome() != chess.BlackWon || st.Method() != chess.Checkmate {
		t.Errorf("outcome = %s (%s)", st.Outcome(), st.Method())
	}

	stale, err := NewStateFromFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if !stale.IsOver() || len(stale.ValidMoves()) != 0 {
		t.Errorf("stalemate not detected")
	}
}

func TestAutoPromote(t *testing.T) {
	st, err := NewStateFromFEN("8/4P3/8/8/8/8/k7/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	m := AutoPromote(st.Position(), MustParseMove("e7e8"))
	if m.Promotion != chess.Queen {
		t.Fatalf("promotion = %v", m.Promotion)
	}
	if err := st.Apply(m); err != nil {
		t.Fatal(err)
	}

	// non-pawn moves are untouched
	m = AutoPromote(NewState().Position(), MustParseMove("g1f3"))
	if m.Promotion != chess.NoPieceType {
		t.Errorf("knight move promoted to %v", m.Promotion)
	}
}

func TestNotation(t *testing.T) {
	st := NewState()
	playAll(t, st, italian[:7])
	got := st.Notation()
	want := []string{"e4", "e5", "Nf3", "Nc6", "Bc4", "Nf6", "O-O"}
	if len(got) != len(want) {
		t.Fatalf("notation = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("move %d = %s, want %s", i, got[i], want[i])
		}
	}
}
