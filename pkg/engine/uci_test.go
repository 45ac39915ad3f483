package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/notnil/chess"
	"github.com/qnkhuat/uciboard/pkg/game"
	"github.com/rs/zerolog"
)

// pipeChannel replays a fixed engine output and records what was sent.
type pipeChannel struct {
	mu      sync.Mutex
	sent    []string
	out     *bufio.Scanner
	stopped bool
}

func (c *pipeChannel) WriteLine(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrChannelClosed
	}
	c.sent = append(c.sent, text)
	return nil
}

func (c *pipeChannel) ReadLine() (string, error) {
	if !c.out.Scan() {
		return "", io.EOF
	}
	return c.out.Text(), nil
}

func (c *pipeChannel) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}

func (c *pipeChannel) Sent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.sent, "\n")
}

func newTestEngine(outputLines []string) (*Engine, *pipeChannel) {
	pr, pw := io.Pipe()
	go func() {
		for _, line := range outputLines {
			_, _ = fmt.Fprintln(pw, line)
		}
		_ = pw.Close()
	}()
	ch := &pipeChannel{out: bufio.NewScanner(pr)}
	return New(ch, zerolog.Nop()), ch
}

func TestSearchUsesMovetimeAndParsesBestMove(t *testing.T) {
	eng, ch := newTestEngine([]string{"bestmove e2e4 ponder e7e5"})

	res, err := eng.Search(TimeLimit(200 * time.Millisecond))
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if res.BestMove == nil || res.BestMove.String() != "e2e4" {
		t.Fatalf("Search best move = %v", res.BestMove)
	}
	if res.Ponder == nil || res.Ponder.String() != "e7e5" {
		t.Errorf("Search ponder = %v", res.Ponder)
	}
	if !strings.Contains(ch.Sent(), "go movetime 200") {
		t.Fatalf("Search did not use movetime: %q", ch.Sent())
	}
	if eng.State() != StateReady {
		t.Errorf("state after search = %s", eng.State())
	}

	st := game.NewState()
	if err := st.Apply(*res.BestMove); err != nil {
		t.Fatalf("apply best move: %v", err)
	}
	if st.Turn() != chess.Black {
		t.Errorf("side to move after e2e4 = %s", st.Turn())
	}
}

func TestAnalyzeReturnsLastInfo(t *testing.T) {
	eng, ch := newTestEngine([]string{
		"info depth 9 score cp 20 pv d2d4",
		"info depth 10 score cp 35 pv e2e4 e7e5",
		"bestmove e2e4",
	})

	a, err := eng.Analyze(DepthLimit(10))
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if a.Score != (Score{Kind: ScoreCP, Value: 35}) || a.Depth != 10 {
		t.Fatalf("Analyze = %+v", a)
	}
	if len(a.PV) != 2 || a.PV[0].String() != "e2e4" || a.PV[1].String() != "e7e5" {
		t.Fatalf("Analyze pv = %v", a.PV)
	}
	if !strings.Contains(ch.Sent(), "go depth 10") {
		t.Fatalf("Analyze did not use depth: %q", ch.Sent())
	}
}

func TestSearchNoMove(t *testing.T) {
	for _, tok := range []string{"(none)", "0000"} {
		eng, _ := newTestEngine([]string{"info depth 1 score mate 0", "bestmove " + tok})
		res, err := eng.Search(DepthLimit(1))
		if err != nil {
			t.Fatalf("Search(%s) error: %v", tok, err)
		}
		if res.BestMove != nil {
			t.Errorf("Search(%s) best move = %v, want none", tok, res.BestMove)
		}
	}
}

func TestSearchEndOfStream(t *testing.T) {
	eng, _ := newTestEngine([]string{"info depth 3 score cp 1 pv e2e4"})

	_, err := eng.Search(DepthLimit(5))
	if !errors.Is(err, ErrEngineProtocol) {
		t.Fatalf("expected ErrEngineProtocol, got %v", err)
	}
	if eng.State() != StateClosed {
		t.Errorf("state = %s, want closed", eng.State())
	}
	if _, err := eng.Search(DepthLimit(5)); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("search on closed session: %v", err)
	}
}

func TestSearchRejectsInvalidLimit(t *testing.T) {
	tests := []Limit{
		{},
		{Depth: -1},
		{MoveTime: -time.Second},
		{MoveTime: time.Microsecond},
	}
	for _, l := range tests {
		eng, ch := newTestEngine(nil)
		if _, err := eng.Search(l); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("Search(%+v) = %v, want ErrInvalidRequest", l, err)
		}
		if ch.Sent() != "" {
			t.Errorf("Search(%+v) sent %q", l, ch.Sent())
		}
	}
}

func TestSearchDepthTakesPrecedence(t *testing.T) {
	eng, ch := newTestEngine([]string{"bestmove e2e4"})
	if _, err := eng.Search(Limit{Depth: 12, MoveTime: 100 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ch.Sent(), "go depth 12") || strings.Contains(ch.Sent(), "movetime") {
		t.Errorf("sent %q", ch.Sent())
	}
}

func TestSearchWhileSearchingIsBusy(t *testing.T) {
	eng, _ := newTestEngine(nil)
	eng.setState(StateSearching)
	if _, err := eng.Search(DepthLimit(1)); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if err := eng.SetPosition(Position{}); !errors.Is(err, ErrBusy) {
		t.Errorf("SetPosition while searching = %v", err)
	}
}

func TestSearchSkipsMalformedInfo(t *testing.T) {
	eng, _ := newTestEngine([]string{
		"info depth 5 score",
		"info depth 6 score cp 12 pv d2d4",
		"info depth 7 score cp x pv e2e4",
		"info depth 8 currmove e2e4 currmovenumber 1",
		"info string NNUE evaluation enabled",
		"some vendor chatter",
		"bestmove d2d4",
	})
	res, err := eng.Search(DepthLimit(8))
	if err != nil {
		t.Fatal(err)
	}
	a := res.Analysis
	if a.Score.Value != 12 || a.Depth != 6 || len(a.PV) != 1 {
		t.Errorf("analysis = %+v", a)
	}
}

func TestHandshake(t *testing.T) {
	eng, ch := newTestEngine([]string{
		"Stockfish 16 by the Stockfish developers",
		"id name Stockfish 16",
		"id author the Stockfish developers",
		"option name Hash type spin default 16 min 1 max 33554432",
		"uciok",
		"readyok",
	})
	if err := eng.Handshake(); err != nil {
		t.Fatalf("Handshake error: %v", err)
	}
	if eng.Name() != "Stockfish 16" {
		t.Errorf("name = %q", eng.Name())
	}
	if eng.State() != StateReady {
		t.Errorf("state = %s", eng.State())
	}
	if ch.Sent() != "uci\nisready" {
		t.Errorf("sent %q", ch.Sent())
	}
}

func TestHandshakeEndOfStream(t *testing.T) {
	eng, _ := newTestEngine([]string{"id name Broken"})
	if err := eng.Handshake(); !errors.Is(err, ErrEngineProtocol) {
		t.Fatalf("expected ErrEngineProtocol, got %v", err)
	}
}

func TestNewGameSendsCommands(t *testing.T) {
	eng, ch := newTestEngine([]string{"readyok"})
	if err := eng.NewGame(); err != nil {
		t.Fatalf("NewGame error: %v", err)
	}
	if ch.Sent() != "ucinewgame\nisready" {
		t.Errorf("sent %q", ch.Sent())
	}
}

func TestSetPositionCommands(t *testing.T) {
	fen := "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"
	tests := []struct {
		pos  Position
		want string
	}{
		{Position{}, "position startpos"},
		{Position{FEN: game.StartFEN}, "position startpos"},
		{Position{Moves: []game.Move{game.MustParseMove("e2e4"), game.MustParseMove("e7e5")}}, "position startpos moves e2e4 e7e5"},
		{Position{FEN: fen}, "position fen " + fen},
		{Position{FEN: fen, Moves: []game.Move{game.MustParseMove("e2e4")}}, "position fen " + fen + " moves e2e4"},
	}
	for _, tt := range tests {
		eng, ch := newTestEngine(nil)
		if err := eng.SetPosition(tt.pos); err != nil {
			t.Fatal(err)
		}
		if ch.Sent() != tt.want {
			t.Errorf("SetPosition(%+v) sent %q, want %q", tt.pos, ch.Sent(), tt.want)
		}
	}
}

func TestCloseStopsChannel(t *testing.T) {
	eng, ch := newTestEngine(nil)
	eng.Close()
	eng.Close()
	if !ch.stopped || eng.State() != StateClosed {
		t.Fatalf("close did not stop channel")
	}
	if err := eng.SetPosition(Position{}); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("SetPosition after close = %v", err)
	}
}
