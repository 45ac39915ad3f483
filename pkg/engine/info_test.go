package engine

import (
	"errors"
	"testing"
	"time"
)

func TestParseInfo(t *testing.T) {
	tests := []struct {
		line   string
		ok     bool
		score  Score
		depth  int
		pv     []string
		nodes  int64
		text   string
		timeMS int
	}{
		{
			line:  "info depth 10 score cp 35 pv e2e4 e7e5",
			ok:    true,
			score: Score{Kind: ScoreCP, Value: 35},
			depth: 10,
			pv:    []string{"e2e4", "e7e5"},
		},
		{
			line:   "info depth 20 seldepth 28 multipv 1 score mate -3 nodes 123456 nps 900000 time 137 pv h7h8q g8h8",
			ok:     true,
			score:  Score{Kind: ScoreMate, Value: -3},
			depth:  20,
			pv:     []string{"h7h8q", "g8h8"},
			nodes:  123456,
			timeMS: 137,
		},
		{
			line:  "info depth 14 score cp -20 lowerbound nodes 10 pv d7d5",
			ok:    true,
			score: Score{Kind: ScoreCP, Value: -20, Bound: BoundLower},
			depth: 14,
			pv:    []string{"d7d5"},
			nodes: 10,
		},
		{
			line:  "info depth 12 score cp 5 wdl 300 500 200 hashfull 12 pv g1f3 bmc 0.5",
			ok:    true,
			score: Score{Kind: ScoreCP, Value: 5},
			depth: 12,
			pv:    []string{"g1f3"},
		},
		{
			line:  "info depth 3 score cp 7",
			ok:    true,
			score: Score{Kind: ScoreCP, Value: 7},
			depth: 3,
		},
		{line: "info string NNUE evaluation using nn.nnue", ok: true, text: "NNUE evaluation using nn.nnue"},
		{line: "info depth 3 score", ok: false},
		{line: "info depth 3 score cp", ok: false},
		{line: "info depth 3 score wdl 10", ok: false},
		{line: "bestmove e2e4", ok: false},
		{line: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			info, ok := ParseInfo(tt.line)
			if ok != tt.ok {
				t.Fatalf("ParseInfo ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if info.Score != tt.score {
				t.Errorf("score = %+v, want %+v", info.Score, tt.score)
			}
			if info.Depth != tt.depth {
				t.Errorf("depth = %d, want %d", info.Depth, tt.depth)
			}
			if info.Nodes != tt.nodes {
				t.Errorf("nodes = %d, want %d", info.Nodes, tt.nodes)
			}
			if info.Text != tt.text {
				t.Errorf("text = %q, want %q", info.Text, tt.text)
			}
			if info.Time != time.Duration(tt.timeMS)*time.Millisecond {
				t.Errorf("time = %s", info.Time)
			}
			if len(info.PV) != len(tt.pv) {
				t.Fatalf("pv = %v, want %v", info.PV, tt.pv)
			}
			for i := range tt.pv {
				if info.PV[i].String() != tt.pv[i] {
					t.Errorf("pv[%d] = %s, want %s", i, info.PV[i], tt.pv[i])
				}
			}
		})
	}
}

func TestParseBestMove(t *testing.T) {
	res, err := ParseBestMove("bestmove e7e8q ponder d8e8")
	if err != nil {
		t.Fatal(err)
	}
	if res.BestMove.String() != "e7e8q" || res.Ponder.String() != "d8e8" {
		t.Errorf("parsed %v %v", res.BestMove, res.Ponder)
	}

	res, err = ParseBestMove("bestmove (none)")
	if err != nil || res.BestMove != nil {
		t.Errorf("(none) parsed as %v, %v", res.BestMove, err)
	}

	for _, line := range []string{"bestmove", "bestmove zz99", "info depth 1"} {
		if _, err := ParseBestMove(line); !errors.Is(err, ErrEngineProtocol) {
			t.Errorf("ParseBestMove(%q) = %v, want ErrEngineProtocol", line, err)
		}
	}
}

func TestScoreString(t *testing.T) {
	tests := map[Score]string{
		{Kind: ScoreCP, Value: 35}:  "+35cp",
		{Kind: ScoreCP, Value: -12}: "-12cp",
		{Kind: ScoreMate, Value: 3}: "mate 3",
		{}:                          "-",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%+v.String() = %q, want %q", s, s.String(), want)
		}
	}
}
