package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qnkhuat/uciboard/pkg/game"
)

type ScoreKind int

const (
	ScoreNone ScoreKind = iota
	ScoreCP
	ScoreMate
)

func (k ScoreKind) String() string {
	switch k {
	case ScoreCP:
		return "cp"
	case ScoreMate:
		return "mate"
	default:
		return "none"
	}
}

// Bound tells whether a score is exact or only a bound from an aspiration
// window.
type Bound int

const (
	BoundExact Bound = iota
	BoundLower
	BoundUpper
)

// Score is an evaluation from the side to move's point of view: centipawns,
// or moves to mate (negative when the side to move gets mated).
type Score struct {
	Kind  ScoreKind
	Value int
	Bound Bound
}

func (s Score) String() string {
	switch s.Kind {
	case ScoreCP:
		return fmt.Sprintf("%+dcp", s.Value)
	case ScoreMate:
		return fmt.Sprintf("mate %d", s.Value)
	default:
		return "-"
	}
}

// Analysis is the engine's latest opinion of a position.
type Analysis struct {
	Score    Score
	PV       []game.Move
	Depth    int
	SelDepth int
	Nodes    int64
	Time     time.Duration
}

// HasScore reports whether the engine reported an evaluation.
func (a Analysis) HasScore() bool {
	return a.Score.Kind != ScoreNone
}

// Info is one parsed "info" line.
type Info struct {
	Analysis
	MultiPV int
	NPS     int64
	// Text holds the payload of "info string".
	Text string
}

// SearchResult is the outcome of a search: the committed best move, nil
// when the engine has none, plus the last analysis seen on the way.
type SearchResult struct {
	BestMove *game.Move
	Ponder   *game.Move
	Analysis Analysis
}

func isMoveToken(tok string) bool {
	_, err := game.ParseMove(tok)
	return err == nil
}

func atoi(fields []string, i int) (int, bool) {
	if i >= len(fields) {
		return 0, false
	}
	n, err := strconv.Atoi(fields[i])
	return n, err == nil
}

// ParseInfo tokenizes an info line. ok is false for lines that are not info
// lines and for info lines whose score is malformed; callers skip those.
func ParseInfo(line string) (info Info, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "info" {
		return Info{}, false
	}
	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			info.Depth, _ = atoi(fields, i+1)
			i++
		case "seldepth":
			info.SelDepth, _ = atoi(fields, i+1)
			i++
		case "multipv":
			info.MultiPV, _ = atoi(fields, i+1)
			i++
		case "nodes":
			n, _ := atoi(fields, i+1)
			info.Nodes = int64(n)
			i++
		case "nps":
			n, _ := atoi(fields, i+1)
			info.NPS = int64(n)
			i++
		case "time":
			n, _ := atoi(fields, i+1)
			info.Time = time.Duration(n) * time.Millisecond
			i++
		case "hashfull", "tbhits", "cpuload", "currmovenumber", "currmove", "sbhits":
			i++
		case "wdl":
			i += 3
		case "score":
			if i+2 >= len(fields) {
				return Info{}, false
			}
			v, valid := atoi(fields, i+2)
			if !valid {
				return Info{}, false
			}
			switch fields[i+1] {
			case "cp":
				info.Score = Score{Kind: ScoreCP, Value: v}
			case "mate":
				info.Score = Score{Kind: ScoreMate, Value: v}
			default:
				return Info{}, false
			}
			i += 2
			if i+1 < len(fields) {
				switch fields[i+1] {
				case "lowerbound":
					info.Score.Bound = BoundLower
					i++
				case "upperbound":
					info.Score.Bound = BoundUpper
					i++
				}
			}
		case "pv":
			info.PV = info.PV[:0]
			for i+1 < len(fields) && isMoveToken(fields[i+1]) {
				info.PV = append(info.PV, game.MustParseMove(fields[i+1]))
				i++
			}
		case "refutation", "currline":
			for i+1 < len(fields) && isMoveToken(fields[i+1]) {
				i++
			}
		case "string":
			info.Text = strings.Join(fields[i+1:], " ")
			return info, true
		}
	}
	return info, true
}

// ParseBestMove parses a "bestmove" line. "(none)" and "0000" yield a nil
// move.
func ParseBestMove(line string) (SearchResult, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "bestmove" {
		return SearchResult{}, fmt.Errorf("%w: not a bestmove line: %q", ErrEngineProtocol, line)
	}
	if len(fields) < 2 {
		return SearchResult{}, fmt.Errorf("%w: bestmove without a move", ErrEngineProtocol)
	}
	var res SearchResult
	switch tok := fields[1]; tok {
	case "(none)", "0000", "none":
	default:
		m, err := game.ParseMove(tok)
		if err != nil {
			return SearchResult{}, fmt.Errorf("%w: %v", ErrEngineProtocol, err)
		}
		res.BestMove = &m
	}
	if len(fields) >= 4 && fields[2] == "ponder" {
		if m, err := game.ParseMove(fields[3]); err == nil {
			res.Ponder = &m
		}
	}
	return res, nil
}
