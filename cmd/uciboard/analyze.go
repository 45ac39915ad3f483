package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/notnil/chess"
	"github.com/qnkhuat/uciboard/pkg/config"
	"github.com/qnkhuat/uciboard/pkg/engine"
	"github.com/qnkhuat/uciboard/pkg/game"
)

var (
	labelColor = color.New(color.Bold)
	goodColor  = color.New(color.FgGreen, color.Bold)
	badColor   = color.New(color.FgRed, color.Bold)
	evenColor  = color.New(color.FgCyan)
)

// runAnalyze evaluates one position and prints the result.
func runAnalyze(cfg *config.Config) int {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
	logger, err := config.InitLog(cfg.Logs, cfg.Logs.Path, "ANALYZE: ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	st := game.NewState()
	if cfg.Board.FEN != "" {
		if st, err = game.NewStateFromFEN(cfg.Board.FEN); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}

	eng, err := engine.Launch(cfg.Engine.Path, engine.Options{PTY: cfg.Engine.PTY, Logger: logger})
	if err != nil {
		badColor.Fprintln(os.Stderr, err)
		return 1
	}
	defer eng.Close()

	a, err := analyzePosition(eng, st, cfg.Engine.AnalysisLimit())
	if err != nil {
		badColor.Fprintln(os.Stderr, err)
		return 1
	}
	printAnalysis(st, eng.Name(), a)
	return 0
}

func analyzePosition(eng *engine.Engine, st *game.State, l engine.Limit) (engine.Analysis, error) {
	if err := eng.NewGame(); err != nil {
		return engine.Analysis{}, err
	}
	if err := eng.SetPosition(engine.Position{FEN: st.FEN()}); err != nil {
		return engine.Analysis{}, err
	}
	return eng.Analyze(l)
}

func printAnalysis(st *game.State, name string, a engine.Analysis) {
	labelColor.Print("engine   ")
	fmt.Println(name)
	labelColor.Print("position ")
	fmt.Println(st.FEN())
	labelColor.Print("score    ")
	scoreColor(a.Score, st.Turn()).Printf("%s", a.Score)
	fmt.Printf(" (%s to move)\n", st.Turn().Name())
	labelColor.Print("depth    ")
	fmt.Println(a.Depth)
	if len(a.PV) > 0 {
		labelColor.Print("pv       ")
		fmt.Println(pvNotation(st, a.PV))
	}
}

// scoreColor is green when white stands better.
func scoreColor(s engine.Score, turn chess.Color) *color.Color {
	v := s.Value
	if turn == chess.Black {
		v = -v
	}
	switch {
	case s.Kind == engine.ScoreNone:
		return evenColor
	case s.Kind == engine.ScoreCP && v > -25 && v < 25:
		return evenColor
	case v > 0:
		return goodColor
	default:
		return badColor
	}
}

// pvNotation plays the line on a copy of the position and writes it in
// algebraic notation, falling back to UCI at the first illegal move.
func pvNotation(st *game.State, pv []game.Move) string {
	cp, err := game.NewStateFromFEN(st.FEN())
	if err != nil {
		return ""
	}
	out := make([]string, 0, len(pv))
	for i, m := range pv {
		if err := cp.Apply(m); err != nil {
			for _, rest := range pv[i:] {
				out = append(out, rest.String())
			}
			break
		}
		n := cp.Notation()
		out = append(out, n[len(n)-1])
	}
	return strings.Join(out, " ")
}
