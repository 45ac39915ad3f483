// Package gui is a terminal chessboard driving a session.Controller.
package gui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/notnil/chess"
	"github.com/qnkhuat/uciboard/pkg/engine"
	"github.com/qnkhuat/uciboard/pkg/game"
	"github.com/qnkhuat/uciboard/pkg/session"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"
)

type Action string

const (
	ActionNewGame    Action = "New Game"
	ActionUndo       Action = "Undo"
	ActionAnalyze    Action = "Analyze"
	ActionEngineMove Action = "Engine Move"
	ActionRun        Action = "Run"
	ActionStop       Action = "Stop"
	ActionExit       Action = "Exit"
	ActionOK         Action = "OK"
)

// Controller is what the board needs from a session.
type Controller interface {
	OnHumanMove(game.Move) error
	RequestEngineMove() error
	RunEngineVsEngine() error
	Analyze() error
	Cancel()
	SetMode(session.Mode) error
	NewGame() error
	Undo(ply int) error
	SetLimits(move, analysis engine.Limit) error
	Snapshot() session.Snapshot
}

type Options struct {
	Theme Theme
	// Flip draws the board from black's side.
	Flip   bool
	Logger zerolog.Logger
}

// Board is a tview application implementing session.Listener. Listener
// calls are handed to the tview goroutine with QueueUpdateDraw; all fields
// below ctrl are only touched there.
type Board struct {
	App      *tview.Application
	pages    *tview.Pages
	table    *tview.Table
	eval     *tview.TextView
	moves    *tview.TextView
	status   *tview.TextView
	runBtn   *tview.Button
	modes    *tview.DropDown
	// moveTime and depth hold the search limits: engine moves think for
	// moveTime, analysis searches to depth or, at zero, for moveTime.
	moveTime *tview.InputField
	depth    *tview.InputField
	theme    Theme
	log      zerolog.Logger
	ctrl     Controller

	flip     bool
	update   session.BoardUpdate
	mk       marks
	analysis *engine.Analysis
	evalTurn chess.Color
	settled  bool
}

func NewBoard(opts Options) *Board {
	if opts.Theme.Name == "" {
		opts.Theme = ThemeBasic
	}
	b := &Board{
		App:      tview.NewApplication(),
		pages:    tview.NewPages(),
		table:    tview.NewTable(),
		eval:     tview.NewTextView().SetDynamicColors(true),
		moves:    tview.NewTextView(),
		status:   tview.NewTextView().SetDynamicColors(true),
		modes:    tview.NewDropDown().SetLabel("Mode "),
		moveTime: tview.NewInputField().SetLabel("Time ms ").SetFieldWidth(6),
		depth:    tview.NewInputField().SetLabel("Depth   ").SetFieldWidth(3),
		theme:    opts.Theme,
		log:      opts.Logger,
		flip:     opts.Flip,
	}
	b.update.Position = chess.NewGame().Position()
	b.eval.SetBorder(true).SetTitle(" Eval ")
	b.moves.SetBorder(true).SetTitle(" Moves ")

	b.runBtn = tview.NewButton(string(ActionRun)).SetSelectedFunc(b.toggleRun)
	buttons := []*tview.Button{
		tview.NewButton(string(ActionNewGame)).SetSelectedFunc(func() { b.report(b.ctrl.NewGame()) }),
		tview.NewButton(string(ActionUndo)).SetSelectedFunc(b.undo),
		tview.NewButton(string(ActionAnalyze)).SetSelectedFunc(func() { b.report(b.ctrl.Analyze()) }),
		tview.NewButton(string(ActionEngineMove)).SetSelectedFunc(func() { b.report(b.ctrl.RequestEngineMove()) }),
		b.runBtn,
		tview.NewButton(string(ActionExit)).SetSelectedFunc(b.App.Stop),
	}

	labels := make([]string, len(session.Modes))
	for i, m := range session.Modes {
		labels[i] = m.String()
	}
	b.modes.SetOptions(labels, func(_ string, idx int) {
		if !b.settled || idx < 0 {
			return
		}
		b.report(b.ctrl.SetMode(session.Modes[idx]))
		b.App.SetFocus(b.table)
	})

	for _, field := range []*tview.InputField{b.moveTime, b.depth} {
		field.SetAcceptanceFunc(tview.InputFieldInteger)
		field.SetDoneFunc(func(key tcell.Key) {
			if key == tcell.KeyEnter {
				b.applyLimits()
			}
		})
	}

	gameOptions := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(b.modes, 1, 0, false).
		AddItem(b.moveTime, 1, 0, false).
		AddItem(b.depth, 1, 0, false).
		AddItem(tview.NewBox(), 1, 0, false)
	for _, btn := range buttons {
		gameOptions.AddItem(btn, 1, 0, false).AddItem(tview.NewBox(), 1, 0, false)
	}
	gameOptions.AddItem(b.status, 0, 1, false)

	b.cycleFocus(append([]tview.Primitive{b.table, b.modes, b.moveTime, b.depth}, primitives(buttons)...))

	layout := tview.NewGrid().
		SetRows(-1, 12, 10, -1).
		SetColumns(-1, 30, 24, 24, -1).
		AddItem(b.table, 1, 1, 1, 1, 0, 0, true).
		AddItem(b.eval, 2, 1, 1, 1, 0, 0, false).
		AddItem(b.moves, 1, 2, 2, 1, 0, 0, false).
		AddItem(gameOptions, 1, 3, 2, 1, 0, 0, false)

	b.pages.AddPage("board", layout, true, true)
	b.App.SetRoot(b.pages, true)
	b.initTable()
	return b
}

// Attach connects the board to its controller. It must be called before Run.
func (b *Board) Attach(c Controller) {
	b.ctrl = c
	snap := c.Snapshot()
	for i, m := range session.Modes {
		if m == snap.Mode {
			b.modes.SetCurrentOption(i)
		}
	}
	b.showLimits(snap)
	b.settled = true
}

func (b *Board) Run() error {
	return b.App.Run()
}

func primitives(btns []*tview.Button) []tview.Primitive {
	out := make([]tview.Primitive, len(btns))
	for i, btn := range btns {
		out[i] = btn
	}
	return out
}

// cycleFocus moves focus through items with tab and backtab.
func (b *Board) cycleFocus(items []tview.Primitive) {
	b.App.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if b.pages.HasPage("alert") {
			return ev
		}
		step := 0
		switch ev.Key() {
		case tcell.KeyTab:
			step = 1
		case tcell.KeyBacktab:
			step = -1
		default:
			return ev
		}
		cur := 0
		for i, p := range items {
			if p.HasFocus() {
				cur = i
			}
		}
		b.App.SetFocus(items[(cur+step+len(items))%len(items)])
		return nil
	})
}

func (b *Board) initTable() {
	b.render()
	b.table.SetSelectable(true, true)
	b.table.Select(0, 1).SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEscape {
			if b.mk.selecting {
				b.mk.selecting = false
				b.render()
				return
			}
			b.App.Stop()
		}
	}).SetSelectedFunc(b.selectSquare)
}

// selectSquare picks a piece on the first press and its destination on
// the second.
func (b *Board) selectSquare(row, col int) {
	if col == 0 || row >= numrows {
		return
	}
	sq := posToSquare(row, col, b.flip)
	switch {
	case !b.mk.selecting:
		if b.update.Position.Board().Piece(sq) == chess.NoPiece {
			return
		}
		b.mk.selecting = true
		b.mk.selected = sq
	case sq == b.mk.selected: // chose the last square to deactivate
		b.mk.selecting = false
	default:
		m := game.Move{From: b.mk.selected, To: sq}
		b.mk.selecting = false
		if err := b.ctrl.OnHumanMove(m); err != nil {
			b.log.Debug().Err(err).Stringer("move", m).Msg("move rejected")
			b.report(err)
		} else {
			b.report(nil)
		}
	}
	b.render()
}

func (b *Board) undo() {
	ply := 1
	if b.ctrl.Snapshot().Mode == session.HumanVsEngine {
		ply = 2
	}
	b.report(b.ctrl.Undo(ply))
}

// toggleRun starts or cancels an engine-vs-engine run. The label follows
// the Running flag of the next board update.
func (b *Board) toggleRun() {
	if b.ctrl.Snapshot().Running {
		b.ctrl.Cancel()
		return
	}
	b.report(b.ctrl.RunEngineVsEngine())
}

// applyLimits hands the limit fields to the controller and shows the
// limits it settled on.
func (b *Board) applyLimits() {
	ms, err := strconv.Atoi(b.moveTime.GetText())
	if err != nil {
		b.report(fmt.Errorf("bad move time %q", b.moveTime.GetText()))
		return
	}
	depth, err := strconv.Atoi(b.depth.GetText())
	if err != nil {
		b.report(fmt.Errorf("bad depth %q", b.depth.GetText()))
		return
	}
	moveTime := time.Duration(ms) * time.Millisecond
	err = b.ctrl.SetLimits(engine.TimeLimit(moveTime), engine.Limit{Depth: depth, MoveTime: moveTime})
	b.report(err)
	if err == nil {
		b.showLimits(b.ctrl.Snapshot())
	}
}

func (b *Board) showLimits(snap session.Snapshot) {
	moveTime := snap.Limit.MoveTime
	if moveTime == 0 {
		moveTime = session.DefaultMoveTime
	}
	b.moveTime.SetText(strconv.FormatInt(moveTime.Milliseconds(), 10))
	b.depth.SetText(strconv.Itoa(snap.AnalysisLimit.Depth))
}

// report shows err in the status box, or clears it.
func (b *Board) report(err error) {
	if err == nil {
		b.status.SetText("")
		return
	}
	b.status.SetText(fmt.Sprintf("[red]%v[-]", err))
}

func (b *Board) render() {
	board := b.update.Position.Board()
	b.mk.last = b.update.LastMove
	t := b.theme

	for r := 0; r <= numrows; r++ {
		for f := 0; f <= numcols; f++ {
			if f == 0 && r != numrows { // draw rank square
				rank := chess.Rank(numrows - r - 1)
				if b.flip {
					rank = chess.Rank(r)
				}
				b.table.SetCell(r, f, tview.NewTableCell(rank.String()).
					SetAlign(tview.AlignCenter).
					SetTextColor(t.Rank).
					SetSelectable(false))
				continue
			}
			if r == numrows && f > 0 { // draw files square
				file := chess.File(f - 1)
				if b.flip {
					file = chess.File(numcols - f)
				}
				b.table.SetCell(r, f, tview.NewTableCell(" "+file.String()).
					SetAlign(tview.AlignCenter).
					SetTextColor(t.File).
					SetSelectable(false))
				continue
			}
			if r == numrows && f == 0 {
				b.table.SetCell(r, f, tview.NewTableCell("").SetSelectable(false))
				continue
			}

			sq := posToSquare(r, f, b.flip)
			p := board.Piece(sq)
			fg := t.White
			if p.Color() == chess.Black {
				fg = t.Black
			}
			b.table.SetCell(r, f, tview.NewTableCell(" "+p.String()).
				SetAlign(tview.AlignCenter).
				SetTextColor(fg).
				SetBackgroundColor(squareBg(sq, b.mk, t)))
		}
	}

	var sb strings.Builder
	for _, row := range moveRows(b.update.Notation, movesShown) {
		fmt.Fprintf(&sb, "%-4v %-7v %-7v\n", row.index, row.white, row.black)
	}
	b.moves.SetText(sb.String())
	b.eval.SetText(evalText(b.analysis, b.evalTurn, t))
}

func (b *Board) BoardChanged(u session.BoardUpdate) {
	b.App.QueueUpdateDraw(func() { b.applyUpdate(u) })
}

func (b *Board) applyUpdate(u session.BoardUpdate) {
	b.update = u
	b.mk.hint = u.Highlight
	if u.Highlight == nil && len(u.History) == 0 {
		b.analysis = nil
	}
	if u.Running {
		b.runBtn.SetLabel(string(ActionStop))
	} else {
		b.runBtn.SetLabel(string(ActionRun))
	}
	b.render()
}

func (b *Board) EvaluationUpdated(a engine.Analysis) {
	b.App.QueueUpdateDraw(func() {
		b.analysis = &a
		b.evalTurn = b.update.Turn
		b.render()
	})
}

func (b *Board) EngineUnavailable(err error) {
	b.App.QueueUpdateDraw(func() {
		b.runBtn.SetLabel(string(ActionRun))
		b.alert(fmt.Sprintf("Engine unavailable\n\n%v", err))
	})
}

func (b *Board) GameOver(o chess.Outcome, m chess.Method) {
	b.App.QueueUpdateDraw(func() {
		b.runBtn.SetLabel(string(ActionRun))
		b.status.SetText(fmt.Sprintf("[yellow]%s[-]", outcomeText(o, m)))
	})
}

func (b *Board) alert(text string) {
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{string(ActionOK)}).
		SetDoneFunc(func(int, string) {
			b.pages.RemovePage("alert")
			b.App.SetFocus(b.table)
		})
	b.pages.AddPage("alert", modal, true, true)
	b.App.SetFocus(modal)
}
