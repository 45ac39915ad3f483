package gui

import (
	"fmt"
	"sort"

	"github.com/gdamore/tcell/v2"
)

// Terminal safe color palette is available here
// https://upload.wikimedia.org/wikipedia/commons/1/15/Xterm_256color_chart.svg

// Theme is used for coloring the board
type Theme struct {
	Name        string
	SquareDark  tcell.Color
	SquareLight tcell.Color
	SquareHigh  tcell.Color // last move
	SquareHint  tcell.Color // head of the analysis line
	SquareSel   tcell.Color // selected piece
	White       tcell.Color
	Black       tcell.Color
	Rank        tcell.Color
	File        tcell.Color
	Score       tcell.Color
	MeterWin    tcell.Color
	MeterLose   tcell.Color
	MeterEven   tcell.Color
}

// ThemeBasic is the default theme
var ThemeBasic = Theme{
	Name:        "basic",
	SquareDark:  tcell.Color188,
	SquareLight: tcell.Color230,
	SquareHigh:  tcell.Color226,
	SquareHint:  tcell.Color223,
	SquareSel:   tcell.Color218,
	White:       tcell.Color232,
	Black:       tcell.Color232,
	Rank:        tcell.Color247,
	File:        tcell.Color247,
	Score:       tcell.Color247,
	MeterWin:    tcell.Color122,
	MeterLose:   tcell.Color167,
	MeterEven:   tcell.Color45,
}

// ThemeClassic is the blue and green board.
var ThemeClassic = Theme{
	Name:        "classic",
	SquareDark:  tcell.ColorGreen,
	SquareLight: tcell.ColorBlue,
	SquareHigh:  tcell.ColorYellow,
	SquareHint:  tcell.ColorOrange,
	SquareSel:   tcell.ColorRed,
	White:       tcell.ColorWhite,
	Black:       tcell.ColorBlack,
	Rank:        tcell.ColorDefault,
	File:        tcell.ColorDefault,
	Score:       tcell.ColorDefault,
	MeterWin:    tcell.ColorGreen,
	MeterLose:   tcell.ColorRed,
	MeterEven:   tcell.ColorBlue,
}

var themes = map[string]Theme{
	ThemeBasic.Name:   ThemeBasic,
	ThemeClassic.Name: ThemeClassic,
}

// ThemeByName looks a theme up; an empty name is the basic theme.
func ThemeByName(name string) (Theme, error) {
	if name == "" {
		return ThemeBasic, nil
	}
	if t, ok := themes[name]; ok {
		return t, nil
	}
	return Theme{}, fmt.Errorf("theme: no theme named %q", name)
}

// ThemeNames lists the available themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
