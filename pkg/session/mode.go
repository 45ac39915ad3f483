package session

import (
	"fmt"
	"strings"
)

type Mode int

const (
	HumanVsHuman Mode = iota
	HumanVsEngine
	EngineVsEngine
)

func (m Mode) String() string {
	switch m {
	case HumanVsHuman:
		return "Player vs Player"
	case HumanVsEngine:
		return "Player vs Engine"
	case EngineVsEngine:
		return "Engine vs Engine"
	default:
		return "Unknown"
	}
}

// UsesEngine reports whether moves in this mode come from the engine.
func (m Mode) UsesEngine() bool {
	return m == HumanVsEngine || m == EngineVsEngine
}

// Modes lists every mode in menu order.
var Modes = []Mode{HumanVsHuman, HumanVsEngine, EngineVsEngine}

// ParseMode accepts a mode's String form or its short name (hvh, hve, eve).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hvh", "human", "player vs player":
		return HumanVsHuman, nil
	case "hve", "engine", "player vs engine":
		return HumanVsEngine, nil
	case "eve", "watch", "engine vs engine":
		return EngineVsEngine, nil
	}
	return HumanVsHuman, fmt.Errorf("unknown mode %q", s)
}
