package session

import "testing"

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("chess960"); err == nil {
		t.Error("ParseMode accepted an unknown mode")
	}
}

func TestUsesEngine(t *testing.T) {
	if HumanVsHuman.UsesEngine() {
		t.Error("HumanVsHuman uses the engine")
	}
	if !HumanVsEngine.UsesEngine() || !EngineVsEngine.UsesEngine() {
		t.Error("engine modes do not use the engine")
	}
	if m, _ := ParseMode("EVE"); m != EngineVsEngine {
		t.Errorf("ParseMode(EVE) = %s", m)
	}
}
