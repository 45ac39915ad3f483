package engine

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const shellEngine = `#!/bin/sh
while read line; do
  case "$line" in
    uci) echo "id name ShellFish"; echo uciok ;;
    isready) echo readyok ;;
    go*) echo "info depth 1 score cp 10 pv e2e4"; echo "bestmove e2e4" ;;
    quit) exit 0 ;;
  esac
done
`

const crashingEngine = `#!/bin/sh
while read line; do
  case "$line" in
    uci) echo uciok ;;
    isready) echo readyok ;;
    go*) echo "info depth 1 score cp 10 pv e2e4"; exit 3 ;;
  esac
done
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell engines need a unix shell")
	}
	path := filepath.Join(t.TempDir(), "engine.sh")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStartProcessLaunchErrors(t *testing.T) {
	if _, err := StartProcess(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ErrEngineLaunch) {
		t.Errorf("missing engine: %v", err)
	}

	path := filepath.Join(t.TempDir(), "not-executable")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := StartProcess(path); !errors.Is(err, ErrEngineLaunch) {
		t.Errorf("non executable engine: %v", err)
	}
}

func TestProcessLineExchange(t *testing.T) {
	p, err := StartProcess(writeScript(t, shellEngine))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	if err := p.WriteLine("isready"); err != nil {
		t.Fatal(err)
	}
	line, err := p.ReadLine()
	if err != nil || line != "readyok" {
		t.Fatalf("ReadLine = %q, %v", line, err)
	}
}

func TestProcessStopThenWrite(t *testing.T) {
	p, err := StartProcess(writeScript(t, shellEngine))
	if err != nil {
		t.Fatal(err)
	}
	p.Stop()
	p.Stop()

	if err := p.WriteLine("isready"); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("write after stop = %v", err)
	}
	if _, err := p.ReadLine(); err != io.EOF {
		t.Errorf("read after stop = %v", err)
	}
}

func TestNeverStartedProcess(t *testing.T) {
	var p Process
	if err := p.WriteLine("uci"); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("write on unstarted process = %v", err)
	}
	p.Stop()
}

func TestLaunchAndSearch(t *testing.T) {
	eng, err := Launch(writeScript(t, shellEngine), Options{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	if eng.Name() != "ShellFish" {
		t.Errorf("name = %q", eng.Name())
	}
	if err := eng.SetPosition(Position{}); err != nil {
		t.Fatal(err)
	}
	res, err := eng.Search(TimeLimit(200 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if res.BestMove == nil || res.BestMove.String() != "e2e4" || res.Analysis.Score.Value != 10 {
		t.Errorf("result = %+v", res)
	}
}

func TestLaunchCrashMidSearch(t *testing.T) {
	eng, err := Launch(writeScript(t, crashingEngine), Options{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	if _, err := eng.Search(DepthLimit(4)); !errors.Is(err, ErrEngineProtocol) {
		t.Fatalf("expected ErrEngineProtocol, got %v", err)
	}
}

func TestLaunchOverPTY(t *testing.T) {
	path := writeScript(t, shellEngine)
	probe, err := StartPTY(path)
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	probe.Stop()

	eng, err := Launch(path, Options{PTY: true, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	res, err := eng.Search(DepthLimit(1))
	if err != nil {
		t.Fatal(err)
	}
	if res.BestMove == nil || res.BestMove.String() != "e2e4" {
		t.Errorf("best move = %v", res.BestMove)
	}
}
