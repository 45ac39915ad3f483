// Package enginetest provides a scripted in-memory engine implementing
// engine.Channel.
package enginetest

import (
	"io"
	"strings"
	"sync"

	"github.com/qnkhuat/uciboard/pkg/engine"
)

const outputBuffer = 1024

// Script is what the fake prints in answer to one go command.
type Script struct {
	Lines []string
	// Gate, when set, holds the reply back until it is closed.
	Gate chan struct{}
	// Crash closes the output after Lines, as if the process died.
	Crash bool
}

// Fake answers uci and isready itself and replays queued scripts for each
// go. A go without a queued script is answered with Default.
type Fake struct {
	Name    string
	Default []string

	mu      sync.Mutex
	out     chan string
	closed  bool
	sent    []string
	scripts []Script
	stops   int
	gos     chan string
}

func New() *Fake {
	return &Fake{
		Name:    "Fake 1.0",
		Default: []string{"bestmove (none)"},
		out:     make(chan string, outputBuffer),
		gos:     make(chan string, outputBuffer),
	}
}

// Reply queues lines as the answer to the next unanswered go.
func (f *Fake) Reply(lines ...string) {
	f.Queue(Script{Lines: lines})
}

// ReplyGated queues lines that are only printed once release is called.
func (f *Fake) ReplyGated(lines ...string) (release func()) {
	gate := make(chan struct{})
	f.Queue(Script{Lines: lines, Gate: gate})
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (f *Fake) Queue(s Script) {
	f.mu.Lock()
	f.scripts = append(f.scripts, s)
	f.mu.Unlock()
}

// Gos delivers every go command as it is received.
func (f *Fake) Gos() <-chan string {
	return f.gos
}

// Sent returns every line written to the fake.
func (f *Fake) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

// SentWithPrefix returns the written lines starting with prefix.
func (f *Fake) SentWithPrefix(prefix string) []string {
	var out []string
	for _, l := range f.Sent() {
		if strings.HasPrefix(l, prefix) {
			out = append(out, l)
		}
	}
	return out
}

// Stops counts calls to Stop.
func (f *Fake) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// Crash closes the output stream immediately.
func (f *Fake) Crash() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeLocked()
}

func (f *Fake) closeLocked() {
	if !f.closed {
		f.closed = true
		close(f.out)
	}
}

func (f *Fake) emit(lines []string, crash bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for _, l := range lines {
		f.out <- l
	}
	if crash {
		f.closeLocked()
	}
}

func (f *Fake) WriteLine(text string) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return engine.ErrChannelClosed
	}
	f.sent = append(f.sent, text)
	var script Script
	isGo := strings.HasPrefix(text, "go")
	if isGo {
		if len(f.scripts) > 0 {
			script = f.scripts[0]
			f.scripts = f.scripts[1:]
		} else {
			script = Script{Lines: f.Default}
		}
	}
	f.mu.Unlock()

	switch {
	case text == "uci":
		f.emit([]string{"id name " + f.Name, "id author enginetest", "uciok"}, false)
	case text == "isready":
		f.emit([]string{"readyok"}, false)
	case text == "quit":
		f.Crash()
	case isGo:
		f.gos <- text
		if script.Gate != nil {
			go func() {
				<-script.Gate
				f.emit(script.Lines, script.Crash)
			}()
			return nil
		}
		f.emit(script.Lines, script.Crash)
	}
	return nil
}

func (f *Fake) ReadLine() (string, error) {
	line, ok := <-f.out
	if !ok {
		return "", io.EOF
	}
	return line, nil
}

func (f *Fake) Stop() {
	f.mu.Lock()
	f.stops++
	f.closeLocked()
	f.mu.Unlock()
}
