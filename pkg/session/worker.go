package session

import (
	"errors"
	"sync"

	"github.com/qnkhuat/uciboard/pkg/engine"
	"github.com/rs/zerolog"
)

type jobKind int

const (
	jobSearch jobKind = iota
	jobAnalyze
	jobTeardown
)

func (k jobKind) String() string {
	switch k {
	case jobSearch:
		return "search"
	case jobAnalyze:
		return "analyze"
	case jobTeardown:
		return "teardown"
	default:
		return "unknown"
	}
}

type job struct {
	id         string
	kind       jobKind
	pos        engine.Position
	limit      engine.Limit
	generation int
	newGame    bool
}

type result struct {
	job
	res        engine.SearchResult
	engineName string
	err        error
}

const jobQueueSize = 8

// worker owns the engine. It runs jobs one at a time on its own goroutine,
// launching the engine on first use and dropping it after any failure.
type worker struct {
	launch func() (*engine.Engine, error)
	log    zerolog.Logger
	jobs   chan job
	done   chan struct{}

	stopping chan struct{}

	// mu guards eng so stop can close it under an in-flight search.
	mu  sync.Mutex
	eng *engine.Engine
}

func newWorker(launch func() (*engine.Engine, error), logger zerolog.Logger) *worker {
	return &worker{
		launch:   launch,
		log:      logger,
		jobs:     make(chan job, jobQueueSize),
		done:     make(chan struct{}),
		stopping: make(chan struct{}),
	}
}

func (w *worker) run(deliver func(result)) {
	defer close(w.done)
	for j := range w.jobs {
		if j.kind == jobTeardown {
			w.teardown()
			continue
		}
		deliver(w.do(j))
	}
	w.teardown()
}

// submit queues j without blocking the loop. It reports false when the
// queue is full and j was not queued.
func (w *worker) submit(j job) bool {
	select {
	case w.jobs <- j:
		return true
	default:
		w.log.Error().Str("request", j.id).Stringer("kind", j.kind).Msg("job queue full, dropping")
		return false
	}
}

func (w *worker) do(j job) result {
	r := result{job: j}
	log := w.log.With().Str("request", j.id).Stringer("kind", j.kind).Logger()

	eng, err := w.engine()
	if err != nil {
		r.err = err
		return r
	}
	r.engineName = eng.Name()

	if j.newGame {
		if err := eng.NewGame(); err != nil {
			r.err = err
			w.teardown()
			return r
		}
	}
	if err := eng.SetPosition(j.pos); err != nil {
		r.err = err
		w.teardown()
		return r
	}
	log.Debug().Stringer("limit", j.limit).Msg("searching")
	r.res, r.err = eng.Search(j.limit)
	if r.err != nil && !errors.Is(r.err, engine.ErrInvalidRequest) {
		w.teardown()
	}
	return r
}

func (w *worker) engine() (*engine.Engine, error) {
	select {
	case <-w.stopping:
		return nil, ErrClosed
	default:
	}
	w.mu.Lock()
	eng := w.eng
	w.mu.Unlock()
	if eng != nil {
		return eng, nil
	}

	eng, err := w.launch()
	if err != nil {
		w.log.Error().Err(err).Msg("engine launch failed")
		return nil, err
	}
	w.mu.Lock()
	w.eng = eng
	w.mu.Unlock()
	return eng, nil
}

func (w *worker) teardown() {
	w.mu.Lock()
	eng := w.eng
	w.eng = nil
	w.mu.Unlock()
	if eng == nil {
		return
	}
	w.log.Info().Msg("stopping engine")
	eng.Close()
}

// stop tears the engine down, which also ends an in-flight search, then
// closes the queue and waits for the worker goroutine to exit.
func (w *worker) stop() {
	close(w.stopping)
	w.teardown()
	close(w.jobs)
	<-w.done
}
