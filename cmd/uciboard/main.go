package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/notnil/chess"
	"github.com/qnkhuat/uciboard/pkg/api"
	"github.com/qnkhuat/uciboard/pkg/config"
	"github.com/qnkhuat/uciboard/pkg/gui"
	"github.com/qnkhuat/uciboard/pkg/session"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.RegisterFlags(flag.CommandLine)
	analyze := flag.Bool("analyze", false, "print the engine's evaluation of -fen and exit")
	headless := flag.Bool("headless", false, "serve only the HTTP view, no terminal board")
	flag.Parse()

	if *analyze {
		os.Exit(runAnalyze(cfg))
	}

	logger, err := config.InitLog(cfg.Logs, cfg.Logs.Path, "CLIENT: ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *headless {
		if cfg.HTTP.Addr == "" {
			cfg.HTTP.Addr = "localhost:8080"
		}
		err = runHeadless(cfg, logger)
	} else {
		err = runBoard(cfg, logger)
	}
	if err != nil {
		logger.Error().Err(err).Msg("exiting")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runBoard plays in the terminal, with the HTTP view alongside when an
// address is configured.
func runBoard(cfg *config.Config, logger zerolog.Logger) error {
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	if !tty {
		return errors.New("failed to start uciboard: non-interactive terminals are not supported")
	}
	scfg, err := cfg.Session(logger)
	if err != nil {
		return err
	}
	theme, err := gui.ThemeByName(cfg.Board.Theme)
	if err != nil {
		return err
	}

	board := gui.NewBoard(gui.Options{
		Theme:  theme,
		Flip:   scfg.Mode == session.HumanVsEngine && scfg.HumanColor == chess.Black,
		Logger: logger,
	})
	var listener session.Listener = board
	var web *api.Server
	if cfg.HTTP.Addr != "" {
		web = api.NewServer(logger)
		listener = session.Multi(board, web)
	}

	ctrl, err := session.New(scfg, listener)
	if err != nil {
		return err
	}
	defer ctrl.Shutdown()
	board.Attach(ctrl)

	if web != nil {
		web.Attach(ctrl)
		srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: web.Router()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("http view stopped")
			}
		}()
		defer srv.Close()
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() { // Down when receive killed signal
		<-sigc
		board.App.Stop()
	}()

	logger.Info().Msg("board started")
	return board.Run()
}

func runHeadless(cfg *config.Config, logger zerolog.Logger) error {
	scfg, err := cfg.Session(logger)
	if err != nil {
		return err
	}
	web := api.NewServer(logger)
	ctrl, err := session.New(scfg, web)
	if err != nil {
		return err
	}
	defer ctrl.Shutdown()
	web.Attach(ctrl)

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: web.Router()}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("http view listening")
		errc <- srv.ListenAndServe()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-sigc:
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
