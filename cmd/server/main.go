//go:build !windows

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/qnkhuat/uciboard/pkg/config"
	"github.com/qnkhuat/uciboard/pkg/server"
)

var (
	done = make(chan bool)
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	flag.StringVar(&cfg.SSH.Addr, "addr", cfg.SSH.Addr, "address to listen on")
	flag.StringVar(&cfg.SSH.HostKey, "hostkey", cfg.SSH.HostKey, "private host key file")
	flag.StringVar(&cfg.SSH.BoardBinary, "board", cfg.SSH.BoardBinary, "uciboard binary run for every session")
	flag.StringVar(&cfg.Logs.Path, "log", "-", "log file, - for stderr")
	idle := flag.Duration("idle", server.ServerIdleTimeout, "disconnect idle sessions after")
	flag.Parse()

	logger, err := config.InitLog(cfg.Logs, cfg.Logs.Path, "SERVER: ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	s, err := server.New(server.Config{
		Addr:        cfg.SSH.Addr,
		BoardBinary: cfg.SSH.BoardBinary,
		BoardArgs:   flag.Args(),
		HostKey:     cfg.SSH.HostKey,
		IdleTimeout: *idle,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create server")
	}

	go func() {
		err := s.ListenAndServe()
		if err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Error().Err(err).Msg("server stopped")
		}
		done <- true
	}()

	// Keep the server run
	sigc := make(chan os.Signal, 1)
	// Wait for teminate signal
	signal.Notify(sigc,
		syscall.SIGINT,
		syscall.SIGTERM)
	go func() {
		<-sigc

		done <- true
	}()

	<-done
	logger.Info().Int("boards", len(s.Boards())).Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Shutdown(ctx)
}
