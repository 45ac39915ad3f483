// Package config reads settings from the environment, an optional .env file
// and command line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
	"github.com/notnil/chess"
	"github.com/qnkhuat/uciboard/pkg/engine"
	"github.com/qnkhuat/uciboard/pkg/session"
	"github.com/rs/zerolog"
)

const (
	DefaultEnginePath = "stockfish"
	DefaultMoveTime   = 200 * time.Millisecond
	DefaultSSHAddr    = ":2022"
	DefaultLogPath    = "log"
)

type Config struct {
	Logs   LogConfig
	Engine EngineConfig
	Board  BoardConfig
	HTTP   HTTPConfig
	SSH    SSHConfig
}

type LogConfig struct {
	Style string // console or json
	Level string
	Path  string
}

type EngineConfig struct {
	Path     string
	MoveTime time.Duration
	Depth    int
	// AnalysisDepth of 0 analyses for MoveTime instead.
	AnalysisDepth int
	PTY           bool
}

type BoardConfig struct {
	Name       string
	Mode       string
	HumanColor string
	FEN        string
	Theme      string
}

type HTTPConfig struct {
	// Addr is where the HTTP view listens; empty disables it.
	Addr string
}

type SSHConfig struct {
	Addr        string
	HostKey     string
	BoardBinary string
}

// Load builds a Config from the environment. Unset variables keep their
// defaults; malformed ones are an error.
func Load() (*Config, error) {
	cfg := &Config{
		Logs: LogConfig{
			Style: envOr("LOG_STYLE", "console"),
			Level: envOr("LOG_LEVEL", "info"),
			Path:  envOr("LOG_PATH", DefaultLogPath),
		},
		Engine: EngineConfig{
			Path: envOr("ENGINE_PATH", DefaultEnginePath),
		},
		Board: BoardConfig{
			Name:       os.Getenv("BOARD_NAME"),
			Mode:       envOr("BOARD_MODE", "hve"),
			HumanColor: envOr("HUMAN_COLOR", "white"),
			FEN:        os.Getenv("BOARD_FEN"),
			Theme:      envOr("BOARD_THEME", "basic"),
		},
		HTTP: HTTPConfig{
			Addr: os.Getenv("HTTP_ADDR"),
		},
		SSH: SSHConfig{
			Addr:        envOr("SSH_ADDR", DefaultSSHAddr),
			HostKey:     os.Getenv("SSH_HOST_KEY"),
			BoardBinary: envOr("BOARD_BINARY", "uciboard"),
		},
	}

	var err error
	if cfg.Engine.MoveTime, err = parseMoveTime(envOr("ENGINE_MOVE_TIME", "200")); err != nil {
		return nil, fmt.Errorf("ENGINE_MOVE_TIME: %w", err)
	}
	if cfg.Engine.Depth, err = envInt("ENGINE_DEPTH"); err != nil {
		return nil, err
	}
	if cfg.Engine.AnalysisDepth, err = envInt("ENGINE_ANALYSIS_DEPTH"); err != nil {
		return nil, err
	}
	if v := os.Getenv("ENGINE_PTY"); v != "" {
		if cfg.Engine.PTY, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("ENGINE_PTY: %w", err)
		}
	}
	return cfg, nil
}

// RegisterFlags binds flags to cfg. Values already loaded from the
// environment become the flag defaults.
func (cfg *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&cfg.Engine.Path, "engine", cfg.Engine.Path, "path to a UCI engine")
	fs.DurationVar(&cfg.Engine.MoveTime, "movetime", cfg.Engine.MoveTime, "engine thinking time per move")
	fs.IntVar(&cfg.Engine.Depth, "depth", cfg.Engine.Depth, "engine search depth, overrides movetime")
	fs.IntVar(&cfg.Engine.AnalysisDepth, "analysis-depth", cfg.Engine.AnalysisDepth, "analysis depth, 0 uses movetime")
	fs.BoolVar(&cfg.Engine.PTY, "pty", cfg.Engine.PTY, "run the engine on a pseudo terminal")
	fs.StringVar(&cfg.Board.Mode, "mode", cfg.Board.Mode, "hvh, hve or eve")
	fs.StringVar(&cfg.Board.HumanColor, "color", cfg.Board.HumanColor, "your side against the engine")
	fs.StringVar(&cfg.Board.FEN, "fen", cfg.Board.FEN, "start position")
	fs.StringVar(&cfg.Board.Name, "name", cfg.Board.Name, "session name, generated when empty")
	fs.StringVar(&cfg.Board.Theme, "theme", cfg.Board.Theme, "board theme")
	fs.StringVar(&cfg.HTTP.Addr, "http", cfg.HTTP.Addr, "serve the HTTP view on this address")
	fs.StringVar(&cfg.Logs.Path, "log", cfg.Logs.Path, "log file, - for stderr")
	fs.StringVar(&cfg.Logs.Level, "loglevel", cfg.Logs.Level, "trace, debug, info, warn or error")
}

// Limit is the search limit for engine moves.
func (c EngineConfig) Limit() engine.Limit {
	if c.Depth > 0 {
		return engine.DepthLimit(c.Depth)
	}
	return engine.TimeLimit(c.MoveTime)
}

// AnalysisLimit is the search limit for Analyze.
func (c EngineConfig) AnalysisLimit() engine.Limit {
	if c.AnalysisDepth > 0 {
		return engine.DepthLimit(c.AnalysisDepth)
	}
	return engine.TimeLimit(c.MoveTime)
}

// Session turns the configuration into a controller config.
func (cfg *Config) Session(logger zerolog.Logger) (session.Config, error) {
	mode, err := session.ParseMode(cfg.Board.Mode)
	if err != nil {
		return session.Config{}, err
	}
	color, err := ParseColor(cfg.Board.HumanColor)
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		Name:          cfg.Board.Name,
		EnginePath:    cfg.Engine.Path,
		PTY:           cfg.Engine.PTY,
		Limit:         cfg.Engine.Limit(),
		AnalysisLimit: cfg.Engine.AnalysisLimit(),
		Mode:          mode,
		HumanColor:    color,
		StartFEN:      cfg.Board.FEN,
		Logger:        logger,
	}, nil
}

func ParseColor(s string) (chess.Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "w", "white":
		return chess.White, nil
	case "b", "black":
		return chess.Black, nil
	}
	return chess.NoColor, fmt.Errorf("unknown color %q", s)
}

// parseMoveTime accepts milliseconds or a duration like 1.5s.
func parseMoveTime(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
