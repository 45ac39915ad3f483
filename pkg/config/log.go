package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// InitLog returns a logger writing to dest. The terminal belongs to the
// board, so logs go to a file unless dest is empty or "-".
func InitLog(cfg LogConfig, dest, prefix string) (zerolog.Logger, error) {
	var out io.Writer = os.Stderr
	if dest != "" && dest != "-" {
		f, err := os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("error opening log file: %w", err)
		}
		out = f
	}
	return newLogger(cfg, out, prefix)
}

func newLogger(cfg LogConfig, out io.Writer, prefix string) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = zerolog.ParseLevel(strings.ToLower(cfg.Level)); err != nil {
			return zerolog.Nop(), fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}

	switch cfg.Style {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.Stamp}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log style %q", cfg.Style)
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if p := strings.Trim(prefix, "[] "); p != "" {
		ctx = ctx.Str("app", p)
	}
	return ctx.Logger(), nil
}
