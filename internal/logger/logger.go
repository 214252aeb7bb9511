package logger

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/config"
)

// Setup installs a JSON slog handler as the process default. Output goes to
// stdout, or to a rotated file when cfg.Path is set. The standard log
// package is routed through the same handler.
func Setup(cfg config.Log) *slog.Logger {
	var writer io.Writer = os.Stdout
	if cfg.Path != "" {
		writer = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
	}
	l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: Level(cfg.Level),
	}))
	slog.SetDefault(l)
	log.SetFlags(0)
	return l
}

// Level maps a config string to a slog level; unknown values mean info.
func Level(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
