package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Config はロガーの設定
type Config struct {
	Level  slog.Level
	Format string // "json" or "text"
}

// DefaultConfig はデフォルトのロガー設定
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: "json",
	}
}

// FromEnv は環境変数 RAGKIT_LOG_LEVEL / RAGKIT_LOG_FORMAT から設定を作成する
func FromEnv() Config {
	cfg := DefaultConfig()
	cfg.Level = ParseLevel(os.Getenv("RAGKIT_LOG_LEVEL"))
	if format := os.Getenv("RAGKIT_LOG_FORMAT"); format != "" {
		cfg.Format = format
	}
	return cfg
}

// ParseLevel はレベル文字列を slog.Level に変換する。不明な値は Info になる
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// New は新しいロガーを作成し、デフォルトロガーとして設定する
func New(cfg Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.Level,
	}

	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default: // "json"
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
