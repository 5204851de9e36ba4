// Package logger 提供进程级结构化日志器的构造。
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// NewDefault 创建写到标准输出的文本日志器。
//
// level 接受 debug / info / warn / error，大小写不敏感，未知值回落到 info。
func NewDefault(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
