package logger

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup builds the process logger from the configured level and optional
// log file. When file is non-empty all output goes there with size-based
// rotation: files roll over past maxBytes and backupCount rotated files
// are kept.
func Setup(level string, file string, maxBytes int64, backupCount int) (Logger, error) {
	cfg := DefaultConfig()
	switch level {
	case "debug", "DEBUG":
		cfg.Level = DebugLevel
	case "warn", "WARN", "warning", "WARNING":
		cfg.Level = WarnLevel
	case "error", "ERROR":
		cfg.Level = ErrorLevel
	default:
		cfg.Level = InfoLevel
	}
	if file != "" {
		cfg.Output = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSizeMB(maxBytes),
			MaxBackups: backupCount,
		}
	}
	return NewLogger(cfg), nil
}

// maxSizeMB converts the configured byte limit to lumberjack's whole
// megabytes, never below 1.
func maxSizeMB(maxBytes int64) int {
	mb := int(maxBytes / (1024 * 1024))
	if mb < 1 {
		return 1
	}
	return mb
}
