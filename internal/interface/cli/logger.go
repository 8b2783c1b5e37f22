package cli

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogLevelFromString converts a string to a logrus level with better defaults
func LogLevelFromString(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.ErrorLevel // Fatal is treated as Error level for filtering
	default:
		// Default to WARN level if not specified or invalid
		return logrus.WarnLevel
	}
}

// NewLogger creates the process logger writing text lines to output
func NewLogger(level string, output io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(output)
	log.SetLevel(LogLevelFromString(level))
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return log
}
