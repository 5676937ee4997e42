package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sjsage522/couponworker/logger"
)

// LoggerInterface receives per-item error notes during a run
type LoggerInterface interface {
	LogError(itemName string, err error)
	LogInfo(format string, args ...interface{})
}

// Logger appends error notes to a file and mirrors them to the structured log
type Logger struct {
	errorFile string
}

// NewLogger creates a new logger instance
func NewLogger(errorFile string) *Logger {
	return &Logger{
		errorFile: errorFile,
	}
}

// LogError logs an error to a file with the item name and timestamp
func (l *Logger) LogError(itemName string, err error) {
	logger.ForWorker().Warn().Str("item", itemName).Err(err).Msg("item skipped")

	if dir := filepath.Dir(l.errorFile); dir != "." {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			logger.Error("failed to create error log directory: %v", mkErr)
			return
		}
	}

	f, fileErr := os.OpenFile(l.errorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		logger.Error("failed to open error log: %v", fileErr)
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] %s\n", timestamp, itemName, err.Error())
}

// LogInfo logs an informational message
func (l *Logger) LogInfo(format string, args ...interface{}) {
	logger.Info(format, args...)
}
