package logger

import (
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
)

// Environment variable to configure log file path.
const envLogPath = "SHOPDESK_CACHE_LOG"

var (
	std           *charmlog.Logger
	logFile       *os.File
	isInitialized bool
)

// InitFromEnv initializes the logger using SHOPDESK_CACHE_LOG or a default
// path next to the executable.
func InitFromEnv() error {
	path := os.Getenv(envLogPath)
	if path == "" {
		if exePath, err := os.Executable(); err == nil {
			path = filepath.Join(filepath.Dir(exePath), "datacache.log")
		} else {
			path = "./datacache.log"
		}
	}
	return Init(path)
}

// Init initializes the logger to write to the provided file path.
// It creates parent directories if needed and opens the file in append mode.
func Init(path string) error {
	if isInitialized {
		return nil
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	logFile = f
	std = charmlog.NewWithOptions(f, charmlog.Options{
		ReportTimestamp: true,
		Level:           charmlog.InfoLevel,
	})
	isInitialized = true
	return nil
}

// Close closes the underlying log file, if open.
func Close() error {
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// Info logs an informational message with optional key-value pairs.
func Info(msg string, keyvals ...any) { get().Info(msg, keyvals...) }

// Warn logs a warning with optional key-value pairs.
func Warn(msg string, keyvals ...any) { get().Warn(msg, keyvals...) }

// Error logs an error with optional key-value pairs.
func Error(msg string, keyvals ...any) { get().Error(msg, keyvals...) }

// Infof logs a formatted informational message.
func Infof(format string, args ...any) { get().Infof(format, args...) }

// Warnf logs a formatted warning.
func Warnf(format string, args ...any) { get().Warnf(format, args...) }

// Errorf logs a formatted error.
func Errorf(format string, args ...any) { get().Errorf(format, args...) }

func get() *charmlog.Logger {
	if std == nil {
		// Library use without explicit Init: log to stderr.
		return charmlog.Default()
	}
	return std
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
