package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"openaigateway/internal/core"

	"github.com/rs/zerolog"
)

// AppLogger is the application logger implementation.
type AppLogger struct {
	logger     zerolog.Logger
	debug      bool
	fileHandle *os.File
	mu         sync.RWMutex
}

// NewAppLoggerWithConfig creates a JSON logger writing to output.
func NewAppLoggerWithConfig(output io.Writer, debugMode bool) *AppLogger {
	return &AppLogger{
		logger:     newZerolog(output, "json", levelFor(debugMode, "")),
		debug:      debugMode,
		fileHandle: nil,
	}
}

func newZerolog(output io.Writer, format string, level zerolog.Level) zerolog.Logger {
	if strings.EqualFold(format, "console") {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		}
	}
	return zerolog.New(output).With().Timestamp().Logger().Level(level)
}

func levelFor(debugMode bool, levelName string) zerolog.Level {
	if debugMode {
		return zerolog.DebugLevel
	}
	if levelName != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(levelName)); err == nil {
			return lvl
		}
	}
	return zerolog.InfoLevel
}

// Debug logs a message at DEBUG level.
func (l *AppLogger) Debug(format string, args ...any) {
	if l != nil {
		l.logger.Debug().Msgf(format, args...)
	}
}

// Info logs a message at INFO level.
func (l *AppLogger) Info(format string, args ...any) {
	if l != nil {
		l.logger.Info().Msgf(format, args...)
	}
}

// Warn logs a message at WARN level.
func (l *AppLogger) Warn(format string, args ...any) {
	if l != nil {
		l.logger.Warn().Msgf(format, args...)
	}
}

// Error logs a message at ERROR level.
func (l *AppLogger) Error(format string, args ...any) {
	if l != nil {
		l.logger.Error().Msgf(format, args...)
	}
}

// Fatal logs a message at FATAL level and terminates the process.
func (l *AppLogger) Fatal(format string, args ...any) {
	if l != nil {
		l.logger.Fatal().Msgf(format, args...)
		return
	}
	fmt.Fprintf(os.Stderr, "[FATAL] "+format+"\n", args...)
	os.Exit(1)
}

// Zerolog exposes the underlying logger for components that log structured fields.
func (l *AppLogger) Zerolog() zerolog.Logger {
	return l.logger
}

// Close safely closes log file handle.
func (l *AppLogger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileHandle != nil {
		err := l.fileHandle.Close()
		l.fileHandle = nil
		return err
	}
	return nil
}

// containsPathTraversal checks if path contains path traversal characters.
func containsPathTraversal(path string) bool {
	return strings.Contains(path, "..")
}

// createDebugFileOutput creates debug file output, falls back gracefully on failure.
func createDebugFileOutput() (io.Writer, *os.File) {
	debugFile := os.Getenv("DEBUG_FILE")
	if debugFile == "" {
		return os.Stdout, nil
	}

	if len(debugFile) > core.MaxDebugFilePathLength {
		fmt.Fprintln(os.Stderr, "[WARN] DEBUG_FILE path too long, falling back to stdout")
		return os.Stdout, nil
	}

	if containsPathTraversal(debugFile) {
		fmt.Fprintln(os.Stderr, "[WARN] DEBUG_FILE contains path traversal characters, falling back to stdout")
		return os.Stdout, nil
	}

	//nolint:gosec // G304: debugFile from env var, validated by containsPathTraversal
	file, err := os.OpenFile(debugFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, core.FilePermissionReadWrite)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to open DEBUG_FILE '%s': %v, falling back to stdout\n", debugFile, err)
		return os.Stdout, nil
	}

	return file, file
}

// IsDebug returns whether the app is running in debug mode.
func IsDebug() bool {
	return os.Getenv("GIN_MODE") == "debug"
}

// CreateLogger creates a logger instance (for dependency injection).
// LOG_FORMAT selects console or json output, LOG_LEVEL the minimum level.
func CreateLogger() core.Logger {
	debugMode := IsDebug()
	output, fileHandle := createDebugFileOutput()

	format := os.Getenv("LOG_FORMAT")
	if format == "" {
		format = "console"
	}

	return &AppLogger{
		logger:     newZerolog(output, format, levelFor(debugMode, os.Getenv("LOG_LEVEL"))),
		debug:      debugMode,
		fileHandle: fileHandle,
	}
}
