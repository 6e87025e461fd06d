package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the severity level of a log message
type LogLevel int

// Log level constants define the severity hierarchy for filtering log output
const (
	DEBUG LogLevel = iota // DEBUG is the lowest severity level for detailed diagnostics
	INFO                  // INFO is for general informational messages
	WARN                  // WARN is for warning messages that don't prevent operation
	ERROR                 // ERROR is the highest severity for error conditions
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel converts a string to a LogLevel
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger provides structured logging with configurable levels
type Logger struct {
	mu     sync.Mutex
	level  LogLevel
	logger *log.Logger
	prefix string
}

// New creates a new Logger with the specified level
func New(level LogLevel, prefix string) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(os.Stderr, "", log.LstdFlags),
		prefix: prefix,
	}
}

// NewWithWriter creates a new Logger with custom output writer
func NewWithWriter(level LogLevel, prefix string, w io.Writer) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(w, "", log.LstdFlags),
		prefix: prefix,
	}
}

// NewRotating creates a Logger writing to a size-rotated log file
func NewRotating(level LogLevel, prefix string, filename string) *Logger {
	return NewWithWriter(level, prefix, &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	})
}

// SetLevel changes the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// shouldLog checks if a message at the given level should be logged
func (l *Logger) shouldLog(level LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

// log writes a log message with the given level and fields
func (l *Logger) log(level LogLevel, msg string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	// Build structured log message
	var sb strings.Builder

	// Add prefix if set
	if l.prefix != "" {
		sb.WriteString(l.prefix)
		sb.WriteString(" ")
	}

	// Add level
	sb.WriteString(level.String())
	sb.WriteString(": ")

	// Add message
	sb.WriteString(msg)

	// Add fields
	if len(fields) > 0 {
		sb.WriteString(" |")
		for k, v := range fields {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, v))
		}
	}

	l.logger.Println(sb.String())
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.log(DEBUG, msg, fields)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.log(INFO, msg, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.log(WARN, msg, fields)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.log(ERROR, msg, fields)
}

// RefreshEvent represents a type of refresh-related event
type RefreshEvent string

// Refresh event constants identify the refresh lifecycle steps
const (
	EventRefreshStarted   RefreshEvent = "refresh_started"   // EventRefreshStarted indicates a refresh run began
	EventRefreshRetry     RefreshEvent = "refresh_retry"     // EventRefreshRetry indicates an upstream call is being retried
	EventRefreshPublished RefreshEvent = "refresh_published" // EventRefreshPublished indicates a new artifact was published
	EventRefreshFailed    RefreshEvent = "refresh_failed"    // EventRefreshFailed indicates the run failed and the previous artifact stays current
	EventRetentionSweep   RefreshEvent = "retention_sweep"   // EventRetentionSweep summarizes an eviction pass
)

// LogRefreshStarted logs the start of a refresh run (INFO level)
func (l *Logger) LogRefreshStarted(kind, runID string) {
	l.Info("Refresh started", map[string]interface{}{
		"event": EventRefreshStarted,
		"kind":  kind,
		"runID": runID,
	})
}

// LogRefreshRetry logs an upstream retry (WARN level)
func (l *Logger) LogRefreshRetry(kind, runID string, attempt int, delay time.Duration, err error) {
	l.Warn("Upstream call failed, retrying", map[string]interface{}{
		"event":   EventRefreshRetry,
		"kind":    kind,
		"runID":   runID,
		"attempt": attempt,
		"delay":   delay.String(),
		"error":   err.Error(),
	})
}

// LogRefreshPublished logs a successful publish (INFO level)
func (l *Logger) LogRefreshPublished(kind, runID string, elapsed time.Duration) {
	l.Info("Refresh published", map[string]interface{}{
		"event":   EventRefreshPublished,
		"kind":    kind,
		"runID":   runID,
		"elapsed": elapsed.String(),
	})
}

// LogRefreshFailed logs a failed refresh run (ERROR level)
func (l *Logger) LogRefreshFailed(kind, runID string, err error) {
	l.Error("Refresh failed, keeping previous artifact", map[string]interface{}{
		"event": EventRefreshFailed,
		"kind":  kind,
		"runID": runID,
		"error": err.Error(),
	})
}

// LogRetentionSweep logs the outcome of a retention pass (INFO level)
func (l *Logger) LogRetentionSweep(runID string, retained, replaced, orphaned, evictedAge, evictedSize int) {
	l.Info("Retention sweep complete", map[string]interface{}{
		"event":       EventRetentionSweep,
		"runID":       runID,
		"retained":    retained,
		"replaced":    replaced,
		"orphaned":    orphaned,
		"evictedAge":  evictedAge,
		"evictedSize": evictedSize,
	})
}
