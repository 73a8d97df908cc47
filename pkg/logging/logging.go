package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo // Default to INFO for unknown
	}
}

// ParseLevel maps a config or flag value onto a LogLevel.
func ParseLevel(raw string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// LogEntry is the structured log entry delivered in channel mode.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Subsystem string
	Message   string
	Err       error
}

var (
	mu             sync.RWMutex
	defaultLogger  *slog.Logger
	entryChannel   chan LogEntry
	isChannelMode  bool
	channelMinimum LogLevel
)

const defaultChannelBufferSize = 2048

// InitForCLI initializes the logging system for CLI mode.
// Logs are written as slog text records to output.
func InitForCLI(filterLevel LogLevel, output io.Writer) {
	opts := &slog.HandlerOptions{
		Level: filterLevel.SlogLevel(),
	}

	mu.Lock()
	defer mu.Unlock()
	isChannelMode = false
	entryChannel = nil
	defaultLogger = slog.New(slog.NewTextHandler(output, opts))
	slog.SetDefault(defaultLogger)
}

// InitForChannel switches logging to channel mode and returns the channel
// entries are delivered on. Sends never block: when the buffer is full the
// entry is dropped.
func InitForChannel(filterLevel LogLevel, bufferSize int) <-chan LogEntry {
	if bufferSize <= 0 {
		bufferSize = defaultChannelBufferSize
	}

	mu.Lock()
	defer mu.Unlock()
	isChannelMode = true
	channelMinimum = filterLevel
	entryChannel = make(chan LogEntry, bufferSize)
	return entryChannel
}

func logInternal(level LogLevel, subsystem string, err error, messageFmt string, args ...interface{}) {
	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	now := time.Now()

	mu.RLock()
	channelMode, ch, minimum, logger := isChannelMode, entryChannel, channelMinimum, defaultLogger
	mu.RUnlock()

	if channelMode {
		if level < minimum || ch == nil {
			return
		}
		select {
		case ch <- LogEntry{Timestamp: now, Level: level, Subsystem: subsystem, Message: msg, Err: err}:
		default:
		}
		return
	}

	if logger == nil {
		fmt.Fprintf(os.Stderr, "[LOGGING_ERROR] Logger not initialized. Log: %s [%s] %s\n", now.Format(time.RFC3339), level, msg)
		return
	}

	slogAttrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		slogAttrs = append(slogAttrs, slog.String("error", err.Error()))
	}

	logger.LogAttrs(context.Background(), level.SlogLevel(), msg, slogAttrs...)
}

// Debug logs a debug message.
func Debug(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an informational message.
func Info(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warning message.
func Warn(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error message.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}

// CloseChannel closes the channel sink. Should be called on shutdown when
// InitForChannel was used.
func CloseChannel() {
	mu.Lock()
	defer mu.Unlock()
	if entryChannel != nil {
		close(entryChannel)
		entryChannel = nil
	}
	isChannelMode = false
}
