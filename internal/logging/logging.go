package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/alda-lang/alda-client/internal/config"
)

// Logger appends leveled lines to a file. A nil *Logger discards everything,
// so packages can take one as an optional dependency.
type Logger struct {
	file   *os.File
	logger *log.Logger
	level  int
}

func New(path string) (*Logger, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	// Info and above always reach the file; ALDA_DEBUG opens up debug/trace.
	level := config.DebugLevel()
	if level < config.LogInfo {
		level = config.LogInfo
	}

	return &Logger{
		file:   file,
		logger: log.New(file, "", 0),
		level:  level,
	}, nil
}

// NewWriter logs to w at the given level. Used by tests and --verbose.
func NewWriter(w io.Writer, level int) *Logger {
	return &Logger{
		logger: log.New(w, "", 0),
		level:  level,
	}
}

func (l *Logger) Close() error {
	if l != nil && l.file != nil {
		return l.file.Close()
	}
	return nil
}

// SetLevel raises or lowers the threshold (config.LogError .. config.LogTrace).
func (l *Logger) SetLevel(level int) {
	if l != nil {
		l.level = level
	}
}

func (l *Logger) log(level int, name, msg string) {
	if l == nil || level > l.level {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.logger.Printf("[%s] %s: %s", timestamp, name, msg)
}

func (l *Logger) Error(msg string) {
	l.log(config.LogError, "ERROR", msg)
}

func (l *Logger) Warn(msg string) {
	l.log(config.LogWarn, "WARN", msg)
}

func (l *Logger) Info(msg string) {
	l.log(config.LogInfo, "INFO", msg)
}

func (l *Logger) Debug(msg string) {
	l.log(config.LogDebug, "DEBUG", msg)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}
