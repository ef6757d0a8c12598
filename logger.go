// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package scpi

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel type defines the severity of a log message.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelNone // Disables logging
)

// LevelToString maps LogLevel to its string representation.
var LevelToString = map[LogLevel]string{
	LevelDebug:   "DEBUG",
	LevelInfo:    "INFO",
	LevelWarning: "WARNING",
	LevelError:   "ERROR",
	LevelNone:    "NONE",
}

// StringToLevel maps string representation of LogLevel to its value.
var StringToLevel = map[string]LogLevel{
	"DEBUG":   LevelDebug,
	"INFO":    LevelInfo,
	"WARNING": LevelWarning,
	"ERROR":   LevelError,
	"NONE":    LevelNone,
}

// SimpleLogger is a leveled io.WriteCloser suitable for SetLogger on the
// connection façade. Messages written to it carry an optional level prefix
// such as "[DEBUG]" or "ERROR:", from which the level is inferred.
type SimpleLogger struct {
	mu         sync.Mutex
	level      LogLevel
	output     io.Writer
	timeFormat string
	prefix     string
}

// NewSimpleLogger creates a new SimpleLogger instance.
// If output is nil, it defaults to os.Stdout.
func NewSimpleLogger(output io.Writer, level LogLevel, prefix string) *SimpleLogger {
	if output == nil {
		output = os.Stdout
	}
	return &SimpleLogger{
		level:      level,
		output:     output,
		timeFormat: time.RFC3339,
		prefix:     prefix,
	}
}

// SetLevel sets the logging level of the SimpleLogger.
func (l *SimpleLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current logging level of the SimpleLogger.
func (l *SimpleLogger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetLevelFromString sets the logging level from a string representation (e.g. "DEBUG").
func (l *SimpleLogger) SetLevelFromString(levelStr string) error {
	if level, ok := StringToLevel[strings.ToUpper(levelStr)]; ok {
		l.SetLevel(level)
		return nil
	}
	return fmt.Errorf("invalid log level: %s", levelStr)
}

// Write implements io.Writer. Messages below the configured level are
// silently accepted and dropped.
func (l *SimpleLogger) Write(p []byte) (n int, err error) {
	message := string(p)
	level := determineLevel(message)

	if level < l.GetLevel() || l.GetLevel() == LevelNone {
		return len(p), nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	timestamp := time.Now().Format(l.timeFormat)
	formatted := fmt.Sprintf("%s [%s] <%s> %s\n",
		timestamp, LevelToString[level], l.prefix, strings.TrimSpace(message))
	return l.output.Write([]byte(formatted))
}

// Close implements io.Closer. It closes the underlying output if it is
// closable and not os.Stdout.
func (l *SimpleLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if closer, ok := l.output.(io.Closer); ok && l.output != os.Stdout {
		return closer.Close()
	}
	return nil
}

// determineLevel infers the log level from the message prefix, defaulting
// to LevelInfo.
func determineLevel(message string) LogLevel {
	upper := strings.ToUpper(message)
	switch {
	case strings.HasPrefix(upper, "[DEBUG]") || strings.HasPrefix(upper, "DEBUG:"):
		return LevelDebug
	case strings.HasPrefix(upper, "[WARNING]") || strings.HasPrefix(upper, "WARN:") || strings.HasPrefix(upper, "WARNING:"):
		return LevelWarning
	case strings.HasPrefix(upper, "[ERROR]") || strings.HasPrefix(upper, "ERROR:"):
		return LevelError
	default:
		return LevelInfo
	}
}
