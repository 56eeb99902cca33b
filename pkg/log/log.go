// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log prints copy runs to a terminal and mirrors every line into
// zerolog.
package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent file entries
	nameWidth   = 35 // Base width for filename
	sizeWidth   = 10 // Width for the size column
	statusWidth = 10 // Width for status text
)

// 🚦 Status is the outcome shown for one file
type Status string

const (
	StatusCopied    Status = "copied"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusRemoved   Status = "removed"
	StatusExtracted Status = "extracted"
)

// 🎯 FileOperation represents a file operation for logging
type FileOperation struct {
	Path   string // File path
	Size   int64  // Bytes involved, when known
	Status Status // Operation status
	Err    error  // Cause of a failure
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
	counts  map[Status]int
	bytes   int64
}

// 🏭 New creates a logger writing human lines to console and structured
// records to zlog
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
		counts:  map[Status]int{},
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context, or a logger that prints
// nothing when none was set
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		return New(io.Discard, *zerolog.Ctx(ctx))
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatFileOperation formats a file operation for display
func (l *Logger) formatFileOperation(op FileOperation) string {
	var symbol rune
	var symbolColor color.Attribute
	switch op.Status {
	case StatusCopied, StatusExtracted:
		symbol = '✓'
		symbolColor = color.FgGreen
	case StatusFailed:
		symbol = '✗'
		symbolColor = color.FgRed
	case StatusRemoved:
		symbol = '-'
		symbolColor = color.FgYellow
	default:
		symbol = '•'
		symbolColor = color.FgCyan
	}

	line := fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, op.Path),
		color.New(color.Faint).Sprint(fmt.Sprintf("%*s", sizeWidth, FormatBytes(op.Size))),
		fmt.Sprintf("%-*s", statusWidth, op.Status))

	if op.Err != nil {
		line += " " + color.New(color.FgRed).Sprint(op.Err.Error())
	}
	return line
}

// 📝 LogFileOperation logs a file operation
func (l *Logger) LogFileOperation(ctx context.Context, op FileOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts[op.Status]++
	if op.Status == StatusCopied {
		l.bytes += op.Size
	}

	fmt.Fprintln(l.console, l.formatFileOperation(op))

	ev := l.zlog.Info()
	if op.Err != nil {
		ev = l.zlog.Warn().Err(op.Err)
	}
	ev.Str("file", op.Path).
		Int64("size", op.Size).
		Str("status", string(op.Status)).
		Msg("file operation")
}

// Count returns how many files were logged with status
func (l *Logger) Count(status Status) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[status]
}

// 📝 Summary prints the totals of everything logged so far
func (l *Logger) Summary() {
	l.mu.Lock()
	copied, failed, cancelled := l.counts[StatusCopied], l.counts[StatusFailed], l.counts[StatusCancelled]
	bytes := l.bytes
	l.mu.Unlock()

	msg := fmt.Sprintf("%d copied (%s), %d failed, %d cancelled", copied, FormatBytes(bytes), failed, cancelled)
	switch {
	case failed > 0:
		l.Error(msg)
	case cancelled > 0:
		l.Warning(msg)
	default:
		l.Success(msg)
	}
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("copytree")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
