// Package logx is a thin leveled-logging wrapper in the teacher's own
// style: bracketed prefixes over plain fmt.Printf (see
// internal/llm/queue/manager.go's "[Queue] ..." convention), rather than
// a third-party structured logger the example pack never reaches for.
// Level prefixes are colorized with fatih/color when the output is a
// terminal.
package logx

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

var (
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	infoColor  = color.New(color.FgCyan)
)

// Logger writes leveled, prefixed lines to an underlying writer. Safe for
// concurrent use by multiple executor goroutines.
type Logger struct {
	mu  sync.Mutex
	out io.Writer
}

// Default is the process-wide logger, writing to stderr.
var Default = New(os.Stderr)

// New builds a Logger writing to out.
func New(out io.Writer) *Logger {
	return &Logger{out: out}
}

func (l *Logger) line(c *color.Color, prefix, format string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(l.out, c.Sprintf("[%s] %s", prefix, msg))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) { l.line(infoColor, "INFO", format, args) }

// Warn logs a warning — used for skip/no-handler/orphan notices.
func (l *Logger) Warn(format string, args ...any) { l.line(warnColor, "WARN", format, args) }

// Error logs a failure.
func (l *Logger) Error(format string, args ...any) { l.line(errorColor, "ERROR", format, args) }
