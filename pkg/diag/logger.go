package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
)

// Level gates which messages a Logger prints
type Level int

const (
	LevelSilent Level = iota
	LevelError
	LevelWarning
	LevelVerbose
)

// ParseLevel maps a level name to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "silent":
		return LevelSilent, nil
	case "error", "":
		return LevelError, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "verbose":
		return LevelVerbose, nil
	}
	return LevelError, fmt.Errorf("unknown log level %q", s)
}

var (
	errorTag  = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	errorText = pterm.FgRed
	warnTag   = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	warnText  = pterm.FgYellow
	traceTag  = pterm.NewStyle(pterm.FgLightGreen)
	traceText = pterm.FgGray
)

// Logger writes styled diagnostics to a writer. A nil *Logger discards
// everything, so passes can log unconditionally.
type Logger struct {
	w     io.Writer
	level Level
	tag   string
}

// NewLogger creates a logger tagged with the program name
func NewLogger(w io.Writer, level Level, tag string) *Logger {
	return &Logger{w: w, level: level, tag: tag}
}

// Level returns the logger's level
func (l *Logger) Level() Level {
	if l == nil {
		return LevelSilent
	}
	return l.level
}

// Error reports a failure
func (l *Logger) Error(err error) {
	if l.Level() < LevelError {
		return
	}
	fmt.Fprintf(l.w, "%s %s\n", errorTag.Sprint(l.tag+": error:"), errorText.Sprint(err.Error()))
}

// Warnf reports a non-fatal condition
func (l *Logger) Warnf(format string, args ...any) {
	if l.Level() < LevelWarning {
		return
	}
	fmt.Fprintf(l.w, "%s %s\n", warnTag.Sprint(l.tag+": warning:"), warnText.Sprint(fmt.Sprintf(format, args...)))
}

// Tracef reports pass-level progress
func (l *Logger) Tracef(pass, format string, args ...any) {
	if l.Level() < LevelVerbose {
		return
	}
	fmt.Fprintf(l.w, "%s %s\n", traceTag.Sprint("["+pass+"]"), traceText.Sprint(fmt.Sprintf(format, args...)))
}
