package diag

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorKindsMatchSentinels(t *testing.T) {
	err := fmt.Errorf("function main: %w", Errorf(KindUndeclared, "x"))
	if !errors.Is(err, ErrUndeclared) {
		t.Errorf("errors.Is(%v, ErrUndeclared) = false, want true", err)
	}
	if errors.Is(err, ErrRedefinition) {
		t.Errorf("errors.Is(%v, ErrRedefinition) = true, want false", err)
	}
	var de *Error
	if !errors.As(err, &de) || de.Kind != KindUndeclared {
		t.Errorf("errors.As did not recover kind, got %v", de)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{Errorf(KindLoopControl, "break"), "loop control outside loop: break"},
		{ErrAllocator, "register allocation failure"},
		{&Error{Kind: Kind(99)}, "?"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LevelWarning, "sysyc")
	l.Tracef("regalloc", "hidden %d", 1)
	l.Warnf("shown %d", 2)
	l.Error(errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("trace printed at warning level: %q", out)
	}
	for _, want := range []string{"warning:", "shown 2", "error:", "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var l *Logger
	l.Tracef("x", "y")
	l.Warnf("z")
	l.Error(errors.New("e"))
	if l.Level() != LevelSilent {
		t.Errorf("nil logger level = %v, want silent", l.Level())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"verbose", LevelVerbose, false},
		{"WARN", LevelWarning, false},
		{"", LevelError, false},
		{"silent", LevelSilent, false},
		{"loud", LevelError, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
