package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		msg     func(l *Logger)
		want    string
		wantOut bool
	}{
		{"info passes at info", Config{Level: LevelInfo, Enabled: true}, func(l *Logger) { l.Info("hello") }, "msg=hello", true},
		{"debug dropped at info", Config{Level: LevelInfo, Enabled: true}, func(l *Logger) { l.Debug("hidden") }, "", false},
		{"debug passes at debug", Config{Level: LevelDebug, Enabled: true}, func(l *Logger) { l.Debug("shown") }, "msg=shown", true},
		{"disabled drops everything", Config{Level: LevelDebug}, func(l *Logger) { l.Error("nope") }, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.cfg.Output = &buf
			tt.msg(New(tt.cfg))
			if got := buf.Len() > 0; got != tt.wantOut {
				t.Fatalf("wrote output = %v, want %v (%q)", got, tt.wantOut, buf.String())
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestWithTarget(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf, Enabled: true}).WithTarget("head")
	l.Info("reduced", "keys", 4)
	out := buf.String()
	for _, want := range []string{"target=head", "msg=reduced", "keys=4"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}

func TestOrDiscard(t *testing.T) {
	var l *Logger
	if l.OrDiscard() == nil {
		t.Fatal("nil logger should fall back to a discarding logger")
	}
	l.OrDiscard().Info("dropped")

	discard := Discard()
	if discard.OrDiscard() != discard {
		t.Error("non-nil logger should be returned as is")
	}
}

func TestSetup(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		l, err := Setup(t.TempDir(), false, true)
		if err != nil {
			t.Fatal(err)
		}
		if l != nil {
			t.Fatal("expected nil logger when logging is disabled")
		}
		// Every method is safe on a nil logger.
		l.Info("x")
		l.Debug("x")
		l.Warn("x")
		l.Error("x")
		if l.FilePath() != "" {
			t.Error("nil logger has no file")
		}
		l.Slog().Info("x")
		if err := l.Close(); err != nil {
			t.Error(err)
		}
	})

	for _, verbose := range []bool{false, true} {
		name := "info"
		if verbose {
			name = "debug"
		}
		t.Run(name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "logs")
			l, err := Setup(dir, verbose, false)
			if err != nil {
				t.Fatal(err)
			}
			if filepath.Dir(l.FilePath()) != dir {
				t.Errorf("log file %s not in %s", l.FilePath(), dir)
			}
			l.Info("info %d", 1)
			l.Debug("debug %d", 2)
			l.Warn("warn %d", 3)
			l.Error("error %d", 4)
			l.Slog().Debug("structured")
			if err := l.Close(); err != nil {
				t.Fatal(err)
			}

			data, err := os.ReadFile(l.FilePath())
			if err != nil {
				t.Fatal(err)
			}
			out := string(data)
			for _, want := range []string{"[INFO] info 1", "[WARN] warn 3", "[ERROR] error 4"} {
				if !strings.Contains(out, want) {
					t.Errorf("log does not contain %q", want)
				}
			}
			if got := strings.Contains(out, "[DEBUG] debug 2"); got != verbose {
				t.Errorf("debug line present = %v, want %v", got, verbose)
			}
			if got := strings.Contains(out, "msg=structured"); got != verbose {
				t.Errorf("structured debug line present = %v, want %v", got, verbose)
			}
		})
	}
}
