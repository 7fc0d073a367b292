package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileRotation(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "scenetool.log")

	// 1MB is the smallest size lumberjack rotates at.
	err := InitWithFileConfig("debug", FileConfig{Path: logFile, MaxSizeMB: 1, MaxBackups: 2, MaxAgeDays: 1}, false)
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	defer Sync()

	issue := strings.Repeat("geometry.layer.UVSet[0].empty ", 8)
	for i := 0; i < 15000; i++ {
		Sugar.Infof("validation issue %d: %s", i, issue)
	}
	Sync()

	if _, err := os.Stat(logFile); err != nil {
		t.Fatalf("current log file: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read log dir: %v", err)
	}
	rotated := 0
	for _, e := range entries {
		name := e.Name()
		if name == "scenetool.log" || !strings.HasPrefix(name, "scenetool-") {
			continue
		}
		rotated++
		// scenetool-2006-01-02T15-04-05.000.log
		if !strings.HasSuffix(name, ".log") || !strings.Contains(name, "-20") {
			t.Errorf("rotated file %s lacks the timestamp suffix", name)
		}
	}
	if rotated == 0 {
		t.Error("no rotated files found")
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		level string
		want  []string
		not   []string
	}{
		{"error", []string{"ERROR"}, []string{"WARN", "INFO", "DEBUG"}},
		{"warning", []string{"ERROR", "WARN"}, []string{"INFO", "DEBUG"}},
		{"INFO", []string{"ERROR", "WARN", "INFO"}, []string{"DEBUG"}},
		{"debug", []string{"ERROR", "WARN", "INFO", "DEBUG"}, nil},
		{"verbose", []string{"INFO"}, []string{"DEBUG"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logFile := filepath.Join(t.TempDir(), "level.log")
			if err := InitWithFileConfig(tt.level, FileConfig{Path: logFile, MaxSizeMB: 10}, false); err != nil {
				t.Fatalf("failed to init logger: %v", err)
			}

			Debug("reconcile step")
			Info("export finished")
			Warn("close session")
			Error("export failed")
			Sync()

			content, err := os.ReadFile(logFile)
			if err != nil {
				t.Fatalf("failed to read log file: %v", err)
			}
			for _, level := range tt.want {
				if !strings.Contains(string(content), level) {
					t.Errorf("expected %s in log output", level)
				}
			}
			for _, level := range tt.not {
				if strings.Contains(string(content), level) {
					t.Errorf("unexpected %s in log output at level %s", level, tt.level)
				}
			}
		})
	}
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/var/log/scenetool.log")
	want := FileConfig{Path: "/var/log/scenetool.log", MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 7, Compress: true}
	if cfg != want {
		t.Errorf("DefaultFileConfig = %+v, want %+v", cfg, want)
	}
}

func TestJSONFileFormatAndNamed(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "scene.log")
	err := InitWithOptions(Options{Level: "info", Format: "json", File: FileConfig{Path: logFile, MaxSizeMB: 1}})
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	Named("export").Info("export finished")
	Sync()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{`"logger":"export"`, `"msg":"export finished"`, `"level":"INFO"`} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %s in %q", want, line)
		}
	}
}

func TestConsoleWriter(t *testing.T) {
	var buf strings.Builder
	l, err := New(Options{Level: "WARN", Console: &buf})
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	l.Info("hidden")
	l.Warn("shown")
	_ = l.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("expected warn message in %q", out)
	}
}
