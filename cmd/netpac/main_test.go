package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/netpac/internal/maps"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      log.Level
	}{
		{0, log.InfoLevel},
		{1, log.DebugLevel},
		{2, log.DebugLevel},
	}
	for _, tc := range tests {
		if got := logLevel(tc.verbosity); got != tc.want {
			t.Errorf("logLevel(%d) = %v, expected %v", tc.verbosity, got, tc.want)
		}
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netpac.log")
	logger, closeLog := newLogger(0, path)
	logger.Info("player joined", "name", "alice")
	logger.Debug("hidden at info level")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Log file not written: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "player joined") || !strings.Contains(out, "alice") {
		t.Errorf("Log file missing entry: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("Debug entry written at info level")
	}
}

func TestMapsTable(t *testing.T) {
	a, err := maps.Parse("arena.map", []byte("2222\n2132\n2412\n2222\n"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := maps.Parse("maze.map", []byte("222\n212\n222\n"))
	if err != nil {
		t.Fatal(err)
	}

	out := mapsTable([]*maps.Map{a, b})
	for _, want := range []string{"Name", "Dots", "arena.map", "maze.map"} {
		if !strings.Contains(out, want) {
			t.Errorf("Table missing %q:\n%s", want, out)
		}
	}
}
