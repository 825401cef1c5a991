package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("want error for unknown level")
	}
}

func TestNewWithFileCore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "jamdeck.log")
	log, err := New(Config{Level: "debug", File: path})
	if err != nil {
		t.Fatal(err)
	}
	log.Info("hello")
	log.Sync()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("nothing written to the log file")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	level, err := parseLevel("")
	if err != nil {
		t.Fatal(err)
	}
	if level.String() != "info" {
		t.Errorf("empty level parsed to %v, want info", level)
	}
}
