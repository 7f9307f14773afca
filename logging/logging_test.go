package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingWriterRotatesPastMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	w, err := NewRotatingWriter(path, 10)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("0123456789AB")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := w.Write([]byte("next")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	backup, err := os.ReadFile(path + ".1")
	if err != nil {
		t.Fatalf("expected backup file: %v", err)
	}
	if string(backup) != "0123456789AB" {
		t.Fatalf("unexpected backup contents %q", backup)
	}

	current, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read current: %v", err)
	}
	if string(current) != "next" {
		t.Fatalf("unexpected current contents %q", current)
	}
}

func TestNewRotatingWriterTruncatesOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 50)), 0644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w, err := NewRotatingWriter(path, 20)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer w.Close()

	if w.size != 0 {
		t.Fatalf("expected truncated size 0, got %d", w.size)
	}
}

func TestDebugfFollowsLevel(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)
	defer debugEnabled.Store(false)

	debugEnabled.Store(false)
	Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no output at info level, got %q", buf.String())
	}

	debugEnabled.Store(true)
	Debugf("shown %d", 2)
	if !strings.Contains(buf.String(), "DEBUG shown 2") {
		t.Fatalf("expected debug line, got %q", buf.String())
	}
}

func TestSetupEnablesDebugLevel(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	defer debugEnabled.Store(false)

	w, err := Setup(filepath.Join(t.TempDir(), "app.log"), "DEBUG")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer w.Close()

	if !debugEnabled.Load() {
		t.Fatalf("LOG_LEVEL debug should enable Debugf")
	}
}
