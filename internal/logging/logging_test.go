package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// smallWriter opens a writer with a byte limit below the 1 MB API minimum.
func smallWriter(t *testing.T, path string, maxBytes int64, maxFiles int) *RotatingFileWriter {
	t.Helper()
	w, err := NewRotatingFileWriter(path, 1, maxFiles)
	if err != nil {
		t.Fatalf("NewRotatingFileWriter: %v", err)
	}
	w.maxBytes = maxBytes
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile %s: %v", path, err)
	}
	return string(data)
}

func TestRotatingFileWriterRotates(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "logs", "annotator.log")
	w := smallWriter(t, path, 10, 2)

	for _, line := range []string{"aaaaaaa\n", "bbbbbbb\n", "ccccccc\n", "ddddddd\n"} {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if got := readFile(t, path); got != "ddddddd\n" {
		t.Errorf("current = %q", got)
	}
	if got := readFile(t, path+".1"); got != "ccccccc\n" {
		t.Errorf(".1 = %q", got)
	}
	if got := readFile(t, path+".2"); got != "bbbbbbb\n" {
		t.Errorf(".2 = %q", got)
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf(".3 should not exist, stat err = %v", err)
	}
}

func TestRotatingFileWriterNoBackups(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "a.log")
	w := smallWriter(t, path, 5, 0)
	_, _ = w.Write([]byte("first\n"))
	_, _ = w.Write([]byte("second\n"))
	if got := readFile(t, path); got != "second\n" {
		t.Errorf("current = %q", got)
	}
	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Errorf("unexpected backup, stat err = %v", err)
	}
}

func TestRotatingFileWriterAppendsAndCloses(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "a.log")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewRotatingFileWriter(path, 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if w.size != 4 || w.maxFiles != 0 || w.maxBytes != 1<<20 {
		t.Errorf("size=%d maxFiles=%d maxBytes=%d", w.size, w.maxFiles, w.maxBytes)
	}
	_, _ = w.Write([]byte("new\n"))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := w.Write([]byte("x")); err == nil {
		t.Error("Write after Close succeeded")
	}
	if got := readFile(t, path); got != "old\nnew\n" {
		t.Errorf("file = %q", got)
	}
}

func TestRotatingFileWriterConcurrent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "a.log")
	w := smallWriter(t, path, 1<<20, 1)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_, _ = w.Write([]byte(strings.Repeat(string(rune('a'+i)), 9) + "\n"))
			}
		}()
	}
	wg.Wait()
	got := readFile(t, path)
	if lines := strings.Count(got, "\n"); lines != 400 {
		t.Errorf("lines = %d, want 400", lines)
	}
}

func TestRingHandler(t *testing.T) {
	t.Parallel()
	h := NewRingHandler(3, slog.LevelInfo)
	log := slog.New(h).With("annotation", 7).WithGroup("item")
	log.Debug("dropped")
	log.Info("added", "id", 1)
	log.Info("moved", "id", 2, slog.Group("to", "x", 10))
	log.Warn("deleted", "id", 3)
	log.Error("save failed", "err", "disk full")

	got := h.Entries()
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3", len(got))
	}
	if got[0].Message != "moved" || got[2].Message != "save failed" {
		t.Errorf("order = %q, %q, %q", got[0].Message, got[1].Message, got[2].Message)
	}
	want := map[string]string{"annotation": "7", "item.id": "2", "item.to.x": "10"}
	for k, v := range want {
		if got[0].Attrs[k] != v {
			t.Errorf("attr %s = %q, want %q (all %v)", k, got[0].Attrs[k], v, got[0].Attrs)
		}
	}

	if recent := h.Recent(1); len(recent) != 1 || recent[0].Message != "save failed" {
		t.Errorf("Recent(1) = %v", recent)
	}
	if found := h.Search("DISK"); len(found) != 1 || found[0].Message != "save failed" {
		t.Errorf("Search = %v", found)
	}
	if found := h.Search("delete"); len(found) != 1 {
		t.Errorf("Search by message = %v", found)
	}
}

func TestNewWithFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "annotator.log")
	l, err := New(Options{Level: slog.LevelInfo, File: path, MaxSizeMB: 1, MaxFiles: 1, BufferSize: 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Debug("hidden")
	l.Info("item added", "item", 4)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(readFile(t, path)), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q", lines)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if rec["msg"] != "item added" || rec["item"] != 4.0 {
		t.Errorf("record = %v", rec)
	}
	if n := len(l.Ring.Entries()); n != 1 {
		t.Errorf("ring entries = %d", n)
	}
}

func TestNewWithStderr(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l, err := New(Options{Level: slog.LevelDebug, Stderr: &buf})
	if err != nil {
		t.Fatal(err)
	}
	l.Info("quiet")
	l.Warn("loud")
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "msg=loud") {
		t.Errorf("stderr = %q", buf.String())
	}
	if n := len(l.Ring.Entries()); n != 2 {
		t.Errorf("ring entries = %d, want 2", n)
	}
	if err := l.Close(); err != nil {
		t.Error(err)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error")
	}
}
