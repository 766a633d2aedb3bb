package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeycumines/inline-annotator/internal/config"
	"github.com/joeycumines/inline-annotator/internal/storage"
)

func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config"))
	t.Setenv("ANNOTATOR_STORAGE", "")
	t.Setenv("ANNOTATOR_STORAGE_DIR", filepath.Join(dir, "annotations"))
	t.Setenv("ANNOTATOR_LOG_FILE", "")
	t.Setenv("ANNOTATOR_LOG_LEVEL", "")
	t.Cleanup(storage.ResetPaths)
}

func TestRun(t *testing.T) {
	isolate(t)

	for _, tc := range []struct {
		name    string
		args    []string
		stdin   string
		wantOut string
		wantErr bool
	}{
		{name: "no args", wantOut: "Commands:"},
		{name: "help flag", args: []string{"--help"}, wantOut: "apply"},
		{name: "version", args: []string{"version"}, wantOut: "annotator version " + version},
		{name: "unknown", args: []string{"paint"}, wantErr: true},
		{name: "bad flag", args: []string{"show", "--nope"}, wantErr: true},
		{name: "apply", args: []string{"apply", "--id", "2", "--save", "--quiet"}, stdin: "add shape at 10 10\n", wantOut: "added shape #"},
		{name: "list", args: []string{"show"}, wantOut: "REVISION"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tc.args, strings.NewReader(tc.stdin), &stdout, &stderr)
			if (err != nil) != tc.wantErr {
				t.Fatalf("run(%v) error = %v, stderr: %s", tc.args, err, stderr.String())
			}
			if !strings.Contains(stdout.String(), tc.wantOut) {
				t.Errorf("run(%v) stdout = %q, want %q", tc.args, stdout.String(), tc.wantOut)
			}
		})
	}
}
