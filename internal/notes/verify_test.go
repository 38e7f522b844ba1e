package notes

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeDocs(t *testing.T, dir string, docs map[string]string) {
	t.Helper()
	for name, content := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name        string
		docs        map[string]string
		version     string
		wantMissing []string
		wantErr     error
	}{
		{
			name: "both documented",
			docs: map[string]string{
				ChangelogFile: "## v2.3.0 — Stable\n",
				DefaultFile:   "Version 2.3.0 ships today.\n",
			},
			version: "2.3.0",
		},
		{
			name: "changelog missing the version",
			docs: map[string]string{
				ChangelogFile: "## v2.2.0\n",
				DefaultFile:   "## v2.3.0\n",
			},
			version:     "v2.3.0",
			wantMissing: []string{ChangelogFile},
			wantErr:     ErrVersionUndocumented,
		},
		{
			name: "longer version does not count",
			docs: map[string]string{
				ChangelogFile: "## v2.3.01\n",
				DefaultFile:   "v12.3.0\n",
			},
			version:     "2.3.0",
			wantMissing: []string{ChangelogFile, DefaultFile},
			wantErr:     ErrVersionUndocumented,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeDocs(t, dir, tt.docs)

			result, err := Verify(dir, tt.version)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Verify() error = %v, want %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.wantMissing, result.Missing); diff != "" {
				t.Errorf("Missing mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(DocumentedFiles, result.Checked); diff != "" {
				t.Errorf("Checked mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVerifyMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, map[string]string{ChangelogFile: "v1.0.0"})

	_, err := Verify(dir, "1.0.0")
	if err == nil || !strings.Contains(err.Error(), "missing required file: "+DefaultFile) {
		t.Errorf("Verify() error = %v, want missing file error", err)
	}
}
