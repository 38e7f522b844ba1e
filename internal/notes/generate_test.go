package notes

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakeCommits struct {
	tag      string
	subjects []string
	err      error
	since    string
}

func (f *fakeCommits) LatestTag() string { return f.tag }

func (f *fakeCommits) CommitSubjects(since string) ([]string, error) {
	f.since = since
	return f.subjects, f.err
}

func newTestGenerator(dir string, commits CommitLog) *Generator {
	g := NewGenerator(dir, "Notes App", commits)
	g.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestGenerateCreatesReleaseNotes(t *testing.T) {
	dir := t.TempDir()
	commits := &fakeCommits{tag: "v2.2.0", subjects: []string{
		"feat(ui): tray menu",
		"fix: crash on quit",
		"refactor: split updater",
		"bump deps",
	}}

	result, err := newTestGenerator(dir, commits).Generate("v2.3.0", false)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !result.SectionAdded || result.ChangelogUpdated {
		t.Errorf("Generate() = %+v", result)
	}
	if commits.since != "v2.2.0" {
		t.Errorf("commits listed since %q, want v2.2.0", commits.since)
	}

	doc := readFile(t, filepath.Join(dir, DefaultFile))
	if !strings.HasPrefix(doc, "# Notes App — Release Notes\n\n## v2.3.0 — Stable\nRelease Date: 2026-03-01\n") {
		t.Errorf("unexpected document start:\n%s", doc)
	}

	body, ok := Section(doc, "2.3.0")
	if !ok {
		t.Fatal("generated document has no v2.3.0 section")
	}
	want := []string{
		"- Tray menu",
		"- Split updater",
		"- Crash on quit",
		"- feat(ui): tray menu",
		"- fix: crash on quit",
		"- refactor: split updater",
		"- bump deps",
		"- Tag repository with `v2.3.0` and publish to GitHub Releases.",
	}
	if diff := cmp.Diff(want, Extract(body)); diff != "" {
		t.Errorf("section bullets mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	g := newTestGenerator(dir, nil)

	if _, err := g.Generate("2.3.0", true); err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	notes := readFile(t, filepath.Join(dir, DefaultFile))
	changelog := readFile(t, filepath.Join(dir, ChangelogFile))

	result, err := g.Generate("2.3.0", true)
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}
	if result.SectionAdded || result.ChangelogUpdated {
		t.Errorf("second Generate() = %+v, want no changes", result)
	}
	if got := readFile(t, filepath.Join(dir, DefaultFile)); got != notes {
		t.Errorf("release notes changed on second run")
	}
	if got := readFile(t, filepath.Join(dir, ChangelogFile)); got != changelog {
		t.Errorf("changelog changed on second run")
	}
}

func TestGenerateKeepsExistingContent(t *testing.T) {
	dir := t.TempDir()
	existing := "# Notes App — Release Notes\n\n## v2.2.0 — Stable\n- Older fix\n\n\n"
	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ChangelogFile), []byte("## v2.2.0 — Stable\n- old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := newTestGenerator(dir, &fakeCommits{err: errors.New("not a repo")}).Generate("2.3.0", true); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	doc := readFile(t, filepath.Join(dir, DefaultFile))
	if !strings.HasPrefix(doc, "# Notes App — Release Notes\n\n## v2.2.0 — Stable\n- Older fix\n\n## v2.3.0 — Stable\n") {
		t.Errorf("existing content not preserved:\n%s", doc)
	}
	if strings.Contains(doc, "### Commit Summary") {
		t.Error("commit summary should be omitted when git is unavailable")
	}

	changelog := readFile(t, filepath.Join(dir, ChangelogFile))
	want := "# Changelog\n\n## v2.2.0 — Stable\n- old\n## v2.3.0 — Stable\n- See RELEASE_NOTES.md for detailed changes.\n\n"
	if changelog != want {
		t.Errorf("changelog = %q, want %q", changelog, want)
	}
}

func TestGenerateCapsCommitSummary(t *testing.T) {
	var subjects []string
	for i := 0; i < 60; i++ {
		subjects = append(subjects, "chore: tidy")
	}
	dir := t.TempDir()
	if _, err := newTestGenerator(dir, &fakeCommits{subjects: subjects}).Generate("1.0.0", false); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	doc := readFile(t, filepath.Join(dir, DefaultFile))
	if got := strings.Count(doc, "- chore: tidy\n"); got != maxCommits {
		t.Errorf("commit summary has %d entries, want %d", got, maxCommits)
	}
}

func TestGenerateRequiresVersion(t *testing.T) {
	if _, err := newTestGenerator(t.TempDir(), nil).Generate(" ", false); err == nil {
		t.Error("Generate() expected error for empty version")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		subject  string
		wantKind string
		wantText string
	}{
		{"feat: add tray", "feat", "Add tray"},
		{"fix(updater)!: handle 404", "fix", "Handle 404"},
		{"Perf: faster", "perf", "Faster"},
		{"plain subject", "", "plain subject"},
		{"fix:", "", "fix:"},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			kind, text := classify(tt.subject)
			if kind != tt.wantKind || text != tt.wantText {
				t.Errorf("classify(%q) = %q, %q; want %q, %q", tt.subject, kind, text, tt.wantKind, tt.wantText)
			}
		})
	}
}
