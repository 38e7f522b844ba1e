package notes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/upkeep/internal/templates"
	"github.com/adamancini/upkeep/internal/update"
)

// ChangelogFile is the changelog document name.
const ChangelogFile = "CHANGELOG.md"

const (
	changelogHeader = "# Changelog\n\n"
	maxCommits      = 50
)

// CommitLog lists commit subjects for the commit summary.
type CommitLog interface {
	LatestTag() string
	CommitSubjects(since string) ([]string, error)
}

// Generator scaffolds release notes and changelog entries in a project directory.
type Generator struct {
	dir     string
	appName string
	commits CommitLog
	now     func() time.Time
}

// GenerateResult reports which documents Generate touched.
type GenerateResult struct {
	Version          string `json:"version" yaml:"version"`
	ReleaseNotes     string `json:"release_notes" yaml:"release_notes"`
	SectionAdded     bool   `json:"section_added" yaml:"section_added"`
	Changelog        string `json:"changelog,omitempty" yaml:"changelog,omitempty"`
	ChangelogUpdated bool   `json:"changelog_updated" yaml:"changelog_updated"`
}

// NewGenerator creates a generator writing into dir. commits may be nil,
// in which case sections carry no commit summary.
func NewGenerator(dir, appName string, commits CommitLog) *Generator {
	return &Generator{dir: dir, appName: appName, commits: commits, now: time.Now}
}

// Generate appends a section for version to the release notes unless one
// exists, and with changelog set does the same for the changelog.
// Existing sections are never rewritten.
func (g *Generator) Generate(version string, changelog bool) (GenerateResult, error) {
	version = update.NormalizeVersion(version)
	result := GenerateResult{Version: version, ReleaseNotes: filepath.Join(g.dir, DefaultFile)}
	if version == "" {
		return result, errors.New("version is required")
	}

	current, err := g.readOrCreate(result.ReleaseNotes)
	if err != nil {
		return result, err
	}

	if HasSection(current, version) {
		log.Infof("release notes for v%s already present", version)
	} else {
		section, err := templates.RenderReleaseNotes(g.section(version))
		if err != nil {
			return result, err
		}
		updated := strings.TrimRight(current, "\n") + "\n\n" + section
		if err := os.WriteFile(result.ReleaseNotes, []byte(updated), 0o644); err != nil {
			return result, fmt.Errorf("write %s: %w", DefaultFile, err)
		}
		result.SectionAdded = true
		log.Infof("generated release notes for v%s", version)
	}

	if changelog {
		result.Changelog = filepath.Join(g.dir, ChangelogFile)
		added, err := g.updateChangelog(result.Changelog, version)
		if err != nil {
			return result, err
		}
		result.ChangelogUpdated = added
	}
	return result, nil
}

func (g *Generator) readOrCreate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return string(data), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	header := fmt.Sprintf("# %s — Release Notes\n\n", g.appName)
	if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	return header, nil
}

func (g *Generator) updateChangelog(path, version string) (bool, error) {
	body := changelogHeader
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		body = string(data)
	case !errors.Is(err, os.ErrNotExist):
		return false, fmt.Errorf("read %s: %w", ChangelogFile, err)
	}
	if !strings.HasPrefix(body, "# Changelog") {
		body = changelogHeader + body
	}

	entry, err := templates.RenderChangelogEntry(version)
	if err != nil {
		return false, err
	}
	heading, _, _ := strings.Cut(entry, "\n")
	if strings.Contains(body, heading+"\n") {
		return false, nil
	}

	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	body += entry + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", ChangelogFile, err)
	}
	return true, nil
}

func (g *Generator) section(version string) templates.ReleaseSection {
	s := templates.ReleaseSection{
		Version: version,
		Date:    g.now().Format(time.DateOnly),
	}
	if g.commits == nil {
		return s
	}

	subjects, err := g.commits.CommitSubjects(g.commits.LatestTag())
	if err != nil {
		log.Debugf("commit summary unavailable: %v", err)
		return s
	}
	if len(subjects) > maxCommits {
		subjects = subjects[:maxCommits]
	}
	s.Commits = subjects

	for _, subject := range subjects {
		kind, text := classify(subject)
		switch kind {
		case "feat":
			s.Features = append(s.Features, text)
		case "fix":
			s.Fixes = append(s.Fixes, text)
		case "perf", "refactor", "style", "ui":
			s.Improvements = append(s.Improvements, text)
		}
	}
	return s
}

var conventionalCommit = regexp.MustCompile(`^(\w+)(?:\([^)]*\))?!?:\s*(.+)$`)

// classify splits a conventional commit subject into its type and description.
func classify(subject string) (string, string) {
	m := conventionalCommit.FindStringSubmatch(subject)
	if m == nil {
		return "", subject
	}
	return strings.ToLower(m[1]), capitalize(m[2])
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
