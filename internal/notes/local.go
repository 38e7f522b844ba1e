package notes

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/adamancini/upkeep/internal/update"
)

// DefaultFile is the local notes document name.
const DefaultFile = "RELEASE_NOTES.md"

// LocalSource reads bullets from a markdown document with "## v<version>" sections.
type LocalSource struct {
	path string
	dirs []string
}

// NewLocalSource returns a source for path. A relative path is looked up
// in each of dirs in order; with no dirs it is used as given.
func NewLocalSource(path string, dirs ...string) *LocalSource {
	if path == "" {
		path = DefaultFile
	}
	return &LocalSource{path: path, dirs: dirs}
}

// SearchDirs returns the directory next to the running executable followed
// by the working directory.
func SearchDirs() []string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	return dirs
}

// Name implements Source.
func (s *LocalSource) Name() string {
	return "local:" + s.path
}

// Bullets implements Source.
func (s *LocalSource) Bullets(ctx context.Context, version update.Version) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotesUnavailable, err)
	}

	doc, path, err := s.read()
	if err != nil {
		return nil, err
	}

	body, ok := Section(doc, version.Original())
	if !ok && version.Original() != version.String() {
		body, ok = Section(doc, version.String())
	}
	if !ok {
		return nil, fmt.Errorf("%w: no section for %s in %s", ErrNotesUnavailable, version.Tag(), path)
	}
	return Extract(body), nil
}

func (s *LocalSource) read() (string, string, error) {
	candidates := []string{s.path}
	if !filepath.IsAbs(s.path) && len(s.dirs) > 0 {
		candidates = candidates[:0]
		for _, dir := range s.dirs {
			candidates = append(candidates, filepath.Join(dir, s.path))
		}
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", path, fmt.Errorf("%w: read %s: %v", ErrNotesUnavailable, path, err)
		}
		return string(data), path, nil
	}
	return "", "", fmt.Errorf("%w: %s not found", ErrNotesUnavailable, s.path)
}

// headingPattern matches "## v<version>" followed by the end of the line or
// a separator, so v2.3.0 does not match a v2.3.0-rc.1 heading.
func headingPattern(version string) *regexp.Regexp {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	return regexp.MustCompile(`^##\s+v` + regexp.QuoteMeta(version) + `(?:[^\w.+-].*)?$`)
}

// Section returns the body of the first "## v<version>" section in doc.
// The body runs until the next level-two heading.
func Section(doc, version string) (string, bool) {
	if strings.TrimSpace(version) == "" {
		return "", false
	}
	heading := headingPattern(version)

	var (
		body  []string
		found bool
	)
	scanner := bufio.NewScanner(strings.NewReader(doc))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if found {
			if strings.HasPrefix(line, "## ") {
				break
			}
			body = append(body, line)
			continue
		}
		found = heading.MatchString(line)
	}
	if !found {
		return "", false
	}
	return strings.Join(body, "\n"), true
}

// HasSection reports whether doc already carries a section for version.
func HasSection(doc, version string) bool {
	_, ok := Section(doc, version)
	return ok
}
