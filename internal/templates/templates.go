// Package templates provides the embedded configuration templates for
// upkeep init and the markdown templates used to scaffold release notes.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"text/template"
)

//go:embed *.yaml *.tmpl
var templatesFS embed.FS

// Template represents a configuration template with metadata.
type Template struct {
	Name        string
	Description string
	Content     []byte
}

// Available templates with their descriptions.
var templateDescriptions = map[string]string{
	"minimal": "Manifest and feed token only",
	"full":    "Every setting with its default",
}

var markdown = template.Must(template.ParseFS(templatesFS, "*.tmpl"))

// ReleaseSection is the data rendered into a release notes section.
type ReleaseSection struct {
	Version      string
	Date         string
	Features     []string
	Improvements []string
	Fixes        []string
	Commits      []string
}

// List returns all available configuration template names sorted alphabetically.
func List() []string {
	entries, err := templatesFS.ReadDir(".")
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}

	sort.Strings(names)
	return names
}

// Get returns a configuration template by name.
func Get(name string) (*Template, error) {
	filename := name + ".yaml"
	content, err := templatesFS.ReadFile(filename)
	if err != nil {
		if pathErr, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("template '%s' not found: %w", name, pathErr)
		}
		return nil, fmt.Errorf("failed to read template '%s': %w", name, err)
	}

	return &Template{
		Name:        name,
		Description: templateDescriptions[name],
		Content:     content,
	}, nil
}

// GetDescription returns the description for a template.
func GetDescription(name string) string {
	if desc, ok := templateDescriptions[name]; ok {
		return desc
	}
	return "Custom template"
}

// RenderReleaseNotes renders the RELEASE_NOTES.md section for s.
func RenderReleaseNotes(s ReleaseSection) (string, error) {
	return render("release_notes.md.tmpl", s)
}

// RenderChangelogEntry renders the CHANGELOG.md entry for version.
func RenderChangelogEntry(version string) (string, error) {
	return render("changelog.md.tmpl", ReleaseSection{Version: version})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := markdown.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
