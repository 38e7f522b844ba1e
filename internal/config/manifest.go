package config

import (
	"fmt"
	"os"
	"strings"
)

// Fallback repository used when the manifest does not name one.
const (
	DefaultOwner = "upkeep-app"
	DefaultRepo  = "upkeep"
)

// RepoCoordinates identifies the repository releases are published to.
type RepoCoordinates struct {
	Owner string `json:"owner" yaml:"owner"`
	Repo  string `json:"repo" yaml:"repo"`
}

// DefaultCoordinates returns the fallback repository.
func DefaultCoordinates() RepoCoordinates {
	return RepoCoordinates{Owner: DefaultOwner, Repo: DefaultRepo}
}

func (c RepoCoordinates) String() string {
	return c.Owner + "/" + c.Repo
}

// IsZero reports whether either part is missing.
func (c RepoCoordinates) IsZero() bool {
	return c.Owner == "" || c.Repo == ""
}

// Manifest is the subset of a package.json style manifest upkeep reads.
type Manifest struct {
	Name        string
	ProductName string
	Version     string
	Repo        RepoCoordinates
	// RepoFromManifest is false when Repo is the fallback pair.
	RepoFromManifest bool
	Path             string
}

// DisplayName returns the product name, falling back to the package name.
func (m *Manifest) DisplayName() string {
	if m.ProductName != "" {
		return m.ProductName
	}
	if m.Name != "" {
		return m.Name
	}
	return m.Repo.Repo
}

// rawManifest is an intermediate representation for parsing.
// repository and build.publish take several shapes.
type rawManifest struct {
	Name        string `yaml:"name" toml:"name" json:"name"`
	ProductName string `yaml:"productName" toml:"productName" json:"productName"`
	Version     string `yaml:"version" toml:"version" json:"version"`
	Repository  any    `yaml:"repository" toml:"repository" json:"repository"`
	Build       struct {
		Publish any `yaml:"publish" toml:"publish" json:"publish"`
	} `yaml:"build" toml:"build" json:"build"`
}

// LoadManifest reads the manifest at path. Missing repository information
// resolves to DefaultCoordinates.
func LoadManifest(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	format := detectFormat(path, content)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unable to detect file format for %s", path)
	}

	var raw rawManifest
	if err := decode(content, format, &raw); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	m := &Manifest{
		Name:        raw.Name,
		ProductName: raw.ProductName,
		Version:     strings.TrimSpace(raw.Version),
		Path:        path,
	}
	m.Repo, m.RepoFromManifest = resolveCoordinates(raw)
	if !m.RepoFromManifest {
		m.Repo = DefaultCoordinates()
	}
	return m, nil
}

// resolveCoordinates prefers build.publish over repository.
func resolveCoordinates(raw rawManifest) (RepoCoordinates, bool) {
	if c, ok := parsePublish(raw.Build.Publish); ok {
		return c, true
	}
	if c, ok := parseRepository(raw.Repository); ok {
		return c, true
	}
	return RepoCoordinates{}, false
}

// parsePublish accepts one publish record or a list of them.
// In a list the first GitHub record with owner and repo wins.
func parsePublish(publish any) (RepoCoordinates, bool) {
	switch v := publish.(type) {
	case map[string]any:
		return publishRecord(v)
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				if c, ok := publishRecord(m); ok {
					return c, true
				}
			}
		}
	case []map[string]any:
		for _, m := range v {
			if c, ok := publishRecord(m); ok {
				return c, true
			}
		}
	}
	return RepoCoordinates{}, false
}

func publishRecord(m map[string]any) (RepoCoordinates, bool) {
	if provider, ok := m["provider"].(string); ok && provider != "" && !strings.EqualFold(provider, "github") {
		return RepoCoordinates{}, false
	}
	owner, _ := m["owner"].(string)
	repo, _ := m["repo"].(string)
	c := RepoCoordinates{Owner: strings.TrimSpace(owner), Repo: strings.TrimSpace(repo)}
	return c, !c.IsZero()
}

// parseRepository accepts "owner/repo", "github:owner/repo", a GitHub URL
// in https, git+https, ssh or scp form, or a record with a url field.
func parseRepository(repository any) (RepoCoordinates, bool) {
	switch v := repository.(type) {
	case string:
		return parseRepositoryString(v)
	case map[string]any:
		if url, ok := v["url"].(string); ok {
			return parseRepositoryString(url)
		}
	}
	return RepoCoordinates{}, false
}

func parseRepositoryString(s string) (RepoCoordinates, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "git+")
	s = strings.TrimPrefix(s, "github:")

	for _, prefix := range []string{"https://github.com/", "http://github.com/", "ssh://git@github.com/", "git://github.com/", "git@github.com:"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	if strings.Contains(s, "://") || strings.HasPrefix(s, "git@") {
		return RepoCoordinates{}, false
	}

	s = strings.TrimSuffix(strings.TrimSuffix(s, "/"), ".git")
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return RepoCoordinates{}, false
	}
	c := RepoCoordinates{Owner: parts[0], Repo: parts[1]}
	return c, !c.IsZero()
}
