// Package config handles upkeep settings, their location resolution, and
// the packaging manifest that names the release repository.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Defaults for settings left unset.
const (
	DefaultManifest     = "package.json"
	DefaultAPIBase      = "https://api.github.com"
	DefaultFeedTimeout  = 30 * time.Second
	DefaultNotesFile    = "RELEASE_NOTES.md"
	DefaultNotesTimeout = 5 * time.Second
	DefaultLogLevel     = "info"
	DefaultLogFile      = "console"
	DefaultTokenEnv     = "GITHUB_TOKEN"
	DefaultBackupKeep   = 3
)

// ErrNotFound is returned by Find when no settings file exists.
var ErrNotFound = errors.New("no upkeep configuration found in standard locations")

// Duration is a time.Duration written as text ("30s", "1m") in every format.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Settings is the parsed upkeep configuration.
type Settings struct {
	Manifest     string         `yaml:"manifest" toml:"manifest" json:"manifest"`
	AutoDownload bool           `yaml:"auto_download" toml:"auto_download" json:"auto_download"`
	ChangelogURL string         `yaml:"changelog_url" toml:"changelog_url" json:"changelog_url"`
	Feed         FeedSettings   `yaml:"feed" toml:"feed" json:"feed"`
	Notes        NotesSettings  `yaml:"notes" toml:"notes" json:"notes"`
	Log          LogSettings    `yaml:"log" toml:"log" json:"log"`
	Backup       BackupSettings `yaml:"backup" toml:"backup" json:"backup"`

	// Path is the file the settings were loaded from, empty for defaults.
	Path string `yaml:"-" toml:"-" json:"-"`
}

// FeedSettings configures the GitHub release feed.
type FeedSettings struct {
	APIBase           string   `yaml:"api_base" toml:"api_base" json:"api_base"`
	Token             string   `yaml:"token" toml:"token" json:"token"`
	Timeout           Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
	IncludePrerelease bool     `yaml:"include_prerelease" toml:"include_prerelease" json:"include_prerelease"`
	BinaryPrefix      string   `yaml:"binary_prefix,omitempty" toml:"binary_prefix,omitempty" json:"binary_prefix,omitempty"`
}

// NotesSettings configures the release notes fallback sources.
type NotesSettings struct {
	File    string   `yaml:"file" toml:"file" json:"file"`
	APIBase string   `yaml:"api_base" toml:"api_base" json:"api_base"`
	Timeout Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
}

// BackupSettings configures the copies kept of replaced binaries.
type BackupSettings struct {
	// Keep is how many backups survive pruning; 0 disables backups.
	Keep int `yaml:"keep" toml:"keep" json:"keep"`
	// Dir overrides the backup directory under the user cache.
	Dir string `yaml:"dir,omitempty" toml:"dir,omitempty" json:"dir,omitempty"`
}

// LogSettings configures logging.
type LogSettings struct {
	Level string `yaml:"level" toml:"level" json:"level"`
	File  string `yaml:"file" toml:"file" json:"file"`
}

// Default returns settings with every default applied.
// The feed token is read from $GITHUB_TOKEN.
func Default() *Settings {
	return &Settings{
		Manifest: DefaultManifest,
		Feed: FeedSettings{
			APIBase: DefaultAPIBase,
			Token:   os.Getenv(DefaultTokenEnv),
			Timeout: Duration(DefaultFeedTimeout),
		},
		Notes: NotesSettings{
			File:    DefaultNotesFile,
			APIBase: DefaultAPIBase,
			Timeout: Duration(DefaultNotesTimeout),
		},
		Log: LogSettings{
			Level: DefaultLogLevel,
			File:  DefaultLogFile,
		},
		Backup: BackupSettings{
			Keep: DefaultBackupKeep,
		},
	}
}

// ChangelogFor returns the changelog reference for a release. The
// configured changelog_url template wins, then releaseURL, then the GitHub
// release page for the tag.
func (s *Settings) ChangelogFor(coords RepoCoordinates, version, releaseURL string) string {
	version = strings.TrimPrefix(version, "v")
	if s.ChangelogURL != "" {
		return strings.NewReplacer(
			"{owner}", coords.Owner,
			"{repo}", coords.Repo,
			"{version}", version,
		).Replace(s.ChangelogURL)
	}
	if releaseURL != "" {
		return releaseURL
	}
	return fmt.Sprintf("https://github.com/%s/%s/releases/tag/v%s", coords.Owner, coords.Repo, version)
}

// Dir returns the directory of the loaded settings file, or "" for defaults.
func (s *Settings) Dir() string {
	if s.Path == "" {
		return ""
	}
	return filepath.Dir(s.Path)
}

// SearchPaths returns the directories Find looks in, in order of precedence.
func SearchPaths() []string {
	var paths []string

	home, homeErr := os.UserHomeDir()

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" && homeErr == nil {
		xdgConfig = filepath.Join(home, ".config")
	}
	if xdgConfig != "" {
		paths = append(paths, filepath.Join(xdgConfig, "upkeep"))
	}

	if homeErr == nil {
		paths = append(paths, filepath.Join(home, ".upkeep"))
	}

	if wd, err := os.Getwd(); err == nil {
		paths = append(paths, wd)
	}
	return paths
}

// fileNames lists the settings file name variants.
var fileNames = []string{
	"upkeep.yaml",
	"upkeep.yml",
	"upkeep.toml",
	"upkeep.json",
	".upkeep.yaml",
	".upkeep.yml",
	".upkeep.toml",
	".upkeep.json",
}

// Find searches for a settings file in the standard locations.
// Returns the path to the first file found, or ErrNotFound.
func Find(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("specified config not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	if envPath := os.Getenv("UPKEEP_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	for _, dir := range SearchPaths() {
		for _, name := range fileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", ErrNotFound
}

// Load reads, parses and validates settings from path.
// Keys absent from the file keep their defaults.
func Load(path string) (*Settings, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(path, content)
}

// Parse parses and validates settings content as if it were read from
// path. The extension of path picks the format; without one the content
// is sniffed.
func Parse(path string, content []byte) (*Settings, error) {
	format := detectFormat(path, content)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unable to detect file format for %s", path)
	}

	settings, err := parse(content, format)
	if err != nil {
		return nil, err
	}
	settings.Path = path

	if err := Validate(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// LoadOrDefault finds and loads settings, falling back to defaults when
// no file exists anywhere. An explicit path that does not exist is an error.
func LoadOrDefault(explicitPath string) (*Settings, error) {
	path, err := Find(explicitPath)
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// ResolvePath returns path when it is absolute, otherwise the first
// existing candidate under dirs. When nothing exists the path relative to
// the first non-empty dir is returned.
func ResolvePath(path string, dirs ...string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	fallback := path
	for i := len(dirs) - 1; i >= 0; i-- {
		if dirs[i] != "" {
			fallback = filepath.Join(dirs[i], path)
		}
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return fallback
}
