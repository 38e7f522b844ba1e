package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// isolate points every search location at empty temp directories.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", filepath.Join(root, "home"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "xdg"))
	t.Setenv("UPKEEP_CONFIG", "")
	t.Chdir(filepath.Join(mkdir(t, root, "work")))
	return root
}

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	dir := filepath.Join(parts...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	mkdir(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFind(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		root := isolate(t)
		path := writeFile(t, filepath.Join(root, "custom.yaml"), "auto_download: true\n")
		got, err := Find(path)
		if err != nil || got != path {
			t.Errorf("Find() = %q, %v; want %q", got, err, path)
		}
	})

	t.Run("explicit path missing", func(t *testing.T) {
		root := isolate(t)
		if _, err := Find(filepath.Join(root, "missing.yaml")); err == nil || errors.Is(err, ErrNotFound) {
			t.Errorf("Find() error = %v, want a specific not found error", err)
		}
	})

	t.Run("environment variable", func(t *testing.T) {
		root := isolate(t)
		path := writeFile(t, filepath.Join(root, "env.toml"), "auto_download = true\n")
		t.Setenv("UPKEEP_CONFIG", path)
		got, err := Find("")
		if err != nil || got != path {
			t.Errorf("Find() = %q, %v; want %q", got, err, path)
		}
	})

	t.Run("xdg before home and cwd", func(t *testing.T) {
		root := isolate(t)
		xdg := writeFile(t, filepath.Join(root, "xdg", "upkeep", "upkeep.yaml"), "")
		writeFile(t, filepath.Join(root, "home", ".upkeep", "upkeep.yaml"), "")
		writeFile(t, "upkeep.yaml", "")
		got, err := Find("")
		if err != nil || got != xdg {
			t.Errorf("Find() = %q, %v; want %q", got, err, xdg)
		}
	})

	t.Run("home dot directory", func(t *testing.T) {
		root := isolate(t)
		home := writeFile(t, filepath.Join(root, "home", ".upkeep", "upkeep.json"), "{}")
		got, err := Find("")
		if err != nil || got != home {
			t.Errorf("Find() = %q, %v; want %q", got, err, home)
		}
	})

	t.Run("hidden file in cwd", func(t *testing.T) {
		isolate(t)
		writeFile(t, ".upkeep.yml", "")
		got, err := Find("")
		if err != nil || filepath.Base(got) != ".upkeep.yml" {
			t.Errorf("Find() = %q, %v; want .upkeep.yml", got, err)
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		isolate(t)
		if _, err := Find(""); !errors.Is(err, ErrNotFound) {
			t.Errorf("Find() error = %v, want ErrNotFound", err)
		}
	})
}

func TestLoad(t *testing.T) {
	root := isolate(t)
	path := writeFile(t, filepath.Join(root, "upkeep.yaml"), "auto_download: true\nlog:\n  level: debug\n")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !s.AutoDownload || s.Log.Level != "debug" {
		t.Errorf("Load() = %+v", s)
	}
	if s.Path != path || s.Dir() != root {
		t.Errorf("Path = %q, Dir = %q", s.Path, s.Dir())
	}

	bad := writeFile(t, filepath.Join(root, "bad.yaml"), "feed:\n  timeout: 0s\n")
	if _, err := Load(bad); err == nil {
		t.Error("Load() should reject invalid settings")
	}

	if _, err := Load(filepath.Join(root, "missing.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestLoadOrDefault(t *testing.T) {
	isolate(t)
	t.Setenv("GITHUB_TOKEN", "tok")

	s, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if s.Path != "" || s.Dir() != "" {
		t.Errorf("defaults should have no path, got %q", s.Path)
	}
	if s.Feed.Token != "tok" {
		t.Errorf("Feed.Token = %q, want token from environment", s.Feed.Token)
	}
	if s.Feed.Timeout.Std() != DefaultFeedTimeout || s.Notes.File != DefaultNotesFile {
		t.Errorf("defaults not applied: %+v", s)
	}

	if _, err := LoadOrDefault("does-not-exist.yaml"); err == nil {
		t.Error("LoadOrDefault() should fail for a missing explicit path")
	}
}

func TestChangelogFor(t *testing.T) {
	coords := RepoCoordinates{Owner: "acme", Repo: "widget"}

	tests := []struct {
		name       string
		template   string
		version    string
		releaseURL string
		want       string
	}{
		{
			name:     "template",
			template: "https://docs.example.com/{owner}/{repo}/changes#v{version}",
			version:  "v2.0.0",
			want:     "https://docs.example.com/acme/widget/changes#v2.0.0",
		},
		{
			name:       "release url",
			version:    "2.0.0",
			releaseURL: "https://github.com/acme/widget/releases/tag/v2.0.0-custom",
			want:       "https://github.com/acme/widget/releases/tag/v2.0.0-custom",
		},
		{
			name:    "tag page",
			version: "2.0.0",
			want:    "https://github.com/acme/widget/releases/tag/v2.0.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			s.ChangelogURL = tt.template
			if got := s.ChangelogFor(coords, tt.version, tt.releaseURL); got != tt.want {
				t.Errorf("ChangelogFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(second, "package.json"), "{}")

	if got := ResolvePath("/abs/package.json", first); got != "/abs/package.json" {
		t.Errorf("absolute path changed: %q", got)
	}
	if got := ResolvePath("package.json", first, second); got != filepath.Join(second, "package.json") {
		t.Errorf("ResolvePath() = %q, want existing candidate", got)
	}
	if got := ResolvePath("missing.json", "", first, second); got != filepath.Join(first, "missing.json") {
		t.Errorf("ResolvePath() = %q, want first dir fallback", got)
	}
	if got := ResolvePath("missing.json"); got != "missing.json" {
		t.Errorf("ResolvePath() = %q, want unchanged", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
		wantErr bool
	}{
		{name: "toml by extension", path: "upkeep.toml", content: "auto_download = true\n"},
		{name: "json sniffed", path: "settings", content: `{"auto_download": true}`},
		{name: "yaml content under toml name", path: "upkeep.toml", content: "auto_download: true\n", wantErr: true},
		{name: "fails validation", path: "upkeep.yaml", content: "backup:\n  keep: -1\n", wantErr: true},
		{name: "undetectable", path: "settings", content: "just words", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(tt.path, []byte(tt.content))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Parse() expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !s.AutoDownload || s.Path != tt.path {
				t.Errorf("Parse() = %+v, want auto_download from %s", s, tt.path)
			}
		})
	}
}
