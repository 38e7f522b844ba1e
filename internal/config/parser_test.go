package config

import (
	"testing"
	"time"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		content  string
		expected Format
	}{
		{"yaml extension", "upkeep.yaml", "", FormatYAML},
		{"yml extension", "upkeep.yml", "", FormatYAML},
		{"toml extension", "upkeep.toml", "", FormatTOML},
		{"json extension", "package.json", "", FormatJSON},
		{"json content", "upkeeprc", `{"auto_download": true}`, FormatJSON},
		{"yaml content", "upkeeprc", `auto_download: true`, FormatYAML},
		{"toml content", "upkeeprc", `auto_download = true`, FormatTOML},
		{"toml section", "upkeeprc", "# comment\n[feed]", FormatTOML},
		{"empty", "upkeeprc", "", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectFormat(tt.path, []byte(tt.content))
			if got != tt.expected {
				t.Errorf("detectFormat() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")
	t.Setenv("EMPTY_VAR", "")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple var", "${TEST_VAR}", "test_value"},
		{"var with default", "${MISSING_VAR:-default_value}", "default_value"},
		{"existing var ignores default", "${TEST_VAR:-default_value}", "test_value"},
		{"empty var uses default", "${EMPTY_VAR:-default_value}", "default_value"},
		{"no var", "plain text", "plain text"},
		{"mixed content", "prefix ${TEST_VAR} suffix", "prefix test_value suffix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(expandEnvVars([]byte(tt.input)))
			if got != tt.expected {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseYAML(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	content := []byte(`
manifest: app/package.json
auto_download: true
changelog_url: https://example.com/{owner}/{repo}/v{version}
feed:
  api_base: https://ghe.example.com/api/v3
  timeout: 10s
  include_prerelease: true
notes:
  file: NOTES.md
log:
  level: debug
`)

	s, err := parse(content, FormatYAML)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if s.Manifest != "app/package.json" {
		t.Errorf("Manifest = %q", s.Manifest)
	}
	if !s.AutoDownload {
		t.Error("AutoDownload should be true")
	}
	if s.Feed.APIBase != "https://ghe.example.com/api/v3" {
		t.Errorf("Feed.APIBase = %q", s.Feed.APIBase)
	}
	if s.Feed.Timeout.Std() != 10*time.Second {
		t.Errorf("Feed.Timeout = %v, want 10s", s.Feed.Timeout)
	}
	if !s.Feed.IncludePrerelease {
		t.Error("Feed.IncludePrerelease should be true")
	}
	if s.Notes.File != "NOTES.md" {
		t.Errorf("Notes.File = %q", s.Notes.File)
	}
	// unset keys keep defaults
	if s.Notes.Timeout.Std() != DefaultNotesTimeout {
		t.Errorf("Notes.Timeout = %v, want default", s.Notes.Timeout)
	}
	if s.Notes.APIBase != DefaultAPIBase {
		t.Errorf("Notes.APIBase = %q, want default", s.Notes.APIBase)
	}
	if s.Log.Level != "debug" || s.Log.File != DefaultLogFile {
		t.Errorf("Log = %+v", s.Log)
	}
	if s.Backup.Keep != DefaultBackupKeep {
		t.Errorf("Backup.Keep = %d, want default", s.Backup.Keep)
	}
}

func TestParseTOML(t *testing.T) {
	content := []byte(`
auto_download = true

[feed]
timeout = "45s"

[notes]
timeout = "2s"

[backup]
keep = 0
dir = "/var/cache/notes"
`)

	s, err := parse(content, FormatTOML)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if !s.AutoDownload {
		t.Error("AutoDownload should be true")
	}
	if s.Feed.Timeout.Std() != 45*time.Second {
		t.Errorf("Feed.Timeout = %v, want 45s", s.Feed.Timeout)
	}
	if s.Notes.Timeout.Std() != 2*time.Second {
		t.Errorf("Notes.Timeout = %v, want 2s", s.Notes.Timeout)
	}
	if s.Manifest != DefaultManifest {
		t.Errorf("Manifest = %q, want default", s.Manifest)
	}
	if s.Backup.Keep != 0 || s.Backup.Dir != "/var/cache/notes" {
		t.Errorf("Backup = %+v, want keep 0 in /var/cache/notes", s.Backup)
	}
}

func TestParseJSON(t *testing.T) {
	content := []byte(`{
  "auto_download": false,
  "feed": {"timeout": "1m", "include_prerelease": true},
  "log": {"level": "warn", "file": "/tmp/upkeep.log"}
}`)

	s, err := parse(content, FormatJSON)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if s.Feed.Timeout.Std() != time.Minute {
		t.Errorf("Feed.Timeout = %v, want 1m", s.Feed.Timeout)
	}
	if !s.Feed.IncludePrerelease {
		t.Error("Feed.IncludePrerelease should be true")
	}
	if s.Log.Level != "warn" || s.Log.File != "/tmp/upkeep.log" {
		t.Errorf("Log = %+v", s.Log)
	}
}

func TestParseInvalidDuration(t *testing.T) {
	if _, err := parse([]byte("feed:\n  timeout: soon\n"), FormatYAML); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestParseEnvVarExpansion(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "from-env")
	t.Setenv("UPKEEP_TEST_BASE", "https://mirror.example.com")

	content := []byte(`
feed:
  api_base: ${UPKEEP_TEST_BASE}
  token: ${UPKEEP_TEST_TOKEN:-fallback}
notes:
  api_base: ${UPKEEP_TEST_BASE}
`)

	s, err := parse(content, FormatYAML)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if s.Feed.APIBase != "https://mirror.example.com" {
		t.Errorf("Feed.APIBase = %q", s.Feed.APIBase)
	}
	if s.Feed.Token != "fallback" {
		t.Errorf("Feed.Token = %q, want fallback", s.Feed.Token)
	}

	s, err = parse([]byte("feed:\n  token: \"\"\n"), FormatYAML)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}
	if s.Feed.Token != "from-env" {
		t.Errorf("empty token should fall back to GITHUB_TOKEN, got %q", s.Feed.Token)
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte(" 90s ")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if d.Std() != 90*time.Second {
		t.Errorf("Duration = %v, want 90s", d)
	}
	text, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(text) != "1m30s" {
		t.Errorf("MarshalText() = %q, want 1m30s", text)
	}
	if err := d.UnmarshalText([]byte("ninety")); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestFormatString(t *testing.T) {
	cases := map[Format]string{
		FormatYAML:    "yaml",
		FormatTOML:    "toml",
		FormatJSON:    "json",
		FormatUnknown: "unknown",
	}
	for f, want := range cases {
		if got := f.String(); got != want {
			t.Errorf("Format(%d).String() = %q, want %q", f, got, want)
		}
	}
}
