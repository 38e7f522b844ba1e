package notes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/adamancini/upkeep/internal/update"
)

// ErrVersionUndocumented is returned when a document does not mention the version.
var ErrVersionUndocumented = errors.New("version not documented")

// VerifyResult lists the documents checked and those missing the version.
type VerifyResult struct {
	Version string   `json:"version" yaml:"version"`
	Checked []string `json:"checked" yaml:"checked"`
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// DocumentedFiles are the documents that must mention a release before tagging.
var DocumentedFiles = []string{ChangelogFile, DefaultFile}

// Verify checks that every file in DocumentedFiles under dir mentions version
// as "v<version>" or "<version>" on word boundaries.
func Verify(dir, version string) (VerifyResult, error) {
	version = update.NormalizeVersion(version)
	result := VerifyResult{Version: version}
	if version == "" {
		return result, errors.New("version is required")
	}

	quoted := regexp.QuoteMeta(version)
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`\bv` + quoted + `\b`),
		regexp.MustCompile(`\b` + quoted + `\b`),
	}

	for _, name := range DocumentedFiles {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return result, fmt.Errorf("missing required file: %s", name)
		}
		result.Checked = append(result.Checked, name)

		found := false
		for _, re := range patterns {
			if re.Match(data) {
				found = true
				break
			}
		}
		if !found {
			result.Missing = append(result.Missing, name)
		}
	}

	if len(result.Missing) > 0 {
		return result, fmt.Errorf("%w: %s not found in %s", ErrVersionUndocumented, version, strings.Join(result.Missing, ", "))
	}
	return result, nil
}
