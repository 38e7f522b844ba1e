package update

import (
	"fmt"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Version represents a semantic version.
// The zero value is an unset version; use IsZero to detect it.
type Version struct {
	v *goversion.Version
}

// ParseVersion parses a semantic version string
// Supports formats like "0.8.2", "v0.8.2", "0.9.0-rc.1"
func ParseVersion(s string) (Version, error) {
	v, err := goversion.NewSemver(strings.TrimSpace(s))
	if err != nil {
		return Version{}, fmt.Errorf("invalid version format: %s", s)
	}
	return Version{v: v}, nil
}

// MustParseVersion is like ParseVersion but panics on invalid input.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether the version is unset.
func (v Version) IsZero() bool {
	return v.v == nil
}

// String returns the string representation without the "v" prefix.
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// Original returns the version as it was written, without a "v" prefix.
// A short release "v2.3" stays "2.3" where String pads it to "2.3.0".
func (v Version) Original() string {
	if v.v == nil {
		return ""
	}
	return NormalizeVersion(v.v.Original())
}

// Tag returns the release tag for the version as published, e.g. "v2.3.0".
func (v Version) Tag() string {
	if v.v == nil {
		return ""
	}
	return "v" + v.Original()
}

// Prerelease returns the prerelease suffix, if any.
func (v Version) Prerelease() string {
	if v.v == nil {
		return ""
	}
	return v.v.Prerelease()
}

// Compare compares two versions
// Returns:
//   - 1 if v > other
//   - 0 if v == other
//   - -1 if v < other
//
// An unset version sorts before every set version.
func (v Version) Compare(other Version) int {
	switch {
	case v.v == nil && other.v == nil:
		return 0
	case v.v == nil:
		return -1
	case other.v == nil:
		return 1
	}
	return v.v.Compare(other.v)
}

// IsGreaterThan returns true if v > other
func (v Version) IsGreaterThan(other Version) bool {
	return v.Compare(other) > 0
}

// IsLessThan returns true if v < other
func (v Version) IsLessThan(other Version) bool {
	return v.Compare(other) < 0
}

// IsEqual returns true if v == other
func (v Version) IsEqual(other Version) bool {
	return v.Compare(other) == 0
}

// NormalizeVersion removes the 'v' prefix if present
func NormalizeVersion(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "v")
}

// IsDevelopmentVersion reports whether s names a local build that never
// receives updates.
func IsDevelopmentVersion(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dev", "development", "unknown":
		return true
	}
	return false
}
