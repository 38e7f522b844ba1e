package update

import (
	"fmt"
	"runtime"
)

// DefaultBinaryPrefix is the asset name prefix published for each platform.
const DefaultBinaryPrefix = "upkeep"

// ChecksumAssetName is the release asset holding SHA-256 sums.
const ChecksumAssetName = "checksums.txt"

// Detect returns the current platform (OS and architecture)
func Detect() Platform {
	return Platform{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}
}

// BinaryName returns the release asset name for this platform
// e.g., "upkeep-darwin-arm64" or "upkeep-windows-amd64.exe"
func (p Platform) BinaryName(prefix string) string {
	if prefix == "" {
		prefix = DefaultBinaryPrefix
	}
	name := fmt.Sprintf("%s-%s-%s", prefix, p.OS, p.Arch)
	if p.OS == "windows" {
		name += ".exe"
	}
	return name
}

// String returns "os/arch".
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// IsSupported returns true if release assets are published for this platform
func (p Platform) IsSupported() bool {
	supportedPlatforms := map[string][]string{
		"darwin":  {"amd64", "arm64"},
		"linux":   {"amd64", "arm64"},
		"windows": {"amd64"},
	}

	archs, ok := supportedPlatforms[p.OS]
	if !ok {
		return false
	}

	for _, arch := range archs {
		if p.Arch == arch {
			return true
		}
	}

	return false
}
