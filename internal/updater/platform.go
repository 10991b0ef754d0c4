// Package updater provides self-update functionality for grove.
package updater

import (
	"fmt"
	"runtime"
)

const (
	// GitHubOwner is the repository owner on GitHub.
	GitHubOwner = "grove-sh"
	// GitHubRepo is the repository name on GitHub.
	GitHubRepo = "grove"
	// BinaryName is the name of the binary to extract from archives.
	BinaryName = "grove"
)

// Platform represents the OS and architecture of the machine running
// the update. Derived once per process and read-only afterwards.
type Platform struct {
	OS   string
	Arch string
}

// DetectPlatform returns the current OS and architecture.
func DetectPlatform() Platform {
	return Platform{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}
}

// IsWindows returns true if the platform is Windows.
func (p Platform) IsWindows() bool {
	return p.OS == "windows"
}

// ExecutableName returns the binary name expected inside release
// archives, including the .exe suffix on Windows.
func (p Platform) ExecutableName() string {
	if p.IsWindows() {
		return BinaryName + ".exe"
	}

	return BinaryName
}

// String returns the os/arch pair, e.g. "linux/amd64".
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// ReleaseURL returns the URL to the release page for a tag.
func ReleaseURL(tag string) string {
	return fmt.Sprintf(
		"https://github.com/%s/%s/releases/tag/%s",
		GitHubOwner, GitHubRepo, tag,
	)
}
