package updater

import (
	"fmt"
	"strings"

	"github.com/grove-sh/grove/internal/github"
)

// ArchiveKind identifies the container format of a release asset.
// It is decided from the asset's name suffix, never sniffed from
// content, so the extractor choice is deterministic before any bytes
// are downloaded.
type ArchiveKind int

const (
	// KindTarGz is a gzip-compressed tar archive.
	KindTarGz ArchiveKind = iota
	// KindZip is a zip archive.
	KindZip
)

// String returns a human-readable name for the archive kind.
func (k ArchiveKind) String() string {
	if k == KindZip {
		return "zip"
	}

	return "tar.gz"
}

// KindForAssetName returns the archive kind implied by an asset name.
// Anything that is not a zip is treated as tar+gzip, matching how
// releases have historically been packaged.
func KindForAssetName(name string) ArchiveKind {
	if strings.HasSuffix(strings.ToLower(name), ".zip") {
		return KindZip
	}

	return KindTarGz
}

// legacyArch maps the runtime architecture to the token used by the
// pre-rename release naming scheme.
func legacyArch(arch string) string {
	if arch == "amd64" {
		return "x86_64"
	}

	return arch
}

// legacyOS returns the capitalized OS token used by the pre-rename
// release naming scheme (e.g. "Darwin", "Linux").
func legacyOS(osName string) string {
	if osName == "" {
		return osName
	}

	return strings.ToUpper(osName[:1]) + osName[1:]
}

// osTokens returns every OS token releases have been published under for
// the platform. Darwin assets exist with both "darwin" and "macOS" slugs.
func osTokens(osName string) []string {
	if osName == "darwin" {
		return []string{"darwin", "macOS"}
	}

	return []string{osName}
}

// A namingScheme produces candidate asset names for a version and
// platform. Schemes are tried in priority order; appending a new
// scheme is all it takes to support another convention.
type namingScheme func(version string, p Platform) []string

// currentNaming is the convention releases use today:
// grove_<version>_<os>_<arch>.<ext>, occasionally published with the
// v-prefixed tag instead of the bare version.
func currentNaming(version string, p Platform) []string {
	var names []string

	for _, ver := range []string{version, "v" + version} {
		for _, osToken := range osTokens(p.OS) {
			for _, ext := range []string{"tar.gz", "zip"} {
				names = append(names,
					fmt.Sprintf("%s_%s_%s_%s.%s", BinaryName, ver, osToken, p.Arch, ext))
			}
		}
	}

	return names
}

// historicalNaming covers releases published before the naming-scheme
// change: capitalized OS, x86_64 instead of amd64, no version in the
// name, sometimes without an archive extension at all.
func historicalNaming(_ string, p Platform) []string {
	archToken := legacyArch(p.Arch)

	var names []string

	for _, osToken := range osTokens(p.OS) {
		osToken = legacyOS(osToken)

		names = append(names,
			fmt.Sprintf("%s_%s_%s", BinaryName, osToken, archToken),
			fmt.Sprintf("%s_%s_%s.tar.gz", BinaryName, osToken, archToken),
			fmt.Sprintf("%s_%s_%s.zip", BinaryName, osToken, archToken),
		)
	}

	return names
}

// namingSchemes lists all known conventions, newest first.
var namingSchemes = []namingScheme{currentNaming, historicalNaming}

// CandidateNames returns every asset name the given version could have
// been published under for this platform, in priority order.
// Version should be without the "v" prefix.
func CandidateNames(version string, p Platform) []string {
	var names []string

	for _, scheme := range namingSchemes {
		names = append(names, scheme(version, p)...)
	}

	return names
}

// NoMatchingAssetError is returned when no release asset matches the
// platform. It carries every asset name seen so the user can tell
// whether the release simply doesn't ship their platform.
type NoMatchingAssetError struct {
	Platform   Platform
	Tag        string
	AssetNames []string
}

// Error returns the error message.
func (e *NoMatchingAssetError) Error() string {
	return fmt.Sprintf(
		"no release asset matches %s in release %s (assets: %s)",
		e.Platform, e.Tag, strings.Join(e.AssetNames, ", "),
	)
}

// SelectAsset picks the release asset for the platform.
//
// Pass one compares every candidate name (current and historical
// conventions) case-insensitively against every asset. Pass two
// tolerates naming drift: an asset is accepted if its lowercased name
// contains one of the OS slugs and either the primary or legacy
// architecture token, first registry-ordered match winning.
func SelectAsset(release *github.Release, p Platform) (github.Asset, error) {
	version := strings.TrimPrefix(release.TagName, "v")

	for _, candidate := range CandidateNames(version, p) {
		for _, asset := range release.Assets {
			if strings.EqualFold(asset.Name, candidate) {
				return asset, nil
			}
		}
	}

	archToken := strings.ToLower(p.Arch)
	legacyToken := strings.ToLower(legacyArch(p.Arch))

	for _, asset := range release.Assets {
		name := strings.ToLower(asset.Name)
		if containsOSToken(name, p.OS) &&
			(strings.Contains(name, archToken) || strings.Contains(name, legacyToken)) {
			return asset, nil
		}
	}

	names := make([]string, 0, len(release.Assets))
	for _, asset := range release.Assets {
		names = append(names, asset.Name)
	}

	return github.Asset{}, &NoMatchingAssetError{
		Platform:   p,
		Tag:        release.TagName,
		AssetNames: names,
	}
}

// containsOSToken reports whether the lowercased asset name mentions any
// of the platform's OS slugs.
func containsOSToken(name, osName string) bool {
	for _, token := range osTokens(osName) {
		if strings.Contains(name, strings.ToLower(token)) {
			return true
		}
	}

	return false
}
