package updater

import (
	"context"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"

	"github.com/grove-sh/grove/internal/github"
	"github.com/grove-sh/grove/pkg/logger"
)

// ErrAlreadyLatest is returned when the current version is already the latest.
var ErrAlreadyLatest = errors.New("already up to date")

// UpdateResult contains the outcome of an update operation.
type UpdateResult struct {
	PreviousVersion string
	NewVersion      string
	BinaryPath      string
}

// Updater sequences the update pipeline: resolve release, match asset,
// download, extract, install. It owns cleanup of every temporary file
// and is the only component that touches the installed binary. Each
// stage failure is terminal for the attempt; there are no internal
// retries and the install target is left untouched on failure.
type Updater struct {
	currentVersion string
	ghClient       github.Client
	downloader     *Downloader
	platform       Platform
	targetPath     string
	log            logger.Logger
}

// Option configures an Updater.
type Option func(*Updater)

// WithPlatform overrides the detected platform.
func WithPlatform(p Platform) Option {
	return func(u *Updater) { u.platform = p }
}

// WithDownloader overrides the default downloader.
func WithDownloader(d *Downloader) Option {
	return func(u *Updater) { u.downloader = d }
}

// WithTargetPath installs to an explicit path instead of the resolved
// running executable.
func WithTargetPath(path string) Option {
	return func(u *Updater) { u.targetPath = path }
}

// WithLogger attaches a logger.
func WithLogger(log logger.Logger) Option {
	return func(u *Updater) { u.log = log }
}

// NewUpdater creates a new Updater.
func NewUpdater(currentVersion string, ghClient github.Client, opts ...Option) *Updater {
	u := &Updater{
		currentVersion: currentVersion,
		ghClient:       ghClient,
		downloader:     NewDownloader(nil),
		platform:       DetectPlatform(),
		log:            logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// CheckLatest fetches the latest release and compares its tag against
// the running version. Returns ErrAlreadyLatest when current >= latest
// (after stripping the "v" prefix); dev builds always get the latest.
// No further I/O happens once the short-circuit fires.
func (u *Updater) CheckLatest(ctx context.Context) (*github.Release, error) {
	release, err := u.ghClient.GetLatestRelease(ctx, GitHubOwner, GitHubRepo)
	if err != nil {
		return nil, errors.Wrap(err, "checking latest release")
	}

	if u.currentVersion == "dev" {
		return release, nil
	}

	latestVer, err := semver.NewVersion(strings.TrimPrefix(release.TagName, "v"))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing latest version %q", release.TagName)
	}

	currentVer, err := semver.NewVersion(strings.TrimPrefix(u.currentVersion, "v"))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing current version %q", u.currentVersion)
	}

	if !currentVer.LessThan(latestVer) {
		return nil, ErrAlreadyLatest
	}

	return release, nil
}

// ValidateTargetVersion normalizes a requested version, verifies the
// release exists, and returns it. Accepts both "v1.2.0" and "1.2.0".
func (u *Updater) ValidateTargetVersion(
	ctx context.Context,
	version string,
) (*github.Release, error) {
	stripped := strings.TrimPrefix(version, "v")

	if _, err := semver.NewVersion(stripped); err != nil {
		return nil, errors.Newf("invalid version %q: must be valid semver (e.g. v1.2.0)", version)
	}

	tag := "v" + stripped

	release, err := u.ghClient.GetReleaseByTag(ctx, GitHubOwner, GitHubRepo, tag)
	if err != nil {
		if errors.Is(err, github.ErrReleaseNotFound) {
			return nil, errors.Newf("release %s not found", tag)
		}

		return nil, errors.Wrapf(err, "checking release %s", tag)
	}

	return release, nil
}

// Update runs the full pipeline against the given release descriptor:
// select asset -> download -> extract -> install. All-or-nothing: every
// temporary file is removed on the way out, and only the final install
// step writes to the target.
func (u *Updater) Update(
	ctx context.Context,
	release *github.Release,
	progress ProgressFunc,
) (*UpdateResult, error) {
	asset, err := SelectAsset(release, u.platform)
	if err != nil {
		return nil, err
	}

	u.log.Info("selected release asset",
		"tag", release.TagName,
		"asset", asset.Name,
		"platform", u.platform.String(),
	)

	staged, err := u.downloader.Download(ctx, asset.DownloadURL, KindForAssetName(asset.Name), progress)
	if err != nil {
		return nil, errors.Wrap(err, "downloading archive")
	}

	defer staged.Remove()

	extracted, cleanup, err := ExtractBinary(staged, u.platform.ExecutableName())
	if err != nil {
		return nil, err
	}

	defer cleanup()

	target := u.targetPath

	if target == "" {
		target, err = CurrentBinaryPath()
		if err != nil {
			return nil, err
		}
	}

	if installErr := Install(extracted, target); installErr != nil {
		return nil, installErr
	}

	u.log.Info("binary installed", "path", target, "version", release.TagName)

	return &UpdateResult{
		PreviousVersion: strings.TrimPrefix(u.currentVersion, "v"),
		NewVersion:      strings.TrimPrefix(release.TagName, "v"),
		BinaryPath:      target,
	}, nil
}
