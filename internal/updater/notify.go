package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/lipgloss"

	"github.com/grove-sh/grove/internal/github"
	"github.com/grove-sh/grove/internal/xdg"
	"github.com/grove-sh/grove/pkg/logger"
)

const (
	// defaultCheckInterval limits how often the notifier queries the
	// registry between invocations.
	defaultCheckInterval = 24 * time.Hour

	// defaultCheckTimeout bounds the registry query so a hung
	// connection never delays the hosting command.
	defaultCheckTimeout = 3 * time.Second

	// stateFileMode is the permission mode for the check-state file.
	stateFileMode = 0o600
)

// checkState is what the notifier persists between invocations.
type checkState struct {
	CheckedAt time.Time `json:"checked_at"`
	LatestTag string    `json:"latest_tag"`
}

// Notifier performs a best-effort, advisory update check. It shares no
// state with an explicit update run, never writes to the installed
// binary, and swallows every failure: its only job is a nudge, and it
// must never degrade the hosting command.
type Notifier struct {
	currentVersion string
	ghClient       github.Client
	stateFile      string
	interval       time.Duration
	timeout        time.Duration
	log            logger.Logger
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithStateFile overrides the path of the persisted check state.
func WithStateFile(path string) NotifierOption {
	return func(n *Notifier) { n.stateFile = path }
}

// WithCheckInterval overrides how often the registry is queried.
func WithCheckInterval(interval time.Duration) NotifierOption {
	return func(n *Notifier) { n.interval = interval }
}

// WithCheckTimeout overrides the registry query timeout.
func WithCheckTimeout(timeout time.Duration) NotifierOption {
	return func(n *Notifier) { n.timeout = timeout }
}

// WithNotifierLogger attaches a logger.
func WithNotifierLogger(log logger.Logger) NotifierOption {
	return func(n *Notifier) { n.log = log }
}

// NewNotifier creates a Notifier for the given running version.
func NewNotifier(currentVersion string, ghClient github.Client, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		currentVersion: currentVersion,
		ghClient:       ghClient,
		stateFile:      xdg.UpdateStateFile(),
		interval:       defaultCheckInterval,
		timeout:        defaultCheckTimeout,
		log:            logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// bannerStyle frames the advisory message.
var bannerStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("3")).
	Padding(0, 2)

// Notify checks whether a newer release exists and, if so, writes an
// advisory banner to out. The registry is queried at most once per
// interval; between queries the cached tag is used. Failures of any
// kind are logged at debug level and otherwise discarded.
func (n *Notifier) Notify(ctx context.Context, out io.Writer) {
	if n.currentVersion == "dev" {
		return
	}

	latest, err := n.latestTag(ctx)
	if err != nil {
		n.log.Debug("update check skipped", "error", err)

		return
	}

	if latest == "" {
		return
	}

	currentVer, err := semver.NewVersion(strings.TrimPrefix(n.currentVersion, "v"))
	if err != nil {
		n.log.Debug("unparseable running version", "version", n.currentVersion)

		return
	}

	latestVer, err := semver.NewVersion(strings.TrimPrefix(latest, "v"))
	if err != nil {
		n.log.Debug("unparseable latest tag", "tag", latest)

		return
	}

	if !currentVer.LessThan(latestVer) {
		return
	}

	msg := fmt.Sprintf(
		"A new version of grove is available: v%s -> %s\nRun 'grove update' to install",
		currentVer, latest,
	)

	fmt.Fprintln(out, bannerStyle.Render(msg))
}

// latestTag returns the latest release tag, from the cached state when
// it is fresh enough, otherwise from the registry.
func (n *Notifier) latestTag(ctx context.Context) (string, error) {
	if state, ok := n.loadState(); ok && time.Since(state.CheckedAt) < n.interval {
		return state.LatestTag, nil
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	release, err := n.ghClient.GetLatestRelease(ctx, GitHubOwner, GitHubRepo)
	if err != nil {
		return "", err
	}

	n.saveState(checkState{CheckedAt: time.Now().UTC(), LatestTag: release.TagName})

	return release.TagName, nil
}

// loadState reads the persisted check state, if any.
//
//nolint:gosec // G304: state path comes from xdg, not user input
func (n *Notifier) loadState() (checkState, bool) {
	var state checkState

	data, err := os.ReadFile(n.stateFile)
	if err != nil {
		return state, false
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return state, false
	}

	return state, !state.CheckedAt.IsZero()
}

// saveState persists the check state, best effort.
func (n *Notifier) saveState(state checkState) {
	data, err := json.Marshal(state)
	if err != nil {
		return
	}

	if err := xdg.EnsureDir(filepath.Dir(n.stateFile)); err != nil {
		n.log.Debug("cannot create state directory", "error", err)

		return
	}

	if err := os.WriteFile(n.stateFile, data, stateFileMode); err != nil {
		n.log.Debug("cannot persist check state", "error", err)
	}
}
