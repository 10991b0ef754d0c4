package updater_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/grove-sh/grove/internal/github"
	"github.com/grove-sh/grove/internal/updater"
)

// mockClient implements github.Client for testing.
type mockClient struct {
	latestRelease *github.Release
	latestErr     error
	latestCalls   atomic.Int64
	tagReleases   map[string]*github.Release
	tagErr        error
}

func (m *mockClient) GetLatestRelease(_ context.Context, _, _ string) (*github.Release, error) {
	m.latestCalls.Add(1)

	return m.latestRelease, m.latestErr
}

func (m *mockClient) GetReleaseByTag(_ context.Context, _, _, tag string) (*github.Release, error) {
	if m.tagErr != nil {
		return nil, m.tagErr
	}

	if rel, ok := m.tagReleases[tag]; ok {
		return rel, nil
	}

	return nil, github.ErrReleaseNotFound
}

func (*mockClient) IsAuthenticated() bool {
	return false
}

// tarGzArchive builds an in-memory tar.gz holding one file.
func tarGzArchive(name string, content []byte) []byte {
	var buf bytes.Buffer

	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	header := &tar.Header{Name: name, Size: int64(len(content)), Mode: 0o755}
	if err := tw.WriteHeader(header); err != nil {
		panic(err)
	}

	if _, err := tw.Write(content); err != nil {
		panic(err)
	}

	_ = tw.Close()
	_ = gw.Close()

	return buf.Bytes()
}

// zipArchive builds an in-memory zip holding one file.
func zipArchive(name string, content []byte) []byte {
	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	w, err := zw.Create(name)
	if err != nil {
		panic(err)
	}

	if _, err := w.Write(content); err != nil {
		panic(err)
	}

	_ = zw.Close()

	return buf.Bytes()
}

var _ = Describe("Updater", func() {
	Describe("CheckLatest", func() {
		It("returns the release when a newer version is available", func() {
			client := &mockClient{
				latestRelease: &github.Release{TagName: "v0.3.0"},
			}
			up := updater.NewUpdater("0.2.0", client)

			release, err := up.CheckLatest(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(release.TagName).To(Equal("v0.3.0"))
		})

		It("returns ErrAlreadyLatest when the tag equals the running version", func() {
			client := &mockClient{
				latestRelease: &github.Release{TagName: "v0.2.0"},
			}
			up := updater.NewUpdater("0.2.0", client)

			_, err := up.CheckLatest(context.Background())
			Expect(err).To(MatchError(updater.ErrAlreadyLatest))
			Expect(client.latestCalls.Load()).To(Equal(int64(1)))
		})

		It("returns ErrAlreadyLatest when current is newer", func() {
			client := &mockClient{
				latestRelease: &github.Release{TagName: "v1.0.0"},
			}
			up := updater.NewUpdater("2.0.0", client)

			_, err := up.CheckLatest(context.Background())
			Expect(err).To(MatchError(updater.ErrAlreadyLatest))
		})

		It("always returns the latest release for dev builds", func() {
			client := &mockClient{
				latestRelease: &github.Release{TagName: "v1.0.0"},
			}
			up := updater.NewUpdater("dev", client)

			release, err := up.CheckLatest(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(release.TagName).To(Equal("v1.0.0"))
		})

		It("propagates registry failures", func() {
			client := &mockClient{
				latestErr: errors.New("network error"),
			}
			up := updater.NewUpdater("1.0.0", client)

			_, err := up.CheckLatest(context.Background())
			Expect(err).To(HaveOccurred())
		})

		It("handles a v-prefixed running version", func() {
			client := &mockClient{
				latestRelease: &github.Release{TagName: "v0.2.0"},
			}
			up := updater.NewUpdater("v0.2.0", client)

			_, err := up.CheckLatest(context.Background())
			Expect(err).To(MatchError(updater.ErrAlreadyLatest))
		})
	})

	Describe("ValidateTargetVersion", func() {
		var releases map[string]*github.Release

		BeforeEach(func() {
			releases = map[string]*github.Release{
				"v0.3.0": {TagName: "v0.3.0"},
				"v0.2.0": {TagName: "v0.2.0"},
			}
		})

		It("accepts a version with v prefix", func() {
			client := &mockClient{tagReleases: releases}
			up := updater.NewUpdater("0.1.0", client)

			release, err := up.ValidateTargetVersion(context.Background(), "v0.3.0")
			Expect(err).NotTo(HaveOccurred())
			Expect(release.TagName).To(Equal("v0.3.0"))
		})

		It("accepts a version without v prefix", func() {
			client := &mockClient{tagReleases: releases}
			up := updater.NewUpdater("0.1.0", client)

			release, err := up.ValidateTargetVersion(context.Background(), "0.3.0")
			Expect(err).NotTo(HaveOccurred())
			Expect(release.TagName).To(Equal("v0.3.0"))
		})

		It("rejects invalid semver", func() {
			client := &mockClient{tagReleases: releases}
			up := updater.NewUpdater("0.1.0", client)

			_, err := up.ValidateTargetVersion(context.Background(), "not-a-version")
			Expect(err).To(HaveOccurred())
		})

		It("rejects a release that does not exist", func() {
			client := &mockClient{tagReleases: releases}
			up := updater.NewUpdater("0.1.0", client)

			_, err := up.ValidateTargetVersion(context.Background(), "v9.9.9")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Update", func() {
		var (
			tmpDir     string
			target     string
			oldContent []byte
			platform   updater.Platform
		)

		BeforeEach(func() {
			tmpDir = GinkgoT().TempDir()
			target = filepath.Join(tmpDir, "grove")
			oldContent = []byte("old-binary")
			platform = updater.Platform{OS: "linux", Arch: "amd64"}

			Expect(os.WriteFile(target, oldContent, 0o755)).To(Succeed())
		})

		serveAsset := func(body []byte) *httptest.Server {
			server := httptest.NewServer(http.HandlerFunc(
				func(w http.ResponseWriter, _ *http.Request) {
					_, _ = w.Write(body)
				}))
			DeferCleanup(server.Close)

			return server
		}

		It("runs the full pipeline against a tar.gz asset", func() {
			newBinary := []byte("new-binary-bytes")
			server := serveAsset(tarGzArchive("grove", newBinary))

			client := &mockClient{}
			release := &github.Release{
				TagName: "v0.3.0",
				Assets: []github.Asset{{
					Name:        "grove_0.3.0_linux_amd64.tar.gz",
					DownloadURL: server.URL,
				}},
			}

			up := updater.NewUpdater("0.2.0", client,
				updater.WithPlatform(platform),
				updater.WithTargetPath(target),
			)

			result, err := up.Update(context.Background(), release, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.PreviousVersion).To(Equal("0.2.0"))
			Expect(result.NewVersion).To(Equal("0.3.0"))
			Expect(result.BinaryPath).To(Equal(target))

			installed, readErr := os.ReadFile(target)
			Expect(readErr).NotTo(HaveOccurred())
			Expect(installed).To(Equal(newBinary))

			info, statErr := os.Stat(target)
			Expect(statErr).NotTo(HaveOccurred())
			Expect(info.Mode() & 0o111).NotTo(BeZero())
		})

		It("handles a nested zip asset", func() {
			newBinary := []byte("zip-binary-bytes")
			server := serveAsset(zipArchive("dist/grove", newBinary))

			release := &github.Release{
				TagName: "v0.3.0",
				Assets: []github.Asset{{
					Name:        "grove_0.3.0_linux_amd64.zip",
					DownloadURL: server.URL,
				}},
			}

			up := updater.NewUpdater("0.2.0", &mockClient{},
				updater.WithPlatform(platform),
				updater.WithTargetPath(target),
			)

			_, err := up.Update(context.Background(), release, nil)
			Expect(err).NotTo(HaveOccurred())

			installed, readErr := os.ReadFile(target)
			Expect(readErr).NotTo(HaveOccurred())
			Expect(installed).To(Equal(newBinary))
		})

		It("fails with NoMatchingAssetError and leaves the target alone", func() {
			release := &github.Release{
				TagName: "v0.3.0",
				Assets: []github.Asset{{
					Name:        "grove_0.3.0_darwin_arm64.tar.gz",
					DownloadURL: "https://example.test/never-fetched",
				}},
			}

			up := updater.NewUpdater("0.2.0", &mockClient{},
				updater.WithPlatform(updater.Platform{OS: "windows", Arch: "amd64"}),
				updater.WithTargetPath(target),
			)

			_, err := up.Update(context.Background(), release, nil)

			var noMatch *updater.NoMatchingAssetError
			Expect(errors.As(err, &noMatch)).To(BeTrue())
			Expect(noMatch.AssetNames).To(ConsistOf("grove_0.3.0_darwin_arm64.tar.gz"))

			Expect(os.ReadFile(target)).To(Equal(oldContent))
		})

		It("aborts when the archive lacks the binary, target unchanged", func() {
			server := serveAsset(tarGzArchive("README.md", []byte("docs")))

			release := &github.Release{
				TagName: "v0.3.0",
				Assets: []github.Asset{{
					Name:        "grove_0.3.0_linux_amd64.tar.gz",
					DownloadURL: server.URL,
				}},
			}

			up := updater.NewUpdater("0.2.0", &mockClient{},
				updater.WithPlatform(platform),
				updater.WithTargetPath(target),
			)

			_, err := up.Update(context.Background(), release, nil)
			Expect(err).To(MatchError(updater.ErrBinaryNotFound))

			Expect(os.ReadFile(target)).To(Equal(oldContent))
		})

		It("fails with DownloadFailedError on a missing asset, target unchanged", func() {
			server := httptest.NewServer(http.HandlerFunc(
				func(w http.ResponseWriter, _ *http.Request) {
					http.Error(w, "gone", http.StatusNotFound)
				}))
			DeferCleanup(server.Close)

			release := &github.Release{
				TagName: "v0.3.0",
				Assets: []github.Asset{{
					Name:        "grove_0.3.0_linux_amd64.tar.gz",
					DownloadURL: server.URL,
				}},
			}

			up := updater.NewUpdater("0.2.0", &mockClient{},
				updater.WithPlatform(platform),
				updater.WithTargetPath(target),
			)

			_, err := up.Update(context.Background(), release, nil)

			var dlErr *updater.DownloadFailedError
			Expect(errors.As(err, &dlErr)).To(BeTrue())
			Expect(dlErr.StatusCode).To(Equal(http.StatusNotFound))

			Expect(os.ReadFile(target)).To(Equal(oldContent))
		})

		It("selects a legacy-named asset through the substring pass", func() {
			newBinary := []byte("legacy-binary")
			server := serveAsset(tarGzArchive("grove", newBinary))

			release := &github.Release{
				TagName: "v0.3.0",
				Assets: []github.Asset{{
					Name:        "tool_Darwin_x86_64",
					DownloadURL: server.URL,
				}},
			}

			up := updater.NewUpdater("0.2.0", &mockClient{},
				updater.WithPlatform(updater.Platform{OS: "darwin", Arch: "amd64"}),
				updater.WithTargetPath(target),
			)

			_, err := up.Update(context.Background(), release, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(os.ReadFile(target)).To(Equal(newBinary))
		})
	})
})
