package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/grove-sh/grove/internal/config"
)

var _ = Describe("Loader", func() {
	var configPath string

	BeforeEach(func() {
		configPath = filepath.Join(GinkgoT().TempDir(), "config.toml")
	})

	writeConfig := func(content string) {
		GinkgoHelper()
		Expect(os.WriteFile(configPath, []byte(content), 0o600)).To(Succeed())
	}

	Describe("Load", func() {
		It("returns defaults when no config file exists", func() {
			cfg, err := config.NewLoaderWithPath(configPath).Load()
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.UpdatesEnabled()).To(BeTrue())
			Expect(cfg.Updates.Interval.ToDuration()).To(Equal(24 * time.Hour))
			Expect(cfg.Updates.Timeout.ToDuration()).To(Equal(3 * time.Second))
			Expect(cfg.DebugEnabled()).To(BeFalse())
			Expect(cfg.GitHub.Token).To(BeEmpty())
		})

		It("overrides defaults from the global config file", func() {
			writeConfig(`
[updates]
check = false
interval = "1h"

[log]
debug = true
`)

			cfg, err := config.NewLoaderWithPath(configPath).Load()
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.UpdatesEnabled()).To(BeFalse())
			Expect(cfg.Updates.Interval.ToDuration()).To(Equal(time.Hour))
			// Untouched keys keep their defaults.
			Expect(cfg.Updates.Timeout.ToDuration()).To(Equal(3 * time.Second))
			Expect(cfg.DebugEnabled()).To(BeTrue())
		})

		It("lets environment variables override the file", func() {
			writeConfig(`
[updates]
check = true
`)
			GinkgoT().Setenv("GROVE_UPDATES_CHECK", "false")
			GinkgoT().Setenv("GROVE_GITHUB_TOKEN", "ghp_test")

			cfg, err := config.NewLoaderWithPath(configPath).Load()
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.UpdatesEnabled()).To(BeFalse())
			Expect(cfg.GitHub.Token).To(Equal("ghp_test"))
		})

		It("rejects a world-writable config file", func() {
			writeConfig("[updates]\ncheck = true\n")
			Expect(os.Chmod(configPath, 0o646)).To(Succeed())

			_, err := config.NewLoaderWithPath(configPath).Load()
			Expect(err).To(MatchError(config.ErrInvalidPermissions))
		})

		It("reports malformed TOML", func() {
			writeConfig("[updates\ncheck =")

			_, err := config.NewLoaderWithPath(configPath).Load()
			Expect(err).To(MatchError(config.ErrInvalidTOML))
		})

		It("rejects a negative interval", func() {
			writeConfig(`
[updates]
interval = "-1h"
`)

			_, err := config.NewLoaderWithPath(configPath).Load()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("HasConfig", func() {
		It("is false when the file is missing", func() {
			Expect(config.NewLoaderWithPath(configPath).HasConfig()).To(BeFalse())
		})

		It("is true when the file exists", func() {
			writeConfig("")
			Expect(config.NewLoaderWithPath(configPath).HasConfig()).To(BeTrue())
		})
	})
})

var _ = Describe("DefaultConfig", func() {
	It("matches the confmap defaults", func() {
		cfg := config.DefaultConfig()

		Expect(cfg.Updates).NotTo(BeNil())
		Expect(cfg.UpdatesEnabled()).To(BeTrue())
		Expect(cfg.Updates.Interval.ToDuration()).To(Equal(config.DefaultCheckInterval))
		Expect(cfg.Updates.Timeout.ToDuration()).To(Equal(config.DefaultCheckTimeout))
		Expect(cfg.DebugEnabled()).To(BeFalse())
	})
})
