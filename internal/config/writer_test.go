package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/grove-sh/grove/internal/config"
	pkgconfig "github.com/grove-sh/grove/pkg/config"
)

var _ = Describe("Writer", func() {
	var configPath string

	BeforeEach(func() {
		configPath = filepath.Join(GinkgoT().TempDir(), "nested", "config.toml")
	})

	It("writes a config that the loader reads back", func() {
		check := false
		cfg := &pkgconfig.Config{
			Updates: &pkgconfig.UpdatesConfig{
				Check:    &check,
				Interval: pkgconfig.Duration(2 * time.Hour),
			},
		}

		Expect(config.NewWriterWithPath(configPath).Write(cfg)).To(Succeed())

		loaded, err := config.NewLoaderWithPath(configPath).Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.UpdatesEnabled()).To(BeFalse())
		Expect(loaded.Updates.Interval.ToDuration()).To(Equal(2 * time.Hour))
	})

	It("creates parent directories and restricts file permissions", func() {
		Expect(config.NewWriterWithPath(configPath).Write(config.DefaultConfig())).To(Succeed())

		info, err := os.Stat(configPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
	})

	It("rejects a nil config", func() {
		err := config.NewWriterWithPath(configPath).Write(nil)
		Expect(err).To(MatchError(config.ErrInvalidConfig))
	})
})
