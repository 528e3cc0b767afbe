package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mtlprog/hrscore/internal/config"
)

func TestLoad(t *testing.T) {
	Convey("Given the config loader", t, func() {
		ctx := context.Background()
		clearEnv(t)

		Convey("Defaults are used when nothing is set", func() {
			cfg, err := config.Load(ctx)

			So(err, ShouldBeNil)
			So(cfg.Port, ShouldEqual, config.DefaultPort)
			So(cfg.CacheBackend, ShouldEqual, config.CacheBackendMemory)
			So(cfg.CachePrefix, ShouldEqual, "hrscore")
			So(cfg.MemoryCacheCapacity, ShouldEqual, 10_000)
			So(cfg.DependencyTimeout(), ShouldEqual, 3*time.Second)
			So(cfg.RescoreMaxRetries, ShouldEqual, 3)
			So(cfg.RescoreRetryBase(), ShouldEqual, 200*time.Millisecond)
			So(cfg.TrendPolicy().Recent, ShouldEqual, 7*24*time.Hour)
			So(cfg.TrendPolicy().Lookback, ShouldEqual, 30*24*time.Hour)
			So(cfg.OTELEndpoint, ShouldBeEmpty)
		})

		Convey("Environment variables override defaults", func() {
			t.Setenv("HRSCORE_PORT", "9090")
			t.Setenv("HRSCORE_RESCORE_WORKERS", "16")
			t.Setenv("HRSCORE_TREND_THRESHOLD_PERCENT", "2.5")

			cfg, err := config.Load(ctx)

			So(err, ShouldBeNil)
			So(cfg.Port, ShouldEqual, "9090")
			So(cfg.RescoreWorkers, ShouldEqual, 16)
			So(cfg.TrendThresholdPercent, ShouldEqual, 2.5)
		})

		Convey("A YAML file is layered under the environment", func() {
			path := filepath.Join(t.TempDir(), "hrscore.yaml")
			content := "port: \"7070\"\ncache_backend: none\ndependency_timeout_ms: 500\n"
			So(os.WriteFile(path, []byte(content), 0o600), ShouldBeNil)
			t.Setenv(config.EnvConfigFile, path)
			t.Setenv("HRSCORE_DEPENDENCY_TIMEOUT_MS", "750")

			cfg, err := config.Load(ctx)

			So(err, ShouldBeNil)
			So(cfg.Port, ShouldEqual, "7070")
			So(cfg.CacheBackend, ShouldEqual, config.CacheBackendNone)
			So(cfg.DependencyTimeout(), ShouldEqual, 750*time.Millisecond)
		})

		Convey("A missing config file is an error", func() {
			t.Setenv(config.EnvConfigFile, filepath.Join(t.TempDir(), "absent.yaml"))

			_, err := config.Load(ctx)

			So(err, ShouldNotBeNil)
		})

		Convey("Redis backend without a URL is rejected", func() {
			t.Setenv("HRSCORE_CACHE_BACKEND", "redis")

			_, err := config.Load(ctx)

			So(err, ShouldNotBeNil)
		})
	})
}

// clearEnv unsets every variable the cases touch. Convey re-runs the outer
// block before each leaf, so leaves start from a clean environment.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		config.EnvConfigFile,
		"HRSCORE_PORT",
		"HRSCORE_RESCORE_WORKERS",
		"HRSCORE_TREND_THRESHOLD_PERCENT",
		"HRSCORE_DEPENDENCY_TIMEOUT_MS",
		"HRSCORE_CACHE_BACKEND",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestValidate(t *testing.T) {
	Convey("Given a default config", t, func() {
		cfg := config.New()

		Convey("It is valid", func() {
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("An unknown cache backend is rejected", func() {
			cfg.CacheBackend = "memcached"
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("A negative memory cache capacity is rejected", func() {
			cfg.MemoryCacheCapacity = -1
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("A recent window as long as the lookback is rejected", func() {
			cfg.TrendRecentDays = 30
			So(cfg.Validate(), ShouldNotBeNil)
		})
	})
}
