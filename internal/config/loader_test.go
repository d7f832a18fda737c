package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/fanscore/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

// fanscoreEnvVars lists every variable Load consults, so tests can start
// from a clean slate regardless of the invoking shell.
var fanscoreEnvVars = []string{
	"FANSCORE_CONFIG",
	"FANSCORE_LOG_LEVEL",
	"FANSCORE_ADDR",
	"FANSCORE_DB_PATH",
	"FANSCORE_VIDEO_ID",
	"FANSCORE_API_KEYS",
	"FANSCORE_QUEUE_SIZE",
	"FANSCORE_WORKER_COUNT",
	"FANSCORE_DEDUPE_SIZE",
	"FANSCORE_DEFAULT_POLL_INTERVAL_MS",
	"FANSCORE_BACKOFF_MS",
	"FANSCORE_PROBE_INTERVAL_MS",
	"FANSCORE_EFFECTIVENESS",
	"FANSCORE_API_BASE_URL",
}

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, name := range fanscoreEnvVars {
		t.Setenv(name, "")
		_ = os.Unsetenv(name)
	}
}

func writeTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given only the required video id", t, func() {
		clearConfigEnvVars(t)
		t.Setenv("FANSCORE_VIDEO_ID", "vid-123")

		cfg, err := config.Load(ctx)

		convey.Convey("Then defaults fill the rest", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg, convey.ShouldNotBeNil)
			convey.So(cfg.VideoID, convey.ShouldEqual, "vid-123")
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DBPath, convey.ShouldEqual, "fanscore.sqlite3")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.Effectiveness, convey.ShouldAlmostEqual, 0.7)
		})
	})

	convey.Convey("Given environment overrides", t, func() {
		clearConfigEnvVars(t)
		t.Setenv("FANSCORE_VIDEO_ID", "vid-123")
		t.Setenv("FANSCORE_ADDR", ":8080")
		t.Setenv("FANSCORE_QUEUE_SIZE", "2048")
		t.Setenv("FANSCORE_WORKER_COUNT", "8")
		t.Setenv("FANSCORE_BACKOFF_MS", "2500")
		t.Setenv("FANSCORE_EFFECTIVENESS", "0.5")

		cfg, err := config.Load(ctx)

		convey.Convey("Then env vars win over defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 2048)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 8)
			convey.So(cfg.BackoffMS, convey.ShouldEqual, 2500)
			convey.So(cfg.Effectiveness, convey.ShouldAlmostEqual, 0.5)
		})
	})

	convey.Convey("Given comma-separated api keys in the environment", t, func() {
		clearConfigEnvVars(t)
		t.Setenv("FANSCORE_VIDEO_ID", "vid-123")
		t.Setenv("FANSCORE_API_KEYS", "key-a, key-b,key-c")

		cfg, err := config.Load(ctx)

		convey.Convey("Then keys are split and trimmed", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.APIKeys, convey.ShouldResemble, []string{"key-a", "key-b", "key-c"})
		})
	})

	convey.Convey("Given a YAML config file", t, func() {
		clearConfigEnvVars(t)
		path := writeTempConfigFile(t, `
addr: ":9090"
video_id: "vid-file"
db_path: "state.sqlite3"
queue_size: 512
worker_count: 6
api_keys:
  - key-1
  - key-2
`)
		t.Setenv("FANSCORE_CONFIG", path)

		cfg, err := config.Load(ctx)

		convey.Convey("Then file values layer over defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.VideoID, convey.ShouldEqual, "vid-file")
			convey.So(cfg.DBPath, convey.ShouldEqual, "state.sqlite3")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 512)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 6)
			convey.So(cfg.APIKeys, convey.ShouldResemble, []string{"key-1", "key-2"})
			convey.So(cfg.BackoffMS, convey.ShouldEqual, 10_000)
		})
	})

	convey.Convey("Given both a file and environment variables", t, func() {
		clearConfigEnvVars(t)
		path := writeTempConfigFile(t, `
addr: ":9090"
video_id: "vid-file"
worker_count: 6
`)
		t.Setenv("FANSCORE_CONFIG", path)
		t.Setenv("FANSCORE_ADDR", ":8080")
		t.Setenv("FANSCORE_VIDEO_ID", "vid-env")

		cfg, err := config.Load(ctx)

		convey.Convey("Then environment variables override the file", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.VideoID, convey.ShouldEqual, "vid-env")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 6)
		})
	})

	convey.Convey("Given a missing config file", t, func() {
		clearConfigEnvVars(t)
		t.Setenv("FANSCORE_VIDEO_ID", "vid-123")
		t.Setenv("FANSCORE_CONFIG", "/non/existent/config.yaml")

		cfg, err := config.Load(ctx)

		convey.Convey("Then Load fails with a load error", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a malformed config file", t, func() {
		clearConfigEnvVars(t)
		path := writeTempConfigFile(t, "addr: yaml: [broken")
		t.Setenv("FANSCORE_VIDEO_ID", "vid-123")
		t.Setenv("FANSCORE_CONFIG", path)

		cfg, err := config.Load(ctx)

		convey.Convey("Then Load fails with a load error", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given no video id anywhere", t, func() {
		clearConfigEnvVars(t)

		cfg, err := config.Load(ctx)

		convey.Convey("Then validation rejects the config", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "video_id")
			convey.So(cfg, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given an out-of-range effectiveness", t, func() {
		clearConfigEnvVars(t)
		t.Setenv("FANSCORE_VIDEO_ID", "vid-123")
		t.Setenv("FANSCORE_EFFECTIVENESS", "1.5")

		cfg, err := config.Load(ctx)

		convey.Convey("Then validation rejects the config", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}
