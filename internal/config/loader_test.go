package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/nbalake/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"NBALAKE_CONFIG",
	"NBALAKE_DOTENV",
	"NBALAKE_BUCKET_NAME",
	"NBALAKE_REGION",
	"NBALAKE_LOG_FORMAT",
	"NBALAKE_FETCH_TIMEOUT",
	"NBALAKE_READINESS_TIMEOUT",
	"NBALAKE_READINESS_MIN_DELAY",
	"NBALAKE_READINESS_MAX_DELAY",
	"NBALAKE_STRICT_EXIT",
	"NBALAKE_API_KEY",
	"AWS_BUCKET_NAME",
	"SPORTS_DATA_API_KEY",
	"NBA_ENDPOINT",
	"AWS_REGION",
	"AWS_DEFAULT_REGION",
}

func clearConfigEnvVars() {
	for _, name := range configEnvVars {
		_ = os.Unsetenv(name)
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Region, convey.ShouldEqual, "eu-west-1")
				convey.So(cfg.DatabaseName, convey.ShouldEqual, "nba_datalake")
				convey.So(cfg.TableName, convey.ShouldEqual, "nba_players")
				convey.So(cfg.ObjectKey, convey.ShouldEqual, "raw-data/nba_player_data.jsonl")
				convey.So(cfg.BucketName, convey.ShouldBeEmpty)
				convey.So(cfg.FetchTimeout, convey.ShouldEqual, 30*time.Second)
			})
		})

		convey.Convey("When loading config with legacy environment variables", func() {
			_ = os.Setenv("AWS_BUCKET_NAME", "legacy-bucket")
			_ = os.Setenv("SPORTS_DATA_API_KEY", "k-123")
			_ = os.Setenv("NBA_ENDPOINT", "https://api.example/v3/nba/scores/json/Players")
			_ = os.Setenv("AWS_REGION", "us-east-1")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they should map onto config keys", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BucketName, convey.ShouldEqual, "legacy-bucket")
				convey.So(cfg.APIKey, convey.ShouldEqual, "k-123")
				convey.So(cfg.APIEndpoint, convey.ShouldEqual, "https://api.example/v3/nba/scores/json/Players")
				convey.So(cfg.Region, convey.ShouldEqual, "us-east-1")
				convey.So(cfg.OutputLocation(), convey.ShouldEqual, "s3://legacy-bucket/athena-results/")
			})
		})

		convey.Convey("When prefixed variables are set alongside legacy ones", func() {
			_ = os.Setenv("AWS_BUCKET_NAME", "legacy-bucket")
			_ = os.Setenv("NBALAKE_BUCKET_NAME", "prefixed-bucket")
			_ = os.Setenv("NBALAKE_FETCH_TIMEOUT", "5s")
			_ = os.Setenv("NBALAKE_STRICT_EXIT", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then the prefixed value should win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BucketName, convey.ShouldEqual, "prefixed-bucket")
				convey.So(cfg.FetchTimeout, convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.StrictExit, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the prefixed variable is set before the legacy one", func() {
			_ = os.Setenv("NBALAKE_BUCKET_NAME", "prefixed-bucket")
			_ = os.Setenv("AWS_BUCKET_NAME", "legacy-bucket")
			_ = os.Setenv("NBALAKE_API_KEY", "prefixed-key")
			_ = os.Setenv("SPORTS_DATA_API_KEY", "legacy-key")

			cfg, err := config.Load(ctx)

			convey.Convey("Then the prefixed value should still win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BucketName, convey.ShouldEqual, "prefixed-bucket")
				convey.So(cfg.APIKey, convey.ShouldEqual, "prefixed-key")
			})
		})

		convey.Convey("When both AWS region variables are set", func() {
			_ = os.Setenv("AWS_REGION", "us-west-2")
			_ = os.Setenv("AWS_DEFAULT_REGION", "ap-south-1")

			cfg, err := config.Load(ctx)

			convey.Convey("Then AWS_REGION should win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Region, convey.ShouldEqual, "us-west-2")
			})

			convey.Convey("And NBALAKE_REGION should override both", func() {
				_ = os.Setenv("NBALAKE_REGION", "eu-central-1")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Region, convey.ShouldEqual, "eu-central-1")
			})
		})

		convey.Convey("When only AWS_DEFAULT_REGION is set", func() {
			_ = os.Setenv("AWS_DEFAULT_REGION", "ap-south-1")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Region, convey.ShouldEqual, "ap-south-1")
			})
		})

		convey.Convey("When a dotenv file sets both legacy and prefixed names", func() {
			path := writeTempFile(t, "both.env", "NBALAKE_BUCKET_NAME=prefixed-bucket\nAWS_BUCKET_NAME=legacy-bucket\nAWS_DEFAULT_REGION=ap-south-1\nAWS_REGION=us-west-2\n")
			_ = os.Setenv("NBALAKE_DOTENV", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then the same precedence should apply inside the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BucketName, convey.ShouldEqual, "prefixed-bucket")
				convey.So(cfg.Region, convey.ShouldEqual, "us-west-2")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeTempFile(t, "nbalake.yaml", `
bucket_name: yaml-bucket
database_name: yaml_db
query_output_location: s3://results/athena/
readiness_timeout: 30s
`)
			_ = os.Setenv("NBALAKE_CONFIG", path)
			_ = os.Setenv("AWS_BUCKET_NAME", "env-bucket")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env should override the file and the rest should come from it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BucketName, convey.ShouldEqual, "env-bucket")
				convey.So(cfg.DatabaseName, convey.ShouldEqual, "yaml_db")
				convey.So(cfg.OutputLocation(), convey.ShouldEqual, "s3://results/athena/")
				convey.So(cfg.ReadinessTimeout, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.TableName, convey.ShouldEqual, "nba_players")
			})
		})

		convey.Convey("When loading config with a dotenv file", func() {
			path := writeTempFile(t, "lake.env", "AWS_BUCKET_NAME=dotenv-bucket\nSPORTS_DATA_API_KEY=dotenv-key\nUNRELATED=1\n")
			_ = os.Setenv("NBALAKE_DOTENV", path)
			_ = os.Setenv("SPORTS_DATA_API_KEY", "env-key")

			cfg, err := config.Load(ctx)

			convey.Convey("Then dotenv values should apply below the real environment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BucketName, convey.ShouldEqual, "dotenv-bucket")
				convey.So(cfg.APIKey, convey.ShouldEqual, "env-key")
			})
		})

		convey.Convey("When the YAML file does not exist", func() {
			_ = os.Setenv("NBALAKE_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			_ = os.Setenv("NBALAKE_CONFIG", writeTempFile(t, "bad.yaml", `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a duration is malformed", func() {
			_ = os.Setenv("NBALAKE_FETCH_TIMEOUT", "soon")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("Then it should be valid", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the readiness delays are inverted", func() {
			cfg.ReadinessMinDelay = time.Minute
			cfg.ReadinessMaxDelay = time.Second

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the readiness timeout is zero", func() {
			cfg.ReadinessTimeout = 0

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the bucket is missing", func() {
			cfg.BucketName = ""

			convey.Convey("Then validation should still pass", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
