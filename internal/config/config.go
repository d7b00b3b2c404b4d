// Package config defines the provisioning run configuration and its loaders.
//
// The configuration is built once at process start and treated as immutable
// for the rest of the run.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Region is the AWS region every client is created in.
	Region string `koanf:"region"`

	// BucketName is the S3 bucket backing the data lake.
	BucketName string `koanf:"bucket_name"`

	// DatabaseName is the Glue catalog database.
	DatabaseName string `koanf:"database_name"`

	// TableName is the Glue external table over the raw data prefix.
	TableName string `koanf:"table_name"`

	// ObjectKey is where the line-delimited blob is written.
	ObjectKey string `koanf:"object_key"`

	// QueryOutputLocation is the Athena result location. Derived from the
	// bucket when empty.
	QueryOutputLocation string `koanf:"query_output_location"`

	// AnalyticsDatabase is created through Athena with IF NOT EXISTS.
	AnalyticsDatabase string `koanf:"analytics_database"`

	// APIKey is sent as the subscription key header.
	APIKey string `koanf:"api_key"`

	// APIEndpoint is the full URL of the player endpoint.
	APIEndpoint string `koanf:"api_endpoint"`

	// FetchTimeout bounds the single source API request.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`

	// ReadinessTimeout bounds the wait for a newly created bucket.
	ReadinessTimeout time.Duration `koanf:"readiness_timeout"`

	// ReadinessMinDelay and ReadinessMaxDelay bound the backoff between bucket checks.
	ReadinessMinDelay time.Duration `koanf:"readiness_min_delay"`
	ReadinessMaxDelay time.Duration `koanf:"readiness_max_delay"`

	// MetricsTextfile, when set, receives the run metrics in text format.
	MetricsTextfile string `koanf:"metrics_textfile"`

	// MetricsPushURL, when set, is a Pushgateway the run metrics are pushed to.
	MetricsPushURL string `koanf:"metrics_push_url"`

	// SummaryFile, when set, receives the JSON run summary.
	SummaryFile string `koanf:"summary_file"`

	// StrictExit makes recoverable step failures change the exit code.
	StrictExit bool `koanf:"strict_exit"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Region:            "eu-west-1",
		DatabaseName:      "nba_datalake",
		TableName:         "nba_players",
		ObjectKey:         "raw-data/nba_player_data.jsonl",
		AnalyticsDatabase: "nba_analytics",
		FetchTimeout:      30 * time.Second,
		ReadinessTimeout:  2 * time.Minute,
		ReadinessMinDelay: time.Second,
		ReadinessMaxDelay: 20 * time.Second,
	}
}

// OutputLocation returns the configured Athena output location, or the
// athena-results/ prefix of the bucket when none is set.
func (c *Config) OutputLocation() string {
	if c.QueryOutputLocation != "" {
		return c.QueryOutputLocation
	}
	return "s3://" + c.BucketName + "/athena-results/"
}
