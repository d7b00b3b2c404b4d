package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/okian/nbalake/internal/adapters/catalog"
	"github.com/okian/nbalake/internal/adapters/query"
	"github.com/okian/nbalake/internal/adapters/source"
	"github.com/okian/nbalake/internal/adapters/storage"
	"github.com/okian/nbalake/internal/app"
	"github.com/okian/nbalake/internal/config"
	"github.com/okian/nbalake/pkg/logger"
	"github.com/okian/nbalake/pkg/metrics"
)

// Process-level constants.
const (
	metricsJob         = "nbalake"
	exportTimeout      = 10 * time.Second
	exitConfigError    = 2
	summaryPermissions = 0o644
)

// awsClients are the service clients shared by every step of a run.
type awsClients struct {
	S3     storage.S3API
	Glue   catalog.GlueAPI
	Athena query.AthenaAPI
}

// deps are external seams for testability. A nil Metrics gets a manager
// labelled with the run's region and bucket.
type deps struct {
	Stdout     io.Writer
	NewClients func(ctx context.Context, cfg *config.Config) (awsClients, error)
	Metrics    *metrics.Manager
}

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, deps{
		Stdout:     os.Stdout,
		NewClients: newAWSClients,
	})
	stop()
	os.Exit(code)
}

// newAWSClients builds each client once from the ambient credential chain.
func newAWSClients(ctx context.Context, cfg *config.Config) (awsClients, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return awsClients{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsClients{
		S3:     s3.NewFromConfig(awsCfg),
		Glue:   glue.NewFromConfig(awsCfg),
		Athena: athena.NewFromConfig(awsCfg),
	}, nil
}

// run executes one provisioning run and returns the exit code.
//
// Exit codes:
//   - 0: completed; recoverable step failures are only logged unless strict_exit is set.
//   - 1: the bucket step failed and the run was aborted.
//   - 2: configuration or initialization error.
//   - 3: completed with failed steps and strict_exit is set.
func run(ctx context.Context, d deps) int {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}

	if err := logger.InitWithOptions(logger.WithOutput(d.Stdout)); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging: "+err.Error())
		return exitConfigError
	}
	defer func() { _ = logger.Sync() }()

	// Load configuration (defaults -> optional files -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Get().Error(ctx, "failed to load config", logger.Error(err))
		return exitConfigError
	}
	if err := logger.InitWithOptions(logger.WithOutput(d.Stdout), logger.WithFormat(cfg.LogFormat)); err != nil {
		logger.Get().Error(ctx, "failed to initialize logging", logger.Error(err))
		return exitConfigError
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if d.Metrics == nil {
		d.Metrics = metrics.NewManager(metrics.WithConstLabels(map[string]string{
			"region": cfg.Region,
			"bucket": cfg.BucketName,
		}))
	}

	clients, err := d.NewClients(ctx, cfg)
	if err != nil {
		log.Error(ctx, "failed to create aws clients", logger.Error(err))
		return exitConfigError
	}

	runner := app.New(cfg,
		app.WithLogger(logger.Named("workflow")),
		app.WithMetrics(d.Metrics),
		app.WithBuckets(storage.NewBucketProvisioner(clients.S3,
			storage.WithLogger(logger.Named("storage")),
			storage.WithReadiness(cfg.ReadinessTimeout, cfg.ReadinessMinDelay, cfg.ReadinessMaxDelay),
		)),
		app.WithCatalog(catalog.New(clients.Glue, logger.Named("catalog"))),
		app.WithFetcher(source.New(cfg.APIEndpoint, cfg.APIKey,
			source.WithTimeout(cfg.FetchTimeout),
			source.WithLogger(logger.Named("source")),
		)),
		app.WithUploader(storage.NewUploader(clients.S3, logger.Named("storage"))),
		app.WithQuery(query.New(clients.Athena, logger.Named("query"))),
	)

	summary, runErr := runner.Run(ctx)
	if summary == nil {
		log.Error(ctx, "workflow did not start", logger.Error(runErr))
		return exitConfigError
	}

	writeSummary(ctx, log, cfg, summary)
	exportMetrics(ctx, log, cfg, d.Metrics, summary.RunID)

	return summary.ExitCode(cfg.StrictExit)
}

func writeSummary(ctx context.Context, log logger.Logger, cfg *config.Config, s *app.Summary) {
	for _, failed := range s.Failed() {
		log.Warn(ctx, "step failed during run", logger.String("step", failed.Name), logger.Error(failed.Err))
	}
	if cfg.SummaryFile == "" {
		return
	}
	f, err := os.OpenFile(cfg.SummaryFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, summaryPermissions)
	if err != nil {
		log.Error(ctx, "failed to open summary file", logger.String("path", cfg.SummaryFile), logger.Error(err))
		return
	}
	defer f.Close()
	if err := s.WriteJSON(f); err != nil {
		log.Error(ctx, "failed to write summary", logger.String("path", cfg.SummaryFile), logger.Error(err))
	}
}

func exportMetrics(ctx context.Context, log logger.Logger, cfg *config.Config, m *metrics.Manager, runID string) {
	if cfg.MetricsTextfile != "" {
		if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Warn(ctx, "metrics textfile not written", logger.Error(err))
		}
	}
	if cfg.MetricsPushURL != "" {
		pushCtx, cancel := context.WithTimeout(ctx, exportTimeout)
		defer cancel()
		if err := m.Push(pushCtx, cfg.MetricsPushURL, metricsJob, runID); err != nil {
			log.Warn(ctx, "metrics push failed", logger.Error(err))
		}
	}
}
