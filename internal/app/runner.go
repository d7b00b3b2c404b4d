// Package app runs the data lake provisioning workflow.
//
// The workflow is strictly sequential. Only the bucket step can abort the
// run; every other step records its failure in the summary and the run
// moves on.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/nbalake/internal/adapters/catalog"
	"github.com/okian/nbalake/internal/adapters/query"
	"github.com/okian/nbalake/internal/adapters/storage"
	"github.com/okian/nbalake/internal/config"
	"github.com/okian/nbalake/internal/domain/lake"
	"github.com/okian/nbalake/pkg/logger"
	"github.com/okian/nbalake/pkg/metrics"
)

// Sentinel kinds for run errors.
var (
	ErrFatal             = errors.New("provisioning aborted")
	ErrMissingDependency = errors.New("runner dependency not set")
)

// BucketEnsurer makes sure the lake bucket exists.
type BucketEnsurer interface {
	Ensure(ctx context.Context, bucket, region string) (created bool, err error)
}

// CatalogCreator registers catalog entries.
type CatalogCreator interface {
	CreateDatabase(ctx context.Context, name, description string) error
	CreateTable(ctx context.Context, spec catalog.TableSpec) error
}

// RecordFetcher fetches player records.
type RecordFetcher interface {
	Fetch(ctx context.Context) ([]lake.Record, error)
}

// RecordUploader writes records into the bucket.
type RecordUploader interface {
	Upload(ctx context.Context, bucket, key string, records []lake.Record) (storage.UploadResult, error)
}

// QueryConfigurer configures the query service.
type QueryConfigurer interface {
	Configure(ctx context.Context, spec query.Spec) (string, error)
}

// Runner executes one provisioning run.
type Runner struct {
	cfg *config.Config

	buckets  BucketEnsurer
	catalog  CatalogCreator
	fetcher  RecordFetcher
	uploader RecordUploader
	query    QueryConfigurer

	logger  logger.Logger
	metrics *metrics.Manager
	now     func() time.Time
	newID   func() string
}

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithBuckets sets the bucket step dependency.
func WithBuckets(b BucketEnsurer) Option {
	return func(r *Runner) { r.buckets = b }
}

// WithCatalog sets the catalog steps dependency.
func WithCatalog(c CatalogCreator) Option {
	return func(r *Runner) { r.catalog = c }
}

// WithFetcher sets the fetch step dependency.
func WithFetcher(f RecordFetcher) Option {
	return func(r *Runner) { r.fetcher = f }
}

// WithUploader sets the upload step dependency.
func WithUploader(u RecordUploader) Option {
	return func(r *Runner) { r.uploader = u }
}

// WithQuery sets the query step dependency.
func WithQuery(q QueryConfigurer) Option {
	return func(r *Runner) { r.query = q }
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics manager. Defaults to the process-wide one.
func WithMetrics(m *metrics.Manager) Option {
	return func(r *Runner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.newID = func() string { return id }
		}
	}
}

// New constructs a Runner for cfg.
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		metrics: metrics.Default(),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Named("workflow")
	}
	return r
}

// Run executes every step in order and returns the summary. The error is
// non-nil only when the run was aborted; the summary is always returned.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	s := &Summary{RunID: r.newID(), StartedAt: r.now()}
	log := r.logger.With(logger.String("run_id", s.RunID))
	log.Info(ctx, "setting up data lake for NBA sports analytics",
		logger.String("bucket", r.cfg.BucketName),
		logger.String("region", r.cfg.Region),
	)

	bucket := r.step(ctx, log, s, StepBucket, func() (Status, string, error) {
		created, err := r.buckets.Ensure(ctx, r.cfg.BucketName, r.cfg.Region)
		if err != nil {
			return StatusFailed, "", err
		}
		if created {
			return StatusOK, "created", nil
		}
		return StatusOK, "exists", nil
	})
	if bucket.Status == StatusFailed {
		s.Aborted = true
		r.finish(ctx, log, s)
		return s, fmt.Errorf("%w: %s: %w", ErrFatal, StepBucket, bucket.Err)
	}

	r.step(ctx, log, s, StepCatalogDatabase, func() (Status, string, error) {
		if err := r.catalog.CreateDatabase(ctx, r.cfg.DatabaseName, lake.DatabaseComment); err != nil {
			return StatusFailed, "", err
		}
		return StatusOK, r.cfg.DatabaseName, nil
	})

	var records []lake.Record
	r.step(ctx, log, s, StepFetch, func() (Status, string, error) {
		recs, err := r.fetcher.Fetch(ctx)
		if err != nil {
			return StatusFailed, "", err
		}
		records = recs
		return StatusOK, fmt.Sprintf("%d records", len(recs)), nil
	})
	s.RecordsFetched = len(records)
	r.metrics.SetRecordsFetched(len(records))

	r.step(ctx, log, s, StepUpload, func() (Status, string, error) {
		if len(records) == 0 {
			return StatusSkipped, "no records", nil
		}
		res, err := r.uploader.Upload(ctx, r.cfg.BucketName, r.cfg.ObjectKey, records)
		if err != nil {
			return StatusFailed, "", err
		}
		if res.Skipped {
			return StatusSkipped, "no records", nil
		}
		s.BytesUploaded = res.Bytes
		r.metrics.SetBytesUploaded(res.Bytes)
		return StatusOK, lake.S3URI(r.cfg.BucketName, res.Key), nil
	})

	r.step(ctx, log, s, StepCatalogTable, func() (Status, string, error) {
		spec := catalog.TableSpec{
			Database: r.cfg.DatabaseName,
			Name:     r.cfg.TableName,
			Bucket:   r.cfg.BucketName,
			Prefix:   lake.PrefixOf(r.cfg.ObjectKey),
			Columns:  lake.PlayerColumns,
		}
		if err := r.catalog.CreateTable(ctx, spec); err != nil {
			return StatusFailed, "", err
		}
		return StatusOK, spec.Location(), nil
	})

	r.step(ctx, log, s, StepQueryConfig, func() (Status, string, error) {
		id, err := r.query.Configure(ctx, query.Spec{
			AnalyticsDatabase: r.cfg.AnalyticsDatabase,
			ContextDatabase:   r.cfg.DatabaseName,
			OutputLocation:    r.cfg.OutputLocation(),
			RequestToken:      s.RunID,
		})
		if err != nil {
			return StatusFailed, "", err
		}
		s.QueryID = id
		return StatusOK, id, nil
	})

	r.finish(ctx, log, s)
	return s, nil
}

// step runs fn, then records, logs and measures its result.
func (r *Runner) step(ctx context.Context, log logger.Logger, s *Summary, name string, fn func() (Status, string, error)) StepResult {
	log.Debug(ctx, "step started", logger.String("step", name))
	start := r.now()
	status, detail, err := fn()
	res := StepResult{Name: name, Status: status, Detail: detail, Err: err, Duration: r.now().Sub(start)}
	s.Steps = append(s.Steps, res)
	r.metrics.RecordStep(name, string(status), res.Duration)

	fields := []logger.Field{
		logger.String("step", name),
		logger.String("status", string(status)),
		logger.Duration("duration", res.Duration),
	}
	if detail != "" {
		fields = append(fields, logger.String("detail", detail))
	}
	switch status {
	case StatusFailed:
		log.Error(ctx, "step failed", append(fields, logger.Error(err))...)
	case StatusSkipped:
		log.Warn(ctx, "step skipped", fields...)
	default:
		log.Info(ctx, "step completed", fields...)
	}
	return res
}

func (r *Runner) finish(ctx context.Context, log logger.Logger, s *Summary) {
	s.FinishedAt = r.now()
	r.metrics.RecordRun(s.FinishedAt, s.FinishedAt.Sub(s.StartedAt), s.OK())

	fields := []logger.Field{
		logger.Int("steps", len(s.Steps)),
		logger.Int("failed", len(s.Failed())),
		logger.Int("records", s.RecordsFetched),
		logger.Duration("elapsed", s.FinishedAt.Sub(s.StartedAt)),
	}
	if s.Aborted {
		log.Error(ctx, "data lake setup aborted", fields...)
		return
	}
	log.Info(ctx, "data lake setup complete", fields...)
}

func (r *Runner) validate() error {
	switch {
	case r.cfg == nil:
		return fmt.Errorf("%w: config", ErrMissingDependency)
	case r.buckets == nil:
		return fmt.Errorf("%w: buckets", ErrMissingDependency)
	case r.catalog == nil:
		return fmt.Errorf("%w: catalog", ErrMissingDependency)
	case r.fetcher == nil:
		return fmt.Errorf("%w: fetcher", ErrMissingDependency)
	case r.uploader == nil:
		return fmt.Errorf("%w: uploader", ErrMissingDependency)
	case r.query == nil:
		return fmt.Errorf("%w: query", ErrMissingDependency)
	}
	return nil
}
