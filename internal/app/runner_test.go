package app_test

import (
	"context"
	"errors"
	"io"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/nbalake/internal/adapters/catalog"
	"github.com/okian/nbalake/internal/adapters/query"
	"github.com/okian/nbalake/internal/adapters/storage"
	"github.com/okian/nbalake/internal/app"
	"github.com/okian/nbalake/internal/config"
	"github.com/okian/nbalake/internal/domain/lake"
	"github.com/okian/nbalake/pkg/logger"
	"github.com/okian/nbalake/pkg/metrics"
)

func init() {
	if err := logger.InitWithOptions(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

// calls collects the order in which steps hit their dependencies.
type calls []string

type fakeBuckets struct {
	log     *calls
	created bool
	err     error
}

func (f *fakeBuckets) Ensure(_ context.Context, _, _ string) (bool, error) {
	*f.log = append(*f.log, "ensure")
	return f.created, f.err
}

type fakeCatalog struct {
	log      *calls
	dbErr    error
	tableErr error
	table    catalog.TableSpec
}

func (f *fakeCatalog) CreateDatabase(_ context.Context, _, _ string) error {
	*f.log = append(*f.log, "database")
	return f.dbErr
}

func (f *fakeCatalog) CreateTable(_ context.Context, spec catalog.TableSpec) error {
	*f.log = append(*f.log, "table")
	f.table = spec
	return f.tableErr
}

type fakeFetcher struct {
	log     *calls
	records []lake.Record
	err     error
}

func (f *fakeFetcher) Fetch(context.Context) ([]lake.Record, error) {
	*f.log = append(*f.log, "fetch")
	return f.records, f.err
}

type fakeUploader struct {
	log  *calls
	got  []lake.Record
	err  error
	size int
}

func (f *fakeUploader) Upload(_ context.Context, _, key string, records []lake.Record) (storage.UploadResult, error) {
	*f.log = append(*f.log, "upload")
	f.got = records
	if f.err != nil {
		return storage.UploadResult{}, f.err
	}
	return storage.UploadResult{Key: key, Records: len(records), Bytes: f.size}, nil
}

type fakeQuery struct {
	log  *calls
	spec query.Spec
	err  error
}

func (f *fakeQuery) Configure(_ context.Context, spec query.Spec) (string, error) {
	*f.log = append(*f.log, "query")
	f.spec = spec
	if f.err != nil {
		return "", f.err
	}
	return "qe-1", nil
}

type harness struct {
	log      *calls
	buckets  *fakeBuckets
	catalog  *fakeCatalog
	fetcher  *fakeFetcher
	uploader *fakeUploader
	query    *fakeQuery
	cfg      *config.Config
}

func newHarness() *harness {
	log := &calls{}
	cfg := config.New()
	cfg.BucketName = "lake"
	return &harness{
		log:     log,
		buckets: &fakeBuckets{log: log},
		catalog: &fakeCatalog{log: log},
		fetcher: &fakeFetcher{log: log, records: []lake.Record{
			lake.MustRecord(`{"PlayerID":1,"FirstName":"A","LastName":"B","Team":"X","Position":"G","Points":10}`),
		}},
		uploader: &fakeUploader{log: log, size: 96},
		query:    &fakeQuery{log: log},
		cfg:      cfg,
	}
}

func (h *harness) runner() *app.Runner {
	return app.New(h.cfg,
		app.WithBuckets(h.buckets),
		app.WithCatalog(h.catalog),
		app.WithFetcher(h.fetcher),
		app.WithUploader(h.uploader),
		app.WithQuery(h.query),
		app.WithMetrics(metrics.NewManager()),
		app.WithRunID("run-0001-aaaa-bbbb-cccc-ddddeeeeffff"),
	)
}

func stepNames(s *app.Summary) []string {
	names := make([]string, len(s.Steps))
	for i, r := range s.Steps {
		names[i] = r.Name
	}
	return names
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()

	Convey("Given every step succeeds", t, func() {
		h := newHarness()

		Convey("When running the workflow", func() {
			s, err := h.runner().Run(ctx)

			Convey("Then all steps should run in order", func() {
				So(err, ShouldBeNil)
				So([]string(*h.log), ShouldResemble, []string{"ensure", "database", "fetch", "upload", "table", "query"})
				So(stepNames(s), ShouldResemble, []string{
					app.StepBucket, app.StepCatalogDatabase, app.StepFetch,
					app.StepUpload, app.StepCatalogTable, app.StepQueryConfig,
				})
				So(s.OK(), ShouldBeTrue)
				So(s.ExitCode(true), ShouldEqual, app.ExitOK)
			})

			Convey("Then the summary should describe the run", func() {
				So(s.RunID, ShouldEqual, "run-0001-aaaa-bbbb-cccc-ddddeeeeffff")
				So(s.RecordsFetched, ShouldEqual, 1)
				So(s.BytesUploaded, ShouldEqual, 96)
				So(s.QueryID, ShouldEqual, "qe-1")
				bucket, ok := s.Step(app.StepBucket)
				So(ok, ShouldBeTrue)
				So(bucket.Detail, ShouldEqual, "exists")
			})

			Convey("Then the downstream steps should get the configured locations", func() {
				So(len(h.uploader.got), ShouldEqual, 1)
				So(h.catalog.table.Location(), ShouldEqual, "s3://lake/raw-data/")
				So(h.catalog.table.Name, ShouldEqual, "nba_players")
				So(len(h.catalog.table.Columns), ShouldEqual, 6)
				So(h.query.spec.OutputLocation, ShouldEqual, "s3://lake/athena-results/")
				So(h.query.spec.ContextDatabase, ShouldEqual, "nba_datalake")
				So(h.query.spec.AnalyticsDatabase, ShouldEqual, "nba_analytics")
				So(h.query.spec.RequestToken, ShouldEqual, s.RunID)
			})
		})
	})

	Convey("Given the fetch fails", t, func() {
		h := newHarness()
		h.fetcher.records = nil
		h.fetcher.err = errors.New("503 Service Unavailable")

		Convey("When running the workflow", func() {
			s, err := h.runner().Run(ctx)

			Convey("Then upload should be skipped and later steps should still run", func() {
				So(err, ShouldBeNil)
				So([]string(*h.log), ShouldResemble, []string{"ensure", "database", "fetch", "table", "query"})
				fetch, _ := s.Step(app.StepFetch)
				So(fetch.Status, ShouldEqual, app.StatusFailed)
				upload, _ := s.Step(app.StepUpload)
				So(upload.Status, ShouldEqual, app.StatusSkipped)
				So(s.RecordsFetched, ShouldEqual, 0)
			})

			Convey("Then the exit code should depend on strictness", func() {
				So(s.ExitCode(false), ShouldEqual, app.ExitOK)
				So(s.ExitCode(true), ShouldEqual, app.ExitPartial)
			})
		})
	})

	Convey("Given the fetch returns no records", t, func() {
		h := newHarness()
		h.fetcher.records = []lake.Record{}

		Convey("When running the workflow", func() {
			s, err := h.runner().Run(ctx)

			Convey("Then the uploader should not be called and the run should be ok", func() {
				So(err, ShouldBeNil)
				So([]string(*h.log), ShouldNotContain, "upload")
				upload, _ := s.Step(app.StepUpload)
				So(upload.Status, ShouldEqual, app.StatusSkipped)
				So(s.OK(), ShouldBeTrue)
			})
		})
	})

	Convey("Given the bucket cannot be created", t, func() {
		h := newHarness()
		h.buckets.err = storage.ErrCreateBucket

		Convey("When running the workflow", func() {
			s, err := h.runner().Run(ctx)

			Convey("Then the run should abort after the bucket step", func() {
				So(errors.Is(err, app.ErrFatal), ShouldBeTrue)
				So(errors.Is(err, storage.ErrCreateBucket), ShouldBeTrue)
				So([]string(*h.log), ShouldResemble, []string{"ensure"})
				So(len(s.Steps), ShouldEqual, 1)
				So(s.Aborted, ShouldBeTrue)
				So(s.ExitCode(false), ShouldEqual, app.ExitFatal)
			})
		})
	})

	Convey("Given every recoverable step fails", t, func() {
		h := newHarness()
		h.catalog.dbErr = errors.New("AlreadyExistsException")
		h.uploader.err = errors.New("AccessDenied")
		h.catalog.tableErr = errors.New("AlreadyExistsException")
		h.query.err = errors.New("InvalidRequestException")

		Convey("When running the workflow", func() {
			s, err := h.runner().Run(ctx)

			Convey("Then every step should still run and each failure be recorded", func() {
				So(err, ShouldBeNil)
				So(len(*h.log), ShouldEqual, 6)
				failed := s.Failed()
				So(len(failed), ShouldEqual, 4)
				So(failed[0].Name, ShouldEqual, app.StepCatalogDatabase)
				So(failed[3].Name, ShouldEqual, app.StepQueryConfig)
				So(s.OK(), ShouldBeFalse)
				So(s.ExitCode(false), ShouldEqual, app.ExitOK)
			})
		})
	})

	Convey("Given a runner with a missing dependency", t, func() {
		r := app.New(config.New(), app.WithBuckets(&fakeBuckets{log: &calls{}}))

		Convey("When running", func() {
			s, err := r.Run(ctx)

			Convey("Then it should refuse to start", func() {
				So(errors.Is(err, app.ErrMissingDependency), ShouldBeTrue)
				So(s, ShouldBeNil)
			})
		})
	})
}
