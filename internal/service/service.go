package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/paragraph-tools/multigrm/internal/batch"
	"github.com/paragraph-tools/multigrm/internal/input"
	"github.com/paragraph-tools/multigrm/internal/job"
	"github.com/paragraph-tools/multigrm/internal/log"
	"github.com/paragraph-tools/multigrm/internal/manifest"
	"github.com/paragraph-tools/multigrm/internal/metrics"
	"github.com/paragraph-tools/multigrm/internal/model"
	"github.com/paragraph-tools/multigrm/internal/objectstore"
	"github.com/paragraph-tools/multigrm/internal/parallel"
)

// Service is a single genotyping run.
type Service struct {
	cfg       model.Config
	rc        *model.RunConfig
	loader    input.Loader
	metrics   *metrics.Metrics
	invoker   job.Invoker
	uploaders []model.Uploader
}

// New validates cfg and prepares a run. Nothing is written to disk yet.
func New(cfg model.Config, logger *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, model.Fatal("config", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rc := cfg.RunConfig(uuid.NewString(), logger)
	return &Service{
		cfg: cfg,
		rc:  rc,
		loader: input.Loader{
			Converter: input.NewExecConverter(cfg.Reference, cfg.VCF, logger),
			Logger:    logger,
		},
		metrics: metrics.New(),
	}, nil
}

// RunConfig returns the configuration shared by all jobs.
func (s *Service) RunConfig() *model.RunConfig {
	return s.rc
}

// Metrics returns the collectors of this run.
func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}

// WithGraphMaker sets the collaborator constructing graphs of events
// which have none.
func (s *Service) WithGraphMaker(gm input.GraphMaker) *Service {
	s.loader.GraphMaker = gm
	return s
}

// WithInvoker replaces the genotyper call of every job. This method exists
// for a unit testing only.
func (s *Service) WithInvoker(invoker job.Invoker) *Service {
	s.invoker = invoker
	return s
}

// WithUploaders replaces the default result destinations.
func (s *Service) WithUploaders(uploaders ...model.Uploader) *Service {
	s.uploaders = uploaders
	return s
}

func (s *Service) logCtx(ctx context.Context) context.Context {
	return log.ContextAttrs(ctx, slog.String("run_id", s.rc.ID))
}

// Check runs everything which precedes the dispatch: manifest header
// validation, creation of output and scratch directories and loading of
// events. Any error is a *model.BatchError.
func (s *Service) Check(ctx context.Context) ([]model.Event, error) {
	ctx = s.logCtx(ctx)
	if _, err := manifest.ValidateFile(s.cfg.Manifest); err != nil {
		return nil, model.Fatal("manifest", err)
	}

	if err := os.MkdirAll(s.cfg.Output, 0o755); err != nil {
		return nil, model.Fatal("output", err)
	}
	if s.cfg.ScratchDir != "" {
		if err := os.MkdirAll(s.cfg.ScratchDir, 0o755); err != nil {
			return nil, model.Fatal("scratch", err)
		}
	}

	events, err := s.loader.Load(ctx, s.cfg.Input, s.cfg.Output)
	if err != nil {
		s.rc.Logger.ErrorContext(ctx, "loading input failed", "input", s.cfg.Input, "error", err)
		return nil, model.Fatal("input", err)
	}
	s.rc.Logger.InfoContext(ctx, "input loaded", "events", len(events))
	return events, nil
}

// Run executes the whole batch and persists the result. Per job failures
// are recorded in the result, only pre-dispatch and persistence errors
// are returned.
func (s *Service) Run(ctx context.Context) (batch.Result, error) {
	events, err := s.Check(ctx)
	if err != nil {
		return batch.Result{}, err
	}

	ctx = s.logCtx(ctx)
	logger := s.rc.Logger

	executor := job.NewExecutor(s.rc, s.metrics)
	if s.invoker != nil {
		executor = executor.WithInvoker(s.invoker)
	}

	logger.InfoContext(ctx, "genotyping started", "events", len(events), "threads", s.rc.Threads)
	start := time.Now()
	outcomes, err := parallel.Map(ctx, s.rc.Threads, job.BuildAll(events, s.rc), executor.Execute)
	if err != nil {
		return batch.Result{}, model.Fatal("dispatch", err)
	}
	result := batch.Aggregate(outcomes, time.Since(start))
	result.Summary.Log(ctx, logger)

	logger.InfoContext(ctx, "finished genotyping, merging output")
	if err := s.persist(ctx, result); err != nil {
		return result, model.Fatal("output", err)
	}
	s.writeMetrics(ctx)
	logger.InfoContext(ctx, "paragraph completed", "sites", len(events))
	return result, nil
}

func (s *Service) persist(ctx context.Context, result batch.Result) error {
	var buf bytes.Buffer
	if err := batch.Encode(&buf, result.Records); err != nil {
		return err
	}

	uploaders := s.uploaders
	if uploaders == nil {
		var err error
		uploaders, err = s.defaultUploaders()
		if err != nil {
			return err
		}
		defer s.closeUploaders(ctx, uploaders)
	}

	var errs []error
	for _, u := range uploaders {
		if err := u.Upload(ctx, buf.Bytes()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) defaultUploaders() ([]model.Uploader, error) {
	dir, err := NewOSRootUploader(s.cfg.Output, s.rc.Logger)
	if err != nil {
		return nil, fmt.Errorf("opening output directory: %w", err)
	}
	uploaders := []model.Uploader{dir}
	if s.cfg.Stdout {
		uploaders = append(uploaders, NewWriteUploader(os.Stdout))
	}
	if s.cfg.Upload != nil && s.cfg.Upload.S3 != nil {
		u, err := objectstore.NewUploader(*s.cfg.Upload.S3, s.rc.ID, s.rc.Logger)
		if err != nil {
			_ = dir.Close()
			return nil, err
		}
		uploaders = append(uploaders, u)
	}
	return uploaders, nil
}

func (s *Service) closeUploaders(ctx context.Context, uploaders []model.Uploader) {
	for _, uploader := range uploaders {
		if closer, ok := uploader.(model.UploadCloser); ok {
			if err := closer.Close(); err != nil {
				s.rc.Logger.ErrorContext(ctx, "closing uploader have failed", "error", err)
			}
		}
	}
}

func (s *Service) writeMetrics(ctx context.Context) {
	if s.cfg.MetricsFile == "" {
		return
	}
	if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
		s.rc.Logger.WarnContext(ctx, "metrics not stored", "path", s.cfg.MetricsFile, "error", err)
	}
}
