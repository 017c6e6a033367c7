// Package pipeline runs one download request from URL to delivered file and
// guarantees that the request's artifacts are removed afterwards.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
)

// Extractor invokes the external extraction tool.
type Extractor interface {
	Extract(ctx context.Context, url, baseName string) *domain.ExtractionResult
	WorkDir(baseName string) string
}

// Resolver locates the output file of an extraction.
type Resolver interface {
	Resolve(workDir, baseName, title string) (*domain.ResolvedOutput, error)
	Extension() string
}

// Finalizer prepares a resolved file before delivery. Failures are logged only.
type Finalizer interface {
	Finalize(ctx context.Context, out *domain.ResolvedOutput, title string) error
}

// Recorder persists the request history. Failures are logged only.
type Recorder interface {
	Create(ctx context.Context, job *domain.Job) error
	Update(ctx context.Context, job *domain.Job) error
}

// Deliverer hands the resolved file to the requester. The file is removed
// as soon as Deliver returns.
type Deliverer interface {
	Deliver(ctx context.Context, out *domain.ResolvedOutput) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, out *domain.ResolvedOutput) error

// Deliver calls f.
func (f DelivererFunc) Deliver(ctx context.Context, out *domain.ResolvedOutput) error {
	return f(ctx, out)
}

// Pipeline orchestrates extraction, resolution, delivery and cleanup.
type Pipeline struct {
	extractor Extractor
	resolver  Resolver
	finalizer Finalizer
	recorder  Recorder
	logger    *slog.Logger
	newToken  func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFinalizer sets the step run between resolution and delivery.
func WithFinalizer(f Finalizer) Option {
	return func(p *Pipeline) { p.finalizer = f }
}

// WithRecorder sets the request history sink.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithTokenSource overrides the per-request token generator.
func WithTokenSource(fn func() string) Option {
	return func(p *Pipeline) { p.newToken = fn }
}

// New creates a new Pipeline.
func New(extractor Extractor, resolver Resolver, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		extractor: extractor,
		resolver:  resolver,
		logger:    logger,
		newToken:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the request through Invoking, Resolving and Delivering, then
// always runs CleaningUp before returning. The returned error, if any, wraps
// one of the domain sentinel errors.
func (p *Pipeline) Process(ctx context.Context, req domain.DownloadRequest, deliverer Deliverer) (err error) {
	url := strings.TrimSpace(req.SourceURL)
	if url == "" {
		p.logger.Warn("Download attempt failed: no URL provided")
		return domain.ErrEmptyURL
	}

	token := p.newToken()
	job := domain.NewJob(token, url)
	log := p.logger.With("token", token)
	log.Info("Received download request", "url", url)
	p.record(ctx, job, true)

	var workDir string
	var resolved *domain.ResolvedOutput

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while processing request",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", domain.ErrUnexpected, r)
		}

		job.Transition(domain.JobStateCleaningUp)
		p.cleanup(log, workDir, token, resolved)

		if err != nil {
			job.MarkFailed(err)
			log.Error("Download request failed", "kind", job.ErrorKind, "error", err)
		} else {
			job.MarkDone()
			log.Info("Download request completed", "title", job.Title)
		}
		p.record(context.WithoutCancel(ctx), job, false)
	}()

	// Invoking
	job.Transition(domain.JobStateInvoking)
	workDir = p.extractor.WorkDir(token)
	result := p.extractor.Extract(ctx, url, token)
	if result.WorkingDir != "" {
		workDir = result.WorkingDir
	}
	job.Title = result.Title
	if err := result.Err(); err != nil {
		return err
	}

	// Resolving
	job.Transition(domain.JobStateResolving)
	resolved, err = p.resolver.Resolve(workDir, token, result.Title)
	if err != nil {
		return classify(err)
	}
	job.ResolvedTier = resolved.Tier
	job.Degraded = resolved.Degraded

	if p.finalizer != nil {
		if ferr := p.finalizer.Finalize(ctx, resolved, result.Title); ferr != nil {
			log.Warn("Could not finalize output", "path", resolved.AbsolutePath, "error", ferr)
		}
	}

	// Delivering
	job.Transition(domain.JobStateDelivering)
	log.Info("Sending audio file",
		"path", resolved.AbsolutePath,
		"name", resolved.DisplayName,
		"degraded", resolved.Degraded,
		"duration", resolved.Duration,
	)
	if err := deliverer.Deliver(ctx, resolved); err != nil {
		return classify(err)
	}

	return nil
}

// classify wraps errors outside the taxonomy as unexpected failures.
func classify(err error) error {
	if domain.IsClassified(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrUnexpected, err)
}

func (p *Pipeline) record(ctx context.Context, job *domain.Job, create bool) {
	if p.recorder == nil {
		return
	}

	var err error
	if create {
		err = p.recorder.Create(ctx, job)
	} else {
		err = p.recorder.Update(ctx, job)
	}
	if err != nil {
		p.logger.Warn("Failed to record request history", "token", job.ID, "error", err)
	}
}
