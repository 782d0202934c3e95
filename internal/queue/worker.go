package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/genome-trait-server/internal/analysis"
	"github.com/genome-trait-server/internal/domain"
	"github.com/genome-trait-server/internal/results"
)

const (
	defaultPollTimeout = 5 * time.Second
	defaultJobTimeout  = 15 * time.Minute
)

// jobSource abstracts the queue for the worker loop.
type jobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*Job, error)
}

// runner abstracts the analysis pipeline.
type runner interface {
	Analyze(ctx context.Context, content string, progress analysis.Progress) (*domain.AnalysisResult, error)
}

// progressSink abstracts progress publication.
type progressSink interface {
	Publish(ctx context.Context, event ProgressEvent) error
}

// WorkerConfig holds worker loop tuning.
type WorkerConfig struct {
	// PollTimeout bounds each blocking dequeue.
	PollTimeout time.Duration
	// JobTimeout bounds one analysis run end to end.
	JobTimeout time.Duration
}

// Worker consumes analysis jobs and drives them through the pipeline,
// persisting status transitions. Retry policy lives here, not in the
// engine: a failed run is marked failed, and re-submission is the user's
// call.
type Worker struct {
	queue       jobSource
	analyzer    runner
	store       results.Store
	progress    progressSink
	log         *logrus.Logger
	pollTimeout time.Duration
	jobTimeout  time.Duration
}

// NewWorker wires a worker. progress may be nil when no live progress
// display is deployed.
func NewWorker(queue jobSource, analyzer runner, store results.Store, progress progressSink, cfg WorkerConfig, logger *logrus.Logger) *Worker {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	return &Worker{
		queue:       queue,
		analyzer:    analyzer,
		store:       store,
		progress:    progress,
		log:         logger,
		pollTimeout: cfg.PollTimeout,
		jobTimeout:  cfg.JobTimeout,
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Analysis worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Analysis worker stopping")
			return ctx.Err()
		default:
		}

		job, err := w.queue.Dequeue(ctx, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.WithError(err).Error("Dequeue failed")
			// Back off so a dead Redis does not spin the loop.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.pollTimeout):
			}
			continue
		}
		if job == nil {
			continue
		}

		w.Process(ctx, job)
	}
}

// Process executes one job: status transitions, the pipeline run, and the
// transactional result write-back.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.WithFields(logrus.Fields{
		"analysis_id": job.AnalysisID,
		"file_name":   job.FileName,
	})
	log.Info("Processing analysis job")

	runCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	if err := w.store.UpdateStatus(runCtx, job.AnalysisID, domain.StatusParsing, ""); err != nil {
		log.WithError(err).Error("Failed to mark analysis as parsing")
		return
	}

	matchingMarked := false
	progress := func(status domain.AnalysisStatus, processed, total int) {
		if !matchingMarked {
			matchingMarked = true
			if err := w.store.UpdateStatus(runCtx, job.AnalysisID, domain.StatusMatching, ""); err != nil {
				log.WithError(err).Warn("Failed to mark analysis as matching")
			}
		}
		w.publish(runCtx, ProgressEvent{
			AnalysisID: job.AnalysisID,
			Status:     status,
			Processed:  processed,
			Total:      total,
		})
	}

	result, err := w.analyzer.Analyze(runCtx, job.Content, progress)
	if err != nil {
		log.WithError(err).Error("Analysis run failed")
		w.fail(ctx, job.AnalysisID, err)
		return
	}

	if err := w.store.SaveResult(runCtx, job.AnalysisID, result); err != nil {
		log.WithError(err).Error("Failed to save analysis result")
		w.fail(ctx, job.AnalysisID, fmt.Errorf("saving result: %w", err))
		return
	}

	w.publish(runCtx, ProgressEvent{
		AnalysisID: job.AnalysisID,
		Status:     domain.StatusCompleted,
	})

	log.WithFields(logrus.Fields{
		"matched_variants":   result.Summary.MatchedVariants,
		"total_associations": result.Summary.TotalAssociations,
	}).Info("Analysis job completed")
}

// fail records a terminal failure. It uses the parent context so a run that
// died on its own timeout can still be marked.
func (w *Worker) fail(ctx context.Context, analysisID string, runErr error) {
	if err := w.store.UpdateStatus(ctx, analysisID, domain.StatusError, runErr.Error()); err != nil {
		w.log.WithError(err).WithField("analysis_id", analysisID).
			Error("Failed to mark analysis as failed")
	}
	w.publish(ctx, ProgressEvent{
		AnalysisID: analysisID,
		Status:     domain.StatusError,
		Error:      runErr.Error(),
	})
}

func (w *Worker) publish(ctx context.Context, event ProgressEvent) {
	if w.progress == nil {
		return
	}
	if err := w.progress.Publish(ctx, event); err != nil {
		w.log.WithError(err).Debug("Progress publish failed")
	}
}
