package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/essay-grader/internal/models"
	"github.com/RubachokBoss/essay-grader/internal/service"
	"github.com/RubachokBoss/essay-grader/internal/worker/queue"
)

// JobProcessor runs one queued grading job.
type JobProcessor interface {
	Process(ctx context.Context, job models.GradingRequestedEvent) error
}

type GradingWorker interface {
	Start(ctx context.Context) error
	Stop() error
	GetStats() WorkerStats
}

type WorkerStats struct {
	ActiveWorkers  int `json:"active_workers"`
	TotalProcessed int `json:"total_processed"`
	FailedJobs     int `json:"failed_jobs"`
	QueueLength    int `json:"queue_length"`
}

type gradingWorker struct {
	workerPool    *WorkerPool
	queueConsumer queue.Consumer
	processor     JobProcessor
	logger        zerolog.Logger

	stats      WorkerStats
	statsMutex sync.RWMutex
	startTime  time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func NewGradingWorker(
	workerPool *WorkerPool,
	queueConsumer queue.Consumer,
	processor JobProcessor,
	logger zerolog.Logger,
) GradingWorker {
	return &gradingWorker{
		workerPool:    workerPool,
		queueConsumer: queueConsumer,
		processor:     processor,
		logger:        logger,
		startTime:     time.Now(),
	}
}

func (w *gradingWorker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting grading worker...")

	ctx, cancel := context.WithCancel(ctx)

	msgs, err := w.queueConsumer.Consume(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start consuming messages: %w", err)
	}

	w.workerPool.Start()

	w.cancel = cancel
	w.done = make(chan struct{})
	go w.processMessages(ctx, msgs)

	w.logger.Info().Msg("Grading worker started successfully")
	return nil
}

// Stop stops consuming, then lets jobs already handed to the pool finish.
func (w *gradingWorker) Stop() error {
	w.logger.Info().Msg("Stopping grading worker...")

	if w.cancel != nil {
		w.cancel()
		<-w.done
	}

	if err := w.queueConsumer.Close(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to close queue consumer")
	}

	w.workerPool.Stop()

	stats := w.GetStats()
	w.logger.Info().
		Int("total_processed", stats.TotalProcessed).
		Int("failed_jobs", stats.FailedJobs).
		Dur("uptime", time.Since(w.startTime)).
		Msg("Grading worker stopped")

	return nil
}

func (w *gradingWorker) processMessages(ctx context.Context, msgs <-chan queue.Message) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopping message processing")
			return
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Warn().Msg("Message channel closed")
				return
			}

			// jobs run to completion even while the worker is stopping
			jobCtx := context.WithoutCancel(ctx)
			err := w.workerPool.Submit(ctx, func() { w.handle(jobCtx, msg) })
			if err != nil {
				w.logger.Warn().Err(err).Msg("Could not schedule message, requeueing")
				if nackErr := msg.Nack(false, true); nackErr != nil {
					w.logger.Error().Err(nackErr).Msg("Failed to nack message")
				}
			}
		}
	}
}

func (w *gradingWorker) handle(ctx context.Context, msg queue.Message) {
	err := w.processMessage(ctx, msg)
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			w.logger.Error().Err(ackErr).Msg("Failed to ack message")
		}

		w.statsMutex.Lock()
		w.stats.TotalProcessed++
		w.statsMutex.Unlock()
		return
	}

	w.statsMutex.Lock()
	w.stats.FailedJobs++
	w.statsMutex.Unlock()

	if isPermanentError(err) {
		w.logger.Warn().Err(err).Msg("Dropping grading job")
		if ackErr := msg.Ack(false); ackErr != nil {
			w.logger.Error().Err(ackErr).Msg("Failed to ack message")
		}
		return
	}

	w.logger.Error().Err(err).Msg("Failed to process message, requeueing")
	if nackErr := msg.Nack(false, true); nackErr != nil {
		w.logger.Error().Err(nackErr).Msg("Failed to nack message")
	}
}

func (w *gradingWorker) processMessage(ctx context.Context, msg queue.Message) error {
	job, err := queue.DecodeGradingRequested(msg.Body)
	if err != nil {
		return permanent(err)
	}

	w.logger.Info().
		Str("report_id", job.ReportID).
		Int("key_points", len(job.Request.KeyPoints.Points)).
		Int("criteria", len(job.Request.Rubric.Criteria)).
		Msg("Processing grading job")

	return w.processor.Process(ctx, job)
}

func (w *gradingWorker) GetStats() WorkerStats {
	w.statsMutex.RLock()
	stats := w.stats
	w.statsMutex.RUnlock()

	if queueLength, err := w.queueConsumer.GetQueueLength(); err != nil {
		w.logger.Debug().Err(err).Msg("Failed to get queue length")
	} else {
		stats.QueueLength = queueLength
	}

	stats.ActiveWorkers = w.workerPool.ActiveWorkers()
	return stats
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return permanentError{err: err}
}

func isPermanentError(err error) bool {
	var p permanentError
	return errors.As(err, &p) || service.IsPermanent(err)
}
