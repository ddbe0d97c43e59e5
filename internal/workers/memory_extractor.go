package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kidchat/kidchat-api/internal/database"
	logpkg "github.com/kidchat/kidchat-api/internal/logger"
	"github.com/kidchat/kidchat-api/internal/queue"
	"github.com/kidchat/kidchat-api/internal/services/chat"
)

// JobProcessor handles a single job of a registered type
type JobProcessor func(ctx context.Context, job *queue.Job) error

type processorEntry struct {
	proc JobProcessor
}

// MemoryExtractor processes memory extraction jobs: it runs the fact
// extractor over a child's message and merges the result into the child's
// stored memory context.
type MemoryExtractor struct {
	childRepo database.ChildRepositoryInterface
	extractor chat.Extractor
	logger    *zap.Logger
	registry  map[queue.JobType]processorEntry
}

// NewMemoryExtractor creates a new memory extractor and registers the
// memory_extraction processor.
func NewMemoryExtractor(
	childRepo database.ChildRepositoryInterface,
	extractor chat.Extractor,
	logger *zap.Logger,
) *MemoryExtractor {
	w := &MemoryExtractor{
		childRepo: childRepo,
		extractor: extractor,
		logger:    logger,
		registry:  make(map[queue.JobType]processorEntry),
	}
	w.RegisterProcessor(queue.JobTypeMemoryExtraction, w.ProcessMemoryExtractionJob)
	return w
}

// RegisterProcessor registers a processor for a job type.
func (w *MemoryExtractor) RegisterProcessor(typ queue.JobType, proc JobProcessor) {
	w.registry[typ] = processorEntry{proc: proc}
}

// ProcessMemoryExtractionJob processes a memory extraction job
func (w *MemoryExtractor) ProcessMemoryExtractionJob(ctx context.Context, job *queue.Job) error {
	if job.ChildID == uuid.Nil {
		return fmt.Errorf("child_id is required for memory extraction job")
	}
	if job.Message == "" {
		// Nothing to extract; treat as done.
		return nil
	}

	w.logger.Debug("processing_memory_extraction_job",
		zap.String("job_id", job.ID.String()),
		zap.String("child_id", job.ChildID.String()),
	)

	updates := w.extractor.Extract(job.Message)
	if updates.IsEmpty() {
		w.logger.Debug("no_facts_extracted",
			zap.String("job_id", job.ID.String()),
			zap.String("child_id", job.ChildID.String()),
		)
		return nil
	}

	merged, err := w.childRepo.MergeMemoryContext(ctx, job.ChildID, updates)
	if err != nil {
		return fmt.Errorf("failed to merge memory context: %w", err)
	}

	w.logger.Info("memory_context_updated",
		zap.String("child_id", job.ChildID.String()),
		zap.Int("interest_count", len(merged.Interests)),
	)
	return nil
}

// ProcessJob processes a job based on its type using the processor registry.
func (w *MemoryExtractor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()
	if !job.ShouldProcess() {
		fields := []zap.Field{zap.String("job_id", job.ID.String())}
		if job.NotBefore != nil {
			fields = append(fields, zap.Time("not_before", *job.NotBefore))
		}
		w.logger.Debug("job_not_ready", fields...)
		if nackErr := msg.Nack(true); nackErr != nil {
			w.logger.Warn("failed_to_requeue_early_job",
				zap.String("job_id", job.ID.String()),
				zap.String("error", logpkg.SanitizeError(nackErr)),
			)
		}
		return nil
	}
	if job.IsExpired() {
		w.logger.Debug("job_expired", zap.String("job_id", job.ID.String()))
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Warn("failed_to_discard_expired_job",
				zap.String("job_id", job.ID.String()),
				zap.String("error", logpkg.SanitizeError(nackErr)),
			)
		}
		return nil
	}

	ent, ok := w.registry[job.Type]
	if !ok {
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Error("failed_to_nack_unknown_job_type",
				zap.String("job_id", job.ID.String()),
				zap.String("job_type", string(job.Type)),
				zap.String("error", logpkg.SanitizeError(nackErr)),
			)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err := ent.proc(ctx, job); err != nil {
		return w.handleJobError(msg, job, err)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// handleJobError retries transient failures and dead-letters the rest.
func (w *MemoryExtractor) handleJobError(msg queue.MessageInterface, job *queue.Job, err error) error {
	if job.CanRetry() {
		job.IncrementRetry()
		w.logger.Warn("job_failed_will_retry",
			zap.String("job_id", job.ID.String()),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		if nackErr := msg.Nack(true); nackErr != nil {
			w.logger.Warn("failed_to_nack_job",
				zap.String("job_id", job.ID.String()),
				zap.String("error", logpkg.SanitizeError(nackErr)),
			)
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	w.logger.Error("job_failed_max_retries",
		zap.String("job_id", job.ID.String()),
		zap.Int("max_retries", job.MaxRetries),
		zap.String("error", logpkg.SanitizeError(err)),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		w.logger.Warn("failed_to_nack_job_to_dlq",
			zap.String("job_id", job.ID.String()),
			zap.String("error", logpkg.SanitizeError(nackErr)),
		)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}

// Run consumes jobs until ctx is cancelled.
func (w *MemoryExtractor) Run(ctx context.Context, jobQueue queue.JobQueue, prefetch int) error {
	msgs, errs, err := jobQueue.Consume(ctx, prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case consumeErr, ok := <-errs:
			if !ok {
				return nil
			}
			w.logger.Error("consume_error", zap.String("error", logpkg.SanitizeError(consumeErr)))
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := w.ProcessJob(ctx, msg); err != nil {
				// Already logged and acked/nacked; brief pause avoids a
				// tight requeue loop on a persistently failing job.
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Second):
				}
			}
		}
	}
}
