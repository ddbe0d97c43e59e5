package chat

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kidchat/kidchat-api/internal/database"
	"github.com/kidchat/kidchat-api/internal/logger"
	"github.com/kidchat/kidchat-api/internal/models"
	"github.com/kidchat/kidchat-api/internal/queue"
	"github.com/kidchat/kidchat-api/internal/safety"
	"github.com/kidchat/kidchat-api/internal/services/ai"
	"github.com/kidchat/kidchat-api/internal/validation"
)

// PipelineConfig tunes the message pipeline
type PipelineConfig struct {
	MaxMessageLength int
	RecentWindowSize int
	MaxTokens        int
}

// Pipeline runs a child message through filtering, session attachment,
// prompt composition, the completion provider, and persistence. Persistence
// failures degrade the answer instead of failing the request; the child
// always gets a reply unless their own input was invalid.
type Pipeline struct {
	cfg       PipelineConfig
	log       *zap.Logger
	filter    safety.Filter
	sessions  *SessionService
	children  database.ChildRepositoryInterface
	alerts    database.AlertRepositoryInterface
	history   database.HistoryRepositoryInterface
	memory    *MemoryService
	extractor Extractor
	composer  *Composer
	provider  ai.CompletionProvider
	jobs      queue.JobQueue
}

// Result is the outcome of a processed message.
type Result struct {
	Reply         string    `json:"reply"`
	SessionID     uuid.UUID `json:"session_id,omitempty"`
	WasFiltered   bool      `json:"was_filtered"`
	WasRedirected bool      `json:"was_redirected"`
}

// NewPipeline wires the message pipeline. jobs may be nil, in which case
// memory extraction runs inline instead of being queued for the worker.
func NewPipeline(
	cfg PipelineConfig,
	log *zap.Logger,
	filter safety.Filter,
	sessions *SessionService,
	children database.ChildRepositoryInterface,
	alerts database.AlertRepositoryInterface,
	history database.HistoryRepositoryInterface,
	memory *MemoryService,
	extractor Extractor,
	composer *Composer,
	provider ai.CompletionProvider,
	jobs queue.JobQueue,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		log:       log,
		filter:    filter,
		sessions:  sessions,
		children:  children,
		alerts:    alerts,
		history:   history,
		memory:    memory,
		extractor: extractor,
		composer:  composer,
		provider:  provider,
		jobs:      jobs,
	}
}

// SendMessage processes one child message end to end and returns the reply.
func (p *Pipeline) SendMessage(ctx context.Context, childID uuid.UUID, message string) (*Result, error) {
	message = validation.SanitizeText(message)
	if message == "" {
		return nil, NewValidationError("message", "message is required")
	}
	if utf8.RuneCountInString(message) > p.cfg.MaxMessageLength {
		return nil, NewValidationError("message", fmt.Sprintf("message exceeds %d characters", p.cfg.MaxMessageLength))
	}

	child, err := p.children.GetByID(ctx, childID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, NewValidationError("child_id", "child not found")
		}
		return nil, fmt.Errorf("failed to load child: %w", err)
	}

	p.log.Debug("message_received",
		zap.String("child_id", child.ID.String()),
		zap.String("preview", logger.SanitizeChatPreview(message)))

	// Pre-filter: a blocked message never reaches the provider.
	if c := p.filter.Classify(message); c.Blocked {
		return p.redirect(ctx, child, message, c), nil
	}

	session := p.attach(ctx, child.ID)

	memory := models.MemoryContext{}
	if m, err := p.memory.Read(ctx, child.ID); err != nil {
		p.log.Warn("memory_read_failed",
			zap.String("child_id", child.ID.String()),
			zap.String("error", logger.SanitizeError(err)))
	} else {
		memory = m
	}

	var recent []*models.SessionMessage
	if session != nil {
		if recent, err = p.sessions.Recent(ctx, session.ID, p.cfg.RecentWindowSize); err != nil {
			p.log.Warn("recent_messages_failed",
				zap.String("session_id", session.ID.String()),
				zap.String("error", logger.SanitizeError(err)))
			recent = nil
		}
	}

	systemPrompt, turns := p.composer.Compose(child.Age, memory, recent, message)

	reply, providerFailed := p.complete(ctx, systemPrompt, turns)

	result := &Result{Reply: reply}
	if session != nil {
		result.SessionID = session.ID
	}

	// Post-filter: provider output is held to the same standard as input.
	if !providerFailed {
		if c := p.filter.Classify(reply); c.Blocked {
			p.log.Warn("reply_post_filtered",
				zap.String("child_id", child.ID.String()),
				zap.String("category", string(c.Category)))
			p.raiseAlert(ctx, child, message, reply, safety.Classification{
				Blocked:   true,
				Category:  c.Category,
				AlertType: models.AlertTypeBlockedTopic,
				Severity:  c.Severity,
				Title:     "Assistant reply blocked",
			})
			result.Reply = PostFilterReply
			result.WasFiltered = true
		}
	}

	p.persistTurns(ctx, child.ID, session, message, result.Reply, result.WasFiltered)

	// Fact extraction is off the request path when a queue is available.
	if !providerFailed {
		p.scheduleExtraction(ctx, child.ID, message)
	}

	return result, nil
}

// redirect handles a pre-filtered message: no provider call, a canned
// redirect reply, a parent alert, and a flagged record of the turn.
func (p *Pipeline) redirect(ctx context.Context, child *models.Child, message string, c safety.Classification) *Result {
	p.log.Info("message_pre_filtered",
		zap.String("child_id", child.ID.String()),
		zap.String("category", string(c.Category)),
		zap.String("alert_type", string(c.AlertType)))

	p.raiseAlert(ctx, child, message, "", c)

	result := &Result{Reply: RedirectReply, WasFiltered: true, WasRedirected: true}

	session := p.attach(ctx, child.ID)
	if session != nil {
		result.SessionID = session.ID
		if _, err := p.sessions.Append(ctx, session.ID, models.MessageRoleUser, message, true); err != nil {
			p.logPersistence("append_user_turn", err)
		}
		if _, err := p.sessions.Append(ctx, session.ID, models.MessageRoleAssistant, RedirectReply, false); err != nil {
			p.logPersistence("append_assistant_turn", err)
		}
	}
	if err := p.history.AppendTurn(ctx, child.ID, models.MessageRoleUser, message, true); err != nil {
		p.logPersistence("append_history_user", err)
	}
	if err := p.history.AppendTurn(ctx, child.ID, models.MessageRoleAssistant, RedirectReply, false); err != nil {
		p.logPersistence("append_history_assistant", err)
	}

	return result
}

// attach returns the child's active session, or nil when the store is
// unavailable. A nil session degrades the reply to stateless.
func (p *Pipeline) attach(ctx context.Context, childID uuid.UUID) *models.ConversationSession {
	session, err := p.sessions.Attach(ctx, childID)
	if err != nil {
		p.logPersistence("attach_session", err)
		return nil
	}
	return session
}

// complete calls the provider with one bounded retry. A second failure
// yields the fallback reply.
func (p *Pipeline) complete(ctx context.Context, systemPrompt string, turns []ai.ChatMessage) (string, bool) {
	reply, err := p.provider.Complete(ctx, systemPrompt, turns, p.cfg.MaxTokens)
	if err == nil {
		return reply, false
	}

	perr := &ProviderError{Err: err}
	p.log.Warn("provider_call_failed", zap.String("error", logger.SanitizeError(perr)))

	select {
	case <-ctx.Done():
		return FallbackReply, true
	case <-time.After(ai.RetryDelay(err)):
	}

	reply, err = p.provider.Complete(ctx, systemPrompt, turns, p.cfg.MaxTokens)
	if err != nil {
		p.log.Error("provider_retry_failed", zap.String("error", logger.SanitizeError(&ProviderError{Err: err})))
		return FallbackReply, true
	}
	return reply, false
}

// persistTurns records the exchange in the session store and the durable
// history. Failures are logged, never surfaced.
func (p *Pipeline) persistTurns(ctx context.Context, childID uuid.UUID, session *models.ConversationSession, message, reply string, replyFiltered bool) {
	if session != nil {
		if _, err := p.sessions.Append(ctx, session.ID, models.MessageRoleUser, message, false); err != nil {
			p.logPersistence("append_user_turn", err)
		}
		if _, err := p.sessions.Append(ctx, session.ID, models.MessageRoleAssistant, reply, replyFiltered); err != nil {
			p.logPersistence("append_assistant_turn", err)
		}
	}
	if err := p.history.AppendTurn(ctx, childID, models.MessageRoleUser, message, false); err != nil {
		p.logPersistence("append_history_user", err)
	}
	if err := p.history.AppendTurn(ctx, childID, models.MessageRoleAssistant, reply, replyFiltered); err != nil {
		p.logPersistence("append_history_assistant", err)
	}
}

// raiseAlert records a parent alert. Best effort.
func (p *Pipeline) raiseAlert(ctx context.Context, child *models.Child, message, reply string, c safety.Classification) {
	title := c.Title
	if title == "" {
		title = "Flagged message"
	}
	alert := &models.ParentAlert{
		ID:                uuid.New(),
		ChildID:           child.ID,
		AlertType:         c.AlertType,
		Severity:          c.Severity,
		Title:             title,
		Content:           fmt.Sprintf("%s sent a message that was flagged", child.Name),
		OriginalMessage:   message,
		AssistantResponse: reply,
		CreatedAt:         time.Now(),
	}
	if err := p.alerts.Create(ctx, alert); err != nil {
		p.logPersistence("create_alert", err)
	}
}

// scheduleExtraction queues a memory extraction job, or runs the extractor
// inline when no queue is configured.
func (p *Pipeline) scheduleExtraction(ctx context.Context, childID uuid.UUID, message string) {
	if p.jobs != nil {
		job := queue.NewJob(queue.JobTypeMemoryExtraction, childID, message)
		if err := p.jobs.Enqueue(ctx, job); err != nil {
			p.log.Warn("memory_job_enqueue_failed",
				zap.String("child_id", childID.String()),
				zap.String("error", logger.SanitizeError(err)))
		} else {
			return
		}
	}

	updates := p.extractor.Extract(message)
	if updates.IsEmpty() {
		return
	}
	if _, err := p.memory.Merge(ctx, childID, updates); err != nil {
		p.logPersistence("merge_memory", err)
	}
}

func (p *Pipeline) logPersistence(op string, err error) {
	perr := &PersistenceError{Op: op, Err: err}
	p.log.Warn("persistence_degraded",
		zap.String("op", op),
		zap.String("error", logger.SanitizeError(perr)))
}
