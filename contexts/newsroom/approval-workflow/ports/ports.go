package ports

import (
	"context"
	"time"

	"summit/contexts/newsroom/approval-workflow/domain/entities"
	"summit/contexts/newsroom/approval-workflow/domain/services"
	contractsv1 "summit/contracts/gen/events/v1"
	"summit/internal/shared/outbox"
)

// ArticleFilter selects articles in one event. Rows match when their status
// is in Statuses (any status when empty) and the author constraints hold, or
// when they were written by IncludeAuthoredBy.
type ArticleFilter struct {
	EventID           string
	Statuses          []entities.ArticleStatus
	AuthorID          string
	ExcludeAuthorID   string
	IncludeAuthoredBy string
}

// ArticleEdit carries optional field changes applied only while the article
// is draft or rejected.
type ArticleEdit struct {
	ArticleID string
	Title     *string
	Content   *string
	At        time.Time
}

// ReviewDecision is one reviewer decision plus the events to emit when it
// moves the article out of submitted.
type ReviewDecision struct {
	Approval   entities.Approval
	Thresholds services.QuorumThresholds
	Published  EventEnvelope
	Rejected   EventEnvelope
}

type ReviewResult struct {
	Article      entities.Article
	Approvals    []entities.Approval
	Transitioned bool
}

type ArticleRepository interface {
	CreateArticle(ctx context.Context, article entities.Article) error
	GetArticle(ctx context.Context, articleID string) (entities.Article, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]entities.Article, error)
	UpdateArticle(ctx context.Context, edit ArticleEdit) (entities.Article, error)
	// SubmitArticle moves a draft or rejected article to submitted and drops
	// every approval recorded in the previous review cycle.
	SubmitArticle(ctx context.Context, articleID string, at time.Time) (entities.Article, error)
	DeleteArticle(ctx context.Context, articleID string) error
	ListApprovals(ctx context.Context, articleIDs []string) (map[string][]entities.Approval, error)
	RecordReview(ctx context.Context, decision ReviewDecision) (ReviewResult, error)
}

type Directory interface {
	ListEventMembers(ctx context.Context, eventID string) ([]entities.Actor, error)
}

type OutboxMessage = outbox.Message

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

type EventEnvelope = contractsv1.Envelope

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

type Notification = contractsv1.Notification

type NotificationSink interface {
	Notify(ctx context.Context, notification Notification) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
