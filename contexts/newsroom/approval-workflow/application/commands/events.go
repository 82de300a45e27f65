package commands

import (
	"encoding/json"
	"time"

	"summit/contexts/newsroom/approval-workflow/domain/entities"
	"summit/contexts/newsroom/approval-workflow/ports"
	contractsv1 "summit/contracts/gen/events/v1"
)

const (
	EventArticlePublished = "newsroom.article.published"
	EventArticleRejected  = "newsroom.article.rejected"
)

// ArticleEventData is the payload of article review outcome events.
type ArticleEventData struct {
	ArticleID  string    `json:"article_id"`
	EventID    string    `json:"event_id"`
	AuthorID   string    `json:"author_id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	ReviewerID string    `json:"reviewer_id"`
	Reason     string    `json:"reason,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}

func newArticleEnvelope(
	eventID string,
	eventType string,
	article entities.Article,
	approval entities.Approval,
	status entities.ArticleStatus,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(ArticleEventData{
		ArticleID:  article.ArticleID,
		EventID:    article.EventID,
		AuthorID:   article.AuthorID,
		Title:      article.Title,
		Status:     string(status),
		ReviewerID: approval.ApproverID,
		Reason:     approval.Reason,
		DecidedAt:  approval.DecidedAt.UTC(),
	})
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       approval.DecidedAt.UTC(),
		SourceService:    "approval-workflow",
		TraceID:          eventID,
		SchemaVersion:    contractsv1.SchemaVersion,
		PartitionKeyPath: "article_id",
		PartitionKey:     article.ArticleID,
		Data:             payload,
	}, nil
}
