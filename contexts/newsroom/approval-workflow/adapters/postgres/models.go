package postgresadapter

import (
	"time"

	"summit/contexts/newsroom/approval-workflow/domain/entities"
	"summit/contexts/newsroom/approval-workflow/ports"
)

type articleModel struct {
	ArticleID   string     `gorm:"column:article_id;primaryKey"`
	EventID     string     `gorm:"column:event_id;not null;index:news_articles_event_status,priority:1"`
	AuthorID    string     `gorm:"column:author_id;not null;index:news_articles_author_id"`
	Title       string     `gorm:"column:title;not null"`
	Content     string     `gorm:"column:content;not null"`
	Status      string     `gorm:"column:status;not null;index:news_articles_event_status,priority:2"`
	PublishedAt *time.Time `gorm:"column:published_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null"`
}

func (articleModel) TableName() string {
	return "news_articles"
}

func articleModelFromEntity(article entities.Article) articleModel {
	return articleModel{
		ArticleID:   article.ArticleID,
		EventID:     article.EventID,
		AuthorID:    article.AuthorID,
		Title:       article.Title,
		Content:     article.Content,
		Status:      string(article.Status),
		PublishedAt: article.PublishedAt,
		CreatedAt:   article.CreatedAt.UTC(),
		UpdatedAt:   article.UpdatedAt.UTC(),
	}
}

func (m articleModel) toEntity() entities.Article {
	article := entities.Article{
		ArticleID: m.ArticleID,
		EventID:   m.EventID,
		AuthorID:  m.AuthorID,
		Title:     m.Title,
		Content:   m.Content,
		Status:    entities.ArticleStatus(m.Status),
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
	if m.PublishedAt != nil {
		publishedAt := m.PublishedAt.UTC()
		article.PublishedAt = &publishedAt
	}
	return article
}

type approvalModel struct {
	ApprovalID   string    `gorm:"column:approval_id;primaryKey"`
	ArticleID    string    `gorm:"column:article_id;not null;uniqueIndex:news_approvals_article_approver,priority:1"`
	ApproverID   string    `gorm:"column:approver_id;not null;uniqueIndex:news_approvals_article_approver,priority:2"`
	ApproverRole string    `gorm:"column:approver_role;not null"`
	Decision     string    `gorm:"column:decision;not null"`
	Reason       *string   `gorm:"column:reason"`
	DecidedAt    time.Time `gorm:"column:decided_at;not null"`
}

func (approvalModel) TableName() string {
	return "news_approvals"
}

func approvalModelFromEntity(approval entities.Approval) approvalModel {
	row := approvalModel{
		ApprovalID:   approval.ApprovalID,
		ArticleID:    approval.ArticleID,
		ApproverID:   approval.ApproverID,
		ApproverRole: string(approval.ApproverRole),
		Decision:     string(approval.Decision),
		DecidedAt:    approval.DecidedAt.UTC(),
	}
	if approval.Reason != "" {
		reason := approval.Reason
		row.Reason = &reason
	}
	return row
}

func (m approvalModel) toEntity() entities.Approval {
	approval := entities.Approval{
		ApprovalID:   m.ApprovalID,
		ArticleID:    m.ArticleID,
		ApproverID:   m.ApproverID,
		ApproverRole: entities.ReviewerRole(m.ApproverRole),
		Decision:     entities.Decision(m.Decision),
		DecidedAt:    m.DecidedAt.UTC(),
	}
	if m.Reason != nil {
		approval.Reason = *m.Reason
	}
	return approval
}

// memberModel reads the event membership projection owned by the identity
// provider. It shares the event_members table with the ballot engine.
type memberModel struct {
	UserID      string `gorm:"column:user_id;primaryKey"`
	EventID     string `gorm:"column:event_id;primaryKey"`
	Role        string `gorm:"column:role;not null"`
	TeamID      string `gorm:"column:team_id"`
	DisplayName string `gorm:"column:display_name"`
}

func (memberModel) TableName() string {
	return "event_members"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type;not null"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;not null"`
	Status       string     `gorm:"column:status;not null;index:newsroom_outbox_status_created,priority:1"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null;index:newsroom_outbox_status_created,priority:2"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "newsroom_outbox"
}

func (m outboxModel) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      m.Payload,
		Status:       m.Status,
		CreatedAt:    m.CreatedAt.UTC(),
		SentAt:       m.SentAt,
	}
}
