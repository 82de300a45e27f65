// Package notify delivers member notifications emitted by the dispatchers.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	contractsv1 "summit/contracts/gen/events/v1"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LogSink writes notifications to the process log.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Notify(_ context.Context, notification contractsv1.Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification",
		"event", "notification_emitted",
		"module", "internal/platform/notify",
		"layer", "platform",
		"kind", notification.Kind,
		"priority", notification.Priority,
		"event_id", notification.EventID,
		"source_event_id", notification.SourceEvent,
		"recipient_count", len(notification.RecipientIDs),
		"deep_link", notification.DeepLink,
	)
	return nil
}

type notificationModel struct {
	NotificationID string     `gorm:"column:notification_id;primaryKey"`
	UserID         string     `gorm:"column:user_id;not null;index:notifications_user_created,priority:1;uniqueIndex:notifications_source_user_kind,priority:2"`
	EventID        string     `gorm:"column:event_id;not null"`
	Kind           string     `gorm:"column:kind;not null;uniqueIndex:notifications_source_user_kind,priority:3"`
	Title          string     `gorm:"column:title;not null"`
	Body           string     `gorm:"column:body"`
	DeepLink       string     `gorm:"column:deep_link"`
	Priority       string     `gorm:"column:priority;not null"`
	SourceEventID  string     `gorm:"column:source_event_id;not null;uniqueIndex:notifications_source_user_kind,priority:1"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null;index:notifications_user_created,priority:2"`
	ReadAt         *time.Time `gorm:"column:read_at"`
}

func (notificationModel) TableName() string {
	return "notifications"
}

// Store persists one notification row per recipient. A redelivered event
// writes nothing new.
type Store struct {
	db     *gorm.DB
	now    func() time.Time
	logger *slog.Logger
}

func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, now: time.Now, logger: logger}
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&notificationModel{})
}

func (s *Store) Notify(ctx context.Context, notification contractsv1.Notification) error {
	createdAt := s.now().UTC()
	rows := make([]notificationModel, 0, len(notification.RecipientIDs))
	for _, recipient := range notification.RecipientIDs {
		recipient = strings.TrimSpace(recipient)
		if recipient == "" {
			continue
		}
		rows = append(rows, notificationModel{
			NotificationID: uuid.NewString(),
			UserID:         recipient,
			EventID:        notification.EventID,
			Kind:           notification.Kind,
			Title:          notification.Title,
			Body:           notification.Body,
			DeepLink:       notification.DeepLink,
			Priority:       notification.Priority,
			SourceEventID:  notification.SourceEvent,
			CreatedAt:      createdAt,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).
		Error; err != nil {
		s.logger.Error("notification insert failed",
			"event", "notification_insert_failed",
			"module", "internal/platform/notify",
			"layer", "platform",
			"source_event_id", notification.SourceEvent,
			"kind", notification.Kind,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

// Inbox is one stored notification as a member sees it.
type Inbox struct {
	NotificationID string
	Kind           string
	Title          string
	Body           string
	DeepLink       string
	Priority       string
	CreatedAt      time.Time
	Read           bool
}

// ListForUser returns a member's notifications, newest first.
func (s *Store) ListForUser(ctx context.Context, userID string, limit int) ([]Inbox, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []notificationModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]Inbox, 0, len(rows))
	for _, row := range rows {
		items = append(items, Inbox{
			NotificationID: row.NotificationID,
			Kind:           row.Kind,
			Title:          row.Title,
			Body:           row.Body,
			DeepLink:       row.DeepLink,
			Priority:       row.Priority,
			CreatedAt:      row.CreatedAt.UTC(),
			Read:           row.ReadAt != nil,
		})
	}
	return items, nil
}
