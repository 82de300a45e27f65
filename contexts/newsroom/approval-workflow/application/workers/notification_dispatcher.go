package workers

import (
	"context"
	"fmt"
	"log/slog"

	application "summit/contexts/newsroom/approval-workflow/application"
	"summit/contexts/newsroom/approval-workflow/application/commands"
	"summit/contexts/newsroom/approval-workflow/ports"
	contractsv1 "summit/contracts/gen/events/v1"
)

const defaultConsumerGroup = "newsroom-notifications-cg"

const (
	KindNewsPublished = "news_published"
	KindNewsApproved  = "news_approved"
	KindNewsRejected  = "news_rejected"
)

// NotificationDispatcher fans review outcomes out to readers and authors.
// Each outcome event is emitted once per transition, so each notification is
// sent once as well.
type NotificationDispatcher struct {
	Subscriber    ports.EventSubscriber
	Directory     ports.Directory
	Sink          ports.NotificationSink
	Topic         string
	ConsumerGroup string
	Logger        *slog.Logger
}

func (d NotificationDispatcher) Start(ctx context.Context) error {
	topic := d.Topic
	if topic == "" {
		topic = ArticlesTopic
	}
	group := d.ConsumerGroup
	if group == "" {
		group = defaultConsumerGroup
	}
	return d.Subscriber.Subscribe(ctx, topic, group, d.Dispatch)
}

func (d NotificationDispatcher) Dispatch(ctx context.Context, event ports.EventEnvelope) error {
	var notifications []ports.Notification
	var data commands.ArticleEventData

	switch event.EventType {
	case commands.EventArticlePublished, commands.EventArticleRejected:
		if err := event.DecodeData(&data); err != nil {
			return err
		}
		if data.ArticleID == "" || data.AuthorID == "" {
			return fmt.Errorf("article event missing article_id or author_id")
		}
	default:
		return nil
	}

	deepLink := "/news/" + data.ArticleID
	if event.EventType == commands.EventArticleRejected {
		body := "Your article was sent back for changes."
		if data.Reason != "" {
			body = data.Reason
		}
		notifications = append(notifications, ports.Notification{
			EventID:      data.EventID,
			RecipientIDs: []string{data.AuthorID},
			Kind:         KindNewsRejected,
			Title:        "Article rejected: " + data.Title,
			Body:         body,
			DeepLink:     deepLink,
			Priority:     contractsv1.PriorityHigh,
			SourceEvent:  event.EventID,
		})
	} else {
		readers, err := d.readers(ctx, data)
		if err != nil {
			return err
		}
		if len(readers) > 0 {
			notifications = append(notifications, ports.Notification{
				EventID:      data.EventID,
				RecipientIDs: readers,
				Kind:         KindNewsPublished,
				Title:        "Breaking news",
				Body:         data.Title,
				DeepLink:     deepLink,
				Priority:     contractsv1.PriorityNormal,
				SourceEvent:  event.EventID,
			})
		}
		notifications = append(notifications, ports.Notification{
			EventID:      data.EventID,
			RecipientIDs: []string{data.AuthorID},
			Kind:         KindNewsApproved,
			Title:        "Your article was published",
			Body:         data.Title,
			DeepLink:     deepLink,
			Priority:     contractsv1.PriorityNormal,
			SourceEvent:  event.EventID,
		})
	}

	logger := application.ResolveLogger(d.Logger)
	for _, notification := range notifications {
		if err := d.Sink.Notify(ctx, notification); err != nil {
			logger.Error("article notification failed",
				"event", "newsroom_notification_failed",
				"module", "newsroom/approval-workflow",
				"layer", "worker",
				"event_id", event.EventID,
				"kind", notification.Kind,
				"error", err.Error(),
			)
			return err
		}
		logger.Info("article notification dispatched",
			"event", "newsroom_notification_dispatched",
			"module", "newsroom/approval-workflow",
			"layer", "worker",
			"event_id", event.EventID,
			"article_id", data.ArticleID,
			"kind", notification.Kind,
			"recipient_count", len(notification.RecipientIDs),
		)
	}
	return nil
}

// readers lists every member of the article's event except its author.
func (d NotificationDispatcher) readers(ctx context.Context, data commands.ArticleEventData) ([]string, error) {
	members, err := d.Directory.ListEventMembers(ctx, data.EventID)
	if err != nil {
		application.ResolveLogger(d.Logger).Error("notification recipients lookup failed",
			"event", "newsroom_notification_recipients_failed",
			"module", "newsroom/approval-workflow",
			"layer", "worker",
			"article_id", data.ArticleID,
			"error", err.Error(),
		)
		return nil, err
	}
	recipients := make([]string, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, member := range members {
		if member.UserID == "" || member.UserID == data.AuthorID {
			continue
		}
		if _, ok := seen[member.UserID]; ok {
			continue
		}
		seen[member.UserID] = struct{}{}
		recipients = append(recipients, member.UserID)
	}
	return recipients, nil
}
