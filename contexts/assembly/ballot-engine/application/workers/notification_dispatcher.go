package workers

import (
	"context"
	"fmt"
	"log/slog"

	application "summit/contexts/assembly/ballot-engine/application"
	"summit/contexts/assembly/ballot-engine/application/commands"
	"summit/contexts/assembly/ballot-engine/domain/entities"
	"summit/contexts/assembly/ballot-engine/domain/services"
	"summit/contexts/assembly/ballot-engine/ports"
	contractsv1 "summit/contracts/gen/events/v1"
)

const defaultConsumerGroup = "assembly-notifications-cg"

// NotificationDispatcher turns resolution lifecycle events into notifications
// for the members who can vote on them. The resolution creator is skipped.
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
		topic = ResolutionsTopic
	}
	group := d.ConsumerGroup
	if group == "" {
		group = defaultConsumerGroup
	}
	return d.Subscriber.Subscribe(ctx, topic, group, d.Dispatch)
}

func (d NotificationDispatcher) Dispatch(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(d.Logger)

	kind, priority, ok := notificationKind(event.EventType)
	if !ok {
		return nil
	}
	var data commands.ResolutionEventData
	if err := event.DecodeData(&data); err != nil {
		return err
	}
	if data.ResolutionID == "" || data.EventID == "" {
		return fmt.Errorf("resolution event missing resolution_id or event_id")
	}

	members, err := d.Directory.ListEventMembers(ctx, data.EventID)
	if err != nil {
		logger.Error("notification recipients lookup failed",
			"event", "assembly_notification_recipients_failed",
			"module", "assembly/ballot-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	recipients := eligibleRecipients(data, members)
	if len(recipients) == 0 {
		return nil
	}

	notification := ports.Notification{
		EventID:      data.EventID,
		RecipientIDs: recipients,
		Kind:         kind,
		Title:        notificationTitle(kind),
		Body:         data.Title,
		DeepLink:     "/votes",
		Priority:     priority,
		SourceEvent:  event.EventID,
	}
	if err := d.Sink.Notify(ctx, notification); err != nil {
		logger.Error("resolution notification failed",
			"event", "assembly_notification_failed",
			"module", "assembly/ballot-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"kind", kind,
			"error", err.Error(),
		)
		return err
	}

	logger.Info("resolution notification dispatched",
		"event", "assembly_notification_dispatched",
		"module", "assembly/ballot-engine",
		"layer", "worker",
		"event_id", event.EventID,
		"resolution_id", data.ResolutionID,
		"kind", kind,
		"recipient_count", len(recipients),
	)
	return nil
}

func notificationKind(eventType string) (string, string, bool) {
	switch eventType {
	case commands.EventResolutionOpened:
		return "vote_opened", contractsv1.PriorityHigh, true
	case commands.EventResolutionCreated:
		return "vote_created", contractsv1.PriorityNormal, true
	case commands.EventResolutionClosed:
		return "vote_closed", contractsv1.PriorityNormal, true
	default:
		return "", "", false
	}
}

func notificationTitle(kind string) string {
	switch kind {
	case "vote_opened":
		return "A vote is open"
	case "vote_closed":
		return "A vote has closed"
	default:
		return "A new vote was created"
	}
}

func eligibleRecipients(data commands.ResolutionEventData, members []entities.Voter) []string {
	rules, err := services.NormalizeRules(data.EligibleRoles, data.EligibleTeams)
	if err != nil {
		return nil
	}
	recipients := make([]string, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, member := range members {
		if member.UserID == "" || member.UserID == data.CreatedByID {
			continue
		}
		if services.CheckEligibility(rules, member.Role, member.TeamID) != nil {
			continue
		}
		if _, ok := seen[member.UserID]; ok {
			continue
		}
		seen[member.UserID] = struct{}{}
		recipients = append(recipients, member.UserID)
	}
	return recipients
}
