package ports

import (
	"context"
	"time"

	"summit/contexts/assembly/ballot-engine/domain/entities"
	contractsv1 "summit/contracts/gen/events/v1"
	"summit/internal/shared/outbox"
)

// ResolutionRepository owns resolution, option and eligibility rows.
// Writes that announce something carry the outbox envelope so the row change
// and the event commit together.
type ResolutionRepository interface {
	CreateResolution(ctx context.Context, resolution entities.Resolution, event EventEnvelope) error
	GetResolution(ctx context.Context, resolutionID string) (entities.Resolution, error)
	ListResolutions(ctx context.Context, eventID string) ([]entities.Resolution, error)
	// TransitionResolution moves status from -> to only if the row is still in
	// from. The event is appended only when the transition happened.
	TransitionResolution(ctx context.Context, transition StatusTransition, event EventEnvelope) (entities.Resolution, error)
	ReplaceEligibility(ctx context.Context, resolutionID string, roles []entities.Role, teams []string, updatedAt time.Time) error
	// ReplaceOptions fails with ErrOptionsLocked when any ballot exists.
	ReplaceOptions(ctx context.Context, resolutionID string, options []entities.Option, updatedAt time.Time) error
}

type StatusTransition struct {
	ResolutionID string
	From         entities.ResolutionStatus
	To           entities.ResolutionStatus
	At           time.Time
}

// BallotRecord is the atomic unit written by a cast.
type BallotRecord struct {
	Ballot   entities.Ballot
	Cast     entities.Cast
	Rollcall *entities.Rollcall
	Voter    entities.Voter
}

// BallotRepository persists ballots. RecordBallot re-validates status and
// eligibility inside its transaction and reports a uniqueness conflict as
// ErrAlreadyVoted.
type BallotRepository interface {
	HasBallot(ctx context.Context, resolutionID string, dedupKey string) (bool, error)
	RecordBallot(ctx context.Context, record BallotRecord) error
	CountBallots(ctx context.Context, resolutionID string) (int, error)
	CountCastsByOption(ctx context.Context, resolutionID string) (map[string]int, error)
	ListRollcalls(ctx context.Context, resolutionID string) ([]entities.Rollcall, error)
}

// Directory is the read-only projection of event membership owned by the
// identity provider.
type Directory interface {
	ListEventMembers(ctx context.Context, eventID string) ([]entities.Voter, error)
}

type OutboxMessage = outbox.Message

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
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
