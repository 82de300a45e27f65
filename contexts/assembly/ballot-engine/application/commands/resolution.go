package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "summit/contexts/assembly/ballot-engine/application"
	"summit/contexts/assembly/ballot-engine/domain/entities"
	domainerrors "summit/contexts/assembly/ballot-engine/domain/errors"
	"summit/contexts/assembly/ballot-engine/domain/services"
	"summit/contexts/assembly/ballot-engine/ports"
)

type CreateResolutionCommand struct {
	Actor           entities.Voter
	Title           string
	Description     string
	Options         []string
	Status          entities.ResolutionStatus
	Visibility      entities.Visibility
	BallotMode      entities.BallotMode
	QuorumPercent   *int
	ShowLiveResults bool
	EligibleRoles   []string
	EligibleTeams   []string
}

type TransitionCommand struct {
	Actor        entities.Voter
	ResolutionID string
}

type UpdateEligibilityCommand struct {
	Actor         entities.Voter
	ResolutionID  string
	EligibleRoles []string
	EligibleTeams []string
}

type ReplaceOptionsCommand struct {
	Actor        entities.Voter
	ResolutionID string
	Options      []string
}

// ResolutionUseCase administers the resolution lifecycle. Every write that
// other users should hear about goes through the outbox in the same
// transaction as the state change.
type ResolutionUseCase struct {
	Resolutions ports.ResolutionRepository
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc ResolutionUseCase) CreateResolution(ctx context.Context, cmd CreateResolutionCommand) (entities.Resolution, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.Actor.UserID) == "" {
		return entities.Resolution{}, domainerrors.ErrUnauthenticated
	}
	if !cmd.Actor.Role.CanManage() || cmd.Actor.EventID == "" {
		logger.Warn("resolution create forbidden",
			"event", "assembly_resolution_create_forbidden",
			"module", "assembly/ballot-engine",
			"layer", "application",
			"user_id", cmd.Actor.UserID,
			"role", string(cmd.Actor.Role),
		)
		return entities.Resolution{}, domainerrors.ErrForbidden
	}

	resolution, err := uc.buildResolution(cmd)
	if err != nil {
		logger.Warn("resolution create validation failed",
			"event", "assembly_resolution_create_validation_failed",
			"module", "assembly/ballot-engine",
			"layer", "application",
			"user_id", cmd.Actor.UserID,
			"error", err.Error(),
		)
		return entities.Resolution{}, err
	}

	now := uc.now()
	resolutionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Resolution{}, err
	}
	resolution.ResolutionID = resolutionID
	resolution.CreatedAt = now
	resolution.UpdatedAt = now

	labels := cleanLabels(cmd.Options)
	keys := entities.OptionKeys(labels)
	for i, label := range labels {
		optionID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.Resolution{}, err
		}
		resolution.Options = append(resolution.Options, entities.Option{
			OptionID:     optionID,
			ResolutionID: resolutionID,
			OptionKey:    keys[i],
			Label:        label,
			Position:     i,
		})
	}

	eventType := EventResolutionCreated
	if resolution.Status == entities.ResolutionStatusActive {
		eventType = EventResolutionOpened
	}
	envelope, err := uc.envelope(ctx, eventType, resolution, now)
	if err != nil {
		return entities.Resolution{}, err
	}
	if err := uc.Resolutions.CreateResolution(ctx, resolution, envelope); err != nil {
		logger.Error("resolution create failed",
			"event", "assembly_resolution_create_failed",
			"module", "assembly/ballot-engine",
			"layer", "application",
			"resolution_id", resolutionID,
			"error", err.Error(),
		)
		return entities.Resolution{}, err
	}

	logger.Info("resolution created",
		"event", "assembly_resolution_created",
		"module", "assembly/ballot-engine",
		"layer", "application",
		"resolution_id", resolutionID,
		"event_id", resolution.EventID,
		"status", string(resolution.Status),
		"ballot_mode", string(resolution.BallotMode),
		"option_count", len(resolution.Options),
	)
	return resolution, nil
}

// OpenResolution moves a draft resolution to active.
func (uc ResolutionUseCase) OpenResolution(ctx context.Context, cmd TransitionCommand) (entities.Resolution, error) {
	return uc.transition(ctx, cmd, entities.ResolutionStatusDraft, entities.ResolutionStatusActive, EventResolutionOpened)
}

// CloseResolution moves an active resolution to closed. Closed resolutions
// accept no further ballots.
func (uc ResolutionUseCase) CloseResolution(ctx context.Context, cmd TransitionCommand) (entities.Resolution, error) {
	return uc.transition(ctx, cmd, entities.ResolutionStatusActive, entities.ResolutionStatusClosed, EventResolutionClosed)
}

func (uc ResolutionUseCase) UpdateEligibility(ctx context.Context, cmd UpdateEligibilityCommand) (entities.Resolution, error) {
	logger := application.ResolveLogger(uc.Logger)
	resolution, err := uc.loadManaged(ctx, cmd.Actor, cmd.ResolutionID, false)
	if err != nil {
		return entities.Resolution{}, err
	}
	if resolution.Status == entities.ResolutionStatusClosed {
		return entities.Resolution{}, domainerrors.ErrInvalidTransition
	}
	rules, err := services.NormalizeRules(cmd.EligibleRoles, cmd.EligibleTeams)
	if err != nil {
		return entities.Resolution{}, err
	}

	now := uc.now()
	if err := uc.Resolutions.ReplaceEligibility(ctx, resolution.ResolutionID, rules.Roles, rules.Teams, now); err != nil {
		logger.Error("resolution eligibility update failed",
			"event", "assembly_resolution_eligibility_update_failed",
			"module", "assembly/ballot-engine",
			"layer", "application",
			"resolution_id", resolution.ResolutionID,
			"error", err.Error(),
		)
		return entities.Resolution{}, err
	}
	resolution.EligibleRoles = rules.Roles
	resolution.EligibleTeams = rules.Teams
	resolution.UpdatedAt = now

	logger.Info("resolution eligibility updated",
		"event", "assembly_resolution_eligibility_updated",
		"module", "assembly/ballot-engine",
		"layer", "application",
		"resolution_id", resolution.ResolutionID,
		"role_count", len(rules.Roles),
		"team_count", len(rules.Teams),
	)
	return resolution, nil
}

// ReplaceOptions swaps the option set of a resolution that has no ballots yet.
func (uc ResolutionUseCase) ReplaceOptions(ctx context.Context, cmd ReplaceOptionsCommand) (entities.Resolution, error) {
	logger := application.ResolveLogger(uc.Logger)
	resolution, err := uc.loadManaged(ctx, cmd.Actor, cmd.ResolutionID, false)
	if err != nil {
		return entities.Resolution{}, err
	}
	if resolution.Status == entities.ResolutionStatusClosed {
		return entities.Resolution{}, domainerrors.ErrInvalidTransition
	}
	labels := cleanLabels(cmd.Options)
	if len(labels) < 2 {
		return entities.Resolution{}, domainerrors.ErrInvalidResolutionInput
	}

	keys := entities.OptionKeys(labels)
	options := make([]entities.Option, 0, len(labels))
	for i, label := range labels {
		optionID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.Resolution{}, err
		}
		options = append(options, entities.Option{
			OptionID:     optionID,
			ResolutionID: resolution.ResolutionID,
			OptionKey:    keys[i],
			Label:        label,
			Position:     i,
		})
	}

	now := uc.now()
	if err := uc.Resolutions.ReplaceOptions(ctx, resolution.ResolutionID, options, now); err != nil {
		logger.Warn("resolution options replace rejected",
			"event", "assembly_resolution_options_replace_rejected",
			"module", "assembly/ballot-engine",
			"layer", "application",
			"resolution_id", resolution.ResolutionID,
			"error", err.Error(),
		)
		return entities.Resolution{}, err
	}
	resolution.Options = options
	resolution.UpdatedAt = now
	return resolution, nil
}

func (uc ResolutionUseCase) transition(
	ctx context.Context,
	cmd TransitionCommand,
	from entities.ResolutionStatus,
	to entities.ResolutionStatus,
	eventType string,
) (entities.Resolution, error) {
	logger := application.ResolveLogger(uc.Logger)
	resolution, err := uc.loadManaged(ctx, cmd.Actor, cmd.ResolutionID, true)
	if err != nil {
		return entities.Resolution{}, err
	}
	if resolution.Status != from {
		return entities.Resolution{}, domainerrors.ErrInvalidTransition
	}

	now := uc.now()
	next := resolution
	next.Status = to
	envelope, err := uc.envelope(ctx, eventType, next, now)
	if err != nil {
		return entities.Resolution{}, err
	}
	updated, err := uc.Resolutions.TransitionResolution(ctx, ports.StatusTransition{
		ResolutionID: resolution.ResolutionID,
		From:         from,
		To:           to,
		At:           now,
	}, envelope)
	if err != nil {
		logger.Warn("resolution transition rejected",
			"event", "assembly_resolution_transition_rejected",
			"module", "assembly/ballot-engine",
			"layer", "application",
			"resolution_id", resolution.ResolutionID,
			"from", string(from),
			"to", string(to),
			"error", err.Error(),
		)
		return entities.Resolution{}, err
	}

	logger.Info("resolution transitioned",
		"event", "assembly_resolution_transitioned",
		"module", "assembly/ballot-engine",
		"layer", "application",
		"resolution_id", resolution.ResolutionID,
		"from", string(from),
		"to", string(to),
		"actor_id", cmd.Actor.UserID,
	)
	return updated, nil
}

// loadManaged loads a resolution the actor administers. Lifecycle
// transitions are also open to the resolution's creator.
func (uc ResolutionUseCase) loadManaged(
	ctx context.Context,
	actor entities.Voter,
	resolutionID string,
	creatorAllowed bool,
) (entities.Resolution, error) {
	if strings.TrimSpace(actor.UserID) == "" {
		return entities.Resolution{}, domainerrors.ErrUnauthenticated
	}
	if strings.TrimSpace(resolutionID) == "" {
		return entities.Resolution{}, domainerrors.ErrResolutionNotFound
	}
	resolution, err := uc.Resolutions.GetResolution(ctx, strings.TrimSpace(resolutionID))
	if err != nil {
		return entities.Resolution{}, err
	}
	if !actor.InScope(resolution) {
		return entities.Resolution{}, domainerrors.ErrResolutionNotFound
	}
	allowed := actor.Role.CanManage()
	if creatorAllowed {
		allowed = actor.Role.IsAdminLike() || actor.UserID == resolution.CreatedByID
	}
	if !allowed {
		return entities.Resolution{}, domainerrors.ErrForbidden
	}
	return resolution, nil
}

func (uc ResolutionUseCase) buildResolution(cmd CreateResolutionCommand) (entities.Resolution, error) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" || len(cleanLabels(cmd.Options)) < 2 {
		return entities.Resolution{}, domainerrors.ErrInvalidResolutionInput
	}

	status := cmd.Status
	if status == "" {
		status = entities.ResolutionStatusDraft
	}
	if status != entities.ResolutionStatusDraft && status != entities.ResolutionStatusActive {
		return entities.Resolution{}, domainerrors.ErrInvalidResolutionInput
	}
	visibility := cmd.Visibility
	if visibility == "" {
		visibility = entities.VisibilityPublic
	}
	if visibility != entities.VisibilityPublic && visibility != entities.VisibilitySecret {
		return entities.Resolution{}, domainerrors.ErrInvalidResolutionInput
	}
	mode := cmd.BallotMode
	if mode == "" {
		mode = entities.BallotModePerDelegation
	}
	if mode != entities.BallotModePerDelegation && mode != entities.BallotModePerPerson {
		return entities.Resolution{}, domainerrors.ErrInvalidResolutionInput
	}
	quorum := entities.DefaultQuorumPercent
	if cmd.QuorumPercent != nil {
		quorum = *cmd.QuorumPercent
	}
	if quorum < 0 || quorum > 100 {
		return entities.Resolution{}, domainerrors.ErrInvalidResolutionInput
	}
	rules, err := services.NormalizeRules(cmd.EligibleRoles, cmd.EligibleTeams)
	if err != nil {
		return entities.Resolution{}, err
	}

	return entities.Resolution{
		EventID:         cmd.Actor.EventID,
		Title:           title,
		Description:     strings.TrimSpace(cmd.Description),
		Status:          status,
		Visibility:      visibility,
		BallotMode:      mode,
		QuorumPercent:   quorum,
		ShowLiveResults: cmd.ShowLiveResults,
		CreatedByID:     cmd.Actor.UserID,
		EligibleRoles:   rules.Roles,
		EligibleTeams:   rules.Teams,
	}, nil
}

func (uc ResolutionUseCase) envelope(
	ctx context.Context,
	eventType string,
	resolution entities.Resolution,
	now time.Time,
) (ports.EventEnvelope, error) {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return newResolutionEnvelope(eventID, eventType, resolution, now)
}

func (uc ResolutionUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func cleanLabels(options []string) []string {
	labels := make([]string, 0, len(options))
	for _, option := range options {
		if label := strings.TrimSpace(option); label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}
