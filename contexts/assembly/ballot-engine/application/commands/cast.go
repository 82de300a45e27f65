package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "summit/contexts/assembly/ballot-engine/application"
	"summit/contexts/assembly/ballot-engine/domain/entities"
	domainerrors "summit/contexts/assembly/ballot-engine/domain/errors"
	"summit/contexts/assembly/ballot-engine/domain/services"
	"summit/contexts/assembly/ballot-engine/ports"
)

type CastBallotCommand struct {
	Voter        entities.Voter
	ResolutionID string
	OptionID     string
}

type CastBallotResult struct {
	Ballot    entities.Ballot
	OptionKey string
}

// BallotUseCase records ballots. Preconditions are checked in a fixed order
// so every rejection carries one distinct reason; the repository's uniqueness
// constraint is the final word on duplicates.
type BallotUseCase struct {
	Resolutions ports.ResolutionRepository
	Ballots     ports.BallotRepository
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc BallotUseCase) CastBallot(ctx context.Context, cmd CastBallotCommand) (CastBallotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	voter := cmd.Voter
	if strings.TrimSpace(voter.UserID) == "" {
		return CastBallotResult{}, domainerrors.ErrUnauthenticated
	}
	resolutionID := strings.TrimSpace(cmd.ResolutionID)
	optionID := strings.TrimSpace(cmd.OptionID)
	if resolutionID == "" {
		return CastBallotResult{}, domainerrors.ErrResolutionNotFound
	}

	resolution, err := uc.Resolutions.GetResolution(ctx, resolutionID)
	if err != nil {
		return CastBallotResult{}, err
	}
	if !voter.InScope(resolution) {
		return CastBallotResult{}, domainerrors.ErrResolutionNotFound
	}
	if resolution.Status != entities.ResolutionStatusActive {
		return CastBallotResult{}, domainerrors.ErrResolutionNotActive
	}
	option, ok := resolution.Option(optionID)
	if !ok {
		return CastBallotResult{}, domainerrors.ErrInvalidOption
	}
	if err := services.CheckVoter(resolution, voter); err != nil {
		logger.Info("ballot rejected as ineligible",
			"event", "assembly_ballot_ineligible",
			"module", "assembly/ballot-engine",
			"layer", "application",
			"resolution_id", resolutionID,
			"user_id", voter.UserID,
			"role", string(voter.Role),
			"team_id", voter.TeamID,
			"reason", err.Error(),
		)
		return CastBallotResult{}, err
	}

	dedupKey := entities.DedupKey(resolution.BallotMode, voter.UserID, voter.TeamID)
	exists, err := uc.Ballots.HasBallot(ctx, resolutionID, dedupKey)
	if err != nil {
		return CastBallotResult{}, err
	}
	if exists {
		return CastBallotResult{}, domainerrors.ErrAlreadyVoted
	}

	now := uc.now()
	ballotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CastBallotResult{}, err
	}
	castID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CastBallotResult{}, err
	}
	record := ports.BallotRecord{
		Ballot: entities.Ballot{
			BallotID:     ballotID,
			ResolutionID: resolutionID,
			EventID:      resolution.EventID,
			VoterUserID:  voter.UserID,
			VoterTeamID:  strings.TrimSpace(voter.TeamID),
			DedupKey:     dedupKey,
			CreatedAt:    now,
		},
		Cast: entities.Cast{
			CastID:    castID,
			BallotID:  ballotID,
			OptionID:  option.OptionID,
			CreatedAt: now,
		},
		Voter: voter,
	}
	if resolution.Visibility == entities.VisibilityPublic {
		record.Rollcall = &entities.Rollcall{
			ResolutionID: resolutionID,
			UserID:       voter.UserID,
			TeamID:       strings.TrimSpace(voter.TeamID),
			OptionKey:    option.OptionKey,
			CreatedAt:    now,
		}
	}

	if err := uc.Ballots.RecordBallot(ctx, record); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyVoted) {
			logger.Info("concurrent duplicate ballot rejected",
				"event", "assembly_ballot_duplicate_rejected",
				"module", "assembly/ballot-engine",
				"layer", "application",
				"resolution_id", resolutionID,
				"dedup_key", dedupKey,
			)
			return CastBallotResult{}, err
		}
		logger.Error("ballot record failed",
			"event", "assembly_ballot_record_failed",
			"module", "assembly/ballot-engine",
			"layer", "application",
			"resolution_id", resolutionID,
			"user_id", voter.UserID,
			"error", err.Error(),
		)
		return CastBallotResult{}, err
	}

	logger.Info("ballot recorded",
		"event", "assembly_ballot_recorded",
		"module", "assembly/ballot-engine",
		"layer", "application",
		"resolution_id", resolutionID,
		"ballot_id", ballotID,
		"ballot_mode", string(resolution.BallotMode),
		"visibility", string(resolution.Visibility),
	)
	return CastBallotResult{Ballot: record.Ballot, OptionKey: option.OptionKey}, nil
}

func (uc BallotUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
