package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"summit/contexts/assembly/ballot-engine/domain/entities"
	domainerrors "summit/contexts/assembly/ballot-engine/domain/errors"
	"summit/contexts/assembly/ballot-engine/ports"
	"summit/internal/platform/db/dbtest"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	pg := dbtest.StartPostgres(t)
	repo := NewRepository(pg.DB, nil)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return repo
}

func seedResolution(t *testing.T, repo *Repository, id string, mode entities.BallotMode, teams []string) entities.Resolution {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	resolution := entities.Resolution{
		ResolutionID:  id,
		EventID:       "event-1",
		Title:         "Adopt the climate accord",
		Status:        entities.ResolutionStatusActive,
		Visibility:    entities.VisibilityPublic,
		BallotMode:    mode,
		QuorumPercent: entities.DefaultQuorumPercent,
		CreatedByID:   "admin-1",
		EligibleTeams: teams,
		CreatedAt:     now,
		UpdatedAt:     now,
		Options: []entities.Option{
			{OptionID: id + "-yes", ResolutionID: id, OptionKey: "yes", Label: "Yes", Position: 0},
			{OptionID: id + "-no", ResolutionID: id, OptionKey: "no", Label: "No", Position: 1},
		},
	}
	event := ports.EventEnvelope{
		EventID:    id + "-created",
		EventType:  "assembly.resolution.opened",
		OccurredAt: now,
		Data:       []byte(`{}`),
	}
	if err := repo.CreateResolution(context.Background(), resolution, event); err != nil {
		t.Fatalf("create resolution failed: %v", err)
	}
	return resolution
}

func ballotRecord(resolution entities.Resolution, n int, voter entities.Voter, optionID string) ports.BallotRecord {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ballotID := fmt.Sprintf("%s-ballot-%d", resolution.ResolutionID, n)
	return ports.BallotRecord{
		Ballot: entities.Ballot{
			BallotID:     ballotID,
			ResolutionID: resolution.ResolutionID,
			EventID:      resolution.EventID,
			VoterUserID:  voter.UserID,
			VoterTeamID:  voter.TeamID,
			DedupKey:     entities.DedupKey(resolution.BallotMode, voter.UserID, voter.TeamID),
			CreatedAt:    now,
		},
		Cast: entities.Cast{
			CastID:    fmt.Sprintf("%s-cast-%d", resolution.ResolutionID, n),
			BallotID:  ballotID,
			OptionID:  optionID,
			CreatedAt: now,
		},
		Rollcall: &entities.Rollcall{
			ResolutionID: resolution.ResolutionID,
			UserID:       voter.UserID,
			TeamID:       voter.TeamID,
			OptionKey:    "yes",
			CreatedAt:    now,
		},
		Voter: voter,
	}
}

func TestRepositoryConcurrentDelegationBallots(t *testing.T) {
	repo := newTestRepository(t)
	resolution := seedResolution(t, repo, "res-delegation", entities.BallotModePerDelegation, nil)

	const attempts = 8
	var wg sync.WaitGroup
	var succeeded atomic.Int32
	var duplicates atomic.Int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			voter := entities.Voter{
				UserID:  fmt.Sprintf("user-%d", i),
				Role:    entities.RoleDelegate,
				TeamID:  "team-1",
				EventID: "event-1",
			}
			err := repo.RecordBallot(context.Background(), ballotRecord(resolution, i, voter, resolution.Options[i%2].OptionID))
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domainerrors.ErrAlreadyVoted):
				duplicates.Add(1)
			default:
				t.Errorf("unexpected record error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded.Load() != 1 || duplicates.Load() != attempts-1 {
		t.Fatalf("expected 1 success and %d duplicates, got %d and %d", attempts-1, succeeded.Load(), duplicates.Load())
	}

	var ballots, casts int64
	repo.db.Model(&ballotModel{}).Where("resolution_id = ?", resolution.ResolutionID).Count(&ballots)
	repo.db.Model(&castModel{}).
		Joins("JOIN ballots ON ballots.ballot_id = casts.ballot_id").
		Where("ballots.resolution_id = ?", resolution.ResolutionID).
		Count(&casts)
	if ballots != 1 || casts != 1 {
		t.Fatalf("expected one ballot and one cast, got %d and %d", ballots, casts)
	}
}

func TestRepositoryRechecksEligibilityInsideTransaction(t *testing.T) {
	repo := newTestRepository(t)
	resolution := seedResolution(t, repo, "res-teams", entities.BallotModePerDelegation, []string{"team-1", "team-2"})
	ctx := context.Background()

	if err := repo.ReplaceEligibility(ctx, resolution.ResolutionID, nil, []string{"team-1"}, time.Now()); err != nil {
		t.Fatalf("replace eligibility failed: %v", err)
	}
	voter := entities.Voter{UserID: "user-2", Role: entities.RoleDelegate, TeamID: "team-2", EventID: "event-1"}
	err := repo.RecordBallot(ctx, ballotRecord(resolution, 1, voter, resolution.Options[0].OptionID))
	if !errors.Is(err, domainerrors.ErrTeamNotEligible) {
		t.Fatalf("expected team not eligible, got %v", err)
	}

	var orphans int64
	repo.db.Model(&ballotModel{}).
		Where("NOT EXISTS (SELECT 1 FROM casts WHERE casts.ballot_id = ballots.ballot_id)").
		Count(&orphans)
	if orphans != 0 {
		t.Fatalf("expected no ballots without casts, got %d", orphans)
	}

	loaded, err := repo.GetResolution(ctx, resolution.ResolutionID)
	if err != nil {
		t.Fatalf("get resolution failed: %v", err)
	}
	if len(loaded.EligibleTeams) != 1 || loaded.EligibleTeams[0] != "team-1" {
		t.Fatalf("expected eligibility replaced, got %v", loaded.EligibleTeams)
	}
}

func TestRepositoryTransitionsAndOptionLock(t *testing.T) {
	repo := newTestRepository(t)
	resolution := seedResolution(t, repo, "res-lifecycle", entities.BallotModePerPerson, nil)
	ctx := context.Background()

	voter := entities.Voter{UserID: "user-1", Role: entities.RoleDelegate, EventID: "event-1"}
	if err := repo.RecordBallot(ctx, ballotRecord(resolution, 1, voter, resolution.Options[0].OptionID)); err != nil {
		t.Fatalf("record ballot failed: %v", err)
	}
	err := repo.ReplaceOptions(ctx, resolution.ResolutionID, []entities.Option{
		{OptionID: "opt-a", ResolutionID: resolution.ResolutionID, OptionKey: "a", Label: "A"},
	}, time.Now())
	if !errors.Is(err, domainerrors.ErrOptionsLocked) {
		t.Fatalf("expected options locked, got %v", err)
	}

	counts, err := repo.CountCastsByOption(ctx, resolution.ResolutionID)
	if err != nil {
		t.Fatalf("count casts failed: %v", err)
	}
	if counts[resolution.Options[0].OptionID] != 1 {
		t.Fatalf("expected one cast for yes, got %v", counts)
	}

	closeAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	closed, err := repo.TransitionResolution(ctx, ports.StatusTransition{
		ResolutionID: resolution.ResolutionID,
		From:         entities.ResolutionStatusActive,
		To:           entities.ResolutionStatusClosed,
		At:           closeAt,
	}, ports.EventEnvelope{EventID: "close-1", EventType: "assembly.resolution.closed", OccurredAt: closeAt, Data: []byte(`{}`)})
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if closed.Status != entities.ResolutionStatusClosed || closed.ClosedAt == nil {
		t.Fatalf("expected closed resolution, got %+v", closed)
	}

	_, err = repo.TransitionResolution(ctx, ports.StatusTransition{
		ResolutionID: resolution.ResolutionID,
		From:         entities.ResolutionStatusActive,
		To:           entities.ResolutionStatusClosed,
		At:           closeAt,
	}, ports.EventEnvelope{EventID: "close-2", EventType: "assembly.resolution.closed", OccurredAt: closeAt, Data: []byte(`{}`)})
	if !errors.Is(err, domainerrors.ErrInvalidTransition) {
		t.Fatalf("expected second close refused, got %v", err)
	}

	pending, err := repo.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected create and close outbox rows, got %d", len(pending))
	}
	if err := repo.MarkOutboxSent(ctx, pending[0].OutboxID, closeAt); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}
	pending, _ = repo.ListPendingOutbox(ctx, 10)
	if len(pending) != 1 || pending[0].OutboxID != "close-1" {
		t.Fatalf("expected only close row pending, got %+v", pending)
	}
}
