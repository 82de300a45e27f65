package queries

import (
	"context"
	"sort"
	"strings"

	"summit/contexts/assembly/ballot-engine/domain/entities"
	domainerrors "summit/contexts/assembly/ballot-engine/domain/errors"
	"summit/contexts/assembly/ballot-engine/domain/services"
	"summit/contexts/assembly/ballot-engine/ports"
)

// ResolutionDetail carries results only when the viewer may see them.
type ResolutionDetail struct {
	Summary entities.ResolutionSummary
	Results *entities.Results
}

// ResolutionQueries annotates and aggregates on every read; nothing is
// cached between calls, so eligibility shown here is advisory only.
type ResolutionQueries struct {
	Resolutions ports.ResolutionRepository
	Ballots     ports.BallotRepository
	Directory   ports.Directory
}

func (q ResolutionQueries) ListResolutions(ctx context.Context, viewer entities.Voter) ([]entities.ResolutionSummary, error) {
	if strings.TrimSpace(viewer.UserID) == "" {
		return nil, domainerrors.ErrUnauthenticated
	}
	items, err := q.Resolutions.ListResolutions(ctx, viewer.EventID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	summaries := make([]entities.ResolutionSummary, 0, len(items))
	for _, resolution := range items {
		if !canView(resolution, viewer) {
			continue
		}
		summary, err := q.summarize(ctx, resolution, viewer)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (q ResolutionQueries) GetResolution(ctx context.Context, viewer entities.Voter, resolutionID string) (ResolutionDetail, error) {
	resolution, err := q.load(ctx, viewer, resolutionID)
	if err != nil {
		return ResolutionDetail{}, err
	}
	summary, err := q.summarize(ctx, resolution, viewer)
	if err != nil {
		return ResolutionDetail{}, err
	}
	detail := ResolutionDetail{Summary: summary}
	if services.ResultsVisible(resolution, viewer.Role) {
		results, err := q.aggregate(ctx, resolution)
		if err != nil {
			return ResolutionDetail{}, err
		}
		detail.Results = &results
	}
	return detail, nil
}

func (q ResolutionQueries) Results(ctx context.Context, viewer entities.Voter, resolutionID string) (entities.Results, error) {
	resolution, err := q.load(ctx, viewer, resolutionID)
	if err != nil {
		return entities.Results{}, err
	}
	if !services.ResultsVisible(resolution, viewer.Role) {
		return entities.Results{}, domainerrors.ErrResultsHidden
	}
	return q.aggregate(ctx, resolution)
}

func (q ResolutionQueries) load(ctx context.Context, viewer entities.Voter, resolutionID string) (entities.Resolution, error) {
	if strings.TrimSpace(viewer.UserID) == "" {
		return entities.Resolution{}, domainerrors.ErrUnauthenticated
	}
	resolution, err := q.Resolutions.GetResolution(ctx, strings.TrimSpace(resolutionID))
	if err != nil {
		return entities.Resolution{}, err
	}
	if !viewer.InScope(resolution) || !canView(resolution, viewer) {
		return entities.Resolution{}, domainerrors.ErrResolutionNotFound
	}
	return resolution, nil
}

func (q ResolutionQueries) summarize(
	ctx context.Context,
	resolution entities.Resolution,
	viewer entities.Voter,
) (entities.ResolutionSummary, error) {
	count, err := q.Ballots.CountBallots(ctx, resolution.ResolutionID)
	if err != nil {
		return entities.ResolutionSummary{}, err
	}
	summary := entities.ResolutionSummary{
		Resolution:  resolution,
		IsEligible:  services.CheckVoter(resolution, viewer) == nil,
		BallotCount: count,
	}
	if key := entities.DedupKey(resolution.BallotMode, viewer.UserID, viewer.TeamID); key != "" {
		voted, err := q.Ballots.HasBallot(ctx, resolution.ResolutionID, key)
		if err != nil {
			return entities.ResolutionSummary{}, err
		}
		summary.HasVoted = voted
	}
	return summary, nil
}

func (q ResolutionQueries) aggregate(ctx context.Context, resolution entities.Resolution) (entities.Results, error) {
	counts, err := q.Ballots.CountCastsByOption(ctx, resolution.ResolutionID)
	if err != nil {
		return entities.Results{}, err
	}
	total, err := q.Ballots.CountBallots(ctx, resolution.ResolutionID)
	if err != nil {
		return entities.Results{}, err
	}

	var rollcalls []entities.Rollcall
	if resolution.Visibility == entities.VisibilityPublic {
		rollcalls, err = q.Ballots.ListRollcalls(ctx, resolution.ResolutionID)
		if err != nil {
			return entities.Results{}, err
		}
	}

	eligible := 0
	if q.Directory != nil {
		members, err := q.Directory.ListEventMembers(ctx, resolution.EventID)
		if err != nil {
			return entities.Results{}, err
		}
		eligible = services.EligibleParticipants(resolution, members)
	}
	return services.Aggregate(resolution, counts, total, eligible, rollcalls), nil
}

// canView hides drafts from everyone but their creator and admins.
func canView(resolution entities.Resolution, viewer entities.Voter) bool {
	if resolution.Status != entities.ResolutionStatusDraft {
		return true
	}
	return viewer.Role.IsAdminLike() || viewer.IsSystem() || viewer.UserID == resolution.CreatedByID
}
