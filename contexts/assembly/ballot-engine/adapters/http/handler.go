package httpadapter

import (
	"context"
	"log/slog"
	"strings"

	"summit/contexts/assembly/ballot-engine/application/commands"
	"summit/contexts/assembly/ballot-engine/application/queries"
	"summit/contexts/assembly/ballot-engine/domain/entities"
	httptransport "summit/contexts/assembly/ballot-engine/transport/http"
)

type Handler struct {
	Resolutions commands.ResolutionUseCase
	Ballots     commands.BallotUseCase
	Queries     queries.ResolutionQueries
	Logger      *slog.Logger
}

func (h Handler) CreateResolutionHandler(
	ctx context.Context,
	caller httptransport.Caller,
	req httptransport.CreateResolutionRequest,
) (httptransport.ResolutionResponse, error) {
	resolution, err := h.Resolutions.CreateResolution(ctx, commands.CreateResolutionCommand{
		Actor:           toVoter(caller),
		Title:           req.Title,
		Description:     req.Description,
		Options:         req.Options,
		Status:          entities.ResolutionStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		Visibility:      entities.Visibility(strings.ToLower(strings.TrimSpace(req.Visibility))),
		BallotMode:      entities.BallotMode(strings.ToLower(strings.TrimSpace(req.BallotMode))),
		QuorumPercent:   req.QuorumPercent,
		ShowLiveResults: req.ShowLiveResults,
		EligibleRoles:   req.EligibleRoles,
		EligibleTeams:   req.EligibleTeams,
	})
	if err != nil {
		return httptransport.ResolutionResponse{}, err
	}
	return mapResolution(entities.ResolutionSummary{Resolution: resolution}, nil), nil
}

func (h Handler) ListResolutionsHandler(ctx context.Context, caller httptransport.Caller) (httptransport.ListResolutionsResponse, error) {
	summaries, err := h.Queries.ListResolutions(ctx, toVoter(caller))
	if err != nil {
		return httptransport.ListResolutionsResponse{}, err
	}
	items := make([]httptransport.ResolutionResponse, 0, len(summaries))
	for _, summary := range summaries {
		items = append(items, mapResolution(summary, nil))
	}
	return httptransport.ListResolutionsResponse{Items: items}, nil
}

func (h Handler) GetResolutionHandler(
	ctx context.Context,
	caller httptransport.Caller,
	resolutionID string,
) (httptransport.ResolutionResponse, error) {
	detail, err := h.Queries.GetResolution(ctx, toVoter(caller), resolutionID)
	if err != nil {
		return httptransport.ResolutionResponse{}, err
	}
	return mapResolution(detail.Summary, detail.Results), nil
}

func (h Handler) ResultsHandler(
	ctx context.Context,
	caller httptransport.Caller,
	resolutionID string,
) (httptransport.ResultsResponse, error) {
	results, err := h.Queries.Results(ctx, toVoter(caller), resolutionID)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	return mapResults(results), nil
}

func (h Handler) CastBallotHandler(
	ctx context.Context,
	caller httptransport.Caller,
	resolutionID string,
	req httptransport.CastBallotRequest,
) (httptransport.CastBallotResponse, error) {
	result, err := h.Ballots.CastBallot(ctx, commands.CastBallotCommand{
		Voter:        toVoter(caller),
		ResolutionID: resolutionID,
		OptionID:     req.OptionID,
	})
	if err != nil {
		return httptransport.CastBallotResponse{}, err
	}
	return httptransport.CastBallotResponse{
		BallotID:     result.Ballot.BallotID,
		ResolutionID: result.Ballot.ResolutionID,
		OptionKey:    result.OptionKey,
		CastAt:       result.Ballot.CreatedAt,
	}, nil
}

func (h Handler) OpenResolutionHandler(
	ctx context.Context,
	caller httptransport.Caller,
	resolutionID string,
) (httptransport.ResolutionResponse, error) {
	resolution, err := h.Resolutions.OpenResolution(ctx, commands.TransitionCommand{
		Actor:        toVoter(caller),
		ResolutionID: resolutionID,
	})
	if err != nil {
		return httptransport.ResolutionResponse{}, err
	}
	return mapResolution(entities.ResolutionSummary{Resolution: resolution}, nil), nil
}

func (h Handler) CloseResolutionHandler(
	ctx context.Context,
	caller httptransport.Caller,
	resolutionID string,
) (httptransport.ResolutionResponse, error) {
	resolution, err := h.Resolutions.CloseResolution(ctx, commands.TransitionCommand{
		Actor:        toVoter(caller),
		ResolutionID: resolutionID,
	})
	if err != nil {
		return httptransport.ResolutionResponse{}, err
	}
	return mapResolution(entities.ResolutionSummary{Resolution: resolution}, nil), nil
}

func (h Handler) UpdateEligibilityHandler(
	ctx context.Context,
	caller httptransport.Caller,
	resolutionID string,
	req httptransport.UpdateEligibilityRequest,
) (httptransport.ResolutionResponse, error) {
	resolution, err := h.Resolutions.UpdateEligibility(ctx, commands.UpdateEligibilityCommand{
		Actor:         toVoter(caller),
		ResolutionID:  resolutionID,
		EligibleRoles: req.EligibleRoles,
		EligibleTeams: req.EligibleTeams,
	})
	if err != nil {
		return httptransport.ResolutionResponse{}, err
	}
	return mapResolution(entities.ResolutionSummary{Resolution: resolution}, nil), nil
}

func (h Handler) ReplaceOptionsHandler(
	ctx context.Context,
	caller httptransport.Caller,
	resolutionID string,
	req httptransport.ReplaceOptionsRequest,
) (httptransport.ResolutionResponse, error) {
	resolution, err := h.Resolutions.ReplaceOptions(ctx, commands.ReplaceOptionsCommand{
		Actor:        toVoter(caller),
		ResolutionID: resolutionID,
		Options:      req.Options,
	})
	if err != nil {
		return httptransport.ResolutionResponse{}, err
	}
	return mapResolution(entities.ResolutionSummary{Resolution: resolution}, nil), nil
}

func toVoter(caller httptransport.Caller) entities.Voter {
	return entities.Voter{
		UserID:  strings.TrimSpace(caller.UserID),
		Role:    entities.Role(strings.ToLower(strings.TrimSpace(caller.Role))),
		TeamID:  strings.TrimSpace(caller.TeamID),
		EventID: strings.TrimSpace(caller.EventID),
	}
}

func mapResolution(summary entities.ResolutionSummary, results *entities.Results) httptransport.ResolutionResponse {
	resolution := summary.Resolution
	options := make([]httptransport.OptionResponse, 0, len(resolution.Options))
	for _, option := range resolution.Options {
		options = append(options, httptransport.OptionResponse{
			OptionID:  option.OptionID,
			OptionKey: option.OptionKey,
			Label:     option.Label,
			Position:  option.Position,
		})
	}
	roles := make([]string, 0, len(resolution.EligibleRoles))
	for _, role := range resolution.EligibleRoles {
		roles = append(roles, string(role))
	}
	response := httptransport.ResolutionResponse{
		ResolutionID:    resolution.ResolutionID,
		EventID:         resolution.EventID,
		Title:           resolution.Title,
		Description:     resolution.Description,
		Status:          string(resolution.Status),
		Visibility:      string(resolution.Visibility),
		BallotMode:      string(resolution.BallotMode),
		QuorumPercent:   resolution.QuorumPercent,
		ShowLiveResults: resolution.ShowLiveResults,
		CreatedByID:     resolution.CreatedByID,
		Options:         options,
		EligibleRoles:   roles,
		EligibleTeams:   append([]string{}, resolution.EligibleTeams...),
		CreatedAt:       resolution.CreatedAt,
		ClosedAt:        resolution.ClosedAt,
		IsEligible:      summary.IsEligible,
		HasVoted:        summary.HasVoted,
		BallotCount:     summary.BallotCount,
	}
	if results != nil {
		mapped := mapResults(*results)
		response.Results = &mapped
	}
	return response
}

func mapResults(results entities.Results) httptransport.ResultsResponse {
	tallies := make([]httptransport.TallyResponse, 0, len(results.Tallies))
	for _, tally := range results.Tallies {
		tallies = append(tallies, httptransport.TallyResponse{
			OptionID:  tally.OptionID,
			OptionKey: tally.OptionKey,
			Label:     tally.Label,
			Count:     tally.Count,
		})
	}
	var rollcalls []httptransport.RollcallResponse
	for _, rollcall := range results.Rollcalls {
		rollcalls = append(rollcalls, httptransport.RollcallResponse{
			UserID:    rollcall.UserID,
			TeamID:    rollcall.TeamID,
			OptionKey: rollcall.OptionKey,
			CreatedAt: rollcall.CreatedAt,
		})
	}
	return httptransport.ResultsResponse{
		ResolutionID:   results.ResolutionID,
		TotalBallots:   results.TotalBallots,
		EligibleCount:  results.EligibleCount,
		QuorumPercent:  results.QuorumPercent,
		TurnoutPercent: results.TurnoutPercent,
		QuorumReached:  results.QuorumReached,
		Tallies:        tallies,
		Rollcalls:      rollcalls,
	}
}
