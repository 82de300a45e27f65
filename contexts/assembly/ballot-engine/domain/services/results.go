package services

import (
	"math"
	"sort"

	"summit/contexts/assembly/ballot-engine/domain/entities"
)

// ResultsVisible gates tallies: admins and leaders always see them, other
// roles only when live results are enabled.
func ResultsVisible(resolution entities.Resolution, role entities.Role) bool {
	return resolution.ShowLiveResults || role.CanManage()
}

// Aggregate builds results from per-option cast counts. Rollcalls are kept
// only for public resolutions.
func Aggregate(
	resolution entities.Resolution,
	countsByOption map[string]int,
	totalBallots int,
	eligibleCount int,
	rollcalls []entities.Rollcall,
) entities.Results {
	options := append([]entities.Option(nil), resolution.Options...)
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Position < options[j].Position
	})

	tallies := make([]entities.OptionTally, 0, len(options))
	for _, option := range options {
		tallies = append(tallies, entities.OptionTally{
			OptionID:  option.OptionID,
			OptionKey: option.OptionKey,
			Label:     option.Label,
			Position:  option.Position,
			Count:     countsByOption[option.OptionID],
		})
	}

	results := entities.Results{
		ResolutionID:  resolution.ResolutionID,
		TotalBallots:  totalBallots,
		EligibleCount: eligibleCount,
		QuorumPercent: resolution.QuorumPercent,
		Tallies:       tallies,
	}
	if eligibleCount > 0 {
		turnout := float64(totalBallots) * 100 / float64(eligibleCount)
		results.TurnoutPercent = math.Round(turnout*100) / 100
		results.QuorumReached = turnout >= float64(resolution.QuorumPercent)
	}
	if resolution.Visibility == entities.VisibilityPublic {
		results.Rollcalls = rollcalls
	}
	return results
}

// EligibleParticipants counts the distinct ballot holders among members: people
// for per_person resolutions, delegations for per_delegation ones.
func EligibleParticipants(resolution entities.Resolution, members []entities.Voter) int {
	seen := make(map[string]struct{}, len(members))
	for _, member := range members {
		if CheckVoter(resolution, member) != nil {
			continue
		}
		seen[entities.DedupKey(resolution.BallotMode, member.UserID, member.TeamID)] = struct{}{}
	}
	return len(seen)
}
