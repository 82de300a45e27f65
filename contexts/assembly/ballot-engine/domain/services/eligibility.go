package services

import (
	"strings"

	"summit/contexts/assembly/ballot-engine/domain/entities"
	domainerrors "summit/contexts/assembly/ballot-engine/domain/errors"
)

// EligibilityRules are the role and team allow-lists of a resolution.
// An empty list does not restrict.
type EligibilityRules struct {
	Roles []entities.Role
	Teams []string
}

func RulesFor(resolution entities.Resolution) EligibilityRules {
	return EligibilityRules{
		Roles: resolution.EligibleRoles,
		Teams: resolution.EligibleTeams,
	}
}

// CheckEligibility evaluates the role check and then the team check.
// A voter without a team fails a team-scoped rule set with ErrTeamRequired.
func CheckEligibility(rules EligibilityRules, role entities.Role, teamID string) error {
	if len(rules.Roles) > 0 && !containsRole(rules.Roles, role) {
		return domainerrors.ErrRoleNotEligible
	}
	if len(rules.Teams) > 0 {
		teamID = strings.TrimSpace(teamID)
		if teamID == "" {
			return domainerrors.ErrTeamRequired
		}
		if !containsString(rules.Teams, teamID) {
			return domainerrors.ErrTeamNotEligible
		}
	}
	return nil
}

// CheckVoter applies CheckEligibility plus the ballot mode requirement that a
// per_delegation ballot is keyed by a team.
func CheckVoter(resolution entities.Resolution, voter entities.Voter) error {
	if err := CheckEligibility(RulesFor(resolution), voter.Role, voter.TeamID); err != nil {
		return err
	}
	if entities.DedupKey(resolution.BallotMode, voter.UserID, voter.TeamID) == "" {
		return domainerrors.ErrTeamRequired
	}
	return nil
}

// NormalizeRules validates roles and trims/de-duplicates both lists.
func NormalizeRules(roles []string, teams []string) (EligibilityRules, error) {
	rules := EligibilityRules{
		Roles: make([]entities.Role, 0, len(roles)),
		Teams: make([]string, 0, len(teams)),
	}
	for _, raw := range roles {
		role := entities.Role(strings.ToLower(strings.TrimSpace(raw)))
		if role == "" {
			continue
		}
		if !role.Valid() {
			return EligibilityRules{}, domainerrors.ErrInvalidEligibility
		}
		if !containsRole(rules.Roles, role) {
			rules.Roles = append(rules.Roles, role)
		}
	}
	for _, raw := range teams {
		team := strings.TrimSpace(raw)
		if team == "" {
			continue
		}
		if !containsString(rules.Teams, team) {
			rules.Teams = append(rules.Teams, team)
		}
	}
	return rules, nil
}

func containsRole(items []entities.Role, target entities.Role) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
