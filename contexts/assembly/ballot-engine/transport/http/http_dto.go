package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Caller is the authenticated identity forwarded by the HTTP server.
type Caller struct {
	UserID  string
	Role    string
	TeamID  string
	EventID string
}

type CreateResolutionRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Options         []string `json:"options"`
	Status          string   `json:"status,omitempty"`
	Visibility      string   `json:"visibility,omitempty"`
	BallotMode      string   `json:"ballot_mode,omitempty"`
	QuorumPercent   *int     `json:"quorum_percent,omitempty"`
	ShowLiveResults bool     `json:"show_live_results"`
	EligibleRoles   []string `json:"eligible_roles,omitempty"`
	EligibleTeams   []string `json:"eligible_teams,omitempty"`
}

type CastBallotRequest struct {
	OptionID string `json:"option_id"`
}

type UpdateEligibilityRequest struct {
	EligibleRoles []string `json:"eligible_roles"`
	EligibleTeams []string `json:"eligible_teams"`
}

type ReplaceOptionsRequest struct {
	Options []string `json:"options"`
}

type OptionResponse struct {
	OptionID  string `json:"option_id"`
	OptionKey string `json:"option_key"`
	Label     string `json:"label"`
	Position  int    `json:"position"`
}

type ResolutionResponse struct {
	ResolutionID    string           `json:"resolution_id"`
	EventID         string           `json:"event_id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Status          string           `json:"status"`
	Visibility      string           `json:"visibility"`
	BallotMode      string           `json:"ballot_mode"`
	QuorumPercent   int              `json:"quorum_percent"`
	ShowLiveResults bool             `json:"show_live_results"`
	CreatedByID     string           `json:"created_by_id"`
	Options         []OptionResponse `json:"options"`
	EligibleRoles   []string         `json:"eligible_roles"`
	EligibleTeams   []string         `json:"eligible_teams"`
	CreatedAt       time.Time        `json:"created_at"`
	ClosedAt        *time.Time       `json:"closed_at,omitempty"`
	IsEligible      bool             `json:"is_eligible"`
	HasVoted        bool             `json:"has_voted"`
	BallotCount     int              `json:"ballot_count"`
	Results         *ResultsResponse `json:"results,omitempty"`
}

type ListResolutionsResponse struct {
	Items []ResolutionResponse `json:"items"`
}

type TallyResponse struct {
	OptionID  string `json:"option_id"`
	OptionKey string `json:"option_key"`
	Label     string `json:"label"`
	Count     int    `json:"count"`
}

type RollcallResponse struct {
	UserID    string    `json:"user_id"`
	TeamID    string    `json:"team_id,omitempty"`
	OptionKey string    `json:"option_key"`
	CreatedAt time.Time `json:"created_at"`
}

type ResultsResponse struct {
	ResolutionID   string             `json:"resolution_id"`
	TotalBallots   int                `json:"total_ballots"`
	EligibleCount  int                `json:"eligible_count"`
	QuorumPercent  int                `json:"quorum_percent"`
	TurnoutPercent float64            `json:"turnout_percent"`
	QuorumReached  bool               `json:"quorum_reached"`
	Tallies        []TallyResponse    `json:"tallies"`
	Rollcalls      []RollcallResponse `json:"rollcalls,omitempty"`
}

type CastBallotResponse struct {
	BallotID     string    `json:"ballot_id"`
	ResolutionID string    `json:"resolution_id"`
	OptionKey    string    `json:"option_key"`
	CastAt       time.Time `json:"cast_at"`
}
