package entities

type OptionTally struct {
	OptionID  string
	OptionKey string
	Label     string
	Position  int
	Count     int
}

// Results is computed fresh from casts on every read.
type Results struct {
	ResolutionID   string
	TotalBallots   int
	EligibleCount  int
	QuorumPercent  int
	TurnoutPercent float64
	QuorumReached  bool
	Tallies        []OptionTally
	Rollcalls      []Rollcall
}

// ResolutionSummary is a resolution annotated for one viewer.
type ResolutionSummary struct {
	Resolution  Resolution
	IsEligible  bool
	HasVoted    bool
	BallotCount int
}
