package entities

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

type ResolutionStatus string

const (
	ResolutionStatusDraft  ResolutionStatus = "draft"
	ResolutionStatusActive ResolutionStatus = "active"
	ResolutionStatusClosed ResolutionStatus = "closed"
)

type Visibility string

const (
	VisibilityPublic Visibility = "public"
	VisibilitySecret Visibility = "secret"
)

type BallotMode string

const (
	BallotModePerDelegation BallotMode = "per_delegation"
	BallotModePerPerson     BallotMode = "per_person"
)

const DefaultQuorumPercent = 50

// Role is the simulation role supplied by the identity provider.
type Role string

const (
	RoleDelegate   Role = "delegate"
	RoleLeader     Role = "leader"
	RoleJournalist Role = "journalist"
	RoleLobbyist   Role = "lobbyist"
	RoleAdmin      Role = "admin"
	RoleGameMaster Role = "game_master"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDelegate, RoleLeader, RoleJournalist, RoleLobbyist, RoleAdmin, RoleGameMaster:
		return true
	default:
		return false
	}
}

func (r Role) IsAdminLike() bool {
	return r == RoleAdmin || r == RoleGameMaster
}

// CanManage reports whether the role may create and administer resolutions.
func (r Role) CanManage() bool {
	return r.IsAdminLike() || r == RoleLeader
}

// SystemUserID identifies operator actions that are not bound to an event.
const SystemUserID = "system"

// Voter is the already-authenticated identity of a caller.
type Voter struct {
	UserID  string
	Role    Role
	TeamID  string
	EventID string
}

func SystemActor() Voter {
	return Voter{UserID: SystemUserID, Role: RoleAdmin}
}

func (v Voter) IsSystem() bool {
	return v.UserID == SystemUserID && v.Role == RoleAdmin && v.EventID == ""
}

// InScope reports whether the resolution belongs to the voter's event.
func (v Voter) InScope(resolution Resolution) bool {
	return v.IsSystem() || (v.EventID != "" && v.EventID == resolution.EventID)
}

type Resolution struct {
	ResolutionID    string
	EventID         string
	Title           string
	Description     string
	Status          ResolutionStatus
	Visibility      Visibility
	BallotMode      BallotMode
	QuorumPercent   int
	ShowLiveResults bool
	CreatedByID     string
	Options         []Option
	EligibleRoles   []Role
	EligibleTeams   []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClosedAt        *time.Time
}

func (r Resolution) Option(optionID string) (Option, bool) {
	for _, option := range r.Options {
		if option.OptionID == optionID {
			return option, true
		}
	}
	return Option{}, false
}

type Option struct {
	OptionID     string
	ResolutionID string
	OptionKey    string
	Label        string
	Position     int
}

// Ballot records that a voter participated. It never carries the choice.
type Ballot struct {
	BallotID     string
	ResolutionID string
	EventID      string
	VoterUserID  string
	VoterTeamID  string
	DedupKey     string
	CreatedAt    time.Time
}

// Cast is the chosen option, 1:1 with its Ballot.
type Cast struct {
	CastID    string
	BallotID  string
	OptionID  string
	CreatedAt time.Time
}

// Rollcall is the public voter-to-choice record of a public resolution.
type Rollcall struct {
	ResolutionID string
	UserID       string
	TeamID       string
	OptionKey    string
	CreatedAt    time.Time
}

// DedupKey identifies the participant that may hold at most one ballot on a
// resolution: the person or the delegation depending on the ballot mode.
// An empty key means the voter cannot participate under the mode.
func DedupKey(mode BallotMode, userID string, teamID string) string {
	if mode == BallotModePerDelegation {
		teamID = strings.TrimSpace(teamID)
		if teamID == "" {
			return ""
		}
		return "team:" + teamID
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ""
	}
	return "user:" + userID
}

// OptionKeys derives stable, human-readable keys from option labels.
// Colliding slugs get a numeric suffix in label order.
func OptionKeys(labels []string) []string {
	keys := make([]string, 0, len(labels))
	seen := make(map[string]int, len(labels))
	for i, label := range labels {
		base := slug(label)
		if base == "" {
			base = "option-" + strconv.Itoa(i+1)
		}
		key := base
		if count := seen[base]; count > 0 {
			key = base + "-" + strconv.Itoa(count+1)
		}
		seen[base]++
		keys = append(keys, key)
	}
	return keys
}

func slug(label string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
