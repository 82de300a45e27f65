package postgresadapter

import (
	"time"

	"summit/contexts/assembly/ballot-engine/domain/entities"
	"summit/contexts/assembly/ballot-engine/ports"
)

const ballotDedupConstraint = "ballots_resolution_dedup_key"

type resolutionModel struct {
	ResolutionID    string     `gorm:"column:resolution_id;primaryKey"`
	EventID         string     `gorm:"column:event_id;index:resolutions_event_id;not null"`
	Title           string     `gorm:"column:title;not null"`
	Description     string     `gorm:"column:description"`
	Status          string     `gorm:"column:status;not null"`
	Visibility      string     `gorm:"column:visibility;not null"`
	BallotMode      string     `gorm:"column:ballot_mode;not null"`
	QuorumPercent   int        `gorm:"column:quorum_percent;not null"`
	ShowLiveResults bool       `gorm:"column:show_live_results;not null"`
	CreatedByID     string     `gorm:"column:created_by_id;not null"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;not null"`
	ClosedAt        *time.Time `gorm:"column:closed_at"`
}

func (resolutionModel) TableName() string {
	return "resolutions"
}

func resolutionModelFromEntity(resolution entities.Resolution) resolutionModel {
	return resolutionModel{
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
		CreatedAt:       resolution.CreatedAt.UTC(),
		UpdatedAt:       resolution.UpdatedAt.UTC(),
		ClosedAt:        resolution.ClosedAt,
	}
}

func (m resolutionModel) toEntity() entities.Resolution {
	resolution := entities.Resolution{
		ResolutionID:    m.ResolutionID,
		EventID:         m.EventID,
		Title:           m.Title,
		Description:     m.Description,
		Status:          entities.ResolutionStatus(m.Status),
		Visibility:      entities.Visibility(m.Visibility),
		BallotMode:      entities.BallotMode(m.BallotMode),
		QuorumPercent:   m.QuorumPercent,
		ShowLiveResults: m.ShowLiveResults,
		CreatedByID:     m.CreatedByID,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
	if m.ClosedAt != nil {
		closedAt := m.ClosedAt.UTC()
		resolution.ClosedAt = &closedAt
	}
	return resolution
}

type optionModel struct {
	OptionID     string `gorm:"column:option_id;primaryKey"`
	ResolutionID string `gorm:"column:resolution_id;not null;uniqueIndex:resolution_options_key,priority:1"`
	OptionKey    string `gorm:"column:option_key;not null;uniqueIndex:resolution_options_key,priority:2"`
	Label        string `gorm:"column:label;not null"`
	Position     int    `gorm:"column:position;not null"`
}

func (optionModel) TableName() string {
	return "resolution_options"
}

func (m optionModel) toEntity() entities.Option {
	return entities.Option{
		OptionID:     m.OptionID,
		ResolutionID: m.ResolutionID,
		OptionKey:    m.OptionKey,
		Label:        m.Label,
		Position:     m.Position,
	}
}

type eligibleRoleModel struct {
	ResolutionID string `gorm:"column:resolution_id;primaryKey"`
	Role         string `gorm:"column:role;primaryKey"`
}

func (eligibleRoleModel) TableName() string {
	return "resolution_eligible_roles"
}

type eligibleTeamModel struct {
	ResolutionID string `gorm:"column:resolution_id;primaryKey"`
	TeamID       string `gorm:"column:team_id;primaryKey"`
}

func (eligibleTeamModel) TableName() string {
	return "resolution_eligible_teams"
}

type ballotModel struct {
	BallotID     string    `gorm:"column:ballot_id;primaryKey"`
	ResolutionID string    `gorm:"column:resolution_id;not null;uniqueIndex:ballots_resolution_dedup_key,priority:1"`
	DedupKey     string    `gorm:"column:dedup_key;not null;uniqueIndex:ballots_resolution_dedup_key,priority:2"`
	EventID      string    `gorm:"column:event_id;not null"`
	VoterUserID  string    `gorm:"column:voter_user_id;not null"`
	VoterTeamID  *string   `gorm:"column:voter_team_id"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (ballotModel) TableName() string {
	return "ballots"
}

func ballotModelFromEntity(ballot entities.Ballot) ballotModel {
	row := ballotModel{
		BallotID:     ballot.BallotID,
		ResolutionID: ballot.ResolutionID,
		DedupKey:     ballot.DedupKey,
		EventID:      ballot.EventID,
		VoterUserID:  ballot.VoterUserID,
		CreatedAt:    ballot.CreatedAt.UTC(),
	}
	if ballot.VoterTeamID != "" {
		teamID := ballot.VoterTeamID
		row.VoterTeamID = &teamID
	}
	return row
}

type castModel struct {
	CastID    string    `gorm:"column:cast_id;primaryKey"`
	BallotID  string    `gorm:"column:ballot_id;not null;uniqueIndex:casts_ballot_id"`
	OptionID  string    `gorm:"column:option_id;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (castModel) TableName() string {
	return "casts"
}

type rollcallModel struct {
	ResolutionID string    `gorm:"column:resolution_id;primaryKey"`
	UserID       string    `gorm:"column:user_id;primaryKey"`
	TeamID       string    `gorm:"column:team_id"`
	OptionKey    string    `gorm:"column:option_key;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (rollcallModel) TableName() string {
	return "rollcalls"
}

func (m rollcallModel) toEntity() entities.Rollcall {
	return entities.Rollcall{
		ResolutionID: m.ResolutionID,
		UserID:       m.UserID,
		TeamID:       m.TeamID,
		OptionKey:    m.OptionKey,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

// memberModel reads the event membership projection owned by the identity
// provider.
type memberModel struct {
	UserID      string `gorm:"column:user_id;primaryKey"`
	EventID     string `gorm:"column:event_id;primaryKey"`
	Role        string `gorm:"column:role;not null"`
	TeamID      string `gorm:"column:team_id"`
	DisplayName string `gorm:"column:display_name"`
}

func (memberModel) TableName() string {
	return "event_members"
}

func (m memberModel) toEntity() entities.Voter {
	return entities.Voter{
		UserID:  m.UserID,
		EventID: m.EventID,
		Role:    entities.Role(m.Role),
		TeamID:  m.TeamID,
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type;not null"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;not null"`
	Status       string     `gorm:"column:status;not null;index:assembly_outbox_status_created,priority:1"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null;index:assembly_outbox_status_created,priority:2"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "assembly_outbox"
}

func (m outboxModel) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      m.Payload,
		Status:       m.Status,
		CreatedAt:    m.CreatedAt.UTC(),
		SentAt:       m.SentAt,
	}
}
