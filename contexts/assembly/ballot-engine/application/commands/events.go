package commands

import (
	"encoding/json"
	"time"

	"summit/contexts/assembly/ballot-engine/domain/entities"
	"summit/contexts/assembly/ballot-engine/ports"
	contractsv1 "summit/contracts/gen/events/v1"
)

const (
	EventResolutionCreated = "assembly.resolution.created"
	EventResolutionOpened  = "assembly.resolution.opened"
	EventResolutionClosed  = "assembly.resolution.closed"
)

// ResolutionEventData is the payload of every resolution lifecycle event.
type ResolutionEventData struct {
	ResolutionID  string   `json:"resolution_id"`
	EventID       string   `json:"event_id"`
	Title         string   `json:"title"`
	Status        string   `json:"status"`
	BallotMode    string   `json:"ballot_mode"`
	CreatedByID   string   `json:"created_by_id"`
	EligibleRoles []string `json:"eligible_roles"`
	EligibleTeams []string `json:"eligible_teams"`
}

func newResolutionEnvelope(
	eventID string,
	eventType string,
	resolution entities.Resolution,
	occurredAt time.Time,
) (ports.EventEnvelope, error) {
	roles := make([]string, 0, len(resolution.EligibleRoles))
	for _, role := range resolution.EligibleRoles {
		roles = append(roles, string(role))
	}
	payload, err := json.Marshal(ResolutionEventData{
		ResolutionID:  resolution.ResolutionID,
		EventID:       resolution.EventID,
		Title:         resolution.Title,
		Status:        string(resolution.Status),
		BallotMode:    string(resolution.BallotMode),
		CreatedByID:   resolution.CreatedByID,
		EligibleRoles: roles,
		EligibleTeams: append([]string{}, resolution.EligibleTeams...),
	})
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	// Partitioned by resolution so lifecycle events stay ordered per resolution.
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "ballot-engine",
		TraceID:          eventID,
		SchemaVersion:    contractsv1.SchemaVersion,
		PartitionKeyPath: "resolution_id",
		PartitionKey:     resolution.ResolutionID,
		Data:             payload,
	}, nil
}
