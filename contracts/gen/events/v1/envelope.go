package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is the envelope version producers in this module emit.
const SchemaVersion = 1

var ErrUnsupportedSchema = errors.New("unsupported event schema version")

// Envelope wraps every domain event that crosses the outbox: relays publish
// it, the bus carries it and dispatchers decode Data by EventType.
// Fields are append-only. Zero SchemaVersion is read as the current version.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// DecodeData unmarshals Data into target after checking the schema version.
func (e Envelope) DecodeData(target any) error {
	if e.SchemaVersion > SchemaVersion {
		return fmt.Errorf("%w: %s v%d", ErrUnsupportedSchema, e.EventType, e.SchemaVersion)
	}
	if len(e.Data) == 0 {
		return fmt.Errorf("decode %s: empty data", e.EventType)
	}
	if err := json.Unmarshal(e.Data, target); err != nil {
		return fmt.Errorf("decode %s: %w", e.EventType, err)
	}
	return nil
}
