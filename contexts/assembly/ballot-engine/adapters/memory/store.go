package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"summit/contexts/assembly/ballot-engine/domain/entities"
	domainerrors "summit/contexts/assembly/ballot-engine/domain/errors"
	"summit/contexts/assembly/ballot-engine/domain/services"
	"summit/contexts/assembly/ballot-engine/ports"
	"summit/internal/shared/outbox"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message ports.OutboxMessage
	seq     int
}

type ballotKey struct {
	resolutionID string
	dedupKey     string
}

// Store keeps every table behind one mutex; the dedup map plays the role of
// the (resolution_id, dedup_key) unique index.
type Store struct {
	mu sync.RWMutex

	resolutions map[string]entities.Resolution
	ballots     map[string]entities.Ballot
	ballotIndex map[ballotKey]string
	casts       map[string]entities.Cast
	rollcalls   map[string][]entities.Rollcall
	outbox      map[string]outboxRecord
	outboxSeq   int
	members     map[string][]entities.Voter

	now func() time.Time
}

func NewStore(seed []entities.Resolution) *Store {
	resolutions := make(map[string]entities.Resolution, len(seed))
	for _, resolution := range seed {
		resolutions[resolution.ResolutionID] = cloneResolution(resolution)
	}
	return &Store{
		resolutions: resolutions,
		ballots:     make(map[string]entities.Ballot),
		ballotIndex: make(map[ballotKey]string),
		casts:       make(map[string]entities.Cast),
		rollcalls:   make(map[string][]entities.Rollcall),
		outbox:      make(map[string]outboxRecord),
		members:     make(map[string][]entities.Voter),
	}
}

// SetMember seeds the event membership projection.
func (s *Store) SetMember(member entities.Voter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eventID := strings.TrimSpace(member.EventID)
	member.EventID = eventID
	member.UserID = strings.TrimSpace(member.UserID)
	member.TeamID = strings.TrimSpace(member.TeamID)
	items := s.members[eventID]
	for i := range items {
		if items[i].UserID == member.UserID {
			items[i] = member
			return
		}
	}
	s.members[eventID] = append(items, member)
}

// SetClock pins the store clock for deterministic tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) CreateResolution(_ context.Context, resolution entities.Resolution, event ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.resolutions[resolution.ResolutionID]; exists {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	if err := s.appendOutboxLocked(event); err != nil {
		return err
	}
	s.resolutions[resolution.ResolutionID] = cloneResolution(resolution)
	return nil
}

func (s *Store) GetResolution(_ context.Context, resolutionID string) (entities.Resolution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resolution, ok := s.resolutions[resolutionID]
	if !ok {
		return entities.Resolution{}, domainerrors.ErrResolutionNotFound
	}
	return cloneResolution(resolution), nil
}

func (s *Store) ListResolutions(_ context.Context, eventID string) ([]entities.Resolution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Resolution, 0, len(s.resolutions))
	for _, resolution := range s.resolutions {
		if eventID != "" && resolution.EventID != eventID {
			continue
		}
		items = append(items, cloneResolution(resolution))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) TransitionResolution(
	_ context.Context,
	transition ports.StatusTransition,
	event ports.EventEnvelope,
) (entities.Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resolution, ok := s.resolutions[transition.ResolutionID]
	if !ok {
		return entities.Resolution{}, domainerrors.ErrResolutionNotFound
	}
	if resolution.Status != transition.From {
		return entities.Resolution{}, domainerrors.ErrInvalidTransition
	}
	if err := s.appendOutboxLocked(event); err != nil {
		return entities.Resolution{}, err
	}
	resolution.Status = transition.To
	resolution.UpdatedAt = transition.At.UTC()
	if transition.To == entities.ResolutionStatusClosed {
		closedAt := transition.At.UTC()
		resolution.ClosedAt = &closedAt
	}
	s.resolutions[resolution.ResolutionID] = resolution
	return cloneResolution(resolution), nil
}

func (s *Store) ReplaceEligibility(
	_ context.Context,
	resolutionID string,
	roles []entities.Role,
	teams []string,
	updatedAt time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	resolution, ok := s.resolutions[resolutionID]
	if !ok {
		return domainerrors.ErrResolutionNotFound
	}
	resolution.EligibleRoles = append([]entities.Role(nil), roles...)
	resolution.EligibleTeams = append([]string(nil), teams...)
	resolution.UpdatedAt = updatedAt.UTC()
	s.resolutions[resolutionID] = resolution
	return nil
}

func (s *Store) ReplaceOptions(
	_ context.Context,
	resolutionID string,
	options []entities.Option,
	updatedAt time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	resolution, ok := s.resolutions[resolutionID]
	if !ok {
		return domainerrors.ErrResolutionNotFound
	}
	for _, ballot := range s.ballots {
		if ballot.ResolutionID == resolutionID {
			return domainerrors.ErrOptionsLocked
		}
	}
	resolution.Options = append([]entities.Option(nil), options...)
	resolution.UpdatedAt = updatedAt.UTC()
	s.resolutions[resolutionID] = resolution
	return nil
}

func (s *Store) HasBallot(_ context.Context, resolutionID string, dedupKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ballotIndex[ballotKey{resolutionID: resolutionID, dedupKey: dedupKey}]
	return ok, nil
}

// RecordBallot writes ballot, cast and rollcall together or not at all.
func (s *Store) RecordBallot(_ context.Context, record ports.BallotRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolution, ok := s.resolutions[record.Ballot.ResolutionID]
	if !ok {
		return domainerrors.ErrResolutionNotFound
	}
	if resolution.Status != entities.ResolutionStatusActive {
		return domainerrors.ErrResolutionNotActive
	}
	if _, ok := resolution.Option(record.Cast.OptionID); !ok {
		return domainerrors.ErrInvalidOption
	}
	if err := services.CheckVoter(resolution, record.Voter); err != nil {
		return err
	}

	key := ballotKey{resolutionID: record.Ballot.ResolutionID, dedupKey: record.Ballot.DedupKey}
	if _, exists := s.ballotIndex[key]; exists {
		return domainerrors.ErrAlreadyVoted
	}
	if _, exists := s.casts[record.Cast.BallotID]; exists {
		return domainerrors.ErrRepositoryInvariantBroke
	}

	s.ballots[record.Ballot.BallotID] = record.Ballot
	s.ballotIndex[key] = record.Ballot.BallotID
	s.casts[record.Cast.BallotID] = record.Cast
	if record.Rollcall != nil {
		s.rollcalls[record.Ballot.ResolutionID] = append(s.rollcalls[record.Ballot.ResolutionID], *record.Rollcall)
	}
	return nil
}

func (s *Store) CountBallots(_ context.Context, resolutionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, ballot := range s.ballots {
		if ballot.ResolutionID == resolutionID {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountCastsByOption(_ context.Context, resolutionID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for ballotID, cast := range s.casts {
		if s.ballots[ballotID].ResolutionID == resolutionID {
			counts[cast.OptionID]++
		}
	}
	return counts, nil
}

func (s *Store) ListRollcalls(_ context.Context, resolutionID string) ([]entities.Rollcall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := append([]entities.Rollcall(nil), s.rollcalls[resolutionID]...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// BallotsWithoutCast lists ballot ids lacking a cast and cast ballot ids
// lacking a ballot; both are always empty.
func (s *Store) BallotsWithoutCast() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var orphans []string
	for ballotID := range s.ballots {
		if _, ok := s.casts[ballotID]; !ok {
			orphans = append(orphans, ballotID)
		}
	}
	for ballotID := range s.casts {
		if _, ok := s.ballots[ballotID]; !ok {
			orphans = append(orphans, ballotID)
		}
	}
	return orphans
}

func (s *Store) ListEventMembers(_ context.Context, eventID string) ([]entities.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Voter(nil), s.members[eventID]...), nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.sortedOutboxLocked()
	items := make([]ports.OutboxMessage, 0, len(records))
	for _, record := range records {
		if record.message.Status == outbox.StatusPending {
			items = append(items, record.message)
		}
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox[outboxID]
	if !ok {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	sent := sentAt.UTC()
	record.message.Status = outbox.StatusSent
	record.message.SentAt = &sent
	s.outbox[outboxID] = record
	return nil
}

// OutboxEventTypes returns every outbox event type in creation order.
func (s *Store) OutboxEventTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.sortedOutboxLocked()
	types := make([]string, 0, len(records))
	for _, record := range records {
		types = append(types, record.message.EventType)
	}
	return types
}

func (s *Store) sortedOutboxLocked() []outboxRecord {
	records := make([]outboxRecord, 0, len(s.outbox))
	for _, record := range s.outbox {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].seq < records[j].seq
	})
	return records
}

func (s *Store) Now() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) appendOutboxLocked(event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, exists := s.outbox[event.EventID]; exists {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	s.outboxSeq++
	s.outbox[event.EventID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      payload,
			Status:       outbox.StatusPending,
			CreatedAt:    event.OccurredAt.UTC(),
		},
		seq: s.outboxSeq,
	}
	return nil
}

func cloneResolution(resolution entities.Resolution) entities.Resolution {
	resolution.Options = append([]entities.Option(nil), resolution.Options...)
	resolution.EligibleRoles = append([]entities.Role(nil), resolution.EligibleRoles...)
	resolution.EligibleTeams = append([]string(nil), resolution.EligibleTeams...)
	if resolution.ClosedAt != nil {
		closedAt := *resolution.ClosedAt
		resolution.ClosedAt = &closedAt
	}
	return resolution
}
