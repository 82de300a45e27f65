package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"summit/contexts/newsroom/approval-workflow/domain/entities"
	domainerrors "summit/contexts/newsroom/approval-workflow/domain/errors"
	"summit/contexts/newsroom/approval-workflow/domain/services"
	"summit/contexts/newsroom/approval-workflow/ports"
	"summit/internal/shared/outbox"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message ports.OutboxMessage
	seq     int
}

// Store serializes every write behind one mutex, which stands in for the
// article row lock of the postgres adapter. Approvals are keyed by
// (article, approver) so a second decision replaces the first.
type Store struct {
	mu sync.RWMutex

	articles  map[string]entities.Article
	approvals map[string]map[string]entities.Approval
	outbox    map[string]outboxRecord
	outboxSeq int
	members   map[string][]entities.Actor

	now func() time.Time
}

func NewStore(seed []entities.Article) *Store {
	articles := make(map[string]entities.Article, len(seed))
	for _, article := range seed {
		articles[article.ArticleID] = cloneArticle(article)
	}
	return &Store{
		articles:  articles,
		approvals: make(map[string]map[string]entities.Approval),
		outbox:    make(map[string]outboxRecord),
		members:   make(map[string][]entities.Actor),
	}
}

// SetMember seeds the event membership projection.
func (s *Store) SetMember(member entities.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	member.UserID = strings.TrimSpace(member.UserID)
	member.EventID = strings.TrimSpace(member.EventID)
	items := s.members[member.EventID]
	for i := range items {
		if items[i].UserID == member.UserID {
			items[i] = member
			return
		}
	}
	s.members[member.EventID] = append(items, member)
}

// SetApproval seeds a decision directly, bypassing review rules.
func (s *Store) SetApproval(approval entities.Approval) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertApprovalLocked(approval)
}

func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) CreateArticle(_ context.Context, article entities.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.articles[article.ArticleID]; exists {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	s.articles[article.ArticleID] = cloneArticle(article)
	return nil
}

func (s *Store) GetArticle(_ context.Context, articleID string) (entities.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	article, ok := s.articles[articleID]
	if !ok {
		return entities.Article{}, domainerrors.ErrArticleNotFound
	}
	return cloneArticle(article), nil
}

func (s *Store) ListArticles(_ context.Context, filter ports.ArticleFilter) ([]entities.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Article, 0)
	for _, article := range s.articles {
		if matches(article, filter) {
			items = append(items, cloneArticle(article))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) UpdateArticle(_ context.Context, edit ports.ArticleEdit) (entities.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	article, ok := s.articles[edit.ArticleID]
	if !ok {
		return entities.Article{}, domainerrors.ErrArticleNotFound
	}
	if !article.Status.Editable() {
		return entities.Article{}, domainerrors.ErrArticleLocked
	}
	if edit.Title != nil {
		article.Title = *edit.Title
	}
	if edit.Content != nil {
		article.Content = *edit.Content
	}
	article.UpdatedAt = edit.At.UTC()
	s.articles[article.ArticleID] = article
	return cloneArticle(article), nil
}

func (s *Store) SubmitArticle(_ context.Context, articleID string, at time.Time) (entities.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	article, ok := s.articles[articleID]
	if !ok {
		return entities.Article{}, domainerrors.ErrArticleNotFound
	}
	if !article.Status.Editable() {
		return entities.Article{}, domainerrors.ErrArticleLocked
	}
	article.Status = entities.ArticleStatusSubmitted
	article.UpdatedAt = at.UTC()
	s.articles[articleID] = article
	delete(s.approvals, articleID)
	return cloneArticle(article), nil
}

func (s *Store) DeleteArticle(_ context.Context, articleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.articles[articleID]; !ok {
		return domainerrors.ErrArticleNotFound
	}
	delete(s.articles, articleID)
	delete(s.approvals, articleID)
	return nil
}

func (s *Store) ListApprovals(_ context.Context, articleIDs []string) (map[string][]entities.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string][]entities.Approval, len(articleIDs))
	for _, articleID := range articleIDs {
		if items := s.approvalsLocked(articleID); len(items) > 0 {
			result[articleID] = items
		}
	}
	return result, nil
}

// RecordReview applies one decision atomically: the status re-check, the
// approval upsert, the conditional transition and the outbox row.
func (s *Store) RecordReview(_ context.Context, decision ports.ReviewDecision) (ports.ReviewResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	approval := decision.Approval
	article, ok := s.articles[approval.ArticleID]
	if !ok {
		return ports.ReviewResult{}, domainerrors.ErrArticleNotFound
	}
	if article.Status != entities.ArticleStatusSubmitted {
		return ports.ReviewResult{}, domainerrors.ErrInvalidState
	}
	if article.AuthorID == approval.ApproverID {
		return ports.ReviewResult{}, domainerrors.ErrSelfReviewForbidden
	}

	s.upsertApprovalLocked(approval)
	approvals := s.approvalsLocked(article.ArticleID)

	transitioned := false
	switch approval.Decision {
	case entities.DecisionReject:
		if err := s.appendOutboxLocked(decision.Rejected); err != nil {
			return ports.ReviewResult{}, err
		}
		article.Status = entities.ArticleStatusRejected
		transitioned = true
	case entities.DecisionApprove:
		if services.Tally(approvals, decision.Thresholds, "").CanPublish {
			if err := s.appendOutboxLocked(decision.Published); err != nil {
				return ports.ReviewResult{}, err
			}
			publishedAt := approval.DecidedAt.UTC()
			article.Status = entities.ArticleStatusPublished
			article.PublishedAt = &publishedAt
			transitioned = true
		}
	}
	if transitioned {
		article.UpdatedAt = approval.DecidedAt.UTC()
		s.articles[article.ArticleID] = article
	}
	return ports.ReviewResult{
		Article:      cloneArticle(article),
		Approvals:    approvals,
		Transitioned: transitioned,
	}, nil
}

// ApprovalCount returns how many approval rows exist for the article.
func (s *Store) ApprovalCount(articleID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.approvals[articleID])
}

func (s *Store) ListEventMembers(_ context.Context, eventID string) ([]entities.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Actor(nil), s.members[eventID]...), nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ports.OutboxMessage, 0)
	for _, record := range s.sortedOutboxLocked() {
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

func (s *Store) Now() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) upsertApprovalLocked(approval entities.Approval) {
	items, ok := s.approvals[approval.ArticleID]
	if !ok {
		items = make(map[string]entities.Approval)
		s.approvals[approval.ArticleID] = items
	}
	if existing, ok := items[approval.ApproverID]; ok {
		approval.ApprovalID = existing.ApprovalID
	}
	items[approval.ApproverID] = approval
}

func (s *Store) approvalsLocked(articleID string) []entities.Approval {
	items := make([]entities.Approval, 0, len(s.approvals[articleID]))
	for _, approval := range s.approvals[articleID] {
		items = append(items, approval)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].DecidedAt.Before(items[j].DecidedAt)
	})
	return items
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

func matches(article entities.Article, filter ports.ArticleFilter) bool {
	if article.EventID != filter.EventID {
		return false
	}
	if filter.IncludeAuthoredBy != "" && article.AuthorID == filter.IncludeAuthoredBy {
		return true
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if article.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.AuthorID != "" && article.AuthorID != filter.AuthorID {
		return false
	}
	if filter.ExcludeAuthorID != "" && article.AuthorID == filter.ExcludeAuthorID {
		return false
	}
	return true
}

func cloneArticle(article entities.Article) entities.Article {
	if article.PublishedAt != nil {
		publishedAt := *article.PublishedAt
		article.PublishedAt = &publishedAt
	}
	return article
}

var _ ports.ArticleRepository = (*Store)(nil)
var _ ports.Directory = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
