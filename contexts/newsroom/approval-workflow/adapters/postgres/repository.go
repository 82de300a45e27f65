package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"summit/contexts/newsroom/approval-workflow/domain/entities"
	domainerrors "summit/contexts/newsroom/approval-workflow/domain/errors"
	"summit/contexts/newsroom/approval-workflow/domain/services"
	"summit/contexts/newsroom/approval-workflow/ports"
	"summit/internal/shared/outbox"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var editableStatuses = []string{
	string(entities.ArticleStatusDraft),
	string(entities.ArticleStatusRejected),
}

// Repository is the gorm-backed store of the approval workflow. Status
// changes are conditional updates, so a transition happens at most once no
// matter how many reviewers race.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the newsroom tables.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&articleModel{},
		&approvalModel{},
		&memberModel{},
		&outboxModel{},
	)
}

func (r *Repository) CreateArticle(ctx context.Context, article entities.Article) error {
	row := articleModelFromEntity(article)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return r.logError("newsroom_repository_create_article_failed", err, "article_id", article.ArticleID)
	}
	return nil
}

func (r *Repository) GetArticle(ctx context.Context, articleID string) (entities.Article, error) {
	article, err := loadArticleTx(r.db.WithContext(ctx), strings.TrimSpace(articleID))
	if err != nil && !errors.Is(err, domainerrors.ErrArticleNotFound) {
		return entities.Article{}, r.logError("newsroom_repository_get_article_failed", err, "article_id", articleID)
	}
	return article, err
}

func (r *Repository) ListArticles(ctx context.Context, filter ports.ArticleFilter) ([]entities.Article, error) {
	conditions := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		conditions = append(conditions, "status IN ?")
		args = append(args, statuses)
	}
	if filter.AuthorID != "" {
		conditions = append(conditions, "author_id = ?")
		args = append(args, filter.AuthorID)
	}
	if filter.ExcludeAuthorID != "" {
		conditions = append(conditions, "author_id <> ?")
		args = append(args, filter.ExcludeAuthorID)
	}
	match := "TRUE"
	if len(conditions) > 0 {
		match = strings.Join(conditions, " AND ")
	}
	if filter.IncludeAuthoredBy != "" {
		match = "(" + match + ") OR author_id = ?"
		args = append(args, filter.IncludeAuthoredBy)
	}

	var rows []articleModel
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", filter.EventID).
		Where("("+match+")", args...).
		Order("created_at DESC").
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("newsroom_repository_list_articles_failed", err, "event_id", filter.EventID)
	}
	items := make([]entities.Article, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) UpdateArticle(ctx context.Context, edit ports.ArticleEdit) (entities.Article, error) {
	var updated entities.Article
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"updated_at": edit.At.UTC()}
		if edit.Title != nil {
			updates["title"] = *edit.Title
		}
		if edit.Content != nil {
			updates["content"] = *edit.Content
		}
		result := tx.Model(&articleModel{}).
			Where("article_id = ? AND status IN ?", edit.ArticleID, editableStatuses).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return lockedOrMissingTx(tx, edit.ArticleID)
		}
		article, err := loadArticleTx(tx, edit.ArticleID)
		if err != nil {
			return err
		}
		updated = article
		return nil
	})
	if err != nil && !isDomainError(err) {
		return entities.Article{}, r.logError("newsroom_repository_update_article_failed", err, "article_id", edit.ArticleID)
	}
	return updated, err
}

func (r *Repository) SubmitArticle(ctx context.Context, articleID string, at time.Time) (entities.Article, error) {
	var submitted entities.Article
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&articleModel{}).
			Where("article_id = ? AND status IN ?", articleID, editableStatuses).
			Updates(map[string]any{
				"status":     string(entities.ArticleStatusSubmitted),
				"updated_at": at.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return lockedOrMissingTx(tx, articleID)
		}
		if err := tx.Where("article_id = ?", articleID).Delete(&approvalModel{}).Error; err != nil {
			return err
		}
		article, err := loadArticleTx(tx, articleID)
		if err != nil {
			return err
		}
		submitted = article
		return nil
	})
	if err != nil && !isDomainError(err) {
		return entities.Article{}, r.logError("newsroom_repository_submit_article_failed", err, "article_id", articleID)
	}
	return submitted, err
}

func (r *Repository) DeleteArticle(ctx context.Context, articleID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("article_id = ?", articleID).Delete(&approvalModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("article_id = ?", articleID).Delete(&articleModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrArticleNotFound
		}
		return nil
	})
	if err != nil && !isDomainError(err) {
		return r.logError("newsroom_repository_delete_article_failed", err, "article_id", articleID)
	}
	return err
}

func (r *Repository) ListApprovals(ctx context.Context, articleIDs []string) (map[string][]entities.Approval, error) {
	result := make(map[string][]entities.Approval, len(articleIDs))
	if len(articleIDs) == 0 {
		return result, nil
	}
	var rows []approvalModel
	if err := r.db.WithContext(ctx).
		Where("article_id IN ?", articleIDs).
		Order("decided_at ASC").
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("newsroom_repository_list_approvals_failed", err)
	}
	for _, row := range rows {
		result[row.ArticleID] = append(result[row.ArticleID], row.toEntity())
	}
	return result, nil
}

// RecordReview locks the article, upserts the reviewer's decision and runs
// the publish or reject transition. The outbox row is written only when the
// conditional status update changed exactly one row.
func (r *Repository) RecordReview(ctx context.Context, decision ports.ReviewDecision) (ports.ReviewResult, error) {
	approval := decision.Approval
	var result ports.ReviewResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row articleModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("article_id = ?", approval.ArticleID).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrArticleNotFound
			}
			return err
		}
		if row.Status != string(entities.ArticleStatusSubmitted) {
			return domainerrors.ErrInvalidState
		}
		if row.AuthorID == approval.ApproverID {
			return domainerrors.ErrSelfReviewForbidden
		}

		approvalRow := approvalModelFromEntity(approval)
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "article_id"}, {Name: "approver_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"approver_role", "decision", "reason", "decided_at"}),
		}).Create(&approvalRow).Error; err != nil {
			return err
		}
		approvals, err := listApprovalsTx(tx, approval.ArticleID)
		if err != nil {
			return err
		}

		decidedAt := approval.DecidedAt.UTC()
		var updates map[string]any
		var event ports.EventEnvelope
		switch approval.Decision {
		case entities.DecisionReject:
			updates = map[string]any{
				"status":     string(entities.ArticleStatusRejected),
				"updated_at": decidedAt,
			}
			event = decision.Rejected
		case entities.DecisionApprove:
			if services.Tally(approvals, decision.Thresholds, "").CanPublish {
				updates = map[string]any{
					"status":       string(entities.ArticleStatusPublished),
					"published_at": decidedAt,
					"updated_at":   decidedAt,
				}
				event = decision.Published
			}
		}

		if updates != nil {
			update := tx.Model(&articleModel{}).
				Where("article_id = ? AND status = ?", approval.ArticleID, string(entities.ArticleStatusSubmitted)).
				Updates(updates)
			if update.Error != nil {
				return update.Error
			}
			if update.RowsAffected == 1 {
				if err := insertOutboxEnvelopeTx(tx, event); err != nil {
					return err
				}
				result.Transitioned = true
			}
		}

		article, err := loadArticleTx(tx, approval.ArticleID)
		if err != nil {
			return err
		}
		result.Article = article
		result.Approvals = approvals
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return ports.ReviewResult{}, err
		}
		return ports.ReviewResult{}, r.logError("newsroom_repository_record_review_failed", err,
			"article_id", approval.ArticleID,
			"approver_id", approval.ApproverID,
		)
	}
	return result, nil
}

func (r *Repository) ListEventMembers(ctx context.Context, eventID string) ([]entities.Actor, error) {
	var rows []memberModel
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("user_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("newsroom_repository_list_members_failed", err, "event_id", eventID)
	}
	items := make([]entities.Actor, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Actor{
			UserID:  row.UserID,
			Role:    entities.Role(row.Role),
			EventID: row.EventID,
		})
	}
	return items, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":  outbox.StatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func loadArticleTx(tx *gorm.DB, articleID string) (entities.Article, error) {
	var row articleModel
	if err := tx.Where("article_id = ?", articleID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Article{}, domainerrors.ErrArticleNotFound
		}
		return entities.Article{}, err
	}
	return row.toEntity(), nil
}

// lockedOrMissingTx explains why a conditional edit touched no row.
func lockedOrMissingTx(tx *gorm.DB, articleID string) error {
	if _, err := loadArticleTx(tx, articleID); err != nil {
		return err
	}
	return domainerrors.ErrArticleLocked
}

func listApprovalsTx(tx *gorm.DB, articleID string) ([]entities.Approval, error) {
	var rows []approvalModel
	if err := tx.Where("article_id = ?", articleID).Order("decided_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]entities.Approval, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func insertOutboxEnvelopeTx(tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outbox.StatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if err := tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return err
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "newsroom/approval-workflow",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("newsroom repository operation failed", fields...)
	return err
}

func isDomainError(err error) bool {
	return errors.Is(err, domainerrors.ErrArticleNotFound) ||
		errors.Is(err, domainerrors.ErrArticleLocked) ||
		errors.Is(err, domainerrors.ErrInvalidState) ||
		errors.Is(err, domainerrors.ErrSelfReviewForbidden) ||
		errors.Is(err, domainerrors.ErrRepositoryInvariantBroke)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ArticleRepository = (*Repository)(nil)
var _ ports.Directory = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
