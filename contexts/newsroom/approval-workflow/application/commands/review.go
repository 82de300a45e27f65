package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "summit/contexts/newsroom/approval-workflow/application"
	"summit/contexts/newsroom/approval-workflow/domain/entities"
	domainerrors "summit/contexts/newsroom/approval-workflow/domain/errors"
	"summit/contexts/newsroom/approval-workflow/domain/services"
	"summit/contexts/newsroom/approval-workflow/ports"
)

type RecordApprovalCommand struct {
	Reviewer  entities.Actor
	ArticleID string
	Decision  entities.Decision
	Reason    string
}

// ReviewUseCase records reviewer decisions and lets the repository decide,
// under the article row lock, whether the decision publishes or rejects.
type ReviewUseCase struct {
	Articles   ports.ArticleRepository
	Thresholds services.QuorumThresholds
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc ReviewUseCase) RecordApproval(ctx context.Context, cmd RecordApprovalCommand) (entities.ApprovalOutcome, error) {
	logger := application.ResolveLogger(uc.Logger)
	reviewer := cmd.Reviewer
	if strings.TrimSpace(reviewer.UserID) == "" {
		return entities.ApprovalOutcome{}, domainerrors.ErrUnauthenticated
	}
	reviewerRole, err := services.EffectiveReviewerRole(reviewer.Role)
	if err != nil {
		return entities.ApprovalOutcome{}, err
	}
	if !cmd.Decision.Valid() {
		return entities.ApprovalOutcome{}, domainerrors.ErrInvalidDecision
	}

	article, err := loadInScope(ctx, uc.Articles, reviewer, cmd.ArticleID)
	if err != nil {
		return entities.ApprovalOutcome{}, err
	}
	if article.Status != entities.ArticleStatusSubmitted {
		return entities.ApprovalOutcome{}, domainerrors.ErrInvalidState
	}
	if article.AuthorID == reviewer.UserID {
		logger.Warn("self review refused",
			"event", "newsroom_self_review_refused",
			"module", "newsroom/approval-workflow",
			"layer", "application",
			"article_id", article.ArticleID,
			"user_id", reviewer.UserID,
		)
		return entities.ApprovalOutcome{}, domainerrors.ErrSelfReviewForbidden
	}

	approvalID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.ApprovalOutcome{}, err
	}
	approval := entities.Approval{
		ApprovalID:   approvalID,
		ArticleID:    article.ArticleID,
		ApproverID:   reviewer.UserID,
		ApproverRole: reviewerRole,
		Decision:     cmd.Decision,
		Reason:       strings.TrimSpace(cmd.Reason),
		DecidedAt:    uc.now(),
	}
	published, err := uc.envelope(ctx, EventArticlePublished, article, approval, entities.ArticleStatusPublished)
	if err != nil {
		return entities.ApprovalOutcome{}, err
	}
	rejected, err := uc.envelope(ctx, EventArticleRejected, article, approval, entities.ArticleStatusRejected)
	if err != nil {
		return entities.ApprovalOutcome{}, err
	}

	thresholds := uc.Thresholds.WithDefaults()
	result, err := uc.Articles.RecordReview(ctx, ports.ReviewDecision{
		Approval:   approval,
		Thresholds: thresholds,
		Published:  published,
		Rejected:   rejected,
	})
	if err != nil {
		logger.Warn("review decision rejected",
			"event", "newsroom_review_rejected",
			"module", "newsroom/approval-workflow",
			"layer", "application",
			"article_id", article.ArticleID,
			"user_id", reviewer.UserID,
			"error", err.Error(),
		)
		return entities.ApprovalOutcome{}, err
	}

	stats := services.Tally(result.Approvals, thresholds, reviewer.UserID)
	logger.Info("review decision recorded",
		"event", "newsroom_review_recorded",
		"module", "newsroom/approval-workflow",
		"layer", "application",
		"article_id", article.ArticleID,
		"user_id", reviewer.UserID,
		"reviewer_role", string(reviewerRole),
		"decision", string(cmd.Decision),
		"status", string(result.Article.Status),
		"journalist_approvals", stats.JournalistApprovals,
		"leader_approvals", stats.LeaderApprovals,
		"transitioned", result.Transitioned,
	)
	return entities.ApprovalOutcome{
		Article:      result.Article,
		Approval:     approval,
		Stats:        stats,
		Transitioned: result.Transitioned,
	}, nil
}

func (uc ReviewUseCase) envelope(
	ctx context.Context,
	eventType string,
	article entities.Article,
	approval entities.Approval,
	status entities.ArticleStatus,
) (ports.EventEnvelope, error) {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return newArticleEnvelope(eventID, eventType, article, approval, status)
}

func (uc ReviewUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
