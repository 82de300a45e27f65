package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"summit/contexts/newsroom/approval-workflow/domain/entities"
	domainerrors "summit/contexts/newsroom/approval-workflow/domain/errors"
	"summit/contexts/newsroom/approval-workflow/domain/services"
	"summit/contexts/newsroom/approval-workflow/ports"
	"summit/internal/platform/db/dbtest"
)

var reviewBase = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	pg := dbtest.StartPostgres(t)
	repo := NewRepository(pg.DB, nil)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return repo
}

func seedSubmitted(t *testing.T, repo *Repository, id string) entities.Article {
	t.Helper()
	article := entities.Article{
		ArticleID: id,
		EventID:   "event-1",
		AuthorID:  "journalist-author",
		Title:     "Delegates reach accord",
		Content:   "Late night negotiations ended with a vote.",
		Status:    entities.ArticleStatusSubmitted,
		CreatedAt: reviewBase,
		UpdatedAt: reviewBase,
	}
	if err := repo.CreateArticle(context.Background(), article); err != nil {
		t.Fatalf("create article failed: %v", err)
	}
	return article
}

func reviewDecision(article entities.Article, n int, approverID string, role entities.ReviewerRole, decision entities.Decision) ports.ReviewDecision {
	at := reviewBase.Add(time.Duration(n) * time.Minute)
	return ports.ReviewDecision{
		Approval: entities.Approval{
			ApprovalID:   fmt.Sprintf("%s-approval-%d", article.ArticleID, n),
			ArticleID:    article.ArticleID,
			ApproverID:   approverID,
			ApproverRole: role,
			Decision:     decision,
			DecidedAt:    at,
		},
		Thresholds: services.DefaultQuorum(),
		Published: ports.EventEnvelope{
			EventID:    fmt.Sprintf("%s-published-%d", article.ArticleID, n),
			EventType:  "newsroom.article.published",
			OccurredAt: at,
			Data:       []byte(`{}`),
		},
		Rejected: ports.EventEnvelope{
			EventID:    fmt.Sprintf("%s-rejected-%d", article.ArticleID, n),
			EventType:  "newsroom.article.rejected",
			OccurredAt: at,
			Data:       []byte(`{}`),
		},
	}
}

func TestRepositoryConcurrentLeaderApprovalsPublishOnce(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	article := seedSubmitted(t, repo, "article-race")

	for i, journalist := range []string{"journalist-1", "journalist-2"} {
		if _, err := repo.RecordReview(ctx, reviewDecision(article, i, journalist, entities.ReviewerRoleJournalist, entities.DecisionApprove)); err != nil {
			t.Fatalf("journalist approval failed: %v", err)
		}
	}

	const leaders = 6
	var wg sync.WaitGroup
	var transitions atomic.Int32
	for i := 0; i < leaders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := repo.RecordReview(ctx, reviewDecision(article, 10+i, fmt.Sprintf("leader-%d", i), entities.ReviewerRoleLeader, entities.DecisionApprove))
			switch {
			case err == nil:
				if result.Transitioned {
					transitions.Add(1)
				}
			case errors.Is(err, domainerrors.ErrInvalidState):
			default:
				t.Errorf("unexpected review error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if transitions.Load() != 1 {
		t.Fatalf("expected exactly one publishing transition, got %d", transitions.Load())
	}
	loaded, err := repo.GetArticle(ctx, article.ArticleID)
	if err != nil {
		t.Fatalf("get article failed: %v", err)
	}
	if loaded.Status != entities.ArticleStatusPublished || loaded.PublishedAt == nil {
		t.Fatalf("expected published article, got %+v", loaded)
	}
	pending, err := repo.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != "newsroom.article.published" {
		t.Fatalf("expected one published outbox row, got %+v", pending)
	}
}

func TestRepositoryRecordReviewUpsertsAndRejects(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	article := seedSubmitted(t, repo, "article-upsert")

	if _, err := repo.RecordReview(ctx, reviewDecision(article, 1, "journalist-1", entities.ReviewerRoleJournalist, entities.DecisionApprove)); err != nil {
		t.Fatalf("first approval failed: %v", err)
	}
	second, err := repo.RecordReview(ctx, reviewDecision(article, 2, "journalist-1", entities.ReviewerRoleJournalist, entities.DecisionApprove))
	if err != nil {
		t.Fatalf("repeat approval failed: %v", err)
	}
	if len(second.Approvals) != 1 || second.Transitioned {
		t.Fatalf("expected one upserted approval, got %+v", second)
	}

	_, err = repo.RecordReview(ctx, reviewDecision(article, 3, article.AuthorID, entities.ReviewerRoleJournalist, entities.DecisionApprove))
	if !errors.Is(err, domainerrors.ErrSelfReviewForbidden) {
		t.Fatalf("expected self review refused, got %v", err)
	}

	rejected, err := repo.RecordReview(ctx, reviewDecision(article, 4, "journalist-1", entities.ReviewerRoleJournalist, entities.DecisionReject))
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if !rejected.Transitioned || rejected.Article.Status != entities.ArticleStatusRejected {
		t.Fatalf("expected rejection transition, got %+v", rejected)
	}
	if len(rejected.Approvals) != 1 || rejected.Approvals[0].Decision != entities.DecisionReject {
		t.Fatalf("expected decision replaced by reject, got %+v", rejected.Approvals)
	}
}

func TestRepositorySubmitClearsApprovalsAndLocksEdits(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	article := seedSubmitted(t, repo, "article-resubmit")

	if _, err := repo.RecordReview(ctx, reviewDecision(article, 1, "journalist-1", entities.ReviewerRoleJournalist, entities.DecisionApprove)); err != nil {
		t.Fatalf("approval failed: %v", err)
	}
	title := "Edited while submitted"
	_, err := repo.UpdateArticle(ctx, ports.ArticleEdit{ArticleID: article.ArticleID, Title: &title, At: reviewBase})
	if !errors.Is(err, domainerrors.ErrArticleLocked) {
		t.Fatalf("expected locked article, got %v", err)
	}

	if _, err := repo.RecordReview(ctx, reviewDecision(article, 2, "leader-1", entities.ReviewerRoleLeader, entities.DecisionReject)); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	edited, err := repo.UpdateArticle(ctx, ports.ArticleEdit{ArticleID: article.ArticleID, Title: &title, At: reviewBase.Add(time.Hour)})
	if err != nil {
		t.Fatalf("edit rejected article failed: %v", err)
	}
	if edited.Title != title || edited.Status != entities.ArticleStatusRejected {
		t.Fatalf("unexpected edited article: %+v", edited)
	}

	resubmitted, err := repo.SubmitArticle(ctx, article.ArticleID, reviewBase.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if resubmitted.Status != entities.ArticleStatusSubmitted {
		t.Fatalf("expected submitted, got %s", resubmitted.Status)
	}
	approvals, err := repo.ListApprovals(ctx, []string{article.ArticleID})
	if err != nil {
		t.Fatalf("list approvals failed: %v", err)
	}
	if len(approvals[article.ArticleID]) != 0 {
		t.Fatalf("expected approvals cleared on resubmit, got %+v", approvals)
	}

	if _, err := repo.SubmitArticle(ctx, "missing", reviewBase); !errors.Is(err, domainerrors.ErrArticleNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRepositoryListArticlesFilter(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedSubmitted(t, repo, "article-other")
	own := entities.Article{
		ArticleID: "article-own-draft",
		EventID:   "event-1",
		AuthorID:  "journalist-1",
		Title:     "Draft",
		Content:   "Body",
		Status:    entities.ArticleStatusDraft,
		CreatedAt: reviewBase.Add(time.Minute),
		UpdatedAt: reviewBase.Add(time.Minute),
	}
	if err := repo.CreateArticle(ctx, own); err != nil {
		t.Fatalf("create draft failed: %v", err)
	}

	items, err := repo.ListArticles(ctx, ports.ArticleFilter{
		EventID:           "event-1",
		Statuses:          []entities.ArticleStatus{entities.ArticleStatusSubmitted, entities.ArticleStatusPublished},
		IncludeAuthoredBy: "journalist-1",
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 2 || items[0].ArticleID != own.ArticleID {
		t.Fatalf("expected own draft first plus submitted article, got %+v", items)
	}

	queue, err := repo.ListArticles(ctx, ports.ArticleFilter{
		EventID:         "event-1",
		Statuses:        []entities.ArticleStatus{entities.ArticleStatusSubmitted},
		ExcludeAuthorID: "journalist-author",
	})
	if err != nil {
		t.Fatalf("list queue failed: %v", err)
	}
	if len(queue) != 0 {
		t.Fatalf("expected author excluded from own queue, got %+v", queue)
	}
}
