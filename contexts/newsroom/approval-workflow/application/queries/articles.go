package queries

import (
	"context"
	"sort"
	"strings"
	"time"

	"summit/contexts/newsroom/approval-workflow/domain/entities"
	domainerrors "summit/contexts/newsroom/approval-workflow/domain/errors"
	"summit/contexts/newsroom/approval-workflow/domain/services"
	"summit/contexts/newsroom/approval-workflow/ports"
)

const (
	FilterAll         = "all"
	FilterMyDrafts    = "my_drafts"
	FilterReviewQueue = "review_queue"
	FilterPublished   = "published"
)

type ArticleQueries struct {
	Articles   ports.ArticleRepository
	Thresholds services.QuorumThresholds
}

// ListArticles returns the articles the viewer's role may see, newest
// activity first.
func (q ArticleQueries) ListArticles(ctx context.Context, viewer entities.Actor, filter string) ([]entities.ArticleView, error) {
	if strings.TrimSpace(viewer.UserID) == "" {
		return nil, domainerrors.ErrUnauthenticated
	}
	articles, err := q.Articles.ListArticles(ctx, listFilter(viewer, strings.TrimSpace(filter)))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(articles, func(i, j int) bool {
		return activityAt(articles[i]).After(activityAt(articles[j]))
	})

	ids := make([]string, 0, len(articles))
	for _, article := range articles {
		ids = append(ids, article.ArticleID)
	}
	approvals, err := q.Articles.ListApprovals(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]entities.ArticleView, 0, len(articles))
	for _, article := range articles {
		views = append(views, q.view(article, approvals[article.ArticleID], viewer))
	}
	return views, nil
}

func (q ArticleQueries) GetArticle(ctx context.Context, viewer entities.Actor, articleID string) (entities.ArticleView, error) {
	if strings.TrimSpace(viewer.UserID) == "" {
		return entities.ArticleView{}, domainerrors.ErrUnauthenticated
	}
	article, err := q.Articles.GetArticle(ctx, strings.TrimSpace(articleID))
	if err != nil {
		return entities.ArticleView{}, err
	}
	if article.EventID != viewer.EventID {
		return entities.ArticleView{}, domainerrors.ErrArticleNotFound
	}
	if !services.CanRead(article, viewer) {
		return entities.ArticleView{}, domainerrors.ErrForbidden
	}
	approvals, err := q.Articles.ListApprovals(ctx, []string{article.ArticleID})
	if err != nil {
		return entities.ArticleView{}, err
	}
	return q.view(article, approvals[article.ArticleID], viewer), nil
}

func (q ArticleQueries) view(article entities.Article, approvals []entities.Approval, viewer entities.Actor) entities.ArticleView {
	return entities.ArticleView{
		Article:   article,
		Approvals: approvals,
		Stats:     services.Tally(approvals, q.Thresholds, viewer.UserID),
	}
}

func listFilter(viewer entities.Actor, filter string) ports.ArticleFilter {
	base := ports.ArticleFilter{EventID: viewer.EventID}
	published := []entities.ArticleStatus{entities.ArticleStatusPublished}
	inReview := []entities.ArticleStatus{entities.ArticleStatusSubmitted, entities.ArticleStatusPublished}

	switch viewer.Role {
	case entities.RoleJournalist:
		switch filter {
		case FilterMyDrafts:
			base.AuthorID = viewer.UserID
			base.Statuses = []entities.ArticleStatus{entities.ArticleStatusDraft, entities.ArticleStatusRejected}
		case FilterReviewQueue:
			base.Statuses = []entities.ArticleStatus{entities.ArticleStatusSubmitted}
			base.ExcludeAuthorID = viewer.UserID
		case FilterPublished:
			base.Statuses = published
		default:
			base.Statuses = inReview
			base.IncludeAuthoredBy = viewer.UserID
		}
	case entities.RoleLeader, entities.RoleAdmin:
		switch filter {
		case FilterReviewQueue:
			base.Statuses = []entities.ArticleStatus{entities.ArticleStatusSubmitted}
			base.ExcludeAuthorID = viewer.UserID
		case FilterPublished:
			base.Statuses = published
		default:
			base.Statuses = inReview
			if viewer.Role == entities.RoleAdmin {
				base.IncludeAuthoredBy = viewer.UserID
			}
		}
	default:
		base.Statuses = published
	}
	return base
}

func activityAt(article entities.Article) time.Time {
	if article.PublishedAt != nil {
		return *article.PublishedAt
	}
	return article.CreatedAt
}
