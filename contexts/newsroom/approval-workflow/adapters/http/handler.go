package httpadapter

import (
	"context"
	"log/slog"
	"strings"

	"summit/contexts/newsroom/approval-workflow/application/commands"
	"summit/contexts/newsroom/approval-workflow/application/queries"
	"summit/contexts/newsroom/approval-workflow/domain/entities"
	httptransport "summit/contexts/newsroom/approval-workflow/transport/http"
)

type Handler struct {
	Articles commands.ArticleUseCase
	Reviews  commands.ReviewUseCase
	Queries  queries.ArticleQueries
	Logger   *slog.Logger
}

func (h Handler) CreateArticleHandler(
	ctx context.Context,
	caller httptransport.Caller,
	req httptransport.CreateArticleRequest,
) (httptransport.ArticleResponse, error) {
	article, err := h.Articles.CreateArticle(ctx, commands.CreateArticleCommand{
		Actor:   toActor(caller),
		Title:   req.Title,
		Content: req.Content,
		Status:  entities.ArticleStatus(normalize(req.Status)),
	})
	if err != nil {
		return httptransport.ArticleResponse{}, err
	}
	return mapArticle(entities.ArticleView{Article: article}), nil
}

func (h Handler) ListArticlesHandler(
	ctx context.Context,
	caller httptransport.Caller,
	filter string,
) (httptransport.ListArticlesResponse, error) {
	views, err := h.Queries.ListArticles(ctx, toActor(caller), normalize(filter))
	if err != nil {
		return httptransport.ListArticlesResponse{}, err
	}
	items := make([]httptransport.ArticleResponse, 0, len(views))
	for _, view := range views {
		items = append(items, mapArticle(view))
	}
	return httptransport.ListArticlesResponse{Items: items}, nil
}

func (h Handler) GetArticleHandler(
	ctx context.Context,
	caller httptransport.Caller,
	articleID string,
) (httptransport.ArticleResponse, error) {
	view, err := h.Queries.GetArticle(ctx, toActor(caller), articleID)
	if err != nil {
		return httptransport.ArticleResponse{}, err
	}
	return mapArticle(view), nil
}

func (h Handler) UpdateArticleHandler(
	ctx context.Context,
	caller httptransport.Caller,
	articleID string,
	req httptransport.UpdateArticleRequest,
) (httptransport.ArticleResponse, error) {
	article, err := h.Articles.UpdateArticle(ctx, commands.UpdateArticleCommand{
		Actor:     toActor(caller),
		ArticleID: articleID,
		Title:     req.Title,
		Content:   req.Content,
		Status:    entities.ArticleStatus(normalize(req.Status)),
	})
	if err != nil {
		return httptransport.ArticleResponse{}, err
	}
	return mapArticle(entities.ArticleView{Article: article}), nil
}

func (h Handler) SubmitArticleHandler(
	ctx context.Context,
	caller httptransport.Caller,
	articleID string,
) (httptransport.ArticleResponse, error) {
	article, err := h.Articles.SubmitArticle(ctx, commands.ArticleCommand{
		Actor:     toActor(caller),
		ArticleID: articleID,
	})
	if err != nil {
		return httptransport.ArticleResponse{}, err
	}
	return mapArticle(entities.ArticleView{Article: article}), nil
}

func (h Handler) DeleteArticleHandler(ctx context.Context, caller httptransport.Caller, articleID string) error {
	return h.Articles.DeleteArticle(ctx, commands.ArticleCommand{
		Actor:     toActor(caller),
		ArticleID: articleID,
	})
}

func (h Handler) RecordApprovalHandler(
	ctx context.Context,
	caller httptransport.Caller,
	articleID string,
	req httptransport.ApprovalRequest,
) (httptransport.ApprovalOutcomeResponse, error) {
	outcome, err := h.Reviews.RecordApproval(ctx, commands.RecordApprovalCommand{
		Reviewer:  toActor(caller),
		ArticleID: articleID,
		Decision:  entities.Decision(normalize(req.Decision)),
		Reason:    req.Reason,
	})
	if err != nil {
		return httptransport.ApprovalOutcomeResponse{}, err
	}
	return httptransport.ApprovalOutcomeResponse{
		ArticleID:    outcome.Article.ArticleID,
		Status:       string(outcome.Article.Status),
		PublishedAt:  outcome.Article.PublishedAt,
		Approval:     mapApproval(outcome.Approval),
		Stats:        mapStats(outcome.Stats),
		Transitioned: outcome.Transitioned,
	}, nil
}

func toActor(caller httptransport.Caller) entities.Actor {
	return entities.Actor{
		UserID:  strings.TrimSpace(caller.UserID),
		Role:    entities.Role(normalize(caller.Role)),
		EventID: strings.TrimSpace(caller.EventID),
	}
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func mapArticle(view entities.ArticleView) httptransport.ArticleResponse {
	article := view.Article
	approvals := make([]httptransport.ApprovalResponse, 0, len(view.Approvals))
	for _, approval := range view.Approvals {
		approvals = append(approvals, mapApproval(approval))
	}
	return httptransport.ArticleResponse{
		ArticleID:   article.ArticleID,
		EventID:     article.EventID,
		AuthorID:    article.AuthorID,
		Title:       article.Title,
		Content:     article.Content,
		Status:      string(article.Status),
		PublishedAt: article.PublishedAt,
		CreatedAt:   article.CreatedAt,
		UpdatedAt:   article.UpdatedAt,
		Approvals:   approvals,
		Stats:       mapStats(view.Stats),
	}
}

func mapApproval(approval entities.Approval) httptransport.ApprovalResponse {
	return httptransport.ApprovalResponse{
		ApprovalID:   approval.ApprovalID,
		ApproverID:   approval.ApproverID,
		ApproverRole: string(approval.ApproverRole),
		Decision:     string(approval.Decision),
		Reason:       approval.Reason,
		DecidedAt:    approval.DecidedAt,
	}
}

func mapStats(stats entities.ReviewStats) httptransport.ReviewStatsResponse {
	return httptransport.ReviewStatsResponse{
		JournalistApprovals: stats.JournalistApprovals,
		LeaderApprovals:     stats.LeaderApprovals,
		Rejections:          stats.Rejections,
		RequiredJournalists: stats.RequiredJournalists,
		RequiredLeaders:     stats.RequiredLeaders,
		CanPublish:          stats.CanPublish,
		HasUserReviewed:     stats.HasUserReviewed,
	}
}
