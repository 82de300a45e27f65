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

type CreateArticleCommand struct {
	Actor   entities.Actor
	Title   string
	Content string
	Status  entities.ArticleStatus
}

type UpdateArticleCommand struct {
	Actor     entities.Actor
	ArticleID string
	Title     *string
	Content   *string
	// Status may only be empty, the current status or submitted.
	Status entities.ArticleStatus
}

type ArticleCommand struct {
	Actor     entities.Actor
	ArticleID string
}

type ArticleUseCase struct {
	Articles ports.ArticleRepository
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func (uc ArticleUseCase) CreateArticle(ctx context.Context, cmd CreateArticleCommand) (entities.Article, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.Actor.UserID) == "" {
		return entities.Article{}, domainerrors.ErrUnauthenticated
	}
	if !cmd.Actor.CanAuthor() || cmd.Actor.EventID == "" {
		return entities.Article{}, domainerrors.ErrForbidden
	}
	title := strings.TrimSpace(cmd.Title)
	content := strings.TrimSpace(cmd.Content)
	if title == "" || content == "" {
		return entities.Article{}, domainerrors.ErrInvalidArticleInput
	}
	status := cmd.Status
	if status == "" {
		status = entities.ArticleStatusDraft
	}
	if status != entities.ArticleStatusDraft && status != entities.ArticleStatusSubmitted {
		return entities.Article{}, domainerrors.ErrInvalidArticleInput
	}

	articleID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Article{}, err
	}
	now := uc.now()
	article := entities.Article{
		ArticleID: articleID,
		EventID:   cmd.Actor.EventID,
		AuthorID:  cmd.Actor.UserID,
		Title:     title,
		Content:   content,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.Articles.CreateArticle(ctx, article); err != nil {
		logger.Error("article create failed",
			"event", "newsroom_article_create_failed",
			"module", "newsroom/approval-workflow",
			"layer", "application",
			"article_id", articleID,
			"error", err.Error(),
		)
		return entities.Article{}, err
	}

	logger.Info("article created",
		"event", "newsroom_article_created",
		"module", "newsroom/approval-workflow",
		"layer", "application",
		"article_id", articleID,
		"author_id", article.AuthorID,
		"status", string(status),
	)
	return article, nil
}

// UpdateArticle edits a draft or rejected article. Asking for status
// submitted applies the edit first and then submits.
func (uc ArticleUseCase) UpdateArticle(ctx context.Context, cmd UpdateArticleCommand) (entities.Article, error) {
	logger := application.ResolveLogger(uc.Logger)
	article, err := uc.load(ctx, cmd.Actor, cmd.ArticleID)
	if err != nil {
		return entities.Article{}, err
	}
	if err := services.CheckEditable(article, cmd.Actor); err != nil {
		return entities.Article{}, err
	}
	if cmd.Status != "" && cmd.Status != article.Status && cmd.Status != entities.ArticleStatusSubmitted {
		return entities.Article{}, domainerrors.ErrInvalidTransition
	}

	edit := ports.ArticleEdit{ArticleID: article.ArticleID, At: uc.now()}
	if cmd.Title != nil {
		title := strings.TrimSpace(*cmd.Title)
		if title == "" {
			return entities.Article{}, domainerrors.ErrInvalidArticleInput
		}
		edit.Title = &title
	}
	if cmd.Content != nil {
		content := strings.TrimSpace(*cmd.Content)
		if content == "" {
			return entities.Article{}, domainerrors.ErrInvalidArticleInput
		}
		edit.Content = &content
	}

	if edit.Title != nil || edit.Content != nil {
		article, err = uc.Articles.UpdateArticle(ctx, edit)
		if err != nil {
			logger.Warn("article update rejected",
				"event", "newsroom_article_update_rejected",
				"module", "newsroom/approval-workflow",
				"layer", "application",
				"article_id", cmd.ArticleID,
				"error", err.Error(),
			)
			return entities.Article{}, err
		}
	}
	if cmd.Status == entities.ArticleStatusSubmitted && article.Status != entities.ArticleStatusSubmitted {
		return uc.submit(ctx, cmd.Actor, article.ArticleID)
	}
	return article, nil
}

// SubmitArticle starts a fresh review cycle.
func (uc ArticleUseCase) SubmitArticle(ctx context.Context, cmd ArticleCommand) (entities.Article, error) {
	article, err := uc.load(ctx, cmd.Actor, cmd.ArticleID)
	if err != nil {
		return entities.Article{}, err
	}
	if err := services.CheckEditable(article, cmd.Actor); err != nil {
		return entities.Article{}, err
	}
	return uc.submit(ctx, cmd.Actor, article.ArticleID)
}

func (uc ArticleUseCase) DeleteArticle(ctx context.Context, cmd ArticleCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	article, err := uc.load(ctx, cmd.Actor, cmd.ArticleID)
	if err != nil {
		return err
	}
	if err := services.CheckOwner(article, cmd.Actor); err != nil {
		return err
	}
	if err := uc.Articles.DeleteArticle(ctx, article.ArticleID); err != nil {
		return err
	}
	logger.Info("article deleted",
		"event", "newsroom_article_deleted",
		"module", "newsroom/approval-workflow",
		"layer", "application",
		"article_id", article.ArticleID,
		"actor_id", cmd.Actor.UserID,
	)
	return nil
}

func (uc ArticleUseCase) submit(ctx context.Context, actor entities.Actor, articleID string) (entities.Article, error) {
	logger := application.ResolveLogger(uc.Logger)
	article, err := uc.Articles.SubmitArticle(ctx, articleID, uc.now())
	if err != nil {
		logger.Warn("article submit rejected",
			"event", "newsroom_article_submit_rejected",
			"module", "newsroom/approval-workflow",
			"layer", "application",
			"article_id", articleID,
			"error", err.Error(),
		)
		return entities.Article{}, err
	}
	logger.Info("article submitted for review",
		"event", "newsroom_article_submitted",
		"module", "newsroom/approval-workflow",
		"layer", "application",
		"article_id", articleID,
		"actor_id", actor.UserID,
	)
	return article, nil
}

func (uc ArticleUseCase) load(ctx context.Context, actor entities.Actor, articleID string) (entities.Article, error) {
	return loadInScope(ctx, uc.Articles, actor, articleID)
}

func (uc ArticleUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func loadInScope(
	ctx context.Context,
	articles ports.ArticleRepository,
	actor entities.Actor,
	articleID string,
) (entities.Article, error) {
	if strings.TrimSpace(actor.UserID) == "" {
		return entities.Article{}, domainerrors.ErrUnauthenticated
	}
	articleID = strings.TrimSpace(articleID)
	if articleID == "" {
		return entities.Article{}, domainerrors.ErrArticleNotFound
	}
	article, err := articles.GetArticle(ctx, articleID)
	if err != nil {
		return entities.Article{}, err
	}
	if article.EventID != actor.EventID {
		return entities.Article{}, domainerrors.ErrArticleNotFound
	}
	return article, nil
}
