package errors

import "errors"

var (
	ErrInvalidArticleInput    = errors.New("invalid article input")
	ErrInvalidDecision        = errors.New("decision must be approve or reject")
	ErrArticleNotFound        = errors.New("article not found")
	ErrInvalidState           = errors.New("only submitted articles can be reviewed")
	ErrInvalidTransition      = errors.New("invalid article status transition")
	ErrSelfReviewForbidden    = errors.New("authors cannot review their own article")
	ErrReviewerRoleNotAllowed = errors.New("only journalists and leadership can review articles")
	ErrArticleLocked          = errors.New("article cannot be edited while under review or published")
	ErrForbidden              = errors.New("forbidden")
	ErrUnauthenticated        = errors.New("caller identity is required")

	ErrRepositoryInvariantBroke = errors.New("repository invariant broken")
)
