package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Caller is the authenticated identity forwarded by the HTTP server.
type Caller struct {
	UserID  string
	Role    string
	EventID string
}

type CreateArticleRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status,omitempty"`
}

type UpdateArticleRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Status  string  `json:"status,omitempty"`
}

type ApprovalRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

type ApprovalResponse struct {
	ApprovalID   string    `json:"approval_id"`
	ApproverID   string    `json:"approver_id"`
	ApproverRole string    `json:"approver_role"`
	Decision     string    `json:"decision"`
	Reason       string    `json:"reason,omitempty"`
	DecidedAt    time.Time `json:"decided_at"`
}

type ReviewStatsResponse struct {
	JournalistApprovals int  `json:"journalist_approvals"`
	LeaderApprovals     int  `json:"leader_approvals"`
	Rejections          int  `json:"rejections"`
	RequiredJournalists int  `json:"required_journalists"`
	RequiredLeaders     int  `json:"required_leaders"`
	CanPublish          bool `json:"can_publish"`
	HasUserReviewed     bool `json:"has_user_reviewed"`
}

type ArticleResponse struct {
	ArticleID   string              `json:"article_id"`
	EventID     string              `json:"event_id"`
	AuthorID    string              `json:"author_id"`
	Title       string              `json:"title"`
	Content     string              `json:"content"`
	Status      string              `json:"status"`
	PublishedAt *time.Time          `json:"published_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Approvals   []ApprovalResponse  `json:"approvals"`
	Stats       ReviewStatsResponse `json:"stats"`
}

type ListArticlesResponse struct {
	Items []ArticleResponse `json:"items"`
}

type ApprovalOutcomeResponse struct {
	ArticleID    string              `json:"article_id"`
	Status       string              `json:"status"`
	PublishedAt  *time.Time          `json:"published_at,omitempty"`
	Approval     ApprovalResponse    `json:"approval"`
	Stats        ReviewStatsResponse `json:"stats"`
	Transitioned bool                `json:"transitioned"`
}
