package entities

import "time"

type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusSubmitted ArticleStatus = "submitted"
	ArticleStatusPublished ArticleStatus = "published"
	ArticleStatusRejected  ArticleStatus = "rejected"
)

// Editable reports whether the author may still change the article.
func (s ArticleStatus) Editable() bool {
	return s == ArticleStatusDraft || s == ArticleStatusRejected
}

type Role string

const (
	RoleDelegate   Role = "delegate"
	RoleLeader     Role = "leader"
	RoleJournalist Role = "journalist"
	RoleLobbyist   Role = "lobbyist"
	RoleAdmin      Role = "admin"
	RoleGameMaster Role = "game_master"
)

// Actor is the already-authenticated caller.
type Actor struct {
	UserID  string
	Role    Role
	EventID string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanAuthor reports whether the actor may write articles.
func (a Actor) CanAuthor() bool {
	return a.Role == RoleJournalist || a.IsAdmin()
}

type Article struct {
	ArticleID   string
	EventID     string
	AuthorID    string
	Title       string
	Content     string
	Status      ArticleStatus
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ReviewerRole is the role an approval counts toward. Admins review as
// leaders.
type ReviewerRole string

const (
	ReviewerRoleJournalist ReviewerRole = "journalist"
	ReviewerRoleLeader     ReviewerRole = "leader"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Approval is one reviewer's latest decision on one article.
type Approval struct {
	ApprovalID   string
	ArticleID    string
	ApproverID   string
	ApproverRole ReviewerRole
	Decision     Decision
	Reason       string
	DecidedAt    time.Time
}

type ReviewStats struct {
	JournalistApprovals int
	LeaderApprovals     int
	Rejections          int
	RequiredJournalists int
	RequiredLeaders     int
	CanPublish          bool
	HasUserReviewed     bool
}

type ArticleView struct {
	Article   Article
	Approvals []Approval
	Stats     ReviewStats
}

// ApprovalOutcome reports the state after a review. Transitioned is true only
// for the call that actually moved the article out of submitted.
type ApprovalOutcome struct {
	Article      Article
	Approval     Approval
	Stats        ReviewStats
	Transitioned bool
}
