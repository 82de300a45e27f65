package services

import (
	"summit/contexts/newsroom/approval-workflow/domain/entities"
	domainerrors "summit/contexts/newsroom/approval-workflow/domain/errors"
)

const (
	DefaultRequiredJournalists = 2
	DefaultRequiredLeaders     = 1
)

// QuorumThresholds are the approval counts needed to publish.
type QuorumThresholds struct {
	Journalists int
	Leaders     int
}

func DefaultQuorum() QuorumThresholds {
	return QuorumThresholds{
		Journalists: DefaultRequiredJournalists,
		Leaders:     DefaultRequiredLeaders,
	}
}

// WithDefaults fills unset thresholds. A quorum of zero approvals is never
// accepted.
func (q QuorumThresholds) WithDefaults() QuorumThresholds {
	if q.Journalists <= 0 {
		q.Journalists = DefaultRequiredJournalists
	}
	if q.Leaders <= 0 {
		q.Leaders = DefaultRequiredLeaders
	}
	return q
}

// EffectiveReviewerRole maps a caller role to the pool the approval counts
// toward. It is applied once, when the approval is written.
func EffectiveReviewerRole(role entities.Role) (entities.ReviewerRole, error) {
	switch role {
	case entities.RoleJournalist:
		return entities.ReviewerRoleJournalist, nil
	case entities.RoleLeader, entities.RoleAdmin:
		return entities.ReviewerRoleLeader, nil
	default:
		return "", domainerrors.ErrReviewerRoleNotAllowed
	}
}

// Tally counts approvals per pool. viewerID marks whether that user already
// has a decision on record; pass "" to skip.
func Tally(approvals []entities.Approval, thresholds QuorumThresholds, viewerID string) entities.ReviewStats {
	thresholds = thresholds.WithDefaults()
	stats := entities.ReviewStats{
		RequiredJournalists: thresholds.Journalists,
		RequiredLeaders:     thresholds.Leaders,
	}
	for _, approval := range approvals {
		if viewerID != "" && approval.ApproverID == viewerID {
			stats.HasUserReviewed = true
		}
		switch approval.Decision {
		case entities.DecisionReject:
			stats.Rejections++
		case entities.DecisionApprove:
			switch approval.ApproverRole {
			case entities.ReviewerRoleJournalist:
				stats.JournalistApprovals++
			case entities.ReviewerRoleLeader:
				stats.LeaderApprovals++
			}
		}
	}
	stats.CanPublish = stats.JournalistApprovals >= thresholds.Journalists &&
		stats.LeaderApprovals >= thresholds.Leaders
	return stats
}

// CheckOwner allows the author and admins.
func CheckOwner(article entities.Article, actor entities.Actor) error {
	if article.AuthorID != actor.UserID && !actor.IsAdmin() {
		return domainerrors.ErrForbidden
	}
	return nil
}

// CheckEditable guards author edits and submission.
func CheckEditable(article entities.Article, actor entities.Actor) error {
	if err := CheckOwner(article, actor); err != nil {
		return err
	}
	if !article.Status.Editable() {
		return domainerrors.ErrArticleLocked
	}
	return nil
}

// CanRead hides drafts and rejected pieces from everyone but their author
// and admins.
func CanRead(article entities.Article, actor entities.Actor) bool {
	if !article.Status.Editable() {
		return true
	}
	return article.AuthorID == actor.UserID || actor.IsAdmin()
}
