package services

import (
	"errors"
	"testing"

	"summit/contexts/newsroom/approval-workflow/domain/entities"
	domainerrors "summit/contexts/newsroom/approval-workflow/domain/errors"
)

func TestEffectiveReviewerRoleCollapsesAdmin(t *testing.T) {
	cases := map[entities.Role]entities.ReviewerRole{
		entities.RoleJournalist: entities.ReviewerRoleJournalist,
		entities.RoleLeader:     entities.ReviewerRoleLeader,
		entities.RoleAdmin:      entities.ReviewerRoleLeader,
	}
	for role, want := range cases {
		got, err := EffectiveReviewerRole(role)
		if err != nil || got != want {
			t.Fatalf("role %s: expected %s, got %s (%v)", role, want, got, err)
		}
	}
	for _, role := range []entities.Role{entities.RoleDelegate, entities.RoleLobbyist, entities.RoleGameMaster, ""} {
		if _, err := EffectiveReviewerRole(role); !errors.Is(err, domainerrors.ErrReviewerRoleNotAllowed) {
			t.Fatalf("role %q: expected reviewer role refused, got %v", role, err)
		}
	}
}

func TestTallyCountsLatestDecisionsPerPool(t *testing.T) {
	approvals := []entities.Approval{
		{ApproverID: "j1", ApproverRole: entities.ReviewerRoleJournalist, Decision: entities.DecisionApprove},
		{ApproverID: "j2", ApproverRole: entities.ReviewerRoleJournalist, Decision: entities.DecisionApprove},
		{ApproverID: "l1", ApproverRole: entities.ReviewerRoleLeader, Decision: entities.DecisionReject},
	}
	stats := Tally(approvals, QuorumThresholds{}, "l1")
	if stats.JournalistApprovals != 2 || stats.LeaderApprovals != 0 || stats.Rejections != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.CanPublish {
		t.Fatalf("expected quorum unmet without a leader approval")
	}
	if !stats.HasUserReviewed || stats.RequiredJournalists != 2 || stats.RequiredLeaders != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	approvals[2].Decision = entities.DecisionApprove
	if stats := Tally(approvals, DefaultQuorum(), ""); !stats.CanPublish || stats.HasUserReviewed {
		t.Fatalf("expected quorum met, got %+v", stats)
	}
	if stats := Tally(approvals, QuorumThresholds{Journalists: 3, Leaders: 1}, ""); stats.CanPublish {
		t.Fatalf("expected configured threshold of three journalists to hold")
	}
}

func TestCheckEditable(t *testing.T) {
	author := entities.Actor{UserID: "author", Role: entities.RoleJournalist}
	other := entities.Actor{UserID: "other", Role: entities.RoleJournalist}
	admin := entities.Actor{UserID: "root", Role: entities.RoleAdmin}

	draft := entities.Article{AuthorID: "author", Status: entities.ArticleStatusDraft}
	if err := CheckEditable(draft, author); err != nil {
		t.Fatalf("author edit refused: %v", err)
	}
	if err := CheckEditable(draft, admin); err != nil {
		t.Fatalf("admin edit refused: %v", err)
	}
	if err := CheckEditable(draft, other); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	for _, status := range []entities.ArticleStatus{entities.ArticleStatusSubmitted, entities.ArticleStatusPublished} {
		locked := entities.Article{AuthorID: "author", Status: status}
		if err := CheckEditable(locked, author); !errors.Is(err, domainerrors.ErrArticleLocked) {
			t.Fatalf("status %s: expected locked, got %v", status, err)
		}
	}
	if CanRead(draft, other) || !CanRead(entities.Article{Status: entities.ArticleStatusPublished}, other) {
		t.Fatalf("unexpected read visibility")
	}
}
