package httpserver

import (
	"net/http"
	"strings"
	"testing"

	newshttp "summit/contexts/newsroom/approval-workflow/transport/http"
	"summit/internal/platform/identity"
)

var (
	newsAuthor   = identity.Principal{UserID: "journalist-author", Role: "journalist", EventID: "event-1"}
	newsPeerOne  = identity.Principal{UserID: "journalist-1", Role: "journalist", EventID: "event-1"}
	newsPeerTwo  = identity.Principal{UserID: "journalist-2", Role: "journalist", EventID: "event-1"}
	newsLeader   = identity.Principal{UserID: "leader-1", Role: "leader", EventID: "event-1"}
	newsDelegate = identity.Principal{UserID: "delegate-1", Role: "delegate", EventID: "event-1"}
)

func createSubmittedArticle(t *testing.T, server *Server) newshttp.ArticleResponse {
	t.Helper()
	rr := doJSON(t, server, http.MethodPost, "/api/v1/news", &newsAuthor, `{"title":"Delegates reach accord","content":"Late night talks.","status":"submitted"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var article newshttp.ArticleResponse
	decodeBody(t, rr, &article)
	return article
}

func TestArticlePublishesOnQuorum(t *testing.T) {
	server := newTestServer()
	article := createSubmittedArticle(t, server)
	approvalsPath := "/api/v1/news/" + article.ArticleID + "/approvals"

	for _, reviewer := range []identity.Principal{newsPeerOne, newsPeerTwo} {
		rr := doJSON(t, server, http.MethodPost, approvalsPath, &reviewer, `{"decision":"approve"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
		}
	}
	rr := doJSON(t, server, http.MethodPost, approvalsPath, &newsLeader, `{"decision":"approve"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var outcome newshttp.ApprovalOutcomeResponse
	decodeBody(t, rr, &outcome)
	if outcome.Status != "published" || !outcome.Transitioned || outcome.PublishedAt == nil {
		t.Fatalf("expected publish, got %+v", outcome)
	}

	rr = doJSON(t, server, http.MethodPost, approvalsPath, &newsLeader, `{"decision":"approve"}`)
	if rr.Code != http.StatusConflict || !strings.Contains(rr.Body.String(), "invalid_state") {
		t.Fatalf("expected 409 invalid_state, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodGet, "/api/v1/news?filter=published", &newsDelegate, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var list newshttp.ListArticlesResponse
	decodeBody(t, rr, &list)
	if len(list.Items) != 1 || list.Items[0].Stats.LeaderApprovals != 1 {
		t.Fatalf("expected the published article with one leader approval, got %+v", list.Items)
	}
}

func TestReviewRefusals(t *testing.T) {
	server := newTestServer()
	article := createSubmittedArticle(t, server)
	approvalsPath := "/api/v1/news/" + article.ArticleID + "/approvals"

	cases := []struct {
		name     string
		reviewer identity.Principal
		body     string
		status   int
		code     string
	}{
		{name: "self review", reviewer: newsAuthor, body: `{"decision":"approve"}`, status: http.StatusForbidden, code: "self_review_forbidden"},
		{name: "delegate", reviewer: newsDelegate, body: `{"decision":"approve"}`, status: http.StatusForbidden, code: "reviewer_role_not_allowed"},
		{name: "bad decision", reviewer: newsPeerOne, body: `{"decision":"maybe"}`, status: http.StatusBadRequest, code: "validation_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, server, http.MethodPost, approvalsPath, &tc.reviewer, tc.body)
			if rr.Code != tc.status || !strings.Contains(rr.Body.String(), tc.code) {
				t.Fatalf("expected %d %s, got %d body=%s", tc.status, tc.code, rr.Code, rr.Body.String())
			}
		})
	}

	rr := doJSON(t, server, http.MethodGet, "/api/v1/news/missing", &newsLeader, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestRejectThenEditAndResubmit(t *testing.T) {
	server := newTestServer()
	article := createSubmittedArticle(t, server)
	articlePath := "/api/v1/news/" + article.ArticleID

	rr := doJSON(t, server, http.MethodPatch, articlePath, &newsAuthor, `{"title":"Too early"}`)
	if rr.Code != http.StatusConflict || !strings.Contains(rr.Body.String(), "article_locked") {
		t.Fatalf("expected 409 article_locked, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, articlePath+"/approvals", &newsLeader, `{"decision":"reject","reason":"Needs sources."}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPatch, articlePath, &newsAuthor, `{"content":"Now sourced."}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected edit of rejected article to succeed, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, server, http.MethodPost, articlePath+"/submit", &newsAuthor, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected resubmit 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodGet, articlePath, &newsAuthor, "")
	var view newshttp.ArticleResponse
	decodeBody(t, rr, &view)
	if view.Status != "submitted" || len(view.Approvals) != 0 {
		t.Fatalf("expected fresh review cycle, got %+v", view)
	}

	rr = doJSON(t, server, http.MethodDelete, articlePath, &newsPeerOne, "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected non-author delete forbidden, got %d", rr.Code)
	}
	rr = doJSON(t, server, http.MethodDelete, articlePath, &newsAuthor, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d body=%s", rr.Code, rr.Body.String())
	}
}
