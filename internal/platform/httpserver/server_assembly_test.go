package httpserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ballothttp "summit/contexts/assembly/ballot-engine/transport/http"
	"summit/internal/platform/identity"
)

var (
	assemblyAdmin  = identity.Principal{UserID: "admin-1", Role: "admin", EventID: "event-1"}
	delegateA      = identity.Principal{UserID: "user-a", Role: "delegate", TeamID: "team-1", EventID: "event-1"}
	delegateB      = identity.Principal{UserID: "user-b", Role: "delegate", TeamID: "team-1", EventID: "event-1"}
	delegateNoTeam = identity.Principal{UserID: "user-c", Role: "delegate", EventID: "event-1"}
)

func createActiveResolution(t *testing.T, server *Server, body string) ballothttp.ResolutionResponse {
	t.Helper()
	rr := doJSON(t, server, http.MethodPost, "/api/v1/resolutions", &assemblyAdmin, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resolution ballothttp.ResolutionResponse
	decodeBody(t, rr, &resolution)
	return resolution
}

func TestCastBallotOncePerDelegation(t *testing.T) {
	server := newTestServer()
	resolution := createActiveResolution(t, server, `{"title":"Adopt the climate accord","options":["Yes","No"],"status":"active"}`)
	castPath := "/api/v1/resolutions/" + resolution.ResolutionID + "/cast"

	rr := doJSON(t, server, http.MethodPost, castPath, &delegateA, `{"option_id":"`+resolution.Options[0].OptionID+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var cast ballothttp.CastBallotResponse
	decodeBody(t, rr, &cast)
	if cast.OptionKey != "yes" {
		t.Fatalf("expected option key yes, got %s", cast.OptionKey)
	}

	rr = doJSON(t, server, http.MethodPost, castPath, &delegateB, `{"option_id":"`+resolution.Options[1].OptionID+`"}`)
	if rr.Code != http.StatusConflict || !strings.Contains(rr.Body.String(), "already_voted") {
		t.Fatalf("expected 409 already_voted, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, castPath, &delegateNoTeam, `{"option_id":"`+resolution.Options[1].OptionID+`"}`)
	if rr.Code != http.StatusForbidden || !strings.Contains(rr.Body.String(), "team_required") {
		t.Fatalf("expected 403 team_required, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, castPath, &delegateNoTeam, `{"option_id":"missing"}`)
	if rr.Code == http.StatusCreated {
		t.Fatalf("expected cast with unknown option to fail, got %d", rr.Code)
	}
}

func TestCastRefusedForIneligibleTeamAndClosedResolution(t *testing.T) {
	server := newTestServer()
	resolution := createActiveResolution(t, server, `{"title":"Fund the observers","options":["Yes","No"],"status":"active","eligible_teams":["team-2"]}`)
	castPath := "/api/v1/resolutions/" + resolution.ResolutionID + "/cast"
	body := `{"option_id":"` + resolution.Options[0].OptionID + `"}`

	rr := doJSON(t, server, http.MethodPost, castPath, &delegateA, body)
	if rr.Code != http.StatusForbidden || !strings.Contains(rr.Body.String(), "team_not_eligible") {
		t.Fatalf("expected 403 team_not_eligible, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/api/v1/resolutions/"+resolution.ResolutionID+"/close", &assemblyAdmin, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected close 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	teamTwo := identity.Principal{UserID: "user-d", Role: "delegate", TeamID: "team-2", EventID: "event-1"}
	rr = doJSON(t, server, http.MethodPost, castPath, &teamTwo, body)
	if rr.Code != http.StatusForbidden || !strings.Contains(rr.Body.String(), "not_active") {
		t.Fatalf("expected 403 not_active, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestResultsHiddenFromDelegatesWithoutLiveResults(t *testing.T) {
	server := newTestServer()
	resolution := createActiveResolution(t, server, `{"title":"Ban single-use plastics","options":["Yes","No"],"status":"active"}`)
	resultsPath := "/api/v1/resolutions/" + resolution.ResolutionID + "/results"

	rr := doJSON(t, server, http.MethodGet, resultsPath, &delegateA, "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, server, http.MethodGet, resultsPath, &assemblyAdmin, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d body=%s", rr.Code, rr.Body.String())
	}
	var results ballothttp.ResultsResponse
	decodeBody(t, rr, &results)
	if len(results.Tallies) != 2 {
		t.Fatalf("expected two tallies, got %+v", results.Tallies)
	}
}

func TestCreateResolutionForbiddenForDelegates(t *testing.T) {
	server := newTestServer()
	rr := doJSON(t, server, http.MethodPost, "/api/v1/resolutions", &delegateA, `{"title":"Self-serving","options":["Yes","No"]}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestUnmappedAssemblyErrorHidesDetails(t *testing.T) {
	server := newTestServer()
	rr := httptest.NewRecorder()
	server.writeAssemblyDomainError(rr, errors.New("pq: connection reset"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "connection reset") {
		t.Fatalf("internal error text leaked: %s", rr.Body.String())
	}
}
