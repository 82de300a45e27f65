package ballotengine_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ballotengine "summit/contexts/assembly/ballot-engine"
	"summit/contexts/assembly/ballot-engine/application/commands"
	"summit/contexts/assembly/ballot-engine/application/workers"
	"summit/contexts/assembly/ballot-engine/domain/entities"
	domainerrors "summit/contexts/assembly/ballot-engine/domain/errors"
	"summit/contexts/assembly/ballot-engine/ports"
	httptransport "summit/contexts/assembly/ballot-engine/transport/http"
)

const testEventID = "event-1"

var adminCaller = httptransport.Caller{UserID: "admin-1", Role: "admin", EventID: testEventID}

func delegate(userID string, teamID string) httptransport.Caller {
	return httptransport.Caller{UserID: userID, Role: "delegate", TeamID: teamID, EventID: testEventID}
}

func createResolution(
	t *testing.T,
	module ballotengine.Module,
	req httptransport.CreateResolutionRequest,
) httptransport.ResolutionResponse {
	t.Helper()
	if len(req.Options) == 0 {
		req.Options = []string{"Yes", "No"}
	}
	if req.Title == "" {
		req.Title = "Adopt the climate accord"
	}
	resolution, err := module.Handler.CreateResolutionHandler(context.Background(), adminCaller, req)
	if err != nil {
		t.Fatalf("create resolution failed: %v", err)
	}
	return resolution
}

func TestCastPerDelegationConcurrentTeamMembers(t *testing.T) {
	module := ballotengine.NewInMemoryModule(nil, nil)
	resolution := createResolution(t, module, httptransport.CreateResolutionRequest{
		Status:     "active",
		BallotMode: "per_delegation",
	})
	if len(resolution.Options) != 2 {
		t.Fatalf("expected two options, got %d", len(resolution.Options))
	}

	callers := []httptransport.Caller{delegate("user-a", "team-1"), delegate("user-b", "team-1")}
	var wg sync.WaitGroup
	var succeeded atomic.Int32
	var duplicates atomic.Int32
	for i, caller := range callers {
		wg.Add(1)
		go func(caller httptransport.Caller, optionID string) {
			defer wg.Done()
			_, err := module.Handler.CastBallotHandler(context.Background(), caller, resolution.ResolutionID, httptransport.CastBallotRequest{
				OptionID: optionID,
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domainerrors.ErrAlreadyVoted):
				duplicates.Add(1)
			default:
				t.Errorf("unexpected cast error: %v", err)
			}
		}(caller, resolution.Options[i].OptionID)
	}
	wg.Wait()

	if succeeded.Load() != 1 || duplicates.Load() != 1 {
		t.Fatalf("expected one success and one already voted, got %d and %d", succeeded.Load(), duplicates.Load())
	}
	count, err := module.Store.CountBallots(context.Background(), resolution.ResolutionID)
	if err != nil {
		t.Fatalf("count ballots failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one ballot for the team, got %d", count)
	}
}

func TestCastConcurrentSamePersonRecordsOneBallot(t *testing.T) {
	module := ballotengine.NewInMemoryModule(nil, nil)
	resolution := createResolution(t, module, httptransport.CreateResolutionRequest{
		Status:     "active",
		BallotMode: "per_person",
	})

	const attempts = 16
	var wg sync.WaitGroup
	var succeeded atomic.Int32
	var duplicates atomic.Int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			option := resolution.Options[i%len(resolution.Options)]
			_, err := module.Handler.CastBallotHandler(context.Background(), delegate("user-a", ""), resolution.ResolutionID, httptransport.CastBallotRequest{
				OptionID: option.OptionID,
			})
			if err == nil {
				succeeded.Add(1)
			} else if errors.Is(err, domainerrors.ErrAlreadyVoted) {
				duplicates.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if succeeded.Load() != 1 || duplicates.Load() != attempts-1 {
		t.Fatalf("expected 1 success and %d duplicates, got %d and %d", attempts-1, succeeded.Load(), duplicates.Load())
	}
	if orphans := module.Store.BallotsWithoutCast(); len(orphans) != 0 {
		t.Fatalf("expected no orphan ballots or casts, got %v", orphans)
	}
}

func TestCastRejectedAfterTeamRemovedFromEligibility(t *testing.T) {
	module := ballotengine.NewInMemoryModule(nil, nil)
	resolution := createResolution(t, module, httptransport.CreateResolutionRequest{
		Status:        "active",
		BallotMode:    "per_delegation",
		EligibleTeams: []string{"team-1", "team-2"},
	})

	listed, err := module.Handler.ListResolutionsHandler(context.Background(), delegate("user-b", "team-2"))
	if err != nil {
		t.Fatalf("list resolutions failed: %v", err)
	}
	if len(listed.Items) != 1 || !listed.Items[0].IsEligible {
		t.Fatalf("expected resolution listed as eligible, got %+v", listed.Items)
	}

	if _, err := module.Handler.UpdateEligibilityHandler(context.Background(), adminCaller, resolution.ResolutionID, httptransport.UpdateEligibilityRequest{
		EligibleTeams: []string{"team-1"},
	}); err != nil {
		t.Fatalf("update eligibility failed: %v", err)
	}

	_, err = module.Handler.CastBallotHandler(context.Background(), delegate("user-b", "team-2"), resolution.ResolutionID, httptransport.CastBallotRequest{
		OptionID: resolution.Options[0].OptionID,
	})
	if !errors.Is(err, domainerrors.ErrTeamNotEligible) || !errors.Is(err, domainerrors.ErrNotEligible) {
		t.Fatalf("expected team not eligible, got %v", err)
	}
	if orphans := module.Store.BallotsWithoutCast(); len(orphans) != 0 {
		t.Fatalf("expected no partial writes, got %v", orphans)
	}
}

func TestCastPreconditionsReportDistinctReasons(t *testing.T) {
	module := ballotengine.NewInMemoryModule(nil, nil)
	draft := createResolution(t, module, httptransport.CreateResolutionRequest{BallotMode: "per_person"})
	active := createResolution(t, module, httptransport.CreateResolutionRequest{
		Status:        "active",
		BallotMode:    "per_delegation",
		EligibleRoles: []string{"delegate"},
	})

	cases := []struct {
		name         string
		caller       httptransport.Caller
		resolutionID string
		optionID     string
		want         error
	}{
		{"missing identity", httptransport.Caller{}, active.ResolutionID, active.Options[0].OptionID, domainerrors.ErrUnauthenticated},
		{"unknown resolution", delegate("user-a", "team-1"), "missing", "x", domainerrors.ErrResolutionNotFound},
		{"other event", httptransport.Caller{UserID: "user-z", Role: "delegate", TeamID: "team-1", EventID: "event-2"}, active.ResolutionID, active.Options[0].OptionID, domainerrors.ErrResolutionNotFound},
		{"draft", delegate("user-a", "team-1"), draft.ResolutionID, draft.Options[0].OptionID, domainerrors.ErrResolutionNotActive},
		{"foreign option", delegate("user-a", "team-1"), active.ResolutionID, draft.Options[0].OptionID, domainerrors.ErrInvalidOption},
		{"role", httptransport.Caller{UserID: "press-1", Role: "journalist", TeamID: "team-1", EventID: testEventID}, active.ResolutionID, active.Options[0].OptionID, domainerrors.ErrRoleNotEligible},
		{"no delegation", delegate("user-a", ""), active.ResolutionID, active.Options[0].OptionID, domainerrors.ErrTeamRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := module.Handler.CastBallotHandler(context.Background(), tc.caller, tc.resolutionID, httptransport.CastBallotRequest{
				OptionID: tc.optionID,
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestResultsVisibilityAndRollcall(t *testing.T) {
	module := ballotengine.NewInMemoryModule(nil, nil)
	for _, member := range []entities.Voter{
		{UserID: "user-a", Role: entities.RoleDelegate, TeamID: "team-1", EventID: testEventID},
		{UserID: "user-b", Role: entities.RoleDelegate, TeamID: "team-2", EventID: testEventID},
		{UserID: "user-c", Role: entities.RoleDelegate, TeamID: "team-2", EventID: testEventID},
		{UserID: "user-d", Role: entities.RoleDelegate, TeamID: "team-3", EventID: testEventID},
	} {
		module.Store.SetMember(member)
	}
	public := createResolution(t, module, httptransport.CreateResolutionRequest{Status: "active"})
	secret := createResolution(t, module, httptransport.CreateResolutionRequest{Status: "active", Visibility: "secret"})

	for _, resolution := range []httptransport.ResolutionResponse{public, secret} {
		for _, caller := range []httptransport.Caller{delegate("user-a", "team-1"), delegate("user-b", "team-2")} {
			if _, err := module.Handler.CastBallotHandler(context.Background(), caller, resolution.ResolutionID, httptransport.CastBallotRequest{
				OptionID: resolution.Options[0].OptionID,
			}); err != nil {
				t.Fatalf("cast failed: %v", err)
			}
		}
	}

	if _, err := module.Handler.ResultsHandler(context.Background(), delegate("user-a", "team-1"), public.ResolutionID); !errors.Is(err, domainerrors.ErrResultsHidden) {
		t.Fatalf("expected results hidden for delegate, got %v", err)
	}

	results, err := module.Handler.ResultsHandler(context.Background(), adminCaller, public.ResolutionID)
	if err != nil {
		t.Fatalf("public results failed: %v", err)
	}
	if results.TotalBallots != 2 || results.Tallies[0].Count != 2 || results.Tallies[1].Count != 0 {
		t.Fatalf("unexpected public tallies: %+v", results)
	}
	if results.EligibleCount != 3 {
		t.Fatalf("expected three eligible delegations, got %d", results.EligibleCount)
	}
	if !results.QuorumReached {
		t.Fatalf("expected quorum reached at %.2f%% turnout", results.TurnoutPercent)
	}
	if len(results.Rollcalls) != 2 {
		t.Fatalf("expected public rollcall, got %+v", results.Rollcalls)
	}

	secretResults, err := module.Handler.ResultsHandler(context.Background(), adminCaller, secret.ResolutionID)
	if err != nil {
		t.Fatalf("secret results failed: %v", err)
	}
	if secretResults.TotalBallots != 2 || len(secretResults.Rollcalls) != 0 {
		t.Fatalf("expected secret tallies without rollcall, got %+v", secretResults)
	}

	detail, err := module.Handler.GetResolutionHandler(context.Background(), delegate("user-c", "team-2"), public.ResolutionID)
	if err != nil {
		t.Fatalf("get resolution failed: %v", err)
	}
	if !detail.HasVoted || detail.BallotCount != 2 || detail.Results != nil {
		t.Fatalf("expected delegation marked voted without results, got %+v", detail)
	}
}

func TestResolutionLifecycleAndOptionLock(t *testing.T) {
	module := ballotengine.NewInMemoryModule(nil, nil)
	leader := httptransport.Caller{UserID: "leader-1", Role: "leader", TeamID: "team-1", EventID: testEventID}
	draft, err := module.Handler.CreateResolutionHandler(context.Background(), leader, httptransport.CreateResolutionRequest{
		Title:   "Ceasefire",
		Options: []string{"Yes", "No", "Abstain"},
	})
	if err != nil {
		t.Fatalf("leader create failed: %v", err)
	}
	if draft.Status != "draft" || draft.Options[2].OptionKey != "abstain" {
		t.Fatalf("unexpected draft: %+v", draft)
	}

	hidden, err := module.Handler.ListResolutionsHandler(context.Background(), delegate("user-a", "team-1"))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(hidden.Items) != 0 {
		t.Fatalf("expected draft hidden from delegates, got %d items", len(hidden.Items))
	}

	if _, err := module.Handler.CreateResolutionHandler(context.Background(), delegate("user-a", "team-1"), httptransport.CreateResolutionRequest{
		Title:   "Nope",
		Options: []string{"Yes", "No"},
	}); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected delegate create forbidden, got %v", err)
	}

	replaced, err := module.Handler.ReplaceOptionsHandler(context.Background(), leader, draft.ResolutionID, httptransport.ReplaceOptionsRequest{
		Options: []string{"For", "Against"},
	})
	if err != nil {
		t.Fatalf("replace options failed: %v", err)
	}
	if _, err := module.Handler.CloseResolutionHandler(context.Background(), leader, draft.ResolutionID); !errors.Is(err, domainerrors.ErrInvalidTransition) {
		t.Fatalf("expected draft close refused, got %v", err)
	}
	opened, err := module.Handler.OpenResolutionHandler(context.Background(), leader, draft.ResolutionID)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if opened.Status != "active" {
		t.Fatalf("expected active, got %s", opened.Status)
	}

	if _, err := module.Handler.CastBallotHandler(context.Background(), delegate("user-a", "team-1"), draft.ResolutionID, httptransport.CastBallotRequest{
		OptionID: replaced.Options[0].OptionID,
	}); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if _, err := module.Handler.ReplaceOptionsHandler(context.Background(), leader, draft.ResolutionID, httptransport.ReplaceOptionsRequest{
		Options: []string{"A", "B"},
	}); !errors.Is(err, domainerrors.ErrOptionsLocked) {
		t.Fatalf("expected options locked, got %v", err)
	}

	closed, err := module.Handler.CloseResolutionHandler(context.Background(), leader, draft.ResolutionID)
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if closed.Status != "closed" || closed.ClosedAt == nil {
		t.Fatalf("expected closed with timestamp, got %+v", closed)
	}
	if _, err := module.Handler.CastBallotHandler(context.Background(), delegate("user-b", "team-2"), draft.ResolutionID, httptransport.CastBallotRequest{
		OptionID: replaced.Options[1].OptionID,
	}); !errors.Is(err, domainerrors.ErrResolutionNotActive) {
		t.Fatalf("expected closed resolution to refuse ballots, got %v", err)
	}

	want := []string{commands.EventResolutionCreated, commands.EventResolutionOpened, commands.EventResolutionClosed}
	got := module.Store.OutboxEventTypes()
	if len(got) != len(want) {
		t.Fatalf("expected outbox %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected outbox %v, got %v", want, got)
		}
	}
}

type recordingPublisher struct {
	events []ports.EventEnvelope
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event ports.EventEnvelope) error {
	p.events = append(p.events, event)
	return nil
}

type recordingSink struct {
	notifications []ports.Notification
}

func (s *recordingSink) Notify(_ context.Context, notification ports.Notification) error {
	s.notifications = append(s.notifications, notification)
	return nil
}

func TestOutboxRelayFeedsNotificationDispatcher(t *testing.T) {
	module := ballotengine.NewInMemoryModule(nil, nil)
	module.Store.SetClock(func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) })
	module.Store.SetMember(entities.Voter{UserID: "admin-1", Role: entities.RoleAdmin, EventID: testEventID})
	module.Store.SetMember(entities.Voter{UserID: "user-a", Role: entities.RoleDelegate, TeamID: "team-1", EventID: testEventID})
	module.Store.SetMember(entities.Voter{UserID: "press-1", Role: entities.RoleJournalist, EventID: testEventID})

	createResolution(t, module, httptransport.CreateResolutionRequest{
		Status:        "active",
		EligibleRoles: []string{"delegate"},
	})

	publisher := &recordingPublisher{}
	relay := workers.OutboxRelay{Outbox: module.Store, Publisher: publisher, Clock: module.Store}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(publisher.events))
	}
	pending, _ := module.Store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("expected outbox drained, got %d pending", len(pending))
	}

	var data commands.ResolutionEventData
	if err := json.Unmarshal(publisher.events[0].Data, &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if data.CreatedByID != "admin-1" {
		t.Fatalf("unexpected payload: %+v", data)
	}

	sink := &recordingSink{}
	dispatcher := workers.NotificationDispatcher{Directory: module.Store, Sink: sink}
	if err := dispatcher.Dispatch(context.Background(), publisher.events[0]); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(sink.notifications) != 1 {
		t.Fatalf("expected one notification, got %d", len(sink.notifications))
	}
	notification := sink.notifications[0]
	if notification.Kind != "vote_opened" || notification.Priority != "high" {
		t.Fatalf("unexpected notification: %+v", notification)
	}
	if len(notification.RecipientIDs) != 1 || notification.RecipientIDs[0] != "user-a" {
		t.Fatalf("expected only the eligible delegate notified, got %v", notification.RecipientIDs)
	}
}
