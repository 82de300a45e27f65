package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"summit/internal/platform/identity"

	"github.com/spf13/cobra"
)

const testSecret = "summitctl-test-secret-0123456789abcdef"

func TestTokenIssueProducesVerifiableToken(t *testing.T) {
	tokenArgs = tokenArguments{
		Secret: testSecret,
		UserID: "journalist-1",
		Role:   "Journalist",
		Event:  "event-1",
		TTL:    time.Hour,
	}
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	if err := tokenIssueRun(cmd, nil); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	sessions, err := identity.NewSessions(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	principal, err := sessions.Verify(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if principal.UserID != "journalist-1" || principal.Role != "journalist" || principal.EventID != "event-1" {
		t.Fatalf("unexpected principal %+v", principal)
	}
}

func TestTokenIssueRejectsWeakSecret(t *testing.T) {
	tokenArgs = tokenArguments{Secret: "short", UserID: "u", Role: "delegate", TTL: time.Hour}
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	if err := tokenIssueRun(cmd, nil); err == nil {
		t.Fatal("expected weak secret to be refused")
	}
}
