package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"summit/internal/platform/config"
	"summit/internal/platform/identity"

	"github.com/spf13/cobra"
)

type tokenArguments struct {
	Secret string
	UserID string
	Role   string
	Event  string
	Team   string
	TTL    time.Duration
}

var tokenArgs tokenArguments

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Session token helpers",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a bearer token for a participant",
	Args:  cobra.NoArgs,
	RunE:  tokenIssueRun,
}

func init() {
	flags := tokenIssueCmd.Flags()
	flags.StringVarP(&tokenArgs.Secret, "secret", "s", "", "signing secret (defaults to SESSION_SECRET)")
	flags.StringVarP(&tokenArgs.UserID, "user", "u", "", "user id")
	flags.StringVarP(&tokenArgs.Role, "role", "r", "", "participant role, e.g. delegate or journalist")
	flags.StringVarP(&tokenArgs.Event, "event", "e", "", "event id")
	flags.StringVarP(&tokenArgs.Team, "team", "t", "", "team id")
	flags.DurationVar(&tokenArgs.TTL, "ttl", identity.DefaultTTL, "token lifetime")
	_ = tokenIssueCmd.MarkFlagRequired("user")
	_ = tokenIssueCmd.MarkFlagRequired("role")
	tokenCmd.AddCommand(tokenIssueCmd)
}

func tokenIssueRun(cmd *cobra.Command, _ []string) error {
	secret := tokenArgs.Secret
	if strings.TrimSpace(secret) == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		secret = cfg.SessionSecret
	}
	if strings.TrimSpace(secret) == "" {
		return errors.New("signing secret is required: pass --secret or set SESSION_SECRET")
	}

	sessions, err := identity.NewSessions(secret, tokenArgs.TTL)
	if err != nil {
		return err
	}
	token, err := sessions.Issue(identity.Principal{
		UserID:  tokenArgs.UserID,
		Role:    tokenArgs.Role,
		EventID: tokenArgs.Event,
		TeamID:  tokenArgs.Team,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
