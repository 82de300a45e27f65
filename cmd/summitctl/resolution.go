package main

import (
	"fmt"
	"log/slog"

	postgresadapter "summit/contexts/assembly/ballot-engine/adapters/postgres"
	"summit/contexts/assembly/ballot-engine/application/commands"
	"summit/contexts/assembly/ballot-engine/domain/entities"

	"github.com/spf13/cobra"
)

type resolutionArguments struct {
	DSN string
}

var resolutionArgs resolutionArguments

var resolutionCmd = &cobra.Command{
	Use:   "resolution",
	Short: "Open or close resolutions as the system actor",
}

var resolutionOpenCmd = &cobra.Command{
	Use:   "open <resolution-id>",
	Short: "Move a draft or closed resolution to active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolutionTransitionRun(cmd, args[0], true)
	},
}

var resolutionCloseCmd = &cobra.Command{
	Use:   "close <resolution-id>",
	Short: "Close an active resolution so no more ballots are accepted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolutionTransitionRun(cmd, args[0], false)
	},
}

func init() {
	resolutionCmd.PersistentFlags().StringVarP(&resolutionArgs.DSN, "dsn", "d", "", "postgres dsn (defaults to POSTGRES_DSN)")
	resolutionCmd.AddCommand(resolutionOpenCmd)
	resolutionCmd.AddCommand(resolutionCloseCmd)
}

func resolutionTransitionRun(cmd *cobra.Command, resolutionID string, open bool) error {
	pg, err := connect(resolutionArgs.DSN)
	if err != nil {
		return err
	}
	defer pg.Close()

	logger := slog.Default()
	useCase := commands.ResolutionUseCase{
		Resolutions: postgresadapter.NewRepository(pg.DB, logger),
		Clock:       postgresadapter.SystemClock{},
		IDGen:       postgresadapter.UUIDGenerator{},
		Logger:      logger,
	}
	transition := commands.TransitionCommand{
		Actor:        entities.SystemActor(),
		ResolutionID: resolutionID,
	}

	var resolution entities.Resolution
	if open {
		resolution, err = useCase.OpenResolution(cmd.Context(), transition)
	} else {
		resolution, err = useCase.CloseResolution(cmd.Context(), transition)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", resolution.ResolutionID, resolution.Status)
	return nil
}
