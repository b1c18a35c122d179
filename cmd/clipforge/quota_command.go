package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQuotaCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show today's processing allowance",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.quotaStore()
			if err != nil {
				return err
			}
			state, err := store.State()
			if err != nil {
				return err
			}
			remaining, err := store.Remaining()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Plan:       %s\n", state.Plan)
			fmt.Fprintf(out, "Limit:      %d videos/day\n", state.DailyLimit)
			fmt.Fprintf(out, "Used today: %d\n", state.ProcessedToday)
			fmt.Fprintf(out, "Remaining:  %d\n", remaining)
			if state.LastResetDate != "" {
				fmt.Fprintf(out, "Last reset: %s\n", state.LastResetDate)
			}
			return nil
		},
	}
}
