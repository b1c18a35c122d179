package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/history"
)

func newHistoryCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List past batch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withHistory(func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
					return nil
				}

				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					presetName := run.PresetName
					if presetName == "" {
						presetName = "-"
					}
					outcome := ""
					if run.Cancelled {
						outcome = "cancelled"
					}
					rows = append(rows, []string{
						run.ID[:8],
						formatTimestamp(run.StartedAt),
						presetName,
						fmt.Sprintf("%d", run.Total),
						fmt.Sprintf("%d", run.Succeeded),
						fmt.Sprintf("%d", run.Failed),
						fmt.Sprintf("%d", run.Skipped),
						fmt.Sprintf("%.1fs", run.DurationSec),
						outcome,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Run", "Started", "Preset", "Total", "OK", "Failed", "Skipped", "Duration", ""},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	historyCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	historyCmd.AddCommand(newHistoryShowCommand(cmdCtx))
	return historyCmd
}

func newHistoryShowCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show per-job results for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withHistory(func(store *history.Store) error {
				runID, err := resolveRunID(cmd, store, args[0])
				if err != nil {
					return err
				}
				results, err := store.RunResults(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No results recorded for run %s\n", args[0])
					return nil
				}

				rows := make([][]string, 0, len(results))
				for _, result := range results {
					tier := result.Tier
					if tier == "" {
						tier = "-"
					}
					rows = append(rows, []string{
						fmt.Sprintf("%d", result.Position+1),
						truncateText(result.Source, 48),
						result.Status,
						tier,
						fmt.Sprintf("%.1fs", result.DurationSec),
						truncateText(result.Message, 40),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"#", "Source", "Status", "Tier", "Duration", "Detail"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

// resolveRunID accepts a full run ID or the 8-character prefix shown by the
// listing.
func resolveRunID(cmd *cobra.Command, store *history.Store, ref string) (string, error) {
	if len(ref) >= 36 {
		return ref, nil
	}
	runs, err := store.ListRuns(cmd.Context(), 1000)
	if err != nil {
		return "", err
	}
	for _, run := range runs {
		if len(run.ID) >= len(ref) && run.ID[:len(ref)] == ref {
			return run.ID, nil
		}
	}
	return "", fmt.Errorf("no run matches %q", ref)
}
