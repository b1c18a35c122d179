package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/preflight"
)

func newPreflightCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check binaries, directories, and resources before a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			checks := preflight.RunAll(cfg)
			for _, check := range checks {
				kind := statusOK
				if !check.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}
			if !preflight.AllPassed(checks) {
				return fmt.Errorf("preflight failed: %s", preflight.Failures(checks))
			}
			fmt.Fprintln(out, "\nAll checks passed.")
			return nil
		},
	}
}
