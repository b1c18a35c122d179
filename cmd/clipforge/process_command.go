package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/backend/ffmpeg"
	"clipforge/internal/batch"
	"clipforge/internal/engine"
	"clipforge/internal/history"
	"clipforge/internal/preflight"
	"clipforge/internal/preset"
	"clipforge/internal/registry"
	"clipforge/internal/services"
)

func newProcessCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		presetFlag    string
		outputDir     string
		inPlace       bool
		dual          bool
		defaultEdit   bool
		deleteSource  bool
		skipProcessed bool
		format        string
		quality       string
	)

	cmd := &cobra.Command{
		Use:   "process [files...]",
		Short: "Run a batch of videos through a preset or the default edit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
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

			if format == "" {
				format = cfg.Processing.OutputFormat
			}
			if quality == "" {
				quality = cfg.Processing.Quality
			}
			if outputDir == "" {
				outputDir = cfg.Paths.OutputDir
			}

			jobs, err := buildJobs(args, outputDir, format, inPlace, dual)
			if err != nil {
				return err
			}

			var selected *preset.Preset
			if strings.TrimSpace(presetFlag) != "" {
				store, err := cmdCtx.presetStore()
				if err != nil {
					return err
				}
				selected, err = resolvePreset(store, presetFlag)
				if err != nil {
					return err
				}
				if err := selected.Validate(registry.New()); err != nil {
					return err
				}
			}

			client, err := ffmpeg.New(cfg, logger)
			if err != nil {
				return err
			}
			trackingStore, err := cmdCtx.trackingStore()
			if err != nil {
				return err
			}
			quotaStore, err := cmdCtx.quotaStore()
			if err != nil {
				return err
			}
			historyStore, err := history.Open(cfg.Paths.StateDir)
			if err != nil {
				return err
			}
			defer historyStore.Close()

			eng := engine.New(client, registry.New(), logger)
			runner := batch.New(eng, client, trackingStore, quotaStore, logger,
				batch.WithRunLock(filepath.Join(cfg.Paths.StateDir, "run.lock")),
				batch.WithHistory(historyStore))

			settings := batch.Settings{
				Preset:            selected,
				ApplyDefaultEdit:  defaultEdit,
				Quality:           quality,
				DeleteSource:      deleteSource || cfg.Processing.DeleteSource,
				SkipProcessed:     skipProcessed || cfg.Processing.SkipProcessed,
				PausePollInterval: time.Duration(cfg.Processing.PausePollInterval) * time.Second,
				DeleteRetry: batch.RetryPolicy{
					Attempts: cfg.Processing.DeleteRetryAttempts,
					Delay:    time.Duration(cfg.Processing.DeleteRetryDelay) * time.Second,
				},
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			results, summaries, err := runner.Start(ctx, jobs, settings)
			if err != nil {
				return err
			}

			for result := range results {
				kind := statusOK
				message := string(result.Tier)
				switch result.Status {
				case batch.StatusFailed:
					kind = statusError
					message = result.Message
				case batch.StatusSkipped:
					kind = statusInfo
					message = result.Message
				case batch.StatusCancelled:
					kind = statusWarn
					message = result.Message
				}
				label := filepath.Base(result.Job.Source)
				fmt.Fprintln(out, renderStatusLine(label, kind, fmt.Sprintf("%s (%s)", message, formatDuration(result.Duration)), colorize))
			}
			summary := <-summaries

			fmt.Fprintf(out, "\nProcessed %d: %d succeeded, %d failed, %d skipped, %d cancelled (total %s, avg %s)\n",
				summary.Total, summary.Succeeded, summary.Failed, summary.Skipped, summary.Cancelled,
				formatDuration(summary.TotalDuration), formatDuration(summary.AverageDuration))
			if summary.WasCancelled {
				fmt.Fprintln(out, "Run cancelled; remaining jobs were not started.")
			}
			if summary.Err != nil {
				return fmt.Errorf("run aborted: %w", summary.Err)
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d jobs failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&presetFlag, "preset", "p", "", "Preset to apply, as name or namespace/name")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Destination directory (defaults to the configured output_dir)")
	cmd.Flags().BoolVar(&inPlace, "in-place", false, "Replace each source file with its edited result")
	cmd.Flags().BoolVar(&dual, "dual", false, "Treat arguments as primary/secondary pairs for dual-video presets")
	cmd.Flags().BoolVar(&defaultEdit, "default-edit", false, "Apply the built-in edit pipeline when no preset is given")
	cmd.Flags().BoolVar(&deleteSource, "delete-source", false, "Delete source files after successful processing")
	cmd.Flags().BoolVar(&skipProcessed, "skip-processed", false, "Skip folders already marked completed")
	cmd.Flags().StringVar(&format, "format", "", "Output container format (defaults to the configured output_format)")
	cmd.Flags().StringVar(&quality, "quality", "", "Encode quality: low, medium, or high")

	return cmd
}

// buildJobs maps the positional arguments onto jobs. With --dual the
// arguments are consumed two at a time as primary/secondary pairs.
func buildJobs(args []string, outputDir, format string, inPlace, dual bool) ([]batch.Job, error) {
	if dual && len(args)%2 != 0 {
		return nil, fmt.Errorf("--dual needs an even number of files, got %d", len(args))
	}
	if inPlace && dual {
		return nil, fmt.Errorf("--in-place and --dual cannot be combined")
	}

	step := 1
	if dual {
		step = 2
	}
	jobs := make([]batch.Job, 0, len(args)/step)
	for i := 0; i < len(args); i += step {
		source, err := filepath.Abs(args[i])
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", args[i], err)
		}
		if _, err := os.Stat(source); err != nil {
			return nil, fmt.Errorf("input %s: %w", args[i], err)
		}

		job := batch.Job{Source: source}
		if dual {
			secondary, err := filepath.Abs(args[i+1])
			if err != nil {
				return nil, fmt.Errorf("resolve %q: %w", args[i+1], err)
			}
			if _, err := os.Stat(secondary); err != nil {
				return nil, fmt.Errorf("input %s: %w", args[i+1], err)
			}
			job.IsDualVideo = true
			job.SecondaryPath = secondary
		}

		if inPlace {
			job.Destination = source
		} else {
			stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
			job.Destination = filepath.Join(outputDir, stem+"."+strings.TrimPrefix(format, "."))
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// resolvePreset loads "namespace/name" directly; a bare name searches user,
// imported, then system presets.
func resolvePreset(store *preset.Store, ref string) (*preset.Preset, error) {
	ref = strings.TrimSpace(ref)
	if ns, name, ok := strings.Cut(ref, "/"); ok {
		return store.Load(name, ns)
	}
	for _, ns := range []string{preset.NamespaceUser, preset.NamespaceImported, preset.NamespaceSystem} {
		p, err := store.Load(ref, ns)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, services.ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("preset %q not found in any namespace", ref)
}
