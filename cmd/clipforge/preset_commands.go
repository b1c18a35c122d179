package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/preset"
)

func newPresetCommand(cmdCtx *commandContext) *cobra.Command {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage stored presets",
	}

	presetCmd.AddCommand(newPresetListCommand(cmdCtx))
	presetCmd.AddCommand(newPresetShowCommand(cmdCtx))
	presetCmd.AddCommand(newPresetDeleteCommand(cmdCtx))
	presetCmd.AddCommand(newPresetDuplicateCommand(cmdCtx))
	presetCmd.AddCommand(newPresetMoveCommand(cmdCtx))
	presetCmd.AddCommand(newPresetExportCommand(cmdCtx))
	presetCmd.AddCommand(newPresetImportCommand(cmdCtx))

	return presetCmd
}

func newPresetListCommand(cmdCtx *commandContext) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.presetStore()
			if err != nil {
				return err
			}
			summaries, err := store.List(namespace)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No presets found.")
				return nil
			}

			sort.Slice(summaries, func(i, j int) bool {
				if summaries[i].Namespace != summaries[j].Namespace {
					return summaries[i].Namespace < summaries[j].Namespace
				}
				return summaries[i].Name < summaries[j].Name
			})

			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				rows = append(rows, []string{
					s.Namespace,
					s.Name,
					s.Category,
					fmt.Sprintf("%d", s.OperationCount),
					truncateText(s.Description, 48),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Namespace", "Name", "Category", "Ops", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Limit to one namespace: system, user, or imported")
	return cmd
}

func newPresetShowCommand(cmdCtx *commandContext) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a preset's operations and export settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.presetStore()
			if err != nil {
				return err
			}
			p, err := loadFromNamespace(store, args[0], namespace)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:        %s\n", p.Name)
			if p.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", p.Description)
			}
			fmt.Fprintf(out, "Author:      %s\n", p.Author)
			fmt.Fprintf(out, "Category:    %s\n", p.Category)
			fmt.Fprintf(out, "Schema:      %s\n", p.SchemaVersion)
			if len(p.Tags) > 0 {
				fmt.Fprintf(out, "Tags:        %s\n", strings.Join(p.Tags, ", "))
			}
			fmt.Fprintf(out, "Modified:    %s\n", formatTimestamp(p.ModifiedAt))

			if len(p.Operations) == 0 {
				fmt.Fprintln(out, "\nNo operations; this preset copies or converts only.")
			} else {
				rows := make([][]string, 0, len(p.Operations))
				for i, op := range p.Operations {
					rows = append(rows, []string{
						fmt.Sprintf("%d", i+1),
						op.Name,
						formatParams(op.Params),
					})
				}
				fmt.Fprintln(out, "\n"+renderTable(
					[]string{"#", "Operation", "Parameters"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
			}

			es := p.ExportSettings
			fmt.Fprintf(out, "Export:      %s %s", es.Quality, es.Format)
			if es.Resolution != "" {
				fmt.Fprintf(out, " %s", es.Resolution)
			}
			if es.FPS > 0 {
				fmt.Fprintf(out, " %dfps", es.FPS)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace to load from (searches all when empty)")
	return cmd
}

func newPresetDeleteCommand(cmdCtx *commandContext) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a user or imported preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.presetStore()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0], namespace); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted preset %s from %s\n", args[0], namespace)
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", preset.NamespaceUser, "Namespace to delete from")
	return cmd
}

func newPresetDuplicateCommand(cmdCtx *commandContext) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "duplicate <name> <new-name>",
		Short: "Copy a preset under a new name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.presetStore()
			if err != nil {
				return err
			}
			if err := store.Duplicate(args[0], namespace, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Duplicated %s as %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", preset.NamespaceUser, "Namespace holding the source preset")
	return cmd
}

func newPresetMoveCommand(cmdCtx *commandContext) *cobra.Command {
	var fromNS string

	cmd := &cobra.Command{
		Use:   "move <name> <to-namespace>",
		Short: "Move a preset between the user and imported namespaces",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.presetStore()
			if err != nil {
				return err
			}
			if err := store.Move(args[0], fromNS, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s from %s to %s\n", args[0], fromNS, args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&fromNS, "from", "f", preset.NamespaceImported, "Namespace the preset currently lives in")
	return cmd
}

func newPresetExportCommand(cmdCtx *commandContext) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "export <name> <file>",
		Short: "Write a preset to a standalone JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.presetStore()
			if err != nil {
				return err
			}
			if err := store.ExportToFile(args[0], namespace, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", preset.NamespaceUser, "Namespace holding the preset")
	return cmd
}

func newPresetImportCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a preset file into the imported namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.presetStore()
			if err != nil {
				return err
			}
			name, err := store.ImportFromFile(args[0], preset.NamespaceImported)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported as %s\n", name)
			return nil
		},
	}
	return cmd
}

func loadFromNamespace(store *preset.Store, name, namespace string) (*preset.Preset, error) {
	if strings.TrimSpace(namespace) != "" {
		return store.Load(name, namespace)
	}
	return resolvePreset(store, name)
}

func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, params[key]))
	}
	return strings.Join(parts, " ")
}
