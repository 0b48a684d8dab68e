package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qubesadm/internal/qubes"
)

type vmListEntry struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Class string `json:"class"`
	Label string `json:"label"`
}

func newLsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var raw bool

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List qubes known to the daemon",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			entries, err := buildVMListEntries(app)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, entries)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			format := resolveOutputFormat(cfg.Output.Format)
			if raw {
				format = "plain"
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Name, e.State, e.Class, e.Label})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRows(format, []string{"NAME", "STATE", "CLASS", "LABEL"}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "Force plain space-separated output")

	return cmd
}

// buildVMListEntries resolves the label of every cached qube with one
// property round trip each. A qube removed between the cached list and
// its label query is dropped from the listing.
func buildVMListEntries(app *qubes.App) ([]vmListEntry, error) {
	records, err := app.Domains.Records()
	if err != nil {
		return nil, err
	}
	entries := make([]vmListEntry, 0, len(records))
	for _, rec := range records {
		vm, err := app.Domains.Get(rec.Name)
		if err != nil {
			return nil, err
		}
		label, err := vm.GetProperty("label")
		if err != nil {
			if qubes.IsServerKind(err, qubes.KindNoSuchVM) {
				continue
			}
			return nil, err
		}
		entries = append(entries, vmListEntry{
			Name:  rec.Name,
			State: rec.Props["state"],
			Class: rec.Props["class"],
			Label: label.Value,
		})
	}
	return entries, nil
}
