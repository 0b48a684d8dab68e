package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"qubesadm/internal/qubes"
)

// propertyScope is the slice of the App a prefs invocation operates
// on: either the global scope or one qube.
type propertyScope interface {
	GetProperty(name string) (qubes.Property, error)
	SetProperty(name, value string) error
	ResetProperty(name string) error
	ListProperties() ([]string, error)
}

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	var global bool
	var reset bool

	cmd := &cobra.Command{
		Use:   "prefs [VMNAME] [PROPERTY [VALUE]]",
		Short: "Read or change properties of a qube or the global scope",
		Long: `Without PROPERTY, lists all properties and their values.
With PROPERTY alone, prints its value. With PROPERTY and VALUE, sets it.
Use --global to operate on global (dom0) properties; VMNAME is then omitted.`,
		Args: cobra.RangeArgs(0, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}

			var scope propertyScope = app
			if !global {
				if len(args) == 0 {
					return errors.New("VMNAME is required unless --global is given")
				}
				vm, err := app.Domains.Get(args[0])
				if err != nil {
					return err
				}
				scope = vm
				args = args[1:]
			}

			switch len(args) {
			case 0:
				if reset {
					return errors.New("--reset requires a PROPERTY")
				}
				return listPrefs(cmd, ctx, scope)
			case 1:
				if reset {
					return scope.ResetProperty(args[0])
				}
				prop, err := scope.GetProperty(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), prop.Value)
				return nil
			case 2:
				if reset {
					return errors.New("--reset does not take a VALUE")
				}
				return scope.SetProperty(args[0], args[1])
			default:
				return errors.New("too many arguments")
			}
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Operate on global (dom0) properties")
	cmd.Flags().BoolVar(&reset, "reset", false, "Reset PROPERTY to its inherited default")

	return cmd
}

func listPrefs(cmd *cobra.Command, ctx *commandContext, scope propertyScope) error {
	names, err := scope.ListProperties()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		prop, err := scope.GetProperty(name)
		if err != nil {
			return err
		}
		rows = append(rows, []string{name, yesNo(prop.IsDefault), prop.Value})
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	format := resolveOutputFormat(cfg.Output.Format)
	fmt.Fprint(cmd.OutOrStdout(), renderRows(format, []string{"PROPERTY", "DEFAULT", "VALUE"}, rows))
	return nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
