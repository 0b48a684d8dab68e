package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"qubesadm/internal/devices"
	"qubesadm/internal/qubes"
)

func newDeviceCommand(ctx *commandContext) *cobra.Command {
	var listClasses bool

	cmd := &cobra.Command{
		Use:   "device",
		Short: "Manage devices exposed to and used by qubes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listClasses {
				app, err := ctx.ensureApp()
				if err != nil {
					return err
				}
				classes, err := devices.ListClasses(app)
				if err != nil {
					return err
				}
				for _, class := range classes {
					fmt.Fprintln(cmd.OutOrStdout(), class)
				}
				return nil
			}
			return cmd.Help()
		},
	}

	cmd.Flags().BoolVar(&listClasses, "list-classes", false, "List device classes the daemon knows about")

	cmd.AddCommand(newDeviceListCommand(ctx))
	cmd.AddCommand(newDeviceAttachCommand(ctx))
	cmd.AddCommand(newDeviceDetachCommand(ctx))
	cmd.AddCommand(newDeviceAssignCommand(ctx))
	cmd.AddCommand(newDeviceUnassignCommand(ctx))
	cmd.AddCommand(newDeviceInfoCommand(ctx))

	return cmd
}

func newDeviceListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "list CLASS [VMNAME...]",
		Aliases: []string{"ls", "l"},
		Short:   "List devices of a class, with the qubes using them",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			rows, err := buildDeviceListRows(app, args[0], args[1:])
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No devices found")
				return nil
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			format := resolveOutputFormat(cfg.Output.Format)
			fmt.Fprint(cmd.OutOrStdout(),
				renderRows(format, []string{"DEVICE", "DESCRIPTION", "USED BY"}, rows))
			return nil
		},
	}
}

// buildDeviceListRows walks the VM collection once for exposed
// devices and once for usage. Qubes that vanish between the cached
// list and the per-VM query are skipped; every other error aborts.
func buildDeviceListRows(app *qubes.App, class string, vmNames []string) ([][]string, error) {
	vms, err := app.Domains.All()
	if err != nil {
		return nil, err
	}

	descriptions := map[string]string{}
	var ids []string
	seen := map[string]bool{}

	record := func(id, description string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
		if description != "" {
			descriptions[id] = description
		}
	}

	if len(vmNames) == 0 {
		for _, vm := range vms {
			infos, err := devices.NewCollection(app, vm.Name, class).Available()
			if err != nil {
				if qubes.IsServerKind(err, qubes.KindNoSuchVM) {
					continue
				}
				return nil, err
			}
			for _, info := range infos {
				record(info.ID(), info.Description)
			}
		}
	} else {
		for _, name := range vmNames {
			vm, err := app.Domains.Get(name)
			if err != nil {
				return nil, err
			}
			col := devices.NewCollection(app, vm.Name, class)
			infos, err := col.Available()
			if err != nil {
				return nil, err
			}
			for _, info := range infos {
				record(info.ID(), info.Description)
			}
			for _, list := range [](func() ([]devices.Assignment, error)){col.Attached, col.Assigned} {
				assignments, err := list()
				if err != nil {
					return nil, err
				}
				for _, a := range assignments {
					record(a.ID(), "")
				}
			}
		}
	}

	usedBy := map[string][]string{}
	for _, vm := range vms {
		col := devices.NewCollection(app, vm.Name, class)
		for _, list := range [](func() ([]devices.Assignment, error)){col.Attached, col.Assigned} {
			assignments, err := list()
			if err != nil {
				if qubes.IsServerKind(err, qubes.KindNoSuchVM) {
					break
				}
				return nil, err
			}
			for _, a := range assignments {
				if seen[a.ID()] {
					usedBy[a.ID()] = appendUnique(usedBy[a.ID()], vm.Name)
				}
			}
		}
	}

	sort.Strings(ids)
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{id, descriptions[id], strings.Join(usedBy[id], ", ")})
	}
	return rows, nil
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}

func newDeviceAttachCommand(ctx *commandContext) *cobra.Command {
	var options []string
	var readOnly bool
	var required bool

	cmd := &cobra.Command{
		Use:     "attach CLASS VMNAME BACKEND+DEVICE_ID",
		Aliases: []string{"at", "a"},
		Short:   "Attach a device to a qube",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, assignment, err := resolveAssignment(ctx, args)
			if err != nil {
				return err
			}
			assignment.Options, err = parseOptionFlags(options, readOnly)
			if err != nil {
				return err
			}
			if err := col.Attach(assignment); err != nil {
				return err
			}
			if required {
				assignment.Required = true
				return col.Assign(assignment)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&options, "option", "o", nil, "Assignment option in opt=value form (repeatable)")
	cmd.Flags().BoolVar(&readOnly, "ro", false, "Attach read-only (alias for read-only=yes, takes precedence)")
	cmd.Flags().BoolVarP(&required, "required", "r", false, "Also record a required assignment so the device attaches on startup")

	return cmd
}

func newDeviceDetachCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "detach CLASS VMNAME [BACKEND+DEVICE_ID]",
		Aliases: []string{"dt", "d"},
		Short:   "Detach a device, or all attached devices, from a qube",
		Args:    cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 3 {
				col, assignment, err := resolveAssignment(ctx, args)
				if err != nil {
					return err
				}
				return col.Detach(assignment)
			}
			col, err := resolveCollection(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			attached, err := col.Attached()
			if err != nil {
				return err
			}
			for _, assignment := range attached {
				if err := col.Detach(assignment); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newDeviceAssignCommand(ctx *commandContext) *cobra.Command {
	var options []string
	var readOnly bool
	var required bool

	cmd := &cobra.Command{
		Use:     "assign CLASS VMNAME BACKEND+DEVICE_ID",
		Aliases: []string{"s"},
		Short:   "Assign a device to a qube so it attaches automatically",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, assignment, err := resolveAssignment(ctx, args)
			if err != nil {
				return err
			}
			assignment.Options, err = parseOptionFlags(options, readOnly)
			if err != nil {
				return err
			}
			assignment.Required = required
			return col.Assign(assignment)
		},
	}

	cmd.Flags().StringArrayVarP(&options, "option", "o", nil, "Assignment option in opt=value form (repeatable)")
	cmd.Flags().BoolVar(&readOnly, "ro", false, "Assign read-only (alias for read-only=yes, takes precedence)")
	cmd.Flags().BoolVarP(&required, "required", "r", false, "Require the device for qube startup")

	return cmd
}

func newDeviceUnassignCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "unassign CLASS VMNAME [BACKEND+DEVICE_ID]",
		Aliases: []string{"u"},
		Short:   "Remove a device assignment, or all of them, from a qube",
		Args:    cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 3 {
				col, assignment, err := resolveAssignment(ctx, args)
				if err != nil {
					return err
				}
				return col.Unassign(assignment)
			}
			col, err := resolveCollection(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			assigned, err := col.Assigned()
			if err != nil {
				return err
			}
			for _, assignment := range assigned {
				if err := col.Unassign(assignment); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newDeviceInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "info CLASS BACKEND+DEVICE_ID",
		Aliases: []string{"i"},
		Short:   "Show details of one exposed device",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			backend, ident, err := splitDeviceID(args[1])
			if err != nil {
				return err
			}
			if _, err := app.Domains.Get(backend); err != nil {
				return err
			}
			infos, err := devices.NewCollection(app, backend, args[0]).Available()
			if err != nil {
				return err
			}
			for _, info := range infos {
				if info.Ident != ident {
					continue
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "device: %s\n", info.ID())
				fmt.Fprintf(out, "description: %s\n", info.Description)
				keys := make([]string, 0, len(info.Data))
				for key := range info.Data {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				for _, key := range keys {
					fmt.Fprintf(out, "%s: %s\n", key, info.Data[key])
				}
				return nil
			}
			return fmt.Errorf("backend %s does not expose device %s", backend, ident)
		},
	}
}

// resolveAssignment validates CLASS VMNAME BACKEND+DEVICE_ID arguments
// against the cached VM list and returns the collection plus the
// addressed assignment.
func resolveAssignment(ctx *commandContext, args []string) (devices.Collection, devices.Assignment, error) {
	app, err := ctx.ensureApp()
	if err != nil {
		return devices.Collection{}, devices.Assignment{}, err
	}
	backend, ident, err := splitDeviceID(args[2])
	if err != nil {
		return devices.Collection{}, devices.Assignment{}, err
	}
	for _, name := range []string{args[1], backend} {
		if _, err := app.Domains.Get(name); err != nil {
			return devices.Collection{}, devices.Assignment{}, err
		}
	}
	col := devices.NewCollection(app, args[1], args[0])
	return col, devices.Assignment{BackendDomain: backend, Ident: ident}, nil
}

func resolveCollection(ctx *commandContext, class, vmName string) (devices.Collection, error) {
	app, err := ctx.ensureApp()
	if err != nil {
		return devices.Collection{}, err
	}
	if _, err := app.Domains.Get(vmName); err != nil {
		return devices.Collection{}, err
	}
	return devices.NewCollection(app, vmName, class), nil
}

func splitDeviceID(value string) (backend, ident string, err error) {
	backend, ident, ok := strings.Cut(value, "+")
	if !ok || backend == "" || ident == "" {
		return "", "", fmt.Errorf("expected a BACKEND+DEVICE_ID combination like sys-usb+2-1, got %q", value)
	}
	return backend, ident, nil
}

func parseOptionFlags(options []string, readOnly bool) (map[string]string, error) {
	parsed := make(map[string]string, len(options)+1)
	for _, option := range options {
		key, value, ok := strings.Cut(option, "=")
		if !ok || key == "" {
			return nil, errors.New("options must use the opt=value form")
		}
		parsed[key] = value
	}
	if readOnly {
		parsed["read-only"] = "yes"
	}
	return parsed, nil
}
