package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var socketFlag string
	var transportFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &socketFlag, &transportFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "qubesadm",
		Short:         "Administer qubes through the qubesd daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "Path to the qubesd admin socket")
	rootCmd.PersistentFlags().StringVar(&transportFlag, "transport", "", "Transport variant: auto, local, or remote")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, or error")

	rootCmd.AddCommand(newLsCommand(ctx))
	rootCmd.AddCommand(newPrefsCommand(ctx))
	rootCmd.AddCommand(newDeviceCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
