package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var envFileFlag, logDirFlag, logLevelFlag string

	ctx := newCommandContext(&envFileFlag, &logDirFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "agrovision",
		Short:         "Livestock ear-tag sighting detector",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", ".env", "Environment file to load before reading variables")
	rootCmd.PersistentFlags().StringVar(&logDirFlag, "log-dir", "", "Directory for info/warning/error log files (LOG_DIR)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Minimum log level: debug, info, warning, error (LOG_LEVEL)")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newSightingsCommand(ctx))

	return rootCmd
}
