package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version is the application version (set via ldflags).
var Version = "dev"

// Run builds the command tree and executes it with args.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "task-workflow-api",
		Short:         "Task workflow HTTP API",
		Long:          "Serves the task workflow API: assignment, progress, deadline extensions and completion review.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (environment variables override it)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Create the schema and insert the demo users",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return seed(configPath, cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), Version)
			},
		},
	)

	return rootCmd.ExecuteContext(ctx)
}

func main() {
	if err := Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
