package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/milosgajdos/go-approx/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "approx",
	Short: "approx rounds relaxed control trajectories to discrete modes",
	Long: `approx solves combinatorial integral approximation problems with dynamic
programming: it picks one admissible mode per node so the mode sequence tracks
a relaxed reference while honoring minimum dwell times.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	name, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(name)
	if err != nil {
		return nil, err
	}

	return logging.NewWithWriter(cmd.ErrOrStderr(), level), nil
}
