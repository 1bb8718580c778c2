// Command cfboard serves the Codeforces student dashboard API and offers
// terminal views of the same data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cfboard/cfboard/config"
	"github.com/cfboard/cfboard/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cfboard",
		Short:         "Codeforces leaderboard for a tracked group of students",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "config file (env CFBOARD_CONFIG, default .env when present)")

	root.AddCommand(
		newServeCmd(),
		newBoardCmd(),
		newContestsCmd(),
		newStandingsCmd(),
		newWarmCmd(),
		newRosterCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the file named by --config or CFBOARD_CONFIG.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = os.Getenv("CFBOARD_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if version != "dev" {
		cfg.App.Version = version
	}
	return cfg, nil
}

// setup loads the configuration and wires the application. The caller
// closes the returned app.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := logger.ForEnvironment(string(cfg.App.Environment), cfg.Observability.LogLevel)
	return newApp(cmd.Context(), cfg, log)
}

// withApp runs fn against a wired application and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(cmd.Context()))
	return fn(cmd.Context(), a)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// errUsage marks invalid flag values.
var errUsage = errors.New("invalid usage")
