package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cfboard/cfboard/internal/application/command"
	"github.com/cfboard/cfboard/internal/application/query"
	"github.com/cfboard/cfboard/internal/infrastructure/persistence/file"
	"github.com/cfboard/cfboard/internal/infrastructure/persistence/postgres"
	"github.com/cfboard/cfboard/internal/infrastructure/scheduler"
	"github.com/cfboard/cfboard/internal/interface/console"
)

func presenter(cmd *cobra.Command) *console.Presenter {
	noColor, _ := cmd.Flags().GetBool("no-color")
	if noColor {
		return console.New(cmd.OutOrStdout(), console.WithoutColor())
	}
	return console.New(cmd.OutOrStdout())
}

// ══════════════════════════════════════════════════════════════════════════════
// VIEWS
// ══════════════════════════════════════════════════════════════════════════════

func newBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Build and print the board of one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, _ := cmd.Flags().GetInt("day")
			sortBy, _ := cmd.Flags().GetString("sort")
			refresh, _ := cmd.Flags().GetBool("refresh")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.leaderboard.Handle(ctx, query.GetLeaderboardQuery{
					DayOffset:    day,
					SortBy:       sortBy,
					ForceRefresh: refresh,
				})
				if err != nil {
					return err
				}
				presenter(cmd).Board(res.Board)
				return nil
			})
		},
	}
	cmd.Flags().Int("day", 0, "day offset, 0 (today) to 7")
	cmd.Flags().String("sort", "", "solvedToday or rating")
	cmd.Flags().Bool("refresh", false, "rebuild instead of reading the cache")
	cmd.Flags().Bool("no-color", false, "disable colors")
	return cmd
}

func newContestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contests",
		Short: "List upcoming and running contests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				list, err := a.upcoming.Handle(ctx)
				if err != nil {
					return err
				}
				presenter(cmd).Upcoming(list)
				return nil
			})
		},
	}
	cmd.Flags().Bool("no-color", false, "disable colors")
	return cmd
}

func newStandingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "standings",
		Short: "Show how tracked students did in the last finished contests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				list, err := a.standings.Handle(ctx)
				if err != nil {
					return err
				}
				presenter(cmd).Standings(list)
				return nil
			})
		},
	}
	cmd.Flags().Bool("no-color", false, "disable colors")
	return cmd
}

func newWarmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Rebuild the configured boards once and store them in the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				sched := a.newScheduler(false)
				warm := a.warmJob()
				if err := sched.Register(warm, scheduler.NewIntervalSchedule(a.cfg.Scheduler.RefreshInterval)); err != nil {
					return err
				}
				result, err := sched.RunNow(ctx, warm.Name())
				if err != nil {
					return err
				}
				stats := warm.LastStats()
				if stats == nil || stats.Skipped {
					fmt.Fprintln(cmd.OutOrStdout(), "skipped, another replica holds the lock")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "built %d boards (%d failed) in %s\n",
					stats.BoardsBuilt, stats.FailedBoards, result.Duration.Round(time.Millisecond))
				return nil
			})
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER
// ══════════════════════════════════════════════════════════════════════════════

func newRosterCmd() *cobra.Command {
	roster := &cobra.Command{
		Use:   "roster",
		Short: "Manage tracked handles",
	}
	roster.PersistentFlags().Bool("no-color", false, "disable colors")

	roster.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tracked handles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				handles, err := a.roster.Handles(ctx)
				if err != nil {
					return err
				}
				presenter(cmd).Roster(handles)
				return nil
			})
		},
	})

	add := &cobra.Command{
		Use:   "add HANDLE...",
		Short: "Start tracking handles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			skip, _ := cmd.Flags().GetBool("skip-verify")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if a.manage == nil {
					return errNoDirectory
				}
				for _, raw := range args {
					h, err := a.manage.Add(ctx, command.AddHandleCommand{Handle: raw, SkipVerify: skip})
					if err != nil {
						return fmt.Errorf("add %s: %w", raw, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", h)
				}
				return nil
			})
		},
	}
	add.Flags().Bool("skip-verify", false, "do not check the handle on Codeforces")
	roster.AddCommand(add)

	roster.AddCommand(&cobra.Command{
		Use:   "remove HANDLE...",
		Short: "Stop tracking handles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if a.manage == nil {
					return errNoDirectory
				}
				for _, raw := range args {
					if err := a.manage.Remove(ctx, command.RemoveHandleCommand{Handle: raw}); err != nil {
						return fmt.Errorf("remove %s: %w", raw, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", raw)
				}
				return nil
			})
		},
	})

	roster.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Copy the handles of a students.json file into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if a.manage == nil {
					return errNoDirectory
				}
				added, err := a.manage.Import(ctx, file.NewRoster(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d new handles\n", added)
				return nil
			})
		},
	})

	return roster
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("%w: DATABASE_URL is required", errUsage)
			}

			pg := postgres.DefaultConfig()
			pg.URL = cfg.Database.URL
			m, err := postgres.NewMigrator(pg)
			if err != nil {
				return err
			}
			defer m.Close()

			out := cmd.OutOrStdout()
			switch action {
			case "up":
				if err := m.Migrate(); err != nil {
					return err
				}
			case "down":
				if err := m.Rollback(); err != nil {
					return err
				}
			}

			status, err := m.Status()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "schema version %d, dirty %t\n", status.Version, status.Dirty)
			return nil
		},
	}
}
