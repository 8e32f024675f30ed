package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Joshykins/stupid-neko-sub001/internal/app"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	httpMW "github.com/Joshykins/stupid-neko-sub001/internal/http/middleware"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/leveling"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/rules"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/envutil"
)

// appFactory is swapped in tests.
var appFactory = app.New

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "progressctl",
		Short:         "Operate the progression engine",
		Long:          `Runs the sessionizer, stale sweep and vacation nudge once against the configured database, and prints leveling tables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSessionizeCmd(),
		newSweepStaleCmd(),
		newNudgeCmd(),
		newLevelsCmd(),
		newTokenCmd(),
		newWatchCmd(),
	)
	return root
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := appFactory(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	out, err := fn(ctx, a)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSessionizeCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessionize",
		Short: "Process one batch of pending raw activity events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.Services.Progression.ProcessBatch(ctx, limit)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum event groups to process (0 uses the configured default)")
	return cmd
}

func newSweepStaleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-stale",
		Short: "Finalize or discard in-progress activities whose pings stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.Services.Progression.SweepStale(ctx)
			})
		},
	}
}

func newNudgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nudge",
		Short: "Spend vacation credits for users who missed exactly yesterday",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.Services.Progression.NudgeAll(ctx)
			})
		},
	}
}

func newLevelsCmd() *cobra.Command {
	var to int
	var rulesPath string
	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Print the XP curve up to a level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rs, err := rules.Load(rulesPath)
			if err != nil {
				return err
			}
			if to < 1 || to > rs.Leveling.CapLevel {
				return fmt.Errorf("--to must be between 1 and %d", rs.Leveling.CapLevel)
			}
			curve := leveling.NewCurve(rs.Leveling)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LEVEL\tTOTAL_XP\tNEXT_LEVEL_XP")
			for lvl := 1; lvl <= to; lvl++ {
				fmt.Fprintf(tw, "%d\t%d\t%d\n", lvl, curve.TotalXPForLevel(lvl), curve.XPForNextLevel(lvl))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&to, "to", 10, "highest level to print")
	cmd.Flags().StringVar(&rulesPath, "rules", envutil.String("PROGRESSION_RULES_PATH", ""), "progression rules YAML overlay")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var userID string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user (local testing)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.LoadEnv()
			secret := envutil.String("JWT_SECRET_KEY", "")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET_KEY is not set")
			}
			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			tok, err := httpMW.SignToken([]byte(secret), id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (uuid)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream progression notifications from Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := appFactory(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Clients.Bus == nil {
				return fmt.Errorf("REDIS_ADDR is not set")
			}
			out := cmd.OutOrStdout()
			err = a.Clients.Bus.StartForwarder(ctx, func(n progression.Notification) {
				_ = printJSON(out, n)
			})
			if err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		},
	}
}
