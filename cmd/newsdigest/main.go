package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"NewsDigest/internal/app"
	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/logging"
)

var configPath string

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "newsdigest",
		Short:         "Collect, classify and rank X news into a Korean digest",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config path (overrides NEWSDIGEST_CONFIG)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(daemonCmd())
	rootCmd.AddCommand(collectCmd())
	rootCmd.AddCommand(runsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func build(ctx context.Context) (*app.Application, error) {
	if configPath != "" {
		if err := os.Setenv("NEWSDIGEST_CONFIG", configPath); err != nil {
			return nil, fmt.Errorf("set config path: %w", err)
		}
	}
	cfg := config.Load()
	return app.New(ctx, cfg, logging.New(cfg.Logging.Level))
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a single digest cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.RunOnce(cmd.Context())
			if errors.Is(err, domain.ErrNoData) {
				fmt.Println("no posts collected; notice sent")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("run %s: %d posts, %d ranked, delivered=%t\n",
				res.Report.RunID, res.Report.PostsCollected, res.Ranking.Total(), res.Report.Delivered)
			return nil
		},
	}
}

func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run a cycle now and then on the configured interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.RunDaemon(cmd.Context())
		},
	}
}

func collectCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch recent posts without classifying or delivering",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Collect(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%d posts from %d accounts (%d failed)\n", len(res.Posts), res.AccountsTotal, res.AccountsFailed)
			if verbose {
				for _, p := range res.Posts {
					fmt.Printf("  %.1fh @%s %s\n", p.AgeHours, p.Author, truncate(p.Text, 80))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every collected post")
	return cmd
}

func runsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent audited cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs recorded")
				return nil
			}
			for _, r := range runs {
				fmt.Printf("%s  %s  posts=%d classified=%d failed=%d/%d delivered=%t %v\n",
					r.StartedAt.Format("2006-01-02 15:04"), r.RunID, r.PostsCollected, r.ItemsClassified,
					r.AccountsFailed, r.AccountsTotal, r.Delivered, r.Categories)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
