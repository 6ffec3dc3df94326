package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"campus-assistant/internal/di"
	"campus-assistant/internal/domain"
	"campus-assistant/internal/infra"
	"campus-assistant/internal/infra/config"
	"campus-assistant/internal/infra/logger"
	"campus-assistant/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "campusctl",
		Short: "Operations CLI for the campus assistant",
	}
	root.AddCommand(newDailyJobCmd(), newBackfillCmd(), newAskCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func withComponents(fn func(ctx context.Context, components *di.ApplicationComponents) error) error {
	cfg := config.Load()
	log := logger.New()
	slog.SetDefault(log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	dbPool, err := infra.NewPostgresDB(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer dbPool.Close()

	return fn(ctx, di.NewApplicationComponents(cfg, dbPool, log))
}

func newDailyJobCmd() *cobra.Command {
	var date string
	var force bool

	cmd := &cobra.Command{
		Use:   "daily-job",
		Short: "Compile the daily report for one date (default: yesterday)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(func(ctx context.Context, components *di.ApplicationComponents) error {
				if date == "" {
					date = domain.FormatDate(time.Now().AddDate(0, 0, -1))
				}
				result, generated, err := components.Backfill.EnsureDay(ctx, date, force)
				if err != nil {
					return err
				}
				if !generated {
					fmt.Printf("report for %s already generated, use --force to regenerate\n", date)
					return nil
				}
				for identity, rep := range result.Reports {
					fmt.Printf("[%s] %s: %d news (%d effective)\n", date, identity, rep.NewsCount, rep.EffectiveNewsCount)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "target date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&force, "force", false, "regenerate even if a report exists")
	return cmd
}

func newBackfillCmd() *cobra.Command {
	var endDate string
	var days int

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Ensure every day in a trailing range has a report, then aggregate the week",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(func(ctx context.Context, components *di.ApplicationComponents) error {
				if endDate == "" {
					endDate = domain.FormatDate(time.Now().AddDate(0, 0, -1))
				}
				result, err := components.Backfill.EnsureRange(ctx, endDate, days)
				if err != nil {
					return err
				}
				fmt.Printf("completed: %v\n", result.Completed)
				for date, ferr := range result.Failed {
					fmt.Printf("failed %s: %v\n", date, ferr)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&endDate, "end", "", "range end date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&days, "days", 7, "lookback window length")
	return cmd
}

func newAskCmd() *cobra.Command {
	var identity string
	var days int

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question grounded in recent stored news",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(func(ctx context.Context, components *di.ApplicationComponents) error {
				parsed, err := domain.ParseIdentity(identity)
				if err != nil {
					return err
				}
				output, err := components.QA.Ask(ctx, usecase.AskInput{
					Question: args[0],
					Identity: parsed,
					Days:     days,
				})
				if err != nil {
					return err
				}
				fmt.Printf("question: %s\nanswer: %s\ndays referenced: %d\n",
					output.Question, output.Answer, output.DaysReferenced)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&identity, "identity", "student", "audience identity (student|teacher)")
	cmd.Flags().IntVar(&days, "days", 7, "grounding window in days")
	return cmd
}
