package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/oposita/internal/analytics"
	"github.com/example/oposita/internal/bot"
	"github.com/example/oposita/internal/excel"
	"github.com/example/oposita/internal/ingest"
	"github.com/example/oposita/internal/scheduler"
	"github.com/example/oposita/pkg/models"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "oposita",
		Short: "Oposita - study tracker for civil service exams",
		Long: `Oposita tracks how well each syllabus topic is retained.

Every topic is a six-block fortress that crumbles with time since the last
study session and is rebuilt by taking tests. Analytics estimate study
velocity, exam readiness and the date the question bank will be mastered.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("oposita v%s (%s)\n", version, commit)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the reminder scheduler",
		RunE:  runServe,
	})

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import question banks and session logs",
	}
	importCmd.AddCommand(&cobra.Command{
		Use:   "questions [file]",
		Short: "Import a question bank from .xlsx or .csv",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportQuestions,
	})
	sessionsCmd := &cobra.Command{
		Use:   "sessions [file]",
		Short: "Import a session log from .xlsx, .csv or .json",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportSessions,
	}
	sessionsCmd.Flags().Int64("user", 0, "Telegram ID of the user the sessions belong to")
	_ = sessionsCmd.MarkFlagRequired("user")
	importCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(importCmd)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Print a user's fortress and analytics as JSON",
		RunE:  runReport,
	}
	reportCmd.Flags().Int64("user", 0, "Telegram ID of the user")
	_ = reportCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(reportCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	b, err := bot.New(a.cfg.TelegramToken, a.study, a.repos.Users, bot.Options{
		AdminUserIDs: a.cfg.AdminUserIDs,
		Location:     a.cfg.Location,
	}, a.log)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Start(ctx)
	})

	if a.cfg.EnableScheduler {
		sched := scheduler.New(a.repos.Users, a.study, b, scheduler.Options{
			StartHour: a.cfg.NotificationStartHour,
			EndHour:   a.cfg.NotificationEndHour,
			Location:  a.cfg.Location,
		}, a.log)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			sched.Stop()
			return nil
		})
	}

	a.log.Info("oposita started", "version", version, "scheduler", a.cfg.EnableScheduler)
	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	a.log.Info("oposita stopped")
	return nil
}

func runImportQuestions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.importer().ImportQuestions(ctx, args[0])
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func runImportSessions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	telegramID, _ := cmd.Flags().GetInt64("user")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	user, err := a.userByTelegramID(ctx, telegramID)
	if err != nil {
		return err
	}

	path := args[0]
	if strings.ToLower(filepath.Ext(path)) != ".json" {
		result, err := a.importer().ImportSessions(ctx, path, user.ID)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	sessions, err := ingest.DecodeJSON(f)
	if err != nil {
		return err
	}
	for i := range sessions {
		sessions[i].UserID = user.ID
		if err := a.repos.Sessions.Create(ctx, &sessions[i]); err != nil {
			return err
		}
	}
	fmt.Printf("✅ Imported %d sessions\n", len(sessions))
	return nil
}

func printResult(result *excel.ImportResult) {
	fmt.Printf("✅ Processed %d rows: %d imported, %d skipped\n",
		result.TotalProcessed, result.Created, result.Skipped)
	for _, e := range result.Errors {
		fmt.Println("   " + e)
	}
}

type report struct {
	User      models.User            `json:"user"`
	Fortress  []models.TopicProgress `json:"fortress"`
	Urgent    []models.TopicProgress `json:"urgent"`
	Analytics analytics.Snapshot     `json:"analytics"`
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	telegramID, _ := cmd.Flags().GetInt64("user")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	user, err := a.repos.Users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return fmt.Errorf("user %d: %w", telegramID, err)
	}
	records, err := a.study.Fortress(ctx, user.ID)
	if err != nil {
		return err
	}
	urgent, err := a.study.Urgent(ctx, user.ID)
	if err != nil {
		return err
	}
	snap, err := a.study.Analytics(ctx, user.ID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report{User: *user, Fortress: records, Urgent: urgent, Analytics: snap})
}
