package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kbsearch/crawl-worker/internal/app"
	"github.com/kbsearch/crawl-worker/internal/config"
	"github.com/kbsearch/crawl-worker/internal/jobs"
	"github.com/kbsearch/crawl-worker/internal/publisher"
	"github.com/kbsearch/crawl-worker/internal/storage"
)

var (
	cfgFile   string
	projectID string
	jobID     string
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use. This allows us
// to inject a mock app during tests.
type App interface {
	Close()
	GetConfig() config.Config
	GetLogger() *zap.Logger
	GetJobStore() jobs.Store
	GetStorage() storage.Store
	GetPublisher() publisher.Publisher
}

// newApp is the application factory. It's a variable so we can replace it
// with a mock factory in our tests.
var newApp func(ctx context.Context, cfg config.Config) (App, error) = func(ctx context.Context, cfg config.Config) (App, error) {
	return app.New(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl-worker",
		Short: "A single-job site ingestion worker.",
		Long: `crawl-worker executes one web-site ingestion job: it loads the job
record it was launched for, crawls the target site within the configured
domain and depth bounds, persists every HTML and PDF page into the
collection's object-storage bucket, and writes the terminal status back to
the job record.`,
		SilenceUsage: true,

		// This hook runs AFTER flag parsing but BEFORE the subcommand's
		// RunE, which makes it the place to build and inject the application.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			// Flags passed on the command line win over the environment.
			if projectID != "" {
				cfg.ProjectID = projectID
			}
			if jobID != "" {
				cfg.JobID = jobID
			}

			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			// Store the app instance in the context for subcommands to use.
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// This hook ensures services are shut down gracefully.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; the environment configures everything)")

	cmd.AddCommand(newRunCmd())

	return cmd
}

// Execute is the main entry point. The process exits 0 only when the
// executed subcommand returned nil.
func Execute() {
	// A .env file is a development convenience; absence is the normal case.
	_ = godotenv.Load()

	// SIGTERM from the job platform cancels the run context, which routes
	// the run through the job-record failure path before the process dies.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
