// Package cmd defines and implements the CLI commands for the crawl-worker
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbsearch/crawl-worker/internal/crawler"
	"github.com/kbsearch/crawl-worker/internal/worker"
)

// newRunCmd creates and configures the 'run' subcommand. This command
// executes exactly one ingestion job and exits: it is what the job platform
// launches, one process per job record.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Executes one ingestion job",
		Long: `Loads the job record identified by --job-id (or the JOB_ID environment
variable), crawls the site it names, stores every HTML and PDF page into the
collection's bucket, and records the terminal job status. The exit code is 0
only when the job record reached succeeded.`,

		RunE: runJobCommand,
	}

	cmd.Flags().StringVar(&projectID, "project-id", "", "project the destination buckets belong to (overrides PROJECT_ID)")
	cmd.Flags().StringVar(&jobID, "job-id", "", "identifier of the job record to execute (overrides JOB_ID)")

	return cmd
}

func runJobCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	// Cobra skips the post-run hooks when RunE returns an error, and a
	// failed job must still release the clients. Close is idempotent, so
	// the success path closing twice is harmless.
	defer appInstance.Close()

	cfg := appInstance.GetConfig()
	// Without a project there is no bucket namespace, and without a job id
	// there is no record to report to; neither failure can reach a job
	// record, so they surface only through the exit code.
	if cfg.ProjectID == "" {
		return errors.New("project id is required: set PROJECT_ID or pass --project-id")
	}
	if cfg.JobID == "" {
		return errors.New("job id is required: set JOB_ID or pass --job-id")
	}

	engine := crawler.NewEngine(crawler.Options{
		Concurrency:    cfg.Crawler.Concurrency,
		Delay:          cfg.Crawler.Delay,
		RequestTimeout: cfg.Crawler.RequestTimeout,
		RunTimeout:     cfg.Run.Timeout,
		UserAgent:      cfg.Crawler.UserAgent,
		MaxBodyBytes:   cfg.Crawler.MaxBodyBytes,
	}, appInstance.GetStorage(), appInstance.GetLogger())

	w := worker.New(
		appInstance.GetJobStore(),
		appInstance.GetStorage(),
		appInstance.GetPublisher(),
		engine,
		appInstance.GetLogger(),
	)

	if err := w.Run(cmd.Context(), cfg.ProjectID, cfg.JobID); err != nil {
		return fmt.Errorf("run job %s: %w", cfg.JobID, err)
	}
	return nil
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
