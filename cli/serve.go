package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fieldsync/fieldsync/engine/action"
	"github.com/fieldsync/fieldsync/engine/dedup"
	"github.com/fieldsync/fieldsync/engine/integration"
	"github.com/fieldsync/fieldsync/engine/workflow"
	"github.com/fieldsync/fieldsync/pkg/config"
	"github.com/fieldsync/fieldsync/pkg/logger"
)

func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Register workflow definitions and run the scheduler until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defsPath, _ := cmd.Flags().GetString("workflows")
			return runServe(defsPath)
		},
	}
	cmd.Flags().String("workflows", "workflows", "workflow definition file or directory")
	return cmd
}

func runServe(defsPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Default()

	engine, _, err := buildEngines(cfg)
	if err != nil {
		return err
	}
	defer engine.Stop()

	defs, err := LoadDefinitions(defsPath)
	if err != nil {
		return err
	}
	for i := range defs {
		if err := engine.Register(&defs[i]); err != nil {
			return err
		}
		log.Info("workflow registered", "name", defs[i].Name, "schedule", defs[i].Schedule)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	log.Info("fieldsync running", "workflows", len(defs))
	<-sig
	log.Info("shutting down")
	return nil
}

// buildEngines assembles the action registry, the dedup engine and the
// workflow engine from configuration. The in-memory adapters stand in until
// real platform adapters are bound.
func buildEngines(cfg *config.Config) (*workflow.Engine, *dedup.Engine, error) {
	registry := action.NewRegistry()

	engine, err := workflow.New(registry, workflow.WithDefaults(workflow.Defaults{
		StepTimeout: cfg.Workflow.StepTimeout,
		Retry: workflow.RetryPolicy{
			MaxAttempts:  cfg.Workflow.MaxAttempts,
			Backoff:      workflow.BackoffKind(cfg.Workflow.Backoff),
			InitialDelay: cfg.Workflow.InitialDelay,
			MaxDelay:     cfg.Workflow.MaxDelay,
		},
		Retention: cfg.Workflow.Retention,
	}))
	if err != nil {
		return nil, nil, err
	}

	dedupEngine, err := dedup.New(dedup.NewMemoryStore(), dedup.Options{
		Enabled:         cfg.Dedup.Enabled,
		Threshold:       cfg.Dedup.Threshold,
		CacheTTL:        cfg.Dedup.CacheTTL,
		CacheSize:       cfg.Dedup.CacheSize,
		Strategies:      cfg.Dedup.Strategies,
		WorkOrderWindow: cfg.Dedup.WorkOrderWindow,
	}, dedup.WithEvents(engine.Events()))
	if err != nil {
		engine.Stop()
		return nil, nil, err
	}

	if err := bindAll(registry, dedupEngine); err != nil {
		engine.Stop()
		return nil, nil, err
	}
	return engine, dedupEngine, nil
}

func bindAll(registry *action.Registry, dedupEngine *dedup.Engine) error {
	if err := integration.BindPropertyManagement(registry, integration.NewMemoryPropertyManagement()); err != nil {
		return fmt.Errorf("failed to bind property management actions: %w", err)
	}
	if err := integration.BindFieldService(registry, integration.NewMemoryFieldService()); err != nil {
		return fmt.Errorf("failed to bind field service actions: %w", err)
	}
	if err := integration.BindDeduplication(registry, dedupEngine); err != nil {
		return fmt.Errorf("failed to bind deduplication actions: %w", err)
	}
	if err := integration.BindNotification(registry, integration.LogNotificationSink{}); err != nil {
		return fmt.Errorf("failed to bind notification actions: %w", err)
	}
	return nil
}
