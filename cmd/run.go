package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"argus/bootstrap"
	"argus/config"
	"argus/core"
	"argus/detect"
	"argus/storage"
)

// defaultTimeout bounds one-shot CLI operations.
const defaultTimeout = 5 * time.Minute

// newRunCmd creates the 'run' subcommand.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one detection run and print the summary",
		Long: `Run every enabled detection rule once against stored events and print
the run summary. Alerts generated by the run are persisted the same way
scheduled runs persist them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			engine, cleanup, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := engine.Run(ctx, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("detection run failed: %w", err)
			}

			if outputJSON {
				return outputAsJSON(summary)
			}
			renderRunSummary(summary)
			return nil
		},
	}
}

// initEngine wires storage and the detection engine for one-shot use.
// Logs go nowhere in JSON or quiet mode so command output stays parseable.
func initEngine(ctx context.Context) (*detect.Engine, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	sugar := zap.NewNop().Sugar()
	sync := func() {}
	if !outputJSON && !quiet {
		logger, s, err := bootstrap.InitLogger(cfg)
		if err != nil {
			return nil, nil, err
		}
		sugar = s
		sync = func() { _ = logger.Sync() }
	}

	db, err := storage.NewSQLite(cfg.DataPaths.SQLitePath, sugar)
	if err != nil {
		sync()
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			errorColor.Fprintf(os.Stderr, "failed to close database: %v\n", err)
		}
		sync()
	}

	catalogCfg, err := detect.LoadCatalogConfig(cfg.DataPaths.RulesConfigPath)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to load rule config: %w", err)
	}
	rules := detect.BuildRules(catalogCfg)

	engine := detect.NewEngine(detect.EngineConfig{
		Rules:         rules,
		Events:        storage.NewEventStorage(db, sugar),
		Alerts:        storage.NewAlertStorage(db, sugar),
		Allowlist:     storage.NewAllowlistStorage(db, sugar),
		Workers:       cfg.Engine.Workers,
		DedupLookback: cfg.Engine.DedupLookback,
		Logger:        sugar,
	})
	return engine, cleanup, nil
}

// renderRunSummary prints a human-readable run report.
func renderRunSummary(summary *core.RunSummary) {
	headerColor.Println("DETECTION RUN")
	fmt.Printf("Rules executed:   %d\n", len(summary.RulesExecuted))
	fmt.Printf("Alerts generated: %d\n", summary.AlertsGenerated)
	fmt.Printf("Execution time:   %.1fms\n", summary.ExecutionTimeMs)

	if len(summary.RulesFailed) > 0 {
		errorColor.Printf("Rules failed:     %d\n", len(summary.RulesFailed))
		ids := make([]string, 0, len(summary.RulesFailed))
		for id := range summary.RulesFailed {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("  %s: %s\n", id, summary.RulesFailed[id])
		}
	}
	if len(summary.AlertsFailed) > 0 {
		warningColor.Printf("Alerts failed to persist: %d\n", len(summary.AlertsFailed))
		for _, id := range summary.AlertsFailed {
			fmt.Printf("  %s\n", id)
		}
	}
	if len(summary.RulesFailed) == 0 && len(summary.AlertsFailed) == 0 {
		successColor.Println("All rules completed")
	}
}

// outputAsJSON writes v to stdout as indented JSON.
func outputAsJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
