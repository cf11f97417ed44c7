package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/KevinLopezPastor/qmc-agent/internal/config"
	internal_http "github.com/KevinLopezPastor/qmc-agent/internal/http"
	"github.com/KevinLopezPastor/qmc-agent/internal/llm"
	"github.com/KevinLopezPastor/qmc-agent/internal/log"
	"github.com/KevinLopezPastor/qmc-agent/internal/script"
	internal_storage "github.com/KevinLopezPastor/qmc-agent/internal/storage"
	"github.com/KevinLopezPastor/qmc-agent/pkg/analyst"
	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
	"github.com/KevinLopezPastor/qmc-agent/pkg/partition"
	"github.com/KevinLopezPastor/qmc-agent/pkg/storage"
	"github.com/KevinLopezPastor/qmc-agent/pkg/workflow"
)

func SetupCLI(rootCmd *cobra.Command) {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the unified QMC + NPrinting monitoring workflow",
		Run: func(cmd *cobra.Command, args []string) {
			runWorkflow(cmd, false)
		},
	}
	addRunFlags(runCmd)

	runQMCCmd := &cobra.Command{
		Use:   "run-qmc",
		Short: "Run monitoring for the QMC console only",
		Run: func(cmd *cobra.Command, args []string) {
			runWorkflow(cmd, true)
		},
	}
	addRunFlags(runQMCCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded monitoring runs",
		Run: func(cmd *cobra.Command, args []string) {
			dbConnStr, err := cmd.Flags().GetString("db")
			if err != nil {
				log.GetLogger().Errorf("Error retrieving db flag: %v", err)
				os.Exit(1)
			}
			limit, _ := cmd.Flags().GetInt("limit")
			store := initStore(resolveConnStr(dbConnStr))
			defer store.Close()
			listRuns(store, limit)
		},
	}
	historyCmd.Flags().String("db", "", "Database connection string")
	historyCmd.Flags().Int("limit", 20, "Maximum number of runs to show")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP status server",
		Run: func(cmd *cobra.Command, args []string) {
			dbConnStr, err := cmd.Flags().GetString("db")
			if err != nil {
				log.GetLogger().Errorf("Error retrieving db flag: %v", err)
				os.Exit(1)
			}
			port, _ := cmd.Flags().GetString("port")
			store := initStore(resolveConnStr(dbConnStr))
			defer store.Close()
			if err := internal_http.StartServer(port, store); err != nil {
				log.GetLogger().Errorf("Server failed: %v", err)
				os.Exit(1)
			}
		},
	}
	serveCmd.Flags().String("db", "", "Database connection string")
	serveCmd.Flags().String("port", "8080", "Port to listen on")

	rootCmd.AddCommand(runCmd, runQMCCmd, historyCmd, serveCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("groups", nil, "Restrict monitoring to these group aliases")
	cmd.Flags().Bool("all", false, "Monitor every configured group, overriding --groups")
	cmd.Flags().String("db", "", "Database connection string (optional, disables run history when unset)")
	cmd.Flags().String("scripts", "", "Directory holding the worker scripts")
	cmd.Flags().String("out", "", "Directory for generated report images")
}

func runWorkflow(cmd *cobra.Command, qmcOnly bool) {
	logger := log.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("Failed to load configuration: %v", err)
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cmd, cfg)

	missing := cfg.Validate()
	if !qmcOnly {
		missing = append(missing, cfg.ValidateNPrinting()...)
	}
	if len(missing) > 0 {
		for _, name := range missing {
			fmt.Fprintf(os.Stderr, "Error: %s is not set\n", name)
		}
		os.Exit(1)
	}

	groups := map[models.Source][]partition.Group{
		models.SourceQMC:       cfg.QMC.Groups,
		models.SourceNPrinting: cfg.NPrinting.Groups,
	}
	all, _ := cmd.Flags().GetBool("all")
	if keep, _ := cmd.Flags().GetStringSlice("groups"); !all && len(keep) > 0 {
		groups[models.SourceQMC] = partition.Filter(groups[models.SourceQMC], keep)
		groups[models.SourceNPrinting] = partition.Filter(groups[models.SourceNPrinting], keep)
	}

	ctx := context.Background()

	collaborator, err := llm.NewClient(ctx, cfg.LLMAPIKey, cfg.LLMModel, logger)
	if err != nil {
		logger.Errorf("Failed to initialize LLM collaborator: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var store storage.Store
	if cfg.DBConnStr != "" {
		store = initStore(cfg.DBConnStr)
		defer store.Close()
	}

	runner := script.NewRunner(cfg.ScriptsDir, cfg.ScriptCommand, cfg.ScriptTimeout, logger)
	extractor := script.NewExtractor(runner, cfg, logger)
	renderer := script.NewImageRenderer(runner, logger)
	// Analysis retry policy is fixed; MAX_RETRIES only governs login attempts.
	analyzer := analyst.New(collaborator, analyst.Config{}, logger)

	orch := workflow.New(workflow.Config{
		MaxRetries: cfg.MaxRetries,
		Groups:     groups,
		OutputDir:  cfg.OutputDir,
	}, extractor, analyzer, collaborator, renderer, store, logger)

	var state *models.RunState
	if qmcOnly {
		state, err = orch.RunLegacy(ctx)
	} else {
		state, err = orch.Run(ctx)
	}
	if state != nil {
		printSummary(state)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DBConnStr = v
	}
	if v, _ := cmd.Flags().GetString("scripts"); v != "" {
		cfg.ScriptsDir = v
	}
	if v, _ := cmd.Flags().GetString("out"); v != "" {
		cfg.OutputDir = v
	}
}

func resolveConnStr(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	cfg, err := config.Load()
	if err != nil || cfg.DBConnStr == "" {
		fmt.Fprintln(os.Stderr, "Error: --db flag or DATABASE_URL required")
		os.Exit(1)
	}
	return cfg.DBConnStr
}

func listRuns(store storage.Store, limit int) {
	runs, err := store.ListRuns(limit)
	if err != nil {
		log.GetLogger().Errorf("Failed to list runs: %v", err)
		fmt.Fprintf(os.Stderr, "Error: failed to list runs: %v\n", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Fprintf(os.Stdout, "No runs recorded.\n")
		return
	}
	fmt.Fprintf(os.Stdout, "Runs:\n")
	for _, run := range runs {
		finished := "-"
		if run.FinishedAt != nil {
			finished = run.FinishedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(os.Stdout, "- ID: %s, Status: %s, Started: %s, Finished: %s\n",
			run.ID, run.OverallStatus, run.StartedAt.Format(time.RFC3339), finished)
	}
}

func initStore(dbConnStr string) *internal_storage.PostgresStore {
	store, err := internal_storage.InitStore(dbConnStr)
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize store: %v", err)
		os.Exit(1)
	}
	return store
}
