package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/headwinds/internal/analysis"
	"github.com/nvandessel/headwinds/internal/config"
	"github.com/nvandessel/headwinds/internal/embeddings"
	"github.com/nvandessel/headwinds/internal/logging"
	"github.com/nvandessel/headwinds/internal/simulation"
	"github.com/nvandessel/headwinds/internal/store"
	"github.com/nvandessel/headwinds/internal/vocab"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		Long: `Load embeddings, build the population and follow graph, and run the
configured number of steps. Results are stored in the output directory.

Interrupting the run stops it after the step in progress; the partial
run is still stored, marked cancelled.

Examples:
  headwinds run
  headwinds run --steps 200 --agents 100 --seed 7
  headwinds run --config experiment.yaml --export`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			name, _ := cmd.Flags().GetString("name")
			lockTimeout, _ := cmd.Flags().GetDuration("lock-timeout")
			top, _ := cmd.Flags().GetInt("top")
			jsonOut, _ := cmd.Flags().GetBool("json")

			logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
			outcome, err := runSimulation(ctx, cfg, runOptions{
				name:        name,
				lockTimeout: lockTimeout,
				logger:      logger,
			})
			if err != nil {
				return err
			}
			return printOutcome(cmd.OutOrStdout(), outcome, top, jsonOut)
		},
	}

	cmd.Flags().Int("steps", 0, "Number of steps (overrides config)")
	cmd.Flags().Int("agents", 0, "Number of agents (overrides config)")
	cmd.Flags().Uint64("seed", 0, "Random seed (overrides config)")
	cmd.Flags().Int("workers", 0, "Goroutines per phase (overrides config)")
	cmd.Flags().Float64("post-probability", -1, "Per-step post probability (overrides config)")
	cmd.Flags().String("output", "", "Output directory (overrides config)")
	cmd.Flags().Bool("export", false, "Also write the message log as JSONL")
	cmd.Flags().String("name", "", "Label stored with the run")
	cmd.Flags().Duration("lock-timeout", 5*time.Second, "How long to wait for the output directory lock")
	cmd.Flags().Int("top", 10, "Number of words to show in the summary (0 for all)")

	return cmd
}

// applyRunFlags copies explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, cfg *config.SimConfig) {
	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Simulation.Steps, _ = flags.GetInt("steps")
	}
	if flags.Changed("agents") {
		cfg.Population.Agents, _ = flags.GetInt("agents")
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("workers") {
		cfg.Simulation.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("post-probability") {
		cfg.Simulation.PostProbability, _ = flags.GetFloat64("post-probability")
	}
	if flags.Changed("output") {
		cfg.Output.Dir, _ = flags.GetString("output")
	}
	if flags.Changed("export") {
		cfg.Output.ExportMessages, _ = flags.GetBool("export")
	}
}

type runOptions struct {
	name        string
	lockTimeout time.Duration
	logger      *slog.Logger
}

// runOutcome is what a finished (or cancelled) run reports.
type runOutcome struct {
	RunID      int64                   `json:"run_id"`
	Status     string                  `json:"status"`
	Steps      int                     `json:"steps"`
	Messages   int                     `json:"messages"`
	Deliveries int                     `json:"deliveries"`
	Vocabulary int                     `json:"vocabulary"`
	Elapsed    string                  `json:"elapsed"`
	Database   string                  `json:"database"`
	Export     string                  `json:"export,omitempty"`
	Strengths  []analysis.WordStrength `json:"strengths"`
	Usage      []analysis.WordCount    `json:"usage"`
	Drift      []analysis.WordDrift    `json:"drift"`
	Posts      []int                   `json:"posts_per_step"`
}

func runSimulation(ctx context.Context, cfg *config.SimConfig, opts runOptions) (*runOutcome, error) {
	logger := opts.logger
	outDir := cfg.Output.Dir

	release, err := store.AcquireLock(outDir, opts.lockTimeout)
	defer release()
	if err != nil {
		return nil, err
	}

	table, err := loadEmbeddings(cfg, logger)
	if err != nil {
		return nil, err
	}

	trace := logging.NewMessageTrace(outDir, cfg.Logging.Level)
	defer trace.Close()

	scenario := simulation.Scenario{
		Name:        opts.name,
		Store:       table,
		Agents:      cfg.Population.Agents,
		Params:      cfg.AgentParams(),
		GraphConfig: cfg.GraphGenerator(),
		Config:      cfg.DriverConfig(),
	}
	if cfg.Culture.Enabled {
		gen := cfg.CultureGenerator()
		scenario.Culture = &gen
	}

	driver, err := scenario.Build(
		simulation.WithLogger(logger),
		simulation.WithTrace(trace),
		simulation.WithObserver(progressObserver(logger, cfg.Simulation.Steps)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build simulation: %w", err)
	}

	status := store.StatusCompleted
	result, err := driver.Run(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("simulation failed: %w", err)
		}
		status = store.StatusCancelled
	}

	strengths, err := analysis.Summarize(result.Agents, table.Vocabulary())
	if err != nil {
		return nil, fmt.Errorf("failed to summarize strengths: %w", err)
	}
	usage := analysis.WordUsage(result.Messages)
	drift, err := analysis.Drift(result.Agents, table)
	if err != nil {
		return nil, fmt.Errorf("failed to measure drift: %w", err)
	}

	snapshot, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config snapshot: %w", err)
	}

	rs, err := store.Open(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open results store: %w", err)
	}
	defer rs.Close()

	// Save even when the run was interrupted.
	saveCtx := context.WithoutCancel(ctx)
	runID, err := rs.SaveRun(saveCtx, store.Run{
		Name:              opts.name,
		Status:            status,
		Seed:              cfg.Simulation.Seed,
		Agents:            cfg.Population.Agents,
		StepsRequested:    cfg.Simulation.Steps,
		StepsCompleted:    result.Steps,
		PostProbability:   cfg.Simulation.PostProbability,
		DecayRate:         cfg.Population.DecayRate,
		ReinforcementRate: cfg.Population.ReinforcementRate,
		Dim:               table.Dim(),
		VocabSize:         table.Size(),
		Messages:          len(result.Messages),
		Deliveries:        result.Deliveries,
		Elapsed:           result.Elapsed,
		Config:            snapshot,
	}, store.RunData{
		Messages:  result.Messages,
		Strengths: strengths,
		Usage:     usage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}
	logger.Info("run saved", "run_id", runID, "status", status, "database", store.DatabasePath(outDir))

	outcome := &runOutcome{
		RunID:      runID,
		Status:     status,
		Steps:      result.Steps,
		Messages:   len(result.Messages),
		Deliveries: result.Deliveries,
		Vocabulary: table.Size(),
		Elapsed:    result.Elapsed.Round(time.Millisecond).String(),
		Database:   store.DatabasePath(outDir),
		Strengths:  strengths,
		Usage:      usage,
		Drift:      drift,
		Posts:      analysis.PostsPerStep(result.Messages, result.Steps),
	}

	if cfg.Output.ExportMessages {
		path := filepath.Join(outDir, fmt.Sprintf("run-%d-%s", runID, store.MessagesFile))
		if err := store.ExportMessages(path, result.Messages); err != nil {
			return nil, fmt.Errorf("failed to export messages: %w", err)
		}
		outcome.Export = path
	}

	return outcome, nil
}

// loadEmbeddings builds the vocabulary and loads its vectors. It fails
// before any agent exists when no configured word has a vector.
func loadEmbeddings(cfg *config.SimConfig, logger *slog.Logger) (*embeddings.Table, error) {
	want, err := vocab.New(cfg.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("invalid vocabulary: %w", err)
	}

	table, stats, err := embeddings.LoadFile(cfg.Embeddings.Path, cfg.Embeddings.Dim, want)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}

	logger.Info("embeddings loaded",
		"path", cfg.Embeddings.Path,
		"lines", stats.Lines,
		"malformed", stats.Malformed,
		"kept", stats.Kept,
		"vocabulary", table.Size())
	if missing := want.Len() - table.Size(); missing > 0 {
		logger.Warn("vocabulary words missing from embeddings", "missing", missing)
	}
	return table, nil
}

// progressObserver logs roughly every tenth of the run.
func progressObserver(logger *slog.Logger, steps int) func(simulation.StepResult) {
	every := max(steps/10, 1)
	return func(r simulation.StepResult) {
		if (r.Step+1)%every == 0 {
			logger.Info("progress", "step", r.Step+1, "of", steps)
		}
	}
}

func printOutcome(w io.Writer, o *runOutcome, top int, jsonOut bool) error {
	if top > 0 && len(o.Strengths) > top {
		o.Strengths = o.Strengths[:top]
	}
	if top > 0 && len(o.Usage) > top {
		o.Usage = o.Usage[:top]
	}
	if jsonOut {
		return writeJSON(w, o)
	}

	fmt.Fprintf(w, "Run %d %s: %d steps, %d messages, %d deliveries in %s\n",
		o.RunID, o.Status, o.Steps, o.Messages, o.Deliveries, o.Elapsed)
	fmt.Fprintf(w, "Results: %s\n", o.Database)
	if o.Export != "" {
		fmt.Fprintf(w, "Messages: %s\n", o.Export)
	}
	fmt.Fprintln(w)
	printStrengths(w, o.Strengths)
	if len(o.Drift) > 0 {
		fmt.Fprintln(w)
		printDrift(w, o.Drift, top)
	}
	return nil
}

// printDrift lists the words that moved furthest from their base vector.
func printDrift(w io.Writer, drift []analysis.WordDrift, top int) {
	sorted := slices.Clone(drift)
	slices.SortStableFunc(sorted, func(a, b analysis.WordDrift) int {
		return cmp.Compare(a.Similarity, b.Similarity)
	})
	if top > 0 && len(sorted) > top {
		sorted = sorted[:top]
	}
	fmt.Fprintln(w, "Most drifted words (mean cosine similarity to base):")
	for _, d := range sorted {
		fmt.Fprintf(w, "  %-12s %9.4f\n", d.Word, d.Similarity)
	}
}

func printStrengths(w io.Writer, strengths []analysis.WordStrength) {
	fmt.Fprintln(w, "Average word strength across agents:")
	fmt.Fprintf(w, "  %-12s %9s %9s %9s %9s %9s\n", "WORD", "MEAN", "MEDIAN", "STDDEV", "MIN", "MAX")
	for _, ws := range strengths {
		fmt.Fprintf(w, "  %-12s %9.4f %9.4f %9.4f %9.4f %9.4f\n",
			ws.Word, ws.Mean, ws.Median, ws.StdDev, ws.Min, ws.Max)
	}
}

// fileExists reports whether path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
