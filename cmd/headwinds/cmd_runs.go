package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/headwinds/internal/analysis"
	"github.com/nvandessel/headwinds/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored simulation runs",
	}
	cmd.PersistentFlags().String("output", "", "Output directory (overrides config)")

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsPruneCmd(),
		newRunsInspectCmd(),
	)
	return cmd
}

// openRunStore opens the results database for the configured output
// directory.
func openRunStore(cmd *cobra.Command) (*store.SQLiteRunStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dir := cfg.Output.Dir
	if cmd.Flags().Changed("output") {
		dir, _ = cmd.Flags().GetString("output")
	}
	if !fileExists(store.DatabasePath(dir)) {
		return nil, fmt.Errorf("no results database in %s (run 'headwinds run' first)", dir)
	}
	return store.Open(dir)
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer rs.Close()

			runs, err := rs.ListRuns(cmd.Context())
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				if runs == nil {
					runs = []store.Run{}
				}
				return writeJSON(cmd.OutOrStdout(), runs)
			}

			w := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs stored.")
				return nil
			}
			fmt.Fprintf(w, "%-5s %-20s %-10s %7s %11s %9s  %s\n", "ID", "CREATED", "STATUS", "AGENTS", "STEPS", "MESSAGES", "NAME")
			for _, r := range runs {
				fmt.Fprintf(w, "%-5d %-20s %-10s %7d %5d/%-5d %9d  %s\n",
					r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Status, r.Agents,
					r.StepsCompleted, r.StepsRequested, r.Messages, r.Name)
			}
			return nil
		},
	}
}

func newRunsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run's summary and word statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}
			withMessages, _ := cmd.Flags().GetBool("messages")

			rs, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer rs.Close()

			ctx := cmd.Context()
			run, err := rs.GetRun(ctx, id)
			if err != nil {
				return err
			}
			strengths, err := rs.LoadStrengths(ctx, id)
			if err != nil {
				return err
			}
			usage, err := rs.LoadUsage(ctx, id)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if withMessages {
				msgs, err := rs.LoadMessages(ctx, id)
				if err != nil {
					return err
				}
				if jsonOut {
					return store.WriteMessagesJSONL(cmd.OutOrStdout(), msgs)
				}
				for _, m := range msgs {
					fmt.Fprintf(cmd.OutOrStdout(), "#%d step %d agent %d: %v\n", m.ID, m.Step, m.Sender, m.Content)
				}
				return nil
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), struct {
					*store.Run
					Strengths []analysis.WordStrength `json:"strengths"`
					Usage     []analysis.WordCount    `json:"usage"`
				}{run, strengths, usage})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Run %d (%s)\n", run.ID, run.Status)
			if run.Name != "" {
				fmt.Fprintf(w, "  name:        %s\n", run.Name)
			}
			fmt.Fprintf(w, "  created:     %s\n", run.CreatedAt.Local().Format(time.RFC3339))
			fmt.Fprintf(w, "  agents:      %d\n", run.Agents)
			fmt.Fprintf(w, "  steps:       %d of %d\n", run.StepsCompleted, run.StepsRequested)
			fmt.Fprintf(w, "  seed:        %d\n", run.Seed)
			fmt.Fprintf(w, "  messages:    %d (%d deliveries)\n", run.Messages, run.Deliveries)
			fmt.Fprintf(w, "  dynamics:    p=%g decay=%g reinforcement=%g\n", run.PostProbability, run.DecayRate, run.ReinforcementRate)
			fmt.Fprintf(w, "  elapsed:     %s\n", run.Elapsed)
			fmt.Fprintln(w)
			printStrengths(w, strengths)
			if len(usage) > 0 {
				fmt.Fprintln(w)
				fmt.Fprintln(w, "Most posted words:")
				for i, wc := range usage {
					if i == 10 {
						break
					}
					fmt.Fprintf(w, "  %-12s %d\n", wc.Word, wc.Count)
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("messages", false, "Print the run's message log instead")
	return cmd
}

func newRunsPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old runs",
		Long: `Delete stored runs not kept by the retention flags. A run is kept if it
is among the --keep newest or younger than --max-age.

Examples:
  headwinds runs prune --keep 5
  headwinds runs prune --keep 3 --max-age 30d`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keep, _ := cmd.Flags().GetInt("keep")
			maxAge, _ := cmd.Flags().GetString("max-age")

			var policies []store.RetentionPolicy
			if cmd.Flags().Changed("keep") {
				policies = append(policies, &store.CountPolicy{MaxCount: keep})
			}
			if maxAge != "" {
				age, err := store.ParseAge(maxAge)
				if err != nil {
					return err
				}
				policies = append(policies, &store.AgePolicy{MaxAge: age})
			}
			if len(policies) == 0 {
				return fmt.Errorf("specify --keep and/or --max-age")
			}

			rs, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer rs.Close()

			deleted, err := rs.Prune(cmd.Context(), &store.CompositePolicy{Policies: policies})
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				if deleted == nil {
					deleted = []int64{}
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"deleted": deleted})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d run(s)\n", len(deleted))
			return nil
		},
	}
	cmd.Flags().Int("keep", 0, "Keep the N newest runs")
	cmd.Flags().String("max-age", "", "Keep runs younger than this (e.g. 72h, 30d, 2w)")
	return cmd
}

func newRunsInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <messages.jsonl>",
		Short: "Summarize an exported message log",
		Long: `Read a message log written by 'headwinds run --export' and report how
many messages were posted per step and which words were posted most.

Examples:
  headwinds runs inspect .headwinds/run-3-messages.jsonl
  headwinds runs inspect run-3-messages.jsonl --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := store.ImportMessages(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			top, _ := cmd.Flags().GetInt("top")

			steps := 0
			for _, m := range msgs {
				steps = max(steps, m.Step+1)
			}
			posts := analysis.PostsPerStep(msgs, steps)
			usage := analysis.WordUsage(msgs)
			if top > 0 && len(usage) > top {
				usage = usage[:top]
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				if usage == nil {
					usage = []analysis.WordCount{}
				}
				return writeJSON(cmd.OutOrStdout(), struct {
					Messages int                  `json:"messages"`
					Steps    int                  `json:"steps"`
					Posts    []int                `json:"posts_per_step"`
					Usage    []analysis.WordCount `json:"usage"`
				}{len(msgs), steps, posts, usage})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d messages over %d steps\n", len(msgs), steps)
			if len(msgs) == 0 {
				return nil
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Posts per step:")
			for step, n := range posts {
				fmt.Fprintf(w, "  %5d %d\n", step, n)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Most posted words:")
			for _, wc := range usage {
				fmt.Fprintf(w, "  %-12s %d\n", wc.Word, wc.Count)
			}
			return nil
		},
	}
	cmd.Flags().Int("top", 10, "Number of words to show (0 for all)")
	return cmd
}
