package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/headwinds/internal/socialgraph"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the configured follow graph",
		Long: `Generate the follow graph a run with the current configuration would use
and output it in DOT (Graphviz) or JSON format. Edges point from follower
to followee. With --pagerank, nodes carry their influence score.

Examples:
  headwinds graph --agents 20 | dot -Tsvg > graph.svg
  headwinds graph --format json --pagerank`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("agents") {
				cfg.Population.Agents, _ = cmd.Flags().GetInt("agents")
			}
			if cmd.Flags().Changed("seed") {
				cfg.Simulation.Seed, _ = cmd.Flags().GetUint64("seed")
			}
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			withRank, _ := cmd.Flags().GetBool("pagerank")

			g, err := socialgraph.Generate(cfg.Population.Agents, cfg.GraphGenerator(), cfg.Simulation.Seed)
			if err != nil {
				return fmt.Errorf("generate graph: %w", err)
			}

			var scores map[int]float64
			if withRank {
				scores = socialgraph.PageRank(g, socialgraph.DefaultPageRankConfig())
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			switch socialgraph.Format(format) {
			case socialgraph.FormatDOT:
				fmt.Fprint(w, socialgraph.RenderDOT(g, scores))
			case socialgraph.FormatJSON:
				if err := writeJSON(w, socialgraph.RenderJSON(g, scores)); err != nil {
					return fmt.Errorf("encode JSON: %w", err)
				}
			default:
				return fmt.Errorf("unknown format %q (valid: dot, json)", format)
			}

			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d nodes, %d edges to %s\n", g.NodeCount(), g.EdgeCount(), output)
			}
			return nil
		},
	}

	cmd.Flags().String("format", "dot", "Output format: dot, json")
	cmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	cmd.Flags().Bool("pagerank", false, "Annotate nodes with PageRank influence")
	cmd.Flags().Int("agents", 0, "Number of agents (overrides config)")
	cmd.Flags().Uint64("seed", 0, "Random seed (overrides config)")
	return cmd
}
