package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/headwinds/internal/config"
	"github.com/nvandessel/headwinds/internal/store"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeFixture writes a tiny GloVe file and a config pointing at it, and
// returns the config path and output directory.
func writeFixture(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	words := []string{"love", "hate", "peace", "war", "hope", "fear", "joy", "anger"}
	var glove strings.Builder
	for i, w := range words {
		fmt.Fprintf(&glove, "%s %d.0 0.5 -0.25\n", w, i+1)
	}
	glove.WriteString("broken 1.0\n")
	glovePath := filepath.Join(dir, "vectors.txt")
	if err := os.WriteFile(glovePath, []byte(glove.String()), 0600); err != nil {
		t.Fatalf("write glove: %v", err)
	}

	cfg := config.Default()
	cfg.Embeddings.Path = glovePath
	cfg.Embeddings.Dim = 3
	cfg.Population.Agents = 15
	cfg.Simulation.Steps = 20
	cfg.Simulation.PostProbability = 0.3
	cfg.Simulation.Workers = 2
	cfg.Culture.MinTaboo, cfg.Culture.MaxTaboo = 1, 2
	cfg.Culture.MinVirtue, cfg.Culture.MaxVirtue = 1, 2
	cfg.Graph.MaxFollowing = 4
	cfg.Vocabulary = append(words, "unicorn")
	cfg.Output.Dir = filepath.Join(dir, "results")
	cfg.Logging.Level = "warn"

	configPath := filepath.Join(dir, config.DefaultFile)
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("save config: %v", err)
	}
	return configPath, cfg.Output.Dir
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v (%s)", err, out)
	}
	if got["version"] != version {
		t.Errorf("version = %q, want %q", got["version"], version)
	}
}

func TestInitCmd(t *testing.T) {
	dir := t.TempDir()

	if _, err := execute(t, "init", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	path := filepath.Join(dir, config.DefaultFile)
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config is invalid: %v", err)
	}

	if _, err := execute(t, "init", dir); err == nil {
		t.Error("second init without --force should fail")
	}
	if _, err := execute(t, "init", dir, "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}
}

func TestConfigValidateCmd(t *testing.T) {
	configPath, _ := writeFixture(t)

	out, err := execute(t, "config", "validate", "--config", configPath, "--json")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, `"valid": true`) {
		t.Errorf("unexpected output: %s", out)
	}

	t.Setenv("HEADWINDS_POST_PROBABILITY", "1.5")
	if _, err := execute(t, "config", "validate", "--config", configPath); err == nil {
		t.Error("validate should fail with post probability 1.5")
	}
}

func TestGraphCmd(t *testing.T) {
	configPath, _ := writeFixture(t)

	out, err := execute(t, "graph", "--config", configPath, "--format", "json", "--pagerank")
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	var g struct {
		Nodes []json.RawMessage `json:"nodes"`
		Edges []json.RawMessage `json:"edges"`
	}
	if err := json.Unmarshal([]byte(out), &g); err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	if len(g.Nodes) != 15 {
		t.Errorf("nodes = %d, want 15", len(g.Nodes))
	}
	if len(g.Edges) < 15 {
		t.Errorf("edges = %d, want at least one per agent", len(g.Edges))
	}

	dot, err := execute(t, "graph", "--config", configPath, "--agents", "3")
	if err != nil {
		t.Fatalf("graph dot: %v", err)
	}
	if !strings.HasPrefix(dot, "digraph headwinds {") {
		t.Errorf("unexpected DOT output: %s", dot)
	}

	if _, err := execute(t, "graph", "--config", configPath, "--format", "svg"); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestRunAndInspect(t *testing.T) {
	configPath, outDir := writeFixture(t)

	out, err := execute(t, "run", "--config", configPath, "--export", "--name", "smoke", "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var outcome runOutcome
	if err := json.Unmarshal([]byte(out), &outcome); err != nil {
		t.Fatalf("decode outcome: %v (%s)", err, out)
	}
	if outcome.Status != store.StatusCompleted || outcome.Steps != 20 {
		t.Errorf("outcome = %+v", outcome)
	}
	// "unicorn" has no vector and is dropped.
	if outcome.Vocabulary != 8 {
		t.Errorf("vocabulary = %d, want 8", outcome.Vocabulary)
	}
	if outcome.Export == "" {
		t.Fatal("expected a message export")
	}
	msgs, err := store.ImportMessages(outcome.Export)
	if err != nil {
		t.Fatalf("import export: %v", err)
	}
	if len(msgs) != outcome.Messages {
		t.Errorf("exported %d messages, outcome says %d", len(msgs), outcome.Messages)
	}
	if len(outcome.Posts) != outcome.Steps {
		t.Errorf("posts_per_step has %d entries, want %d", len(outcome.Posts), outcome.Steps)
	}
	posted := 0
	for _, n := range outcome.Posts {
		posted += n
	}
	if posted != outcome.Messages {
		t.Errorf("posts_per_step sums to %d, want %d", posted, outcome.Messages)
	}
	if len(outcome.Drift) != outcome.Vocabulary {
		t.Errorf("drift covers %d words, want %d", len(outcome.Drift), outcome.Vocabulary)
	}
	for _, d := range outcome.Drift {
		if d.Similarity < -1-1e-9 || d.Similarity > 1+1e-9 {
			t.Errorf("drift %q similarity = %v, want within [-1, 1]", d.Word, d.Similarity)
		}
	}

	inspected, err := execute(t, "runs", "inspect", outcome.Export, "--json", "--top", "0")
	if err != nil {
		t.Fatalf("runs inspect: %v", err)
	}
	var summary struct {
		Messages int   `json:"messages"`
		Posts    []int `json:"posts_per_step"`
	}
	if err := json.Unmarshal([]byte(inspected), &summary); err != nil {
		t.Fatalf("decode inspect: %v (%s)", err, inspected)
	}
	if summary.Messages != outcome.Messages {
		t.Errorf("inspect messages = %d, want %d", summary.Messages, outcome.Messages)
	}
	for step, n := range summary.Posts {
		if n != outcome.Posts[step] {
			t.Errorf("inspect step %d posts = %d, run reported %d", step, n, outcome.Posts[step])
		}
	}
	if _, err := execute(t, "runs", "inspect", filepath.Join(outDir, "missing.jsonl")); err == nil {
		t.Error("inspecting a missing export should fail")
	}

	list, err := execute(t, "runs", "list", "--config", configPath)
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	if !strings.Contains(list, "smoke") || !strings.Contains(list, "completed") {
		t.Errorf("runs list missing run: %s", list)
	}

	show, err := execute(t, "runs", "show", fmt.Sprint(outcome.RunID), "--config", configPath)
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	if !strings.Contains(show, "Average word strength") {
		t.Errorf("runs show missing strengths: %s", show)
	}

	if _, err := execute(t, "runs", "show", "999", "--output", outDir); err == nil {
		t.Error("showing a missing run should fail")
	}

	pruned, err := execute(t, "runs", "prune", "--keep", "0", "--output", outDir, "--json")
	if err != nil {
		t.Fatalf("runs prune: %v", err)
	}
	if !strings.Contains(pruned, fmt.Sprintf("%d", outcome.RunID)) {
		t.Errorf("prune did not report run %d: %s", outcome.RunID, pruned)
	}
	if _, err := execute(t, "runs", "prune", "--output", outDir); err == nil {
		t.Error("prune without a policy should fail")
	}
}

func TestRunIsReproducible(t *testing.T) {
	configPath, _ := writeFixture(t)

	run := func() runOutcome {
		t.Helper()
		out, err := execute(t, "run", "--config", configPath, "--json", "--top", "0")
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		var o runOutcome
		if err := json.Unmarshal([]byte(out), &o); err != nil {
			t.Fatalf("decode outcome: %v", err)
		}
		return o
	}

	a, b := run(), run()
	if a.Messages != b.Messages || a.Deliveries != b.Deliveries {
		t.Errorf("runs differ: %d/%d messages, %d/%d deliveries", a.Messages, b.Messages, a.Deliveries, b.Deliveries)
	}
	for i := range a.Strengths {
		if a.Strengths[i] != b.Strengths[i] {
			t.Errorf("strength %d differs: %+v vs %+v", i, a.Strengths[i], b.Strengths[i])
		}
	}
	if b.RunID != a.RunID+1 {
		t.Errorf("run ids %d, %d; want consecutive", a.RunID, b.RunID)
	}
}

func TestRunMissingEmbeddings(t *testing.T) {
	configPath, _ := writeFixture(t)
	t.Setenv("HEADWINDS_VOCABULARY", "unicorn,dragon")

	_, err := execute(t, "run", "--config", configPath)
	if err == nil || !strings.Contains(err.Error(), "embeddings") {
		t.Errorf("run error = %v, want embeddings failure", err)
	}
}
