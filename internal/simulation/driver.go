package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/headwinds/internal/agent"
	"github.com/nvandessel/headwinds/internal/logging"
	"github.com/nvandessel/headwinds/internal/socialgraph"
)

var (
	// ErrMissingAgent is returned when a graph node has no agent.
	ErrMissingAgent = errors.New("graph node has no agent")

	// ErrFinished is returned by Step once every configured step has run.
	ErrFinished = errors.New("simulation already finished")
)

// Config controls the stepping loop.
type Config struct {
	// Steps is the number of discrete time steps. Default: 1000.
	Steps int

	// PostProbability is the chance each agent posts in a step. Range: [0, 1].
	// Default: 0.01.
	PostProbability float64

	// Seed feeds the post-decision random stream. Default: 42.
	Seed uint64

	// Workers bounds the goroutines used inside each phase. Values <= 1 run
	// both phases sequentially. Results are identical either way.
	Workers int
}

// DefaultConfig returns the default stepping configuration.
func DefaultConfig() Config {
	return Config{
		Steps:           1000,
		PostProbability: 0.01,
		Seed:            42,
		Workers:         1,
	}
}

// Validate checks the stepping configuration.
func (c Config) Validate() error {
	if c.Steps < 0 {
		return fmt.Errorf("steps must be >= 0, got %d", c.Steps)
	}
	if c.PostProbability < 0 || c.PostProbability > 1 {
		return fmt.Errorf("post probability must be in [0, 1], got %g", c.PostProbability)
	}
	return nil
}

// StepResult summarizes one step.
type StepResult struct {
	Step       int
	Posted     []agent.Message
	Deliveries int
}

// Result is the outcome of a run.
type Result struct {
	// Steps is the number of steps completed.
	Steps int

	// Messages is every message posted, in posting order.
	Messages []agent.Message

	// Deliveries is the total number of (message, follower) deliveries.
	Deliveries int

	// Agents is the population in graph node order.
	Agents []*agent.Agent

	Elapsed time.Duration
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithTrace sets the JSONL message trace.
func WithTrace(mt *logging.MessageTrace) Option {
	return func(d *Driver) { d.trace = mt }
}

// WithObserver registers a callback invoked after every completed step.
func WithObserver(fn func(StepResult)) Option {
	return func(d *Driver) { d.observer = fn }
}

// Driver runs the two-phase stepping protocol over a social graph.
//
// Each step first lets every agent decide whether to post and composes all
// posts against the state as it stood at the start of the step (Phase 1),
// then delivers every post to the sender's followers in posting order
// (Phase 2). No receive happens until every send of the step is known, so
// a post cannot influence another agent's post in the same step.
//
// A Driver is not safe for concurrent use.
type Driver struct {
	graph  socialgraph.Graph
	agents map[int]*agent.Agent
	order  []int
	cfg    Config
	rng    *rand.Rand

	step       int
	nextID     int64
	log        []agent.Message
	deliveries int
	elapsed    time.Duration

	logger   *slog.Logger
	trace    *logging.MessageTrace
	observer func(StepResult)
}

// New returns a driver over g. Every node of g must have exactly one agent
// with the same ID; extra agents are ignored.
func New(g socialgraph.Graph, agents []*agent.Agent, cfg Config, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	byID := make(map[int]*agent.Agent, len(agents))
	for _, a := range agents {
		if _, dup := byID[a.ID()]; dup {
			return nil, fmt.Errorf("duplicate agent id %d", a.ID())
		}
		byID[a.ID()] = a
	}

	nodes := g.Nodes()
	for _, id := range nodes {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: node %d", ErrMissingAgent, id)
		}
	}

	d := &Driver{
		graph:  g,
		agents: byID,
		order:  nodes,
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(cfg.Seed, 0x706f_7374)),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// CurrentStep returns the index of the next step to run.
func (d *Driver) CurrentStep() int { return d.step }

// Done reports whether every configured step has run.
func (d *Driver) Done() bool { return d.step >= d.cfg.Steps }

// Messages returns a copy of the global message log.
func (d *Driver) Messages() []agent.Message {
	out := make([]agent.Message, len(d.log))
	copy(out, d.log)
	return out
}

// Agent returns the agent for id.
func (d *Driver) Agent(id int) (*agent.Agent, bool) {
	a, ok := d.agents[id]
	return a, ok
}

// Step runs one full step. Cancellation is only observed before Phase 1,
// so a step is never left half-delivered.
func (d *Driver) Step(ctx context.Context) (StepResult, error) {
	if d.Done() {
		return StepResult{}, ErrFinished
	}
	if err := ctx.Err(); err != nil {
		return StepResult{}, err
	}

	posted, err := d.post()
	if err != nil {
		return StepResult{}, fmt.Errorf("step %d: post: %w", d.step, err)
	}
	deliveries, err := d.deliver(posted)
	if err != nil {
		return StepResult{}, fmt.Errorf("step %d: deliver: %w", d.step, err)
	}

	res := StepResult{Step: d.step, Posted: posted, Deliveries: deliveries}
	d.deliveries += deliveries
	d.trace.Step(d.step, len(posted), deliveries)
	if len(posted) > 0 {
		d.logger.Debug("step complete", "step", d.step, "posted", len(posted), "deliveries", deliveries)
	}
	d.step++

	if d.observer != nil {
		d.observer(res)
	}
	return res, nil
}

// Run executes the remaining steps. On cancellation it returns the partial
// result together with the context error.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	d.logger.Info("simulation starting",
		"agents", len(d.order),
		"steps", d.cfg.Steps,
		"post_probability", d.cfg.PostProbability,
		"workers", d.cfg.Workers)

	start := time.Now()
	for !d.Done() {
		if _, err := d.Step(ctx); err != nil {
			d.elapsed += time.Since(start)
			d.logger.Warn("simulation stopped", "step", d.step, "error", err)
			return d.result(), err
		}
	}
	d.elapsed += time.Since(start)

	d.logger.Info("simulation finished",
		"steps", d.step,
		"messages", len(d.log),
		"deliveries", d.deliveries,
		"elapsed", d.elapsed.Round(time.Millisecond))
	return d.result(), nil
}

func (d *Driver) result() *Result {
	agents := make([]*agent.Agent, len(d.order))
	for i, id := range d.order {
		agents[i] = d.agents[id]
	}
	return &Result{
		Steps:      d.step,
		Messages:   d.Messages(),
		Deliveries: d.deliveries,
		Agents:     agents,
		Elapsed:    d.elapsed,
	}
}

// post is Phase 1. Post decisions are drawn sequentially in node order from
// the driver's stream, then the chosen agents compose their messages. Each
// Send touches only its own agent, so composition may run in parallel.
func (d *Driver) post() ([]agent.Message, error) {
	type job struct {
		sender *agent.Agent
		id     int64
	}

	var jobs []job
	for _, id := range d.order {
		if d.rng.Float64() < d.cfg.PostProbability {
			d.nextID++
			jobs = append(jobs, job{sender: d.agents[id], id: d.nextID})
		}
	}

	posted := make([]agent.Message, len(jobs))
	err := d.forEach(len(jobs), func(i int) {
		msg := jobs[i].sender.Send(jobs[i].id)
		msg.Step = d.step
		posted[i] = msg
	})
	if err != nil {
		return nil, err
	}

	d.log = append(d.log, posted...)
	return posted, nil
}

// deliver is Phase 2. Messages are routed to the sender's followers and
// grouped per follower, preserving posting order; followers are then
// processed independently.
func (d *Driver) deliver(posted []agent.Message) (int, error) {
	inbox := make(map[int][]agent.Message)
	var recipients []int
	deliveries := 0

	for _, msg := range posted {
		followers := d.graph.FollowersOf(msg.Sender)
		d.trace.Message(msg.Step, msg.ID, msg.Sender, msg.Content, msg.Vector, len(followers))

		for _, f := range followers {
			if f == msg.Sender {
				continue
			}
			if _, ok := inbox[f]; !ok {
				recipients = append(recipients, f)
			}
			inbox[f] = append(inbox[f], msg)
			deliveries++
		}
	}

	for _, f := range recipients {
		if _, ok := d.agents[f]; !ok {
			return 0, fmt.Errorf("%w: follower %d", ErrMissingAgent, f)
		}
	}

	err := d.forEach(len(recipients), func(i int) {
		f := recipients[i]
		a := d.agents[f]
		for _, msg := range inbox[f] {
			a.Receive(msg)
		}
	})
	return deliveries, err
}

// forEach calls fn for 0..n-1, on up to Workers goroutines.
func (d *Driver) forEach(n int, fn func(i int)) error {
	if d.cfg.Workers <= 1 || n < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	return g.Wait()
}
