package simulation

import (
	"fmt"

	"github.com/nvandessel/headwinds/internal/agent"
	"github.com/nvandessel/headwinds/internal/culture"
	"github.com/nvandessel/headwinds/internal/embeddings"
	"github.com/nvandessel/headwinds/internal/socialgraph"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name string

	// Store supplies the base vectors and the shared vocabulary.
	Store embeddings.Store

	// Agents is the population size; agents get IDs 0..Agents-1.
	Agents int

	// Params are the per-agent dynamics. Params.Seed is overwritten with
	// Config.Seed so a scenario is reproducible from a single seed.
	Params agent.Params

	// Profiles, when non-nil, gives each agent an explicit cultural profile
	// and must have Agents entries. Otherwise Culture is used, and when
	// Culture is also nil every agent is unbiased.
	Profiles []culture.Profile
	Culture  *culture.GeneratorConfig

	// Graph, when non-nil, is used as-is. Otherwise a random graph is
	// generated from GraphConfig.
	Graph       socialgraph.Graph
	GraphConfig socialgraph.GenerateConfig

	Config Config
}

// Population builds the scenario's agents in ID order.
func (s Scenario) Population() ([]*agent.Agent, error) {
	if s.Store == nil {
		return nil, fmt.Errorf("scenario %q: no embedding store", s.Name)
	}
	if s.Agents < 0 {
		return nil, fmt.Errorf("scenario %q: agent count must be >= 0, got %d", s.Name, s.Agents)
	}

	profiles, err := s.profiles()
	if err != nil {
		return nil, err
	}

	params := s.Params
	params.Seed = s.Config.Seed

	agents := make([]*agent.Agent, s.Agents)
	for id := range agents {
		a, err := agent.New(id, s.Store, profiles[id], params)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		agents[id] = a
	}
	return agents, nil
}

func (s Scenario) profiles() ([]culture.Profile, error) {
	switch {
	case s.Profiles != nil:
		if len(s.Profiles) != s.Agents {
			return nil, fmt.Errorf("scenario %q: %d profiles for %d agents", s.Name, len(s.Profiles), s.Agents)
		}
		return s.Profiles, nil
	case s.Culture != nil:
		if err := s.Culture.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %q: culture: %w", s.Name, err)
		}
		gen := culture.NewGenerator(s.Store.Vocabulary(), *s.Culture, s.Config.Seed)
		return gen.Profiles(s.Agents), nil
	default:
		out := make([]culture.Profile, s.Agents)
		for i := range out {
			out[i] = culture.Neutral()
		}
		return out, nil
	}
}

// SocialGraph returns the scenario's graph, generating it when unset.
func (s Scenario) SocialGraph() (socialgraph.Graph, error) {
	if s.Graph != nil {
		return s.Graph, nil
	}
	g, err := socialgraph.Generate(s.Agents, s.GraphConfig, s.Config.Seed)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: graph: %w", s.Name, err)
	}
	return g, nil
}

// Build constructs the population and graph and returns a ready Driver.
func (s Scenario) Build(opts ...Option) (*Driver, error) {
	agents, err := s.Population()
	if err != nil {
		return nil, err
	}
	g, err := s.SocialGraph()
	if err != nil {
		return nil, err
	}
	return New(g, agents, s.Config, opts...)
}
