// Package simulation drives the agent population through discrete time
// steps over a social graph.
//
// Each step is a two-phase barrier: every agent first decides whether to
// post and composes its post against the state at the start of the step,
// then every post is delivered to the sender's followers. Results are
// reproducible for a fixed seed regardless of the worker count.
//
// Usage:
//
//	d, err := simulation.Scenario{
//	    Store:   table,
//	    Agents:  500,
//	    Params:  agent.DefaultParams(),
//	    Culture: &cultureCfg,
//	    Config:  simulation.DefaultConfig(),
//	}.Build(simulation.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	result, err := d.Run(ctx)
package simulation
