// Package batch runs independent simulation replicates concurrently.
// The core itself is single-threaded and cooperative (see the
// concurrency design notes): an OrderBook and a StepEnv hold no
// internal locking and cannot be shared across goroutines. A caller
// wishing to parallelise (a parameter sweep, or batched rollouts for
// RL training) must instead replicate the whole env-plus-agents
// state per goroutine, which is exactly what this package automates.
package batch

import (
	"github.com/Aidin1998/bourse_engine/internal/trading/agent"
	"github.com/Aidin1998/bourse_engine/internal/trading/runner"
	"github.com/Aidin1998/bourse_engine/internal/trading/stepenv"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Replicate describes one independent simulation run: its own Env and
// agent set, a seed, and a step count. Replicates share no state with
// each other, so they are safe to run on separate goroutines.
type Replicate struct {
	Env    *stepenv.Env
	Agents []agent.Agent
	Seed   uint64
	NSteps uint64
}

// RunAll runs every replicate to completion concurrently, bounded by
// at most maxGoroutines in flight at once (maxGoroutines<=0 means
// unbounded), and returns each replicate's recorded market data in
// the same order the replicates were given in, not the order they
// finish in.
func RunAll(replicates []Replicate, maxGoroutines int, log *zap.Logger) []stepenv.Recording {
	results := make([]stepenv.Recording, len(replicates))
	p := pool.New()
	if maxGoroutines > 0 {
		p = p.WithMaxGoroutines(maxGoroutines)
	}
	for i, r := range replicates {
		i, r := i, r
		p.Go(func() {
			if err := runner.Run(r.Env, r.Agents, r.NSteps, r.Seed, log); err != nil {
				return
			}
			results[i] = r.Env.Recording()
		})
	}
	p.Wait()
	return results
}
