// Package runner implements the fixed-length outer loop: invoke each
// agent with its own deterministically sub-seeded RNG, drain their
// instructions into the environment, then advance one step.
package runner

import (
	"github.com/Aidin1998/bourse_engine/internal/trading/agent"
	"github.com/Aidin1998/bourse_engine/internal/trading/rng"
	"github.com/Aidin1998/bourse_engine/internal/trading/stepenv"
	"go.uber.org/zap"
)

// Run drives env for nSteps steps against agents. A master RNG is
// seeded from seed; each agent gets an independently, deterministically
// derived sub-RNG every step (keyed on the step number and the
// agent's position in agents), so the trajectory is reproducible
// across runs for fixed (seed, agents, env configuration) regardless
// of anything else that draws from the master stream.
func Run(env *stepenv.Env, agents []agent.Agent, nSteps uint64, seed uint64, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	master := rng.New(seed)
	for step := uint64(0); step < nSteps; step++ {
		for i, a := range agents {
			if a == nil {
				continue
			}
			a.Update(master.Sub(step, uint64(i)), env)
		}
		if err := env.Step(); err != nil {
			log.Warn("step failed", zap.Uint64("step", step), zap.Error(err))
			return err
		}
	}
	return nil
}

// RunArray is Run for numeric-array agents: each one's batch output
// is applied to env via agent.ApplyArrayBatch before the step is
// advanced, which is semantically equivalent to a scalar Agent
// issuing the same calls in slot order.
func RunArray(env *stepenv.Env, agents []agent.ArrayAgent, nSteps uint64, seed uint64, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	master := rng.New(seed)
	for step := uint64(0); step < nSteps; step++ {
		level2 := agent.FlattenLevel2(env.Level2Data())
		t := env.Time()
		for i, a := range agents {
			if a == nil {
				continue
			}
			batch := a.UpdateArray(master.Sub(step, uint64(i)), level2, t)
			agent.ApplyArrayBatch(env, batch)
		}
		if err := env.Step(); err != nil {
			log.Warn("step failed", zap.Uint64("step", step), zap.Error(err))
			return err
		}
	}
	return nil
}
