package agent_test

import (
	"testing"

	"github.com/Aidin1998/bourse_engine/internal/trading/agent"
	"github.com/Aidin1998/bourse_engine/internal/trading/model"
	"github.com/Aidin1998/bourse_engine/internal/trading/stepenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenLevel2LayoutMatchesTouchFirstOrdering(t *testing.T) {
	env, err := stepenv.New(stepenv.Config{Seed: 1, StartTime: 0, TickSize: 1, StepSize: 1000}, nil, nil)
	require.NoError(t, err)

	_, err = env.PlaceOrder(model.Bid, 10, 1, 50, true)
	require.NoError(t, err)
	require.NoError(t, env.Step())

	flat := agent.FlattenLevel2(env.Level2Data())
	require.Len(t, flat, 2*10*3)
	assert.Equal(t, float64(50), flat[0])
	assert.Equal(t, float64(10), flat[1])
	assert.Equal(t, float64(1), flat[2])
}

func TestApplyArrayBatchEnqueuesNewLimitAndCancel(t *testing.T) {
	env, err := stepenv.New(stepenv.Config{Seed: 1, StartTime: 0, TickSize: 1, StepSize: 1000}, nil, nil)
	require.NoError(t, err)

	batch := agent.ArrayBatch{
		Actions: []agent.Action{agent.ActionNewLimit},
		Sides:   []model.Side{model.Bid},
		Vols:    []model.Vol{10},
		Traders: []model.TraderID{1},
		Prices:  []model.Price{50},
	}
	agent.ApplyArrayBatch(env, batch)
	require.NoError(t, env.Step())

	ob, _ := env.Book(stepenv.DefaultAsset)
	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.Equal(t, model.Price(50), bid)

	var id model.OrderID
	for _, o := range ob.Orders() {
		id = o.OrderID
	}
	cancelBatch := agent.ArrayBatch{
		Actions: []agent.Action{agent.ActionCancel},
		Orders:  []model.OrderID{id},
	}
	agent.ApplyArrayBatch(env, cancelBatch)
	require.NoError(t, env.Step())

	_, ok = ob.BestBid()
	assert.False(t, ok)
}

func TestApplyArrayBatchSkipsMalformedSlotsWithoutPanicking(t *testing.T) {
	env, err := stepenv.New(stepenv.Config{Seed: 1, StartTime: 0, TickSize: 1, StepSize: 1000}, nil, nil)
	require.NoError(t, err)

	batch := agent.ArrayBatch{Actions: []agent.Action{agent.ActionNewLimit, agent.ActionCancel}}
	assert.NotPanics(t, func() { agent.ApplyArrayBatch(env, batch) })
}
