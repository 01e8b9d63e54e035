package stepenv

import (
	"testing"

	"github.com/Aidin1998/bourse_engine/internal/trading/model"
	"github.com/Aidin1998/bourse_engine/internal/trading/orderbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T, stepSize model.Nanos) *Env {
	env, err := New(Config{Seed: 101, StartTime: 0, TickSize: 1, StepSize: stepSize}, nil, nil)
	require.NoError(t, err)
	return env
}

func TestStepAppliesQueuedOrdersAndAdvancesClock(t *testing.T) {
	env := newTestEnv(t, 1000)

	_, err := env.PlaceOrder(model.Bid, 10, 101, 10, true)
	require.NoError(t, err)
	_, err = env.PlaceOrder(model.Ask, 20, 101, 20, true)
	require.NoError(t, err)

	require.NoError(t, env.Step())

	ob, ok := env.Book(DefaultAsset)
	require.True(t, ok)

	bid, _ := ob.BestBid()
	ask, _ := ob.BestAsk()
	assert.Equal(t, model.Price(10), bid)
	assert.Equal(t, model.Price(20), ask)
	assert.Len(t, ob.Orders(), 2)
	assert.Equal(t, model.StatusActive, ob.Orders()[0].Status)
	assert.Equal(t, model.StatusActive, ob.Orders()[1].Status)
	assert.Equal(t, model.Nanos(1000), ob.GetTime())

	_, err = env.PlaceOrder(model.Bid, 10, 101, 11, true)
	require.NoError(t, err)
	_, err = env.PlaceOrder(model.Ask, 20, 101, 21, true)
	require.NoError(t, err)

	require.NoError(t, env.Step())

	bid, _ = ob.BestBid()
	ask, _ = ob.BestAsk()
	assert.Equal(t, model.Price(11), bid)
	assert.Equal(t, model.Price(20), ask)
	assert.Len(t, ob.Orders(), 4)
	assert.Equal(t, model.Nanos(2000), ob.GetTime())

	_, err = env.PlaceOrder(model.Bid, 30, 101, 0, false)
	require.NoError(t, err)

	require.NoError(t, env.Step())

	bid, _ = ob.BestBid()
	ask, _ = ob.BestAsk()
	assert.Equal(t, model.Price(11), bid)
	assert.Equal(t, model.Price(21), ask)
	assert.Equal(t, model.Vol(10), ob.AskVol())
	assert.Len(t, ob.Orders(), 5)
	assert.Equal(t, model.StatusFilled, ob.Orders()[1].Status)
	assert.Equal(t, model.StatusFilled, ob.Orders()[4].Status)
	assert.Len(t, ob.Trades(), 2)
	assert.Equal(t, model.Nanos(3000), ob.GetTime())

	recording := env.Recording()
	assert.Equal(t, []model.Price{10, 11, 11}, recording.BidPrices)
	assert.Equal(t, []model.Price{20, 20, 21}, recording.AskPrices)

	var tradeVols []model.Vol
	for _, s := range recording.Steps {
		tradeVols = append(tradeVols, s.TradeVolume)
	}
	assert.Equal(t, []model.Vol{0, 0, 30}, tradeVols)
}

func TestReservedOrderIDCanBeCancelledSameStep(t *testing.T) {
	env := newTestEnv(t, 1000)

	id, err := env.PlaceOrder(model.Bid, 10, 1, 50, true)
	require.NoError(t, err)
	env.CancelOrder(id)

	require.NoError(t, env.Step())

	ob, _ := env.Book(DefaultAsset)
	order, ok := ob.Order(id)
	require.True(t, ok)
	assert.True(t, order.Status == model.StatusCancelled || order.Status == model.StatusActive)
}

func TestStepSizeOverrunDoesNotRewindClock(t *testing.T) {
	env := newTestEnv(t, 1)

	for i := 0; i < 5; i++ {
		_, err := env.PlaceOrder(model.Bid, 1, 1, 50, true)
		require.NoError(t, err)
	}

	require.NoError(t, env.Step())

	ob, _ := env.Book(DefaultAsset)
	assert.Equal(t, model.Nanos(5), ob.GetTime())

	// A later step boundary (start_time + 2*step_size = 2) is already
	// behind the overrun clock; the clock must not be rewound to it.
	require.NoError(t, env.Step())
	assert.Equal(t, model.Nanos(5), ob.GetTime())
}

func TestDisableTradingHaltsMatchingThroughTheEnv(t *testing.T) {
	env := newTestEnv(t, 1000)
	env.DisableTrading()

	_, err := env.PlaceOrder(model.Bid, 10, 1, 50, true)
	require.NoError(t, err)
	_, err = env.PlaceOrder(model.Ask, 10, 2, 50, true)
	require.NoError(t, err)
	mktID, err := env.PlaceOrder(model.Ask, 5, 3, 0, false)
	require.NoError(t, err)

	require.NoError(t, env.Step())

	ob, _ := env.Book(DefaultAsset)
	assert.Empty(t, ob.Trades())
	mkt, ok := ob.Order(mktID)
	require.True(t, ok)
	assert.Equal(t, model.StatusRejected, mkt.Status)

	// Both limits rest, locking the book at 50 on both sides.
	bid, _ := ob.BestBid()
	ask, _ := ob.BestAsk()
	assert.Equal(t, model.Price(50), bid)
	assert.Equal(t, model.Price(50), ask)

	env.EnableTrading()
	_, err = env.PlaceOrder(model.Ask, 1, 4, 50, true)
	require.NoError(t, err)
	require.NoError(t, env.Step())
	assert.Len(t, ob.Trades(), 1)
}

func TestMultiAssetBooksAreIndependentBehindOneQueue(t *testing.T) {
	const (
		assetA AssetID = 0
		assetB AssetID = 1
	)
	env, err := NewMultiAsset(
		Config{Seed: 5, StartTime: 0, TickSize: 1, StepSize: 1000},
		[]AssetID{assetA, assetB},
		nil,
		func(AssetID) *orderbook.Metrics { return nil },
	)
	require.NoError(t, err)

	_, err = env.PlaceOrderOn(assetA, model.Bid, 10, 1, 50, true)
	require.NoError(t, err)
	_, err = env.PlaceOrderOn(assetB, model.Ask, 7, 2, 60, true)
	require.NoError(t, err)
	_, err = env.PlaceOrderOn(assetB, model.Bid, 7, 3, 60, true)
	require.NoError(t, err)

	require.NoError(t, env.Step())

	// Asset A only ever saw the lone bid; asset B's pair crossed
	// regardless of how its instructions interleaved with A's in the
	// shuffled queue.
	l1a := env.Level1DataOn(assetA)
	assert.True(t, l1a.HasBid)
	assert.Equal(t, model.Price(50), l1a.BidPrice)
	assert.False(t, l1a.HasAsk)

	bookA, ok := env.Book(assetA)
	require.True(t, ok)
	bookB, ok := env.Book(assetB)
	require.True(t, ok)
	assert.Empty(t, bookA.Trades())
	require.Len(t, bookB.Trades(), 1)
	assert.Equal(t, model.Price(60), bookB.Trades()[0].Price)
	assert.Equal(t, model.Vol(7), bookB.Trades()[0].Volume)

	// Each book ticked only for its own instructions, then both jumped
	// to the shared step boundary.
	assert.Equal(t, model.Nanos(1000), env.TimeOn(assetA))
	assert.Equal(t, model.Nanos(1000), env.TimeOn(assetB))

	recA := env.RecordingOn(assetA)
	recB := env.RecordingOn(assetB)
	require.Len(t, recA.Steps, 1)
	require.Len(t, recB.Steps, 1)
	assert.Equal(t, model.Vol(0), recA.Steps[0].TradeVolume)
	assert.Equal(t, model.Vol(7), recB.Steps[0].TradeVolume)
}

func TestLiveOrdersReportsOnlyResidentOrdersForTrader(t *testing.T) {
	env := newTestEnv(t, 1000)

	idA, err := env.PlaceOrder(model.Bid, 10, 1, 50, true)
	require.NoError(t, err)
	idB, err := env.PlaceOrder(model.Bid, 10, 2, 49, true)
	require.NoError(t, err)
	require.NoError(t, env.Step())

	live := env.LiveOrders(1)
	assert.Equal(t, []model.OrderID{idA}, live)
	assert.NotContains(t, live, idB)
}
