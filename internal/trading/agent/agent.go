// Package agent defines the capability an agent must satisfy to
// participate in a simulation step. It deliberately contains no
// concrete agent implementations, which are out of this core's
// scope: only the scalar and numeric-array contracts, and the glue
// that applies an ArrayAgent's batch output to an environment.
package agent

import (
	"github.com/Aidin1998/bourse_engine/internal/trading/model"
	"github.com/Aidin1998/bourse_engine/internal/trading/orderbook"
	"github.com/Aidin1998/bourse_engine/internal/trading/rng"
)

// View is the read-only window onto a StepEnv's current state an
// agent receives for the forthcoming step, plus the narrow set of
// enqueue operations it is permitted to call. Agents are invoked in
// the order the runner holds them, but the order in which their
// instructions execute is determined solely by the post-shuffle
// queue: nothing about View lets an agent observe or rely on
// submission order.
type View interface {
	Level2Data() orderbook.Level2Data
	Time() model.Nanos
	LiveOrders(trader model.TraderID) []model.OrderID

	PlaceOrder(side model.Side, vol model.Vol, trader model.TraderID, price model.Price, hasPrice bool) (model.OrderID, error)
	CancelOrder(id model.OrderID)
	ModifyOrder(id model.OrderID, newVol *model.Vol, newPrice *model.Price)
}

// Agent is the scalar capability contract: given its own sub-seeded
// RNG and a view onto the environment, Update may enqueue any number
// of instructions for the forthcoming step.
type Agent interface {
	Update(r *rng.RNG, env View)
}

// Action is one of the instruction tags the numeric-array agent
// variant encodes per slot.
type Action int32

const (
	// ActionNoop: the slot carries no instruction.
	ActionNoop Action = 0
	// ActionNewLimit: place a new limit order; Side, Vol, Trader and
	// Price are read, OrderID is ignored.
	ActionNewLimit Action = 1
	// ActionCancel: cancel an existing order; OrderID is read, the
	// remaining fields are ignored.
	ActionCancel Action = 2
)

// ArrayBatch is one numeric-array agent's proposed instructions for
// the forthcoming step: parallel arrays of equal length, one slot per
// instruction, interpreted per the Action tags above.
type ArrayBatch struct {
	Actions []Action
	Sides   []model.Side
	Vols    []model.Vol
	Traders []model.TraderID
	Prices  []model.Price
	Orders  []model.OrderID
}

// ArrayAgent is the batch form of Agent: it consumes a flattened
// level-2 array and the current time and returns an ArrayBatch,
// semantically equivalent to a scalar agent issuing the same calls in
// slot order.
type ArrayAgent interface {
	UpdateArray(r *rng.RNG, level2 []float64, time model.Nanos) ArrayBatch
}

// FlattenLevel2 lays out a Level2Data as the array a numpy-style
// agent consumes: for each side, touch-first, (price, vol, orders)
// triples for Level2Depth levels, bid side then ask side.
func FlattenLevel2(d orderbook.Level2Data) []float64 {
	out := make([]float64, 0, 6*orderbook.Level2Depth)
	for _, e := range d.Bid {
		out = append(out, float64(e.Price), float64(e.Vol), float64(e.Orders))
	}
	for _, e := range d.Ask {
		out = append(out, float64(e.Price), float64(e.Vol), float64(e.Orders))
	}
	return out
}

// ApplyArrayBatch enqueues the instructions an ArrayAgent returned
// onto env, in slot order. A slot whose Actions entry is out of range
// or whose parallel arrays are shorter than Actions is skipped rather
// than panicking, since a malformed batch should not be able to crash
// the step driver.
func ApplyArrayBatch(env View, batch ArrayBatch) {
	for i, action := range batch.Actions {
		switch action {
		case ActionNoop:
			continue
		case ActionNewLimit:
			if i >= len(batch.Sides) || i >= len(batch.Vols) || i >= len(batch.Traders) || i >= len(batch.Prices) {
				continue
			}
			_, _ = env.PlaceOrder(batch.Sides[i], batch.Vols[i], batch.Traders[i], batch.Prices[i], true)
		case ActionCancel:
			if i >= len(batch.Orders) {
				continue
			}
			env.CancelOrder(batch.Orders[i])
		}
	}
}
