package stepenv

import "github.com/Aidin1998/bourse_engine/internal/trading/model"

// instrKind distinguishes the three instruction shapes an agent can
// enqueue. A submit instruction carries an order id reserved at
// enqueue time (see OrderBook.CreateOrder); cancel and modify
// reference an order id that must already be known to the caller.
type instrKind int

const (
	instrNew instrKind = iota
	instrCancel
	instrModify
)

// instruction is one queued, not-yet-applied mutation targeting a
// single asset's book. The queue holding these is shuffled as a whole
// at the start of every step, so instructions for different assets
// interleave in the shuffled order exactly as they would have if each
// asset had its own queue.
type instruction struct {
	asset   AssetID
	kind    instrKind
	orderID model.OrderID

	newVol   *model.Vol
	newPrice *model.Price
}
