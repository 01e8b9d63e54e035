package orderbook

import (
	"container/list"

	"github.com/Aidin1998/bourse_engine/internal/trading/model"
)

// PriceLevel is the FIFO of resident orders at a single price on one
// side of the book. Orders are held in arrival-time order (earliest
// first); removal is O(1) given the *list.Element returned by Push.
type PriceLevel struct {
	Price model.Price
	Side  model.Side

	queue       *list.List // Value is model.OrderID
	totalVolume model.Vol
}

func newPriceLevel(price model.Price, side model.Side) *PriceLevel {
	return &PriceLevel{
		Price: price,
		Side:  side,
		queue: list.New(),
	}
}

// Push appends an order id to the back of the FIFO and returns the
// handle needed to remove it again in O(1).
func (pl *PriceLevel) Push(id model.OrderID, vol model.Vol) *list.Element {
	pl.totalVolume += vol
	return pl.queue.PushBack(id)
}

// Remove unlinks elem from the FIFO, decrementing the level's total
// resident volume by vol (the order's remaining volume at the time of
// removal).
func (pl *PriceLevel) Remove(elem *list.Element, vol model.Vol) {
	pl.queue.Remove(elem)
	pl.totalVolume -= vol
}

// Front returns the element at the head of the FIFO, or nil if empty.
func (pl *PriceLevel) Front() *list.Element {
	return pl.queue.Front()
}

// Empty reports whether the level has no resident orders.
func (pl *PriceLevel) Empty() bool {
	return pl.queue.Len() == 0
}

// OrderCount is the number of resident orders at this level.
func (pl *PriceLevel) OrderCount() int {
	return pl.queue.Len()
}

// TotalVolume is the sum of remaining_volume over resident orders at
// this level.
func (pl *PriceLevel) TotalVolume() model.Vol {
	return pl.totalVolume
}

// OrderIDs returns the resident order ids in FIFO (priority) order.
// Used by snapshot serialisation.
func (pl *PriceLevel) OrderIDs() []model.OrderID {
	ids := make([]model.OrderID, 0, pl.queue.Len())
	for e := pl.queue.Front(); e != nil; e = e.Next() {
		ids = append(ids, e.Value.(model.OrderID))
	}
	return ids
}

// decreaseVolume adjusts the level's cached total when a resident
// order is partially filled or its volume is reduced in place.
func (pl *PriceLevel) decreaseVolume(by model.Vol) {
	pl.totalVolume -= by
}
