package orderbook

import (
	"encoding/json"

	"github.com/Aidin1998/bourse_engine/internal/trading/model"
	berrors "github.com/Aidin1998/bourse_engine/pkg/errors"
	"go.uber.org/zap"
)

// OrderRecord is the wire form of a single order within a Snapshot.
type OrderRecord struct {
	OrderID         model.OrderID  `json:"order_id"`
	Side            bool           `json:"side"`
	Kind            string         `json:"kind"`
	Price           *model.Price   `json:"price,omitempty"`
	OriginalVolume  model.Vol      `json:"original_volume"`
	RemainingVolume model.Vol      `json:"remaining_volume"`
	TraderID        model.TraderID `json:"trader_id"`
	Status          string         `json:"status"`
	ArrivalTime     model.Nanos    `json:"arrival_time"`
}

// LevelRecord is one price level within a Snapshot ladder, listing its
// resident order ids in FIFO priority order.
type LevelRecord struct {
	Price    model.Price     `json:"price"`
	OrderIDs []model.OrderID `json:"order_ids"`
}

// Snapshot is the book's full serialisable state. Round-tripping
// through snapshot -> JSON -> Restore must be the identity on every
// observable: orders, ladders, trades and events.
type Snapshot struct {
	StartTime   model.Nanos   `json:"start_time"`
	TickSize    uint64        `json:"tick_size"`
	Trading     bool          `json:"trading"`
	Clock       model.Nanos   `json:"clock"`
	NextOrderID model.OrderID `json:"next_order_id"`
	Orders      []OrderRecord `json:"orders"`
	BidLadder   []LevelRecord `json:"bid_ladder"`
	AskLadder   []LevelRecord `json:"ask_ladder"`
	Trades      []model.Trade `json:"trades"`
	Events      []model.Event `json:"events"`
}

// Snapshot captures the book's complete current state.
func (ob *OrderBook) Snapshot() Snapshot {
	snap := Snapshot{
		StartTime:   ob.startTime,
		TickSize:    ob.tickSize,
		Trading:     ob.trading,
		Clock:       ob.clock.Now(),
		NextOrderID: model.OrderID(len(ob.arena)),
		Orders:      make([]OrderRecord, len(ob.arena)),
		Trades:      append([]model.Trade(nil), ob.trades...),
		Events:      append([]model.Event(nil), ob.events...),
	}
	for i, o := range ob.arena {
		rec := OrderRecord{
			OrderID:         o.OrderID,
			Side:            bool(o.Side),
			Kind:            o.Kind.String(),
			OriginalVolume:  o.OriginalVolume,
			RemainingVolume: o.RemainingVolume,
			TraderID:        o.TraderID,
			Status:          o.Status.String(),
			ArrivalTime:     o.ArrivalTime,
		}
		if o.HasPrice {
			p := o.Price
			rec.Price = &p
		}
		snap.Orders[i] = rec
	}
	ob.bids.Reverse(func(price model.Price, level *PriceLevel) bool {
		snap.BidLadder = append(snap.BidLadder, LevelRecord{Price: price, OrderIDs: level.OrderIDs()})
		return true
	})
	ob.asks.Scan(func(price model.Price, level *PriceLevel) bool {
		snap.AskLadder = append(snap.AskLadder, LevelRecord{Price: price, OrderIDs: level.OrderIDs()})
		return true
	})
	return snap
}

// MarshalSnapshot serialises a Snapshot to JSON in the format
// documented in the external interfaces section: a single object with
// start_time, tick_size, trading, clock, next_order_id, orders,
// bid_ladder, ask_ladder, trades and events.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSnapshot parses JSON produced by MarshalSnapshot.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, berrors.Wrap(berrors.KindConfigError, err).Explain("malformed snapshot: %s", err)
	}
	return s, nil
}

func parseKind(s string) (model.Kind, bool) {
	switch s {
	case "limit":
		return model.KindLimit, true
	case "market":
		return model.KindMarket, true
	case "cancel":
		return model.KindCancel, true
	case "modify":
		return model.KindModify, true
	default:
		return 0, false
	}
}

func parseStatus(s string) (model.Status, bool) {
	switch s {
	case "new":
		return model.StatusNew, true
	case "active":
		return model.StatusActive, true
	case "partially_filled":
		return model.StatusPartiallyFilled, true
	case "filled":
		return model.StatusFilled, true
	case "cancelled":
		return model.StatusCancelled, true
	case "rejected":
		return model.StatusRejected, true
	default:
		return 0, false
	}
}

// Restore builds a fresh book with state identical to the one that
// produced snap. A malformed snapshot (bad tick size, unknown
// kind/status strings, a ladder entry referencing an id outside the
// order array) fails the whole restore rather than yielding a
// partially-reconstructed book. log and metrics follow the same
// conventions as New; either may be nil.
func Restore(snap Snapshot, log *zap.Logger, metrics *Metrics) (*OrderBook, error) {
	ob, err := New(snap.StartTime, snap.TickSize, log, metrics)
	if err != nil {
		return nil, err
	}
	ob.trading = snap.Trading
	ob.clock = model.NewClock(snap.Clock)

	ob.arena = make([]*model.Order, len(snap.Orders))
	for i, rec := range snap.Orders {
		if rec.OrderID != model.OrderID(i) {
			return nil, berrors.New(berrors.KindConfigError, "snapshot orders must be listed in order_id order")
		}
		kind, ok := parseKind(rec.Kind)
		if !ok {
			return nil, berrors.New(berrors.KindConfigError, "unknown order kind in snapshot: "+rec.Kind)
		}
		status, ok := parseStatus(rec.Status)
		if !ok {
			return nil, berrors.New(berrors.KindConfigError, "unknown order status in snapshot: "+rec.Status)
		}
		o := &model.Order{
			OrderID:         rec.OrderID,
			Side:            model.Side(rec.Side),
			Kind:            kind,
			OriginalVolume:  rec.OriginalVolume,
			RemainingVolume: rec.RemainingVolume,
			TraderID:        rec.TraderID,
			Status:          status,
			ArrivalTime:     rec.ArrivalTime,
		}
		if rec.Price != nil {
			o.HasPrice = true
			o.Price = *rec.Price
		}
		ob.arena[i] = o
	}
	if int(snap.NextOrderID) != len(ob.arena) {
		return nil, berrors.New(berrors.KindConfigError, "next_order_id inconsistent with orders array length")
	}

	if err := ob.restoreLadder(snap.BidLadder, model.Bid); err != nil {
		return nil, err
	}
	if err := ob.restoreLadder(snap.AskLadder, model.Ask); err != nil {
		return nil, err
	}

	ob.trades = append([]model.Trade(nil), snap.Trades...)
	ob.events = append([]model.Event(nil), snap.Events...)
	return ob, nil
}

func (ob *OrderBook) restoreLadder(records []LevelRecord, side model.Side) error {
	ladder := ob.ladder(side)
	for _, rec := range records {
		level := newPriceLevel(rec.Price, side)
		for _, id := range rec.OrderIDs {
			if id >= uint64(len(ob.arena)) {
				return berrors.New(berrors.KindConfigError, "ladder references an order id outside the orders array")
			}
			order := ob.arena[id]
			if !order.Status.Resident() {
				return berrors.New(berrors.KindConfigError, "ladder references a non-resident order")
			}
			elem := level.Push(id, order.RemainingVolume)
			ob.where[id] = residence{level: level, elem: elem}
		}
		ladder.Set(rec.Price, level)
	}
	return nil
}
