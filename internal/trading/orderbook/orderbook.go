// Package orderbook implements a single-asset, price-time-priority
// limit order book: an order arena, side-indexed price ladders, and
// append-only trade/event logs. All operations are synchronous and
// single-threaded with no internal locking, matching the
// simulation-core's cooperative scheduling model.
package orderbook

import (
	"container/list"

	"github.com/Aidin1998/bourse_engine/internal/trading/model"
	berrors "github.com/Aidin1998/bourse_engine/pkg/errors"
	"github.com/tidwall/btree"
	"go.uber.org/zap"
)

// ladderDegree is the tidwall/btree node degree used for both price
// ladders.
const ladderDegree = 32

// residence records where a resident order lives so Cancel/Modify can
// unlink it in O(1) without walking the ladder.
type residence struct {
	level *PriceLevel
	elem  *list.Element
}

// OrderBook is a single-asset matching engine.
type OrderBook struct {
	startTime model.Nanos
	tickSize  uint64
	clock     model.Clock

	trading bool

	arena []*model.Order
	where map[model.OrderID]residence

	bids *btree.Map[model.Price, *PriceLevel] // iterate Reverse() for best-bid-first
	asks *btree.Map[model.Price, *PriceLevel] // iterate Scan() for best-ask-first

	trades []model.Trade
	events []model.Event

	log     *zap.Logger
	metrics *Metrics
}

// New constructs an empty book. tickSize must be a positive integer;
// every admitted limit price must be a multiple of it.
func New(startTime model.Nanos, tickSize uint64, log *zap.Logger, metrics *Metrics) (*OrderBook, error) {
	if tickSize == 0 {
		return nil, berrors.New(berrors.KindConfigError, "tick_size must be positive")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderBook{
		startTime: startTime,
		tickSize:  tickSize,
		clock:     model.NewClock(startTime),
		trading:   true,
		where:     make(map[model.OrderID]residence),
		bids:      btree.NewMap[model.Price, *PriceLevel](ladderDegree),
		asks:      btree.NewMap[model.Price, *PriceLevel](ladderDegree),
		log:       log,
		metrics:   metrics,
	}, nil
}

// EnableTrading resumes matching. New books start with trading enabled.
func (ob *OrderBook) EnableTrading() { ob.trading = true }

// DisableTrading halts matching: limit orders still rest without being
// crossed against the opposite side, and market orders are rejected
// outright rather than resting or cancelling. There is no uncrossing
// algorithm, so a book that was crossed before the halt stays crossed
// until trading resumes and a new aggressor walks through it.
func (ob *OrderBook) DisableTrading() { ob.trading = false }

// TradingEnabled reports the current halt state.
func (ob *OrderBook) TradingEnabled() bool { return ob.trading }

// GetTime returns the book's current clock reading.
func (ob *OrderBook) GetTime() model.Nanos { return ob.clock.Now() }

// SetTime advances the clock. The caller (the step driver) is
// responsible for only ever advancing time; t below the
// current clock value is a no-op rather than a panic, since rolling
// the clock backward cannot happen under correct StepEnv use and the
// core does not otherwise validate caller-internal invariants. This
// is also what makes step-size overrun safe: jumping to the next step
// boundary unconditionally at the end of a step never rewinds a clock
// that already ran past it mid-step.
func (ob *OrderBook) SetTime(t model.Nanos) {
	ob.clock.SetIfGreater(t)
}

// TickSize returns the configured tick size.
func (ob *OrderBook) TickSize() uint64 { return ob.tickSize }

// NextOrderID is the id that would be assigned by the next call to
// CreateOrder.
func (ob *OrderBook) NextOrderID() model.OrderID { return model.OrderID(len(ob.arena)) }

// Order looks up an order by id regardless of residency. ok is false
// for an id the book never issued.
func (ob *OrderBook) Order(id model.OrderID) (model.Order, bool) {
	if id >= uint64(len(ob.arena)) {
		return model.Order{}, false
	}
	return *ob.arena[id], true
}

// Orders returns every order the book has ever admitted, in id order.
func (ob *OrderBook) Orders() []model.Order {
	out := make([]model.Order, len(ob.arena))
	for i, o := range ob.arena {
		out[i] = *o
	}
	return out
}

// Trades returns the append-only trade log.
func (ob *OrderBook) Trades() []model.Trade { return append([]model.Trade(nil), ob.trades...) }

// Events returns the append-only event log.
func (ob *OrderBook) Events() []model.Event { return append([]model.Event(nil), ob.events...) }

// TradeCount is the current length of the trade log. StepEnv records
// it at step boundaries so per-step aggregates can be computed from
// TradesSince without copying the whole log each step.
func (ob *OrderBook) TradeCount() int { return len(ob.trades) }

// TradesSince returns the trades appended at or after index start.
func (ob *OrderBook) TradesSince(start int) []model.Trade {
	if start >= len(ob.trades) {
		return nil
	}
	return append([]model.Trade(nil), ob.trades[start:]...)
}

func (ob *OrderBook) emit(orderID model.OrderID, kind model.EventKind, reason string) {
	ob.events = append(ob.events, model.Event{
		Time:    ob.clock.Now(),
		OrderID: orderID,
		Kind:    kind,
		Reason:  reason,
	})
}

func (ob *OrderBook) ladder(side model.Side) *btree.Map[model.Price, *PriceLevel] {
	if side == model.Bid {
		return ob.bids
	}
	return ob.asks
}

// validatePrice checks a limit price against the tick size.
func validatePrice(price uint64, tickSize uint64) error {
	if price == 0 || price%tickSize != 0 {
		return berrors.New(berrors.KindInvalidPrice, "price must be a positive multiple of tick_size")
	}
	return nil
}

func validateVolume(vol model.Vol) error {
	if vol == 0 {
		return berrors.New(berrors.KindInvalidVolume, "volume must be positive")
	}
	return nil
}

// CreateOrder always succeeds: it appends a new arena slot with
// status New and returns its id without validating or matching it.
// This is the "reserved id" primitive StepEnv uses so an agent can
// learn an order's id before it has actually been admitted. Direct
// callers should prefer PlaceLimit/PlaceMarket, which validate before
// ever consuming an id.
func (ob *OrderBook) CreateOrder(side model.Side, kind model.Kind, vol model.Vol, trader model.TraderID, price model.Price, hasPrice bool) model.OrderID {
	id := model.OrderID(len(ob.arena))
	ob.arena = append(ob.arena, &model.Order{
		OrderID:         id,
		Side:            side,
		Kind:            kind,
		Price:           price,
		HasPrice:        hasPrice,
		OriginalVolume:  vol,
		RemainingVolume: vol,
		TraderID:        trader,
		Status:          model.StatusNew,
		ArrivalTime:     ob.clock.Now(),
	})
	return id
}

// Admit validates and, for limit/market orders, matches a
// previously-reserved order id. Validation failures never return an
// error here: they mark the order Rejected and append a Rejected
// event, because Admit is the deferred-apply path used from within a
// step, where nothing is synchronously waiting on a Go error.
func (ob *OrderBook) Admit(id model.OrderID) {
	order := ob.arena[id]
	// The id was reserved at enqueue time with the pre-step clock;
	// admission is now, after the driver advanced the clock for this
	// instruction, so the arrival stamp that decides time priority is
	// taken here.
	order.ArrivalTime = ob.clock.Now()
	switch order.Kind {
	case model.KindLimit:
		if err := validatePrice(order.Price, ob.tickSize); err != nil {
			ob.reject(order, err)
			return
		}
		if err := validateVolume(order.RemainingVolume); err != nil {
			ob.reject(order, err)
			return
		}
		ob.matchLimit(order)
	case model.KindMarket:
		if err := validateVolume(order.RemainingVolume); err != nil {
			ob.reject(order, err)
			return
		}
		ob.matchMarket(order)
	default:
		ob.reject(order, berrors.New(berrors.KindConfigError, "Admit called on a non-order instruction"))
	}
}

func (ob *OrderBook) reject(order *model.Order, err error) {
	order.Status = model.StatusRejected
	order.RemainingVolume = 0
	ob.emit(order.OrderID, model.EventRejected, err.Error())
	ob.log.Debug("order rejected",
		zap.Uint64("order_id", order.OrderID),
		zap.Error(err))
	if k, ok := err.(*berrors.Error); ok {
		ob.metrics.rejected(string(k.Kind))
	}
}

// PlaceLimit validates side/price/volume synchronously and, only if
// valid, creates and matches the order. On a validation error the
// book is left completely unchanged: no id is consumed.
func (ob *OrderBook) PlaceLimit(side model.Side, vol model.Vol, trader model.TraderID, price model.Price) (model.OrderID, error) {
	if err := validatePrice(price, ob.tickSize); err != nil {
		return 0, err
	}
	if err := validateVolume(vol); err != nil {
		return 0, err
	}
	ob.clock.SetIfGreater(ob.clock.Now() + 1)
	id := ob.CreateOrder(side, model.KindLimit, vol, trader, price, true)
	ob.matchLimit(ob.arena[id])
	return id, nil
}

// PlaceMarket validates volume synchronously and, only if valid,
// creates and matches the order with IOC semantics.
func (ob *OrderBook) PlaceMarket(side model.Side, vol model.Vol, trader model.TraderID) (model.OrderID, error) {
	if err := validateVolume(vol); err != nil {
		return 0, err
	}
	ob.clock.SetIfGreater(ob.clock.Now() + 1)
	id := ob.CreateOrder(side, model.KindMarket, vol, trader, 0, false)
	ob.matchMarket(ob.arena[id])
	return id, nil
}

func (ob *OrderBook) matchLimit(order *model.Order) {
	if ob.trading {
		opp := ob.ladder(oppositeSide(order.Side))
		ob.cross(order, opp, order.Price, true)
	}
	if order.RemainingVolume > 0 {
		ob.rest(order)
	} else {
		order.Status = model.StatusFilled
		ob.emit(order.OrderID, model.EventFilled, "")
	}
	ob.metrics.admitted(order.Side.String(), order.Kind.String())
}

func (ob *OrderBook) matchMarket(order *model.Order) {
	if !ob.trading {
		order.Status = model.StatusRejected
		order.RemainingVolume = 0
		ob.emit(order.OrderID, model.EventRejected, "trading halted")
		ob.metrics.admitted(order.Side.String(), order.Kind.String())
		return
	}
	opp := ob.ladder(oppositeSide(order.Side))
	limit := model.MarketAskPrice
	if order.Side == model.Bid {
		limit = model.MarketBidPrice
	}
	ob.cross(order, opp, limit, false)
	if order.RemainingVolume > 0 {
		// IOC: any unfilled remainder is cancelled, never rests.
		order.Status = model.StatusCancelled
		order.RemainingVolume = 0
		ob.emit(order.OrderID, model.EventCancelled, "unfilled market remainder")
	} else {
		order.Status = model.StatusFilled
		ob.emit(order.OrderID, model.EventFilled, "")
	}
	ob.metrics.admitted(order.Side.String(), order.Kind.String())
}

// crosses reports whether the aggressor's limit still permits trading
// against level's price.
func crosses(side model.Side, aggressorLimit, levelPrice model.Price) bool {
	if side == model.Bid {
		return levelPrice <= aggressorLimit
	}
	return levelPrice >= aggressorLimit
}

// cross walks opp from its best level outward, filling the aggressor
// against resting orders while crossing. aggressorLimit is the
// aggressor's own price for a limit order, or a market-order sentinel
// that always crosses.
func (ob *OrderBook) cross(aggressor *model.Order, opp *btree.Map[model.Price, *PriceLevel], aggressorLimit model.Price, isLimit bool) {
	var emptied []model.Price
	// A bid aggressor crosses the ask ladder ascending (best ask
	// first); an ask aggressor crosses the bid ladder descending
	// (best bid first).
	walk := opp.Reverse
	if aggressor.Side == model.Bid {
		walk = opp.Scan
	}

	walk(func(price model.Price, level *PriceLevel) bool {
		if aggressor.RemainingVolume == 0 {
			return false
		}
		if isLimit && !crosses(aggressor.Side, aggressorLimit, price) {
			return false
		}
		for aggressor.RemainingVolume > 0 {
			elem := level.Front()
			if elem == nil {
				break
			}
			restingID := elem.Value.(model.OrderID)
			resting := ob.arena[restingID]
			fill := min32(aggressor.RemainingVolume, resting.RemainingVolume)
			ob.trades = append(ob.trades, model.Trade{
				Time:             ob.clock.Now(),
				Price:            price,
				Volume:           fill,
				AggressorOrderID: aggressor.OrderID,
				RestingOrderID:   resting.OrderID,
				AggressorSide:    aggressor.Side,
			})
			ob.metrics.trade(float64(fill))

			aggressor.RemainingVolume -= fill
			resting.RemainingVolume -= fill
			level.decreaseVolume(fill)

			if aggressor.RemainingVolume > 0 {
				aggressor.Status = model.StatusPartiallyFilled
			}
			if resting.RemainingVolume == 0 {
				resting.Status = model.StatusFilled
				level.Remove(elem, 0)
				delete(ob.where, restingID)
				ob.emit(restingID, model.EventFilled, "")
			} else {
				resting.Status = model.StatusPartiallyFilled
				ob.emit(restingID, model.EventPartialFill, "")
			}
		}
		if level.Empty() {
			emptied = append(emptied, price)
		}
		return aggressor.RemainingVolume > 0
	})

	for _, price := range emptied {
		opp.Delete(price)
	}
	ob.metrics.depth(ob.bids.Len(), ob.asks.Len())
}

func min32(a, b model.Vol) model.Vol {
	if a < b {
		return a
	}
	return b
}

func oppositeSide(s model.Side) model.Side {
	if s == model.Bid {
		return model.Ask
	}
	return model.Bid
}

// rest inserts order as a new resting order at its own price, on its
// own side, appended to that level's FIFO.
func (ob *OrderBook) rest(order *model.Order) {
	ladder := ob.ladder(order.Side)
	level, ok := ladder.Get(order.Price)
	if !ok {
		level = newPriceLevel(order.Price, order.Side)
		ladder.Set(order.Price, level)
	}
	elem := level.Push(order.OrderID, order.RemainingVolume)
	ob.where[order.OrderID] = residence{level: level, elem: elem}
	if order.Status == model.StatusNew {
		order.Status = model.StatusActive
	}
	ob.emit(order.OrderID, model.EventResting, "")
	ob.metrics.depth(ob.bids.Len(), ob.asks.Len())
}

// Cancel removes order id from its level if resident. Unknown ids are
// an error; an already-terminal order is a no-op that still emits a
// cancel-noop event and returns nil, so repeated cancels of the same
// id converge on the same state.
func (ob *OrderBook) Cancel(id model.OrderID) error {
	if id >= uint64(len(ob.arena)) {
		return berrors.New(berrors.KindUnknownOrderId, "cancel references an id the book never issued")
	}
	order := ob.arena[id]
	if !order.Status.Resident() {
		ob.emit(id, model.EventCancelNoop, string(berrors.KindStaleOrderId))
		return nil
	}
	ob.unlink(order)
	order.Status = model.StatusCancelled
	order.RemainingVolume = 0
	ob.emit(id, model.EventCancelled, "")
	ob.metrics.cancel()
	return nil
}

func (ob *OrderBook) unlink(order *model.Order) {
	res, ok := ob.where[order.OrderID]
	if !ok {
		return
	}
	res.level.Remove(res.elem, order.RemainingVolume)
	delete(ob.where, order.OrderID)
	if res.level.Empty() {
		ob.ladder(order.Side).Delete(res.level.Price)
	}
}

// Modify changes a resident order's volume and/or price. A downward
// volume-only change preserves queue position and arrival_time. A
// volume increase, or any price change, is cancel-then-resubmit and
// so loses time priority; if the resubmit crosses it matches as a new
// aggressor. Failures leave the original order completely untouched.
func (ob *OrderBook) Modify(id model.OrderID, newVol *model.Vol, newPrice *model.Price) error {
	if id >= uint64(len(ob.arena)) {
		return berrors.New(berrors.KindUnknownOrderId, "modify references an id the book never issued")
	}
	order := ob.arena[id]
	if !order.Status.Resident() {
		ob.emit(id, model.EventCancelNoop, string(berrors.KindStaleOrderId))
		return nil
	}
	vol := order.RemainingVolume
	if newVol != nil {
		vol = *newVol
	}
	price := order.Price
	if newPrice != nil {
		price = *newPrice
	}
	if err := validateVolume(vol); err != nil {
		return err
	}
	if order.Kind == model.KindLimit {
		if err := validatePrice(price, ob.tickSize); err != nil {
			return err
		}
	}

	priceChanged := newPrice != nil && price != order.Price
	volIncreased := newVol != nil && vol > order.RemainingVolume

	if !priceChanged && !volIncreased {
		// Pure downward (or unchanged) volume edit: preserve FIFO
		// position and arrival_time in place.
		res := ob.where[order.OrderID]
		delta := order.RemainingVolume - vol
		res.level.decreaseVolume(delta)
		order.RemainingVolume = vol
		ob.metrics.modify()
		return nil
	}

	// Price change or volume increase: cancel then resubmit, which
	// loses time priority and may match as a new aggressor.
	ob.unlink(order)
	order.RemainingVolume = vol
	order.Price = price
	order.ArrivalTime = ob.clock.Now()
	order.Status = model.StatusNew
	switch order.Kind {
	case model.KindLimit:
		ob.matchLimit(order)
	case model.KindMarket:
		ob.matchMarket(order)
	}
	ob.metrics.modify()
	return nil
}

// Level1Data is the touch: best bid/ask price, volume and order count
// on each side.
type Level1Data struct {
	BidPrice  model.Price
	HasBid    bool
	BidVol    model.Vol
	BidOrders int
	AskPrice  model.Price
	HasAsk    bool
	AskVol    model.Vol
	AskOrders int
}

// BestBid returns the best (highest) resting bid price, if any.
func (ob *OrderBook) BestBid() (model.Price, bool) {
	var price model.Price
	var found bool
	ob.bids.Reverse(func(p model.Price, _ *PriceLevel) bool {
		price, found = p, true
		return false
	})
	return price, found
}

// BestAsk returns the best (lowest) resting ask price, if any.
func (ob *OrderBook) BestAsk() (model.Price, bool) {
	var price model.Price
	var found bool
	ob.asks.Scan(func(p model.Price, _ *PriceLevel) bool {
		price, found = p, true
		return false
	})
	return price, found
}

// Level1 returns the current touch on both sides.
func (ob *OrderBook) Level1() Level1Data {
	var d Level1Data
	ob.bids.Reverse(func(p model.Price, level *PriceLevel) bool {
		d.BidPrice, d.HasBid = p, true
		d.BidVol = level.TotalVolume()
		d.BidOrders = level.OrderCount()
		return false
	})
	ob.asks.Scan(func(p model.Price, level *PriceLevel) bool {
		d.AskPrice, d.HasAsk = p, true
		d.AskVol = level.TotalVolume()
		d.AskOrders = level.OrderCount()
		return false
	})
	return d
}

// LevelEntry is one (price, volume, order-count) triple within a
// Level2Data side.
type LevelEntry struct {
	Price  model.Price
	Vol    model.Vol
	Orders int
}

// Level2Depth is the number of price levels per side reported by
// Level2, counting the touch as the first.
const Level2Depth = 10

// Level2Data is the touch plus the next Level2Depth-1 levels per side,
// zero-padded when the ladder is shallower than Level2Depth.
type Level2Data struct {
	Bid [Level2Depth]LevelEntry
	Ask [Level2Depth]LevelEntry
}

// Level2 returns the book's depth snapshot.
func (ob *OrderBook) Level2() Level2Data {
	var d Level2Data
	i := 0
	ob.bids.Reverse(func(p model.Price, level *PriceLevel) bool {
		if i >= Level2Depth {
			return false
		}
		d.Bid[i] = LevelEntry{Price: p, Vol: level.TotalVolume(), Orders: level.OrderCount()}
		i++
		return i < Level2Depth
	})
	j := 0
	ob.asks.Scan(func(p model.Price, level *PriceLevel) bool {
		if j >= Level2Depth {
			return false
		}
		d.Ask[j] = LevelEntry{Price: p, Vol: level.TotalVolume(), Orders: level.OrderCount()}
		j++
		return j < Level2Depth
	})
	return d
}

// BidVol and AskVol sum remaining_volume resident across the whole
// ladder on the named side.
func (ob *OrderBook) BidVol() model.Vol { return ladderVol(ob.bids) }
func (ob *OrderBook) AskVol() model.Vol { return ladderVol(ob.asks) }

func ladderVol(m *btree.Map[model.Price, *PriceLevel]) model.Vol {
	var total model.Vol
	m.Scan(func(_ model.Price, level *PriceLevel) bool {
		total += level.TotalVolume()
		return true
	})
	return total
}
