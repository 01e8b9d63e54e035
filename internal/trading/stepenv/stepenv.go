// Package stepenv implements the discrete-event simulation driver:
// one or more OrderBooks, an instruction queue that agents enqueue
// into during a step and that is shuffled and applied at the step
// boundary, and a per-step market-data recorder. It is the StepEnv
// component of the core; see the orderbook package for the matching
// engine it drives.
package stepenv

import (
	"github.com/Aidin1998/bourse_engine/internal/trading/model"
	"github.com/Aidin1998/bourse_engine/internal/trading/orderbook"
	"github.com/Aidin1998/bourse_engine/internal/trading/rng"
	berrors "github.com/Aidin1998/bourse_engine/pkg/errors"
	"go.uber.org/zap"
)

// AssetID indexes one of the Env's order books. Single-asset callers
// can ignore it entirely: New wires in DefaultAsset and every
// convenience method operates on it implicitly.
type AssetID = uint32

// DefaultAsset is the book New's single-asset constructor creates and
// every unqualified PlaceOrder/CancelOrder/ModifyOrder call targets.
const DefaultAsset AssetID = 0

// Config is the Env's construction parameters.
type Config struct {
	// Seed drives the Env's own RNG, used only to shuffle each step's
	// instruction queue. Agents are sub-seeded independently by the
	// runner; this seed never leaks into agent behaviour.
	Seed uint64
	// StartTime is the clock reading every book starts at.
	StartTime model.Nanos
	// TickSize is the tick size every book is constructed with.
	TickSize uint64
	// StepSize is the clock distance advanced at each step boundary.
	// It must exceed the worst-case number of instructions applied in
	// a single step, since each instruction advances the clock by one
	// tick before being applied: the core does not cap or compress an
	// overrun, it simply leaves the clock running ahead of the next
	// step's nominal boundary (see Env.Step).
	StepSize model.Nanos
}

func (c Config) validate() error {
	if c.TickSize == 0 {
		return berrors.New(berrors.KindConfigError, "tick_size must be positive")
	}
	if c.StepSize == 0 {
		return berrors.New(berrors.KindConfigError, "step_size must be positive")
	}
	return nil
}

// LevelEntry and Level2Data re-export the orderbook package's depth
// types so callers of this package rarely need to import it directly.
type (
	LevelEntry = orderbook.LevelEntry
	Level2Data = orderbook.Level2Data
	Level1Data = orderbook.Level1Data
)

// StepRecord is one step's worth of recorded market data for a single
// asset: the touch, the full depth snapshot, the step's trade volume
// and mean trade price, and the clock reading the step ended on.
type StepRecord struct {
	Clock          model.Nanos
	Level1         Level1Data
	Level2         Level2Data
	TradeVolume    model.Vol
	MeanTradePrice float64
}

// Recording is the complete per-step time series an Env has gathered
// for one asset so far, as parallel arrays indexed by step number.
type Recording struct {
	BidPrices []model.Price
	HasBid    []bool
	AskPrices []model.Price
	HasAsk    []bool
	Steps     []StepRecord
}

// book is the per-asset state the Env drives: its order book, the
// history accumulated for it across steps, and the index into the
// book's trade log where the current step began.
type book struct {
	ob        *orderbook.OrderBook
	history   []StepRecord
	tradeMark int
}

// Env is the discrete-event simulation driver: it owns one RNG used
// only for shuffling, an indexed collection of order books (a single
// entry for the common single-asset case), and the instruction queue
// agents enqueue into ahead of each Step call.
type Env struct {
	cfg Config
	rng *rng.RNG

	books map[AssetID]*book
	queue []instruction

	log *zap.Logger
}

// New constructs a single-asset Env with book DefaultAsset.
func New(cfg Config, log *zap.Logger, metrics *orderbook.Metrics) (*Env, error) {
	return NewMultiAsset(cfg, []AssetID{DefaultAsset}, log, func(AssetID) *orderbook.Metrics { return metrics })
}

// NewMultiAsset constructs an Env with one independent order book per
// id in assets, all sharing the Env's single shuffle RNG and a common
// start_time/tick_size/step_size. metricsFor is called once per asset
// to obtain that book's *orderbook.Metrics (or nil); passing a
// constant func is fine when metrics aren't wired per-asset.
func NewMultiAsset(cfg Config, assets []AssetID, log *zap.Logger, metricsFor func(AssetID) *orderbook.Metrics) (*Env, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, berrors.New(berrors.KindConfigError, "at least one asset is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	env := &Env{
		cfg:   cfg,
		rng:   rng.New(cfg.Seed),
		books: make(map[AssetID]*book, len(assets)),
		log:   log,
	}
	for _, id := range assets {
		ob, err := orderbook.New(cfg.StartTime, cfg.TickSize, log, metricsFor(id))
		if err != nil {
			return nil, err
		}
		env.books[id] = &book{ob: ob}
	}
	return env, nil
}

func (e *Env) book(asset AssetID) (*book, error) {
	b, ok := e.books[asset]
	if !ok {
		return nil, berrors.New(berrors.KindConfigError, "unknown asset id")
	}
	return b, nil
}

// Book returns the underlying order book for asset, mainly for tests
// and direct read-only inspection; mutation should go through the
// enqueue operations below so effects are subject to per-step
// shuffling like every other instruction.
func (e *Env) Book(asset AssetID) (*orderbook.OrderBook, bool) {
	b, ok := e.books[asset]
	if !ok {
		return nil, false
	}
	return b.ob, true
}

// PlaceOrder enqueues a submit instruction on DefaultAsset and returns
// the order id reserved for it now, before the instruction has
// actually been applied. hasPrice=false places a market order.
func (e *Env) PlaceOrder(side model.Side, vol model.Vol, trader model.TraderID, price model.Price, hasPrice bool) (model.OrderID, error) {
	return e.PlaceOrderOn(DefaultAsset, side, vol, trader, price, hasPrice)
}

// PlaceOrderOn is PlaceOrder targeting a specific asset.
func (e *Env) PlaceOrderOn(asset AssetID, side model.Side, vol model.Vol, trader model.TraderID, price model.Price, hasPrice bool) (model.OrderID, error) {
	b, err := e.book(asset)
	if err != nil {
		return 0, err
	}
	kind := model.KindMarket
	if hasPrice {
		kind = model.KindLimit
	}
	id := b.ob.CreateOrder(side, kind, vol, trader, price, hasPrice)
	e.queue = append(e.queue, instruction{asset: asset, kind: instrNew, orderID: id})
	return id, nil
}

// EnableTrading resumes matching on DefaultAsset.
func (e *Env) EnableTrading() { e.EnableTradingOn(DefaultAsset) }

// EnableTradingOn is EnableTrading for a specific asset.
func (e *Env) EnableTradingOn(asset AssetID) {
	if b, err := e.book(asset); err == nil {
		b.ob.EnableTrading()
	}
}

// DisableTrading halts matching on DefaultAsset: queued limit orders
// still rest without being crossed, and market orders are rejected.
// Unlike submit/cancel/modify this takes effect immediately rather
// than being queued, since it is a venue-level control an agent does
// not contend with other agents' instructions for.
func (e *Env) DisableTrading() { e.DisableTradingOn(DefaultAsset) }

// DisableTradingOn is DisableTrading for a specific asset.
func (e *Env) DisableTradingOn(asset AssetID) {
	if b, err := e.book(asset); err == nil {
		b.ob.DisableTrading()
	}
}

// CancelOrder enqueues a cancel instruction on DefaultAsset.
func (e *Env) CancelOrder(id model.OrderID) {
	e.CancelOrderOn(DefaultAsset, id)
}

// CancelOrderOn is CancelOrder targeting a specific asset.
func (e *Env) CancelOrderOn(asset AssetID, id model.OrderID) {
	e.queue = append(e.queue, instruction{asset: asset, kind: instrCancel, orderID: id})
}

// ModifyOrder enqueues a modify instruction on DefaultAsset. A nil
// newVol or newPrice leaves that field unchanged.
func (e *Env) ModifyOrder(id model.OrderID, newVol *model.Vol, newPrice *model.Price) {
	e.ModifyOrderOn(DefaultAsset, id, newVol, newPrice)
}

// ModifyOrderOn is ModifyOrder targeting a specific asset.
func (e *Env) ModifyOrderOn(asset AssetID, id model.OrderID, newVol *model.Vol, newPrice *model.Price) {
	e.queue = append(e.queue, instruction{asset: asset, kind: instrModify, orderID: id, newVol: newVol, newPrice: newPrice})
}

// Step shuffles the queued instructions and applies each in turn,
// advancing the target book's clock by one tick first. It then jumps
// every book's clock to its own step boundary and records that book's
// per-step market data. The queue is empty again once Step returns.
func (e *Env) Step() error {
	queue := e.queue
	e.queue = nil
	e.rng.Shuffle(len(queue), func(i, j int) { queue[i], queue[j] = queue[j], queue[i] })

	for _, instr := range queue {
		b, err := e.book(instr.asset)
		if err != nil {
			e.log.Warn("dropping instruction for unknown asset", zap.Uint32("asset", instr.asset))
			continue
		}
		b.ob.SetTime(b.ob.GetTime() + 1)
		e.apply(b.ob, instr)
	}

	for _, b := range e.books {
		e.closeStep(b)
	}
	return nil
}

func (e *Env) apply(ob *orderbook.OrderBook, instr instruction) {
	switch instr.kind {
	case instrNew:
		ob.Admit(instr.orderID)
	case instrCancel:
		if err := ob.Cancel(instr.orderID); err != nil {
			e.log.Debug("cancel skipped", zap.Uint64("order_id", instr.orderID), zap.Error(err))
		}
	case instrModify:
		if err := ob.Modify(instr.orderID, instr.newVol, instr.newPrice); err != nil {
			e.log.Debug("modify skipped", zap.Uint64("order_id", instr.orderID), zap.Error(err))
		}
	}
}

// closeStep jumps b's clock to its step boundary and appends its
// recorded market data for the step that just completed.
func (e *Env) closeStep(b *book) {
	trades := b.ob.TradesSince(b.tradeMark)
	b.tradeMark = b.ob.TradeCount()
	var volume model.Vol
	var notional float64
	for _, t := range trades {
		volume += t.Volume
		notional += float64(t.Price) * float64(t.Volume)
	}
	b.ob.SetTime(e.stepBoundary(b))

	mean := 0.0
	if volume > 0 {
		mean = notional / float64(volume)
	}
	b.history = append(b.history, StepRecord{
		Clock:          b.ob.GetTime(),
		Level1:         b.ob.Level1(),
		Level2:         b.ob.Level2(),
		TradeVolume:    volume,
		MeanTradePrice: mean,
	})
}

// stepBoundary returns the next step boundary for b, derived from the
// step count already recorded for it rather than its live clock
// (which may have overrun past the boundary mid-step).
func (e *Env) stepBoundary(b *book) model.Nanos {
	return e.cfg.StartTime + model.Nanos(len(b.history)+1)*e.cfg.StepSize
}

// Level1Data returns the current touch on DefaultAsset.
func (e *Env) Level1Data() Level1Data { return e.Level1DataOn(DefaultAsset) }

// Level1DataOn is Level1Data for a specific asset.
func (e *Env) Level1DataOn(asset AssetID) Level1Data {
	b, err := e.book(asset)
	if err != nil {
		return Level1Data{}
	}
	return b.ob.Level1()
}

// Level2Data returns the current depth snapshot on DefaultAsset.
func (e *Env) Level2Data() Level2Data { return e.Level2DataOn(DefaultAsset) }

// Level2DataOn is Level2Data for a specific asset.
func (e *Env) Level2DataOn(asset AssetID) Level2Data {
	b, err := e.book(asset)
	if err != nil {
		return Level2Data{}
	}
	return b.ob.Level2()
}

// Time returns DefaultAsset's current clock reading.
func (e *Env) Time() model.Nanos { return e.TimeOn(DefaultAsset) }

// TimeOn is Time for a specific asset.
func (e *Env) TimeOn(asset AssetID) model.Nanos {
	b, err := e.book(asset)
	if err != nil {
		return 0
	}
	return b.ob.GetTime()
}

// LiveOrders returns trader's currently resident order ids on
// DefaultAsset, satisfying the agent view's requirement to expose an
// agent's own live orders without handing it the whole book.
func (e *Env) LiveOrders(trader model.TraderID) []model.OrderID {
	return e.LiveOrdersOn(DefaultAsset, trader)
}

// LiveOrdersOn is LiveOrders for a specific asset.
func (e *Env) LiveOrdersOn(asset AssetID, trader model.TraderID) []model.OrderID {
	b, err := e.book(asset)
	if err != nil {
		return nil
	}
	var ids []model.OrderID
	for _, o := range b.ob.Orders() {
		if o.TraderID == trader && o.Status.Resident() {
			ids = append(ids, o.OrderID)
		}
	}
	return ids
}

// GetPrices returns DefaultAsset's recorded bid/ask price series.
func (e *Env) GetPrices() (bid, ask []model.Price) {
	r := e.Recording()
	return r.BidPrices, r.AskPrices
}

// GetMarketData returns DefaultAsset's full recorded step series.
func (e *Env) GetMarketData() []StepRecord {
	return e.Recording().Steps
}

// Recording returns the complete recorded time series for DefaultAsset.
func (e *Env) Recording() Recording { return e.RecordingOn(DefaultAsset) }

// RecordingOn is Recording for a specific asset.
func (e *Env) RecordingOn(asset AssetID) Recording {
	b, err := e.book(asset)
	if err != nil {
		return Recording{}
	}
	rec := Recording{Steps: append([]StepRecord(nil), b.history...)}
	for _, s := range b.history {
		rec.BidPrices = append(rec.BidPrices, s.Level1.BidPrice)
		rec.HasBid = append(rec.HasBid, s.Level1.HasBid)
		rec.AskPrices = append(rec.AskPrices, s.Level1.AskPrice)
		rec.HasAsk = append(rec.HasAsk, s.Level1.HasAsk)
	}
	return rec
}
