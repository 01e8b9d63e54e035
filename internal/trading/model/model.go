// Package model defines the order, trade and event types shared by the
// order book and the step simulation packages. Every monetary, volume,
// time and identifier field is a non-negative integer; there is no
// floating point anywhere in the core.
package model

import "fmt"

// Side is the side of the book an order rests on or trades against.
type Side bool

const (
	Ask Side = false
	Bid Side = true
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// Kind distinguishes the four instruction/order shapes the book
// accepts. Cancel and Modify are instructions that mutate an existing
// order and never themselves become book-resident.
type Kind int

const (
	KindLimit Kind = iota
	KindMarket
	KindCancel
	KindModify
)

func (k Kind) String() string {
	switch k {
	case KindLimit:
		return "limit"
	case KindMarket:
		return "market"
	case KindCancel:
		return "cancel"
	case KindModify:
		return "modify"
	default:
		return "unknown"
	}
}

// Status is an order's position in its state machine.
//
//	new -> active on admission without immediate fill
//	new|active -> partially_filled on a fill that leaves a remainder
//	new|active|partially_filled -> filled on full consumption
//	active|partially_filled -> cancelled on cancel or IOC cleanup
//	new -> rejected on validation failure
//
// filled, cancelled and rejected are terminal.
type Status int

const (
	StatusNew Status = iota
	StatusActive
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusActive:
		return "active"
	case StatusPartiallyFilled:
		return "partially_filled"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Resident reports whether an order in this status still occupies a
// price level queue.
func (s Status) Resident() bool {
	return s == StatusActive || s == StatusPartiallyFilled
}

// Terminal reports whether this status can never transition again.
func (s Status) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusRejected
}

// OrderID is a unique, non-reusable, monotonically assigned order
// identifier. Ids are arena indices, not address identities, and
// remain valid for queries for the life of the book even once an
// order is no longer resident.
type OrderID = uint64

// Price is an integer tick count. MarketBidPrice and MarketAskPrice
// are used internally to mark the "infinite crossing price" of a
// market order; they are never reported to callers as an order's
// Price.
type Price = uint64

// Vol is an order volume.
type Vol = uint32

// TraderID identifies the agent or user that submitted an order.
type TraderID = uint32

// Nanos is a monotonic clock reading.
type Nanos = uint64

// MarketBidPrice and MarketAskPrice are the sentinel crossing prices
// used internally while matching market orders: a market buy crosses
// at any ask price, a market sell crosses at any bid price.
const (
	MarketBidPrice Price = ^Price(0)
	MarketAskPrice Price = 0
)

// Order is a single limit or market order tracked by the book. Only
// limit and market orders are ever constructed as Order values; cancel
// and modify are instructions, not orders (see Kind).
type Order struct {
	OrderID         OrderID
	Side            Side
	Kind            Kind
	Price           Price
	HasPrice        bool
	OriginalVolume  Vol
	RemainingVolume Vol
	TraderID        TraderID
	Status          Status
	ArrivalTime     Nanos
}

// Trade is an append-only record of a single match between an
// incoming aggressor and a resting order. The json tags are the
// snapshot wire format.
type Trade struct {
	Time             Nanos   `json:"time"`
	Price            Price   `json:"price"`
	Volume           Vol     `json:"volume"`
	AggressorOrderID OrderID `json:"aggressor_order_id"`
	RestingOrderID   OrderID `json:"resting_order_id"`
	AggressorSide    Side    `json:"aggressor_side"`
}

// EventKind enumerates the externally-visible order state transitions
// the book records. Every admission ends in exactly one of resting,
// filled, cancelled (an unfilled market remainder) or rejected, so the
// log carries one entry per accepted or refused submission without a
// separate "accepted" kind.
type EventKind int

const (
	EventResting EventKind = iota
	EventPartialFill
	EventFilled
	EventCancelled
	EventCancelNoop
	EventRejected
)

func (k EventKind) String() string {
	switch k {
	case EventResting:
		return "resting"
	case EventPartialFill:
		return "partial_fill"
	case EventFilled:
		return "filled"
	case EventCancelled:
		return "cancelled"
	case EventCancelNoop:
		return "cancel_noop"
	case EventRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// MarshalText serialises the kind by name so snapshot JSON stays
// readable and stable if the enum is ever reordered.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name produced by MarshalText.
func (k *EventKind) UnmarshalText(text []byte) error {
	for _, candidate := range []EventKind{EventResting, EventPartialFill, EventFilled, EventCancelled, EventCancelNoop, EventRejected} {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", string(text))
}

// Event is a single append-only log entry for an externally-visible
// order state transition.
type Event struct {
	Time    Nanos     `json:"time"`
	OrderID OrderID   `json:"order_id"`
	Kind    EventKind `json:"kind"`
	Reason  string    `json:"reason,omitempty"`
}
