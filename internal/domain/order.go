package domain

import "time"

// OrderType distinguishes market and limit orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusExpired   OrderStatus = "EXPIRED"
)

// Order mirrors an on-chain order. Orders are created by the excluded REST
// layer; the ingestion core only updates them to FILLED when the matching
// TradeExecuted event arrives.
type Order struct {
	ID           string // surrogate key (uuid)
	OrderID      string // on-chain order id (bytes32 hex), unique
	MarketID     string // references Market.ID
	PositionID   *string
	UserAddress  string
	Side         Side
	Type         OrderType
	Size         string
	Price        *string // nil for market orders
	Leverage     int
	FilledSize   string
	AvgFillPrice *string
	Fee          string
	Status       OrderStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    *time.Time
}
