package domain

import "encoding/json"

// Bus channels carrying real-time updates to WebSocket subscribers.
const (
	ChannelPositions = "positions"
	ChannelTrades    = "trades"
)

// Message types published on the bus.
const (
	MsgTypeTrade          = "TRADE"
	MsgTypePositionOpened = "POSITION_OPENED"
	MsgTypePositionClosed = "POSITION_CLOSED"
	MsgTypeLiquidation    = "LIQUIDATION"
)

// WireMessage is the envelope for every payload published on the bus and
// delivered verbatim to WebSocket clients.
type WireMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Encode marshals the message for publishing.
func (m WireMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// PositionOpenedData is the payload for MsgTypePositionOpened.
type PositionOpenedData struct {
	PositionID string `json:"positionId"`
	Trader     string `json:"trader"`
	MarketID   string `json:"marketId"`
	Side       Side   `json:"side"`
	Size       string `json:"size"`
	Leverage   int    `json:"leverage"`
}

// PositionClosedData is the payload for MsgTypePositionClosed.
type PositionClosedData struct {
	PositionID string `json:"positionId"`
	Trader     string `json:"trader"`
	Pnl        string `json:"pnl"`
}

// LiquidationData is the payload for MsgTypeLiquidation.
type LiquidationData struct {
	PositionID string `json:"positionId"`
	Trader     string `json:"trader"`
	Liquidator string `json:"liquidator"`
	Penalty    string `json:"penalty"`
}

// TradeData is the payload for MsgTypeTrade. Timestamp is Unix milliseconds.
type TradeData struct {
	MarketID  string `json:"marketId"`
	Side      Side   `json:"side"`
	Size      string `json:"size"`
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}
