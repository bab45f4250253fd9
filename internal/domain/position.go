package domain

import "time"

// Side is the direction of a position, order, or trade.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// PositionStatus is the lifecycle state of a position. Transitions are only
// OPEN -> CLOSED or OPEN -> LIQUIDATED, never reversed.
type PositionStatus string

const (
	PositionStatusOpen       PositionStatus = "OPEN"
	PositionStatusClosed     PositionStatus = "CLOSED"
	PositionStatusLiquidated PositionStatus = "LIQUIDATED"
)

// Position mirrors an on-chain perpetuals position.
type Position struct {
	ID               string // surrogate key (uuid)
	PositionID       string // on-chain position id (bytes32 hex), unique
	MarketID         string // references Market.ID
	UserAddress      string
	Side             Side
	Size             string
	EntryPrice       string
	Margin           string
	Leverage         int
	LiquidationPrice string
	UnrealizedPnl    string
	RealizedPnl      string
	Status           PositionStatus
	OpenedAt         time.Time
	ClosedAt         *time.Time
}
