// Package domain defines the core entities of the perpetuals event mirror and
// the store/bus interfaces the ingestion pipeline depends on.
package domain

import "time"

// Market mirrors an on-chain perpetuals market created by the trading engine.
// Numeric vAMM parameters are kept as decimal strings because they originate
// as uint256 values and are never used for arithmetic off-chain.
type Market struct {
	ID                string // surrogate key (uuid)
	MarketID          string // on-chain market id (bytes32 hex), unique
	Name              string
	Description       string
	BaseAsset         string
	QuoteAsset        string
	MaxLeverage       int
	KValue            string // x * y = k invariant
	BaseReserve       string
	QuoteReserve      string
	MaintenanceMargin string
	TakerFee          string
	MakerFee          string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
