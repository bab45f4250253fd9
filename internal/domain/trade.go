package domain

import "time"

// Trade is one executed fill, append-only. The (TxHash, LogIndex) pair
// identifies the emitting log uniquely, which makes re-ingestion of the same
// block range idempotent.
type Trade struct {
	ID          string // surrogate key (uuid)
	TxHash      string
	BlockNumber int64
	LogIndex    int
	MarketID    string // references Market.ID
	UserAddress string
	Side        Side
	Size        string
	Price       string
	Fee         string
	ExecutedAt  time.Time
}
