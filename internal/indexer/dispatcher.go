package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// handlerFunc processes one raw log whose topic matched the dispatch table.
type handlerFunc func(ctx context.Context, lg types.Log) error

// Dispatcher routes raw logs to the handler registered for their event
// signature. The table is static: it is built once from the parsed engine ABI,
// so every declared event has exactly one handler.
type Dispatcher struct {
	table map[common.Hash]handlerFunc
}

// NewDispatcher builds the signature -> handler table for all engine events.
func NewDispatcher(h *Handlers) *Dispatcher {
	return &Dispatcher{
		table: map[common.Hash]handlerFunc{
			engineABI.Events[EventMarketCreated].ID:  h.HandleMarketCreated,
			engineABI.Events[EventPositionOpened].ID: h.HandlePositionOpened,
			engineABI.Events[EventPositionClosed].ID: h.HandlePositionClosed,
			engineABI.Events[EventLiquidation].ID:    h.HandleLiquidation,
			engineABI.Events[EventTradeExecuted].ID:  h.HandleTradeExecuted,
		},
	}
}

// Dispatch routes one raw log by its first topic. Logs with an unknown
// signature are dropped without error; only matched handlers can fail.
func (d *Dispatcher) Dispatch(ctx context.Context, lg types.Log) error {
	if len(lg.Topics) == 0 {
		return nil
	}
	fn, ok := d.table[lg.Topics[0]]
	if !ok {
		return nil
	}
	return fn(ctx, lg)
}
