package indexer

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Event names as declared by the PerpetualEngine contract.
const (
	EventMarketCreated  = "MarketCreated"
	EventPositionOpened = "PositionOpened"
	EventPositionClosed = "PositionClosed"
	EventLiquidation    = "Liquidation"
	EventTradeExecuted  = "TradeExecuted"
)

// engineABIJSON declares the five PerpetualEngine events the mirror ingests.
// Only events appear here; the contract's functions are irrelevant off-chain.
const engineABIJSON = `[
	{"type":"event","name":"MarketCreated","inputs":[
		{"name":"marketId","type":"bytes32","indexed":true},
		{"name":"name","type":"string","indexed":false},
		{"name":"baseAsset","type":"string","indexed":false},
		{"name":"maxLeverage","type":"uint256","indexed":false},
		{"name":"kValue","type":"uint256","indexed":false},
		{"name":"baseReserve","type":"uint256","indexed":false},
		{"name":"quoteReserve","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"PositionOpened","inputs":[
		{"name":"positionId","type":"bytes32","indexed":true},
		{"name":"trader","type":"address","indexed":true},
		{"name":"marketId","type":"bytes32","indexed":true},
		{"name":"isLong","type":"bool","indexed":false},
		{"name":"size","type":"uint256","indexed":false},
		{"name":"margin","type":"uint256","indexed":false},
		{"name":"leverage","type":"uint256","indexed":false},
		{"name":"entryPrice","type":"uint256","indexed":false},
		{"name":"liquidationPrice","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"PositionClosed","inputs":[
		{"name":"positionId","type":"bytes32","indexed":true},
		{"name":"trader","type":"address","indexed":true},
		{"name":"pnl","type":"int256","indexed":false}
	]},
	{"type":"event","name":"Liquidation","inputs":[
		{"name":"positionId","type":"bytes32","indexed":true},
		{"name":"trader","type":"address","indexed":true},
		{"name":"liquidator","type":"address","indexed":true},
		{"name":"penalty","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"TradeExecuted","inputs":[
		{"name":"orderId","type":"bytes32","indexed":true},
		{"name":"trader","type":"address","indexed":true},
		{"name":"marketId","type":"bytes32","indexed":true},
		{"name":"isLong","type":"bool","indexed":false},
		{"name":"size","type":"uint256","indexed":false},
		{"name":"price","type":"uint256","indexed":false},
		{"name":"fee","type":"uint256","indexed":false}
	]}
]`

// engineABI is the parsed PerpetualEngine event ABI. Topic hashes for the
// dispatch table come from its Events map.
var engineABI = mustParseABI(engineABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("indexer: parse engine ABI: %v", err))
	}
	return parsed
}

// ---------------------------------------------------------------------------
// Decoded event types. Indexed arguments come from log topics, the rest from
// ABI-unpacked log data.
// ---------------------------------------------------------------------------

// MarketCreatedEvent is the decoded MarketCreated log.
type MarketCreatedEvent struct {
	MarketID     common.Hash
	Name         string
	BaseAsset    string
	MaxLeverage  *big.Int
	KValue       *big.Int
	BaseReserve  *big.Int
	QuoteReserve *big.Int
}

// PositionOpenedEvent is the decoded PositionOpened log.
type PositionOpenedEvent struct {
	PositionID       common.Hash
	Trader           common.Address
	MarketID         common.Hash
	IsLong           bool
	Size             *big.Int
	Margin           *big.Int
	Leverage         *big.Int
	EntryPrice       *big.Int
	LiquidationPrice *big.Int
}

// PositionClosedEvent is the decoded PositionClosed log. Pnl is signed.
type PositionClosedEvent struct {
	PositionID common.Hash
	Trader     common.Address
	Pnl        *big.Int
}

// LiquidationEvent is the decoded Liquidation log.
type LiquidationEvent struct {
	PositionID common.Hash
	Trader     common.Address
	Liquidator common.Address
	Penalty    *big.Int
}

// TradeExecutedEvent is the decoded TradeExecuted log.
type TradeExecutedEvent struct {
	OrderID  common.Hash
	Trader   common.Address
	MarketID common.Hash
	IsLong   bool
	Size     *big.Int
	Price    *big.Int
	Fee      *big.Int
}

func decodeMarketCreated(lg types.Log) (MarketCreatedEvent, error) {
	var ev MarketCreatedEvent
	if len(lg.Topics) < 2 {
		return ev, fmt.Errorf("indexer: MarketCreated log %s#%d: not enough topics", lg.TxHash, lg.Index)
	}
	ev.MarketID = lg.Topics[1]

	vals, err := unpackData(EventMarketCreated, lg)
	if err != nil {
		return ev, err
	}
	if ev.Name, err = argString(vals, 0); err != nil {
		return ev, decodeErr(EventMarketCreated, lg, err)
	}
	if ev.BaseAsset, err = argString(vals, 1); err != nil {
		return ev, decodeErr(EventMarketCreated, lg, err)
	}
	if ev.MaxLeverage, err = argBig(vals, 2); err != nil {
		return ev, decodeErr(EventMarketCreated, lg, err)
	}
	if ev.KValue, err = argBig(vals, 3); err != nil {
		return ev, decodeErr(EventMarketCreated, lg, err)
	}
	if ev.BaseReserve, err = argBig(vals, 4); err != nil {
		return ev, decodeErr(EventMarketCreated, lg, err)
	}
	if ev.QuoteReserve, err = argBig(vals, 5); err != nil {
		return ev, decodeErr(EventMarketCreated, lg, err)
	}
	return ev, nil
}

func decodePositionOpened(lg types.Log) (PositionOpenedEvent, error) {
	var ev PositionOpenedEvent
	if len(lg.Topics) < 4 {
		return ev, fmt.Errorf("indexer: PositionOpened log %s#%d: not enough topics", lg.TxHash, lg.Index)
	}
	ev.PositionID = lg.Topics[1]
	ev.Trader = common.BytesToAddress(lg.Topics[2].Bytes())
	ev.MarketID = lg.Topics[3]

	vals, err := unpackData(EventPositionOpened, lg)
	if err != nil {
		return ev, err
	}
	if ev.IsLong, err = argBool(vals, 0); err != nil {
		return ev, decodeErr(EventPositionOpened, lg, err)
	}
	if ev.Size, err = argBig(vals, 1); err != nil {
		return ev, decodeErr(EventPositionOpened, lg, err)
	}
	if ev.Margin, err = argBig(vals, 2); err != nil {
		return ev, decodeErr(EventPositionOpened, lg, err)
	}
	if ev.Leverage, err = argBig(vals, 3); err != nil {
		return ev, decodeErr(EventPositionOpened, lg, err)
	}
	if ev.EntryPrice, err = argBig(vals, 4); err != nil {
		return ev, decodeErr(EventPositionOpened, lg, err)
	}
	if ev.LiquidationPrice, err = argBig(vals, 5); err != nil {
		return ev, decodeErr(EventPositionOpened, lg, err)
	}
	return ev, nil
}

func decodePositionClosed(lg types.Log) (PositionClosedEvent, error) {
	var ev PositionClosedEvent
	if len(lg.Topics) < 3 {
		return ev, fmt.Errorf("indexer: PositionClosed log %s#%d: not enough topics", lg.TxHash, lg.Index)
	}
	ev.PositionID = lg.Topics[1]
	ev.Trader = common.BytesToAddress(lg.Topics[2].Bytes())

	vals, err := unpackData(EventPositionClosed, lg)
	if err != nil {
		return ev, err
	}
	if ev.Pnl, err = argBig(vals, 0); err != nil {
		return ev, decodeErr(EventPositionClosed, lg, err)
	}
	return ev, nil
}

func decodeLiquidation(lg types.Log) (LiquidationEvent, error) {
	var ev LiquidationEvent
	if len(lg.Topics) < 4 {
		return ev, fmt.Errorf("indexer: Liquidation log %s#%d: not enough topics", lg.TxHash, lg.Index)
	}
	ev.PositionID = lg.Topics[1]
	ev.Trader = common.BytesToAddress(lg.Topics[2].Bytes())
	ev.Liquidator = common.BytesToAddress(lg.Topics[3].Bytes())

	vals, err := unpackData(EventLiquidation, lg)
	if err != nil {
		return ev, err
	}
	if ev.Penalty, err = argBig(vals, 0); err != nil {
		return ev, decodeErr(EventLiquidation, lg, err)
	}
	return ev, nil
}

func decodeTradeExecuted(lg types.Log) (TradeExecutedEvent, error) {
	var ev TradeExecutedEvent
	if len(lg.Topics) < 4 {
		return ev, fmt.Errorf("indexer: TradeExecuted log %s#%d: not enough topics", lg.TxHash, lg.Index)
	}
	ev.OrderID = lg.Topics[1]
	ev.Trader = common.BytesToAddress(lg.Topics[2].Bytes())
	ev.MarketID = lg.Topics[3]

	vals, err := unpackData(EventTradeExecuted, lg)
	if err != nil {
		return ev, err
	}
	if ev.IsLong, err = argBool(vals, 0); err != nil {
		return ev, decodeErr(EventTradeExecuted, lg, err)
	}
	if ev.Size, err = argBig(vals, 1); err != nil {
		return ev, decodeErr(EventTradeExecuted, lg, err)
	}
	if ev.Price, err = argBig(vals, 2); err != nil {
		return ev, decodeErr(EventTradeExecuted, lg, err)
	}
	if ev.Fee, err = argBig(vals, 3); err != nil {
		return ev, decodeErr(EventTradeExecuted, lg, err)
	}
	return ev, nil
}

// unpackData decodes the non-indexed arguments of the named event from the
// log data section.
func unpackData(event string, lg types.Log) ([]any, error) {
	vals, err := engineABI.Events[event].Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil {
		return nil, decodeErr(event, lg, err)
	}
	return vals, nil
}

func decodeErr(event string, lg types.Log, err error) error {
	return fmt.Errorf("indexer: decode %s log %s#%d: %w", event, lg.TxHash, lg.Index, err)
}

func argString(vals []any, i int) (string, error) {
	if i >= len(vals) {
		return "", fmt.Errorf("argument %d missing", i)
	}
	s, ok := vals[i].(string)
	if !ok {
		return "", fmt.Errorf("argument %d: expected string, got %T", i, vals[i])
	}
	return s, nil
}

func argBig(vals []any, i int) (*big.Int, error) {
	if i >= len(vals) {
		return nil, fmt.Errorf("argument %d missing", i)
	}
	n, ok := vals[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("argument %d: expected *big.Int, got %T", i, vals[i])
	}
	return n, nil
}

func argBool(vals []any, i int) (bool, error) {
	if i >= len(vals) {
		return false, fmt.Errorf("argument %d missing", i)
	}
	b, ok := vals[i].(bool)
	if !ok {
		return false, fmt.Errorf("argument %d: expected bool, got %T", i, vals[i])
	}
	return b, nil
}
