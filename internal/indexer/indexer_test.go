package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lumenfi/perpindex/internal/domain"
)

// ---------------------------------------------------------------------------
// In-memory fakes
// ---------------------------------------------------------------------------

type fakeMarketStore struct {
	byMarketID map[string]domain.Market
	nextID     int
	insertErr  error
}

func newFakeMarketStore() *fakeMarketStore {
	return &fakeMarketStore{byMarketID: make(map[string]domain.Market)}
}

func (s *fakeMarketStore) Insert(_ context.Context, m domain.Market) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.byMarketID[m.MarketID]; ok {
		return nil
	}
	s.nextID++
	m.ID = fmt.Sprintf("mkt-%d", s.nextID)
	s.byMarketID[m.MarketID] = m
	return nil
}

func (s *fakeMarketStore) GetByMarketID(_ context.Context, marketID string) (domain.Market, error) {
	m, ok := s.byMarketID[marketID]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *fakeMarketStore) ListActive(_ context.Context, _ domain.ListOpts) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range s.byMarketID {
		if m.IsActive {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeMarketStore) Count(_ context.Context) (int64, error) {
	return int64(len(s.byMarketID)), nil
}

type fakePositionStore struct {
	byPositionID map[string]domain.Position
	nextID       int
}

func newFakePositionStore() *fakePositionStore {
	return &fakePositionStore{byPositionID: make(map[string]domain.Position)}
}

func (s *fakePositionStore) Insert(_ context.Context, p domain.Position) error {
	if _, ok := s.byPositionID[p.PositionID]; ok {
		return nil
	}
	s.nextID++
	p.ID = fmt.Sprintf("pos-%d", s.nextID)
	s.byPositionID[p.PositionID] = p
	return nil
}

func (s *fakePositionStore) Close(_ context.Context, positionID, realizedPnl string, closedAt time.Time) error {
	p, ok := s.byPositionID[positionID]
	if !ok || p.Status != domain.PositionStatusOpen {
		return nil
	}
	p.Status = domain.PositionStatusClosed
	p.RealizedPnl = realizedPnl
	p.ClosedAt = &closedAt
	s.byPositionID[positionID] = p
	return nil
}

func (s *fakePositionStore) Liquidate(_ context.Context, positionID string, closedAt time.Time) error {
	p, ok := s.byPositionID[positionID]
	if !ok || p.Status != domain.PositionStatusOpen {
		return nil
	}
	p.Status = domain.PositionStatusLiquidated
	p.ClosedAt = &closedAt
	s.byPositionID[positionID] = p
	return nil
}

func (s *fakePositionStore) GetByPositionID(_ context.Context, positionID string) (domain.Position, error) {
	p, ok := s.byPositionID[positionID]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakePositionStore) ListOpen(_ context.Context, userAddress string) ([]domain.Position, error) {
	var out []domain.Position
	for _, p := range s.byPositionID {
		if p.Status == domain.PositionStatusOpen && p.UserAddress == userAddress {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeOrderStore struct {
	byOrderID map[string]domain.Order
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{byOrderID: make(map[string]domain.Order)}
}

func (s *fakeOrderStore) GetByOrderID(_ context.Context, orderID string) (domain.Order, error) {
	o, ok := s.byOrderID[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (s *fakeOrderStore) MarkFilled(_ context.Context, orderID, filledSize, avgFillPrice, fee string) error {
	o, ok := s.byOrderID[orderID]
	if !ok {
		return nil
	}
	o.Status = domain.OrderStatusFilled
	o.FilledSize = filledSize
	o.AvgFillPrice = &avgFillPrice
	o.Fee = fee
	s.byOrderID[orderID] = o
	return nil
}

type tradeKey struct {
	txHash   string
	logIndex int
}

type fakeTradeStore struct {
	trades    map[tradeKey]domain.Trade
	insertErr error
}

func newFakeTradeStore() *fakeTradeStore {
	return &fakeTradeStore{trades: make(map[tradeKey]domain.Trade)}
}

func (s *fakeTradeStore) Insert(_ context.Context, t domain.Trade) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	key := tradeKey{t.TxHash, t.LogIndex}
	if _, ok := s.trades[key]; ok {
		return nil
	}
	s.trades[key] = t
	return nil
}

func (s *fakeTradeStore) ListByMarket(_ context.Context, marketID string, _ domain.ListOpts) ([]domain.Trade, error) {
	var out []domain.Trade
	for _, t := range s.trades {
		if t.MarketID == marketID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeCheckpointStore struct {
	height uint64
}

func (s *fakeCheckpointStore) Get(_ context.Context) (uint64, error) { return s.height, nil }
func (s *fakeCheckpointStore) Set(_ context.Context, height uint64) error {
	s.height = height
	return nil
}

type published struct {
	channel string
	payload []byte
}

type fakeBus struct {
	messages []published
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.messages = append(b.messages, published{channel, payload})
	return nil
}

func (b *fakeBus) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *fakeBus) onChannel(channel string) []published {
	var out []published
	for _, m := range b.messages {
		if m.channel == channel {
			out = append(out, m)
		}
	}
	return out
}

type fakeNode struct {
	head uint64
	logs []types.Log
}

func (n *fakeNode) BlockNumber(_ context.Context) (uint64, error) { return n.head, nil }

func (n *fakeNode) FilterLogs(_ context.Context, _ common.Address, fromBlock, toBlock uint64) ([]types.Log, error) {
	var out []types.Log
	for _, lg := range n.logs {
		if lg.BlockNumber >= fromBlock && lg.BlockNumber <= toBlock {
			out = append(out, lg)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Log builders
// ---------------------------------------------------------------------------

var (
	engineAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	traderAddr = common.HexToAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	liqAddr    = common.HexToAddress("0x2222222222222222222222222222222222222222")

	marketID   = common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000001")
	positionID = common.HexToHash("0xbbbb000000000000000000000000000000000000000000000000000000000001")
	orderID    = common.HexToHash("0xcccc000000000000000000000000000000000000000000000000000000000001")
)

func packData(t *testing.T, event string, args ...any) []byte {
	t.Helper()
	data, err := engineABI.Events[event].Inputs.NonIndexed().Pack(args...)
	if err != nil {
		t.Fatalf("pack %s: %v", event, err)
	}
	return data
}

func makeLog(t *testing.T, event string, block uint64, index uint, topics []common.Hash, args ...any) types.Log {
	t.Helper()
	return types.Log{
		Address:     engineAddr,
		Topics:      append([]common.Hash{engineABI.Events[event].ID}, topics...),
		Data:        packData(t, event, args...),
		BlockNumber: block,
		TxHash:      common.HexToHash(fmt.Sprintf("0x%064x", block*1000+uint64(index))),
		Index:       index,
	}
}

func marketCreatedLog(t *testing.T, block uint64, index uint) types.Log {
	return makeLog(t, EventMarketCreated, block, index,
		[]common.Hash{marketID},
		"ETH-PERP", "ETH", big.NewInt(20), big.NewInt(1_000_000),
		big.NewInt(1000), big.NewInt(1000),
	)
}

func positionOpenedLog(t *testing.T, block uint64, index uint) types.Log {
	return makeLog(t, EventPositionOpened, block, index,
		[]common.Hash{positionID, common.BytesToHash(traderAddr.Bytes()), marketID},
		true, big.NewInt(5), big.NewInt(100), big.NewInt(10),
		big.NewInt(2000), big.NewInt(1800),
	)
}

func positionClosedLog(t *testing.T, block uint64, index uint, pnl *big.Int) types.Log {
	return makeLog(t, EventPositionClosed, block, index,
		[]common.Hash{positionID, common.BytesToHash(traderAddr.Bytes())},
		pnl,
	)
}

func liquidationLog(t *testing.T, block uint64, index uint) types.Log {
	return makeLog(t, EventLiquidation, block, index,
		[]common.Hash{positionID, common.BytesToHash(traderAddr.Bytes()), common.BytesToHash(liqAddr.Bytes())},
		big.NewInt(12),
	)
}

func tradeExecutedLog(t *testing.T, block uint64, index uint) types.Log {
	return makeLog(t, EventTradeExecuted, block, index,
		[]common.Hash{orderID, common.BytesToHash(traderAddr.Bytes()), marketID},
		true, big.NewInt(5), big.NewInt(2000), big.NewInt(3),
	)
}

// ---------------------------------------------------------------------------
// Test harness
// ---------------------------------------------------------------------------

type harness struct {
	markets     *fakeMarketStore
	positions   *fakePositionStore
	orders      *fakeOrderStore
	trades      *fakeTradeStore
	checkpoints *fakeCheckpointStore
	bus         *fakeBus
	node        *fakeNode
	indexer     *Indexer
}

func newHarness(cfg Config) *harness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		markets:     newFakeMarketStore(),
		positions:   newFakePositionStore(),
		orders:      newFakeOrderStore(),
		trades:      newFakeTradeStore(),
		checkpoints: &fakeCheckpointStore{},
		bus:         &fakeBus{},
		node:        &fakeNode{},
	}
	handlers := NewHandlers(h.markets, h.positions, h.orders, h.trades, h.bus, logger)
	h.indexer = New(h.node, h.checkpoints, NewDispatcher(handlers), nil, cfg, logger)
	return h
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCycleMirrorsFullLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(Config{EngineAddress: &engineAddr, PollInterval: time.Second})

	h.node.head = 10
	h.node.logs = []types.Log{
		marketCreatedLog(t, 5, 0),
		positionOpenedLog(t, 6, 0),
		tradeExecutedLog(t, 6, 1),
		positionClosedLog(t, 8, 0, big.NewInt(-42)),
	}

	if err := h.indexer.cycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}

	if h.checkpoints.height != 10 {
		t.Errorf("checkpoint = %d, want 10", h.checkpoints.height)
	}

	m, err := h.markets.GetByMarketID(ctx, marketID.Hex())
	if err != nil {
		t.Fatalf("market not mirrored: %v", err)
	}
	if m.Name != "ETH-PERP" || !m.IsActive {
		t.Errorf("market = %+v, want active ETH-PERP", m)
	}

	p, err := h.positions.GetByPositionID(ctx, positionID.Hex())
	if err != nil {
		t.Fatalf("position not mirrored: %v", err)
	}
	if p.Status != domain.PositionStatusClosed {
		t.Errorf("position status = %s, want CLOSED", p.Status)
	}
	if p.RealizedPnl != "-42" {
		t.Errorf("realized pnl = %q, want -42", p.RealizedPnl)
	}
	if p.Side != domain.SideLong {
		t.Errorf("side = %s, want LONG", p.Side)
	}
	if p.UserAddress != strings.ToLower(traderAddr.Hex()) {
		t.Errorf("user address = %q, want lowercase %q", p.UserAddress, traderAddr.Hex())
	}

	trades, err := h.trades.ListByMarket(ctx, m.ID, domain.ListOpts{})
	if err != nil || len(trades) != 1 {
		t.Fatalf("trades = %d (%v), want 1", len(trades), err)
	}
	if trades[0].Price != "2000" || trades[0].Size != "5" {
		t.Errorf("trade = %+v, want size 5 @ 2000", trades[0])
	}

	positionMsgs := h.bus.onChannel(domain.ChannelPositions)
	if len(positionMsgs) != 2 {
		t.Fatalf("positions channel messages = %d, want 2", len(positionMsgs))
	}
	var opened domain.WireMessage
	if err := json.Unmarshal(positionMsgs[0].payload, &opened); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if opened.Type != domain.MsgTypePositionOpened {
		t.Errorf("first positions message type = %s, want %s", opened.Type, domain.MsgTypePositionOpened)
	}

	tradeMsgs := h.bus.onChannel(domain.ChannelTrades)
	if len(tradeMsgs) != 1 {
		t.Fatalf("trades channel messages = %d, want 1", len(tradeMsgs))
	}
	var tm struct {
		Type string `json:"type"`
		Data domain.TradeData
	}
	if err := json.Unmarshal(tradeMsgs[0].payload, &tm); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tm.Type != domain.MsgTypeTrade || tm.Data.Side != domain.SideLong || tm.Data.Timestamp == 0 {
		t.Errorf("trade message = %+v", tm)
	}
}

func TestReplayedRangeWritesNothingTwice(t *testing.T) {
	ctx := context.Background()
	h := newHarness(Config{EngineAddress: &engineAddr, PollInterval: time.Second})

	h.node.head = 10
	h.node.logs = []types.Log{
		marketCreatedLog(t, 5, 0),
		positionOpenedLog(t, 6, 0),
		tradeExecutedLog(t, 6, 1),
	}

	if err := h.indexer.cycle(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}

	// Simulate a crash before the checkpoint write: reset and replay.
	h.checkpoints.height = 0
	if err := h.indexer.cycle(ctx); err != nil {
		t.Fatalf("replay cycle: %v", err)
	}

	if n := len(h.trades.trades); n != 1 {
		t.Errorf("trade rows = %d, want 1", n)
	}
	if n := len(h.positions.byPositionID); n != 1 {
		t.Errorf("position rows = %d, want 1", n)
	}
	if n := len(h.markets.byMarketID); n != 1 {
		t.Errorf("market rows = %d, want 1", n)
	}
}

func TestCheckpointHeldOnHandlerFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(Config{EngineAddress: &engineAddr, PollInterval: time.Second})

	h.node.head = 10
	h.node.logs = []types.Log{
		marketCreatedLog(t, 5, 0),
		tradeExecutedLog(t, 6, 0),
	}
	h.trades.insertErr = errors.New("connection refused")

	if err := h.indexer.cycle(ctx); err == nil {
		t.Fatal("cycle succeeded despite failing handler")
	}
	if h.checkpoints.height != 0 {
		t.Errorf("checkpoint advanced to %d despite failure", h.checkpoints.height)
	}

	// The store recovers; the retried range must complete and advance.
	h.trades.insertErr = nil
	if err := h.indexer.cycle(ctx); err != nil {
		t.Fatalf("retry cycle: %v", err)
	}
	if h.checkpoints.height != 10 {
		t.Errorf("checkpoint = %d, want 10", h.checkpoints.height)
	}
	if n := len(h.trades.trades); n != 1 {
		t.Errorf("trade rows = %d, want 1", n)
	}
}

func TestUnknownMarketEventsAreSkipped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(Config{EngineAddress: &engineAddr, PollInterval: time.Second})

	// No MarketCreated: both logs reference a market the mirror has never
	// seen. They must be skipped without failing the range.
	h.node.head = 10
	h.node.logs = []types.Log{
		positionOpenedLog(t, 6, 0),
		tradeExecutedLog(t, 6, 1),
	}

	if err := h.indexer.cycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if h.checkpoints.height != 10 {
		t.Errorf("checkpoint = %d, want 10", h.checkpoints.height)
	}
	if n := len(h.trades.trades); n != 0 {
		t.Errorf("trade rows = %d, want 0", n)
	}
	if n := len(h.positions.byPositionID); n != 0 {
		t.Errorf("position rows = %d, want 0", n)
	}
	if n := len(h.bus.messages); n != 0 {
		t.Errorf("published messages = %d, want 0", n)
	}
}

func TestClosedPositionNeverReverts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(Config{EngineAddress: &engineAddr, PollInterval: time.Second})

	h.node.head = 10
	h.node.logs = []types.Log{
		marketCreatedLog(t, 5, 0),
		positionOpenedLog(t, 6, 0),
		positionClosedLog(t, 8, 0, big.NewInt(7)),
	}
	if err := h.indexer.cycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}

	// Replay the whole range, then a stray duplicate close with a different
	// pnl. Neither may alter the terminal state.
	h.checkpoints.height = 0
	h.node.logs = append(h.node.logs, positionClosedLog(t, 9, 0, big.NewInt(999)))
	if err := h.indexer.cycle(ctx); err != nil {
		t.Fatalf("replay cycle: %v", err)
	}

	p, err := h.positions.GetByPositionID(ctx, positionID.Hex())
	if err != nil {
		t.Fatalf("get position: %v", err)
	}
	if p.Status != domain.PositionStatusClosed {
		t.Errorf("status = %s, want CLOSED", p.Status)
	}
	if p.RealizedPnl != "7" {
		t.Errorf("realized pnl = %q, want first-write 7", p.RealizedPnl)
	}
}

func TestLiquidationMarksPositionAndPublishes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(Config{EngineAddress: &engineAddr, PollInterval: time.Second})

	h.node.head = 10
	h.node.logs = []types.Log{
		marketCreatedLog(t, 5, 0),
		positionOpenedLog(t, 6, 0),
		liquidationLog(t, 9, 0),
	}
	if err := h.indexer.cycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}

	p, err := h.positions.GetByPositionID(ctx, positionID.Hex())
	if err != nil {
		t.Fatalf("get position: %v", err)
	}
	if p.Status != domain.PositionStatusLiquidated {
		t.Errorf("status = %s, want LIQUIDATED", p.Status)
	}

	msgs := h.bus.onChannel(domain.ChannelPositions)
	if len(msgs) != 2 {
		t.Fatalf("positions channel messages = %d, want 2", len(msgs))
	}
	var last struct {
		Type string `json:"type"`
		Data domain.LiquidationData
	}
	if err := json.Unmarshal(msgs[1].payload, &last); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if last.Type != domain.MsgTypeLiquidation {
		t.Errorf("type = %s, want %s", last.Type, domain.MsgTypeLiquidation)
	}
	if last.Data.Liquidator != liqAddr.Hex() {
		t.Errorf("liquidator = %s, want %s", last.Data.Liquidator, liqAddr.Hex())
	}
	if last.Data.Penalty != "12" {
		t.Errorf("penalty = %q, want 12", last.Data.Penalty)
	}
}

func TestTradeMarksMatchingOrderFilled(t *testing.T) {
	ctx := context.Background()
	h := newHarness(Config{EngineAddress: &engineAddr, PollInterval: time.Second})

	h.orders.byOrderID[orderID.Hex()] = domain.Order{
		OrderID: orderID.Hex(),
		Status:  domain.OrderStatusPending,
	}

	h.node.head = 10
	h.node.logs = []types.Log{
		marketCreatedLog(t, 5, 0),
		tradeExecutedLog(t, 6, 0),
	}
	if err := h.indexer.cycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}

	o, err := h.orders.GetByOrderID(ctx, orderID.Hex())
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if o.Status != domain.OrderStatusFilled {
		t.Errorf("order status = %s, want FILLED", o.Status)
	}
	if o.FilledSize != "5" {
		t.Errorf("filled size = %q, want 5", o.FilledSize)
	}
	if o.AvgFillPrice == nil || *o.AvgFillPrice != "2000" {
		t.Errorf("avg fill price = %v, want 2000", o.AvgFillPrice)
	}
}

func TestNoEngineAddressStillTracksHead(t *testing.T) {
	ctx := context.Background()
	h := newHarness(Config{PollInterval: time.Second})

	h.node.head = 25
	h.node.logs = []types.Log{marketCreatedLog(t, 5, 0)}

	if err := h.indexer.cycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if h.checkpoints.height != 25 {
		t.Errorf("checkpoint = %d, want 25", h.checkpoints.height)
	}
	if n := len(h.markets.byMarketID); n != 0 {
		t.Errorf("market rows = %d, want 0 with ingestion disabled", n)
	}
}

func TestHeadBehindCheckpointIsNoOp(t *testing.T) {
	ctx := context.Background()
	h := newHarness(Config{EngineAddress: &engineAddr, PollInterval: time.Second})

	h.checkpoints.height = 50
	h.node.head = 50

	if err := h.indexer.cycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if h.checkpoints.height != 50 {
		t.Errorf("checkpoint = %d, want unchanged 50", h.checkpoints.height)
	}
}

func TestStartBlockSeedsFirstRange(t *testing.T) {
	ctx := context.Background()
	h := newHarness(Config{EngineAddress: &engineAddr, StartBlock: 100, PollInterval: time.Second})

	h.node.head = 110
	h.node.logs = []types.Log{
		marketCreatedLog(t, 50, 0),  // before the start block, must be ignored
		marketCreatedLog(t, 105, 0), // same market id, in range
	}

	if err := h.indexer.cycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if h.checkpoints.height != 110 {
		t.Errorf("checkpoint = %d, want 110", h.checkpoints.height)
	}
	if n := len(h.markets.byMarketID); n != 1 {
		t.Errorf("market rows = %d, want 1", n)
	}
}

func TestDispatchIgnoresForeignLogs(t *testing.T) {
	ctx := context.Background()
	h := newHarness(Config{EngineAddress: &engineAddr, PollInterval: time.Second})

	h.node.head = 10
	h.node.logs = []types.Log{
		{
			Address:     engineAddr,
			Topics:      []common.Hash{common.HexToHash("0xdeadbeef00000000000000000000000000000000000000000000000000000000")},
			BlockNumber: 6,
			Index:       0,
		},
		{Address: engineAddr, BlockNumber: 6, Index: 1}, // anonymous, no topics
	}

	if err := h.indexer.cycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if h.checkpoints.height != 10 {
		t.Errorf("checkpoint = %d, want 10", h.checkpoints.height)
	}
	if n := len(h.bus.messages); n != 0 {
		t.Errorf("published messages = %d, want 0", n)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	h := newHarness(Config{EngineAddress: &engineAddr, PollInterval: 10 * time.Millisecond})
	h.node.head = 10

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.indexer.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
