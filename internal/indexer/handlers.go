package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lumenfi/perpindex/internal/domain"
)

// Handlers applies decoded engine events to the relational store and publishes
// the corresponding real-time messages on the bus. Each handler is one state
// transition: decode, check referenced entities, write, publish.
//
// All handlers are safe to re-run on the same log: inserts are deduplicated by
// on-chain ids or (tx hash, log index), and updates write the same values.
type Handlers struct {
	markets   domain.MarketStore
	positions domain.PositionStore
	orders    domain.OrderStore
	trades    domain.TradeStore
	bus       domain.SignalBus
	logger    *slog.Logger
	now       func() time.Time
}

// NewHandlers creates the handler set for all engine events.
func NewHandlers(
	markets domain.MarketStore,
	positions domain.PositionStore,
	orders domain.OrderStore,
	trades domain.TradeStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		markets:   markets,
		positions: positions,
		orders:    orders,
		trades:    trades,
		bus:       bus,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleMarketCreated inserts a new active market. There are no live
// subscribers for market creation, so nothing is published.
func (h *Handlers) HandleMarketCreated(ctx context.Context, lg types.Log) error {
	ev, err := decodeMarketCreated(lg)
	if err != nil {
		return err
	}

	m := domain.Market{
		MarketID:     ev.MarketID.Hex(),
		Name:         ev.Name,
		BaseAsset:    ev.BaseAsset,
		QuoteAsset:   "USDC",
		MaxLeverage:  int(ev.MaxLeverage.Int64()),
		KValue:       ev.KValue.String(),
		BaseReserve:  ev.BaseReserve.String(),
		QuoteReserve: ev.QuoteReserve.String(),
		IsActive:     true,
	}
	if err := h.markets.Insert(ctx, m); err != nil {
		return fmt.Errorf("indexer: market created %s: %w", m.MarketID, err)
	}

	h.logger.Info("market created",
		slog.String("market_id", m.MarketID),
		slog.String("name", m.Name),
	)
	return nil
}

// HandlePositionOpened inserts a new OPEN position and announces it on the
// positions channel. Events referencing an unknown market are skipped with a
// warning.
func (h *Handlers) HandlePositionOpened(ctx context.Context, lg types.Log) error {
	ev, err := decodePositionOpened(lg)
	if err != nil {
		return err
	}

	market, err := h.markets.GetByMarketID(ctx, ev.MarketID.Hex())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.logger.Warn("position opened for unknown market",
				slog.String("market_id", ev.MarketID.Hex()),
				slog.String("position_id", ev.PositionID.Hex()),
			)
			return nil
		}
		return fmt.Errorf("indexer: position opened %s: %w", ev.PositionID.Hex(), err)
	}

	side := sideOf(ev.IsLong)
	p := domain.Position{
		PositionID:       ev.PositionID.Hex(),
		MarketID:         market.ID,
		UserAddress:      strings.ToLower(ev.Trader.Hex()),
		Side:             side,
		Size:             ev.Size.String(),
		EntryPrice:       ev.EntryPrice.String(),
		Margin:           ev.Margin.String(),
		Leverage:         int(ev.Leverage.Int64()),
		LiquidationPrice: ev.LiquidationPrice.String(),
		Status:           domain.PositionStatusOpen,
	}
	if err := h.positions.Insert(ctx, p); err != nil {
		return fmt.Errorf("indexer: position opened %s: %w", p.PositionID, err)
	}

	if err := h.publish(ctx, domain.ChannelPositions, domain.WireMessage{
		Type: domain.MsgTypePositionOpened,
		Data: domain.PositionOpenedData{
			PositionID: ev.PositionID.Hex(),
			Trader:     ev.Trader.Hex(),
			MarketID:   ev.MarketID.Hex(),
			Side:       side,
			Size:       ev.Size.String(),
			Leverage:   int(ev.Leverage.Int64()),
		},
	}); err != nil {
		return err
	}

	h.logger.Info("position opened",
		slog.String("position_id", p.PositionID),
		slog.String("trader", p.UserAddress),
	)
	return nil
}

// HandlePositionClosed transitions a position to CLOSED with its realized PnL
// and announces the close. The transition is one-way; re-running the event is
// a no-op.
func (h *Handlers) HandlePositionClosed(ctx context.Context, lg types.Log) error {
	ev, err := decodePositionClosed(lg)
	if err != nil {
		return err
	}

	positionID := ev.PositionID.Hex()
	if _, err := h.positions.GetByPositionID(ctx, positionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.logger.Warn("position closed for unknown position",
				slog.String("position_id", positionID),
			)
			return nil
		}
		return fmt.Errorf("indexer: position closed %s: %w", positionID, err)
	}

	if err := h.positions.Close(ctx, positionID, ev.Pnl.String(), h.now().UTC()); err != nil {
		return fmt.Errorf("indexer: position closed %s: %w", positionID, err)
	}

	if err := h.publish(ctx, domain.ChannelPositions, domain.WireMessage{
		Type: domain.MsgTypePositionClosed,
		Data: domain.PositionClosedData{
			PositionID: positionID,
			Trader:     ev.Trader.Hex(),
			Pnl:        ev.Pnl.String(),
		},
	}); err != nil {
		return err
	}

	h.logger.Info("position closed",
		slog.String("position_id", positionID),
		slog.String("pnl", ev.Pnl.String()),
	)
	return nil
}

// HandleLiquidation transitions a position to LIQUIDATED and announces the
// liquidation with its penalty.
func (h *Handlers) HandleLiquidation(ctx context.Context, lg types.Log) error {
	ev, err := decodeLiquidation(lg)
	if err != nil {
		return err
	}

	positionID := ev.PositionID.Hex()
	if _, err := h.positions.GetByPositionID(ctx, positionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.logger.Warn("liquidation for unknown position",
				slog.String("position_id", positionID),
			)
			return nil
		}
		return fmt.Errorf("indexer: liquidation %s: %w", positionID, err)
	}

	if err := h.positions.Liquidate(ctx, positionID, h.now().UTC()); err != nil {
		return fmt.Errorf("indexer: liquidation %s: %w", positionID, err)
	}

	if err := h.publish(ctx, domain.ChannelPositions, domain.WireMessage{
		Type: domain.MsgTypeLiquidation,
		Data: domain.LiquidationData{
			PositionID: positionID,
			Trader:     ev.Trader.Hex(),
			Liquidator: ev.Liquidator.Hex(),
			Penalty:    ev.Penalty.String(),
		},
	}); err != nil {
		return err
	}

	h.logger.Info("position liquidated",
		slog.String("position_id", positionID),
		slog.String("liquidator", ev.Liquidator.Hex()),
	)
	return nil
}

// HandleTradeExecuted appends the fill, marks the matching order FILLED when
// one exists, and announces the trade. Events referencing an unknown market
// are skipped with a warning and produce no writes or messages.
func (h *Handlers) HandleTradeExecuted(ctx context.Context, lg types.Log) error {
	ev, err := decodeTradeExecuted(lg)
	if err != nil {
		return err
	}

	market, err := h.markets.GetByMarketID(ctx, ev.MarketID.Hex())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.logger.Warn("trade executed for unknown market",
				slog.String("market_id", ev.MarketID.Hex()),
				slog.String("tx_hash", lg.TxHash.Hex()),
			)
			return nil
		}
		return fmt.Errorf("indexer: trade executed %s: %w", lg.TxHash.Hex(), err)
	}

	now := h.now().UTC()
	t := domain.Trade{
		TxHash:      lg.TxHash.Hex(),
		BlockNumber: int64(lg.BlockNumber),
		LogIndex:    int(lg.Index),
		MarketID:    market.ID,
		UserAddress: strings.ToLower(ev.Trader.Hex()),
		Side:        sideOf(ev.IsLong),
		Size:        ev.Size.String(),
		Price:       ev.Price.String(),
		Fee:         ev.Fee.String(),
		ExecutedAt:  now,
	}
	if err := h.trades.Insert(ctx, t); err != nil {
		return fmt.Errorf("indexer: trade executed %s: %w", t.TxHash, err)
	}

	// An order only exists for fills routed through the off-chain order flow;
	// direct engine trades have none.
	orderID := ev.OrderID.Hex()
	if _, err := h.orders.GetByOrderID(ctx, orderID); err == nil {
		if err := h.orders.MarkFilled(ctx, orderID, ev.Size.String(), ev.Price.String(), ev.Fee.String()); err != nil {
			return fmt.Errorf("indexer: trade executed %s: %w", t.TxHash, err)
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("indexer: trade executed %s: %w", t.TxHash, err)
	}

	if err := h.publish(ctx, domain.ChannelTrades, domain.WireMessage{
		Type: domain.MsgTypeTrade,
		Data: domain.TradeData{
			MarketID:  ev.MarketID.Hex(),
			Side:      t.Side,
			Size:      ev.Size.String(),
			Price:     ev.Price.String(),
			Timestamp: now.UnixMilli(),
		},
	}); err != nil {
		return err
	}

	h.logger.Info("trade recorded",
		slog.String("trader", t.UserAddress),
		slog.String("side", string(t.Side)),
		slog.String("size", t.Size),
		slog.String("price", t.Price),
	)
	return nil
}

// publish encodes and publishes one wire message. A failed publish fails the
// handler; the range is retried, and the deduplicated writes make the retry
// harmless.
func (h *Handlers) publish(ctx context.Context, channel string, msg domain.WireMessage) error {
	payload, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("indexer: encode %s message: %w", msg.Type, err)
	}
	if err := h.bus.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("indexer: publish %s: %w", msg.Type, err)
	}
	return nil
}

// sideOf maps the on-chain isLong flag to the domain side.
func sideOf(isLong bool) domain.Side {
	if isLong {
		return domain.SideLong
	}
	return domain.SideShort
}
