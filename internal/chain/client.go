// Package chain wraps the go-ethereum RPC client behind the narrow interface
// the ingestion pipeline needs, so the indexer can be tested against a fake
// node.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// NodeClient is the chain node RPC surface used by the indexer.
type NodeClient interface {
	// BlockNumber returns the current chain head height.
	BlockNumber(ctx context.Context) (uint64, error)

	// FilterLogs returns all logs emitted by address in [fromBlock, toBlock],
	// in block order with intra-block log order preserved.
	FilterLogs(ctx context.Context, address common.Address, fromBlock, toBlock uint64) ([]types.Log, error)
}

// Client implements NodeClient over a single JSON-RPC endpoint.
type Client struct {
	ec      *ethclient.Client
	chainID int64
}

// Dial connects to the given RPC endpoint.
func Dial(ctx context.Context, rpcURL string, chainID int64) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	return &Client{ec: ec, chainID: chainID}, nil
}

// ChainID returns the configured chain id.
func (c *Client) ChainID() int64 {
	return c.chainID
}

// BlockNumber returns the current chain head height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	head, err := c.ec.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("chain: block number: %w", err)
	}
	return head, nil
}

// FilterLogs fetches all logs emitted by address in the inclusive block range.
func (c *Client) FilterLogs(ctx context.Context, address common.Address, fromBlock, toBlock uint64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{address},
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
	}

	logs, err := c.ec.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("chain: filter logs %d-%d: %w", fromBlock, toBlock, err)
	}
	return logs, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.ec.Close()
}

// Compile-time interface check.
var _ NodeClient = (*Client)(nil)
