package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"erc20-transfer-indexer/internal/domain/entity"
	"erc20-transfer-indexer/internal/infrastructure/config"
	"erc20-transfer-indexer/internal/infrastructure/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// ErrPendingTransaction is returned for transactions not yet in a block
var ErrPendingTransaction = errors.New("transaction is pending")

// EthereumClient fetches transactions over JSON-RPC and converts them to
// RawTransactions
type EthereumClient struct {
	client  *ethclient.Client
	chainID *big.Int
	timeout time.Duration
	network string
	logger  *logger.Logger
}

// NewEthereumClient dials the configured RPC endpoint and reads its chain ID
func NewEthereumClient(ctx context.Context, cfg *config.EthereumConfig, network string, logger *logger.Logger) (*EthereumClient, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("ethereum.rpc_url is not configured")
	}

	log := logger.WithComponent("ethereum-client")
	log.Info("Connecting to Ethereum node", zap.String("url", cfg.RPCURL))

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ethereum node: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	log.Info("Connected to Ethereum node", zap.String("chain_id", chainID.String()))

	return &EthereumClient{
		client:  client,
		chainID: chainID,
		timeout: cfg.RequestTimeout,
		network: network,
		logger:  log,
	}, nil
}

// TransactionByHash fetches a mined transaction with its block position and
// timestamp. Pending transactions fail with ErrPendingTransaction.
func (c *EthereumClient) TransactionByHash(ctx context.Context, hash common.Hash) (*entity.RawTransaction, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	tx, pending, err := c.client.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", hash.Hex(), err)
	}
	if pending {
		return nil, fmt.Errorf("%w: %s", ErrPendingTransaction, hash.Hex())
	}

	from, err := SenderOf(c.chainID, tx)
	if err != nil {
		return nil, err
	}

	receipt, err := c.client.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt %s: %w", hash.Hex(), err)
	}

	header, err := c.client.HeaderByHash(ctx, receipt.BlockHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get block header %s: %w", receipt.BlockHash.Hex(), err)
	}

	raw := NewRawTransaction(tx, from)
	raw.BlockHash = receipt.BlockHash
	raw.BlockNumber = receipt.BlockNumber.Uint64()
	raw.TransactionIndex = uint64(receipt.TransactionIndex)
	raw.Timestamp = time.Unix(int64(header.Time), 0).UTC()
	raw.Network = c.network

	c.logger.Debug("Fetched transaction",
		zap.String("tx_hash", hash.Hex()),
		zap.Uint64("block_number", raw.BlockNumber))

	return raw, nil
}

// IsContract reports whether address has deployed bytecode at the latest block
func (c *EthereumClient) IsContract(ctx context.Context, address common.Address) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	code, err := c.client.CodeAt(ctx, address, nil)
	if err != nil {
		return false, fmt.Errorf("failed to get code at %s: %w", address.Hex(), err)
	}
	return len(code) > 0, nil
}

// Close closes the RPC connection
func (c *EthereumClient) Close() {
	c.client.Close()
}

func (c *EthereumClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// SenderOf recovers the signer of tx for the given chain
func SenderOf(chainID *big.Int, tx *types.Transaction) (common.Address, error) {
	from, err := types.Sender(types.LatestSignerForChainID(chainID), tx)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover sender of %s: %w", tx.Hash().Hex(), err)
	}
	return from, nil
}

// NewRawTransaction converts a go-ethereum transaction. Block fields are left
// for the caller.
func NewRawTransaction(tx *types.Transaction, from common.Address) *entity.RawTransaction {
	// Transaction values are 256-bit on the wire, so this cannot overflow.
	value, _ := uint256.FromBig(tx.Value())
	return &entity.RawTransaction{
		Hash:  tx.Hash(),
		From:  from,
		To:    tx.To(),
		Value: value,
		Input: tx.Data(),
	}
}
