package service

import (
	"context"

	"erc20-transfer-indexer/internal/domain/entity"
)

// IndexingService defines the interface for indexing operations
type IndexingService interface {
	// ProcessTransaction decodes a transaction and persists its transfer
	ProcessTransaction(ctx context.Context, tx *entity.RawTransaction) error

	// ProcessTransactionBatch decodes transactions and persists their transfers in one write
	ProcessTransactionBatch(ctx context.Context, transactions []*entity.RawTransaction) error

	// GetTransfersForWallet retrieves transfers sent or received by a wallet
	GetTransfersForWallet(ctx context.Context, address string, limit int) ([]*entity.TransferRecord, error)

	// GetTransfersByContract retrieves transfers of one token contract
	GetTransfersByContract(ctx context.Context, contract string, limit int) ([]*entity.TransferRecord, error)

	// GetWalletStats summarizes the transfers of a wallet
	GetWalletStats(ctx context.Context, address string) (*entity.WalletStats, error)
}
