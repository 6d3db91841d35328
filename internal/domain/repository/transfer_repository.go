package repository

import (
	"context"
	"errors"

	"erc20-transfer-indexer/internal/domain/entity"
)

// ErrWalletNotFound is returned when a wallet has no indexed transfers
var ErrWalletNotFound = errors.New("wallet not found")

// TransferRepository defines the interface for persisting decoded transfers
type TransferRepository interface {
	// BatchSaveTransfers stores transfers and their wallets in a single write.
	// Saving the same transaction twice is a no-op.
	BatchSaveTransfers(ctx context.Context, transfers []*entity.TransferRecord) error

	// SaveTokenContract creates or updates a registered token contract
	SaveTokenContract(ctx context.Context, token *entity.KnownToken, network string) error

	// GetTransfersForWallet retrieves transfers sent or received by a wallet, newest first
	GetTransfersForWallet(ctx context.Context, address string, limit int) ([]*entity.TransferRecord, error)

	// GetTransfersByContract retrieves transfers of one token contract, newest first
	GetTransfersByContract(ctx context.Context, contract string, limit int) ([]*entity.TransferRecord, error)

	// GetWalletStats summarizes a wallet's transfers. Unknown wallets fail
	// with ErrWalletNotFound.
	GetWalletStats(ctx context.Context, address string) (*entity.WalletStats, error)
}
