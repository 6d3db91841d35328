package service

import (
	"erc20-transfer-indexer/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

// ERC20DecoderService defines the interface for transfer decoding operations
type ERC20DecoderService interface {
	// Decode classifies a transaction and extracts its transfer, if any
	Decode(tx *entity.RawTransaction) (*entity.TransactionAndTransferType, error)

	// IsKnownToken reports whether address is a registered token contract
	IsKnownToken(address common.Address) bool

	// GetTokenInfo returns registry metadata for a token contract
	GetTokenInfo(address common.Address) (*entity.KnownToken, bool)
}
