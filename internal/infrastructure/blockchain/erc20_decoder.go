package blockchain

import (
	"fmt"

	"erc20-transfer-indexer/internal/domain/entity"
	"erc20-transfer-indexer/internal/domain/service"
	"erc20-transfer-indexer/internal/infrastructure/blockchain/calldata"
	"erc20-transfer-indexer/internal/infrastructure/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// ERC20DecoderService implements the ERC20 decoder service
type ERC20DecoderService struct {
	selectors *SelectorTable
	registry  *ContractRegistry
	logger    *logger.Logger
}

// NewERC20DecoderService creates a decoder over the default selector table and
// token registry
func NewERC20DecoderService(logger *logger.Logger) service.ERC20DecoderService {
	return newERC20DecoderService(DefaultSelectorTable(), DefaultContractRegistry(), logger)
}

func newERC20DecoderService(selectors *SelectorTable, registry *ContractRegistry, logger *logger.Logger) *ERC20DecoderService {
	return &ERC20DecoderService{
		selectors: selectors,
		registry:  registry,
		logger:    logger.WithComponent("erc20-decoder"),
	}
}

// Decode classifies tx and extracts its transfer. Transactions that are not
// transfers decode successfully as UnknownCall; only malformed transfer
// calldata fails.
func (s *ERC20DecoderService) Decode(tx *entity.RawTransaction) (*entity.TransactionAndTransferType, error) {
	result := &entity.TransactionAndTransferType{Transaction: tx}

	if tx.To == nil {
		result.Kind = entity.KindContractCreation
		return result, nil
	}

	if token, ok := s.registry.Resolve(*tx.To); ok {
		result.Token = &token
	}

	if len(tx.Input) == 0 {
		result.Kind = entity.KindEtherTransfer
		result.Transfer = entity.DecodedTransfer{
			Method:    entity.NativeTransfer,
			Recipient: *tx.To,
			Amount:    valueOrZero(tx.Value),
		}
		return result, nil
	}

	result.Kind = entity.KindContractInvocation
	transfer, err := s.decodeCall(tx.Input)
	if err != nil {
		s.logger.Debug("Failed to decode transfer calldata",
			zap.String("tx_hash", tx.Hash.Hex()),
			zap.String("to", entity.AddressHex(*tx.To)),
			zap.Int("data_length", len(tx.Input)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to decode transaction %s: %w", tx.Hash.Hex(), err)
	}
	result.Transfer = transfer

	if result.IsERC20() {
		s.logger.Debug("Decoded ERC20 transfer",
			zap.String("tx_hash", tx.Hash.Hex()),
			zap.String("contract", entity.AddressHex(*tx.To)),
			zap.String("method", string(transfer.ERC20Method)),
			zap.String("recipient", entity.AddressHex(transfer.Recipient)),
			zap.String("amount", transfer.Amount.Dec()))
	}
	return result, nil
}

// decodeCall reads the selector and, for transfer and transferFrom, the
// arguments. The exact payload length is checked before any argument is read.
func (s *ERC20DecoderService) decodeCall(input []byte) (entity.DecodedTransfer, error) {
	cursor := calldata.NewCursor(input)

	sel, err := cursor.ReadSelector()
	if err != nil {
		return entity.DecodedTransfer{}, err
	}
	decoded := entity.DecodedTransfer{
		Method:      s.selectors.Lookup(sel),
		Selector:    sel,
		ERC20Method: s.selectors.Method(sel),
	}

	switch decoded.Method {
	case entity.Erc20Transfer:
		if err := checkCallSize(input, transferCallSize, decoded.ERC20Method); err != nil {
			return entity.DecodedTransfer{}, err
		}
		if decoded.Recipient, err = cursor.ReadAddress(); err != nil {
			return entity.DecodedTransfer{}, fmt.Errorf("transfer recipient: %w", err)
		}
		if decoded.Amount, err = cursor.ReadU256(); err != nil {
			return entity.DecodedTransfer{}, fmt.Errorf("transfer amount: %w", err)
		}

	case entity.Erc20TransferFrom:
		if err := checkCallSize(input, transferFromCallSize, decoded.ERC20Method); err != nil {
			return entity.DecodedTransfer{}, err
		}
		owner, err := cursor.ReadAddress()
		if err != nil {
			return entity.DecodedTransfer{}, fmt.Errorf("transferFrom owner: %w", err)
		}
		decoded.Spender = &owner
		if decoded.Recipient, err = cursor.ReadAddress(); err != nil {
			return entity.DecodedTransfer{}, fmt.Errorf("transferFrom recipient: %w", err)
		}
		if decoded.Amount, err = cursor.ReadU256(); err != nil {
			return entity.DecodedTransfer{}, fmt.Errorf("transferFrom amount: %w", err)
		}
	}

	return decoded, nil
}

// IsKnownToken reports whether address is in the token registry
func (s *ERC20DecoderService) IsKnownToken(address common.Address) bool {
	_, ok := s.registry.Resolve(address)
	return ok
}

// GetTokenInfo returns registry metadata for a token contract
func (s *ERC20DecoderService) GetTokenInfo(address common.Address) (*entity.KnownToken, bool) {
	token, ok := s.registry.Resolve(address)
	if !ok {
		return nil, false
	}
	return &token, true
}

func checkCallSize(input []byte, want int, method entity.ERC20Method) error {
	if len(input) == want {
		return nil
	}
	if len(input) < want {
		return fmt.Errorf("%w: %s needs %d bytes, got %d", entity.ErrOutOfBounds, method, want, len(input))
	}
	return fmt.Errorf("%w: %s takes %d bytes, got %d", entity.ErrInvalidLength, method, want, len(input))
}

func valueOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}
