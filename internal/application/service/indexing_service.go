package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"erc20-transfer-indexer/internal/domain/entity"
	"erc20-transfer-indexer/internal/domain/repository"
	"erc20-transfer-indexer/internal/domain/service"
	"erc20-transfer-indexer/internal/infrastructure/logger"
	"erc20-transfer-indexer/internal/infrastructure/metrics"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 1000

	etherLabel        = "ether"
	unregisteredLabel = "unregistered"
)

// IndexingApplicationService implements IndexingService interface
type IndexingApplicationService struct {
	transferRepo repository.TransferRepository
	decoder      service.ERC20DecoderService
	metrics      *metrics.Metrics
	network      string
	logger       *logger.Logger

	// savedTokens remembers token contracts already upserted by this process
	savedTokens sync.Map
}

// NewIndexingApplicationService creates a new indexing application service
func NewIndexingApplicationService(
	transferRepo repository.TransferRepository,
	decoder service.ERC20DecoderService,
	metrics *metrics.Metrics,
	network string,
	logger *logger.Logger,
) service.IndexingService {
	return &IndexingApplicationService{
		transferRepo: transferRepo,
		decoder:      decoder,
		metrics:      metrics,
		network:      network,
		logger:       logger.WithComponent("indexing-service"),
	}
}

// ProcessTransaction decodes a single transaction and persists its transfer
func (s *IndexingApplicationService) ProcessTransaction(ctx context.Context, tx *entity.RawTransaction) error {
	return s.ProcessTransactionBatch(ctx, []*entity.RawTransaction{tx})
}

// ProcessTransactionBatch decodes every transaction, skips the ones that fail
// to decode or move no value, and writes the remaining transfers in one batch
func (s *IndexingApplicationService) ProcessTransactionBatch(ctx context.Context, transactions []*entity.RawTransaction) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordBatch(len(transactions), time.Since(start).Seconds(), err)
	}()

	records := make([]*entity.TransferRecord, 0, len(transactions))
	tokens := make(map[common.Address]*entity.KnownToken)
	saved := make(map[string]int)
	volume := make(map[string]float64)
	failed := 0

	for _, tx := range transactions {
		result, decodeErr := s.decoder.Decode(tx)
		if decodeErr != nil {
			failed++
			s.metrics.RecordDecodeFailure(decodeErr)
			s.logger.Warn("Skipping undecodable transaction",
				zap.String("tx_hash", tx.Hash.Hex()),
				zap.String("reason", metrics.FailureReason(decodeErr)),
				zap.Error(decodeErr))
			continue
		}
		s.metrics.RecordDecoded(result.Transfer.Method, result.Kind)

		if !result.IsTransfer() {
			continue
		}

		record, recordErr := entity.NewTransferRecord(result)
		if recordErr != nil {
			s.logger.Error("Failed to flatten transfer",
				zap.String("tx_hash", tx.Hash.Hex()),
				zap.Error(recordErr))
			continue
		}
		if record.Network == "" {
			record.Network = s.network
		}
		records = append(records, record)

		label := transferLabel(result)
		saved[label]++
		if result.IsERC20() && result.Token != nil {
			tokens[result.Token.Address] = result.Token
			volume[label] += result.Token.Units(result.Transfer.Amount)
		}
	}

	s.logger.Debug("Decoded transaction batch",
		zap.Int("transactions", len(transactions)),
		zap.Int("transfers", len(records)),
		zap.Int("failed", failed))

	if err = s.saveTokens(ctx, tokens); err != nil {
		return err
	}

	if len(records) == 0 {
		return nil
	}

	err = s.transferRepo.BatchSaveTransfers(ctx, records)
	s.metrics.RecordRepositoryOperation("batch_save_transfers", err)
	if err != nil {
		return fmt.Errorf("failed to save transfers: %w", err)
	}

	for label, count := range saved {
		s.metrics.RecordTransfersSaved(label, count)
	}
	for label, units := range volume {
		s.metrics.RecordTokenAmount(label, units)
	}

	s.logger.Info("Indexed transaction batch",
		zap.Int("transactions", len(transactions)),
		zap.Int("transfers", len(records)),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// saveTokens upserts each registered token once per process
func (s *IndexingApplicationService) saveTokens(ctx context.Context, tokens map[common.Address]*entity.KnownToken) error {
	for address, token := range tokens {
		if _, done := s.savedTokens.Load(address); done {
			continue
		}
		err := s.transferRepo.SaveTokenContract(ctx, token, s.network)
		s.metrics.RecordRepositoryOperation("save_token_contract", err)
		if err != nil {
			return fmt.Errorf("failed to save token %s: %w", token.Symbol, err)
		}
		s.savedTokens.Store(address, struct{}{})
	}
	return nil
}

// GetTransfersForWallet retrieves transfers sent or received by a wallet
func (s *IndexingApplicationService) GetTransfersForWallet(ctx context.Context, address string, limit int) ([]*entity.TransferRecord, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid wallet address %q", address)
	}
	return s.transferRepo.GetTransfersForWallet(ctx, entity.AddressHex(common.HexToAddress(address)), clampLimit(limit))
}

// GetTransfersByContract retrieves transfers of one token contract
func (s *IndexingApplicationService) GetTransfersByContract(ctx context.Context, contract string, limit int) ([]*entity.TransferRecord, error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("invalid contract address %q", contract)
	}
	return s.transferRepo.GetTransfersByContract(ctx, entity.AddressHex(common.HexToAddress(contract)), clampLimit(limit))
}

// GetWalletStats summarizes the transfers of a wallet
func (s *IndexingApplicationService) GetWalletStats(ctx context.Context, address string) (*entity.WalletStats, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid wallet address %q", address)
	}
	return s.transferRepo.GetWalletStats(ctx, entity.AddressHex(common.HexToAddress(address)))
}

func transferLabel(result *entity.TransactionAndTransferType) string {
	switch {
	case result.IsEther():
		return etherLabel
	case result.Token != nil:
		return result.Token.Symbol
	default:
		return unregisteredLabel
	}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultQueryLimit
	case limit > maxQueryLimit:
		return maxQueryLimit
	default:
		return limit
	}
}
