package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"erc20-transfer-indexer/internal/domain/entity"
	"erc20-transfer-indexer/internal/domain/repository"
	"erc20-transfer-indexer/internal/infrastructure/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

const batchSaveTransfersQuery = `
	UNWIND $transfers AS tr
	MERGE (from:Wallet {address: tr.from})
	MERGE (to:Wallet {address: tr.to})
	MERGE (from)-[t:TRANSFER {tx_hash: tr.tx_hash}]->(to)
	ON CREATE SET
		t.method = tr.method,
		t.value = tr.value,
		t.contract_address = tr.contract_address,
		t.token_symbol = tr.token_symbol,
		t.block_number = tr.block_number,
		t.timestamp = datetime(tr.timestamp),
		t.network = tr.network
	FOREACH (_ IN CASE WHEN tr.contract_address <> '' THEN [1] ELSE [] END |
		MERGE (c:Token {address: tr.contract_address})
		MERGE (from)-[:INTERACTED_WITH]->(c)
		MERGE (to)-[:INTERACTED_WITH]->(c)
	)
`

const saveTokenContractQuery = `
	MERGE (c:Token {address: $address})
	SET
		c.symbol = $symbol,
		c.name = $name,
		c.decimals = $decimals,
		c.network = $network
`

const transferReturnClause = `
	RETURN
		startNode(t).address AS from,
		endNode(t).address AS to,
		t.contract_address AS contract_address,
		t.token_symbol AS token_symbol,
		t.method AS method,
		t.value AS value,
		t.tx_hash AS tx_hash,
		t.block_number AS block_number,
		t.timestamp AS timestamp,
		t.network AS network
	ORDER BY t.timestamp DESC
	LIMIT $limit
`

const walletStatsQuery = `
	MATCH (w:Wallet {address: $address})
	OPTIONAL MATCH (w)-[out:TRANSFER]->(recipient:Wallet)
	WITH w,
		count(out) AS sent,
		count(DISTINCT recipient) AS outgoing,
		min(out.timestamp) AS first_out,
		max(out.timestamp) AS last_out
	OPTIONAL MATCH (sender:Wallet)-[in:TRANSFER]->(w)
	WITH w, sent, outgoing, first_out, last_out,
		count(in) AS received,
		count(DISTINCT sender) AS incoming,
		min(in.timestamp) AS first_in,
		max(in.timestamp) AS last_in
	OPTIONAL MATCH (w)-[:INTERACTED_WITH]->(c:Token)
	RETURN
		w.address AS address,
		sent,
		received,
		incoming,
		outgoing,
		count(DISTINCT c) AS token_count,
		CASE WHEN first_in IS NULL OR first_out < first_in THEN first_out ELSE first_in END AS first_seen,
		CASE WHEN last_in IS NULL OR last_out > last_in THEN last_out ELSE last_in END AS last_seen
`

// Neo4JTransferRepository implements TransferRepository using Neo4J
type Neo4JTransferRepository struct {
	client *Neo4JClient
	logger *logger.Logger
}

// NewNeo4JTransferRepository creates a new Neo4J transfer repository
func NewNeo4JTransferRepository(client *Neo4JClient, logger *logger.Logger) repository.TransferRepository {
	return &Neo4JTransferRepository{
		client: client,
		logger: logger.WithComponent("neo4j-transfer-repository"),
	}
}

// BatchSaveTransfers stores transfers in one UNWIND write
func (r *Neo4JTransferRepository) BatchSaveTransfers(ctx context.Context, transfers []*entity.TransferRecord) error {
	if len(transfers) == 0 {
		return nil
	}

	session := r.client.NewSession(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	rows := make([]map[string]interface{}, 0, len(transfers))
	for _, tr := range transfers {
		rows = append(rows, transferParams(tr))
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, batchSaveTransfersQuery, map[string]interface{}{"transfers": rows})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		r.logger.Error("Failed to batch save transfers",
			zap.Int("count", len(transfers)),
			zap.Error(err))
		return fmt.Errorf("failed to batch save transfers: %w", err)
	}

	r.logger.Debug("Saved transfers", zap.Int("count", len(transfers)))
	return nil
}

// SaveTokenContract creates or updates a token node
func (r *Neo4JTransferRepository) SaveTokenContract(ctx context.Context, token *entity.KnownToken, network string) error {
	session := r.client.NewSession(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	parameters := map[string]interface{}{
		"address":  entity.AddressHex(token.Address),
		"symbol":   token.Symbol,
		"name":     token.Name,
		"decimals": int64(token.Decimals),
		"network":  network,
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, saveTokenContractQuery, parameters)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		r.logger.Error("Failed to save token contract",
			zap.String("symbol", token.Symbol),
			zap.Error(err))
		return fmt.Errorf("failed to save token contract: %w", err)
	}

	return nil
}

// GetTransfersForWallet retrieves transfers sent or received by a wallet
func (r *Neo4JTransferRepository) GetTransfersForWallet(ctx context.Context, address string, limit int) ([]*entity.TransferRecord, error) {
	query := `MATCH (:Wallet {address: $address})-[t:TRANSFER]-(:Wallet)` + transferReturnClause

	transfers, err := r.queryTransfers(ctx, query, map[string]interface{}{
		"address": strings.ToLower(address),
		"limit":   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transfers for wallet: %w", err)
	}
	return transfers, nil
}

// GetTransfersByContract retrieves transfers of one token contract
func (r *Neo4JTransferRepository) GetTransfersByContract(ctx context.Context, contract string, limit int) ([]*entity.TransferRecord, error) {
	query := `MATCH (:Wallet)-[t:TRANSFER {contract_address: $contract}]->(:Wallet)` + transferReturnClause

	transfers, err := r.queryTransfers(ctx, query, map[string]interface{}{
		"contract": strings.ToLower(contract),
		"limit":    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transfers by contract: %w", err)
	}
	return transfers, nil
}

// GetWalletStats summarizes the transfers of a wallet
func (r *Neo4JTransferRepository) GetWalletStats(ctx context.Context, address string) (*entity.WalletStats, error) {
	session := r.client.NewSession(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, walletStatsQuery, map[string]interface{}{"address": strings.ToLower(address)})
		if err != nil {
			return nil, err
		}
		return records.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet stats: %w", err)
	}

	records := result.([]*neo4j.Record)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", repository.ErrWalletNotFound, address)
	}
	return walletStatsFromRow(records[0].AsMap()), nil
}

func (r *Neo4JTransferRepository) queryTransfers(ctx context.Context, query string, parameters map[string]interface{}) ([]*entity.TransferRecord, error) {
	session := r.client.NewSession(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, parameters)
		if err != nil {
			return nil, err
		}
		return records.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	records := result.([]*neo4j.Record)
	transfers := make([]*entity.TransferRecord, 0, len(records))
	for _, record := range records {
		tr, err := transferFromRow(record.AsMap())
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, tr)
	}
	return transfers, nil
}

func transferParams(tr *entity.TransferRecord) map[string]interface{} {
	return map[string]interface{}{
		"from":             strings.ToLower(tr.From),
		"to":               strings.ToLower(tr.To),
		"contract_address": strings.ToLower(tr.ContractAddress),
		"token_symbol":     tr.TokenSymbol,
		"method":           tr.Method,
		"value":            tr.Value,
		"tx_hash":          tr.TxHash,
		"block_number":     int64(tr.BlockNumber),
		"timestamp":        tr.Timestamp.UTC().Format(timestampLayout),
		"network":          tr.Network,
	}
}

func transferFromRow(row map[string]any) (*entity.TransferRecord, error) {
	tr := &entity.TransferRecord{
		From:            stringValue(row["from"]),
		To:              stringValue(row["to"]),
		ContractAddress: stringValue(row["contract_address"]),
		TokenSymbol:     stringValue(row["token_symbol"]),
		Method:          stringValue(row["method"]),
		Value:           stringValue(row["value"]),
		TxHash:          stringValue(row["tx_hash"]),
		Network:         stringValue(row["network"]),
	}

	switch n := row["block_number"].(type) {
	case int64:
		if n < 0 {
			return nil, fmt.Errorf("negative block number %d for %s", n, tr.TxHash)
		}
		tr.BlockNumber = uint64(n)
	case nil:
	default:
		return nil, fmt.Errorf("unexpected block number type %T for %s", n, tr.TxHash)
	}

	switch ts := row["timestamp"].(type) {
	case time.Time:
		tr.Timestamp = ts.UTC()
	case string:
		parsed, err := time.Parse(timestampLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp for %s: %w", tr.TxHash, err)
		}
		tr.Timestamp = parsed
	}

	return tr, nil
}

func walletStatsFromRow(row map[string]any) *entity.WalletStats {
	return &entity.WalletStats{
		Address:             stringValue(row["address"]),
		TransfersSent:       int64Value(row["sent"]),
		TransfersReceived:   int64Value(row["received"]),
		IncomingConnections: int64Value(row["incoming"]),
		OutgoingConnections: int64Value(row["outgoing"]),
		TokenCount:          int64Value(row["token_count"]),
		FirstSeen:           timeValue(row["first_seen"]),
		LastSeen:            timeValue(row["last_seen"]),
	}
}

func int64Value(v any) int64 {
	n, _ := v.(int64)
	return n
}

func timeValue(v any) time.Time {
	t, _ := v.(time.Time)
	return t.UTC()
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
