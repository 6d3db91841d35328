// Package export reads raw transactions from CSV and writes decoded transfers
// back out as CSV.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"erc20-transfer-indexer/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gocarina/gocsv"
)

// TransactionRow is one transaction in an input CSV. Header names follow the
// JSON wire form of entity.TransactionMessage.
type TransactionRow struct {
	Hash             string `csv:"hash"`
	From             string `csv:"from"`
	To               string `csv:"to"`
	Value            string `csv:"value"`
	Data             string `csv:"data"`
	Input            string `csv:"input"`
	BlockNumber      string `csv:"block_number"`
	BlockHash        string `csv:"block_hash"`
	TransactionIndex string `csv:"transaction_index"`
	Timestamp        string `csv:"timestamp"`
	Network          string `csv:"network"`
}

// ToMessage converts the row into a transaction message. An empty timestamp
// is the zero time.
func (r *TransactionRow) ToMessage() (*entity.TransactionMessage, error) {
	msg := &entity.TransactionMessage{
		Hash:             r.Hash,
		From:             r.From,
		To:               r.To,
		Value:            r.Value,
		Data:             r.Data,
		Input:            r.Input,
		BlockNumber:      r.BlockNumber,
		BlockHash:        r.BlockHash,
		TransactionIndex: r.TransactionIndex,
		Network:          r.Network,
	}
	if ts := strings.TrimSpace(r.Timestamp); ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", r.Timestamp, err)
		}
		msg.Timestamp = parsed
	}
	return msg, nil
}

// DecodedRow is one decoded transaction in an output CSV. Error is set and
// the transfer columns are empty when decoding failed.
type DecodedRow struct {
	Hash        string `csv:"hash" json:"hash,omitempty"`
	Kind        string `csv:"kind" json:"kind,omitempty"`
	Method      string `csv:"method" json:"method,omitempty"`
	ERC20Method string `csv:"erc20_method" json:"erc20_method,omitempty"`
	Selector    string `csv:"selector" json:"selector,omitempty"`
	Contract    string `csv:"contract" json:"contract,omitempty"`
	Token       string `csv:"token" json:"token,omitempty"`
	From        string `csv:"from" json:"from,omitempty"`
	To          string `csv:"to" json:"to,omitempty"`
	Amount      string `csv:"amount" json:"amount,omitempty"`
	Units       string `csv:"units" json:"units,omitempty"`
	Error       string `csv:"error" json:"error,omitempty"`

	// ToIsContract is only known when the target was looked up on chain
	ToIsContract *bool `csv:"-" json:"to_is_contract,omitempty"`
}

// NewDecodedRow flattens a decode outcome.
func NewDecodedRow(tx *entity.RawTransaction, result *entity.TransactionAndTransferType, decodeErr error) *DecodedRow {
	row := &DecodedRow{Hash: tx.Hash.Hex()}
	if decodeErr != nil {
		row.Error = decodeErr.Error()
		return row
	}

	row.Kind = result.Kind.String()
	row.Method = result.Transfer.Method.String()
	row.ERC20Method = string(result.Transfer.ERC20Method)
	if result.Kind == entity.KindContractInvocation {
		row.Selector = hexutil.Encode(result.Transfer.Selector[:])
	}
	if result.Token != nil {
		row.Token = result.Token.Symbol
	}
	if contract, ok := result.Contract(); ok {
		row.Contract = entity.AddressHex(contract)
	}

	from, to, amount, err := result.Parties()
	if err != nil {
		return row
	}
	row.From = entity.AddressHex(from)
	row.To = entity.AddressHex(to)
	row.Amount = amount.Dec()
	switch {
	case result.IsEther():
		row.Units = entity.KnownToken{Decimals: 18}.FormatAmount(amount)
	case result.Token != nil:
		row.Units = result.Token.FormatAmount(amount)
	}
	return row
}

// ReadTransactions parses transaction rows from CSV.
func ReadTransactions(r io.Reader) ([]*TransactionRow, error) {
	var rows []*TransactionRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to read transactions csv: %w", err)
	}
	return rows, nil
}

// ReadTransactionsFile parses transaction rows from a CSV file.
func ReadTransactionsFile(path string) ([]*TransactionRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTransactions(f)
}

// WriteDecoded writes decoded rows with a header line.
func WriteDecoded(w io.Writer, rows []*DecodedRow) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write decoded csv: %w", err)
	}
	return nil
}

// WriteTransfers writes transfer records with a header line.
func WriteTransfers(w io.Writer, records []*entity.TransferRecord) error {
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("failed to write transfers csv: %w", err)
	}
	return nil
}
