package entity

import (
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// KnownToken is a recognized ERC20 contract.
type KnownToken struct {
	Symbol   string
	Name     string
	Address  common.Address
	Decimals uint8
}

// FormatAmount renders a raw amount in whole token units, e.g. 1500000 USDC
// as "1.5". A nil amount is "0".
func (t KnownToken) FormatAmount(amount *uint256.Int) string {
	if amount == nil {
		return "0"
	}
	if t.Decimals == 0 {
		return amount.Dec()
	}

	base := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(t.Decimals)))
	whole := new(uint256.Int).Div(amount, base)
	frac := new(uint256.Int).Mod(amount, base)
	if frac.IsZero() {
		return whole.Dec()
	}

	digits := frac.Dec()
	digits = strings.Repeat("0", int(t.Decimals)-len(digits)) + digits
	return whole.Dec() + "." + strings.TrimRight(digits, "0")
}

// Units converts a raw amount to whole token units. Precision is lost above
// 2^53.
func (t KnownToken) Units(amount *uint256.Int) float64 {
	f, _ := strconv.ParseFloat(t.FormatAmount(amount), 64)
	return f
}

// TransferRecord is the flattened form of a decoded transfer used for storage
// and export.
type TransferRecord struct {
	ContractAddress string    `json:"contract_address" csv:"contract_address"`
	TokenSymbol     string    `json:"token_symbol" csv:"token_symbol"`
	Method          string    `json:"method" csv:"method"`
	From            string    `json:"from" csv:"from"`
	To              string    `json:"to" csv:"to"`
	Value           string    `json:"value" csv:"value"`
	TxHash          string    `json:"tx_hash" csv:"tx_hash"`
	BlockNumber     uint64    `json:"block_number" csv:"block_number"`
	Timestamp       time.Time `json:"timestamp" csv:"timestamp"`
	Network         string    `json:"network" csv:"network"`
}

// NewTransferRecord flattens a transfer. It fails with ErrNoTransferTransaction
// when the result does not move value.
func NewTransferRecord(result *TransactionAndTransferType) (*TransferRecord, error) {
	from, to, value, err := result.Parties()
	if err != nil {
		return nil, err
	}

	rec := &TransferRecord{
		Method:      result.Transfer.Method.String(),
		From:        AddressHex(from),
		To:          AddressHex(to),
		Value:       value.Dec(),
		TxHash:      result.Transaction.Hash.Hex(),
		BlockNumber: result.Transaction.BlockNumber,
		Timestamp:   result.Transaction.Timestamp,
		Network:     result.Transaction.Network,
	}
	if contract, ok := result.Contract(); ok {
		rec.ContractAddress = AddressHex(contract)
	}
	if result.IsERC20() && result.Token != nil {
		rec.TokenSymbol = result.Token.Symbol
	}
	return rec, nil
}
