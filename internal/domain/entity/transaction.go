package entity

import (
	"bytes"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// TransactionMessage represents an Ethereum transaction event from NATS
type TransactionMessage struct {
	Hash             string    `json:"hash"`
	From             string    `json:"from"`
	To               string    `json:"to"`
	Value            string    `json:"value"`
	Data             string    `json:"data"`
	Input            string    `json:"input"`
	BlockNumber      string    `json:"block_number"`
	BlockHash        string    `json:"block_hash"`
	TransactionIndex string    `json:"transaction_index"`
	Timestamp        time.Time `json:"timestamp"`
	Network          string    `json:"network"`
}

// RawTransaction is an already-populated transaction record. It is never
// mutated after construction.
type RawTransaction struct {
	Hash             common.Hash
	From             common.Address
	To               *common.Address // nil for contract creation
	Value            *uint256.Int
	Input            []byte
	BlockHash        common.Hash
	BlockNumber      uint64
	TransactionIndex uint64
	Timestamp        time.Time
	Network          string
}

// ToRawTransaction validates the hex fields of the message and converts them to
// their binary form.
func (m *TransactionMessage) ToRawTransaction() (*RawTransaction, error) {
	if !common.IsHexAddress(m.From) {
		return nil, fmt.Errorf("invalid from address %q", m.From)
	}

	tx := &RawTransaction{
		Hash:      common.HexToHash(m.Hash),
		From:      common.HexToAddress(m.From),
		BlockHash: common.HexToHash(m.BlockHash),
		Timestamp: m.Timestamp,
		Network:   m.Network,
	}

	if to := strings.TrimSpace(m.To); to != "" && to != "0x" {
		if !common.IsHexAddress(to) {
			return nil, fmt.Errorf("invalid to address %q", m.To)
		}
		addr := common.HexToAddress(to)
		tx.To = &addr
	}

	value, err := ParseQuantity(m.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid value: %w", err)
	}
	tx.Value = value

	input, err := m.calldata()
	if err != nil {
		return nil, err
	}
	tx.Input = input

	if tx.BlockNumber, err = parseUint(m.BlockNumber); err != nil {
		return nil, fmt.Errorf("invalid block number: %w", err)
	}
	if tx.TransactionIndex, err = parseUint(m.TransactionIndex); err != nil {
		return nil, fmt.Errorf("invalid transaction index: %w", err)
	}

	return tx, nil
}

// calldata decodes the "data" field, or "input" as JSON-RPC names it. Both may
// be set only when they carry the same bytes.
func (m *TransactionMessage) calldata() ([]byte, error) {
	data, err := decodeHexData(m.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	input, err := decodeHexData(m.Input)
	if err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	switch {
	case len(input) == 0:
		return data, nil
	case len(data) == 0:
		return input, nil
	case !bytes.Equal(data, input):
		return nil, fmt.Errorf("data and input fields differ")
	default:
		return data, nil
	}
}

// ParseQuantity parses a decimal or 0x-prefixed hex quantity into a 256-bit
// unsigned integer. An empty string is zero.
func ParseQuantity(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" || s == "0X" {
		return new(uint256.Int), nil
	}
	if has0xPrefix(s) {
		b, ok := new(big.Int).SetString(s[2:], 16)
		if !ok || b.Sign() < 0 {
			return nil, fmt.Errorf("invalid hex quantity %q", s)
		}
		v, overflow := uint256.FromBig(b)
		if overflow {
			return nil, fmt.Errorf("quantity %q exceeds 256 bits", s)
		}
		return v, nil
	}
	return uint256.FromDecimal(s)
}

// AddressHex returns the canonical lowercase 0x-prefixed form of an address.
func AddressHex(a common.Address) string {
	return hexutil.Encode(a[:])
}

func decodeHexData(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" || s == "0X" {
		return nil, nil
	}
	if !has0xPrefix(s) {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

func parseUint(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 0, 64)
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
