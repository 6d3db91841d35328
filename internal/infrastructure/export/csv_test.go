package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"erc20-transfer-indexer/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transactionsCSV = `hash,from,to,value,data,block_number,timestamp,network
0x01,0xa1e4380a3b1f749673e270229993ee55f35663b4,0xdac17f958d2ee523a2206206994597c13d831ec7,0,0xa9059cbb,19000000,2024-03-01T12:00:00Z,ethereum
0x02,0xa1e4380a3b1f749673e270229993ee55f35663b4,,0,0x6080,19000001,,ethereum
`

func TestReadTransactions(t *testing.T) {
	rows, err := ReadTransactions(strings.NewReader(transactionsCSV))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	msg, err := rows[0].ToMessage()
	require.NoError(t, err)
	assert.Equal(t, "0xdac17f958d2ee523a2206206994597c13d831ec7", msg.To)
	assert.Equal(t, "0xa9059cbb", msg.Data)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), msg.Timestamp)

	msg, err = rows[1].ToMessage()
	require.NoError(t, err)
	assert.True(t, msg.Timestamp.IsZero())

	tx, err := msg.ToRawTransaction()
	require.NoError(t, err)
	assert.Nil(t, tx.To)
}

func TestTransactionRow_BadTimestamp(t *testing.T) {
	_, err := (&TransactionRow{Timestamp: "yesterday"}).ToMessage()
	assert.Error(t, err)
}

func TestNewDecodedRow(t *testing.T) {
	usdt := common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7")
	tx := &entity.RawTransaction{Hash: common.HexToHash("0x01"), From: common.HexToAddress("0x0a"), To: &usdt}

	t.Run("erc20", func(t *testing.T) {
		result := &entity.TransactionAndTransferType{
			Transaction: tx,
			Kind:        entity.KindContractInvocation,
			Transfer: entity.DecodedTransfer{
				Method:      entity.Erc20Transfer,
				Recipient:   common.HexToAddress("0x0b"),
				Amount:      uint256.NewInt(2_500_000),
				Selector:    [4]byte{0xa9, 0x05, 0x9c, 0xbb},
				ERC20Method: entity.MethodTransfer,
			},
			Token: &entity.KnownToken{Symbol: "USDT", Address: usdt, Decimals: 6},
		}

		row := NewDecodedRow(tx, result, nil)
		assert.Equal(t, "contract_invocation", row.Kind)
		assert.Equal(t, "erc20_transfer", row.Method)
		assert.Equal(t, "transfer", row.ERC20Method)
		assert.Equal(t, "0xa9059cbb", row.Selector)
		assert.Equal(t, "USDT", row.Token)
		assert.Equal(t, entity.AddressHex(usdt), row.Contract)
		assert.Equal(t, "2500000", row.Amount)
		assert.Equal(t, "2.5", row.Units)
		assert.Empty(t, row.Error)
	})

	t.Run("ether", func(t *testing.T) {
		result := &entity.TransactionAndTransferType{
			Transaction: tx,
			Kind:        entity.KindEtherTransfer,
			Transfer: entity.DecodedTransfer{
				Method:    entity.NativeTransfer,
				Recipient: usdt,
				Amount:    uint256.MustFromDecimal("1500000000000000000"),
			},
		}

		row := NewDecodedRow(tx, result, nil)
		assert.Empty(t, row.Selector)
		assert.Empty(t, row.Contract)
		assert.Equal(t, "1.5", row.Units)
	})

	t.Run("failure", func(t *testing.T) {
		row := NewDecodedRow(tx, nil, errors.New("unexpected end of data"))
		assert.Equal(t, tx.Hash.Hex(), row.Hash)
		assert.Equal(t, "unexpected end of data", row.Error)
		assert.Empty(t, row.Method)
	})
}

func TestWriteDecoded(t *testing.T) {
	var buf bytes.Buffer
	err := WriteDecoded(&buf, []*DecodedRow{{Hash: "0x01", Kind: "ether_transfer", Method: "native_transfer", Amount: "5"}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "hash,kind,method,erc20_method,selector,contract,token,from,to,amount,units,error", lines[0])
	assert.Equal(t, "0x01,ether_transfer,native_transfer,,,,,,,5,,", lines[1])
}

func TestWriteTransfers(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTransfers(&buf, []*entity.TransferRecord{{
		Method:      "erc20_transfer",
		TokenSymbol: "DAI",
		Value:       "1",
		BlockNumber: 7,
		Timestamp:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "contract_address,token_symbol,method,from,to,value,tx_hash,block_number,timestamp,network", lines[0])
	assert.Equal(t, ",DAI,erc20_transfer,,,1,,7,2024-03-01T12:00:00Z,", lines[1])
}
