package entity

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionMessage_ToRawTransaction(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := &TransactionMessage{
		Hash:             "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060",
		From:             "0xA1E4380A3B1f749673E270229993eE55F35663b4",
		To:               "0xdac17f958d2ee523a2206206994597c13d831ec7",
		Value:            "0xde0b6b3a7640000",
		Data:             "0xa9059cbb",
		BlockNumber:      "46147",
		BlockHash:        "0x4e3a3754410177e6937ef1f84bba68ea139e8d1a2258c5f85db9f1cd715a1bdd",
		TransactionIndex: "0x0",
		Timestamp:        ts,
		Network:          "ethereum",
	}

	tx, err := msg.ToRawTransaction()
	require.NoError(t, err)

	assert.Equal(t, common.HexToHash(msg.Hash), tx.Hash)
	assert.Equal(t, common.HexToAddress("0xa1e4380a3b1f749673e270229993ee55f35663b4"), tx.From)
	require.NotNil(t, tx.To)
	assert.Equal(t, common.HexToAddress(msg.To), *tx.To)
	assert.Equal(t, uint256.NewInt(1_000_000_000_000_000_000), tx.Value)
	assert.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, tx.Input)
	assert.Equal(t, uint64(46147), tx.BlockNumber)
	assert.Equal(t, uint64(0), tx.TransactionIndex)
	assert.Equal(t, ts, tx.Timestamp)
	assert.Equal(t, "ethereum", tx.Network)
}

func TestTransactionMessage_ContractCreation(t *testing.T) {
	for _, to := range []string{"", "0x", "  "} {
		msg := &TransactionMessage{From: "0xa1e4380a3b1f749673e270229993ee55f35663b4", To: to, Data: "6080"}
		tx, err := msg.ToRawTransaction()
		require.NoError(t, err, "to=%q", to)
		assert.Nil(t, tx.To)
		assert.Equal(t, []byte{0x60, 0x80}, tx.Input)
		assert.True(t, tx.Value.IsZero())
	}
}

func TestTransactionMessage_InputField(t *testing.T) {
	const from = "0xa1e4380a3b1f749673e270229993ee55f35663b4"
	const usdt = "0xdac17f958d2ee523a2206206994597c13d831ec7"

	tests := []struct {
		name    string
		data    string
		input   string
		want    []byte
		wantErr assert.ErrorAssertionFunc
	}{
		{name: "input only", input: "0xa9059cbb", want: []byte{0xa9, 0x05, 0x9c, 0xbb}, wantErr: assert.NoError},
		{name: "data only", data: "0xa9059cbb", want: []byte{0xa9, 0x05, 0x9c, 0xbb}, wantErr: assert.NoError},
		{name: "both equal", data: "0xa9059cbb", input: "a9059cbb", want: []byte{0xa9, 0x05, 0x9c, 0xbb}, wantErr: assert.NoError},
		{name: "empty data falls back to input", data: "0x", input: "0x6080", want: []byte{0x60, 0x80}, wantErr: assert.NoError},
		{name: "both differ", data: "0xa9059cbb", input: "0x23b872dd", wantErr: assert.Error},
		{name: "bad input hex", input: "0xzz", wantErr: assert.Error},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &TransactionMessage{From: from, To: usdt, Data: tt.data, Input: tt.input}
			tx, err := msg.ToRawTransaction()
			tt.wantErr(t, err)
			if err == nil {
				assert.Equal(t, tt.want, tx.Input)
			}
		})
	}
}

func TestTransactionMessage_Invalid(t *testing.T) {
	valid := func() TransactionMessage {
		return TransactionMessage{
			From: "0xa1e4380a3b1f749673e270229993ee55f35663b4",
			To:   "0xdac17f958d2ee523a2206206994597c13d831ec7",
		}
	}

	tests := []struct {
		name   string
		mutate func(m *TransactionMessage)
	}{
		{name: "bad from", mutate: func(m *TransactionMessage) { m.From = "0x1234" }},
		{name: "bad to", mutate: func(m *TransactionMessage) { m.To = "wallet" }},
		{name: "bad value", mutate: func(m *TransactionMessage) { m.Value = "ten" }},
		{name: "odd data", mutate: func(m *TransactionMessage) { m.Data = "0xa9059cb" }},
		{name: "bad block number", mutate: func(m *TransactionMessage) { m.BlockNumber = "-1" }},
		{name: "bad transaction index", mutate: func(m *TransactionMessage) { m.TransactionIndex = "0xzz" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := valid()
			tt.mutate(&msg)
			_, err := msg.ToRawTransaction()
			assert.Error(t, err)
		})
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr assert.ErrorAssertionFunc
	}{
		{in: "", want: "0", wantErr: assert.NoError},
		{in: "0x", want: "0", wantErr: assert.NoError},
		{in: "0x0", want: "0", wantErr: assert.NoError},
		{in: "0x00ff", want: "255", wantErr: assert.NoError},
		{in: "1000000000000000000000", want: "1000000000000000000000", wantErr: assert.NoError},
		{in: "0x" + "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", want: "115792089237316195423570985008687907853269984665640564039457584007913129639935", wantErr: assert.NoError},
		{in: "0x1" + "0000000000000000000000000000000000000000000000000000000000000000", wantErr: assert.Error},
		{in: "0xgg", wantErr: assert.Error},
		{in: "-5", wantErr: assert.Error},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			if !tt.wantErr(t, err) || err != nil {
				return
			}
			assert.Equal(t, tt.want, got.Dec())
		})
	}
}

func TestAddressHex(t *testing.T) {
	a := common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	assert.Equal(t, "0xdac17f958d2ee523a2206206994597c13d831ec7", AddressHex(a))
}
