package messaging

import (
	"strings"
	"sync"
	"testing"

	"erc20-transfer-indexer/internal/infrastructure/config"
	"erc20-transfer-indexer/internal/infrastructure/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transferMessage = `{
	"hash": "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060",
	"from": "0xa1e4380a3b1f749673e270229993ee55f35663b4",
	"to": "0xdac17f958d2ee523a2206206994597c13d831ec7",
	"value": "0",
	"data": "0xa9059cbb0000000000000000000000006748f50f686bfbca6fe8ad62b22228b87f31ff2b00000000000000000000000000000000000000000000003635c9adc5dea00000",
	"block_number": "19000000",
	"timestamp": "2024-03-01T12:00:00Z",
	"network": "ethereum"
}`

func newTestConsumer(pending int) *NATSConsumer {
	c := NewNATSConsumer(&config.NATSConfig{SubjectPrefix: "transactions", MaxPendingMessages: pending}, logger.NewNop())
	c.isRunning.Store(true)
	return c
}

func TestDecodeTransactionMessage(t *testing.T) {
	tx, err := DecodeTransactionMessage([]byte(transferMessage))
	require.NoError(t, err)

	require.NotNil(t, tx.To)
	assert.Equal(t, common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7"), *tx.To)
	assert.Len(t, tx.Input, 68)
	assert.Equal(t, uint64(19_000_000), tx.BlockNumber)
	assert.True(t, tx.Value.IsZero())
}

func TestDecodeTransactionMessage_InputKey(t *testing.T) {
	data := strings.Replace(transferMessage, `"data":`, `"input":`, 1)

	tx, err := DecodeTransactionMessage([]byte(data))
	require.NoError(t, err)
	assert.Len(t, tx.Input, 68)
	assert.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, tx.Input[:4])
}

func TestDecodeTransactionMessage_Invalid(t *testing.T) {
	for _, data := range []string{
		`not json`,
		`{"from": "nope"}`,
		`{"from": "0xa1e4380a3b1f749673e270229993ee55f35663b4", "data": "0xabc"}`,
	} {
		_, err := DecodeTransactionMessage([]byte(data))
		assert.Error(t, err, data)
	}
}

func TestNATSConsumer_Subject(t *testing.T) {
	assert.Equal(t, "transactions.events", newTestConsumer(1).Subject())
}

func TestNATSConsumer_HandleMessageQueuesTransaction(t *testing.T) {
	c := newTestConsumer(1)

	c.handleMessage(&nats.Msg{Data: []byte(transferMessage)}, false)

	select {
	case tx := <-c.GetMessageChannel():
		assert.Equal(t, common.HexToHash("0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"), tx.Hash)
	default:
		t.Fatal("expected a queued transaction")
	}
}

func TestNATSConsumer_HandleMessageDropsWhenFull(t *testing.T) {
	c := newTestConsumer(1)

	c.handleMessage(&nats.Msg{Data: []byte(transferMessage)}, false)
	c.handleMessage(&nats.Msg{Data: []byte(transferMessage)}, false)

	assert.Len(t, c.msgChan, 1)
}

func TestNATSConsumer_HandleMessageSkipsMalformed(t *testing.T) {
	c := newTestConsumer(1)

	c.handleMessage(&nats.Msg{Data: []byte(`{"from": 42}`)}, false)

	assert.Empty(t, c.msgChan)
}

func TestNATSConsumer_DisconnectWithoutConnect(t *testing.T) {
	c := newTestConsumer(1)

	require.NoError(t, c.Disconnect())
	require.NoError(t, c.Disconnect())
	assert.False(t, c.IsConnected())

	_, open := <-c.GetMessageChannel()
	assert.False(t, open)
}

func TestNATSConsumer_HandleMessageDuringDisconnect(t *testing.T) {
	for round := 0; round < 200; round++ {
		c := newTestConsumer(4)

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.handleMessage(&nats.Msg{Data: []byte(transferMessage)}, false)
			}()
		}
		require.NoError(t, c.Disconnect())
		wg.Wait()

		// Late messages after close are dropped, not sent on the closed channel
		c.isRunning.Store(true)
		assert.NotPanics(t, func() {
			c.handleMessage(&nats.Msg{Data: []byte(transferMessage)}, false)
		})
	}
}
