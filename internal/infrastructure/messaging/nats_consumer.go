package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"erc20-transfer-indexer/internal/domain/entity"
	"erc20-transfer-indexer/internal/infrastructure/config"
	"erc20-transfer-indexer/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	fetchBatchSize = 10
	fetchMaxWait   = 5 * time.Second
)

// NATSConsumer consumes transaction messages and delivers them as
// RawTransactions on a buffered channel
type NATSConsumer struct {
	conn      *nats.Conn
	js        nats.JetStreamContext
	sub       *nats.Subscription
	config    *config.NATSConfig
	logger    *logger.Logger
	msgChan   chan *entity.RawTransaction
	isRunning atomic.Bool
	wg        sync.WaitGroup

	// chanMu guards sends on msgChan against its close
	chanMu sync.RWMutex
	closed bool
}

// NewNATSConsumer creates a new NATS consumer
func NewNATSConsumer(cfg *config.NATSConfig, logger *logger.Logger) *NATSConsumer {
	return &NATSConsumer{
		config:  cfg,
		logger:  logger.WithComponent("nats-consumer"),
		msgChan: make(chan *entity.RawTransaction, cfg.MaxPendingMessages),
	}
}

// Subject is the subject transaction events are published on
func (n *NATSConsumer) Subject() string {
	return fmt.Sprintf("%s.events", n.config.SubjectPrefix)
}

// Connect connects to NATS server and sets up consumer
func (n *NATSConsumer) Connect(ctx context.Context) error {
	if !n.config.Enabled {
		n.logger.Info("NATS is disabled, skipping connection")
		return nil
	}

	n.logger.Info("Connecting to NATS server", zap.String("url", n.config.URL))

	opts := []nats.Option{
		nats.Name(n.config.ConsumerGroup),
		nats.Timeout(n.config.ConnectTimeout),
		nats.ReconnectWait(n.config.ReconnectDelay),
		nats.MaxReconnects(n.config.ReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			n.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			n.logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			n.logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(n.config.URL, opts...)
	if err != nil {
		n.logger.Error("Failed to connect to NATS", zap.Error(err))
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	n.conn = conn

	// Try JetStream first, if not available fall back to core NATS
	js, err := conn.JetStream(nats.Context(ctx))
	if err != nil {
		n.logger.Warn("JetStream not available, using core NATS", zap.Error(err))
		return n.setupCoreNATSSubscription()
	}

	n.js = js
	return n.setupJetStreamSubscription()
}

// setupJetStreamSubscription binds a durable pull consumer named after the
// consumer group
func (n *NATSConsumer) setupJetStreamSubscription() error {
	durable := n.config.ConsumerGroup

	n.logger.Info("Setting up JetStream subscription",
		zap.String("subject", n.Subject()),
		zap.String("stream", n.config.StreamName),
		zap.String("consumer", durable))

	sub, err := n.js.PullSubscribe(n.Subject(), durable, nats.BindStream(n.config.StreamName))
	if err != nil {
		n.logger.Warn("Failed to create JetStream pull consumer, falling back to core NATS", zap.Error(err))
		return n.setupCoreNATSSubscription()
	}

	n.sub = sub
	n.isRunning.Store(true)

	n.wg.Add(1)
	go n.processJetStreamMessages()

	n.logger.Info("Successfully connected to NATS JetStream", zap.String("subject", n.Subject()))
	return nil
}

// processJetStreamMessages fetches from the pull subscription until stopped
func (n *NATSConsumer) processJetStreamMessages() {
	defer n.wg.Done()
	n.logger.Info("Starting JetStream message processing")

	for n.isRunning.Load() {
		msgs, err := n.sub.Fetch(fetchBatchSize, nats.MaxWait(fetchMaxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			if !n.isRunning.Load() {
				break
			}
			n.logger.Error("Failed to fetch messages", zap.Error(err))
			continue
		}

		n.logger.Debug("Fetched messages from JetStream", zap.Int("count", len(msgs)))
		for _, msg := range msgs {
			n.handleMessage(msg, true)
		}
	}

	n.logger.Info("Stopped JetStream message processing")
}

// setupCoreNATSSubscription sets up core NATS queue subscription
func (n *NATSConsumer) setupCoreNATSSubscription() error {
	queueGroup := n.config.ConsumerGroup

	n.logger.Info("Setting up core NATS subscription",
		zap.String("subject", n.Subject()),
		zap.String("queue_group", queueGroup))

	// Running before subscribing so the first callback is not dropped
	n.isRunning.Store(true)
	sub, err := n.conn.QueueSubscribe(n.Subject(), queueGroup, func(msg *nats.Msg) {
		n.handleMessage(msg, false)
	})
	if err != nil {
		n.isRunning.Store(false)
		n.logger.Error("Failed to subscribe to subject", zap.Error(err))
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	n.sub = sub

	n.logger.Info("Successfully connected to core NATS",
		zap.String("subject", n.Subject()),
		zap.String("queue_group", queueGroup))
	return nil
}

// handleMessage converts a message and queues it. Malformed messages are
// terminated; a full channel naks so JetStream redelivers.
func (n *NATSConsumer) handleMessage(msg *nats.Msg, jetStream bool) {
	if !n.isRunning.Load() {
		if jetStream {
			_ = msg.Nak()
		}
		return
	}

	tx, err := DecodeTransactionMessage(msg.Data)
	if err != nil {
		n.logger.Error("Failed to decode transaction message", zap.Error(err))
		if jetStream {
			_ = msg.Term()
		}
		return
	}

	if !n.enqueue(tx) {
		n.logger.Warn("Message channel is full or closed, dropping message", zap.String("hash", tx.Hash.Hex()))
		if jetStream {
			_ = msg.Nak()
		}
		return
	}

	n.logger.Debug("Queued transaction", zap.String("hash", tx.Hash.Hex()))
	if jetStream {
		_ = msg.Ack()
	}
}

// enqueue hands tx to the channel without blocking. It reports false when the
// channel is full or already closed.
func (n *NATSConsumer) enqueue(tx *entity.RawTransaction) bool {
	n.chanMu.RLock()
	defer n.chanMu.RUnlock()

	if n.closed {
		return false
	}
	select {
	case n.msgChan <- tx:
		return true
	default:
		return false
	}
}

// DecodeTransactionMessage parses the JSON wire form of a transaction
func DecodeTransactionMessage(data []byte) (*entity.RawTransaction, error) {
	var msg entity.TransactionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	tx, err := msg.ToRawTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to convert transaction %s: %w", msg.Hash, err)
	}
	return tx, nil
}

// Disconnect stops consumption and closes the message channel
func (n *NATSConsumer) Disconnect() error {
	n.isRunning.Store(false)

	if n.sub != nil {
		if err := n.sub.Unsubscribe(); err != nil {
			n.logger.Warn("Failed to unsubscribe", zap.Error(err))
		}
	}
	n.wg.Wait()
	n.sub = nil

	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
	n.chanMu.Lock()
	if !n.closed {
		n.closed = true
		close(n.msgChan)
	}
	n.chanMu.Unlock()
	n.logger.Info("Disconnected from NATS")
	return nil
}

// IsConnected checks if connected to NATS
func (n *NATSConsumer) IsConnected() bool {
	return n.isRunning.Load() && n.conn != nil && n.conn.IsConnected()
}

// GetMessageChannel returns the message channel
func (n *NATSConsumer) GetMessageChannel() <-chan *entity.RawTransaction {
	return n.msgChan
}
