package metrics

import (
	"errors"

	"erc20-transfer-indexer/internal/domain/entity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the indexer
type Metrics struct {
	transactionsDecodedTotal *prometheus.CounterVec
	decodeFailuresTotal      *prometheus.CounterVec
	transfersSavedTotal      *prometheus.CounterVec
	tokenAmountTotal         *prometheus.CounterVec
	batchDuration            *prometheus.HistogramVec
	batchSize                prometheus.Histogram
	repositoryOpsTotal       *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance and registers its collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		transactionsDecodedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_decoded_total",
				Help: "Total number of transactions decoded by transfer method and kind",
			},
			[]string{"method", "kind"},
		),
		decodeFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transaction_decode_failures_total",
				Help: "Total number of transactions whose calldata failed to decode",
			},
			[]string{"reason"},
		),
		transfersSavedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfers_saved_total",
				Help: "Total number of transfers written to the graph by token",
			},
			[]string{"token"},
		),
		tokenAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_transfer_amount_total",
				Help: "Sum of transferred amounts of registered tokens in whole units",
			},
			[]string{"token"},
		),
		batchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transaction_batch_duration_seconds",
				Help:    "Duration of transaction batch processing in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"status"},
		),
		batchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "transaction_batch_size",
				Help:    "Number of transactions per processed batch",
				Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
			},
		),
		repositoryOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repository_operations_total",
				Help: "Total number of repository operations by operation and status",
			},
			[]string{"operation", "status"},
		),
	}
}

// RecordDecoded records a successfully classified transaction.
func (m *Metrics) RecordDecoded(method entity.TransferMethod, kind entity.TransactionKind) {
	m.transactionsDecodedTotal.WithLabelValues(method.String(), kind.String()).Inc()
}

// RecordDecodeFailure records a failed decode, labelled by error class.
func (m *Metrics) RecordDecodeFailure(err error) {
	m.decodeFailuresTotal.WithLabelValues(FailureReason(err)).Inc()
}

// RecordTransfersSaved records transfers written for one token ("ether" for
// native transfers, "unregistered" for unknown contracts).
func (m *Metrics) RecordTransfersSaved(token string, count int) {
	m.transfersSavedTotal.WithLabelValues(token).Add(float64(count))
}

// RecordTokenAmount adds a whole-unit amount to the token's running total.
func (m *Metrics) RecordTokenAmount(token string, amount float64) {
	if amount < 0 {
		return
	}
	m.tokenAmountTotal.WithLabelValues(token).Add(amount)
}

// RecordBatch records the duration and size of a processed batch.
func (m *Metrics) RecordBatch(size int, duration float64, err error) {
	m.batchDuration.WithLabelValues(status(err)).Observe(duration)
	m.batchSize.Observe(float64(size))
}

// RecordRepositoryOperation records a repository call outcome.
func (m *Metrics) RecordRepositoryOperation(operation string, err error) {
	m.repositoryOpsTotal.WithLabelValues(operation, status(err)).Inc()
}

// FailureReason maps a decode error to a stable label value.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, entity.ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, entity.ErrInvalidLength):
		return "invalid_length"
	case errors.Is(err, entity.ErrMalformedArgument):
		return "malformed_argument"
	case errors.Is(err, entity.ErrUnsupportedMethod):
		return "unsupported_method"
	default:
		return "other"
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
