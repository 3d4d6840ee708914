package observability

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// maxDatumsPerPut is the PutMetricData limit on datums per request
const maxDatumsPerPut = 1000

// CloudWatchAPI is the part of the CloudWatch client used for publishing
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metrics buffers business metrics and publishes them to CloudWatch on Flush.
type Metrics struct {
	namespace string
	client    CloudWatchAPI
	logger    *zap.Logger

	mu     sync.Mutex
	buffer []types.MetricDatum
	now    func() time.Time
}

// NewMetrics creates a CloudWatch recorder for the given namespace
func NewMetrics(namespace string, client CloudWatchAPI) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
}

// WithLogger sets the logger used to report background flush failures
func (m *Metrics) WithLogger(logger *zap.Logger) *Metrics {
	m.logger = logger
	return m
}

// Increment implements Recorder
func (m *Metrics) Increment(metric, label string) {
	m.add(metric, label, 1, types.StandardUnitCount)
}

// StartTimer implements Recorder. The duration is recorded in milliseconds.
func (m *Metrics) StartTimer(metric, label string) func() {
	start := m.now()
	return func() {
		elapsed := m.now().Sub(start)
		m.add(metric, label, float64(elapsed)/float64(time.Millisecond), types.StandardUnitMilliseconds)
	}
}

func (m *Metrics) add(metric, label string, value float64, unit types.StandardUnit) {
	datum := types.MetricDatum{
		MetricName: aws.String(metric),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(m.now()),
	}
	if label != "" {
		datum.Dimensions = []types.Dimension{{Name: aws.String("Operation"), Value: aws.String(label)}}
	}

	m.mu.Lock()
	m.buffer = append(m.buffer, datum)
	m.mu.Unlock()
}

// Pending returns the number of buffered datums
func (m *Metrics) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffer)
}

// Flush publishes buffered datums. Datums of failed batches are dropped.
func (m *Metrics) Flush(ctx context.Context) error {
	m.mu.Lock()
	pending := m.buffer
	m.buffer = nil
	m.mu.Unlock()

	var errs []error
	for start := 0; start < len(pending); start += maxDatumsPerPut {
		end := min(start+maxDatumsPerPut, len(pending))
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: pending[start:end],
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run flushes every interval until ctx is done, then flushes once more
func (m *Metrics) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := m.Flush(flushCtx); err != nil {
				m.logger.Warn("Final metrics flush failed", zap.Error(err))
			}
			cancel()
			return
		case <-ticker.C:
			if err := m.Flush(ctx); err != nil {
				m.logger.Warn("Metrics flush failed", zap.Error(err))
			}
		}
	}
}
