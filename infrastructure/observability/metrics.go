package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	log "github.com/sirupsen/logrus"
)

// Settings configures the metrics exporter
type Settings struct {
	Enabled          bool
	ServiceName      string
	Environment      string
	ExporterType     string // console, otlp or none
	OTLPEndpoint     string
	ExportIntervalMs int
}

// MetricsProvider manages OpenTelemetry metrics for the raffle service.
// A nil *MetricsProvider is valid and records nothing.
type MetricsProvider struct {
	settings      Settings
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	entriesCounter               metric.Int64Counter
	entriesRejectedCounter       metric.Int64Counter
	upkeepsPerformedCounter      metric.Int64Counter
	upkeepsSkippedCounter        metric.Int64Counter
	fulfillmentsCounter          metric.Int64Counter
	stuckRoundsCounter           metric.Int64Counter
	roundResetsCounter           metric.Int64Counter
	settlementLatencyHist        metric.Float64Histogram
	dbTransactionHist            metric.Float64Histogram
	natsMessagesReceivedCounter  metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
	payoutsCounter               metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(settings Settings) *MetricsProvider {
	return &MetricsProvider{
		settings: settings,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.settings.Enabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(mp.settings.ServiceName),
			attribute.String("environment", mp.settings.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.settings.ExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.settings.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.settings.OTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.settings.ExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.settings.ExportIntervalMs)*time.Millisecond),
			),
		),
	)

	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("raffle")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.entriesCounter, EntriesTotal, "Total number of accepted raffle entries"},
		{&mp.entriesRejectedCounter, EntriesRejectedTotal, "Total number of rejected raffle entries"},
		{&mp.upkeepsPerformedCounter, UpkeepsPerformedTotal, "Total number of randomness requests issued"},
		{&mp.upkeepsSkippedCounter, UpkeepsSkippedTotal, "Total number of upkeep attempts that were not needed"},
		{&mp.fulfillmentsCounter, FulfillmentsTotal, "Total number of randomness fulfillments by result"},
		{&mp.stuckRoundsCounter, StuckRoundsTotal, "Total number of watchdog observations of stuck rounds"},
		{&mp.roundResetsCounter, RoundResetsTotal, "Total number of stuck rounds reopened"},
		{&mp.natsMessagesReceivedCounter, NATSMessagesReceivedTotal, "Total number of NATS messages received"},
		{&mp.natsMessagesPublishedCounter, NATSMessagesPublishedTotal, "Total number of NATS messages published"},
		{&mp.payoutsCounter, PayoutsTotal, "Total number of pool payouts"},
	}

	for _, c := range counters {
		counter, err := mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
		*c.target = counter
	}

	var err error
	mp.settlementLatencyHist, err = mp.meter.Float64Histogram(
		SettlementLatency,
		metric.WithDescription("Time between randomness request and winner payout in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 15, 30, 60, 300, 900, 3600),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlement latency histogram: %w", err)
	}

	mp.dbTransactionHist, err = mp.meter.Float64Histogram(
		DBTransactionDuration,
		metric.WithDescription("Duration of unit of work transactions in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction duration histogram: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp == nil {
		return nil
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordEntry records an accepted entry
func (mp *MetricsProvider) RecordEntry(raffleID int64) {
	if !mp.isEnabled() {
		return
	}
	mp.entriesCounter.Add(context.Background(), 1, raffleAttrs(raffleID))
}

// RecordEntryRejected records a rejected entry with the rejection reason
func (mp *MetricsProvider) RecordEntryRejected(raffleID int64, reason string) {
	if !mp.isEnabled() {
		return
	}
	mp.entriesRejectedCounter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.Int64(LabelRaffleID, raffleID),
		attribute.String(LabelReason, reason),
	))
}

// RecordUpkeepPerformed records an issued randomness request
func (mp *MetricsProvider) RecordUpkeepPerformed(raffleID int64) {
	if !mp.isEnabled() {
		return
	}
	mp.upkeepsPerformedCounter.Add(context.Background(), 1, raffleAttrs(raffleID))
}

// RecordUpkeepSkipped records a PerformUpkeep rejected because the predicate was false
func (mp *MetricsProvider) RecordUpkeepSkipped(raffleID int64) {
	if !mp.isEnabled() {
		return
	}
	mp.upkeepsSkippedCounter.Add(context.Background(), 1, raffleAttrs(raffleID))
}

// RecordFulfillment records the outcome of a fulfillment delivery
func (mp *MetricsProvider) RecordFulfillment(result string) {
	if !mp.isEnabled() {
		return
	}
	mp.fulfillmentsCounter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String(LabelResult, result),
	))
}

// RecordSettlement records a payout and the time the round spent settling
func (mp *MetricsProvider) RecordSettlement(raffleID int64, latency time.Duration) {
	if !mp.isEnabled() {
		return
	}
	mp.payoutsCounter.Add(context.Background(), 1, raffleAttrs(raffleID))
	mp.settlementLatencyHist.Record(context.Background(), latency.Seconds(), raffleAttrs(raffleID))
}

// RecordTransaction records how long a unit of work held its transaction
func (mp *MetricsProvider) RecordTransaction(outcome string, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}
	mp.dbTransactionHist.Record(context.Background(), float64(duration.Microseconds())/1000, metric.WithAttributes(
		attribute.String(LabelOutcome, outcome),
	))
}

// RecordStuckRound records a watchdog observation of a stuck round
func (mp *MetricsProvider) RecordStuckRound(raffleID int64) {
	if !mp.isEnabled() {
		return
	}
	mp.stuckRoundsCounter.Add(context.Background(), 1, raffleAttrs(raffleID))
}

// RecordRoundReset records a reopened stuck round
func (mp *MetricsProvider) RecordRoundReset(raffleID int64) {
	if !mp.isEnabled() {
		return
	}
	mp.roundResetsCounter.Add(context.Background(), 1, raffleAttrs(raffleID))
}

// RecordNATSMessageReceived records a NATS message being received
func (mp *MetricsProvider) RecordNATSMessageReceived(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesReceivedCounter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String(LabelEventType, eventType),
	))
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesPublishedCounter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String(LabelEventType, eventType),
	))
}

func raffleAttrs(raffleID int64) metric.MeasurementOption {
	return metric.WithAttributes(attribute.Int64(LabelRaffleID, raffleID))
}

// isEnabled checks if metrics are enabled and instruments exist
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meter != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, settings Settings) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(settings)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider, nil before initialization
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	return globalMetrics.Shutdown(ctx)
}
