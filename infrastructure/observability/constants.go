package observability

// Metric name prefixes
const (
	MetricPrefix = "raffle"
)

// Metric names
const (
	// Round metrics
	EntriesTotal          = MetricPrefix + ".entries_total"
	EntriesRejectedTotal  = MetricPrefix + ".entries.rejected_total"
	UpkeepsPerformedTotal = MetricPrefix + ".upkeeps.performed_total"
	UpkeepsSkippedTotal   = MetricPrefix + ".upkeeps.skipped_total"
	FulfillmentsTotal     = MetricPrefix + ".fulfillments_total"
	StuckRoundsTotal      = MetricPrefix + ".rounds.stuck_total"
	RoundResetsTotal      = MetricPrefix + ".rounds.reset_total"
	SettlementLatency     = MetricPrefix + ".settlement.latency"

	// NATS metrics
	NATSMessagesReceivedTotal  = MetricPrefix + ".nats.messages_received_total"
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Payout metrics
	PayoutsTotal = MetricPrefix + ".payouts_total"

	// Database metrics
	DBTransactionDuration = MetricPrefix + ".db.transaction.duration"
)

// Label keys
const (
	LabelRaffleID  = "raffle_id"
	LabelEventType = "event_type"
	LabelResult    = "result"
	LabelReason    = "reason"
	LabelOutcome   = "outcome"
)

// Fulfillment results
const (
	FulfillmentResultSettled        = "settled"
	FulfillmentResultUnknownRequest = "unknown_request"
	FulfillmentResultEarly          = "early"
	FulfillmentResultFailed         = "failed"
)

// Transaction outcomes
const (
	TransactionCommitted  = "commit"
	TransactionRolledBack = "rollback"
)
