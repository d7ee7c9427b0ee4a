package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Catalog Types
// -----------------------------------------------------------------------------

// Product represents a tracked listing on an external marketplace.
// Product rows are owned by the surrounding application; the engine
// mutates only LastUpdate.
type Product struct {
	ID                uuid.UUID     // Primary key
	Name              string        // Display name
	URL               string        // Listing URL on the source site
	Site              string        // Source site identifier (e.g. "amazon", "flipkart")
	Currency          string        // ISO 4217 code (e.g. "INR")
	Active            bool          // Inactive products are never updated
	MinUpdateInterval time.Duration // Minimum gap between updates (0 = engine default)
	LastUpdate        time.Time     // Last successful update (zero = never updated)
	CreatedAt         time.Time     // Row creation time
}

// RuleKind selects the condition an alert rule watches for.
type RuleKind string

const (
	RulePriceDrop     RuleKind = "price_drop"
	RulePriceIncrease RuleKind = "price_increase"
	RuleDemandSpike   RuleKind = "demand_spike"
)

// ThresholdMode fixes how a rule's threshold is read.
type ThresholdMode string

const (
	ModePercent  ThresholdMode = "percent"  // Threshold is a percentage change
	ModeAbsolute ThresholdMode = "absolute" // Threshold is a price level
)

// AlertRule represents a user-configured alert condition on a product.
// Rule rows are owned by the surrounding application; the engine
// mutates only LastFiredAt.
type AlertRule struct {
	ID          int64           // Primary key
	ProductID   uuid.UUID       // Foreign key to Product
	Kind        RuleKind        // Watched condition
	Threshold   decimal.Decimal // Trigger level, read per Mode
	Mode        ThresholdMode   // percent or absolute, fixed per rule
	Channels    []string        // Delivery channels (e.g. "email", "web")
	Active      bool            // Inactive rules never fire
	Cooldown    time.Duration   // Re-fire suppression window (0 = engine default)
	LastFiredAt *time.Time      // Last firing time (nil = never fired)
}

// -----------------------------------------------------------------------------
// Time-Series Types
// -----------------------------------------------------------------------------

// Availability describes whether a listing could be purchased when observed.
type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
	AvailabilityUnknown    Availability = "unknown"
)

// Quote is one observed price point for a product. Quotes are append-only
// and unique per (ProductID, ObservedAt).
type Quote struct {
	ProductID    uuid.UUID       // Foreign key to Product
	ObservedAt   time.Time       // Observation time (UTC)
	Price        decimal.Decimal // Listed price in Currency
	Currency     string          // ISO 4217 code
	Availability Availability    // Purchasability at observation time
	Source       string          // Adapter that produced the quote
	RawRef       string          // Raw extracted price text, kept for audit
}

// -----------------------------------------------------------------------------
// Derived Types
// -----------------------------------------------------------------------------

// TrendDirection classifies recent price movement.
type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

// TrendSignal is a derived snapshot of recent price and demand movement.
// Signals are recomputed from quotes on demand and never persisted.
type TrendSignal struct {
	Insufficient bool           // True when history is too short to judge
	Direction    TrendDirection // Movement over the window
	Magnitude    float64        // Total relative drift over the window, in percent
	Confidence   float64        // [0,1], higher = steadier series
	DemandScore  float64        // Demand proxy, higher = rising demand
	SampleSize   int            // Quotes considered
}

// AlertEvent is a single alert firing handed to the dispatcher boundary.
type AlertEvent struct {
	ProductID     uuid.UUID       // Product the rule belongs to
	RuleID        int64           // Rule that fired
	Kind          RuleKind        // Rule kind
	Message       string          // Human-readable notification text
	Channels      []string        // Copied from the rule
	Price         decimal.Decimal // Price that triggered the firing
	PreviousPrice decimal.Decimal // Prior price (zero when none)
	FiredAt       time.Time       // Firing time (UTC)
}

// -----------------------------------------------------------------------------
// Run Reporting Types
// -----------------------------------------------------------------------------

// UpdateStatus is the terminal state of one product's update unit.
type UpdateStatus string

const (
	StatusUpdated       UpdateStatus = "updated"        // New quote appended
	StatusUnchanged     UpdateStatus = "unchanged"      // Fetch succeeded, price unchanged
	StatusSkippedRecent UpdateStatus = "skipped_recent" // Updated too recently, unit not run
	StatusFailed        UpdateStatus = "failed"         // Unit failed, Reason says why
)

// UpdateOutcome reports what happened to one product during a batch run.
// Outcomes are transient; they exist only in the run report.
type UpdateOutcome struct {
	ProductID    uuid.UUID        // Product the unit ran for
	Status       UpdateStatus     // Terminal state
	Reason       string           // Why, when the status needs explaining (failures, skips, dry run)
	OldPrice     *decimal.Decimal // Latest price before the run, nil when none
	NewQuote     *Quote           // Newly observed quote, nil when fetch never completed
	FiredAlerts  []AlertEvent     // Alerts raised by this unit
	ResponseTime time.Duration    // Source fetch latency
	Duration     time.Duration    // Whole-unit wall time
}
