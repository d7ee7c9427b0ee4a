package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricetrack/pricetrack/internal/model"
)

// DefaultCooldown applies to rules that do not carry their own window.
const DefaultCooldown = 24 * time.Hour

// FiringClaimer reserves a rule's cool-down slot. A false result means a
// concurrent evaluation already fired the rule inside its window.
type FiringClaimer interface {
	ClaimFiring(ctx context.Context, ruleID int64, cutoff, firedAt time.Time) (bool, error)
}

// Evaluator applies alert rules to the latest quote and trend signal of a
// product. Cool-down bookkeeping goes through the FiringClaimer so that
// concurrent runs against the same catalog fire each rule at most once per
// window.
type Evaluator struct {
	claims   FiringClaimer
	cooldown time.Duration
	logger   *slog.Logger
}

// Option configures the evaluator.
type Option func(*Evaluator)

// WithDefaultCooldown overrides the window used for rules with Cooldown 0.
func WithDefaultCooldown(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.cooldown = d
		}
	}
}

// WithLogger sets the logger used for suppressed and failed firings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEvaluator creates an evaluator that claims firings through claims.
func NewEvaluator(claims FiringClaimer, opts ...Option) *Evaluator {
	e := &Evaluator{
		claims:   claims,
		cooldown: DefaultCooldown,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate checks each rule against the triggering quote and returns the
// events that both matched their condition and won the cool-down claim.
// previous is nil on a product's first observation. Evaluation never
// fails; claim errors suppress the single firing and are logged.
func (e *Evaluator) Evaluate(ctx context.Context, product model.Product, latest model.Quote, previous *model.Quote, signal model.TrendSignal, rules []model.AlertRule) []model.AlertEvent {
	firedAt := latest.ObservedAt
	if firedAt.IsZero() {
		firedAt = time.Now().UTC()
	}

	var events []model.AlertEvent
	for _, rule := range rules {
		if !rule.Active || rule.ProductID != product.ID {
			continue
		}
		matched, message := e.matched(product, rule, latest, previous, signal)
		if !matched {
			continue
		}

		cooldown := rule.Cooldown
		if cooldown <= 0 {
			cooldown = e.cooldown
		}
		won, err := e.claims.ClaimFiring(ctx, rule.ID, firedAt.Add(-cooldown), firedAt)
		if err != nil {
			e.logger.WarnContext(ctx, "cool-down claim failed",
				"product_id", product.ID, "rule_id", rule.ID, "error", err)
			continue
		}
		if !won {
			e.logger.DebugContext(ctx, "alert suppressed by cool-down",
				"product_id", product.ID, "rule_id", rule.ID)
			continue
		}

		event := model.AlertEvent{
			ProductID: product.ID,
			RuleID:    rule.ID,
			Kind:      rule.Kind,
			Message:   message,
			Channels:  append([]string(nil), rule.Channels...),
			Price:     latest.Price,
			FiredAt:   firedAt,
		}
		if previous != nil {
			event.PreviousPrice = previous.Price
		}
		events = append(events, event)
	}
	return events
}

func (e *Evaluator) matched(product model.Product, rule model.AlertRule, latest model.Quote, previous *model.Quote, signal model.TrendSignal) (bool, string) {
	switch rule.Kind {
	case model.RulePriceDrop:
		return priceMove(product, rule, latest, previous, false)
	case model.RulePriceIncrease:
		return priceMove(product, rule, latest, previous, true)
	case model.RuleDemandSpike:
		if signal.Direction != model.TrendUp || signal.Magnitude <= rule.Threshold.InexactFloat64() {
			return false, ""
		}
		message := fmt.Sprintf("Demand Alert: %s is trending up %.1f%% with demand score %.2f (threshold %s)",
			product.Name, signal.Magnitude, signal.DemandScore, rule.Threshold.String())
		return true, message
	}
	return false, ""
}

// priceMove evaluates price_drop and price_increase rules. Percent mode
// compares the latest quote against the previous one; absolute mode fires
// when the latest price crosses the threshold from the other side.
func priceMove(product model.Product, rule model.AlertRule, latest model.Quote, previous *model.Quote, increase bool) (bool, string) {
	switch rule.Mode {
	case model.ModePercent:
		if previous == nil || !previous.Price.IsPositive() {
			return false, ""
		}
		change := latest.Price.Sub(previous.Price).Div(previous.Price).Mul(decimal.NewFromInt(100))
		if increase {
			if change.LessThan(rule.Threshold) {
				return false, ""
			}
			message := fmt.Sprintf("Price Alert: %s rose %s%% to %s %s (was %s, threshold %s%%)",
				product.Name, change.StringFixed(1), latest.Price.String(), latest.Currency,
				previous.Price.String(), rule.Threshold.String())
			return true, message
		}
		drop := change.Neg()
		if drop.LessThan(rule.Threshold) {
			return false, ""
		}
		message := fmt.Sprintf("Price Alert: %s dropped %s%% to %s %s (was %s, threshold %s%%)",
			product.Name, drop.StringFixed(1), latest.Price.String(), latest.Currency,
			previous.Price.String(), rule.Threshold.String())
		return true, message

	case model.ModeAbsolute:
		if increase {
			if latest.Price.LessThan(rule.Threshold) {
				return false, ""
			}
			if previous != nil && previous.Price.GreaterThanOrEqual(rule.Threshold) {
				return false, ""
			}
			message := fmt.Sprintf("Price Alert: %s is now %s %s, at or above %s",
				product.Name, latest.Price.String(), latest.Currency, rule.Threshold.String())
			return true, message
		}
		if latest.Price.GreaterThan(rule.Threshold) {
			return false, ""
		}
		if previous != nil && previous.Price.LessThanOrEqual(rule.Threshold) {
			return false, ""
		}
		message := fmt.Sprintf("Price Alert: %s is now %s %s, at or below %s",
			product.Name, latest.Price.String(), latest.Currency, rule.Threshold.String())
		return true, message
	}
	return false, ""
}
