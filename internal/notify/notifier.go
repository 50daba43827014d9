// Package notify delivers arbitrage alerts to operator channels. Alerts are
// dispatched to all registered senders (Telegram, Discord, log) and can be
// thresholded so operators only hear about edges worth acting on.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// maxAlertsPerCycle bounds message size; a glitchy book can produce dozens of
// phantom edges in one cycle.
const maxAlertsPerCycle = 10

// Notifier formats a cycle's opportunities and dispatches them to every
// sender. Opportunities below the alert edge are counted but not itemized.
type Notifier struct {
	senders   []Sender
	alertEdge decimal.Decimal
	logger    *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. alertEdge
// is the minimum realized edge an opportunity needs to be itemized; zero
// itemizes everything.
func NewNotifier(senders []Sender, alertEdge decimal.Decimal, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders:   senders,
		alertEdge: alertEdge,
		logger:    logger.With(slog.String("component", "notifier")),
	}
}

// NotifyCycle announces the opportunities found in one completed cycle.
func (n *Notifier) NotifyCycle(ctx context.Context, result domain.CycleResult) error {
	if len(result.Opportunities) == 0 {
		return nil
	}

	var itemized []domain.StakedOpportunity
	for _, staked := range result.Opportunities {
		if staked.Plan.RealizedEdge.GreaterThanOrEqual(n.alertEdge) {
			itemized = append(itemized, staked)
		}
	}
	if len(itemized) == 0 {
		return nil
	}

	title := fmt.Sprintf("%d arbitrage opportunities (%s)", len(itemized), result.ScanName)

	var b strings.Builder
	for i, staked := range itemized {
		if i == maxAlertsPerCycle {
			fmt.Fprintf(&b, "...and %d more\n", len(itemized)-maxAlertsPerCycle)
			break
		}
		writeOpportunity(&b, staked)
	}

	return n.dispatch(ctx, title, strings.TrimRight(b.String(), "\n"))
}

// writeOpportunity renders one opportunity as a compact block:
//
//	Celtics @ Lakers [h2h] edge 3.63%
//	  Lakers  +110 @ DraftKings  stake 493
//	  Celtics +105 @ FanDuel     stake 506
//	  profit 36.30 on 999
func writeOpportunity(b *strings.Builder, staked domain.StakedOpportunity) {
	opp := staked.Opportunity
	plan := staked.Plan

	edgePct := plan.RealizedEdge.Mul(decimal.NewFromInt(100)).Round(2)
	fmt.Fprintf(b, "%s [%s] edge %s%%\n", opp.Event.Name(), opp.MarketKey, edgePct)
	for _, leg := range plan.Legs {
		fmt.Fprintf(b, "  %s %+d @ %s  stake %s\n",
			leg.Outcome.Label(), leg.AmericanOdds, leg.BookmakerTitle, leg.Stake)
	}
	fmt.Fprintf(b, "  profit %s on %s\n", plan.Profit.Round(2), plan.TotalStake)
}

// dispatch iterates over all senders. Errors from individual senders are
// collected and returned as a combined error; a single sender failure does
// not prevent delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
