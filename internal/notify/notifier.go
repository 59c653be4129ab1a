// Package notify delivers scanner events to operators. Notifications are
// dispatched to all registered senders (Telegram, Discord, etc.); opportunity
// alerts are gated by a per-market cooldown so a persistent mispricing does
// not page on every cycle.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"polyarb/internal/domain"
)

// Embed colors shared by all senders that support them.
const (
	colorGreen = 0x2ECC71 // opportunity alerts
	colorRed   = 0xE74C3C // errors
	colorBlue  = 0x3498DB // lifecycle events
)

// maxListed caps how many opportunities a single alert message lists.
const maxListed = 5

// Message is one rendered notification.
type Message struct {
	Title string
	Body  string
	Color int
}

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a rendered notification.
	Send(ctx context.Context, msg Message) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Config controls which events are delivered and how alerts are gated.
type Config struct {
	OnStartup bool
	OnError   bool
	OnArb     bool
	// Cooldown is the minimum spacing between alerts for the same market key.
	Cooldown time.Duration
	// MinProfit is the net-profit floor an opportunity must clear to be
	// alerted on.
	MinProfit float64
}

// Notifier dispatches scanner events to one or more Senders.
type Notifier struct {
	senders  []Sender
	cfg      Config
	cooldown domain.Cooldown
	logger   *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. The
// cooldown gate may be Redis-backed or in-memory; a nil gate disables
// cooldown suppression entirely.
func NewNotifier(senders []Sender, cfg Config, cooldown domain.Cooldown, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders:  senders,
		cfg:      cfg,
		cooldown: cooldown,
		logger:   logger.With(slog.String("component", "notifier")),
	}
}

// Startup announces that the scanner came up.
func (n *Notifier) Startup(ctx context.Context, detail string) error {
	if !n.cfg.OnStartup {
		return nil
	}
	return n.dispatch(ctx, Message{
		Title: "Scanner started",
		Body:  detail,
		Color: colorBlue,
	})
}

// Shutdown announces a clean stop.
func (n *Notifier) Shutdown(ctx context.Context, summary string) error {
	if !n.cfg.OnStartup {
		return nil
	}
	return n.dispatch(ctx, Message{
		Title: "Scanner stopped",
		Body:  summary,
		Color: colorBlue,
	})
}

// Error reports a scan-stage failure.
func (n *Notifier) Error(ctx context.Context, stage string, err error) error {
	if !n.cfg.OnError {
		return nil
	}
	return n.dispatch(ctx, Message{
		Title: "Scan error",
		Body:  fmt.Sprintf("%s: %v", stage, err),
		Color: colorRed,
	})
}

// Opportunities alerts on the detected opportunities from one scan cycle.
// Opportunities under the profit floor are ignored; markets still inside
// their cooldown window are suppressed.
func (n *Notifier) Opportunities(ctx context.Context, result *domain.ScanResult) error {
	if !n.cfg.OnArb || len(n.senders) == 0 {
		return nil
	}

	var fresh []domain.ArbitrageOpportunity
	for _, opp := range result.Opportunities {
		if opp.NetProfit < n.cfg.MinProfit {
			continue
		}
		if !n.allow(ctx, opp.Key) {
			continue
		}
		fresh = append(fresh, opp)
	}
	if len(fresh) == 0 {
		return nil
	}

	return n.dispatch(ctx, Message{
		Title: fmt.Sprintf("Arbitrage detected (%d)", len(fresh)),
		Body:  renderOpportunities(fresh),
		Color: colorGreen,
	})
}

// allow consults the cooldown gate. Gate failures fail open so a Redis
// outage degrades to noisier alerts rather than silence.
func (n *Notifier) allow(ctx context.Context, key string) bool {
	if n.cooldown == nil || n.cfg.Cooldown <= 0 {
		return true
	}
	ok, err := n.cooldown.Allow(ctx, "arb:"+key, n.cfg.Cooldown)
	if err != nil {
		n.logger.WarnContext(ctx, "cooldown gate failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return true
	}
	if !ok {
		n.logger.DebugContext(ctx, "alert suppressed by cooldown",
			slog.String("key", key),
		)
	}
	return ok
}

func renderOpportunities(opps []domain.ArbitrageOpportunity) string {
	var b strings.Builder
	for i, opp := range opps {
		if i == maxListed {
			fmt.Fprintf(&b, "... and %d more", len(opps)-maxListed)
			break
		}
		label := opp.Question
		if label == "" {
			label = opp.Key
		}
		fmt.Fprintf(&b, "%s\ncost $%.4f, net $%.4f (%.2f%% ROI, %.0f%% extraction)\n",
			truncate(label, 80),
			opp.TotalCost, opp.NetProfit, opp.ROIPct,
			opp.Guarantee.ExtractionPct*100,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// dispatch iterates over all senders. Errors from individual senders are
// collected and returned as a combined error; a single sender failure does
// not prevent delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, msg Message) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, msg); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", msg.Title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
