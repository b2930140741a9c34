// Package alert decides which detected issues become user-facing alerts: confidence gate,
// self-window suppression, optional policy, key derivation, and per-key cooldown.
package alert

import (
	"context"
	"time"

	"github.com/m-mizutani/glimpse/pkg/catalog"
	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/glimpse/pkg/utils/logging"
)

// Reason explains a Decision.
type Reason string

const (
	ReasonNoIssue       Reason = "no_issue"
	ReasonLowConfidence Reason = "low_confidence"
	ReasonSelfWindow    Reason = "self_window"
	ReasonPolicy        Reason = "policy"
	ReasonSameAsLast    Reason = "same_as_last"
	ReasonCooldown      Reason = "cooldown"
	ReasonEmit          Reason = "emit"
)

// Decision is the outcome of Gate.Decide.
type Decision struct {
	// Key is set when the issue passed the confidence, self-window and policy filters.
	Key    string
	Emit   bool
	Reason Reason
}

// Gate applies the alert pipeline to one analysis result per tick.
type Gate struct {
	dedup     *Deduplicator
	catalog   *catalog.Catalog
	policy    *Policy
	threshold float64
	cooldown  time.Duration
}

type Option func(*Gate)

func WithPolicy(p *Policy) Option {
	return func(g *Gate) {
		g.policy = p
	}
}

func WithCatalog(c *catalog.Catalog) Option {
	return func(g *Gate) {
		g.catalog = c
	}
}

// NewGate creates a Gate. threshold is clamped to [0, 1].
func NewGate(dedup *Deduplicator, threshold float64, cooldown time.Duration, opts ...Option) *Gate {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}

	g := &Gate{
		dedup:     dedup,
		catalog:   catalog.Default(),
		threshold: threshold,
		cooldown:  cooldown,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Decide runs the filters in order and records the result's key as the last issue key.
// Policy evaluation errors are logged and treated as "not suppressed".
func (g *Gate) Decide(ctx context.Context, r *model.AnalysisResult, now time.Time) *Decision {
	d := g.decide(ctx, r, now)
	g.dedup.SetLast(d.Key)
	if d.Emit {
		// entries past the cooldown can no longer block anything
		g.dedup.Forget(now, max(g.cooldown, MinCooldown))
	}
	return d
}

func (g *Gate) decide(ctx context.Context, r *model.AnalysisResult, now time.Time) *Decision {
	if !r.HasIssue {
		return &Decision{Reason: ReasonNoIssue}
	}
	if r.Confidence < g.threshold {
		return &Decision{Reason: ReasonLowConfidence}
	}
	if ShouldSuppress(r, g.catalog) {
		return &Decision{Reason: ReasonSelfWindow}
	}

	key := BuildKey(r.IssueType, r.IssueText())

	suppress, err := g.policy.Suppress(ctx, r, key)
	if err != nil {
		logging.From(ctx).Warn("alert policy evaluation failed", "error", err)
	} else if suppress {
		return &Decision{Reason: ReasonPolicy}
	}

	if g.dedup.SameAsLast(key) {
		return &Decision{Key: key, Reason: ReasonSameAsLast}
	}
	if !g.dedup.ShouldEmit(key, now, g.cooldown) {
		return &Decision{Key: key, Reason: ReasonCooldown}
	}
	return &Decision{Key: key, Emit: true, Reason: ReasonEmit}
}

// EmitModelError reports whether a model-error alert for the classified failure may be
// emitted, sharing the cooldown history with issue alerts.
func (g *Gate) EmitModelError(a *model.ModelErrorAlert, now time.Time) bool {
	return g.dedup.ShouldEmit(ModelErrorKey(a.ErrorType, a.Message), now, g.cooldown)
}
