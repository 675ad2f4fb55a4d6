// Package resolver locates UI elements by their visible label and activates
// them.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
)

// ErrNotFound is returned when no strategy matches the query.
var ErrNotFound = errors.New("element not found")

// Strategy names the matching rule that found an element.
type Strategy string

const (
	StrategyNone         Strategy = ""
	StrategyExactText    Strategy = "exact_text"
	StrategyDescContains Strategy = "content_desc_contains"
	StrategyTextContains Strategy = "text_contains"
)

type matcher struct {
	strategy Strategy
	match    func(n *schemas.UINode, q string) bool
}

// strategies are tried in order; each scans the whole tree before the next.
var strategies = []matcher{
	{StrategyExactText, func(n *schemas.UINode, q string) bool {
		return n.Text != "" && strings.EqualFold(strings.TrimSpace(n.Text), q)
	}},
	{StrategyDescContains, func(n *schemas.UINode, q string) bool {
		return n.ContentDescription != "" && strings.Contains(strings.ToLower(n.ContentDescription), strings.ToLower(q))
	}},
	{StrategyTextContains, func(n *schemas.UINode, q string) bool {
		return n.Text != "" && strings.Contains(strings.ToLower(n.Text), strings.ToLower(q))
	}},
}

// Find searches a tree snapshot for the query using the ordered strategies.
// The first node in pre-order that satisfies the earliest strategy wins.
func Find(root *schemas.UINode, query string) (*schemas.UINode, Strategy) {
	q := strings.TrimSpace(query)
	if root == nil || q == "" {
		return nil, StrategyNone
	}
	for _, m := range strategies {
		var found *schemas.UINode
		root.Walk(func(n *schemas.UINode) bool {
			if m.match(n, q) {
				found = n
				return false
			}
			return true
		})
		if found != nil {
			return found, m.strategy
		}
	}
	return nil, StrategyNone
}

// ListClickable returns the labels of up to limit clickable elements in
// pre-order. Unlabeled elements are skipped.
func ListClickable(root *schemas.UINode, limit int) []string {
	if limit <= 0 {
		return nil
	}
	labels := make([]string, 0, limit)
	root.Walk(func(n *schemas.UINode) bool {
		if n.Clickable {
			if label := strings.TrimSpace(n.Label()); label != "" {
				labels = append(labels, label)
			}
		}
		return len(labels) < limit
	})
	return labels
}

// Resolution reports the outcome of a click-by-label attempt.
type Resolution struct {
	Found     bool
	Activated bool
	Strategy  Strategy
	Node      *schemas.UINode
	// Available lists clickable labels on screen when the query was not found.
	Available []string
	Err       error
}

// Resolver finds and activates elements on a live surface.
type Resolver struct {
	logger    *zap.Logger
	surface   schemas.UISurface
	maxListed int
}

// New creates a resolver. maxListed bounds the number of alternatives
// reported when a lookup fails.
func New(logger *zap.Logger, surface schemas.UISurface, maxListed int) *Resolver {
	if maxListed <= 0 {
		maxListed = 5
	}
	return &Resolver{
		logger:    logger.Named("resolver"),
		surface:   surface,
		maxListed: maxListed,
	}
}

// Resolve takes a fresh snapshot and searches it.
func (r *Resolver) Resolve(ctx context.Context, query string) (*schemas.UINode, Strategy, error) {
	root, err := r.surface.CurrentTree(ctx)
	if err != nil {
		return nil, StrategyNone, fmt.Errorf("failed to read UI tree: %w", err)
	}
	node, strategy := Find(root, query)
	return node, strategy, nil
}

// Activate clicks a node: natively when it is clickable, otherwise by tapping
// the center of its bounds. A failed native click falls back to the tap.
func (r *Resolver) Activate(ctx context.Context, node *schemas.UINode) error {
	if node == nil {
		return fmt.Errorf("cannot activate nil node")
	}
	if node.Clickable {
		err := r.surface.Activate(ctx, node)
		if err == nil {
			return nil
		}
		r.logger.Debug("Native activation failed, tapping bounds instead.", zap.String("label", node.Label()), zap.Error(err))
	}
	if node.Bounds.Empty() {
		return fmt.Errorf("node %q has empty bounds", node.Label())
	}
	c := node.Bounds.Center()
	return r.surface.Tap(ctx, c.X, c.Y)
}

// ClickOnText resolves query against the current screen and activates the
// match. It never panics; all failures are reported in the Resolution.
func (r *Resolver) ClickOnText(ctx context.Context, query string) Resolution {
	root, err := r.surface.CurrentTree(ctx)
	if err != nil {
		r.logger.Warn("Could not read UI tree.", zap.String("query", query), zap.Error(err))
		return Resolution{Err: fmt.Errorf("failed to read UI tree: %w", err)}
	}

	node, strategy := Find(root, query)
	if node == nil {
		available := ListClickable(root, r.maxListed)
		r.logger.Warn("Element not found.",
			zap.String("query", query),
			zap.Strings("available_clickable", available))
		return Resolution{Available: available, Err: fmt.Errorf("%w: no element matching %q", ErrNotFound, query)}
	}

	res := Resolution{Found: true, Strategy: strategy, Node: node}
	if err := r.Activate(ctx, node); err != nil {
		r.logger.Warn("Element found but activation failed.", zap.String("query", query), zap.Error(err))
		res.Err = err
		return res
	}
	r.logger.Debug("Element activated.",
		zap.String("query", query),
		zap.String("strategy", string(strategy)),
		zap.String("label", node.Label()))
	res.Activated = true
	return res
}
