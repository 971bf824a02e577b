// Package rules provides the CEL-Go based scoring-rule overlay. Overlay rules
// are deployment-specific factors layered on top of the built-in deterministic
// chains: each rule contributes a delta clamped to ±weight, and the overlaid
// total clamps to [0,100].
package rules

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// Engine is the CEL-based overlay evaluation engine.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  domain.OverlayRule
	Program cel.Program
}

// NewEngine creates a new overlay engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// CEL environment over the untyped record plus convenience scalars
	env, err := cel.NewEnv(
		cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("sector", cel.StringType),
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("base_score", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles and validates a rule without loading it.
func (e *Engine) ValidateRule(cfg domain.OverlayRule) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg domain.OverlayRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled

	return nil
}

// LoadRules compiles and loads all enabled rules.
func (e *Engine) LoadRules(configs []domain.OverlayRule) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// Adjustment is one overlay rule's contribution.
type Adjustment struct {
	RuleID string  `json:"ruleId"`
	Delta  float64 `json:"delta"`
	Reason string  `json:"reason,omitempty"`
}

// Apply evaluates every loaded rule scoped to the sector against the record
// and returns the overlaid score. Rules for other sectors are skipped; a rule
// with an empty sector applies everywhere. Evaluation errors absorb to a zero
// delta.
func (e *Engine) Apply(ctx context.Context, sector domain.Sector, rec domain.Record, base float64) (float64, []Adjustment) {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		if rule.Config.Sector == "" || rule.Config.Sector == sector {
			rules = append(rules, rule)
		}
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return base, nil
	}

	activation := map[string]any{
		"record":     map[string]any(rec),
		"sector":     string(sector),
		"amount":     primaryAmount(rec),
		"base_score": base,
	}

	adjustments := make([]Adjustment, len(rules))
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			adjustments[idx] = e.evaluateRule(r, activation)
		}(i, rule)
	}

	wg.Wait()

	score := base
	for _, adj := range adjustments {
		score += adj.Delta
	}
	return domain.Clamp(score), adjustments
}

func (e *Engine) evaluateRule(rule *CompiledRule, activation map[string]any) Adjustment {
	adj := Adjustment{RuleID: rule.Config.ID}

	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		adj.Reason = fmt.Sprintf("evaluation error: %v", err)
		return adj
	}

	adj.Delta = clampDelta(toDelta(out, rule.Config.Weight), rule.Config.Weight)
	return adj
}

// toDelta converts a CEL value to a score delta. Booleans contribute the full
// weight when true; numeric results are taken as-is before clamping.
func toDelta(val ref.Val, weight float64) float64 {
	switch v := val.(type) {
	case types.Bool:
		if v {
			return weight
		}
		return 0.0
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	default:
		return 0.0
	}
}

func clampDelta(delta, weight float64) float64 {
	if delta > weight {
		return weight
	}
	if delta < -weight {
		return -weight
	}
	return delta
}

// primaryAmount picks the sector-agnostic monetary field for the `amount`
// convenience variable.
func primaryAmount(rec domain.Record) float64 {
	for _, key := range []string{"amount", "claim_amount", "order_amount", "price"} {
		if rec.Has(key) {
			return rec.Float(key, 0)
		}
	}
	return 0
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// ReloadRules clears all existing rules and loads new ones.
func (e *Engine) ReloadRules(configs []domain.OverlayRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *Engine) GetLoadedRules() []domain.OverlayRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]domain.OverlayRule, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg domain.OverlayRule) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", cfg.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
