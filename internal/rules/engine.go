// Package rules provides the CEL-Go based rule evaluation engine.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-finance/harrier/internal/domain"
)

// Engine evaluates deterministic screening rules over a transaction batch.
// Rules are CEL boolean expressions over per-transaction values plus
// per-sender aggregates computed across the entire batch.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	cfg           domain.DetectionConfig
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  domain.RuleConfig
	Program cel.Program
}

// NewEngine creates a rule engine for the given detection config and
// loads the built-in rules.
func NewEngine(cfg domain.DetectionConfig) (*Engine, error) {
	maxWorkers := cfg.Workers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	// CEL environment with per-transaction and per-sender variables
	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("location", cel.StringType),
		cel.Variable("sender_id", cel.IntType),
		cel.Variable("receiver_id", cel.IntType),
		// Batch-wide aggregates for the transaction's sender
		cel.Variable("sender_txn_count", cel.IntType),
		cel.Variable("sender_small_count", cel.IntType),
		cel.Variable("sender_mean", cel.DoubleType),
		// Configured thresholds
		cel.Variable("small_txn_threshold", cel.DoubleType),
		cel.Variable("structuring_min_count", cel.IntType),
		cel.Variable("spike_multiplier", cel.DoubleType),
		cel.Variable("high_risk_locations", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		cfg:           cfg,
		maxWorkers:    maxWorkers,
	}

	if err := e.LoadRules(BuiltinRules()); err != nil {
		return nil, err
	}

	return e, nil
}

// ValidateRule compiles a rule without loading it.
func (e *Engine) ValidateRule(cfg domain.RuleConfig) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg domain.RuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled
	return nil
}

// LoadRules compiles and loads multiple rules, skipping disabled ones.
func (e *Engine) LoadRules(configs []domain.RuleConfig) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// LoadedRules returns the configurations of the loaded rules, ID-ordered.
func (e *Engine) LoadedRules() []domain.RuleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]domain.RuleConfig, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// EvaluateBatch evaluates every loaded rule against every transaction and
// unions the outcomes per transaction. Per-sender aggregates are computed
// over the full batch first, then transactions are evaluated in parallel.
func (e *Engine) EvaluateBatch(ctx context.Context, txns []domain.Transaction) (map[int64]domain.RuleResult, error) {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	// Fixed evaluation order keeps the fired-rule lists deterministic.
	sort.Slice(rules, func(i, j int) bool { return rules[i].Config.ID < rules[j].Config.ID })

	results := make(map[int64]domain.RuleResult, len(txns))
	if len(txns) == 0 {
		return results, nil
	}

	// First pass: batch-wide sender aggregates.
	stats := AggregateBySender(txns, e.cfg.SmallTxnThreshold)

	// Second pass: apply rules per transaction.
	out := make([]domain.RuleResult, len(txns))
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxWorkers)

	for i := range txns {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			out[idx] = e.evaluateTransaction(rules, &txns[idx], stats[txns[idx].SenderID])
		}(i)
	}

	wg.Wait()

	for _, r := range out {
		results[r.TxID] = r
	}
	return results, nil
}

// evaluateTransaction runs every rule against one transaction.
func (e *Engine) evaluateTransaction(rules []*CompiledRule, tx *domain.Transaction, st SenderStats) domain.RuleResult {
	activation := map[string]any{
		"amount":                tx.Amount,
		"location":              tx.Location,
		"sender_id":             tx.SenderID,
		"receiver_id":           tx.ReceiverID,
		"sender_txn_count":      int64(st.Count),
		"sender_small_count":    int64(st.SmallCount),
		"sender_mean":           st.Mean(),
		"small_txn_threshold":   e.cfg.SmallTxnThreshold,
		"structuring_min_count": int64(e.cfg.StructuringMinCount),
		"spike_multiplier":      e.cfg.SpikeMultiplier,
		"high_risk_locations":   e.cfg.HighRiskLocations,
	}

	result := domain.RuleResult{TxID: tx.ID}

	for _, rule := range rules {
		out, _, err := rule.Program.Eval(activation)
		if err != nil {
			// A failing custom rule must not poison the batch; the
			// built-in rules cannot error.
			slog.Error("rule evaluation failed",
				"rule_id", rule.Config.ID,
				"tx_id", tx.ID,
				"error", err,
			)
			continue
		}
		if fired, ok := out.(types.Bool); ok && bool(fired) {
			result.Flagged = true
			result.RuleIDs = append(result.RuleIDs, rule.Config.ID)
		}
	}

	return result
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg domain.RuleConfig) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
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
