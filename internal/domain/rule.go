package domain

// RuleConfig defines a deterministic screening rule.
type RuleConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// CEL expression over the batch evaluation variables. Must return bool.
	Expression string `json:"expression"`

	// Whether the rule is active.
	Enabled bool `json:"enabled"`
}

// RuleResult is the per-transaction outcome of evaluating all loaded rules.
type RuleResult struct {
	TxID    int64    `json:"txId"`
	Flagged bool     `json:"flagged"`
	RuleIDs []string `json:"ruleIds,omitempty"` // rules that fired, in rule-ID order
}
