package rules

import "github.com/opensource-finance/harrier/internal/domain"

// Built-in rule IDs.
const (
	RuleStructuring = "structuring-001"
	RuleGeoRisk     = "geo-risk-001"
	RuleSpike       = "spike-001"
)

// BuiltinRules returns the three standard AML screening rules. Thresholds
// come in through the activation variables, so the expressions themselves
// stay fixed while the config varies per run.
func BuiltinRules() []domain.RuleConfig {
	return []domain.RuleConfig{
		{
			ID:          RuleStructuring,
			Name:        "Structuring",
			Description: "Senders splitting funds into repeated small transfers; flags only the small transfers themselves",
			Expression:  "amount < small_txn_threshold && sender_small_count >= structuring_min_count",
			Enabled:     true,
		},
		{
			ID:          RuleGeoRisk,
			Name:        "High-Risk Geography",
			Description: "Transactions originating from a configured high-risk location",
			Expression:  "location in high_risk_locations",
			Enabled:     true,
		},
		{
			ID:          RuleSpike,
			Name:        "Amount Spike",
			Description: "Transactions strictly above a multiple of the sender's mean amount",
			Expression:  "amount > spike_multiplier * sender_mean",
			Enabled:     true,
		},
	}
}
