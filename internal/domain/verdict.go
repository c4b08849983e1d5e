package domain

// Verdict is the final suspicion determination for one transaction.
// RuleFlagged, MLFlagged and Suspicious carry the decision; Score and
// Reasons are supplementary detail for the reporting sinks.
type Verdict struct {
	TxID        int64 `json:"txId"`
	RuleFlagged bool  `json:"ruleFlagged"`
	MLFlagged   bool  `json:"mlFlagged"`
	Suspicious  bool  `json:"suspicious"`

	// Normalized isolation score in roughly (0, 1]; lower means the
	// transaction isolated faster and is therefore more anomalous.
	Score float64 `json:"score"`

	// IDs of the rules that fired, in rule-ID order.
	Reasons []string `json:"reasons,omitempty"`
}
