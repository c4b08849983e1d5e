package detect

import (
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
)

// MLResult is the anomaly-forest outcome for one transaction.
type MLResult struct {
	Flagged bool
	Score   float64
}

// Combine merges the rule and anomaly signals into one verdict per
// transaction: suspicious = ruleFlagged OR mlFlagged. Both upstream maps
// must cover every transaction; a gap is a wiring bug and fails with
// ErrMissingVerdictInput.
func Combine(txns []domain.Transaction, ruleResults map[int64]domain.RuleResult, mlResults map[int64]MLResult) (map[int64]domain.Verdict, error) {
	verdicts := make(map[int64]domain.Verdict, len(txns))

	for _, tx := range txns {
		rr, ok := ruleResults[tx.ID]
		if !ok {
			return nil, fmt.Errorf("%w: no rule result for transaction %d", domain.ErrMissingVerdictInput, tx.ID)
		}
		ml, ok := mlResults[tx.ID]
		if !ok {
			return nil, fmt.Errorf("%w: no anomaly result for transaction %d", domain.ErrMissingVerdictInput, tx.ID)
		}

		verdicts[tx.ID] = domain.Verdict{
			TxID:        tx.ID,
			RuleFlagged: rr.Flagged,
			MLFlagged:   ml.Flagged,
			Suspicious:  rr.Flagged || ml.Flagged,
			Score:       ml.Score,
			Reasons:     rr.RuleIDs,
		}
	}

	return verdicts, nil
}
