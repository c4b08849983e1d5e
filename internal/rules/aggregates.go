package rules

import "github.com/opensource-finance/harrier/internal/domain"

// SenderStats accumulates per-sender aggregates over a whole batch.
// Every sender present in a batch has at least one transaction, so
// Mean never divides by zero.
type SenderStats struct {
	Count      int
	Sum        float64
	SmallCount int // transactions with amount strictly below the small-txn threshold
}

// Mean returns the sender's average transaction amount.
func (s SenderStats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// AggregateBySender builds the sender accumulators in a single pass.
// The structuring and spike rules consume these, so the full batch must
// be aggregated before any individual verdict is decided.
func AggregateBySender(txns []domain.Transaction, smallThreshold float64) map[int64]SenderStats {
	stats := make(map[int64]SenderStats)
	for _, tx := range txns {
		s := stats[tx.SenderID]
		s.Count++
		s.Sum += tx.Amount
		if tx.Amount < smallThreshold {
			s.SmallCount++
		}
		stats[tx.SenderID] = s
	}
	return stats
}
