package domain

import (
	"fmt"
	"time"
)

// Transaction represents a single money-transfer record in a screening batch.
// The batch is read-only once handed to the pipeline; no component mutates it.
type Transaction struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Amount     float64   `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
	Location   string    `json:"location"`
}

// ValidateBatch rejects a batch that contains malformed records. The whole
// batch is rejected rather than scored best-effort, since a skipped record
// would silently skew per-sender aggregates.
func ValidateBatch(txns []Transaction) error {
	seen := make(map[int64]struct{}, len(txns))
	for _, tx := range txns {
		if tx.ID <= 0 {
			return fmt.Errorf("%w: transaction id %d must be positive", ErrInvalidTransaction, tx.ID)
		}
		if _, dup := seen[tx.ID]; dup {
			return fmt.Errorf("%w: duplicate transaction id %d", ErrInvalidTransaction, tx.ID)
		}
		seen[tx.ID] = struct{}{}
		if tx.Amount <= 0 {
			return fmt.Errorf("%w: transaction %d has non-positive amount %.2f", ErrInvalidTransaction, tx.ID, tx.Amount)
		}
		if tx.Location == "" {
			return fmt.Errorf("%w: transaction %d has no location", ErrInvalidTransaction, tx.ID)
		}
	}
	return nil
}
