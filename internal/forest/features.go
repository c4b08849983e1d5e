package forest

import (
	"sort"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Encode derives the numeric feature matrix for a batch: the amount plus
// one indicator column per distinct location, dropping the first
// (lexicographically) as the reference category. Row order follows the
// batch, so row i scores transaction i.
func Encode(txns []domain.Transaction) [][]float64 {
	if len(txns) == 0 {
		return nil
	}

	distinct := make(map[string]struct{})
	for _, tx := range txns {
		distinct[tx.Location] = struct{}{}
	}

	labels := make([]string, 0, len(distinct))
	for loc := range distinct {
		labels = append(labels, loc)
	}
	sort.Strings(labels)

	// labels[0] is the reference category; it encodes as all-zero.
	columns := make(map[string]int, len(labels)-1)
	for i, loc := range labels[1:] {
		columns[loc] = i + 1
	}

	dims := len(labels) // amount + (len(labels) - 1) indicators
	matrix := make([][]float64, len(txns))
	for i, tx := range txns {
		row := make([]float64, dims)
		row[0] = tx.Amount
		if col, ok := columns[tx.Location]; ok {
			row[col] = 1
		}
		matrix[i] = row
	}
	return matrix
}
