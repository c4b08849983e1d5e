// Package simulate produces synthetic money-transfer batches for
// demos, benchmarks and the dashboard's simulate endpoint.
package simulate

import (
	"math"
	"math/rand"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// DefaultLocations are the origin labels used when none are configured.
// Offshore and Garissa overlap with the default high-risk set on purpose.
var DefaultLocations = []string{"Nairobi", "Mombasa", "Kisumu", "Garissa", "Offshore"}

// Options configures batch generation.
type Options struct {
	// BaseCount is the number of ordinary transactions.
	BaseCount int `json:"baseCount" koanf:"base_count"`

	// StructuringSenders is how many senders get injected bursts of
	// small transfers appended after the base transactions.
	StructuringSenders int `json:"structuringSenders" koanf:"structuring_senders"`

	// StructuringPerSender is the burst length per injected sender.
	StructuringPerSender int `json:"structuringPerSender" koanf:"structuring_per_sender"`

	// Locations overrides DefaultLocations when non-empty.
	Locations []string `json:"locations" koanf:"locations"`

	// Seed makes generation reproducible.
	Seed int64 `json:"seed" koanf:"seed"`
}

// DefaultOptions mirrors the standard simulation shape: 5000 ordinary
// transactions plus 20 structuring senders of 10 small transfers each.
func DefaultOptions() Options {
	return Options{
		BaseCount:            5000,
		StructuringSenders:   20,
		StructuringPerSender: 10,
		Seed:                 1,
	}
}

// Batch is a generated transaction set with ground-truth labels for the
// injected structuring transfers, used by the benchmark harness.
type Batch struct {
	Transactions []domain.Transaction

	// Injected marks the IDs of the deliberately structured transfers.
	Injected map[int64]bool
}

// Generate builds a synthetic batch. Ordinary transactions draw amounts
// uniformly in [50, 5000) across random accounts and locations; injected
// structuring senders then append bursts of sub-1000 transfers from a
// single low-risk location.
func Generate(opts Options) Batch {
	locations := opts.Locations
	if len(locations) == 0 {
		locations = DefaultLocations
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	base := time.Now().UTC().Truncate(time.Minute)

	txns := make([]domain.Transaction, 0, opts.BaseCount+opts.StructuringSenders*opts.StructuringPerSender)
	injected := make(map[int64]bool)
	nextID := int64(1)

	for i := 0; i < opts.BaseCount; i++ {
		txns = append(txns, domain.Transaction{
			ID:         nextID,
			SenderID:   accountID(rng),
			ReceiverID: accountID(rng),
			Amount:     roundCents(50 + rng.Float64()*4950),
			Timestamp:  base.Add(-time.Duration(rng.Intn(50000)) * time.Minute),
			Location:   locations[rng.Intn(len(locations))],
		})
		nextID++
	}

	for s := 0; s < opts.StructuringSenders; s++ {
		sender := accountID(rng)
		for k := 0; k < opts.StructuringPerSender; k++ {
			txns = append(txns, domain.Transaction{
				ID:         nextID,
				SenderID:   sender,
				ReceiverID: accountID(rng),
				Amount:     roundCents(100 + rng.Float64()*899),
				Timestamp:  base.Add(-time.Duration(k) * time.Minute),
				Location:   locations[0],
			})
			injected[nextID] = true
			nextID++
		}
	}

	return Batch{Transactions: txns, Injected: injected}
}

func accountID(rng *rand.Rand) int64 {
	return int64(1000 + rng.Intn(9000))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
