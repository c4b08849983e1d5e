package simulate

import (
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestGenerateShape(t *testing.T) {
	opts := Options{
		BaseCount:            100,
		StructuringSenders:   4,
		StructuringPerSender: 10,
		Seed:                 1,
	}

	batch := Generate(opts)

	want := 100 + 4*10
	if len(batch.Transactions) != want {
		t.Fatalf("batch size = %d, want %d", len(batch.Transactions), want)
	}
	if len(batch.Injected) != 40 {
		t.Errorf("injected count = %d, want 40", len(batch.Injected))
	}
}

func TestGenerateValidBatch(t *testing.T) {
	batch := Generate(DefaultOptions())
	if err := domain.ValidateBatch(batch.Transactions); err != nil {
		t.Fatalf("generated batch failed validation: %v", err)
	}
}

func TestGenerateDeterministicAmounts(t *testing.T) {
	opts := Options{BaseCount: 50, StructuringSenders: 2, StructuringPerSender: 5, Seed: 42}

	a := Generate(opts)
	b := Generate(opts)

	for i := range a.Transactions {
		ta, tb := a.Transactions[i], b.Transactions[i]
		if ta.ID != tb.ID || ta.SenderID != tb.SenderID || ta.Amount != tb.Amount || ta.Location != tb.Location {
			t.Fatalf("row %d differs across runs: %+v vs %+v", i, ta, tb)
		}
	}
}

func TestGenerateInjectedShape(t *testing.T) {
	opts := Options{
		BaseCount:            20,
		StructuringSenders:   3,
		StructuringPerSender: 6,
		Seed:                 7,
	}

	batch := Generate(opts)

	senders := make(map[int64]int)
	for _, tx := range batch.Transactions {
		if !batch.Injected[tx.ID] {
			continue
		}
		if tx.Amount < 100 || tx.Amount >= 1000 {
			t.Errorf("injected tx %d amount %.2f outside [100, 1000)", tx.ID, tx.Amount)
		}
		if tx.Location != DefaultLocations[0] {
			t.Errorf("injected tx %d location = %s, want %s", tx.ID, tx.Location, DefaultLocations[0])
		}
		senders[tx.SenderID]++
	}

	if len(senders) > 3 {
		t.Errorf("injected senders = %d, want at most 3", len(senders))
	}
	for sender, count := range senders {
		if count%6 != 0 {
			t.Errorf("sender %d has %d injected txns, want a multiple of 6", sender, count)
		}
	}
}

func TestGenerateCustomLocations(t *testing.T) {
	locations := []string{"Alpha", "Beta"}
	batch := Generate(Options{BaseCount: 30, Locations: locations, Seed: 1})

	for _, tx := range batch.Transactions {
		if tx.Location != "Alpha" && tx.Location != "Beta" {
			t.Fatalf("unexpected location %q", tx.Location)
		}
	}
}
