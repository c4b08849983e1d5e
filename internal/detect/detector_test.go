package detect

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/simulate"
)

func testConfig() domain.DetectionConfig {
	return domain.DefaultDetectionConfig()
}

func tx(id, sender int64, amount float64, location string) domain.Transaction {
	return domain.Transaction{
		ID:         id,
		SenderID:   sender,
		ReceiverID: sender + 10000,
		Amount:     amount,
		Timestamp:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Location:   location,
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Contamination = 0.7

	if _, err := New(cfg); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestDetectEmptyBatch(t *testing.T) {
	d, err := New(testConfig())
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}

	verdicts, err := d.Detect(context.Background(), nil)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if len(verdicts) != 0 {
		t.Errorf("expected no verdicts, got %d", len(verdicts))
	}
}

func TestDetectRejectsMalformedBatch(t *testing.T) {
	d, _ := New(testConfig())

	cases := []struct {
		name string
		txns []domain.Transaction
	}{
		{"non-positive id", []domain.Transaction{tx(0, 1, 100, "Nairobi")}},
		{"duplicate id", []domain.Transaction{tx(1, 1, 100, "Nairobi"), tx(1, 2, 200, "Nairobi")}},
		{"non-positive amount", []domain.Transaction{tx(1, 1, 0, "Nairobi")}},
		{"empty location", []domain.Transaction{tx(1, 1, 100, "")}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := d.Detect(context.Background(), c.txns); !errors.Is(err, domain.ErrInvalidTransaction) {
				t.Errorf("expected ErrInvalidTransaction, got %v", err)
			}
		})
	}
}

func TestDetectVerdictCoverage(t *testing.T) {
	d, _ := New(testConfig())

	batch := simulate.Generate(simulate.Options{
		BaseCount:            200,
		StructuringSenders:   3,
		StructuringPerSender: 8,
		Seed:                 5,
	})

	verdicts, err := d.Detect(context.Background(), batch.Transactions)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if len(verdicts) != len(batch.Transactions) {
		t.Fatalf("verdict count = %d, want %d", len(verdicts), len(batch.Transactions))
	}

	for _, txn := range batch.Transactions {
		v, ok := verdicts[txn.ID]
		if !ok {
			t.Fatalf("no verdict for transaction %d", txn.ID)
		}
		if v.Suspicious != (v.RuleFlagged || v.MLFlagged) {
			t.Errorf("tx %d: suspicious = %v but rule = %v, ml = %v", txn.ID, v.Suspicious, v.RuleFlagged, v.MLFlagged)
		}
		if math.IsNaN(v.Score) || math.IsInf(v.Score, 0) {
			t.Errorf("tx %d: score is not finite: %v", txn.ID, v.Score)
		}
	}
}

func TestDetectDeterministic(t *testing.T) {
	batch := simulate.Generate(simulate.Options{
		BaseCount:            300,
		StructuringSenders:   5,
		StructuringPerSender: 10,
		Seed:                 9,
	})

	run := func(workers int) map[int64]domain.Verdict {
		cfg := testConfig()
		cfg.Workers = workers
		d, err := New(cfg)
		if err != nil {
			t.Fatalf("failed to create detector: %v", err)
		}
		verdicts, err := d.Detect(context.Background(), batch.Transactions)
		if err != nil {
			t.Fatalf("detect failed: %v", err)
		}
		return verdicts
	}

	a := run(1)
	b := run(8)

	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical input and seed produced different verdicts across worker counts")
	}
}

func TestDetectStructuringScenario(t *testing.T) {
	d, _ := New(testConfig())

	// One sender makes eight small transfers inside a batch of ordinary
	// large ones; all eight must come back rule-flagged.
	var txns []domain.Transaction
	for i := int64(0); i < 8; i++ {
		txns = append(txns, tx(1+i, 77, 500, "Nairobi"))
	}
	for i := int64(0); i < 22; i++ {
		txns = append(txns, tx(100+i, 200+i, 3000, "Mombasa"))
	}

	verdicts, err := d.Detect(context.Background(), txns)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	for i := int64(1); i <= 8; i++ {
		v := verdicts[i]
		if !v.RuleFlagged || !v.Suspicious {
			t.Errorf("tx %d: structuring transfer not flagged: %+v", i, v)
		}
	}
	for i := int64(100); i < 122; i++ {
		if verdicts[i].RuleFlagged {
			t.Errorf("tx %d: ordinary transfer rule-flagged: %+v", i, verdicts[i])
		}
	}
}

func TestDetectMLFlagCount(t *testing.T) {
	cfg := testConfig()
	cfg.Contamination = 0.05
	d, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}

	batch := simulate.Generate(simulate.Options{
		BaseCount:            400,
		StructuringSenders:   0,
		StructuringPerSender: 0,
		Seed:                 21,
	})

	verdicts, err := d.Detect(context.Background(), batch.Transactions)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	flagged := 0
	for _, v := range verdicts {
		if v.MLFlagged {
			flagged++
		}
	}
	want := int(math.Round(0.05 * 400))
	if flagged != want {
		t.Errorf("ML flagged %d transactions, want %d", flagged, want)
	}
}
