package domain

import (
	"errors"
	"testing"
	"time"
)

func validTxn(id int64) Transaction {
	return Transaction{
		ID:         id,
		SenderID:   100,
		ReceiverID: 200,
		Amount:     500,
		Timestamp:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Location:   "Nairobi",
	}
}

func TestValidateBatch(t *testing.T) {
	txns := []Transaction{validTxn(1), validTxn(2), validTxn(3)}
	if err := ValidateBatch(txns); err != nil {
		t.Fatalf("valid batch rejected: %v", err)
	}
}

func TestValidateBatchRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func([]Transaction) []Transaction
	}{
		{"zero id", func(txns []Transaction) []Transaction {
			txns[0].ID = 0
			return txns
		}},
		{"negative id", func(txns []Transaction) []Transaction {
			txns[0].ID = -3
			return txns
		}},
		{"duplicate id", func(txns []Transaction) []Transaction {
			txns[1].ID = txns[0].ID
			return txns
		}},
		{"zero amount", func(txns []Transaction) []Transaction {
			txns[0].Amount = 0
			return txns
		}},
		{"empty location", func(txns []Transaction) []Transaction {
			txns[1].Location = ""
			return txns
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			txns := c.mutate([]Transaction{validTxn(1), validTxn(2)})
			if err := ValidateBatch(txns); !errors.Is(err, ErrInvalidTransaction) {
				t.Errorf("expected ErrInvalidTransaction, got %v", err)
			}
		})
	}
}

func TestValidateBatchEmpty(t *testing.T) {
	if err := ValidateBatch(nil); err != nil {
		t.Errorf("empty batch must validate, got %v", err)
	}
}

func TestDetectionConfigDefaults(t *testing.T) {
	cfg := DefaultDetectionConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.SmallTxnThreshold != 1000 || cfg.StructuringMinCount != 5 {
		t.Errorf("unexpected structuring defaults: %+v", cfg)
	}
	if cfg.Contamination != 0.02 || cfg.ForestSize != 100 || cfg.SubsampleSize != 256 {
		t.Errorf("unexpected forest defaults: %+v", cfg)
	}
}

func TestDetectionConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*DetectionConfig)
	}{
		{"zero threshold", func(c *DetectionConfig) { c.SmallTxnThreshold = 0 }},
		{"zero min count", func(c *DetectionConfig) { c.StructuringMinCount = 0 }},
		{"zero multiplier", func(c *DetectionConfig) { c.SpikeMultiplier = 0 }},
		{"zero contamination", func(c *DetectionConfig) { c.Contamination = 0 }},
		{"contamination too high", func(c *DetectionConfig) { c.Contamination = 0.5 }},
		{"zero forest size", func(c *DetectionConfig) { c.ForestSize = 0 }},
		{"zero subsample", func(c *DetectionConfig) { c.SubsampleSize = 0 }},
		{"negative workers", func(c *DetectionConfig) { c.Workers = -1 }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := DefaultDetectionConfig()
			c.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
