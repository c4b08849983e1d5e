package domain

import "fmt"

// DetectionConfig holds the tunables for one screening run.
type DetectionConfig struct {
	// SmallTxnThreshold is the amount strictly below which a transaction
	// counts as "small" for the structuring rule.
	SmallTxnThreshold float64 `json:"smallTxnThreshold" koanf:"small_txn_threshold"`

	// StructuringMinCount is the number of small transactions a sender
	// needs before its small transactions are flagged as structuring.
	StructuringMinCount int `json:"structuringMinCount" koanf:"structuring_min_count"`

	// HighRiskLocations are origin labels flagged unconditionally.
	HighRiskLocations []string `json:"highRiskLocations" koanf:"high_risk_locations"`

	// SpikeMultiplier flags transactions strictly above this multiple of
	// the sender's mean amount.
	SpikeMultiplier float64 `json:"spikeMultiplier" koanf:"spike_multiplier"`

	// Contamination is the expected anomalous fraction of the batch,
	// in (0, 0.5). round(Contamination * N) transactions get ML-flagged.
	Contamination float64 `json:"contamination" koanf:"contamination"`

	// ForestSize is the number of isolation trees in the ensemble.
	ForestSize int `json:"forestSize" koanf:"forest_size"`

	// SubsampleSize caps the per-tree sample drawn from the batch.
	SubsampleSize int `json:"subsampleSize" koanf:"subsample_size"`

	// RandomSeed makes forest construction and scoring reproducible.
	RandomSeed int64 `json:"randomSeed" koanf:"random_seed"`

	// Workers bounds pipeline parallelism. Zero means one worker per CPU.
	Workers int `json:"workers" koanf:"workers"`
}

// DefaultDetectionConfig returns the standard screening configuration.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		SmallTxnThreshold:   1000,
		StructuringMinCount: 5,
		HighRiskLocations:   []string{"Offshore", "Garissa"},
		SpikeMultiplier:     5.0,
		Contamination:       0.02,
		ForestSize:          100,
		SubsampleSize:       256,
		RandomSeed:          42,
	}
}

// Validate checks the configuration before any computation starts.
func (c *DetectionConfig) Validate() error {
	if c.SmallTxnThreshold <= 0 {
		return fmt.Errorf("%w: small_txn_threshold must be positive, got %.2f", ErrInvalidConfig, c.SmallTxnThreshold)
	}
	if c.StructuringMinCount <= 0 {
		return fmt.Errorf("%w: structuring_min_count must be positive, got %d", ErrInvalidConfig, c.StructuringMinCount)
	}
	if c.SpikeMultiplier <= 0 {
		return fmt.Errorf("%w: spike_multiplier must be positive, got %.2f", ErrInvalidConfig, c.SpikeMultiplier)
	}
	if c.Contamination <= 0 || c.Contamination >= 0.5 {
		return fmt.Errorf("%w: contamination must be in (0, 0.5), got %.3f", ErrInvalidConfig, c.Contamination)
	}
	if c.ForestSize <= 0 {
		return fmt.Errorf("%w: forest_size must be positive, got %d", ErrInvalidConfig, c.ForestSize)
	}
	if c.SubsampleSize <= 0 {
		return fmt.Errorf("%w: subsample_size must be positive, got %d", ErrInvalidConfig, c.SubsampleSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}
