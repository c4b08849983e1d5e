// Package detect wires the rule engine and the anomaly forest into the
// batch screening pipeline and combines their signals into verdicts.
package detect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/forest"
	"github.com/opensource-finance/harrier/internal/rules"
)

var tracer = otel.Tracer("harrier-detect")

// Detector screens transaction batches. A Detector is safe for
// concurrent use; each Detect call is an independent run.
type Detector struct {
	cfg    domain.DetectionConfig
	engine *rules.Engine
}

// New validates the config, builds the rule engine and loads the
// built-in rules.
func New(cfg domain.DetectionConfig) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine, err := rules.NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	return &Detector{cfg: cfg, engine: engine}, nil
}

// Config returns the detector's configuration.
func (d *Detector) Config() domain.DetectionConfig {
	return d.cfg
}

// Engine exposes the rule engine for loading custom rules.
func (d *Detector) Engine() *rules.Engine {
	return d.engine
}

// Detect screens a full batch and returns exactly one verdict per
// transaction ID. The batch is validated as a whole before any scoring:
// a malformed record rejects the entire batch so per-sender aggregates
// cannot be silently skewed. An empty batch yields an empty map.
func (d *Detector) Detect(ctx context.Context, txns []domain.Transaction) (map[int64]domain.Verdict, error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "detect")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(txns)))

	if err := domain.ValidateBatch(txns); err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return map[int64]domain.Verdict{}, nil
	}

	// Rules and forest share nothing but the read-only batch, so the
	// two stages run concurrently.
	var (
		wg          sync.WaitGroup
		ruleResults map[int64]domain.RuleResult
		ruleErr     error
		mlResults   map[int64]MLResult
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, rulesSpan := tracer.Start(ctx, "detect.rules")
		defer rulesSpan.End()
		ruleResults, ruleErr = d.engine.EvaluateBatch(ctx, txns)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, forestSpan := tracer.Start(ctx, "detect.forest")
		defer forestSpan.End()
		mlResults = d.scoreAnomalies(txns)
	}()

	wg.Wait()

	if ruleErr != nil {
		return nil, ruleErr
	}

	verdicts, err := Combine(txns, ruleResults, mlResults)
	if err != nil {
		return nil, err
	}

	suspicious := 0
	for _, v := range verdicts {
		if v.Suspicious {
			suspicious++
		}
	}

	slog.Info("batch screened",
		"batch_size", len(txns),
		"suspicious", suspicious,
		"forest_size", d.cfg.ForestSize,
		"contamination", d.cfg.Contamination,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return verdicts, nil
}

// scoreAnomalies builds the isolation forest over the batch features,
// scores every transaction and thresholds at the contamination rate.
func (d *Detector) scoreAnomalies(txns []domain.Transaction) map[int64]MLResult {
	features := forest.Encode(txns)

	f := forest.Build(features, forest.Options{
		Trees:         d.cfg.ForestSize,
		SubsampleSize: d.cfg.SubsampleSize,
		Seed:          d.cfg.RandomSeed,
		Workers:       d.cfg.Workers,
	})

	scores := f.ScoreAll(features)
	flags := forest.Threshold(scores, d.cfg.Contamination)

	results := make(map[int64]MLResult, len(txns))
	for i, tx := range txns {
		results[tx.ID] = MLResult{Flagged: flags[i], Score: scores[i]}
	}
	return results
}
