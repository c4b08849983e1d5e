package forest

import (
	"math"
	"math/rand"
	"testing"
)

// clusterData builds a tight cluster with a few far outliers appended.
func clusterData(n, outliers int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([][]float64, 0, n+outliers)
	for i := 0; i < n; i++ {
		data = append(data, []float64{100 + rng.Float64()*10, rng.Float64()})
	}
	for i := 0; i < outliers; i++ {
		data = append(data, []float64{100000 + rng.Float64()*1000, rng.Float64()})
	}
	return data
}

func TestBuildDeterministic(t *testing.T) {
	data := clusterData(500, 5, 7)
	opts := Options{Trees: 50, SubsampleSize: 256, Seed: 42, Workers: 4}

	a := Build(data, opts).ScoreAll(data)

	opts.Workers = 1
	b := Build(data, opts).ScoreAll(data)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("score %d differs across worker counts: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestSeedChangesScores(t *testing.T) {
	data := clusterData(300, 3, 7)

	a := Build(data, Options{Trees: 50, SubsampleSize: 256, Seed: 1}).ScoreAll(data)
	b := Build(data, Options{Trees: 50, SubsampleSize: 256, Seed: 2}).ScoreAll(data)

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical scores")
	}
}

func TestOutliersScoreLower(t *testing.T) {
	data := clusterData(500, 5, 11)

	f := Build(data, Options{Trees: 100, SubsampleSize: 256, Seed: 42})
	scores := f.ScoreAll(data)

	var clusterSum, outlierSum float64
	for i, s := range scores {
		if i < 500 {
			clusterSum += s
		} else {
			outlierSum += s
		}
	}
	clusterAvg := clusterSum / 500
	outlierAvg := outlierSum / 5

	if outlierAvg >= clusterAvg {
		t.Errorf("outlier avg score %.4f not below cluster avg %.4f", outlierAvg, clusterAvg)
	}
}

func TestBuildEmpty(t *testing.T) {
	f := Build(nil, Options{Trees: 100, SubsampleSize: 256, Seed: 42})
	scores := f.ScoreAll(nil)
	if len(scores) != 0 {
		t.Errorf("expected no scores, got %d", len(scores))
	}
}

func TestBuildSingleRow(t *testing.T) {
	data := [][]float64{{42, 0}}
	f := Build(data, Options{Trees: 10, SubsampleSize: 256, Seed: 1})
	scores := f.ScoreAll(data)
	if len(scores) != 1 {
		t.Fatalf("expected 1 score, got %d", len(scores))
	}
	if math.IsNaN(scores[0]) || math.IsInf(scores[0], 0) {
		t.Errorf("single-row score is not finite: %v", scores[0])
	}
}

func TestBuildConstantFeatures(t *testing.T) {
	// Every feature degenerate: trees collapse to a single leaf, and
	// all points score identically.
	data := make([][]float64, 50)
	for i := range data {
		data[i] = []float64{500, 1, 0}
	}

	f := Build(data, Options{Trees: 20, SubsampleSize: 256, Seed: 3})
	scores := f.ScoreAll(data)

	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			t.Fatalf("score %d is not finite: %v", i, s)
		}
		if s != scores[0] {
			t.Errorf("identical rows scored differently: %v vs %v", s, scores[0])
		}
	}
}

func TestThresholdFlagCount(t *testing.T) {
	data := clusterData(1000, 0, 13)
	f := Build(data, Options{Trees: 50, SubsampleSize: 256, Seed: 42})
	scores := f.ScoreAll(data)

	flags := Threshold(scores, 0.02)

	count := 0
	for _, flagged := range flags {
		if flagged {
			count++
		}
	}
	want := int(math.Round(0.02 * 1000))
	if count != want {
		t.Errorf("flag count = %d, want %d", count, want)
	}
}

func TestThresholdFlagsLowestScores(t *testing.T) {
	scores := []float64{0.9, 0.2, 0.8, 0.1, 0.7, 0.6, 0.5, 0.4, 0.3, 0.95}
	flags := Threshold(scores, 0.2)

	if !flags[3] || !flags[1] {
		t.Errorf("expected the two lowest scores flagged, got %v", flags)
	}
	for i, flagged := range flags {
		if flagged && i != 1 && i != 3 {
			t.Errorf("index %d flagged unexpectedly", i)
		}
	}
}

func TestThresholdTieBreaksOnIndex(t *testing.T) {
	scores := []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}
	flags := Threshold(scores, 0.2)

	if !flags[0] || !flags[1] {
		t.Errorf("ties must flag the lowest indices, got %v", flags)
	}
	for i := 2; i < len(flags); i++ {
		if flags[i] {
			t.Errorf("index %d flagged despite tie-break, flags %v", i, flags)
		}
	}
}

func TestThresholdRoundsToZero(t *testing.T) {
	scores := []float64{0.5, 0.6, 0.7}
	flags := Threshold(scores, 0.02) // round(0.06) == 0

	for i, flagged := range flags {
		if flagged {
			t.Errorf("index %d flagged, expected none", i)
		}
	}
}

func TestAvgPathLength(t *testing.T) {
	cases := []struct {
		m    int
		want float64
	}{
		{0, 0},
		{1, 0},
		{2, 1},
	}
	for _, c := range cases {
		if got := avgPathLength(c.m); got != c.want {
			t.Errorf("avgPathLength(%d) = %v, want %v", c.m, got, c.want)
		}
	}

	// c(256) from the closed form: 2(ln(255) + gamma) - 2*255/256.
	want := 2*(math.Log(255)+eulerGamma) - 2*255.0/256.0
	if got := avgPathLength(256); math.Abs(got-want) > 1e-12 {
		t.Errorf("avgPathLength(256) = %v, want %v", got, want)
	}

	// Monotone in m.
	prev := avgPathLength(2)
	for m := 3; m <= 1000; m++ {
		cur := avgPathLength(m)
		if cur <= prev {
			t.Fatalf("avgPathLength not increasing at m=%d: %v <= %v", m, cur, prev)
		}
		prev = cur
	}
}

func TestSubsampleCappedAtBatchSize(t *testing.T) {
	data := clusterData(10, 0, 17)
	f := Build(data, Options{Trees: 20, SubsampleSize: 256, Seed: 5})

	if f.subsample != 10 {
		t.Errorf("subsample = %d, want 10", f.subsample)
	}

	scores := f.ScoreAll(data)
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			t.Errorf("score %d is not finite: %v", i, s)
		}
	}
}
