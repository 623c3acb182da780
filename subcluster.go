package skilltax

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ClassThresholds holds the distance threshold used to split each class into
// subclasses. PerClass overrides Default; a zero Default means every class
// needs an explicit entry.
type ClassThresholds struct {
	Default  float64         `mapstructure:"default" yaml:"default"`
	PerClass map[int]float64 `mapstructure:"per_class" yaml:"per_class"`
}

// ThresholdsFromList converts a positional list, indexed by class id, into ClassThresholds.
func ThresholdsFromList(distances []float64) ClassThresholds {
	perClass := make(map[int]float64, len(distances))
	for class, d := range distances {
		perClass[class] = d
	}
	return ClassThresholds{PerClass: perClass}
}

// For returns the threshold of class c.
func (t ClassThresholds) For(c int) (float64, bool) {
	if d, ok := t.PerClass[c]; ok {
		return d, true
	}
	if t.Default > 0 {
		return t.Default, true
	}
	return 0, false
}

// Validate checks that every class in [0, k) has a positive threshold.
func (t ClassThresholds) Validate(k int) error {
	for c := 0; c < k; c++ {
		d, ok := t.For(c)
		if !ok {
			return fmt.Errorf("no sub-clustering distance for class %d of %d: %w", c, k, ErrConfiguration)
		}
		if d <= 0 {
			return fmt.Errorf("sub-clustering distance for class %d must be positive, got %v: %w", c, d, ErrConfiguration)
		}
	}
	return nil
}

// SubCluster re-clusters the members of every class independently and
// returns, for each item, its subclass index within its class.
// The affinity, linkage and item ceiling of base are reused; the stopping
// rule is always the class threshold.
func SubCluster(ctx context.Context, m *mat.Dense, classes *Assignment, thresholds ClassThresholds, base ClusterConfig) ([]int, error) {
	n, _ := m.Dims()
	if len(classes.Labels) != n {
		return nil, fmt.Errorf("%d class labels for %d embeddings: %w", len(classes.Labels), n, ErrConfiguration)
	}
	if err := thresholds.Validate(classes.K); err != nil {
		return nil, err
	}

	subclasses := make([]int, n)
	for c := 0; c < classes.K; c++ {
		members := classes.Members(c)
		if len(members) == 0 {
			return nil, fmt.Errorf("class %d: %w", c, ErrEmptyCluster)
		}
		if len(members) == 1 {
			subclasses[members[0]] = 0
			continue
		}

		threshold, _ := thresholds.For(c)
		cfg := ClusterConfig{
			DistanceThreshold: threshold,
			Affinity:          base.Affinity,
			Linkage:           base.Linkage,
			MaxItems:          base.MaxItems,
		}
		sub, err := Cluster(ctx, subMatrix(m, members), cfg)
		if err != nil {
			return nil, fmt.Errorf("sub-clustering class %d: %w", c, err)
		}
		for local, item := range members {
			subclasses[item] = sub.Labels[local]
		}
	}
	return subclasses, nil
}

// subMatrix copies the given rows of m into a new matrix.
func subMatrix(m *mat.Dense, rows []int) *mat.Dense {
	_, d := m.Dims()
	out := mat.NewDense(len(rows), d, nil)
	for i, r := range rows {
		out.SetRow(i, m.RawRowView(r))
	}
	return out
}
