package skilltax

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Item is one text to place in the taxonomy.
type Item struct {
	Index     int       `json:"index" db:"idx"`
	Text      string    `json:"text" db:"description"`
	Embedding []float64 `json:"-"`
}

// Taxonomy is the two-level clustering of a set of items.
type Taxonomy struct {
	// Labels is aligned with the input items.
	Labels  []Label
	Classes *Assignment
	// Subclasses counts the subclasses found in each class.
	Subclasses []int
	Quality    Quality
}

// BuildTaxonomy normalises the item embeddings, clusters them into classes
// and splits every class into subclasses.
func BuildTaxonomy(ctx context.Context, items []Item, cfg ClusterConfig, thresholds ClassThresholds) (*Taxonomy, error) {
	raw, err := NewEmbeddingMatrix(items)
	if err != nil {
		return nil, err
	}
	m, err := NormalizeRows(raw)
	if err != nil {
		return nil, fmt.Errorf("normalizing embeddings: %w", err)
	}

	classes, err := Cluster(ctx, m, cfg)
	if err != nil {
		return nil, fmt.Errorf("clustering classes: %w", err)
	}
	zap.L().Info("found skill classes", zap.Int("items", len(items)), zap.Int("classes", classes.K))

	subs, err := SubCluster(ctx, m, classes, thresholds, cfg)
	if err != nil {
		return nil, err
	}
	labels, err := EncodeLabels(classes.Labels, subs)
	if err != nil {
		return nil, err
	}

	counts := make([]int, classes.K)
	for _, l := range labels {
		if l.SubclassID+1 > counts[l.ClassID] {
			counts[l.ClassID] = l.SubclassID + 1
		}
	}

	return &Taxonomy{
		Labels:     labels,
		Classes:    classes,
		Subclasses: counts,
		Quality:    Evaluate(m, classes.Labels, cfg.Affinity),
	}, nil
}
