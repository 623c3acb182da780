package skilltax

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Affinity is the metric used to compare two embeddings.
type Affinity string

const (
	AffinityEuclidean Affinity = "euclidean"
	AffinityCosine    Affinity = "cosine"
	AffinityManhattan Affinity = "manhattan"
)

// Linkage is the criterion used to measure the distance between two clusters.
type Linkage string

const (
	LinkageWard     Linkage = "ward"
	LinkageAverage  Linkage = "average"
	LinkageComplete Linkage = "complete"
	LinkageSingle   Linkage = "single"
)

// ClusterConfig configures one agglomerative clustering run.
// Exactly one of NClusters and DistanceThreshold must be set.
type ClusterConfig struct {
	NClusters         int      `mapstructure:"n_clusters" yaml:"n_clusters"`
	DistanceThreshold float64  `mapstructure:"distance_threshold" yaml:"distance_threshold"`
	Affinity          Affinity `mapstructure:"affinity" yaml:"affinity"`
	Linkage           Linkage  `mapstructure:"linkage" yaml:"linkage"`
	// MaxItems caps the number of items accepted by a single run. Zero means no limit.
	MaxItems int `mapstructure:"max_items" yaml:"max_items"`
}

// Validate checks that the configuration selects exactly one stopping rule
// and a supported affinity/linkage pair.
func (c ClusterConfig) Validate() error {
	switch {
	case c.NClusters < 0:
		return fmt.Errorf("n_clusters must not be negative: %w", ErrConfiguration)
	case c.DistanceThreshold < 0:
		return fmt.Errorf("distance_threshold must not be negative: %w", ErrConfiguration)
	case c.NClusters > 0 && c.DistanceThreshold > 0:
		return fmt.Errorf("n_clusters and distance_threshold are mutually exclusive, set distance_threshold to 0 to use n_clusters: %w", ErrConfiguration)
	case c.NClusters == 0 && c.DistanceThreshold == 0:
		return fmt.Errorf("one of n_clusters or distance_threshold is required: %w", ErrConfiguration)
	}
	switch c.Affinity {
	case AffinityEuclidean, AffinityCosine, AffinityManhattan:
	default:
		return fmt.Errorf("unknown affinity %q: %w", c.Affinity, ErrConfiguration)
	}
	switch c.Linkage {
	case LinkageWard:
		if c.Affinity != AffinityEuclidean {
			return fmt.Errorf("ward linkage requires euclidean affinity, got %q: %w", c.Affinity, ErrConfiguration)
		}
	case LinkageAverage, LinkageComplete, LinkageSingle:
	default:
		return fmt.Errorf("unknown linkage %q: %w", c.Linkage, ErrConfiguration)
	}
	return nil
}

// Merge is one step of the dendrogram. Left and Right are the smallest item
// indices of the two merged clusters.
type Merge struct {
	Left     int
	Right    int
	Distance float64
	Size     int
}

// Assignment is the flat clustering obtained by cutting the dendrogram.
type Assignment struct {
	// Labels holds the cluster id of every item, in [0, K).
	// Clusters are numbered in order of their smallest item index.
	Labels []int
	K      int
	// Merges lists the full dendrogram, sorted by increasing distance.
	Merges []Merge
}

// Members returns the item indices assigned to cluster c, in item order.
func (a *Assignment) Members(c int) []int {
	var members []int
	for i, label := range a.Labels {
		if label == c {
			members = append(members, i)
		}
	}
	return members
}

// Sizes returns the number of members of each cluster.
func (a *Assignment) Sizes() []int {
	sizes := make([]int, a.K)
	for _, label := range a.Labels {
		sizes[label]++
	}
	return sizes
}

// Cluster performs agglomerative hierarchical clustering on the rows of m.
//
// The dendrogram is built with the nearest-neighbour chain algorithm over a
// full pairwise distance matrix updated by the Lance-Williams formula, so
// memory grows with the square of the row count. In threshold mode merges
// with a distance strictly below the threshold are applied; in fixed mode the
// cheapest N-K merges are applied. Ties are broken towards the lowest index.
func Cluster(ctx context.Context, m *mat.Dense, cfg ClusterConfig) (*Assignment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n, _ := m.Dims()
	if cfg.MaxItems > 0 && n > cfg.MaxItems {
		return nil, fmt.Errorf("%d items exceed max_items %d: %w: %w", n, cfg.MaxItems, ErrTooManyItems, ErrConfiguration)
	}

	dist, err := pairwiseDistances(ctx, m, cfg.Affinity)
	if err != nil {
		return nil, err
	}
	merges, err := nnChain(ctx, dist, cfg.Linkage)
	if err != nil {
		return nil, err
	}

	// Heights are monotone for the supported linkages, so a stable sort keeps
	// every merge after the merges that formed its children.
	sort.SliceStable(merges, func(i, j int) bool {
		return merges[i].Distance < merges[j].Distance
	})

	apply := 0
	if cfg.NClusters > 0 {
		k := cfg.NClusters
		if k > n {
			k = n
		}
		apply = n - k
	} else {
		for apply < len(merges) && merges[apply].Distance < cfg.DistanceThreshold {
			apply++
		}
	}

	uf := newUnionFind(n)
	for _, mg := range merges[:apply] {
		uf.union(mg.Left, mg.Right)
	}
	labels, k := uf.labels()

	zap.L().Debug("agglomerative clustering finished",
		zap.Int("items", n),
		zap.Int("clusters", k),
		zap.String("linkage", string(cfg.Linkage)),
		zap.String("affinity", string(cfg.Affinity)))

	return &Assignment{Labels: labels, K: k, Merges: merges}, nil
}

// pairwiseDistances computes the symmetric item distance matrix.
func pairwiseDistances(ctx context.Context, m *mat.Dense, affinity Affinity) (*mat.SymDense, error) {
	n, _ := m.Dims()
	var norms []float64
	if affinity == AffinityCosine {
		norms = make([]float64, n)
		for i := 0; i < n; i++ {
			norms[i] = floats.Norm(m.RawRowView(i), 2)
			if norms[i] == 0 {
				return nil, fmt.Errorf("row %d: %w", i, ErrDegenerateVector)
			}
		}
	}

	dist := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("computing distances: %w", err)
		}
		a := m.RawRowView(i)
		for j := i + 1; j < n; j++ {
			b := m.RawRowView(j)
			var d float64
			switch affinity {
			case AffinityEuclidean:
				d = floats.Distance(a, b, 2)
			case AffinityManhattan:
				d = floats.Distance(a, b, 1)
			case AffinityCosine:
				d = 1 - floats.Dot(a, b)/(norms[i]*norms[j])
				if d < 0 {
					d = 0
				}
			}
			dist.SetSym(i, j, d)
		}
	}
	return dist, nil
}

// nnChain builds the dendrogram. Each merged cluster takes the slot of its
// lower index, which is always one of its members.
func nnChain(ctx context.Context, dist *mat.SymDense, linkage Linkage) ([]Merge, error) {
	n := dist.SymmetricDim()
	active := make([]bool, n)
	size := make([]int, n)
	for i := range active {
		active[i] = true
		size[i] = 1
	}

	merges := make([]Merge, 0, n-1)
	chain := make([]int, 0, n)
	for remaining := n; remaining > 1; remaining-- {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("clustering interrupted after %d merges: %w", len(merges), err)
		}
		if len(chain) == 0 {
			for i := range active {
				if active[i] {
					chain = append(chain, i)
					break
				}
			}
		}

		var a, b int
		for {
			a = chain[len(chain)-1]
			prev := -1
			best := math.Inf(1)
			if len(chain) > 1 {
				prev = chain[len(chain)-2]
				best = dist.At(a, prev)
			}
			b = prev
			for k := 0; k < n; k++ {
				if !active[k] || k == a {
					continue
				}
				if d := dist.At(a, k); d < best {
					best = d
					b = k
				}
			}
			if b < 0 {
				return nil, fmt.Errorf("no finite distance from item %d: %w", a, ErrDegenerateVector)
			}
			if b == prev {
				break
			}
			chain = append(chain, b)
		}
		chain = chain[:len(chain)-2]

		if b < a {
			a, b = b, a
		}
		dab := dist.At(a, b)
		na, nb := float64(size[a]), float64(size[b])
		for k := 0; k < n; k++ {
			if !active[k] || k == a || k == b {
				continue
			}
			dist.SetSym(a, k, lanceWilliams(linkage, dist.At(a, k), dist.At(b, k), dab, na, nb, float64(size[k])))
		}
		active[b] = false
		size[a] += size[b]
		merges = append(merges, Merge{Left: a, Right: b, Distance: dab, Size: size[a]})
	}
	return merges, nil
}

// lanceWilliams returns the distance from cluster k to the union of clusters i and j.
func lanceWilliams(linkage Linkage, dik, djk, dij, ni, nj, nk float64) float64 {
	switch linkage {
	case LinkageSingle:
		return math.Min(dik, djk)
	case LinkageComplete:
		return math.Max(dik, djk)
	case LinkageAverage:
		return (ni*dik + nj*djk) / (ni + nj)
	default: // ward
		sq := ((ni+nk)*dik*dik + (nj+nk)*djk*djk - nk*dij*dij) / (ni + nj + nk)
		if sq < 0 {
			return 0
		}
		return math.Sqrt(sq)
	}
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}

// labels numbers the components in order of their smallest member.
func (u *unionFind) labels() ([]int, int) {
	labels := make([]int, len(u.parent))
	ids := make(map[int]int)
	for i := range u.parent {
		root := u.find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		labels[i] = id
	}
	return labels, len(ids)
}
