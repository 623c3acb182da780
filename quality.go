package skilltax

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// maxSilhouetteItems bounds the quadratic silhouette computation.
const maxSilhouetteItems = 5000

// Quality summarises how well separated a clustering is.
type Quality struct {
	Clusters          int     `json:"clusters"`
	Singletons        int     `json:"singletons"`
	LargestCluster    int     `json:"largest_cluster"`
	SilhouetteScore   float64 `json:"silhouette_score"`
	SilhouetteSkipped bool    `json:"silhouette_skipped,omitempty"`
	// DaviesBouldin is lower for compact, well separated clusters.
	DaviesBouldin float64 `json:"davies_bouldin"`
	// CalinskiHarabasz is higher for compact, well separated clusters.
	// Zero when undefined.
	CalinskiHarabasz float64 `json:"calinski_harabasz"`
}

// Evaluate computes cluster size statistics, the centroid based
// Davies-Bouldin and Calinski-Harabasz indices, and the mean silhouette
// score of labels over the rows of m.
func Evaluate(m *mat.Dense, labels []int, affinity Affinity) Quality {
	k := 0
	for _, l := range labels {
		if l+1 > k {
			k = l + 1
		}
	}
	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}
	q := Quality{Clusters: k}
	for _, s := range sizes {
		if s == 1 {
			q.Singletons++
		}
		if s > q.LargestCluster {
			q.LargestCluster = s
		}
	}
	cs := centroids(m, labels, sizes)
	q.DaviesBouldin = daviesBouldin(m, labels, sizes, cs)
	q.CalinskiHarabasz = calinskiHarabasz(m, labels, sizes, cs)

	if len(labels) > maxSilhouetteItems {
		q.SilhouetteSkipped = true
		return q
	}
	q.SilhouetteScore = silhouetteScore(m, labels, sizes, affinity)
	return q
}

// silhouetteScore averages (b - a) / max(a, b) over all points, where a is
// the mean distance to the point's own cluster and b the smallest mean
// distance to another cluster. Points in singleton clusters score 0.
func silhouetteScore(m *mat.Dense, labels []int, sizes []int, affinity Affinity) float64 {
	if len(sizes) <= 1 {
		return 0
	}
	n := len(labels)
	total := 0.0
	sums := make([]float64, len(sizes))
	for i := 0; i < n; i++ {
		for c := range sums {
			sums[c] = 0
		}
		a := m.RawRowView(i)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sums[labels[j]] += pointDistance(a, m.RawRowView(j), affinity)
		}

		own := labels[i]
		if sizes[own] == 1 {
			continue
		}
		intra := sums[own] / float64(sizes[own]-1)
		inter := math.Inf(1)
		for c, s := range sums {
			if c == own {
				continue
			}
			if avg := s / float64(sizes[c]); avg < inter {
				inter = avg
			}
		}
		if d := math.Max(intra, inter); d > 0 {
			total += (inter - intra) / d
		}
	}
	return total / float64(n)
}

// centroids returns the mean row of every cluster.
func centroids(m *mat.Dense, labels []int, sizes []int) [][]float64 {
	_, d := m.Dims()
	cs := make([][]float64, len(sizes))
	for c := range cs {
		cs[c] = make([]float64, d)
	}
	for i, l := range labels {
		floats.Add(cs[l], m.RawRowView(i))
	}
	for c, size := range sizes {
		if size > 0 {
			floats.Scale(1/float64(size), cs[c])
		}
	}
	return cs
}

// daviesBouldin averages over clusters the worst ratio of summed scatter
// to centroid separation. Scatter is the mean Euclidean distance of the
// members to their centroid.
func daviesBouldin(m *mat.Dense, labels []int, sizes []int, cs [][]float64) float64 {
	k := len(sizes)
	if k <= 1 {
		return 0
	}
	scatter := make([]float64, k)
	for i, l := range labels {
		scatter[l] += floats.Distance(m.RawRowView(i), cs[l], 2)
	}
	for c, size := range sizes {
		if size > 0 {
			scatter[c] /= float64(size)
		}
	}
	total := 0.0
	for i := 0; i < k; i++ {
		worst := 0.0
		for j := 0; j < k; j++ {
			if i == j {
				continue
			}
			if sep := floats.Distance(cs[i], cs[j], 2); sep > 0 {
				worst = math.Max(worst, (scatter[i]+scatter[j])/sep)
			}
		}
		total += worst
	}
	return total / float64(k)
}

// calinskiHarabasz is (BCSS / (k-1)) / (WCSS / (n-k)).
func calinskiHarabasz(m *mat.Dense, labels []int, sizes []int, cs [][]float64) float64 {
	n, k := len(labels), len(sizes)
	if k <= 1 || n <= k {
		return 0
	}
	_, d := m.Dims()
	overall := make([]float64, d)
	for i := 0; i < n; i++ {
		floats.Add(overall, m.RawRowView(i))
	}
	floats.Scale(1/float64(n), overall)

	between, within := 0.0, 0.0
	for c, size := range sizes {
		dist := floats.Distance(cs[c], overall, 2)
		between += float64(size) * dist * dist
	}
	for i, l := range labels {
		dist := floats.Distance(m.RawRowView(i), cs[l], 2)
		within += dist * dist
	}
	if within == 0 {
		return 0
	}
	return (between / float64(k-1)) / (within / float64(n-k))
}

func pointDistance(a, b []float64, affinity Affinity) float64 {
	switch affinity {
	case AffinityManhattan:
		return floats.Distance(a, b, 1)
	case AffinityCosine:
		na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
		if na == 0 || nb == 0 {
			return 1
		}
		return 1 - floats.Dot(a, b)/(na*nb)
	default:
		return floats.Distance(a, b, 2)
	}
}

// Assessment describes the clustering quality in words.
func (q Quality) Assessment(items int) string {
	var parts []string
	switch {
	case q.SilhouetteSkipped:
		parts = append(parts, "Separation not measured")
	case q.SilhouetteScore > 0.7:
		parts = append(parts, "Excellent cluster separation")
	case q.SilhouetteScore > 0.5:
		parts = append(parts, "Good cluster separation")
	case q.SilhouetteScore > 0.25:
		parts = append(parts, "Moderate cluster separation")
	case q.SilhouetteScore > 0:
		parts = append(parts, "Weak cluster separation")
	default:
		parts = append(parts, "Poor cluster separation")
	}

	if q.Clusters > 0 {
		avg := float64(items) / float64(q.Clusters)
		switch {
		case avg < 1.5:
			parts = append(parts, "too many micro-clusters")
		case q.LargestCluster*2 > items && q.Clusters > 1:
			parts = append(parts, "one dominant class")
		default:
			parts = append(parts, "balanced grouping")
		}
	}
	return strings.Join(parts, " with ")
}
