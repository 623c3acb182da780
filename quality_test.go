package skilltax

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestEvaluate(t *testing.T) {
	m := threeBlobs()
	q := Evaluate(m, []int{0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2}, AffinityEuclidean)
	require.Equal(t, 3, q.Clusters)
	require.Equal(t, 4, q.LargestCluster)
	require.Zero(t, q.Singletons)
	require.Greater(t, q.SilhouetteScore, 0.8)

	mixed := Evaluate(m, []int{0, 1, 2, 0, 1, 2, 0, 1, 2, 0, 1, 2}, AffinityEuclidean)
	require.Less(t, mixed.SilhouetteScore, q.SilhouetteScore)
	require.Greater(t, mixed.DaviesBouldin, q.DaviesBouldin)
	require.Less(t, mixed.CalinskiHarabasz, q.CalinskiHarabasz)

	single := Evaluate(m, make([]int, 12), AffinityCosine)
	require.Equal(t, 1, single.Clusters)
	require.Zero(t, single.SilhouetteScore)
	require.Zero(t, single.DaviesBouldin)
	require.Zero(t, single.CalinskiHarabasz)
}

func TestEvaluateCentroidIndices(t *testing.T) {
	// Centroids 0.5 and 10.5, every point 0.5 from its centroid.
	m := mat.NewDense(4, 1, []float64{0, 1, 10, 11})
	q := Evaluate(m, []int{0, 0, 1, 1}, AffinityEuclidean)
	require.InDelta(t, 0.1, q.DaviesBouldin, 1e-12)
	require.InDelta(t, 200, q.CalinskiHarabasz, 1e-9)

	// Zero within-cluster dispersion has no finite index.
	tight := Evaluate(mat.NewDense(4, 1, []float64{0, 0, 5, 5}), []int{0, 0, 1, 1}, AffinityEuclidean)
	require.Zero(t, tight.CalinskiHarabasz)
	require.Zero(t, tight.DaviesBouldin)
}

func TestQualityAssessment(t *testing.T) {
	require.Equal(t, "Excellent cluster separation with balanced grouping",
		Quality{Clusters: 3, LargestCluster: 4, SilhouetteScore: 0.9}.Assessment(12))
	require.Equal(t, "Weak cluster separation with one dominant class",
		Quality{Clusters: 2, LargestCluster: 10, SilhouetteScore: 0.1}.Assessment(12))
	require.Equal(t, "Separation not measured with too many micro-clusters",
		Quality{Clusters: 10, LargestCluster: 2, SilhouetteSkipped: true}.Assessment(12))
}
