package skilltax

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestNormalizeRows(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{3, 4, 0, -2})
	out, err := NormalizeRows(m)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{0.6, 0.8}, out.RawRowView(0), 1e-12)
	require.InDeltaSlice(t, []float64{0, -1}, out.RawRowView(1), 1e-12)
	// input untouched
	require.Equal(t, []float64{3, 4}, m.RawRowView(0))
}

func TestNormalizeRowsIsIdempotent(t *testing.T) {
	once, err := NormalizeRows(randomMatrix(11, 20, 16))
	require.NoError(t, err)
	twice, err := NormalizeRows(once)
	require.NoError(t, err)
	require.True(t, mat.EqualApprox(once, twice, 1e-12))
	for i := 0; i < 20; i++ {
		require.InDelta(t, 1, floats.Norm(twice.RawRowView(i), 2), 1e-12)
	}
}

func TestNormalizeRowsRejectsZeroRow(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 0, 0, 0, 0, 0})
	_, err := NormalizeRows(m)
	require.ErrorIs(t, err, ErrDegenerateVector)
	require.ErrorContains(t, err, "row 1")
}

func TestNewEmbeddingMatrix(t *testing.T) {
	m, err := NewEmbeddingMatrix([]Item{
		{Index: 0, Embedding: []float64{1, 2}},
		{Index: 1, Embedding: []float64{3, 4}},
	})
	require.NoError(t, err)
	r, c := m.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 2, c)
	require.Equal(t, []float64{3, 4}, m.RawRowView(1))

	_, err = NewEmbeddingMatrix([]Item{
		{Index: 0, Embedding: []float64{1, 2}},
		{Index: 1, Embedding: []float64{3}},
	})
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = NewEmbeddingMatrix(nil)
	require.ErrorIs(t, err, ErrConfiguration)
}
