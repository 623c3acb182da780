package skilltax

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// NewEmbeddingMatrix stacks item embeddings into an N×D matrix.
// All embeddings must share the same non-zero dimension.
func NewEmbeddingMatrix(items []Item) (*mat.Dense, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no items: %w", ErrConfiguration)
	}
	d := len(items[0].Embedding)
	if d == 0 {
		return nil, fmt.Errorf("item %d has an empty embedding: %w", items[0].Index, ErrConfiguration)
	}
	data := make([]float64, 0, len(items)*d)
	for _, item := range items {
		if len(item.Embedding) != d {
			return nil, fmt.Errorf("item %d has dimension %d, expected %d: %w", item.Index, len(item.Embedding), d, ErrConfiguration)
		}
		data = append(data, item.Embedding...)
	}
	return mat.NewDense(len(items), d, data), nil
}

// NormalizeRows returns a copy of m where every row has unit L2 norm.
func NormalizeRows(m *mat.Dense) (*mat.Dense, error) {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		copy(row, m.RawRowView(i))
		norm := floats.Norm(row, 2)
		if norm == 0 {
			return nil, fmt.Errorf("row %d: %w", i, ErrDegenerateVector)
		}
		floats.Scale(1/norm, row)
	}
	return out, nil
}
