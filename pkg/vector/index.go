// Package vector provides an exhaustive nearest-neighbour index over dense float vectors.
// Distances are squared Euclidean. Positions are assigned in insertion order starting at 0.
package vector

import (
	"os"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/utils/fileutil"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidDimension  = goerr.New("invalid vector dimension")
	ErrDimensionMismatch = goerr.New("vector dimension mismatch")
	ErrEmptyIndex        = goerr.New("index has no vectors")
)

// Index is a flat index: every search scans all stored vectors
type Index struct {
	dim  int
	data []float64 // row-major, Len() x dim
}

// Result is one search hit
type Result struct {
	Position int
	Distance float64
}

// New creates an empty index for vectors of dimension dim
func New(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, goerr.Wrap(ErrInvalidDimension, "dimension must be positive", goerr.V("dim", dim))
	}
	return &Index{dim: dim}, nil
}

// Dim returns the vector dimension
func (x *Index) Dim() int { return x.dim }

// Len returns the number of stored vectors
func (x *Index) Len() int { return len(x.data) / x.dim }

// Add appends vectors. Either all vectors are added or none.
func (x *Index) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != x.dim {
			return goerr.Wrap(ErrDimensionMismatch, "cannot add vector",
				goerr.V("index", i), goerr.V("expected", x.dim), goerr.V("actual", len(v)))
		}
	}

	for _, v := range vectors {
		for _, f := range v {
			x.data = append(x.data, float64(f))
		}
	}
	return nil
}

// Truncate keeps only the first n vectors. n beyond Len is a no-op.
func (x *Index) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < x.Len() {
		x.data = x.data[:n*x.dim]
	}
}

// Search returns up to k nearest stored vectors, nearest first. Equal distances keep insertion order.
func (x *Index) Search(query []float32, k int) ([]Result, error) {
	if len(query) != x.dim {
		return nil, goerr.Wrap(ErrDimensionMismatch, "cannot search",
			goerr.V("expected", x.dim), goerr.V("actual", len(query)))
	}

	n := x.Len()
	if n == 0 || k <= 0 {
		return nil, nil
	}

	q := make([]float64, x.dim)
	for i, f := range query {
		q[i] = float64(f)
	}

	m := mat.NewDense(n, x.dim, x.data)
	diff := make([]float64, x.dim)
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		floats.SubTo(diff, m.RawRowView(i), q)
		results[i] = Result{Position: i, Distance: floats.Dot(diff, diff)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// MarshalBinary encodes the index as a gonum dense matrix
func (x *Index) MarshalBinary() ([]byte, error) {
	if x.Len() == 0 {
		return nil, ErrEmptyIndex
	}
	data, err := mat.NewDense(x.Len(), x.dim, x.data).MarshalBinary()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal index")
	}
	return data, nil
}

// UnmarshalBinary decodes an index written by MarshalBinary
func (x *Index) UnmarshalBinary(data []byte) error {
	var m mat.Dense
	if err := m.UnmarshalBinary(data); err != nil {
		return goerr.Wrap(err, "failed to unmarshal index")
	}

	rows, cols := m.Dims()
	x.dim = cols
	x.data = make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		x.data = append(x.data, m.RawRowView(i)...)
	}
	return nil
}

// Save writes the index to path atomically
func (x *Index) Save(path string) error {
	data, err := x.MarshalBinary()
	if err != nil {
		return goerr.Wrap(err, "failed to encode index", goerr.V("path", path))
	}
	if err := fileutil.WriteAtomic(path, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to save index", goerr.V("path", path))
	}
	return nil
}

// Load reads an index saved by Save
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read index file", goerr.V("path", path))
	}

	var x Index
	if err := x.UnmarshalBinary(data); err != nil {
		return nil, goerr.Wrap(err, "failed to load index", goerr.V("path", path))
	}
	return &x, nil
}
