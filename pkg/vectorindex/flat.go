package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

const flatSnapshotVersion = 1

type flatSnapshot struct {
	Version   int         `msgpack:"version"`
	Metric    string      `msgpack:"metric"`
	Dimension int         `msgpack:"dimension"`
	IDs       []int64     `msgpack:"ids"`
	Vectors   [][]float32 `msgpack:"vectors"`
}

// FlatIndex is an exact index. It is read-only once loaded, so searches need no locking.
type FlatIndex struct {
	metric    Metric
	dimension int
	ids       []int64
	vectors   [][]float32
}

func NewFlatIndex(dimension int, metric Metric) *FlatIndex {
	return &FlatIndex{dimension: dimension, metric: metric}
}

// Add appends a vector. Only used while building an index offline.
func (f *FlatIndex) Add(id int64, vec []float32) error {
	if len(vec) != f.dimension {
		return ErrDimensionMismatch
	}
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, vec)
	return nil
}

func (f *FlatIndex) Size() int      { return len(f.ids) }
func (f *FlatIndex) Dimension() int { return f.dimension }
func (f *FlatIndex) Metric() Metric { return f.metric }
func (f *FlatIndex) Type() string   { return "FlatIndex" + string(f.metric) }

func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != f.dimension {
		return nil, ErrDimensionMismatch
	}
	if k <= 0 {
		return nil, nil
	}

	scored := make([]Hit, 0, len(f.vectors))
	for i, vec := range f.vectors {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		scored = append(scored, Hit{ID: f.ids[i], Distance: f.distance(query, vec)})
	}

	// Stable so equal distances keep insertion order
	if f.metric == MetricInnerProduct {
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].Distance > scored[j].Distance })
	} else {
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
	}

	hits := make([]Hit, k)
	for i := range hits {
		if i < len(scored) {
			hits[i] = scored[i]
		} else {
			hits[i] = Hit{ID: NoMatch, Distance: -1}
		}
	}
	return hits, nil
}

func (f *FlatIndex) distance(a, b []float32) float32 {
	switch f.metric {
	case MetricInnerProduct:
		return dot(a, b)
	case MetricCosine:
		na, nb := dot(a, a), dot(b, b)
		if na == 0 || nb == 0 {
			return 1
		}
		return 1 - dot(a, b)/float32(math.Sqrt(float64(na)*float64(nb)))
	default:
		var sum float32
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return sum
	}
}

// Save writes the index as a msgpack snapshot.
func (f *FlatIndex) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return msgpack.NewEncoder(file).Encode(flatSnapshot{
		Version:   flatSnapshotVersion,
		Metric:    string(f.metric),
		Dimension: f.dimension,
		IDs:       f.ids,
		Vectors:   f.vectors,
	})
}

// LoadFlatIndex reads a snapshot written by Save.
func LoadFlatIndex(path string) (*FlatIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap flatSnapshot
	if err := msgpack.NewDecoder(file).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode index snapshot: %w", err)
	}
	if snap.Version != flatSnapshotVersion {
		return nil, fmt.Errorf("unsupported index snapshot version %d", snap.Version)
	}
	if len(snap.IDs) != len(snap.Vectors) {
		return nil, fmt.Errorf("index snapshot has %d ids and %d vectors", len(snap.IDs), len(snap.Vectors))
	}
	metric, err := ParseMetric(snap.Metric)
	if err != nil {
		return nil, err
	}
	for i, v := range snap.Vectors {
		if len(v) != snap.Dimension {
			return nil, fmt.Errorf("vector %d: %w", i, ErrDimensionMismatch)
		}
	}

	return &FlatIndex{
		metric:    metric,
		dimension: snap.Dimension,
		ids:       snap.IDs,
		vectors:   snap.Vectors,
	}, nil
}

// LoadEmbeddings reads the raw embedding matrix stored alongside the index.
func LoadEmbeddings(path string) ([][]float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var matrix [][]float32
	if err := msgpack.NewDecoder(file).Decode(&matrix); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}
	return matrix, nil
}

// SaveEmbeddings is the offline counterpart of LoadEmbeddings.
func SaveEmbeddings(path string, matrix [][]float32) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := msgpack.Marshal(matrix)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
