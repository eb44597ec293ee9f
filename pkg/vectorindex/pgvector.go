package vectorindex

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// CaseEmbedding is one stored case vector. CaseIndex matches the key used in case metadata.
type CaseEmbedding struct {
	CaseIndex int64           `gorm:"primaryKey;autoIncrement:false"`
	Embedding pgvector.Vector `gorm:"type:vector"`
}

func (CaseEmbedding) TableName() string {
	return "case_embeddings"
}

// PgVectorIndex answers searches from the case_embeddings table.
type PgVectorIndex struct {
	db        *gorm.DB
	metric    Metric
	dimension int
	size      int
}

// NewPgVectorIndex counts the stored rows once. The table is treated as read-only afterwards.
func NewPgVectorIndex(db *gorm.DB, dimension int, metric Metric) (*PgVectorIndex, error) {
	var count int64
	if err := db.Model(&CaseEmbedding{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count case embeddings: %w", err)
	}
	return &PgVectorIndex{db: db, metric: metric, dimension: dimension, size: int(count)}, nil
}

func (p *PgVectorIndex) Size() int      { return p.size }
func (p *PgVectorIndex) Dimension() int { return p.dimension }
func (p *PgVectorIndex) Metric() Metric { return p.metric }
func (p *PgVectorIndex) Type() string   { return "PgVector" + string(p.metric) }

func (p *PgVectorIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != p.dimension {
		return nil, ErrDimensionMismatch
	}
	if k <= 0 {
		return nil, nil
	}

	var rows []struct {
		CaseIndex int64
		Distance  float64
	}
	err := p.db.WithContext(ctx).
		Model(&CaseEmbedding{}).
		Select("case_index, embedding "+p.operator()+" ? AS distance", pgvector.NewVector(query)).
		Order("distance ASC").
		Order("case_index ASC").
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}

	hits := make([]Hit, k)
	for i := range hits {
		if i >= len(rows) {
			hits[i] = Hit{ID: NoMatch, Distance: -1}
			continue
		}
		hits[i] = Hit{ID: rows[i].CaseIndex, Distance: p.native(rows[i].Distance)}
	}
	return hits, nil
}

func (p *PgVectorIndex) operator() string {
	switch p.metric {
	case MetricInnerProduct:
		return "<#>"
	case MetricCosine:
		return "<=>"
	default:
		return "<->"
	}
}

// native converts pgvector's operator output to the same scale FlatIndex reports.
func (p *PgVectorIndex) native(d float64) float32 {
	switch p.metric {
	case MetricInnerProduct:
		// <#> is the negated inner product
		return float32(-d)
	case MetricL2:
		return float32(d * d)
	default:
		return float32(d)
	}
}
