package memory

import (
	"context"
	"sync"
	"time"

	"medrag-be/internal/entity"
	"medrag-be/internal/repository/contract"
	"medrag-be/internal/repository/specification"

	"github.com/google/uuid"
)

type FeedbackRepository struct {
	mu   sync.Mutex
	rows table[entity.Feedback]
}

func NewFeedbackRepository() contract.FeedbackRepository {
	return &FeedbackRepository{rows: newTable[entity.Feedback]()}
}

func (r *FeedbackRepository) Create(ctx context.Context, feedback *entity.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if feedback.Id == uuid.Nil {
		feedback.Id = uuid.New()
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now().UTC()
	}
	r.rows.put(feedback.Id.String(), *feedback)
	return nil
}

func (r *FeedbackRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Feedback, error) {
	found := r.find(specs)
	out := make([]*entity.Feedback, len(found))
	for i := range found {
		out[i] = &found[i]
	}
	return out, nil
}

func (r *FeedbackRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.find(specs))), nil
}

func (r *FeedbackRepository) find(specs []specification.Specification) []entity.Feedback {
	return query(r.rows.all(), specs, matchFeedback, func(f entity.Feedback) time.Time { return f.CreatedAt })
}

func matchFeedback(f entity.Feedback, s specification.Specification) bool {
	switch s := s.(type) {
	case specification.ByID:
		return f.Id == s.ID
	case specification.BySessionID:
		return f.SessionId == s.SessionID
	default:
		return true
	}
}
