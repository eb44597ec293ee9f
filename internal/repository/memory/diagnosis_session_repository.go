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

type DiagnosisSessionRepository struct {
	mu   sync.Mutex
	rows table[entity.DiagnosisSession]
}

func NewDiagnosisSessionRepository() contract.DiagnosisSessionRepository {
	return &DiagnosisSessionRepository{rows: newTable[entity.DiagnosisSession]()}
}

func (r *DiagnosisSessionRepository) Create(ctx context.Context, session *entity.DiagnosisSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.Id == uuid.Nil {
		session.Id = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	r.rows.put(session.Id.String(), *session)
	return nil
}

// Update only touches live rows, so a stale copy cannot bring back a deleted session.
func (r *DiagnosisSessionRepository) Update(ctx context.Context, session *entity.DiagnosisSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.rows.get(session.Id.String())
	if !ok || current.IsDeleted {
		return nil
	}
	updated := *session
	updated.IsDeleted, updated.DeletedAt = false, nil
	r.rows.put(session.Id.String(), updated)
	return nil
}

func (r *DiagnosisSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.rows.get(id.String())
	if !ok || s.IsDeleted {
		return nil
	}
	now := time.Now().UTC()
	s.IsDeleted = true
	s.DeletedAt = &now
	r.rows.put(id.String(), s)
	return nil
}

func (r *DiagnosisSessionRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DiagnosisSession, error) {
	found := r.find(specs)
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (r *DiagnosisSessionRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DiagnosisSession, error) {
	found := r.find(specs)
	out := make([]*entity.DiagnosisSession, len(found))
	for i := range found {
		out[i] = &found[i]
	}
	return out, nil
}

func (r *DiagnosisSessionRepository) find(specs []specification.Specification) []entity.DiagnosisSession {
	var live []entity.DiagnosisSession
	for _, s := range r.rows.all() {
		if !s.IsDeleted {
			live = append(live, s)
		}
	}
	return query(live, specs, matchSession, func(s entity.DiagnosisSession) time.Time { return s.CreatedAt })
}

func matchSession(s entity.DiagnosisSession, spec specification.Specification) bool {
	switch spec := spec.(type) {
	case specification.ByID:
		return s.Id == spec.ID
	case specification.ByPatientID:
		return s.PatientId != nil && *s.PatientId == spec.PatientID
	case specification.ByStatus:
		return string(s.Status) == spec.Status
	default:
		return true
	}
}
