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

type PatientRepository struct {
	mu   sync.Mutex
	rows table[entity.Patient]
}

func NewPatientRepository() contract.PatientRepository {
	return &PatientRepository{rows: newTable[entity.Patient]()}
}

func (r *PatientRepository) Create(ctx context.Context, patient *entity.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if patient.Id == uuid.Nil {
		patient.Id = uuid.New()
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = time.Now().UTC()
	}
	r.rows.put(patient.Id.String(), *patient)
	return nil
}

func (r *PatientRepository) Update(ctx context.Context, patient *entity.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	patient.UpdatedAt = &now
	r.rows.put(patient.Id.String(), *patient)
	return nil
}

func (r *PatientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.rows.get(id.String())
	if !ok || p.IsDeleted {
		return nil
	}
	now := time.Now().UTC()
	p.IsDeleted = true
	p.DeletedAt = &now
	r.rows.put(id.String(), p)
	return nil
}

func (r *PatientRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Patient, error) {
	found := r.find(specs)
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (r *PatientRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Patient, error) {
	found := r.find(specs)
	out := make([]*entity.Patient, len(found))
	for i := range found {
		out[i] = &found[i]
	}
	return out, nil
}

func (r *PatientRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.find(specs))), nil
}

func (r *PatientRepository) find(specs []specification.Specification) []entity.Patient {
	var live []entity.Patient
	for _, p := range r.rows.all() {
		if !p.IsDeleted {
			live = append(live, p)
		}
	}
	return query(live, specs, matchPatient, func(p entity.Patient) time.Time { return p.CreatedAt })
}

func matchPatient(p entity.Patient, s specification.Specification) bool {
	switch s := s.(type) {
	case specification.ByID:
		return p.Id == s.ID
	case specification.NameContains:
		return containsFold(p.Name, s.Query)
	default:
		return true
	}
}
