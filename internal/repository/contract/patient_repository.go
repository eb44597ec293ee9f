package contract

import (
	"context"

	"medrag-be/internal/entity"
	"medrag-be/internal/repository/specification"

	"github.com/google/uuid"
)

type PatientRepository interface {
	Create(ctx context.Context, patient *entity.Patient) error
	Update(ctx context.Context, patient *entity.Patient) error
	Delete(ctx context.Context, id uuid.UUID) error // soft delete
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Patient, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Patient, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
