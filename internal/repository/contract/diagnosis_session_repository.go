package contract

import (
	"context"

	"medrag-be/internal/entity"
	"medrag-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DiagnosisSessionRepository interface {
	Create(ctx context.Context, session *entity.DiagnosisSession) error
	Update(ctx context.Context, session *entity.DiagnosisSession) error // no-op once deleted
	Delete(ctx context.Context, id uuid.UUID) error // soft delete
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DiagnosisSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DiagnosisSession, error)
}
