package implementation

import (
	"context"
	"errors"

	"medrag-be/internal/entity"
	"medrag-be/internal/mapper"
	"medrag-be/internal/model"
	"medrag-be/internal/repository/contract"
	"medrag-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DiagnosisSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DiagnosisSessionMapper
}

func NewDiagnosisSessionRepository(db *gorm.DB) contract.DiagnosisSessionRepository {
	return &DiagnosisSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewDiagnosisSessionMapper(),
	}
}

func (r *DiagnosisSessionRepositoryImpl) Create(ctx context.Context, session *entity.DiagnosisSession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

// Update writes every column of a live row. The soft delete scope keeps it from matching a
// deleted session, where Save would upsert and clear deleted_at.
func (r *DiagnosisSessionRepositoryImpl) Update(ctx context.Context, session *entity.DiagnosisSession) error {
	m := r.mapper.ToModel(session)
	return r.db.WithContext(ctx).
		Model(&model.DiagnosisSession{Id: m.Id}).
		Select("*").
		Omit("id", "created_at", "deleted_at").
		Updates(m).Error
}

func (r *DiagnosisSessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.DiagnosisSession{}, id).Error
}

func (r *DiagnosisSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DiagnosisSession, error) {
	var m model.DiagnosisSession
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DiagnosisSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DiagnosisSession, error) {
	var models []*model.DiagnosisSession
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
