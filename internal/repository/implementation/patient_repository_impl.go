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

type PatientRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PatientMapper
}

func NewPatientRepository(db *gorm.DB) contract.PatientRepository {
	return &PatientRepositoryImpl{
		db:     db,
		mapper: mapper.NewPatientMapper(),
	}
}

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *PatientRepositoryImpl) Create(ctx context.Context, patient *entity.Patient) error {
	m := r.mapper.ToModel(patient)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*patient = *r.mapper.ToEntity(m)
	return nil
}

func (r *PatientRepositoryImpl) Update(ctx context.Context, patient *entity.Patient) error {
	m := r.mapper.ToModel(patient)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*patient = *r.mapper.ToEntity(m)
	return nil
}

func (r *PatientRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Patient{}, id).Error
}

func (r *PatientRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Patient, error) {
	var m model.Patient
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *PatientRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Patient, error) {
	var models []*model.Patient
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *PatientRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.Patient{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
