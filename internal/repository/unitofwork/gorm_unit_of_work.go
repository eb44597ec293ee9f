package unitofwork

import (
	"context"
	"errors"

	"medrag-be/internal/repository/contract"
	"medrag-be/internal/repository/implementation"

	"gorm.io/gorm"
)

var (
	errTxActive   = errors.New("unit of work: transaction already open")
	errTxInactive = errors.New("unit of work: no open transaction")
)

type gormFactory struct {
	db *gorm.DB
}

// NewRepositoryFactory hands out postgres-backed units of work. Each unit is bound to the
// context it was created with.
func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return &gormFactory{db: db}
}

func (f *gormFactory) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return &gormUnitOfWork{db: f.db.WithContext(ctx)}
}

type gormUnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

func (u *gormUnitOfWork) conn() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *gormUnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return errTxActive
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *gormUnitOfWork) Commit() error {
	return u.finish((*gorm.DB).Commit)
}

func (u *gormUnitOfWork) Rollback() error {
	return u.finish((*gorm.DB).Rollback)
}

func (u *gormUnitOfWork) finish(end func(*gorm.DB) *gorm.DB) error {
	if u.tx == nil {
		return errTxInactive
	}
	tx := u.tx
	u.tx = nil
	return end(tx).Error
}

func (u *gormUnitOfWork) PatientRepository() contract.PatientRepository {
	return implementation.NewPatientRepository(u.conn())
}

func (u *gormUnitOfWork) DiagnosisSessionRepository() contract.DiagnosisSessionRepository {
	return implementation.NewDiagnosisSessionRepository(u.conn())
}

func (u *gormUnitOfWork) FeedbackRepository() contract.FeedbackRepository {
	return implementation.NewFeedbackRepository(u.conn())
}
