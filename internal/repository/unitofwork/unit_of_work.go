package unitofwork

import (
	"context"

	"medrag-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	PatientRepository() contract.PatientRepository
	DiagnosisSessionRepository() contract.DiagnosisSessionRepository
	FeedbackRepository() contract.FeedbackRepository
}

// InTransaction runs fn inside one transaction. fn's error, or a panic, rolls it back.
func InTransaction(ctx context.Context, factory RepositoryFactory, fn func(uow UnitOfWork) error) (err error) {
	uow := factory.NewUnitOfWork(ctx)
	if err = uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			uow.Rollback()
			panic(p)
		}
		if err != nil {
			uow.Rollback()
		}
	}()

	if err = fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}
