package unitofwork

import (
	"context"

	"medrag-be/internal/repository/contract"
	"medrag-be/internal/repository/memory"
)

// MemoryRepositoryFactory serves process-local repositories when no database is configured.
// Transactions are accepted but not isolated.
type MemoryRepositoryFactory struct {
	patients contract.PatientRepository
	sessions contract.DiagnosisSessionRepository
	feedback contract.FeedbackRepository
}

func NewMemoryRepositoryFactory() RepositoryFactory {
	return &MemoryRepositoryFactory{
		patients: memory.NewPatientRepository(),
		sessions: memory.NewDiagnosisSessionRepository(),
		feedback: memory.NewFeedbackRepository(),
	}
}

func (f *MemoryRepositoryFactory) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return memoryUnitOfWork{f}
}

type memoryUnitOfWork struct {
	f *MemoryRepositoryFactory
}

func (memoryUnitOfWork) Begin(ctx context.Context) error { return nil }
func (memoryUnitOfWork) Commit() error                   { return nil }
func (memoryUnitOfWork) Rollback() error                 { return nil }

func (u memoryUnitOfWork) PatientRepository() contract.PatientRepository {
	return u.f.patients
}

func (u memoryUnitOfWork) DiagnosisSessionRepository() contract.DiagnosisSessionRepository {
	return u.f.sessions
}

func (u memoryUnitOfWork) FeedbackRepository() contract.FeedbackRepository {
	return u.f.feedback
}
