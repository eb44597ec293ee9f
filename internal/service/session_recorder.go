package service

import (
	"context"
	"sync"
	"time"

	"medrag-be/internal/entity"
	"medrag-be/internal/pkg/logger"
	"medrag-be/internal/repository/specification"
	"medrag-be/internal/repository/unitofwork"
	"medrag-be/pkg/diagnosis"

	"github.com/google/uuid"
)

// SessionRecorder copies each job's outcome onto its DiagnosisSession record.
// Observer callbacks must not block workers, so writes happen on their own goroutine.
type SessionRecorder struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
	wg         sync.WaitGroup
}

func NewSessionRecorder(uowFactory unitofwork.RepositoryFactory, logger logger.ILogger) *SessionRecorder {
	return &SessionRecorder{uowFactory: uowFactory, logger: logger}
}

func (r *SessionRecorder) JobAccepted(sessionID string, req diagnosis.Request) {}

func (r *SessionRecorder) JobProgress(status diagnosis.Status) {}

func (r *SessionRecorder) JobFinished(sessionID string, entry diagnosis.Entry) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := r.record(ctx, id, entry); err != nil {
			r.logger.Error("DIAGNOSIS", "Failed to record session outcome", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}()
}

// Wait blocks until pending writes have finished.
func (r *SessionRecorder) Wait() {
	r.wg.Wait()
}

func (r *SessionRecorder) record(ctx context.Context, id uuid.UUID, entry diagnosis.Entry) error {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	repo := uow.DiagnosisSessionRepository()

	session, err := repo.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if session == nil {
		// deleted while the job was running
		return nil
	}

	finishedAt := entry.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now().UTC()
	}
	session.CompletedAt = &finishedAt

	switch entry.Status {
	case diagnosis.StatusCompleted:
		session.Status = entity.DiagnosisSessionCompleted
		if top, ok := entry.Result.TopCondition(); ok {
			session.TopCondition = top.Condition
			session.TopConfidence = top.Confidence
		}
		if entry.Result != nil {
			session.FallbackUsed = entry.Result.FallbackUsed
		}
	default:
		session.Status = entity.DiagnosisSessionError
		session.ErrorMessage = entry.Error
	}
	return repo.Update(ctx, session)
}
