package service

import (
	"context"
	"time"

	"medrag-be/internal/dto"
	"medrag-be/internal/repository/unitofwork"
	"medrag-be/pkg/knowledgegraph"
	"medrag-be/pkg/similarity"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	ServiceVersion = "1.0.0"

	statusHealthy  = "healthy"
	statusDegraded = "degraded"
	statusError    = "error"
)

type IHealthService interface {
	Check(ctx context.Context) *dto.HealthResponse
	Stats(ctx context.Context) (*dto.StatsResponse, error)
}

type healthService struct {
	uowFactory unitofwork.RepositoryFactory
	similarity *similarity.Engine
	graph      *knowledgegraph.Engine
	engine     DiagnosisEngine
	redis      *redis.Client // nil when not configured
	db         *gorm.DB      // nil with the in-memory record store
}

func NewHealthService(
	uowFactory unitofwork.RepositoryFactory,
	similarity *similarity.Engine,
	graph *knowledgegraph.Engine,
	engine DiagnosisEngine,
	redis *redis.Client,
	db *gorm.DB,
) IHealthService {
	return &healthService{
		uowFactory: uowFactory,
		similarity: similarity,
		graph:      graph,
		engine:     engine,
		redis:      redis,
		db:         db,
	}
}

// Check reports each dependency. Overall status is degraded when any of them is not usable.
func (s *healthService) Check(ctx context.Context) *dto.HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	services := map[string]string{
		"similarity":      s.similarity.Stats().Status,
		"knowledge_graph": s.graph.Stats().Status,
		"redis":           s.pingRedis(ctx),
		"database":        s.pingDatabase(ctx),
	}

	overall := statusHealthy
	for _, st := range services {
		if st == statusError || st == "not_initialized" {
			overall = statusDegraded
		}
	}

	return &dto.HealthResponse{
		Status:     overall,
		Version:    ServiceVersion,
		Timestamp:  time.Now().UTC(),
		Services:   services,
		ActiveJobs: s.engine.ActiveJobs(),
	}
}

func (s *healthService) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	patients, err := uow.PatientRepository().Count(ctx)
	if err != nil {
		return nil, err
	}
	feedback, err := uow.FeedbackRepository().Count(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.StatsResponse{
		Similarity:     s.similarity.Stats(),
		KnowledgeGraph: s.graph.Stats(),
		Records:        dto.RecordCounts{Patients: patients, Feedback: feedback},
		ActiveJobs:     s.engine.ActiveJobs(),
	}, nil
}

func (s *healthService) pingRedis(ctx context.Context) string {
	if s.redis == nil {
		return "not_configured"
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return statusError
	}
	return statusHealthy
}

func (s *healthService) pingDatabase(ctx context.Context) string {
	if s.db == nil {
		return "in_memory"
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return statusError
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return statusError
	}
	return statusHealthy
}
