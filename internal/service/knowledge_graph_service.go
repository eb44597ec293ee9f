package service

import (
	"context"

	"medrag-be/internal/dto"
	"medrag-be/internal/repository/specification"
	"medrag-be/internal/repository/unitofwork"
	"medrag-be/pkg/apperror"
	"medrag-be/pkg/knowledgegraph"

	"github.com/google/uuid"
)

const (
	sessionGraphRadius = 2
	maxExploreRadius   = 3
	exploreNeighbors   = 10
	defaultRelations   = 10
	maxRelations       = 50
	defaultMaxTriplets = 20
)

type IKnowledgeGraphService interface {
	SessionGraph(ctx context.Context, sessionId uuid.UUID) (*dto.SessionGraphResponse, error)
	Explore(ctx context.Context, nodeId string, radius int) (*dto.ExploreNodeResponse, error)
	Path(ctx context.Context, source, target string) (*dto.PathResponse, error)
	Disease(ctx context.Context, name string) (*dto.DiseaseResponse, error)
	SymptomRelations(ctx context.Context, symptom string, max int) (*dto.SymptomRelationsResponse, error)
	Stats(ctx context.Context) knowledgegraph.Stats
	Analyze(ctx context.Context, req *dto.AnalyzeSymptomsRequest) (*dto.AnalyzeSymptomsResponse, error)
}

type knowledgeGraphService struct {
	uowFactory unitofwork.RepositoryFactory
	engine     *knowledgegraph.Engine
}

func NewKnowledgeGraphService(uowFactory unitofwork.RepositoryFactory, engine *knowledgegraph.Engine) IKnowledgeGraphService {
	return &knowledgeGraphService{uowFactory: uowFactory, engine: engine}
}

func (s *knowledgeGraphService) SessionGraph(ctx context.Context, sessionId uuid.UUID) (*dto.SessionGraphResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.DiagnosisSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.NotFound("diagnosis session %s not found", sessionId)
	}

	seeds := make([]string, 0, len(session.Symptoms)+len(session.Complaints))
	seeds = append(seeds, session.Symptoms...)
	seeds = append(seeds, session.Complaints...)

	return &dto.SessionGraphResponse{
		SessionId: sessionId.String(),
		Subgraph:  s.engine.Subgraph(seeds, sessionGraphRadius),
	}, nil
}

func (s *knowledgeGraphService) Explore(ctx context.Context, nodeId string, radius int) (*dto.ExploreNodeResponse, error) {
	if radius == 0 {
		radius = 1
	}
	if radius < 1 || radius > maxExploreRadius {
		return nil, apperror.Validation("invalid radius", map[string]string{"radius": "must be between 1 and 3"})
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	return &dto.ExploreNodeResponse{
		NodeId:    nodeId,
		Radius:    radius,
		Subgraph:  s.engine.Subgraph([]string{nodeId}, radius),
		Neighbors: s.engine.Neighbors(nodeId, exploreNeighbors),
	}, nil
}

func (s *knowledgeGraphService) Path(ctx context.Context, source, target string) (*dto.PathResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	res := &dto.PathResponse{Source: source, Target: target}
	path, ok := s.engine.ShortestPath(source, target)
	if !ok {
		res.Message = "No path found between nodes"
		return res, nil
	}

	sub := s.engine.Subgraph(path, 1)
	res.Path = path
	res.PathLength = len(path) - 1
	res.Subgraph = &sub
	return res, nil
}

func (s *knowledgeGraphService) Disease(ctx context.Context, name string) (*dto.DiseaseResponse, error) {
	info, ok := s.engine.DiseaseInfo(name)
	if !ok {
		return nil, apperror.NotFound("disease not found: %s", name)
	}
	return &dto.DiseaseResponse{
		Disease:      name,
		Info:         info,
		RelatedNodes: s.engine.Subgraph([]string{name}, sessionGraphRadius),
	}, nil
}

func (s *knowledgeGraphService) SymptomRelations(ctx context.Context, symptom string, max int) (*dto.SymptomRelationsResponse, error) {
	if max == 0 {
		max = defaultRelations
	}
	if max < 1 || max > maxRelations {
		return nil, apperror.Validation("invalid max", map[string]string{"max": "must be between 1 and 50"})
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	return &dto.SymptomRelationsResponse{
		Symptom:   symptom,
		Neighbors: s.engine.Neighbors(symptom, max),
		Triplets:  s.engine.RelevantTriplets([]string{symptom}, max),
		Subgraph:  s.engine.Subgraph([]string{symptom}, sessionGraphRadius),
	}, nil
}

func (s *knowledgeGraphService) Stats(ctx context.Context) knowledgegraph.Stats {
	return s.engine.Stats()
}

func (s *knowledgeGraphService) Analyze(ctx context.Context, req *dto.AnalyzeSymptomsRequest) (*dto.AnalyzeSymptomsResponse, error) {
	maxTriplets := req.MaxTriplets
	if maxTriplets == 0 {
		maxTriplets = defaultMaxTriplets
	}

	triplets := s.engine.RelevantTriplets(req.Symptoms, maxTriplets)
	weights := s.engine.EdgeWeights(req.Symptoms)

	analysis := dto.SymptomAnalysis{TotalTriplets: len(triplets)}
	for _, w := range weights {
		if w.Weight > 0 {
			analysis.ConnectedSymptoms++
		}
	}
	if len(triplets) > 0 {
		var sum float64
		for _, t := range triplets {
			sum += t.RelevanceScore
		}
		analysis.AvgRelevanceScore = sum / float64(len(triplets))
	}

	return &dto.AnalyzeSymptomsResponse{
		Symptoms:    req.Symptoms,
		Triplets:    triplets,
		Subgraph:    s.engine.Subgraph(req.Symptoms, sessionGraphRadius),
		EdgeWeights: weights,
		Analysis:    analysis,
	}, nil
}

func (s *knowledgeGraphService) ready() error {
	if !s.engine.Ready() {
		return apperror.EngineUnavailable("knowledge graph")
	}
	return nil
}
