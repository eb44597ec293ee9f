package service

import (
	"context"

	"medrag-be/internal/dto"
	"medrag-be/pkg/apperror"
	"medrag-be/pkg/diagnosis"
	"medrag-be/pkg/similarity"
)

type ICaseService interface {
	Details(ctx context.Context, caseId string) (*dto.CaseDetailsResponse, error)
	Search(ctx context.Context, req *dto.CaseSearchRequest) (*dto.CaseSearchResponse, error)
}

type caseService struct {
	engine *similarity.Engine
}

func NewCaseService(engine *similarity.Engine) ICaseService {
	return &caseService{engine: engine}
}

func (s *caseService) Details(ctx context.Context, caseId string) (*dto.CaseDetailsResponse, error) {
	info, ok := s.engine.CaseDetails(caseId)
	if !ok {
		return nil, apperror.NotFound("case %s not found", caseId)
	}
	return &dto.CaseDetailsResponse{CaseId: caseId, Metadata: info}, nil
}

func (s *caseService) Search(ctx context.Context, req *dto.CaseSearchRequest) (*dto.CaseSearchResponse, error) {
	if !s.engine.Ready() {
		return nil, apperror.EngineUnavailable("similarity engine")
	}
	k := req.TopK
	if k == 0 {
		k = diagnosis.DefaultTopK
	}
	return &dto.CaseSearchResponse{
		Query:   req.Query,
		Results: s.engine.Search(ctx, req.Query, k),
	}, nil
}
