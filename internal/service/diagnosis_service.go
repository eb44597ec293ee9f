package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medrag-be/internal/dto"
	"medrag-be/internal/entity"
	"medrag-be/internal/pkg/logger"
	"medrag-be/internal/repository/specification"
	"medrag-be/internal/repository/unitofwork"
	"medrag-be/pkg/apperror"
	"medrag-be/pkg/diagnosis"
	"medrag-be/pkg/export"
	"medrag-be/pkg/notify"

	"github.com/google/uuid"
)

// DiagnosisEngine is the part of the orchestrator the HTTP layer drives.
type DiagnosisEngine interface {
	Start(ctx context.Context, sessionID string, req diagnosis.Request) error
	Status(ctx context.Context, sessionID string) (diagnosis.Status, error)
	Result(ctx context.Context, sessionID string) (*diagnosis.Result, error)
	Delete(ctx context.Context, sessionID string) error
	ActiveJobs() int
}

type IDiagnosisService interface {
	Start(ctx context.Context, req *dto.StartDiagnosisRequest) (*dto.StartDiagnosisResponse, error)
	Status(ctx context.Context, sessionId uuid.UUID) (*diagnosis.Status, error)
	Export(ctx context.Context, sessionId uuid.UUID, req *dto.ExportDiagnosisRequest) (*dto.ExportDiagnosisResponse, error)
	Download(ctx context.Context, sessionId uuid.UUID, ref string) (*export.Download, error)
	SubmitFeedback(ctx context.Context, sessionId uuid.UUID, req *dto.FeedbackRequest) (*dto.FeedbackResponse, error)
	Summary(ctx context.Context, sessionId uuid.UUID) (*dto.DiagnosisSummaryResponse, error)
	Delete(ctx context.Context, sessionId uuid.UUID) error
}

type diagnosisService struct {
	uowFactory unitofwork.RepositoryFactory
	engine     DiagnosisEngine
	exporter   *export.Exporter
	publisher  notify.Publisher
	logger     logger.ILogger
}

func NewDiagnosisService(
	uowFactory unitofwork.RepositoryFactory,
	engine DiagnosisEngine,
	exporter *export.Exporter,
	publisher notify.Publisher,
	logger logger.ILogger,
) IDiagnosisService {
	return &diagnosisService{
		uowFactory: uowFactory,
		engine:     engine,
		exporter:   exporter,
		publisher:  publisher,
		logger:     logger,
	}
}

func (s *diagnosisService) Start(ctx context.Context, req *dto.StartDiagnosisRequest) (*dto.StartDiagnosisResponse, error) {
	topK := diagnosis.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	request := diagnosis.Request{
		Complaints: req.Complaints,
		Symptoms:   req.Symptoms,
		Vitals:     req.Vitals,
		History:    req.History,
		TopK:       topK,
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if req.PatientId != nil {
		patient, err := uow.PatientRepository().FindOne(ctx, specification.ByID{ID: *req.PatientId})
		if err != nil {
			return nil, err
		}
		if patient == nil {
			return nil, apperror.NotFound("patient %s not found", req.PatientId)
		}
		request.PatientID = req.PatientId.String()
	}

	session := &entity.DiagnosisSession{
		Id:         uuid.New(),
		PatientId:  req.PatientId,
		Complaints: req.Complaints,
		Symptoms:   req.Symptoms,
		Vitals:     req.Vitals,
		History:    req.History,
		TopK:       topK,
		Status:     entity.DiagnosisSessionProcessing,
		CreatedAt:  time.Now().UTC(),
	}
	if err := uow.DiagnosisSessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}

	if err := s.engine.Start(ctx, session.Id.String(), request); err != nil {
		session.Status = entity.DiagnosisSessionError
		session.ErrorMessage = err.Error()
		if uerr := uow.DiagnosisSessionRepository().Update(ctx, session); uerr != nil {
			s.logger.Error("DIAGNOSIS", "Failed to mark session as failed", map[string]interface{}{
				"session_id": session.Id.String(),
				"error":      uerr.Error(),
			})
		}
		return nil, err
	}

	return &dto.StartDiagnosisResponse{
		SessionId: session.Id,
		Status:    diagnosis.StatusProcessing,
	}, nil
}

func (s *diagnosisService) Status(ctx context.Context, sessionId uuid.UUID) (*diagnosis.Status, error) {
	status, err := s.engine.Status(ctx, sessionId.String())
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (s *diagnosisService) Export(ctx context.Context, sessionId uuid.UUID, req *dto.ExportDiagnosisRequest) (*dto.ExportDiagnosisResponse, error) {
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Result(ctx, sessionId.String())
	if err != nil {
		return nil, err
	}

	session, err := s.findSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	patientId := ""
	if session != nil && session.PatientId != nil {
		patientId = session.PatientId.String()
	}

	includeActions := true
	if req.IncludeActions != nil {
		includeActions = *req.IncludeActions
	}

	out, err := s.exporter.Export(ctx, sessionId.String(), patientId, result, format, export.Options{
		IncludeActions:  includeActions,
		SelectedActions: req.SelectedActions,
	})
	if err != nil {
		return nil, err
	}

	res := &dto.ExportDiagnosisResponse{Format: string(out.Format), Data: out.Data}
	if out.DownloadRef != "" {
		res.DownloadUrl = fmt.Sprintf("/api/v1/diagnosis/%s/download/%s", sessionId, out.DownloadRef)
	}
	return res, nil
}

func (s *diagnosisService) Download(ctx context.Context, sessionId uuid.UUID, ref string) (*export.Download, error) {
	// renderings outlive their session in storage; a deleted session hides them
	if _, err := s.engine.Status(ctx, sessionId.String()); err != nil {
		return nil, err
	}
	download, err := s.exporter.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	// refs are opaque; make sure this one was rendered for the session in the path
	if !strings.HasPrefix(download.Name, "diagnosis_"+sessionId.String()) {
		return nil, apperror.NotFound("export %s not found", ref)
	}
	return download, nil
}

func (s *diagnosisService) SubmitFeedback(ctx context.Context, sessionId uuid.UUID, req *dto.FeedbackRequest) (*dto.FeedbackResponse, error) {
	session, err := s.findSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.NotFound("diagnosis session %s not found", sessionId)
	}

	feedback := &entity.Feedback{
		Id:               uuid.New(),
		SessionId:        sessionId,
		Rating:           entity.FeedbackRating(req.Rating),
		Comments:         req.Comments,
		CorrectDiagnosis: req.CorrectDiagnosis,
		CreatedAt:        time.Now().UTC(),
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.FeedbackRepository().Create(ctx, feedback); err != nil {
		return nil, err
	}

	s.logger.Info("DIAGNOSIS", "Feedback submitted", map[string]interface{}{
		"session_id":  sessionId.String(),
		"feedback_id": feedback.Id.String(),
		"rating":      req.Rating,
	})
	s.publisher.PublishFeedbackSubmitted(ctx, feedback.Id, sessionId.String(), req.Rating, req.CorrectDiagnosis)

	return &dto.FeedbackResponse{FeedbackId: feedback.Id}, nil
}

func (s *diagnosisService) Summary(ctx context.Context, sessionId uuid.UUID) (*dto.DiagnosisSummaryResponse, error) {
	session, err := s.findSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.NotFound("diagnosis session %s not found", sessionId)
	}

	res := &dto.DiagnosisSummaryResponse{
		SessionId: session.Id,
		Status:    string(session.Status),
		PatientId: session.PatientId,
		CreatedAt: session.CreatedAt,
		Summary:   summarize(session),
	}

	status, err := s.engine.Status(ctx, sessionId.String())
	if err != nil && !apperror.Is(err, apperror.KindNotFound) {
		return nil, err
	}
	if err == nil {
		res.Status = string(status.Status)
		if top, ok := status.Result.TopCondition(); ok {
			res.TopDiagnosis = &top.Condition
			res.Confidence = &top.Confidence
		}
	}
	return res, nil
}

func (s *diagnosisService) Delete(ctx context.Context, sessionId uuid.UUID) error {
	session, err := s.findSession(ctx, sessionId)
	if err != nil {
		return err
	}
	if session == nil {
		if _, err := s.engine.Status(ctx, sessionId.String()); err != nil {
			return err
		}
	}

	if err := s.engine.Delete(ctx, sessionId.String()); err != nil {
		return err
	}
	if session != nil {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.DiagnosisSessionRepository().Delete(ctx, sessionId); err != nil {
			return err
		}
	}
	return nil
}

func (s *diagnosisService) findSession(ctx context.Context, sessionId uuid.UUID) (*entity.DiagnosisSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.DiagnosisSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
}

// summarize renders the clinical input as "Complaints: ...; Symptoms: ...; Vitals: HR: 80, BP: 120/80".
func summarize(session *entity.DiagnosisSession) string {
	var parts []string
	if len(session.Complaints) > 0 {
		parts = append(parts, "Complaints: "+strings.Join(session.Complaints, ", "))
	}
	if len(session.Symptoms) > 0 {
		parts = append(parts, "Symptoms: "+strings.Join(session.Symptoms, ", "))
	}
	if v := session.Vitals; !v.Empty() {
		var vitals []string
		if v.HR != nil {
			vitals = append(vitals, fmt.Sprintf("HR: %d", *v.HR))
		}
		if v.BP != "" {
			vitals = append(vitals, "BP: "+v.BP)
		}
		if v.Temp != nil {
			vitals = append(vitals, fmt.Sprintf("Temp: %.1f", *v.Temp))
		}
		if v.RR != nil {
			vitals = append(vitals, fmt.Sprintf("RR: %d", *v.RR))
		}
		if v.SpO2 != nil {
			vitals = append(vitals, fmt.Sprintf("SpO2: %d", *v.SpO2))
		}
		parts = append(parts, "Vitals: "+strings.Join(vitals, ", "))
	}
	if len(parts) == 0 {
		return "No summary available"
	}
	return strings.Join(parts, "; ")
}
