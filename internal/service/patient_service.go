package service

import (
	"context"
	"strings"
	"time"

	"medrag-be/internal/dto"
	"medrag-be/internal/entity"
	"medrag-be/internal/pkg/logger"
	"medrag-be/internal/repository/specification"
	"medrag-be/internal/repository/unitofwork"
	"medrag-be/pkg/apperror"
	"medrag-be/pkg/notify"

	"github.com/google/uuid"
)

const (
	dateLayout       = "2006-01-02"
	defaultPageLimit = 100
)

type IPatientService interface {
	Create(ctx context.Context, req *dto.CreatePatientRequest) (*dto.PatientResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.PatientResponse, error)
	Update(ctx context.Context, req *dto.UpdatePatientRequest) (*dto.PatientResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, req *dto.ListPatientsRequest) (*dto.ListPatientsResponse, error)
	Sessions(ctx context.Context, req *dto.PatientSessionsRequest) (*dto.PatientSessionsResponse, error)
}

type patientService struct {
	uowFactory unitofwork.RepositoryFactory
	publisher  notify.Publisher
	logger     logger.ILogger
}

func NewPatientService(uowFactory unitofwork.RepositoryFactory, publisher notify.Publisher, logger logger.ILogger) IPatientService {
	return &patientService{
		uowFactory: uowFactory,
		publisher:  publisher,
		logger:     logger,
	}
}

func (s *patientService) Create(ctx context.Context, req *dto.CreatePatientRequest) (*dto.PatientResponse, error) {
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return nil, err
	}

	patient := &entity.Patient{
		Id:          uuid.New(),
		Name:        strings.TrimSpace(req.Name),
		DateOfBirth: dob,
		Diagnosis:   req.Diagnosis,
		Medications: req.Medications,
		FileId:      req.FileId,
		CreatedAt:   time.Now().UTC(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.PatientRepository().Create(ctx, patient); err != nil {
		return nil, err
	}

	s.logger.Info("PATIENT", "Patient created", map[string]interface{}{"patient_id": patient.Id.String()})
	s.publisher.PublishPatientCreated(ctx, patient.Id, patient.Name)

	return toPatientResponse(patient), nil
}

func (s *patientService) Show(ctx context.Context, id uuid.UUID) (*dto.PatientResponse, error) {
	patient, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPatientResponse(patient), nil
}

func (s *patientService) Update(ctx context.Context, req *dto.UpdatePatientRequest) (*dto.PatientResponse, error) {
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return nil, err
	}

	var patient *entity.Patient
	err = unitofwork.InTransaction(ctx, s.uowFactory, func(uow unitofwork.UnitOfWork) error {
		found, err := uow.PatientRepository().FindOne(ctx, specification.ByID{ID: req.Id})
		if err != nil {
			return err
		}
		if found == nil {
			return apperror.NotFound("patient %s not found", req.Id)
		}

		found.Name = strings.TrimSpace(req.Name)
		found.DateOfBirth = dob
		found.Diagnosis = req.Diagnosis
		found.Medications = req.Medications
		found.FileId = req.FileId
		patient = found
		return uow.PatientRepository().Update(ctx, found)
	})
	if err != nil {
		return nil, err
	}

	return toPatientResponse(patient), nil
}

func (s *patientService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.PatientRepository().Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("PATIENT", "Patient deleted", map[string]interface{}{"patient_id": id.String()})
	return nil
}

func (s *patientService) List(ctx context.Context, req *dto.ListPatientsRequest) (*dto.ListPatientsResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = defaultPageLimit
	}

	var filters []specification.Specification
	if strings.TrimSpace(req.Search) != "" {
		filters = append(filters, specification.NameContains{Query: req.Search})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	total, err := uow.PatientRepository().Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	specs := append(append([]specification.Specification{}, filters...),
		specification.OrderBy{Field: "created_at"},
		specification.Pagination{Limit: limit, Offset: req.Skip},
	)
	patients, err := uow.PatientRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := &dto.ListPatientsResponse{
		Patients: make([]*dto.PatientResponse, 0, len(patients)),
		Total:    total,
		Skip:     req.Skip,
		Limit:    limit,
	}
	for _, p := range patients {
		res.Patients = append(res.Patients, toPatientResponse(p))
	}
	return res, nil
}

// Sessions lists the patient's diagnosis history, newest first.
func (s *patientService) Sessions(ctx context.Context, req *dto.PatientSessionsRequest) (*dto.PatientSessionsResponse, error) {
	if _, err := s.find(ctx, req.PatientId); err != nil {
		return nil, err
	}

	specs := []specification.Specification{specification.ByPatientID{PatientID: req.PatientId}}
	if req.Status != "" {
		specs = append(specs, specification.ByStatus{Status: req.Status})
	}
	specs = append(specs, specification.OrderBy{Field: "created_at", Desc: true})

	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.DiagnosisSessionRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := &dto.PatientSessionsResponse{
		PatientId: req.PatientId,
		Sessions:  make([]*dto.PatientSessionResponse, 0, len(sessions)),
	}
	for _, session := range sessions {
		feedback, err := uow.FeedbackRepository().Count(ctx, specification.BySessionID{SessionID: session.Id})
		if err != nil {
			return nil, err
		}
		item := &dto.PatientSessionResponse{
			SessionId:     session.Id,
			Status:        string(session.Status),
			FallbackUsed:  session.FallbackUsed,
			FeedbackCount: feedback,
			CreatedAt:     session.CreatedAt,
			CompletedAt:   session.CompletedAt,
		}
		if session.TopCondition != "" {
			top, confidence := session.TopCondition, session.TopConfidence
			item.TopDiagnosis = &top
			item.Confidence = &confidence
		}
		res.Sessions = append(res.Sessions, item)
	}
	return res, nil
}

func (s *patientService) find(ctx context.Context, id uuid.UUID) (*entity.Patient, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	patient, err := uow.PatientRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, apperror.NotFound("patient %s not found", id)
	}
	return patient, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, apperror.Validation("invalid date of birth", map[string]string{"dob": "must match " + dateLayout})
	}
	return &t, nil
}

func toPatientResponse(p *entity.Patient) *dto.PatientResponse {
	res := &dto.PatientResponse{
		PatientId:   p.Id,
		Name:        p.Name,
		Diagnosis:   p.Diagnosis,
		Medications: p.Medications,
		FileId:      p.FileId,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if res.Medications == nil {
		res.Medications = []string{}
	}
	if p.DateOfBirth != nil {
		res.DateOfBirth = p.DateOfBirth.Format(dateLayout)
	}
	return res
}
