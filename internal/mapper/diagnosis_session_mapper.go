package mapper

import (
	"time"

	"medrag-be/internal/entity"
	"medrag-be/internal/model"
	"medrag-be/pkg/reasoning"

	"gorm.io/gorm"
)

type DiagnosisSessionMapper struct{}

func NewDiagnosisSessionMapper() *DiagnosisSessionMapper {
	return &DiagnosisSessionMapper{}
}

func (m *DiagnosisSessionMapper) ToEntity(s *model.DiagnosisSession) *entity.DiagnosisSession {
	if s == nil {
		return nil
	}
	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	complaints, symptoms := []string{}, []string{}
	fromJSON(s.Complaints, &complaints)
	fromJSON(s.Symptoms, &symptoms)

	var vitals *reasoning.Vitals
	if len(s.Vitals) > 0 {
		vitals = &reasoning.Vitals{}
		fromJSON(s.Vitals, vitals)
	}
	var history map[string]interface{}
	fromJSON(s.History, &history)

	return &entity.DiagnosisSession{
		Id:            s.Id,
		PatientId:     s.PatientId,
		Complaints:    complaints,
		Symptoms:      symptoms,
		Vitals:        vitals,
		History:       history,
		TopK:          s.TopK,
		Status:        entity.DiagnosisSessionStatus(s.Status),
		TopCondition:  s.TopCondition,
		TopConfidence: s.TopConfidence,
		FallbackUsed:  s.FallbackUsed,
		ErrorMessage:  s.ErrorMessage,
		CreatedAt:     s.CreatedAt,
		CompletedAt:   s.CompletedAt,
		DeletedAt:     deletedAt,
		IsDeleted:     s.DeletedAt.Valid,
	}
}

func (m *DiagnosisSessionMapper) ToModel(s *entity.DiagnosisSession) *model.DiagnosisSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var vitals interface{}
	if s.Vitals != nil {
		vitals = s.Vitals
	}
	var history interface{}
	if s.History != nil {
		history = s.History
	}

	return &model.DiagnosisSession{
		Id:            s.Id,
		PatientId:     s.PatientId,
		Complaints:    toJSON(s.Complaints),
		Symptoms:      toJSON(s.Symptoms),
		Vitals:        toJSON(vitals),
		History:       toJSON(history),
		TopK:          s.TopK,
		Status:        string(s.Status),
		TopCondition:  s.TopCondition,
		TopConfidence: s.TopConfidence,
		FallbackUsed:  s.FallbackUsed,
		ErrorMessage:  s.ErrorMessage,
		CreatedAt:     s.CreatedAt,
		CompletedAt:   s.CompletedAt,
		DeletedAt:     deletedAt,
	}
}

func (m *DiagnosisSessionMapper) ToEntities(sessions []*model.DiagnosisSession) []*entity.DiagnosisSession {
	entities := make([]*entity.DiagnosisSession, len(sessions))
	for i, s := range sessions {
		entities[i] = m.ToEntity(s)
	}
	return entities
}
