package mapper

import (
	"medrag-be/internal/entity"
	"medrag-be/internal/model"
)

type FeedbackMapper struct{}

func NewFeedbackMapper() *FeedbackMapper {
	return &FeedbackMapper{}
}

func (m *FeedbackMapper) ToEntity(f *model.Feedback) *entity.Feedback {
	if f == nil {
		return nil
	}
	return &entity.Feedback{
		Id:               f.Id,
		SessionId:        f.SessionId,
		Rating:           entity.FeedbackRating(f.Rating),
		Comments:         f.Comments,
		CorrectDiagnosis: f.CorrectDiagnosis,
		CreatedAt:        f.CreatedAt,
	}
}

func (m *FeedbackMapper) ToModel(f *entity.Feedback) *model.Feedback {
	if f == nil {
		return nil
	}
	return &model.Feedback{
		Id:               f.Id,
		SessionId:        f.SessionId,
		Rating:           string(f.Rating),
		Comments:         f.Comments,
		CorrectDiagnosis: f.CorrectDiagnosis,
		CreatedAt:        f.CreatedAt,
	}
}

func (m *FeedbackMapper) ToEntities(feedback []*model.Feedback) []*entity.Feedback {
	entities := make([]*entity.Feedback, len(feedback))
	for i, f := range feedback {
		entities[i] = m.ToEntity(f)
	}
	return entities
}
