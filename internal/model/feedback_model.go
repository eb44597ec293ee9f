package model

import (
	"time"

	"github.com/google/uuid"
)

type Feedback struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId        uuid.UUID `gorm:"type:uuid;not null;index"`
	Rating           string    `gorm:"type:varchar(10);not null"`
	Comments         string    `gorm:"type:text"`
	CorrectDiagnosis string    `gorm:"type:varchar(255)"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

func (Feedback) TableName() string {
	return "diagnosis_feedback"
}
