package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DiagnosisSession struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	PatientId     *uuid.UUID     `gorm:"type:uuid;index"`
	Complaints    datatypes.JSON `gorm:"type:jsonb"`
	Symptoms      datatypes.JSON `gorm:"type:jsonb"`
	Vitals        datatypes.JSON `gorm:"type:jsonb"`
	History       datatypes.JSON `gorm:"type:jsonb"`
	TopK          int            `gorm:"not null;default:5"`
	Status        string         `gorm:"type:varchar(20);not null;index"`
	TopCondition  string         `gorm:"type:varchar(255)"`
	TopConfidence float64
	FallbackUsed  bool
	ErrorMessage  string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	CompletedAt   *time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (DiagnosisSession) TableName() string {
	return "diagnosis_sessions"
}
