package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Patient struct {
	Id          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string         `gorm:"type:varchar(255);not null"`
	DateOfBirth *time.Time     `gorm:"type:date"`
	Diagnosis   string         `gorm:"type:text"`
	Medications datatypes.JSON `gorm:"type:jsonb"`
	FileId      *string        `gorm:"type:varchar(64)"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (Patient) TableName() string {
	return "patients"
}
