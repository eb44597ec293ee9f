package entity

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	Id          uuid.UUID
	Name        string
	DateOfBirth *time.Time
	Diagnosis   string
	Medications []string
	FileId      *string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	DeletedAt   *time.Time
	IsDeleted   bool
}
