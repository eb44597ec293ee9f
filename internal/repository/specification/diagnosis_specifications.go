package specification

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByPatientID struct {
	PatientID uuid.UUID
}

func (s ByPatientID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("patient_id = ?", s.PatientID)
}

type BySessionID struct {
	SessionID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// NameContains is a case-insensitive substring match on name.
type NameContains struct {
	Query string
}

func (s NameContains) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("name ILIKE ?", "%"+strings.TrimSpace(s.Query)+"%")
}
