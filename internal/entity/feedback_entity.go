package entity

import (
	"time"

	"github.com/google/uuid"
)

type FeedbackRating string

const (
	FeedbackPositive FeedbackRating = "positive"
	FeedbackNegative FeedbackRating = "negative"
)

type Feedback struct {
	Id               uuid.UUID
	SessionId        uuid.UUID
	Rating           FeedbackRating
	Comments         string
	CorrectDiagnosis string
	CreatedAt        time.Time
}
