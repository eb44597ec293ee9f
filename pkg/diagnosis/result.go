package diagnosis

import (
	"time"

	"medrag-be/pkg/knowledgegraph"
	"medrag-be/pkg/reasoning"
	"medrag-be/pkg/similarity"
)

type SimilarCase struct {
	CaseID     string  `json:"caseId"`
	Similarity float64 `json:"similarity"`
	Rank       int     `json:"rank"`
	Diagnosis  string  `json:"diagnosis"`
	Outcome    string  `json:"outcome,omitempty"`
}

type SessionInfo struct {
	SessionID   string    `json:"sessionId"`
	StartedAt   time.Time `json:"startedAt"`
	DurationSec float64   `json:"durationSec"`
}

// Result is immutable once written to the store.
type Result struct {
	DifferentialDiagnosis []reasoning.Condition          `json:"differentialDiagnosis"`
	RecommendedActions    []reasoning.Action             `json:"recommendedActions"`
	FollowUpQuestions     []reasoning.Question           `json:"followUpQuestions"`
	SimilarCases          []SimilarCase                  `json:"similarCases"`
	RelevantKnowledge     []knowledgegraph.ScoredTriplet `json:"relevantKnowledge"`
	FallbackUsed          bool                           `json:"fallbackUsed"`
	Session               SessionInfo                    `json:"session"`
}

func buildResult(sessionID string, startedAt, finishedAt time.Time, payload reasoning.Payload, fallback bool,
	cases []similarity.CaseMatch, triplets []knowledgegraph.ScoredTriplet) *Result {
	similar := make([]SimilarCase, 0, len(cases))
	for _, c := range cases {
		similar = append(similar, SimilarCase{
			CaseID:     c.CaseID,
			Similarity: c.Similarity,
			Rank:       c.Rank,
			Diagnosis:  c.Diagnosis,
			Outcome:    c.Outcome,
		})
	}
	if triplets == nil {
		triplets = []knowledgegraph.ScoredTriplet{}
	}

	return &Result{
		DifferentialDiagnosis: payload.DifferentialDiagnosis,
		RecommendedActions:    payload.RecommendedActions,
		FollowUpQuestions:     payload.FollowUpQuestions,
		SimilarCases:          similar,
		RelevantKnowledge:     triplets,
		FallbackUsed:          fallback,
		Session: SessionInfo{
			SessionID:   sessionID,
			StartedAt:   startedAt.UTC(),
			DurationSec: finishedAt.Sub(startedAt).Seconds(),
		},
	}
}

// TopCondition returns the highest ranked condition, if any.
func (r *Result) TopCondition() (reasoning.Condition, bool) {
	if r == nil || len(r.DifferentialDiagnosis) == 0 {
		return reasoning.Condition{}, false
	}
	return r.DifferentialDiagnosis[0], true
}
