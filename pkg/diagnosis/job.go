// Package diagnosis runs differential-diagnosis jobs: similar-case search, knowledge graph
// analysis and LLM reasoning, in that order, with progress reporting and one terminal result per session.
package diagnosis

import (
	"sync/atomic"
	"time"
)

type Phase string

const (
	PhaseQueued        Phase = "queued"
	PhaseSearching     Phase = "searching"
	PhaseGraphAnalysis Phase = "graph_analysis"
	PhaseReasoning     Phase = "reasoning"
	PhaseFinalizing    Phase = "finalizing"
	PhaseCompleted     Phase = "completed"
	PhaseError         Phase = "error"
)

func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseError
}

// Progress checkpoints.
const (
	progressQueued     = 0
	progressSearching  = 10
	progressGraph      = 30
	progressReasoning  = 50
	progressGenerating = 70
	progressFinalizing = 90
	progressDone       = 100
)

type StatusKind string

const (
	StatusProcessing StatusKind = "processing"
	StatusCompleted  StatusKind = "completed"
	StatusError      StatusKind = "error"
)

// Status is what a poller sees.
type Status struct {
	SessionID  string     `json:"sessionId"`
	Status     StatusKind `json:"status"`
	Phase      Phase      `json:"phase"`
	Progress   int        `json:"progress"`
	Message    string     `json:"message,omitempty"`
	Result     *Result    `json:"result,omitempty"`
	ErrorPhase Phase      `json:"errorPhase,omitempty"`
}

type jobState struct {
	phase   Phase
	message string
}

// Job is the live state of one accepted session. Progress only ever moves forward.
type Job struct {
	SessionID  string
	Request    Request
	AcceptedAt time.Time

	progress atomic.Int32
	state    atomic.Pointer[jobState]
}

func newJob(sessionID string, req Request, now time.Time) *Job {
	j := &Job{SessionID: sessionID, Request: req, AcceptedAt: now}
	j.state.Store(&jobState{phase: PhaseQueued, message: "Queued"})
	return j
}

// advance moves the job to phase and raises progress. Lower progress values are ignored so
// concurrent phases cannot make a poller see progress go backwards.
func (j *Job) advance(phase Phase, progress int, message string) bool {
	for {
		cur := j.progress.Load()
		if int32(progress) < cur {
			return false
		}
		if j.progress.CompareAndSwap(cur, int32(progress)) {
			break
		}
	}
	j.state.Store(&jobState{phase: phase, message: message})
	return true
}

func (j *Job) Phase() Phase {
	return j.state.Load().phase
}

func (j *Job) Progress() int {
	return int(j.progress.Load())
}

func (j *Job) status() Status {
	s := j.state.Load()
	return Status{
		SessionID: j.SessionID,
		Status:    StatusProcessing,
		Phase:     s.phase,
		Progress:  j.Progress(),
		Message:   s.message,
	}
}
