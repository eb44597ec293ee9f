package service

import (
	"context"
	"sync"
	"testing"

	"medrag-be/internal/pkg/logger"
	"medrag-be/internal/repository/unitofwork"
	"medrag-be/pkg/apperror"
	"medrag-be/pkg/diagnosis"
	"medrag-be/pkg/export"
	"medrag-be/pkg/notify"
	"medrag-be/pkg/reasoning"
	"medrag-be/pkg/storage"

	"github.com/stretchr/testify/require"
)

// fakeEngine is an in-memory DiagnosisEngine whose sessions are driven by the test.
type fakeEngine struct {
	mu       sync.Mutex
	started  map[string]diagnosis.Request
	statuses map[string]diagnosis.Status
	startErr error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		started:  map[string]diagnosis.Request{},
		statuses: map[string]diagnosis.Status{},
	}
}

func (f *fakeEngine) Start(ctx context.Context, sessionID string, req diagnosis.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started[sessionID] = req
	f.statuses[sessionID] = diagnosis.Status{SessionID: sessionID, Status: diagnosis.StatusProcessing, Phase: diagnosis.PhaseQueued}
	return nil
}

func (f *fakeEngine) Status(ctx context.Context, sessionID string) (diagnosis.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.statuses[sessionID]
	if !ok {
		return diagnosis.Status{}, apperror.NotFound("diagnosis session %s not found", sessionID)
	}
	return st, nil
}

func (f *fakeEngine) Result(ctx context.Context, sessionID string) (*diagnosis.Result, error) {
	st, err := f.Status(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st.Status != diagnosis.StatusCompleted {
		return nil, apperror.Precondition("diagnosis %s is not completed yet", sessionID)
	}
	return st.Result, nil
}

func (f *fakeEngine) Delete(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.statuses, sessionID)
	return nil
}

func (f *fakeEngine) ActiveJobs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, st := range f.statuses {
		if st.Status == diagnosis.StatusProcessing {
			n++
		}
	}
	return n
}

func (f *fakeEngine) complete(sessionID string, result *diagnosis.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[sessionID] = diagnosis.Status{SessionID: sessionID, Status: diagnosis.StatusCompleted, Phase: diagnosis.PhaseCompleted, Progress: 100, Result: result}
}

func sampleResult() *diagnosis.Result {
	return &diagnosis.Result{
		DifferentialDiagnosis: []reasoning.Condition{
			{Condition: "Community-acquired pneumonia", Confidence: 78.5, Description: "Fever with productive cough", ICD10: "J18.9"},
			{Condition: "Acute bronchitis", Confidence: 40, Description: "Cough without consolidation", ICD10: "J20.9"},
		},
		RecommendedActions: []reasoning.Action{
			{ID: "a1", Text: "Chest X-ray", Priority: reasoning.PriorityHigh, Category: reasoning.CategoryImaging},
			{ID: "a2", Text: "CBC", Priority: reasoning.PriorityMedium, Category: reasoning.CategoryLab},
		},
		FollowUpQuestions: []reasoning.Question{{ID: "q1", Text: "Any recent travel?"}},
		SimilarCases:      []diagnosis.SimilarCase{},
	}
}

type fixture struct {
	uow       unitofwork.RepositoryFactory
	engine    *fakeEngine
	exporter  *export.Exporter
	publisher notify.Publisher
	log       logger.ILogger
}

func newFixture(t *testing.T) *fixture {
	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	log := logger.NewNopLogger()
	return &fixture{
		uow:       unitofwork.NewMemoryRepositoryFactory(),
		engine:    newFakeEngine(),
		exporter:  export.NewExporter(blobs, log),
		publisher: notify.NewNatsPublisher(nil, log),
		log:       log,
	}
}

func (f *fixture) diagnosisService() IDiagnosisService {
	return NewDiagnosisService(f.uow, f.engine, f.exporter, f.publisher, f.log)
}

func intPtr(v int) *int { return &v }
