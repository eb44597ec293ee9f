package diagnosis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"medrag-be/internal/pkg/logger"
	"medrag-be/pkg/apperror"
	"medrag-be/pkg/knowledgegraph"
	"medrag-be/pkg/llm/mock"
	"medrag-be/pkg/reasoning"
	"medrag-be/pkg/similarity"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	mu      sync.Mutex
	queries []string
	delay   time.Duration
	panics  bool
}

func (s *stubSearcher) Search(ctx context.Context, queryText string, topK int) []similarity.CaseMatch {
	if s.panics {
		panic("index corrupted")
	}
	time.Sleep(s.delay)
	s.mu.Lock()
	s.queries = append(s.queries, queryText)
	s.mu.Unlock()
	return []similarity.CaseMatch{
		{CaseID: "7", Similarity: 88, Rank: 1, Diagnosis: "Pneumonia", Outcome: "Recovered"},
	}
}

type stubGraph struct {
	mu       sync.Mutex
	symptoms [][]string
}

func (g *stubGraph) RelevantTriplets(symptoms []string, topK int) []knowledgegraph.ScoredTriplet {
	g.mu.Lock()
	g.symptoms = append(g.symptoms, symptoms)
	g.mu.Unlock()
	return []knowledgegraph.ScoredTriplet{
		{Triplet: knowledgegraph.Triplet{Subject: "fever", Predicate: "symptom of", Object: "pneumonia"}, RelevanceScore: 1},
	}
}

// gatedReasoner blocks until released or its context ends.
type gatedReasoner struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedReasoner() *gatedReasoner {
	return &gatedReasoner{entered: make(chan struct{}), release: make(chan struct{})}
}

func (r *gatedReasoner) Generate(ctx context.Context, prompt string) (reasoning.Payload, bool) {
	r.once.Do(func() { close(r.entered) })
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return reasoning.Payload{DifferentialDiagnosis: []reasoning.Condition{{Condition: "Late", Confidence: 10}}}, false
}

type recordingObserver struct {
	mu       sync.Mutex
	progress []int
	finished []Entry
	accepted int
}

func (r *recordingObserver) JobAccepted(sessionID string, req Request) {
	r.mu.Lock()
	r.accepted++
	r.mu.Unlock()
}

func (r *recordingObserver) JobProgress(s Status) {
	r.mu.Lock()
	r.progress = append(r.progress, s.Progress)
	r.mu.Unlock()
}

func (r *recordingObserver) JobFinished(sessionID string, e Entry) {
	r.mu.Lock()
	r.finished = append(r.finished, e)
	r.mu.Unlock()
}

// signallingStore reports every Put attempt.
type signallingStore struct {
	*MemoryResultStore
	puts chan bool
}

func (s *signallingStore) Put(ctx context.Context, id string, e Entry) (bool, error) {
	ok, err := s.MemoryResultStore.Put(ctx, id, e)
	s.puts <- ok
	return ok, err
}

func newTestOrchestrator(t *testing.T, cfg Config, searcher CaseSearcher, graph TripletFinder, reasoner Reasoner, store ResultStore) *Orchestrator {
	t.Helper()
	if store == nil {
		store = NewMemoryResultStore(time.Hour)
	}
	if cfg.Workers == 0 {
		cfg.Workers = 2
	}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	o := NewOrchestrator(cfg, searcher, graph, reasoner, store, pubSub, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, o.Run(ctx))
	t.Cleanup(func() {
		cancel()
		_ = pubSub.Close()
	})
	return o
}

func validRequest() Request {
	return Request{
		Complaints: []string{"chest pain"},
		Symptoms:   []string{"fever", "cough"},
		TopK:       5,
	}
}

func waitTerminal(t *testing.T, o *Orchestrator, id string) Status {
	t.Helper()
	var status Status
	require.Eventually(t, func() bool {
		s, err := o.Status(context.Background(), id)
		if err != nil {
			return false
		}
		status = s
		return s.Status != StatusProcessing
	}, 3*time.Second, 5*time.Millisecond)
	return status
}

func TestJobCompletes(t *testing.T) {
	searcher := &stubSearcher{}
	graph := &stubGraph{}
	adapter := reasoning.NewAdapter(mock.NewProvider(0), logger.NewNopLogger())
	o := newTestOrchestrator(t, Config{}, searcher, graph, adapter, nil)
	obs := &recordingObserver{}
	o.AddObserver(obs)

	require.NoError(t, o.Start(context.Background(), "s1", validRequest()))
	status := waitTerminal(t, o, "s1")

	require.Equal(t, StatusCompleted, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.Result)
	assert.Equal(t, "Gastroesophageal Reflux Disease (GERD)", status.Result.DifferentialDiagnosis[0].Condition)
	assert.Equal(t, []SimilarCase{{CaseID: "7", Similarity: 88, Rank: 1, Diagnosis: "Pneumonia", Outcome: "Recovered"}}, status.Result.SimilarCases)
	assert.Len(t, status.Result.RelevantKnowledge, 1)
	assert.Equal(t, "s1", status.Result.Session.SessionID)
	assert.False(t, status.Result.FallbackUsed)

	assert.Equal(t, []string{"chest pain, fever, cough"}, searcher.queries)
	assert.Equal(t, [][]string{{"fever", "cough"}}, graph.symptoms)

	// polling a terminal session is idempotent
	again, err := o.Status(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, status, again)
	assert.Equal(t, 0, o.ActiveJobs())

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 1, obs.accepted)
	assert.IsNonDecreasing(t, obs.progress)
	assert.Contains(t, obs.progress, 10)
	assert.Contains(t, obs.progress, 90)
	require.Len(t, obs.finished, 1)
}

func TestProgressIsMonotonicWhilePolling(t *testing.T) {
	o := newTestOrchestrator(t, Config{ParallelRetrieval: true}, &stubSearcher{delay: 5 * time.Millisecond}, &stubGraph{},
		reasoning.NewAdapter(mock.NewProvider(20*time.Millisecond), logger.NewNopLogger()), nil)

	require.NoError(t, o.Start(context.Background(), "s1", validRequest()))

	var seen []int
	require.Eventually(t, func() bool {
		s, err := o.Status(context.Background(), "s1")
		if err != nil {
			return false
		}
		seen = append(seen, s.Progress)
		return s.Status == StatusCompleted
	}, 3*time.Second, time.Millisecond)

	assert.IsNonDecreasing(t, seen)
	assert.Equal(t, 100, seen[len(seen)-1])
}

func TestStartValidation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"no complaints or symptoms", Request{TopK: 5}},
		{"blank entries only", Request{Complaints: []string{"  "}, TopK: 5}},
		{"top_k too small", Request{Symptoms: []string{"fever"}, TopK: 0}},
		{"top_k too large", Request{Symptoms: []string{"fever"}, TopK: 21}},
	}

	o := newTestOrchestrator(t, Config{}, &stubSearcher{}, &stubGraph{}, newGatedReasoner(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := o.Start(context.Background(), "s1", tt.req)
			assert.True(t, apperror.Is(err, apperror.KindValidation))

			_, err = o.Status(context.Background(), "s1")
			assert.True(t, apperror.Is(err, apperror.KindNotFound))
		})
	}
}

func TestDuplicateSessionRejected(t *testing.T) {
	reasoner := newGatedReasoner()
	defer close(reasoner.release)
	o := newTestOrchestrator(t, Config{}, &stubSearcher{}, &stubGraph{}, reasoner, nil)

	require.NoError(t, o.Start(context.Background(), "s1", validRequest()))
	err := o.Start(context.Background(), "s1", validRequest())
	assert.True(t, apperror.Is(err, apperror.KindPrecondition))
}

func TestReasoningBackendDownStillCompletes(t *testing.T) {
	adapter := reasoning.NewAdapter(nil, logger.NewNopLogger())
	o := newTestOrchestrator(t, Config{}, &stubSearcher{}, &stubGraph{}, adapter, nil)

	require.NoError(t, o.Start(context.Background(), "s1", validRequest()))
	status := waitTerminal(t, o, "s1")

	require.Equal(t, StatusCompleted, status.Status)
	assert.True(t, status.Result.FallbackUsed)
	assert.Equal(t, "Further evaluation needed", status.Result.DifferentialDiagnosis[0].Condition)
	assert.Equal(t, 50.0, status.Result.DifferentialDiagnosis[0].Confidence)
}

func TestDeleteDiscardsLateResult(t *testing.T) {
	reasoner := newGatedReasoner()
	store := &signallingStore{MemoryResultStore: NewMemoryResultStore(time.Hour), puts: make(chan bool, 1)}
	o := newTestOrchestrator(t, Config{}, &stubSearcher{}, &stubGraph{}, reasoner, store)

	require.NoError(t, o.Start(context.Background(), "s1", validRequest()))
	<-reasoner.entered

	require.NoError(t, o.Delete(context.Background(), "s1"))
	close(reasoner.release)

	select {
	case written := <-store.puts:
		assert.False(t, written)
	case <-time.After(3 * time.Second):
		t.Fatal("job never attempted to write its result")
	}

	_, err := o.Status(context.Background(), "s1")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	entry, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

// unavailableStore fails every write.
type unavailableStore struct {
	*MemoryResultStore
	puts atomic.Int32
}

func (s *unavailableStore) Put(ctx context.Context, id string, e Entry) (bool, error) {
	s.puts.Add(1)
	return false, errors.New("connection refused")
}

func TestStoreFailureReleasesJob(t *testing.T) {
	store := &unavailableStore{MemoryResultStore: NewMemoryResultStore(time.Hour)}
	adapter := reasoning.NewAdapter(mock.NewProvider(0), logger.NewNopLogger())
	o := newTestOrchestrator(t, Config{}, &stubSearcher{}, &stubGraph{}, adapter, store)
	o.retryDelay = time.Millisecond
	obs := &recordingObserver{}
	o.AddObserver(obs)

	require.NoError(t, o.Start(context.Background(), "s1", validRequest()))
	status := waitTerminal(t, o, "s1")

	assert.Equal(t, StatusCompleted, status.Status)
	require.NotNil(t, status.Result)
	require.Eventually(t, func() bool { return o.ActiveJobs() == 0 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, storeAttempts, store.puts.Load())

	obs.mu.Lock()
	assert.Len(t, obs.finished, 1)
	obs.mu.Unlock()

	err := o.Start(context.Background(), "s1", validRequest())
	assert.True(t, apperror.Is(err, apperror.KindPrecondition), "restart of a finished session: %v", err)

	require.NoError(t, o.Delete(context.Background(), "s1"))
	_, err = o.Status(context.Background(), "s1")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestResultRequiresCompletion(t *testing.T) {
	reasoner := newGatedReasoner()
	o := newTestOrchestrator(t, Config{}, &stubSearcher{}, &stubGraph{}, reasoner, nil)

	require.NoError(t, o.Start(context.Background(), "s1", validRequest()))
	<-reasoner.entered

	_, err := o.Result(context.Background(), "s1")
	assert.True(t, apperror.Is(err, apperror.KindPrecondition))

	close(reasoner.release)
	status := waitTerminal(t, o, "s1")

	result, err := o.Result(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, status.Result, result)
	assert.Equal(t, "Late", result.DifferentialDiagnosis[0].Condition)

	_, err = o.Result(context.Background(), "unknown")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestHardTimeoutForcesError(t *testing.T) {
	reasoner := newGatedReasoner()
	o := newTestOrchestrator(t, Config{HardTimeout: 50 * time.Millisecond}, &stubSearcher{}, &stubGraph{}, reasoner, nil)

	require.NoError(t, o.Start(context.Background(), "s1", validRequest()))
	status := waitTerminal(t, o, "s1")

	assert.Equal(t, StatusError, status.Status)
	assert.Equal(t, PhaseReasoning, status.ErrorPhase)
	assert.Contains(t, status.Message, "timed out")

	// the job's own completion arrives after the timeout and loses
	time.Sleep(20 * time.Millisecond)
	again, err := o.Status(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, StatusError, again.Status)
}

func TestSoftTimeoutLetsPhaseFinish(t *testing.T) {
	searcher := &stubSearcher{delay: 10 * time.Millisecond}
	graph := &stubGraph{}
	o := newTestOrchestrator(t, Config{SoftTimeout: time.Millisecond}, searcher, graph, newGatedReasoner(), nil)

	require.NoError(t, o.Start(context.Background(), "s1", validRequest()))
	status := waitTerminal(t, o, "s1")

	assert.Equal(t, StatusError, status.Status)
	assert.Equal(t, PhaseSearching, status.ErrorPhase)
	// search ran to completion, graph analysis never started
	assert.Len(t, searcher.queries, 1)
	assert.Empty(t, graph.symptoms)
}

func TestPanicInPhaseRecordsPhase(t *testing.T) {
	o := newTestOrchestrator(t, Config{}, &stubSearcher{panics: true}, &stubGraph{}, newGatedReasoner(), nil)

	require.NoError(t, o.Start(context.Background(), "s1", validRequest()))
	status := waitTerminal(t, o, "s1")

	assert.Equal(t, StatusError, status.Status)
	assert.Equal(t, PhaseSearching, status.ErrorPhase)
	assert.Contains(t, status.Message, "index corrupted")
}

func TestParallelRetrievalMatchesSequential(t *testing.T) {
	run := func(parallel bool) *Result {
		adapter := reasoning.NewAdapter(mock.NewProvider(0), logger.NewNopLogger())
		o := newTestOrchestrator(t, Config{ParallelRetrieval: parallel}, &stubSearcher{}, &stubGraph{}, adapter, nil)
		require.NoError(t, o.Start(context.Background(), "s1", validRequest()))
		return waitTerminal(t, o, "s1").Result
	}

	seq, par := run(false), run(true)
	require.NotNil(t, seq)
	require.NotNil(t, par)
	assert.Equal(t, seq.SimilarCases, par.SimilarCases)
	assert.Equal(t, seq.RelevantKnowledge, par.RelevantKnowledge)
	assert.Equal(t, seq.DifferentialDiagnosis, par.DifferentialDiagnosis)
}
