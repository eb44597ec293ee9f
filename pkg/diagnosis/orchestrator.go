package diagnosis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"medrag-be/internal/pkg/logger"
	"medrag-be/pkg/apperror"
	"medrag-be/pkg/knowledgegraph"
	"medrag-be/pkg/reasoning"
	"medrag-be/pkg/similarity"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var errSoftTimeout = errors.New("soft time limit exceeded")

const (
	storeAttempts = 3
	storeTimeout  = 5 * time.Second
	// outcomes the store never accepted are served from memory this long
	unstoredTTL = time.Hour
)

type CaseSearcher interface {
	Search(ctx context.Context, queryText string, topK int) []similarity.CaseMatch
}

type TripletFinder interface {
	RelevantTriplets(symptoms []string, topK int) []knowledgegraph.ScoredTriplet
}

type Reasoner interface {
	Generate(ctx context.Context, prompt string) (reasoning.Payload, bool)
}

// Observer hears about job lifecycle changes. Calls happen on worker goroutines and must not block.
type Observer interface {
	JobAccepted(sessionID string, req Request)
	JobProgress(status Status)
	JobFinished(sessionID string, entry Entry)
}

type Config struct {
	Workers           int
	Topic             string
	SoftTimeout       time.Duration
	HardTimeout       time.Duration
	ParallelRetrieval bool
}

type jobMessage struct {
	SessionID string `json:"sessionId"`
}

type liveJob struct {
	*Job
	ctx      context.Context
	cancel   context.CancelFunc
	timer    *time.Timer
	finished atomic.Bool
}

type unstoredEntry struct {
	entry   Entry
	expires time.Time
}

type Orchestrator struct {
	cfg       Config
	searcher  CaseSearcher
	graph     TripletFinder
	reasoner  Reasoner
	store     ResultStore
	pubSub    *gochannel.GoChannel
	logger    logger.ILogger
	tracer    trace.Tracer
	observers []Observer
	now       func() time.Time
	// base delay between result store attempts, grown linearly
	retryDelay time.Duration

	mu       sync.RWMutex
	jobs     map[string]*liveJob
	unstored map[string]unstoredEntry
	wg       sync.WaitGroup
}

func NewOrchestrator(
	cfg Config,
	searcher CaseSearcher,
	graph TripletFinder,
	reasoner Reasoner,
	store ResultStore,
	pubSub *gochannel.GoChannel,
	log logger.ILogger,
) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Topic == "" {
		cfg.Topic = "DIAGNOSIS_JOBS"
	}
	return &Orchestrator{
		cfg:      cfg,
		searcher: searcher,
		graph:    graph,
		reasoner: reasoner,
		store:    store,
		pubSub:   pubSub,
		logger:   log,
		tracer:   otel.Tracer("medrag-be/diagnosis"),
		now:        time.Now,
		retryDelay: 200 * time.Millisecond,
		jobs:       make(map[string]*liveJob),
		unstored:   make(map[string]unstoredEntry),
	}
}

// AddObserver must be called before Run.
func (o *Orchestrator) AddObserver(obs Observer) {
	o.observers = append(o.observers, obs)
}

// Run starts the worker pool. Workers stop once ctx is cancelled and the queue subscription closes.
func (o *Orchestrator) Run(ctx context.Context) error {
	messages, err := o.pubSub.Subscribe(ctx, o.cfg.Topic)
	if err != nil {
		return err
	}

	for i := 0; i < o.cfg.Workers; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for msg := range messages {
				// The queue is in-process and not durable; ack on receipt so the next message
				// reaches another idle worker.
				msg.Ack()
				o.handle(msg)
			}
		}()
	}

	o.logger.Info("DIAGNOSIS", "Worker pool started", map[string]interface{}{"workers": o.cfg.Workers, "topic": o.cfg.Topic})
	return nil
}

// Wait blocks until every worker has exited.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Start validates req and queues a job for sessionID.
func (o *Orchestrator) Start(ctx context.Context, sessionID string, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	_, live := o.jobs[sessionID]
	_, done := o.unstored[sessionID]
	if live || done {
		o.mu.Unlock()
		return apperror.Precondition("session %s already has a running job", sessionID)
	}
	// Jobs outlive the request that started them
	jobCtx, cancel := context.WithCancel(context.Background())
	job := &liveJob{Job: newJob(sessionID, req, o.now()), ctx: jobCtx, cancel: cancel}
	o.jobs[sessionID] = job
	o.mu.Unlock()

	if o.cfg.HardTimeout > 0 {
		job.timer = time.AfterFunc(o.cfg.HardTimeout, func() {
			o.fail(job, apperror.Timeout(string(job.Phase()), context.DeadlineExceeded))
		})
	}

	// observers hear about the queued state before any worker can advance it
	for _, obs := range o.observers {
		obs.JobAccepted(sessionID, req)
	}
	o.notifyProgress(job)

	payload, err := json.Marshal(jobMessage{SessionID: sessionID})
	if err == nil {
		err = o.pubSub.Publish(o.cfg.Topic, message.NewMessage(watermill.NewUUID(), payload))
	}
	if err != nil {
		o.fail(job, apperror.Unexpected(string(PhaseQueued), err))
		return apperror.Unexpected(string(PhaseQueued), err)
	}

	o.logger.Info("DIAGNOSIS", "Diagnosis job queued", map[string]interface{}{"session_id": sessionID, "top_k": req.TopK})
	return nil
}

// Status reports the live job if there is one, otherwise the stored terminal entry.
func (o *Orchestrator) Status(ctx context.Context, sessionID string) (Status, error) {
	// Read the live job before the store: a job is released only after its entry is written.
	o.mu.RLock()
	job := o.jobs[sessionID]
	o.mu.RUnlock()

	entry, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return Status{}, err
	}
	if entry != nil {
		return entryStatus(sessionID, entry), nil
	}

	o.mu.RLock()
	local, held := o.unstored[sessionID]
	o.mu.RUnlock()
	if held && o.now().Before(local.expires) {
		return entryStatus(sessionID, &local.entry), nil
	}
	if job != nil {
		return job.status(), nil
	}
	return Status{}, apperror.NotFound("diagnosis session %s not found", sessionID)
}

// Result returns the completed result, or a precondition error while the job is not completed.
func (o *Orchestrator) Result(ctx context.Context, sessionID string) (*Result, error) {
	status, err := o.Status(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch status.Status {
	case StatusCompleted:
		return status.Result, nil
	case StatusError:
		return nil, apperror.Precondition("diagnosis %s failed: %s", sessionID, status.Message)
	default:
		return nil, apperror.Precondition("diagnosis %s is not completed yet", sessionID)
	}
}

// Delete hides the session. A job still running keeps running, but its result is discarded.
func (o *Orchestrator) Delete(ctx context.Context, sessionID string) error {
	if err := o.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	o.mu.Lock()
	delete(o.jobs, sessionID)
	delete(o.unstored, sessionID)
	o.mu.Unlock()

	o.logger.Info("DIAGNOSIS", "Diagnosis session deleted", map[string]interface{}{"session_id": sessionID})
	return nil
}

// ActiveJobs counts jobs that have not reached a terminal state.
func (o *Orchestrator) ActiveJobs() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.jobs)
}

func (o *Orchestrator) handle(msg *message.Message) {
	var payload jobMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		o.logger.Error("DIAGNOSIS", "Failed to decode job message", map[string]interface{}{"error": err.Error()})
		return
	}

	o.mu.RLock()
	job := o.jobs[payload.SessionID]
	o.mu.RUnlock()
	if job == nil || job.finished.Load() {
		o.logger.Warn("DIAGNOSIS", "Skipping job no longer live", map[string]interface{}{"session_id": payload.SessionID})
		return
	}

	o.execute(job)
}

func (o *Orchestrator) execute(job *liveJob) {
	ctx, span := o.tracer.Start(job.ctx, "diagnosis.job",
		trace.WithAttributes(attribute.String("session.id", job.SessionID)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			o.fail(job, apperror.Unexpected(string(job.Phase()), fmt.Errorf("panic: %v", r)))
		}
	}()

	cases, triplets, err := o.retrieve(ctx, job)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		o.fail(job, err)
		return
	}
	if !o.proceed(job) {
		return
	}

	o.advance(job, PhaseReasoning, progressReasoning, "Building reasoning context")
	prompt := reasoning.BuildContext(job.Request.PatientData(), cases, triplets)

	o.advance(job, PhaseReasoning, progressGenerating, "Generating diagnosis")
	reasonCtx, reasonSpan := o.tracer.Start(ctx, "diagnosis.reasoning")
	payload, fallback := o.reasoner.Generate(reasonCtx, prompt)
	reasonSpan.SetAttributes(attribute.Bool("reasoning.fallback", fallback))
	reasonSpan.End()
	if !o.proceed(job) {
		return
	}

	o.advance(job, PhaseFinalizing, progressFinalizing, "Finalizing results")
	finishedAt := o.now()
	result := buildResult(job.SessionID, job.AcceptedAt, finishedAt, payload, fallback, cases, triplets)

	o.finish(job, Entry{Status: StatusCompleted, Result: result, FinishedAt: finishedAt})
}

// retrieve runs the search and graph phases, concurrently when configured.
func (o *Orchestrator) retrieve(ctx context.Context, job *liveJob) ([]similarity.CaseMatch, []knowledgegraph.ScoredTriplet, error) {
	var (
		cases    []similarity.CaseMatch
		triplets []knowledgegraph.ScoredTriplet
	)

	search := func() error {
		return guard(PhaseSearching, func() {
			spanCtx, span := o.tracer.Start(ctx, "diagnosis.search")
			defer span.End()
			cases = o.searcher.Search(spanCtx, job.Request.QueryText(), job.Request.TopK)
			span.SetAttributes(attribute.Int("search.matches", len(cases)))
		})
	}
	graph := func() error {
		return guard(PhaseGraphAnalysis, func() {
			_, span := o.tracer.Start(ctx, "diagnosis.graph_analysis")
			defer span.End()
			triplets = o.graph.RelevantTriplets(job.Request.Symptoms, tripletTopK)
			span.SetAttributes(attribute.Int("graph.triplets", len(triplets)))
		})
	}

	o.advance(job, PhaseSearching, progressSearching, "Searching similar cases")

	if o.cfg.ParallelRetrieval {
		g := new(errgroup.Group)
		g.Go(func() error {
			if err := search(); err != nil {
				return err
			}
			o.advance(job, PhaseGraphAnalysis, progressGraph, "Analyzing knowledge graph")
			return nil
		})
		g.Go(graph)
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
		return cases, triplets, nil
	}

	if err := search(); err != nil {
		return nil, nil, err
	}
	if err := o.checkSoftLimit(job); err != nil {
		return nil, nil, err
	}
	o.advance(job, PhaseGraphAnalysis, progressGraph, "Analyzing knowledge graph")
	if err := graph(); err != nil {
		return nil, nil, err
	}
	return cases, triplets, nil
}

// proceed reports whether the job should enter its next phase.
func (o *Orchestrator) proceed(job *liveJob) bool {
	if job.finished.Load() {
		return false
	}
	if err := o.checkSoftLimit(job); err != nil {
		o.fail(job, err)
		return false
	}
	return true
}

func (o *Orchestrator) checkSoftLimit(job *liveJob) error {
	if o.cfg.SoftTimeout > 0 && o.now().Sub(job.AcceptedAt) > o.cfg.SoftTimeout {
		return apperror.Timeout(string(job.Phase()), errSoftTimeout)
	}
	return nil
}

func (o *Orchestrator) advance(job *liveJob, phase Phase, progress int, message string) {
	if job.finished.Load() {
		return
	}
	if job.advance(phase, progress, message) {
		o.notifyProgress(job)
	}
}

func (o *Orchestrator) notifyProgress(job *liveJob) {
	status := job.status()
	for _, obs := range o.observers {
		obs.JobProgress(status)
	}
}

func (o *Orchestrator) fail(job *liveJob, err error) {
	phase := job.Phase()
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Phase != "" {
		phase = Phase(appErr.Phase)
	}
	o.finish(job, Entry{Status: StatusError, Error: err.Error(), Phase: phase, FinishedAt: o.now()})
}

// finish writes the terminal entry. Only the first call per job has any effect, and the store
// rejects it when the session was deleted. A job is always released, even when every store
// attempt fails.
func (o *Orchestrator) finish(job *liveJob, entry Entry) {
	if !job.finished.CompareAndSwap(false, true) {
		return
	}

	written, err := o.putEntry(job.SessionID, entry)
	if err != nil {
		o.logger.Error("RESULT_STORE", "Failed to store diagnosis result", map[string]interface{}{
			"session_id": job.SessionID,
			"attempts":   storeAttempts,
			"error":      err.Error(),
		})
		if !o.releaseUnstored(job, entry) {
			return
		}
	} else {
		defer o.release(job)
		if !written {
			o.logger.Warn("RESULT_STORE", "Discarded late result for deleted or finished session", map[string]interface{}{
				"session_id": job.SessionID,
			})
			return
		}
	}

	details := map[string]interface{}{"session_id": job.SessionID, "status": entry.Status}
	if entry.Status == StatusError {
		details["phase"] = entry.Phase
		details["error"] = entry.Error
		o.logger.Error("DIAGNOSIS", "Diagnosis job failed", details)
	} else {
		details["duration_sec"] = entry.Result.Session.DurationSec
		o.logger.Info("DIAGNOSIS", "Diagnosis job completed", details)
	}

	for _, obs := range o.observers {
		obs.JobFinished(job.SessionID, entry)
	}
}

func (o *Orchestrator) putEntry(sessionID string, entry Entry) (written bool, err error) {
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		written, err = o.store.Put(ctx, sessionID, entry)
		cancel()
		if err == nil || attempt == storeAttempts {
			return written, err
		}
		o.logger.Warn("RESULT_STORE", "Retrying diagnosis result write", map[string]interface{}{
			"session_id": sessionID,
			"attempt":    attempt,
			"error":      err.Error(),
		})
		time.Sleep(time.Duration(attempt) * o.retryDelay)
	}
}

// releaseUnstored drops the job from the live set and keeps its outcome in memory for pollers.
// It reports false when the session was deleted in the meantime.
func (o *Orchestrator) releaseUnstored(job *liveJob, entry Entry) bool {
	o.stopTimers(job)

	now := o.now()
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.jobs[job.SessionID] != job {
		return false
	}
	delete(o.jobs, job.SessionID)
	for id, held := range o.unstored {
		if !now.Before(held.expires) {
			delete(o.unstored, id)
		}
	}
	o.unstored[job.SessionID] = unstoredEntry{entry: entry, expires: now.Add(unstoredTTL)}
	return true
}

func (o *Orchestrator) stopTimers(job *liveJob) {
	if job.timer != nil {
		job.timer.Stop()
	}
	job.cancel()
}

func (o *Orchestrator) release(job *liveJob) {
	o.stopTimers(job)

	o.mu.Lock()
	if o.jobs[job.SessionID] == job {
		delete(o.jobs, job.SessionID)
	}
	o.mu.Unlock()
}

func guard(phase Phase, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperror.Unexpected(string(phase), fmt.Errorf("panic: %v", r))
		}
	}()
	fn()
	return nil
}

func entryStatus(sessionID string, entry *Entry) Status {
	if entry.Status == StatusCompleted {
		return Status{
			SessionID: sessionID,
			Status:    StatusCompleted,
			Phase:     PhaseCompleted,
			Progress:  progressDone,
			Result:    entry.Result,
		}
	}
	return Status{
		SessionID:  sessionID,
		Status:     StatusError,
		Phase:      PhaseError,
		Progress:   progressDone,
		Message:    entry.Error,
		ErrorPhase: entry.Phase,
	}
}
