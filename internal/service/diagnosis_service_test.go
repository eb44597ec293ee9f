package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"medrag-be/internal/dto"
	"medrag-be/internal/entity"
	"medrag-be/internal/repository/specification"
	"medrag-be/pkg/apperror"
	"medrag-be/pkg/diagnosis"
	"medrag-be/pkg/reasoning"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartCreatesSessionRecord(t *testing.T) {
	f := newFixture(t)
	svc := f.diagnosisService()
	ctx := context.Background()

	res, err := svc.Start(ctx, &dto.StartDiagnosisRequest{
		Complaints: []string{"chest pain"},
		Symptoms:   []string{"fever", "cough"},
	})
	require.NoError(t, err)
	assert.Equal(t, diagnosis.StatusProcessing, res.Status)

	req := f.engine.started[res.SessionId.String()]
	assert.Equal(t, diagnosis.DefaultTopK, req.TopK)
	assert.Equal(t, "chest pain, fever, cough", req.QueryText())

	session, err := f.uow.NewUnitOfWork(ctx).DiagnosisSessionRepository().FindOne(ctx, specification.ByID{ID: res.SessionId})
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, entity.DiagnosisSessionProcessing, session.Status)
	assert.Equal(t, []string{"fever", "cough"}, session.Symptoms)
}

func TestStartRejectsBeforeCreatingState(t *testing.T) {
	tests := []struct {
		name string
		req  dto.StartDiagnosisRequest
		kind apperror.Kind
	}{
		{"nothing to diagnose", dto.StartDiagnosisRequest{Complaints: []string{" "}}, apperror.KindValidation},
		{"top_k too large", dto.StartDiagnosisRequest{Symptoms: []string{"fever"}, TopK: intPtr(21)}, apperror.KindValidation},
		{"top_k zero", dto.StartDiagnosisRequest{Symptoms: []string{"fever"}, TopK: intPtr(0)}, apperror.KindValidation},
		{"unknown patient", dto.StartDiagnosisRequest{Symptoms: []string{"fever"}, PatientId: func() *uuid.UUID { id := uuid.New(); return &id }()}, apperror.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			_, err := f.diagnosisService().Start(ctx, &tt.req)
			assert.True(t, apperror.Is(err, tt.kind), "got %v", err)
			assert.Empty(t, f.engine.started)

			sessions, err := f.uow.NewUnitOfWork(ctx).DiagnosisSessionRepository().FindAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, sessions)
		})
	}
}

func TestStartEngineFailureMarksSession(t *testing.T) {
	f := newFixture(t)
	f.engine.startErr = apperror.Unexpected("queued", errors.New("queue closed"))
	ctx := context.Background()

	_, err := f.diagnosisService().Start(ctx, &dto.StartDiagnosisRequest{Symptoms: []string{"fever"}})
	require.Error(t, err)

	sessions, err := f.uow.NewUnitOfWork(ctx).DiagnosisSessionRepository().FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, entity.DiagnosisSessionError, sessions[0].Status)
	assert.Contains(t, sessions[0].ErrorMessage, "queue closed")
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	svc := f.diagnosisService()
	ctx := context.Background()

	started, err := svc.Start(ctx, &dto.StartDiagnosisRequest{Symptoms: []string{"fever", "cough"}})
	require.NoError(t, err)
	id := started.SessionId

	_, err = svc.Export(ctx, id, &dto.ExportDiagnosisRequest{Format: "json"})
	assert.True(t, apperror.Is(err, apperror.KindPrecondition), "export before completion: %v", err)

	f.engine.complete(id.String(), sampleResult())

	t.Run("json is inline", func(t *testing.T) {
		res, err := svc.Export(ctx, id, &dto.ExportDiagnosisRequest{Format: "json", SelectedActions: []string{"a2"}})
		require.NoError(t, err)
		require.NotNil(t, res.Data)
		assert.Empty(t, res.DownloadUrl)
		require.Len(t, res.Data.RecommendedActions, 1)
		assert.Equal(t, "CBC", res.Data.RecommendedActions[0].Text)
	})

	t.Run("hl7 is stored and downloadable", func(t *testing.T) {
		res, err := svc.Export(ctx, id, &dto.ExportDiagnosisRequest{Format: "hl7"})
		require.NoError(t, err)
		assert.Nil(t, res.Data)
		prefix := "/api/v1/diagnosis/" + id.String() + "/download/"
		require.True(t, strings.HasPrefix(res.DownloadUrl, prefix), res.DownloadUrl)

		ref := strings.TrimPrefix(res.DownloadUrl, prefix)
		dl, err := svc.Download(ctx, id, ref)
		require.NoError(t, err)
		assert.Contains(t, string(dl.Data), "ORU^R01")

		_, err = svc.Download(ctx, uuid.New(), ref)
		assert.True(t, apperror.Is(err, apperror.KindNotFound), "ref from another session: %v", err)
	})

	t.Run("download fails once the session is deleted", func(t *testing.T) {
		other, err := svc.Start(ctx, &dto.StartDiagnosisRequest{Symptoms: []string{"fever"}})
		require.NoError(t, err)
		f.engine.complete(other.SessionId.String(), sampleResult())

		res, err := svc.Export(ctx, other.SessionId, &dto.ExportDiagnosisRequest{Format: "hl7"})
		require.NoError(t, err)
		ref := res.DownloadUrl[strings.LastIndex(res.DownloadUrl, "/")+1:]
		require.NoError(t, svc.Delete(ctx, other.SessionId))

		dl, err := svc.Download(ctx, other.SessionId, ref)
		assert.Nil(t, dl)
		assert.True(t, apperror.Is(err, apperror.KindNotFound), "deleted session: %v", err)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := svc.Export(ctx, id, &dto.ExportDiagnosisRequest{Format: "docx"})
		assert.True(t, apperror.Is(err, apperror.KindValidation))
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.Export(ctx, uuid.New(), &dto.ExportDiagnosisRequest{Format: "json"})
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})
}

func TestSubmitFeedback(t *testing.T) {
	f := newFixture(t)
	svc := f.diagnosisService()
	ctx := context.Background()

	_, err := svc.SubmitFeedback(ctx, uuid.New(), &dto.FeedbackRequest{Rating: "positive"})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	started, err := svc.Start(ctx, &dto.StartDiagnosisRequest{Symptoms: []string{"fever"}})
	require.NoError(t, err)

	res, err := svc.SubmitFeedback(ctx, started.SessionId, &dto.FeedbackRequest{
		Rating:           "negative",
		Comments:         "missed the travel history",
		CorrectDiagnosis: "Malaria",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.FeedbackId)

	stored, err := f.uow.NewUnitOfWork(ctx).FeedbackRepository().FindAll(ctx, specification.BySessionID{SessionID: started.SessionId})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, entity.FeedbackNegative, stored[0].Rating)
	assert.Equal(t, "Malaria", stored[0].CorrectDiagnosis)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	svc := f.diagnosisService()
	ctx := context.Background()

	hr := 110
	started, err := svc.Start(ctx, &dto.StartDiagnosisRequest{
		Complaints: []string{"shortness of breath"},
		Symptoms:   []string{"fever", "cough"},
		Vitals:     &reasoning.Vitals{HR: &hr, BP: "130/85"},
	})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, started.SessionId)
	require.NoError(t, err)
	assert.Equal(t, "Complaints: shortness of breath; Symptoms: fever, cough; Vitals: HR: 110, BP: 130/85", summary.Summary)
	assert.Equal(t, "processing", summary.Status)
	assert.Nil(t, summary.TopDiagnosis)

	f.engine.complete(started.SessionId.String(), sampleResult())
	summary, err = svc.Summary(ctx, started.SessionId)
	require.NoError(t, err)
	assert.Equal(t, "completed", summary.Status)
	require.NotNil(t, summary.TopDiagnosis)
	assert.Equal(t, "Community-acquired pneumonia", *summary.TopDiagnosis)
	assert.Equal(t, 78.5, *summary.Confidence)
}

func TestSummarizeWithoutInput(t *testing.T) {
	assert.Equal(t, "No summary available", summarize(&entity.DiagnosisSession{}))
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)
	svc := f.diagnosisService()
	ctx := context.Background()

	assert.True(t, apperror.Is(svc.Delete(ctx, uuid.New()), apperror.KindNotFound))

	started, err := svc.Start(ctx, &dto.StartDiagnosisRequest{Symptoms: []string{"fever"}})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, started.SessionId))

	_, err = svc.Status(ctx, started.SessionId)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	_, err = svc.Summary(ctx, started.SessionId)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
