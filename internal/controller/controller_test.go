package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medrag-be/internal/pkg/logger"
	"medrag-be/internal/pkg/serverutils"
	"medrag-be/internal/repository/unitofwork"
	"medrag-be/internal/service"
	"medrag-be/pkg/diagnosis"
	"medrag-be/pkg/export"
	"medrag-be/pkg/extraction"
	"medrag-be/pkg/knowledgegraph"
	"medrag-be/pkg/llm/mock"
	"medrag-be/pkg/notify"
	"medrag-be/pkg/reasoning"
	"medrag-be/pkg/similarity"
	"medrag-be/pkg/storage"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool              `json:"success"`
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

// newTestApp wires every controller against in-memory backends and a mock reasoning backend.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	log := logger.NewNopLogger()
	uow := unitofwork.NewMemoryRepositoryFactory()

	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	sim := similarity.NewEngine(nil, nil, log)
	graph := knowledgegraph.NewGraph()
	graph.AddNode(knowledgegraph.Node{ID: "fever", Type: "symptom"})
	graph.AddNode(knowledgegraph.Node{ID: "Influenza", Type: "disease"})
	graph.AddEdge(knowledgegraph.Edge{Source: "fever", Target: "Influenza", Relationship: "symptom_of"})
	kg := knowledgegraph.NewEngine(graph, []knowledgegraph.Triplet{
		{Subject: "Influenza", Predicate: "causes", Object: "fever"},
	}, map[string]map[string]interface{}{"Influenza": {"icd10": "J11.1"}}, log)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	orchestrator := diagnosis.NewOrchestrator(
		diagnosis.Config{Workers: 2, HardTimeout: 10 * time.Second},
		sim, kg,
		reasoning.NewAdapter(mock.NewProvider(0), log),
		diagnosis.NewMemoryResultStore(time.Hour),
		pubSub, log,
	)
	recorder := service.NewSessionRecorder(uow, log)
	orchestrator.AddObserver(recorder)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, orchestrator.Run(ctx))
	extractor := extraction.NewService(blobs, log, time.Hour)
	t.Cleanup(func() {
		cancel()
		_ = pubSub.Close()
		extractor.Wait()
		recorder.Wait()
	})

	publisher := notify.NewNatsPublisher(nil, log)
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api/v1")

	NewDiagnosisController(service.NewDiagnosisService(uow, orchestrator, export.NewExporter(blobs, log), publisher, log)).RegisterRoutes(api)
	NewPatientController(service.NewPatientService(uow, publisher, log)).RegisterRoutes(api)
	NewKnowledgeGraphController(service.NewKnowledgeGraphService(uow, kg)).RegisterRoutes(api)
	NewCaseController(service.NewCaseService(sim)).RegisterRoutes(api)
	NewUploadController(service.NewUploadService(blobs, extractor, service.UploadLimits{
		MaxSizeMB:    1,
		AllowedTypes: service.ParseAllowedTypes("json,txt"),
	}, log)).RegisterRoutes(api)
	NewHealthController(service.NewHealthService(uow, sim, kg, orchestrator, nil, nil)).RegisterRoutes(api)
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestDiagnosisFlow(t *testing.T) {
	app := newTestApp(t)

	code, env := do(t, app, "POST", "/api/v1/diagnosis/start", map[string]interface{}{
		"complaints": []string{"chest pain"},
		"symptoms":   []string{"fever"},
		"top_k":      3,
	})
	require.Equal(t, http.StatusAccepted, code, env.Message)
	started := decode[struct {
		SessionId string `json:"sessionId"`
		Status    string `json:"status"`
	}](t, env)
	assert.Equal(t, "processing", started.Status)
	base := "/api/v1/diagnosis/" + started.SessionId

	code, _ = do(t, app, "POST", base+"/export", map[string]string{"format": "pdf"})
	if code != http.StatusOK {
		assert.Equal(t, http.StatusConflict, code, "export before completion")
	}

	var status diagnosis.Status
	require.Eventually(t, func() bool {
		code, env := do(t, app, "GET", base, nil)
		if code != http.StatusOK {
			return false
		}
		status = decode[diagnosis.Status](t, env)
		return status.Status == diagnosis.StatusCompleted
	}, 5*time.Second, 20*time.Millisecond)
	require.NotNil(t, status.Result)
	assert.Equal(t, "Gastroesophageal Reflux Disease (GERD)", status.Result.DifferentialDiagnosis[0].Condition)
	assert.Empty(t, status.Result.SimilarCases)
	assert.Len(t, status.Result.RelevantKnowledge, 1)

	code, env = do(t, app, "POST", base+"/export", map[string]string{"format": "pdf"})
	require.Equal(t, http.StatusOK, code, env.Message)
	exported := decode[struct {
		DownloadUrl string `json:"downloadUrl"`
	}](t, env)
	require.NotEmpty(t, exported.DownloadUrl)

	resp, err := app.Test(httptest.NewRequest("GET", exported.DownloadUrl, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	pdf, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	code, env = do(t, app, "POST", base+"/export", map[string]string{"format": "docx"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "format")

	code, _ = do(t, app, "POST", base+"/feedback", map[string]string{"rating": "positive", "comments": "spot on"})
	assert.Equal(t, http.StatusOK, code)
	code, env = do(t, app, "POST", base+"/feedback", map[string]string{"rating": "great"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "rating")

	code, env = do(t, app, "GET", base+"/summary", nil)
	require.Equal(t, http.StatusOK, code)
	summary := decode[struct {
		Summary      string  `json:"summary"`
		TopDiagnosis *string `json:"topDiagnosis"`
	}](t, env)
	assert.Equal(t, "Complaints: chest pain; Symptoms: fever", summary.Summary)
	require.NotNil(t, summary.TopDiagnosis)

	code, env = do(t, app, "GET", "/api/v1/kg/"+started.SessionId, nil)
	require.Equal(t, http.StatusOK, code)
	sub := decode[knowledgegraph.Subgraph](t, env)
	assert.Len(t, sub.Nodes, 2)

	code, _ = do(t, app, "DELETE", base, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, app, "GET", base, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDownloadGoneAfterDelete(t *testing.T) {
	app := newTestApp(t)

	code, env := do(t, app, "POST", "/api/v1/diagnosis/start", map[string]interface{}{"symptoms": []string{"fever"}})
	require.Equal(t, http.StatusAccepted, code, env.Message)
	started := decode[struct {
		SessionId string `json:"sessionId"`
	}](t, env)
	base := "/api/v1/diagnosis/" + started.SessionId

	require.Eventually(t, func() bool {
		code, env := do(t, app, "GET", base, nil)
		return code == http.StatusOK && decode[diagnosis.Status](t, env).Status == diagnosis.StatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	code, env = do(t, app, "POST", base+"/export", map[string]string{"format": "hl7"})
	require.Equal(t, http.StatusOK, code, env.Message)
	exported := decode[struct {
		DownloadUrl string `json:"downloadUrl"`
	}](t, env)

	resp, err := app.Test(httptest.NewRequest("GET", exported.DownloadUrl, nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	code, _ = do(t, app, "DELETE", base, nil)
	require.Equal(t, http.StatusOK, code)

	resp, err = app.Test(httptest.NewRequest("GET", exported.DownloadUrl, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(body), "MSH|")
}

func TestDiagnosisRequestErrors(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		code   int
	}{
		{"no complaints or symptoms", "POST", "/api/v1/diagnosis/start", map[string]interface{}{"complaints": []string{}}, 400},
		{"top_k out of range", "POST", "/api/v1/diagnosis/start", map[string]interface{}{"symptoms": []string{"fever"}, "top_k": 50}, 400},
		{"malformed id", "GET", "/api/v1/diagnosis/not-a-uuid", nil, 400},
		{"unknown session", "GET", "/api/v1/diagnosis/7d4a3d0c-5a0e-4a43-9d5f-2b8e0f3c9a11", nil, 404},
		{"unknown session summary", "GET", "/api/v1/diagnosis/7d4a3d0c-5a0e-4a43-9d5f-2b8e0f3c9a11/summary", nil, 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, code, env.Message)
			assert.False(t, env.Success)
		})
	}
}

func TestPatientRoutes(t *testing.T) {
	app := newTestApp(t)

	code, env := do(t, app, "POST", "/api/v1/patients", map[string]interface{}{"dob": "1990-01-01"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "name")

	code, env = do(t, app, "POST", "/api/v1/patients", map[string]interface{}{"name": "John Smith", "dob": "1990-01-01"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	created := decode[struct {
		PatientId string `json:"patientId"`
	}](t, env)

	code, _ = do(t, app, "PUT", "/api/v1/patients/"+created.PatientId, map[string]interface{}{"name": "John A. Smith"})
	assert.Equal(t, http.StatusOK, code)

	code, env = do(t, app, "GET", "/api/v1/patients?search=smith&limit=10", nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[struct {
		Total int `json:"total"`
	}](t, env)
	assert.Equal(t, 1, list.Total)

	code, env = do(t, app, "POST", "/api/v1/diagnosis/start", map[string]interface{}{
		"patientId": created.PatientId,
		"symptoms":  []string{"fever"},
	})
	require.Equal(t, http.StatusAccepted, code)
	started := decode[struct {
		SessionId string `json:"sessionId"`
	}](t, env)

	type patientSessions struct {
		Sessions []struct {
			SessionId    string  `json:"sessionId"`
			Status       string  `json:"status"`
			TopDiagnosis *string `json:"topDiagnosis"`
		} `json:"sessions"`
	}
	history := "/api/v1/patients/" + created.PatientId + "/sessions"
	require.Eventually(t, func() bool {
		code, env := do(t, app, "GET", history+"?status=completed", nil)
		return code == http.StatusOK && len(decode[patientSessions](t, env).Sessions) == 1
	}, 5*time.Second, 20*time.Millisecond)

	code, env = do(t, app, "GET", history, nil)
	require.Equal(t, http.StatusOK, code)
	sessions := decode[patientSessions](t, env)
	require.Len(t, sessions.Sessions, 1)
	assert.Equal(t, started.SessionId, sessions.Sessions[0].SessionId)
	assert.NotNil(t, sessions.Sessions[0].TopDiagnosis)

	code, env = do(t, app, "GET", history+"?status=pending", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "status")

	code, _ = do(t, app, "DELETE", "/api/v1/patients/"+created.PatientId, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, app, "GET", "/api/v1/patients/"+created.PatientId, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestKnowledgeGraphRoutes(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		method string
		path   string
		body   interface{}
		code   int
	}{
		{"GET", "/api/v1/kg/stats", nil, 200},
		{"GET", "/api/v1/kg/explore/fever?radius=2", nil, 200},
		{"GET", "/api/v1/kg/explore/fever?radius=9", nil, 400},
		{"GET", "/api/v1/kg/path/fever/Influenza", nil, 200},
		{"GET", "/api/v1/kg/disease/influenza", nil, 200},
		{"GET", "/api/v1/kg/disease/Gout", nil, 404},
		{"GET", "/api/v1/kg/symptoms/fever?max=5", nil, 200},
		{"POST", "/api/v1/kg/analyze", map[string]interface{}{"symptoms": []string{"fever"}}, 200},
		{"POST", "/api/v1/kg/analyze", map[string]interface{}{"symptoms": []string{}}, 400},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			code, env := do(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, code, env.Message)
		})
	}
}

func TestCaseAndHealthRoutes(t *testing.T) {
	app := newTestApp(t)

	code, _ := do(t, app, "GET", "/api/v1/cases/search?q=fever", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code, "no index loaded")
	code, _ = do(t, app, "GET", "/api/v1/cases/search", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, app, "GET", "/api/v1/cases/42", nil)
	assert.Equal(t, http.StatusNotFound, code)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health struct {
		Status   string            `json:"status"`
		Services map[string]string `json:"services"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "initialized", health.Services["knowledge_graph"])

	code, _ = do(t, app, "GET", "/api/v1/stats", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestUploadRoutes(t *testing.T) {
	app := newTestApp(t)

	upload := func(name string, content []byte) (int, envelope) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest("POST", "/api/v1/uploads", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		var env envelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		return resp.StatusCode, env
	}

	code, _ := upload("scan.exe", []byte("MZ"))
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := upload("record.json", []byte(`{"patient_name":"Ann Lee","symptoms":["fever","cough"],"diagnosis":"Influenza"}`))
	require.Equal(t, http.StatusAccepted, code, env.Message)
	uploaded := decode[struct {
		FileId string `json:"fileId"`
	}](t, env)

	var rec extraction.Record
	require.Eventually(t, func() bool {
		code, env := do(t, app, "GET", "/api/v1/extract/"+uploaded.FileId, nil)
		if code != http.StatusOK {
			return false
		}
		rec = decode[extraction.Record](t, env)
		return rec.Status == extraction.StatusCompleted
	}, 5*time.Second, 20*time.Millisecond)
	require.NotNil(t, rec.Content)
	assert.Equal(t, "structured_data", rec.Content.Type)
	assert.Equal(t, "Ann Lee", rec.Content.PatientName)

	code, _ = do(t, app, "GET", "/api/v1/uploads/"+uploaded.FileId+"/progress", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, app, "GET", "/api/v1/uploads/missing/progress", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUploadSeveralFiles(t *testing.T) {
	app := newTestApp(t)

	post := func(parts map[string]string) (int, envelope) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for name, content := range parts {
			part, err := w.CreateFormFile("files", name)
			require.NoError(t, err)
			_, err = part.Write([]byte(content))
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())

		req := httptest.NewRequest("POST", "/api/v1/uploads", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		var env envelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		return resp.StatusCode, env
	}

	code, env := post(map[string]string{"a.txt": "fever", "scan.exe": "MZ"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "file")

	code, env = post(map[string]string{
		"a.txt":  "Patient reports fever.",
		"b.json": `{"patient_name":"Ann Lee","symptoms":["cough"]}`,
	})
	require.Equal(t, http.StatusAccepted, code, env.Message)
	uploaded := decode[struct {
		FileId string `json:"fileId"`
		Files  []struct {
			FileId   string `json:"fileId"`
			FileName string `json:"fileName"`
		} `json:"files"`
	}](t, env)
	require.Len(t, uploaded.Files, 2)
	assert.Equal(t, uploaded.Files[0].FileId, uploaded.FileId)

	for _, f := range uploaded.Files {
		require.Eventually(t, func() bool {
			code, env := do(t, app, "GET", "/api/v1/extract/"+f.FileId, nil)
			return code == http.StatusOK && decode[extraction.Record](t, env).Status == extraction.StatusCompleted
		}, 5*time.Second, 20*time.Millisecond, f.FileName)
	}

	req := httptest.NewRequest("POST", "/api/v1/uploads", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
