package bootstrap

import (
	"context"
	"log"

	"medrag-be/internal/config"
	"medrag-be/internal/controller"
	"medrag-be/internal/handler"
	"medrag-be/internal/pkg/logger"
	"medrag-be/internal/repository/unitofwork"
	"medrag-be/internal/service"
	"medrag-be/internal/websocket"
	"medrag-be/pkg/diagnosis"
	"medrag-be/pkg/embedding"
	"medrag-be/pkg/export"
	"medrag-be/pkg/extraction"
	"medrag-be/pkg/knowledgegraph"
	"medrag-be/pkg/llm/factory"
	"medrag-be/pkg/notify"
	"medrag-be/pkg/reasoning"
	"medrag-be/pkg/similarity"
	"medrag-be/pkg/storage"
	"medrag-be/pkg/vectorindex"

	pktNats "medrag-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DiagnosisController      controller.IDiagnosisController
	PatientController        controller.IPatientController
	KnowledgeGraphController controller.IKnowledgeGraphController
	CaseController           controller.ICaseController
	UploadController         controller.IUploadController
	HealthController         controller.IHealthController

	// Background workers (started from main.go)
	Orchestrator *diagnosis.Orchestrator
	AuditLog     *notify.AuditLog
	Recorder     *service.SessionRecorder

	// WebSockets
	ProgressHandler *handler.ProgressHandler
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires every component. db may be nil, in which case records live in memory.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Loggers
	isProd := cfg.App.Environment == "production"
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.LogLevel, isProd)
	progressLogger := logger.NewIsolatedLogger(cfg.App.ProgressLogPath)

	// 2. Record store
	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	} else {
		log.Printf("[WARN] No database configured, patient and session records are kept in memory")
		uowFactory = unitofwork.NewMemoryRepositoryFactory()
	}

	// 3. Redis (optional)
	rdb := connectRedis(cfg.App.RedisURL)

	// 4. Retrieval engines
	similarityEngine := loadSimilarityEngine(cfg, db, sysLogger)
	graphEngine := loadGraphEngine(cfg.Artifacts, sysLogger)

	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.LLMBaseURL, cfg.Ai.LLMApiKey)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", llmProvider.Name(), cfg.Ai.LLMModel)
	reasoner := reasoning.NewAdapter(llmProvider, sysLogger)

	// 5. Stores
	resultStore, err := diagnosis.NewResultStore(cfg.ResultStore.Provider, cfg.ResultStore.TTL, rdb)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize result store: %v", err)
	}
	blobs, err := storage.NewStorage(cfg.Storage.Provider, cfg.Storage.Path, rdb)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize storage: %v", err)
	}
	exporter := export.NewExporter(blobs, sysLogger)
	extractor := extraction.NewService(blobs, sysLogger, cfg.ResultStore.TTL)

	// 6. Event bus
	eventBus, err := pktNats.NewBus(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS: %v", err)
	}
	eventPublisher := notify.NewNatsPublisher(eventBus, sysLogger)
	auditLog := notify.NewAuditLog(eventBus, sysLogger)

	// 7. Job queue and workers
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: int64(cfg.Worker.PoolSize * 16)},
		watermill.NewStdLogger(false, false),
	)
	orchestrator := diagnosis.NewOrchestrator(
		diagnosis.Config{
			Workers:           cfg.Worker.PoolSize,
			Topic:             cfg.Worker.Topic,
			SoftTimeout:       cfg.Worker.SoftTimeout,
			HardTimeout:       cfg.Worker.HardTimeout,
			ParallelRetrieval: cfg.Worker.ParallelRetrieval,
		},
		similarityEngine,
		graphEngine,
		reasoner,
		resultStore,
		pubSub,
		progressLogger,
	)

	wsHub := websocket.NewHub(rdb, progressLogger)
	recorder := service.NewSessionRecorder(uowFactory, sysLogger)
	orchestrator.AddObserver(wsHub)
	orchestrator.AddObserver(recorder)
	orchestrator.AddObserver(eventPublisher)

	// 8. Services
	diagnosisService := service.NewDiagnosisService(uowFactory, orchestrator, exporter, eventPublisher, sysLogger)
	patientService := service.NewPatientService(uowFactory, eventPublisher, sysLogger)
	graphService := service.NewKnowledgeGraphService(uowFactory, graphEngine)
	caseService := service.NewCaseService(similarityEngine)
	uploadService := service.NewUploadService(blobs, extractor, service.UploadLimits{
		MaxSizeMB:    cfg.App.MaxUploadSizeMB,
		AllowedTypes: service.ParseAllowedTypes(cfg.App.AllowedFileTypes),
	}, sysLogger)
	healthService := service.NewHealthService(uowFactory, similarityEngine, graphEngine, orchestrator, rdb, db)

	c := &Container{
		DiagnosisController:      controller.NewDiagnosisController(diagnosisService),
		PatientController:        controller.NewPatientController(patientService),
		KnowledgeGraphController: controller.NewKnowledgeGraphController(graphService),
		CaseController:           controller.NewCaseController(caseService),
		UploadController:         controller.NewUploadController(uploadService),
		HealthController:         controller.NewHealthController(healthService),

		Orchestrator: orchestrator,
		AuditLog:     auditLog,
		Recorder:     recorder,

		ProgressHandler: handler.NewProgressHandler(wsHub, orchestrator, progressLogger, cfg.App.JwtSecret, cfg.App.AuthEnabled),
		WebSocketHub:    wsHub,

		Logger: sysLogger,
	}

	c.closers = append(c.closers, func() { _ = pubSub.Close() })
	if eventBus != nil {
		c.closers = append(c.closers, eventBus.Close)
	}
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}
	c.closers = append(c.closers, func() {
		_ = sysLogger.Sync()
		_ = progressLogger.Sync()
	})

	return c
}

// Close drains workers and releases connections.
func (c *Container) Close() {
	c.Orchestrator.Wait()
	c.Recorder.Wait()
	for _, fn := range c.closers {
		fn()
	}
}

func connectRedis(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Redis disabled", err)
		return nil
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	return rdb
}

func loadSimilarityEngine(cfg *config.Config, db *gorm.DB, log logger.ILogger) *similarity.Engine {
	artifacts := cfg.Artifacts
	dimension := cfg.Ai.EmbeddingDimension

	if embCfg, err := similarity.LoadEmbeddingConfig(artifacts.EmbeddingConfigPath); err == nil {
		if embCfg.Dimension > 0 {
			dimension = embCfg.Dimension
		}
		log.Info("BOOTSTRAP", "Loaded embedding config", map[string]interface{}{"model": embCfg.ModelName, "dimension": embCfg.Dimension})
	} else {
		log.Warn("BOOTSTRAP", "Embedding config not loaded", map[string]interface{}{"path": artifacts.EmbeddingConfigPath, "error": err.Error()})
	}

	metadata, err := similarity.LoadMetadata(artifacts.CaseMetadataPath)
	if err != nil {
		log.Warn("BOOTSTRAP", "Case metadata not loaded", map[string]interface{}{"path": artifacts.CaseMetadataPath, "error": err.Error()})
		metadata = map[string]similarity.CaseMetadata{}
	}

	var index vectorindex.Index
	switch {
	case artifacts.IndexBackend == "pgvector" && db != nil:
		metric, err := vectorindex.ParseMetric(artifacts.IndexMetric)
		if err != nil {
			log.Warn("BOOTSTRAP", "Invalid index metric", map[string]interface{}{"metric": artifacts.IndexMetric, "error": err.Error()})
			break
		}
		pg, err := vectorindex.NewPgVectorIndex(db, dimension, metric)
		if err != nil {
			log.Warn("BOOTSTRAP", "pgvector index not available", map[string]interface{}{"error": err.Error()})
			break
		}
		index = pg
	default:
		flat, err := vectorindex.LoadFlatIndex(artifacts.IndexPath)
		if err != nil {
			log.Warn("BOOTSTRAP", "Vector index not loaded", map[string]interface{}{"path": artifacts.IndexPath, "error": err.Error()})
			break
		}
		dimension = flat.Dimension()
		index = flat
	}

	opts := []similarity.Option{}
	if matrix, err := vectorindex.LoadEmbeddings(artifacts.EmbeddingsPath); err == nil {
		opts = append(opts, similarity.WithEmbeddings(matrix))
	} else {
		log.Warn("BOOTSTRAP", "Embedding matrix not loaded", map[string]interface{}{"path": artifacts.EmbeddingsPath, "error": err.Error()})
	}

	baseURL := ""
	if cfg.Ai.EmbeddingProvider == "ollama" {
		baseURL = cfg.Ai.OllamaBaseURL
	}
	embedder, err := embedding.NewEmbeddingProvider(cfg.Ai.EmbeddingProvider, baseURL, cfg.Ai.OllamaModel, cfg.Ai.EmbeddingApiKey, dimension)
	if err != nil {
		log.Warn("BOOTSTRAP", "Embedding provider unavailable, using random embeddings", map[string]interface{}{"error": err.Error()})
		embedder = embedding.NewRandomProvider(dimension)
	}
	opts = append(opts, similarity.WithEmbedder(embedder))

	engine := similarity.NewEngine(index, metadata, log, opts...)
	log.Info("BOOTSTRAP", "Similarity engine ready", map[string]interface{}{"status": engine.Stats().Status, "cases": len(metadata)})
	return engine
}

func loadGraphEngine(artifacts config.ArtifactConfig, log logger.ILogger) *knowledgegraph.Engine {
	graph, err := knowledgegraph.LoadGraph(artifacts.GraphPath)
	if err != nil {
		log.Warn("BOOTSTRAP", "Knowledge graph not loaded", map[string]interface{}{"path": artifacts.GraphPath, "error": err.Error()})
		graph = knowledgegraph.NewGraph()
	}
	triplets, err := knowledgegraph.LoadTriplets(artifacts.TripletsPath)
	if err != nil {
		log.Warn("BOOTSTRAP", "Triplets not loaded", map[string]interface{}{"path": artifacts.TripletsPath, "error": err.Error()})
	}
	ontology, err := knowledgegraph.LoadOntology(artifacts.OntologyPath)
	if err != nil {
		log.Warn("BOOTSTRAP", "Disease ontology not loaded", map[string]interface{}{"path": artifacts.OntologyPath, "error": err.Error()})
	}
	return knowledgegraph.NewEngine(graph, triplets, ontology, log)
}
