package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"medrag-be/internal/config"
	"medrag-be/pkg/database"
	"medrag-be/pkg/embedding"
	"medrag-be/pkg/knowledgegraph"
	"medrag-be/pkg/similarity"
	"medrag-be/pkg/vectorindex"

	"github.com/fatih/color"
	"github.com/pgvector/pgvector-go"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm/clause"
)

type sampleCase struct {
	diagnosis string
	symptoms  []string
	summary   string
	outcome   string
}

var cases = []sampleCase{
	{"Pneumonia", []string{"fever", "cough", "dyspnea"}, "Adult with productive cough and fever for five days, crackles at right base.", "Recovered after oral antibiotics"},
	{"Influenza", []string{"fever", "myalgia", "cough"}, "Sudden onset fever and body aches during flu season.", "Recovered with supportive care"},
	{"Asthma exacerbation", []string{"wheezing", "dyspnea", "cough"}, "Known asthmatic with nocturnal wheeze after viral illness.", "Improved with nebulised bronchodilators"},
	{"Acute myocardial infarction", []string{"chest pain", "diaphoresis", "dyspnea"}, "Crushing central chest pain radiating to left arm, ST elevation.", "Primary PCI, discharged day 4"},
	{"Migraine", []string{"headache", "photophobia", "nausea"}, "Recurrent unilateral throbbing headache with aura.", "Responded to triptan"},
	{"Gastroenteritis", []string{"diarrhea", "vomiting", "abdominal pain"}, "Acute watery diarrhea after restaurant meal.", "Resolved with oral rehydration"},
	{"Urinary tract infection", []string{"dysuria", "frequency", "fever"}, "Burning micturition with suprapubic tenderness.", "Resolved with nitrofurantoin"},
	{"Appendicitis", []string{"abdominal pain", "fever", "nausea"}, "Periumbilical pain migrating to right iliac fossa.", "Laparoscopic appendectomy"},
}

var ontology = map[string]map[string]interface{}{
	"Pneumonia":                   {"icd10": "J18.9", "category": "respiratory", "typical_symptoms": []string{"fever", "cough", "dyspnea"}},
	"Influenza":                   {"icd10": "J11.1", "category": "respiratory", "typical_symptoms": []string{"fever", "myalgia", "cough"}},
	"Asthma exacerbation":         {"icd10": "J45.901", "category": "respiratory", "typical_symptoms": []string{"wheezing", "dyspnea"}},
	"Acute myocardial infarction": {"icd10": "I21.9", "category": "cardiovascular", "typical_symptoms": []string{"chest pain", "diaphoresis"}},
	"Migraine":                    {"icd10": "G43.909", "category": "neurological", "typical_symptoms": []string{"headache", "photophobia"}},
	"Gastroenteritis":             {"icd10": "K52.9", "category": "gastrointestinal", "typical_symptoms": []string{"diarrhea", "vomiting"}},
	"Urinary tract infection":     {"icd10": "N39.0", "category": "genitourinary", "typical_symptoms": []string{"dysuria", "frequency"}},
	"Appendicitis":                {"icd10": "K35.80", "category": "gastrointestinal", "typical_symptoms": []string{"abdominal pain", "fever"}},
}

func main() {
	outDir := flag.String("out", "./medrag_outputs", "directory to write artifacts into")
	metricName := flag.String("metric", "l2", "index metric: l2, ip or cosine")
	withPgVector := flag.Bool("pgvector", false, "also load vectors into the case_embeddings table")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	metric, err := vectorindex.ParseMetric(*metricName)
	if err != nil {
		fail("invalid metric: %v", err)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fail("create output dir: %v", err)
	}

	baseURL := ""
	if cfg.Ai.EmbeddingProvider == "ollama" {
		baseURL = cfg.Ai.OllamaBaseURL
	}
	embedder, err := embedding.NewEmbeddingProvider(cfg.Ai.EmbeddingProvider, baseURL, cfg.Ai.OllamaModel, cfg.Ai.EmbeddingApiKey, cfg.Ai.EmbeddingDimension)
	if err != nil {
		fail("embedding provider: %v", err)
	}
	color.Cyan("Seeding %d cases with %s (dim %d)", len(cases), embedder.Name(), embedder.Dimension())

	// 1. Vectors and metadata
	index := vectorindex.NewFlatIndex(embedder.Dimension(), metric)
	matrix := make([][]float32, 0, len(cases))
	metadata := make(map[string]similarity.CaseMetadata, len(cases))

	for i, c := range cases {
		text := c.diagnosis + ". Symptoms: " + strings.Join(c.symptoms, ", ") + ". " + c.summary
		vec, err := embedder.Generate(ctx, text)
		if err != nil {
			fail("embed case %d: %v", i, err)
		}
		// queries are unit length, so stored vectors are too
		vec = embedding.Normalize(vec)
		if err := index.Add(int64(i), vec); err != nil {
			fail("index case %d: %v", i, err)
		}
		matrix = append(matrix, vec)
		metadata[strconv.Itoa(i)] = similarity.CaseMetadata{
			Diagnosis: c.diagnosis,
			Symptoms:  c.symptoms,
			Summary:   c.summary,
			Outcome:   c.outcome,
		}
	}

	must(index.Save(filepath.Join(*outDir, "vector_index.msgpack")), "write index")
	must(vectorindex.SaveEmbeddings(filepath.Join(*outDir, "embeddings.msgpack"), matrix), "write embeddings")
	writeJSON(filepath.Join(*outDir, "case_metadata.json"), metadata)
	writeJSON(filepath.Join(*outDir, "embedding_config.json"), similarity.EmbeddingConfig{
		ModelName: embedder.Name(),
		Dimension: embedder.Dimension(),
		Metric:    string(metric),
	})
	color.Green("✔ Vector index, embeddings and metadata written")

	// 2. Knowledge graph, triplets, ontology
	graph := knowledgegraph.NewGraph()
	triplets := []knowledgegraph.Triplet{}
	for _, c := range cases {
		graph.AddNode(knowledgegraph.Node{ID: c.diagnosis, Label: c.diagnosis, Type: "disease"})
		for _, s := range c.symptoms {
			graph.AddNode(knowledgegraph.Node{ID: s, Label: s, Type: "symptom"})
			graph.AddEdge(knowledgegraph.Edge{Source: s, Target: c.diagnosis, Relationship: "indicates"})
			triplets = append(triplets, knowledgegraph.Triplet{
				Subject:   s,
				Predicate: "indicates",
				Object:    c.diagnosis,
				Source:    "seed",
			})
		}
	}

	must(graph.Save(filepath.Join(*outDir, "knowledge_graph.msgpack")), "write graph")
	writeJSON(filepath.Join(*outDir, "triplets.json"), triplets)
	writeJSON(filepath.Join(*outDir, "disease_ontology.json"), ontology)
	color.Green("✔ Knowledge graph: %d nodes, %d edges, %d triplets", graph.NodeCount(), graph.EdgeCount(), len(triplets))

	// 3. Manifest
	var manifest config.ArtifactManifest
	manifest.Index.Path = "vector_index.msgpack"
	manifest.Index.Metric = string(metric)
	manifest.Index.Backend = "flat"
	manifest.Embeddings = "embeddings.msgpack"
	manifest.CaseMetadata = "case_metadata.json"
	manifest.Graph = "knowledge_graph.msgpack"
	manifest.Triplets = "triplets.json"
	manifest.Ontology = "disease_ontology.json"
	manifest.EmbeddingConfig = "embedding_config.json"
	if *withPgVector {
		manifest.Index.Backend = "pgvector"
	}

	data, err := yaml.Marshal(manifest)
	must(err, "encode manifest")
	must(os.WriteFile(filepath.Join(*outDir, "manifest.yaml"), data, 0o644), "write manifest")
	color.Green("✔ Manifest written to %s", filepath.Join(*outDir, "manifest.yaml"))

	// 4. Optional pgvector load
	if *withPgVector {
		if cfg.Database.Connection == "" {
			fail("DB_CONNECTION_STRING is required with -pgvector")
		}
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
		must(err, "connect database")
		must(database.EnableVector(db), "enable pgvector")
		must(db.AutoMigrate(&vectorindex.CaseEmbedding{}), "migrate case_embeddings")

		rows := make([]vectorindex.CaseEmbedding, 0, len(matrix))
		for i, vec := range matrix {
			rows = append(rows, vectorindex.CaseEmbedding{CaseIndex: int64(i), Embedding: pgvector.NewVector(vec)})
		}
		must(db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error, "insert case embeddings")
		color.Green("✔ Loaded %d vectors into case_embeddings", len(rows))
	}

	color.Cyan("Done. Set ARTIFACTS_MANIFEST=%s", filepath.Join(*outDir, "manifest.yaml"))
}

func writeJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	must(err, "encode "+filepath.Base(path))
	must(os.WriteFile(path, data, 0o644), "write "+filepath.Base(path))
}

func must(err error, what string) {
	if err != nil {
		fail("%s: %v", what, err)
	}
}

func fail(format string, args ...interface{}) {
	color.Red("✘ "+format, args...)
	os.Exit(1)
}
