package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ArtifactManifest is written next to the artifacts by the offline build and lists
// their file names relative to the manifest directory.
type ArtifactManifest struct {
	Index struct {
		Path    string `yaml:"path"`
		Metric  string `yaml:"metric"`
		Backend string `yaml:"backend"`
	} `yaml:"index"`
	Embeddings      string `yaml:"embeddings"`
	CaseMetadata    string `yaml:"case_metadata"`
	Graph           string `yaml:"graph"`
	Triplets        string `yaml:"triplets"`
	Ontology        string `yaml:"ontology"`
	EmbeddingConfig string `yaml:"embedding_config"`
}

// ApplyManifest overrides the non-empty entries of the manifest onto cfg.
func ApplyManifest(cfg *ArtifactConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var m ArtifactManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	resolve := func(target *string, value string) {
		if value == "" {
			return
		}
		if filepath.IsAbs(value) {
			*target = value
			return
		}
		*target = filepath.Join(dir, value)
	}

	resolve(&cfg.IndexPath, m.Index.Path)
	resolve(&cfg.EmbeddingsPath, m.Embeddings)
	resolve(&cfg.CaseMetadataPath, m.CaseMetadata)
	resolve(&cfg.GraphPath, m.Graph)
	resolve(&cfg.TripletsPath, m.Triplets)
	resolve(&cfg.OntologyPath, m.Ontology)
	resolve(&cfg.EmbeddingConfigPath, m.EmbeddingConfig)

	if m.Index.Metric != "" {
		cfg.IndexMetric = m.Index.Metric
	}
	if m.Index.Backend != "" {
		cfg.IndexBackend = m.Index.Backend
	}
	return nil
}
