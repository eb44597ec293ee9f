package similarity

import (
	"encoding/json"
	"fmt"
	"os"
)

// CaseMetadata describes one indexed case. Unknown keys in the artifact are kept in Extra.
type CaseMetadata struct {
	Diagnosis string                 `json:"diagnosis,omitempty"`
	Symptoms  []string               `json:"symptoms,omitempty"`
	Summary   string                 `json:"summary,omitempty"`
	Outcome   string                 `json:"outcome,omitempty"`
	Extra     map[string]interface{} `json:"-"`
}

func (m *CaseMetadata) UnmarshalJSON(data []byte) error {
	type plain CaseMetadata
	if err := json.Unmarshal(data, (*plain)(m)); err != nil {
		return err
	}

	var all map[string]interface{}
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range []string{"diagnosis", "symptoms", "summary", "outcome"} {
		delete(all, k)
	}
	if len(all) > 0 {
		m.Extra = all
	}
	return nil
}

func (m CaseMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(m.Extra)+4)
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.Diagnosis != "" {
		out["diagnosis"] = m.Diagnosis
	}
	if m.Symptoms != nil {
		out["symptoms"] = m.Symptoms
	}
	if m.Summary != "" {
		out["summary"] = m.Summary
	}
	if m.Outcome != "" {
		out["outcome"] = m.Outcome
	}
	return json.Marshal(out)
}

// LoadMetadata reads the per-case JSON object keyed by case index.
func LoadMetadata(path string) (map[string]CaseMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out map[string]CaseMetadata
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse case metadata: %w", err)
	}
	return out, nil
}

// EmbeddingConfig records how the index was built.
type EmbeddingConfig struct {
	ModelName string `json:"model_name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric,omitempty"`
}

func LoadEmbeddingConfig(path string) (*EmbeddingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg EmbeddingConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse embedding config: %w", err)
	}
	return &cfg, nil
}
