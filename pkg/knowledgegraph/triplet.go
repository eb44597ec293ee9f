package knowledgegraph

import (
	"encoding/json"
	"fmt"
	"os"
)

type Triplet struct {
	Subject    string   `json:"subject"`
	Predicate  string   `json:"predicate"`
	Object     string   `json:"object"`
	Source     string   `json:"source,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func (t Triplet) String() string {
	return t.Subject + " " + t.Predicate + " " + t.Object
}

type ScoredTriplet struct {
	Triplet
	RelevanceScore float64 `json:"relevance_score"`
}

func LoadTriplets(path string) ([]Triplet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var triplets []Triplet
	if err := json.Unmarshal(data, &triplets); err != nil {
		return nil, fmt.Errorf("parse triplets: %w", err)
	}
	return triplets, nil
}

// LoadOntology reads a JSON object of disease name to attributes.
func LoadOntology(path string) (map[string]map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ontology map[string]map[string]interface{}
	if err := json.Unmarshal(data, &ontology); err != nil {
		return nil, fmt.Errorf("parse disease ontology: %w", err)
	}
	return ontology, nil
}
