package dto

import (
	"medrag-be/pkg/knowledgegraph"
)

type SessionGraphResponse struct {
	SessionId string `json:"sessionId"`
	knowledgegraph.Subgraph
}

type ExploreNodeResponse struct {
	NodeId    string                    `json:"nodeId"`
	Radius    int                       `json:"radius"`
	Subgraph  knowledgegraph.Subgraph   `json:"subgraph"`
	Neighbors []knowledgegraph.Neighbor `json:"neighbors"`
}

type PathResponse struct {
	Source     string                   `json:"source"`
	Target     string                   `json:"target"`
	Path       []string                 `json:"path"`
	PathLength int                      `json:"pathLength"`
	Subgraph   *knowledgegraph.Subgraph `json:"subgraph,omitempty"`
	Message    string                   `json:"message,omitempty"`
}

type DiseaseResponse struct {
	Disease      string                  `json:"disease"`
	Info         map[string]interface{}  `json:"info"`
	RelatedNodes knowledgegraph.Subgraph `json:"relatedNodes"`
}

type SymptomRelationsResponse struct {
	Symptom   string                         `json:"symptom"`
	Neighbors []knowledgegraph.Neighbor      `json:"neighbors"`
	Triplets  []knowledgegraph.ScoredTriplet `json:"triplets"`
	Subgraph  knowledgegraph.Subgraph        `json:"subgraph"`
}

type AnalyzeSymptomsRequest struct {
	Symptoms    []string `json:"symptoms" validate:"required,min=1,dive,required"`
	MaxTriplets int      `json:"maxTriplets" validate:"omitempty,min=1,max=100"`
}

type SymptomAnalysis struct {
	TotalTriplets     int     `json:"totalTriplets"`
	ConnectedSymptoms int     `json:"connectedSymptoms"`
	AvgRelevanceScore float64 `json:"avgRelevanceScore"`
}

type AnalyzeSymptomsResponse struct {
	Symptoms    []string                       `json:"symptoms"`
	Triplets    []knowledgegraph.ScoredTriplet `json:"triplets"`
	Subgraph    knowledgegraph.Subgraph        `json:"subgraph"`
	EdgeWeights []knowledgegraph.PairWeight    `json:"edgeWeights"`
	Analysis    SymptomAnalysis                `json:"analysis"`
}
