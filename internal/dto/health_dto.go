package dto

import (
	"time"

	"medrag-be/pkg/knowledgegraph"
	"medrag-be/pkg/similarity"
)

type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Timestamp  time.Time         `json:"timestamp"`
	Services   map[string]string `json:"services"`
	ActiveJobs int               `json:"activeJobs"`
}

type RecordCounts struct {
	Patients int64 `json:"patients"`
	Feedback int64 `json:"feedback"`
}

type StatsResponse struct {
	Similarity     similarity.Stats     `json:"similarity"`
	KnowledgeGraph knowledgegraph.Stats `json:"knowledgeGraph"`
	Records        RecordCounts         `json:"records"`
	ActiveJobs     int                  `json:"activeJobs"`
}
