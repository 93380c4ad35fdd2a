package dto

import (
	"encoding/json"
	"time"
)

// QuizProcessResponse is returned right after a document is accepted.
type QuizProcessResponse struct {
	JobID     string `json:"jobId"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	SourceURL string `json:"sourceUrl,omitempty"`
}

// QuizJobStatusResponse reports a job's progress and, once finished, its
// result or error text.
type QuizJobStatusResponse struct {
	JobID      string          `json:"jobId"`
	State      string          `json:"state"`
	Progress   int             `json:"progress"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Attempts   int             `json:"attempts"`
	CreatedAt  time.Time       `json:"createdAt"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}
