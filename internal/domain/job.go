package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

const (
	QuizQueueName      = "quiz-processing"
	ProcessQuizJobName = "process-quiz"
)

// ErrLeaseLost is returned when a worker touches a job it no longer holds.
var ErrLeaseLost = errors.New("job lease lost")

// JobState is the lifecycle position of a queued job.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// QuizJobPayload is everything the worker needs; the document bytes are not included.
type QuizJobPayload struct {
	Email             string       `json:"email"`
	Chunks            []string     `json:"chunks"`
	URL               string       `json:"url"`
	NumberOfQuestions int          `json:"numberOfQuestions"`
	QuestionType      QuestionType `json:"questionType"`
	DifficultyLevel   Difficulty   `json:"difficultyLevel"`
	CourseID          string       `json:"courseId"`
	AdditionalNotes   string       `json:"additionalNotes,omitempty"`
	CourseArea        string       `json:"courseArea,omitempty"`
}

// Params rebuilds the generation options carried by the payload.
func (p QuizJobPayload) Params() QuizParams {
	return QuizParams{
		NumberOfQuestions: p.NumberOfQuestions,
		QuestionType:      p.QuestionType,
		DifficultyLevel:   p.DifficultyLevel,
		AdditionalNotes:   p.AdditionalNotes,
		CourseID:          p.CourseID,
		CourseArea:        p.CourseArea,
	}
}

// Job is a leased unit of work.
type Job struct {
	ID       string
	Name     string
	Owner    string
	Payload  json.RawMessage
	Attempts int
}

// JobHandle is returned to the submitter right after enqueue.
type JobHandle struct {
	ID    string
	State JobState
}

// JobStatus is the queryable view of a job.
type JobStatus struct {
	ID         string          `json:"jobId"`
	Name       string          `json:"name"`
	State      JobState        `json:"state"`
	Progress   int             `json:"progress"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Owner      string          `json:"-"`
	Attempts   int             `json:"attempts"`
	CreatedAt  time.Time       `json:"createdAt"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
}

// ProgressFunc receives a job's completion percentage.
type ProgressFunc func(pct int)

// JobQueue is the durable queue between the request path and the workers.
type JobQueue interface {
	Enqueue(ctx context.Context, jobName, owner string, payload interface{}) (*JobHandle, error)
	Lease(ctx context.Context, wait time.Duration) (*Job, error)
	Extend(ctx context.Context, jobID string) error
	Progress(ctx context.Context, jobID string, pct int) error
	Complete(ctx context.Context, jobID string, result interface{}) error
	Fail(ctx context.Context, jobID string, cause error) error
	ReclaimExpired(ctx context.Context) (int, error)
	Status(ctx context.Context, jobID string) (*JobStatus, error)
}
