package models

import "time"

// GradingRequestedEvent is the queue message for an asynchronous grading job.
type GradingRequestedEvent struct {
	ReportID  string       `json:"report_id"`
	Request   GradeRequest `json:"request"`
	Timestamp int64        `json:"timestamp"`
}

type GradingCompletedEvent struct {
	ReportID    string    `json:"report_id"`
	Status      string    `json:"status"`
	TotalScore  float64   `json:"total_score"`
	MaxScore    float64   `json:"max_score"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}
