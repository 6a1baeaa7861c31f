package models

import (
	"encoding/json"
	"time"
)

type Report struct {
	ID           string          `json:"id" db:"id"`
	Status       string          `json:"status" db:"status"`
	Topic        string          `json:"topic" db:"topic"`
	RubricName   string          `json:"rubric_name" db:"rubric_name"`
	EssayText    string          `json:"essay_text,omitempty" db:"essay_text"`
	Request      json.RawMessage `json:"request,omitempty" db:"request"`
	TotalScore   *float64        `json:"total_score,omitempty" db:"total_score"`
	MaxScore     *float64        `json:"max_score,omitempty" db:"max_score"`
	Result       json.RawMessage `json:"result,omitempty" db:"result"`
	ErrorMessage string          `json:"error_message,omitempty" db:"error_message"`
	ArchiveKey   string          `json:"archive_key,omitempty" db:"archive_key"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusProcessing ReportStatus = "processing"
	ReportStatusCompleted  ReportStatus = "completed"
	ReportStatusFailed     ReportStatus = "failed"
)

func (rs ReportStatus) String() string {
	return string(rs)
}
