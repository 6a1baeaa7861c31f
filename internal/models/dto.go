package models

// Data Transfer Objects

type GradeRequest struct {
	EssayText string      `json:"essay_text"`
	KeyPoints KeyPointSet `json:"key_points"`
	Rubric    Rubric      `json:"rubric"`
}

type AsyncGradeResponse struct {
	ReportID  string `json:"report_id"`
	Status    string `json:"status"`
	StatusURL string `json:"status_url"`
}

type ListReportsResponse struct {
	Reports []Report `json:"reports"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

type HealthCheckResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}
