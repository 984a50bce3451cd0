package services

import "github.com/quillform/quillform/internal/models"

// ExportVersion tags every versioned document this service produces.
const ExportVersion = "1.0"

// BackupDocument is the full-backup shape: every survey and every response,
// unfiltered.
type BackupDocument struct {
	Surveys    []*models.Survey         `json:"surveys"`
	Responses  []*models.SurveyResponse `json:"responses"`
	ExportedAt string                   `json:"exportedAt"`
	Version    string                   `json:"version"`
}

// SurveyResponsesDocument pairs one survey with its responses. Metadata is
// present only on date-filtered exports.
type SurveyResponsesDocument struct {
	Survey     *models.Survey           `json:"survey"`
	Responses  []*models.SurveyResponse `json:"responses"`
	ExportedAt string                   `json:"exportedAt,omitempty"`
	Metadata   *ExportMetadata          `json:"metadata,omitempty"`
}

type ExportMetadata struct {
	TotalResponses int       `json:"totalResponses"`
	DateRange      DateRange `json:"dateRange"`
	ExportedAt     string    `json:"exportedAt"`
	Version        string    `json:"version"`
}

// DateRange records the requested bounds with "all" as the open sentinel.
type DateRange struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Filtered bool   `json:"filtered"`
}
