package services

import (
	"encoding/json"
	"time"

	"github.com/quillform/quillform/internal/models"
)

// ExportStore abstracts the reads required by ExportService.
type ExportStore interface {
	GetSurvey(id string) (*models.Survey, error)
	ListSurveys() ([]*models.Survey, error)
	ListResponses() ([]*models.SurveyResponse, error)
	ListResponsesBySurvey(surveyID string) ([]*models.SurveyResponse, error)
}

// ExportResult is a rendered document ready for download.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

const (
	jsonContentType = "application/json; charset=utf-8"
	csvContentType  = "text/csv; charset=utf-8"
)

// ExportService produces the four portable document shapes from store
// contents. A missing survey yields a nil result with no error; callers are
// expected to have validated existence.
type ExportService struct {
	store ExportStore
	now   func() time.Time
}

func NewExportService(store ExportStore) *ExportService {
	return &ExportService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SurveyJSON exports the survey entity verbatim.
func (s *ExportService) SurveyJSON(surveyID string) (*ExportResult, error) {
	sv, err := s.store.GetSurvey(surveyID)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, nil
	}
	data, err := json.MarshalIndent(sv, "", "  ")
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    "survey_" + SanitizeFilename(sv.Title) + "_" + sv.ID + ".json",
		ContentType: jsonContentType,
		Data:        data,
	}, nil
}

// SurveyWithResponses exports the survey together with all of its responses.
func (s *ExportService) SurveyWithResponses(surveyID string) (*ExportResult, error) {
	sv, err := s.store.GetSurvey(surveyID)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, nil
	}
	responses, err := s.store.ListResponsesBySurvey(surveyID)
	if err != nil {
		return nil, err
	}
	doc := SurveyResponsesDocument{
		Survey:     sv,
		Responses:  responses,
		ExportedAt: s.now().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    "full_survey_" + sv.ID + ".json",
		ContentType: jsonContentType,
		Data:        data,
	}, nil
}

// FilteredResponsesJSON exports the survey with its responses inside an
// inclusive [start, end] window, plus metadata describing the filter.
func (s *ExportService) FilteredResponsesJSON(surveyID, start, end string) (*ExportResult, error) {
	sv, err := s.store.GetSurvey(surveyID)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, nil
	}
	responses, err := s.store.ListResponsesBySurvey(surveyID)
	if err != nil {
		return nil, err
	}
	responses = FilterResponsesByDate(responses, start, end)

	exportedAt := s.now().Format(time.RFC3339)
	doc := SurveyResponsesDocument{
		Survey:    sv,
		Responses: responses,
		Metadata: &ExportMetadata{
			TotalResponses: len(responses),
			DateRange:      newDateRange(start, end),
			ExportedAt:     exportedAt,
			Version:        ExportVersion,
		},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    "responses_" + SanitizeFilename(sv.Title) + "_" + sv.ID + rangeSuffix(start, end) + ".json",
		ContentType: jsonContentType,
		Data:        data,
	}, nil
}

// ResponsesCSV exports the tabular document, optionally date-filtered.
func (s *ExportService) ResponsesCSV(surveyID, start, end string) (*ExportResult, error) {
	sv, err := s.store.GetSurvey(surveyID)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, nil
	}
	responses, err := s.store.ListResponsesBySurvey(surveyID)
	if err != nil {
		return nil, err
	}
	responses = FilterResponsesByDate(responses, start, end)

	data, err := ExportResponsesCSV(sv, responses)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    "responses_" + SanitizeFilename(sv.Title) + "_" + sv.ID + rangeSuffix(start, end) + ".csv",
		ContentType: csvContentType,
		Data:        data,
	}, nil
}

// FullBackup exports every survey and every response.
func (s *ExportService) FullBackup() (*ExportResult, error) {
	surveys, err := s.store.ListSurveys()
	if err != nil {
		return nil, err
	}
	responses, err := s.store.ListResponses()
	if err != nil {
		return nil, err
	}
	now := s.now()
	doc := BackupDocument{
		Surveys:    surveys,
		Responses:  responses,
		ExportedAt: now.Format(time.RFC3339),
		Version:    ExportVersion,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    "all_surveys_backup_" + now.Format("2006-01-02") + ".json",
		ContentType: jsonContentType,
		Data:        data,
	}, nil
}

// DateStats summarizes the submission window of a survey's responses,
// backing the export UI defaults.
type DateStats struct {
	Total        int    `json:"total"`
	EarliestDate string `json:"earliestDate,omitempty"`
	LatestDate   string `json:"latestDate,omitempty"`
}

func (s *ExportService) DateStats(surveyID string) (*DateStats, error) {
	responses, err := s.store.ListResponsesBySurvey(surveyID)
	if err != nil {
		return nil, err
	}
	stats := &DateStats{Total: len(responses)}
	var earliest, latest time.Time
	for _, r := range responses {
		at, err := parseTimestamp(r.SubmittedAt)
		if err != nil {
			continue
		}
		if earliest.IsZero() || at.Before(earliest) {
			earliest = at
		}
		if latest.IsZero() || at.After(latest) {
			latest = at
		}
	}
	if !earliest.IsZero() {
		stats.EarliestDate = earliest.Format("2006-01-02")
		stats.LatestDate = latest.Format("2006-01-02")
	}
	return stats, nil
}

func newDateRange(start, end string) DateRange {
	dr := DateRange{Start: start, End: end, Filtered: start != "" || end != ""}
	if dr.Start == "" {
		dr.Start = "all"
	}
	if dr.End == "" {
		dr.End = "all"
	}
	return dr
}

func rangeSuffix(start, end string) string {
	if start == "" && end == "" {
		return "_all"
	}
	if start == "" {
		start = "start"
	}
	if end == "" {
		end = "end"
	}
	return "_" + start + "_to_" + end
}
