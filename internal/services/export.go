package services

import (
	"bytes"
	"encoding/csv"
	"regexp"
	"strings"
	"time"

	"github.com/quillform/quillform/internal/models"
)

var filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9]`)

// SanitizeFilename reduces a survey title to a filesystem-safe slug:
// alphanumerics kept, everything else replaced by underscore, lowercased.
func SanitizeFilename(title string) string {
	return strings.ToLower(filenameUnsafe.ReplaceAllString(title, "_"))
}

// ExportResponsesCSV renders the tabular document: a header of response id,
// timestamp and question texts in survey order, then one row per response.
// Cells hold the stringified scalar, list values joined with "; ", or the
// empty string when the question was not answered. encoding/csv quotes and
// escapes embedded quote characters by doubling them.
func ExportResponsesCSV(sv *models.Survey, responses []*models.SurveyResponse) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	header := make([]string, 0, 2+len(sv.Questions))
	header = append(header, "Response ID", "Submitted At")
	for i := range sv.Questions {
		header = append(header, sv.Questions[i].Question)
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, r := range responses {
		row := make([]string, 0, len(header))
		row = append(row, r.ID, r.SubmittedAt)
		for i := range sv.Questions {
			if a := r.FindAnswer(sv.Questions[i].ID); a != nil {
				row = append(row, a.Value.String())
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// FilterResponsesByDate keeps responses submitted within the inclusive
// [start, end] window. Bounds are date-only (2006-01-02) or full RFC 3339
// strings; an empty bound is open. A date-only end bound covers the whole
// day. Responses whose timestamp cannot be parsed are dropped while a filter
// is active.
func FilterResponsesByDate(responses []*models.SurveyResponse, start, end string) []*models.SurveyResponse {
	if start == "" && end == "" {
		return responses
	}
	startT, okStart := parseBound(start, false)
	endT, okEnd := parseBound(end, true)

	out := make([]*models.SurveyResponse, 0, len(responses))
	for _, r := range responses {
		at, err := parseTimestamp(r.SubmittedAt)
		if err != nil {
			continue
		}
		if okStart && at.Before(startT) {
			continue
		}
		if okEnd && at.After(endT) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func parseBound(s string, isEnd bool) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	if isEnd {
		// widen to the end of the day
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t, true
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
