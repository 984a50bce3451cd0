package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quillform/quillform/internal/ident"
	"github.com/quillform/quillform/internal/models"
)

// ImportStore abstracts the persistence operations required by the import
// workflows.
type ImportStore interface {
	GetSurvey(id string) (*models.Survey, error)
	PutSurvey(sv *models.Survey) error
	ListResponses() ([]*models.SurveyResponse, error)
	ListResponsesBySurvey(surveyID string) ([]*models.SurveyResponse, error)
	PutResponse(r *models.SurveyResponse) error
}

// ImportOptions tunes per-import policy.
type ImportOptions struct {
	// KeepEmptyResponses imports responses whose answers were all dropped
	// during reconciliation instead of skipping them. Skipped responses are
	// counted either way.
	KeepEmptyResponses bool
}

// SurveyImportResult reports a lone-survey import.
type SurveyImportResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Survey  *models.Survey `json:"survey,omitempty"`
}

// ResponseImportResult reports a response import against a target survey.
type ResponseImportResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ImportedCount int    `json:"importedCount"`
	SkippedEmpty  int    `json:"skippedEmpty,omitempty"`
}

// BackupImportResult reports a full-backup import.
type BackupImportResult struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	ImportedSurveys   int    `json:"importedSurveys"`
	ImportedResponses int    `json:"importedResponses"`
}

// ImportService is the reconciliation engine. Each entry point consumes an
// untrusted document, re-establishes referential integrity against the
// current store contents, and reports a structured result. Nothing at this
// boundary panics or returns an error; malformed input, identity conflicts
// and store failures all become failure results.
//
// Reconciliation runs in two phases: first an identifier map from imported
// ids to store ids is built (by structural text+type matching, or by exact
// id), then nested references are rewritten through that completed map. The
// map lives only for the duration of one import.
type ImportService struct {
	store ImportStore
	opts  ImportOptions
	now   func() time.Time
	newID func() string
}

func NewImportService(store ImportStore, opts ImportOptions) *ImportService {
	return &ImportService{
		store: store,
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC() },
		newID: ident.NewID,
	}
}

const (
	msgUnparseable         = "could not parse file as JSON"
	msgInvalidSurveyDoc    = "invalid file format: the file must contain a survey with an id, a title and a questions array"
	msgSurveyExists        = "survey already exists; delete it first or change the survey id"
	msgInvalidQuestion     = "invalid question structure: every question needs text and a type"
	msgInvalidResponsesDoc = "invalid file format: the file must contain a responses array"
	msgTargetMissing       = "target survey does not exist"
	msgInvalidBackupDoc    = "invalid file format: the file must contain a surveys array"
)

// ImportSurvey ingests a lone survey document. The imported identifiers are
// foreign and untrusted: the survey and every nested question and option
// receive fresh ids unconditionally, and both timestamps are reset.
func (s *ImportService) ImportSurvey(data []byte) *SurveyImportResult {
	var sv models.Survey
	if err := json.Unmarshal(data, &sv); err != nil {
		if isShapeError(err) {
			return &SurveyImportResult{Message: msgInvalidSurveyDoc}
		}
		return &SurveyImportResult{Message: msgUnparseable}
	}
	if sv.ID == "" || sv.Title == "" || sv.Questions == nil {
		return &SurveyImportResult{Message: msgInvalidSurveyDoc}
	}

	// Duplicate-submission guard on the incoming id, not a content check.
	existing, err := s.store.GetSurvey(sv.ID)
	if err != nil {
		return &SurveyImportResult{Message: err.Error()}
	}
	if existing != nil {
		return &SurveyImportResult{Message: msgSurveyExists}
	}

	for i := range sv.Questions {
		q := &sv.Questions[i]
		if strings.TrimSpace(q.Question) == "" || q.Type == "" {
			// No partial question import: one bad question fails the file.
			return &SurveyImportResult{Message: msgInvalidQuestion}
		}
	}

	now := s.now().Format(time.RFC3339)
	sv.ID = s.newID()
	sv.CreatedAt = now
	sv.UpdatedAt = now
	for i := range sv.Questions {
		q := &sv.Questions[i]
		q.ID = s.newID()
		for j := range q.Options {
			q.Options[j].ID = s.newID()
		}
	}

	if err := s.store.PutSurvey(&sv); err != nil {
		return &SurveyImportResult{Message: err.Error()}
	}
	return &SurveyImportResult{
		Success: true,
		Message: "survey imported successfully",
		Survey:  &sv,
	}
}

// ImportResponses ingests responses for an existing target survey. Three
// document shapes are accepted, in priority order: {survey, responses},
// {responses}, or a bare response array. When the originating survey is
// present its questions are matched against the target's by trimmed
// case-insensitive text plus identical type; otherwise matching falls back
// to exact question ids and the optional questionText hint on answers.
func (s *ImportService) ImportResponses(data []byte, targetSurveyID string) *ResponseImportResult {
	incomingSurvey, records, failMsg := decodeResponsesDocument(data)
	if failMsg != "" {
		return &ResponseImportResult{Message: failMsg}
	}

	target, err := s.store.GetSurvey(targetSurveyID)
	if err != nil {
		return &ResponseImportResult{Message: err.Error()}
	}
	if target == nil {
		return &ResponseImportResult{Message: msgTargetMissing}
	}

	// Phase 1: identifier map, imported question id -> target question id.
	questionIDMap := map[string]string{}
	if incomingSurvey != nil {
		for i := range incomingSurvey.Questions {
			imported := &incomingSurvey.Questions[i]
			if match := matchQuestion(target, imported); match != nil {
				questionIDMap[imported.ID] = match.ID
			}
		}
	} else {
		// Weaker fallback without the originating survey: direct id equality
		// or the answer's out-of-band question text.
		for _, r := range records {
			if r == nil {
				continue
			}
			for i := range r.Answers {
				a := &r.Answers[i]
				for j := range target.Questions {
					tq := &target.Questions[j]
					if tq.Question == a.QuestionText || tq.ID == a.QuestionID {
						if a.QuestionID != tq.ID {
							questionIDMap[a.QuestionID] = tq.ID
						}
						break
					}
				}
			}
		}
	}

	existing, err := s.store.ListResponsesBySurvey(target.ID)
	if err != nil {
		return &ResponseImportResult{Message: err.Error()}
	}
	existingIDs := make(map[string]bool, len(existing))
	for _, r := range existing {
		existingIDs[r.ID] = true
	}
	targetQuestions := make(map[string]bool, len(target.Questions))
	for i := range target.Questions {
		targetQuestions[target.Questions[i].ID] = true
	}

	// Phase 2: rewrite references through the completed map, record by
	// record. Bad records are skipped, never fatal.
	result := &ResponseImportResult{}
	for _, r := range records {
		if r == nil || r.ID == "" || r.Answers == nil {
			continue
		}
		if existingIDs[r.ID] {
			continue
		}

		imported := &models.SurveyResponse{
			ID:          s.newID(),
			SurveyID:    target.ID,
			SubmittedAt: r.SubmittedAt,
		}
		if imported.SubmittedAt == "" {
			imported.SubmittedAt = s.now().Format(time.RFC3339)
		}
		for _, a := range r.Answers {
			if mapped, ok := questionIDMap[a.QuestionID]; ok {
				a.QuestionID = mapped
			}
			if !targetQuestions[a.QuestionID] {
				continue
			}
			imported.Answers = append(imported.Answers, a)
		}

		if len(imported.Answers) == 0 && !s.opts.KeepEmptyResponses {
			result.SkippedEmpty++
			continue
		}
		if err := s.store.PutResponse(imported); err != nil {
			result.Message = err.Error()
			return result
		}
		result.ImportedCount++
	}

	result.Success = true
	result.Message = fmt.Sprintf("%d response(s) imported successfully", result.ImportedCount)
	return result
}

// ImportBackup ingests a full-backup document. Surveys are reconciled by
// exact incoming id: present ids are skipped wholesale, absent ones are
// re-identified and persisted while the survey and question maps record the
// old->new correspondence. Responses whose owning survey has no map entry
// are irrecoverably orphaned and dropped.
func (s *ImportService) ImportBackup(data []byte) *BackupImportResult {
	var doc struct {
		Surveys   []json.RawMessage `json:"surveys"`
		Responses []json.RawMessage `json:"responses"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		if isShapeError(err) {
			return &BackupImportResult{Message: msgInvalidBackupDoc}
		}
		return &BackupImportResult{Message: msgUnparseable}
	}
	if doc.Surveys == nil {
		return &BackupImportResult{Message: msgInvalidBackupDoc}
	}

	result := &BackupImportResult{}
	surveyIDMap := map[string]string{}
	questionIDMap := map[string]string{}

	for _, raw := range doc.Surveys {
		var sv models.Survey
		if err := json.Unmarshal(raw, &sv); err != nil {
			continue
		}
		existing, err := s.store.GetSurvey(sv.ID)
		if err != nil {
			result.Message = err.Error()
			return result
		}
		if existing != nil {
			// Exact-id duplicate: skipped entirely, no update, no merge.
			continue
		}

		newID := s.newID()
		surveyIDMap[sv.ID] = newID
		sv.ID = newID
		if sv.CreatedAt == "" {
			sv.CreatedAt = s.now().Format(time.RFC3339)
		}
		sv.UpdatedAt = s.now().Format(time.RFC3339)
		for i := range sv.Questions {
			q := &sv.Questions[i]
			newQID := s.newID()
			questionIDMap[q.ID] = newQID
			q.ID = newQID
			for j := range q.Options {
				q.Options[j].ID = s.newID()
			}
		}
		if err := s.store.PutSurvey(&sv); err != nil {
			result.Message = err.Error()
			return result
		}
		result.ImportedSurveys++
	}

	if doc.Responses != nil {
		all, err := s.store.ListResponses()
		if err != nil {
			result.Message = err.Error()
			return result
		}
		existingIDs := make(map[string]bool, len(all))
		for _, r := range all {
			existingIDs[r.ID] = true
		}

		for _, raw := range doc.Responses {
			var r models.SurveyResponse
			if err := json.Unmarshal(raw, &r); err != nil {
				continue
			}
			if r.ID == "" || existingIDs[r.ID] {
				continue
			}
			newSurveyID, ok := surveyIDMap[r.SurveyID]
			if !ok {
				continue
			}
			r.ID = s.newID()
			r.SurveyID = newSurveyID
			if r.SubmittedAt == "" {
				r.SubmittedAt = s.now().Format(time.RFC3339)
			}
			for i := range r.Answers {
				if mapped, ok := questionIDMap[r.Answers[i].QuestionID]; ok {
					r.Answers[i].QuestionID = mapped
				}
			}
			if err := s.store.PutResponse(&r); err != nil {
				result.Message = err.Error()
				return result
			}
			result.ImportedResponses++
		}
	}

	result.Success = true
	result.Message = fmt.Sprintf("imported %d survey(s) and %d response(s) successfully",
		result.ImportedSurveys, result.ImportedResponses)
	return result
}

// decodeResponsesDocument resolves the three accepted response document
// shapes. Records are decoded individually so one malformed record cannot
// poison the batch; a record that fails to decode yields a nil entry.
func decodeResponsesDocument(data []byte) (*models.Survey, []*models.SurveyResponse, string) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil, msgUnparseable
	}

	var rawRecords []json.RawMessage
	var incomingSurvey *models.Survey

	if trimmed[0] == '{' {
		var doc struct {
			Survey    json.RawMessage `json:"survey"`
			Responses json.RawMessage `json:"responses"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, nil, msgUnparseable
		}
		if doc.Responses == nil {
			return nil, nil, msgInvalidResponsesDoc
		}
		if err := json.Unmarshal(doc.Responses, &rawRecords); err != nil {
			return nil, nil, msgInvalidResponsesDoc
		}
		if doc.Survey != nil {
			var sv models.Survey
			if err := json.Unmarshal(doc.Survey, &sv); err == nil {
				incomingSurvey = &sv
			}
		}
	} else if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &rawRecords); err != nil {
			return nil, nil, msgUnparseable
		}
	} else {
		return nil, nil, msgUnparseable
	}

	records := make([]*models.SurveyResponse, len(rawRecords))
	for i, raw := range rawRecords {
		var r models.SurveyResponse
		if err := json.Unmarshal(raw, &r); err != nil {
			continue
		}
		records[i] = &r
	}
	return incomingSurvey, records, ""
}

// matchQuestion finds the target question structurally equivalent to the
// imported one: identical type and the same prompt text after trimming and
// case folding.
func matchQuestion(target *models.Survey, imported *models.Question) *models.Question {
	want := normalizeQuestionText(imported.Question)
	for i := range target.Questions {
		tq := &target.Questions[i]
		if tq.Type == imported.Type && normalizeQuestionText(tq.Question) == want {
			return tq
		}
	}
	return nil
}

func normalizeQuestionText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// isShapeError reports whether the unmarshal failure was a well-formed
// document of the wrong shape, as opposed to unparseable input.
func isShapeError(err error) bool {
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr)
}
