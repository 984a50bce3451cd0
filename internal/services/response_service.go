package services

import (
	"time"

	"github.com/quillform/quillform/internal/ident"
	"github.com/quillform/quillform/internal/models"
)

// ResponseStore abstracts persistence for the submission workflow.
// PutResponse is append-only; responses are never updated in place.
type ResponseStore interface {
	GetSurvey(id string) (*models.Survey, error)
	PutResponse(r *models.SurveyResponse) error
	ListResponsesBySurvey(surveyID string) ([]*models.SurveyResponse, error)
}

// SubmitRequest carries one respondent's answers for a survey.
type SubmitRequest struct {
	SurveyID string
	Answers  []models.Answer
}

// ResponseService validates and persists survey submissions.
type ResponseService struct {
	store ResponseStore
	now   func() time.Time
	newID func() string
}

func NewResponseService(store ResponseStore) *ResponseService {
	return &ResponseService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: ident.NewID,
	}
}

// Submit checks the answers against the survey's questions, assigns the
// response identity and timestamp, and appends it to the store.
func (s *ResponseService) Submit(req SubmitRequest) (*models.SurveyResponse, error) {
	sv, err := s.store.GetSurvey(req.SurveyID)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, NewNotFoundError("survey not found")
	}

	answered := map[string]bool{}
	for i := range req.Answers {
		a := &req.Answers[i]
		q := sv.FindQuestion(a.QuestionID)
		if q == nil {
			return nil, NewInvalidError("answer references unknown question")
		}
		if err := validateAnswer(q, a.Value); err != nil {
			return nil, err
		}
		if !a.Value.IsEmpty() {
			answered[q.ID] = true
		}
	}
	for i := range sv.Questions {
		q := &sv.Questions[i]
		if q.Required && !answered[q.ID] {
			return nil, NewInvalidError("required question not answered: " + q.Question)
		}
	}

	resp := &models.SurveyResponse{
		ID:          s.newID(),
		SurveyID:    sv.ID,
		Answers:     req.Answers,
		SubmittedAt: s.now().Format(time.RFC3339),
	}
	if err := s.store.PutResponse(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListResponses returns every stored response for the survey.
func (s *ResponseService) ListResponses(surveyID string) ([]*models.SurveyResponse, error) {
	sv, err := s.store.GetSurvey(surveyID)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, NewNotFoundError("survey not found")
	}
	return s.store.ListResponsesBySurvey(surveyID)
}

func validateAnswer(q *models.Question, v models.AnswerValue) error {
	switch q.Type {
	case models.QuestionCheckbox:
		if v.Kind != models.ValueList && !v.IsEmpty() {
			return NewInvalidError("checkbox answer must be a list of option ids")
		}
		for _, id := range v.List {
			if q.FindOption(id) == nil {
				return NewInvalidError("checkbox answer references unknown option")
			}
		}
	case models.QuestionRadio:
		if v.IsEmpty() {
			return nil
		}
		if v.Kind != models.ValueText || q.FindOption(v.Text) == nil {
			return NewInvalidError("radio answer must be a known option id")
		}
	case models.QuestionYesNo:
		if v.IsEmpty() {
			return nil
		}
		if v.Kind != models.ValueText || (v.Text != "yes" && v.Text != "no") {
			return NewInvalidError("yes/no answer must be \"yes\" or \"no\"")
		}
	case models.QuestionScale:
		if v.IsEmpty() {
			return nil
		}
		if v.Kind != models.ValueNumber {
			return NewInvalidError("scale answer must be a number")
		}
		n := int(v.Number)
		if n < q.ScaleMin || n > q.ScaleMax {
			return NewInvalidError("scale answer out of range")
		}
	}
	return nil
}
