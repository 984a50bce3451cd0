package models

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionText     QuestionType = "text"
	QuestionTextarea QuestionType = "textarea"
	QuestionRadio    QuestionType = "radio"
	QuestionCheckbox QuestionType = "checkbox"
	QuestionScale    QuestionType = "scale"
	QuestionYesNo    QuestionType = "yesno"
)

// QuestionOption is one selectable choice of a radio or checkbox question.
type QuestionOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Question is one prompt within a survey. IDs are unique within the owning
// survey's question list but not across surveys.
type Question struct {
	ID       string           `json:"id"`
	Type     QuestionType     `json:"type"`
	Question string           `json:"question"`
	Required bool             `json:"required"`
	Options  []QuestionOption `json:"options,omitempty"`
	ScaleMin int              `json:"scaleMin,omitempty"`
	ScaleMax int              `json:"scaleMax,omitempty"`
}

// Survey is a named, ordered set of questions plus creator metadata.
// Question order is meaningful (display and export column order).
// Timestamps are ISO-8601 strings so they round-trip through documents
// byte-for-byte.
type Survey struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	CreatorName         string     `json:"creatorName"`
	CreatorEmail        string     `json:"creatorEmail"`
	CreatorOrganization string     `json:"creatorOrganization,omitempty"`
	Questions           []Question `json:"questions"`
	CreatedAt           string     `json:"createdAt"`
	UpdatedAt           string     `json:"updatedAt"`
	ResultsPin          string     `json:"resultsPin,omitempty"`
	PinSalt             string     `json:"pinSalt,omitempty"`
}

// Answer is one respondent's value for one question. QuestionText is an
// optional out-of-band hint carried by some exports; it is only consulted
// as a fallback matching key during response import.
type Answer struct {
	QuestionID   string      `json:"questionId"`
	QuestionText string      `json:"questionText,omitempty"`
	Value        AnswerValue `json:"value"`
}

// SurveyResponse is one respondent's full set of answers, submitted once and
// immutable thereafter. It belongs to a survey by back-reference, never by
// containment.
type SurveyResponse struct {
	ID          string   `json:"id"`
	SurveyID    string   `json:"surveyId"`
	Answers     []Answer `json:"answers"`
	SubmittedAt string   `json:"submittedAt"`
}

// FindQuestion returns the question with the given id, or nil.
func (s *Survey) FindQuestion(id string) *Question {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i]
		}
	}
	return nil
}

// FindOption returns the option with the given id, or nil.
func (q *Question) FindOption(id string) *QuestionOption {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i]
		}
	}
	return nil
}

// FindAnswer returns the answer referencing the given question id, or nil.
func (r *SurveyResponse) FindAnswer(questionID string) *Answer {
	for i := range r.Answers {
		if r.Answers[i].QuestionID == questionID {
			return &r.Answers[i]
		}
	}
	return nil
}
