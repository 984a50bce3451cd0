package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/quillform/quillform/internal/ident"
	"github.com/quillform/quillform/internal/models"
)

// SurveyStore abstracts the persistence operations required by SurveyService.
// PutSurvey upserts by id; DeleteSurvey cascades to the survey's responses.
type SurveyStore interface {
	PutSurvey(sv *models.Survey) error
	GetSurvey(id string) (*models.Survey, error)
	ListSurveys() ([]*models.Survey, error)
	DeleteSurvey(id string) error
}

const (
	defaultScaleMin = 1
	defaultScaleMax = 5
)

// SurveyService hosts authoring operations: create, update, delete (with
// response cascade) and the optional results PIN.
type SurveyService struct {
	store SurveyStore
	now   func() time.Time
	newID func() string
}

func NewSurveyService(store SurveyStore) *SurveyService {
	return &SurveyService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: ident.NewID,
	}
}

// CreateSurvey assigns fresh identifiers to the survey and every nested
// question and option, stamps both timestamps, and persists.
func (s *SurveyService) CreateSurvey(sv *models.Survey) (*models.Survey, error) {
	if sv == nil {
		return nil, NewInvalidError("survey required")
	}
	if strings.TrimSpace(sv.Title) == "" {
		return nil, NewInvalidError("title required")
	}
	if strings.TrimSpace(sv.CreatorName) == "" || strings.TrimSpace(sv.CreatorEmail) == "" {
		return nil, NewInvalidError("creator name and email required")
	}
	if err := validateQuestions(sv.Questions); err != nil {
		return nil, err
	}

	sv.ID = s.newID()
	now := s.now().Format(time.RFC3339)
	sv.CreatedAt = now
	sv.UpdatedAt = now
	for i := range sv.Questions {
		q := &sv.Questions[i]
		q.ID = s.newID()
		for j := range q.Options {
			q.Options[j].ID = s.newID()
		}
		if q.Type == models.QuestionScale && q.ScaleMin == 0 && q.ScaleMax == 0 {
			q.ScaleMin = defaultScaleMin
			q.ScaleMax = defaultScaleMax
		}
	}
	if err := s.store.PutSurvey(sv); err != nil {
		return nil, err
	}
	return sv, nil
}

// UpdateSurvey replaces an existing survey. The creation timestamp is
// preserved; questions or options added by the edit receive fresh ids while
// existing ids are kept so that prior responses still resolve.
func (s *SurveyService) UpdateSurvey(sv *models.Survey) (*models.Survey, error) {
	if sv == nil || sv.ID == "" {
		return nil, NewInvalidError("survey id required")
	}
	existing, err := s.store.GetSurvey(sv.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, NewNotFoundError("survey not found")
	}
	if strings.TrimSpace(sv.Title) == "" {
		return nil, NewInvalidError("title required")
	}
	if err := validateQuestions(sv.Questions); err != nil {
		return nil, err
	}

	sv.CreatedAt = existing.CreatedAt
	sv.UpdatedAt = s.now().Format(time.RFC3339)
	if sv.ResultsPin == "" {
		sv.ResultsPin = existing.ResultsPin
		sv.PinSalt = existing.PinSalt
	}
	for i := range sv.Questions {
		q := &sv.Questions[i]
		if q.ID == "" {
			q.ID = s.newID()
		}
		for j := range q.Options {
			if q.Options[j].ID == "" {
				q.Options[j].ID = s.newID()
			}
		}
	}
	if err := s.store.PutSurvey(sv); err != nil {
		return nil, err
	}
	return sv, nil
}

func (s *SurveyService) GetSurvey(id string) (*models.Survey, error) {
	sv, err := s.store.GetSurvey(id)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, NewNotFoundError("survey not found")
	}
	return sv, nil
}

func (s *SurveyService) ListSurveys() ([]*models.Survey, error) {
	return s.store.ListSurveys()
}

// DeleteSurvey removes the survey and every response referencing it. The
// cascade lives in the store so no orphaned response can survive a partial
// caller.
func (s *SurveyService) DeleteSurvey(id string) error {
	sv, err := s.store.GetSurvey(id)
	if err != nil {
		return err
	}
	if sv == nil {
		return NewNotFoundError("survey not found")
	}
	return s.store.DeleteSurvey(id)
}

// SetResultsPin hashes and stores the PIN protecting the results views.
// An empty pin clears the protection.
func (s *SurveyService) SetResultsPin(id, pin string) error {
	sv, err := s.store.GetSurvey(id)
	if err != nil {
		return err
	}
	if sv == nil {
		return NewNotFoundError("survey not found")
	}
	if strings.TrimSpace(pin) == "" {
		sv.ResultsPin = ""
		sv.PinSalt = ""
		return s.store.PutSurvey(sv)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	sv.ResultsPin = string(hash)
	// bcrypt embeds its own salt; the legacy field stays only for documents
	// that already carry one.
	sv.PinSalt = ""
	return s.store.PutSurvey(sv)
}

// VerifyResultsPin checks a candidate PIN. Surveys without a PIN accept any
// candidate.
func (s *SurveyService) VerifyResultsPin(id, pin string) error {
	sv, err := s.store.GetSurvey(id)
	if err != nil {
		return err
	}
	if sv == nil {
		return NewNotFoundError("survey not found")
	}
	if sv.ResultsPin == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(sv.ResultsPin), []byte(pin)); err != nil {
		return NewUnauthorizedError("invalid pin")
	}
	return nil
}

func validateQuestions(qs []models.Question) error {
	for i := range qs {
		q := &qs[i]
		if strings.TrimSpace(q.Question) == "" {
			return NewInvalidError("question text required")
		}
		switch q.Type {
		case models.QuestionText, models.QuestionTextarea, models.QuestionRadio,
			models.QuestionCheckbox, models.QuestionYesNo:
		case models.QuestionScale:
			if q.ScaleMin != 0 || q.ScaleMax != 0 {
				if q.ScaleMin >= q.ScaleMax {
					return NewInvalidError("scale minimum must be below maximum")
				}
			}
		default:
			return NewInvalidError("unknown question type: " + string(q.Type))
		}
	}
	return nil
}
