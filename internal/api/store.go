package api

import (
	"sync"

	"github.com/quillform/quillform/internal/models"
)

// MemoryStore is the process-local Store implementation. Surveys keep their
// creation order; an upsert replaces in place. Responses are append-only.
type MemoryStore struct {
	mu        sync.RWMutex
	surveys   []*models.Survey
	responses []*models.SurveyResponse
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) PutSurvey(sv *models.Survey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.surveys {
		if existing.ID == sv.ID {
			s.surveys[i] = sv
			return nil
		}
	}
	s.surveys = append(s.surveys, sv)
	return nil
}

func (s *MemoryStore) GetSurvey(id string) (*models.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sv := range s.surveys {
		if sv.ID == id {
			return sv, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListSurveys() ([]*models.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Survey(nil), s.surveys...), nil
}

// DeleteSurvey removes the survey and cascades to every response whose
// surveyId references it.
func (s *MemoryStore) DeleteSurvey(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.surveys[:0]
	for _, sv := range s.surveys {
		if sv.ID != id {
			kept = append(kept, sv)
		}
	}
	s.surveys = kept

	keptResponses := s.responses[:0]
	for _, r := range s.responses {
		if r.SurveyID != id {
			keptResponses = append(keptResponses, r)
		}
	}
	s.responses = keptResponses
	return nil
}

func (s *MemoryStore) PutResponse(r *models.SurveyResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, r)
	return nil
}

func (s *MemoryStore) ListResponses() ([]*models.SurveyResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.SurveyResponse(nil), s.responses...), nil
}

func (s *MemoryStore) ListResponsesBySurvey(surveyID string) ([]*models.SurveyResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.SurveyResponse{}
	for _, r := range s.responses {
		if r.SurveyID == surveyID {
			out = append(out, r)
		}
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
