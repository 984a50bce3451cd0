package services

import (
	"errors"
	"fmt"

	"github.com/quillform/quillform/internal/models"
)

// stubStore is an in-memory store used across the service tests. failPuts
// simulates a backing-store write failure.
type stubStore struct {
	surveys   []*models.Survey
	responses []*models.SurveyResponse
	failPuts  bool
}

var errStubWrite = errors.New("stub store: write failed")

func (s *stubStore) PutSurvey(sv *models.Survey) error {
	if s.failPuts {
		return errStubWrite
	}
	for i, existing := range s.surveys {
		if existing.ID == sv.ID {
			s.surveys[i] = sv
			return nil
		}
	}
	s.surveys = append(s.surveys, sv)
	return nil
}

func (s *stubStore) GetSurvey(id string) (*models.Survey, error) {
	for _, sv := range s.surveys {
		if sv.ID == id {
			return sv, nil
		}
	}
	return nil, nil
}

func (s *stubStore) ListSurveys() ([]*models.Survey, error) {
	return append([]*models.Survey(nil), s.surveys...), nil
}

func (s *stubStore) DeleteSurvey(id string) error {
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

func (s *stubStore) PutResponse(r *models.SurveyResponse) error {
	if s.failPuts {
		return errStubWrite
	}
	s.responses = append(s.responses, r)
	return nil
}

func (s *stubStore) ListResponses() ([]*models.SurveyResponse, error) {
	return append([]*models.SurveyResponse(nil), s.responses...), nil
}

func (s *stubStore) ListResponsesBySurvey(surveyID string) ([]*models.SurveyResponse, error) {
	out := []*models.SurveyResponse{}
	for _, r := range s.responses {
		if r.SurveyID == surveyID {
			out = append(out, r)
		}
	}
	return out, nil
}

// seqIDs returns a deterministic id generator for tests.
func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}
