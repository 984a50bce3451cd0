package api

import (
	"testing"

	"github.com/quillform/quillform/internal/models"
)

func TestMemoryStoreUpsertKeepsOrder(t *testing.T) {
	store := NewMemoryStore()
	store.PutSurvey(&models.Survey{ID: "a", Title: "First"})
	store.PutSurvey(&models.Survey{ID: "b", Title: "Second"})
	store.PutSurvey(&models.Survey{ID: "a", Title: "First edited"})

	surveys, err := store.ListSurveys()
	if err != nil {
		t.Fatalf("ListSurveys: %v", err)
	}
	if len(surveys) != 2 {
		t.Fatalf("surveys = %d, want 2", len(surveys))
	}
	if surveys[0].ID != "a" || surveys[0].Title != "First edited" {
		t.Fatalf("upsert moved or missed the survey: %+v", surveys[0])
	}
	if surveys[1].ID != "b" {
		t.Fatalf("order changed: %+v", surveys[1])
	}
}

func TestMemoryStoreGetMissingIsNil(t *testing.T) {
	store := NewMemoryStore()
	sv, err := store.GetSurvey("missing")
	if err != nil {
		t.Fatalf("GetSurvey: %v", err)
	}
	if sv != nil {
		t.Fatalf("survey = %+v, want nil", sv)
	}
}

func TestMemoryStoreDeleteCascades(t *testing.T) {
	store := NewMemoryStore()
	store.PutSurvey(&models.Survey{ID: "a"})
	store.PutSurvey(&models.Survey{ID: "b"})
	store.PutResponse(&models.SurveyResponse{ID: "r1", SurveyID: "a"})
	store.PutResponse(&models.SurveyResponse{ID: "r2", SurveyID: "a"})
	store.PutResponse(&models.SurveyResponse{ID: "r3", SurveyID: "b"})

	if err := store.DeleteSurvey("a"); err != nil {
		t.Fatalf("DeleteSurvey: %v", err)
	}
	if sv, _ := store.GetSurvey("a"); sv != nil {
		t.Fatalf("survey a still present")
	}
	all, _ := store.ListResponses()
	if len(all) != 1 || all[0].ID != "r3" {
		t.Fatalf("responses after cascade = %d, want only r3", len(all))
	}
}

func TestMemoryStoreListResponsesBySurvey(t *testing.T) {
	store := NewMemoryStore()
	store.PutResponse(&models.SurveyResponse{ID: "r1", SurveyID: "a"})
	store.PutResponse(&models.SurveyResponse{ID: "r2", SurveyID: "b"})
	store.PutResponse(&models.SurveyResponse{ID: "r3", SurveyID: "a"})

	got, err := store.ListResponsesBySurvey("a")
	if err != nil {
		t.Fatalf("ListResponsesBySurvey: %v", err)
	}
	if len(got) != 2 || got[0].ID != "r1" || got[1].ID != "r3" {
		t.Fatalf("filtered responses = %+v", got)
	}
}
