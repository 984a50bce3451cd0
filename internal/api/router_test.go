package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/quillform/quillform/internal/middleware"
	"github.com/quillform/quillform/internal/models"
	"github.com/quillform/quillform/internal/services"
)

func newTestHandler(store Store) http.Handler {
	mux := http.NewServeMux()
	NewRouter(store).Register(mux)
	return middleware.WithAuth(mux)
}

func creatorToken(t *testing.T) string {
	t.Helper()
	tok, err := middleware.SignToken("admin", time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	return tok
}

func doJSON(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const draftSurveyJSON = `{
	"title": "Team pulse",
	"creatorName": "Alice",
	"creatorEmail": "alice@example.com",
	"questions": [
		{"type": "scale", "question": "How satisfied are you?"},
		{"type": "radio", "question": "Office or remote?", "options": [
			{"label": "Office"}, {"label": "Remote"}
		]}
	]
}`

func TestCreateSurveyRequiresToken(t *testing.T) {
	h := newTestHandler(NewMemoryStore())

	rec := doJSON(t, h, http.MethodPost, "/api/surveys", "", draftSurveyJSON)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create = %d, want 401", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/surveys", creatorToken(t), draftSurveyJSON)
	if rec.Code != http.StatusCreated {
		t.Fatalf("authenticated create = %d, body %s", rec.Code, rec.Body.String())
	}
	var sv models.Survey
	if err := json.Unmarshal(rec.Body.Bytes(), &sv); err != nil {
		t.Fatalf("parse created survey: %v", err)
	}
	if sv.ID == "" || len(sv.Questions) != 2 {
		t.Fatalf("created survey = %+v", sv)
	}
}

func TestListSurveysIsPublic(t *testing.T) {
	store := NewMemoryStore()
	store.PutSurvey(&models.Survey{ID: "s1", Title: "Open"})
	h := newTestHandler(store)

	rec := doJSON(t, h, http.MethodGet, "/api/surveys", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d, want 200", rec.Code)
	}
	var surveys []*models.Survey
	if err := json.Unmarshal(rec.Body.Bytes(), &surveys); err != nil {
		t.Fatalf("parse list: %v", err)
	}
	if len(surveys) != 1 || surveys[0].ID != "s1" {
		t.Fatalf("list body = %s", rec.Body.String())
	}
}

func TestSubmitAndListResponses(t *testing.T) {
	store := NewMemoryStore()
	store.PutSurvey(&models.Survey{
		ID:    "s1",
		Title: "Pulse",
		Questions: []models.Question{
			{ID: "q1", Type: models.QuestionScale, Question: "Score?", ScaleMin: 1, ScaleMax: 10},
		},
	})
	h := newTestHandler(store)

	rec := doJSON(t, h, http.MethodPost, "/api/surveys/s1/responses", "",
		`{"answers": [{"questionId": "q1", "value": 7}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/surveys/s1/responses", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("pinless results = %d, want 200", rec.Code)
	}
	var responses []*models.SurveyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &responses); err != nil {
		t.Fatalf("parse responses: %v", err)
	}
	if len(responses) != 1 || responses[0].Answers[0].Value.Number != 7 {
		t.Fatalf("responses body = %s", rec.Body.String())
	}
}

func TestResultsPinGate(t *testing.T) {
	store := NewMemoryStore()
	store.PutSurvey(&models.Survey{ID: "s1", Title: "Locked"})
	h := newTestHandler(store)
	tok := creatorToken(t)

	rec := doJSON(t, h, http.MethodPost, "/api/surveys/s1/pin", tok, `{"pin": "4321"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set pin = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/surveys/s1/responses", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("results without pin = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/surveys/s1/responses", nil)
	req.Header.Set("X-Results-Pin", "4321")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("results with pin header = %d, want 200", rec.Code)
	}

	// A creator token bypasses the pin entirely.
	rec = doJSON(t, h, http.MethodGet, "/api/surveys/s1/responses", tok, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("results with token = %d, want 200", rec.Code)
	}
}

func TestExportEndpoint(t *testing.T) {
	store := NewMemoryStore()
	store.PutSurvey(&models.Survey{ID: "s1", Title: "Pulse", Questions: []models.Question{
		{ID: "q1", Type: models.QuestionText, Question: "Comments?"},
	}})
	h := newTestHandler(store)

	rec := doJSON(t, h, http.MethodGet, "/api/surveys/s1/export?format=csv", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("csv export = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("content disposition = %q", cd)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/surveys/s1/export?format=xml", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unsupported format = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/surveys/missing/export", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing survey export = %d, want 404", rec.Code)
	}
}

func TestImportEndpoints(t *testing.T) {
	store := NewMemoryStore()
	h := newTestHandler(store)
	tok := creatorToken(t)

	rec := doJSON(t, h, http.MethodPost, "/api/import/survey", "", `{}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated import = %d, want 401", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/import/survey", tok, `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unparseable import = %d, want 400", rec.Code)
	}
	var res services.SurveyImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("parse import result: %v", err)
	}
	if res.Success || res.Message == "" {
		t.Fatalf("import result = %+v", res)
	}

	doc := `{"id": "ext-1", "title": "Imported", "creatorName": "Bob", "creatorEmail": "b@example.com",
		"questions": [{"id": "q1", "type": "text", "question": "Hi?"}]}`
	rec = doJSON(t, h, http.MethodPost, "/api/import/survey", tok, doc)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid import = %d, body %s", rec.Code, rec.Body.String())
	}
	surveys, _ := store.ListSurveys()
	if len(surveys) != 1 || surveys[0].ID == "ext-1" {
		t.Fatalf("imported survey kept its external id: %+v", surveys)
	}
}

func TestTokenEndpoint(t *testing.T) {
	t.Setenv("QUILLFORM_ADMIN_KEY", "letmein")
	h := newTestHandler(NewMemoryStore())

	rec := doJSON(t, h, http.MethodPost, "/api/auth/token", "", `{"key": "wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key = %d, want 401", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/auth/token", "", `{"key": "letmein"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("right key = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Token == "" {
		t.Fatalf("token body = %s (err %v)", rec.Body.String(), err)
	}
}
