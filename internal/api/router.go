package api

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/quillform/quillform/internal/middleware"
	"github.com/quillform/quillform/internal/models"
	"github.com/quillform/quillform/internal/services"
)

const maxImportBytes = 10 << 20

// Router wires the HTTP surface to the services. Mutating and export routes
// require a creator token; results routes accept either a token or the
// survey's results PIN.
type Router struct {
	surveys   *services.SurveyService
	responses *services.ResponseService
	exports   *services.ExportService
	imports   *services.ImportService
	analytics *services.AnalyticsService
}

func NewRouter(store Store) *Router {
	keepEmpty := os.Getenv("QUILLFORM_KEEP_EMPTY_RESPONSES") == "1"
	return &Router{
		surveys:   services.NewSurveyService(store),
		responses: services.NewResponseService(store),
		exports:   services.NewExportService(store),
		imports:   services.NewImportService(store, services.ImportOptions{KeepEmptyResponses: keepEmpty}),
		analytics: services.NewAnalyticsService(store),
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/token", rt.handleToken)            // POST
	mux.HandleFunc("/api/surveys", rt.handleSurveys)             // GET, POST
	mux.HandleFunc("/api/surveys/", rt.handleSurveyScoped)       // id-scoped subroutes
	mux.HandleFunc("/api/export/backup", rt.handleBackupExport)  // GET
	mux.HandleFunc("/api/import/survey", rt.handleSurveyImport)  // POST
	mux.HandleFunc("/api/import/responses", rt.handleResponsesImport) // POST ?survey_id=
	mux.HandleFunc("/api/import/backup", rt.handleBackupImport)  // POST
}

// POST /api/auth/token — exchange the admin key for a creator token.
func (rt *Router) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	adminKey := os.Getenv("QUILLFORM_ADMIN_KEY")
	if adminKey == "" || subtle.ConstantTimeCompare([]byte(body.Key), []byte(adminKey)) != 1 {
		http.Error(w, "invalid key", http.StatusUnauthorized)
		return
	}
	tok, err := middleware.SignToken("admin", 30*24*time.Hour)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": tok})
}

// GET|POST /api/surveys
func (rt *Router) handleSurveys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		surveys, err := rt.surveys.ListSurveys()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, surveys)
	case http.MethodPost:
		if !rt.requireAuth(w, r) {
			return
		}
		var sv models.Survey
		if err := json.NewDecoder(r.Body).Decode(&sv); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		created, err := rt.surveys.CreateSurvey(&sv)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// /api/surveys/{id}[/responses|/export|/stats|/pin|/pin/verify]
func (rt *Router) handleSurveyScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/surveys/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	switch {
	case len(parts) == 1:
		rt.handleSurveyByID(w, r, id)
	case len(parts) == 2 && parts[1] == "responses":
		rt.handleSurveyResponses(w, r, id)
	case len(parts) == 2 && parts[1] == "export":
		rt.handleSurveyExport(w, r, id)
	case len(parts) == 2 && parts[1] == "stats":
		rt.handleSurveyStats(w, r, id)
	case len(parts) == 2 && parts[1] == "pin":
		rt.handleSurveyPin(w, r, id)
	case len(parts) == 3 && parts[1] == "pin" && parts[2] == "verify":
		rt.handleSurveyPinVerify(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (rt *Router) handleSurveyByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		sv, err := rt.surveys.GetSurvey(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sv)
	case http.MethodPut:
		if !rt.requireAuth(w, r) {
			return
		}
		var sv models.Survey
		if err := json.NewDecoder(r.Body).Decode(&sv); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sv.ID = id
		updated, err := rt.surveys.UpdateSurvey(&sv)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if !rt.requireAuth(w, r) {
			return
		}
		if err := rt.surveys.DeleteSurvey(id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (rt *Router) handleSurveyResponses(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodPost:
		var body struct {
			Answers []models.Answer `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp, err := rt.responses.Submit(services.SubmitRequest{SurveyID: id, Answers: body.Answers})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	case http.MethodGet:
		if !rt.resultsAccess(w, r, id) {
			return
		}
		responses, err := rt.responses.ListResponses(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, responses)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/surveys/{id}/export?format=survey|full|responses|csv&start=&end=
func (rt *Router) handleSurveyExport(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !rt.resultsAccess(w, r, id) {
		return
	}
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	var (
		res *services.ExportResult
		err error
	)
	switch r.URL.Query().Get("format") {
	case "", "survey":
		res, err = rt.exports.SurveyJSON(id)
	case "full":
		res, err = rt.exports.SurveyWithResponses(id)
	case "responses":
		res, err = rt.exports.FilteredResponsesJSON(id, start, end)
	case "csv":
		res, err = rt.exports.ResponsesCSV(id, start, end)
	default:
		http.Error(w, "unsupported format", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if res == nil {
		http.NotFound(w, r)
		return
	}
	writeDownload(w, res)
}

func (rt *Router) handleSurveyStats(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !rt.resultsAccess(w, r, id) {
		return
	}
	if r.URL.Query().Get("dates") == "1" {
		stats, err := rt.exports.DateStats(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	}
	stats, err := rt.analytics.SurveyStats(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// POST /api/surveys/{id}/pin — set or clear the results PIN.
func (rt *Router) handleSurveyPin(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !rt.requireAuth(w, r) {
		return
	}
	var body struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := rt.surveys.SetResultsPin(id, body.Pin); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (rt *Router) handleSurveyPinVerify(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := rt.surveys.VerifyResultsPin(id, body.Pin); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// GET /api/export/backup
func (rt *Router) handleBackupExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !rt.requireAuth(w, r) {
		return
	}
	res, err := rt.exports.FullBackup()
	if err != nil {
		writeError(w, err)
		return
	}
	writeDownload(w, res)
}

// POST /api/import/survey
func (rt *Router) handleSurveyImport(w http.ResponseWriter, r *http.Request) {
	body, ok := rt.importBody(w, r)
	if !ok {
		return
	}
	res := rt.imports.ImportSurvey(body)
	writeImportResult(w, res.Success, res)
}

// POST /api/import/responses?survey_id={id}
func (rt *Router) handleResponsesImport(w http.ResponseWriter, r *http.Request) {
	body, ok := rt.importBody(w, r)
	if !ok {
		return
	}
	res := rt.imports.ImportResponses(body, r.URL.Query().Get("survey_id"))
	writeImportResult(w, res.Success, res)
}

// POST /api/import/backup
func (rt *Router) handleBackupImport(w http.ResponseWriter, r *http.Request) {
	body, ok := rt.importBody(w, r)
	if !ok {
		return
	}
	res := rt.imports.ImportBackup(body)
	writeImportResult(w, res.Success, res)
}

func (rt *Router) importBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}
	if !rt.requireAuth(w, r) {
		return nil, false
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func (rt *Router) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if !middleware.Authenticated(r.Context()) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

// resultsAccess admits creators, surveys without a PIN, and requests carrying
// the correct X-Results-Pin header.
func (rt *Router) resultsAccess(w http.ResponseWriter, r *http.Request, id string) bool {
	if middleware.Authenticated(r.Context()) {
		return true
	}
	if err := rt.surveys.VerifyResultsPin(id, r.Header.Get("X-Results-Pin")); err != nil {
		writeError(w, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDownload(w http.ResponseWriter, res *services.ExportResult) {
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
	_, _ = w.Write(res.Data)
}

func writeImportResult(w http.ResponseWriter, success bool, v any) {
	status := http.StatusOK
	if !success {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, v)
}

func writeError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		switch se.Code {
		case services.ErrorInvalid:
			http.Error(w, se.Message, http.StatusBadRequest)
		case services.ErrorNotFound:
			http.Error(w, se.Message, http.StatusNotFound)
		case services.ErrorConflict:
			http.Error(w, se.Message, http.StatusConflict)
		case services.ErrorUnauthorized:
			http.Error(w, se.Message, http.StatusUnauthorized)
		default:
			http.Error(w, se.Message, http.StatusInternalServerError)
		}
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
