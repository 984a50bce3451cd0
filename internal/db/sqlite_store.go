// Package db provides the sqlite-backed Store. Question lists and answer
// lists are stored as JSON columns; the row carries identity and the fields
// the store filters on.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quillform/quillform/internal/api"
	"github.com/quillform/quillform/internal/models"
)

type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path, applies pragmas and
// migrations, and returns a ready store.
func Open(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	store, err := NewSQLiteStore(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := RunMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return store, nil
}

func NewSQLiteStore(conn *sql.DB) (*SQLiteStore, error) {
	if conn == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := conn.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: conn}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func toNullString(v string) sql.NullString {
	if strings.TrimSpace(v) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeQuestions(raw string) []models.Question {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []models.Question
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Printf("sqlite store: decode questions: %v", err)
		return nil
	}
	return out
}

func decodeAnswers(raw string) []models.Answer {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []models.Answer
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Printf("sqlite store: decode answers: %v", err)
		return nil
	}
	return out
}

const surveyColumns = `id, title, description, creator_name, creator_email,
	creator_organization, questions, created_at, updated_at, results_pin, pin_salt`

func scanSurvey(row interface{ Scan(...any) error }) (*models.Survey, error) {
	var sv models.Survey
	var org, pin, salt sql.NullString
	var questions string
	err := row.Scan(&sv.ID, &sv.Title, &sv.Description, &sv.CreatorName, &sv.CreatorEmail,
		&org, &questions, &sv.CreatedAt, &sv.UpdatedAt, &pin, &salt)
	if err != nil {
		return nil, err
	}
	sv.CreatorOrganization = org.String
	sv.ResultsPin = pin.String
	sv.PinSalt = salt.String
	sv.Questions = decodeQuestions(questions)
	return &sv, nil
}

func (s *SQLiteStore) PutSurvey(sv *models.Survey) error {
	questions, err := encodeJSON(sv.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO surveys (`+surveyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			creator_name = excluded.creator_name,
			creator_email = excluded.creator_email,
			creator_organization = excluded.creator_organization,
			questions = excluded.questions,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			results_pin = excluded.results_pin,
			pin_salt = excluded.pin_salt`,
		sv.ID, sv.Title, sv.Description, sv.CreatorName, sv.CreatorEmail,
		toNullString(sv.CreatorOrganization), questions, sv.CreatedAt, sv.UpdatedAt,
		toNullString(sv.ResultsPin), toNullString(sv.PinSalt))
	return err
}

func (s *SQLiteStore) GetSurvey(id string) (*models.Survey, error) {
	row := s.db.QueryRow(`SELECT `+surveyColumns+` FROM surveys WHERE id = ?`, id)
	sv, err := scanSurvey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sv, err
}

func (s *SQLiteStore) ListSurveys() ([]*models.Survey, error) {
	rows, err := s.db.Query(`SELECT ` + surveyColumns + ` FROM surveys ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.Survey{}
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

// DeleteSurvey removes the survey and its responses in one transaction so
// the cascade cannot half-apply.
func (s *SQLiteStore) DeleteSurvey(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM responses WHERE survey_id = ?`, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`DELETE FROM surveys WHERE id = ?`, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) PutResponse(r *models.SurveyResponse) error {
	answers, err := encodeJSON(r.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO responses (id, survey_id, answers, submitted_at)
		VALUES (?, ?, ?, ?)`, r.ID, r.SurveyID, answers, r.SubmittedAt)
	return err
}

func (s *SQLiteStore) ListResponses() ([]*models.SurveyResponse, error) {
	return s.queryResponses(`SELECT id, survey_id, answers, submitted_at FROM responses ORDER BY submitted_at, id`)
}

func (s *SQLiteStore) ListResponsesBySurvey(surveyID string) ([]*models.SurveyResponse, error) {
	return s.queryResponses(`SELECT id, survey_id, answers, submitted_at FROM responses
		WHERE survey_id = ? ORDER BY submitted_at, id`, surveyID)
}

func (s *SQLiteStore) queryResponses(query string, args ...any) ([]*models.SurveyResponse, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.SurveyResponse{}
	for rows.Next() {
		var r models.SurveyResponse
		var answers string
		if err := rows.Scan(&r.ID, &r.SurveyID, &answers, &r.SubmittedAt); err != nil {
			return nil, err
		}
		r.Answers = decodeAnswers(answers)
		out = append(out, &r)
	}
	return out, rows.Err()
}

var _ api.Store = (*SQLiteStore)(nil)
