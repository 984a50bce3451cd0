package services

import (
	"sort"
	"strconv"

	"github.com/quillform/quillform/internal/models"
)

// AnalyticsStore abstracts the reads required by AnalyticsService.
type AnalyticsStore interface {
	GetSurvey(id string) (*models.Survey, error)
	ListResponsesBySurvey(surveyID string) ([]*models.SurveyResponse, error)
}

// DistributionEntry is one bucket of a per-question distribution.
type DistributionEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// QuestionStats pairs a question with its response distribution. Free-text
// questions carry the raw texts instead of a distribution.
type QuestionStats struct {
	QuestionID   string              `json:"questionId"`
	Question     string              `json:"question"`
	Type         models.QuestionType `json:"type"`
	Distribution []DistributionEntry `json:"distribution,omitempty"`
	Texts        []string            `json:"texts,omitempty"`
}

// SurveyStats is the aggregate report for one survey.
type SurveyStats struct {
	SurveyID       string          `json:"surveyId"`
	TotalResponses int             `json:"totalResponses"`
	Questions      []QuestionStats `json:"questions"`
}

// AnalyticsService computes per-question response distributions.
type AnalyticsService struct {
	store AnalyticsStore
}

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// SurveyStats aggregates every question of the survey over its responses.
func (s *AnalyticsService) SurveyStats(surveyID string) (*SurveyStats, error) {
	sv, err := s.store.GetSurvey(surveyID)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, NewNotFoundError("survey not found")
	}
	responses, err := s.store.ListResponsesBySurvey(surveyID)
	if err != nil {
		return nil, err
	}

	stats := &SurveyStats{SurveyID: sv.ID, TotalResponses: len(responses)}
	for i := range sv.Questions {
		q := &sv.Questions[i]
		qs := QuestionStats{QuestionID: q.ID, Question: q.Question, Type: q.Type}
		switch q.Type {
		case models.QuestionRadio, models.QuestionYesNo:
			qs.Distribution = scalarDistribution(q, responses)
		case models.QuestionCheckbox:
			qs.Distribution = checkboxDistribution(q, responses)
		case models.QuestionScale:
			qs.Distribution = scaleDistribution(q, responses)
		default:
			qs.Texts = collectTexts(q, responses)
		}
		stats.Questions = append(stats.Questions, qs)
	}
	return stats, nil
}

// scalarDistribution counts single-choice answers keyed by option id (or the
// yes/no literal), labelled for display. Buckets follow the question's option
// order; unknown keys trail in first-seen order.
func scalarDistribution(q *models.Question, responses []*models.SurveyResponse) []DistributionEntry {
	counts := map[string]int{}
	var seen []string
	for _, r := range responses {
		a := r.FindAnswer(q.ID)
		if a == nil || a.Value.IsEmpty() {
			continue
		}
		key := a.Value.String()
		if _, ok := counts[key]; !ok {
			seen = append(seen, key)
		}
		counts[key]++
	}
	return labelledEntries(q, counts, seen)
}

// checkboxDistribution expands each multi-select answer into its option ids.
func checkboxDistribution(q *models.Question, responses []*models.SurveyResponse) []DistributionEntry {
	counts := map[string]int{}
	var seen []string
	for _, r := range responses {
		a := r.FindAnswer(q.ID)
		if a == nil || a.Value.Kind != models.ValueList {
			continue
		}
		for _, optionID := range a.Value.List {
			if _, ok := counts[optionID]; !ok {
				seen = append(seen, optionID)
			}
			counts[optionID]++
		}
	}
	return labelledEntries(q, counts, seen)
}

// scaleDistribution buckets numeric answers in ascending value order.
func scaleDistribution(q *models.Question, responses []*models.SurveyResponse) []DistributionEntry {
	counts := map[string]int{}
	for _, r := range responses {
		a := r.FindAnswer(q.ID)
		if a == nil || a.Value.IsEmpty() {
			continue
		}
		counts[a.Value.String()]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.ParseFloat(keys[i], 64)
		b, _ := strconv.ParseFloat(keys[j], 64)
		return a < b
	})
	out := make([]DistributionEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, DistributionEntry{Name: k, Count: counts[k]})
	}
	return out
}

func collectTexts(q *models.Question, responses []*models.SurveyResponse) []string {
	var out []string
	for _, r := range responses {
		if a := r.FindAnswer(q.ID); a != nil && !a.Value.IsEmpty() {
			out = append(out, a.Value.String())
		}
	}
	return out
}

// labelledEntries orders buckets by the question's option order, resolving
// option ids to labels, with yes/no literals capitalized.
func labelledEntries(q *models.Question, counts map[string]int, seen []string) []DistributionEntry {
	var out []DistributionEntry
	emitted := map[string]bool{}
	for i := range q.Options {
		id := q.Options[i].ID
		if n, ok := counts[id]; ok {
			out = append(out, DistributionEntry{Name: q.Options[i].Label, Count: n})
			emitted[id] = true
		}
	}
	for _, key := range seen {
		if emitted[key] {
			continue
		}
		out = append(out, DistributionEntry{Name: displayKey(q, key), Count: counts[key]})
	}
	return out
}

func displayKey(q *models.Question, key string) string {
	if q.Type == models.QuestionYesNo {
		switch key {
		case "yes":
			return "Yes"
		case "no":
			return "No"
		}
	}
	if opt := q.FindOption(key); opt != nil {
		return opt.Label
	}
	return key
}
