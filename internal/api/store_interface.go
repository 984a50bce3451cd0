package api

import "github.com/quillform/quillform/internal/services"

// Store is the full persistence surface consumed by the API layer. Each
// service depends only on its own narrow slice of it.
type Store interface {
	services.SurveyStore
	services.ResponseStore
	services.ExportStore
	services.ImportStore
	services.AnalyticsStore
}
