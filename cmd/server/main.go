package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/quillform/quillform/internal/api"
	"github.com/quillform/quillform/internal/db"
	"github.com/quillform/quillform/internal/middleware"
	"github.com/quillform/quillform/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	addr := utils.SafeEnv("QUILLFORM_ADDR", ":8080")
	commit := os.Getenv("QUILLFORM_COMMIT")
	buildTime := os.Getenv("QUILLFORM_BUILD_TIME")

	store, closeStore, err := openStore()
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()

	mux := http.NewServeMux()
	api.NewRouter(store).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "Quillform API",
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	// Static frontend if configured (fullstack image).
	if staticDir := os.Getenv("QUILLFORM_STATIC_DIR"); staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	handler := middleware.CORS(middleware.NoStore(middleware.WithAuth(mux)))

	log.Printf("Quillform server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openStore selects sqlite when QUILLFORM_DB is set, otherwise the
// process-local memory store.
func openStore() (api.Store, func(), error) {
	path := os.Getenv("QUILLFORM_DB")
	if path == "" {
		log.Printf("QUILLFORM_DB not set, using in-memory store")
		return api.NewMemoryStore(), func() {}, nil
	}
	store, err := db.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}
