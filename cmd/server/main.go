package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Nabothdaniel/exam-malpractice-project/internal/api"
	dbstore "github.com/Nabothdaniel/exam-malpractice-project/internal/db"
	"github.com/Nabothdaniel/exam-malpractice-project/internal/media"
	"github.com/Nabothdaniel/exam-malpractice-project/internal/middleware"
	"github.com/Nabothdaniel/exam-malpractice-project/internal/services"
	"github.com/Nabothdaniel/exam-malpractice-project/internal/utils"
)

func main() {
	addr := utils.SafeEnv("EXAMGUARD_ADDR", ":8080")

	store, closeStore, err := openStore()
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()

	if err := api.EnsureDefaultCaseTypes(store); err != nil {
		log.Fatalf("seed case types: %v", err)
	}

	var uploader services.MediaUploader
	if uploadURL := os.Getenv("EXAMGUARD_UPLOAD_URL"); uploadURL != "" {
		uploader = media.NewUploader(uploadURL)
	}

	mux := http.NewServeMux()
	api.NewRouter(store, uploader).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":   true,
			"name": "ExamGuard API",
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if notifyURL := os.Getenv("EXAMGUARD_NOTIFY_URL"); notifyURL != "" {
		dispatcher := services.NewDispatcher(store, services.NewHTTPSender(notifyURL))
		go dispatcher.Run(ctx)
	} else {
		log.Printf("EXAMGUARD_NOTIFY_URL not set, notification delivery disabled")
	}

	handler := middleware.NoStore(middleware.SecureHeaders(middleware.CORS(middleware.WithAuth(mux))))

	log.Printf("ExamGuard server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openStore returns the sqlite-backed store when EXAMGUARD_SQLITE_PATH is
// set, otherwise the in-memory store.
func openStore() (api.Store, func(), error) {
	sqlitePath := os.Getenv("EXAMGUARD_SQLITE_PATH")
	if sqlitePath == "" {
		log.Printf("EXAMGUARD_SQLITE_PATH not set, using in-memory store")
		return api.NewMemoryStore(), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(sqlitePath))
	sqliteDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := dbstore.RunMigrations(sqliteDB, os.Getenv("EXAMGUARD_MIGRATIONS_DIR")); err != nil {
		_ = sqliteDB.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	store, err := dbstore.NewStore(sqliteDB)
	if err != nil {
		_ = sqliteDB.Close()
		return nil, nil, fmt.Errorf("init sqlite store: %w", err)
	}
	closeFn := func() {
		if cerr := sqliteDB.Close(); cerr != nil {
			log.Printf("warning: failed to close sqlite db: %v", cerr)
		}
	}
	return store, closeFn, nil
}
