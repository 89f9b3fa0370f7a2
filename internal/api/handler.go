// Package api exposes the store and the backup/restore engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/okatsu/duebook/internal/backup"
	"github.com/okatsu/duebook/internal/storage"
)

const maxImportBodySize = 10 << 20 // 10MB
const maxItemBodySize = 1 << 20    // 1MB

type AppDeps struct {
	Store *storage.Store
	Token string           // empty disables bearer auth
	Now   func() time.Time // nil means time.Now; injected by tests
}

func (d AppDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// NewAppHandler returns the HTTP API: backup export/import, raw store
// access, and backup history.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	// Everything touching the store sits behind bearer auth (when configured).
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/export", handleExport(deps))
		r.Post("/import", handleImport(deps))
		r.Get("/store", handleListItems(deps))
		r.Get("/store/{key}", handleGetItem(deps))
		r.Put("/store/{key}", handlePutItem(deps))
		r.Delete("/store/{key}", handleDeleteItem(deps))
		r.Get("/backups", handleListBackups(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleExport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := backup.Export(deps.Store)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "export failed: %v", err)
			return
		}

		keys, err := deps.Store.Keys()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "export failed: %v", err)
			return
		}

		rec := storage.BackupRecord{
			ID:        uuid.New().String(),
			Kind:      "export",
			KeysTotal: len(keys),
			CreatedAt: deps.now().UTC(),
		}
		if err := deps.Store.SaveBackupRecord(rec); err != nil {
			// The download itself still works; history is best-effort.
			slog.Warn("recording export in backup history failed", "error", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", backup.Filename(deps.now())))
		w.Write(data)
	}
}

func handleImport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBodySize)
		defer r.Body.Close()

		policy := backup.PolicyOverwrite
		if s := r.URL.Query().Get("policy"); s != "" {
			p, err := backup.ParsePolicy(s)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			policy = p
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading request body: %v", err)
			return
		}

		res, err := backup.Import(deps.Store, body, policy)
		if errors.Is(err, backup.ErrNotObject) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid backup format: %v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		rec := storage.BackupRecord{
			ID:        uuid.New().String(),
			Kind:      "import",
			Policy:    string(policy),
			KeysAdded: res.Added,
			KeysTotal: res.Total,
			CreatedAt: deps.now().UTC(),
		}
		if err := deps.Store.SaveBackupRecord(rec); err != nil {
			slog.Warn("recording import in backup history failed", "error", err)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "imported",
			"policy": res.Policy,
			"added":  res.Added,
			"total":  res.Total,
		})
	}
}

func handleListItems(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := deps.Store.Items()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list items: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(items)
	}
}

func handleGetItem(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")

		value, err := deps.Store.GetItem(key)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "key not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get item: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"key": key, "value": value})
	}
}

func handlePutItem(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")

		r.Body = http.MaxBytesReader(w, r.Body, maxItemBodySize)
		var req struct {
			Value *string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Value == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "value is required")
			return
		}

		if err := deps.Store.SetItem(key, *req.Value); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to set item: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func handleDeleteItem(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")

		err := deps.Store.RemoveItem(key)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "key not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete item: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

func handleListBackups(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		records, err := deps.Store.ListBackupRecords(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list backups: %v", err)
			return
		}

		if records == nil {
			records = []storage.BackupRecord{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
