package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"vaultdrive/internal/domain"
)

// writeError маппит ошибки слоя хранения на HTTP статусы.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrEmptyBundle):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidIdentifier):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrStorageUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// parseFilter читает необязательные параметры фильтра из query string.
func parseFilter(r *http.Request) (domain.VersionFilter, error) {
	q := r.URL.Query()

	f := domain.VersionFilter{
		Filename:  q.Get("filename"),
		MIMEType:  q.Get("mime_type"),
		ExcludeID: q.Get("exclude_id"),
	}

	if raw := q.Get("uploaded_after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, errors.New("invalid uploaded_after timestamp")
		}
		f.UploadedAfter = &t
	}
	if raw := q.Get("uploaded_before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, errors.New("invalid uploaded_before timestamp")
		}
		f.UploadedBefore = &t
	}

	return f, nil
}
