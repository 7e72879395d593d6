package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultdrive/internal/domain"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", domain.ErrNotFound), http.StatusNotFound},
		{"empty bundle", domain.ErrEmptyBundle, http.StatusNotFound},
		{"invalid identifier", fmt.Errorf("%w: %q", domain.ErrInvalidIdentifier, "x"), http.StatusBadRequest},
		{"storage unavailable", fmt.Errorf("get: %w", domain.ErrStorageUnavailable), http.StatusServiceUnavailable},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestParseFilter(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/containers?filename=a.txt&mime_type=text/plain&uploaded_after=2025-03-01T00:00:00Z", nil)

	f, err := parseFilter(r)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", f.Filename)
	assert.Equal(t, "text/plain", f.MIMEType)
	require.NotNil(t, f.UploadedAfter)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), f.UploadedAfter.UTC())
	assert.Nil(t, f.UploadedBefore)
}

func TestParseFilter_BadTimestamp(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/containers?uploaded_before=yesterday", nil)
	_, err := parseFilter(r)
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		size    int64
		want    [][2]int64
		wantErr bool
	}{
		{"explicit range", "bytes=0-99", 1000, [][2]int64{{0, 99}}, false},
		{"open ended", "bytes=500-", 1000, [][2]int64{{500, 999}}, false},
		{"suffix range", "bytes=-100", 1000, [][2]int64{{900, 999}}, false},
		{"suffix larger than file", "bytes=-5000", 1000, [][2]int64{{0, 999}}, false},
		{"multiple ranges", "bytes=0-1,5-6", 1000, [][2]int64{{0, 1}, {5, 6}}, false},
		{"missing prefix", "0-99", 1000, nil, true},
		{"not a number", "bytes=a-b", 1000, nil, true},
		{"end beyond size", "bytes=0-1000", 1000, nil, true},
		{"inverted", "bytes=10-5", 1000, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRange(tt.header, tt.size)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
