package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"vaultdrive/internal/domain"
	"vaultdrive/internal/service"
)

// FileHandler обслуживает операции над отдельными версиями файлов.
type FileHandler struct {
	versions *service.VersionService
}

func NewFileHandler(versions *service.VersionService) *FileHandler {
	return &FileHandler{versions: versions}
}

// UploadFile принимает multipart форму с полем file и необязательным
// JSON-полем metadata, создает новую версию в контейнере из URL.
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	container := chi.URLParam(r, "container")
	if container == "" {
		http.Error(w, "Missing container name", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	metadata := domain.Metadata{}
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			http.Error(w, "Invalid metadata JSON", http.StatusBadRequest)
			return
		}
	}

	// Определяем тип контента
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	version, err := h.versions.Upload(r.Context(), container, header.Filename, contentType, metadata, file)
	if err != nil {
		log.Printf("[Upload] failed to upload %s to %s: %v", header.Filename, container, err)
		writeError(w, err)
		return
	}

	log.Printf("[Upload] created version %s of %s/%s (%d bytes)",
		version.ID, version.Container, version.Filename, version.SizeBytes)
	writeJSON(w, http.StatusCreated, version)
}

// ReplaceFile загружает новую версию и вычищает все остальные версии той же
// линии container+filename.
func (h *FileHandler) ReplaceFile(w http.ResponseWriter, r *http.Request) {
	container := chi.URLParam(r, "container")
	filename := chi.URLParam(r, "filename")
	if container == "" || filename == "" {
		http.Error(w, "Missing container or filename", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	metadata := domain.Metadata{}
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			http.Error(w, "Invalid metadata JSON", http.StatusBadRequest)
			return
		}
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	version, err := h.versions.Replace(r.Context(), container, filename, contentType, metadata, file)
	if err != nil {
		log.Printf("[Replace] failed to replace %s/%s: %v", container, filename, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, version)
}

// DownloadFile отдает содержимое одной версии напрямую, без архивной
// обертки. Поддерживаются Range запросы.
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	version, err := h.versions.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	// Подготавливаем имя файла для Content-Disposition
	encodedFileName := url.QueryEscape(version.Filename)
	asciiName := strings.ReplaceAll(version.Filename, `"`, `\"`)
	contentDisposition := fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiName, encodedFileName)

	w.Header().Set("Content-Type", version.MIMEType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Disposition", contentDisposition)

	var start, end int64
	rangeHeader := r.Header.Get("Range")
	if rangeHeader != "" {
		ranges, err := parseRange(rangeHeader, version.SizeBytes)
		if err != nil {
			http.Error(w, err.Error(), http.StatusRequestedRangeNotSatisfiable)
			return
		}
		if len(ranges) != 1 {
			http.Error(w, "Multiple ranges not supported", http.StatusRequestedRangeNotSatisfiable)
			return
		}
		start = ranges[0][0]
		end = ranges[0][1]
	} else {
		start = 0
		end = version.SizeBytes - 1
	}

	var object io.ReadCloser
	if rangeHeader != "" {
		_, ranged, err := h.versions.DownloadRange(r.Context(), id, start, end)
		if err != nil {
			writeError(w, err)
			return
		}
		object = ranged

		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, version.SizeBytes))
		w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		_, full, err := h.versions.Download(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		object = full

		w.Header().Set("Content-Length", strconv.FormatInt(version.SizeBytes, 10))
		w.WriteHeader(http.StatusOK)
	}
	defer object.Close()

	// Отдаем данные клиенту через буфер, сбрасывая его после каждого чанка
	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(flushWriter{w}, object, buf); err != nil {
		// Заголовки уже отправлены - остается только оборвать поток
		log.Printf("[Download] streaming of version %s aborted: %v", version.ID, err)
	}
}

// GetFileInfo возвращает метаданные одной версии.
func (h *FileHandler) GetFileInfo(w http.ResponseWriter, r *http.Request) {
	version, err := h.versions.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, version)
}

// GetFileVersions возвращает всю линию версий container+filename,
// новые сверху.
func (h *FileHandler) GetFileVersions(w http.ResponseWriter, r *http.Request) {
	container := chi.URLParam(r, "container")
	filename := chi.URLParam(r, "filename")
	if container == "" || filename == "" {
		http.Error(w, "Missing container or filename", http.StatusBadRequest)
		return
	}

	versions, err := h.versions.Find(r.Context(), domain.VersionFilter{
		Container: container,
		Filename:  filename,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, versions)
}

// UpdateMetadata накладывает присланный JSON поверх метаданных версии.
func (h *FileHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	var overlay domain.Metadata
	if err := json.NewDecoder(r.Body).Decode(&overlay); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	version, err := h.versions.UpdateMetadata(r.Context(), chi.URLParam(r, "id"), overlay)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, version)
}

// DeleteFile удаляет одну версию вместе с ее бинарным содержимым.
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	result, err := h.versions.DeleteByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// flushWriter сбрасывает HTTP буфер после каждой записи, чтобы большие
// файлы уходили клиенту по мере чтения из S3.
type flushWriter struct {
	w http.ResponseWriter
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if f, ok := fw.w.(http.Flusher); ok {
		f.Flush()
	}
	return n, err
}

// parseRange разбирает заголовок Range вида bytes=start-end.
func parseRange(rangeHeader string, fileSize int64) ([][2]int64, error) {
	if !strings.HasPrefix(rangeHeader, "bytes=") {
		return nil, fmt.Errorf("invalid range format")
	}

	var ranges [][2]int64
	for _, spec := range strings.Split(strings.TrimPrefix(rangeHeader, "bytes="), ",") {
		spec = strings.TrimSpace(spec)
		parts := strings.SplitN(spec, "-", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid range spec: %s", spec)
		}

		var start, end int64
		var err error

		if parts[0] == "" {
			// Суффиксный диапазон: последние N байт
			n, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid range spec: %s", spec)
			}
			if n > fileSize {
				n = fileSize
			}
			start = fileSize - n
			end = fileSize - 1
		} else {
			start, err = strconv.ParseInt(parts[0], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid range spec: %s", spec)
			}
			if parts[1] == "" {
				end = fileSize - 1
			} else {
				end, err = strconv.ParseInt(parts[1], 10, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid range spec: %s", spec)
				}
			}
		}

		if start < 0 || end >= fileSize || start > end {
			return nil, fmt.Errorf("range out of bounds: %s", spec)
		}
		ranges = append(ranges, [2]int64{start, end})
	}

	return ranges, nil
}
