package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vaultdrive/internal/domain"
	"vaultdrive/internal/service"
)

// ContainerHandler обслуживает операции над контейнерами и архивную выгрузку.
type ContainerHandler struct {
	containers *service.ContainerService
	versions   *service.VersionService
	bundles    *service.BundleService
}

type renameContainerRequest struct {
	NewName string `json:"new_name"`
}

func NewContainerHandler(
	containers *service.ContainerService,
	versions *service.VersionService,
	bundles *service.BundleService,
) *ContainerHandler {
	return &ContainerHandler{
		containers: containers,
		versions:   versions,
		bundles:    bundles,
	}
}

// ListContainers возвращает имена всех непустых контейнеров.
func (h *ContainerHandler) ListContainers(w http.ResponseWriter, r *http.Request) {
	containers, err := h.containers.ListContainers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, containers)
}

// RenameContainer массово переименовывает контейнер и возвращает число
// файлов под старым именем до переименования.
func (h *ContainerHandler) RenameContainer(w http.ResponseWriter, r *http.Request) {
	container := chi.URLParam(r, "container")

	var req renameContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.NewName == "" {
		http.Error(w, "new_name is required", http.StatusBadRequest)
		return
	}

	files, err := h.containers.RenameContainer(r.Context(), container, req.NewName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"files_renamed": files})
}

// DeleteContainer каскадно удаляет контейнер со всеми версиями и их
// содержимым.
func (h *ContainerHandler) DeleteContainer(w http.ResponseWriter, r *http.Request) {
	container := chi.URLParam(r, "container")

	result, err := h.containers.DeleteContainer(r.Context(), container)
	if err != nil {
		writeError(w, err)
		return
	}

	log.Printf("[Container] deleted %s: %d versions, %d files",
		container, result.VersionsDeleted, result.FilesDeleted)
	writeJSON(w, http.StatusOK, result)
}

// ListCurrentFiles возвращает текущие файлы контейнера: по одной самой
// свежей версии на имя.
func (h *ContainerHandler) ListCurrentFiles(w http.ResponseWriter, r *http.Request) {
	container := chi.URLParam(r, "container")

	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	files, err := h.containers.ListCurrentFiles(r.Context(), container, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, files)
}

// GetStats возвращает счетчики файлов и версий контейнера.
func (h *ContainerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.containers.Stats(r.Context(), chi.URLParam(r, "container"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// DownloadArchive потоково отдает zip с текущими файлами контейнера.
// С параметром versions=all в архив попадают все версии, и шаблон имени
// по умолчанию встраивает id, чтобы различать версии одного имени.
func (h *ContainerHandler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	container := chi.URLParam(r, "container")

	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pattern := service.NamePattern(r.URL.Query().Get("pattern"))

	var versions []domain.FileVersion
	if r.URL.Query().Get("versions") == "all" {
		filter.Container = container
		versions, err = h.versions.Find(r.Context(), filter)
		if pattern == "" {
			// Несколько версий одного имени различаются по id
			pattern = service.VersionedNamePattern
		}
	} else {
		versions, err = h.containers.ListCurrentFiles(r.Context(), container, filter)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	// Пустой набор отклоняем до того, как в ответ уйдет хоть один байт
	if len(versions) == 0 {
		writeError(w, domain.ErrEmptyBundle)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.zip"`, container))

	if err := h.bundles.StreamBundle(r.Context(), w, versions, pattern); err != nil {
		// Заголовки уже отправлены: оборванный архив остается без
		// центрального каталога и не читается как валидный zip
		log.Printf("[Archive] bundle streaming for %s aborted: %v", container, err)
	}
}
