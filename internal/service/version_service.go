package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"sync"

	"github.com/google/uuid"

	"vaultdrive/internal/domain"
	"vaultdrive/internal/service/s3"
)

// VersionRepository описывает операции хранилища метаданных, нужные сервисам.
// Реализация живет в internal/repository поверх PostgreSQL.
type VersionRepository interface {
	Insert(ctx context.Context, v *domain.FileVersion) error
	Find(ctx context.Context, f domain.VersionFilter) ([]domain.FileVersion, error)
	FindOne(ctx context.Context, f domain.VersionFilter) (*domain.FileVersion, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.FileVersion, error)
	ListCurrent(ctx context.Context, f domain.VersionFilter) ([]domain.FileVersion, error)
	CountFiles(ctx context.Context, f domain.VersionFilter) (int64, error)
	CountVersions(ctx context.Context, f domain.VersionFilter) (int64, error)
	Resolve(ctx context.Context, f domain.VersionFilter) ([]domain.ResolvedVersion, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
	ListContainers(ctx context.Context) ([]string, error)
	RenameContainer(ctx context.Context, oldName, newName string) (int64, error)
	UpdateMetadata(ctx context.Context, id uuid.UUID, metadata domain.Metadata) error
}

// VersionService представляет сервис для работы с версиями файлов
type VersionService struct {
	repo     VersionRepository
	s3Client s3.Storage
}

func NewVersionService(repo VersionRepository, s3Client s3.Storage) *VersionService {
	return &VersionService{
		repo:     repo,
		s3Client: s3Client,
	}
}

// Upload загружает новую версию файла: поток уходит в S3, затем создается
// запись метаданных. При ошибке вставки объект из S3 убирается обратно.
func (s *VersionService) Upload(
	ctx context.Context,
	container string,
	filename string,
	mimeType string,
	metadata domain.Metadata,
	reader io.Reader,
) (*domain.FileVersion, error) {
	if container == "" || filename == "" || reader == nil {
		return nil, fmt.Errorf("container, filename and content are required")
	}

	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	// Работаем с копией, чтобы не править карту вызывающей стороны.
	// container живет в собственной колонке и никогда не наследуется
	// из пользовательских метаданных
	metadata = domain.Metadata{}.Merge(metadata)
	delete(metadata, "container")

	id := uuid.New()
	storageKey := fmt.Sprintf("file_versions/%s/%s", container, id)

	size, err := s.s3Client.UploadStream(ctx, storageKey, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload content: %w", err)
	}

	version := &domain.FileVersion{
		ID:         id,
		Container:  container,
		Filename:   path.Base(filename),
		MIMEType:   mimeType,
		SizeBytes:  size,
		StorageKey: storageKey,
		Metadata:   metadata,
	}

	if err := s.repo.Insert(ctx, version); err != nil {
		// При ошибке БД удаляем уже загруженный объект из S3
		if _, deleteErr := s.s3Client.DeleteObjects(ctx, []string{storageKey}); deleteErr != nil {
			log.Printf("[Upload] failed to delete object from s3 after db error: %v", deleteErr)
		}
		return nil, fmt.Errorf("failed to create version record: %w", err)
	}

	return version, nil
}

// Find возвращает версии по фильтру, новые сверху.
func (s *VersionService) Find(ctx context.Context, f domain.VersionFilter) ([]domain.FileVersion, error) {
	return s.repo.Find(ctx, f)
}

// FindOne возвращает самую свежую версию, совпадающую с фильтром.
func (s *VersionService) FindOne(ctx context.Context, f domain.VersionFilter) (*domain.FileVersion, error) {
	return s.repo.FindOne(ctx, f)
}

// GetByID возвращает версию по строковому идентификатору.
func (s *VersionService) GetByID(ctx context.Context, id string) (*domain.FileVersion, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidIdentifier, id)
	}
	return s.repo.FindByID(ctx, parsed)
}

// Download открывает поток содержимого версии.
func (s *VersionService) Download(ctx context.Context, id string) (*domain.FileVersion, s3.S3Object, error) {
	version, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	object, err := s.s3Client.GetObject(ctx, version.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get version content: %w", err)
	}

	return version, object, nil
}

// DownloadRange открывает поток части содержимого версии.
func (s *VersionService) DownloadRange(ctx context.Context, id string, start, end int64) (*domain.FileVersion, s3.S3Object, error) {
	version, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	object, err := s.s3Client.GetObjectRange(ctx, version.StorageKey, start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get version content range: %w", err)
	}

	return version, object, nil
}

// CountFiles считает различные имена файлов среди совпавших версий.
func (s *VersionService) CountFiles(ctx context.Context, f domain.VersionFilter) (int64, error) {
	return s.repo.CountFiles(ctx, f)
}

// CountVersions считает совпавшие версии.
func (s *VersionService) CountVersions(ctx context.Context, f domain.VersionFilter) (int64, error) {
	return s.repo.CountVersions(ctx, f)
}

// DeleteByFilter каскадно удаляет все версии по фильтру. Сначала фаза
// чтения фиксирует id и ключи, затем удаление метаданных и бинарного
// содержимого идет по зафиксированному набору. countFiles добавляет в
// результат число различных имен файлов среди удаленных строк.
func (s *VersionService) DeleteByFilter(ctx context.Context, f domain.VersionFilter, countFiles bool) (domain.DeleteResult, error) {
	resolved, err := s.repo.Resolve(ctx, f)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	result, err := s.deleteResolved(ctx, resolved)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	if countFiles {
		names := make(map[string]struct{}, len(resolved))
		for _, rv := range resolved {
			names[rv.Filename] = struct{}{}
		}
		result.FilesDeleted = int64(len(names))
	}

	return result, nil
}

// DeleteByID удаляет одну версию вместе с ее содержимым.
func (s *VersionService) DeleteByID(ctx context.Context, id string) (domain.DeleteResult, error) {
	version, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	return s.deleteResolved(ctx, []domain.ResolvedVersion{{
		ID:         version.ID,
		Filename:   version.Filename,
		StorageKey: version.StorageKey,
	}})
}

// deleteResolved выполняет обе независимые фазы удаления - строки метаданных
// и объекты S3 - параллельно и дожидается обеих. Счетчик удаленных строк
// метаданных авторитетен; неполное удаление объектов логируется, но не
// превращается в ошибку операции.
func (s *VersionService) deleteResolved(ctx context.Context, resolved []domain.ResolvedVersion) (domain.DeleteResult, error) {
	if len(resolved) == 0 {
		return domain.DeleteResult{}, nil
	}

	ids := make([]uuid.UUID, len(resolved))
	keys := make([]string, len(resolved))
	for i, rv := range resolved {
		ids[i] = rv.ID
		keys[i] = rv.StorageKey
	}

	var wg sync.WaitGroup
	var metaCount int64
	var metaErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		metaCount, metaErr = s.repo.DeleteByIDs(ctx, ids)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		deleted, err := s.s3Client.DeleteObjects(ctx, keys)
		if err != nil {
			log.Printf("[Delete] warning: chunk deletion incomplete (%d of %d): %v", deleted, len(keys), err)
		}
	}()

	wg.Wait()

	if metaErr != nil {
		return domain.DeleteResult{}, fmt.Errorf("failed to delete version records: %w", metaErr)
	}

	return domain.DeleteResult{VersionsDeleted: metaCount}, nil
}

// Replace загружает новую версию и затем вычищает все остальные версии той
// же линии container+filename. Фазы идут последовательно и не атомарны:
// сбой между ними оставляет лишние старые версии, но текущая выбирается
// по порядку загрузки, так что ответ остается корректным.
func (s *VersionService) Replace(
	ctx context.Context,
	container string,
	filename string,
	mimeType string,
	metadata domain.Metadata,
	reader io.Reader,
) (*domain.FileVersion, error) {
	version, err := s.Upload(ctx, container, filename, mimeType, metadata, reader)
	if err != nil {
		return nil, err
	}

	pruneFilter := domain.VersionFilter{
		Container: version.Container,
		Filename:  version.Filename,
		ExcludeID: version.ID.String(),
	}
	if _, err := s.DeleteByFilter(ctx, pruneFilter, false); err != nil {
		log.Printf("[Replace] warning: failed to prune superseded versions of %s/%s: %v",
			version.Container, version.Filename, err)
	}

	return version, nil
}

// UpdateMetadata накладывает overlay на метаданные версии. Новые ключи
// перезаписывают старые; ключ container игнорируется, потому что контейнер
// задается только операцией переименования.
func (s *VersionService) UpdateMetadata(ctx context.Context, id string, overlay domain.Metadata) (*domain.FileVersion, error) {
	version, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := version.Metadata.Merge(overlay)
	delete(merged, "container")

	if err := s.repo.UpdateMetadata(ctx, version.ID, merged); err != nil {
		return nil, fmt.Errorf("failed to update metadata: %w", err)
	}

	version.Metadata = merged
	return version, nil
}
