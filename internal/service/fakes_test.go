package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"vaultdrive/internal/domain"
	"vaultdrive/internal/service/s3"
)

// fakeObject реализует s3.S3Object поверх байтового среза.
type fakeObject struct {
	io.ReadCloser
	length int64
}

func newFakeObject(data []byte) *fakeObject {
	return &fakeObject{
		ReadCloser: io.NopCloser(bytes.NewReader(data)),
		length:     int64(len(data)),
	}
}

func (o *fakeObject) ContentLength() int64 { return o.length }
func (o *fakeObject) ContentType() string  { return "application/octet-stream" }

// fakeStorage - хранилище объектов в памяти для тестов.
type fakeStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failKeys map[string]bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		objects:  make(map[string][]byte),
		failKeys: make(map[string]bool),
	}
}

func (f *fakeStorage) UploadStream(ctx context.Context, key string, reader io.Reader) (int64, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return int64(len(data)), nil
}

func (f *fakeStorage) GetObject(ctx context.Context, key string) (s3.S3Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failKeys[key] {
		return nil, fmt.Errorf("%w: read of %s failed", domain.ErrStorageUnavailable, key)
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: object %s", domain.ErrNotFound, key)
	}
	return newFakeObject(data), nil
}

func (f *fakeStorage) GetObjectRange(ctx context.Context, key string, start, end int64) (s3.S3Object, error) {
	object, err := f.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(object)
	if err != nil {
		return nil, err
	}
	if end >= int64(len(data)) {
		end = int64(len(data)) - 1
	}
	return newFakeObject(data[start : end+1]), nil
}

func (f *fakeStorage) DeleteObjects(ctx context.Context, keys []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	deleted := 0
	for _, key := range keys {
		if _, ok := f.objects[key]; ok {
			delete(f.objects, key)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// fakeRepo - репозиторий версий в памяти. Таймстампы монотонно растут с
// каждой вставкой, порядок выборок повторяет порядок SQL реализации.
type fakeRepo struct {
	mu        sync.Mutex
	versions  []domain.FileVersion
	clock     time.Time
	insertErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (r *fakeRepo) match(f domain.VersionFilter) ([]domain.FileVersion, error) {
	var exclude uuid.UUID
	if f.ExcludeID != "" {
		parsed, err := uuid.Parse(f.ExcludeID)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidIdentifier, f.ExcludeID)
		}
		exclude = parsed
	}

	var matched []domain.FileVersion
	for _, v := range r.versions {
		if f.Container != "" && v.Container != f.Container {
			continue
		}
		if f.Filename != "" && v.Filename != f.Filename {
			continue
		}
		if f.MIMEType != "" && v.MIMEType != f.MIMEType {
			continue
		}
		if f.ExcludeID != "" && v.ID == exclude {
			continue
		}
		if f.UploadedAfter != nil && v.UploadedAt.Before(*f.UploadedAfter) {
			continue
		}
		if f.UploadedBefore != nil && v.UploadedAt.After(*f.UploadedBefore) {
			continue
		}
		matched = append(matched, v)
	}

	// Порядок тот же, что в SQL выборках: uploaded_at DESC, id DESC
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].UploadedAt.Equal(matched[j].UploadedAt) {
			return matched[i].UploadedAt.After(matched[j].UploadedAt)
		}
		return bytes.Compare(matched[i].ID[:], matched[j].ID[:]) > 0
	})
	return matched, nil
}

func (r *fakeRepo) Insert(ctx context.Context, v *domain.FileVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.insertErr != nil {
		return r.insertErr
	}

	r.clock = r.clock.Add(time.Second)
	v.UploadedAt = r.clock
	r.versions = append(r.versions, *v)
	return nil
}

func (r *fakeRepo) Find(ctx context.Context, f domain.VersionFilter) ([]domain.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.match(f)
}

func (r *fakeRepo) FindOne(ctx context.Context, f domain.VersionFilter) (*domain.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched, err := r.match(f)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, domain.ErrNotFound
	}
	return &matched[0], nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.versions {
		if r.versions[i].ID == id {
			v := r.versions[i]
			return &v, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRepo) ListCurrent(ctx context.Context, f domain.VersionFilter) ([]domain.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched, err := r.match(f)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var current []domain.FileVersion
	for _, v := range matched {
		if seen[v.Filename] {
			continue
		}
		seen[v.Filename] = true
		current = append(current, v)
	}
	return current, nil
}

func (r *fakeRepo) CountFiles(ctx context.Context, f domain.VersionFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched, err := r.match(f)
	if err != nil {
		return 0, err
	}

	names := make(map[string]bool)
	for _, v := range matched {
		names[v.Filename] = true
	}
	return int64(len(names)), nil
}

func (r *fakeRepo) CountVersions(ctx context.Context, f domain.VersionFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched, err := r.match(f)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (r *fakeRepo) Resolve(ctx context.Context, f domain.VersionFilter) ([]domain.ResolvedVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched, err := r.match(f)
	if err != nil {
		return nil, err
	}

	resolved := make([]domain.ResolvedVersion, len(matched))
	for i, v := range matched {
		resolved[i] = domain.ResolvedVersion{ID: v.ID, Filename: v.Filename, StorageKey: v.StorageKey}
	}
	return resolved, nil
}

func (r *fakeRepo) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	var kept []domain.FileVersion
	var deleted int64
	for _, v := range r.versions {
		if drop[v.ID] {
			deleted++
			continue
		}
		kept = append(kept, v)
	}
	r.versions = kept
	return deleted, nil
}

func (r *fakeRepo) ListContainers(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	var containers []string
	for _, v := range r.versions {
		if !seen[v.Container] {
			seen[v.Container] = true
			containers = append(containers, v.Container)
		}
	}
	sort.Strings(containers)
	return containers, nil
}

func (r *fakeRepo) RenameContainer(ctx context.Context, oldName, newName string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var renamed int64
	for i := range r.versions {
		if r.versions[i].Container == oldName {
			r.versions[i].Container = newName
			renamed++
		}
	}
	return renamed, nil
}

func (r *fakeRepo) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata domain.Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.versions {
		if r.versions[i].ID == id {
			r.versions[i].Metadata = metadata
			return nil
		}
	}
	return domain.ErrNotFound
}

// MockStorage - мок s3.Storage для проверки взаимодействий.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) UploadStream(ctx context.Context, key string, reader io.Reader) (int64, error) {
	args := m.Called(ctx, key, reader)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) GetObject(ctx context.Context, key string) (s3.S3Object, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(s3.S3Object), args.Error(1)
}

func (m *MockStorage) GetObjectRange(ctx context.Context, key string, start, end int64) (s3.S3Object, error) {
	args := m.Called(ctx, key, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(s3.S3Object), args.Error(1)
}

func (m *MockStorage) DeleteObjects(ctx context.Context, keys []string) (int, error) {
	args := m.Called(ctx, keys)
	return args.Int(0), args.Error(1)
}
