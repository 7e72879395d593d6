package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultdrive/internal/domain"
)

func newContainerFixture() (*ContainerService, *VersionService, *fakeStorage) {
	repo := newFakeRepo()
	storage := newFakeStorage()
	versions := NewVersionService(repo, storage)
	return NewContainerService(repo, versions), versions, storage
}

func TestContainerService_ListContainers(t *testing.T) {
	containers, versions, _ := newContainerFixture()

	uploadTestVersion(t, versions, "docs", "a.txt", "x")
	uploadTestVersion(t, versions, "docs", "b.txt", "x")
	uploadTestVersion(t, versions, "photos", "c.jpg", "x")

	names, err := containers.ListContainers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"docs", "photos"}, names)
}

func TestContainerService_ListCurrentFiles(t *testing.T) {
	containers, versions, _ := newContainerFixture()

	uploadTestVersion(t, versions, "docs", "a.txt", "v1")
	v2 := uploadTestVersion(t, versions, "docs", "a.txt", "v2")
	b1 := uploadTestVersion(t, versions, "docs", "b.txt", "v1")
	uploadTestVersion(t, versions, "photos", "a.txt", "other container")

	current, err := containers.ListCurrentFiles(context.Background(), "docs", domain.VersionFilter{})
	require.NoError(t, err)
	require.Len(t, current, 2)

	byName := make(map[string]domain.FileVersion, len(current))
	for _, v := range current {
		byName[v.Filename] = v
	}

	// для каждого имени отдается ровно самая свежая версия
	assert.Equal(t, v2.ID, byName["a.txt"].ID)
	assert.Equal(t, b1.ID, byName["b.txt"].ID)
}

func TestContainerService_ListCurrentFiles_ReflectsNewUploads(t *testing.T) {
	containers, versions, _ := newContainerFixture()

	uploadTestVersion(t, versions, "docs", "a.txt", "v1")

	current, err := containers.ListCurrentFiles(context.Background(), "docs", domain.VersionFilter{})
	require.NoError(t, err)
	require.Len(t, current, 1)
	first := current[0].ID

	v2 := uploadTestVersion(t, versions, "docs", "a.txt", "v2")

	// выбор текущей версии пересчитывается на каждый вызов
	current, err = containers.ListCurrentFiles(context.Background(), "docs", domain.VersionFilter{})
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.NotEqual(t, first, current[0].ID)
	assert.Equal(t, v2.ID, current[0].ID)
}

func TestContainerService_RenameContainer(t *testing.T) {
	containers, versions, _ := newContainerFixture()

	uploadTestVersion(t, versions, "old", "a.txt", "v1")
	uploadTestVersion(t, versions, "old", "a.txt", "v2")
	uploadTestVersion(t, versions, "old", "b.txt", "v1")

	// возвращается число различных имен файлов, а не число версий
	files, err := containers.RenameContainer(context.Background(), "old", "new")
	require.NoError(t, err)
	assert.Equal(t, int64(2), files)

	names, err := containers.ListContainers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, names)

	moved, err := versions.Find(context.Background(), domain.VersionFilter{Container: "new"})
	require.NoError(t, err)
	assert.Len(t, moved, 3)
}

func TestContainerService_RenameContainer_EmptyContainer(t *testing.T) {
	containers, _, _ := newContainerFixture()

	files, err := containers.RenameContainer(context.Background(), "ghost", "new")
	require.NoError(t, err)
	assert.Equal(t, int64(0), files)
}

func TestContainerService_RenameContainer_Validation(t *testing.T) {
	containers, _, _ := newContainerFixture()

	_, err := containers.RenameContainer(context.Background(), "", "new")
	assert.Error(t, err)

	_, err = containers.RenameContainer(context.Background(), "same", "same")
	assert.Error(t, err)
}

func TestContainerService_DeleteContainer(t *testing.T) {
	containers, versions, storage := newContainerFixture()

	uploadTestVersion(t, versions, "docs", "a.txt", "v1")
	uploadTestVersion(t, versions, "docs", "a.txt", "v2")
	keep := uploadTestVersion(t, versions, "photos", "c.jpg", "img")

	result, err := containers.DeleteContainer(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.VersionsDeleted)
	assert.Equal(t, int64(1), result.FilesDeleted)

	names, err := containers.ListContainers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"photos"}, names)

	_, err = versions.GetByID(context.Background(), keep.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, 1, storage.count())
}

func TestContainerService_Stats(t *testing.T) {
	containers, versions, _ := newContainerFixture()

	uploadTestVersion(t, versions, "docs", "a.txt", "v1")
	uploadTestVersion(t, versions, "docs", "a.txt", "v2")
	uploadTestVersion(t, versions, "docs", "b.txt", "v1")

	stats, err := containers.Stats(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Files)
	assert.Equal(t, int64(3), stats.Versions)
}

func TestContainerService_Stats_EmptyContainer(t *testing.T) {
	containers, _, _ := newContainerFixture()

	stats, err := containers.Stats(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Files)
	assert.Equal(t, int64(0), stats.Versions)
}
