package service

import (
	"context"
	"fmt"

	"vaultdrive/internal/domain"
)

// ContainerService представляет операции над контейнерами. Контейнер - это
// производная группировка по значению container у версий, а не отдельная
// сущность: пустой контейнер не существует, переименование и удаление -
// массовые операции над версиями.
type ContainerService struct {
	repo     VersionRepository
	versions *VersionService
}

func NewContainerService(repo VersionRepository, versions *VersionService) *ContainerService {
	return &ContainerService{
		repo:     repo,
		versions: versions,
	}
}

// ListContainers возвращает имена всех непустых контейнеров.
func (s *ContainerService) ListContainers(ctx context.Context) ([]string, error) {
	return s.repo.ListContainers(ctx)
}

// RenameContainer массово переписывает контейнер на всех его версиях.
// Возвращается число различных имен файлов под старым именем, снятое до
// переименования.
func (s *ContainerService) RenameContainer(ctx context.Context, oldName, newName string) (int64, error) {
	if oldName == "" || newName == "" {
		return 0, fmt.Errorf("old and new container names are required")
	}
	if oldName == newName {
		return 0, fmt.Errorf("container names must differ")
	}

	files, err := s.repo.CountFiles(ctx, domain.VersionFilter{Container: oldName})
	if err != nil {
		return 0, fmt.Errorf("failed to count files in container: %w", err)
	}

	if _, err := s.repo.RenameContainer(ctx, oldName, newName); err != nil {
		return 0, err
	}

	return files, nil
}

// DeleteContainer каскадно удаляет все версии контейнера вместе с их
// бинарным содержимым.
func (s *ContainerService) DeleteContainer(ctx context.Context, name string) (domain.DeleteResult, error) {
	if name == "" {
		return domain.DeleteResult{}, fmt.Errorf("container name is required")
	}

	return s.versions.DeleteByFilter(ctx, domain.VersionFilter{Container: name}, true)
}

// ListCurrentFiles возвращает текущие файлы контейнера: по одной самой
// свежей версии на каждое имя. Выбор пересчитывается на каждый вызов.
func (s *ContainerService) ListCurrentFiles(ctx context.Context, container string, f domain.VersionFilter) ([]domain.FileVersion, error) {
	if container == "" {
		return nil, fmt.Errorf("container name is required")
	}

	f.Container = container
	return s.repo.ListCurrent(ctx, f)
}

// CountCurrentFiles считает текущие файлы контейнера.
func (s *ContainerService) CountCurrentFiles(ctx context.Context, container string, f domain.VersionFilter) (int64, error) {
	if container == "" {
		return 0, fmt.Errorf("container name is required")
	}

	f.Container = container
	return s.repo.CountFiles(ctx, f)
}

// Stats возвращает счетчики файлов и версий контейнера.
func (s *ContainerService) Stats(ctx context.Context, container string) (domain.ContainerStats, error) {
	if container == "" {
		return domain.ContainerStats{}, fmt.Errorf("container name is required")
	}

	filter := domain.VersionFilter{Container: container}

	files, err := s.repo.CountFiles(ctx, filter)
	if err != nil {
		return domain.ContainerStats{}, err
	}

	versions, err := s.repo.CountVersions(ctx, filter)
	if err != nil {
		return domain.ContainerStats{}, err
	}

	return domain.ContainerStats{Files: files, Versions: versions}, nil
}
