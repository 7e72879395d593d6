package service

import (
	"archive/zip"
	"context"
	"fmt"
	"io"

	"vaultdrive/internal/domain"
	"vaultdrive/internal/service/s3"
)

// BundleService собирает zip-архив из набора версий, потоково перекладывая
// содержимое каждой версии из S3 в выходной writer. Целиком архив в памяти
// не материализуется.
type BundleService struct {
	s3Client s3.Storage
}

func NewBundleService(s3Client s3.Storage) *BundleService {
	return &BundleService{s3Client: s3Client}
}

// StreamBundle пишет по одному элементу архива на каждую версию в порядке
// входного списка. Пустой список дает ErrEmptyBundle до первого байта в
// выходной поток. Ошибка посередине обрывает остаток: центральный каталог
// не дописывается, и битый архив не выглядит валидным файлом.
func (s *BundleService) StreamBundle(ctx context.Context, w io.Writer, versions []domain.FileVersion, pattern NamePattern) error {
	if len(versions) == 0 {
		return domain.ErrEmptyBundle
	}
	if pattern == "" {
		pattern = DefaultNamePattern
	}

	zw := zip.NewWriter(w)
	used := make(map[string]int, len(versions))

	for i := range versions {
		version := &versions[i]
		name := uniqueEntryName(pattern.Render(*version), used)

		header := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: version.UploadedAt,
		}

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to create archive entry %s: %w", name, err)
		}

		if err := s.copyVersion(ctx, entry, version); err != nil {
			return err
		}
	}

	return zw.Close()
}

// copyVersion потоково переливает содержимое одной версии в элемент архива,
// закрывая S3-поток на любом пути выхода.
func (s *BundleService) copyVersion(ctx context.Context, entry io.Writer, version *domain.FileVersion) error {
	object, err := s.s3Client.GetObject(ctx, version.StorageKey)
	if err != nil {
		return fmt.Errorf("failed to open content of version %s: %w", version.ID, err)
	}
	defer object.Close()

	if _, err := io.Copy(entry, object); err != nil {
		return fmt.Errorf("failed to stream content of version %s: %w", version.ID, err)
	}

	return nil
}
