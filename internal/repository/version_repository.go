package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"vaultdrive/internal/domain"
)

// Колонки версии в порядке, в котором их читают все выборки.
const versionColumns = `id, container, filename, mime_type, size_bytes, storage_key, uploaded_at, metadata`

// VersionRepository выполняет операции над записями версий в PostgreSQL.
// Порядок внутри линии версий всегда uploaded_at DESC, id DESC - добавка
// id делает порядок тотальным при совпадении таймстампов.
type VersionRepository struct {
	db *sqlx.DB
}

func NewVersionRepository(db *sqlx.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// Insert создает запись версии. uploaded_at назначает база при вставке,
// значение возвращается в переданную структуру.
func (r *VersionRepository) Insert(ctx context.Context, v *domain.FileVersion) error {
	query := `
        INSERT INTO file_versions (id, container, filename, mime_type, size_bytes, storage_key, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING uploaded_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		v.ID,
		v.Container,
		v.Filename,
		v.MIMEType,
		v.SizeBytes,
		v.StorageKey,
		v.Metadata,
	).Scan(&v.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to insert file version: %w", err)
	}

	return nil
}

// Find возвращает все версии по фильтру, новые сверху.
func (r *VersionRepository) Find(ctx context.Context, f domain.VersionFilter) ([]domain.FileVersion, error) {
	where, args, err := buildWhere(f)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
        SELECT %s FROM file_versions
        WHERE %s
        ORDER BY uploaded_at DESC, id DESC`, versionColumns, where)

	versions := []domain.FileVersion{}
	if err := r.db.SelectContext(ctx, &versions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query file versions: %w", err)
	}

	return versions, nil
}

// FindOne возвращает самую свежую версию, совпадающую с фильтром.
// Выбор детерминированный: uploaded_at DESC, id DESC, LIMIT 1.
func (r *VersionRepository) FindOne(ctx context.Context, f domain.VersionFilter) (*domain.FileVersion, error) {
	where, args, err := buildWhere(f)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
        SELECT %s FROM file_versions
        WHERE %s
        ORDER BY uploaded_at DESC, id DESC
        LIMIT 1`, versionColumns, where)

	var v domain.FileVersion
	if err := r.db.GetContext(ctx, &v, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query file version: %w", err)
	}

	return &v, nil
}

func (r *VersionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.FileVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM file_versions WHERE id = $1`, versionColumns)

	var v domain.FileVersion
	if err := r.db.GetContext(ctx, &v, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query file version %s: %w", id, err)
	}

	return &v, nil
}

// ListCurrent возвращает по одной самой свежей версии на каждое имя файла.
// Выборка пересчитывается на каждый вызов, без материализованного
// указателя на текущую версию.
func (r *VersionRepository) ListCurrent(ctx context.Context, f domain.VersionFilter) ([]domain.FileVersion, error) {
	where, args, err := buildWhere(f)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
        SELECT %s FROM (
            SELECT DISTINCT ON (filename) %s
            FROM file_versions
            WHERE %s
            ORDER BY filename, uploaded_at DESC, id DESC
        ) AS current
        ORDER BY uploaded_at DESC, id DESC`, versionColumns, versionColumns, where)

	versions := []domain.FileVersion{}
	if err := r.db.SelectContext(ctx, &versions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query current versions: %w", err)
	}

	return versions, nil
}

// CountFiles считает число различных имен файлов среди совпавших версий.
func (r *VersionRepository) CountFiles(ctx context.Context, f domain.VersionFilter) (int64, error) {
	where, args, err := buildWhere(f)
	if err != nil {
		return 0, err
	}

	var count int64
	query := fmt.Sprintf(`SELECT COUNT(DISTINCT filename) FROM file_versions WHERE %s`, where)
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}

	return count, nil
}

// CountVersions считает общее число совпавших версий.
func (r *VersionRepository) CountVersions(ctx context.Context, f domain.VersionFilter) (int64, error) {
	where, args, err := buildWhere(f)
	if err != nil {
		return 0, err
	}

	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM file_versions WHERE %s`, where)
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count versions: %w", err)
	}

	return count, nil
}

// Resolve выполняет фазу чтения каскадного удаления: фиксирует id, имена
// и ключи хранилища на момент вызова. Само удаление идет по этим id, так
// что версия, загруженная после Resolve, затронута не будет.
func (r *VersionRepository) Resolve(ctx context.Context, f domain.VersionFilter) ([]domain.ResolvedVersion, error) {
	where, args, err := buildWhere(f)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, filename, storage_key FROM file_versions WHERE %s`, where)

	resolved := []domain.ResolvedVersion{}
	if err := r.db.SelectContext(ctx, &resolved, query, args...); err != nil {
		return nil, fmt.Errorf("failed to resolve versions: %w", err)
	}

	return resolved, nil
}

// DeleteByIDs удаляет записи метаданных по списку id и возвращает число
// реально удаленных строк. Удаление уже отсутствующего id - не ошибка.
func (r *VersionRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM file_versions WHERE id = ANY($1::uuid[])`,
		pq.Array(idStrings),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete file versions: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted rows count: %w", err)
	}

	return count, nil
}

// ListContainers возвращает различные значения container по всем версиям.
// Контейнер без единой версии не существует как сущность.
func (r *VersionRepository) ListContainers(ctx context.Context) ([]string, error) {
	containers := []string{}
	query := `SELECT DISTINCT container FROM file_versions ORDER BY container`
	if err := r.db.SelectContext(ctx, &containers, query); err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	return containers, nil
}

// RenameContainer массово переписывает container на всех совпавших версиях
// и возвращает число обновленных строк.
func (r *VersionRepository) RenameContainer(ctx context.Context, oldName, newName string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE file_versions SET container = $1 WHERE container = $2`,
		newName, oldName,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to rename container: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read renamed rows count: %w", err)
	}

	return count, nil
}

// UpdateMetadata переписывает метаданные версии целиком. Слияние со старым
// содержимым делает сервис до вызова.
func (r *VersionRepository) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata domain.Metadata) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE file_versions SET metadata = $1 WHERE id = $2`,
		metadata, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read updated rows count: %w", err)
	}
	if count == 0 {
		return domain.ErrNotFound
	}

	return nil
}
