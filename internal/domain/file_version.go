// domain/file_version.go
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FileVersion представляет одну загруженную версию файла внутри контейнера.
// Связка container+filename образует линию версий; текущей считается запись
// с наибольшим uploaded_at (при совпадении - с большим id).
type FileVersion struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Container  string    `json:"container" db:"container"`
	Filename   string    `json:"filename" db:"filename"`
	MIMEType   string    `json:"mime_type" db:"mime_type"`
	SizeBytes  int64     `json:"size_bytes" db:"size_bytes"`
	StorageKey string    `json:"-" db:"storage_key"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
	Metadata   Metadata  `json:"metadata,omitempty" db:"metadata"`
}

// Metadata хранит произвольные пользовательские метаданные версии.
// В базе лежит как jsonb.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}

	if len(data) == 0 {
		*m = Metadata{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Merge накладывает overlay поверх текущих метаданных: новые ключи
// перезаписывают старые с тем же именем. Исходная карта не меняется.
func (m Metadata) Merge(overlay Metadata) Metadata {
	merged := make(Metadata, len(m)+len(overlay))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

// ResolvedVersion - срез версии, зафиксированный фазой чтения каскадного
// удаления: id записи, имя файла и ключ бинарного содержимого.
type ResolvedVersion struct {
	ID         uuid.UUID `db:"id"`
	Filename   string    `db:"filename"`
	StorageKey string    `db:"storage_key"`
}

// DeleteResult содержит итог каскадного удаления версий.
type DeleteResult struct {
	VersionsDeleted int64 `json:"versions_deleted"`
	FilesDeleted    int64 `json:"files_deleted,omitempty"`
}

// ContainerStats содержит счетчики по контейнеру.
type ContainerStats struct {
	Files    int64 `json:"files"`
	Versions int64 `json:"versions"`
}
