// storage.go
package s3

import (
	"context"
	"io"
)

// S3Object определяет интерфейс для объектов S3
type S3Object interface {
	io.ReadCloser
	ContentLength() int64
	ContentType() string
}

// s3Object реализует интерфейс S3Object
type s3Object struct {
	io.ReadCloser
	contentLength int64
	contentType   string
}

func (o *s3Object) ContentLength() int64 {
	return o.contentLength
}

func (o *s3Object) ContentType() string {
	return o.contentType
}

// Storage определяет интерфейс для работы с S3-совместимым хранилищем
// бинарного содержимого версий. Один объект на одну версию файла.
type Storage interface {
	// UploadStream потоково загружает содержимое неизвестной длины
	// и возвращает число записанных байт
	UploadStream(ctx context.Context, key string, reader io.Reader) (int64, error)
	GetObject(ctx context.Context, key string) (S3Object, error)
	GetObjectRange(ctx context.Context, key string, start, end int64) (S3Object, error)
	// DeleteObjects массово удаляет объекты по списку ключей и возвращает
	// число удаленных
	DeleteObjects(ctx context.Context, keys []string) (int, error)
}
