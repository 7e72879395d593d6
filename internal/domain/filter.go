package domain

import "time"

// VersionFilter описывает абстрактный фильтр по версиям файлов.
// Нулевое значение означает "все записи". ExcludeID задается строкой
// и конвертируется во внутренний тип id на стороне репозитория.
type VersionFilter struct {
	Container      string
	Filename       string
	MIMEType       string
	ExcludeID      string
	UploadedAfter  *time.Time
	UploadedBefore *time.Time
}

// IsZero сообщает, пустой ли фильтр (совпадает со всеми записями).
func (f VersionFilter) IsZero() bool {
	return f.Container == "" && f.Filename == "" && f.MIMEType == "" &&
		f.ExcludeID == "" && f.UploadedAfter == nil && f.UploadedBefore == nil
}
