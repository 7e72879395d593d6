package repository

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"vaultdrive/internal/domain"
)

// buildWhere переводит абстрактный фильтр в SQL предикат с позиционными
// аргументами. Пустой фильтр дает предикат, совпадающий со всеми записями.
// Идентификатор в ExcludeID приходит строкой и конвертируется в uuid до
// сравнения; некорректная строка дает ErrInvalidIdentifier.
func buildWhere(f domain.VersionFilter) (string, []interface{}, error) {
	var conds []string
	var args []interface{}

	add := func(expr string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if f.Container != "" {
		add("container = $%d", f.Container)
	}
	if f.Filename != "" {
		add("filename = $%d", f.Filename)
	}
	if f.MIMEType != "" {
		add("mime_type = $%d", f.MIMEType)
	}
	if f.ExcludeID != "" {
		id, err := uuid.Parse(f.ExcludeID)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %q", domain.ErrInvalidIdentifier, f.ExcludeID)
		}
		add("id <> $%d", id)
	}
	if f.UploadedAfter != nil {
		add("uploaded_at >= $%d", *f.UploadedAfter)
	}
	if f.UploadedBefore != nil {
		add("uploaded_at <= $%d", *f.UploadedBefore)
	}

	if len(conds) == 0 {
		return "TRUE", nil, nil
	}
	return strings.Join(conds, " AND "), args, nil
}
