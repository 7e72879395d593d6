package service

import (
	"fmt"
	"path"
	"strings"

	"vaultdrive/internal/domain"
)

// NamePattern - шаблон имени элемента архива. Поддерживаются поля
// {filename}, {id} и {container}; результат приводится к безопасному
// плоскому имени без разделителей пути.
type NamePattern string

const (
	// DefaultNamePattern подходит для набора текущих файлов, где имена
	// уникальны сами по себе.
	DefaultNamePattern NamePattern = "{filename}"
	// VersionedNamePattern встраивает id и различает несколько версий
	// одного имени.
	VersionedNamePattern NamePattern = "{id}_{filename}"
)

// Render подставляет поля версии в шаблон.
func (p NamePattern) Render(v domain.FileVersion) string {
	replacer := strings.NewReplacer(
		"{filename}", v.Filename,
		"{id}", v.ID.String(),
		"{container}", v.Container,
	)
	return sanitizeEntryName(replacer.Replace(string(p)))
}

// sanitizeEntryName выжигает из имени разделители пути и переходы наверх,
// чтобы элемент архива не мог распаковаться за пределы целевой директории.
func sanitizeEntryName(name string) string {
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "..", "_")
	name = strings.Trim(name, ". ")
	if name == "" {
		return "file"
	}
	return name
}

// uniqueEntryName гарантирует уникальность имен внутри одного архива:
// повторы получают числовой суффикс перед расширением.
func uniqueEntryName(name string, used map[string]int) string {
	count := used[name]
	used[name] = count + 1
	if count == 0 {
		return name
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := fmt.Sprintf("%s (%d)%s", stem, count+1, ext)
	for used[candidate] > 0 {
		count++
		candidate = fmt.Sprintf("%s (%d)%s", stem, count+1, ext)
	}

	used[candidate] = 1
	return candidate
}
