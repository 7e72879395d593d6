package domain

import "errors"

// Общие ошибки слоя хранения. Хендлеры маппят их на HTTP статусы,
// сервисы оборачивают через fmt.Errorf("%w: ...").
var (
	ErrNotFound           = errors.New("file version not found")
	ErrInvalidIdentifier  = errors.New("invalid version identifier")
	ErrEmptyBundle        = errors.New("bundle selection is empty")
	ErrStorageUnavailable = errors.New("object storage unavailable")
)
