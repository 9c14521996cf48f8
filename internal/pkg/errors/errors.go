package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется, когда личность пользователя не удалось установить.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния
	// (например, для пользователя уже идет генерация и блокировка занята).
	ErrConflict = errors.New("resource state conflict")

	// ErrQuotaExceeded означает, что дневная квота пользователя исчерпана.
	// Восстанавливается автоматически после окна сброса.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrGenerationFailed возвращается генератором только в строгом режиме.
	// В мягком режиме сбой генерации поглощается запасным вопросом.
	ErrGenerationFailed = errors.New("challenge generation failed")
)
