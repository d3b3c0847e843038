package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized запрашивающий не определён или не найден
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation некорректное значение фильтра или тела запроса
	ErrValidation = errors.New("validation error")
	// ErrQuotaExceeded недельная квота исчерпана
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrNotFound сущность не найдена (пустой стек rewind, отсутствующий target)
	ErrNotFound = errors.New("not found")
	// ErrTransientStore временная ошибка хранилища
	ErrTransientStore = errors.New("transient store error")
	// ErrFeatureLocked функция недоступна на текущем тарифе
	ErrFeatureLocked = errors.New("feature locked")
	// ErrSelfAction действие над самим собой
	ErrSelfAction = errors.New("cannot act on yourself")
)

// ValidationError ошибка валидации конкретного поля
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError создаёт ошибку валидации поля
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// QuotaExceededError исчерпание квоты с текущим состоянием счётчика
type QuotaExceededError struct {
	Limit   int
	Used    int
	WeekKey string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %d/%d in %s", e.Used, e.Limit, e.WeekKey)
}

func (e *QuotaExceededError) Unwrap() error {
	return ErrQuotaExceeded
}

// BusinessError ошибка бизнес-логики, которая уже залогирована в UseCase
type BusinessError struct {
	Err error
}

func (e *BusinessError) Error() string {
	return e.Err.Error()
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func WrapBusinessError(err error) error {
	if err == nil {
		return nil
	}
	return &BusinessError{Err: err}
}

func IsBusinessError(err error) bool {
	var businessErr *BusinessError
	return errors.As(err, &businessErr)
}
