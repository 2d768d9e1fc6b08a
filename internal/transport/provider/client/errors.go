package client

import (
	"errors"
	"fmt"
	"time"
)

// FailureClass делит ошибки провайдера на три класса с разной реакцией:
// транзиентные повторяются с паузой, перманентные ведут к отказу заказа сразу,
// нечитаемый ответ трактуется как транзиентный (состояние на стороне провайдера
// неизвестно, повтор безопасен благодаря ключу идемпотентности).
type FailureClass string

const (
	FailureTransient   FailureClass = "transient"
	FailurePermanent   FailureClass = "permanent"
	FailureUnparseable FailureClass = "unparseable"
)

// APIError ошибка взаимодействия с API провайдера.
type APIError struct {
	Class      FailureClass
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider api: %s (status %d, %s)", e.Message, e.StatusCode, e.Class)
	}
	return fmt.Sprintf("provider api: %s (%s)", e.Message, e.Class)
}

func NewTransientError(statusCode int, message string) *APIError {
	return &APIError{Class: FailureTransient, StatusCode: statusCode, Message: message}
}

func NewPermanentError(statusCode int, message string) *APIError {
	return &APIError{Class: FailurePermanent, StatusCode: statusCode, Message: message}
}

func NewUnparseableError(message string) *APIError {
	return &APIError{Class: FailureUnparseable, Message: message}
}

// IsRetriable сообщает, имеет ли смысл повторять запрос. Перманентные отказы
// не повторяются, все остальное (таймауты, 5xx, 429, мусор в ответе) - да.
func IsRetriable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class != FailurePermanent
	}
	// Сетевые ошибки до получения ответа считаем транзиентными.
	return true
}

// IsPermanent сообщает, что провайдер окончательно отверг запрос.
func IsPermanent(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Class == FailurePermanent
}
