package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrPasswordMissMatch = errors.New("password mismatch")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrUnknown           = errors.New("unknown error")

	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrServiceUnavailable  = errors.New("service unavailable")
	ErrOrderNotTransitable = errors.New("order status not transitable")
	// ErrLedgerDrift баланс юзера разошелся с суммой записей журнала.
	ErrLedgerDrift = errors.New("ledger drift")
)

// InvalidQuantityError возвращается при нарушении лимитов количества услуги.
type InvalidQuantityError struct {
	Quantity int64
	Min      int64
	Max      int64
}

func NewInvalidQuantityError(quantity, minQ, maxQ int64) error {
	return &InvalidQuantityError{Quantity: quantity, Min: minQ, Max: maxQ}
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity %d is out of range [%d, %d]", e.Quantity, e.Min, e.Max)
}
