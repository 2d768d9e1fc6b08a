package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Email        string
	Password     string
	Balance      decimal.Decimal
	TotalSpent   decimal.Decimal
	TierLevel    int
	TierDiscount decimal.Decimal
	IsActive     bool
}

type Service struct {
	ID                int64
	CreatedAt         time.Time
	Name              string
	Category          string
	Rate              decimal.Decimal
	MinQuantity       int64
	MaxQuantity       int64
	ProviderServiceID string
	Status            ServiceStatusType
}

type Order struct {
	ID              int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
	UserID          int64
	ServiceID       int64
	Link            string
	Quantity        int64
	Charge          decimal.Decimal
	Status          OrderStatusType
	ProviderOrderID *string
}

// LedgerEntry неизменяемая запись, объясняющая одно изменение баланса. Записи никогда
// не редактируются и не удаляются. Amount знаковый: пополнения положительные,
// списания отрицательные.
type LedgerEntry struct {
	ID            int64
	CreatedAt     time.Time
	UserID        int64
	OrderID       *int64
	Kind          LedgerKindType
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Description   string
}

type Deposit struct {
	ID           int64
	CreatedAt    time.Time
	UserID       int64
	Amount       decimal.Decimal
	Method       string
	BankName     string
	ExternalTxID *string
	Status       DepositStatusType
}
