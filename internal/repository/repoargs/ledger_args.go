package repoargs

import (
	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/shopspring/decimal"
)

// LedgerEntryCreate параметры новой записи журнала. Amount знаковый: кредит
// положительный, дебет отрицательный.
type LedgerEntryCreate struct {
	UserID        int64
	OrderID       *int64
	Kind          domain.LedgerKindType
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Description   string
}
