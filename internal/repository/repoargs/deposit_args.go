package repoargs

import "github.com/shopspring/decimal"

type DepositCreate struct {
	UserID   int64
	Amount   decimal.Decimal
	Method   string
	BankName string
}
