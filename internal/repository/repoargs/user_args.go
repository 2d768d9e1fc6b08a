package repoargs

import "github.com/shopspring/decimal"

type CreateUser struct {
	Email    string
	Password string
}

// BalanceUpdate новое денежное состояние юзера целиком. Поля не дельты, а
// абсолютные значения, рассчитанные под блокировкой строки.
type BalanceUpdate struct {
	Balance      decimal.Decimal
	TotalSpent   decimal.Decimal
	TierLevel    int
	TierDiscount decimal.Decimal
}
