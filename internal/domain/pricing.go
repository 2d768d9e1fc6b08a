package domain

import "github.com/shopspring/decimal"

// chargeExponent кол-во знаков после запятой у денежных сумм. Должно совпадать
// с точностью NUMERIC колонок в БД.
const chargeExponent = 2

var perThousand = decimal.NewFromInt(1000)
var hundred = decimal.NewFromInt(100)

// CalculateCharge считает стоимость заказа: rate за 1000 единиц, умноженная на
// количество, минус скидка ступени в процентах. Округление банковское (к ближайшему
// четному), чтобы многократная арифметика баланса не накапливала смещение.
// Вся арифметика на decimal, плавающая точка для денег запрещена.
func CalculateCharge(rate decimal.Decimal, quantity int64, discountPercent decimal.Decimal) decimal.Decimal {
	gross := rate.Mul(decimal.NewFromInt(quantity)).Div(perThousand)
	multiplier := decimal.NewFromInt(1).Sub(discountPercent.Div(hundred))
	return gross.Mul(multiplier).RoundBank(chargeExponent)
}
