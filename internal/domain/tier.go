package domain

import "github.com/shopspring/decimal"

// Tier скидочная ступень, производная от суммарных трат юзера.
type Tier struct {
	Level    int
	Name     string
	Discount decimal.Decimal
}

// tierTable пороги входа в ступень, по возрастанию. Threshold это минимальная
// суммарная трата (VND) для входа: spent >= Threshold означает переход на ступень.
var tierTable = []struct {
	Threshold decimal.Decimal
	Tier      Tier
}{
	{decimal.Zero, Tier{Level: 1, Name: "Cấp 1", Discount: decimal.Zero}},
	{decimal.NewFromInt(5_000_000), Tier{Level: 2, Name: "Cấp 2", Discount: decimal.NewFromInt(3)}},
	{decimal.NewFromInt(20_000_000), Tier{Level: 3, Name: "Cấp 3", Discount: decimal.NewFromInt(5)}},
	{decimal.NewFromInt(50_000_000), Tier{Level: 4, Name: "VIP", Discount: decimal.NewFromInt(10)}},
}

// TierForSpent возвращает ступень для суммарных трат. Чистая функция без состояния,
// totalSpent меньше нуля трактуется как ноль.
func TierForSpent(totalSpent decimal.Decimal) Tier {
	current := tierTable[0].Tier
	for _, row := range tierTable[1:] {
		if totalSpent.GreaterThanOrEqual(row.Threshold) {
			current = row.Tier
		}
	}
	return current
}

// NextTierThreshold возвращает порог следующей ступени и false, если юзер уже на
// максимальной ступени.
func NextTierThreshold(totalSpent decimal.Decimal) (decimal.Decimal, bool) {
	for _, row := range tierTable[1:] {
		if totalSpent.LessThan(row.Threshold) {
			return row.Threshold, true
		}
	}
	return decimal.Zero, false
}
