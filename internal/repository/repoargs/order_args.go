package repoargs

import (
	"time"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/shopspring/decimal"
)

type OrderCreate struct {
	UserID    int64
	ServiceID int64
	Link      string
	Quantity  int64
	Charge    decimal.Decimal
}

// OrderStatusTransition описывает compare-and-set переход статуса заказа.
// Переход применяется только если текущий статус входит в From, иначе
// репозиторий возвращает domain.ErrOrderNotTransitable.
type OrderStatusTransition struct {
	OrderID         int64
	From            []domain.OrderStatusType
	To              domain.OrderStatusType
	ProviderOrderID *string
	CompletedAt     *time.Time
}
