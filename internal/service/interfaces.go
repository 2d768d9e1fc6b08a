package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/repository/repoargs"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type UserRepository interface {
	CreateUser(ctx context.Context, args repoargs.CreateUser) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	LockForUpdate(ctx context.Context, id int64) (*domain.User, error)
	UpdateBalance(ctx context.Context, id int64, args repoargs.BalanceUpdate) error
}

type OrderRepository interface {
	Create(ctx context.Context, args repoargs.OrderCreate) (*domain.Order, error)
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByUserID(ctx context.Context, userID int64) ([]domain.Order, error)
	GetUnsettled(ctx context.Context, limit uint) ([]domain.Order, error)
	TransitionStatus(ctx context.Context, args repoargs.OrderStatusTransition) (*domain.Order, error)
}

type LedgerRepository interface {
	Create(ctx context.Context, args repoargs.LedgerEntryCreate) (*domain.LedgerEntry, error)
	GetByUserID(ctx context.Context, userID int64) ([]domain.LedgerEntry, error)
	SumByUserID(ctx context.Context, userID int64) (decimal.Decimal, error)
	RefundExists(ctx context.Context, orderID int64) (bool, error)
}

type ServiceRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Service, error)
	GetActive(ctx context.Context) ([]domain.Service, error)
}

type DepositRepository interface {
	Create(ctx context.Context, args repoargs.DepositCreate) (*domain.Deposit, error)
	FindByID(ctx context.Context, id int64) (*domain.Deposit, error)
	Approve(ctx context.Context, id int64, externalTxID string) (*domain.Deposit, error)
}

// CatalogCache read-through кеш каталога услуг. Промах возвращает
// domain.ErrRecordNotFound; любые ошибки кеша не фатальны для чтения каталога.
type CatalogCache interface {
	GetService(ctx context.Context, id int64) (*domain.Service, error)
	SetService(ctx context.Context, service *domain.Service) error
}

// Cataloger читающий контракт каталога услуг, единственное что нужно заказам.
type Cataloger interface {
	GetService(ctx context.Context, id int64) (*domain.Service, error)
}
