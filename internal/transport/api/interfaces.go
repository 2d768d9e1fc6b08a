package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/service"
)

// UserServicer интерфейс исключительно для моков.
type UserServicer interface {
	Register(ctx context.Context, args service.RegisterUserArgs) (*domain.User, string, error)
	Login(ctx context.Context, args service.LoginUserArgs) (*domain.User, string, error)
}

type OrderServicer interface {
	PlaceOrder(ctx context.Context, userID, serviceID int64, link string, quantity int64) (*domain.Order, error)
	GetByUserID(ctx context.Context, userID int64) ([]domain.Order, error)
	FindForUser(ctx context.Context, orderID, userID int64) (*domain.Order, error)
}

type LedgerServicer interface {
	UserBalance(ctx context.Context, userID int64) (*domain.User, error)
	History(ctx context.Context, userID int64) ([]domain.LedgerEntry, error)
	RequestDeposit(
		ctx context.Context,
		userID int64,
		amount decimal.Decimal,
		method, bankName string,
	) (*domain.Deposit, error)
	ApplyDeposit(ctx context.Context, depositID int64, externalTxID string) (*domain.LedgerEntry, error)
}

type CatalogServicer interface {
	ActiveServices(ctx context.Context) ([]domain.Service, error)
}
