package provider

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/transport/provider/client"
)

type Client interface {
	Submit(ctx context.Context, providerServiceID, link string, quantity int64, idemKey string) (string, error)
	OrderStatus(ctx context.Context, providerOrderID string) (client.StatusType, error)
}

type Servicer interface {
	UnsettledOrders(ctx context.Context, limit uint) ([]domain.Order, error)
	MarkProcessing(ctx context.Context, orderID int64, providerOrderID string) (*domain.Order, error)
	Complete(ctx context.Context, orderID int64) (*domain.Order, error)
	FailAndRefund(ctx context.Context, orderID int64, reason string) (*domain.Order, error)
}

type Cataloger interface {
	GetService(ctx context.Context, id int64) (*domain.Service, error)
}

// Ledger сверка денежного состояния юзера после компенсирующих операций.
type Ledger interface {
	VerifyBalance(ctx context.Context, userID int64) error
}
