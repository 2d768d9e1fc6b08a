package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/repository/repoargs"
	"github.com/fsdevblog/groph-boost/pkg/uow"
)

// OrderService управляет жизненным циклом заказа. Денежная часть размещения заказа
// атомарна (дебет + запись журнала + строка заказа в одной транзакции), сабмит
// провайдеру происходит после коммита и на финансовую фиксацию не влияет.
type OrderService struct {
	uow       uow.UOW
	orderRepo OrderRepository
	ledger    *LedgerService
	catalog   Cataloger
}

func NewOrderService(u uow.UOW, ledger *LedgerService, catalog Cataloger) (*OrderService, error) {
	orderRepo, err := uow.GetRepositoryAs[OrderRepository](u, uow.RepositoryName(repoargs.OrderRepoName))
	if err != nil {
		return nil, err
	}
	return &OrderService{
		uow:       u,
		orderRepo: orderRepo,
		ledger:    ledger,
		catalog:   catalog,
	}, nil
}

// PlaceOrder проводит покупку услуги как одну атомарную единицу: либо списание,
// запись журнала и строка заказа становятся видимы вместе, либо ничего.
//
// Алгоритм:
//  1. Ищет услугу в каталоге; неактивная услуга - domain.ErrServiceUnavailable.
//  2. Проверяет лимиты количества - domain.InvalidQuantityError.
//  3. В транзакции: блокирует юзера, считает стоимость по скидке ступени на момент
//     начала транзакции, создает заказ в PENDING и списывает стоимость.
//     Нехватка средств (domain.ErrInsufficientBalance) откатывает все разом,
//     строка заказа не остается.
//
// Сабмит провайдеру сюда не входит: успешный возврат означает ровно то, что деньги
// списаны и заказ существует.
func (o *OrderService) PlaceOrder(
	ctx context.Context,
	userID int64,
	serviceID int64,
	link string,
	quantity int64,
) (*domain.Order, error) {
	svc, svcErr := o.catalog.GetService(ctx, serviceID)
	if svcErr != nil {
		return nil, fmt.Errorf("placing order: %w", svcErr)
	}
	if svc.Status != domain.ServiceStatusActive {
		return nil, fmt.Errorf("placing order for service %d: %w", serviceID, domain.ErrServiceUnavailable)
	}
	if quantity < svc.MinQuantity || quantity > svc.MaxQuantity {
		return nil, domain.NewInvalidQuantityError(quantity, svc.MinQuantity, svc.MaxQuantity)
	}

	var order *domain.Order
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		userRepo, userRepoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if userRepoErr != nil {
			return userRepoErr //nolint:wrapcheck
		}
		orderRepo, orderRepoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if orderRepoErr != nil {
			return orderRepoErr //nolint:wrapcheck
		}

		// Скидка читается один раз под блокировкой и не пересчитывается по ходу.
		user, lockErr := userRepo.LockForUpdate(c, userID)
		if lockErr != nil {
			return lockErr //nolint:wrapcheck
		}

		charge := domain.CalculateCharge(svc.Rate, quantity, user.TierDiscount)

		var createErr error
		order, createErr = orderRepo.Create(c, repoargs.OrderCreate{
			UserID:    userID,
			ServiceID: serviceID,
			Link:      link,
			Quantity:  quantity,
			Charge:    charge,
		})
		if createErr != nil {
			return createErr //nolint:wrapcheck
		}

		_, debitErr := o.ledger.DebitTx(c, tx, EntryArgs{
			UserID:      userID,
			Amount:      charge,
			Kind:        domain.LedgerKindOrderPayment,
			Description: fmt.Sprintf("Order #%d: %s x%d", order.ID, svc.Name, quantity),
			OrderID:     &order.ID,
		})
		return debitErr
	})

	if txErr != nil {
		if errors.Is(txErr, domain.ErrInsufficientBalance) {
			return nil, txErr
		}
		return nil, fmt.Errorf("placing order: %w", txErr)
	}
	return order, nil
}

// MarkProcessing переводит заказ PENDING -> PROCESSING и фиксирует идентификатор
// заказа у провайдера. Вызывается только после успешного сабмита: заказ с
// provider id никогда не минует PROCESSING.
func (o *OrderService) MarkProcessing(
	ctx context.Context,
	orderID int64,
	providerOrderID string,
) (*domain.Order, error) {
	order, err := o.orderRepo.TransitionStatus(ctx, repoargs.OrderStatusTransition{
		OrderID:         orderID,
		From:            []domain.OrderStatusType{domain.OrderStatusPending},
		To:              domain.OrderStatusProcessing,
		ProviderOrderID: &providerOrderID,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return order, nil
}

// Complete переводит заказ PROCESSING -> COMPLETED и проставляет completed_at.
func (o *OrderService) Complete(ctx context.Context, orderID int64) (*domain.Order, error) {
	now := time.Now()
	order, err := o.orderRepo.TransitionStatus(ctx, repoargs.OrderStatusTransition{
		OrderID:     orderID,
		From:        []domain.OrderStatusType{domain.OrderStatusProcessing},
		To:          domain.OrderStatusCompleted,
		CompletedAt: &now,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return order, nil
}

// FailAndRefund помечает заказ FAILED и проводит компенсирующий возврат ровно
// один раз, одной транзакцией.
//
// Гарантия at-most-once на возврат тройная:
//  1. compare-and-set по статусу: из терминальных статусов перехода в FAILED нет,
//     конкурент получает domain.ErrOrderNotTransitable;
//  2. перед кредитом проверяется отсутствие записи REFUND по заказу;
//  3. частичный уникальный индекс журнала отобьет второй REFUND даже при гонке.
//
// FAILED входит в допустимые исходные статусы: сам сервис такой строки не
// оставляет (пометка и кредит коммитятся вместе), но заказ, помеченный FAILED
// вручную мимо сервиса, реконсилиация этим же путем доводит до REFUNDED.
func (o *OrderService) FailAndRefund(ctx context.Context, orderID int64, reason string) (*domain.Order, error) {
	var order *domain.Order
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		orderRepo, orderRepoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if orderRepoErr != nil {
			return orderRepoErr //nolint:wrapcheck
		}
		ledgerRepo, ledgerRepoErr := uow.GetAs[LedgerRepository](tx, uow.RepositoryName(repoargs.LedgerRepoName))
		if ledgerRepoErr != nil {
			return ledgerRepoErr //nolint:wrapcheck
		}

		failed, failErr := orderRepo.TransitionStatus(c, repoargs.OrderStatusTransition{
			OrderID: orderID,
			From: []domain.OrderStatusType{
				domain.OrderStatusPending,
				domain.OrderStatusProcessing,
				domain.OrderStatusFailed,
			},
			To: domain.OrderStatusFailed,
		})
		if failErr != nil {
			return failErr //nolint:wrapcheck
		}

		refunded, refundedErr := ledgerRepo.RefundExists(c, orderID)
		if refundedErr != nil {
			return refundedErr //nolint:wrapcheck
		}
		if !refunded {
			_, creditErr := o.ledger.CreditTx(c, tx, EntryArgs{
				UserID:      failed.UserID,
				Amount:      failed.Charge,
				Kind:        domain.LedgerKindRefund,
				Description: fmt.Sprintf("Refund for order #%d: %s", orderID, reason),
				OrderID:     &orderID,
			})
			if creditErr != nil {
				return creditErr //nolint:wrapcheck
			}
		}

		var refundMarkErr error
		order, refundMarkErr = orderRepo.TransitionStatus(c, repoargs.OrderStatusTransition{
			OrderID: orderID,
			From:    []domain.OrderStatusType{domain.OrderStatusFailed},
			To:      domain.OrderStatusRefunded,
		})
		return refundMarkErr //nolint:wrapcheck
	})

	if txErr != nil {
		if errors.Is(txErr, domain.ErrOrderNotTransitable) {
			return nil, txErr
		}
		return nil, fmt.Errorf("failing order %d with refund: %w", orderID, txErr)
	}
	return order, nil
}

// UnsettledOrders возвращает заказы в неконечных статусах для цикла реконсилиации.
func (o *OrderService) UnsettledOrders(ctx context.Context, limit uint) ([]domain.Order, error) {
	orders, err := o.orderRepo.GetUnsettled(ctx, limit)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return orders, nil
}

// GetByUserID возвращает заказы юзера, новые первыми.
func (o *OrderService) GetByUserID(ctx context.Context, userID int64) ([]domain.Order, error) {
	orders, err := o.orderRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return orders, nil
}

// FindForUser возвращает заказ с проверкой принадлежности: чужой заказ неотличим
// от несуществующего.
func (o *OrderService) FindForUser(ctx context.Context, orderID, userID int64) (*domain.Order, error) {
	order, err := o.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("finding order %d for user %d: %w", orderID, userID, domain.ErrRecordNotFound)
	}
	return order, nil
}
