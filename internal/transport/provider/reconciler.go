package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/notify"
	"github.com/fsdevblog/groph-boost/internal/transport/provider/client"
)

const (
	defaultInterval            = 15 * time.Second
	defaultServiceTimeout      = 3 * time.Second
	defaultPollTimeout         = 10 * time.Second
	defaultLimitPerCycle  uint = 100
	defaultProviderRPS         = 5
)

// Reconciler периодически сверяет незавершенные заказы с провайдером.
//
// Каждый цикл забирает пачку заказов в неконечных статусах и для каждого:
//   - PENDING отправляет провайдеру через Dispatcher;
//   - PROCESSING опрашивает статус и фиксирует конечный исход;
//   - FAILED без возврата (ручная пометка мимо сервиса) доводит до REFUNDED.
//
// Заказы независимы: ошибка по одному пишется в лог и не прерывает цикл.
// Обращения к провайдеру ограничены rate-лимитером, чтобы пачка не выливалась
// в шквал запросов.
type Reconciler struct {
	dispatcher    *Dispatcher
	client        Client
	svs           Servicer
	ledger        Ledger
	notifier      notify.Notifier
	l             *logrus.Entry
	interval      time.Duration
	limitPerCycle uint
	limiter       *rate.Limiter
}

func NewReconciler(
	dispatcher *Dispatcher,
	c Client,
	svs Servicer,
	ledger Ledger,
	notifier notify.Notifier,
	l *logrus.Logger,
) *Reconciler {
	return &Reconciler{
		dispatcher: dispatcher,
		client:     c,
		svs:        svs,
		ledger:     ledger,
		notifier:   notifier,
		l: l.WithFields(logrus.Fields{
			"component": "provider",
			"module":    "reconciler",
		}),
		interval:      defaultInterval,
		limitPerCycle: defaultLimitPerCycle,
		limiter:       rate.NewLimiter(rate.Limit(defaultProviderRPS), 1),
	}
}

// SetInterval устанавливает паузу между циклами сверки.
func (r *Reconciler) SetInterval(interval time.Duration) *Reconciler {
	r.interval = interval
	return r
}

// SetLimitPerCycle устанавливает кол-во заказов, обрабатываемых за один цикл.
func (r *Reconciler) SetLimitPerCycle(limit uint) *Reconciler {
	r.limitPerCycle = limit
	return r
}

// SetProviderRPS устанавливает лимит обращений к провайдеру в секунду.
func (r *Reconciler) SetProviderRPS(rps float64) *Reconciler {
	r.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	return r
}

// Run крутит циклы сверки до отмены контекста. Начатый цикл дорабатывает
// текущий заказ и выходит, на середине заказа не бросает.
func (r *Reconciler) Run(ctx context.Context) {
	r.l.WithFields(logrus.Fields{
		"interval":      r.interval,
		"limitPerCycle": r.limitPerCycle,
	}).Info("Starting")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.l.Info("Got stop signal, exiting...")
			return
		case <-ticker.C:
			if err := r.reconcile(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.l.WithError(err).Error("reconcile cycle failed")
			}
		}
	}
}

// reconcile выполняет один цикл сверки.
func (r *Reconciler) reconcile(ctx context.Context) error {
	produceCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	orders, ordersErr := r.svs.UnsettledOrders(produceCtx, r.limitPerCycle)
	cancel()
	if ordersErr != nil {
		return fmt.Errorf("fetching unsettled orders: %w", ordersErr)
	}

	for i := range orders {
		if ctx.Err() != nil {
			return ctx.Err() //nolint:wrapcheck
		}
		if waitErr := r.limiter.Wait(ctx); waitErr != nil {
			return waitErr //nolint:wrapcheck
		}

		order := &orders[i]
		if err := r.reconcileOrder(ctx, order); err != nil {
			r.l.WithError(err).WithFields(logrus.Fields{
				"orderID": order.ID,
				"status":  order.Status,
			}).Error("reconcile order failed")
		}
	}
	return nil
}

func (r *Reconciler) reconcileOrder(ctx context.Context, order *domain.Order) error {
	switch order.Status {
	case domain.OrderStatusPending:
		return r.dispatcher.Dispatch(ctx, order)
	case domain.OrderStatusProcessing:
		return r.pollOrder(ctx, order)
	case domain.OrderStatusFailed:
		// Пометка FAILED и кредит идут одной транзакцией, так что сам сервис
		// такую строку не оставляет. Ручная пометка заказа FAILED мимо сервиса
		// сюда попасть может, и возврат по ней все равно должен состояться.
		return r.settleFailed(ctx, order, "refund for externally failed order")
	case domain.OrderStatusCompleted, domain.OrderStatusRefunded:
		return nil
	}
	return nil
}

// pollOrder опрашивает провайдера и фиксирует конечный статус заказа.
func (r *Reconciler) pollOrder(ctx context.Context, order *domain.Order) error {
	if order.ProviderOrderID == nil {
		// PROCESSING без provider id быть не должно, переводов мимо
		// MarkProcessing нет. Лечить тут нечем, только сигналить.
		return fmt.Errorf("order %d is processing without provider order id", order.ID)
	}

	pollCtx, cancel := context.WithTimeout(ctx, defaultPollTimeout)
	status, statusErr := r.client.OrderStatus(pollCtx, *order.ProviderOrderID)
	cancel()
	if statusErr != nil {
		if client.IsPermanent(statusErr) {
			return r.settleFailed(ctx, order, "provider canceled order")
		}
		// Транзиентный сбой опроса: заказ останется PROCESSING до
		// следующего цикла.
		return fmt.Errorf("polling order %d: %w", order.ID, statusErr)
	}

	switch status {
	case client.StatusCompleted:
		_, completeErr := r.svs.Complete(ctx, order.ID)
		if completeErr != nil {
			if errors.Is(completeErr, domain.ErrOrderNotTransitable) {
				return nil
			}
			return fmt.Errorf("completing order %d: %w", order.ID, completeErr)
		}
		r.l.WithField("orderID", order.ID).Info("order completed")
		r.notifier.Notify(ctx, notify.EventOrderCompleted, fmt.Sprintf("Order #%d completed", order.ID))
		return nil
	case client.StatusCanceled, client.StatusPartial:
		return r.settleFailed(ctx, order, fmt.Sprintf("provider reported %s", status))
	case client.StatusPending, client.StatusInProgress, client.StatusProcessing:
		return nil
	}
	return nil
}

func (r *Reconciler) settleFailed(ctx context.Context, order *domain.Order, reason string) error {
	refunded, refundErr := r.svs.FailAndRefund(ctx, order.ID, reason)
	if refundErr != nil {
		if errors.Is(refundErr, domain.ErrOrderNotTransitable) {
			return nil
		}
		return fmt.Errorf("refunding order %d: %w", order.ID, refundErr)
	}
	r.l.WithFields(logrus.Fields{
		"orderID": order.ID,
		"reason":  reason,
	}).Warn("order failed, refunded")
	r.notifier.Notify(ctx, notify.EventOrderRefunded,
		fmt.Sprintf("Order #%d failed (%s), refunded", order.ID, reason))

	// Возврат - единственная компенсирующая операция, сверяем журнал юзера
	// сразу после нее. Расхождение не чиним, только сигналим.
	if verifyErr := r.ledger.VerifyBalance(ctx, refunded.UserID); verifyErr != nil {
		r.l.WithError(verifyErr).WithField("userID", refunded.UserID).Error("ledger verification failed")
	}
	return nil
}
