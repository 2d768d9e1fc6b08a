package provider

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/notify"
	"github.com/fsdevblog/groph-boost/internal/transport/provider/client"
)

const defaultSubmitTimeout = 30 * time.Second

// Dispatcher отправляет оплаченный заказ провайдеру.
//
// Исходы сабмита:
//   - успех: заказ переходит PENDING -> PROCESSING с provider id;
//   - перманентный отказ: заказ фейлится с возвратом средств, повторов не будет;
//   - транзиентный сбой (после повторов клиента): заказ остается PENDING, его
//     подхватит следующий цикл реконсилиации. Ключ идемпотентности (наш id
//     заказа) гарантирует, что повторный сабмит не создаст дубликат.
type Dispatcher struct {
	client        Client
	svs           Servicer
	catalog       Cataloger
	notifier      notify.Notifier
	l             *logrus.Entry
	submitTimeout time.Duration
}

func NewDispatcher(
	c Client,
	svs Servicer,
	catalog Cataloger,
	notifier notify.Notifier,
	l *logrus.Logger,
) *Dispatcher {
	return &Dispatcher{
		client:   c,
		svs:      svs,
		catalog:  catalog,
		notifier: notifier,
		l: l.WithFields(logrus.Fields{
			"component": "provider",
			"module":    "dispatcher",
		}),
		submitTimeout: defaultSubmitTimeout,
	}
}

// SetSubmitTimeout устанавливает бюджет времени на сабмит одного заказа,
// включая все повторы.
func (d *Dispatcher) SetSubmitTimeout(timeout time.Duration) *Dispatcher {
	d.submitTimeout = timeout
	return d
}

// Dispatch отправляет один заказ провайдеру и фиксирует исход.
func (d *Dispatcher) Dispatch(ctx context.Context, order *domain.Order) error {
	svc, svcErr := d.catalog.GetService(ctx, order.ServiceID)
	if svcErr != nil {
		return fmt.Errorf("dispatching order %d: %w", order.ID, svcErr)
	}

	submitCtx, cancel := context.WithTimeout(ctx, d.submitTimeout)
	defer cancel()

	providerOrderID, submitErr := d.client.Submit(
		submitCtx,
		svc.ProviderServiceID,
		order.Link,
		order.Quantity,
		strconv.FormatInt(order.ID, 10),
	)
	if submitErr != nil {
		if client.IsPermanent(submitErr) {
			return d.rejectOrder(ctx, order, submitErr)
		}
		// Заказ остается PENDING до следующего цикла.
		return fmt.Errorf("dispatching order %d: %w", order.ID, submitErr)
	}

	if _, markErr := d.svs.MarkProcessing(ctx, order.ID, providerOrderID); markErr != nil {
		// Конкурентный переход означает, что заказ уже обработан кем-то еще.
		if errors.Is(markErr, domain.ErrOrderNotTransitable) {
			return nil
		}
		return fmt.Errorf("dispatching order %d: %w", order.ID, markErr)
	}

	d.l.WithFields(logrus.Fields{
		"orderID":         order.ID,
		"providerOrderID": providerOrderID,
	}).Info("order submitted")
	d.notifier.Notify(ctx, notify.EventOrderSubmitted,
		fmt.Sprintf("Order #%d submitted to provider as %s", order.ID, providerOrderID))
	return nil
}

// rejectOrder фейлит заказ после перманентного отказа провайдера.
func (d *Dispatcher) rejectOrder(ctx context.Context, order *domain.Order, cause error) error {
	_, refundErr := d.svs.FailAndRefund(ctx, order.ID, "provider rejected order")
	if refundErr != nil {
		if errors.Is(refundErr, domain.ErrOrderNotTransitable) {
			return nil
		}
		return fmt.Errorf("rejecting order %d: %w", order.ID, refundErr)
	}

	d.l.WithField("orderID", order.ID).WithError(cause).Warn("order rejected by provider, refunded")
	d.notifier.Notify(ctx, notify.EventOrderRefunded,
		fmt.Sprintf("Order #%d rejected by provider, refunded", order.ID))
	return nil
}
