package notify

import "context"

type Event string

const (
	EventOrderSubmitted   Event = "order_submitted"
	EventOrderCompleted   Event = "order_completed"
	EventOrderRefunded    Event = "order_refunded"
	EventDepositConfirmed Event = "deposit_confirmed"
)

// Notifier отправляет событие во внешний канал. Доставка best-effort: реализация
// не возвращает ошибку, сбой не должен влиять на бизнес-операцию.
type Notifier interface {
	Notify(ctx context.Context, event Event, message string)
}

// Noop заглушка на случай, когда канал уведомлений не сконфигурирован.
type Noop struct{}

func (Noop) Notify(_ context.Context, _ Event, _ string) {}
