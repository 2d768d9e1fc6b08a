package domain

type OrderStatusType string

const (
	OrderStatusPending    OrderStatusType = "PENDING"
	OrderStatusProcessing OrderStatusType = "PROCESSING"
	OrderStatusCompleted  OrderStatusType = "COMPLETED"
	OrderStatusFailed     OrderStatusType = "FAILED"
	OrderStatusRefunded   OrderStatusType = "REFUNDED"
)

// IsTerminal сообщает, является ли статус конечным. Конечные заказы реконсилиация
// больше не трогает.
func (s OrderStatusType) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusRefunded
}

type LedgerKindType string

const (
	LedgerKindDeposit         LedgerKindType = "DEPOSIT"
	LedgerKindOrderPayment    LedgerKindType = "ORDER_PAYMENT"
	LedgerKindRefund          LedgerKindType = "REFUND"
	LedgerKindAdminAdjustment LedgerKindType = "ADMIN_ADJUSTMENT"
)

type ServiceStatusType string

const (
	ServiceStatusActive   ServiceStatusType = "active"
	ServiceStatusInactive ServiceStatusType = "inactive"
)

type DepositStatusType string

const (
	DepositStatusPending  DepositStatusType = "pending"
	DepositStatusApproved DepositStatusType = "approved"
)
