package pgrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/repository/repoargs"
	"github.com/fsdevblog/groph-boost/pkg/uow"
)

const orderColumns = `id, created_at, updated_at, completed_at, user_id, service_id,
	link, quantity, charge, status, provider_order_id`

type OrderRepository struct {
	db uow.DBTX
}

func NewOrderRepository(db uow.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create создает заказ в статусе PENDING. Charge фиксируется при создании и
// больше не меняется.
func (o *OrderRepository) Create(ctx context.Context, args repoargs.OrderCreate) (*domain.Order, error) {
	row := o.db.QueryRow(ctx, `
		INSERT INTO orders (user_id, service_id, link, quantity, charge, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+orderColumns,
		args.UserID, args.ServiceID, args.Link, args.Quantity, args.Charge, domain.OrderStatusPending)

	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "creating order for user %d", args.UserID)
	}
	return order, nil
}

func (o *OrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	row := o.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "finding order by id %d", id)
	}
	return order, nil
}

// GetByUserID возвращает заказы юзера, отсортированные по дате создания по убыванию.
func (o *OrderRepository) GetByUserID(ctx context.Context, userID int64) ([]domain.Order, error) {
	rows, err := o.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, convertErr(err, "getting orders by userID %d", userID)
	}
	return collectOrders(rows, "getting orders by userID %d", userID)
}

// GetUnsettled возвращает заказы в неконечных статусах (PENDING, PROCESSING,
// FAILED) для цикла реконсилиации, старые первыми. FAILED не конечный: заказ
// считается закрытым только после возврата средств (REFUNDED).
func (o *OrderRepository) GetUnsettled(ctx context.Context, limit uint) ([]domain.Order, error) {
	rows, err := o.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = ANY($1)
		ORDER BY created_at ASC
		LIMIT $2`,
		[]string{
			string(domain.OrderStatusPending),
			string(domain.OrderStatusProcessing),
			string(domain.OrderStatusFailed),
		}, int64(limit)) //nolint:gosec
	if err != nil {
		return nil, convertErr(err, "getting unsettled orders")
	}
	return collectOrders(rows, "getting unsettled orders")
}

// TransitionStatus атомарно переводит заказ из одного из статусов From в статус To
// (compare-and-set, не слепая запись). Если заказ уже ушел из From, возвращает
// domain.ErrOrderNotTransitable: так конкурирующие владельцы перехода (сабмит после
// коммита и цикл реконсилиации) не затирают друг друга.
func (o *OrderRepository) TransitionStatus(
	ctx context.Context,
	args repoargs.OrderStatusTransition,
) (*domain.Order, error) {
	from := make([]string, len(args.From))
	for i, s := range args.From {
		from[i] = string(s)
	}

	row := o.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2,
		    provider_order_id = COALESCE($3, provider_order_id),
		    completed_at = COALESCE($4, completed_at),
		    updated_at = now()
		WHERE id = $1 AND status = ANY($5)
		RETURNING `+orderColumns,
		args.OrderID, args.To, args.ProviderOrderID, args.CompletedAt, from)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf(
				"[repository/transitioning order %d to %s] %w",
				args.OrderID, args.To, domain.ErrOrderNotTransitable,
			)
		}
		return nil, convertErr(err, "transitioning order %d to %s", args.OrderID, args.To)
	}
	return order, nil
}

func collectOrders(rows pgx.Rows, format string, formatArgs ...any) ([]domain.Order, error) {
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, format, formatArgs...)
		}
		orders = append(orders, *order)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, format, formatArgs...)
	}
	return orders, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.CompletedAt,
		&order.UserID,
		&order.ServiceID,
		&order.Link,
		&order.Quantity,
		&order.Charge,
		&order.Status,
		&order.ProviderOrderID,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &order, nil
}
