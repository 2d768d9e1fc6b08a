package pgrepo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/repository/repoargs"
	"github.com/fsdevblog/groph-boost/pkg/uow"
)

const ledgerColumns = `id, created_at, user_id, order_id, kind, amount,
	balance_before, balance_after, description`

// LedgerRepository журнал изменений баланса. Только вставка и чтение: UPDATE и
// DELETE по ledger_entries не существуют ни в одном методе намеренно.
type LedgerRepository struct {
	db uow.DBTX
}

func NewLedgerRepository(db uow.DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Create добавляет запись журнала. Для kind = REFUND частичный уникальный индекс
// по order_id гарантирует не более одного возврата на заказ: повторная вставка
// вернет domain.ErrDuplicateKey.
func (l *LedgerRepository) Create(
	ctx context.Context,
	args repoargs.LedgerEntryCreate,
) (*domain.LedgerEntry, error) {
	row := l.db.QueryRow(ctx, `
		INSERT INTO ledger_entries (user_id, order_id, kind, amount, balance_before, balance_after, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+ledgerColumns,
		args.UserID, args.OrderID, args.Kind, args.Amount,
		args.BalanceBefore, args.BalanceAfter, args.Description)

	entry, err := scanLedgerEntry(row)
	if err != nil {
		return nil, convertErr(err, "creating ledger entry for user %d", args.UserID)
	}
	return entry, nil
}

// GetByUserID возвращает записи журнала юзера в порядке возрастания времени
// (порядок воспроизведения баланса).
func (l *LedgerRepository) GetByUserID(ctx context.Context, userID int64) ([]domain.LedgerEntry, error) {
	rows, err := l.db.Query(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE user_id = $1 ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, convertErr(err, "getting ledger entries by userID %d", userID)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		entry, scanErr := scanLedgerEntry(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "getting ledger entries by userID %d", userID)
		}
		entries = append(entries, *entry)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "getting ledger entries by userID %d", userID)
	}
	return entries, nil
}

// SumByUserID возвращает сумму знаковых сумм всех записей юзера. По инварианту
// журнала она обязана совпадать с users.balance.
func (l *LedgerRepository) SumByUserID(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := l.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE user_id = $1`, userID).Scan(&sum)
	if err != nil {
		return decimal.Zero, convertErr(err, "summing ledger entries by userID %d", userID)
	}
	return sum, nil
}

// RefundExists сообщает, есть ли уже запись возврата по заказу.
func (l *LedgerRepository) RefundExists(ctx context.Context, orderID int64) (bool, error) {
	var exists bool
	err := l.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE order_id = $1 AND kind = $2)`,
		orderID, domain.LedgerKindRefund).Scan(&exists)
	if err != nil {
		return false, convertErr(err, "checking refund existence for order %d", orderID)
	}
	return exists, nil
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := row.Scan(
		&entry.ID,
		&entry.CreatedAt,
		&entry.UserID,
		&entry.OrderID,
		&entry.Kind,
		&entry.Amount,
		&entry.BalanceBefore,
		&entry.BalanceAfter,
		&entry.Description,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &entry, nil
}
