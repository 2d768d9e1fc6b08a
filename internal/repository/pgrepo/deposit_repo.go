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

const depositColumns = `id, created_at, user_id, amount, method, bank_name,
	external_tx_id, status`

type DepositRepository struct {
	db uow.DBTX
}

func NewDepositRepository(db uow.DBTX) *DepositRepository {
	return &DepositRepository{db: db}
}

func (d *DepositRepository) Create(ctx context.Context, args repoargs.DepositCreate) (*domain.Deposit, error) {
	row := d.db.QueryRow(ctx, `
		INSERT INTO deposits (user_id, amount, method, bank_name, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+depositColumns,
		args.UserID, args.Amount, args.Method, args.BankName, domain.DepositStatusPending)

	deposit, err := scanDeposit(row)
	if err != nil {
		return nil, convertErr(err, "creating deposit for user %d", args.UserID)
	}
	return deposit, nil
}

func (d *DepositRepository) FindByID(ctx context.Context, id int64) (*domain.Deposit, error) {
	row := d.db.QueryRow(ctx, `SELECT `+depositColumns+` FROM deposits WHERE id = $1`, id)
	deposit, err := scanDeposit(row)
	if err != nil {
		return nil, convertErr(err, "finding deposit by id %d", id)
	}
	return deposit, nil
}

// Approve переводит депозит pending -> approved и записывает внешний идентификатор
// транзакции. Две защиты от повторной доставки вебхука: compare-and-set по статусу
// (повтор вернет domain.ErrDuplicateKey, т.к. строка уже approved) и уникальный
// индекс по external_tx_id (тот же externalTxID на другом депозите тоже упадет
// в domain.ErrDuplicateKey).
func (d *DepositRepository) Approve(ctx context.Context, id int64, externalTxID string) (*domain.Deposit, error) {
	row := d.db.QueryRow(ctx, `
		UPDATE deposits
		SET status = $2, external_tx_id = $3
		WHERE id = $1 AND status = $4
		RETURNING `+depositColumns,
		id, domain.DepositStatusApproved, externalTxID, domain.DepositStatusPending)

	deposit, err := scanDeposit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Депозит существует, но уже не pending - повторная доставка.
			if _, findErr := d.FindByID(ctx, id); findErr == nil {
				return nil, fmt.Errorf("[repository/approving deposit %d] %w", id, domain.ErrDuplicateKey)
			}
			return nil, fmt.Errorf("[repository/approving deposit %d] %w", id, domain.ErrRecordNotFound)
		}
		return nil, convertErr(err, "approving deposit %d", id)
	}
	return deposit, nil
}

func scanDeposit(row rowScanner) (*domain.Deposit, error) {
	var deposit domain.Deposit
	err := row.Scan(
		&deposit.ID,
		&deposit.CreatedAt,
		&deposit.UserID,
		&deposit.Amount,
		&deposit.Method,
		&deposit.BankName,
		&deposit.ExternalTxID,
		&deposit.Status,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &deposit, nil
}
