package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/repository/repoargs"
	"github.com/fsdevblog/groph-boost/pkg/uow"
)

const userColumns = `id, created_at, updated_at, email, encrypted_password,
	balance, total_spent, tier_level, tier_discount, is_active`

type UserRepository struct {
	db uow.DBTX
}

func NewUserRepository(db uow.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser создает юзера с нулевым балансом. В случае конфликта email
// возвращает ошибку domain.ErrDuplicateKey.
func (u *UserRepository) CreateUser(ctx context.Context, args repoargs.CreateUser) (*domain.User, error) {
	row := u.db.QueryRow(ctx, `
		INSERT INTO users (email, encrypted_password)
		VALUES ($1, $2)
		RETURNING `+userColumns, args.Email, args.Password)

	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "creating user")
	}
	return user, nil
}

func (u *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := u.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "finding user by email %s", email)
	}
	return user, nil
}

func (u *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	row := u.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "finding user by id %d", id)
	}
	return user, nil
}

// LockForUpdate читает юзера с блокировкой строки (SELECT ... FOR UPDATE).
// Имеет смысл только внутри транзакции: блокировка сериализует конкурентные
// дебеты/кредиты одного юзера и держится до конца транзакции.
func (u *UserRepository) LockForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	row := u.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "locking user %d for update", id)
	}
	return user, nil
}

// UpdateBalance записывает новое денежное состояние юзера. Вызывается только под
// блокировкой LockForUpdate, значения абсолютные.
func (u *UserRepository) UpdateBalance(ctx context.Context, id int64, args repoargs.BalanceUpdate) error {
	tag, err := u.db.Exec(ctx, `
		UPDATE users
		SET balance = $2, total_spent = $3, tier_level = $4, tier_discount = $5, updated_at = now()
		WHERE id = $1`,
		id, args.Balance, args.TotalSpent, args.TierLevel, args.TierDiscount)
	if err != nil {
		return convertErr(err, "updating balance of user %d", id)
	}
	if tag.RowsAffected() == 0 {
		return convertErr(domain.ErrRecordNotFound, "updating balance of user %d", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Email,
		&user.Password,
		&user.Balance,
		&user.TotalSpent,
		&user.TierLevel,
		&user.TierDiscount,
		&user.IsActive,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &user, nil
}
