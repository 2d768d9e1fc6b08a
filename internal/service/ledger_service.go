package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/repository/repoargs"
	"github.com/fsdevblog/groph-boost/pkg/uow"
)

var errNonPositiveAmount = errors.New("amount must be positive")

// LedgerService владеет денежным состоянием юзера: оба примитива (дебет и кредит)
// меняют баланс и добавляют запись журнала одной транзакцией под блокировкой строки
// юзера. Никакой другой код баланс не трогает.
type LedgerService struct {
	uow         uow.UOW
	userRepo    UserRepository
	ledgerRepo  LedgerRepository
	depositRepo DepositRepository
}

func NewLedgerService(u uow.UOW) (*LedgerService, error) {
	userRepo, userRepoErr := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if userRepoErr != nil {
		return nil, userRepoErr
	}
	ledgerRepo, ledgerRepoErr := uow.GetRepositoryAs[LedgerRepository](u, uow.RepositoryName(repoargs.LedgerRepoName))
	if ledgerRepoErr != nil {
		return nil, ledgerRepoErr
	}
	depositRepo, depositRepoErr := uow.GetRepositoryAs[DepositRepository](u, uow.RepositoryName(repoargs.DepositRepoName))
	if depositRepoErr != nil {
		return nil, depositRepoErr
	}
	return &LedgerService{
		uow:         u,
		userRepo:    userRepo,
		ledgerRepo:  ledgerRepo,
		depositRepo: depositRepo,
	}, nil
}

// EntryArgs параметры дебета или кредита. Amount всегда положительный, знак
// определяется операцией. Идемпотентность примитивы не обеспечивают: вызывающая
// сторона отвечает за at-most-once на каждое логическое событие.
type EntryArgs struct {
	UserID      int64
	Amount      decimal.Decimal
	Kind        domain.LedgerKindType
	Description string
	OrderID     *int64
}

// Debit списывает средства в отдельной транзакции. См. DebitTx.
func (l *LedgerService) Debit(ctx context.Context, args EntryArgs) (*domain.LedgerEntry, error) {
	var entry *domain.LedgerEntry
	txErr := l.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		var err error
		entry, err = l.DebitTx(c, tx, args)
		return err
	})
	if txErr != nil {
		return nil, fmt.Errorf("debit user %d: %w", args.UserID, txErr)
	}
	return entry, nil
}

// Credit зачисляет средства в отдельной транзакции. См. CreditTx.
func (l *LedgerService) Credit(ctx context.Context, args EntryArgs) (*domain.LedgerEntry, error) {
	var entry *domain.LedgerEntry
	txErr := l.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		var err error
		entry, err = l.CreditTx(c, tx, args)
		return err
	})
	if txErr != nil {
		return nil, fmt.Errorf("credit user %d: %w", args.UserID, txErr)
	}
	return entry, nil
}

// DebitTx списывает средства внутри уже открытой транзакции tx.
//
// Алгоритм:
//  1. Блокирует строку юзера (FOR UPDATE): конкурентные операции по тому же юзеру
//     сериализуются, по разным юзерам не мешают друг другу.
//  2. Проверяет достаточность баланса, при нехватке возвращает
//     domain.ErrInsufficientBalance без каких либо изменений.
//  3. Для kind = ORDER_PAYMENT увеличивает total_spent и пересчитывает ступень.
//  4. Записывает новый баланс и добавляет запись журнала с отрицательной суммой.
func (l *LedgerService) DebitTx(ctx context.Context, tx uow.TX, args EntryArgs) (*domain.LedgerEntry, error) {
	if !args.Amount.IsPositive() {
		return nil, errNonPositiveAmount
	}

	userRepo, ledgerRepo, reposErr := l.txRepos(tx)
	if reposErr != nil {
		return nil, reposErr
	}

	user, lockErr := userRepo.LockForUpdate(ctx, args.UserID)
	if lockErr != nil {
		return nil, lockErr //nolint:wrapcheck
	}

	if user.Balance.LessThan(args.Amount) {
		return nil, fmt.Errorf(
			"debiting %s from user %d with balance %s: %w",
			args.Amount, user.ID, user.Balance, domain.ErrInsufficientBalance,
		)
	}

	update := repoargs.BalanceUpdate{
		Balance:      user.Balance.Sub(args.Amount),
		TotalSpent:   user.TotalSpent,
		TierLevel:    user.TierLevel,
		TierDiscount: user.TierDiscount,
	}
	if args.Kind == domain.LedgerKindOrderPayment {
		update.TotalSpent = user.TotalSpent.Add(args.Amount)
		tier := domain.TierForSpent(update.TotalSpent)
		update.TierLevel = tier.Level
		update.TierDiscount = tier.Discount
	}

	if updErr := userRepo.UpdateBalance(ctx, user.ID, update); updErr != nil {
		return nil, updErr //nolint:wrapcheck
	}

	entry, entryErr := ledgerRepo.Create(ctx, repoargs.LedgerEntryCreate{
		UserID:        user.ID,
		OrderID:       args.OrderID,
		Kind:          args.Kind,
		Amount:        args.Amount.Neg(),
		BalanceBefore: user.Balance,
		BalanceAfter:  update.Balance,
		Description:   args.Description,
	})
	if entryErr != nil {
		return nil, entryErr //nolint:wrapcheck
	}
	return entry, nil
}

// CreditTx зачисляет средства внутри уже открытой транзакции tx. Не падает по
// бизнес-причинам, только при недоступности хранилища.
func (l *LedgerService) CreditTx(ctx context.Context, tx uow.TX, args EntryArgs) (*domain.LedgerEntry, error) {
	if !args.Amount.IsPositive() {
		return nil, errNonPositiveAmount
	}

	userRepo, ledgerRepo, reposErr := l.txRepos(tx)
	if reposErr != nil {
		return nil, reposErr
	}

	user, lockErr := userRepo.LockForUpdate(ctx, args.UserID)
	if lockErr != nil {
		return nil, lockErr //nolint:wrapcheck
	}

	newBalance := user.Balance.Add(args.Amount)
	updErr := userRepo.UpdateBalance(ctx, user.ID, repoargs.BalanceUpdate{
		Balance:      newBalance,
		TotalSpent:   user.TotalSpent,
		TierLevel:    user.TierLevel,
		TierDiscount: user.TierDiscount,
	})
	if updErr != nil {
		return nil, updErr //nolint:wrapcheck
	}

	entry, entryErr := ledgerRepo.Create(ctx, repoargs.LedgerEntryCreate{
		UserID:        user.ID,
		OrderID:       args.OrderID,
		Kind:          args.Kind,
		Amount:        args.Amount,
		BalanceBefore: user.Balance,
		BalanceAfter:  newBalance,
		Description:   args.Description,
	})
	if entryErr != nil {
		return nil, entryErr //nolint:wrapcheck
	}
	return entry, nil
}

// ApplyDeposit применяет подтверждение платежа ровно один раз на externalTxID.
// Повторная доставка вебхука возвращает domain.ErrDuplicateKey без второго
// зачисления: защита двойная, compare-and-set по статусу депозита и уникальный
// индекс по external_tx_id.
func (l *LedgerService) ApplyDeposit(
	ctx context.Context,
	depositID int64,
	externalTxID string,
) (*domain.LedgerEntry, error) {
	var entry *domain.LedgerEntry
	txErr := l.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		depositRepo, depositRepoErr := uow.GetAs[DepositRepository](tx, uow.RepositoryName(repoargs.DepositRepoName))
		if depositRepoErr != nil {
			return depositRepoErr //nolint:wrapcheck
		}

		deposit, approveErr := depositRepo.Approve(c, depositID, externalTxID)
		if approveErr != nil {
			return approveErr //nolint:wrapcheck
		}

		var err error
		entry, err = l.CreditTx(c, tx, EntryArgs{
			UserID:      deposit.UserID,
			Amount:      deposit.Amount,
			Kind:        domain.LedgerKindDeposit,
			Description: fmt.Sprintf("Deposit via %s - %s", deposit.BankName, externalTxID),
		})
		return err
	})
	if txErr != nil {
		if errors.Is(txErr, domain.ErrDuplicateKey) {
			return nil, txErr
		}
		return nil, fmt.Errorf("applying deposit %d: %w", depositID, txErr)
	}
	return entry, nil
}

// RequestDeposit создает заявку на пополнение в статусе pending. Баланс не
// меняется до прихода подтверждения от платежного вебхука (ApplyDeposit).
func (l *LedgerService) RequestDeposit(
	ctx context.Context,
	userID int64,
	amount decimal.Decimal,
	method, bankName string,
) (*domain.Deposit, error) {
	if !amount.IsPositive() {
		return nil, errNonPositiveAmount
	}
	deposit, err := l.depositRepo.Create(ctx, repoargs.DepositCreate{
		UserID:   userID,
		Amount:   amount,
		Method:   method,
		BankName: bankName,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return deposit, nil
}

// AdminAdjust ручная корректировка баланса. Знак amount задает направление,
// отрицательная корректировка подчиняется той же проверке достаточности баланса,
// что и обычный дебет.
func (l *LedgerService) AdminAdjust(
	ctx context.Context,
	userID int64,
	amount decimal.Decimal,
	description string,
) (*domain.LedgerEntry, error) {
	args := EntryArgs{
		UserID:      userID,
		Amount:      amount.Abs(),
		Kind:        domain.LedgerKindAdminAdjustment,
		Description: description,
	}
	if amount.IsNegative() {
		return l.Debit(ctx, args)
	}
	return l.Credit(ctx, args)
}

// VerifyBalance сверяет баланс юзера с суммой знаковых сумм его журнала.
// Расхождение - domain.ErrLedgerDrift: оно означает запись мимо примитивов
// дебета/кредита и требует ручного разбирательства.
//
// Оба чтения выполняются в одном repeatable read снапшоте: без него баланс и
// сумма могли бы быть прочитаны по разные стороны конкурентной операции и дать
// ложное срабатывание.
func (l *LedgerService) VerifyBalance(ctx context.Context, userID int64) error {
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	txErr := l.uow.DoWithOptions(ctx, opts, func(c context.Context, tx uow.TX) error {
		userRepo, ledgerRepo, reposErr := l.txRepos(tx)
		if reposErr != nil {
			return reposErr
		}

		user, userErr := userRepo.FindByID(c, userID)
		if userErr != nil {
			return userErr //nolint:wrapcheck
		}
		sum, sumErr := ledgerRepo.SumByUserID(c, userID)
		if sumErr != nil {
			return sumErr //nolint:wrapcheck
		}

		if !sum.Equal(user.Balance) {
			return fmt.Errorf(
				"user %d: balance %s, ledger sum %s: %w",
				userID, user.Balance, sum, domain.ErrLedgerDrift,
			)
		}
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, domain.ErrLedgerDrift) {
			return txErr
		}
		return fmt.Errorf("verifying balance of user %d: %w", userID, txErr)
	}
	return nil
}

// History возвращает журнал юзера в порядке воспроизведения.
func (l *LedgerService) History(ctx context.Context, userID int64) ([]domain.LedgerEntry, error) {
	entries, err := l.ledgerRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return entries, nil
}

// UserBalance возвращает юзера с текущим балансом и данными ступени.
func (l *LedgerService) UserBalance(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := l.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return user, nil
}

func (l *LedgerService) txRepos(tx uow.TX) (UserRepository, LedgerRepository, error) {
	userRepo, userRepoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
	if userRepoErr != nil {
		return nil, nil, userRepoErr //nolint:wrapcheck
	}
	ledgerRepo, ledgerRepoErr := uow.GetAs[LedgerRepository](tx, uow.RepositoryName(repoargs.LedgerRepoName))
	if ledgerRepoErr != nil {
		return nil, nil, ledgerRepoErr //nolint:wrapcheck
	}
	return userRepo, ledgerRepo, nil
}
