package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-boost/internal/domain"
)

type BalanceHandler struct {
	svs LedgerServicer
}

func NewBalanceHandler(svs LedgerServicer) *BalanceHandler {
	return &BalanceHandler{
		svs: svs,
	}
}

// Денежные поля отдаются строками (так decimal.Decimal маршалится сам): float
// на границе API терял бы фиксированную точность сумм.
type BalanceResponse struct {
	Balance      decimal.Decimal  `json:"balance"`
	TotalSpent   decimal.Decimal  `json:"total_spent"`
	TierLevel    int              `json:"tier_level"`
	TierName     string           `json:"tier_name"`
	TierDiscount decimal.Decimal  `json:"tier_discount"`
	NextTier     *decimal.Decimal `json:"next_tier_threshold,omitempty"`
}

// Index GET RouteGroup + BalanceRoute. Текущий баланс и ступень лояльности.
func (b *BalanceHandler) Index(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, err := b.svs.UserBalance(reqCtx, currentUserID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	tier := domain.TierForSpent(user.TotalSpent)
	response := BalanceResponse{
		Balance:      user.Balance,
		TotalSpent:   user.TotalSpent,
		TierLevel:    tier.Level,
		TierName:     tier.Name,
		TierDiscount: tier.Discount,
	}
	if next, ok := domain.NextTierThreshold(user.TotalSpent); ok {
		response.NextTier = &next
	}

	c.JSON(http.StatusOK, &response)
}

type LedgerEntryResponse struct {
	ID            int64                 `json:"id"`
	OrderID       *int64                `json:"order_id,omitempty"`
	Kind          domain.LedgerKindType `json:"kind"`
	Amount        decimal.Decimal       `json:"amount"`
	BalanceBefore decimal.Decimal       `json:"balance_before"`
	BalanceAfter  decimal.Decimal       `json:"balance_after"`
	Description   string                `json:"description"`
	CreatedAt     string                `json:"created_at"`
}

// History GET RouteGroup + BalanceHistoryRoute. Журнал операций в порядке записи.
func (b *BalanceHandler) History(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	entries, err := b.svs.History(reqCtx, currentUserID)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	if len(entries) == 0 {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	response := make([]LedgerEntryResponse, len(entries))
	for i, entry := range entries {
		response[i] = LedgerEntryResponse{
			ID:            entry.ID,
			OrderID:       entry.OrderID,
			Kind:          entry.Kind,
			Amount:        entry.Amount,
			BalanceBefore: entry.BalanceBefore,
			BalanceAfter:  entry.BalanceAfter,
			Description:   entry.Description,
			CreatedAt:     entry.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, response)
}
