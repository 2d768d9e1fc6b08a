package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/notify"
)

const SignatureHeader = "X-Signature"

// depositCodePattern код депозита в назначении платежа, например "NAP42".
var depositCodePattern = regexp.MustCompile(`NAP(\d+)`)

type DepositsHandler struct {
	svs           LedgerServicer
	notifier      notify.Notifier
	webhookSecret []byte
}

func NewDepositsHandler(svs LedgerServicer, notifier notify.Notifier, webhookSecret []byte) *DepositsHandler {
	return &DepositsHandler{
		svs:           svs,
		notifier:      notifier,
		webhookSecret: webhookSecret,
	}
}

type DepositCreateParams struct {
	Amount   decimal.Decimal `binding:"required" json:"amount"`
	Method   string          `binding:"required,oneof=bank_transfer card" json:"method"`
	BankName string          `binding:"max=100"  json:"bank_name"`
}

type DepositResponse struct {
	ID          int64                    `json:"id"`
	Amount      decimal.Decimal          `json:"amount"`
	Method      string                   `json:"method"`
	Status      domain.DepositStatusType `json:"status"`
	PaymentCode string                   `json:"payment_code"`
}

// Create POST RouteGroup + DepositsRoute. Создает заявку на пополнение; баланс
// изменится только после подтверждения платежным вебхуком. PaymentCode юзер
// указывает в назначении перевода.
func (d *DepositsHandler) Create(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params DepositCreateParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}
	if !params.Amount.IsPositive() {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "amount must be positive"})
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	deposit, err := d.svs.RequestDeposit(reqCtx, currentUserID, params.Amount, params.Method, params.BankName)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusCreated, DepositResponse{
		ID:          deposit.ID,
		Amount:      deposit.Amount,
		Method:      deposit.Method,
		Status:      deposit.Status,
		PaymentCode: "NAP" + strconv.FormatInt(deposit.ID, 10),
	})
}

type sepayWebhookPayload struct {
	ReferenceCode  string          `json:"referenceCode"`
	Content        string          `json:"content"`
	TransferType   string          `json:"transferType"`
	TransferAmount decimal.Decimal `json:"transferAmount"`
}

// Webhook POST RouteGroup + SepayWebhookRoute. Подтверждение платежа от шлюза.
//
// Подпись HMAC-SHA256 считается по сырому телу запроса и сверяется константным
// временем, неподписанные запросы отбиваются до разбора тела. Повторная доставка
// того же referenceCode отвечает 200 без второго зачисления: шлюз ретраит до
// успешного ответа, а идемпотентность обеспечивает сервисный слой.
func (d *DepositsHandler) Webhook(c *gin.Context) {
	body, readErr := c.GetRawData()
	if readErr != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, readErr).SetType(gin.ErrorTypePrivate)
		return
	}

	if !d.validSignature(body, c.GetHeader(SignatureHeader)) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var payload sepayWebhookPayload
	if jsonErr := json.Unmarshal(body, &payload); jsonErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, jsonErr).SetType(gin.ErrorTypeBind)
		return
	}

	// Исходящие переводы и прочие события шлюза не наши, подтверждаем не глядя.
	if payload.TransferType != "in" {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	if payload.ReferenceCode == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "referenceCode is required"})
		return
	}

	depositID, found := parseDepositCode(payload.Content)
	if !found {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "deposit code not found in content"})
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	entry, applyErr := d.svs.ApplyDeposit(reqCtx, depositID, payload.ReferenceCode)
	if applyErr != nil {
		switch {
		case errors.Is(applyErr, domain.ErrDuplicateKey):
			// Повторная доставка, зачисление уже проведено.
			c.JSON(http.StatusOK, gin.H{"success": true})
		case errors.Is(applyErr, domain.ErrRecordNotFound):
			c.AbortWithStatus(http.StatusNotFound)
		default:
			_ = c.AbortWithError(http.StatusInternalServerError, applyErr).SetType(gin.ErrorTypePrivate)
		}
		return
	}

	// Уведомление только на фактическое зачисление, повторная доставка его
	// не дублирует.
	d.notifier.Notify(reqCtx, notify.EventDepositConfirmed,
		fmt.Sprintf("Deposit #%d confirmed: +%s (%s)", depositID, entry.Amount, payload.ReferenceCode))

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (d *DepositsHandler) validSignature(body []byte, header string) bool {
	signature, decodeErr := hex.DecodeString(header)
	if decodeErr != nil {
		return false
	}

	mac := hmac.New(sha256.New, d.webhookSecret)
	mac.Write(body)
	return hmac.Equal(signature, mac.Sum(nil))
}

func parseDepositCode(content string) (int64, bool) {
	match := depositCodePattern.FindStringSubmatch(content)
	if match == nil {
		return 0, false
	}
	id, parseErr := strconv.ParseInt(match[1], 10, 64)
	if parseErr != nil {
		return 0, false
	}
	return id, true
}
