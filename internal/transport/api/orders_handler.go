package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-boost/internal/domain"
)

type OrdersHandler struct {
	orderSvs OrderServicer
}

func NewOrdersHandler(orderSvs OrderServicer) *OrdersHandler {
	return &OrdersHandler{
		orderSvs: orderSvs,
	}
}

type OrderCreateParams struct {
	ServiceID int64  `binding:"required,gt=0"      json:"service_id"`
	Link      string `binding:"required,max=2048"  json:"link"`
	Quantity  int64  `binding:"required,gt=0"      json:"quantity"`
}

type OrderResponse struct {
	ID              int64                  `json:"id"`
	ServiceID       int64                  `json:"service_id"`
	Link            string                 `json:"link"`
	Quantity        int64                  `json:"quantity"`
	Charge          decimal.Decimal        `json:"charge"`
	Status          domain.OrderStatusType `json:"status"`
	ProviderOrderID *string                `json:"provider_order_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
}

func orderResponse(order *domain.Order) OrderResponse {
	return OrderResponse{
		ID:              order.ID,
		ServiceID:       order.ServiceID,
		Link:            order.Link,
		Quantity:        order.Quantity,
		Charge:          order.Charge,
		Status:          order.Status,
		ProviderOrderID: order.ProviderOrderID,
		CreatedAt:       order.CreatedAt,
		CompletedAt:     order.CompletedAt,
	}
}

// Create POST RouteGroup + OrdersRoute. Размещает заказ: списание и строка заказа
// атомарны, отправка провайдеру происходит асинхронно после ответа.
func (o *OrdersHandler) Create(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params OrderCreateParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, placeErr := o.orderSvs.PlaceOrder(reqCtx, currentUserID, params.ServiceID, params.Link, params.Quantity)
	if placeErr != nil {
		var invalidQty *domain.InvalidQuantityError

		switch {
		case errors.Is(placeErr, domain.ErrInsufficientBalance):
			_ = c.Error(placeErr)
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "insufficient balance"})
		case errors.As(placeErr, &invalidQty):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": invalidQty.Error()})
		case errors.Is(placeErr, domain.ErrServiceUnavailable):
			_ = c.AbortWithError(http.StatusConflict, errors.New("service is not available")).
				SetType(gin.ErrorTypePublic)
		case errors.Is(placeErr, domain.ErrRecordNotFound):
			_ = c.AbortWithError(http.StatusNotFound, errors.New("service not found")).
				SetType(gin.ErrorTypePublic)
		default:
			_ = c.AbortWithError(http.StatusInternalServerError, placeErr).
				SetType(gin.ErrorTypePrivate)
		}
		return
	}

	c.JSON(http.StatusCreated, orderResponse(order))
}

// Index GET RouteGroup + OrdersRoute.
func (o *OrdersHandler) Index(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()
	orders, err := o.orderSvs.GetByUserID(reqCtx, currentUserID)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).
			SetType(gin.ErrorTypePrivate)
		return
	}

	if len(orders) == 0 {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	var response = make([]OrderResponse, len(orders))
	for i := range orders {
		response[i] = orderResponse(&orders[i])
	}

	c.JSON(http.StatusOK, response)
}

// Show GET RouteGroup + OrderRoute. Чужой заказ неотличим от несуществующего.
func (o *OrdersHandler) Show(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	orderID, parseErr := strconv.ParseInt(c.Param("orderID"), 10, 64)
	if parseErr != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.FindForUser(reqCtx, orderID, currentUserID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).
			SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, orderResponse(order))
}
