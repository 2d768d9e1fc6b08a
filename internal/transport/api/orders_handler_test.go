package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/logger"
	"github.com/fsdevblog/groph-boost/internal/service/tokens"
	"github.com/fsdevblog/groph-boost/internal/transport/api/mocks"
	"github.com/fsdevblog/groph-boost/internal/transport/api/testutils"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type OrderHandlerTestSuite struct {
	suite.Suite
	router           *gin.Engine
	mockOrderService *mocks.MockOrderServicer
	jwtSecret        []byte
}

func TestOrderHandlerSuite(t *testing.T) {
	suite.Run(t, new(OrderHandlerTestSuite))
}

func (s *OrderHandlerTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	defer mockCtrl.Finish()

	s.mockOrderService = mocks.NewMockOrderServicer(mockCtrl)
	s.jwtSecret = []byte("super secret key")

	s.router = New(RouterArgs{
		Logger:       logger.New(os.Stdout),
		OrderService: s.mockOrderService,
		JWTSecretKey: s.jwtSecret,
	})
}

func (s *OrderHandlerTestSuite) TestCreate() {
	var currentUserID int64 = 1

	jwtToken, jwtErr := tokens.GenerateUserJWT(currentUserID, time.Hour, s.jwtSecret)
	s.Require().NoError(jwtErr)

	payload := func(serviceID, quantity int64) []byte {
		b, mErr := json.Marshal(OrderCreateParams{
			ServiceID: serviceID,
			Link:      "https://example.com/p/1",
			Quantity:  quantity,
		})
		s.Require().NoError(mErr)
		return b
	}

	// Моки
	// Валидный запрос.
	s.mockOrderService.EXPECT().
		PlaceOrder(gomock.Any(), currentUserID, int64(10), "https://example.com/p/1", int64(1000)).
		Return(&domain.Order{
			ID:        42,
			UserID:    currentUserID,
			ServiceID: 10,
			Quantity:  1000,
			Charge:    decimal.NewFromInt(14_550),
			Status:    domain.OrderStatusPending,
		}, nil)
	// Нехватка средств.
	s.mockOrderService.EXPECT().
		PlaceOrder(gomock.Any(), currentUserID, int64(11), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("placing order: %w", domain.ErrInsufficientBalance))
	// Количество вне лимитов услуги.
	s.mockOrderService.EXPECT().
		PlaceOrder(gomock.Any(), currentUserID, int64(12), gomock.Any(), gomock.Any()).
		Return(nil, domain.NewInvalidQuantityError(5, 100, 10_000))
	// Услуга выключена.
	s.mockOrderService.EXPECT().
		PlaceOrder(gomock.Any(), currentUserID, int64(13), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("placing order: %w", domain.ErrServiceUnavailable))
	// Услуги не существует.
	s.mockOrderService.EXPECT().
		PlaceOrder(gomock.Any(), currentUserID, int64(14), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("placing order: %w", domain.ErrRecordNotFound))

	cases := []struct {
		name       string
		payload    []byte
		jwtToken   string
		wantStatus int
	}{
		{
			name:       "all ok",
			payload:    payload(10, 1000),
			jwtToken:   jwtToken,
			wantStatus: http.StatusCreated,
		}, {
			name:       "insufficient balance",
			payload:    payload(11, 1000),
			jwtToken:   jwtToken,
			wantStatus: http.StatusPaymentRequired,
		}, {
			name:       "quantity out of bounds",
			payload:    payload(12, 5),
			jwtToken:   jwtToken,
			wantStatus: http.StatusUnprocessableEntity,
		}, {
			name:       "service inactive",
			payload:    payload(13, 1000),
			jwtToken:   jwtToken,
			wantStatus: http.StatusConflict,
		}, {
			name:       "service not found",
			payload:    payload(14, 1000),
			jwtToken:   jwtToken,
			wantStatus: http.StatusNotFound,
		}, {
			name:       "not authorized",
			payload:    payload(10, 1000),
			wantStatus: http.StatusUnauthorized,
		}, {
			name:       "bad request",
			payload:    []byte(`{"service_id": "not a number"}`),
			jwtToken:   jwtToken,
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			args := testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + OrdersRoute,
				Body:   bytes.NewReader(t.payload),
			}
			reqOpts := []func(*testutils.RequestOptions){
				testutils.WithHeader("Content-Type", "application/json; charset=utf-8"),
			}
			if t.jwtToken != "" {
				reqOpts = append(reqOpts, testutils.WithHeader("Authorization", "Bearer "+t.jwtToken))
			}
			res, err := testutils.MakeRequest(args, reqOpts...)

			defer func() {
				closeErr := res.Body.Close()
				s.Require().NoError(closeErr)
			}()

			s.Require().NoError(err)
			s.Equal(t.wantStatus, res.StatusCode)
		})
	}
}

func (s *OrderHandlerTestSuite) TestIndex() {
	var userID int64 = 1
	var noOrdersUserID int64 = 2

	userJWTToken, uJWTErr := tokens.GenerateUserJWT(userID, time.Hour, s.jwtSecret)
	s.Require().NoError(uJWTErr)
	noOrdersJWTToken, noJWTErr := tokens.GenerateUserJWT(noOrdersUserID, time.Hour, s.jwtSecret)
	s.Require().NoError(noJWTErr)

	orders := []domain.Order{
		{
			ID:        42,
			UserID:    userID,
			ServiceID: 10,
			Quantity:  1000,
			Charge:    decimal.NewFromInt(14_550),
			Status:    domain.OrderStatusCompleted,
			CreatedAt: time.Now(),
		},
	}
	s.mockOrderService.EXPECT().GetByUserID(gomock.Any(), userID).Return(orders, nil)
	s.mockOrderService.EXPECT().GetByUserID(gomock.Any(), noOrdersUserID).Return([]domain.Order{}, nil)

	cases := []struct {
		name       string
		jwtToken   string
		wantStatus int
	}{
		{
			name:       "all ok",
			jwtToken:   userJWTToken,
			wantStatus: http.StatusOK,
		}, {
			name:       "not authorized",
			jwtToken:   "",
			wantStatus: http.StatusUnauthorized,
		}, {
			name:       "no orders",
			jwtToken:   noOrdersJWTToken,
			wantStatus: http.StatusNoContent,
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			args := testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodGet,
				URL:    RouteGroup + OrdersRoute,
			}
			var reqOpts []func(*testutils.RequestOptions)
			if t.jwtToken != "" {
				reqOpts = append(reqOpts, testutils.WithHeader("Authorization", "Bearer "+t.jwtToken))
			}
			res, err := testutils.MakeRequest(args, reqOpts...)
			defer func() {
				closeErr := res.Body.Close()
				s.Require().NoError(closeErr)
			}()

			s.Require().NoError(err)
			s.Equal(t.wantStatus, res.StatusCode)
		})
	}
}

func (s *OrderHandlerTestSuite) TestShow() {
	var userID int64 = 1

	jwtToken, jwtErr := tokens.GenerateUserJWT(userID, time.Hour, s.jwtSecret)
	s.Require().NoError(jwtErr)

	s.mockOrderService.EXPECT().FindForUser(gomock.Any(), int64(42), userID).
		Return(&domain.Order{ID: 42, UserID: userID, Status: domain.OrderStatusProcessing}, nil)
	s.mockOrderService.EXPECT().FindForUser(gomock.Any(), int64(99), userID).
		Return(nil, domain.ErrRecordNotFound)

	cases := []struct {
		name       string
		orderID    string
		wantStatus int
	}{
		{name: "all ok", orderID: "42", wantStatus: http.StatusOK},
		{name: "not found", orderID: "99", wantStatus: http.StatusNotFound},
		{name: "bad order id", orderID: "not-a-number", wantStatus: http.StatusBadRequest},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			args := testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodGet,
				URL:    RouteGroup + OrdersRoute + "/" + t.orderID,
			}
			res, err := testutils.MakeRequest(args, testutils.WithHeader("Authorization", "Bearer "+jwtToken))
			defer func() {
				closeErr := res.Body.Close()
				s.Require().NoError(closeErr)
			}()

			s.Require().NoError(err)
			s.Equal(t.wantStatus, res.StatusCode)
		})
	}
}
