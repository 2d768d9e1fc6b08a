package api

import (
	"encoding/json"
	"io"
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

type BalanceHandlerTestSuite struct {
	suite.Suite
	router            *gin.Engine
	mockLedgerService *mocks.MockLedgerServicer
	jwtSecret         []byte
}

func TestBalanceHandlerSuite(t *testing.T) {
	suite.Run(t, new(BalanceHandlerTestSuite))
}

func (s *BalanceHandlerTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	defer mockCtrl.Finish()

	s.mockLedgerService = mocks.NewMockLedgerServicer(mockCtrl)
	s.jwtSecret = []byte("super secret key")

	s.router = New(RouterArgs{
		Logger:        logger.New(os.Stdout),
		LedgerService: s.mockLedgerService,
		JWTSecretKey:  s.jwtSecret,
	})
}

func (s *BalanceHandlerTestSuite) TestIndex() {
	var userID int64 = 1

	jwtToken, jwtErr := tokens.GenerateUserJWT(userID, time.Hour, s.jwtSecret)
	s.Require().NoError(jwtErr)

	s.mockLedgerService.EXPECT().UserBalance(gomock.Any(), userID).
		Return(&domain.User{
			ID:           userID,
			Balance:      decimal.NewFromInt(250_000),
			TotalSpent:   decimal.NewFromInt(6_000_000),
			TierLevel:    2,
			TierDiscount: decimal.NewFromInt(3),
		}, nil)

	args := testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodGet,
		URL:    RouteGroup + BalanceRoute,
	}
	res, err := testutils.MakeRequest(args, testutils.WithHeader("Authorization", "Bearer "+jwtToken))
	defer func() {
		closeErr := res.Body.Close()
		s.Require().NoError(closeErr)
	}()

	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, res.StatusCode)

	body, readErr := io.ReadAll(res.Body)
	s.Require().NoError(readErr)
	// деньги в ответе десятичные строки, не float
	s.Contains(string(body), `"balance":"250000"`)

	var resp BalanceResponse
	s.Require().NoError(json.Unmarshal(body, &resp))
	s.True(decimal.NewFromInt(250_000).Equal(resp.Balance))
	s.True(decimal.NewFromInt(6_000_000).Equal(resp.TotalSpent))
	s.Equal(2, resp.TierLevel)
	s.True(decimal.NewFromInt(3).Equal(resp.TierDiscount))
	s.Require().NotNil(resp.NextTier)
	s.True(decimal.NewFromInt(20_000_000).Equal(*resp.NextTier))
}

func (s *BalanceHandlerTestSuite) TestHistory() {
	var userID int64 = 1
	var emptyUserID int64 = 2

	jwtToken, jwtErr := tokens.GenerateUserJWT(userID, time.Hour, s.jwtSecret)
	s.Require().NoError(jwtErr)
	emptyJWTToken, emptyJWTErr := tokens.GenerateUserJWT(emptyUserID, time.Hour, s.jwtSecret)
	s.Require().NoError(emptyJWTErr)

	orderID := int64(42)
	entries := []domain.LedgerEntry{
		{
			ID:            1,
			UserID:        userID,
			Kind:          domain.LedgerKindDeposit,
			Amount:        decimal.NewFromInt(500_000),
			BalanceBefore: decimal.Zero,
			BalanceAfter:  decimal.NewFromInt(500_000),
			CreatedAt:     time.Now(),
		},
		{
			ID:            2,
			UserID:        userID,
			OrderID:       &orderID,
			Kind:          domain.LedgerKindOrderPayment,
			Amount:        decimal.NewFromInt(-14_550),
			BalanceBefore: decimal.NewFromInt(500_000),
			BalanceAfter:  decimal.NewFromInt(485_450),
			CreatedAt:     time.Now(),
		},
	}
	s.mockLedgerService.EXPECT().History(gomock.Any(), userID).Return(entries, nil)
	s.mockLedgerService.EXPECT().History(gomock.Any(), emptyUserID).Return([]domain.LedgerEntry{}, nil)

	cases := []struct {
		name       string
		jwtToken   string
		wantStatus int
		wantLen    int
	}{
		{name: "all ok", jwtToken: jwtToken, wantStatus: http.StatusOK, wantLen: 2},
		{name: "empty history", jwtToken: emptyJWTToken, wantStatus: http.StatusNoContent},
		{name: "not authorized", wantStatus: http.StatusUnauthorized},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			args := testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodGet,
				URL:    RouteGroup + BalanceHistoryRoute,
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

			if t.wantLen > 0 {
				var resp []LedgerEntryResponse
				s.Require().NoError(json.NewDecoder(res.Body).Decode(&resp))
				s.Len(resp, t.wantLen)
				s.Equal(&orderID, resp[1].OrderID)
				s.True(decimal.NewFromInt(-14_550).Equal(resp[1].Amount))
			}
		})
	}
}
