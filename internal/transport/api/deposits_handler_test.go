package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/logger"
	"github.com/fsdevblog/groph-boost/internal/notify"
	"github.com/fsdevblog/groph-boost/internal/service/tokens"
	"github.com/fsdevblog/groph-boost/internal/transport/api/mocks"
	"github.com/fsdevblog/groph-boost/internal/transport/api/testutils"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

// notificationRecorder копит отправленные уведомления вместо внешнего канала.
type notificationRecorder struct {
	events   []notify.Event
	messages []string
}

func (r *notificationRecorder) Notify(_ context.Context, event notify.Event, message string) {
	r.events = append(r.events, event)
	r.messages = append(r.messages, message)
}

type DepositsHandlerTestSuite struct {
	suite.Suite
	router            *gin.Engine
	mockLedgerService *mocks.MockLedgerServicer
	notifications     *notificationRecorder
	jwtSecret         []byte
	webhookSecret     []byte
}

func TestDepositsHandlerSuite(t *testing.T) {
	suite.Run(t, new(DepositsHandlerTestSuite))
}

func (s *DepositsHandlerTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	defer mockCtrl.Finish()

	s.mockLedgerService = mocks.NewMockLedgerServicer(mockCtrl)
	s.notifications = &notificationRecorder{}
	s.jwtSecret = []byte("super secret key")
	s.webhookSecret = []byte("webhook secret")

	s.router = New(RouterArgs{
		Logger:        logger.New(os.Stdout),
		LedgerService: s.mockLedgerService,
		Notifier:      s.notifications,
		JWTSecretKey:  s.jwtSecret,
		WebhookSecret: s.webhookSecret,
	})
}

func (s *DepositsHandlerTestSuite) sign(body []byte) string {
	mac := hmac.New(sha256.New, s.webhookSecret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *DepositsHandlerTestSuite) webhookBody(refCode, content, transferType string) []byte {
	b, err := json.Marshal(map[string]any{
		"referenceCode":  refCode,
		"content":        content,
		"transferType":   transferType,
		"transferAmount": 500_000,
	})
	s.Require().NoError(err)
	return b
}

func (s *DepositsHandlerTestSuite) TestCreate() {
	var userID int64 = 1

	jwtToken, jwtErr := tokens.GenerateUserJWT(userID, time.Hour, s.jwtSecret)
	s.Require().NoError(jwtErr)

	amount := decimal.NewFromInt(500_000)
	s.mockLedgerService.EXPECT().
		RequestDeposit(gomock.Any(), userID, gomock.Any(), "bank_transfer", "VCB").
		DoAndReturn(func(_ any, _ int64, got decimal.Decimal, _, _ string) (*domain.Deposit, error) {
			s.True(amount.Equal(got))
			return &domain.Deposit{
				ID:     7,
				UserID: userID,
				Amount: got,
				Method: "bank_transfer",
				Status: domain.DepositStatusPending,
			}, nil
		})

	cases := []struct {
		name       string
		payload    string
		jwtToken   string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "all ok",
			payload:    `{"amount": 500000, "method": "bank_transfer", "bank_name": "VCB"}`,
			jwtToken:   jwtToken,
			wantStatus: http.StatusCreated,
			wantCode:   "NAP7",
		}, {
			name:       "unknown method",
			payload:    `{"amount": 500000, "method": "crypto"}`,
			jwtToken:   jwtToken,
			wantStatus: http.StatusBadRequest,
		}, {
			name:       "not authorized",
			payload:    `{"amount": 500000, "method": "bank_transfer"}`,
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			args := testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + DepositsRoute,
				Body:   bytes.NewReader([]byte(t.payload)),
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

			if t.wantCode != "" {
				var resp DepositResponse
				s.Require().NoError(json.NewDecoder(res.Body).Decode(&resp))
				s.Equal(t.wantCode, resp.PaymentCode)
			}
		})
	}
}

func (s *DepositsHandlerTestSuite) TestWebhook() {
	// Подтверждение проходит.
	s.mockLedgerService.EXPECT().
		ApplyDeposit(gomock.Any(), int64(7), "FT2026123456").
		Return(&domain.LedgerEntry{ID: 1, Amount: decimal.NewFromInt(500_000)}, nil)
	// Повторная доставка того же referenceCode.
	s.mockLedgerService.EXPECT().
		ApplyDeposit(gomock.Any(), int64(7), "FT2026-DUP").
		Return(nil, domain.ErrDuplicateKey)
	// Код депозита не существует.
	s.mockLedgerService.EXPECT().
		ApplyDeposit(gomock.Any(), int64(999), "FT2026-MISSING").
		Return(nil, domain.ErrRecordNotFound)

	validBody := s.webhookBody("FT2026123456", "NAP7 thanh toan don hang", "in")
	duplicateBody := s.webhookBody("FT2026-DUP", "NAP7 thanh toan don hang", "in")
	missingBody := s.webhookBody("FT2026-MISSING", "NAP999", "in")
	outgoingBody := s.webhookBody("FT2026777", "NAP7", "out")
	noCodeBody := s.webhookBody("FT2026888", "thanh toan", "in")

	cases := []struct {
		name       string
		body       []byte
		signature  string
		wantStatus int
	}{
		{
			name:       "all ok",
			body:       validBody,
			signature:  s.sign(validBody),
			wantStatus: http.StatusOK,
		}, {
			// идемпотентность: шлюз ретраит до 200
			name:       "duplicate delivery",
			body:       duplicateBody,
			signature:  s.sign(duplicateBody),
			wantStatus: http.StatusOK,
		}, {
			name:       "unknown deposit",
			body:       missingBody,
			signature:  s.sign(missingBody),
			wantStatus: http.StatusNotFound,
		}, {
			name:       "invalid signature",
			body:       validBody,
			signature:  s.sign([]byte("tampered")),
			wantStatus: http.StatusUnauthorized,
		}, {
			name:       "signature is not hex",
			body:       validBody,
			signature:  "zzzz",
			wantStatus: http.StatusUnauthorized,
		}, {
			name:       "outgoing transfer ignored",
			body:       outgoingBody,
			signature:  s.sign(outgoingBody),
			wantStatus: http.StatusOK,
		}, {
			name:       "no deposit code in content",
			body:       noCodeBody,
			signature:  s.sign(noCodeBody),
			wantStatus: http.StatusUnprocessableEntity,
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			args := testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + SepayWebhookRoute,
				Body:   bytes.NewReader(t.body),
			}
			res, err := testutils.MakeRequest(args,
				testutils.WithHeader("Content-Type", "application/json"),
				testutils.WithHeader(SignatureHeader, t.signature),
			)
			defer func() {
				closeErr := res.Body.Close()
				s.Require().NoError(closeErr)
			}()

			s.Require().NoError(err)
			s.Equal(t.wantStatus, res.StatusCode)
		})
	}

	// Уведомление уходит один раз, только на фактическое зачисление: повторная
	// доставка и отбитые запросы его не порождают.
	s.Require().Len(s.notifications.events, 1)
	s.Equal(notify.EventDepositConfirmed, s.notifications.events[0])
	s.Contains(s.notifications.messages[0], "Deposit #7")
	s.Contains(s.notifications.messages[0], "FT2026123456")
}

func TestParseDepositCode(t *testing.T) {
	cases := []struct {
		content string
		wantID  int64
		wantOK  bool
	}{
		{content: "NAP42", wantID: 42, wantOK: true},
		{content: "chuyen khoan NAP7 ngay 28/08", wantID: 7, wantOK: true},
		{content: "khong co ma", wantOK: false},
		{content: "NAP", wantOK: false},
	}
	for _, tc := range cases {
		id, ok := parseDepositCode(tc.content)
		if ok != tc.wantOK || id != tc.wantID {
			t.Errorf("parseDepositCode(%q) = (%d, %v), want (%d, %v)", tc.content, id, ok, tc.wantID, tc.wantOK)
		}
	}
}
