package provider

import (
	"context"
	"io"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/notify"
	"github.com/fsdevblog/groph-boost/internal/transport/provider/client"
	"github.com/fsdevblog/groph-boost/internal/transport/provider/mocks"
)

type DispatcherTestSuite struct {
	suite.Suite
	mockCtrl    *gomock.Controller
	mockClient  *mocks.MockClient
	mockSvs     *mocks.MockServicer
	mockCatalog *mocks.MockCataloger
	dispatcher  *Dispatcher
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherTestSuite))
}

func (s *DispatcherTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockClient = mocks.NewMockClient(s.mockCtrl)
	s.mockSvs = mocks.NewMockServicer(s.mockCtrl)
	s.mockCatalog = mocks.NewMockCataloger(s.mockCtrl)

	l := logrus.New()
	l.SetOutput(io.Discard)

	s.dispatcher = NewDispatcher(s.mockClient, s.mockSvs, s.mockCatalog, notify.Noop{}, l)
}

func (s *DispatcherTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *DispatcherTestSuite) pendingOrder() *domain.Order {
	return &domain.Order{
		ID:        42,
		UserID:    1,
		ServiceID: 10,
		Link:      "https://example.com/p/1",
		Quantity:  1000,
		Status:    domain.OrderStatusPending,
	}
}

func (s *DispatcherTestSuite) TestDispatch() {
	order := s.pendingOrder()

	s.mockCatalog.EXPECT().GetService(gomock.Any(), order.ServiceID).
		Return(&domain.Service{ID: 10, ProviderServiceID: "ig-followers"}, nil)
	// Наш id заказа уходит как ключ идемпотентности.
	s.mockClient.EXPECT().
		Submit(gomock.Any(), "ig-followers", order.Link, order.Quantity, "42").
		Return("prov-1", nil)
	s.mockSvs.EXPECT().MarkProcessing(gomock.Any(), order.ID, "prov-1").
		Return(&domain.Order{ID: order.ID, Status: domain.OrderStatusProcessing}, nil)

	s.Require().NoError(s.dispatcher.Dispatch(context.Background(), order))
}

// TestDispatchPermanentFailure окончательный отказ провайдера: заказ фейлится
// с возвратом средств, сабмит не повторяется.
func (s *DispatcherTestSuite) TestDispatchPermanentFailure() {
	order := s.pendingOrder()

	s.mockCatalog.EXPECT().GetService(gomock.Any(), order.ServiceID).
		Return(&domain.Service{ID: 10, ProviderServiceID: "ig-followers"}, nil)
	s.mockClient.EXPECT().
		Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", client.NewPermanentError(400, "invalid link"))
	s.mockSvs.EXPECT().FailAndRefund(gomock.Any(), order.ID, "provider rejected order").
		Return(&domain.Order{ID: order.ID, Status: domain.OrderStatusRefunded}, nil)
	s.mockSvs.EXPECT().MarkProcessing(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	s.Require().NoError(s.dispatcher.Dispatch(context.Background(), order))
}

// TestDispatchTransientFailure транзиентный сбой: заказ остается PENDING, ошибка
// отдается наверх для лога, возврата нет.
func (s *DispatcherTestSuite) TestDispatchTransientFailure() {
	order := s.pendingOrder()

	s.mockCatalog.EXPECT().GetService(gomock.Any(), order.ServiceID).
		Return(&domain.Service{ID: 10, ProviderServiceID: "ig-followers"}, nil)
	s.mockClient.EXPECT().
		Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", client.NewTransientError(502, "provider unavailable"))
	s.mockSvs.EXPECT().FailAndRefund(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.mockSvs.EXPECT().MarkProcessing(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	s.Require().Error(s.dispatcher.Dispatch(context.Background(), order))
}

// TestDispatchConcurrentTransition заказ уже переведен конкурентом: не ошибка.
func (s *DispatcherTestSuite) TestDispatchConcurrentTransition() {
	order := s.pendingOrder()

	s.mockCatalog.EXPECT().GetService(gomock.Any(), order.ServiceID).
		Return(&domain.Service{ID: 10, ProviderServiceID: "ig-followers"}, nil)
	s.mockClient.EXPECT().
		Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("prov-1", nil)
	s.mockSvs.EXPECT().MarkProcessing(gomock.Any(), order.ID, "prov-1").
		Return(nil, domain.ErrOrderNotTransitable)

	s.Require().NoError(s.dispatcher.Dispatch(context.Background(), order))
}
