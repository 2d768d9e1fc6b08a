package provider

import (
	"context"
	"errors"
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

type ReconcilerTestSuite struct {
	suite.Suite
	mockCtrl    *gomock.Controller
	mockClient  *mocks.MockClient
	mockSvs     *mocks.MockServicer
	mockCatalog *mocks.MockCataloger
	mockLedger  *mocks.MockLedger
	reconciler  *Reconciler
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerTestSuite))
}

func (s *ReconcilerTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockClient = mocks.NewMockClient(s.mockCtrl)
	s.mockSvs = mocks.NewMockServicer(s.mockCtrl)
	s.mockCatalog = mocks.NewMockCataloger(s.mockCtrl)
	s.mockLedger = mocks.NewMockLedger(s.mockCtrl)

	l := logrus.New()
	l.SetOutput(io.Discard)

	dispatcher := NewDispatcher(s.mockClient, s.mockSvs, s.mockCatalog, notify.Noop{}, l)
	s.reconciler = NewReconciler(dispatcher, s.mockClient, s.mockSvs, s.mockLedger, notify.Noop{}, l).
		SetProviderRPS(10_000)
}

func (s *ReconcilerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *ReconcilerTestSuite) processingOrder(providerOrderID string) domain.Order {
	return domain.Order{
		ID:              42,
		UserID:          1,
		ServiceID:       10,
		Status:          domain.OrderStatusProcessing,
		ProviderOrderID: &providerOrderID,
	}
}

func (s *ReconcilerTestSuite) TestReconcileCompleted() {
	order := s.processingOrder("prov-1")

	s.mockClient.EXPECT().OrderStatus(gomock.Any(), "prov-1").Return(client.StatusCompleted, nil)
	s.mockSvs.EXPECT().Complete(gomock.Any(), order.ID).
		Return(&domain.Order{ID: order.ID, Status: domain.OrderStatusCompleted}, nil)

	s.Require().NoError(s.reconciler.reconcileOrder(context.Background(), &order))
}

func (s *ReconcilerTestSuite) TestReconcileCanceled() {
	order := s.processingOrder("prov-1")

	s.mockClient.EXPECT().OrderStatus(gomock.Any(), "prov-1").Return(client.StatusCanceled, nil)
	s.mockSvs.EXPECT().FailAndRefund(gomock.Any(), order.ID, "provider reported Canceled").
		Return(&domain.Order{ID: order.ID, UserID: order.UserID, Status: domain.OrderStatusRefunded}, nil)
	s.mockSvs.EXPECT().Complete(gomock.Any(), gomock.Any()).Times(0)
	s.mockLedger.EXPECT().VerifyBalance(gomock.Any(), order.UserID).Return(nil)

	s.Require().NoError(s.reconciler.reconcileOrder(context.Background(), &order))
}

func (s *ReconcilerTestSuite) TestReconcilePartial() {
	order := s.processingOrder("prov-1")

	s.mockClient.EXPECT().OrderStatus(gomock.Any(), "prov-1").Return(client.StatusPartial, nil)
	s.mockSvs.EXPECT().FailAndRefund(gomock.Any(), order.ID, "provider reported Partial").
		Return(&domain.Order{ID: order.ID, UserID: order.UserID, Status: domain.OrderStatusRefunded}, nil)
	// Расхождение журнала пишется в лог, исход заказа оно не меняет.
	s.mockLedger.EXPECT().VerifyBalance(gomock.Any(), order.UserID).Return(domain.ErrLedgerDrift)

	s.Require().NoError(s.reconciler.reconcileOrder(context.Background(), &order))
}

// TestReconcileStillInProgress неконечный статус у провайдера: ничего не делаем,
// заказ остается PROCESSING до следующего цикла.
func (s *ReconcilerTestSuite) TestReconcileStillInProgress() {
	order := s.processingOrder("prov-1")

	s.mockClient.EXPECT().OrderStatus(gomock.Any(), "prov-1").Return(client.StatusInProgress, nil)
	s.mockSvs.EXPECT().Complete(gomock.Any(), gomock.Any()).Times(0)
	s.mockSvs.EXPECT().FailAndRefund(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	s.Require().NoError(s.reconciler.reconcileOrder(context.Background(), &order))
}

// TestReconcilePollTransientError сбой опроса не трогает заказ.
func (s *ReconcilerTestSuite) TestReconcilePollTransientError() {
	order := s.processingOrder("prov-1")

	s.mockClient.EXPECT().OrderStatus(gomock.Any(), "prov-1").
		Return(client.StatusType(""), client.NewTransientError(503, "provider unavailable"))
	s.mockSvs.EXPECT().Complete(gomock.Any(), gomock.Any()).Times(0)
	s.mockSvs.EXPECT().FailAndRefund(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	s.Require().Error(s.reconciler.reconcileOrder(context.Background(), &order))
}

// TestReconcilePollPermanentError провайдер не знает заказ: считаем его
// отмененным и возвращаем деньги.
func (s *ReconcilerTestSuite) TestReconcilePollPermanentError() {
	order := s.processingOrder("prov-1")

	s.mockClient.EXPECT().OrderStatus(gomock.Any(), "prov-1").
		Return(client.StatusType(""), client.NewPermanentError(0, "Incorrect order ID"))
	s.mockSvs.EXPECT().FailAndRefund(gomock.Any(), order.ID, "provider canceled order").
		Return(&domain.Order{ID: order.ID, UserID: order.UserID, Status: domain.OrderStatusRefunded}, nil)
	s.mockLedger.EXPECT().VerifyBalance(gomock.Any(), order.UserID).Return(nil)

	s.Require().NoError(s.reconciler.reconcileOrder(context.Background(), &order))
}

// TestReconcileFailedRetriesRefund заказ помечен FAILED мимо сервиса и возврата
// по нему нет: цикл доводит его до REFUNDED.
func (s *ReconcilerTestSuite) TestReconcileFailedRetriesRefund() {
	order := domain.Order{ID: 42, UserID: 7, Status: domain.OrderStatusFailed}

	s.mockSvs.EXPECT().FailAndRefund(gomock.Any(), order.ID, "refund for externally failed order").
		Return(&domain.Order{ID: order.ID, UserID: order.UserID, Status: domain.OrderStatusRefunded}, nil)
	s.mockLedger.EXPECT().VerifyBalance(gomock.Any(), order.UserID).Return(nil)

	s.Require().NoError(s.reconciler.reconcileOrder(context.Background(), &order))
}

// TestReconcileIsolatesFailures ошибка по одному заказу не мешает остальным.
func (s *ReconcilerTestSuite) TestReconcileIsolatesFailures() {
	badID := "prov-bad"
	goodID := "prov-good"
	orders := []domain.Order{
		{ID: 1, Status: domain.OrderStatusProcessing, ProviderOrderID: &badID},
		{ID: 2, Status: domain.OrderStatusProcessing, ProviderOrderID: &goodID},
	}

	s.mockSvs.EXPECT().UnsettledOrders(gomock.Any(), gomock.Any()).Return(orders, nil)
	s.mockClient.EXPECT().OrderStatus(gomock.Any(), badID).
		Return(client.StatusType(""), errors.New("connection reset"))
	s.mockClient.EXPECT().OrderStatus(gomock.Any(), goodID).Return(client.StatusCompleted, nil)
	s.mockSvs.EXPECT().Complete(gomock.Any(), int64(2)).
		Return(&domain.Order{ID: 2, Status: domain.OrderStatusCompleted}, nil)

	s.Require().NoError(s.reconciler.reconcile(context.Background()))
}

// TestReconcileProcessingWithoutProviderID аномалия данных: сигналим ошибкой,
// ничего не трогаем.
func (s *ReconcilerTestSuite) TestReconcileProcessingWithoutProviderID() {
	order := domain.Order{ID: 42, Status: domain.OrderStatusProcessing}

	err := s.reconciler.reconcileOrder(context.Background(), &order)
	s.Require().Error(err)
}
