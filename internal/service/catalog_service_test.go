package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/repository/repoargs"
	"github.com/fsdevblog/groph-boost/internal/service/mocks"
	"github.com/fsdevblog/groph-boost/pkg/uow"
	uowmocks "github.com/fsdevblog/groph-boost/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type CatalogServiceTestSuite struct {
	suite.Suite
	mockCtrl        *gomock.Controller
	mockUOW         *uowmocks.MockUOW
	mockServiceRepo *mocks.MockServiceRepository
	mockCache       *mocks.MockCatalogCache
	catalogService  *CatalogService
}

func TestCatalogServiceSuite(t *testing.T) {
	suite.Run(t, new(CatalogServiceTestSuite))
}

func (s *CatalogServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockServiceRepo = mocks.NewMockServiceRepository(s.mockCtrl)
	s.mockCache = mocks.NewMockCatalogCache(s.mockCtrl)

	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.ServiceRepoName)).
		Return(s.mockServiceRepo, nil).AnyTimes()

	l := logrus.New()
	l.SetOutput(io.Discard)

	catalogService, err := NewCatalogService(s.mockUOW, s.mockCache, l)
	s.Require().NoError(err)
	s.catalogService = catalogService
}

func (s *CatalogServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *CatalogServiceTestSuite) service() *domain.Service {
	return &domain.Service{
		ID:     10,
		Name:   "Instagram Followers",
		Rate:   decimal.NewFromInt(15_000),
		Status: domain.ServiceStatusActive,
	}
}

func (s *CatalogServiceTestSuite) TestGetServiceCacheHit() {
	svc := s.service()
	s.mockCache.EXPECT().GetService(gomock.Any(), svc.ID).Return(svc, nil)
	// БД не трогаем
	s.mockServiceRepo.EXPECT().FindByID(gomock.Any(), gomock.Any()).Times(0)

	got, err := s.catalogService.GetService(context.Background(), svc.ID)
	s.Require().NoError(err)
	s.Equal(svc.ID, got.ID)
}

func (s *CatalogServiceTestSuite) TestGetServiceCacheMiss() {
	svc := s.service()
	s.mockCache.EXPECT().GetService(gomock.Any(), svc.ID).Return(nil, domain.ErrRecordNotFound)
	s.mockServiceRepo.EXPECT().FindByID(gomock.Any(), svc.ID).Return(svc, nil)
	s.mockCache.EXPECT().SetService(gomock.Any(), svc).Return(nil)

	got, err := s.catalogService.GetService(context.Background(), svc.ID)
	s.Require().NoError(err)
	s.Equal(svc.ID, got.ID)
}

// TestGetServiceCacheDown недоступный кеш не мешает чтению из БД.
func (s *CatalogServiceTestSuite) TestGetServiceCacheDown() {
	svc := s.service()
	cacheErr := errors.New("connection refused")
	s.mockCache.EXPECT().GetService(gomock.Any(), svc.ID).Return(nil, cacheErr)
	s.mockServiceRepo.EXPECT().FindByID(gomock.Any(), svc.ID).Return(svc, nil)
	s.mockCache.EXPECT().SetService(gomock.Any(), svc).Return(cacheErr)

	got, err := s.catalogService.GetService(context.Background(), svc.ID)
	s.Require().NoError(err)
	s.Equal(svc.ID, got.ID)
}

func (s *CatalogServiceTestSuite) TestGetServiceNotFound() {
	s.mockCache.EXPECT().GetService(gomock.Any(), int64(99)).Return(nil, domain.ErrRecordNotFound)
	s.mockServiceRepo.EXPECT().FindByID(gomock.Any(), int64(99)).Return(nil, domain.ErrRecordNotFound)

	_, err := s.catalogService.GetService(context.Background(), 99)
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}

// TestGetServiceWithoutCache сервис работает и без кеша вовсе.
func (s *CatalogServiceTestSuite) TestGetServiceWithoutCache() {
	l := logrus.New()
	l.SetOutput(io.Discard)
	catalogService, newErr := NewCatalogService(s.mockUOW, nil, l)
	s.Require().NoError(newErr)

	svc := s.service()
	s.mockServiceRepo.EXPECT().FindByID(gomock.Any(), svc.ID).Return(svc, nil)

	got, err := catalogService.GetService(context.Background(), svc.ID)
	s.Require().NoError(err)
	s.Equal(svc.ID, got.ID)
}

func (s *CatalogServiceTestSuite) TestActiveServices() {
	services := []domain.Service{*s.service()}
	s.mockServiceRepo.EXPECT().GetActive(gomock.Any()).Return(services, nil)

	got, err := s.catalogService.ActiveServices(context.Background())
	s.Require().NoError(err)
	s.Len(got, 1)
}
