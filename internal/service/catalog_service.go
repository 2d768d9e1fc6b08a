package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/internal/repository/repoargs"
	"github.com/fsdevblog/groph-boost/pkg/uow"
)

// CatalogService каталог услуг с read-through кешем. Кеш строго best-effort:
// любая его ошибка деградирует в чтение из БД и пишется в лог на уровне warn.
type CatalogService struct {
	serviceRepo ServiceRepository
	cache       CatalogCache
	l           *logrus.Entry
}

func NewCatalogService(u uow.UOW, cache CatalogCache, l *logrus.Logger) (*CatalogService, error) {
	serviceRepo, err := uow.GetRepositoryAs[ServiceRepository](u, uow.RepositoryName(repoargs.ServiceRepoName))
	if err != nil {
		return nil, err
	}
	return &CatalogService{
		serviceRepo: serviceRepo,
		cache:       cache,
		l:           l.WithField("component", "catalog"),
	}, nil
}

// GetService возвращает услугу по id, сперва из кеша, при промахе из БД с
// обратной записью в кеш.
func (s *CatalogService) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	if s.cache != nil {
		cached, cacheErr := s.cache.GetService(ctx, id)
		if cacheErr == nil {
			return cached, nil
		}
		if !errors.Is(cacheErr, domain.ErrRecordNotFound) {
			s.l.WithError(cacheErr).WithField("serviceID", id).Warn("catalog cache read failed")
		}
	}

	svc, err := s.serviceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if s.cache != nil {
		if setErr := s.cache.SetService(ctx, svc); setErr != nil {
			s.l.WithError(setErr).WithField("serviceID", id).Warn("catalog cache write failed")
		}
	}
	return svc, nil
}

// ActiveServices возвращает активные услуги каталога. Список не кешируется:
// читается редко относительно точечных GetService при размещении заказов.
func (s *CatalogService) ActiveServices(ctx context.Context) ([]domain.Service, error) {
	services, err := s.serviceRepo.GetActive(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return services, nil
}
