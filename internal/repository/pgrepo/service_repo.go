package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-boost/internal/domain"
	"github.com/fsdevblog/groph-boost/pkg/uow"
)

const serviceColumns = `id, created_at, name, category, rate, min_quantity,
	max_quantity, provider_service_id, status`

type ServiceRepository struct {
	db uow.DBTX
}

func NewServiceRepository(db uow.DBTX) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func (s *ServiceRepository) FindByID(ctx context.Context, id int64) (*domain.Service, error) {
	row := s.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id)
	service, err := scanService(row)
	if err != nil {
		return nil, convertErr(err, "finding service by id %d", id)
	}
	return service, nil
}

func (s *ServiceRepository) GetActive(ctx context.Context) ([]domain.Service, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE status = $1 ORDER BY category, id`,
		domain.ServiceStatusActive)
	if err != nil {
		return nil, convertErr(err, "getting active services")
	}
	defer rows.Close()

	var services []domain.Service
	for rows.Next() {
		service, scanErr := scanService(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "getting active services")
		}
		services = append(services, *service)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "getting active services")
	}
	return services, nil
}

func scanService(row rowScanner) (*domain.Service, error) {
	var service domain.Service
	err := row.Scan(
		&service.ID,
		&service.CreatedAt,
		&service.Name,
		&service.Category,
		&service.Rate,
		&service.MinQuantity,
		&service.MaxQuantity,
		&service.ProviderServiceID,
		&service.Status,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &service, nil
}
