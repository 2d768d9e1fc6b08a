package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-boost/pkg/uow"
)

type AppServices struct {
	UserService    *UserService
	OrderService   *OrderService
	LedgerService  *LedgerService
	CatalogService *CatalogService
}

type FactoryArgs struct {
	UOW          uow.UOW
	JWTSecret    []byte
	CatalogCache CatalogCache
	Logger       *logrus.Logger
}

func Factory(args FactoryArgs) (*AppServices, error) {
	userService, userServiceErr := NewUserService(args.UOW, args.JWTSecret)
	if userServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", userServiceErr.Error())
	}

	ledgerService, ledgerServiceErr := NewLedgerService(args.UOW)
	if ledgerServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", ledgerServiceErr.Error())
	}

	catalogService, catalogServiceErr := NewCatalogService(args.UOW, args.CatalogCache, args.Logger)
	if catalogServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", catalogServiceErr.Error())
	}

	orderService, orderServiceErr := NewOrderService(args.UOW, ledgerService, catalogService)
	if orderServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", orderServiceErr.Error())
	}

	return &AppServices{
		UserService:    userService,
		OrderService:   orderService,
		LedgerService:  ledgerService,
		CatalogService: catalogService,
	}, nil
}
