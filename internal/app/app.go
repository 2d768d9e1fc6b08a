package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fsdevblog/groph-boost/internal/repository/repoargs"

	"github.com/fsdevblog/groph-boost/internal/notify"
	"github.com/fsdevblog/groph-boost/internal/repository/redcache"
	"github.com/fsdevblog/groph-boost/internal/transport/provider"
	"github.com/fsdevblog/groph-boost/internal/transport/provider/client"

	"github.com/fsdevblog/groph-boost/pkg/uow"

	"github.com/fsdevblog/groph-boost/internal/config"
	"github.com/fsdevblog/groph-boost/internal/repository/pgrepo"
	"github.com/fsdevblog/groph-boost/internal/service"
	"github.com/fsdevblog/groph-boost/internal/transport/api"
	"github.com/sirupsen/logrus"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	"os/signal"
	"syscall"

	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

func (a *App) Run() error { //nolint:funlen
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.Infof("Starting app on %s", a.Config.RunAddress)
	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return fmt.Errorf("app run: %s", connErr.Error())
	}
	defer conn.Close()

	unitOfWork, uowErr := initUOW(conn)
	if uowErr != nil {
		return fmt.Errorf("app run: %s", uowErr.Error())
	}

	var catalogCache service.CatalogCache
	if a.Config.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
		defer redisClient.Close() //nolint:errcheck
		catalogCache = redcache.New(redisClient)
	}

	services, sErr := service.Factory(service.FactoryArgs{
		UOW:          unitOfWork,
		JWTSecret:    []byte(a.Config.JWTUserSecret),
		CatalogCache: catalogCache,
		Logger:       a.Logger,
	})
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}

	var notifier notify.Notifier = notify.Noop{}
	if a.Config.TelegramBotToken != "" && a.Config.TelegramChatID != "" {
		notifier = notify.NewTelegram(a.Config.TelegramBotToken, a.Config.TelegramChatID, a.Logger)
	}

	providerClient := client.New(a.Config.ProviderAPIURL, a.Config.ProviderAPIKey)
	dispatcher := provider.NewDispatcher(
		providerClient,
		services.OrderService,
		services.CatalogService,
		notifier,
		a.Logger,
	)
	reconciler := provider.NewReconciler(
		dispatcher,
		providerClient,
		services.OrderService,
		services.LedgerService,
		notifier,
		a.Logger,
	).SetInterval(a.Config.ReconcileInterval)

	router := api.New(api.RouterArgs{
		Logger:         a.Logger,
		UserService:    services.UserService,
		OrderService:   services.OrderService,
		LedgerService:  services.LedgerService,
		CatalogService: services.CatalogService,
		Notifier:       notifier,
		JWTSecretKey:   []byte(a.Config.JWTUserSecret),
		WebhookSecret:  []byte(a.Config.WebhookSecret),
	})

	server := &http.Server{ //nolint:gosec
		Addr:    a.Config.RunAddress,
		Handler: router,
	}

	g, gCtx := errgroup.WithContext(notifyCtx)

	g.Go(func() error {
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})

	g.Go(func() error {
		reconciler.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return server.Shutdown(context.Background()) //nolint:contextcheck
	})

	if waitErr := g.Wait(); waitErr != nil {
		return waitErr //nolint:wrapcheck
	}
	return notifyCtx.Err() //nolint:wrapcheck
}

func initUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)

	factories := map[repoargs.RepositoryName]uow.RepositoryFactory{
		repoargs.UserRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewUserRepository(dbtx)
		},
		repoargs.OrderRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewOrderRepository(dbtx)
		},
		repoargs.LedgerRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewLedgerRepository(dbtx)
		},
		repoargs.ServiceRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewServiceRepository(dbtx)
		},
		repoargs.DepositRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewDepositRepository(dbtx)
		},
	}

	for name, factoryFn := range factories {
		if regErr := unitOfWork.Register(uow.RepositoryName(name), factoryFn); regErr != nil {
			return nil, fmt.Errorf("init UOW: %s", regErr.Error())
		}
	}

	return unitOfWork, nil
}
