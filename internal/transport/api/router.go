package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-boost/internal/notify"
	"github.com/fsdevblog/groph-boost/internal/transport/api/middlewares"
)

const (
	DefaultServiceTimeout = 3 * time.Second
)

const (
	RouteGroup          = "/api"
	RegisterRoute       = "/user/register"
	LoginRoute          = "/user/login"
	ServicesRoute       = "/services"
	OrdersRoute         = "/orders"
	OrderRoute          = "/orders/:orderID"
	BalanceRoute        = "/balance"
	BalanceHistoryRoute = "/balance/history"
	DepositsRoute       = "/deposits"
	SepayWebhookRoute   = "/webhooks/sepay"
)

type RouterArgs struct {
	Logger         *logrus.Logger
	UserService    UserServicer
	OrderService   OrderServicer
	LedgerService  LedgerServicer
	CatalogService CatalogServicer
	Notifier       notify.Notifier
	JWTSecretKey   []byte
	WebhookSecret  []byte
}

func New(args RouterArgs) *gin.Engine {
	if args.Notifier == nil {
		args.Notifier = notify.Noop{}
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	authHandler := NewAuthHandler(args.UserService)
	ordersHandler := NewOrdersHandler(args.OrderService)
	balanceHandler := NewBalanceHandler(args.LedgerService)
	servicesHandler := NewServicesHandler(args.CatalogService)
	depositsHandler := NewDepositsHandler(args.LedgerService, args.Notifier, args.WebhookSecret)

	api := r.Group(RouteGroup)

	api.POST(RegisterRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Register)
	api.POST(LoginRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Login)

	// Вебхук аутентифицируется подписью тела, а не токеном юзера.
	api.POST(SepayWebhookRoute, depositsHandler.Webhook)

	api.Use(middlewares.AuthRequired(args.JWTSecretKey))
	// ниже все роуты группы требуют авторизованного пользователя.
	api.GET(ServicesRoute, servicesHandler.Index)

	api.POST(OrdersRoute, ordersHandler.Create)
	api.GET(OrdersRoute, ordersHandler.Index)
	api.GET(OrderRoute, ordersHandler.Show)

	api.GET(BalanceRoute, balanceHandler.Index)
	api.GET(BalanceHistoryRoute, balanceHandler.History)

	api.POST(DepositsRoute, depositsHandler.Create)
	return r
}
