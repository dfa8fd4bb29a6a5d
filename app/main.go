// Файл: main.go

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"turnos-api/internal/controllers"
	"turnos-api/internal/integrations"
	"turnos-api/internal/integrations/mock"
	"turnos-api/internal/integrations/odoo"
	"turnos-api/internal/listeners"
	"turnos-api/internal/repositories"
	"turnos-api/internal/routes"
	"turnos-api/internal/services"
	"turnos-api/pkg/api"
	"turnos-api/pkg/config"
	"turnos-api/pkg/database/postgresql"
	apperrors "turnos-api/pkg/errors"
	"turnos-api/pkg/eventbus"
	applogger "turnos-api/pkg/logger"
	"turnos-api/pkg/middleware"
	"turnos-api/pkg/validation"
	appwebsocket "turnos-api/pkg/websocket"
)

func main() {
	// 1. Конфиг и логгер
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Echo и middleware
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil)
				_ = api.ErrorResponse(c, httpErr)
			}
			return err
		},
	}))
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(logger.Named("http")))
	e.Use(middleware.InjectLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	// 3. PostgreSQL и миграции
	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("Не удалось подключиться к PostgreSQL", zap.Error(err))
	}
	defer dbConn.Close()

	if cfg.Postgres.AutoMigrate {
		if err := postgresql.Migrate(ctx, dbConn, logger); err != nil {
			logger.Fatal("Ошибка миграций", zap.Error(err))
		}
	}

	// 4. Redis нужен только для кеша поиска клиентов, без него сервис работает
	var cacheRepo repositories.CacheRepositoryInterface
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis недоступен, кеш поиска клиентов отключён", zap.Error(err), zap.String("address", cfg.Redis.Address))
	} else {
		cacheRepo = repositories.NewRedisCacheRepository(redisClient, "turnos:")
	}

	// 5. Метрики и хаб
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	hub := appwebsocket.NewHub(logger, appwebsocket.NewMetrics(registry))

	bus := eventbus.New(logger, cfg.Odoo.Timeout*2)

	// 6. Репозитории и сервисы
	txManager := repositories.NewTxManager(dbConn)
	ticketRepo := repositories.NewTicketRepository(dbConn, txManager, cfg.Postgres.QueryTimeout, logger)

	projector := services.NewQueueProjector(ticketRepo)
	notifier := services.NewQueueNotifier(projector, hub, logger)
	ticketService := services.NewTicketService(ticketRepo, projector, notifier, bus, logger)

	// 7. CRM
	crmRegistry := integrations.NewRegistry()
	var crmProvider integrations.PartnerProvider
	switch cfg.Odoo.Provider {
	case "mock":
		crmProvider = mock.New()
	default:
		crmProvider, err = odoo.New(cfg.Odoo, logger)
		if err != nil {
			logger.Fatal("Не удалось создать клиента Odoo", zap.Error(err))
		}
	}
	if err := crmRegistry.Register(crmProvider); err != nil {
		logger.Fatal("Не удалось зарегистрировать CRM-провайдер", zap.Error(err))
	}
	partnerService := services.NewPartnerService(crmRegistry, cacheRepo, cfg.Odoo.SearchTTL, logger)

	if cfg.Odoo.SyncOnCreate {
		listeners.NewPartnerSyncListener(partnerService, logger).Register(bus)
		logger.Info("Синхронизация клиентов тикетов с CRM включена")
	}

	// 8. Роуты
	wsOptions := appwebsocket.Options{
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		SendBuffer:     cfg.WebSocket.SendBuffer,
	}
	routes.InitRouter(e, routes.Dependencies{
		Tickets:   controllers.NewTicketController(ticketService, logger.Named("ticket_controller")),
		WebSocket: controllers.NewWebSocketController(ctx, hub, notifier, wsOptions, logger.Named("ws")),
		Partners:  controllers.NewPartnerController(partnerService, logger.Named("partner_controller")),
		Health:    controllers.NewHealthController(dbConn, cfg.Postgres.QueryTimeout),
		Gatherer:  registry,
		Logger:    logger,
	})

	// 9. Запуск и остановка
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("🚀 Сервер запущен", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Остановка сервера...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		hub.CloseAll()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Ошибка остановки HTTP-сервера", zap.Error(err))
		}
		if err := bus.Wait(shutdownCtx); err != nil {
			logger.Warn("Не все обработчики событий завершились", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Сервер остановлен с ошибкой", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("Сервер остановлен")
}
