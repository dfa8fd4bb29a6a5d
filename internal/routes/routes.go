package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"turnos-api/internal/controllers"
)

// Dependencies - всё, что нужно роутерам. Собирается в main.
type Dependencies struct {
	Tickets   *controllers.TicketController
	WebSocket *controllers.WebSocketController
	Partners  *controllers.PartnerController
	Health    *controllers.HealthController
	Gatherer  prometheus.Gatherer
	Logger    *zap.Logger
}

func InitRouter(e *echo.Echo, deps Dependencies) {
	deps.Logger.Info("InitRouter: Начало создания маршрутов")

	api := e.Group("/api")

	runTicketRouter(api, e, deps.Tickets)
	runWebSocketRouter(api, e, deps.WebSocket)
	if deps.Partners != nil {
		runPartnerRouter(api, deps.Partners)
	}
	runSystemRouter(e, deps.Health, deps.Gatherer)

	deps.Logger.Info("InitRouter: Создание маршрутов завершено")
}
