package routes

import (
	"github.com/labstack/echo/v4"

	"turnos-api/internal/controllers"
)

func runTicketRouter(api *echo.Group, root *echo.Echo, ctrl *controllers.TicketController) {
	api.POST("/tickets", ctrl.CreateTicket)
	api.POST("/tickets/start", ctrl.StartTicket)
	api.POST("/tickets/finish", ctrl.FinishTicket)
	api.GET("/tickets/:id", ctrl.GetTicket)
	api.GET("/branches/:branch_id/current", ctrl.GetCurrentTicket)
	api.GET("/branches/:branch_id/queue", ctrl.GetQueue)

	// короткие пути для касс и табло; ответы те же, что и у /api
	root.POST("/crear-turno", ctrl.CreateTicket)
	root.POST("/iniciar-turno", ctrl.StartTicket)
	root.POST("/finalizar-turno", ctrl.FinishTicket)
	root.GET("/turno-actual/:branch_id", ctrl.GetCurrentTicket)
	root.GET("/turnos-espera/:branch_id", ctrl.GetQueue)
}

func runWebSocketRouter(api *echo.Group, root *echo.Echo, ctrl *controllers.WebSocketController) {
	root.GET("/ws/:branch_id", ctrl.ServeWs)
	api.GET("/ws/:branch_id", ctrl.ServeWs)
}
