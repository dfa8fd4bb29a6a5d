package routes

import (
	"github.com/labstack/echo/v4"

	"turnos-api/internal/controllers"
)

func runPartnerRouter(api *echo.Group, ctrl *controllers.PartnerController) {
	odoo := api.Group("/odoo")
	odoo.GET("/health", ctrl.Health)
	odoo.GET("/clientes/buscar", ctrl.Search)
	odoo.POST("/clientes/:id/telefono", ctrl.UpdatePhone)
	odoo.POST("/clientes/seleccionar-o-crear", ctrl.SelectOrCreate)
}
