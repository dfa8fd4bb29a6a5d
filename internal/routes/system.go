package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"turnos-api/internal/controllers"
)

func runSystemRouter(root *echo.Echo, health *controllers.HealthController, gatherer prometheus.Gatherer) {
	if health != nil {
		root.GET("/health", health.Health)
	}
	if gatherer != nil {
		root.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}
