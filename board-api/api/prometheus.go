package api

import (
	"errors"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsPath = "/metrics"

var storeFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "taskboard",
		Subsystem: "store",
		Name:      "failures_total",
		Help:      "Store operations that failed with an unexpected error.",
	},
	[]string{"op"},
)

// RegisterMetrics instruments every request with Prometheus collectors on reg
// and serves the registry at /metrics.
func RegisterMetrics(e *echo.Echo, reg *prometheus.Registry) error {
	if err := reg.Register(storeFailures); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return err
		}
	}
	mw, err := echoprometheus.MiddlewareConfig{
		Namespace:  "taskboard",
		Subsystem:  "http",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == metricsPath
		},
	}.ToMiddleware()
	if err != nil {
		return err
	}
	e.Use(mw)
	e.GET(metricsPath, echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg}))
	return nil
}
