package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts Redis command failures by command name. Incremented by
// the cache package's client hook.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tradeconnect_redis_errors_total",
	Help: "Total number of Redis errors by command",
}, []string{"command"})

// InteractionToggles counts like/favorite toggle outcomes.
var InteractionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tradeconnect_interaction_toggles_total",
	Help: "Total number of interaction toggles by kind and resulting state",
}, []string{"kind", "state"})

// InitMetrics creates the fiberprometheus middleware for HTTP request
// metrics. Registration on the app happens in the server's route setup.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware wraps the fiberprometheus handler as a fiber.Handler.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
