package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	webhookRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_requests_total",
		Help: "Webhook deliveries received, by HTTP status returned.",
	}, []string{"status"})

	healthChecks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "health_checks_total",
		Help: "Health check requests served.",
	})
)

func init() {
	register(webhookRequests, healthChecks)
}

func IncWebhookRequest(status int) {
	webhookRequests.WithLabelValues(strconv.Itoa(status)).Inc()
}

func IncHealthCheck() { healthChecks.Inc() }
