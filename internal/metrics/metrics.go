package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minegate", Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "status"})
	RequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "minegate", Name: "http_request_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	})
	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minegate", Name: "logins_total", Help: "Login attempts by outcome",
	}, []string{"outcome"})
	EmailsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "minegate", Name: "emails_sent_total", Help: "Emails handed to the mailer",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal, RequestDuration, LoginsTotal, EmailsSent)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveRequest(method string, status int, d time.Duration) {
	RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	RequestDuration.Observe(d.Seconds())
}
