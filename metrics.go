package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/sirupsen/logrus"
)

// opCounter is what the query layer calls through to count its
// operations. The concrete implementation is injected so the core
// never touches global state.
type opCounter interface {
	inc(op string)
}

type nopCounter struct{}

func (nopCounter) inc(string) {}

// Names of the instrumented query-layer operations. Declared
// explicitly; each gets a pre-registered counter series so all of them
// export from zero.
const (
	opUserID         = "user_id"
	opUserByID       = "user_by_id"
	opUserByUsername = "user_by_username"
	opCreateUser     = "create_user"
	opCreateMessage  = "create_message"
	opIsFollowing    = "is_following"
	opFollow         = "follow"
	opUnfollow       = "unfollow"
	opMessages       = "messages"
)

var instrumentedOps = []string{
	opUserID,
	opUserByID,
	opUserByUsername,
	opCreateUser,
	opCreateMessage,
	opIsFollowing,
	opFollow,
	opUnfollow,
	opMessages,
}

// Metrics holds the Prometheus instruments. Each App instance gets its
// own registry, so tests never collide on registration.
type Metrics struct {
	registry  *prometheus.Registry
	responses prometheus.Counter
	duration  prometheus.Histogram
	cpuLoad   prometheus.Gauge
	ops       *prometheus.CounterVec
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		registry: reg,
		responses: factory.NewCounter(prometheus.CounterOpts{
			Name: "minitwit_http_responses_total",
			Help: "The count of HTTP responses sent.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "minitwit_request_duration_milliseconds",
			Help: "Request duration distribution.",
		}),
		cpuLoad: factory.NewGauge(prometheus.GaugeOpts{
			Name: "minitwit_cpu_load_percent",
			Help: "Current load of the CPU in percent.",
		}),
		ops: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "minitwit_op_total",
			Help: "Calls per query-layer operation.",
		}, []string{"op"}),
	}
	for _, op := range instrumentedOps {
		m.ops.WithLabelValues(op)
	}
	return m
}

func (m *Metrics) inc(op string) {
	m.ops.WithLabelValues(op).Inc()
}

// statusWriter captures the response status for logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// instrument wraps every handler: samples CPU load, counts the
// response, observes the request duration and writes a request log line.
func (a *App) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
			a.metrics.cpuLoad.Set(pct[0])
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		a.metrics.responses.Inc()
		a.metrics.duration.Observe(float64(elapsed) / float64(time.Millisecond))
		a.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.status,
			"duration": elapsed,
		}).Info("request")
	})
}
