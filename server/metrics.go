package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/they4kman/gosweep/game"
)

type metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	sessionsCreated prometheus.Counter
	gamesFinished   *prometheus.CounterVec
	winTimes        *prometheus.HistogramVec
}

func newMetrics(sessionCount func() int) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gosweep",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gosweep",
			Name:      "sessions_created_total",
			Help:      "Game sessions started.",
		}),
		gamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gosweep",
			Name:      "games_finished_total",
			Help:      "Games won or lost, by difficulty.",
		}, []string{"difficulty", "status"}),
		winTimes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gosweep",
			Name:      "win_time_seconds",
			Help:      "Elapsed time of won games.",
			Buckets:   []float64{5, 10, 30, 60, 120, 300, 600, 999},
		}, []string{"difficulty"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.sessionsCreated,
		m.gamesFinished,
		m.winTimes,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "gosweep",
			Name:      "sessions",
			Help:      "Live game sessions.",
		}, func() float64 {
			return float64(sessionCount())
		}),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// gameEnded runs inside the finished session and must not call back into it
func (m *metrics) gameEnded(snapshot game.Snapshot) {
	difficulty := string(snapshot.Difficulty)
	m.gamesFinished.WithLabelValues(difficulty, snapshot.Status.String()).Inc()
	if snapshot.Status == game.Won {
		m.winTimes.WithLabelValues(difficulty).Observe(float64(snapshot.ElapsedSeconds))
	}
}
