// Package main generates sample copilotd metrics so Grafana dashboards can
// be built and tested without real conversation traffic.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric families mirroring what the daemon exports through the OTLP
// pipeline, with the prometheus-normalized names.
var (
	// HTTP transport metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilotd_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "copilotd_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"method", "endpoint", "status"},
	)
	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "copilotd_http_response_size_bytes",
			Help:    "HTTP response size",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"method", "endpoint", "status"},
	)
	httpActiveRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "copilotd_http_active_requests",
			Help: "Number of requests currently in flight",
		},
	)

	// Copilot turn metrics
	copilotTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilotd_copilot_turns_total",
			Help: "Total number of completed copilot turns",
		},
		[]string{"intent"},
	)

	// Oracle call metrics
	oracleCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "copilotd_oracle_call_duration_seconds",
			Help:    "Duration of completion calls by graph node",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node"},
	)
	oracleErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilotd_oracle_errors_total",
			Help: "Total number of failed completion calls",
		},
		[]string{"node"},
	)

	// Calculator sync metrics
	syncActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "copilotd_sync_active_connections",
			Help: "Number of open sync sockets",
		},
	)
	syncFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilotd_sync_frames_total",
			Help: "Total number of sync frames received",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		httpResponseSize,
		httpActiveRequests,
		copilotTurnsTotal,
		oracleCallDuration,
		oracleErrors,
		syncActiveConnections,
		syncFramesTotal,
	)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	// Generate initial sample data
	generateSampleData()

	// Start background goroutine to continuously generate data
	ctx, cancel := context.WithCancel(context.Background())
	go generateContinuousData(ctx)

	// Serve metrics
	http.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
		server.Shutdown(context.Background())
	}()

	fmt.Printf("Sample metrics server running on http://localhost:%s/metrics\n", port)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println("\nTo use with Prometheus, add this to prometheus.yml:")
	fmt.Printf("  - job_name: 'copilotd-test'\n    static_configs:\n      - targets: ['localhost:%s']\n", port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

var (
	intents  = []string{"greeting", "modify", "action", "scenario", "analysis"}
	nodes    = []string{"router", "greeting", "analyst", "controller", "scenario_runner"}
	frames   = []string{"STATE_UPDATE", "PING", "invalid"}
	statuses = []string{"200", "200", "200", "200", "400", "500"}
)

// observeChatRequest records one simulated chat round trip across the
// transport, turn, and oracle families so dashboard panels line up.
func observeChatRequest() {
	status := randomChoice(statuses)
	httpRequestsTotal.WithLabelValues("POST", "/api/copilot/chat", status).Inc()
	httpRequestDuration.WithLabelValues("POST", "/api/copilot/chat", status).Observe(0.5 + rand.Float64()*3.0)
	httpResponseSize.WithLabelValues("POST", "/api/copilot/chat", status).Observe(float64(rand.Intn(2000) + 200))

	if status != "200" {
		if status == "500" {
			oracleErrors.WithLabelValues(randomChoice(nodes)).Inc()
		}
		return
	}

	intent := randomChoice(intents)
	copilotTurnsTotal.WithLabelValues(intent).Inc()

	// Every turn runs the router plus one branch.
	oracleCallDuration.WithLabelValues("router").Observe(0.2 + rand.Float64()*0.6)
	branch := randomChoice(nodes[1:])
	oracleCallDuration.WithLabelValues(branch).Observe(0.4 + rand.Float64()*2.0)
}

func generateSampleData() {
	// Chat traffic
	for i := 0; i < 200; i++ {
		observeChatRequest()
	}

	// Health checks
	for i := 0; i < 300; i++ {
		httpRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()
		httpRequestDuration.WithLabelValues("GET", "/health", "200").Observe(rand.Float64() * 0.005)
		httpResponseSize.WithLabelValues("GET", "/health", "200").Observe(20)
	}

	// Sync frame traffic
	for i := 0; i < 150; i++ {
		syncFramesTotal.WithLabelValues(randomChoice(frames)).Inc()
	}

	httpActiveRequests.Set(float64(rand.Intn(5)))
	syncActiveConnections.Set(float64(rand.Intn(20) + 1))
}

func generateContinuousData(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A trickle of chat turns
			if rand.Float64() > 0.3 {
				observeChatRequest()
			}

			// Health checks arrive steadily
			httpRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()
			httpRequestDuration.WithLabelValues("GET", "/health", "200").Observe(rand.Float64() * 0.005)

			// Calculator edits stream in while a socket is open
			if rand.Float64() > 0.4 {
				syncFramesTotal.WithLabelValues("STATE_UPDATE").Inc()
			}
			if rand.Float64() > 0.95 {
				syncFramesTotal.WithLabelValues("invalid").Inc()
			}

			// Socket churn
			httpActiveRequests.Set(float64(rand.Intn(5)))
			syncActiveConnections.Add(float64(rand.Intn(3) - 1))
		}
	}
}

func randomChoice(choices []string) string {
	return choices[rand.Intn(len(choices))]
}
