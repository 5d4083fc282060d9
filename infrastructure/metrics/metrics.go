package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"transcode-worker/application/worker"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "transcode_worker"

// Metrics records worker activity on a private registry
type Metrics struct {
	registry          *prometheus.Registry
	messagesReceived  prometheus.Counter
	messagesProcessed *prometheus.CounterVec
	acknowledgements  *prometheus.CounterVec
	transcodeDuration prometheus.Histogram
}

// New creates and registers the worker metrics
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of queue messages received",
		}),
		messagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_processed_total",
				Help:      "Total number of messages processed by outcome",
			},
			[]string{"outcome"},
		),
		acknowledgements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "acknowledgements_total",
				Help:      "Total number of message deletions by status",
			},
			[]string{"status"},
		),
		transcodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcode_duration_seconds",
			Help:      "Time spent in the transcoder",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
	}

	m.registry.MustRegister(
		m.messagesReceived,
		m.messagesProcessed,
		m.acknowledgements,
		m.transcodeDuration,
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) MessagesReceived(n int) {
	m.messagesReceived.Add(float64(n))
}

func (m *Metrics) MessageProcessed(outcome worker.Outcome) {
	m.messagesProcessed.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) Acknowledged(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.acknowledgements.WithLabelValues(status).Inc()
}

func (m *Metrics) TranscodeDuration(d time.Duration) {
	m.transcodeDuration.Observe(d.Seconds())
}

// Router serves /metrics and /healthz
func (m *Metrics) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	return r
}

// Serve runs the metrics server on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

var _ worker.Recorder = (*Metrics)(nil)
