package httphandler

import (
	"context"
	"net/http"
	"time"

	// Packages
	jobs "github.com/mutablelogic/go-pgjobs/pkg/jobs"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	prometheus "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

///////////////////////////////////////////////////////////////////////////////
// CONSTANTS

const (
	metricsTimeout = 30 * time.Second
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type metrics struct {
	manager            *jobs.Manager
	jobs               *prometheus.Desc
	activeReservations *prometheus.Desc
}

var _ prometheus.Collector = (*metrics)(nil)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// RegisterMetricsHandler registers a HTTP handler for prometheus metrics
// on the provided router with the given path prefix. The manager must be non-nil.
func RegisterMetricsHandler(router *http.ServeMux, prefix string, manager *jobs.Manager) {
	if manager == nil {
		panic("manager is nil")
	}

	// Create a prometheus registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(newMetrics(manager))
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	router.HandleFunc(joinPath(prefix, "metrics"), func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.ServeHTTP(w, r)
		default:
			_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
		}
	})
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS - COLLECTOR

// Describe sends metric descriptors to the channel
func (m *metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.jobs
	ch <- m.activeReservations
}

// Collect fetches metrics from the database and sends them to the channel
func (m *metrics) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), metricsTimeout)
	defer cancel()

	if err := m.collectJobStatuses(ctx, ch); err != nil {
		ch <- prometheus.NewInvalidMetric(m.jobs, err)
	}
	if err := m.collectActiveReservations(ctx, ch); err != nil {
		ch <- prometheus.NewInvalidMetric(m.activeReservations, err)
	}
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func newMetrics(manager *jobs.Manager) *metrics {
	return &metrics{
		manager: manager,
		jobs: prometheus.NewDesc(
			"pgjobs_jobs",
			"Number of jobs by job type and status",
			[]string{"schema", "job_type", "status"}, nil,
		),
		activeReservations: prometheus.NewDesc(
			"pgjobs_active_reservations",
			"Number of reservations which are neither completed nor expired",
			[]string{"schema"}, nil,
		),
	}
}

func (m *metrics) collectJobStatuses(ctx context.Context, ch chan<- prometheus.Metric) error {
	statuses, err := m.manager.ListJobStatuses(ctx)
	if err != nil {
		return err
	}
	for _, status := range statuses {
		ch <- prometheus.MustNewConstMetric(
			m.jobs,
			prometheus.GaugeValue,
			float64(status.Count),
			m.manager.Schema(),
			status.JobType,
			string(status.Status),
		)
	}
	return nil
}

func (m *metrics) collectActiveReservations(ctx context.Context, ch chan<- prometheus.Metric) error {
	count, err := m.manager.CountActiveReservations(ctx)
	if err != nil {
		return err
	}
	ch <- prometheus.MustNewConstMetric(
		m.activeReservations,
		prometheus.GaugeValue,
		float64(count),
		m.manager.Schema(),
	)
	return nil
}
