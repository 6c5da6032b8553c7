package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	BookingsTotal          *prometheus.CounterVec
	BookingContentionTotal prometheus.Counter
	SlotsGeneratedTotal    prometheus.Counter
	SlotsArchivedTotal     prometheus.Counter
	TransitionsTotal       *prometheus.CounterVec
	MissedSweptTotal       prometheus.Counter
	SweepDuration          *prometheus.HistogramVec

	ChangeLogEntriesTotal  prometheus.Counter
	ChangeLogBufferDropped prometheus.Counter
}

func NewCollector(serviceName string) *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		BookingsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome (booked, contended, rejected).",
		}, []string{"outcome"}),

		BookingContentionTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "booking_contention_total",
			Help:      "Booking attempts that lost the slot claim race.",
		}),

		SlotsGeneratedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "slots_generated_total",
			Help:      "Slots created by block expansion.",
		}),

		SlotsArchivedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "slots_archived_total",
			Help:      "Expired slots archived by the reaper.",
		}),

		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "appointment_transitions_total",
			Help:      "Appointment state transitions by target state.",
		}, []string{"state"}),

		MissedSweptTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "missed_appointments_total",
			Help:      "Scheduled appointments marked missed by the reaper.",
		}),

		SweepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "sweep_duration_seconds",
			Help:      "Reaper sweep latency by sweep kind.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 20.0},
		}, []string{"sweep"}),

		ChangeLogEntriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "changelog",
			Name:      "entries_total",
			Help:      "Total change log entries written.",
		}),

		ChangeLogBufferDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "changelog",
			Name:      "buffer_dropped_total",
			Help:      "Change log entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
